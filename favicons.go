/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"fmt"
	"net/http"
	"path"

	"github.com/julienschmidt/httprouter"
)

//go:embed favicons/*
var favicons embed.FS

func getFavicon(prefix string) string {
	return fmt.Sprintf(`<link rel="icon" type="image/svg+xml" href="%[1]s/favicons/favicon.svg">
	<link rel="manifest" href="%[1]s/favicons/site.webmanifest" crossorigin="use-credentials">
	<meta name="theme-color" content="#1d3557">`, prefix)
}

func (a *app) serveFavicons() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		name := p.ByName("favicon")
		if name == "" {
			name = "/favicon.svg"
		}

		data, err := favicons.ReadFile(path.Join("favicons", path.Clean(name)))
		if err != nil {
			http.NotFound(w, r)
			return
		}

		switch path.Ext(name) {
		case ".svg":
			w.Header().Set("Content-Type", "image/svg+xml")
		case ".webmanifest":
			w.Header().Set("Content-Type", "application/manifest+json")
		}
		w.Header().Set("Cache-Control", "public, max-age=86400")
		securityHeaders(a.cfg, w)

		if _, err := w.Write(data); err != nil {
			a.logger.Debug("Write failed", "path", r.URL.Path, "error", err)
		}
	}
}
