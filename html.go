/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"embed"
	"html"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

// indexPage renders the single-page client with the URL prefix filled in.
func indexPage(cfg *Config) ([]byte, error) {
	data, err := assets.ReadFile("assets/index.html")
	if err != nil {
		return nil, err
	}

	data = bytes.ReplaceAll(data, []byte("{{FAVICON}}"), []byte(getFavicon(html.EscapeString(cfg.prefix))))
	data = bytes.ReplaceAll(data, []byte("{{PREFIX}}"), []byte(html.EscapeString(cfg.prefix)))

	return data, nil
}

func (a *app) serveHomePage(page []byte) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		securityHeaders(a.cfg, w)

		// Issue the session cookie up front so the first API call already has it.
		_ = a.sessions.fromRequest(w, r)

		if _, err := w.Write(page); err != nil {
			a.logger.Debug("Write failed", "path", r.URL.Path, "error", err)
		}
	}
}

func (a *app) serveHealthCheck() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(a.cfg, w)

		_, _ = w.Write([]byte("Ok\n"))
	}
}

func (a *app) serveAssets() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := path.Join("assets", path.Clean(p.ByName("asset")))

		data, err := assets.ReadFile(fname)
		if err != nil || fname == "assets/index.html" {
			http.NotFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(a.cfg, w)

		switch strings.ToLower(path.Ext(fname)) {
		case ".css":
			w.Header().Set("Content-Type", "text/css; charset=utf-8")
		case ".js":
			w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
		}

		if _, err := w.Write(data); err != nil {
			a.logger.Debug("Write failed", "path", r.URL.Path, "error", err)
			return
		}

		a.logger.Debug("SERVE", "path", r.URL.Path, "size", formatSize(len(data)), "ip", realIP(r))
	}
}

func (a *app) serveRobots() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		data := `User-agent: *
Disallow: /api/
`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(a.cfg, w)

		_, _ = w.Write([]byte(data))
	}
}

func (a *app) registerPages(mux *httprouter.Router) error {
	page, err := indexPage(a.cfg)
	if err != nil {
		return err
	}

	home := a.serveHomePage(page)
	mux.GET(a.cfg.prefix+"/", home)
	mux.GET(a.cfg.prefix+"/setup", home)
	mux.GET(a.cfg.prefix+"/game", home)

	mux.GET(a.cfg.prefix+"/assets/*asset", a.serveAssets())
	mux.GET(a.cfg.prefix+"/favicons/*favicon", a.serveFavicons())
	mux.GET(a.cfg.prefix+"/favicon.svg", a.serveFavicons())
	mux.GET(a.cfg.prefix+"/healthz", a.serveHealthCheck())
	mux.GET(a.cfg.prefix+"/robots.txt", a.serveRobots())
	mux.GET(a.cfg.prefix+"/version", a.serveVersion())

	return nil
}
