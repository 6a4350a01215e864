/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/url"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 320

// joinURL is the address other players open to join code, honoring
// X-Forwarded-Proto when running behind a proxy.
func joinURL(cfg *Config, r *http.Request, code string) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
		scheme = proto
	}

	u := url.URL{
		Scheme:   scheme,
		Host:     r.Host,
		Path:     cfg.prefix + "/",
		RawQuery: url.Values{"code": {code}}.Encode(),
	}

	return u.String()
}

// serveQR renders a PNG QR code of the join link for the caller's room.
func (a *app) serveQR() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		sess := a.sessions.fromRequest(w, r)

		snap, ok := a.svc.GetState(sess)
		if !ok {
			http.Error(w, "no active game", http.StatusNotFound)
			return
		}

		png, err := qrcode.Encode(joinURL(a.cfg, r, snap.GameCode), qrcode.Medium, qrSize)
		if err != nil {
			a.logger.Error("QR generation failed", "room", snap.GameCode, "error", err)
			http.Error(w, "qr generation failed", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(a.cfg, w)

		if _, err := w.Write(png); err != nil {
			a.logger.Debug("Write failed", "path", r.URL.Path, "error", err)
			return
		}

		a.logger.Debug("SERVE", "path", r.URL.Path, "room", snap.GameCode, "size", formatSize(len(png)))
	}
}
