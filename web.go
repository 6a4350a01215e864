/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Seednode/scorebox/game"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/julienschmidt/httprouter"
	"golang.org/x/sync/errgroup"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

// app holds everything the handlers share.
type app struct {
	cfg      *Config
	logger   *log.Logger
	clock    quartz.Clock
	svc      *game.Service
	sessions *sessionStore
	hub      *Hub
}

func newApp(cfg *Config, logger *log.Logger, clock quartz.Clock) *app {
	registry := game.NewRegistry(clock, cfg.roomTTL)
	svc := game.NewService(registry, logger)

	hub := newHub(logger)
	svc.SetNotifier(hub)

	return &app{
		cfg:      cfg,
		logger:   logger,
		clock:    clock,
		svc:      svc,
		sessions: newSessionStore(cfg, clock, registry.TTL()),
		hub:      hub,
	}
}

func (a *app) router() (*httprouter.Router, error) {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		a.logger.Error("Handler panicked", "path", r.URL.Path, "panic", i)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(a.cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage("Server Error", "An error has occurred. Please try again."))
	}

	if err := a.registerPages(mux); err != nil {
		return nil, err
	}
	a.registerAPI(mux)

	if a.cfg.profile {
		registerProfileHandlers(a.cfg, mux)
	}

	return mux, nil
}

// sweep runs the background expiry of rooms and sessions until ctx is done.
func (a *app) sweep(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.svc.Registry().Sweep(ctx, a.cfg.sweepInterval)
	})
	g.Go(func() error {
		return a.sessions.run(ctx, a.cfg.sweepInterval)
	})

	return g.Wait()
}

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), fullscreen=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data:")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func (a *app) serveVersion() httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(a.cfg, w)
		w.WriteHeader(http.StatusOK)

		if _, err := w.Write([]byte("scorebox v" + releaseVersion + "\n")); err != nil {
			a.logger.Debug("Write failed", "path", r.URL.Path, "error", err)
		}
	}
}

func ServePage(ctx context.Context, cfg *Config) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	logger := newLogger(cfg, nil)
	logger.Info("START", "version", releaseVersion)

	a := newApp(cfg, logger, quartz.NewReal())

	mux, err := a.router()
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           mux,
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Listening", "url", cfg.scheme()+"://"+srv.Addr+cfg.prefix+"/")

		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return a.sweep(ctx)
	})

	g.Go(func() error {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	logger.Info("STOP")

	return err
}
