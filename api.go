/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Seednode/scorebox/game"
	"github.com/julienschmidt/httprouter"
)

const maxBodyBytes = 64 << 10

type apiResponse struct {
	OK    bool           `json:"ok"`
	State *game.Snapshot `json:"state,omitempty"`
	Error string         `json:"error,omitempty"`
}

type notStarted struct {
	Started bool `json:"started"`
}

type startRequest struct {
	Players     []game.Player   `json:"players"`
	AdminMode   string          `json:"admin_mode"`
	AdminConfig json.RawMessage `json:"admin_config"`
}

type joinRequest struct {
	Code string `json:"code"`
}

type roundRequest struct {
	Scores map[string]json.RawMessage `json:"scores"`
	Admin  *string                    `json:"admin"`
}

// apiFunc handles one JSON request and returns the status and body to send.
type apiFunc func(w http.ResponseWriter, r *http.Request, sess *session) (int, any)

func success(snap game.Snapshot) (int, any) {
	return http.StatusOK, apiResponse{OK: true, State: &snap}
}

func (a *app) fail(err error) (int, any) {
	var gerr *game.Error
	var maxErr *http.MaxBytesError

	switch {
	case errors.As(err, &gerr) && gerr.NotFound():
		return http.StatusNotFound, apiResponse{Error: err.Error()}
	case errors.As(err, &gerr):
		return http.StatusBadRequest, apiResponse{Error: err.Error()}
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge, apiResponse{Error: "request body too large"}
	default:
		a.logger.Error("Request failed", "error", err)
		return http.StatusInternalServerError, apiResponse{Error: "internal server error"}
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return err
		}
		return fmt.Errorf("%w: %v", game.ErrInvalidRequest, err)
	}

	return nil
}

// serveJSON wraps fn with session lookup, optional rate limiting, headers and
// logging. Mutating endpoints pass limited.
func (a *app) serveJSON(fn apiFunc, limited bool) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		sess := a.sessions.fromRequest(w, r)

		var status int
		var body any
		if limited && !a.sessions.allow(sess.id) {
			status, body = http.StatusTooManyRequests, apiResponse{Error: "too many requests, slow down"}
		} else {
			status, body = fn(w, r, sess)
		}

		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		securityHeaders(a.cfg, w)
		w.WriteHeader(status)

		if err := json.NewEncoder(w).Encode(body); err != nil {
			a.logger.Debug("Write failed", "path", r.URL.Path, "error", err)
			return
		}

		a.logger.Debug("SERVE",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"ip", realIP(r),
			"duration", time.Since(startTime).Round(time.Microsecond),
		)
	}
}

func (a *app) startGame(w http.ResponseWriter, r *http.Request, sess *session) (int, any) {
	var req startRequest
	if err := decodeBody(w, r, &req); err != nil {
		return a.fail(err)
	}

	policy, err := game.ParsePolicy(req.AdminMode, req.AdminConfig)
	if err != nil {
		return a.fail(err)
	}

	snap, err := a.svc.StartGame(sess, req.Players, policy)
	if err != nil {
		return a.fail(err)
	}
	return success(snap)
}

func (a *app) joinGame(w http.ResponseWriter, r *http.Request, sess *session) (int, any) {
	var req joinRequest
	if err := decodeBody(w, r, &req); err != nil {
		return a.fail(err)
	}

	snap, err := a.svc.JoinGame(sess, req.Code)
	if err != nil {
		return a.fail(err)
	}
	return success(snap)
}

func (a *app) getState(_ http.ResponseWriter, _ *http.Request, sess *session) (int, any) {
	snap, started := a.svc.GetState(sess)
	if !started {
		return http.StatusOK, notStarted{}
	}
	return http.StatusOK, snap
}

func (a *app) submitRound(w http.ResponseWriter, r *http.Request, sess *session) (int, any) {
	var req roundRequest
	if err := decodeBody(w, r, &req); err != nil {
		return a.fail(err)
	}

	snap, err := a.svc.SubmitRound(sess, req.Scores, req.Admin)
	if err != nil {
		return a.fail(err)
	}
	return success(snap)
}

func (a *app) undoRound(_ http.ResponseWriter, _ *http.Request, sess *session) (int, any) {
	snap, err := a.svc.UndoRound(sess)
	if err != nil {
		return a.fail(err)
	}
	return success(snap)
}

func (a *app) resetGame(_ http.ResponseWriter, _ *http.Request, sess *session) (int, any) {
	a.svc.ResetGame(sess)
	return http.StatusOK, apiResponse{OK: true}
}

func (a *app) registerAPI(mux *httprouter.Router) {
	p := a.cfg.prefix + "/api"

	mux.POST(p+"/start", a.serveJSON(a.startGame, true))
	mux.POST(p+"/join", a.serveJSON(a.joinGame, true))
	mux.GET(p+"/state", a.serveJSON(a.getState, false))
	mux.POST(p+"/round", a.serveJSON(a.submitRound, true))
	mux.POST(p+"/undo", a.serveJSON(a.undoRound, true))
	mux.POST(p+"/reset", a.serveJSON(a.resetGame, true))
	mux.GET(p+"/ws", a.serveWS())
	mux.GET(p+"/qr", a.serveQR())
}
