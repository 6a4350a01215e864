/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/coder/quartz"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const sessionCookieName = "scorebox_session"

type sessionEntry struct {
	room     string
	lastSeen time.Time
	limiter  *rate.Limiter
}

// sessionStore remembers which room each browser is in. Browsers only ever hold
// an opaque id; room codes stay server-side.
type sessionStore struct {
	mu       sync.Mutex
	sessions map[string]*sessionEntry

	clock  quartz.Clock
	ttl    time.Duration
	limit  rate.Limit
	burst  int
	secure bool
	path   string
}

// newSessionStore keeps sessions for as long as the rooms they can point at.
func newSessionStore(cfg *Config, clock quartz.Clock, ttl time.Duration) *sessionStore {
	limit := rate.Inf
	if cfg.rateLimit > 0 {
		limit = rate.Limit(cfg.rateLimit)
	}

	return &sessionStore{
		sessions: make(map[string]*sessionEntry),
		clock:    clock,
		ttl:      ttl,
		limit:    limit,
		burst:    cfg.rateBurst,
		secure:   cfg.scheme() == "https",
		path:     cfg.prefix + "/",
	}
}

// fromRequest returns the session named by the request cookie, issuing a new
// cookie when the request has none or an unusable one.
func (st *sessionStore) fromRequest(w http.ResponseWriter, r *http.Request) *session {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if _, err := uuid.Parse(c.Value); err == nil {
			st.seen(c.Value)
			return &session{store: st, id: c.Value}
		}
	}

	id := uuid.NewString()
	st.seen(id)

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    id,
		Path:     st.path,
		HttpOnly: true,
		Secure:   st.secure,
		SameSite: http.SameSiteLaxMode,
	})

	return &session{store: st, id: id}
}

func (st *sessionStore) seen(id string) {
	st.mu.Lock()
	defer st.mu.Unlock()

	st.entryLocked(id)
}

func (st *sessionStore) entryLocked(id string) *sessionEntry {
	e, ok := st.sessions[id]
	if !ok {
		e = &sessionEntry{limiter: rate.NewLimiter(st.limit, st.burst)}
		st.sessions[id] = e
	}
	e.lastSeen = st.clock.Now()

	return e
}

// allow reports whether the session may perform another mutating request now.
func (st *sessionStore) allow(id string) bool {
	st.mu.Lock()
	defer st.mu.Unlock()

	return st.entryLocked(id).limiter.AllowN(st.clock.Now(), 1)
}

// sweep forgets sessions not seen for longer than the room ttl, since any room
// they pointed at has expired as well.
func (st *sessionStore) sweep(now time.Time) int {
	st.mu.Lock()
	defer st.mu.Unlock()

	removed := 0
	for id, e := range st.sessions {
		if now.Sub(e.lastSeen) > st.ttl {
			delete(st.sessions, id)
			removed++
		}
	}

	return removed
}

func (st *sessionStore) run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	w := st.clock.TickerFunc(ctx, interval, func() error {
		st.sweep(st.clock.Now())
		return nil
	}, "sessions", "sweep")

	err := w.Wait()
	if ctx.Err() != nil {
		return nil
	}

	return err
}

func (st *sessionStore) count() int {
	st.mu.Lock()
	defer st.mu.Unlock()

	return len(st.sessions)
}

// session binds one browser to a room for the game service.
type session struct {
	store *sessionStore
	id    string
}

func (s *session) RoomCode() (string, bool) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	e, ok := s.store.sessions[s.id]
	if !ok || e.room == "" {
		return "", false
	}
	return e.room, true
}

func (s *session) SetRoomCode(code string) {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	s.store.entryLocked(s.id).room = code
}

func (s *session) ClearRoomCode() {
	s.store.mu.Lock()
	defer s.store.mu.Unlock()

	if e, ok := s.store.sessions[s.id]; ok {
		e.room = ""
	}
}
