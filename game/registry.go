/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/coder/quartz"
)

const (
	// CodeAlphabet leaves out characters that are easy to confuse (0/O, 1/I).
	CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	CodeLength   = 6

	// DefaultTTL is how long a room survives without being read or written.
	DefaultTTL = 6 * time.Hour
)

// Room pairs a game with its code. Its state is only touched through Do.
type Room struct {
	Code string

	mu    sync.Mutex
	state *State

	// guarded by Registry.mu
	lastAccess time.Time
}

// Do runs fn with exclusive access to the room's state.
func (r *Room) Do(fn func(*State) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return fn(r.state)
}

// Registry owns every live room. Expired rooms are evicted before each operation,
// so no caller can observe a room that has outlived the TTL.
type Registry struct {
	mu      sync.Mutex
	rooms   map[string]*Room
	clock   quartz.Clock
	ttl     time.Duration
	newCode func() (string, error)
	onEvict func(code string)
}

// NewRegistry returns an empty registry. A nil clock means the real clock and a
// non-positive ttl means DefaultTTL.
func NewRegistry(clock quartz.Clock, ttl time.Duration) *Registry {
	if clock == nil {
		clock = quartz.NewReal()
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	return &Registry{
		rooms:   make(map[string]*Room),
		clock:   clock,
		ttl:     ttl,
		newCode: GenerateCode,
	}
}

// OnEvict registers fn to be called with the code of every room removed for
// inactivity. It is called without any registry lock held.
func (r *Registry) OnEvict(fn func(code string)) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.onEvict = fn
}

// TTL returns the inactivity limit of the registry.
func (r *Registry) TTL() time.Duration {
	return r.ttl
}

// GenerateCode returns a random room code of CodeLength characters drawn
// uniformly from CodeAlphabet.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate room code: %w", err)
	}

	// len(CodeAlphabet) divides 256, so the modulo keeps the distribution uniform.
	for i := range buf {
		buf[i] = CodeAlphabet[int(buf[i])%len(CodeAlphabet)]
	}

	return string(buf), nil
}

// Create stores state under a fresh code that no live room uses.
func (r *Registry) Create(state *State) (string, error) {
	evicted := r.lockAndEvict()
	defer r.notify(evicted)
	defer r.mu.Unlock()

	for {
		code, err := r.newCode()
		if err != nil {
			return "", err
		}
		if _, exists := r.rooms[code]; exists {
			continue
		}

		r.rooms[code] = &Room{
			Code:       code,
			state:      state,
			lastAccess: r.clock.Now(),
		}

		return code, nil
	}
}

// Get returns the room stored under code. It does not refresh the room.
func (r *Registry) Get(code string) (*Room, bool) {
	evicted := r.lockAndEvict()
	defer r.notify(evicted)
	defer r.mu.Unlock()

	room, ok := r.rooms[code]
	return room, ok
}

// Touch marks the room as accessed now. Unknown codes are ignored.
func (r *Registry) Touch(code string) {
	evicted := r.lockAndEvict()
	defer r.notify(evicted)
	defer r.mu.Unlock()

	if room, ok := r.rooms[code]; ok {
		room.lastAccess = r.clock.Now()
	}
}

// Remove deletes the room and reports whether it was present.
func (r *Registry) Remove(code string) bool {
	evicted := r.lockAndEvict()
	defer r.notify(evicted)
	defer r.mu.Unlock()

	if _, ok := r.rooms[code]; !ok {
		return false
	}
	delete(r.rooms, code)

	return true
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	evicted := r.lockAndEvict()
	defer r.notify(evicted)
	defer r.mu.Unlock()

	return len(r.rooms)
}

// EvictExpired removes every room idle for longer than the TTL as of now and
// returns their codes.
func (r *Registry) EvictExpired(now time.Time) []string {
	r.mu.Lock()
	evicted := r.evictLocked(now)
	r.mu.Unlock()

	r.notify(evicted)

	return evicted
}

// Sweep evicts expired rooms every interval until ctx is done. Passive eviction
// already hides expired rooms; sweeping only releases their memory sooner.
func (r *Registry) Sweep(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}

	w := r.clock.TickerFunc(ctx, interval, func() error {
		r.EvictExpired(r.clock.Now())
		return nil
	}, "registry", "sweep")

	err := w.Wait()
	if ctx.Err() != nil {
		return nil
	}

	return err
}

// lockAndEvict acquires r.mu and evicts expired rooms. The caller must unlock.
func (r *Registry) lockAndEvict() []string {
	r.mu.Lock()
	return r.evictLocked(r.clock.Now())
}

func (r *Registry) evictLocked(now time.Time) []string {
	var evicted []string
	for code, room := range r.rooms {
		if now.Sub(room.lastAccess) > r.ttl {
			delete(r.rooms, code)
			evicted = append(evicted, code)
		}
	}
	return evicted
}

func (r *Registry) notify(codes []string) {
	if len(codes) == 0 {
		return
	}

	r.mu.Lock()
	fn := r.onEvict
	r.mu.Unlock()

	if fn == nil {
		return
	}
	for _, code := range codes {
		fn(code)
	}
}
