/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
)

// Session is the caller's link to the room it is playing in. The web layer backs
// it with a cookie; the service never sees how.
type Session interface {
	RoomCode() (string, bool)
	SetRoomCode(code string)
	ClearRoomCode()
}

// Notifier hears about every change to a room. Publish is called while the room
// is locked, so snapshots of one room arrive in order; it must not block.
type Notifier interface {
	Publish(code string, snap Snapshot)
	Closed(code string)
}

// Service implements the game operations on top of a Registry.
type Service struct {
	registry *Registry
	logger   *log.Logger
	notifier Notifier
}

// NewService returns a service over registry. A nil logger discards output.
func NewService(registry *Registry, logger *log.Logger) *Service {
	if logger == nil {
		logger = log.New(io.Discard)
	}

	s := &Service{
		registry: registry,
		logger:   logger.With("component", "game"),
	}

	registry.OnEvict(func(code string) {
		s.logger.Info("Room expired", "room", code)
		if n := s.notifier; n != nil {
			n.Closed(code)
		}
	})

	return s
}

// SetNotifier installs n. It must be called before the service handles requests.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// Registry returns the registry the service operates on.
func (s *Service) Registry() *Registry {
	return s.registry
}

// StartGame opens a new room and binds the session to it.
func (s *Service) StartGame(sess Session, players []Player, policy AdminPolicy) (Snapshot, error) {
	if policy == nil {
		policy = NoAdmin{}
	}
	if err := validateRoster(players); err != nil {
		return Snapshot{}, err
	}
	if _, err := ResolveAdmin(policy, players, 0); err != nil {
		return Snapshot{}, err
	}

	state := NewState(players, policy)
	code, err := s.registry.Create(state)
	if err != nil {
		return Snapshot{}, err
	}
	sess.SetRoomCode(code)

	// Nobody else holds the code yet, so the state can be read without the room lock.
	snap := snapshot(code, state)

	s.logger.Info("Room created", "room", code, "players", len(players), "mode", policy.Mode())
	s.publish(snap)

	return snap, nil
}

// JoinGame binds the session to an existing room.
func (s *Service) JoinGame(sess Session, code string) (Snapshot, error) {
	code = NormalizeCode(code)
	if code == "" {
		return Snapshot{}, ErrMissingRoomCode
	}

	room, ok := s.registry.Get(code)
	if !ok {
		return Snapshot{}, ErrRoomNotFound
	}
	sess.SetRoomCode(code)
	s.registry.Touch(code)

	s.logger.Debug("Room joined", "room", code)

	return s.snapshotOf(room), nil
}

// GetState returns the snapshot of the session's room. The second result is false
// when the session has no live room, in which case any stale binding is cleared.
func (s *Service) GetState(sess Session) (Snapshot, bool) {
	room, ok := s.activeRoom(sess)
	if !ok {
		return Snapshot{}, false
	}

	return s.snapshotOf(room), true
}

// SubmitRound validates and records one round of score deltas. manualAdmin is only
// consulted when the room uses ManualAdmin.
func (s *Service) SubmitRound(sess Session, scores map[string]json.RawMessage, manualAdmin *string) (Snapshot, error) {
	room, ok := s.activeRoom(sess)
	if !ok {
		return Snapshot{}, ErrGameNotStarted
	}

	var snap Snapshot
	err := room.Do(func(st *State) error {
		if !st.Started {
			return ErrGameNotStarted
		}

		deltas, err := parseScores(st.Players, scores)
		if err != nil {
			return err
		}

		round := len(st.Rounds)

		var admin string
		if st.Policy.Mode() == ModeManual {
			if manualAdmin != nil && *manualAdmin != "" {
				if !hasPlayer(st.Players, *manualAdmin) {
					return fmt.Errorf("%w: admin %q is not a player", ErrInvalidPlayers, *manualAdmin)
				}
				admin = *manualAdmin
			}
		} else {
			admin, err = ResolveAdmin(st.Policy, st.Players, round)
			if err != nil {
				return err
			}
		}

		if st.Policy.Mode() == ModeNone {
			if sum := sumScores(deltas); sum.Sign() != 0 {
				return fmt.Errorf("%w (currently %+d)", ErrScoreSumNotZero, sum)
			}
		}

		totals := st.Totals()
		for name, delta := range deltas {
			if !inRange(totals[name] + delta) {
				return fmt.Errorf("%w: total for %s would be out of range", ErrInvalidScoreType, name)
			}
		}

		st.Append(Round{Scores: deltas, Admin: optional(admin)})
		snap = snapshot(room.Code, st)
		s.publish(snap)

		s.logger.Debug("Round submitted", "room", room.Code, "round", round+1, "admin", admin)

		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.registry.Touch(room.Code)

	return snap, nil
}

// UndoRound removes the most recent round.
func (s *Service) UndoRound(sess Session) (Snapshot, error) {
	room, ok := s.activeRoom(sess)
	if !ok {
		return Snapshot{}, ErrGameNotStarted
	}

	var snap Snapshot
	err := room.Do(func(st *State) error {
		if !st.Undo() {
			return ErrNoRoundsToUndo
		}
		snap = snapshot(room.Code, st)
		s.publish(snap)
		return nil
	})
	if err != nil {
		return Snapshot{}, err
	}
	s.registry.Touch(room.Code)

	s.logger.Debug("Round undone", "room", room.Code, "rounds", len(snap.Rounds))

	return snap, nil
}

// ResetGame deletes the session's room, if any, and unbinds the session. It is
// safe to call repeatedly.
func (s *Service) ResetGame(sess Session) {
	code, ok := sess.RoomCode()
	sess.ClearRoomCode()
	if !ok {
		return
	}

	if s.registry.Remove(code) {
		s.logger.Info("Room reset", "room", code)
		if s.notifier != nil {
			s.notifier.Closed(code)
		}
	}
}

// Snapshot returns the current snapshot of the room with the given code without
// refreshing it.
func (s *Service) Snapshot(code string) (Snapshot, bool) {
	room, ok := s.registry.Get(code)
	if !ok {
		return Snapshot{}, false
	}
	return s.snapshotOf(room), true
}

// NormalizeCode trims and upper-cases a user-entered room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func (s *Service) activeRoom(sess Session) (*Room, bool) {
	code, ok := sess.RoomCode()
	if !ok || code == "" {
		return nil, false
	}

	room, ok := s.registry.Get(code)
	if !ok {
		sess.ClearRoomCode()
		return nil, false
	}
	s.registry.Touch(code)

	return room, true
}

func (s *Service) snapshotOf(room *Room) Snapshot {
	var snap Snapshot
	_ = room.Do(func(st *State) error {
		snap = snapshot(room.Code, st)
		return nil
	})
	return snap
}

func (s *Service) publish(snap Snapshot) {
	if s.notifier != nil {
		s.notifier.Publish(snap.GameCode, snap)
	}
}

// parseScores checks that scores names a non-empty subset of the roster, then
// that every value is a JSON integer.
func parseScores(players []Player, scores map[string]json.RawMessage) (map[string]int, error) {
	if len(scores) == 0 {
		return nil, fmt.Errorf("%w: no scores given", ErrInvalidPlayers)
	}
	for name := range scores {
		if !hasPlayer(players, name) {
			return nil, fmt.Errorf("%w: unknown player %q", ErrInvalidPlayers, name)
		}
	}

	deltas := make(map[string]int, len(scores))
	for name, raw := range scores {
		v, err := strconv.Atoi(string(bytes.TrimSpace(raw)))
		if err != nil {
			return nil, fmt.Errorf("%w for %s", ErrInvalidScoreType, name)
		}
		if !inRange(v) {
			return nil, fmt.Errorf("%w for %s: out of range", ErrInvalidScoreType, name)
		}
		deltas[name] = v
	}

	return deltas, nil
}

// sumScores is exact however many players a round names.
func sumScores(scores map[string]int) *big.Int {
	total := new(big.Int)
	for _, v := range scores {
		total.Add(total, big.NewInt(int64(v)))
	}
	return total
}
