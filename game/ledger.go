/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

// MaxScore bounds every delta, initial score and running total. Values stay
// exact in int64 arithmetic and in JavaScript clients.
const MaxScore = 1 << 53

func inRange(v int) bool {
	return int64(v) >= -MaxScore && int64(v) <= MaxScore
}

// Round holds one score delta per participating player and the admin of the round,
// if any. A Round is never modified after it has been appended.
type Round struct {
	Scores map[string]int `json:"scores"`
	Admin  *string        `json:"admin"`
}

// Totals seeds every player with their initial score and adds each round's deltas
// in order. Names that appear in rounds but not in the roster are kept.
func (s *State) Totals() map[string]int {
	totals := make(map[string]int, len(s.Players))
	for _, p := range s.Players {
		totals[p.Name] = p.Initial
	}

	for _, r := range s.Rounds {
		for name, delta := range r.Scores {
			totals[name] += delta
		}
	}

	return totals
}

// Append adds r as the newest round. It performs no validation.
func (s *State) Append(r Round) {
	s.Rounds = append(s.Rounds, r)
}

// Undo drops the newest round and reports whether there was one to drop.
func (s *State) Undo() bool {
	if len(s.Rounds) == 0 {
		return false
	}

	s.Rounds[len(s.Rounds)-1] = Round{}
	s.Rounds = s.Rounds[:len(s.Rounds)-1]

	return true
}
