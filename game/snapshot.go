/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

// Snapshot is the client-facing view of a started room.
type Snapshot struct {
	Started     bool           `json:"started"`
	GameCode    string         `json:"game_code"`
	Players     []string       `json:"players"`
	AdminMode   Mode           `json:"admin_mode"`
	AdminConfig any            `json:"admin_config"`
	Rounds      []Round        `json:"rounds"`
	Totals      map[string]int `json:"totals"`
	NextAdmin   *string        `json:"next_admin"`
	RoundNumber int            `json:"round_number"`
}

// snapshot copies everything a client may see, so it stays valid after the room
// lock is released.
func snapshot(code string, s *State) Snapshot {
	return Snapshot{
		Started:     s.Started,
		GameCode:    code,
		Players:     playerNames(s.Players),
		AdminMode:   s.Policy.Mode(),
		AdminConfig: s.Policy.Config(),
		Rounds:      append([]Round{}, s.Rounds...),
		Totals:      s.Totals(),
		NextAdmin:   optional(s.NextAdmin()),
		RoundNumber: len(s.Rounds) + 1,
	}
}

func optional(name string) *string {
	if name == "" {
		return nil
	}
	return &name
}
