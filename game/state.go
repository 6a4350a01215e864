/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

// State is the score sheet of one room. Rounds are indexed by position, in
// submission order, and totals are always derived from them rather than stored.
type State struct {
	Players []Player
	Policy  AdminPolicy
	Rounds  []Round
	Started bool
}

// NewState returns a started game with no rounds.
func NewState(players []Player, policy AdminPolicy) *State {
	if policy == nil {
		policy = NoAdmin{}
	}

	return &State{
		Players: append([]Player(nil), players...),
		Policy:  policy,
		Rounds:  []Round{},
		Started: true,
	}
}

// NextAdmin resolves the admin of the round that would be submitted next.
// It returns "" for manual games and when the policy cannot be resolved.
func (s *State) NextAdmin() string {
	name, err := ResolveAdmin(s.Policy, s.Players, len(s.Rounds))
	if err != nil {
		return ""
	}
	return name
}
