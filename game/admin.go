/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import "fmt"

// ResolveAdmin returns the name of the admin for the round at roundIndex (0-based),
// or "" when the policy has no computed admin. ManualAdmin always yields "": the
// admin of a manual round comes from the submission.
func ResolveAdmin(policy AdminPolicy, players []Player, roundIndex int) (string, error) {
	switch p := policy.(type) {
	case FixedAdmin:
		if p.Index < 0 || p.Index >= len(players) {
			return "", fmt.Errorf("%w: index %d with %d players", ErrIndexOutOfRange, p.Index, len(players))
		}
		return players[p.Index].Name, nil
	case RotatingAdmin:
		if p.Every <= 0 {
			return "", fmt.Errorf("%w (got %d)", ErrDivisionByZero, p.Every)
		}
		if len(players) == 0 {
			return "", ErrEmptyPlayerList
		}
		return players[rotationIndex(p, roundIndex, len(players))].Name, nil
	default:
		return "", nil
	}
}

// rotationIndex is (start + round/every) mod n, kept non-negative for negative starts.
func rotationIndex(p RotatingAdmin, roundIndex, n int) int {
	idx := (p.Start + roundIndex/p.Every) % n
	if idx < 0 {
		idx += n
	}
	return idx
}
