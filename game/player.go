/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"fmt"
	"strings"
)

// Player is a roster entry. Players are fixed once a game has started.
type Player struct {
	Name    string `json:"name"`
	Initial int    `json:"initial"`
}

// validateRoster rejects rosters that could not key a score map (empty rosters,
// blank names, duplicates) and initial scores beyond MaxScore.
func validateRoster(players []Player) error {
	if len(players) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPlayers, ErrEmptyPlayerList)
	}

	seen := make(map[string]struct{}, len(players))
	for i, p := range players {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: player %d has no name", ErrInvalidPlayers, i+1)
		}
		if !inRange(p.Initial) {
			return fmt.Errorf("%w: initial score of %q is out of range", ErrInvalidScoreType, p.Name)
		}
		if _, ok := seen[p.Name]; ok {
			return fmt.Errorf("%w: duplicate name %q", ErrInvalidPlayers, p.Name)
		}
		seen[p.Name] = struct{}{}
	}

	return nil
}

func playerNames(players []Player) []string {
	names := make([]string, len(players))
	for i, p := range players {
		names[i] = p.Name
	}
	return names
}

func hasPlayer(players []Player, name string) bool {
	for _, p := range players {
		if p.Name == name {
			return true
		}
	}
	return false
}
