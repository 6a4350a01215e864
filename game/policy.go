/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Mode names an admin policy on the wire.
type Mode string

const (
	ModeNone     Mode = "none"
	ModeFixed    Mode = "fixed"
	ModeRotating Mode = "rotating"
	ModeManual   Mode = "manual"
)

// AdminPolicy decides who deals each round. The set of implementations is closed:
// NoAdmin, FixedAdmin, RotatingAdmin and ManualAdmin.
type AdminPolicy interface {
	Mode() Mode

	// Config returns the admin_config object reported in snapshots.
	Config() any

	isAdminPolicy()
}

// NoAdmin games have no dealer, and every round must be zero-sum.
type NoAdmin struct{}

// FixedAdmin makes the player at Index the admin of every round.
type FixedAdmin struct {
	Index int
}

// RotatingAdmin advances the admin by one seat every Every rounds, starting at Start.
type RotatingAdmin struct {
	Every int
	Start int
}

// ManualAdmin takes the admin of each round from the submission itself.
type ManualAdmin struct{}

type fixedConfig struct {
	FixedIndex int `json:"fixed_index"`
}

type rotatingConfig struct {
	Every int `json:"every"`
	Start int `json:"start"`
}

func (NoAdmin) Mode() Mode       { return ModeNone }
func (FixedAdmin) Mode() Mode    { return ModeFixed }
func (RotatingAdmin) Mode() Mode { return ModeRotating }
func (ManualAdmin) Mode() Mode   { return ModeManual }

func (NoAdmin) Config() any         { return struct{}{} }
func (p FixedAdmin) Config() any    { return fixedConfig{FixedIndex: p.Index} }
func (p RotatingAdmin) Config() any { return rotatingConfig{Every: p.Every, Start: p.Start} }
func (ManualAdmin) Config() any     { return struct{}{} }

func (NoAdmin) isAdminPolicy()       {}
func (FixedAdmin) isAdminPolicy()    {}
func (RotatingAdmin) isAdminPolicy() {}
func (ManualAdmin) isAdminPolicy()   {}

// ParsePolicy builds a policy from the admin_mode string and the free-form
// admin_config object sent by clients. A blank mode means ModeNone, and missing
// config keys take their defaults (fixed_index 0, every 1, start 0).
func ParsePolicy(mode string, config json.RawMessage) (AdminPolicy, error) {
	var raw struct {
		FixedIndex *int `json:"fixed_index"`
		Every      *int `json:"every"`
		Start      *int `json:"start"`
	}

	config = bytes.TrimSpace(config)
	if len(config) > 0 && !bytes.Equal(config, []byte("null")) {
		if err := json.Unmarshal(config, &raw); err != nil {
			return nil, fmt.Errorf("%w: admin_config: %v", ErrInvalidRequest, err)
		}
	}

	switch Mode(mode) {
	case "", ModeNone:
		return NoAdmin{}, nil
	case ModeFixed:
		return FixedAdmin{Index: valueOr(raw.FixedIndex, 0)}, nil
	case ModeRotating:
		return RotatingAdmin{Every: valueOr(raw.Every, 1), Start: valueOr(raw.Start, 0)}, nil
	case ModeManual:
		return ManualAdmin{}, nil
	default:
		return nil, fmt.Errorf("%w %q", ErrInvalidAdminMode, mode)
	}
}

func valueOr(v *int, def int) int {
	if v == nil {
		return def
	}
	return *v
}
