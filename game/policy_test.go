/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package game

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		name   string
		mode   string
		config string
		want   AdminPolicy
	}{
		{"blank mode", "", "", NoAdmin{}},
		{"none", "none", "{}", NoAdmin{}},
		{"fixed", "fixed", `{"fixed_index": 2}`, FixedAdmin{Index: 2}},
		{"fixed default", "fixed", "", FixedAdmin{Index: 0}},
		{"rotating", "rotating", `{"every": 3, "start": 1}`, RotatingAdmin{Every: 3, Start: 1}},
		{"rotating defaults", "rotating", "null", RotatingAdmin{Every: 1, Start: 0}},
		{"manual ignores config", "manual", `{"every": 9}`, ManualAdmin{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePolicy(tt.mode, json.RawMessage(tt.config))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("unknown mode", func(t *testing.T) {
		_, err := ParsePolicy("dealer", nil)
		assert.ErrorIs(t, err, ErrInvalidAdminMode)
	})

	t.Run("malformed config", func(t *testing.T) {
		_, err := ParsePolicy("fixed", json.RawMessage(`{"fixed_index": "two"}`))
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}

func TestPolicyConfig(t *testing.T) {
	tests := []struct {
		policy AdminPolicy
		want   string
	}{
		{NoAdmin{}, `{}`},
		{ManualAdmin{}, `{}`},
		{FixedAdmin{Index: 1}, `{"fixed_index":1}`},
		{RotatingAdmin{Every: 2, Start: 3}, `{"every":2,"start":3}`},
	}

	for _, tt := range tests {
		t.Run(string(tt.policy.Mode()), func(t *testing.T) {
			data, err := json.Marshal(tt.policy.Config())
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(data))
		})
	}
}
