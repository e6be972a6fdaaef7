package util

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seobando/agentkit/core"
)

func TestInjectState(t *testing.T) {
	state := map[string]any{
		"name":       "Alice",
		"user:level": 3,
		"app:langs":  []any{"go", "rust"},
	}

	tests := []struct {
		name string
		tmpl string
		want string
	}{
		{"no placeholders", "plain text", "plain text"},
		{"simple", "Hello {name}!", "Hello Alice!"},
		{"prefixed", "level {user:level}", "level 3"},
		{"json value", "langs {app:langs}", `langs ["go","rust"]`},
		{"optional missing", "x{nickname?}y", "xy"},
		{"optional present", "{name?}", "Alice"},
		{"non identifier braces", `reply as {"ok": true}`, `reply as {"ok": true}`},
		{"unknown prefix", "{other:key}", "{other:key}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InjectState(tt.tmpl, state)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestInjectState_MissingRequiredKey(t *testing.T) {
	_, err := InjectState("Hello {missing}", map[string]any{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrMissingStateKey))
	assert.Contains(t, err.Error(), "missing")
}

type stateRecord struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestDecodeAndEncodeState(t *testing.T) {
	encoded, err := EncodeState([]stateRecord{{Name: "a", Count: 2}})
	require.NoError(t, err)
	assert.Equal(t, []any{map[string]any{"name": "a", "count": float64(2)}}, encoded)

	decoded, err := DecodeState[[]stateRecord](encoded)
	require.NoError(t, err)
	assert.Equal(t, []stateRecord{{Name: "a", Count: 2}}, decoded)

	empty, err := DecodeState[[]stateRecord](nil)
	require.NoError(t, err)
	assert.Nil(t, empty)

	n, err := DecodeState[int](float64(7))
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = DecodeState[int]("seven")
	assert.Error(t, err)
}
