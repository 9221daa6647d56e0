package user

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mflix-go/webserver/internal/common"
)

func TestMergePreferences(t *testing.T) {
	existing := map[string]string{"b": "2", "a": "0"}
	updates := map[string]string{"a": "1"}

	merged := mergePreferences(existing, updates)

	require.Equal(t, map[string]string{"a": "1", "b": "2"}, merged)
	require.Equal(t, map[string]string{"b": "2", "a": "0"}, existing)
}

func TestMergePreferences_NilExisting(t *testing.T) {
	merged := mergePreferences(nil, map[string]string{"favourite_genre": "noir"})
	require.Equal(t, map[string]string{"favourite_genre": "noir"}, merged)
}

func TestStringifyPreferences(t *testing.T) {
	got, err := stringifyPreferences(map[string]any{
		"layout":    "grid",
		"page_size": 25,
		"autoplay":  true,
		"volume":    0.5,
	})
	require.NoError(t, err)
	require.Equal(t, map[string]string{
		"layout":    "grid",
		"page_size": "25",
		"autoplay":  "true",
		"volume":    "0.5",
	}, got)
}

func TestStringifyPreferences_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		prefs map[string]any
	}{
		{"nil map", nil},
		{"empty map", map[string]any{}},
		{"nil value", map[string]any{"a": nil}},
		{"empty key", map[string]any{"": "x"}},
		{"operator key", map[string]any{"$set": "x"}},
		{"dotted key", map[string]any{"a.b": "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := stringifyPreferences(tt.prefs)
			require.ErrorIs(t, err, common.ErrInvalidInput)
		})
	}
}
