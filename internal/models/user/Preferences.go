package user

import (
	"fmt"
	"maps"
	"strings"

	"github.com/mflix-go/webserver/internal/common"
)

// ValidPreferenceKey reports whether key can be stored as a field name of the preferences document.
func ValidPreferenceKey(key string) bool {
	return key != "" && !strings.HasPrefix(key, "$") && !strings.Contains(key, ".")
}

// stringifyPreferences checks prefs and converts every value to its string form.
func stringifyPreferences(prefs map[string]any) (map[string]string, error) {
	if len(prefs) == 0 {
		return nil, fmt.Errorf("%w: preferences must not be empty", common.ErrInvalidInput)
	}

	out := make(map[string]string, len(prefs))
	for key, value := range prefs {
		if !ValidPreferenceKey(key) {
			return nil, fmt.Errorf("%w: invalid preference key %q", common.ErrInvalidInput, key)
		}
		if value == nil {
			return nil, fmt.Errorf("%w: preference %q has no value", common.ErrInvalidInput, key)
		}
		out[key] = fmt.Sprint(value)
	}
	return out, nil
}

// mergePreferences returns existing overlaid with updates. Neither input is modified.
func mergePreferences(existing, updates map[string]string) map[string]string {
	merged := make(map[string]string, len(existing)+len(updates))
	maps.Copy(merged, existing)
	maps.Copy(merged, updates)
	return merged
}
