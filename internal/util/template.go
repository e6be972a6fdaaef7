package util

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/seobando/agentkit/core"
)

var placeholder = regexp.MustCompile(`\{[^{}]*\}`)

var identifier = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// InjectState replaces {key} placeholders with state values. A trailing ?
// makes a key optional and renders it empty when missing. Keys may carry
// the app:, user: or temp: prefix. Braces that do not enclose an identifier
// are left untouched.
func InjectState(tmpl string, state map[string]any) (string, error) {
	if !strings.Contains(tmpl, "{") {
		return tmpl, nil
	}

	var missing error
	out := placeholder.ReplaceAllStringFunc(tmpl, func(match string) string {
		if missing != nil {
			return match
		}
		key := strings.TrimSpace(match[1 : len(match)-1])
		optional := strings.HasSuffix(key, "?")
		key = strings.TrimSuffix(key, "?")
		if !isStateKey(key) {
			return match
		}
		v, ok := state[key]
		if !ok || v == nil {
			if optional {
				return ""
			}
			missing = fmt.Errorf("%w: %s", core.ErrMissingStateKey, key)
			return match
		}
		return formatValue(v)
	})
	if missing != nil {
		return "", missing
	}
	return out, nil
}

func isStateKey(key string) bool {
	for _, prefix := range []string{core.AppPrefix, core.UserPrefix, core.TempPrefix} {
		if strings.HasPrefix(key, prefix) {
			return identifier.MatchString(strings.TrimPrefix(key, prefix))
		}
	}
	return identifier.MatchString(key)
}

func formatValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case fmt.Stringer:
		return val.String()
	case map[string]any, []any:
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val)
		}
		return string(b)
	default:
		return fmt.Sprint(val)
	}
}
