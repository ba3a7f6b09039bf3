package params

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/vvka-141/dbobj/pkg/dbobj"
)

// ParseKeyValuePairs converts a slice of "key=value" strings into a map.
//
// Example:
//
//	params, err := ParseKeyValuePairs([]string{"env=prod", "region=eu"})
//	// Returns: map[string]string{"env": "prod", "region": "eu"}
func ParseKeyValuePairs(pairs []string) (map[string]string, error) {
	result := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("parameter %q is not in key=value format (example: --param env=production)", pair)
		}

		if key == "" {
			return nil, fmt.Errorf("parameter has empty key: %q", pair)
		}

		result[key] = value
	}

	return result, nil
}

// Merge layers the maps left to right; later maps win.
func Merge(layers ...map[string]string) map[string]string {
	result := make(map[string]string)
	for _, layer := range layers {
		for k, v := range layer {
			result[k] = v
		}
	}
	return result
}

// Expand replaces ${name} and $name placeholders in s. Names missing from
// params are looked up in the process environment. Every unresolved name is
// reported in one error.
func Expand(s string, params map[string]string) (string, error) {
	var missing []string
	out := os.Expand(s, func(name string) string {
		if v, ok := params[name]; ok {
			return v
		}
		if v, ok := os.LookupEnv(name); ok {
			return v
		}
		missing = append(missing, name)
		return ""
	})
	if len(missing) > 0 {
		sort.Strings(missing)
		return "", fmt.Errorf("undefined parameter(s) %s in %q: %w", strings.Join(missing, ", "), s, dbobj.ErrInvalidConfig)
	}
	return out, nil
}
