// Package template implements the single {dot.path} placeholder
// substitution utility shared by the format_string transformer and any
// action that interpolates event data into a message (notification,
// pulsemesh). Keeping one implementation means both callers get the
// same _timestamp/_date/_time auto-injected values and the same
// missing-key-becomes-empty-string fallback.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var placeholderRE = regexp.MustCompile(`\{([^}]+)\}`)

// Render substitutes every {dot.path} placeholder in tmpl by resolving
// it against mapping via Lookup. A placeholder whose path does not
// resolve is replaced with the empty string, never an error — template
// rendering is always best-effort (consistent with the fail-open
// transformer contract this utility backs).
//
// Three placeholders are always available regardless of mapping's
// contents: {_timestamp} (RFC3339 UTC), {_date} (YYYY-MM-DD), and
// {_time} (HH:MM:SS), evaluated at render time.
func Render(tmpl string, mapping map[string]any) string {
	now := time.Now().UTC()
	return placeholderRE.ReplaceAllStringFunc(tmpl, func(match string) string {
		path := strings.TrimSuffix(strings.TrimPrefix(match, "{"), "}")
		switch path {
		case "_timestamp":
			return now.Format(time.RFC3339)
		case "_date":
			return now.Format("2006-01-02")
		case "_time":
			return now.Format("15:04:05")
		}
		val, ok := Lookup(mapping, path)
		if !ok {
			return ""
		}
		return fmt.Sprintf("%v", val)
	})
}

// Lookup resolves a dot-separated path against a nested
// map[string]any/[]any structure. A numeric path segment indexes into a
// slice. Returns (nil, false) if any segment along the path is missing
// or of the wrong shape.
func Lookup(data map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var cur any = data
	for _, seg := range segments {
		switch v := cur.(type) {
		case map[string]any:
			next, ok := v[seg]
			if !ok {
				return nil, false
			}
			cur = next
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 || idx >= len(v) {
				return nil, false
			}
			cur = v[idx]
		default:
			return nil, false
		}
	}
	return cur, true
}
