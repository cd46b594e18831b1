package pipeline

// deepCopyJSON recursively clones a JSON-shaped value (map[string]any,
// []any, or a scalar) so that independent branches of a traversal can
// mutate their own payload copy without affecting sibling branches.
func deepCopyJSON(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = deepCopyJSON(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = deepCopyJSON(vv)
		}
		return out
	default:
		return val
	}
}

func deepCopyPayload(payload map[string]any) map[string]any {
	copied := deepCopyJSON(payload)
	m, _ := copied.(map[string]any)
	return m
}
