package transform

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// jsonPathSegmentRE splits one path segment into a field name (optional)
// and zero or more trailing [n] array indices, e.g. "b[0]" -> "b", [0].
var jsonPathSegmentRE = regexp.MustCompile(`^([^\[\]]*)((?:\[\d+\])*)$`)
var indexRE = regexp.MustCompile(`\[(\d+)\]`)

type jsonPathTransformer struct {
	path      string
	outputKey string
}

func newJSONPathTransformer(params map[string]any) (Transformer, error) {
	path, _ := params["path"].(string)
	if !strings.HasPrefix(path, "$.") && path != "$" {
		return nil, fmt.Errorf(`json_path transformer: path must start with "$."`)
	}
	outputKey, _ := params["output_key"].(string)
	if outputKey == "" {
		outputKey = "extracted"
	}
	return &jsonPathTransformer{path: path, outputKey: outputKey}, nil
}

// Transform evaluates t.path — a restricted JSONPath subset supporting
// dotted field access and one or more trailing [n] array indices per
// segment (e.g. "$.changes[0].metric", "$.grid[1][2]") — against payload.
func (t *jsonPathTransformer) Transform(payload map[string]any) (map[string]any, error) {
	value, err := evalJSONPath(payload, t.path)
	if err != nil {
		return nil, fmt.Errorf("json_path transformer: %w", err)
	}
	out := cloneShallow(payload)
	out[t.outputKey] = value
	return out, nil
}

func evalJSONPath(payload map[string]any, path string) (any, error) {
	trimmed := strings.TrimPrefix(path, "$.")
	if trimmed == "" || trimmed == path {
		return payload, nil
	}

	var cur any = payload
	for _, raw := range strings.Split(trimmed, ".") {
		m := jsonPathSegmentRE.FindStringSubmatch(raw)
		if m == nil {
			return nil, fmt.Errorf("malformed path segment %q", raw)
		}
		field, indices := m[1], m[2]

		if field != "" {
			obj, ok := cur.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("cannot index field %q on non-object", field)
			}
			next, ok := obj[field]
			if !ok {
				return nil, fmt.Errorf("field %q not found", field)
			}
			cur = next
		}

		for _, idxMatch := range indexRE.FindAllStringSubmatch(indices, -1) {
			idx, _ := strconv.Atoi(idxMatch[1])
			arr, ok := cur.([]any)
			if !ok || idx >= len(arr) {
				return nil, fmt.Errorf("index %d out of range or not an array", idx)
			}
			cur = arr[idx]
		}
	}
	return cur, nil
}
