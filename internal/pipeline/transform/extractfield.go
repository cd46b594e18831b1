package transform

import (
	"fmt"
	"strings"

	"github.com/signaldock/signaldock/internal/template"
)

type extractFieldTransformer struct {
	fields    []string
	outputKey string
	flatten   bool
}

func newExtractFieldTransformer(params map[string]any) (Transformer, error) {
	raw, _ := params["fields"].([]any)
	fields := make([]string, 0, len(raw))
	for _, f := range raw {
		s, ok := f.(string)
		if !ok {
			return nil, fmt.Errorf("extract_field transformer: fields must be strings")
		}
		fields = append(fields, s)
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("extract_field transformer: fields is required")
	}
	outputKey, _ := params["output_key"].(string)
	if outputKey == "" {
		outputKey = "extracted"
	}
	flatten, _ := params["flatten"].(bool)
	return &extractFieldTransformer{fields: fields, outputKey: outputKey, flatten: flatten}, nil
}

// Transform extracts each configured dot-path from payload into a new
// map keyed either by the full path, or — when flatten is set — by the
// path's last segment.
func (t *extractFieldTransformer) Transform(payload map[string]any) (map[string]any, error) {
	extracted := make(map[string]any, len(t.fields))
	for _, field := range t.fields {
		value, ok := template.Lookup(payload, field)
		if !ok {
			continue
		}
		key := field
		if t.flatten {
			parts := strings.Split(field, ".")
			key = parts[len(parts)-1]
		}
		extracted[key] = value
	}

	out := cloneShallow(payload)
	out[t.outputKey] = extracted
	return out, nil
}

func cloneShallow(m map[string]any) map[string]any {
	out := make(map[string]any, len(m)+1)
	for k, v := range m {
		out[k] = v
	}
	return out
}
