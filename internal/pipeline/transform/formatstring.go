package transform

import (
	"fmt"

	"github.com/signaldock/signaldock/internal/template"
)

type formatStringTransformer struct {
	tmpl      string
	outputKey string
}

func newFormatStringTransformer(params map[string]any) (Transformer, error) {
	tmpl, _ := params["template"].(string)
	if tmpl == "" {
		return nil, fmt.Errorf("format_string transformer: template is required")
	}
	outputKey, _ := params["output_key"].(string)
	if outputKey == "" {
		outputKey = "formatted"
	}
	return &formatStringTransformer{tmpl: tmpl, outputKey: outputKey}, nil
}

// Transform renders t.tmpl against payload using the shared template
// package (so {_timestamp}/{_date}/{_time} are available here too) and
// stores the result under outputKey.
func (t *formatStringTransformer) Transform(payload map[string]any) (map[string]any, error) {
	out := cloneShallow(payload)
	out[t.outputKey] = template.Render(t.tmpl, payload)
	return out, nil
}
