package transform

import (
	"fmt"
	"math"

	"github.com/signaldock/signaldock/internal/template"
)

type mathOpFunc func(a, b float64) float64

var mathOperations = map[string]mathOpFunc{
	"add":      func(a, b float64) float64 { return a + b },
	"subtract": func(a, b float64) float64 { return a - b },
	"multiply": func(a, b float64) float64 { return a * b },
	"mul":      func(a, b float64) float64 { return a * b },
	"divide": func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return a / b
	},
	"modulo": func(a, b float64) float64 {
		if b == 0 {
			return 0
		}
		return math.Mod(a, b)
	},
	"power": math.Pow,
	"min":   math.Min,
	"max":   math.Max,
	"abs":   func(a, _ float64) float64 { return math.Abs(a) },
	"round": func(a, _ float64) float64 { return math.Round(a) },
}

type mathTransformer struct {
	field     string
	operation string
	operand   float64
	hasOperand bool
	outputKey string
	op        mathOpFunc
}

func newMathTransformer(params map[string]any) (Transformer, error) {
	field, _ := params["field"].(string)
	if field == "" {
		return nil, fmt.Errorf("math transformer: field is required")
	}
	operation, _ := params["operation"].(string)
	op, ok := mathOperations[operation]
	if !ok {
		return nil, fmt.Errorf("math transformer: unknown operation %q", operation)
	}
	outputKey, _ := params["output_key"].(string)
	if outputKey == "" {
		outputKey = "result"
	}
	operand, hasOperand := params["operand"].(float64)
	return &mathTransformer{
		field: field, operation: operation, operand: operand, hasOperand: hasOperand,
		outputKey: outputKey, op: op,
	}, nil
}

// Transform resolves t.field to a number and applies the configured
// operation against t.operand (ignored for unary operations: abs,
// round). A missing or non-numeric field is a Transform error — the
// caller (executor) falls back to the unchanged payload (fail-open).
func (t *mathTransformer) Transform(payload map[string]any) (map[string]any, error) {
	raw, ok := template.Lookup(payload, t.field)
	if !ok {
		return nil, fmt.Errorf("math transformer: field %q not found", t.field)
	}
	value, ok := toFloat(raw)
	if !ok {
		return nil, fmt.Errorf("math transformer: field %q is not numeric", t.field)
	}

	result := t.op(value, t.operand)
	out := cloneShallow(payload)
	out[t.outputKey] = result
	return out, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
