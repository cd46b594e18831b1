package transform

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPassthrough(t *testing.T) {
	tr, err := New("passthrough", nil)
	require.NoError(t, err)
	payload := map[string]any{"a": 1}
	out, err := tr.Transform(payload)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestExtractField_Flatten(t *testing.T) {
	tr, err := New("extract_field", map[string]any{
		"fields": []any{"data.cpu_percent"}, "flatten": true, "output_key": "out",
	})
	require.NoError(t, err)
	out, err := tr.Transform(map[string]any{"data": map[string]any{"cpu_percent": 42.0}})
	require.NoError(t, err)
	require.Equal(t, map[string]any{"cpu_percent": 42.0}, out["out"])
}

func TestFormatString(t *testing.T) {
	tr, err := New("format_string", map[string]any{"template": "cpu={data.cpu_percent}"})
	require.NoError(t, err)
	out, err := tr.Transform(map[string]any{"data": map[string]any{"cpu_percent": 91.0}})
	require.NoError(t, err)
	require.Equal(t, "cpu=91", out["formatted"])
}

func TestMath_DivideByZeroReturnsZero(t *testing.T) {
	tr, err := New("math", map[string]any{"field": "x", "operation": "divide", "operand": 0.0})
	require.NoError(t, err)
	out, err := tr.Transform(map[string]any{"x": 10.0})
	require.NoError(t, err)
	require.Equal(t, 0.0, out["result"])
}

func TestMath_UnknownOperationRejectedAtConstruction(t *testing.T) {
	_, err := New("math", map[string]any{"field": "x", "operation": "bogus"})
	require.Error(t, err)
}

func TestMath_NonNumericFieldErrors(t *testing.T) {
	tr, err := New("math", map[string]any{"field": "x", "operation": "add", "operand": 1.0})
	require.NoError(t, err)
	_, err = tr.Transform(map[string]any{"x": "not-a-number"})
	require.Error(t, err, "fail-open is the executor's job, not the transformer's")
}

func TestJSONPath_ArrayIndex(t *testing.T) {
	tr, err := New("json_path", map[string]any{"path": "$.changes[0].metric"})
	require.NoError(t, err)
	out, err := tr.Transform(map[string]any{
		"changes": []any{map[string]any{"metric": "cpu"}},
	})
	require.NoError(t, err)
	require.Equal(t, "cpu", out["extracted"])
}

func TestJSONPath_RejectsMalformedPrefix(t *testing.T) {
	_, err := New("json_path", map[string]any{"path": "a.b"})
	require.Error(t, err)
}
