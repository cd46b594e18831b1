package template

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRender_SubstitutesNestedPath(t *testing.T) {
	got := Render("cpu is {data.cpu_percent}%", map[string]any{
		"data": map[string]any{"cpu_percent": 92.5},
	})
	require.Equal(t, "cpu is 92.5%", got)
}

func TestRender_MissingPathBecomesEmpty(t *testing.T) {
	got := Render("value: [{data.missing}]", map[string]any{"data": map[string]any{}})
	require.Equal(t, "value: []", got)
}

func TestRender_ListIndexing(t *testing.T) {
	got := Render("first change: {changes.0.metric}", map[string]any{
		"changes": []any{map[string]any{"metric": "cpu"}},
	})
	require.Equal(t, "first change: cpu", got)
}

func TestLookup_WrongShapeFails(t *testing.T) {
	_, ok := Lookup(map[string]any{"data": "not-a-map"}, "data.field")
	require.False(t, ok)
}
