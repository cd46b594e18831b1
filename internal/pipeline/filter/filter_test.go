package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNew_UnknownType(t *testing.T) {
	_, err := New("nonexistent", nil)
	require.Error(t, err)
}

func TestBooleanFilter_GreaterThan(t *testing.T) {
	f, err := New("boolean", map[string]any{
		"field": "cpu_percent", "operator": ">", "value": 80.0,
	})
	require.NoError(t, err)

	require.True(t, f.Evaluate(map[string]any{"data": map[string]any{"cpu_percent": 92.0}}))
	require.False(t, f.Evaluate(map[string]any{"data": map[string]any{"cpu_percent": 10.0}}))
}

func TestBooleanFilter_MissingFieldFailsClosed(t *testing.T) {
	f, err := New("boolean", map[string]any{
		"field": "nope", "operator": "==", "value": "x",
	})
	require.NoError(t, err)
	require.False(t, f.Evaluate(map[string]any{"data": map[string]any{}}))
}

func TestBooleanFilter_IsNull(t *testing.T) {
	f, err := New("boolean", map[string]any{"field": "missing", "operator": "is_null"})
	require.NoError(t, err)
	require.True(t, f.Evaluate(map[string]any{"data": map[string]any{}}))
}

func TestBooleanFilter_UnknownOperatorRejectedAtConstruction(t *testing.T) {
	_, err := New("boolean", map[string]any{"field": "x", "operator": "bogus"})
	require.Error(t, err)
}

func TestCompositeFilter_And(t *testing.T) {
	f, err := New("composite", map[string]any{
		"operator": "and",
		"filters": []any{
			map[string]any{"type": "boolean", "params": map[string]any{"field": "a", "operator": "is_true"}},
			map[string]any{"type": "boolean", "params": map[string]any{"field": "b", "operator": "is_true"}},
		},
	})
	require.NoError(t, err)

	require.True(t, f.Evaluate(map[string]any{"data": map[string]any{"a": true, "b": true}}))
	require.False(t, f.Evaluate(map[string]any{"data": map[string]any{"a": true, "b": false}}))
}

func TestCompositeFilter_NotAppliesOnlyToFirstChild(t *testing.T) {
	f, err := New("composite", map[string]any{
		"operator": "not",
		"filters": []any{
			map[string]any{"type": "boolean", "params": map[string]any{"field": "a", "operator": "is_true"}},
		},
	})
	require.NoError(t, err)
	require.False(t, f.Evaluate(map[string]any{"data": map[string]any{"a": true}}))
	require.True(t, f.Evaluate(map[string]any{"data": map[string]any{"a": false}}))
}

func TestTimeWindowFilter_OvernightWrap(t *testing.T) {
	f, err := New("time_window", map[string]any{"start_time": "22:00", "end_time": "06:00"})
	require.NoError(t, err)
	tw := f.(*timeWindowFilter)

	tw.now = func() time.Time { return time.Date(2026, 1, 1, 23, 30, 0, 0, time.UTC) }
	require.True(t, tw.Evaluate(nil))

	tw.now = func() time.Time { return time.Date(2026, 1, 1, 3, 0, 0, 0, time.UTC) }
	require.True(t, tw.Evaluate(nil))

	tw.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	require.False(t, tw.Evaluate(nil))
}

func TestTimeWindowFilter_DaysOfWeek(t *testing.T) {
	f, err := New("time_window", map[string]any{
		"start_time": "00:00", "end_time": "23:59",
		"days_of_week": []any{"Monday", "Tuesday"},
	})
	require.NoError(t, err)
	tw := f.(*timeWindowFilter)

	tw.now = func() time.Time { return time.Date(2026, 8, 3, 12, 0, 0, 0, time.UTC) } // Monday
	require.True(t, tw.Evaluate(nil))

	tw.now = func() time.Time { return time.Date(2026, 8, 5, 12, 0, 0, 0, time.UTC) } // Wednesday
	require.False(t, tw.Evaluate(nil))
}
