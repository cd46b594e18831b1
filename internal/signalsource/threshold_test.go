package signalsource

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestThresholdTracker_EdgeTriggeredNoRepeat(t *testing.T) {
	tr := NewThresholdTracker()
	tr.SetThreshold("cpu", 10, 85)

	state, changed := tr.Check("cpu", 90)
	require.True(t, changed)
	require.Equal(t, "high", state)

	// Staying high on the next tick must not re-report.
	_, changed = tr.Check("cpu", 92)
	require.False(t, changed)

	// Dropping back to normal reports once.
	state, changed = tr.Check("cpu", 50)
	require.True(t, changed)
	require.Equal(t, "normal", state)

	_, changed = tr.Check("cpu", 55)
	require.False(t, changed)

	state, changed = tr.Check("cpu", 5)
	require.True(t, changed)
	require.Equal(t, "low", state)
}

func TestThresholdTracker_UnregisteredMetric(t *testing.T) {
	tr := NewThresholdTracker()
	state, changed := tr.Check("unknown", 50)
	require.False(t, changed)
	require.Equal(t, "", state)
}
