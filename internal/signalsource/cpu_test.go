package signalsource

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/signaldock/signaldock/internal/config"
)

// TestCPUSource_ThresholdLadder walks cpu_percent through normal -> high
// -> normal -> low, asserting an event fires exactly on each state
// transition and carries threshold_crossed, and that a sample that
// merely jitters within a band emits nothing.
func TestCPUSource_ThresholdLadder(t *testing.T) {
	cfg := config.CPUSourceConfig{
		PollIntervalSec: 5,
		CPULowPercent:   10,
		CPUHighPercent:  85,
		RAMHighPercent:  200, // keep ram out of the way for this test
	}
	s := NewCPUSource(cfg, nil)

	samples := []float64{20, 90, 92, 50, 54, 5}
	var fired []bool
	for _, pct := range samples {
		s.sample = func(context.Context) (cpuSample, error) {
			return cpuSample{cpuPercent: pct, ramPercent: 10}, nil
		}
		events, err := s.poll(context.Background())
		require.NoError(t, err)
		fired = append(fired, len(events) == 1)
	}

	// 20: first sample, always emits (baseline).
	// 90: crosses into high -> emits threshold_crossed.
	// 92: stays high -> no repeat.
	// 50: crosses back to normal -> emits.
	// 54: stays normal, delta 4 < 5 -> no emit.
	// 5: crosses into low -> emits.
	require.Equal(t, []bool{true, true, false, true, false, true}, fired)
}

func TestCPUSource_SignificantDeltaWithoutThresholdCross(t *testing.T) {
	cfg := config.CPUSourceConfig{CPULowPercent: 0, CPUHighPercent: 100, RAMHighPercent: 100}
	s := NewCPUSource(cfg, nil)

	s.sample = func(context.Context) (cpuSample, error) { return cpuSample{cpuPercent: 20, ramPercent: 10}, nil }
	_, err := s.poll(context.Background())
	require.NoError(t, err)

	s.sample = func(context.Context) (cpuSample, error) { return cpuSample{cpuPercent: 27, ramPercent: 10}, nil }
	events, err := s.poll(context.Background())
	require.NoError(t, err)
	require.Len(t, events, 1, "7-point delta should be significant even without crossing a threshold")
	require.Equal(t, "value_changed", string(events[0].EventType))
}
