package signalsource

import "sync"

// thresholdState is one metric's edge-triggered low/normal/high state.
type thresholdState struct {
	low, high float64
	current   string // "low", "normal", "high"
}

// ThresholdTracker implements the edge-triggered, hysteresis-free
// threshold state machine every threshold-capable source embeds: a
// metric only reports a transition the tick its state actually changes,
// never on every tick it happens to sit above/below a bound.
type ThresholdTracker struct {
	mu     sync.Mutex
	states map[string]*thresholdState
}

// NewThresholdTracker returns a tracker with no metrics registered yet.
func NewThresholdTracker() *ThresholdTracker {
	return &ThresholdTracker{states: make(map[string]*thresholdState)}
}

// SetThreshold registers (or replaces) the low/high bounds for a named
// metric. The metric's state starts at "normal".
func (t *ThresholdTracker) SetThreshold(name string, low, high float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.states[name] = &thresholdState{low: low, high: high, current: "normal"}
}

// Check evaluates value against name's bounds and returns the new state
// ("low", "normal", "high") and true only when that state differs from
// the metric's previously recorded state. If name was never registered
// via SetThreshold, Check returns ("", false).
func (t *ThresholdTracker) Check(name string, value float64) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	st, ok := t.states[name]
	if !ok {
		return "", false
	}

	newState := "normal"
	switch {
	case value <= st.low:
		newState = "low"
	case value >= st.high:
		newState = "high"
	}

	if newState == st.current {
		return "", false
	}
	st.current = newState
	return newState, true
}
