package policy

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeScheduler runs scheduled funcs synchronously via Fire, instead of
// real timers, so debounce behavior is testable without sleeping.
type fakeScheduler struct {
	mu      sync.Mutex
	pending map[Key]func()
}

func newFakeScheduler() *fakeScheduler { return &fakeScheduler{pending: map[Key]func(){}} }

func (s *fakeScheduler) Schedule(key Key, _ time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[key] = fn
}

func (s *fakeScheduler) Cancel(key Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.pending, key)
}

// Fire invokes and clears whatever is currently pending for key, as if
// its delay had elapsed.
func (s *fakeScheduler) Fire(key Key) {
	s.mu.Lock()
	fn := s.pending[key]
	delete(s.pending, key)
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

func TestCooldownPolicy_BlocksUntilElapsed(t *testing.T) {
	p, err := New("cooldown", map[string]any{"seconds": 60.0}, nil)
	require.NoError(t, err)
	key := Key{PipelineID: "p1", NodeID: "n1"}

	require.True(t, p.Admit(key, nil, nil))
	p.Record(key, nil)
	require.False(t, p.Admit(key, nil, nil), "second admission within cooldown window must be blocked")
}

func TestRateLimitPolicy_AllowsUpToMaxThenBlocks(t *testing.T) {
	p, err := New("rate_limit", map[string]any{"max_count": 2.0, "window_seconds": 60.0}, nil)
	require.NoError(t, err)
	key := Key{PipelineID: "p1", NodeID: "n1"}

	for i := 0; i < 2; i++ {
		require.True(t, p.Admit(key, nil, nil))
		p.Record(key, nil)
	}
	require.False(t, p.Admit(key, nil, nil), "third admission within the window must be blocked")
}

func TestConditionalPolicy_GatesOnFilterResult(t *testing.T) {
	p, err := New("conditional", map[string]any{
		"filter_type": "boolean",
		"filter_params": map[string]any{
			"field": "data.cpu_percent", "operator": ">", "value": 80.0,
		},
	}, nil)
	require.NoError(t, err)

	key := Key{PipelineID: "p1", NodeID: "n1"}
	require.True(t, p.Admit(key, map[string]any{"data": map[string]any{"cpu_percent": 95.0}}, nil))
	require.False(t, p.Admit(key, map[string]any{"data": map[string]any{"cpu_percent": 10.0}}, nil))
}

func TestDebouncePolicy_CollapsesBurstToLatestPayload(t *testing.T) {
	sched := newFakeScheduler()
	p, err := New("debounce", map[string]any{"delay_seconds": 5.0}, sched)
	require.NoError(t, err)
	key := Key{PipelineID: "p1", NodeID: "n1"}

	var executed []int
	execute := func(payload map[string]any) { executed = append(executed, payload["n"].(int)) }

	require.False(t, p.Admit(key, map[string]any{"n": 1}, execute))
	require.False(t, p.Admit(key, map[string]any{"n": 2}, execute))
	require.False(t, p.Admit(key, map[string]any{"n": 3}, execute))

	sched.Fire(key)
	require.Equal(t, []int{3}, executed, "only the latest payload in the burst should execute")
}

func TestCompositePolicy_AndRequiresAllChildren(t *testing.T) {
	sched := newFakeScheduler()
	p, err := New("composite", map[string]any{
		"operator": "and",
		"children": []any{
			map[string]any{"type": "none"},
			map[string]any{"type": "cooldown", "params": map[string]any{"seconds": 60.0}},
		},
	}, sched)
	require.NoError(t, err)
	key := Key{PipelineID: "p1", NodeID: "n1"}

	require.True(t, p.Admit(key, nil, nil))
	p.Record(key, nil)
	require.False(t, p.Admit(key, nil, nil))
}

func TestNew_UnknownPolicyType(t *testing.T) {
	_, err := New("bogus", nil, nil)
	require.Error(t, err)
}
