package pipeline

import (
	"context"
	"testing"
	"time"

	"github.com/signaldock/signaldock/internal/action"
	"github.com/signaldock/signaldock/internal/eventbus"
	"github.com/signaldock/signaldock/internal/model"
	"github.com/stretchr/testify/require"
)

func cpuEvent(percent float64) model.SignalEvent {
	return model.NewSignalEvent("cpu", "cpu0", model.EventValueChanged,
		map[string]any{"cpu_percent": percent}, nil)
}

func TestExecutor_FilterPrunesBranch(t *testing.T) {
	ex := New(nil, action.AllowAll{})
	var notified []string
	ex.OnAction(func(n ActionNotification) { notified = append(notified, n.NodeID) })

	err := ex.Load("p1", "test", []NodeSpec{
		{ID: "src", Kind: NodeSource, Type: "cpu"},
		{ID: "f1", Kind: NodeFilter, Type: "boolean", Params: map[string]any{
			"field": "data.cpu_percent", "operator": ">", "value": 90.0,
		}},
		{ID: "a1", Kind: NodeAction, Type: "notification", Params: map[string]any{"title": "hot"}},
	}, []EdgeSpec{{From: "src", To: "f1"}, {From: "f1", To: "a1"}})
	require.NoError(t, err)

	ex.ProcessEvent(context.Background(), cpuEvent(10))
	require.Empty(t, notified, "filter should prune the branch below threshold")

	ex.ProcessEvent(context.Background(), cpuEvent(95))
	require.Equal(t, []string{"a1"}, notified)
}

func TestExecutor_BFSVisitedSetPreventsInfiniteLoop(t *testing.T) {
	ex := New(nil, action.AllowAll{})
	done := make(chan struct{})
	ex.OnAction(func(ActionNotification) {})
	go func() {
		err := ex.Load("cyclic", "test", []NodeSpec{
			{ID: "src", Kind: NodeSource, Type: "cpu"},
			{ID: "f1", Kind: NodeFilter, Type: "boolean", Params: map[string]any{
				"field": "data.cpu_percent", "operator": ">=", "value": 0.0,
			}},
		}, []EdgeSpec{{From: "src", To: "f1"}, {From: "f1", To: "src"}})
		require.NoError(t, err)
		ex.ProcessEvent(context.Background(), cpuEvent(50))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("traversal did not terminate on a cyclic graph")
	}
}

func TestExecutor_BranchIsolation(t *testing.T) {
	ex := New(nil, action.AllowAll{})
	var seen []map[string]any
	ex.OnEvent(func(n EventNotification) {
		if n.NodeID == "t1" || n.NodeID == "t2" {
			seen = append(seen, n.Payload)
		}
	})

	err := ex.Load("branch", "test", []NodeSpec{
		{ID: "src", Kind: NodeSource, Type: "cpu"},
		{ID: "t1", Kind: NodeTransformer, Type: "math", Params: map[string]any{
			"field": "data.cpu_percent", "operation": "add", "operand": 1.0, "output_key": "result",
		}},
		{ID: "t2", Kind: NodeTransformer, Type: "math", Params: map[string]any{
			"field": "data.cpu_percent", "operation": "add", "operand": 2.0, "output_key": "result",
		}},
	}, []EdgeSpec{{From: "src", To: "t1"}, {From: "src", To: "t2"}})
	require.NoError(t, err)

	ex.ProcessEvent(context.Background(), cpuEvent(10))
	require.Len(t, seen, 2)
	results := map[float64]bool{}
	for _, p := range seen {
		if v, ok := p["result"].(float64); ok {
			results[v] = true
		}
	}
	require.True(t, results[11] && results[12], "each branch must see its own transformer result, not the sibling's")
}

func TestExecutor_ActionResultDeliveredOnlyViaOnActionCallback(t *testing.T) {
	bus := eventbus.New(nil)
	sub := bus.Subscribe(4)
	defer bus.Unsubscribe(sub)

	ex := New(nil, action.AllowAll{})
	var results []ActionNotification
	ex.OnAction(func(n ActionNotification) { results = append(results, n) })

	err := ex.Load("p1", "test", []NodeSpec{
		{ID: "src", Kind: NodeSource, Type: "cpu"},
		{ID: "a1", Kind: NodeAction, Type: "notification", Params: map[string]any{"title": "t"}},
	}, []EdgeSpec{{From: "src", To: "a1"}})
	require.NoError(t, err)

	ex.ProcessEvent(context.Background(), cpuEvent(10))

	require.Eventually(t, func() bool { return len(results) == 1 }, time.Second, 10*time.Millisecond)
	require.Equal(t, "p1", results[0].PipelineID)
	require.Equal(t, "a1", results[0].NodeID)

	select {
	case evt := <-sub:
		t.Fatalf("expected no action_result event on the bus, got %q", evt.SourceType)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExecutor_DebouncePolicyCollapsesBurst(t *testing.T) {
	ex := New(nil, action.AllowAll{})
	var executed []string
	ex.OnAction(func(n ActionNotification) { executed = append(executed, n.Result.Message) })

	err := ex.Load("p1", "test", []NodeSpec{
		{ID: "src", Kind: NodeSource, Type: "cpu"},
		{ID: "a1", Kind: NodeAction, Type: "notification", Params: map[string]any{"title": "{data.cpu_percent}"},
			Policy: &PolicySpec{Type: "debounce", Params: map[string]any{"delay_seconds": 0.02}}},
	}, []EdgeSpec{{From: "src", To: "a1"}})
	require.NoError(t, err)

	ex.ProcessEvent(context.Background(), cpuEvent(10))
	ex.ProcessEvent(context.Background(), cpuEvent(20))
	ex.ProcessEvent(context.Background(), cpuEvent(30))
	require.Empty(t, executed, "debounce must not admit synchronously")

	time.Sleep(100 * time.Millisecond)
	require.Len(t, executed, 1, "only the last burst payload should execute")
}

func TestExecutor_UnloadCancelsDebounceTimer(t *testing.T) {
	ex := New(nil, action.AllowAll{})
	var executed int
	ex.OnAction(func(ActionNotification) { executed++ })

	err := ex.Load("p1", "test", []NodeSpec{
		{ID: "src", Kind: NodeSource, Type: "cpu"},
		{ID: "a1", Kind: NodeAction, Type: "notification", Params: map[string]any{"title": "t"},
			Policy: &PolicySpec{Type: "debounce", Params: map[string]any{"delay_seconds": 0.05}}},
	}, []EdgeSpec{{From: "src", To: "a1"}})
	require.NoError(t, err)

	ex.ProcessEvent(context.Background(), cpuEvent(10))
	ex.Unload("p1")
	time.Sleep(100 * time.Millisecond)
	require.Equal(t, 0, executed, "unload must cancel pending debounce timers")
}

func TestExecutor_UnknownNodeKindRejectsWholePipeline(t *testing.T) {
	ex := New(nil, action.AllowAll{})
	err := ex.Load("bad", "test", []NodeSpec{
		{ID: "src", Kind: "bogus", Type: "cpu"},
	}, nil)
	require.Error(t, err)
	require.Empty(t, ex.Loaded())
}
