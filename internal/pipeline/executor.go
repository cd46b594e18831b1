// Package pipeline implements the directed-graph pipeline executor:
// loading pipelines into a closed-registry compiled form, and walking
// them breadth-first for every matching incoming event.
package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"github.com/signaldock/signaldock/internal/action"
	"github.com/signaldock/signaldock/internal/model"
	"github.com/signaldock/signaldock/internal/pipeline/policy"
)

// EventNotification describes one node's payload at the moment it was
// visited, delivered to every OnEvent callback — the hub subscribes one
// to fan these out over its "events"-adjacent "pipelines" channel.
type EventNotification struct {
	PipelineID string
	NodeID     string
	Payload    map[string]any
}

// ActionNotification describes one action node's outcome, delivered to
// every OnAction callback.
type ActionNotification struct {
	PipelineID string
	NodeID     string
	Result     model.ActionResult
}

// Executor holds every loaded pipeline and drives BFS traversal for
// each incoming event.
type Executor struct {
	logger *slog.Logger
	perm   action.PermissionChecker
	sched  *timerScheduler

	mu        sync.RWMutex
	pipelines map[string]*graph

	notifyMu sync.Mutex
	onEvent  []func(EventNotification)
	onAction []func(ActionNotification)
}

// New creates an Executor. Incoming events are delivered via
// ProcessEvent; action results and per-node payload snapshots are
// delivered to callbacks registered with OnAction/OnEvent, not onto an
// event bus — callers that want them on a bus (e.g. to fan them out
// over a WebSocket hub) subscribe to those callbacks themselves.
func New(logger *slog.Logger, perm action.PermissionChecker) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	if perm == nil {
		perm = action.AllowAll{}
	}
	return &Executor{
		logger:    logger,
		perm:      perm,
		sched:     newTimerScheduler(),
		pipelines: make(map[string]*graph),
	}
}

// OnEvent registers a callback invoked for every node visited during any
// traversal. Like OnAction, it is guarded by notifyMu, so it may be
// called while ProcessEvent is running.
func (e *Executor) OnEvent(fn func(EventNotification)) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	e.onEvent = append(e.onEvent, fn)
}

// OnAction registers a callback invoked for every action node's result.
func (e *Executor) OnAction(fn func(ActionNotification)) {
	e.notifyMu.Lock()
	defer e.notifyMu.Unlock()
	e.onAction = append(e.onAction, fn)
}

// Load compiles and installs a pipeline, replacing any prior pipeline
// with the same id. Construction-time errors (unknown node/filter/
// transformer/action/policy variant, dangling edge) reject the whole
// pipeline — the executor's existing state is left unchanged.
func (e *Executor) Load(id, name string, nodes []NodeSpec, edges []EdgeSpec) error {
	g, err := compile(id, name, nodes, edges, e.sched)
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, exists := e.pipelines[id]; exists {
		e.sched.cancelForPipeline(id)
	}
	e.pipelines[id] = g
	return nil
}

// Unload removes a pipeline, dropping its policy state and cancelling
// any pending debounce timers for its nodes.
func (e *Executor) Unload(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.pipelines[id]; !ok {
		return
	}
	delete(e.pipelines, id)
	e.sched.cancelForPipeline(id)
}

// Loaded reports the ids of every currently installed pipeline.
func (e *Executor) Loaded() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.pipelines))
	for id := range e.pipelines {
		ids = append(ids, id)
	}
	return ids
}

// ProcessEvent looks up every pipeline with a source node matching
// event.SourceType and runs an independent BFS traversal from each
// matching entry node.
func (e *Executor) ProcessEvent(ctx context.Context, event model.SignalEvent) {
	e.mu.RLock()
	graphs := make([]*graph, 0, len(e.pipelines))
	for _, g := range e.pipelines {
		if len(g.sourceEntry[event.SourceType]) > 0 {
			graphs = append(graphs, g)
		}
	}
	e.mu.RUnlock()

	payload := eventToPayload(event)
	for _, g := range graphs {
		for _, entryID := range g.sourceEntry[event.SourceType] {
			e.traverse(ctx, g, entryID, deepCopyPayload(payload))
		}
	}
}

type frame struct {
	nodeID  string
	payload map[string]any
}

// traverse runs one breadth-first walk of g starting at entryID. A
// per-traversal visited set keyed by node id is the explicit correction
// that prevents an infinite loop on a cyclic graph definition.
func (e *Executor) traverse(ctx context.Context, g *graph, entryID string, payload map[string]any) {
	visited := make(map[string]bool)
	queue := []frame{{nodeID: entryID, payload: payload}}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		if visited[f.nodeID] {
			continue
		}
		visited[f.nodeID] = true

		node, ok := g.nodes[f.nodeID]
		if !ok {
			continue
		}

		outPayload, proceed := e.visit(ctx, g, node, f.payload)
		if !proceed {
			continue
		}

		children := g.adjacency[f.nodeID]
		for i, childID := range children {
			childPayload := outPayload
			if i < len(children)-1 {
				childPayload = deepCopyPayload(outPayload)
			}
			queue = append(queue, frame{nodeID: childID, payload: childPayload})
		}
	}
}

// visit applies one node's semantics to payload. The returned bool
// reports whether traversal should continue to this node's children.
func (e *Executor) visit(ctx context.Context, g *graph, node *compiledNode, payload map[string]any) (map[string]any, bool) {
	e.notifyEvent(EventNotification{PipelineID: g.id, NodeID: node.id, Payload: payload})

	switch node.spec {
	case NodeSource:
		return payload, true

	case NodeFilter:
		if !node.filter.Evaluate(payload) {
			return nil, false
		}
		return payload, true

	case NodeTransformer:
		out, err := node.transformer.Transform(payload)
		if err != nil {
			e.logger.Warn("pipeline: transformer error, passing payload through unchanged",
				"pipeline", g.id, "node", node.id, "error", err)
			return payload, true
		}
		return out, true

	case NodeAction:
		key := policy.Key{PipelineID: g.id, NodeID: node.id}
		execute := func(p map[string]any) { e.runAction(ctx, g.id, node, p) }
		if node.policy.Admit(key, payload, execute) {
			execute(payload)
			node.policy.Record(key, payload)
		}
		return payload, true

	default:
		return payload, true
	}
}

// runAction executes node's action and delivers the result only
// through the OnAction callback — never onto an event bus (Executor
// holds none). An action result is not itself a host signal, and
// nothing downstream consumes an "action_result"-sourced event; cmd/
// signaldockd wires OnAction directly to the hub's "actions" channel
// instead.
func (e *Executor) runAction(ctx context.Context, pipelineID string, node *compiledNode, payload map[string]any) {
	result := action.SafeExecute(ctx, node.action, action.Context{Payload: payload}, e.perm)
	e.notifyAction(ActionNotification{PipelineID: pipelineID, NodeID: node.id, Result: result})
}

func (e *Executor) notifyEvent(n EventNotification) {
	e.notifyMu.Lock()
	callbacks := append([]func(EventNotification){}, e.onEvent...)
	e.notifyMu.Unlock()
	for _, fn := range callbacks {
		fn(n)
	}
}

func (e *Executor) notifyAction(n ActionNotification) {
	e.notifyMu.Lock()
	callbacks := append([]func(ActionNotification){}, e.onAction...)
	e.notifyMu.Unlock()
	for _, fn := range callbacks {
		fn(n)
	}
}

func eventToPayload(event model.SignalEvent) map[string]any {
	return map[string]any{
		"id":          event.ID,
		"source_type": event.SourceType,
		"source_name": event.SourceName,
		"event_type":  event.EventType,
		"timestamp":   event.Timestamp,
		"data":        event.Data,
		"metadata":    event.Metadata,
	}
}
