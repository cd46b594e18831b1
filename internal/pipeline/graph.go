package pipeline

import (
	"fmt"

	"github.com/signaldock/signaldock/internal/action"
	"github.com/signaldock/signaldock/internal/pipeline/filter"
	"github.com/signaldock/signaldock/internal/pipeline/policy"
	"github.com/signaldock/signaldock/internal/pipeline/transform"
)

// compiledNode is a NodeSpec with its registry component already built.
// Exactly one of the component fields is non-nil, matching Kind.
type compiledNode struct {
	spec NodeKind
	id   string
	typ  string

	filter      filter.Filter
	transformer transform.Transformer
	action      action.Action
	policy      policy.Policy
}

// graph is one pipeline's compiled node set plus its adjacency list.
// Edge insertion order is preserved via []string, not map iteration, so
// traversal fan-out is deterministic and matches the order pipelines
// were authored in.
type graph struct {
	id    string
	name  string
	nodes map[string]*compiledNode
	// sourceEntry maps a source_type to the ids of source nodes in this
	// graph that match it — the O(1) subscription lookup Executor uses.
	sourceEntry map[string][]string
	adjacency   map[string][]string
}

// compile builds a graph from its declarative specs, constructing every
// node's registry component. Any unknown variant or dangling edge
// reference fails the whole pipeline — the caller must not install a
// partially-built graph.
func compile(id, name string, nodeSpecs []NodeSpec, edgeSpecs []EdgeSpec, sched policy.Scheduler) (*graph, error) {
	g := &graph{
		id:          id,
		name:        name,
		nodes:       make(map[string]*compiledNode, len(nodeSpecs)),
		sourceEntry: make(map[string][]string),
		adjacency:   make(map[string][]string),
	}

	for _, spec := range nodeSpecs {
		if spec.ID == "" {
			return nil, fmt.Errorf("pipeline %s: node with empty id", id)
		}
		if _, dup := g.nodes[spec.ID]; dup {
			return nil, fmt.Errorf("pipeline %s: duplicate node id %q", id, spec.ID)
		}
		cn := &compiledNode{spec: spec.Kind, id: spec.ID, typ: spec.Type}

		switch spec.Kind {
		case NodeSource:
			g.sourceEntry[spec.Type] = append(g.sourceEntry[spec.Type], spec.ID)
		case NodeFilter:
			f, err := filter.New(spec.Type, spec.Params)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: node %s: %w", id, spec.ID, err)
			}
			cn.filter = f
		case NodeTransformer:
			tr, err := transform.New(spec.Type, spec.Params)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: node %s: %w", id, spec.ID, err)
			}
			cn.transformer = tr
		case NodeAction:
			act, err := action.New(spec.Type, spec.Params)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: node %s: %w", id, spec.ID, err)
			}
			cn.action = act
			pol, err := compilePolicy(spec.Policy, sched)
			if err != nil {
				return nil, fmt.Errorf("pipeline %s: node %s: %w", id, spec.ID, err)
			}
			cn.policy = pol
		default:
			return nil, fmt.Errorf("pipeline %s: node %s: unknown node kind %q", id, spec.ID, spec.Kind)
		}

		g.nodes[spec.ID] = cn
	}

	for _, e := range edgeSpecs {
		if _, ok := g.nodes[e.From]; !ok {
			return nil, fmt.Errorf("pipeline %s: edge references unknown node %q", id, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return nil, fmt.Errorf("pipeline %s: edge references unknown node %q", id, e.To)
		}
		g.adjacency[e.From] = append(g.adjacency[e.From], e.To)
	}

	return g, nil
}

func compilePolicy(spec *PolicySpec, sched policy.Scheduler) (policy.Policy, error) {
	if spec == nil {
		return policy.New("none", nil, sched)
	}
	return policy.New(spec.Type, spec.Params, sched)
}
