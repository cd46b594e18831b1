package pipeline

// NodeKind is the closed set of node variants a pipeline graph may
// contain. An unrecognized kind is rejected at Load time, before the
// pipeline is installed.
type NodeKind string

const (
	NodeSource      NodeKind = "source"
	NodeFilter      NodeKind = "filter"
	NodeTransformer NodeKind = "transformer"
	NodeAction      NodeKind = "action"
)

// NodeSpec is the declarative, wire/storage shape of one graph node —
// what Executor.Load receives before any registry construction happens.
type NodeSpec struct {
	ID     string         `json:"id"`
	Kind   NodeKind       `json:"kind"`
	Type   string         `json:"type"`   // registry key: source_type, filter type, etc.
	Params map[string]any `json:"params"` // component-specific construction params
	Policy *PolicySpec    `json:"policy,omitempty"`
}

// PolicySpec is the declarative shape of an action node's execution
// policy, absent for non-action nodes.
type PolicySpec struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params"`
}

// EdgeSpec is the declarative shape of one directed edge.
type EdgeSpec struct {
	From string `json:"from"`
	To   string `json:"to"`
}
