package signalsource

// Registry is the closed set of signal sources a running process has
// constructed. Unlike the pipeline's filter/transformer/policy/action
// registries, sources are not built from a tagged-variant config blob —
// each concrete type is constructed directly by the process entrypoint
// from its own config section — so Registry here is just bookkeeping
// for start/stop-all and status reporting, not a factory.
type Registry struct {
	sources map[string]Source
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Add registers a constructed source under its Name(). Registering two
// sources with the same name replaces the first.
func (r *Registry) Add(s Source) {
	r.sources[s.Name()] = s
}

// Get returns the source registered under name, or nil if none.
func (r *Registry) Get(name string) Source {
	return r.sources[name]
}

// All returns every registered source.
func (r *Registry) All() []Source {
	out := make([]Source, 0, len(r.sources))
	for _, s := range r.sources {
		out = append(out, s)
	}
	return out
}

// Statuses returns a name -> Status snapshot for every registered source.
func (r *Registry) Statuses() map[string]Status {
	out := make(map[string]Status, len(r.sources))
	for name, s := range r.sources {
		out[name] = s.Status()
	}
	return out
}
