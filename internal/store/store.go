// Package store holds the narrow persistence collaborator contract the
// pipeline executor is driven through at startup: listing active
// pipeline definitions. The relational store and its HTTP/CRUD surface
// are external collaborators, out of scope for this core; this package
// only defines the shape that contract takes.
package store

import (
	"context"
	"sync"

	"github.com/signaldock/signaldock/internal/pipeline"
)

// PipelineRecord is the persisted shape of one pipeline definition —
// exactly what Executor.Load needs, nothing more.
type PipelineRecord struct {
	ID    string
	Name  string
	Nodes []pipeline.NodeSpec
	Edges []pipeline.EdgeSpec
}

// PipelineStore is implemented by whatever holds pipeline definitions
// durably. cmd/signaldockd calls ListActive once at startup to seed the
// Executor; nothing in this core mutates the store.
type PipelineStore interface {
	ListActive(ctx context.Context) ([]PipelineRecord, error)
}

// MemStore is an in-memory PipelineStore fake, not a persistence
// implementation — used for -demo mode and for wiring tests, mirroring
// the fakes-over-mocks pattern used throughout this codebase's tests.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]PipelineRecord
}

// NewMemStore creates an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{records: make(map[string]PipelineRecord)}
}

// Seed adds or replaces a record, for demo-mode bootstrapping and tests.
func (s *MemStore) Seed(r PipelineRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[r.ID] = r
}

// ListActive returns every seeded record. MemStore has no notion of an
// inactive or template record — every seeded record is "active".
func (s *MemStore) ListActive(context.Context) ([]PipelineRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]PipelineRecord, 0, len(s.records))
	for _, r := range s.records {
		out = append(out, r)
	}
	return out, nil
}
