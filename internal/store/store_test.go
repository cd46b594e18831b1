package store

import (
	"context"
	"testing"

	"github.com/signaldock/signaldock/internal/pipeline"
	"github.com/stretchr/testify/require"
)

func TestMemStore_SeedAndListActive(t *testing.T) {
	s := NewMemStore()
	s.Seed(PipelineRecord{
		ID:   "demo-cpu-alert",
		Name: "CPU alert demo",
		Nodes: []pipeline.NodeSpec{
			{ID: "src", Kind: pipeline.NodeSource, Type: "cpu"},
		},
	})

	records, err := s.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "demo-cpu-alert", records[0].ID)
}

func TestMemStore_SeedReplacesSameID(t *testing.T) {
	s := NewMemStore()
	s.Seed(PipelineRecord{ID: "p1", Name: "first"})
	s.Seed(PipelineRecord{ID: "p1", Name: "second"})

	records, err := s.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "second", records[0].Name)
}
