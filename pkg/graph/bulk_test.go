package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphkv/pkg/graph"
)

func TestBulkAddVerticesRoundTrips(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	vertices, err := s.BulkAddVertices([]string{"v1", "v2", "v3"}, 0)
	require.NoError(t, err)
	require.Len(t, vertices, 3)

	got, err := s.GetVertex("v2")
	require.NoError(t, err)
	assert.Equal(t, graph.VertexID("v2"), got.ID())
}

func TestBulkAddVerticesRejectsDuplicateWithinBatch(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	_, err := s.BulkAddVertices([]string{"v1", "v1"}, 0)
	assert.ErrorIs(t, err, graph.ErrDuplicateId)
}

func TestBulkAddVerticesRejectsDuplicateAgainstStore(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	_, err = s.BulkAddVertices([]string{"v2", "v1"}, 0)
	assert.ErrorIs(t, err, graph.ErrDuplicateId)
}

func TestBulkAddEdgesRoundTrips(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)
	v3, err := s.AddVertex("v3", 0)
	require.NoError(t, err)

	edges, err := s.BulkAddEdges([]graph.BulkEdgeSpec{
		{ID: "e1", OutV: v1.ID(), InV: v2.ID(), Label: "knows"},
		{ID: "e2", OutV: v1.ID(), InV: v3.ID(), Label: "knows"},
	}, 0)
	require.NoError(t, err)
	require.Len(t, edges, 2)

	out, err := s.GetEdges(v1.ID(), graph.DirOut)
	require.NoError(t, err)
	assert.Len(t, out, 2)
}

func TestBulkAddEdgesRejectsEmptyLabel(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)

	_, err = s.BulkAddEdges([]graph.BulkEdgeSpec{{ID: "e1", OutV: v1.ID(), InV: v2.ID(), Label: ""}}, 0)
	assert.ErrorIs(t, err, graph.ErrNullLabel)
}
