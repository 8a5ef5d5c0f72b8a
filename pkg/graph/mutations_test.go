package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphkv/pkg/config"
	"github.com/orneryd/graphkv/pkg/graph"
)

func TestAddVertexGeneratesIDWhenEmpty(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v, err := s.AddVertex("", 0)
	require.NoError(t, err)
	assert.NotEmpty(t, v.ID())
}

func TestAddVertexRejectsDuplicateID(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	_, err = s.AddVertex("v1", 0)
	assert.ErrorIs(t, err, graph.ErrDuplicateId)
}

func TestAddVertexSkipsExistenceCheckWhenConfigured(t *testing.T) {
	g := openTestGraphWith(t, func(c *config.Config) { c.SkipExistenceChecks = true })
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	assert.Equal(t, graph.VertexID("v1"), v1.ID())

	// with existence checks skipped, a duplicate add is not rejected.
	v1Again, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	assert.Equal(t, graph.VertexID("v1"), v1Again.ID())
}

func TestAddEdgeRejectsEmptyLabel(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)

	_, err = s.AddEdge("", v1.ID(), v2.ID(), "", 0)
	assert.ErrorIs(t, err, graph.ErrNullLabel)
}

func TestAddEdgeRoundTripsLabelAndEndpoints(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)

	e, err := s.AddEdge("e1", v1.ID(), v2.ID(), "knows", 0)
	require.NoError(t, err)
	assert.Equal(t, "knows", e.Label())
	assert.Equal(t, v1.ID(), e.OutVertex())
	assert.Equal(t, v2.ID(), e.InVertex())

	fetched, err := s.GetEdge("e1")
	require.NoError(t, err)
	assert.Equal(t, "knows", fetched.Label())
	assert.Equal(t, v1.ID(), fetched.OutVertex())
	assert.Equal(t, v2.ID(), fetched.InVertex())
}

func TestAddEdgeCreatesSymmetricAdjacency(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)
	_, err = s.AddEdge("e1", v1.ID(), v2.ID(), "knows", 0)
	require.NoError(t, err)

	outEdges, err := s.GetEdges(v1.ID(), graph.DirOut)
	require.NoError(t, err)
	require.Len(t, outEdges, 1)
	assert.Equal(t, "e1", string(outEdges[0].ID()))

	inEdges, err := s.GetEdges(v2.ID(), graph.DirIn)
	require.NoError(t, err)
	require.Len(t, inEdges, 1)
	assert.Equal(t, "e1", string(inEdges[0].ID()))
}

func TestRemoveVertexNotFoundOnMissingVertex(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()
	v, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	require.NoError(t, s.RemoveVertex(v, 0))

	err = s.RemoveVertex(v, 0)
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestRemoveVertexCascadesIncidentEdges(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)
	_, err = s.AddEdge("e1", v1.ID(), v2.ID(), "knows", 0)
	require.NoError(t, err)

	require.NoError(t, s.RemoveVertex(v1, 0))

	_, err = s.GetEdge("e1")
	assert.ErrorIs(t, err, graph.ErrNotFound)

	remaining, err := s.GetEdges(v2.ID(), graph.DirBoth)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRemoveEdgeDropsBothAdjacencyCells(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)
	e, err := s.AddEdge("e1", v1.ID(), v2.ID(), "knows", 0)
	require.NoError(t, err)

	require.NoError(t, s.RemoveEdge(e, 0))

	out, err := s.GetEdges(v1.ID(), graph.DirOut)
	require.NoError(t, err)
	assert.Empty(t, out)

	in, err := s.GetEdges(v2.ID(), graph.DirIn)
	require.NoError(t, err)
	assert.Empty(t, in)

	_, err = s.GetEdge("e1")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestSetPropertyRoundTrips(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	require.NoError(t, s.SetProperty(graph.KindVertex, "v1", "name", "alice", 0))

	value, found, err := s.GetProperty(graph.KindVertex, "v1", "name")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "alice", value)

	cached, _ := v.GetProperty("name")
	assert.Equal(t, "alice", cached)
}

func TestSetPropertyRejectsReservedKeys(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()
	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetProperty(graph.KindVertex, "v1", "id", "x", 0), graph.ErrReservedKey)
	assert.ErrorIs(t, s.SetProperty(graph.KindVertex, "v1", "label", "x", 0), graph.ErrReservedKey)
	assert.ErrorIs(t, s.SetProperty(graph.KindVertex, "v1", "", "x", 0), graph.ErrEmptyKey)
}

func TestSetPropertyRejectsNilValue(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()
	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SetProperty(graph.KindVertex, "v1", "name", nil, 0), graph.ErrNullProperty)
}

func TestRemoveLabelPropertyIsRejected(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()
	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	_, err = s.RemoveProperty(graph.KindVertex, "v1", "label")
	assert.ErrorIs(t, err, graph.ErrReservedKey)
}

func TestRemovePropertyReturnsOldValue(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()
	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(graph.KindVertex, "v1", "name", "alice", 0))

	old, err := s.RemoveProperty(graph.KindVertex, "v1", "name")
	require.NoError(t, err)
	assert.Equal(t, "alice", old)

	_, found, err := s.GetProperty(graph.KindVertex, "v1", "name")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRemovePropertyOnAbsentKeyIsNoop(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()
	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	old, err := s.RemoveProperty(graph.KindVertex, "v1", "ghost")
	require.NoError(t, err)
	assert.Nil(t, old)
}

func TestSetPropertyMaintainsKeyIndex(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()
	require.NoError(t, g.CreateKeyIndex("name", graph.KindVertex, 0))

	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(graph.KindVertex, "v1", "name", "alice", 0))

	matches, err := s.GetVerticesByProperty("name", "alice")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, graph.VertexID("v1"), matches[0].ID())

	// updating the property moves the index entry, not duplicates it
	require.NoError(t, s.SetProperty(graph.KindVertex, "v1", "name", "bob", 0))
	matches, err = s.GetVerticesByProperty("name", "alice")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = s.GetVerticesByProperty("name", "bob")
	require.NoError(t, err)
	require.Len(t, matches, 1)
}

func TestRemoveVertexSweepsNamedIndexEntries(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	idx, err := g.CreateIndex("byName", graph.KindVertex)
	require.NoError(t, err)

	v, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	require.NoError(t, idx.Put("name", "alice", string(v.ID())))

	ids, err := idx.Get("name", "alice")
	require.NoError(t, err)
	require.Len(t, ids, 1)

	require.NoError(t, s.RemoveVertex(v, 0))

	ids, err = idx.Get("name", "alice")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
