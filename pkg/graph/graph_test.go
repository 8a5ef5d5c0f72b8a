package graph_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphkv/pkg/config"
	"github.com/orneryd/graphkv/pkg/graph"
)

func testConfig() *config.Config {
	cfg := config.LoadFromEnv()
	cfg.InMemory = true
	cfg.GraphName = "test"
	cfg.AutoFlush = true
	return cfg
}

func openTestGraph(t *testing.T) *graph.Graph {
	t.Helper()
	cfg := testConfig()
	require.NoError(t, cfg.Validate())

	g, err := graph.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Shutdown() })
	return g
}

func openTestGraphWith(t *testing.T, mutate func(*config.Config)) *graph.Graph {
	t.Helper()
	cfg := testConfig()
	mutate(cfg)
	require.NoError(t, cfg.Validate())

	g, err := graph.Open(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = g.Shutdown() })
	return g
}

func TestOpenRejectsInvalidConfig(t *testing.T) {
	cfg := config.LoadFromEnv()
	cfg.GraphName = ""
	_, err := graph.Open(cfg)
	assert.Error(t, err)
}

func TestIsEmptyReflectsVertexPresence(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	empty, err := g.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	_, err = s.AddVertex("v1", 0)
	require.NoError(t, err)

	empty, err = g.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
}

func TestClearWipesVerticesEdgesAndIndices(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)
	_, err = s.AddEdge("e1", v1.ID(), v2.ID(), "knows", 0)
	require.NoError(t, err)

	_, err = g.CreateIndex("byName", graph.KindVertex)
	require.NoError(t, err)

	require.NoError(t, g.Clear())

	empty, err := g.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)
	assert.Empty(t, g.GetIndices())

	_, err = s.GetVertex("v1")
	assert.ErrorIs(t, err, graph.ErrNotFound)
}

func TestFlushIsIdempotentWithNoPendingWrites(t *testing.T) {
	g := openTestGraph(t)
	require.NoError(t, g.Flush())
	require.NoError(t, g.Flush())
}

func TestShutdownIsIdempotent(t *testing.T) {
	cfg := testConfig()
	g, err := graph.Open(cfg)
	require.NoError(t, err)
	require.NoError(t, g.Shutdown())
	require.NoError(t, g.Shutdown())
}

func TestAutoFlushFalseRequiresExplicitFlush(t *testing.T) {
	g := openTestGraphWith(t, func(c *config.Config) { c.AutoFlush = false })
	s := g.NewSession()

	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)

	// AddVertex only buffered the write (and cached v1): the store holds
	// no vertex until Flush.
	empty, err := g.IsEmpty()
	require.NoError(t, err)
	assert.True(t, empty)

	require.NoError(t, g.Flush())
	empty, err = g.IsEmpty()
	require.NoError(t, err)
	assert.False(t, empty)
	v, err := s.GetVertex("v1")
	require.NoError(t, err)
	assert.Equal(t, graph.VertexID("v1"), v.ID())
}
