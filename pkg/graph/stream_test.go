package graph_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphkv/pkg/graph"
)

func TestStreamVerticesVisitsEveryVertexWithProperties(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	_, err = s.AddVertex("v2", 0)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(graph.KindVertex, "v1", "name", "alice", 0))

	seen := map[string]string{}
	err = g.StreamVertices(context.Background(), func(v *graph.Vertex) error {
		name, _ := v.GetProperty("name")
		if name != nil {
			seen[string(v.ID())] = name.(string)
		} else {
			seen[string(v.ID())] = ""
		}
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 2)
	assert.Equal(t, "alice", seen["v1"])
	assert.Equal(t, "", seen["v2"])
}

func TestStreamVerticesStopsEarlyOnErrStopStreaming(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	_, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	_, err = s.AddVertex("v2", 0)
	require.NoError(t, err)

	visited := 0
	err = g.StreamVertices(context.Background(), func(v *graph.Vertex) error {
		visited++
		return graph.ErrStopStreaming
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visited)
}

func TestStreamEdgesVisitsEveryEdgeWithEndpointsAndLabel(t *testing.T) {
	g := openTestGraph(t)
	s := g.NewSession()

	v1, err := s.AddVertex("v1", 0)
	require.NoError(t, err)
	v2, err := s.AddVertex("v2", 0)
	require.NoError(t, err)
	_, err = s.AddEdge("e1", v1.ID(), v2.ID(), "knows", 0)
	require.NoError(t, err)

	var got *graph.Edge
	err = g.StreamEdges(context.Background(), func(e *graph.Edge) error {
		got = e
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "knows", got.Label())
	assert.Equal(t, v1.ID(), got.OutVertex())
	assert.Equal(t, v2.ID(), got.InVertex())
}
