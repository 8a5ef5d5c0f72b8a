package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphkv/pkg/codec"
)

func TestMultiWriterFlushWritesAllPendingMutations(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))
	require.NoError(t, e.CreateTable(codec.EdgeTable, "edges", nil))

	writer, err := e.NewMultiWriter()
	require.NoError(t, err)

	require.NoError(t, writer.Add(codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 1)))
	require.NoError(t, writer.Add(codec.Put(codec.EdgeTable, []byte("e1"), []byte("L"), []byte(""), []byte{}, 1)))
	assert.Equal(t, 2, writer.Pending())

	require.NoError(t, writer.Flush())
	assert.Equal(t, 0, writer.Pending())

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeRow([]byte("v1"))
	cell, ok, err := scanner.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("alice"), cell.Value)
}

func TestMultiWriterAssignsTimestampWhenZero(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	writer, err := e.NewMultiWriter()
	require.NoError(t, err)
	require.NoError(t, writer.Add(codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 0)))
	require.NoError(t, writer.Flush())

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeRow([]byte("v1"))
	cell, ok, err := scanner.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotZero(t, cell.Timestamp)
}

func TestMultiWriterDeleteMutation(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 5)))

	writer, err := e.NewMultiWriter()
	require.NoError(t, err)
	require.NoError(t, writer.Add(codec.Del(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), 5)))
	require.NoError(t, writer.Flush())

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeRow([]byte("v1"))
	_, ok, err := scanner.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMultiWriterCloseDiscardsPending(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	writer, err := e.NewMultiWriter()
	require.NoError(t, err)
	require.NoError(t, writer.Add(codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 1)))
	require.NoError(t, writer.Close())

	err = writer.Add(codec.Put(codec.VertexTable, []byte("v2"), []byte("name"), []byte(""), []byte("bob"), 1))
	assert.Error(t, err)

	err = writer.Flush()
	assert.Error(t, err)

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeTable()
	_, ok, err := scanner.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMultiWriterFlushWithNoPendingMutationsIsNoop(t *testing.T) {
	e := openTestEngine(t)
	writer, err := e.NewMultiWriter()
	require.NoError(t, err)
	require.NoError(t, writer.Flush())
}

func TestPutDirectWritesImmediately(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))
	require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 1)))

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeRow([]byte("v1"))
	cell, ok, err := scanner.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []byte("alice"), cell.Value)
}

func TestMultiWriterAddAll(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	writer, err := e.NewMultiWriter()
	require.NoError(t, err)
	require.NoError(t, writer.AddAll([]codec.Mutation{
		codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 1),
		codec.Put(codec.VertexTable, []byte("v2"), []byte("name"), []byte(""), []byte("bob"), 1),
	}))
	assert.Equal(t, 2, writer.Pending())
	require.NoError(t, writer.Flush())

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeTable()
	count := 0
	for {
		_, ok, err := scanner.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 2, count)
}
