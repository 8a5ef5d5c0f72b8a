package kv_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphkv/pkg/codec"
	"github.com/orneryd/graphkv/pkg/kv"
)

func TestCreateListDeleteTable(t *testing.T) {
	e := openTestEngine(t)

	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))
	require.Error(t, e.CreateTable(codec.VertexTable, "vertices-again", nil))

	name, ok := e.TableName(codec.VertexTable)
	require.True(t, ok)
	assert.Equal(t, "vertices", name)

	tables := e.ListTables()
	assert.Contains(t, tables, codec.VertexTable)

	require.NoError(t, e.DeleteTable(codec.VertexTable))
	_, ok = e.TableName(codec.VertexTable)
	assert.False(t, ok)
}

func TestDeleteTablePhysicallyRemovesCells(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, []byte("v1"), []byte(codec.FamilyExistence), []byte(codec.QualifierExists), []byte{}, 1)))

	require.NoError(t, e.DeleteTable(codec.VertexTable))

	// table is gone from the registry, and re-creating + scanning yields no
	// leftover cells from before the delete
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))
	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeTable()
	_, ok, err := scanner.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetRetentionPolicyRequiresExistingTable(t *testing.T) {
	e := openTestEngine(t)
	err := e.SetRetentionPolicy(codec.VertexTable, kv.RetentionPolicy{MaxVersions: 3})
	assert.Error(t, err)

	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))
	require.NoError(t, e.SetRetentionPolicy(codec.VertexTable, kv.RetentionPolicy{MaxVersions: 3}))
}

func TestCompactTrimsVersionsBeyondRetentionPolicy(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))
	require.NoError(t, e.SetRetentionPolicy(codec.VertexTable, kv.RetentionPolicy{MaxVersions: 2}))

	row := []byte("v1")
	family := []byte("name")
	qualifier := []byte("")
	for ts := uint64(1); ts <= 5; ts++ {
		require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, row, family, qualifier, []byte("val"), ts)))
	}

	require.NoError(t, e.Compact())

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeRow(row)

	count := 0
	seenTimestamps := make(map[uint64]bool)
	for {
		cell, ok, err := scanner.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
		seenTimestamps[cell.Timestamp] = true
	}

	assert.Equal(t, 2, count)
	// the two newest versions (5 and 4) must survive trimming
	assert.True(t, seenTimestamps[5])
	assert.True(t, seenTimestamps[4])
}

func TestCompactWithoutRetentionPolicyKeepsAllVersions(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	row := []byte("v1")
	family := []byte("name")
	for ts := uint64(1); ts <= 3; ts++ {
		require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, row, family, []byte(""), []byte("val"), ts)))
	}

	require.NoError(t, e.Compact())

	scanner, err := e.NewScanner(codec.VertexTable)
	require.NoError(t, err)
	defer scanner.Close()
	scanner.RangeRow(row)

	count := 0
	for {
		_, ok, err := scanner.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		count++
	}
	assert.Equal(t, 3, count)
}
