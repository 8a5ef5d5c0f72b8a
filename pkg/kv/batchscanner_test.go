package kv_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orneryd/graphkv/pkg/codec"
)

func TestBatchScannerScanRangesCoversEveryRow(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	rows := [][]byte{[]byte("v1"), []byte("v2"), []byte("v3")}
	for _, row := range rows {
		require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, row, []byte("name"), []byte(""), row, 1)))
	}

	bs, err := e.NewBatchScanner(codec.VertexTable, 2)
	require.NoError(t, err)

	var mu sync.Mutex
	seen := make(map[string]bool)
	err = bs.ScanRanges(rows, func(c codec.Cell) error {
		mu.Lock()
		defer mu.Unlock()
		seen[string(c.Row)] = true
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, seen, 3)
}

func TestBatchScannerScanRangesPropagatesWorkerError(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))
	require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 1)))

	bs, err := e.NewBatchScanner(codec.VertexTable, 1)
	require.NoError(t, err)

	boom := assert.AnError
	err = bs.ScanRanges([][]byte{[]byte("v1")}, func(c codec.Cell) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestBatchScannerScanTableWalksWholeTable(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	for i := 0; i < 5; i++ {
		require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, []byte{byte('a' + i)}, []byte("name"), []byte(""), []byte("x"), 1)))
	}

	bs, err := e.NewBatchScanner(codec.VertexTable, 3)
	require.NoError(t, err)

	count := 0
	err = bs.ScanTable(func(c codec.Cell) error {
		count++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 5, count)
}

func TestBatchScannerFetchFamilyAppliesToEveryRange(t *testing.T) {
	e := openTestEngine(t)
	require.NoError(t, e.CreateTable(codec.VertexTable, "vertices", nil))

	require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, []byte("v1"), []byte("name"), []byte(""), []byte("alice"), 1)))
	require.NoError(t, e.PutDirect(codec.Put(codec.VertexTable, []byte("v1"), []byte("age"), []byte(""), []byte("30"), 1)))

	bs, err := e.NewBatchScanner(codec.VertexTable, 1)
	require.NoError(t, err)
	bs.FetchFamily("age")

	var families []string
	err = bs.ScanRanges([][]byte{[]byte("v1")}, func(c codec.Cell) error {
		families = append(families, string(c.Family))
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"age"}, families)
}
