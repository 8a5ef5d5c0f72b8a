package codec

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeKeyRoundTrip(t *testing.T) {
	key := EncodeKey(VertexTable, []byte("vertex-1"), []byte("name"), []byte(""), 100)

	dk, err := DecodeKey(key)
	require.NoError(t, err)
	assert.Equal(t, VertexTable, dk.Table)
	assert.Equal(t, []byte("vertex-1"), dk.Row)
	assert.Equal(t, []byte("name"), dk.Family)
	assert.Equal(t, []byte(""), dk.Qualifier)
	assert.Equal(t, uint64(100), dk.Timestamp)
}

func TestEncodeKeyOrdersNewestFirst(t *testing.T) {
	older := EncodeKey(VertexTable, []byte("v1"), []byte("name"), nil, 100)
	newer := EncodeKey(VertexTable, []byte("v1"), []byte("name"), nil, 200)

	// Same row/family/qualifier, but the inverted timestamp suffix must
	// sort the newer cell first in ascending byte order.
	assert.Equal(t, -1, compareBytes(newer, older))
}

func TestEncodeKeySeparatesIDsContainingReservedBytes(t *testing.T) {
	// An ID containing the teacher's old 0x00 separator must not collide
	// with an adjacent segment under the length-prefixed scheme.
	trickyID := []byte("vertex\x00withnull")
	key1 := EncodeKey(VertexTable, trickyID, []byte("L"), []byte("E"), 1)
	key2 := EncodeKey(VertexTable, []byte("vertex"), []byte("withnull"+"\x00L"), []byte("E"), 1)

	dk1, err := DecodeKey(key1)
	require.NoError(t, err)
	assert.Equal(t, trickyID, dk1.Row)
	assert.NotEqual(t, key1, key2)
}

func TestRowPrefixMatchesAllCellsInRow(t *testing.T) {
	prefix := RowPrefix(VertexTable, []byte("v1"))
	key := EncodeKey(VertexTable, []byte("v1"), []byte("L"), []byte("E"), 1)

	assert.True(t, hasPrefix(key, prefix))

	otherRow := EncodeKey(VertexTable, []byte("v2"), []byte("L"), []byte("E"), 1)
	assert.False(t, hasPrefix(otherRow, prefix))
}

func TestFamilyPrefixMatchesOnlyThatFamily(t *testing.T) {
	prefix := FamilyPrefix(VertexTable, []byte("v1"), []byte(FamilyOut))
	match := EncodeKey(VertexTable, []byte("v1"), []byte(FamilyOut), []byte("q1"), 1)
	noMatch := EncodeKey(VertexTable, []byte("v1"), []byte(FamilyIn), []byte("q1"), 1)

	assert.True(t, hasPrefix(match, prefix))
	assert.False(t, hasPrefix(noMatch, prefix))
}

func TestEncodeDecodeQualifierSegments(t *testing.T) {
	qualifier := EncodeQualifierSegments([]byte("other-vertex"), []byte("edge-1"))

	segments, err := DecodeQualifierSegments(qualifier, 2)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, []byte("other-vertex"), segments[0])
	assert.Equal(t, []byte("edge-1"), segments[1])
}

func TestEncodeQualifierSegmentsWithEmbeddedSeparatorBytes(t *testing.T) {
	// IDs containing the literal "|" the spec describes (and the 0x00 the
	// teacher used) must not corrupt segment boundaries.
	first := []byte("a|b\x00c")
	second := []byte("rest-of-id")
	qualifier := EncodeQualifierSegments(first, second)

	segments, err := DecodeQualifierSegments(qualifier, 2)
	require.NoError(t, err)
	assert.Equal(t, first, segments[0])
	assert.Equal(t, second, segments[1])
}

func TestNamedIndexTableOrdinals(t *testing.T) {
	t0, err := NamedIndexTable(0)
	require.NoError(t, err)
	t1, err := NamedIndexTable(1)
	require.NoError(t, err)

	assert.True(t, IsNamedIndexTable(t0))
	assert.True(t, IsNamedIndexTable(t1))
	assert.NotEqual(t, t0, t1)
	assert.False(t, IsNamedIndexTable(VertexTable))
}

func TestNamedIndexTableRejectsOutOfRange(t *testing.T) {
	_, err := NamedIndexTable(-1)
	assert.Error(t, err)

	_, err = NamedIndexTable(10000)
	assert.Error(t, err)
}

func compareBytes(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

func hasPrefix(b, prefix []byte) bool {
	if len(b) < len(prefix) {
		return false
	}
	for i := range prefix {
		if b[i] != prefix[i] {
			return false
		}
	}
	return true
}
