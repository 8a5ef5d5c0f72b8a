package codec

import (
	"encoding/binary"
	"fmt"

	"github.com/orneryd/graphkv/pkg/pool"
)

// A physical cell key is:
//
//	table(1) | len(row)(2) | row | len(family)(2) | family | len(qualifier)(2) | qualifier | ~timestamp(8, big-endian)
//
// Every variable-length segment is length-prefixed rather than
// separator-joined (the teacher's label/outgoing/incoming index keys join
// segments with a literal 0x00 separator; see pkg/storage/badger.go). A
// separator byte cannot be ruled out of a caller-supplied element ID, so
// §9's recommended fix is applied here instead: no byte value in an ID,
// label, or property key can ever be misread as a separator.
//
// The timestamp is stored as its bitwise complement so that Badger's
// ascending byte-order iteration yields cells newest-first for a fixed
// (row, family, qualifier) triple, realizing "sorted by timestamp desc"
// from §6.1 without needing Badger's managed-transaction timestamp API.
//
// The length prefixes mean two keys with different-length rows are not
// guaranteed to sort in the same order their raw bytes would (a length
// comparison wins before content does). No operation in this engine relies
// on cross-row lexicographic order; every scan either targets one exact row
// (RowPrefix), one exact family within a row (FamilyPrefix), or an entire
// table without caring about row order. Only same-(row,family,qualifier)
// timestamp ordering is load-bearing, and that is preserved exactly.

const (
	lenPrefixSize = 2
	tsSize        = 8
)

// EncodeKey builds the physical Badger key for one versioned cell.
func EncodeKey(table Table, row, family, qualifier []byte, ts uint64) []byte {
	size := 1 + lenPrefixSize + len(row) + lenPrefixSize + len(family) + lenPrefixSize + len(qualifier) + tsSize
	buf := pool.GetByteBuffer()
	if cap(buf) < size {
		buf = make([]byte, 0, size)
	}

	buf = append(buf, byte(table))
	buf = appendSegment(buf, row)
	buf = appendSegment(buf, family)
	buf = appendSegment(buf, qualifier)

	var tsBuf [tsSize]byte
	binary.BigEndian.PutUint64(tsBuf[:], ^ts)
	buf = append(buf, tsBuf[:]...)

	out := make([]byte, len(buf))
	copy(out, buf)
	pool.PutByteBuffer(buf)
	return out
}

func appendSegment(buf, segment []byte) []byte {
	var lenBuf [lenPrefixSize]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(segment)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, segment...)
	return buf
}

// DecodedKey is the parsed form of a physical cell key.
type DecodedKey struct {
	Table     Table
	Row       []byte
	Family    []byte
	Qualifier []byte
	Timestamp uint64
}

// DecodeKey parses a physical Badger key produced by EncodeKey.
func DecodeKey(key []byte) (DecodedKey, error) {
	var dk DecodedKey
	if len(key) < 1+3*lenPrefixSize+tsSize {
		return dk, fmt.Errorf("codec: key too short (%d bytes)", len(key))
	}

	dk.Table = Table(key[0])
	rest := key[1:]

	row, rest, err := readSegment(rest)
	if err != nil {
		return dk, fmt.Errorf("codec: decoding row segment: %w", err)
	}
	family, rest, err := readSegment(rest)
	if err != nil {
		return dk, fmt.Errorf("codec: decoding family segment: %w", err)
	}
	qualifier, rest, err := readSegment(rest)
	if err != nil {
		return dk, fmt.Errorf("codec: decoding qualifier segment: %w", err)
	}
	if len(rest) != tsSize {
		return dk, fmt.Errorf("codec: trailing bytes after qualifier: %d", len(rest))
	}

	dk.Row = row
	dk.Family = family
	dk.Qualifier = qualifier
	dk.Timestamp = ^binary.BigEndian.Uint64(rest)
	return dk, nil
}

func readSegment(data []byte) (segment, rest []byte, err error) {
	if len(data) < lenPrefixSize {
		return nil, nil, fmt.Errorf("truncated length prefix")
	}
	n := int(binary.BigEndian.Uint16(data[:lenPrefixSize]))
	data = data[lenPrefixSize:]
	if len(data) < n {
		return nil, nil, fmt.Errorf("truncated segment: want %d bytes, have %d", n, len(data))
	}
	return data[:n], data[n:], nil
}

// TablePrefix returns the prefix matching every cell in a table,
// regardless of row, for a full-table scan (e.g. create_key_index's
// re-index pass or a drop_key_index range-delete).
func TablePrefix(table Table) []byte {
	return []byte{byte(table)}
}

// RowPrefix returns the prefix matching every cell in a given row of a
// table, for a full-row scan (e.g. remove_vertex's row scan in §4.4).
func RowPrefix(table Table, row []byte) []byte {
	buf := make([]byte, 0, 1+lenPrefixSize+len(row))
	buf = append(buf, byte(table))
	buf = appendSegment(buf, row)
	return buf
}

// FamilyPrefix returns the prefix matching every cell in a given
// (row, family) pair, for scanning all qualifiers of one family (e.g. all
// outgoing-adjacency cells of a vertex, or every version of a property).
func FamilyPrefix(table Table, row, family []byte) []byte {
	buf := make([]byte, 0, 1+2*lenPrefixSize+len(row)+len(family))
	buf = append(buf, byte(table))
	buf = appendSegment(buf, row)
	buf = appendSegment(buf, family)
	return buf
}

// EncodeQualifierSegments packs n byte segments into one qualifier, each
// but the last length-prefixed so DecodeQualifierSegments can split them
// back out unambiguously regardless of their contents. Used for adjacency
// qualifiers (otherVertexId|edgeId) and the edge table's L qualifier
// (inVertexId|outVertexId), replacing the teacher's literal-separator join.
func EncodeQualifierSegments(segments ...[]byte) []byte {
	var buf []byte
	for i, seg := range segments {
		if i == len(segments)-1 {
			buf = append(buf, seg...)
			continue
		}
		buf = appendSegment(buf, seg)
	}
	return buf
}

// DecodeQualifierSegments splits a qualifier built by
// EncodeQualifierSegments back into its n parts.
func DecodeQualifierSegments(qualifier []byte, n int) ([][]byte, error) {
	if n <= 0 {
		return nil, fmt.Errorf("codec: n must be positive")
	}
	segments := make([][]byte, 0, n)
	rest := qualifier
	for i := 0; i < n-1; i++ {
		seg, tail, err := readSegment(rest)
		if err != nil {
			return nil, fmt.Errorf("codec: decoding qualifier segment %d: %w", i, err)
		}
		segments = append(segments, seg)
		rest = tail
	}
	segments = append(segments, rest)
	return segments, nil
}
