package codec

import "fmt"

// Table identifies one of the engine's physical tables. All tables share a
// single Badger database; the table byte is the first byte of every
// physical key, grounded on the teacher's prefixNode/prefixEdge/...
// single-byte-prefix scheme (pkg/storage/badger.go), generalized to six
// fixed tables plus one dynamically-registered prefix per named index.
type Table byte

const (
	// VertexTable rows are vertex IDs: existence marker (family L,
	// qualifier E), adjacency cells (family I/O), and property cells
	// (family = property key).
	VertexTable Table = 0x01
	// EdgeTable rows are edge IDs: existence+endpoints+label (family L),
	// and property cells (family = property key).
	EdgeTable Table = 0x02
	// VertexIndexTable rows are encoded vertex property values.
	VertexIndexTable Table = 0x03
	// EdgeIndexTable rows are encoded edge property values.
	EdgeIndexTable Table = 0x04
	// MetadataTable holds one row per named index: row=indexName,
	// family=Vertex|Edge.
	MetadataTable Table = 0x05
	// KeyMetadataTable holds one row per key-indexed key: row=key,
	// family=Vertex|Edge.
	KeyMetadataTable Table = 0x06

	// namedIndexBase is the first byte value handed out to a
	// caller-created named index. Each named index gets its own table so
	// it can be dropped independently without touching the others.
	namedIndexBase Table = 0x10
	// maxNamedIndexes bounds how many named indexes a single database can
	// host: the first 0x10 table-byte values are reserved for the fixed
	// tables above, and named indexes take 0x10 through 0xFE (239 tables).
	maxNamedIndexes = 0xFF - int(namedIndexBase)
)

// NamedIndexTable returns the table prefix for the ordinal-th named index
// created against this database. Ordinals are assigned once, at creation
// time, by pkg/graph's metadata bookkeeping and never reused after a drop.
func NamedIndexTable(ordinal int) (Table, error) {
	if ordinal < 0 || ordinal >= maxNamedIndexes {
		return 0, fmt.Errorf("codec: named index ordinal %d out of range", ordinal)
	}
	return namedIndexBase + Table(ordinal), nil
}

// IsNamedIndexTable reports whether t was handed out by NamedIndexTable.
func IsNamedIndexTable(t Table) bool {
	return t >= namedIndexBase
}

// Column families used within VertexTable and EdgeTable rows. Property
// cells use the property key itself as the family, so these are only the
// fixed, non-property families.
const (
	// FamilyExistence marks an element as present. On a vertex row the
	// qualifier is always QualifierExists and the value is empty; on an
	// edge row the qualifier packs the in/out vertex IDs and the value is
	// the encoded label.
	FamilyExistence = "L"
	// FamilyIn holds incoming-adjacency cells on a vertex row.
	FamilyIn = "I"
	// FamilyOut holds outgoing-adjacency cells on a vertex row.
	FamilyOut = "O"
)

// QualifierExists is the fixed qualifier of a vertex's existence cell.
const QualifierExists = "E"

// MetadataFamily distinguishes which element kind a metadata or
// key-metadata row describes.
type MetadataFamily string

const (
	MetadataVertex MetadataFamily = "Vertex"
	MetadataEdge   MetadataFamily = "Edge"
)
