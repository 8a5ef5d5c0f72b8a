package codec

// Cell is one decoded (row, family, qualifier, value, timestamp) tuple as
// read back off a scanner, per §4.1's definition of a table as a sorted map
// from (row, family, qualifier) to (value, timestamp).
type Cell struct {
	Table     Table
	Row       []byte
	Family    []byte
	Qualifier []byte
	Value     []byte
	Timestamp uint64
}

// Mutation describes a single pending write or delete, per §4.2: "A
// mutation is (row, family, qualifier, [timestamp], value|DELETE)". When
// Timestamp is zero the store assigns wall-clock time at write (§6.2: "ts =
// 0 (or absent) lets the store assign one").
type Mutation struct {
	Table     Table
	Row       []byte
	Family    []byte
	Qualifier []byte
	Timestamp uint64
	// Value holds the cell's payload for a put. Delete is true for a
	// tombstone mutation, in which case Value is ignored.
	Value  []byte
	Delete bool
}

// Put builds a put mutation.
func Put(table Table, row, family, qualifier, value []byte, ts uint64) Mutation {
	return Mutation{Table: table, Row: row, Family: family, Qualifier: qualifier, Value: value, Timestamp: ts}
}

// Del builds a delete (tombstone) mutation for a single cell.
func Del(table Table, row, family, qualifier []byte, ts uint64) Mutation {
	return Mutation{Table: table, Row: row, Family: family, Qualifier: qualifier, Timestamp: ts, Delete: true}
}
