package kv

import "regexp"

// Filter is a server-side predicate attached to a Scanner or BatchDeleter.
// It runs in-process against each candidate cell before the cell reaches
// the caller — the same place an HBase coprocessor or Accumulo iterator
// would run, just without a client/server hop since Badger is embedded.
type Filter interface {
	// Match reports whether the cell should be kept.
	Match(row, family, qualifier, value []byte, timestamp uint64) bool
}

// TimestampFilter keeps only cells whose timestamp falls within
// [Start, End] inclusive, realizing the per-caller time-travel window from
// §4.4. At least one bound must be non-zero use-Start/use-End — callers
// build this via NewTimestampFilter rather than the zero value.
type TimestampFilter struct {
	start, end       uint64
	hasStart, hasEnd bool
}

// NewTimestampFilter builds an inclusive timestamp-range filter. Pass
// hasStart/hasEnd false for an unbounded side, mirroring §4.4's
// enable_timestamp_filter(start?, end?).
func NewTimestampFilter(start uint64, hasStart bool, end uint64, hasEnd bool) *TimestampFilter {
	return &TimestampFilter{start: start, hasStart: hasStart, end: end, hasEnd: hasEnd}
}

// Match implements Filter.
func (f *TimestampFilter) Match(_, _, _, _ []byte, timestamp uint64) bool {
	if f.hasStart && timestamp < f.start {
		return false
	}
	if f.hasEnd && timestamp > f.end {
		return false
	}
	return true
}

// RowRegexFilter keeps only cells whose row matches Pattern. pkg/graph does
// not attach it; its named-index cleanup matches qualifiers with
// QualifierRegexFilter.
type RowRegexFilter struct {
	Pattern *regexp.Regexp
}

// Match implements Filter.
func (f *RowRegexFilter) Match(row, _, _, _ []byte, _ uint64) bool {
	return f.Pattern.Match(row)
}

// ValueRegexFilter keeps only cells whose value matches Pattern. Used by
// get_vertices(key, value)/get_edges(key, value)'s slow path for
// regex-safe, non-indexed property lookups, and by get_edges'
// direction+label adjacency scan.
type ValueRegexFilter struct {
	Pattern *regexp.Regexp
}

// Match implements Filter.
func (f *ValueRegexFilter) Match(_, _, _, value []byte, _ uint64) bool {
	return f.Pattern.Match(value)
}

// QualifierRegexFilter keeps only cells whose qualifier matches Pattern.
// Not part of the store contract in §6.1, but attached to a BatchDeleter by
// remove_vertex/remove_edge's named-index cleanup, scoped to one element ID.
type QualifierRegexFilter struct {
	Pattern *regexp.Regexp
}

// Match implements Filter.
func (f *QualifierRegexFilter) Match(_, _, qualifier, _ []byte, _ uint64) bool {
	return f.Pattern.Match(qualifier)
}
