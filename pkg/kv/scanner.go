package kv

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/graphkv/pkg/codec"
)

// Scanner reads cells from one table within a single row or row-prefix
// range, grounded on the badger.Txn.NewIterator + ValidForPrefix loops
// repeated throughout the teacher's BadgerEngine (GetNodesByLabel,
// GetOutgoingEdges, AllNodes, ...), generalized to attach arbitrary
// Filters and restrict to specific families.
//
// A Scanner is not safe for concurrent use; open one per goroutine.
type Scanner struct {
	engine  *Engine
	table   codec.Table
	prefix  []byte
	filters []Filter

	families   map[string]struct{}
	allFamilies bool

	txn    *badger.Txn
	it     *badger.Iterator
	closed bool
}

// NewScanner opens a Scanner over table. By default it has no range set;
// call RangeRow or RangeTable before Next, which otherwise returns no cells.
func (e *Engine) NewScanner(table codec.Table) (*Scanner, error) {
	if e.isClosed() {
		return nil, ErrEngineClosed
	}
	txn := e.db.NewTransaction(false)
	opts := badger.DefaultIteratorOptions
	it := txn.NewIterator(opts)
	return &Scanner{engine: e, table: table, txn: txn, it: it, allFamilies: true}, nil
}

// RangeRow restricts the scan to every cell of exactly one row.
func (s *Scanner) RangeRow(row []byte) {
	s.prefix = codec.RowPrefix(s.table, row)
	s.it.Seek(s.prefix)
}

// RangeTable scans every row of the table, for a full-table walk (e.g.
// create_key_index's re-index pass, or BatchScanner.ScanTable).
func (s *Scanner) RangeTable() {
	s.prefix = codec.TablePrefix(s.table)
	s.it.Seek(s.prefix)
}

// FetchFamily restricts returned cells to the given column family. May be
// called multiple times to fetch more than one family. If never called,
// every family in the range is returned.
func (s *Scanner) FetchFamily(family string) {
	if s.families == nil {
		s.families = make(map[string]struct{})
	}
	s.families[family] = struct{}{}
	s.allFamilies = false
}

// AttachFilter adds a server-side predicate; a cell must satisfy every
// attached filter to be returned.
func (s *Scanner) AttachFilter(f Filter) {
	s.filters = append(s.filters, f)
}

// Next advances to the next cell satisfying the scanner's range, family
// selection, and filters, returning ok=false once exhausted.
func (s *Scanner) Next() (cell codec.Cell, ok bool, err error) {
	if s.closed {
		return codec.Cell{}, false, ErrScannerClosed
	}

	for ; s.it.ValidForPrefix(s.prefix); s.it.Next() {
		item := s.it.Item()
		dk, decodeErr := codec.DecodeKey(item.KeyCopy(nil))
		if decodeErr != nil {
			continue
		}

		if !s.allFamilies {
			if _, ok := s.families[string(dk.Family)]; !ok {
				continue
			}
		}

		value, err := item.ValueCopy(nil)
		if err != nil {
			return codec.Cell{}, false, err
		}

		if !s.matchesFilters(dk.Row, dk.Family, dk.Qualifier, value, dk.Timestamp) {
			continue
		}

		cell = codec.Cell{
			Table:     dk.Table,
			Row:       dk.Row,
			Family:    dk.Family,
			Qualifier: dk.Qualifier,
			Value:     value,
			Timestamp: dk.Timestamp,
		}
		s.it.Next()
		return cell, true, nil
	}

	return codec.Cell{}, false, nil
}

func (s *Scanner) matchesFilters(row, family, qualifier, value []byte, ts uint64) bool {
	for _, f := range s.filters {
		if !f.Match(row, family, qualifier, value, ts) {
			return false
		}
	}
	return true
}

// Close releases the scanner's underlying iterator and transaction. Every
// scanner must be closed on all return paths, including failure (§5's
// resource-discipline requirement).
func (s *Scanner) Close() {
	if s.closed {
		return
	}
	s.closed = true
	s.it.Close()
	s.txn.Discard()
}

// bytesHasPrefix reports whether b starts with prefix, the same check
// Scanner gets from badger's ValidForPrefix. Nothing in the package calls
// it.
func bytesHasPrefix(b, prefix []byte) bool {
	return bytes.HasPrefix(b, prefix)
}
