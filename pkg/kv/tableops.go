package kv

import (
	"fmt"

	"github.com/orneryd/graphkv/pkg/codec"
)

// CreateTable registers a logical table under the given name and byte
// prefix. Badger has no native sub-table concept, so "creating" a table is
// bookkeeping: pkg/graph allocates the table byte (six fixed tables plus
// one per named index, via codec.NamedIndexTable) and registers it here so
// DeleteTable/ListTables/split-point hints have somewhere to live.
func (e *Engine) CreateTable(table codec.Table, name string, splitPoints [][]byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrEngineClosed
	}
	if _, exists := e.tables[table]; exists {
		return fmt.Errorf("kv: table %q already exists", name)
	}
	e.tables[table] = tableInfo{name: name, splitPoints: splitPoints}
	return nil
}

// DeleteTable drops a logical table's registration and physically removes
// every cell under its prefix.
func (e *Engine) DeleteTable(table codec.Table) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if _, exists := e.tables[table]; !exists {
		e.mu.Unlock()
		return fmt.Errorf("kv: table %v does not exist", table)
	}
	delete(e.tables, table)
	e.mu.Unlock()

	return e.db.DropPrefix([]byte{byte(table)})
}

// TableName returns the human-readable name a table was registered under.
func (e *Engine) TableName(table codec.Table) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	info, ok := e.tables[table]
	return info.name, ok
}

// ListTables returns every currently registered table.
func (e *Engine) ListTables() map[codec.Table]string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make(map[codec.Table]string, len(e.tables))
	for t, info := range e.tables {
		out[t] = info.name
	}
	return out
}

// SetRetentionPolicy records a per-table max-versions policy consulted by
// Compact. It does not retroactively delete anything on its own.
func (e *Engine) SetRetentionPolicy(table codec.Table, policy RetentionPolicy) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	info, exists := e.tables[table]
	if !exists {
		return fmt.Errorf("kv: table %v does not exist", table)
	}
	info.retentionPolicy = policy
	e.tables[table] = info
	return nil
}

// Compact runs Badger's value-log GC and, for every table with a
// RetentionPolicy.MaxVersions set, drops cell versions beyond that count.
// This is the lazy enforcement point noted in DESIGN.md's Open Questions:
// retention is a maintenance-time concern, not a write-path one.
func (e *Engine) Compact() error {
	e.mu.RLock()
	policies := make(map[codec.Table]RetentionPolicy, len(e.tables))
	for t, info := range e.tables {
		if info.retentionPolicy.MaxVersions > 0 {
			policies[t] = info.retentionPolicy
		}
	}
	e.mu.RUnlock()

	for table, policy := range policies {
		if err := e.trimVersions(table, policy.MaxVersions); err != nil {
			return fmt.Errorf("kv: trimming versions for table %v: %w", table, err)
		}
	}
	return e.RunGC()
}
