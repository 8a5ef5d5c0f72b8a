// Package kv is a thin store adapter over an embedded sorted key-value
// engine, presenting exactly the capability list graph core consumes:
// scanners, batch scanners, multi-table writers, batch deleters, and table
// provisioning (§6.1).
//
// The adapter is grounded on the teacher's BadgerEngine
// (pkg/storage/badger.go): same embedded-Badger choice, same
// low-memory-friendly tuning defaults, same open/close/sync/GC lifecycle.
// Where the teacher bakes a single document schema (Node/Edge JSON blobs)
// directly into the engine, this adapter stays schema-agnostic: callers
// hand it already-encoded cells built by pkg/codec.
package kv

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/graphkv/pkg/codec"
)

// Options configures the underlying Badger database.
type Options struct {
	// DataDir is the directory for storing data files. Required unless
	// InMemory is set.
	DataDir string

	// InMemory runs Badger in memory-only mode. Useful for tests.
	InMemory bool

	// SyncWrites forces fsync after each write. Slower but durable.
	SyncWrites bool

	// Logger receives Badger's internal logging. Nil silences it.
	Logger badger.Logger

	// LowMemory applies reduced buffer sizes for constrained environments.
	LowMemory bool
}

// Engine wraps a *badger.DB and tracks the set of logical tables
// provisioned against it, since Badger itself has no sub-table concept —
// every logical table shares one physical keyspace, namespaced by the
// table byte pkg/codec assigns it.
type Engine struct {
	db *badger.DB

	mu     sync.RWMutex
	tables map[codec.Table]tableInfo
	closed bool
}

type tableInfo struct {
	name            string
	splitPoints     [][]byte
	retentionPolicy RetentionPolicy
}

// RetentionPolicy bounds how many versions of a cell the engine keeps
// around during maintenance, per §6.1's "configurable max-versions
// retention per table". Zero means unlimited (the default); enforcement
// happens lazily during Compact, not on the write hot path, keeping
// single-cell writes O(1) per §5's concurrency model.
type RetentionPolicy struct {
	MaxVersions int
}

// Open creates or opens a persistent Engine at dataDir with default
// tuning.
func Open(dataDir string) (*Engine, error) {
	return OpenWithOptions(Options{DataDir: dataDir})
}

// OpenInMemory creates an Engine backed entirely by RAM. Data does not
// survive process exit; intended for tests.
func OpenInMemory() (*Engine, error) {
	return OpenWithOptions(Options{InMemory: true})
}

// OpenWithOptions creates or opens an Engine with full control over
// Badger's tuning knobs.
func OpenWithOptions(opts Options) (*Engine, error) {
	badgerOpts := badger.DefaultOptions(opts.DataDir)

	if opts.InMemory {
		badgerOpts = badgerOpts.WithInMemory(true)
	}
	if opts.SyncWrites {
		badgerOpts = badgerOpts.WithSyncWrites(true)
	}
	if opts.Logger != nil {
		badgerOpts = badgerOpts.WithLogger(opts.Logger)
	} else {
		badgerOpts = badgerOpts.WithLogger(nil)
	}

	if opts.LowMemory {
		badgerOpts = badgerOpts.
			WithMemTableSize(16 << 20).
			WithValueLogFileSize(64 << 20).
			WithNumMemtables(2).
			WithNumLevelZeroTables(2).
			WithNumLevelZeroTablesStall(4).
			WithValueThreshold(1024).
			WithBlockCacheSize(32 << 20).
			WithIndexCacheSize(16 << 20)
	}

	db, err := badger.Open(badgerOpts)
	if err != nil {
		return nil, fmt.Errorf("kv: opening badger database: %w", err)
	}

	return &Engine{
		db:     db,
		tables: make(map[codec.Table]tableInfo),
	}, nil
}

// isClosed reports whether the engine has been closed, under its own lock.
func (e *Engine) isClosed() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.closed
}

// Close flushes and releases the underlying database. Safe to call once;
// a second call returns nil without effect.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.db.Close()
}

// Sync forces pending writes to stable storage.
func (e *Engine) Sync() error {
	return e.db.Sync()
}

// RunGC reclaims space from Badger's value log. Returns nil if nothing
// needed collecting.
func (e *Engine) RunGC() error {
	err := e.db.RunValueLogGC(0.5)
	if err == badger.ErrNoRewrite {
		return nil
	}
	return err
}

// Size reports the approximate on-disk size of the LSM tree and value log.
func (e *Engine) Size() (lsm, vlog int64) {
	return e.db.Size()
}
