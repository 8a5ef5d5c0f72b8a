package kv

import "errors"

// Sentinel errors returned by the store adapter. pkg/graph wraps these with
// fmt.Errorf("%w", ...) when surfacing a StoreError (§7) to its own
// callers.
var (
	// ErrEngineClosed is returned by any operation attempted after Close.
	ErrEngineClosed = errors.New("kv: engine closed")
	// ErrScannerClosed is returned by any operation attempted on a closed
	// Scanner, BatchScanner, or BatchDeleter.
	ErrScannerClosed = errors.New("kv: scanner closed")
)
