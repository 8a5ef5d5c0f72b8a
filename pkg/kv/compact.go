package kv

import (
	"bytes"

	"github.com/dgraph-io/badger/v4"

	"github.com/orneryd/graphkv/pkg/codec"
)

// trimVersions walks every cell in table and deletes all but the
// maxVersions newest physical versions of each (row, family, qualifier)
// group. Versions of the same logical cell are contiguous in key order
// (they differ only in their trailing inverted-timestamp suffix) and sort
// newest-first, so a single forward pass with a running group key suffices.
func (e *Engine) trimVersions(table codec.Table, maxVersions int) error {
	prefix := codec.TablePrefix(table)

	var toDelete [][]byte
	err := e.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		var groupKey []byte
		count := 0

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().KeyCopy(nil)
			if len(key) < tsSizeExported {
				continue
			}
			cellIdentity := key[:len(key)-tsSizeExported]

			if bytes.Equal(cellIdentity, groupKey) {
				count++
			} else {
				groupKey = cellIdentity
				count = 1
			}

			if count > maxVersions {
				toDelete = append(toDelete, key)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if len(toDelete) == 0 {
		return nil
	}

	wb := e.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range toDelete {
		if err := wb.Delete(key); err != nil {
			return err
		}
	}
	return wb.Flush()
}

// tsSizeExported mirrors codec's internal timestamp suffix width; kept as
// its own constant here since pkg/codec does not export it.
const tsSizeExported = 8
