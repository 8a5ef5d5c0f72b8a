package graph

import (
	"crypto/rand"
	"fmt"
)

// NewID produces a fresh random 128-bit identifier as a canonical
// hyphenated hex string, used whenever a caller adds a vertex or edge
// without supplying its own ID. Grounded on the teacher's
// StorageExecutor.generateUUID (pkg/cypher/set_helpers.go).
func NewID() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return fmt.Sprintf("%x-%x-%x-%x-%x", b[0:4], b[4:6], b[6:8], b[8:10], b[10:])
}
