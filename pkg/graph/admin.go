package graph

import "github.com/orneryd/graphkv/pkg/codec"

// Stats is a coarse snapshot of a graph's size, for operational tooling
// rather than query results.
type Stats struct {
	Vertices      int64
	Edges         int64
	NamedIndices  int
	IndexedKeys   int
	LSMBytes      int64
	ValueLogBytes int64
}

// Stats counts vertices and edges by scanning their existence cells, and
// reports the underlying store's on-disk footprint.
func (g *Graph) Stats() (Stats, error) {
	vertices, err := g.countExistenceCells(codec.VertexTable)
	if err != nil {
		return Stats{}, err
	}
	edges, err := g.countExistenceCells(codec.EdgeTable)
	if err != nil {
		return Stats{}, err
	}

	g.mu.RLock()
	namedIndices := len(g.namedIndices)
	indexedKeys := len(g.keyIndices[KindVertex]) + len(g.keyIndices[KindEdge])
	g.mu.RUnlock()

	lsm, vlog := g.engine.Size()
	return Stats{
		Vertices:      vertices,
		Edges:         edges,
		NamedIndices:  namedIndices,
		IndexedKeys:   indexedKeys,
		LSMBytes:      lsm,
		ValueLogBytes: vlog,
	}, nil
}

func (g *Graph) countExistenceCells(table codec.Table) (int64, error) {
	scanner, err := g.engine.NewScanner(table)
	if err != nil {
		return 0, wrapStoreError("stats", err)
	}
	defer scanner.Close()
	scanner.RangeTable()
	scanner.FetchFamily(codec.FamilyExistence)

	var count int64
	for {
		_, ok, err := scanner.Next()
		if err != nil {
			return 0, wrapStoreError("stats", err)
		}
		if !ok {
			break
		}
		count++
	}
	return count, nil
}

// RunGC triggers the store's value-log garbage collection pass.
func (g *Graph) RunGC() error {
	return wrapStoreError("gc", g.engine.RunGC())
}

// Compact runs the store's maintenance pass, applying every table's
// retention policy and trimming excess versions.
func (g *Graph) Compact() error {
	return wrapStoreError("compact", g.engine.Compact())
}
