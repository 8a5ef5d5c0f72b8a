package graph

import (
	"regexp"

	"github.com/orneryd/graphkv/pkg/codec"
	"github.com/orneryd/graphkv/pkg/kv"
)

func primaryTable(kind ElementKind) codec.Table {
	if kind == KindVertex {
		return codec.VertexTable
	}
	return codec.EdgeTable
}

func indexTableFor(kind ElementKind) codec.Table {
	if kind == KindVertex {
		return codec.VertexIndexTable
	}
	return codec.EdgeIndexTable
}

func validatePropertyKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if key == reservedKeyID || key == reservedKeyLabel {
		return ErrReservedKey
	}
	return nil
}

func (g *Graph) isKeyIndexed(kind ElementKind, key string) bool {
	if g.cfg.IndexableGraphDisabled {
		return false
	}
	if g.cfg.AutoIndex {
		return true
	}
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.keyIndices[kind][key]
}

// AddVertex creates a new vertex, generating an ID when none is supplied,
// per add_vertex(id?, ts?).
func (s *Session) AddVertex(id string, ts uint64) (*Vertex, error) {
	return s.graph.addVertex(id, ts)
}

func (g *Graph) addVertex(id string, ts uint64) (*Vertex, error) {
	if id == "" {
		id = NewID()
	}
	vid := VertexID(id)

	if !g.cfg.SkipExistenceChecks {
		exists, err := g.vertexExists(vid)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, ErrDuplicateId
		}
	}

	mutation := codec.Put(codec.VertexTable, []byte(id), []byte(codec.FamilyExistence), []byte(codec.QualifierExists), []byte{}, ts)
	if err := g.writer.Add(mutation); err != nil {
		return nil, wrapStoreError("add_vertex", err)
	}
	if err := g.maybeAutoFlush(); err != nil {
		return nil, err
	}

	v := newVertex(vid)
	g.vertexCache.Put(id, v)
	return v, nil
}

func (g *Graph) vertexExists(id VertexID) (bool, error) {
	scanner, err := g.engine.NewScanner(codec.VertexTable)
	if err != nil {
		return false, wrapStoreError("add_vertex", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(id))
	scanner.FetchFamily(codec.FamilyExistence)
	_, ok, err := scanner.Next()
	if err != nil {
		return false, wrapStoreError("add_vertex", err)
	}
	return ok, nil
}

// RemoveVertex evicts v from cache, cascades removal to every incident
// edge, sweeps named-index references, and range-deletes v's entire row,
// per remove_vertex(v, ts?).
func (s *Session) RemoveVertex(v *Vertex, ts uint64) error {
	return s.graph.removeVertex(v.ID(), ts)
}

func (g *Graph) removeVertex(id VertexID, ts uint64) error {
	g.vertexCache.Evict(string(id))
	if err := g.dropFromNamedIndices(KindVertex, string(id)); err != nil {
		return err
	}

	scanner, err := g.engine.NewScanner(codec.VertexTable)
	if err != nil {
		return wrapStoreError("remove_vertex", err)
	}
	scanner.RangeRow([]byte(id))

	var peerDeletes, propertyIndexDeletes []codec.Mutation
	var edgeIDs []EdgeID
	sawExistence := false

	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			scanner.Close()
			return wrapStoreError("remove_vertex", err)
		}
		if !ok {
			break
		}

		family := string(cell.Family)
		switch family {
		case codec.FamilyExistence:
			sawExistence = true
		case codec.FamilyIn, codec.FamilyOut:
			segments, decodeErr := codec.DecodeQualifierSegments(cell.Qualifier, 2)
			if decodeErr != nil {
				scanner.Close()
				return wrapStoreError("remove_vertex", decodeErr)
			}
			otherID := segments[0]
			edgeID := EdgeID(segments[1])
			edgeIDs = append(edgeIDs, edgeID)

			peerFamily := codec.FamilyOut
			if family == codec.FamilyOut {
				peerFamily = codec.FamilyIn
			}
			// the peer's adjacency cell was written in the same batch as
			// this one (add_edge writes all three cells together), so it
			// shares this cell's timestamp.
			peerQualifier := codec.EncodeQualifierSegments([]byte(id), []byte(edgeID))
			peerDeletes = append(peerDeletes, codec.Del(codec.VertexTable, otherID, []byte(peerFamily), peerQualifier, cell.Timestamp))
		default:
			// property cell: its matching index cell (if indexed) was
			// written in the same flush batch, so it shares this
			// timestamp too.
			propertyIndexDeletes = append(propertyIndexDeletes, codec.Del(codec.VertexIndexTable, cell.Value, cell.Family, []byte(id), cell.Timestamp))
		}
	}
	scanner.Close()

	if !sawExistence {
		return ErrNotFound
	}

	for _, m := range peerDeletes {
		if err := g.writer.Add(m); err != nil {
			return wrapStoreError("remove_vertex", err)
		}
	}
	for _, m := range propertyIndexDeletes {
		if err := g.writer.Add(m); err != nil {
			return wrapStoreError("remove_vertex", err)
		}
	}
	if err := g.writer.Flush(); err != nil {
		return wrapStoreError("remove_vertex", err)
	}

	// Sweep key-index cells for every cascade-removed edge unless the
	// legacy leak is explicitly requested (DESIGN.md's resolution of the
	// source's open question on this asymmetry).
	sweepCascadedEdgeIndex := !g.cfg.LegacyEdgeIndexLeak
	seen := make(map[EdgeID]bool, len(edgeIDs))
	for _, eid := range edgeIDs {
		if seen[eid] {
			continue
		}
		seen[eid] = true
		g.edgeCache.Evict(string(eid))
		if err := g.removeEdgeRow(eid, sweepCascadedEdgeIndex); err != nil {
			return err
		}
	}

	deleter, err := g.engine.NewBatchDeleter(codec.VertexTable, g.cfg.QueryThreadCount)
	if err != nil {
		return wrapStoreError("remove_vertex", err)
	}
	defer deleter.Close()
	if err := deleter.DeleteRow([]byte(id)); err != nil {
		return wrapStoreError("remove_vertex", err)
	}
	g.propertyQueryCache.Clear()
	return nil
}

// removeEdgeRow deletes an edge's row from the edge table, optionally
// sweeping its property cells' index entries first. Shared by the
// vertex-removal cascade and by the public RemoveEdge below.
func (g *Graph) removeEdgeRow(id EdgeID, sweepPropertyIndex bool) error {
	scanner, err := g.engine.NewScanner(codec.EdgeTable)
	if err != nil {
		return wrapStoreError("remove_edge", err)
	}
	scanner.RangeRow([]byte(id))

	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			scanner.Close()
			return wrapStoreError("remove_edge", err)
		}
		if !ok {
			break
		}
		if string(cell.Family) == codec.FamilyExistence {
			continue
		}
		if sweepPropertyIndex {
			if err := g.writer.Add(codec.Del(codec.EdgeIndexTable, cell.Value, cell.Family, []byte(id), cell.Timestamp)); err != nil {
				scanner.Close()
				return wrapStoreError("remove_edge", err)
			}
		}
	}
	scanner.Close()

	if err := g.writer.Flush(); err != nil {
		return wrapStoreError("remove_edge", err)
	}

	deleter, err := g.engine.NewBatchDeleter(codec.EdgeTable, g.cfg.QueryThreadCount)
	if err != nil {
		return wrapStoreError("remove_edge", err)
	}
	defer deleter.Close()
	if err := deleter.DeleteRow([]byte(id)); err != nil {
		return wrapStoreError("remove_edge", err)
	}
	if sweepPropertyIndex {
		g.propertyQueryCache.Clear()
	}
	return nil
}

// AddEdge creates a new edge between outV and inV, per
// add_edge(id?, out_v, in_v, label, ts?). No existence check is performed
// on either endpoint.
func (s *Session) AddEdge(id string, outV, inV VertexID, label string, ts uint64) (*Edge, error) {
	return s.graph.addEdge(id, outV, inV, label, ts)
}

func (g *Graph) addEdge(id string, outV, inV VertexID, label string, ts uint64) (*Edge, error) {
	if label == "" {
		return nil, ErrNullLabel
	}
	if id == "" {
		id = NewID()
	}
	eid := EdgeID(id)

	lQualifier := codec.EncodeQualifierSegments([]byte(inV), []byte(outV))
	encodedLabel, err := codec.Serialize(label)
	if err != nil {
		return nil, wrapStoreError("add_edge", err)
	}
	edgeMutation := codec.Put(codec.EdgeTable, []byte(id), []byte(codec.FamilyExistence), lQualifier, encodedLabel, ts)

	adjacencyValue := []byte(label)
	inQualifier := codec.EncodeQualifierSegments([]byte(outV), []byte(id))
	inMutation := codec.Put(codec.VertexTable, []byte(inV), []byte(codec.FamilyIn), inQualifier, adjacencyValue, ts)

	outQualifier := codec.EncodeQualifierSegments([]byte(inV), []byte(id))
	outMutation := codec.Put(codec.VertexTable, []byte(outV), []byte(codec.FamilyOut), outQualifier, adjacencyValue, ts)

	for _, m := range [...]codec.Mutation{edgeMutation, inMutation, outMutation} {
		if err := g.writer.Add(m); err != nil {
			return nil, wrapStoreError("add_edge", err)
		}
	}
	if err := g.maybeAutoFlush(); err != nil {
		return nil, err
	}

	e := newEdge(eid, label, inV, outV)
	g.edgeCache.Put(id, e)
	return e, nil
}

// RemoveEdge drops e from named indices, sweeps its property-index cells,
// removes both endpoint adjacency cells, and range-deletes its row, per
// remove_edge(e, ts?).
func (s *Session) RemoveEdge(e *Edge, ts uint64) error {
	return s.graph.removeEdge(e.ID(), ts)
}

func (g *Graph) removeEdge(id EdgeID, ts uint64) error {
	g.edgeCache.Evict(string(id))
	if err := g.dropFromNamedIndices(KindEdge, string(id)); err != nil {
		return err
	}

	scanner, err := g.engine.NewScanner(codec.EdgeTable)
	if err != nil {
		return wrapStoreError("remove_edge", err)
	}
	scanner.RangeRow([]byte(id))

	var inV, outV VertexID
	var lQualifier []byte
	var lTimestamp uint64
	found := false

	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			scanner.Close()
			return wrapStoreError("remove_edge", err)
		}
		if !ok {
			break
		}

		if string(cell.Family) == codec.FamilyExistence {
			found = true
			lQualifier = cell.Qualifier
			lTimestamp = cell.Timestamp
			segments, decodeErr := codec.DecodeQualifierSegments(cell.Qualifier, 2)
			if decodeErr != nil {
				scanner.Close()
				return wrapStoreError("remove_edge", decodeErr)
			}
			inV = VertexID(segments[0])
			outV = VertexID(segments[1])
			continue
		}

		// Use the same timestamp-handling for both the property-cell
		// branch and (below) the endpoint/L-cell branch, per DESIGN.md's
		// resolution of §9's inverted-conditional bug.
		if err := g.writer.Add(codec.Del(codec.EdgeIndexTable, cell.Value, cell.Family, []byte(id), cell.Timestamp)); err != nil {
			scanner.Close()
			return wrapStoreError("remove_edge", err)
		}
	}
	scanner.Close()

	if !found {
		return ErrNotFound
	}

	inQualifier := codec.EncodeQualifierSegments([]byte(outV), []byte(id))
	outQualifier := codec.EncodeQualifierSegments([]byte(inV), []byte(id))
	if err := g.writer.Add(codec.Del(codec.VertexTable, []byte(inV), []byte(codec.FamilyIn), inQualifier, lTimestamp)); err != nil {
		return wrapStoreError("remove_edge", err)
	}
	if err := g.writer.Add(codec.Del(codec.VertexTable, []byte(outV), []byte(codec.FamilyOut), outQualifier, lTimestamp)); err != nil {
		return wrapStoreError("remove_edge", err)
	}
	if err := g.writer.Add(codec.Del(codec.EdgeTable, []byte(id), []byte(codec.FamilyExistence), lQualifier, lTimestamp)); err != nil {
		return wrapStoreError("remove_edge", err)
	}
	if err := g.writer.Flush(); err != nil {
		return wrapStoreError("remove_edge", err)
	}

	deleter, err := g.engine.NewBatchDeleter(codec.EdgeTable, g.cfg.QueryThreadCount)
	if err != nil {
		return wrapStoreError("remove_edge", err)
	}
	defer deleter.Close()
	if err := deleter.DeleteRow([]byte(id)); err != nil {
		return wrapStoreError("remove_edge", err)
	}
	g.propertyQueryCache.Clear()
	return nil
}

// SetProperty validates key, serializes value, maintains the key index if
// key is auto- or explicitly indexed, and writes the primary property
// cell, per set_property(kind, id, key, value, ts?).
func (s *Session) SetProperty(kind ElementKind, id string, key string, value any, ts uint64) error {
	return s.graph.setProperty(kind, id, key, value, ts)
}

func (g *Graph) setProperty(kind ElementKind, id string, key string, value any, ts uint64) error {
	if id == "" {
		return ErrNullId
	}
	if err := validatePropertyKey(key); err != nil {
		return err
	}
	if value == nil {
		return ErrNullProperty
	}

	encoded, err := codec.Serialize(value)
	if err != nil {
		return wrapStoreError("set_property", err)
	}

	table := primaryTable(kind)
	indexTable := indexTableFor(kind)

	if g.isKeyIndexed(kind, key) {
		old, found, err := g.fetchPrimaryProperty(table, id, key)
		if err != nil {
			return err
		}
		if found {
			if err := g.deleteIndexCell(indexTable, key, old.Value, id); err != nil {
				return err
			}
		}
		if err := g.putIndexCell(indexTable, key, encoded, id, ts); err != nil {
			return err
		}
	}

	mutation := codec.Put(table, []byte(id), []byte(key), []byte{}, encoded, ts)
	if err := g.writer.Add(mutation); err != nil {
		return wrapStoreError("set_property", err)
	}
	if err := g.maybeAutoFlush(); err != nil {
		return err
	}

	g.recacheProperty(kind, id, key, value)
	g.propertyQueryCache.Clear()
	return nil
}

// RemoveProperty rejects the reserved "label" key, then deletes the primary
// and (if indexed) index cell for key, returning the decoded old value if
// one was present, per remove_property(kind, id, key).
func (s *Session) RemoveProperty(kind ElementKind, id string, key string) (any, error) {
	return s.graph.removeProperty(kind, id, key)
}

func (g *Graph) removeProperty(kind ElementKind, id string, key string) (any, error) {
	if id == "" {
		return nil, ErrNullId
	}
	if key == reservedKeyLabel {
		return nil, ErrReservedKey
	}
	if key == "" {
		return nil, ErrEmptyKey
	}

	table := primaryTable(kind)
	cell, found, err := g.fetchPrimaryProperty(table, id, key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	decoded, err := codec.Deserialize(cell.Value)
	if err != nil {
		return nil, wrapStoreError("remove_property", err)
	}

	if err := g.writer.Add(codec.Del(table, cell.Row, cell.Family, cell.Qualifier, cell.Timestamp)); err != nil {
		return nil, wrapStoreError("remove_property", err)
	}
	if g.isKeyIndexed(kind, key) {
		if err := g.deleteIndexCell(indexTableFor(kind), key, cell.Value, id); err != nil {
			return nil, err
		}
	}
	if err := g.maybeAutoFlush(); err != nil {
		return nil, err
	}

	switch kind {
	case KindVertex:
		if v, ok := g.vertexCache.Get(id); ok {
			v.RemoveProperty(key)
		}
	case KindEdge:
		if e, ok := g.edgeCache.Get(id); ok {
			e.RemoveProperty(key)
		}
	}

	g.propertyQueryCache.Clear()
	return decoded, nil
}

// recacheProperty re-caches value onto id's held element object, if any,
// unless key's resolved TTL is negative ("never cache"), per
// Config.PropertyCacheTTL's -1 sentinel.
func (g *Graph) recacheProperty(kind ElementKind, id, key string, value any) {
	switch kind {
	case KindVertex:
		if g.vertexPropertyTTL.TTLFor(key) < 0 {
			return
		}
		if v, ok := g.vertexCache.Get(id); ok {
			v.SetProperty(key, value)
		}
	case KindEdge:
		if g.edgePropertyTTL.TTLFor(key) < 0 {
			return
		}
		if e, ok := g.edgeCache.Get(id); ok {
			e.SetProperty(key, value)
		}
	}
}

// cachedProperty returns a fresh, pre-decoded property binding from id's
// held element object, honoring that kind's per-property TTL policy. A miss
// here means nothing more than "consult the store" — it does not imply the
// property is absent.
func (g *Graph) cachedProperty(kind ElementKind, id, key string) (any, bool) {
	switch kind {
	case KindVertex:
		v, ok := g.vertexCache.Get(id)
		if !ok {
			return nil, false
		}
		return v.propertyFresh(key, g.vertexPropertyTTL.TTLFor(key))
	case KindEdge:
		e, ok := g.edgeCache.Get(id)
		if !ok {
			return nil, false
		}
		return e.propertyFresh(key, g.edgePropertyTTL.TTLFor(key))
	default:
		return nil, false
	}
}

// fetchPrimaryProperty returns the single cell at (id, key) in table, if
// present.
func (g *Graph) fetchPrimaryProperty(table codec.Table, id, key string) (codec.Cell, bool, error) {
	scanner, err := g.engine.NewScanner(table)
	if err != nil {
		return codec.Cell{}, false, wrapStoreError("get_property", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(id))
	scanner.FetchFamily(key)
	cell, ok, err := scanner.Next()
	if err != nil {
		return codec.Cell{}, false, wrapStoreError("get_property", err)
	}
	return cell, ok, nil
}

// deleteIndexCell removes every version of the index cell at
// (encodedValue, key, elementID) in table.
func (g *Graph) deleteIndexCell(table codec.Table, key string, encodedValue []byte, elementID string) error {
	scanner, err := g.engine.NewScanner(table)
	if err != nil {
		return wrapStoreError("index_cleanup", err)
	}
	defer scanner.Close()
	scanner.RangeRow(encodedValue)
	scanner.FetchFamily(key)

	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return wrapStoreError("index_cleanup", err)
		}
		if !ok {
			break
		}
		if string(cell.Qualifier) != elementID {
			continue
		}
		if err := g.writer.Add(codec.Del(table, cell.Row, cell.Family, cell.Qualifier, cell.Timestamp)); err != nil {
			return wrapStoreError("index_cleanup", err)
		}
	}
	return nil
}

// putIndexCell writes an index cell mapping encodedValue back to elementID.
func (g *Graph) putIndexCell(table codec.Table, key string, encodedValue []byte, elementID string, ts uint64) error {
	mutation := codec.Put(table, encodedValue, []byte(key), []byte(elementID), []byte{}, ts)
	return wrapStoreError("index_put", g.writer.Add(mutation))
}

// dropFromNamedIndices clears every named index of kind of any cell
// qualified by elementID, per §4.5: "on remove_vertex/remove_edge, all
// named indices are cleared of references to the element via per-index
// range-delete with a ... predicate matching qualifiers ... the element
// ID."
func (g *Graph) dropFromNamedIndices(kind ElementKind, elementID string) error {
	g.mu.RLock()
	tables := make([]codec.Table, 0, len(g.namedIndices))
	for _, rec := range g.namedIndices {
		if rec.kind == kind {
			tables = append(tables, rec.table)
		}
	}
	g.mu.RUnlock()

	pattern := regexp.MustCompile("^" + regexp.QuoteMeta(elementID) + "$")
	for _, t := range tables {
		deleter, err := g.engine.NewBatchDeleter(t, g.cfg.QueryThreadCount)
		if err != nil {
			return wrapStoreError("index_cleanup", err)
		}
		deleter.AttachFilter(&kv.QualifierRegexFilter{Pattern: pattern})
		err = deleter.DeleteTable()
		deleter.Close()
		if err != nil {
			return wrapStoreError("index_cleanup", err)
		}
	}
	return nil
}
