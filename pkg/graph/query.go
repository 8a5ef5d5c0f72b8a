package graph

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/orneryd/graphkv/pkg/codec"
	"github.com/orneryd/graphkv/pkg/kv"
)

// VersionedValue is one (timestamp, value) pair returned by
// GetVersionedProperty, newest first.
type VersionedValue struct {
	Timestamp uint64
	Value     any
}

// GetVertex fetches a vertex by ID, per get_vertex(id). A cached vertex
// object is returned as-is; otherwise its row is scanned and decoded, and
// the result is cached for subsequent calls.
func (s *Session) GetVertex(id string) (*Vertex, error) {
	if id == "" {
		return nil, ErrNullId
	}
	if v, ok := s.graph.vertexCache.Get(id); ok {
		return v, nil
	}

	if s.graph.cfg.SkipExistenceChecks {
		v := newVertex(VertexID(id))
		s.preloadListedProperties(KindVertex, id, v)
		s.graph.vertexCache.Put(id, v)
		s.preloadAdjacency(VertexID(id))
		return v, nil
	}

	scanner, err := s.graph.engine.NewScanner(codec.VertexTable)
	if err != nil {
		return nil, wrapStoreError("get_vertex", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(id))
	attachIfPresent(scanner, s.elementFilter())

	v := newVertex(VertexID(id))
	found := false
	seen := make(map[string]bool)
	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return nil, wrapStoreError("get_vertex", err)
		}
		if !ok {
			break
		}
		family := string(cell.Family)
		if family == codec.FamilyExistence {
			found = true
			continue
		}
		if family == codec.FamilyIn || family == codec.FamilyOut {
			continue
		}
		// keys sort newest-version-first; only the first cell seen for a
		// family is the current value.
		if seen[family] {
			continue
		}
		seen[family] = true
		decoded, err := codec.Deserialize(cell.Value)
		if err != nil {
			return nil, wrapStoreError("get_vertex", err)
		}
		v.SetProperty(family, decoded)
	}
	if !found {
		return nil, ErrNotFound
	}

	s.graph.vertexCache.Put(id, v)
	s.preloadAdjacency(VertexID(id))
	return v, nil
}

// preloadListedProperties eagerly fetches cfg.PreloadedProperties onto
// holder when SkipExistenceChecks bypasses the usual whole-row scan that
// would otherwise have loaded every property at once. Errors and misses
// are swallowed; a lazy handle's property cache is best-effort by
// definition.
func (s *Session) preloadListedProperties(kind ElementKind, id string, holder PropertyHolder) {
	for _, key := range s.graph.cfg.PreloadedProperties {
		cell, found, err := s.graph.fetchPrimaryProperty(primaryTable(kind), id, key)
		if err != nil || !found {
			continue
		}
		decoded, err := codec.Deserialize(cell.Value)
		if err != nil {
			continue
		}
		holder.SetProperty(key, decoded)
	}
}

// preloadAdjacency warms the edge cache with v's incident edges along
// cfg.PreloadedEdgeLabels, if configured. Errors are swallowed since
// preloading is a best-effort cache warm, not part of get_vertex's result.
func (s *Session) preloadAdjacency(id VertexID) {
	labels := s.graph.cfg.PreloadedEdgeLabels
	if len(labels) == 0 {
		return
	}
	edges, err := s.GetEdges(id, DirBoth, labels...)
	if err != nil {
		return
	}
	for _, e := range edges {
		s.graph.edgeCache.Put(string(e.ID()), e)
	}
}

// GetEdge fetches an edge by ID, per get_edge(id). Unlike GetVertex,
// SkipExistenceChecks does not short-circuit this into a lazy handle: an
// edge's label and endpoints are immutable identity fields that only a row
// scan can supply, so there is no meaningful "lazy" edge to hand back.
func (s *Session) GetEdge(id string) (*Edge, error) {
	if id == "" {
		return nil, ErrNullId
	}
	if e, ok := s.graph.edgeCache.Get(id); ok {
		return e, nil
	}

	scanner, err := s.graph.engine.NewScanner(codec.EdgeTable)
	if err != nil {
		return nil, wrapStoreError("get_edge", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(id))
	attachIfPresent(scanner, s.elementFilter())

	var inV, outV VertexID
	var label string
	found := false
	var propertyCells []codec.Cell
	seenProperty := make(map[string]bool)

	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return nil, wrapStoreError("get_edge", err)
		}
		if !ok {
			break
		}
		if string(cell.Family) == codec.FamilyExistence {
			found = true
			segments, err := codec.DecodeQualifierSegments(cell.Qualifier, 2)
			if err != nil {
				return nil, wrapStoreError("get_edge", err)
			}
			inV = VertexID(segments[0])
			outV = VertexID(segments[1])
			decoded, err := codec.Deserialize(cell.Value)
			if err != nil {
				return nil, wrapStoreError("get_edge", err)
			}
			label, _ = decoded.(string)
			continue
		}
		// keys sort newest-version-first; only the first cell seen for a
		// family is the current value.
		family := string(cell.Family)
		if seenProperty[family] {
			continue
		}
		seenProperty[family] = true
		propertyCells = append(propertyCells, cell)
	}
	if !found {
		return nil, ErrNotFound
	}

	e := newEdge(EdgeID(id), label, inV, outV)
	for _, cell := range propertyCells {
		decoded, err := codec.Deserialize(cell.Value)
		if err != nil {
			return nil, wrapStoreError("get_edge", err)
		}
		e.SetProperty(string(cell.Family), decoded)
	}

	s.graph.edgeCache.Put(id, e)
	return e, nil
}

// labelFilter builds a ValueRegexFilter matching an adjacency cell's raw
// label value exactly against any of labels, or nil if labels is empty.
func labelFilter(labels []string) kv.Filter {
	if len(labels) == 0 {
		return nil
	}
	alternatives := make([]string, len(labels))
	for i, l := range labels {
		alternatives[i] = "^" + regexp.QuoteMeta(l) + "$"
	}
	return &kv.ValueRegexFilter{Pattern: regexp.MustCompile(strings.Join(alternatives, "|"))}
}

// GetEdges returns the edges incident to vertexID in direction dir,
// optionally restricted to one of labels, per
// get_edges(vertex_id, direction, labels...).
func (s *Session) GetEdges(vertexID VertexID, dir Direction, labels ...string) ([]*Edge, error) {
	families, err := s.graph.adjacencyFamilies(dir)
	if err != nil {
		return nil, err
	}

	var edgeIDs []string
	for _, family := range families {
		ids, err := s.graph.scanAdjacentEdgeIDs(vertexID, family, labels)
		if err != nil {
			return nil, err
		}
		edgeIDs = append(edgeIDs, ids...)
	}

	edges := make([]*Edge, 0, len(edgeIDs))
	for _, eid := range edgeIDs {
		e, err := s.GetEdge(eid)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// GetVertices returns the vertices adjacent to vertexID in direction dir,
// optionally restricted to one of labels, per
// get_vertices(vertex_id, direction, labels...).
func (s *Session) GetVertices(vertexID VertexID, dir Direction, labels ...string) ([]*Vertex, error) {
	families, err := s.graph.adjacencyFamilies(dir)
	if err != nil {
		return nil, err
	}

	var peerIDs []string
	for _, family := range families {
		ids, err := s.graph.scanAdjacentPeerIDs(vertexID, family, labels)
		if err != nil {
			return nil, err
		}
		peerIDs = append(peerIDs, ids...)
	}

	vertices := make([]*Vertex, 0, len(peerIDs))
	for _, pid := range peerIDs {
		v, err := s.GetVertex(pid)
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, v)
	}
	return vertices, nil
}

func (g *Graph) adjacencyFamilies(dir Direction) ([]string, error) {
	switch dir {
	case DirOut:
		return []string{codec.FamilyOut}, nil
	case DirIn:
		return []string{codec.FamilyIn}, nil
	case DirBoth:
		return []string{codec.FamilyOut, codec.FamilyIn}, nil
	default:
		return nil, ErrInvalidFilter
	}
}

func (g *Graph) scanAdjacentEdgeIDs(vertexID VertexID, family string, labels []string) ([]string, error) {
	scanner, err := g.engine.NewScanner(codec.VertexTable)
	if err != nil {
		return nil, wrapStoreError("get_edges", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(vertexID))
	scanner.FetchFamily(family)
	attachIfPresent(scanner, labelFilter(labels))

	var ids []string
	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return nil, wrapStoreError("get_edges", err)
		}
		if !ok {
			break
		}
		segments, err := codec.DecodeQualifierSegments(cell.Qualifier, 2)
		if err != nil {
			return nil, wrapStoreError("get_edges", err)
		}
		ids = append(ids, string(segments[1]))
	}
	return ids, nil
}

func (g *Graph) scanAdjacentPeerIDs(vertexID VertexID, family string, labels []string) ([]string, error) {
	scanner, err := g.engine.NewScanner(codec.VertexTable)
	if err != nil {
		return nil, wrapStoreError("get_vertices", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(vertexID))
	scanner.FetchFamily(family)
	attachIfPresent(scanner, labelFilter(labels))

	var ids []string
	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return nil, wrapStoreError("get_vertices", err)
		}
		if !ok {
			break
		}
		segments, err := codec.DecodeQualifierSegments(cell.Qualifier, 2)
		if err != nil {
			return nil, wrapStoreError("get_vertices", err)
		}
		ids = append(ids, string(segments[0]))
	}
	return ids, nil
}

// GetVerticesByProperty returns every vertex whose key property equals
// value, per get_vertices(key, value). Uses the key index when key is
// auto- or explicitly indexed; otherwise falls back to a filtered
// full-table scan, which requires value's encoded form to be regex-safe.
func (s *Session) GetVerticesByProperty(key string, value any) ([]*Vertex, error) {
	ids, err := s.graph.elementIDsByProperty(KindVertex, key, value)
	if err != nil {
		return nil, err
	}
	vertices := make([]*Vertex, 0, len(ids))
	for _, id := range ids {
		v, err := s.GetVertex(id)
		if err != nil {
			return nil, err
		}
		vertices = append(vertices, v)
	}
	return vertices, nil
}

// GetEdgesByProperty returns every edge whose key property equals value,
// per get_edges(key, value). Same fast/slow-path contract as
// GetVerticesByProperty.
func (s *Session) GetEdgesByProperty(key string, value any) ([]*Edge, error) {
	ids, err := s.graph.elementIDsByProperty(KindEdge, key, value)
	if err != nil {
		return nil, err
	}
	edges := make([]*Edge, 0, len(ids))
	for _, id := range ids {
		e, err := s.GetEdge(id)
		if err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, nil
}

// propertyQueryCacheKey folds the encoded value into the hashed string
// itself, rather than passing it as a QueryCache param: QueryCache.Key was
// built for caching query *plans*, where two calls with the same shape but
// different parameter values should share one cache entry, which is wrong
// for caching a value-dependent result set. Keying off the already-encoded
// bytes (rather than formatting value with %v) keeps the key stable across
// the tagged numeric/bool/string encodings codec.Serialize produces.
func (g *Graph) propertyQueryCacheKey(kind ElementKind, key string, encoded []byte) uint64 {
	return g.propertyQueryCache.Key(fmt.Sprintf("byprop:%d:%s:%s", kind, key, encoded), nil)
}

func (g *Graph) elementIDsByProperty(kind ElementKind, key string, value any) ([]string, error) {
	encoded, err := codec.Serialize(value)
	if err != nil {
		return nil, wrapStoreError("get_by_property", err)
	}

	cacheKey := g.propertyQueryCacheKey(kind, key, encoded)
	if cached, ok := g.propertyQueryCache.Get(cacheKey); ok {
		return cached.([]string), nil
	}

	ids, err := g.scanElementIDsByProperty(kind, key, encoded)
	if err != nil {
		return nil, err
	}
	g.propertyQueryCache.Put(cacheKey, ids)
	return ids, nil
}

func (g *Graph) scanElementIDsByProperty(kind ElementKind, key string, encoded []byte) ([]string, error) {
	if g.isKeyIndexed(kind, key) {
		scanner, err := g.engine.NewScanner(indexTableFor(kind))
		if err != nil {
			return nil, wrapStoreError("get_by_property", err)
		}
		defer scanner.Close()
		scanner.RangeRow(encoded)
		scanner.FetchFamily(key)

		seen := make(map[string]bool)
		var ids []string
		for {
			cell, ok, err := scanner.Next()
			if err != nil {
				return nil, wrapStoreError("get_by_property", err)
			}
			if !ok {
				break
			}
			id := string(cell.Qualifier)
			if seen[id] {
				continue
			}
			seen[id] = true
			ids = append(ids, id)
		}
		return ids, nil
	}

	if !codec.IsRegexSafe(encoded) {
		return nil, ErrUnsupportedFilter
	}

	scanner, err := g.engine.NewBatchScanner(primaryTable(kind), g.cfg.QueryThreadCount)
	if err != nil {
		return nil, wrapStoreError("get_by_property", err)
	}
	scanner.FetchFamily(key)
	scanner.AttachFilter(&kv.ValueRegexFilter{Pattern: regexp.MustCompile("^" + regexp.QuoteMeta(string(encoded)) + "$")})

	var ids []string
	scanErr := scanner.ScanTable(func(cell codec.Cell) error {
		ids = append(ids, string(cell.Row))
		return nil
	})
	if scanErr != nil {
		return nil, wrapStoreError("get_by_property", scanErr)
	}
	return ids, nil
}

// GetProperty returns the decoded value of id's key property, per
// get_property(kind, id, key). A held element's cached property bag is
// consulted first, honoring that kind's per-property TTL policy; only a
// cache miss (including a stale or "never cache" binding) reaches the
// store.
func (s *Session) GetProperty(kind ElementKind, id, key string) (any, bool, error) {
	if id == "" {
		return nil, false, ErrNullId
	}
	if cached, ok := s.graph.cachedProperty(kind, id, key); ok {
		return cached, true, nil
	}

	cell, found, err := s.graph.fetchPrimaryProperty(primaryTable(kind), id, key)
	if err != nil {
		return nil, false, err
	}
	if !found {
		return nil, false, nil
	}
	decoded, err := codec.Deserialize(cell.Value)
	if err != nil {
		return nil, false, wrapStoreError("get_property", err)
	}
	s.graph.recacheProperty(kind, id, key, decoded)
	return decoded, true, nil
}

// GetPropertyKeys lists every property key currently set on id, per
// get_property_keys(kind, id).
func (s *Session) GetPropertyKeys(kind ElementKind, id string) ([]string, error) {
	if id == "" {
		return nil, ErrNullId
	}
	scanner, err := s.graph.engine.NewScanner(primaryTable(kind))
	if err != nil {
		return nil, wrapStoreError("get_property_keys", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(id))

	seen := make(map[string]bool)
	var keys []string
	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return nil, wrapStoreError("get_property_keys", err)
		}
		if !ok {
			break
		}
		family := string(cell.Family)
		if family == codec.FamilyExistence || family == codec.FamilyIn || family == codec.FamilyOut {
			continue
		}
		if seen[family] {
			continue
		}
		seen[family] = true
		keys = append(keys, family)
	}
	sort.Strings(keys)
	return keys, nil
}

// GetVersionedProperty returns every retained version of id's key property,
// newest first, restricted by this session's active timestamp filter (if
// any), per get_versioned_property(kind, id, key).
func (s *Session) GetVersionedProperty(kind ElementKind, id, key string) ([]VersionedValue, error) {
	if id == "" {
		return nil, ErrNullId
	}
	scanner, err := s.graph.engine.NewScanner(primaryTable(kind))
	if err != nil {
		return nil, wrapStoreError("get_versioned_property", err)
	}
	defer scanner.Close()
	scanner.RangeRow([]byte(id))
	scanner.FetchFamily(key)
	attachIfPresent(scanner, s.elementFilter())

	var versions []VersionedValue
	for {
		cell, ok, err := scanner.Next()
		if err != nil {
			return nil, wrapStoreError("get_versioned_property", err)
		}
		if !ok {
			break
		}
		decoded, err := codec.Deserialize(cell.Value)
		if err != nil {
			return nil, wrapStoreError("get_versioned_property", err)
		}
		versions = append(versions, VersionedValue{Timestamp: cell.Timestamp, Value: decoded})
	}
	return versions, nil
}
