package graph

import "github.com/orneryd/graphkv/pkg/codec"

// BulkEdgeSpec describes one edge to add within a BulkAddEdges call.
type BulkEdgeSpec struct {
	ID    string
	OutV  VertexID
	InV   VertexID
	Label string
}

// BulkAddVertices adds every id in ids as a new vertex, sharing one flush
// across the whole batch instead of one per vertex. Grounded on the
// teacher's BulkCreateNodes, adapted to this engine's cell-per-property
// model: a single-document write becomes a single existence cell, and the
// one-transaction-per-call guarantee becomes one shared MultiWriter flush.
// Not atomic across elements — Non-goals still exclude cross-element
// atomicity — so a duplicate ID partway through the batch leaves any
// earlier Add calls already staged in the writer.
func (s *Session) BulkAddVertices(ids []string, ts uint64) ([]*Vertex, error) {
	return s.graph.bulkAddVertices(ids, ts)
}

func (g *Graph) bulkAddVertices(ids []string, ts uint64) ([]*Vertex, error) {
	vertices := make([]*Vertex, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		if id == "" {
			id = NewID()
		}
		if seen[id] {
			return nil, ErrDuplicateId
		}
		seen[id] = true

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
			return nil, wrapStoreError("bulk_add_vertices", err)
		}
		vertices = append(vertices, newVertex(vid))
	}

	if err := g.writer.Flush(); err != nil {
		return nil, wrapStoreError("bulk_add_vertices", err)
	}
	for _, v := range vertices {
		g.vertexCache.Put(string(v.ID()), v)
	}
	return vertices, nil
}

// BulkAddEdges adds every edge in specs, sharing one flush across the whole
// batch. No existence check is performed on either endpoint, matching
// AddEdge's contract. Grounded on the teacher's BulkCreateEdges.
func (s *Session) BulkAddEdges(specs []BulkEdgeSpec, ts uint64) ([]*Edge, error) {
	return s.graph.bulkAddEdges(specs, ts)
}

func (g *Graph) bulkAddEdges(specs []BulkEdgeSpec, ts uint64) ([]*Edge, error) {
	edges := make([]*Edge, 0, len(specs))
	seen := make(map[string]bool, len(specs))

	for _, spec := range specs {
		if spec.Label == "" {
			return nil, ErrNullLabel
		}
		id := spec.ID
		if id == "" {
			id = NewID()
		}
		if seen[id] {
			return nil, ErrDuplicateId
		}
		seen[id] = true
		eid := EdgeID(id)

		lQualifier := codec.EncodeQualifierSegments([]byte(spec.InV), []byte(spec.OutV))
		encodedLabel, err := codec.Serialize(spec.Label)
		if err != nil {
			return nil, wrapStoreError("bulk_add_edges", err)
		}
		edgeMutation := codec.Put(codec.EdgeTable, []byte(id), []byte(codec.FamilyExistence), lQualifier, encodedLabel, ts)

		adjacencyValue := []byte(spec.Label)
		inQualifier := codec.EncodeQualifierSegments([]byte(spec.OutV), []byte(id))
		inMutation := codec.Put(codec.VertexTable, []byte(spec.InV), []byte(codec.FamilyIn), inQualifier, adjacencyValue, ts)

		outQualifier := codec.EncodeQualifierSegments([]byte(spec.InV), []byte(id))
		outMutation := codec.Put(codec.VertexTable, []byte(spec.OutV), []byte(codec.FamilyOut), outQualifier, adjacencyValue, ts)

		for _, m := range [...]codec.Mutation{edgeMutation, inMutation, outMutation} {
			if err := g.writer.Add(m); err != nil {
				return nil, wrapStoreError("bulk_add_edges", err)
			}
		}
		edges = append(edges, newEdge(eid, spec.Label, spec.InV, spec.OutV))
	}

	if err := g.writer.Flush(); err != nil {
		return nil, wrapStoreError("bulk_add_edges", err)
	}
	for _, e := range edges {
		g.edgeCache.Put(string(e.ID()), e)
	}
	return edges, nil
}
