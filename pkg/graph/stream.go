package graph

import (
	"context"
	"errors"

	"github.com/orneryd/graphkv/pkg/codec"
)

// StreamVertices reconstructs and visits every vertex in the graph, one row
// at a time, without loading the whole table into memory. Returning
// ErrStopStreaming from fn ends iteration early without that counting as a
// failure; any other error aborts the scan and is returned as-is. Grounded
// on the teacher's BadgerEngine.StreamNodes, adapted to decode this
// engine's per-property cells into a Vertex instead of a single JSON blob.
func (g *Graph) StreamVertices(ctx context.Context, fn func(*Vertex) error) error {
	scanner, err := g.engine.NewScanner(codec.VertexTable)
	if err != nil {
		return wrapStoreError("stream_vertices", err)
	}
	defer scanner.Close()
	scanner.RangeTable()

	var current *Vertex
	var currentID string
	var seen map[string]bool
	sawExistence := false

	emit := func() (stop bool, err error) {
		if current == nil || !sawExistence {
			return false, nil
		}
		if err := fn(current); err != nil {
			if errors.Is(err, ErrStopStreaming) {
				return true, nil
			}
			return true, err
		}
		return false, nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cell, ok, err := scanner.Next()
		if err != nil {
			return wrapStoreError("stream_vertices", err)
		}
		if !ok {
			break
		}

		id := string(cell.Row)
		if id != currentID {
			if stop, err := emit(); stop {
				return err
			}
			current = newVertex(VertexID(id))
			currentID = id
			seen = make(map[string]bool)
			sawExistence = false
		}

		switch family := string(cell.Family); family {
		case codec.FamilyExistence:
			sawExistence = true
		case codec.FamilyIn, codec.FamilyOut:
			// adjacency cells are not part of a vertex's property set.
		default:
			// keys sort newest-version-first; only the first cell seen for
			// a family is the current value.
			if seen[family] {
				continue
			}
			seen[family] = true
			decoded, err := codec.Deserialize(cell.Value)
			if err != nil {
				return wrapStoreError("stream_vertices", err)
			}
			current.SetProperty(family, decoded)
		}
	}

	_, err = emit()
	return err
}

// StreamEdges reconstructs and visits every edge in the graph, one row at a
// time. Same early-stop contract as StreamVertices. Grounded on the
// teacher's BadgerEngine.StreamEdges.
func (g *Graph) StreamEdges(ctx context.Context, fn func(*Edge) error) error {
	scanner, err := g.engine.NewScanner(codec.EdgeTable)
	if err != nil {
		return wrapStoreError("stream_edges", err)
	}
	defer scanner.Close()
	scanner.RangeTable()

	var currentID string
	var inV, outV VertexID
	var label string
	var propertyCells []codec.Cell
	var seenProperty map[string]bool
	sawExistence := false

	emit := func() (stop bool, err error) {
		if !sawExistence {
			return false, nil
		}
		e := newEdge(EdgeID(currentID), label, inV, outV)
		for _, cell := range propertyCells {
			decoded, err := codec.Deserialize(cell.Value)
			if err != nil {
				return true, wrapStoreError("stream_edges", err)
			}
			e.SetProperty(string(cell.Family), decoded)
		}
		if err := fn(e); err != nil {
			if errors.Is(err, ErrStopStreaming) {
				return true, nil
			}
			return true, err
		}
		return false, nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		cell, ok, err := scanner.Next()
		if err != nil {
			return wrapStoreError("stream_edges", err)
		}
		if !ok {
			break
		}

		id := string(cell.Row)
		if id != currentID {
			if stop, err := emit(); stop {
				return err
			}
			currentID = id
			sawExistence = false
			propertyCells = nil
			seenProperty = make(map[string]bool)
		}

		if string(cell.Family) == codec.FamilyExistence {
			sawExistence = true
			segments, err := codec.DecodeQualifierSegments(cell.Qualifier, 2)
			if err != nil {
				return wrapStoreError("stream_edges", err)
			}
			inV = VertexID(segments[0])
			outV = VertexID(segments[1])
			decoded, err := codec.Deserialize(cell.Value)
			if err != nil {
				return wrapStoreError("stream_edges", err)
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

	_, err = emit()
	return err
}
