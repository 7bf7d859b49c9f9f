package fragment

import (
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
)

// Fragment is the entire in-memory graph: one VertexTable per declared
// vertex label, one AdjacencyTable per declared triplet per direction.
type Fragment struct {
	manager *version.Manager

	vertexTables map[types.VLabel]*VertexTable
	vertexOrder  []types.VLabel

	outAdj map[types.Triplet]*AdjacencyTable
	inAdj  map[types.Triplet]*AdjacencyTable
	edgeOrder []types.Triplet
}

// New builds an empty fragment from a resolved schema configuration.
func New(cfg Config, mgr *version.Manager) (*Fragment, error) {
	f := &Fragment{
		manager:      mgr,
		vertexTables: make(map[types.VLabel]*VertexTable, len(cfg.VertexLabels)),
		outAdj:       make(map[types.Triplet]*AdjacencyTable, len(cfg.EdgeLabels)),
		inAdj:        make(map[types.Triplet]*AdjacencyTable, len(cfg.EdgeLabels)),
	}
	for _, def := range cfg.VertexLabels {
		vt, err := newVertexTable(def, cfg.DataDir)
		if err != nil {
			return nil, err
		}
		f.vertexTables[def.Label] = vt
		f.vertexOrder = append(f.vertexOrder, def.Label)
	}
	for _, def := range cfg.EdgeLabels {
		if def.OutStrategy != types.AdjacencyNone {
			f.outAdj[def.Triplet] = newAdjacencyTable(def.Triplet, def.Name, def.OutStrategy, def.PayloadBytes, mgr)
		}
		if def.InStrategy != types.AdjacencyNone {
			f.inAdj[def.Triplet] = newAdjacencyTable(def.Triplet, def.Name, def.InStrategy, def.PayloadBytes, mgr)
		}
		f.edgeOrder = append(f.edgeOrder, def.Triplet)
	}
	return f, nil
}

// VertexTable returns the table for label, if declared.
func (f *Fragment) VertexTable(label types.VLabel) (*VertexTable, bool) {
	vt, ok := f.vertexTables[label]
	return vt, ok
}

// VertexLabels returns the declared vertex labels in declaration order.
func (f *Fragment) VertexLabels() []types.VLabel { return f.vertexOrder }

// Triplets returns the declared edge triplets in declaration order.
func (f *Fragment) Triplets() []types.Triplet { return f.edgeOrder }

// OutAdjacency returns the outgoing-direction adjacency table for t.
func (f *Fragment) OutAdjacency(t types.Triplet) (*AdjacencyTable, bool) {
	at, ok := f.outAdj[t]
	return at, ok
}

// InAdjacency returns the incoming-direction adjacency table for t.
func (f *Fragment) InAdjacency(t types.Triplet) (*AdjacencyTable, bool) {
	at, ok := f.inAdj[t]
	return at, ok
}

// VertexNum returns vertex_num(label).
func (f *Fragment) VertexNum(label types.VLabel) (int, error) {
	vt, ok := f.vertexTables[label]
	if !ok {
		return 0, types.Errorf(types.CodeNotFound, "fragment.VertexNum", "unknown vertex label %d", label)
	}
	return vt.VertexNum(), nil
}

// AddVertex inserts a new vertex of label with the given oid and initial
// properties, returning its assigned vid. The vertex is recorded as
// always visible; callers that must gate visibility behind a commit
// timestamp use AddVertexAt instead.
func (f *Fragment) AddVertex(label types.VLabel, oid types.OID, props map[string]any) (types.VID, error) {
	vt, ok := f.vertexTables[label]
	if !ok {
		return types.InvalidVID, types.Errorf(types.CodeNotFound, "fragment.AddVertex", "unknown vertex label %d", label)
	}
	return vt.AddVertex(oid, props)
}

// AddVertexAt is AddVertex, recording ts as the timestamp at which the
// vertex becomes visible to a reader (§3 invariant 3).
func (f *Fragment) AddVertexAt(label types.VLabel, oid types.OID, props map[string]any, ts types.Timestamp) (types.VID, error) {
	vt, ok := f.vertexTables[label]
	if !ok {
		return types.InvalidVID, types.Errorf(types.CodeNotFound, "fragment.AddVertexAt", "unknown vertex label %d", label)
	}
	return vt.AddVertexAt(oid, props, ts)
}

// AddEdge adds one edge to both the outgoing table at srcVid and the
// incoming table at dstVid, so the §3 invariant that every edge appears
// exactly once in each direction holds after this call returns. ts
// schedules epoch reclamation for any slab this call replaces.
func (f *Fragment) AddEdge(t types.Triplet, srcVid, dstVid types.VID, payload []byte, ts types.Timestamp) error {
	out, hasOut := f.outAdj[t]
	in, hasIn := f.inAdj[t]
	if !hasOut && !hasIn {
		return types.Errorf(types.CodeNotFound, "fragment.AddEdge", "unknown triplet %s", t)
	}

	if hasOut {
		if err := out.addDirectional(srcVid, dstVid, payload, ts); err != nil {
			return err
		}
	}
	if hasIn {
		if err := in.addDirectional(dstVid, srcVid, payload, ts); err != nil {
			return err
		}
	}
	return nil
}

// addDirectional dispatches to the single- or multiple-strategy writer.
func (at *AdjacencyTable) addDirectional(vid, neighbor types.VID, payload []byte, ts types.Timestamp) error {
	switch at.strategy {
	case types.AdjacencySingle:
		return at.SetSingleAt(vid, neighbor, payload, ts)
	case types.AdjacencyMultiple:
		return at.AddMultiple(vid, neighbor, payload, ts)
	default:
		return types.Errorf(types.CodeInvalidInput, "fragment.AdjacencyTable.addDirectional", "adjacency not materialized for %s", at.Triplet)
	}
}

// GetOutgoingEdges returns an iterator over srcVid's outgoing edges for
// triplet t, ignoring insertion timestamps.
func (f *Fragment) GetOutgoingEdges(t types.Triplet, srcVid types.VID) (*EdgeIterator, error) {
	at, ok := f.outAdj[t]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "fragment.GetOutgoingEdges", "unknown triplet %s", t)
	}
	if at.strategy == types.AdjacencySingle {
		return singleIterator(at, srcVid), nil
	}
	return at.Iterate(srcVid), nil
}

// GetIncomingEdges returns an iterator over dstVid's incoming edges for
// triplet t, ignoring insertion timestamps.
func (f *Fragment) GetIncomingEdges(t types.Triplet, dstVid types.VID) (*EdgeIterator, error) {
	at, ok := f.inAdj[t]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "fragment.GetIncomingEdges", "unknown triplet %s", t)
	}
	if at.strategy == types.AdjacencySingle {
		return singleIterator(at, dstVid), nil
	}
	return at.Iterate(dstVid), nil
}

// GetOutgoingEdgesAt returns an iterator over srcVid's outgoing edges
// for triplet t, skipping any edge not yet visible at readTs.
func (f *Fragment) GetOutgoingEdgesAt(t types.Triplet, srcVid types.VID, readTs types.Timestamp) (*EdgeIterator, error) {
	at, ok := f.outAdj[t]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "fragment.GetOutgoingEdgesAt", "unknown triplet %s", t)
	}
	if at.strategy == types.AdjacencySingle {
		return singleIteratorAt(at, srcVid, readTs), nil
	}
	return at.IterateAt(srcVid, readTs), nil
}

// GetIncomingEdgesAt returns an iterator over dstVid's incoming edges
// for triplet t, skipping any edge not yet visible at readTs.
func (f *Fragment) GetIncomingEdgesAt(t types.Triplet, dstVid types.VID, readTs types.Timestamp) (*EdgeIterator, error) {
	at, ok := f.inAdj[t]
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "fragment.GetIncomingEdgesAt", "unknown triplet %s", t)
	}
	if at.strategy == types.AdjacencySingle {
		return singleIteratorAt(at, dstVid, readTs), nil
	}
	return at.IterateAt(dstVid, readTs), nil
}

// singleIterator adapts the single-strategy inline slot to the same
// EdgeIterator shape multiple-strategy callers already use.
func singleIterator(at *AdjacencyTable, vid types.VID) *EdgeIterator {
	edge, ok := at.GetSingle(vid)
	if !ok {
		return &EdgeIterator{}
	}
	return &EdgeIterator{
		slab: &adjSlab{neighbors: []types.VID{edge.Neighbor}, data: [][]byte{edge.Payload}, size: 1},
	}
}

// singleIteratorAt is singleIterator, honoring readTs visibility.
func singleIteratorAt(at *AdjacencyTable, vid types.VID, readTs types.Timestamp) *EdgeIterator {
	edge, ok := at.GetSingleAt(vid, readTs)
	if !ok {
		return &EdgeIterator{}
	}
	return &EdgeIterator{
		slab: &adjSlab{neighbors: []types.VID{edge.Neighbor}, data: [][]byte{edge.Payload}, size: 1},
	}
}
