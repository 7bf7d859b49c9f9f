package txn

import (
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
)

// ReadTxn is a read-only snapshot at a fixed timestamp. Commit and
// Abort both just release the timestamp; neither can fail.
type ReadTxn struct {
	frag    *fragment.Fragment
	manager *version.Manager
	readTs  types.Timestamp
	state   State
}

// NewReadTxn opens a read transaction at a freshly acquired read
// timestamp.
func NewReadTxn(frag *fragment.Fragment, mgr *version.Manager) *ReadTxn {
	return &ReadTxn{frag: frag, manager: mgr, readTs: mgr.AcquireReadTimestamp(), state: Open}
}

func (r *ReadTxn) State() State { return r.state }

// ReadTimestamp returns the timestamp this transaction observes the
// fragment at.
func (r *ReadTxn) ReadTimestamp() types.Timestamp { return r.readTs }

// Commit releases the read timestamp. A read transaction cannot fail
// to commit.
func (r *ReadTxn) Commit() error {
	r.manager.ReleaseRead(uint32(r.readTs))
	r.state = Terminal
	return nil
}

// Abort releases the read timestamp, identically to Commit.
func (r *ReadTxn) Abort() {
	r.manager.ReleaseRead(uint32(r.readTs))
	r.state = Terminal
}

// VertexNum returns vertex_num(label).
func (r *ReadTxn) VertexNum(label types.VLabel) (int, error) { return r.frag.VertexNum(label) }

// Lookup resolves oid to its vid within label, as visible at this
// transaction's read timestamp (§3 invariant 3).
func (r *ReadTxn) Lookup(label types.VLabel, oid types.OID) (types.VID, error) {
	vt, ok := r.frag.VertexTable(label)
	if !ok {
		return types.InvalidVID, types.Errorf(types.CodeNotFound, "txn.ReadTxn.Lookup", "unknown label %d", label)
	}
	return vt.LookupAt(oid, r.readTs)
}

// Iterate yields (vid, oid) for every vertex of label visible at this
// transaction's read timestamp.
func (r *ReadTxn) Iterate(label types.VLabel, yield func(vid types.VID, oid types.OID) bool) error {
	vt, ok := r.frag.VertexTable(label)
	if !ok {
		return types.Errorf(types.CodeNotFound, "txn.ReadTxn.Iterate", "unknown label %d", label)
	}
	vt.IterateAt(r.readTs, yield)
	return nil
}

// GetProperty reads a vertex property as of this transaction's read
// timestamp: an update overlay visible at readTs wins over the
// column's current value (§8 E4).
func (r *ReadTxn) GetProperty(label types.VLabel, vid types.VID, name string) (any, error) {
	vt, ok := r.frag.VertexTable(label)
	if !ok {
		return nil, types.Errorf(types.CodeNotFound, "txn.ReadTxn.GetProperty", "unknown label %d", label)
	}
	key := vertexPropKey{Label: label, VID: vid, Prop: name}
	if v, tombstoned, ok := r.manager.Overlays().Get(key, r.readTs); ok && !tombstoned {
		return v, nil
	}
	return vt.GetProperty(vid, name)
}

// GetOutgoingEdges returns the outgoing edges of srcVid for triplet t,
// with any update-transaction payload overlays visible at readTs
// applied.
func (r *ReadTxn) GetOutgoingEdges(t types.Triplet, srcVid types.VID) (*OverlayEdgeIterator, error) {
	it, err := r.frag.GetOutgoingEdgesAt(t, srcVid, r.readTs)
	if err != nil {
		return nil, err
	}
	return &OverlayEdgeIterator{inner: it, manager: r.manager, readTs: r.readTs, triplet: t, from: srcVid}, nil
}

// GetIncomingEdges returns the incoming edges of dstVid for triplet t,
// with any update-transaction payload overlays visible at readTs
// applied.
func (r *ReadTxn) GetIncomingEdges(t types.Triplet, dstVid types.VID) (*OverlayEdgeIterator, error) {
	it, err := r.frag.GetIncomingEdgesAt(t, dstVid, r.readTs)
	if err != nil {
		return nil, err
	}
	return &OverlayEdgeIterator{inner: it, manager: r.manager, readTs: r.readTs, triplet: t, from: dstVid}, nil
}

// OverlayEdgeIterator wraps a fragment.EdgeIterator, substituting any
// visible edge-payload overlay over the fragment's live payload.
type OverlayEdgeIterator struct {
	inner   *fragment.EdgeIterator
	manager *version.Manager
	readTs  types.Timestamp
	triplet types.Triplet
	from    types.VID
}

// Next advances the iterator, returning false when exhausted.
func (it *OverlayEdgeIterator) Next() (fragment.EdgeView, bool) {
	edge, ok := it.inner.Next()
	if !ok {
		return fragment.EdgeView{}, false
	}
	key := edgePropKey{Triplet: it.triplet, Src: it.from, Dst: edge.Neighbor}
	if payload, tombstoned, ok := it.manager.Overlays().Get(key, it.readTs); ok && !tombstoned {
		edge.Payload = payload.([]byte)
	}
	return edge, true
}
