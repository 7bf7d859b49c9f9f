package txn

import (
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

// UpdateTxn buffers vertex-property overwrites, edge-property
// overwrites, and edge tombstones, and applies them atomically at
// Commit. It never adds vertices or edges.
type UpdateTxn struct {
	frag    *fragment.Fragment
	manager *version.Manager
	writer  *wal.Writer
	ts      types.Timestamp
	ops     []any
	state   State
}

// NewUpdateTxn opens an update transaction at a freshly acquired
// update timestamp.
func NewUpdateTxn(frag *fragment.Fragment, mgr *version.Manager, writer *wal.Writer) *UpdateTxn {
	return &UpdateTxn{frag: frag, manager: mgr, writer: writer, ts: mgr.AcquireUpdateTimestamp(), state: Open}
}

func (t *UpdateTxn) State() State { return t.state }

// UpdateTimestamp returns the timestamp this transaction will commit
// with.
func (t *UpdateTxn) UpdateTimestamp() types.Timestamp { return t.ts }

// SetVertexProperty buffers a vertex property overwrite.
func (t *UpdateTxn) SetVertexProperty(label types.VLabel, oid types.OID, prop string, value any) {
	t.state = Operating
	t.ops = append(t.ops, wal.SetVertexPropOp{Label: label, OID: oid, Prop: prop, Value: value})
}

// SetEdgeProperty buffers an edge payload overwrite.
func (t *UpdateTxn) SetEdgeProperty(tr types.Triplet, srcOID, dstOID types.OID, payload []byte) {
	t.state = Operating
	t.ops = append(t.ops, wal.SetEdgePropOp{Triplet: tr, SrcOID: srcOID, DstOID: dstOID, Payload: payload})
}

// TombstoneEdge buffers an edge deletion.
func (t *UpdateTxn) TombstoneEdge(tr types.Triplet, srcOID, dstOID types.OID) {
	t.state = Operating
	t.ops = append(t.ops, wal.TombstoneEdgeOp{Triplet: tr, SrcOID: srcOID, DstOID: dstOID})
}

// Batch applies a prebuilt delta list within this single update
// transaction (§4.6's batch_commit).
func (t *UpdateTxn) Batch(ops ...any) {
	t.state = Operating
	t.ops = append(t.ops, ops...)
}

// Commit applies every buffered operation -- vertex property overwrites
// and edge payload overwrites go into the version manager's overlay
// store, keyed by update timestamp, so a reader with an older read
// timestamp keeps observing the pre-update value; tombstones mutate the
// fragment's adjacency directly, since there is no live reader whose
// snapshot a tombstone needs to preserve. If any operation fails, the
// transaction aborts atomically and no WAL record is emitted.
func (t *UpdateTxn) Commit() error {
	if err := t.applyOps(); err != nil {
		t.state = Abort
		return err
	}

	body, err := wal.EncodeUpdateBody(t.ops...)
	if err != nil {
		t.state = Abort
		return err
	}
	t.writer.Append(wal.Record{Timestamp: t.ts, Kind: wal.KindUpdate, Body: body})
	if err := t.writer.Flush(); err != nil {
		t.state = Abort
		return err
	}

	t.manager.PublishUpdate(t.ts)
	t.state = Terminal
	return nil
}

// Abort discards the buffered operations; nothing was ever applied.
func (t *UpdateTxn) Abort() {
	t.ops = nil
	t.state = Terminal
}

func (t *UpdateTxn) applyOps() error {
	for _, op := range t.ops {
		switch o := op.(type) {
		case wal.SetVertexPropOp:
			vid, err := lookupVid(t.frag, o.Label, o.OID)
			if err != nil {
				return err
			}
			t.manager.Overlays().Put(vertexPropKey{Label: o.Label, VID: vid, Prop: o.Prop}, t.ts, o.Value)
		case wal.SetEdgePropOp:
			srcVid, err := lookupVid(t.frag, o.Triplet.Src, o.SrcOID)
			if err != nil {
				return err
			}
			dstVid, err := lookupVid(t.frag, o.Triplet.Dst, o.DstOID)
			if err != nil {
				return err
			}
			t.manager.Overlays().Put(edgePropKey{Triplet: o.Triplet, Src: srcVid, Dst: dstVid}, t.ts, o.Payload)
			t.manager.Overlays().Put(edgePropKey{Triplet: o.Triplet, Src: dstVid, Dst: srcVid}, t.ts, o.Payload)
		case wal.TombstoneEdgeOp:
			srcVid, err := lookupVid(t.frag, o.Triplet.Src, o.SrcOID)
			if err != nil {
				return err
			}
			dstVid, err := lookupVid(t.frag, o.Triplet.Dst, o.DstOID)
			if err != nil {
				return err
			}
			if out, ok := t.frag.OutAdjacency(o.Triplet); ok {
				if err := tombstoneDirectional(out, srcVid, dstVid); err != nil {
					return err
				}
			}
			if in, ok := t.frag.InAdjacency(o.Triplet); ok {
				if err := tombstoneDirectional(in, dstVid, srcVid); err != nil {
					return err
				}
			}
		default:
			return types.Errorf(types.CodeInvalidInput, "txn.UpdateTxn.applyOps", "unsupported op %T", op)
		}
	}
	return nil
}

func tombstoneDirectional(at *fragment.AdjacencyTable, vid, neighbor types.VID) error {
	if at.Strategy() == types.AdjacencySingle {
		return at.TombstoneSingle(vid)
	}
	return at.TombstoneMultiple(vid, neighbor)
}
