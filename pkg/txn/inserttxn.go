package txn

import (
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

// BatchInsertTxn buffers an ordered sequence of AddVertex/AddEdge
// operations and applies the whole batch atomically at Commit.
type BatchInsertTxn struct {
	frag    *fragment.Fragment
	manager *version.Manager
	writer  *wal.Writer
	ts      types.Timestamp
	ops     []any
	state   State
}

// NewBatchInsertTxn opens a batch-insert transaction at a freshly
// acquired insert timestamp.
func NewBatchInsertTxn(frag *fragment.Fragment, mgr *version.Manager, writer *wal.Writer) *BatchInsertTxn {
	return &BatchInsertTxn{frag: frag, manager: mgr, writer: writer, ts: mgr.AcquireInsertTimestamp(), state: Open}
}

func (t *BatchInsertTxn) State() State { return t.state }

// InsertTimestamp returns the timestamp this transaction will commit
// with.
func (t *BatchInsertTxn) InsertTimestamp() types.Timestamp { return t.ts }

// AddVertex buffers a vertex insert.
func (t *BatchInsertTxn) AddVertex(label types.VLabel, oid types.OID, props map[string]any) {
	t.state = Operating
	t.ops = append(t.ops, wal.AddVertexOp{Label: label, OID: oid, Props: props})
}

// AddEdge buffers an edge insert. Both endpoints may refer to vertices
// inserted earlier in this same batch, since ops replay in order at
// Commit.
func (t *BatchInsertTxn) AddEdge(tr types.Triplet, srcOID, dstOID types.OID, payload []byte) {
	t.state = Operating
	t.ops = append(t.ops, wal.AddEdgeOp{Triplet: tr, SrcOID: srcOID, DstOID: dstOID, Payload: payload})
}

// Commit applies every buffered operation to the fragment in order. If
// any operation fails, the transaction aborts atomically and no WAL
// record is emitted. Only once every operation has succeeded does
// Commit append and flush the WAL record and publish the insert
// timestamp.
func (t *BatchInsertTxn) Commit() error {
	if err := applyInsertOps(t.frag, t.ops, t.ts); err != nil {
		t.Abort()
		return err
	}

	body, err := wal.EncodeInsertBody(t.ops...)
	if err != nil {
		t.Abort()
		return err
	}
	t.writer.Append(wal.Record{Timestamp: t.ts, Kind: wal.KindInsert, Body: body})
	if err := t.writer.Flush(); err != nil {
		t.manager.AbortInsert(t.ts)
		t.state = Abort
		return err
	}

	t.manager.PublishInsert(t.ts)
	t.state = Terminal
	return nil
}

// Abort discards the buffered operations without touching the
// fragment or the WAL.
func (t *BatchInsertTxn) Abort() {
	if t.state != Terminal {
		t.manager.AbortInsert(t.ts)
	}
	t.ops = nil
	t.state = Terminal
}

// applyInsertOps applies a buffered op sequence to frag in order,
// resolving oids to vids as it goes. Any vertex inserted earlier in
// ops is already resolvable by the time a later AddEdgeOp references
// it, since this function itself preserves ops' order.
func applyInsertOps(frag *fragment.Fragment, ops []any, ts types.Timestamp) error {
	// Unknown labels and duplicate keys are rejected before any op is
	// applied, so those failures leave the fragment untouched.
	seen := make(map[[2]any]bool) // (label, oid) pairs added by this batch
	for _, op := range ops {
		if o, ok := op.(wal.AddVertexOp); ok {
			vt, known := frag.VertexTable(o.Label)
			if !known {
				return types.Errorf(types.CodeNotFound, "txn.applyInsertOps", "unknown label %d", o.Label)
			}
			if _, err := vt.Lookup(o.OID); err == nil || seen[[2]any{o.Label, o.OID}] {
				return types.Errorf(types.CodeDuplicateKey, "txn.applyInsertOps", "duplicate primary key %v", o.OID)
			}
			seen[[2]any{o.Label, o.OID}] = true
		}
	}
	for _, op := range ops {
		switch o := op.(type) {
		case wal.AddVertexOp:
			if _, err := frag.AddVertexAt(o.Label, o.OID, o.Props, ts); err != nil {
				return err
			}
		case wal.AddEdgeOp:
			srcVid, err := lookupVid(frag, o.Triplet.Src, o.SrcOID)
			if err != nil {
				return err
			}
			dstVid, err := lookupVid(frag, o.Triplet.Dst, o.DstOID)
			if err != nil {
				return err
			}
			if err := frag.AddEdge(o.Triplet, srcVid, dstVid, o.Payload, ts); err != nil {
				return err
			}
		default:
			return types.Errorf(types.CodeInvalidInput, "txn.applyInsertOps", "unsupported op %T", op)
		}
	}
	return nil
}

func lookupVid(frag *fragment.Fragment, label types.VLabel, oid types.OID) (types.VID, error) {
	vt, ok := frag.VertexTable(label)
	if !ok {
		return types.InvalidVID, types.Errorf(types.CodeNotFound, "txn.lookupVid", "unknown label %d", label)
	}
	return vt.Lookup(oid)
}

// SingleVertexInsertTxn is the unbuffered fast path for exactly one
// AddVertex.
type SingleVertexInsertTxn struct {
	inner *BatchInsertTxn
	label types.VLabel
	oid   types.OID
	props map[string]any
	set   bool
}

// NewSingleVertexInsertTxn opens a single-vertex-insert transaction.
func NewSingleVertexInsertTxn(frag *fragment.Fragment, mgr *version.Manager, writer *wal.Writer) *SingleVertexInsertTxn {
	return &SingleVertexInsertTxn{inner: NewBatchInsertTxn(frag, mgr, writer)}
}

func (t *SingleVertexInsertTxn) State() State { return t.inner.State() }

// AddVertex sets the one vertex this transaction will insert. Calling
// it more than once replaces the prior value.
func (t *SingleVertexInsertTxn) AddVertex(label types.VLabel, oid types.OID, props map[string]any) {
	t.label, t.oid, t.props, t.set = label, oid, props, true
	t.inner.ops = nil
	t.inner.AddVertex(label, oid, props)
}

func (t *SingleVertexInsertTxn) Commit() error { return t.inner.Commit() }
func (t *SingleVertexInsertTxn) Abort()        { t.inner.Abort() }

// SingleEdgeInsertTxn is the unbuffered fast path for exactly one
// AddEdge.
type SingleEdgeInsertTxn struct {
	inner *BatchInsertTxn
}

// NewSingleEdgeInsertTxn opens a single-edge-insert transaction.
func NewSingleEdgeInsertTxn(frag *fragment.Fragment, mgr *version.Manager, writer *wal.Writer) *SingleEdgeInsertTxn {
	return &SingleEdgeInsertTxn{inner: NewBatchInsertTxn(frag, mgr, writer)}
}

func (t *SingleEdgeInsertTxn) State() State { return t.inner.State() }

// AddEdge sets the one edge this transaction will insert. Calling it
// more than once replaces the prior value.
func (t *SingleEdgeInsertTxn) AddEdge(tr types.Triplet, srcOID, dstOID types.OID, payload []byte) {
	t.inner.ops = nil
	t.inner.AddEdge(tr, srcOID, dstOID, payload)
}

func (t *SingleEdgeInsertTxn) Commit() error { return t.inner.Commit() }
func (t *SingleEdgeInsertTxn) Abort()        { t.inner.Abort() }
