package txn

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexgraph-db/flexgraph/pkg/arena"
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

const (
	labelPerson types.VLabel = 0
	edgeKnows   types.ELabel = 0
)

func knowsTriplet() types.Triplet {
	return types.Triplet{Src: labelPerson, Dst: labelPerson, Edge: edgeKnows}
}

type testEnv struct {
	frag   *fragment.Fragment
	mgr    *version.Manager
	writer *wal.Writer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mgr := version.NewManager()
	cfg := fragment.Config{
		VertexLabels: []fragment.VertexLabelDef{
			{
				Label:      labelPerson,
				Name:       "Person",
				PrimaryKey: types.Int64,
				Properties: []fragment.PropertyDef{{Name: "v", Type: types.Int64, Strategy: types.Memory}},
			},
		},
		EdgeLabels: []fragment.EdgeLabelDef{
			{
				Triplet:      knowsTriplet(),
				Name:         "KNOWS",
				OutStrategy:  types.AdjacencyMultiple,
				InStrategy:   types.AdjacencyMultiple,
				PayloadBytes: 8,
			},
		},
	}
	f, err := fragment.New(cfg, mgr)
	require.NoError(t, err)

	transport, err := wal.OpenFileTransport(filepath.Join(t.TempDir(), "wal_0.log"))
	require.NoError(t, err)
	writer := wal.NewWriter(transport, arena.New(4096))

	return &testEnv{frag: f, mgr: mgr, writer: writer}
}

func TestBatchInsertTxnCommitAppliesAllOpsInOrder(t *testing.T) {
	env := newTestEnv(t)
	tx := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	tx.AddVertex(labelPerson, types.OIDFromInt64(1), map[string]any{"v": int64(10)})
	tx.AddVertex(labelPerson, types.OIDFromInt64(2), map[string]any{"v": int64(20)})
	tx.AddEdge(knowsTriplet(), types.OIDFromInt64(1), types.OIDFromInt64(2), make([]byte, 8))

	require.NoError(t, tx.Commit())
	assert.Equal(t, Terminal, tx.State())

	vt, _ := env.frag.VertexTable(labelPerson)
	assert.Equal(t, 2, vt.VertexNum())
	v1, err := vt.Lookup(types.OIDFromInt64(1))
	require.NoError(t, err)
	out, err := env.frag.GetOutgoingEdges(knowsTriplet(), v1)
	require.NoError(t, err)
	_, ok := out.Next()
	assert.True(t, ok)
}

// TestBatchInsertTxnAbortsAtomicallyOnFailure covers invariant-adjacent
// behavior: a duplicate key must abort the whole batch with no
// partial visibility, and must not stall the FIFO insert watermark.
func TestBatchInsertTxnAbortsAtomicallyOnFailure(t *testing.T) {
	env := newTestEnv(t)
	seed := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	seed.AddVertex(labelPerson, types.OIDFromInt64(1), map[string]any{"v": int64(1)})
	require.NoError(t, seed.Commit())

	tx := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	tx.AddVertex(labelPerson, types.OIDFromInt64(2), map[string]any{"v": int64(2)})
	tx.AddVertex(labelPerson, types.OIDFromInt64(1), map[string]any{"v": int64(99)}) // duplicate

	err := tx.Commit()
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
	assert.Equal(t, Terminal, tx.State())

	vt, _ := env.frag.VertexTable(labelPerson)
	assert.Equal(t, 1, vt.VertexNum(), "failed op must not leave the second vertex partially visible")

	// the watermark must still be able to advance past the aborted ts
	next := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	next.AddVertex(labelPerson, types.OIDFromInt64(3), map[string]any{"v": int64(3)})
	require.NoError(t, next.Commit())
}

// TestUpdateVisibilityOrdering is the E4 scenario: a read transaction
// opened before an update commits must keep observing the old value on
// re-read, while a new read transaction opened after sees the update.
func TestUpdateVisibilityOrdering(t *testing.T) {
	env := newTestEnv(t)
	seed := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	seed.AddVertex(labelPerson, types.OIDFromInt64(1), map[string]any{"v": int64(0)})
	require.NoError(t, seed.Commit())

	rOld := NewReadTxn(env.frag, env.mgr)
	v, err := rOld.GetProperty(labelPerson, types.VID(0), "v")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v)

	u := NewUpdateTxn(env.frag, env.mgr, env.writer)
	u.SetVertexProperty(labelPerson, types.OIDFromInt64(1), "v", int64(5))
	require.NoError(t, u.Commit())

	v, err = rOld.GetProperty(labelPerson, types.VID(0), "v")
	require.NoError(t, err)
	assert.Equal(t, int64(0), v, "transaction opened before the update keeps its snapshot")
	require.NoError(t, rOld.Commit())

	rNew := NewReadTxn(env.frag, env.mgr)
	v, err = rNew.GetProperty(labelPerson, types.VID(0), "v")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v, "a new read transaction observes the committed update")
	require.NoError(t, rNew.Commit())
}

// TestInsertVisibilityOrdering covers invariant 3 for the insert family:
// a read transaction opened before a batch insert commits must not
// observe the inserted vertex or edge, even though the fragment's
// shared vertex/adjacency structures are mutated before the insert
// watermark advances.
func TestInsertVisibilityOrdering(t *testing.T) {
	env := newTestEnv(t)
	seed := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	seed.AddVertex(labelPerson, types.OIDFromInt64(1), nil)
	require.NoError(t, seed.Commit())

	rOld := NewReadTxn(env.frag, env.mgr)

	tx := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	tx.AddVertex(labelPerson, types.OIDFromInt64(2), nil)
	tx.AddEdge(knowsTriplet(), types.OIDFromInt64(1), types.OIDFromInt64(2), make([]byte, 8))
	require.NoError(t, tx.Commit())

	_, err := rOld.Lookup(labelPerson, types.OIDFromInt64(2))
	assert.ErrorIs(t, err, types.ErrNotFound, "a read transaction opened before the insert must not see the new vertex")

	v1, err := rOld.Lookup(labelPerson, types.OIDFromInt64(1))
	require.NoError(t, err)
	out, err := rOld.GetOutgoingEdges(knowsTriplet(), v1)
	require.NoError(t, err)
	_, ok := out.Next()
	assert.False(t, ok, "a read transaction opened before the insert must not see the new edge")
	require.NoError(t, rOld.Commit())

	rNew := NewReadTxn(env.frag, env.mgr)
	v2, err := rNew.Lookup(labelPerson, types.OIDFromInt64(2))
	require.NoError(t, err, "a new read transaction observes the committed insert")
	out2, err := rNew.GetOutgoingEdges(knowsTriplet(), v1)
	require.NoError(t, err)
	edge, ok := out2.Next()
	require.True(t, ok)
	assert.Equal(t, v2, edge.Neighbor)
	require.NoError(t, rNew.Commit())
}

func TestUpdateTxnTombstoneEdgeRemovesFromIteration(t *testing.T) {
	env := newTestEnv(t)
	seed := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	seed.AddVertex(labelPerson, types.OIDFromInt64(1), nil)
	seed.AddVertex(labelPerson, types.OIDFromInt64(2), nil)
	seed.AddEdge(knowsTriplet(), types.OIDFromInt64(1), types.OIDFromInt64(2), make([]byte, 8))
	require.NoError(t, seed.Commit())

	u := NewUpdateTxn(env.frag, env.mgr, env.writer)
	u.TombstoneEdge(knowsTriplet(), types.OIDFromInt64(1), types.OIDFromInt64(2))
	require.NoError(t, u.Commit())

	r := NewReadTxn(env.frag, env.mgr)
	out, err := r.GetOutgoingEdges(knowsTriplet(), types.VID(0))
	require.NoError(t, err)
	_, ok := out.Next()
	assert.False(t, ok)
}

func TestCompactTxnAbortsBeforeInterval(t *testing.T) {
	env := newTestEnv(t)
	tx := NewCompactTxn(env.frag, env.mgr)
	require.NoError(t, tx.Commit())
	assert.False(t, tx.Ran())
	assert.Equal(t, types.Timestamp(0), env.mgr.LastCompactionTs())
}

func TestSequentialInsertsProduceSupersetState(t *testing.T) {
	// Invariant 5: state after T2 publishes is a superset of the state
	// after T1 publishes.
	env := newTestEnv(t)
	t1 := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	t1.AddVertex(labelPerson, types.OIDFromInt64(1), nil)
	require.NoError(t, t1.Commit())
	vt, _ := env.frag.VertexTable(labelPerson)
	after1 := vt.VertexNum()

	t2 := NewBatchInsertTxn(env.frag, env.mgr, env.writer)
	t2.AddVertex(labelPerson, types.OIDFromInt64(2), nil)
	require.NoError(t, t2.Commit())
	after2 := vt.VertexNum()

	assert.Greater(t, after2, after1)
	_, err := vt.Lookup(types.OIDFromInt64(1))
	assert.NoError(t, err, "T1's effects remain visible after T2 publishes")
}
