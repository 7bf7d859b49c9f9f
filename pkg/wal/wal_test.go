package wal

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexgraph-db/flexgraph/pkg/arena"
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
)

const (
	labelPerson types.VLabel = 0
	edgeKnows   types.ELabel = 0
)

func knowsTriplet() types.Triplet {
	return types.Triplet{Src: labelPerson, Dst: labelPerson, Edge: edgeKnows}
}

func TestRecordEncodeDecodeRoundTrip(t *testing.T) {
	rec := Record{Timestamp: 42, Kind: KindInsert, Body: []byte("hello")}
	encoded := rec.Encode()

	decoded, consumed, truncated := DecodeRecord(encoded)
	require.False(t, truncated)
	assert.Equal(t, len(encoded), consumed)
	assert.Equal(t, rec.Timestamp, decoded.Timestamp)
	assert.Equal(t, rec.Kind, decoded.Kind)
	assert.Equal(t, rec.Body, decoded.Body)
}

func TestDecodeRecordDetectsTruncatedTail(t *testing.T) {
	rec := Record{Timestamp: 1, Kind: KindInsert, Body: []byte("0123456789")}
	encoded := rec.Encode()

	_, _, truncated := DecodeRecord(encoded[:len(encoded)-3])
	assert.True(t, truncated)

	_, _, truncated = DecodeRecord(encoded[:5])
	assert.True(t, truncated)
}

func TestInsertOpEncodeDecodeRoundTrip(t *testing.T) {
	vOp := AddVertexOp{Label: labelPerson, OID: types.OIDFromInt64(7), Props: map[string]any{"v": int64(5)}}
	eOp := AddEdgeOp{Triplet: knowsTriplet(), SrcOID: types.OIDFromInt64(7), DstOID: types.OIDFromInt64(8), Payload: []byte{1, 2, 3, 4, 5, 6, 7, 8}}

	body, err := EncodeInsertBody(vOp, eOp)
	require.NoError(t, err)

	var gotVertex []AddVertexOp
	var gotEdge []AddEdgeOp
	err = DecodeInsertBody(body,
		func(op AddVertexOp) error { gotVertex = append(gotVertex, op); return nil },
		func(op AddEdgeOp) error { gotEdge = append(gotEdge, op); return nil },
	)
	require.NoError(t, err)
	require.Len(t, gotVertex, 1)
	require.Len(t, gotEdge, 1)
	assert.Equal(t, vOp.OID, gotVertex[0].OID)
	assert.Equal(t, int64(5), gotVertex[0].Props["v"])
	assert.Equal(t, eOp.Payload, gotEdge[0].Payload)
}

func TestWriterFlushIsDurableAndResets(t *testing.T) {
	dir := t.TempDir()
	transport, err := OpenFileTransport(filepath.Join(dir, "wal_0.log"))
	require.NoError(t, err)
	defer transport.Close()

	a := arena.New(4096)
	w := NewWriter(transport, a)

	body, err := EncodeInsertBody(AddVertexOp{Label: labelPerson, OID: types.OIDFromInt64(1), Props: nil})
	require.NoError(t, err)
	w.Append(Record{Timestamp: 1, Kind: KindInsert, Body: body})
	require.NoError(t, w.Flush())
	require.NoError(t, w.Flush()) // second flush with nothing buffered is a no-op

	data, err := os.ReadFile(filepath.Join(dir, "wal_0.log"))
	require.NoError(t, err)
	_, _, truncated := DecodeRecord(data)
	assert.False(t, truncated)
}

func newTestFragment(t *testing.T) (*fragment.Fragment, *version.Manager) {
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
	return f, mgr
}

func TestReplayAppliesInsertsAndUpdatesInTimestampOrder(t *testing.T) {
	dir := t.TempDir()
	transport, err := OpenFileTransport(filepath.Join(dir, "wal_0.log"))
	require.NoError(t, err)

	insertBody, err := EncodeInsertBody(
		AddVertexOp{Label: labelPerson, OID: types.OIDFromInt64(1), Props: map[string]any{"v": int64(1)}},
		AddVertexOp{Label: labelPerson, OID: types.OIDFromInt64(2), Props: map[string]any{"v": int64(2)}},
	)
	require.NoError(t, err)
	edgeBody, err := EncodeInsertBody(
		AddEdgeOp{Triplet: knowsTriplet(), SrcOID: types.OIDFromInt64(1), DstOID: types.OIDFromInt64(2), Payload: make([]byte, 8)},
	)
	require.NoError(t, err)
	updateBody, err := EncodeUpdateBody(
		SetVertexPropOp{Label: labelPerson, OID: types.OIDFromInt64(1), Prop: "v", Value: int64(99)},
	)
	require.NoError(t, err)

	_, err = transport.Write(Record{Timestamp: 1, Kind: KindInsert, Body: insertBody}.Encode())
	require.NoError(t, err)
	_, err = transport.Write(Record{Timestamp: 2, Kind: KindInsert, Body: edgeBody}.Encode())
	require.NoError(t, err)
	_, err = transport.Write(Record{Timestamp: 3, Kind: KindUpdate, Body: updateBody}.Encode())
	require.NoError(t, err)
	require.NoError(t, transport.Sync())
	require.NoError(t, transport.Close())

	frag, _ := newTestFragment(t)
	last, err := (Parser{}).Replay(dir, frag)
	require.NoError(t, err)
	assert.Equal(t, types.Timestamp(3), last)

	vt, _ := frag.VertexTable(labelPerson)
	assert.Equal(t, 2, vt.VertexNum())

	vid, err := vt.Lookup(types.OIDFromInt64(1))
	require.NoError(t, err)
	val, err := vt.GetProperty(vid, "v")
	require.NoError(t, err)
	assert.Equal(t, int64(99), val, "update record replays after the insert range")

	dstVid, err := vt.Lookup(types.OIDFromInt64(2))
	require.NoError(t, err)
	out, err := frag.GetOutgoingEdges(knowsTriplet(), vid)
	require.NoError(t, err)
	edge, ok := out.Next()
	require.True(t, ok)
	assert.Equal(t, dstVid, edge.Neighbor)
}

// TestReplayOrdersVerticesBeforeEdgesWithinInsertRange is the E3
// scenario: a long run of insert-family commits with no interleaved
// update, where later records' edges reference vertices created by
// earlier records in the same insert-range. Without a vertex-before-
// edge ordering guarantee within the range, an edge's lookupVid call
// can race its referenced vertex's AddVertexOp.
func TestReplayOrdersVerticesBeforeEdgesWithinInsertRange(t *testing.T) {
	dir := t.TempDir()
	transport, err := OpenFileTransport(filepath.Join(dir, "wal_0.log"))
	require.NoError(t, err)

	const n = 100
	for i := 0; i < n; i++ {
		body, err := EncodeInsertBody(AddVertexOp{Label: labelPerson, OID: types.OIDFromInt64(int64(i)), Props: nil})
		require.NoError(t, err)
		_, err = transport.Write(Record{Timestamp: types.Timestamp(i + 1), Kind: KindInsert, Body: body}.Encode())
		require.NoError(t, err)
	}
	for i := 0; i < n-1; i++ {
		body, err := EncodeInsertBody(AddEdgeOp{
			Triplet: knowsTriplet(),
			SrcOID:  types.OIDFromInt64(int64(i)),
			DstOID:  types.OIDFromInt64(int64(i + 1)),
			Payload: make([]byte, 8),
		})
		require.NoError(t, err)
		_, err = transport.Write(Record{Timestamp: types.Timestamp(n + i + 1), Kind: KindInsert, Body: body}.Encode())
		require.NoError(t, err)
	}
	require.NoError(t, transport.Sync())
	require.NoError(t, transport.Close())

	frag, _ := newTestFragment(t)
	_, err = (Parser{}).Replay(dir, frag)
	require.NoError(t, err)

	vt, _ := frag.VertexTable(labelPerson)
	assert.Equal(t, n, vt.VertexNum())

	for i := 0; i < n-1; i++ {
		srcVid, err := vt.Lookup(types.OIDFromInt64(int64(i)))
		require.NoError(t, err)
		out, err := frag.GetOutgoingEdges(knowsTriplet(), srcVid)
		require.NoError(t, err)
		_, ok := out.Next()
		assert.True(t, ok, "edge %d -> %d must be present after replay", i, i+1)
	}
}

func TestReplayIgnoresTruncatedTrailingRecord(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "wal_0.log")
	body, err := EncodeInsertBody(AddVertexOp{Label: labelPerson, OID: types.OIDFromInt64(1), Props: nil})
	require.NoError(t, err)
	full := Record{Timestamp: 1, Kind: KindInsert, Body: body}.Encode()

	truncated := append(full, Record{Timestamp: 2, Kind: KindInsert, Body: body}.Encode()[:4]...)
	require.NoError(t, os.WriteFile(path, truncated, 0o644))

	frag, _ := newTestFragment(t)
	last, err := (Parser{}).Replay(dir, frag)
	require.NoError(t, err)
	assert.Equal(t, types.Timestamp(1), last)

	vt, _ := frag.VertexTable(labelPerson)
	assert.Equal(t, 1, vt.VertexNum())
}
