package procedure

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexgraph-db/flexgraph/pkg/arena"
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/schema"
	"github.com/flexgraph-db/flexgraph/pkg/txn"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

func TestCodecRoundTrip(t *testing.T) {
	enc := NewEncoder()
	enc.PutBool(true)
	enc.PutInt32(-7)
	enc.PutInt64(1 << 40)
	enc.PutDouble(3.5)
	enc.PutString("hello")

	dec := NewDecoder(enc.Bytes())
	b, err := dec.GetBool()
	require.NoError(t, err)
	assert.True(t, b)

	i32, err := dec.GetInt32()
	require.NoError(t, err)
	assert.Equal(t, int32(-7), i32)

	i64, err := dec.GetInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(1<<40), i64)

	d, err := dec.GetDouble()
	require.NoError(t, err)
	assert.Equal(t, 3.5, d)

	s, err := dec.GetString()
	require.NoError(t, err)
	assert.Equal(t, "hello", s)
	assert.Zero(t, dec.Remaining())
}

func TestDecoderRejectsTruncatedInput(t *testing.T) {
	dec := NewDecoder([]byte{1, 2})
	_, err := dec.GetInt64()
	assert.ErrorIs(t, err, types.ErrInvalidInput)
}

type testHost struct {
	frag   *fragment.Fragment
	mgr    *version.Manager
	writer *wal.Writer
	sch    *schema.Schema
}

func (h *testHost) Fragment() *fragment.Fragment { return h.frag }
func (h *testHost) Manager() *version.Manager    { return h.mgr }
func (h *testHost) Writer() *wal.Writer          { return h.writer }
func (h *testHost) Schema() *schema.Schema       { return h.sch }

func newTestHost(t *testing.T) *testHost {
	t.Helper()
	s := schema.New()
	_, err := s.AddVertexLabel("person", types.Int64, []schema.PropertySpec{{Name: "v", Type: types.Int64}}, 0)
	require.NoError(t, err)
	_, err = s.AddEdgeLabel("person", "person", "knows", nil, types.AdjacencyMultiple, types.AdjacencyMultiple)
	require.NoError(t, err)
	require.NoError(t, s.RegisterProcedure("k_hop", "builtin", 1))

	mgr := version.NewManager()
	frag, err := fragment.New(s.Resolve(""), mgr)
	require.NoError(t, err)

	transport, err := wal.OpenFileTransport(filepath.Join(t.TempDir(), "wal_0.log"))
	require.NoError(t, err)
	writer := wal.NewWriter(transport, arena.New(4096))

	return &testHost{frag: frag, mgr: mgr, writer: writer, sch: s}
}

func TestBuiltinShowStoredProcedures(t *testing.T) {
	host := newTestHost(t)
	p := BuiltinServerProcedure{}

	in := NewDecoder([]byte{CmdShowStoredProcedures})
	out := NewEncoder()
	ok := p.Invoke(host, in, out)
	require.True(t, ok)

	dec := NewDecoder(out.Bytes())
	count, err := dec.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
	name, err := dec.GetString()
	require.NoError(t, err)
	assert.Equal(t, "k_hop", name)
	id, err := dec.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 1, id)
}

func TestBuiltinQueryVertexFound(t *testing.T) {
	host := newTestHost(t)
	label, err := host.sch.VertexLabel("person")
	require.NoError(t, err)
	tx := txn.NewBatchInsertTxn(host.frag, host.mgr, host.writer)
	tx.AddVertex(label, types.OIDFromInt64(42), map[string]any{"v": int64(99)})
	require.NoError(t, tx.Commit())

	enc := NewEncoder()
	enc.PutString("person")
	enc.PutInt64(42)
	in := NewDecoder(append([]byte{CmdQueryVertex}, enc.Bytes()...))

	out := NewEncoder()
	p := BuiltinServerProcedure{}
	ok := p.Invoke(host, in, out)
	require.True(t, ok)

	dec := NewDecoder(out.Bytes())
	found, err := dec.GetBool()
	require.NoError(t, err)
	assert.True(t, found)
	_, err = dec.GetInt32() // vid
	require.NoError(t, err)
	propCount, err := dec.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 1, propCount)
	propName, err := dec.GetString()
	require.NoError(t, err)
	assert.Equal(t, "v", propName)
	tag, err := dec.GetByte()
	require.NoError(t, err)
	assert.Equal(t, tagInt64, tag)
	val, err := dec.GetInt64()
	require.NoError(t, err)
	assert.Equal(t, int64(99), val)
	assert.Zero(t, dec.Remaining())
}

func TestBuiltinQueryVertexNotFound(t *testing.T) {
	host := newTestHost(t)
	enc := NewEncoder()
	enc.PutString("person")
	enc.PutInt64(999)
	in := NewDecoder(append([]byte{CmdQueryVertex}, enc.Bytes()...))

	out := NewEncoder()
	p := BuiltinServerProcedure{}
	ok := p.Invoke(host, in, out)
	require.True(t, ok)

	dec := NewDecoder(out.Bytes())
	found, err := dec.GetBool()
	require.NoError(t, err)
	assert.False(t, found)
}

func TestLoaderResolvesBuiltinAndRejectsIDZeroOverride(t *testing.T) {
	l := NewLoader()
	p, err := l.Resolve(0)
	require.NoError(t, err)
	assert.Equal(t, Read, p.Kind())

	err = l.Register(0, Read, func() Procedure { return BuiltinServerProcedure{} })
	assert.ErrorIs(t, err, types.ErrSchemaConflict)
}

func TestLoaderRegisterAndResolve(t *testing.T) {
	l := NewLoader()
	require.NoError(t, l.Register(5, Write, func() Procedure { return BuiltinServerProcedure{} }))
	_, err := l.Resolve(5)
	require.NoError(t, err)

	err = l.Register(5, Write, func() Procedure { return BuiltinServerProcedure{} })
	assert.ErrorIs(t, err, types.ErrSchemaConflict)

	_, err = l.Resolve(200)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
