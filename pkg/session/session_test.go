package session

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/procedure"
	"github.com/flexgraph-db/flexgraph/pkg/schema"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

func newTestSession(t *testing.T, loader *procedure.Loader) *Session {
	t.Helper()
	s := schema.New()
	_, err := s.AddVertexLabel("person", types.Int64, nil, 0)
	require.NoError(t, err)

	mgr := version.NewManager()
	frag, err := fragment.New(s.Resolve(""), mgr)
	require.NoError(t, err)

	transport, err := wal.OpenFileTransport(filepath.Join(t.TempDir(), "wal_0.log"))
	require.NoError(t, err)

	return New(0, frag, mgr, s, loader, transport, 4096)
}

func TestEvalStripsTrailingProcedureID(t *testing.T) {
	loader := procedure.NewLoader()
	sess := newTestSession(t, loader)

	enc := procedure.NewEncoder()
	// SHOW_STORED_PROCEDURES body plus trailing procedure id 0.
	payload := append([]byte{procedure.CmdShowStoredProcedures}, byte(0))
	out, err := sess.Eval(payload)
	require.NoError(t, err)

	dec := procedure.NewDecoder(out)
	count, err := dec.GetInt32()
	require.NoError(t, err)
	assert.EqualValues(t, 0, count)
	_ = enc
}

func TestEvalUnknownProcedureIsNotFound(t *testing.T) {
	loader := procedure.NewLoader()
	sess := newTestSession(t, loader)

	_, err := sess.Eval([]byte{5})
	assert.ErrorIs(t, err, types.ErrNotFound)
}

// flakyProcedure fails its first N invocations, then succeeds, modeling
// the retry scenario (§8 E6).
type flakyProcedure struct {
	failuresLeft *int
}

func (flakyProcedure) Kind() procedure.Kind { return procedure.Read }

func (p flakyProcedure) Invoke(host procedure.Host, in *procedure.Decoder, out *procedure.Encoder) bool {
	if *p.failuresLeft > 0 {
		*p.failuresLeft--
		return false
	}
	out.PutBool(true)
	return true
}

func TestEvalRetriesUntilSuccess(t *testing.T) {
	loader := procedure.NewLoader()
	failures := 2
	require.NoError(t, loader.Register(7, procedure.Read, func() procedure.Procedure {
		return flakyProcedure{failuresLeft: &failures}
	}))
	sess := newTestSession(t, loader)

	out, err := sess.Eval([]byte{7})
	require.NoError(t, err)
	dec := procedure.NewDecoder(out)
	ok, err := dec.GetBool()
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestEvalExhaustsRetriesAndReturnsQueryFailed(t *testing.T) {
	loader := procedure.NewLoader()
	failures := 1000
	require.NoError(t, loader.Register(7, procedure.Read, func() procedure.Procedure {
		return flakyProcedure{failuresLeft: &failures}
	}))
	sess := newTestSession(t, loader)

	_, err := sess.Eval([]byte{7})
	assert.ErrorIs(t, err, types.ErrQueryFailed)
}
