package pkindex

import (
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

func TestInsertAssignsDenseVids(t *testing.T) {
	idx := New()

	vid0, err := idx.Insert(types.OIDFromInt64(10))
	require.NoError(t, err)
	assert.Equal(t, types.VID(0), vid0)

	vid1, err := idx.Insert(types.OIDFromInt64(20))
	require.NoError(t, err)
	assert.Equal(t, types.VID(1), vid1)

	assert.Equal(t, 2, idx.Size())
}

func TestLookupRoundTrip(t *testing.T) {
	idx := New()
	vid, err := idx.Insert(types.OIDFromInt64(10))
	require.NoError(t, err)

	got, err := idx.Lookup(types.OIDFromInt64(10))
	require.NoError(t, err)
	assert.Equal(t, vid, got)
	assert.Equal(t, types.OIDFromInt64(10), idx.OIDAt(vid))
}

func TestLookupUnknownOIDIsNotFound(t *testing.T) {
	idx := New()
	_, err := idx.Lookup(types.OIDFromInt64(999))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestDuplicateInsertRejected(t *testing.T) {
	idx := New()
	_, err := idx.Insert(types.OIDFromInt64(10))
	require.NoError(t, err)

	_, err = idx.Insert(types.OIDFromInt64(10))
	assert.ErrorIs(t, err, types.ErrDuplicateKey)
	assert.Equal(t, 1, idx.Size())
}

// TestConcurrentInsertsProduceExactlyOneWinner covers invariant 7: under
// concurrent writers racing the same oid, exactly one Insert succeeds.
func TestConcurrentInsertsProduceExactlyOneWinner(t *testing.T) {
	idx := New()
	const writers = 64
	oid := types.OIDFromInt64(42)

	var successes atomic.Int32
	var wg sync.WaitGroup
	wg.Add(writers)
	for i := 0; i < writers; i++ {
		go func() {
			defer wg.Done()
			if _, err := idx.Insert(oid); err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), successes.Load())
	assert.Equal(t, 1, idx.Size())
}

func TestIterateYieldsVidOrder(t *testing.T) {
	idx := New()
	for i := int64(0); i < 5; i++ {
		_, err := idx.Insert(types.OIDFromInt64(i * 10))
		require.NoError(t, err)
	}

	var seen []types.VID
	idx.Iterate(func(vid types.VID, oid types.OID) bool {
		seen = append(seen, vid)
		assert.Equal(t, types.OIDFromInt64(int64(vid)*10), oid)
		return true
	})
	assert.Equal(t, []types.VID{0, 1, 2, 3, 4}, seen)
}

func TestIterateStopsEarly(t *testing.T) {
	idx := New()
	for i := int64(0); i < 5; i++ {
		_, err := idx.Insert(types.OIDFromInt64(i))
		require.NoError(t, err)
	}

	count := 0
	idx.Iterate(func(vid types.VID, oid types.OID) bool {
		count++
		return count < 2
	})
	assert.Equal(t, 2, count)
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	idx := New()
	_, err := idx.Insert(types.OIDFromInt64(10))
	require.NoError(t, err)
	_, err = idx.Insert(types.OIDFromString("short-key"))
	require.NoError(t, err)
	_, err = idx.Insert(types.OIDFromUint64(999))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "P.keys")
	require.NoError(t, idx.Serialize(path))

	restored := New()
	require.NoError(t, restored.Deserialize(path))

	assert.Equal(t, idx.Size(), restored.Size())
	for vid := types.VID(0); int(vid) < idx.Size(); vid++ {
		assert.Equal(t, idx.OIDAt(vid), restored.OIDAt(vid))
	}
	vid, err := restored.Lookup(types.OIDFromString("short-key"))
	require.NoError(t, err)
	assert.Equal(t, types.VID(1), vid)
}
