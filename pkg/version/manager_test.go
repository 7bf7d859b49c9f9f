package version

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

func TestReadTimestampStartsAtZero(t *testing.T) {
	m := NewManager()
	assert.Equal(t, types.Timestamp(0), m.AcquireReadTimestamp())
}

func TestInsertPublishAdvancesWatermark(t *testing.T) {
	m := NewManager()
	ts1 := m.AcquireInsertTimestamp()
	m.PublishInsert(ts1)

	assert.Equal(t, types.Timestamp(1), m.AcquireReadTimestamp())
}

func TestInsertFIFOPublishOrder(t *testing.T) {
	m := NewManager()
	ts1 := m.AcquireInsertTimestamp()
	ts2 := m.AcquireInsertTimestamp()

	// publishing ts2 first must not advance the watermark past ts1
	m.PublishInsert(ts2)
	m.ReleaseRead(m.AcquireReadTimestamp()) // no-op, just exercises release
	assert.Equal(t, types.Timestamp(0), m.AcquireReadTimestamp())

	m.PublishInsert(ts1)
	assert.Equal(t, types.Timestamp(2), m.AcquireReadTimestamp())
}

func TestAbortInsertUnblocksFIFO(t *testing.T) {
	m := NewManager()
	ts1 := m.AcquireInsertTimestamp()
	ts2 := m.AcquireInsertTimestamp()

	m.AbortInsert(ts1)
	m.PublishInsert(ts2)

	assert.Equal(t, types.Timestamp(2), m.AcquireReadTimestamp())
}

func TestOutstandingReadTracking(t *testing.T) {
	m := NewManager()
	r1 := m.AcquireReadTimestamp()

	ts1 := m.AcquireInsertTimestamp()
	m.PublishInsert(ts1)

	r2 := m.AcquireReadTimestamp()
	assert.Equal(t, types.Timestamp(0), r1)
	assert.Equal(t, types.Timestamp(1), r2)

	assert.Equal(t, types.Timestamp(0), m.MinOutstandingRead())

	m.ReleaseRead(r1)
	assert.Equal(t, types.Timestamp(1), m.MinOutstandingRead())

	m.ReleaseRead(r2)
	assert.Equal(t, types.Timestamp(1), m.MinOutstandingRead())
}

func TestInitTsFastForwards(t *testing.T) {
	m := NewManager()
	m.InitTs(100)
	assert.Equal(t, types.Timestamp(100), m.AcquireReadTimestamp())

	ts := m.AcquireInsertTimestamp()
	assert.Equal(t, types.Timestamp(101), ts)
}

func TestOverlayVisibilityByReadTimestamp(t *testing.T) {
	m := NewManager()
	key := "n"

	m.Overlays().Put(key, 5, 5)

	_, _, ok := m.Overlays().Get(key, 3)
	assert.False(t, ok)

	v, tomb, ok := m.Overlays().Get(key, 5)
	assert.True(t, ok)
	assert.False(t, tomb)
	assert.Equal(t, 5, v)

	v, _, ok = m.Overlays().Get(key, 100)
	assert.True(t, ok)
	assert.Equal(t, 5, v)
}

func TestOverlayTakesMostRecentVisibleEntry(t *testing.T) {
	m := NewManager()
	key := "n"

	m.Overlays().Put(key, 5, "a")
	m.Overlays().Put(key, 10, "b")

	v, _, ok := m.Overlays().Get(key, 7)
	assert.True(t, ok)
	assert.Equal(t, "a", v)

	v, _, ok = m.Overlays().Get(key, 20)
	assert.True(t, ok)
	assert.Equal(t, "b", v)
}

func TestOverlayTombstone(t *testing.T) {
	m := NewManager()
	key := "e"
	m.Overlays().PutTombstone(key, 5)

	_, tomb, ok := m.Overlays().Get(key, 10)
	assert.True(t, ok)
	assert.True(t, tomb)
}

func TestOverlayGCRetainsOneEntryBelowWatermark(t *testing.T) {
	m := NewManager()
	key := "n"
	m.Overlays().Put(key, 1, "old")
	m.Overlays().Put(key, 2, "newer")
	m.Overlays().Put(key, 10, "future")

	m.Overlays().GC(5)

	v, _, ok := m.Overlays().Get(key, 5)
	assert.True(t, ok)
	assert.Equal(t, "newer", v)

	v, _, ok = m.Overlays().Get(key, 100)
	assert.True(t, ok)
	assert.Equal(t, "future", v)
}

func TestDeferReclaimRunsOnlyAfterOutstandingReaderReleases(t *testing.T) {
	m := NewManager()
	r := m.AcquireReadTimestamp() // ts = 0, predates the growth below

	ran := false
	m.DeferReclaim(r, func() { ran = true })

	// a commit advances the watermark past r's timestamp
	ts1 := m.AcquireInsertTimestamp()
	m.PublishInsert(ts1)

	r2 := m.AcquireReadTimestamp() // ts = 1
	m.ReleaseRead(r2)
	assert.False(t, ran, "r is still outstanding at ts=0, the growth timestamp itself")

	m.ReleaseRead(r)
	assert.True(t, ran, "no reader remains at or below the growth timestamp")
}

func TestOverlayGCKeepsSoleEntryBelowWatermark(t *testing.T) {
	m := NewManager()
	m.Overlays().Put("n", 1, "old")
	m.Overlays().GC(5)

	v, _, ok := m.Overlays().Get("n", 100)
	assert.True(t, ok)
	assert.Equal(t, "old", v)
	assert.Equal(t, 1, m.Overlays().Len())
}
