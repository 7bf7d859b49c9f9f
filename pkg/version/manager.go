// Package version implements the version manager and overlay store. See
// doc.go.
package version

import (
	"sort"
	"sync"

	"github.com/flexgraph-db/flexgraph/pkg/metrics"
	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Manager issues the four timestamp kinds from §4.5 and tracks the
// minimum outstanding read timestamp for epoch reclamation and overlay
// garbage collection.
type Manager struct {
	mu sync.Mutex

	nextTs        uint32
	lastCommitted uint32

	outstandingReads []uint32 // sorted ascending

	pendingInsert map[uint32]bool // insert ts -> resolved (committed or aborted)

	lastCompactionTs uint32

	overlays *OverlayStore

	reclaims []reclaimEntry
}

// reclaimEntry is a callback deferred until no outstanding reader can
// still be looking at the memory it frees, per the epoch-reclamation
// scheme in §5's Memory section.
type reclaimEntry struct {
	ts types.Timestamp
	fn func()
}

// DeferReclaim registers fn to run once the minimum outstanding read
// timestamp advances past ts. Callers (pkg/fragment, on adjacency
// growth) are never blocked by this; the callback runs synchronously
// inside a later ReleaseRead call once it becomes due.
func (m *Manager) DeferReclaim(ts types.Timestamp, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reclaims = append(m.reclaims, reclaimEntry{ts: ts, fn: fn})
}

// sweepReclaimsLocked runs and drops every deferred callback whose
// timestamp is strictly less than the current minimum outstanding read.
func (m *Manager) sweepReclaimsLocked() {
	if len(m.reclaims) == 0 {
		return
	}
	var min uint32
	if len(m.outstandingReads) == 0 {
		min = m.lastCommitted
	} else {
		min = m.outstandingReads[0]
	}

	remaining := m.reclaims[:0]
	for _, r := range m.reclaims {
		if uint32(r.ts) < min {
			r.fn()
			continue
		}
		remaining = append(remaining, r)
	}
	m.reclaims = remaining
}

// NewManager creates a version manager starting at timestamp 0.
func NewManager() *Manager {
	return &Manager{
		pendingInsert: make(map[uint32]bool),
		overlays:      NewOverlayStore(),
	}
}

// Overlays returns the manager's overlay store.
func (m *Manager) Overlays() *OverlayStore { return m.overlays }

// InitTs is replay-only: it fast-forwards the next-timestamp counter past
// the last timestamp seen during WAL replay, so newly issued timestamps
// never collide with replayed ones.
func (m *Manager) InitTs(last uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTs = last
	m.lastCommitted = last
}

// AcquireReadTimestamp returns the latest committed timestamp and
// registers the caller as an outstanding reader at that timestamp. The
// caller must call ReleaseRead when its transaction commits or aborts.
func (m *Manager) AcquireReadTimestamp() types.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	ts := m.lastCommitted
	m.insertOutstandingLocked(ts)
	metrics.OutstandingReadTimestamps.Set(float64(len(m.outstandingReads)))
	return types.Timestamp(ts)
}

// ReleaseRead unregisters a previously acquired read timestamp.
func (m *Manager) ReleaseRead(ts types.Timestamp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeOutstandingLocked(uint32(ts))
	metrics.OutstandingReadTimestamps.Set(float64(len(m.outstandingReads)))
	m.sweepReclaimsLocked()
}

// MinOutstandingRead returns the smallest currently-registered read
// timestamp, or the current commit watermark if no reads are
// outstanding.
func (m *Manager) MinOutstandingRead() types.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.outstandingReads) == 0 {
		return types.Timestamp(m.lastCommitted)
	}
	return types.Timestamp(m.outstandingReads[0])
}

func (m *Manager) insertOutstandingLocked(ts uint32) {
	i := sort.Search(len(m.outstandingReads), func(i int) bool { return m.outstandingReads[i] >= ts })
	m.outstandingReads = append(m.outstandingReads, 0)
	copy(m.outstandingReads[i+1:], m.outstandingReads[i:])
	m.outstandingReads[i] = ts
}

func (m *Manager) removeOutstandingLocked(ts uint32) {
	i := sort.Search(len(m.outstandingReads), func(i int) bool { return m.outstandingReads[i] >= ts })
	if i < len(m.outstandingReads) && m.outstandingReads[i] == ts {
		m.outstandingReads = append(m.outstandingReads[:i], m.outstandingReads[i+1:]...)
	}
}

// AcquireInsertTimestamp returns a fresh timestamp for an insert-family
// transaction. The transaction must call PublishInsert or AbortInsert
// exactly once with the returned timestamp.
func (m *Manager) AcquireInsertTimestamp() types.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTs++
	ts := m.nextTs
	m.pendingInsert[ts] = false
	return types.Timestamp(ts)
}

// PublishInsert marks ts committed and advances the commit watermark
// through any run of consecutive resolved timestamps starting at
// watermark+1, implementing the FIFO publish order from §4.5/§5.
func (m *Manager) PublishInsert(ts types.Timestamp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingInsert[uint32(ts)] = true
	m.advanceWatermarkLocked()
}

// AbortInsert marks ts resolved without it having produced any visible
// change. It still must advance through the FIFO sequence so a later
// insert's commit is not stalled behind it forever.
func (m *Manager) AbortInsert(ts types.Timestamp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pendingInsert[uint32(ts)] = true
	m.advanceWatermarkLocked()
}

func (m *Manager) advanceWatermarkLocked() {
	for {
		next := m.lastCommitted + 1
		done, ok := m.pendingInsert[next]
		if !ok || !done {
			break
		}
		delete(m.pendingInsert, next)
		m.lastCommitted = next
	}
}

// AcquireUpdateTimestamp returns a fresh timestamp for an update
// transaction. Unlike inserts, an update's overlay becomes visible to
// readers with read_ts >= ts the moment it is published, independent of
// the insert watermark.
func (m *Manager) AcquireUpdateTimestamp() types.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextTs++
	return types.Timestamp(m.nextTs)
}

// PublishUpdate advances the commit watermark to ts once an update
// transaction's overlay write has landed, so a subsequently opened read
// transaction observes it. Unlike PublishInsert, this is not FIFO-gated:
// an update transaction runs its overlay write synchronously inside
// Commit, so by the time Commit returns there is nothing left pending
// below ts for this update.
func (m *Manager) PublishUpdate(ts types.Timestamp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if uint32(ts) > m.lastCommitted {
		m.lastCommitted = uint32(ts)
	}
}

// LastCompactionTs returns the timestamp of the last successful compact
// transaction.
func (m *Manager) LastCompactionTs() types.Timestamp {
	m.mu.Lock()
	defer m.mu.Unlock()
	return types.Timestamp(m.lastCompactionTs)
}

// SetLastCompactionTs records ts as the last successful compaction.
func (m *Manager) SetLastCompactionTs(ts types.Timestamp) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastCompactionTs = uint32(ts)
}
