package txn

import (
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/log"
	"github.com/flexgraph-db/flexgraph/pkg/metrics"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
)

// compactionInterval gates how often a compaction runs: at least this
// many timestamps must have elapsed since the last one.
const compactionInterval = 100_000

// CompactTxn proposes reclaiming tombstoned adjacency slots and
// garbage-collecting overlays below the minimum outstanding read
// timestamp. It commits only often enough to amortize the work; a
// too-soon attempt aborts silently rather than failing.
type CompactTxn struct {
	frag    *fragment.Fragment
	manager *version.Manager
	ts      types.Timestamp
	state   State
}

// NewCompactTxn opens a compact transaction at a freshly acquired
// update timestamp.
func NewCompactTxn(frag *fragment.Fragment, mgr *version.Manager) *CompactTxn {
	return &CompactTxn{frag: frag, manager: mgr, ts: mgr.AcquireUpdateTimestamp(), state: Open}
}

func (t *CompactTxn) State() State { return t.state }

// Ran reports whether the most recent Commit call actually performed a
// compaction, as opposed to aborting because not enough time had
// elapsed since the last one.
func (t *CompactTxn) Ran() bool {
	return t.state == Terminal && t.manager.LastCompactionTs() == t.ts
}

// Commit garbage-collects overlays below the minimum outstanding read
// timestamp if at least compactionInterval timestamps have elapsed
// since the last compaction; otherwise it aborts silently. It never
// returns an error -- compaction is an internal maintenance operation,
// not something a caller needs to retry.
func (t *CompactTxn) Commit() error {
	if uint32(t.ts)-uint32(t.manager.LastCompactionTs()) < compactionInterval {
		metrics.CompactionsTotal.WithLabelValues("aborted_too_soon").Inc()
		t.state = Abort
		return nil
	}

	minRead := t.manager.MinOutstandingRead()
	t.manager.Overlays().GC(minRead)

	var reclaimed uint64
	for _, triplet := range t.frag.Triplets() {
		if out, ok := t.frag.OutAdjacency(triplet); ok {
			reclaimed += out.ReclaimTombstones(minRead)
		}
		if in, ok := t.frag.InAdjacency(triplet); ok {
			reclaimed += in.ReclaimTombstones(minRead)
		}
	}

	t.manager.SetLastCompactionTs(t.ts)
	metrics.CompactionsTotal.WithLabelValues("committed").Inc()
	log.WithTxn("compact", uint32(t.ts)).Info().Uint32("min_read", uint32(minRead)).Uint64("reclaimed_slots", reclaimed).Msg("compaction committed")
	t.state = Terminal
	return nil
}

// Abort discards the proposal without touching the overlay store.
func (t *CompactTxn) Abort() { t.state = Terminal }
