package fragment

import (
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/cespare/xxhash/v2"

	"github.com/flexgraph-db/flexgraph/pkg/metrics"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
)

const lockStripeSize = 256

// adjSlab is one vertex's growable compact array of (neighbor, payload)
// pairs, per §4.4. A tombstoned slot holds types.InvalidVID as its
// neighbor.
type adjSlab struct {
	neighbors []types.VID
	data      [][]byte
	insertTs  []types.Timestamp
	size      uint32
}

// adjBucket is one source vertex's adjacency state: the current slab
// behind an atomic pointer, plus a roaring bitmap of tombstoned slot
// indices guarded by its own mutex (tombstoning is rare relative to
// reads, so a plain mutex outperforms trying to make it lock-free too).
type adjBucket struct {
	slab   atomic.Pointer[adjSlab]
	tombMu sync.Mutex
	tomb   *roaring.Bitmap
}

// AdjacencyTable is one direction of one (src, dst, edge) triplet's
// adjacency structure.
type AdjacencyTable struct {
	Triplet      types.Triplet
	Name         string
	strategy     types.AdjacencyStrategy
	payloadBytes int
	manager      *version.Manager

	buckets       atomic.Pointer[[]*adjBucket]
	bucketsGrowMu sync.Mutex
	lockStripe    [lockStripeSize]sync.Mutex

	singleMu       sync.RWMutex
	singleNbr      []types.VID
	singleData     [][]byte
	singleValid    []bool
	singleInsertTs []types.Timestamp
}

func newAdjacencyTable(t types.Triplet, name string, strategy types.AdjacencyStrategy, payloadBytes int, mgr *version.Manager) *AdjacencyTable {
	at := &AdjacencyTable{Triplet: t, Name: name, strategy: strategy, payloadBytes: payloadBytes, manager: mgr}
	empty := make([]*adjBucket, 0)
	at.buckets.Store(&empty)
	return at
}

// Strategy reports the declared adjacency strategy for this direction.
func (at *AdjacencyTable) Strategy() types.AdjacencyStrategy { return at.strategy }

func (at *AdjacencyTable) stripeFor(vid types.VID) *sync.Mutex {
	h := xxhash.Sum64(vidBytes(vid))
	return &at.lockStripe[h%lockStripeSize]
}

func vidBytes(vid types.VID) []byte {
	var b [4]byte
	b[0] = byte(vid)
	b[1] = byte(vid >> 8)
	b[2] = byte(vid >> 16)
	b[3] = byte(vid >> 24)
	return b[:]
}

// bucketFor returns vid's bucket, growing the outer bucket slice under
// bucketsGrowMu if vid has never been seen before. The outer slice grows
// by copy-and-republish so concurrent readers holding an old slice
// snapshot still see valid, never-moved *adjBucket pointers.
func (at *AdjacencyTable) bucketFor(vid types.VID) *adjBucket {
	buckets := *at.buckets.Load()
	if int(vid) < len(buckets) && buckets[vid] != nil {
		return buckets[vid]
	}

	at.bucketsGrowMu.Lock()
	defer at.bucketsGrowMu.Unlock()

	buckets = *at.buckets.Load()
	if int(vid) < len(buckets) && buckets[vid] != nil {
		return buckets[vid]
	}

	grown := buckets
	if int(vid) >= len(grown) {
		grown = make([]*adjBucket, vid+1)
		copy(grown, buckets)
	}
	b := &adjBucket{tomb: roaring.New()}
	grown[vid] = b
	at.buckets.Store(&grown)
	return b
}

// AddMultiple appends one edge to vid's adjacency bucket, growing the
// slab geometrically when full (§4.4's growth policy). ts is the
// commit timestamp of the write, used to schedule epoch reclamation of
// the slab being replaced.
func (at *AdjacencyTable) AddMultiple(vid types.VID, neighbor types.VID, payload []byte, ts types.Timestamp) error {
	if at.payloadBytes > 0 && len(payload) != at.payloadBytes {
		return types.Errorf(types.CodeInvalidInput, "fragment.AdjacencyTable.AddMultiple",
			"payload size %d does not match declared %d for %s", len(payload), at.payloadBytes, at.Triplet)
	}

	b := at.bucketFor(vid)
	mu := at.stripeFor(vid)
	mu.Lock()
	defer mu.Unlock()

	old := b.slab.Load()
	if old == nil {
		old = &adjSlab{}
	}

	if int(old.size) == len(old.neighbors) {
		newCap := 2 * len(old.neighbors)
		if newCap < 4 {
			newCap = 4
		}
		grown := &adjSlab{
			neighbors: make([]types.VID, newCap),
			data:      make([][]byte, newCap),
			insertTs:  make([]types.Timestamp, newCap),
			size:      old.size,
		}
		copy(grown.neighbors, old.neighbors)
		copy(grown.data, old.data)
		copy(grown.insertTs, old.insertTs)
		grown.neighbors[grown.size] = neighbor
		grown.data[grown.size] = payload
		grown.insertTs[grown.size] = ts
		grown.size++

		b.slab.Store(grown)
		metrics.AdjacencyGrowthTotal.WithLabelValues(at.Triplet.String()).Inc()
		if at.manager != nil {
			at.manager.DeferReclaim(ts, func() { _ = old })
		}
		return nil
	}

	// room in place: copy-on-write at the element level so an iterator
	// that captured `old` before this call never observes the new entry.
	grown := &adjSlab{
		neighbors: append([]types.VID(nil), old.neighbors...),
		data:      append([][]byte(nil), old.data...),
		insertTs:  append([]types.Timestamp(nil), old.insertTs...),
		size:      old.size,
	}
	grown.neighbors[grown.size] = neighbor
	grown.data[grown.size] = payload
	grown.insertTs[grown.size] = ts
	grown.size++
	b.slab.Store(grown)
	if at.manager != nil {
		at.manager.DeferReclaim(ts, func() { _ = old })
	}
	return nil
}

// TombstoneMultiple marks the slot in vid's bucket that targets neighbor
// as logically deleted. It tombstones the first live matching slot.
func (at *AdjacencyTable) TombstoneMultiple(vid, neighbor types.VID) error {
	b := at.bucketFor(vid)
	mu := at.stripeFor(vid)
	mu.Lock()
	defer mu.Unlock()

	slab := b.slab.Load()
	if slab == nil {
		return types.NewError(types.CodeNotFound, "fragment.AdjacencyTable.TombstoneMultiple", nil)
	}
	for i := uint32(0); i < slab.size; i++ {
		if slab.neighbors[i] == neighbor {
			b.tombMu.Lock()
			b.tomb.Add(i)
			b.tombMu.Unlock()

			grown := &adjSlab{
				neighbors: append([]types.VID(nil), slab.neighbors...),
				data:      append([][]byte(nil), slab.data...),
				insertTs:  append([]types.Timestamp(nil), slab.insertTs...),
				size:      slab.size,
			}
			grown.neighbors[i] = types.InvalidVID
			b.slab.Store(grown)
			return nil
		}
	}
	return types.NewError(types.CodeNotFound, "fragment.AdjacencyTable.TombstoneMultiple", nil)
}

// OverwritePayload replaces the payload of the first live slot in vid's
// bucket that targets neighbor, for both adjacency strategies.
func (at *AdjacencyTable) OverwritePayload(vid, neighbor types.VID, payload []byte) error {
	if at.payloadBytes > 0 && len(payload) != at.payloadBytes {
		return types.Errorf(types.CodeInvalidInput, "fragment.AdjacencyTable.OverwritePayload",
			"payload size %d does not match declared %d for %s", len(payload), at.payloadBytes, at.Triplet)
	}

	if at.strategy == types.AdjacencySingle {
		at.singleMu.Lock()
		defer at.singleMu.Unlock()
		if int(vid) >= len(at.singleValid) || !at.singleValid[vid] || at.singleNbr[vid] != neighbor {
			return types.NewError(types.CodeNotFound, "fragment.AdjacencyTable.OverwritePayload", nil)
		}
		at.singleData[vid] = payload
		return nil
	}

	b := at.bucketFor(vid)
	mu := at.stripeFor(vid)
	mu.Lock()
	defer mu.Unlock()

	slab := b.slab.Load()
	if slab == nil {
		return types.NewError(types.CodeNotFound, "fragment.AdjacencyTable.OverwritePayload", nil)
	}
	for i := uint32(0); i < slab.size; i++ {
		if slab.neighbors[i] == neighbor {
			grown := &adjSlab{
				neighbors: append([]types.VID(nil), slab.neighbors...),
				data:      append([][]byte(nil), slab.data...),
				insertTs:  append([]types.Timestamp(nil), slab.insertTs...),
				size:      slab.size,
			}
			grown.data[i] = payload
			b.slab.Store(grown)
			return nil
		}
	}
	return types.NewError(types.CodeNotFound, "fragment.AdjacencyTable.OverwritePayload", nil)
}

// EdgeView is one materialized, non-tombstoned edge yielded by an
// iterator.
type EdgeView struct {
	Neighbor types.VID
	Payload  []byte
}

// EdgeIterator yields every non-tombstoned edge of one bucket exactly
// once, in insertion order. It captures the slab pointer and tombstone
// snapshot at creation, so it is unaffected by concurrent growth or
// tombstoning (§4.4's iterator contract).
type EdgeIterator struct {
	slab     *adjSlab
	tomb     *roaring.Bitmap
	pos      uint32
	filtered bool
	readTs   types.Timestamp
}

// Iterate returns an iterator over vid's current adjacency snapshot,
// ignoring insertion timestamps.
func (at *AdjacencyTable) Iterate(vid types.VID) *EdgeIterator {
	return at.iterate(vid, 0, false)
}

// IterateAt returns an iterator over vid's adjacency snapshot, skipping
// any edge not yet visible at readTs (§3 invariant 3).
func (at *AdjacencyTable) IterateAt(vid types.VID, readTs types.Timestamp) *EdgeIterator {
	return at.iterate(vid, readTs, true)
}

func (at *AdjacencyTable) iterate(vid types.VID, readTs types.Timestamp, filtered bool) *EdgeIterator {
	buckets := *at.buckets.Load()
	if int(vid) >= len(buckets) || buckets[vid] == nil {
		return &EdgeIterator{filtered: filtered, readTs: readTs}
	}
	b := buckets[vid]
	slab := b.slab.Load()
	b.tombMu.Lock()
	tombSnapshot := b.tomb.Clone()
	b.tombMu.Unlock()
	return &EdgeIterator{slab: slab, tomb: tombSnapshot, filtered: filtered, readTs: readTs}
}

// Next advances the iterator, returning false when exhausted.
func (it *EdgeIterator) Next() (EdgeView, bool) {
	if it.slab == nil {
		return EdgeView{}, false
	}
	for it.pos < it.slab.size {
		i := it.pos
		it.pos++
		if it.tomb != nil && it.tomb.Contains(i) {
			continue
		}
		if it.slab.neighbors[i] == types.InvalidVID {
			continue
		}
		if it.filtered && int(i) < len(it.slab.insertTs) && it.slab.insertTs[i] > it.readTs {
			continue
		}
		return EdgeView{Neighbor: it.slab.neighbors[i], Payload: it.slab.data[i]}, true
	}
	return EdgeView{}, false
}

// Count returns the number of non-tombstoned edges in vid's bucket.
func (at *AdjacencyTable) Count(vid types.VID) int {
	it := at.Iterate(vid)
	n := 0
	for {
		if _, ok := it.Next(); !ok {
			break
		}
		n++
	}
	return n
}

// SetSingle sets the inline single-edge slot for vid, recording it as
// always visible. Callers that must gate visibility behind a commit
// timestamp use SetSingleAt instead.
func (at *AdjacencyTable) SetSingle(vid, neighbor types.VID, payload []byte) error {
	return at.setSingle(vid, neighbor, payload, 0)
}

// SetSingleAt is SetSingle, recording ts as the timestamp at which the
// edge becomes visible to a reader (§3 invariant 3).
func (at *AdjacencyTable) SetSingleAt(vid, neighbor types.VID, payload []byte, ts types.Timestamp) error {
	return at.setSingle(vid, neighbor, payload, ts)
}

func (at *AdjacencyTable) setSingle(vid, neighbor types.VID, payload []byte, ts types.Timestamp) error {
	if at.payloadBytes > 0 && len(payload) != at.payloadBytes {
		return types.Errorf(types.CodeInvalidInput, "fragment.AdjacencyTable.SetSingle",
			"payload size %d does not match declared %d for %s", len(payload), at.payloadBytes, at.Triplet)
	}

	at.singleMu.Lock()
	defer at.singleMu.Unlock()
	if int(vid) >= len(at.singleValid) {
		n := int(vid) + 1
		grownNbr := make([]types.VID, n)
		copy(grownNbr, at.singleNbr)
		grownData := make([][]byte, n)
		copy(grownData, at.singleData)
		grownValid := make([]bool, n)
		copy(grownValid, at.singleValid)
		grownTs := make([]types.Timestamp, n)
		copy(grownTs, at.singleInsertTs)
		at.singleNbr, at.singleData, at.singleValid, at.singleInsertTs = grownNbr, grownData, grownValid, grownTs
	}
	at.singleNbr[vid] = neighbor
	at.singleData[vid] = payload
	at.singleValid[vid] = true
	at.singleInsertTs[vid] = ts
	return nil
}

// GetSingle returns vid's single inline edge, if any, ignoring
// insertion timestamps.
func (at *AdjacencyTable) GetSingle(vid types.VID) (EdgeView, bool) {
	at.singleMu.RLock()
	defer at.singleMu.RUnlock()
	if int(vid) >= len(at.singleValid) || !at.singleValid[vid] {
		return EdgeView{}, false
	}
	return EdgeView{Neighbor: at.singleNbr[vid], Payload: at.singleData[vid]}, true
}

// GetSingleAt returns vid's single inline edge as visible at readTs, if
// any.
func (at *AdjacencyTable) GetSingleAt(vid types.VID, readTs types.Timestamp) (EdgeView, bool) {
	at.singleMu.RLock()
	defer at.singleMu.RUnlock()
	if int(vid) >= len(at.singleValid) || !at.singleValid[vid] {
		return EdgeView{}, false
	}
	if at.singleInsertTs[vid] > readTs {
		return EdgeView{}, false
	}
	return EdgeView{Neighbor: at.singleNbr[vid], Payload: at.singleData[vid]}, true
}

// TombstoneSingle clears vid's single inline edge.
func (at *AdjacencyTable) TombstoneSingle(vid types.VID) error {
	at.singleMu.Lock()
	defer at.singleMu.Unlock()
	if int(vid) >= len(at.singleValid) || !at.singleValid[vid] {
		return types.NewError(types.CodeNotFound, "fragment.AdjacencyTable.TombstoneSingle", nil)
	}
	at.singleValid[vid] = false
	return nil
}

// TombstoneCardinality reports the number of tombstoned slots across the
// whole table, for the compact transaction's reclamation decision.
func (at *AdjacencyTable) TombstoneCardinality() uint64 {
	buckets := *at.buckets.Load()
	var total uint64
	for _, b := range buckets {
		if b == nil {
			continue
		}
		b.tombMu.Lock()
		total += b.tomb.GetCardinality()
		b.tombMu.Unlock()
	}
	return total
}

// ReclaimTombstones physically compacts every bucket whose tombstone
// bitmap is non-empty, dropping the dead (neighbor, payload) slots from
// the slab and resetting the bitmap. minRead bounds the
// version.Manager epoch under which the replaced slab is freed, so an
// EdgeIterator created by a still-outstanding reader and already
// holding the old slab keeps working. It returns the number of slots
// reclaimed.
func (at *AdjacencyTable) ReclaimTombstones(minRead types.Timestamp) uint64 {
	buckets := *at.buckets.Load()
	var reclaimed uint64
	for vid, b := range buckets {
		if b == nil {
			continue
		}
		mu := at.stripeFor(types.VID(vid))
		mu.Lock()
		reclaimed += at.reclaimBucket(b, minRead)
		mu.Unlock()
	}
	return reclaimed
}

func (at *AdjacencyTable) reclaimBucket(b *adjBucket, minRead types.Timestamp) uint64 {
	b.tombMu.Lock()
	if b.tomb.IsEmpty() {
		b.tombMu.Unlock()
		return 0
	}
	tomb := b.tomb.Clone()
	b.tombMu.Unlock()

	slab := b.slab.Load()
	if slab == nil {
		return 0
	}

	compact := &adjSlab{
		neighbors: make([]types.VID, 0, slab.size),
		data:      make([][]byte, 0, slab.size),
		insertTs:  make([]types.Timestamp, 0, slab.size),
	}
	var reclaimed uint64
	for i := uint32(0); i < slab.size; i++ {
		if tomb.Contains(i) || slab.neighbors[i] == types.InvalidVID {
			reclaimed++
			continue
		}
		compact.neighbors = append(compact.neighbors, slab.neighbors[i])
		compact.data = append(compact.data, slab.data[i])
		compact.insertTs = append(compact.insertTs, slab.insertTs[i])
	}
	if reclaimed == 0 {
		return 0
	}
	compact.size = uint32(len(compact.neighbors))
	b.slab.Store(compact)

	b.tombMu.Lock()
	b.tomb = roaring.New()
	b.tombMu.Unlock()

	if at.manager != nil {
		at.manager.DeferReclaim(minRead, func() { _ = slab })
	}
	return reclaimed
}
