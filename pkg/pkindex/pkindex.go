// Package pkindex implements the per-vertex-label primary-key index. See
// doc.go.
package pkindex

import (
	"sync"
	"sync/atomic"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Index is one vertex label's primary-key index: oid -> vid plus the
// dense vid -> oid keys column, per §4.3.
type Index struct {
	insertMu  sync.Mutex
	committed atomic.Pointer[map[types.OID]types.VID]
	keys      atomic.Pointer[[]types.OID]
	insertTs  atomic.Pointer[[]types.Timestamp]
	nextVID   uint32
}

// New creates an empty primary-key index.
func New() *Index {
	idx := &Index{}
	empty := make(map[types.OID]types.VID)
	idx.committed.Store(&empty)
	emptyKeys := make([]types.OID, 0)
	idx.keys.Store(&emptyKeys)
	emptyTs := make([]types.Timestamp, 0)
	idx.insertTs.Store(&emptyTs)
	return idx
}

// Lookup returns the vid assigned to oid, or types.ErrNotFound. It
// ignores insertion timestamps; callers that must honor a reader's
// read_ts use LookupAt instead.
func (idx *Index) Lookup(oid types.OID) (types.VID, error) {
	m := *idx.committed.Load()
	vid, ok := m[oid]
	if !ok {
		return types.InvalidVID, types.NewError(types.CodeNotFound, "pkindex.Lookup", nil)
	}
	return vid, nil
}

// LookupAt returns the vid assigned to oid, as types.ErrNotFound if the
// assignment itself is not yet visible at readTs (§3 invariant 3: a
// reader must not observe an insert committed after its read_ts).
func (idx *Index) LookupAt(oid types.OID, readTs types.Timestamp) (types.VID, error) {
	vid, err := idx.Lookup(oid)
	if err != nil {
		return types.InvalidVID, err
	}
	ts := *idx.insertTs.Load()
	if int(vid) < len(ts) && ts[vid] > readTs {
		return types.InvalidVID, types.NewError(types.CodeNotFound, "pkindex.LookupAt", nil)
	}
	return vid, nil
}

// Insert assigns the next vid to oid and returns it, recording it as
// always visible (ts 0). A duplicate oid fails with
// types.ErrDuplicateKey and leaves the index unchanged.
func (idx *Index) Insert(oid types.OID) (types.VID, error) {
	return idx.InsertAt(oid, 0)
}

// InsertAt assigns the next vid to oid, recording ts as the timestamp
// at which the assignment becomes visible to a reader whose read_ts has
// advanced past it.
func (idx *Index) InsertAt(oid types.OID, ts types.Timestamp) (types.VID, error) {
	idx.insertMu.Lock()
	defer idx.insertMu.Unlock()

	m := *idx.committed.Load()
	if _, exists := m[oid]; exists {
		return types.InvalidVID, types.NewError(types.CodeDuplicateKey, "pkindex.Insert", nil)
	}

	vid := types.VID(idx.nextVID)
	idx.nextVID++

	newMap := make(map[types.OID]types.VID, len(m)+1)
	for k, v := range m {
		newMap[k] = v
	}
	newMap[oid] = vid

	oldKeys := *idx.keys.Load()
	newKeys := make([]types.OID, len(oldKeys)+1)
	copy(newKeys, oldKeys)
	newKeys[vid] = oid

	oldTs := *idx.insertTs.Load()
	newTs := make([]types.Timestamp, len(oldTs)+1)
	copy(newTs, oldTs)
	newTs[vid] = ts

	idx.keys.Store(&newKeys)
	idx.insertTs.Store(&newTs)
	idx.committed.Store(&newMap)
	return vid, nil
}

// Size returns the number of assigned vids, i.e. vertex_num for this
// label.
func (idx *Index) Size() int {
	return len(*idx.keys.Load())
}

// OIDAt returns the oid assigned to vid. It panics if vid is out of
// range, matching the "dense array" guarantee callers rely on: every
// valid vid returned by Insert has a corresponding keys-column entry.
func (idx *Index) OIDAt(vid types.VID) types.OID {
	keys := *idx.keys.Load()
	return keys[vid]
}

// Iterate yields (vid, oid) pairs in vid order over a consistent
// snapshot of the index, stopping early if yield returns false.
func (idx *Index) Iterate(yield func(vid types.VID, oid types.OID) bool) {
	keys := *idx.keys.Load()
	for i, oid := range keys {
		if !yield(types.VID(i), oid) {
			return
		}
	}
}

// IterateAt yields (vid, oid) pairs in vid order, skipping any vid
// whose insertion is not yet visible at readTs.
func (idx *Index) IterateAt(readTs types.Timestamp, yield func(vid types.VID, oid types.OID) bool) {
	keys := *idx.keys.Load()
	ts := *idx.insertTs.Load()
	for i, oid := range keys {
		if i < len(ts) && ts[i] > readTs {
			continue
		}
		if !yield(types.VID(i), oid) {
			return
		}
	}
}
