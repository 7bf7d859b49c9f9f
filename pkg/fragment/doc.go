/*
Package fragment implements the mutable fragment of §4.4: the graph
itself, as one VertexTable per declared vertex label plus one
AdjacencyTable per declared (src, dst, edge) triplet per direction.

Growth of a "multiple"-strategy adjacency bucket follows the geometric
policy of §4.4 exactly: allocate max(4, 2*capacity), copy, and publish
the new slab pointer atomically, so readers that captured the old
pointer keep a valid, unaffected snapshot. Tombstoned slots are tracked
per bucket with a roaring bitmap so compaction can test reclaimability in
O(1) instead of scanning every slot. Writers to a given (src_label,
dst_label, edge_label, src_vid) bucket are serialized by a small
fixed-size mutex array indexed by xxhash of the bucket key, per §5; reads
never take this lock and tolerate concurrent growth by always reading
through the atomic slab pointer.
*/
package fragment
