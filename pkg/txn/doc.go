/*
Package txn implements the six transaction flavors of §4.6 and the
shared state machine of §4.7: read, batch-insert, single-vertex-insert,
single-edge-insert, update, and compact. All mutating flavors build
their operation list in memory, apply it to the fragment, and only once
every operation has succeeded do they append and flush a wal.Record —
so a failed operation never produces a partial WAL entry or a partially
visible mutation.

Update transactions never write through the fragment's property
columns directly. They publish into the version.Manager's overlay
store instead, keyed by (label, vid, property) or (triplet, src, dst)
for edge payloads, so a read transaction holding an older timestamp
keeps observing the value that was live when it started (§8 E4).
*/
package txn
