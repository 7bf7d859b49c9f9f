/*
Package wal implements the write-ahead log of §4.5: the byte-exact outer
record framing (4-byte size, 4-byte timestamp, 1-byte kind, body), a
per-session Writer that buffers and flushes records to a Transport, and a
Parser that replays WAL segments into a fragment on restart.

The op tags that identify each record's body are fixed, but the op
payload encoding is this module's own concern, so it is encoded with
encoding/gob — an internal detail, not a cross-process wire format, and
gob already ships in every Go toolchain the rest of this module
targets.

Replay partitions sorted records into insert-ranges delimited by update
records, replays each insert-range concurrently with
golang.org/x/sync/errgroup, and applies each update record sequentially
between ranges, per §4.5's ordering requirement. Within an
insert-range, every vertex op across the range is applied before any
edge op, so an edge referencing a vertex created elsewhere in the same
range always resolves.
*/
package wal
