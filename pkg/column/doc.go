/*
Package column implements the typed, indexable property columns of §4.2:
a uniform get/set/size/reserve/serialize/deserialize surface over vid-
indexed values, with two storage strategies behind it.

MemoryColumn is a growable in-process slice. MappedColumn is backed by a
single-bucket go.etcd.io/bbolt database, giving the "memory-mapped"
strategy from §3 an OS-page-cache-backed, crash-safe realization —
bbolt already mmaps its data file and exposes copy-on-write B+tree pages,
so a column value is simply a bbolt value keyed by a 4-byte big-endian
vid.

DictColumn and LongStringColumn are the two string representations:
DictColumn assigns small integer codes to distinct strings under an
internal lock; LongStringColumn holds each value as a stable, arena-
backed string — a Go string header already is an (offset, length) pair
into immutable backing memory, so the arena is what supplies the
stability guarantee.
*/
package column
