/*
Package pkindex implements the per-vertex-label primary-key index of
§4.3: a bidirectional map between an external oid and a dense internal
vid.

Lookups are lock-free: the committed oid->vid map and the vid->oid keys
column each live behind an atomic.Pointer, so Lookup and Iterate read a
consistent snapshot without taking a lock. Insert is serialized by a
per-label mutex; it copies the committed map, adds the new entry, and
republishes both pointers atomically, the same copy-on-write discipline
pkg/fragment uses for adjacency growth.
*/
package pkindex
