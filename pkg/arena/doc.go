/*
Package arena implements the bump allocator used for short-lived buffers
during edge materialization and WAL record construction (§2.1), and for
the long-lived append-only string blobs backing long-string columns
(§4.2).

An Arena is not safe for concurrent use. A session owns exactly one and
never shares it across threads; a fragment's long-string blob arena is
written only under the column's own lock. Reset reclaims an arena's
buffers; neither a session arena nor a blob arena is ever reset.
*/
package arena
