/*
Package session implements the fixed per-thread execution surface of
§4.8: each Session owns one allocator, one WAL writer, and a 256-slot
cache of resolved procedure handles, and routes opaque byte payloads to
them through Eval.

Eval treats the last byte of its input as the target procedure id,
strips it, and invokes the cached (or freshly resolved) procedure.
A failing invocation is retried up to MaxRetry times with a 1ms pause
between attempts, each attempt getting a fresh procedure.Decoder and
procedure.Encoder over the same input (the procedure.Host is the Session
itself on every attempt) — a procedure must not assume transaction
continuity across retries.
Exhausting MaxRetry surfaces types.CodeQueryFailed. Each call is tagged
with a fresh uuid.NewString() invocation id, carried through its retry
and failure log lines so a single Eval call's attempts can be
correlated in the logs.
*/
package session
