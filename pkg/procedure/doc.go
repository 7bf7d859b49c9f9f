/*
Package procedure implements the procedure ABI of §4.9/§6: the compiled
unit a session invokes by numeric id, the length-prefixed codec its
input/output buffers use, the loader that resolves an id to a
Procedure instance, and the built-in "server" procedure (id 0) that
answers admin commands over that same ABI.

A Procedure declares its Kind (Read, Write, CypherRead, CypherWrite,
Adhoc) and exposes one Invoke entry point taking a Decoder positioned
at the request body and an Encoder to append the response to. Invoke
returns false on failure; a session retries a failing invocation up to
MAX_RETRY times before surfacing QueryFailed.
*/
package procedure
