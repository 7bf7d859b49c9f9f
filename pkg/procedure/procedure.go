package procedure

import (
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/schema"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

// Host is the slice of a session a Procedure needs to open transactions
// against. session.Session implements it; the interface exists so this
// package does not import pkg/session, which itself imports pkg/procedure
// for its handle cache.
type Host interface {
	Fragment() *fragment.Fragment
	Manager() *version.Manager
	Writer() *wal.Writer
	Schema() *schema.Schema
}

// Procedure is the ABI of §4.9/§6: a compiled unit invoked by id through
// Eval and executing against a transaction it opens itself on host.
// Invoke returns false to signal a retryable failure; the caller session
// retries up to MAX_RETRY times before surfacing QueryFailed.
type Procedure interface {
	Kind() Kind
	Invoke(host Host, in *Decoder, out *Encoder) bool
}
