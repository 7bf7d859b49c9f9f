package session

import (
	"errors"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/flexgraph-db/flexgraph/pkg/arena"
	"github.com/flexgraph-db/flexgraph/pkg/fragment"
	"github.com/flexgraph-db/flexgraph/pkg/log"
	"github.com/flexgraph-db/flexgraph/pkg/metrics"
	"github.com/flexgraph-db/flexgraph/pkg/procedure"
	"github.com/flexgraph-db/flexgraph/pkg/schema"
	"github.com/flexgraph-db/flexgraph/pkg/types"
	"github.com/flexgraph-db/flexgraph/pkg/version"
	"github.com/flexgraph-db/flexgraph/pkg/wal"
)

// MaxRetry is the number of retry attempts Eval makes on a failing
// procedure invocation before surfacing CodeQueryFailed (§4.8).
const MaxRetry = 3

// retryDelay is the sleep between retry attempts.
const retryDelay = time.Millisecond

var errProcedureFailed = errors.New("procedure returned false")

// Session is one slot of the fixed SessionNum pool: single-threaded
// internally, owning its own allocator and WAL writer, matching the
// teacher's per-component-owns-its-resources style. Callers must not
// share a Session across goroutines.
type Session struct {
	id     int
	arena  *arena.Arena
	writer *wal.Writer
	frag   *fragment.Fragment
	mgr    *version.Manager
	schema *schema.Schema
	loader *procedure.Loader

	cache [256]procedure.Procedure
}

// New builds a Session backed by frag/mgr/schema, with its own arena and
// WAL writer over transport, and loader used to resolve procedure ids
// not already in the handle cache.
func New(id int, frag *fragment.Fragment, mgr *version.Manager, sch *schema.Schema, loader *procedure.Loader, transport wal.Transport, arenaSlabSize int) *Session {
	return &Session{
		id:     id,
		arena:  arena.New(arenaSlabSize),
		writer: wal.NewWriter(transport, arena.New(arenaSlabSize)),
		frag:   frag,
		mgr:    mgr,
		schema: sch,
		loader: loader,
	}
}

// Fragment, Manager, Writer, and Schema implement procedure.Host.
func (s *Session) Fragment() *fragment.Fragment { return s.frag }
func (s *Session) Manager() *version.Manager    { return s.mgr }
func (s *Session) Writer() *wal.Writer          { return s.writer }
func (s *Session) Schema() *schema.Schema       { return s.schema }

// resolve returns the cached procedure for id, resolving and caching it
// via the loader on a first use.
func (s *Session) resolve(id uint8) (procedure.Procedure, error) {
	if s.cache[id] != nil {
		return s.cache[id], nil
	}
	p, err := s.loader.Resolve(id)
	if err != nil {
		return nil, err
	}
	s.cache[id] = p
	return p, nil
}

// Eval interprets the last byte of payload as a procedure id, strips
// it, and invokes the corresponding procedure against a fresh
// procedure.Decoder/Encoder pair. A false return from the procedure is
// retried up to MaxRetry times with a retryDelay pause between
// attempts, each getting its own decode/encode state — a procedure must
// not assume continuity across retries. Exhausting MaxRetry surfaces
// CodeQueryFailed.
func (s *Session) Eval(payload []byte) ([]byte, error) {
	if len(payload) == 0 {
		return nil, types.Errorf(types.CodeInvalidInput, "session.Eval", "empty payload")
	}
	id := payload[len(payload)-1]
	body := payload[:len(payload)-1]
	idLabel := strconv.Itoa(int(id))
	invocationID := uuid.NewString()

	p, err := s.resolve(id)
	if err != nil {
		metrics.SessionInvocationsTotal.WithLabelValues(idLabel, "not_found").Inc()
		return nil, err
	}

	timer := metrics.NewTimer()
	var out *procedure.Encoder
	attempts := 0
	op := func() error {
		attempts++
		in := procedure.NewDecoder(body)
		out = procedure.NewEncoder()
		if p.Invoke(s, in, out) {
			return nil
		}
		metrics.SessionRetriesTotal.WithLabelValues(idLabel).Inc()
		log.WithSession(s.id).Warn().Str("invocation_id", invocationID).Int("procedure_id", int(id)).Int("attempt", attempts).Msg("procedure invocation failed, retrying")
		return errProcedureFailed
	}

	bo := backoff.WithMaxRetries(backoff.NewConstantBackOff(retryDelay), MaxRetry)
	err = backoff.Retry(op, bo)
	timer.ObserveDurationVec(metrics.ProcedureLatency, idLabel)

	if err != nil {
		metrics.SessionInvocationsTotal.WithLabelValues(idLabel, "failed").Inc()
		log.WithSession(s.id).Error().Str("invocation_id", invocationID).Int("procedure_id", int(id)).Int("attempts", attempts).Msg("procedure exhausted retries")
		return nil, types.Errorf(types.CodeQueryFailed, "session.Eval", "procedure %d failed after %d attempts", id, attempts)
	}
	metrics.SessionInvocationsTotal.WithLabelValues(idLabel, "ok").Inc()
	return out.Bytes(), nil
}
