package wal

import (
	"bytes"
	"os"
	"sync"

	"github.com/flexgraph-db/flexgraph/pkg/arena"
	"github.com/flexgraph-db/flexgraph/pkg/log"
	"github.com/flexgraph-db/flexgraph/pkg/metrics"
	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Transport is the durable, ordered sink a Writer flushes framed
// records to. A Kafka-backed transport satisfying this same interface
// is out of scope here but fits without changing Writer.
type Transport interface {
	Write(p []byte) (int, error)
	Sync() error
}

// FileTransport is the only Transport this module provides: one
// append-only local file per session, per the §6 on-disk layout.
type FileTransport struct {
	f *os.File
}

// OpenFileTransport opens (creating if needed) an append-only WAL
// segment file at path.
func OpenFileTransport(path string) (*FileTransport, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, types.Errorf(types.CodeDurabilityError, "wal.OpenFileTransport", "open %s: %w", path, err)
	}
	return &FileTransport{f: f}, nil
}

func (t *FileTransport) Write(p []byte) (int, error) { return t.f.Write(p) }
func (t *FileTransport) Sync() error                 { return t.f.Sync() }
func (t *FileTransport) Close() error                { return t.f.Close() }

// Writer is a per-session WAL writer. Records are appended to a buffer
// backed by the session's arena and flushed to the transport on
// Flush, which does not return until bytes are fsync'd.
type Writer struct {
	mu        sync.Mutex
	transport Transport
	buf       *bytes.Buffer
}

// NewWriter creates a writer over transport. sessionArena supplies the
// buffer's initial backing storage; growth beyond that capacity falls
// back to bytes.Buffer's own allocator, since a generic Buffer cannot
// be handed a custom allocator for unbounded growth.
func NewWriter(transport Transport, sessionArena *arena.Arena) *Writer {
	initial := sessionArena.Alloc(4096)
	return &Writer{transport: transport, buf: bytes.NewBuffer(initial[:0])}
}

// Append frames rec and adds it to the pending buffer. It does not
// touch the transport; call Flush to make it durable.
func (w *Writer) Append(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.buf.Write(rec.Encode())
}

// Flush writes every buffered record to the transport and syncs it
// before returning, satisfying the commit durability requirement of
// §4.6/§4.7.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.buf.Len() == 0 {
		return nil
	}
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.WALFlushDuration)

	n := w.buf.Len()
	if _, err := w.transport.Write(w.buf.Bytes()); err != nil {
		log.WithComponent("wal").Error().Err(err).Msg("flush write failed")
		return types.Errorf(types.CodeDurabilityError, "wal.Writer.Flush", "write: %w", err)
	}
	if err := w.transport.Sync(); err != nil {
		log.WithComponent("wal").Error().Err(err).Msg("flush sync failed")
		return types.Errorf(types.CodeDurabilityError, "wal.Writer.Flush", "sync: %w", err)
	}
	metrics.WALBytesWrittenTotal.Add(float64(n))
	w.buf.Reset()
	return nil
}
