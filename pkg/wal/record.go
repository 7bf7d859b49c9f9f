package wal

import (
	"encoding/binary"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Record kinds, per §4.5.
const (
	KindInsert byte = 0
	KindUpdate byte = 1
)

// Record is one WAL entry: a commit timestamp, a kind, and an opaque
// body whose shape DecodeInsertBody/DecodeUpdateBody interpret.
type Record struct {
	Timestamp types.Timestamp
	Kind      byte
	Body      []byte
}

// Encode frames rec exactly per §4.5: a 4-byte little-endian size
// (including the 9-byte header itself), a 4-byte little-endian
// timestamp, a 1-byte kind, then the body.
func (rec Record) Encode() []byte {
	size := uint32(9 + len(rec.Body))
	out := make([]byte, size)
	binary.LittleEndian.PutUint32(out[0:4], size)
	binary.LittleEndian.PutUint32(out[4:8], uint32(rec.Timestamp))
	out[8] = rec.Kind
	copy(out[9:], rec.Body)
	return out
}

// DecodeRecord parses one record from the front of data. truncated is
// true when data does not hold a complete record yet -- the §4.5
// "detect and ignore a truncated tail" case, not itself an error.
func DecodeRecord(data []byte) (rec *Record, consumed int, truncated bool) {
	if len(data) < 9 {
		return nil, 0, true
	}
	size := binary.LittleEndian.Uint32(data[0:4])
	if size < 9 || len(data) < int(size) {
		return nil, 0, true
	}
	ts := binary.LittleEndian.Uint32(data[4:8])
	kind := data[8]
	body := make([]byte, size-9)
	copy(body, data[9:size])
	return &Record{Timestamp: types.Timestamp(ts), Kind: kind, Body: body}, int(size), false
}
