package procedure

import (
	"encoding/binary"
	"math"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Decoder reads a length-prefixed, little-endian framed buffer: the
// procedure ABI's input representation (§6). All Get* methods advance
// the cursor and fail with CodeInvalidInput if the buffer is exhausted.
type Decoder struct {
	buf []byte
	pos int
}

// NewDecoder wraps buf for reading. buf is not copied; callers must not
// mutate it while the Decoder is in use.
func NewDecoder(buf []byte) *Decoder {
	return &Decoder{buf: buf}
}

// Remaining reports how many bytes are left to decode.
func (d *Decoder) Remaining() int { return len(d.buf) - d.pos }

func (d *Decoder) take(n int) ([]byte, error) {
	if d.Remaining() < n {
		return nil, types.Errorf(types.CodeInvalidInput, "procedure.Decoder", "need %d bytes, have %d", n, d.Remaining())
	}
	b := d.buf[d.pos : d.pos+n]
	d.pos += n
	return b, nil
}

// GetByte reads one raw byte, e.g. a value-kind tag.
func (d *Decoder) GetByte() (byte, error) {
	b, err := d.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// GetBool reads one byte as a boolean.
func (d *Decoder) GetBool() (bool, error) {
	b, err := d.take(1)
	if err != nil {
		return false, err
	}
	return b[0] != 0, nil
}

// GetInt32 reads 4 little-endian bytes.
func (d *Decoder) GetInt32() (int32, error) {
	b, err := d.take(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.LittleEndian.Uint32(b)), nil
}

// GetInt64 reads 8 little-endian bytes.
func (d *Decoder) GetInt64() (int64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(b)), nil
}

// GetDouble reads 8 little-endian bytes as an IEEE-754 float64.
func (d *Decoder) GetDouble() (float64, error) {
	b, err := d.take(8)
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(binary.LittleEndian.Uint64(b)), nil
}

// GetString reads a 4-byte length prefix followed by that many bytes,
// returning an owned copy.
func (d *Decoder) GetString() (string, error) {
	view, err := d.GetStringView()
	if err != nil {
		return "", err
	}
	return string(view), nil
}

// GetStringView reads a 4-byte length prefix followed by that many
// bytes, returning a slice aliasing the underlying buffer rather than a
// copy — the ABI's "string-view" form, for callers that only need to
// read the value once within the same call.
func (d *Decoder) GetStringView() ([]byte, error) {
	n, err := d.GetInt32()
	if err != nil {
		return nil, err
	}
	if n < 0 {
		return nil, types.Errorf(types.CodeInvalidInput, "procedure.Decoder.GetStringView", "negative length %d", n)
	}
	return d.take(int(n))
}

// Encoder appends to a length-prefixed, little-endian framed buffer: the
// procedure ABI's output representation (§6).
type Encoder struct {
	buf []byte
}

// NewEncoder returns an empty Encoder.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Bytes returns the accumulated output buffer.
func (e *Encoder) Bytes() []byte { return e.buf }

// PutBool appends one byte.
func (e *Encoder) PutBool(v bool) {
	if v {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// PutInt32 appends 4 little-endian bytes.
func (e *Encoder) PutInt32(v int32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], uint32(v))
	e.buf = append(e.buf, b[:]...)
}

// PutInt64 appends 8 little-endian bytes.
func (e *Encoder) PutInt64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	e.buf = append(e.buf, b[:]...)
}

// PutDouble appends 8 little-endian bytes holding an IEEE-754 float64.
func (e *Encoder) PutDouble(v float64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], math.Float64bits(v))
	e.buf = append(e.buf, b[:]...)
}

// PutString appends a 4-byte length prefix followed by s's bytes.
func (e *Encoder) PutString(s string) {
	e.PutInt32(int32(len(s)))
	e.buf = append(e.buf, s...)
}
