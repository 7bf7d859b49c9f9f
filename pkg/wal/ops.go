package wal

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

func init() {
	gob.Register(int32(0))
	gob.Register(int64(0))
	gob.Register(uint32(0))
	gob.Register(uint64(0))
	gob.Register(float32(0))
	gob.Register(float64(0))
	gob.Register(false)
	gob.Register("")
}

// Op tags for insert-record bodies.
const (
	OpAddVertex byte = 0
	OpAddEdge   byte = 1
)

// Op tags for update-record bodies.
const (
	OpSetVertexProp byte = 0
	OpTombstoneEdge byte = 1
	OpSetEdgeProp   byte = 2
)

// AddVertexOp logs a new vertex and its initial properties.
type AddVertexOp struct {
	Label types.VLabel
	OID   types.OID
	Props map[string]any
}

// AddEdgeOp logs one new edge, identified by the oids of its endpoints
// so replay can resolve vids after both endpoints' AddVertexOps have
// run.
type AddEdgeOp struct {
	Triplet types.Triplet
	SrcOID  types.OID
	DstOID  types.OID
	Payload []byte
}

// SetVertexPropOp logs an in-place property overwrite.
type SetVertexPropOp struct {
	Label types.VLabel
	OID   types.OID
	Prop  string
	Value any
}

// TombstoneEdgeOp logs an edge deletion.
type TombstoneEdgeOp struct {
	Triplet types.Triplet
	SrcOID  types.OID
	DstOID  types.OID
}

// SetEdgePropOp logs an edge payload overwrite.
type SetEdgePropOp struct {
	Triplet types.Triplet
	SrcOID  types.OID
	DstOID  types.OID
	Payload []byte
}

func encodeOp(tag byte, v any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(v); err != nil {
		return nil, types.Errorf(types.CodeInvalidInput, "wal.encodeOp", "gob encode: %w", err)
	}
	out := make([]byte, 0, 5+buf.Len())
	out = append(out, tag)
	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(buf.Len()))
	out = append(out, lenBuf[:]...)
	out = append(out, buf.Bytes()...)
	return out, nil
}

// EncodeInsertBody concatenates AddVertexOp/AddEdgeOp values into one
// insert record body, in the order a BatchInsertTxn applied them.
func EncodeInsertBody(ops ...any) ([]byte, error) {
	var body []byte
	for _, op := range ops {
		var tag byte
		switch op.(type) {
		case AddVertexOp:
			tag = OpAddVertex
		case AddEdgeOp:
			tag = OpAddEdge
		default:
			return nil, types.Errorf(types.CodeInvalidInput, "wal.EncodeInsertBody", "unsupported op %T", op)
		}
		enc, err := encodeOp(tag, op)
		if err != nil {
			return nil, err
		}
		body = append(body, enc...)
	}
	return body, nil
}

// EncodeUpdateBody concatenates SetVertexPropOp/TombstoneEdgeOp values
// into one update record body.
func EncodeUpdateBody(ops ...any) ([]byte, error) {
	var body []byte
	for _, op := range ops {
		var tag byte
		switch op.(type) {
		case SetVertexPropOp:
			tag = OpSetVertexProp
		case TombstoneEdgeOp:
			tag = OpTombstoneEdge
		case SetEdgePropOp:
			tag = OpSetEdgeProp
		default:
			return nil, types.Errorf(types.CodeInvalidInput, "wal.EncodeUpdateBody", "unsupported op %T", op)
		}
		enc, err := encodeOp(tag, op)
		if err != nil {
			return nil, err
		}
		body = append(body, enc...)
	}
	return body, nil
}

// DecodeInsertBody walks body's op sequence, invoking onVertex/onEdge
// for each op in order.
func DecodeInsertBody(body []byte, onVertex func(AddVertexOp) error, onEdge func(AddEdgeOp) error) error {
	for len(body) > 0 {
		if len(body) < 5 {
			return types.Errorf(types.CodeDurabilityError, "wal.DecodeInsertBody", "truncated op header")
		}
		tag := body[0]
		n := binary.LittleEndian.Uint32(body[1:5])
		if len(body) < int(5+n) {
			return types.Errorf(types.CodeDurabilityError, "wal.DecodeInsertBody", "truncated op payload")
		}
		payload := body[5 : 5+n]
		switch tag {
		case OpAddVertex:
			var op AddVertexOp
			if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&op); err != nil {
				return types.Errorf(types.CodeDurabilityError, "wal.DecodeInsertBody", "decode AddVertexOp: %w", err)
			}
			if err := onVertex(op); err != nil {
				return err
			}
		case OpAddEdge:
			var op AddEdgeOp
			if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&op); err != nil {
				return types.Errorf(types.CodeDurabilityError, "wal.DecodeInsertBody", "decode AddEdgeOp: %w", err)
			}
			if err := onEdge(op); err != nil {
				return err
			}
		default:
			return types.Errorf(types.CodeInvalidInput, "wal.DecodeInsertBody", "unknown op tag %d", tag)
		}
		body = body[5+n:]
	}
	return nil
}

// DecodeUpdateBody walks body's op sequence, invoking onProp/onTomb/
// onEdgeProp for each op in order.
func DecodeUpdateBody(body []byte, onProp func(SetVertexPropOp) error, onTomb func(TombstoneEdgeOp) error, onEdgeProp func(SetEdgePropOp) error) error {
	for len(body) > 0 {
		if len(body) < 5 {
			return types.Errorf(types.CodeDurabilityError, "wal.DecodeUpdateBody", "truncated op header")
		}
		tag := body[0]
		n := binary.LittleEndian.Uint32(body[1:5])
		if len(body) < int(5+n) {
			return types.Errorf(types.CodeDurabilityError, "wal.DecodeUpdateBody", "truncated op payload")
		}
		payload := body[5 : 5+n]
		switch tag {
		case OpSetVertexProp:
			var op SetVertexPropOp
			if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&op); err != nil {
				return types.Errorf(types.CodeDurabilityError, "wal.DecodeUpdateBody", "decode SetVertexPropOp: %w", err)
			}
			if err := onProp(op); err != nil {
				return err
			}
		case OpTombstoneEdge:
			var op TombstoneEdgeOp
			if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&op); err != nil {
				return types.Errorf(types.CodeDurabilityError, "wal.DecodeUpdateBody", "decode TombstoneEdgeOp: %w", err)
			}
			if err := onTomb(op); err != nil {
				return err
			}
		case OpSetEdgeProp:
			var op SetEdgePropOp
			if err := gob.NewDecoder(bytes.NewReader(payload)).Decode(&op); err != nil {
				return types.Errorf(types.CodeDurabilityError, "wal.DecodeUpdateBody", "decode SetEdgePropOp: %w", err)
			}
			if err := onEdgeProp(op); err != nil {
				return err
			}
		default:
			return types.Errorf(types.CodeInvalidInput, "wal.DecodeUpdateBody", "unknown op tag %d", tag)
		}
		body = body[5+n:]
	}
	return nil
}
