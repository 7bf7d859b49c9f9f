package procedure

import (
	"github.com/flexgraph-db/flexgraph/pkg/txn"
	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Value type tags used by the admin commands to self-describe a
// property's encoded representation in the output buffer.
const (
	tagBool byte = iota
	tagInt64
	tagDouble
	tagString
)

// Admin command ids understood by BuiltinServerProcedure, selected by the
// first byte of its input after the outer procedure id has been
// stripped by the session.
const (
	CmdShowStoredProcedures byte = iota
	CmdQueryVertex
	CmdQueryEdge
)

// BuiltinServerProcedure is procedure id 0 (§6): the admin surface
// answering SHOW_STORED_PROCEDURES, QUERY_VERTEX, and QUERY_EDGE over
// the same Decoder/Encoder ABI every other procedure uses.
type BuiltinServerProcedure struct{}

func (BuiltinServerProcedure) Kind() Kind { return Read }

// Invoke dispatches on the leading command byte.
func (p BuiltinServerProcedure) Invoke(host Host, in *Decoder, out *Encoder) bool {
	cmdByte, err := in.GetByte()
	if err != nil {
		return false
	}
	switch cmdByte {
	case CmdShowStoredProcedures:
		return p.showStoredProcedures(host, out)
	case CmdQueryVertex:
		return p.queryVertex(host, in, out)
	case CmdQueryEdge:
		return p.queryEdge(host, in, out)
	default:
		return false
	}
}

func (p BuiltinServerProcedure) showStoredProcedures(host Host, out *Encoder) bool {
	names := host.Schema().ProcedureNames()
	out.PutInt32(int32(len(names)))
	for _, name := range names {
		id, err := host.Schema().ProcedureID(name)
		if err != nil {
			return false
		}
		out.PutString(name)
		out.PutInt32(int32(id))
	}
	return true
}

func (p BuiltinServerProcedure) queryVertex(host Host, in *Decoder, out *Encoder) bool {
	labelName, err := in.GetString()
	if err != nil {
		return false
	}
	oidVal, err := in.GetInt64()
	if err != nil {
		return false
	}

	label, err := host.Schema().VertexLabel(labelName)
	if err != nil {
		out.PutBool(false)
		return true
	}

	r := txn.NewReadTxn(host.Fragment(), host.Manager())
	defer r.Commit()

	vid, err := r.Lookup(label, types.OIDFromInt64(oidVal))
	if err != nil {
		out.PutBool(false)
		return true
	}

	vt, ok := host.Fragment().VertexTable(label)
	if !ok {
		out.PutBool(false)
		return true
	}

	names := vt.PropertyNames()
	out.PutBool(true)
	out.PutInt32(int32(vid))
	out.PutInt32(int32(len(names)))
	for _, name := range names {
		v, err := r.GetProperty(label, vid, name)
		if err != nil {
			return false
		}
		out.PutString(name)
		putTaggedValue(out, v)
	}
	return true
}

func (p BuiltinServerProcedure) queryEdge(host Host, in *Decoder, out *Encoder) bool {
	srcLabelName, err := in.GetString()
	if err != nil {
		return false
	}
	dstLabelName, err := in.GetString()
	if err != nil {
		return false
	}
	edgeName, err := in.GetString()
	if err != nil {
		return false
	}
	srcOIDVal, err := in.GetInt64()
	if err != nil {
		return false
	}
	outgoing, err := in.GetBool()
	if err != nil {
		return false
	}

	srcLabel, err := host.Schema().VertexLabel(srcLabelName)
	if err != nil {
		out.PutBool(false)
		return true
	}
	dstLabel, err := host.Schema().VertexLabel(dstLabelName)
	if err != nil {
		out.PutBool(false)
		return true
	}

	cfg := host.Schema().Resolve("")
	var triplet types.Triplet
	found := false
	for _, e := range cfg.EdgeLabels {
		if e.Triplet.Src == srcLabel && e.Triplet.Dst == dstLabel && e.Name == edgeName {
			triplet = e.Triplet
			found = true
			break
		}
	}
	if !found {
		out.PutBool(false)
		return true
	}

	r := txn.NewReadTxn(host.Fragment(), host.Manager())
	defer r.Commit()

	vid, err := r.Lookup(srcLabel, types.OIDFromInt64(srcOIDVal))
	if err != nil {
		out.PutBool(false)
		return true
	}

	var edges []struct {
		neighbor types.VID
		payload  []byte
	}
	if outgoing {
		it, err := r.GetOutgoingEdges(triplet, vid)
		if err != nil {
			out.PutBool(false)
			return true
		}
		for {
			e, ok := it.Next()
			if !ok {
				break
			}
			edges = append(edges, struct {
				neighbor types.VID
				payload  []byte
			}{e.Neighbor, e.Payload})
		}
	} else {
		it, err := r.GetIncomingEdges(triplet, vid)
		if err != nil {
			out.PutBool(false)
			return true
		}
		for {
			e, ok := it.Next()
			if !ok {
				break
			}
			edges = append(edges, struct {
				neighbor types.VID
				payload  []byte
			}{e.Neighbor, e.Payload})
		}
	}

	out.PutBool(true)
	out.PutInt32(int32(len(edges)))
	for _, e := range edges {
		out.PutInt32(int32(e.neighbor))
		out.PutString(string(e.payload))
	}
	return true
}

func putTaggedValue(out *Encoder, v any) {
	switch val := v.(type) {
	case bool:
		out.buf = append(out.buf, tagBool)
		out.PutBool(val)
	case int32:
		out.buf = append(out.buf, tagInt64)
		out.PutInt64(int64(val))
	case int64:
		out.buf = append(out.buf, tagInt64)
		out.PutInt64(val)
	case uint32:
		out.buf = append(out.buf, tagInt64)
		out.PutInt64(int64(val))
	case uint64:
		out.buf = append(out.buf, tagInt64)
		out.PutInt64(int64(val))
	case float32:
		out.buf = append(out.buf, tagDouble)
		out.PutDouble(float64(val))
	case float64:
		out.buf = append(out.buf, tagDouble)
		out.PutDouble(val)
	case string:
		out.buf = append(out.buf, tagString)
		out.PutString(val)
	default:
		out.buf = append(out.buf, tagString)
		out.PutString("")
	}
}
