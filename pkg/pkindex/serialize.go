package pkindex

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Serialize writes the keys column (vid -> oid) to path: a count, then
// one {kind byte, payload} record per vid in vid order. Integer kinds
// store an 8-byte little-endian payload; ShortString stores a 4-byte
// length followed by the raw bytes.
func (idx *Index) Serialize(path string) error {
	keys := *idx.keys.Load()

	f, err := os.Create(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "pkindex.Serialize", "create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(keys))); err != nil {
		return types.Errorf(types.CodeDurabilityError, "pkindex.Serialize", "write count: %w", err)
	}
	for _, oid := range keys {
		if err := w.WriteByte(byte(oid.Kind)); err != nil {
			return err
		}
		if oid.Kind == types.ShortString {
			if err := binary.Write(w, binary.LittleEndian, uint32(len(oid.Str))); err != nil {
				return err
			}
			if _, err := w.WriteString(oid.Str); err != nil {
				return err
			}
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, oid.I64); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return types.Errorf(types.CodeDurabilityError, "pkindex.Serialize", "flush: %w", err)
	}
	return f.Sync()
}

// Deserialize rebuilds the index from a keys-column file previously
// written by Serialize. The index must be freshly created; Deserialize
// does not merge with existing entries.
func (idx *Index) Deserialize(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "pkindex.Deserialize", "open %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return types.Errorf(types.CodeDurabilityError, "pkindex.Deserialize", "read count: %w", err)
	}

	keys := make([]types.OID, n)
	m := make(map[types.OID]types.VID, n)
	for i := uint32(0); i < n; i++ {
		kindByte, err := r.ReadByte()
		if err != nil {
			return err
		}
		kind := types.PropertyType(kindByte)
		var oid types.OID
		if kind == types.ShortString {
			var slen uint32
			if err := binary.Read(r, binary.LittleEndian, &slen); err != nil {
				return err
			}
			buf := make([]byte, slen)
			if _, err := r.Read(buf); err != nil {
				return err
			}
			oid = types.OID{Kind: kind, Str: string(buf)}
		} else {
			var v int64
			if err := binary.Read(r, binary.LittleEndian, &v); err != nil {
				return err
			}
			oid = types.OID{Kind: kind, I64: v}
		}
		keys[i] = oid
		m[oid] = types.VID(i)
	}

	idx.keys.Store(&keys)
	idx.committed.Store(&m)
	ts := make([]types.Timestamp, n)
	idx.insertTs.Store(&ts)
	idx.nextVID = n
	return nil
}
