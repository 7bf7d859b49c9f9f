package fragment

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// snapshotMagic is "FLGX" and snapshotVersion is the format version
// stamped on every snapshot file, per §6.
const (
	snapshotMagic   uint32 = 0x464c4758
	snapshotVersion uint32 = 1
)

// Serialize writes the fragment's catalog (declared labels, triplets,
// and current vertex counts) to path as init_snapshot.bin. Property
// columns, keys columns, and adjacency files are written separately by
// pkg/snapshot, which calls back into this fragment's accessors.
func (f *Fragment) Serialize(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "fragment.Serialize", "create %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, snapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, snapshotVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(f.vertexOrder))); err != nil {
		return err
	}
	for _, label := range f.vertexOrder {
		vt := f.vertexTables[label]
		if err := binary.Write(w, binary.LittleEndian, uint8(label)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(vt.VertexNum())); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return types.Errorf(types.CodeDurabilityError, "fragment.Serialize", "flush: %w", err)
	}
	return file.Sync()
}

// ReadCatalog parses an init_snapshot.bin header, validating the magic
// and version, and returns the per-label vertex counts it recorded.
func ReadCatalog(path string) (map[types.VLabel]int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, types.Errorf(types.CodeDurabilityError, "fragment.ReadCatalog", "open %s: %w", path, err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic, version, count uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, err
	}
	if magic != snapshotMagic {
		return nil, types.Errorf(types.CodeIncompatibleSnapshot, "fragment.ReadCatalog", "bad magic 0x%x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return nil, err
	}
	if version != snapshotVersion {
		return nil, types.Errorf(types.CodeIncompatibleSnapshot, "fragment.ReadCatalog", "unsupported version %d", version)
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return nil, err
	}

	counts := make(map[types.VLabel]int, count)
	for i := uint32(0); i < count; i++ {
		var label uint8
		var n uint32
		if err := binary.Read(r, binary.LittleEndian, &label); err != nil {
			return nil, err
		}
		if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
			return nil, err
		}
		counts[types.VLabel(label)] = int(n)
	}
	return counts, nil
}
