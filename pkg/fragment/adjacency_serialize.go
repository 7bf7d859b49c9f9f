package fragment

import (
	"bufio"
	"encoding/binary"
	"io"
	"os"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Serialize writes every live edge of at to path, in the same
// magic/version framing as fragment.Serialize. pkg/snapshot calls this
// once per triplet per direction (§6's "<src>_<dst>_<edge>.{out,in}.adj").
func (at *AdjacencyTable) Serialize(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "fragment.AdjacencyTable.Serialize", "create %s: %w", path, err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)
	if err := binary.Write(w, binary.LittleEndian, snapshotMagic); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, snapshotVersion); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint8(at.strategy)); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(at.payloadBytes)); err != nil {
		return err
	}

	if at.strategy == types.AdjacencySingle {
		if err := at.serializeSingle(w); err != nil {
			return err
		}
	} else {
		if err := at.serializeMultiple(w); err != nil {
			return err
		}
	}

	if err := w.Flush(); err != nil {
		return types.Errorf(types.CodeDurabilityError, "fragment.AdjacencyTable.Serialize", "flush: %w", err)
	}
	return file.Sync()
}

func (at *AdjacencyTable) serializeSingle(w *bufio.Writer) error {
	at.singleMu.RLock()
	defer at.singleMu.RUnlock()

	var n uint32
	for _, valid := range at.singleValid {
		if valid {
			n++
		}
	}
	if err := binary.Write(w, binary.LittleEndian, n); err != nil {
		return err
	}
	for vid, valid := range at.singleValid {
		if !valid {
			continue
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(vid)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(at.singleNbr[vid])); err != nil {
			return err
		}
		if _, err := w.Write(at.singleData[vid]); err != nil {
			return err
		}
	}
	return nil
}

func (at *AdjacencyTable) serializeMultiple(w *bufio.Writer) error {
	buckets := *at.buckets.Load()

	// count vids with at least one live edge first, so the count prefix
	// can be written before the per-bucket records.
	type liveBucket struct {
		vid   types.VID
		edges []EdgeView
	}
	var live []liveBucket
	for vid, b := range buckets {
		if b == nil {
			continue
		}
		it := at.Iterate(types.VID(vid))
		var edges []EdgeView
		for {
			e, ok := it.Next()
			if !ok {
				break
			}
			edges = append(edges, e)
		}
		if len(edges) > 0 {
			live = append(live, liveBucket{vid: types.VID(vid), edges: edges})
		}
	}

	if err := binary.Write(w, binary.LittleEndian, uint32(len(live))); err != nil {
		return err
	}
	for _, lb := range live {
		if err := binary.Write(w, binary.LittleEndian, uint32(lb.vid)); err != nil {
			return err
		}
		if err := binary.Write(w, binary.LittleEndian, uint32(len(lb.edges))); err != nil {
			return err
		}
		for _, e := range lb.edges {
			if err := binary.Write(w, binary.LittleEndian, uint32(e.Neighbor)); err != nil {
				return err
			}
			if _, err := w.Write(e.Payload); err != nil {
				return err
			}
		}
	}
	return nil
}

// DeserializeAdjacency reads a file written by AdjacencyTable.Serialize
// and replays its edges into at, which must already be configured with
// the matching strategy and payload size.
func (at *AdjacencyTable) DeserializeAdjacency(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "fragment.AdjacencyTable.DeserializeAdjacency", "open %s: %w", path, err)
	}
	defer file.Close()

	r := bufio.NewReader(file)
	var magic, version uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return err
	}
	if magic != snapshotMagic {
		return types.Errorf(types.CodeIncompatibleSnapshot, "fragment.AdjacencyTable.DeserializeAdjacency", "bad magic 0x%x", magic)
	}
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return err
	}
	if version != snapshotVersion {
		return types.Errorf(types.CodeIncompatibleSnapshot, "fragment.AdjacencyTable.DeserializeAdjacency", "unsupported version %d", version)
	}
	var strategy uint8
	if err := binary.Read(r, binary.LittleEndian, &strategy); err != nil {
		return err
	}
	if types.AdjacencyStrategy(strategy) != at.strategy {
		return types.Errorf(types.CodeIncompatibleSnapshot, "fragment.AdjacencyTable.DeserializeAdjacency", "strategy mismatch: file has %d, table configured for %d", strategy, at.strategy)
	}
	var payloadBytes uint32
	if err := binary.Read(r, binary.LittleEndian, &payloadBytes); err != nil {
		return err
	}
	if int(payloadBytes) != at.payloadBytes {
		return types.Errorf(types.CodeIncompatibleSnapshot, "fragment.AdjacencyTable.DeserializeAdjacency", "payload size mismatch: file has %d, table configured for %d", payloadBytes, at.payloadBytes)
	}

	if at.strategy == types.AdjacencySingle {
		return at.deserializeSingle(r)
	}
	return at.deserializeMultiple(r)
}

func (at *AdjacencyTable) deserializeSingle(r *bufio.Reader) error {
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	for i := uint32(0); i < n; i++ {
		var vid, neighbor uint32
		if err := binary.Read(r, binary.LittleEndian, &vid); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &neighbor); err != nil {
			return err
		}
		payload := make([]byte, at.payloadBytes)
		if at.payloadBytes > 0 {
			if _, err := io.ReadFull(r, payload); err != nil {
				return err
			}
		}
		if err := at.SetSingle(types.VID(vid), types.VID(neighbor), payload); err != nil {
			return err
		}
	}
	return nil
}

func (at *AdjacencyTable) deserializeMultiple(r *bufio.Reader) error {
	var bucketCount uint32
	if err := binary.Read(r, binary.LittleEndian, &bucketCount); err != nil {
		return err
	}
	for i := uint32(0); i < bucketCount; i++ {
		var vid, edgeCount uint32
		if err := binary.Read(r, binary.LittleEndian, &vid); err != nil {
			return err
		}
		if err := binary.Read(r, binary.LittleEndian, &edgeCount); err != nil {
			return err
		}
		for j := uint32(0); j < edgeCount; j++ {
			var neighbor uint32
			if err := binary.Read(r, binary.LittleEndian, &neighbor); err != nil {
				return err
			}
			payload := make([]byte, at.payloadBytes)
			if at.payloadBytes > 0 {
				if _, err := io.ReadFull(r, payload); err != nil {
					return err
				}
			}
			if err := at.AddMultiple(types.VID(vid), types.VID(neighbor), payload, 0); err != nil {
				return err
			}
		}
	}
	return nil
}
