package column

import (
	"bufio"
	"encoding/binary"
	"os"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Serialize creates (or truncates) the file at path and writes a
// little-endian uint32 value count followed by the column's fixed-width
// values as a raw little-endian array. The file carries no magic or
// version header. T must be a fixed-size numeric type; variable-width
// strings use DictColumn or LongStringColumn instead.
func (c *MemoryColumn[T]) Serialize(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.Serialize", "create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.data))); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.Serialize", "write length: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, c.data); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.Serialize", "write data: %w", err)
	}
	if err := w.Flush(); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.Serialize", "flush: %w", err)
	}
	return f.Sync()
}

// Deserialize replaces the column's contents with the payload read from
// path, previously written by Serialize.
func (c *MemoryColumn[T]) Deserialize(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.Deserialize", "open %s: %w", path, err)
	}
	defer f.Close()

	r := bufio.NewReader(f)
	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.Deserialize", "read length: %w", err)
	}
	data := make([]T, n)
	if n > 0 {
		if err := binary.Read(r, binary.LittleEndian, data); err != nil {
			return types.Errorf(types.CodeDurabilityError, "column.Deserialize", "read data: %w", err)
		}
	}

	c.mu.Lock()
	c.data = data
	c.mu.Unlock()
	return nil
}
