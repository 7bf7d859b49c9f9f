package column

import (
	"bufio"
	"encoding/binary"
	"os"
	"sync"

	"github.com/flexgraph-db/flexgraph/pkg/types"

	"github.com/flexgraph-db/flexgraph/pkg/arena"
)

// LongStringColumn is the long-string property column (§3, §4.2): each
// value is copied into an arena so it never moves once written, and the
// column itself holds only the resulting string header — which already
// is a stable (pointer, length) pair into the arena's backing memory.
type LongStringColumn struct {
	mu     sync.RWMutex
	arena  *arena.Arena
	values []string
}

// NewLongStringColumn creates an empty long-string column backed by a
// fresh, never-reset arena.
func NewLongStringColumn() *LongStringColumn {
	return &LongStringColumn{arena: arena.New(0)}
}

func (c *LongStringColumn) Get(vid types.VID) string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(vid) >= len(c.values) {
		return ""
	}
	return c.values[vid]
}

func (c *LongStringColumn) Set(vid types.VID, s string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	stable := c.arena.AllocString(s)
	if int(vid) >= len(c.values) {
		grown := make([]string, vid+1)
		copy(grown, c.values)
		c.values = grown
	}
	c.values[vid] = stable
}

func (c *LongStringColumn) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}

func (c *LongStringColumn) Reserve(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= cap(c.values) {
		return
	}
	grown := make([]string, len(c.values), n)
	copy(grown, c.values)
	c.values = grown
}

func (c *LongStringColumn) Serialize(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	f, err := os.Create(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.LongStringColumn.Serialize", "create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.values))); err != nil {
		return err
	}
	for _, s := range c.values {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		if _, err := w.WriteString(s); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.LongStringColumn.Serialize", "flush: %w", err)
	}
	return f.Sync()
}

func (c *LongStringColumn) Deserialize(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.LongStringColumn.Deserialize", "open %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var n uint32
	if err := binary.Read(r, binary.LittleEndian, &n); err != nil {
		return err
	}
	a := arena.New(0)
	values := make([]string, n)
	for i := range values {
		var slen uint32
		if err := binary.Read(r, binary.LittleEndian, &slen); err != nil {
			return err
		}
		buf := make([]byte, slen)
		if _, err := r.Read(buf); err != nil {
			return err
		}
		values[i] = a.AllocString(string(buf))
	}

	c.mu.Lock()
	c.arena = a
	c.values = values
	c.mu.Unlock()
	return nil
}
