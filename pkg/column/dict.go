package column

import (
	"bufio"
	"encoding/binary"
	"os"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// DictColumn is a string-dictionary property column (§3, §4.2): distinct
// values are assigned 16-bit codes the first time they're seen, and every
// vid stores only its code. Candidate strings are hashed with xxhash
// before the dictionary lock is taken, so the lock is held only for the
// map lookup/insert, not for hashing.
type DictColumn struct {
	mu      sync.Mutex
	byHash  map[uint64]uint16
	strings []string
	codes   []uint16
}

// NewDictColumn creates an empty string-dictionary column.
func NewDictColumn() *DictColumn {
	return &DictColumn{byHash: make(map[uint64]uint16)}
}

func (c *DictColumn) Get(vid types.VID) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(vid) >= len(c.codes) {
		return ""
	}
	return c.strings[c.codes[vid]]
}

func (c *DictColumn) Set(vid types.VID, s string) {
	h := xxhash.Sum64String(s)

	c.mu.Lock()
	defer c.mu.Unlock()

	code, ok := c.byHash[h]
	if !ok {
		code = uint16(len(c.strings))
		c.strings = append(c.strings, s)
		c.byHash[h] = code
	}
	if int(vid) >= len(c.codes) {
		grown := make([]uint16, vid+1)
		copy(grown, c.codes)
		c.codes = grown
	}
	c.codes[vid] = code
}

func (c *DictColumn) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.codes)
}

func (c *DictColumn) Reserve(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= cap(c.codes) {
		return
	}
	grown := make([]uint16, len(c.codes), n)
	copy(grown, c.codes)
	c.codes = grown
}

// DictionarySize reports the number of distinct strings interned so far.
func (c *DictColumn) DictionarySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.strings)
}

func (c *DictColumn) Serialize(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, err := os.Create(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.DictColumn.Serialize", "create %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.strings))); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.DictColumn.Serialize", "write dict size: %w", err)
	}
	for _, s := range c.strings {
		if err := binary.Write(w, binary.LittleEndian, uint32(len(s))); err != nil {
			return err
		}
		if _, err := w.WriteString(s); err != nil {
			return err
		}
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(c.codes))); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, c.codes); err != nil {
		return err
	}
	if err := w.Flush(); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.DictColumn.Serialize", "flush: %w", err)
	}
	return f.Sync()
}

func (c *DictColumn) Deserialize(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.DictColumn.Deserialize", "open %s: %w", path, err)
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var dictLen uint32
	if err := binary.Read(r, binary.LittleEndian, &dictLen); err != nil {
		return err
	}
	strings := make([]string, dictLen)
	byHash := make(map[uint64]uint16, dictLen)
	for i := range strings {
		var slen uint32
		if err := binary.Read(r, binary.LittleEndian, &slen); err != nil {
			return err
		}
		buf := make([]byte, slen)
		if _, err := r.Read(buf); err != nil {
			return err
		}
		strings[i] = string(buf)
		byHash[xxhash.Sum64(buf)] = uint16(i)
	}

	var codesLen uint32
	if err := binary.Read(r, binary.LittleEndian, &codesLen); err != nil {
		return err
	}
	codes := make([]uint16, codesLen)
	if codesLen > 0 {
		if err := binary.Read(r, binary.LittleEndian, codes); err != nil {
			return err
		}
	}

	c.mu.Lock()
	c.strings = strings
	c.byHash = byHash
	c.codes = codes
	c.mu.Unlock()
	return nil
}
