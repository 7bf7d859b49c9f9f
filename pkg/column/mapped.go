package column

import (
	"bytes"
	"encoding/binary"
	"os"
	"sync"
	"sync/atomic"

	"go.etcd.io/bbolt"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

var mappedBucket = []byte("column")

// MappedColumn is the "mapped" storage-strategy column (§3, §4.2): values
// live in a single-bucket bbolt database, keyed by a 4-byte big-endian
// vid, relying on bbolt's own mmap'd, copy-on-write B+tree for durability
// and OS-page-cache-backed reads instead of a process-heap slice.
type MappedColumn[T any] struct {
	mu   sync.Mutex
	db   *bbolt.DB
	path string
	size atomic.Uint32
}

// OpenMapped opens (creating if absent) the bbolt file at path as a
// mapped column store.
func OpenMapped[T any](path string) (*MappedColumn[T], error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{NoGrowSync: false})
	if err != nil {
		return nil, types.Errorf(types.CodeDurabilityError, "column.OpenMapped", "open %s: %w", path, err)
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(mappedBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, types.Errorf(types.CodeDurabilityError, "column.OpenMapped", "create bucket: %w", err)
	}

	c := &MappedColumn[T]{db: db, path: path}
	_ = db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(mappedBucket)
		cur := b.Cursor()
		k, _ := cur.Last()
		if k != nil {
			c.size.Store(binary.BigEndian.Uint32(k) + 1)
		}
		return nil
	})
	return c, nil
}

// Close releases the underlying bbolt database handle.
func (c *MappedColumn[T]) Close() error {
	return c.db.Close()
}

func vidKey(vid types.VID) []byte {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], uint32(vid))
	return b[:]
}

func (c *MappedColumn[T]) Get(vid types.VID) T {
	var v T
	_ = c.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(mappedBucket).Get(vidKey(vid))
		if raw == nil {
			return nil
		}
		return binary.Read(bytes.NewReader(raw), binary.LittleEndian, &v)
	})
	return v
}

func (c *MappedColumn[T]) Set(vid types.VID, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, v); err != nil {
		panic(types.Errorf(types.CodeInvalidInput, "column.MappedColumn.Set", "non-fixed-size value: %w", err))
	}
	_ = c.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(mappedBucket).Put(vidKey(vid), buf.Bytes())
	})
	if next := uint32(vid) + 1; next > c.size.Load() {
		c.size.Store(next)
	}
}

func (c *MappedColumn[T]) Size() int {
	return int(c.size.Load())
}

// Reserve is a no-op for MappedColumn: bbolt grows its mmap region as
// pages are written, there is no separate capacity to pre-allocate.
func (c *MappedColumn[T]) Reserve(n int) {}

// Serialize copies the backing bbolt file to path, the column's snapshot
// representation.
func (c *MappedColumn[T]) Serialize(path string) error {
	return c.db.View(func(tx *bbolt.Tx) error {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		_, err = tx.WriteTo(f)
		return err
	})
}

// Deserialize replaces this column's backing store by reopening the bbolt
// file at path in place of the current one.
func (c *MappedColumn[T]) Deserialize(path string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.db.Close(); err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.MappedColumn.Deserialize", "close: %w", err)
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{NoGrowSync: false})
	if err != nil {
		return types.Errorf(types.CodeDurabilityError, "column.MappedColumn.Deserialize", "open %s: %w", path, err)
	}
	c.db = db
	c.path = path
	return nil
}
