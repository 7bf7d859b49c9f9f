// Package column implements the property-column storage layer. See doc.go.
package column

import (
	"sync"

	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// Column is the uniform interface every property-column implementation
// satisfies, per §4.2.
type Column[T any] interface {
	Get(vid types.VID) T
	Set(vid types.VID, v T)
	Size() int
	Reserve(n int)
	Serialize(path string) error
	Deserialize(path string) error
}

// MemoryColumn is a growable, vid-indexed in-process column. Growth and
// writes are serialized by a mutex; reads take the read half so concurrent
// Get calls do not block one another.
type MemoryColumn[T any] struct {
	mu   sync.RWMutex
	data []T
}

// NewMemoryColumn creates an empty memory-resident column.
func NewMemoryColumn[T any]() *MemoryColumn[T] {
	return &MemoryColumn[T]{}
}

func (c *MemoryColumn[T]) Get(vid types.VID) T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if int(vid) >= len(c.data) {
		var zero T
		return zero
	}
	return c.data[vid]
}

func (c *MemoryColumn[T]) Set(vid types.VID, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if int(vid) >= len(c.data) {
		c.growLocked(int(vid) + 1)
	}
	c.data[vid] = v
}

func (c *MemoryColumn[T]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.data)
}

// Reserve grows the backing slice's capacity to n without changing Size.
func (c *MemoryColumn[T]) Reserve(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n <= cap(c.data) {
		return
	}
	grown := make([]T, len(c.data), n)
	copy(grown, c.data)
	c.data = grown
}

func (c *MemoryColumn[T]) growLocked(n int) {
	if n <= len(c.data) {
		return
	}
	if n <= cap(c.data) {
		c.data = c.data[:n]
		return
	}
	newCap := cap(c.data) * 2
	if newCap < n {
		newCap = n
	}
	grown := make([]T, n, newCap)
	copy(grown, c.data)
	c.data = grown
}

// Values returns the current backing slice, indexed by vid. Callers must
// treat it as read-only; it is a snapshot at the time of the call, not a
// live view.
func (c *MemoryColumn[T]) Values() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.data))
	copy(out, c.data)
	return out
}
