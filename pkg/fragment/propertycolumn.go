package fragment

import (
	"fmt"

	"github.com/flexgraph-db/flexgraph/pkg/column"
	"github.com/flexgraph-db/flexgraph/pkg/types"
)

// PropertyColumn is the type-erased column surface a VertexTable stores
// its property columns behind, since a table holds columns of many
// different element types side by side. Concrete columns still do all
// their real work through the generic column.Column[T] interface; these
// adapters exist only at the property-name-lookup boundary.
type PropertyColumn interface {
	GetAny(vid types.VID) any
	SetAny(vid types.VID, v any) error
	Size() int
	Reserve(n int)
	Serialize(path string) error
	Deserialize(path string) error
}

type fixedWidth interface {
	~bool | ~int32 | ~int64 | ~uint32 | ~uint64 | ~float32 | ~float64
}

type memoryAdapter[T fixedWidth] struct {
	col *column.MemoryColumn[T]
}

func (a *memoryAdapter[T]) GetAny(vid types.VID) any { return a.col.Get(vid) }

func (a *memoryAdapter[T]) SetAny(vid types.VID, v any) error {
	tv, ok := v.(T)
	if !ok {
		return types.Errorf(types.CodeInvalidInput, "fragment.PropertyColumn.SetAny", "value %v is not %T", v, tv)
	}
	a.col.Set(vid, tv)
	return nil
}

func (a *memoryAdapter[T]) Size() int                      { return a.col.Size() }
func (a *memoryAdapter[T]) Reserve(n int)                  { a.col.Reserve(n) }
func (a *memoryAdapter[T]) Serialize(path string) error    { return a.col.Serialize(path) }
func (a *memoryAdapter[T]) Deserialize(path string) error  { return a.col.Deserialize(path) }

type mappedAdapter[T fixedWidth] struct {
	col *column.MappedColumn[T]
}

func (a *mappedAdapter[T]) GetAny(vid types.VID) any { return a.col.Get(vid) }

func (a *mappedAdapter[T]) SetAny(vid types.VID, v any) error {
	tv, ok := v.(T)
	if !ok {
		return types.Errorf(types.CodeInvalidInput, "fragment.PropertyColumn.SetAny", "value %v is not %T", v, tv)
	}
	a.col.Set(vid, tv)
	return nil
}

func (a *mappedAdapter[T]) Size() int                     { return a.col.Size() }
func (a *mappedAdapter[T]) Reserve(n int)                 { a.col.Reserve(n) }
func (a *mappedAdapter[T]) Serialize(path string) error   { return a.col.Serialize(path) }
func (a *mappedAdapter[T]) Deserialize(path string) error { return a.col.Deserialize(path) }

type stringAdapter struct {
	col *column.LongStringColumn
}

func (a *stringAdapter) GetAny(vid types.VID) any { return a.col.Get(vid) }

func (a *stringAdapter) SetAny(vid types.VID, v any) error {
	s, ok := v.(string)
	if !ok {
		return types.Errorf(types.CodeInvalidInput, "fragment.PropertyColumn.SetAny", "value %v is not a string", v)
	}
	a.col.Set(vid, s)
	return nil
}

func (a *stringAdapter) Size() int                     { return a.col.Size() }
func (a *stringAdapter) Reserve(n int)                 { a.col.Reserve(n) }
func (a *stringAdapter) Serialize(path string) error   { return a.col.Serialize(path) }
func (a *stringAdapter) Deserialize(path string) error { return a.col.Deserialize(path) }

type dictAdapter struct {
	col *column.DictColumn
}

func (a *dictAdapter) GetAny(vid types.VID) any { return a.col.Get(vid) }

func (a *dictAdapter) SetAny(vid types.VID, v any) error {
	s, ok := v.(string)
	if !ok {
		return types.Errorf(types.CodeInvalidInput, "fragment.PropertyColumn.SetAny", "value %v is not a string", v)
	}
	a.col.Set(vid, s)
	return nil
}

func (a *dictAdapter) Size() int                     { return a.col.Size() }
func (a *dictAdapter) Reserve(n int)                 { a.col.Reserve(n) }
func (a *dictAdapter) Serialize(path string) error   { return a.col.Serialize(path) }
func (a *dictAdapter) Deserialize(path string) error { return a.col.Deserialize(path) }

// newPropertyColumn instantiates the right column implementation for a
// declared property type and storage strategy. mappedPath is only
// consulted when strategy is types.Mapped.
func newPropertyColumn(pt types.PropertyType, strategy types.StorageStrategy, mappedPath string) (PropertyColumn, error) {
	switch pt {
	case types.ShortString, types.LongString:
		return &stringAdapter{col: column.NewLongStringColumn()}, nil
	case types.StringDict:
		return &dictAdapter{col: column.NewDictColumn()}, nil
	case types.Bool:
		return newFixedWidthColumn[bool](strategy, mappedPath)
	case types.Int32, types.Date32:
		return newFixedWidthColumn[int32](strategy, mappedPath)
	case types.Int64, types.Timestamp64:
		return newFixedWidthColumn[int64](strategy, mappedPath)
	case types.UInt32:
		return newFixedWidthColumn[uint32](strategy, mappedPath)
	case types.UInt64:
		return newFixedWidthColumn[uint64](strategy, mappedPath)
	case types.Float32:
		return newFixedWidthColumn[float32](strategy, mappedPath)
	case types.Float64:
		return newFixedWidthColumn[float64](strategy, mappedPath)
	default:
		return nil, types.Errorf(types.CodeInvalidInput, "fragment.newPropertyColumn", "unsupported property type %s", pt)
	}
}

func newFixedWidthColumn[T fixedWidth](strategy types.StorageStrategy, mappedPath string) (PropertyColumn, error) {
	if strategy == types.Mapped {
		if mappedPath == "" {
			return nil, types.Errorf(types.CodeInvalidInput, "fragment.newFixedWidthColumn", "mapped column requires a backing path")
		}
		mc, err := column.OpenMapped[T](mappedPath)
		if err != nil {
			return nil, err
		}
		return &mappedAdapter[T]{col: mc}, nil
	}
	return &memoryAdapter[T]{col: column.NewMemoryColumn[T]()}, nil
}

func mappedColumnPath(dataDir, label, prop string) string {
	return fmt.Sprintf("%s/%s.%s.bolt", dataDir, label, prop)
}
