package rowset

import "fmt"

// nullIndicator marks an absent value in a column's indicator array.
const nullIndicator = -1

// BoundColumn is the raw view a cursor implementation receives when a column
// buffer is bound. The storage behind it is allocated at construction and
// never relocated; a cursor may keep the reference for the lifetime of the
// fetch loop and fill rows in place on every fetch.
type BoundColumn interface {
	// Kind reports the immutable variant tag of the buffer
	Kind() BufferKind
	// Capacity reports the fixed number of rows the buffer can hold
	Capacity() int
	// SetNull marks the value at row as absent
	SetNull(row int)
}

// ScalarColumn is fixed-capacity columnar storage for one scalar-valued
// column. Values and the per-row indicator array are preallocated to capacity
// and mutated in place by each fetch.
type ScalarColumn[T any] struct {
	kind       BufferKind
	values     []T
	indicators []int8
}

func newScalarColumn[T any](kind BufferKind, capacity int) *ScalarColumn[T] {
	c := &ScalarColumn[T]{
		kind:       kind,
		values:     make([]T, capacity),
		indicators: make([]int8, capacity),
	}
	for i := range c.indicators {
		c.indicators[i] = nullIndicator
	}
	return c
}

// Kind reports the variant tag of the buffer
func (c *ScalarColumn[T]) Kind() BufferKind { return c.kind }

// Capacity reports the fixed row capacity
func (c *ScalarColumn[T]) Capacity() int { return len(c.values) }

// Set stores v at row and clears its null indicator
func (c *ScalarColumn[T]) Set(row int, v T) {
	c.values[row] = v
	c.indicators[row] = 0
}

// SetNull marks the value at row as absent
func (c *ScalarColumn[T]) SetNull(row int) {
	c.indicators[row] = nullIndicator
}

// Value returns the value at row and whether it is present. The returned
// scalar is a copy.
func (c *ScalarColumn[T]) Value(row int) (T, bool) {
	if c.indicators[row] == nullIndicator {
		var zero T
		return zero, false
	}
	return c.values[row], true
}

// TextColumn is fixed-capacity columnar storage for one text-valued column.
// Row values live in a single flat byte arena at a fixed per-row stride of
// maxStrLen+1 bytes, with a per-row length indicator. Access is zero-copy.
type TextColumn struct {
	maxStrLen  int
	data       []byte
	indicators []int
}

func newTextColumn(capacity, maxStrLen int) *TextColumn {
	c := &TextColumn{
		maxStrLen:  maxStrLen,
		data:       make([]byte, capacity*(maxStrLen+1)),
		indicators: make([]int, capacity),
	}
	for i := range c.indicators {
		c.indicators[i] = nullIndicator
	}
	return c
}

// Kind reports the variant tag of the buffer
func (c *TextColumn) Kind() BufferKind { return KindText }

// Capacity reports the fixed row capacity
func (c *TextColumn) Capacity() int { return len(c.indicators) }

// MaxStrLen reports the per-row value capacity in bytes
func (c *TextColumn) MaxStrLen() int { return c.maxStrLen }

func (c *TextColumn) stride() int { return c.maxStrLen + 1 }

// Set copies v into the row's slot and records the full value length. Values
// longer than maxStrLen are copied truncated, but the indicator keeps the
// original length so readers can detect the loss.
func (c *TextColumn) Set(row int, v []byte) {
	start := row * c.stride()
	copy(c.data[start:start+c.maxStrLen], v)
	c.indicators[row] = len(v)
}

// SetNull marks the value at row as absent
func (c *TextColumn) SetNull(row int) {
	c.indicators[row] = nullIndicator
}

// Value returns the bytes at row without copying, and whether the value is
// present. The slice aliases the buffer's arena and is valid until the next
// fetch overwrites it. Truncated values return the stored prefix.
func (c *TextColumn) Value(row int) ([]byte, bool) {
	n := c.indicators[row]
	if n == nullIndicator {
		return nil, false
	}
	if n > c.maxStrLen {
		n = c.maxStrLen
	}
	start := row * c.stride()
	return c.data[start : start+n], true
}

// Truncated reports whether the value at row was longer than the buffer's
// per-row capacity when it was stored.
func (c *TextColumn) Truncated(row int) bool {
	return c.indicators[row] != nullIndicator && c.indicators[row] > c.maxStrLen
}

// newColumn allocates the buffer variant matching desc with the given row
// capacity.
func newColumn(desc ColumnBufferDescription, capacity int) BoundColumn {
	switch desc.Kind {
	case KindText:
		return newTextColumn(capacity, desc.MaxStrLen)
	case KindFloat64:
		return newScalarColumn[float64](KindFloat64, capacity)
	case KindFloat32:
		return newScalarColumn[float32](KindFloat32, capacity)
	case KindDate:
		return newScalarColumn[int32](KindDate, capacity)
	case KindTimestamp:
		return newScalarColumn[int64](KindTimestamp, capacity)
	case KindInt32:
		return newScalarColumn[int32](KindInt32, capacity)
	case KindInt64:
		return newScalarColumn[int64](KindInt64, capacity)
	case KindBool:
		return newScalarColumn[bool](KindBool, capacity)
	default:
		panic(fmt.Sprintf("rowset: unknown buffer kind %d", desc.Kind))
	}
}
