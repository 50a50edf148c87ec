package rowset

import (
	"context"
	"fmt"

	"github.com/quarrydata/quarry/pkg/errors"
)

// Cursor is the bind/fetch protocol a row source exposes. A RowSetBuffer
// drives it: bind registers the requested row-array size and one stable
// column buffer per projected column, then each Fetch fills the bound
// buffers in place and reports how many rows arrived.
type Cursor interface {
	// SetRowArraySize requests that each fetch deliver up to n rows
	SetRowArraySize(n int) error
	// BindColumn registers the buffer for the column at the 1-based ordinal
	BindColumn(ordinal int, col BoundColumn) error
	// Fetch fills the bound buffers with the next batch and returns the number
	// of rows fetched. A return of 0 with a nil error means the result set is
	// exhausted.
	Fetch(ctx context.Context) (int, error)
}

// RowSetBuffer owns an ordered set of column buffers sized for one batch and
// tracks the rows delivered by the most recent fetch. It is single-buffered:
// a batch must be fully consumed before the next fetch overwrites it, and a
// buffer must never be driven by more than one fetch/read cycle at a time.
type RowSetBuffer struct {
	batchSize   int
	rowsFetched int
	bound       bool
	columns     []BoundColumn
}

// NewRowSetBuffer allocates one column buffer per description, each with a
// fixed capacity of batchSize rows.
func NewRowSetBuffer(batchSize int, descs []ColumnBufferDescription) *RowSetBuffer {
	columns := make([]BoundColumn, len(descs))
	for i, desc := range descs {
		columns[i] = newColumn(desc, batchSize)
	}
	return &RowSetBuffer{
		batchSize: batchSize,
		columns:   columns,
	}
}

// BatchSize reports the fixed row capacity per fetch
func (b *RowSetBuffer) BatchSize() int { return b.batchSize }

// NumColumns reports the number of bound column buffers
func (b *RowSetBuffer) NumColumns() int { return len(b.columns) }

// RowsFetched reports the number of rows delivered by the most recent fetch
func (b *RowSetBuffer) RowsFetched() int { return b.rowsFetched }

// Bind attaches the buffer to a cursor: it sets the requested row-array size
// and registers every column buffer at its 1-based ordinal. A buffer binds at
// most once; the registered storage stays valid for the cursor's lifetime.
func (b *RowSetBuffer) Bind(cursor Cursor) error {
	if b.bound {
		return errors.New(errors.ErrorTypeInternal, "row-set buffer is already bound")
	}
	if err := cursor.SetRowArraySize(b.batchSize); err != nil {
		return errors.Wrap(err, errors.ErrorTypeQuery, "failed to set row array size")
	}
	for i, col := range b.columns {
		if err := cursor.BindColumn(i+1, col); err != nil {
			return errors.Wrap(err, errors.ErrorTypeQuery,
				fmt.Sprintf("failed to bind column %d", i+1))
		}
	}
	b.bound = true
	return nil
}

// Fetch asks the cursor for the next batch. The bound column buffers are
// overwritten in place; values for rows [0, rowsFetched) are valid until the
// next call. The returned count is also recorded and visible via RowsFetched.
func (b *RowSetBuffer) Fetch(ctx context.Context, cursor Cursor) (int, error) {
	if !b.bound {
		return 0, errors.New(errors.ErrorTypeInternal, "fetch on unbound row-set buffer")
	}
	n, err := cursor.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if n > b.batchSize {
		panic(fmt.Sprintf("rowset: cursor fetched %d rows into a buffer of capacity %d", n, b.batchSize))
	}
	b.rowsFetched = n
	return n, nil
}

// Column returns a read view over the values the most recent fetch delivered
// for the column at index. Exactly RowsFetched rows are visible.
func (b *RowSetBuffer) Column(index int) ColumnView {
	return ColumnView{col: b.columns[index], rows: b.rowsFetched}
}

// ColumnView is a read-only window over one column's portion of the current
// batch. Typed accessors fail fast when the underlying buffer holds a
// different variant: a mismatch is a programmer-contract violation, never a
// data error.
type ColumnView struct {
	col  BoundColumn
	rows int
}

// Rows reports the number of visible rows in the view
func (v ColumnView) Rows() int { return v.rows }

// Kind reports the variant tag of the underlying buffer
func (v ColumnView) Kind() BufferKind { return v.col.Kind() }

// Text returns a zero-copy view over a text buffer
func (v ColumnView) Text() TextView {
	col, ok := v.col.(*TextColumn)
	if !ok {
		panic(mismatch(KindText, v.col.Kind()))
	}
	return TextView{col: col, rows: v.rows}
}

// Float64 returns a view over a float64 buffer
func (v ColumnView) Float64() ScalarView[float64] {
	return scalarView[float64](v, KindFloat64)
}

// Float32 returns a view over a float32 buffer
func (v ColumnView) Float32() ScalarView[float32] {
	return scalarView[float32](v, KindFloat32)
}

// Int32 returns a view over an int32 buffer
func (v ColumnView) Int32() ScalarView[int32] {
	return scalarView[int32](v, KindInt32)
}

// Int64 returns a view over an int64 buffer
func (v ColumnView) Int64() ScalarView[int64] {
	return scalarView[int64](v, KindInt64)
}

// Date returns a view over a date buffer (days since the Unix epoch)
func (v ColumnView) Date() ScalarView[int32] {
	return scalarView[int32](v, KindDate)
}

// Timestamp returns a view over a timestamp buffer (microseconds since the
// Unix epoch)
func (v ColumnView) Timestamp() ScalarView[int64] {
	return scalarView[int64](v, KindTimestamp)
}

// Bool returns a view over a boolean buffer
func (v ColumnView) Bool() ScalarView[bool] {
	return scalarView[bool](v, KindBool)
}

func scalarView[T any](v ColumnView, want BufferKind) ScalarView[T] {
	if v.col.Kind() != want {
		panic(mismatch(want, v.col.Kind()))
	}
	col, ok := v.col.(*ScalarColumn[T])
	if !ok {
		panic(mismatch(want, v.col.Kind()))
	}
	return ScalarView[T]{col: col, rows: v.rows}
}

func mismatch(want, got BufferKind) string {
	return fmt.Sprintf("rowset: column buffer holds %s, accessed as %s", got, want)
}

// ScalarView exposes exactly Len values of one scalar column's current batch.
type ScalarView[T any] struct {
	col  *ScalarColumn[T]
	rows int
}

// Len reports the number of visible rows
func (v ScalarView[T]) Len() int { return v.rows }

// Value returns the value at row i and whether it is present
func (v ScalarView[T]) Value(i int) (T, bool) {
	if i >= v.rows {
		panic(fmt.Sprintf("rowset: row %d out of range, batch has %d rows", i, v.rows))
	}
	return v.col.Value(i)
}

// TextView exposes exactly Len values of one text column's current batch
// without copying.
type TextView struct {
	col  *TextColumn
	rows int
}

// Len reports the number of visible rows
func (v TextView) Len() int { return v.rows }

// Value returns the bytes at row i and whether the value is present. The
// slice aliases buffer storage and is valid until the next fetch.
func (v TextView) Value(i int) ([]byte, bool) {
	if i >= v.rows {
		panic(fmt.Sprintf("rowset: row %d out of range, batch has %d rows", i, v.rows))
	}
	return v.col.Value(i)
}

// Truncated reports whether the value at row i lost bytes to the buffer's
// per-row capacity.
func (v TextView) Truncated(i int) bool {
	if i >= v.rows {
		panic(fmt.Sprintf("rowset: row %d out of range, batch has %d rows", i, v.rows))
	}
	return v.col.Truncated(i)
}
