package rowset

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedCursor replays a fixed sequence of batches into its bound columns.
type scriptedCursor struct {
	rowArraySize int
	columns      map[int]BoundColumn
	batches      [][]func(col BoundColumn, row int)
	next         int
}

func newScriptedCursor() *scriptedCursor {
	return &scriptedCursor{columns: make(map[int]BoundColumn)}
}

func (c *scriptedCursor) SetRowArraySize(n int) error {
	c.rowArraySize = n
	return nil
}

func (c *scriptedCursor) BindColumn(ordinal int, col BoundColumn) error {
	c.columns[ordinal] = col
	return nil
}

func (c *scriptedCursor) Fetch(ctx context.Context) (int, error) {
	if c.next >= len(c.batches) {
		return 0, nil
	}
	batch := c.batches[c.next]
	c.next++
	col := c.columns[1]
	for row, fill := range batch {
		fill(col, row)
	}
	return len(batch), nil
}

func setInt32(v int32) func(BoundColumn, int) {
	return func(col BoundColumn, row int) {
		col.(*ScalarColumn[int32]).Set(row, v)
	}
}

func setNull() func(BoundColumn, int) {
	return func(col BoundColumn, row int) {
		col.SetNull(row)
	}
}

func TestRowSetBufferFetchVisibility(t *testing.T) {
	buf := NewRowSetBuffer(3, []ColumnBufferDescription{{Kind: KindInt32}})
	cursor := newScriptedCursor()
	cursor.batches = [][]func(BoundColumn, int){
		{setInt32(42), setNull()},
	}

	require.NoError(t, buf.Bind(cursor))
	assert.Equal(t, 3, cursor.rowArraySize, "bind must forward the batch size")

	n, err := buf.Fetch(context.Background(), cursor)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, 2, buf.RowsFetched())

	view := buf.Column(0).Int32()
	assert.Equal(t, 2, view.Len(), "only fetched rows are visible, not capacity")

	v, ok := view.Value(0)
	assert.True(t, ok)
	assert.Equal(t, int32(42), v)

	_, ok = view.Value(1)
	assert.False(t, ok, "null indicator must survive into the view")

	// Row 2 exists in storage but was not delivered by this fetch.
	assert.Panics(t, func() { view.Value(2) })
}

func TestRowSetBufferFetchOverwritesInPlace(t *testing.T) {
	buf := NewRowSetBuffer(3, []ColumnBufferDescription{{Kind: KindInt32}})
	cursor := newScriptedCursor()
	cursor.batches = [][]func(BoundColumn, int){
		{setInt32(1), setInt32(2), setInt32(3)},
		{setNull()},
	}

	require.NoError(t, buf.Bind(cursor))
	ctx := context.Background()

	n, err := buf.Fetch(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = buf.Fetch(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	view := buf.Column(0).Int32()
	assert.Equal(t, 1, view.Len(), "the second batch shrinks the window")
	_, ok := view.Value(0)
	assert.False(t, ok)

	n, err = buf.Fetch(ctx, cursor)
	require.NoError(t, err)
	assert.Equal(t, 0, n, "exhaustion is zero rows with a nil error")
}

func TestRowSetBufferBindsOnce(t *testing.T) {
	buf := NewRowSetBuffer(2, []ColumnBufferDescription{{Kind: KindInt64}})
	cursor := newScriptedCursor()

	require.NoError(t, buf.Bind(cursor))
	err := buf.Bind(cursor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already bound")
}

func TestRowSetBufferFetchRequiresBind(t *testing.T) {
	buf := NewRowSetBuffer(2, []ColumnBufferDescription{{Kind: KindInt64}})
	_, err := buf.Fetch(context.Background(), newScriptedCursor())
	require.Error(t, err)
}

// lyingCursor reports more rows than the buffer can hold.
type lyingCursor struct{ scriptedCursor }

func (c *lyingCursor) Fetch(ctx context.Context) (int, error) {
	return c.rowArraySize + 1, nil
}

func TestRowSetBufferOverfullFetchPanics(t *testing.T) {
	buf := NewRowSetBuffer(1, []ColumnBufferDescription{{Kind: KindBool}})
	cursor := &lyingCursor{scriptedCursor: *newScriptedCursor()}
	require.NoError(t, buf.Bind(cursor))

	// A cursor claiming more rows than the buffer holds has corrupted memory.
	assert.Panics(t, func() {
		_, _ = buf.Fetch(context.Background(), cursor)
	})
}

func TestColumnViewKindMismatchPanics(t *testing.T) {
	buf := NewRowSetBuffer(1, []ColumnBufferDescription{
		{Kind: KindInt32},
		{Kind: KindDate},
		TextBuffer(8),
	})

	assert.Panics(t, func() { buf.Column(0).Int64() })
	assert.Panics(t, func() { buf.Column(0).Text() })
	// Date and Int32 share storage width but not a kind.
	assert.Panics(t, func() { buf.Column(0).Date() })
	assert.Panics(t, func() { buf.Column(1).Int32() })
	assert.Panics(t, func() { buf.Column(2).Int32() })

	assert.NotPanics(t, func() { buf.Column(0).Int32() })
	assert.NotPanics(t, func() { buf.Column(1).Date() })
	assert.NotPanics(t, func() { buf.Column(2).Text() })
}

func TestTextColumnZeroCopyAndTruncation(t *testing.T) {
	col := newTextColumn(2, 5)

	col.Set(0, []byte("hello"))
	v, ok := col.Value(0)
	require.True(t, ok)
	assert.Equal(t, []byte("hello"), v)

	// Oversized values store a truncated prefix but stay detectable.
	col.Set(1, []byte("overflowing"))
	v, ok = col.Value(1)
	require.True(t, ok)
	assert.Equal(t, []byte("overf"), v)
	assert.True(t, col.Truncated(1))
	assert.False(t, col.Truncated(0))

	col.SetNull(0)
	_, ok = col.Value(0)
	assert.False(t, ok)
	assert.False(t, col.Truncated(0), "null is absent, not truncated")

	// Empty values are present, not null.
	col.Set(0, nil)
	v, ok = col.Value(0)
	assert.True(t, ok)
	assert.Len(t, v, 0)
}

func TestScalarColumnStartsNull(t *testing.T) {
	col := newScalarColumn[float64](KindFloat64, 3)
	for i := 0; i < 3; i++ {
		_, ok := col.Value(i)
		assert.False(t, ok, "row %d must start null", i)
	}

	col.Set(1, 2.5)
	v, ok := col.Value(1)
	require.True(t, ok)
	assert.Equal(t, 2.5, v)
}

func TestNewColumnVariants(t *testing.T) {
	cases := []struct {
		desc ColumnBufferDescription
		kind BufferKind
	}{
		{TextBuffer(16), KindText},
		{ColumnBufferDescription{Kind: KindFloat64}, KindFloat64},
		{ColumnBufferDescription{Kind: KindFloat32}, KindFloat32},
		{ColumnBufferDescription{Kind: KindDate}, KindDate},
		{ColumnBufferDescription{Kind: KindTimestamp}, KindTimestamp},
		{ColumnBufferDescription{Kind: KindInt32}, KindInt32},
		{ColumnBufferDescription{Kind: KindInt64}, KindInt64},
		{ColumnBufferDescription{Kind: KindBool}, KindBool},
	}
	for _, tc := range cases {
		col := newColumn(tc.desc, 4)
		assert.Equal(t, tc.kind, col.Kind())
		assert.Equal(t, 4, col.Capacity())
	}

	assert.Panics(t, func() {
		newColumn(ColumnBufferDescription{Kind: BufferKind(99)}, 4)
	})
}
