package pipeline

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarrydata/quarry/pkg/rowset"
	"github.com/quarrydata/quarry/pkg/sink"
	"github.com/quarrydata/quarry/pkg/strategy"
)

// memoryCursor replays in-memory rows into the bound column buffers. A nil
// cell is a NULL; cell types must match the bound buffer variant.
type memoryCursor struct {
	rows      [][]any
	batchSize int
	columns   map[int]rowset.BoundColumn
	offset    int
}

func newMemoryCursor(rows [][]any) *memoryCursor {
	return &memoryCursor{rows: rows, columns: make(map[int]rowset.BoundColumn)}
}

func (c *memoryCursor) SetRowArraySize(n int) error {
	c.batchSize = n
	return nil
}

func (c *memoryCursor) BindColumn(ordinal int, col rowset.BoundColumn) error {
	c.columns[ordinal] = col
	return nil
}

func (c *memoryCursor) Fetch(ctx context.Context) (int, error) {
	n := 0
	for ; n < c.batchSize && c.offset < len(c.rows); n++ {
		row := c.rows[c.offset]
		c.offset++
		for i, cell := range row {
			fill(c.columns[i+1], n, cell)
		}
	}
	return n, nil
}

func fill(col rowset.BoundColumn, row int, cell any) {
	if cell == nil {
		col.SetNull(row)
		return
	}
	switch c := col.(type) {
	case *rowset.TextColumn:
		c.Set(row, []byte(cell.(string)))
	case *rowset.ScalarColumn[int32]:
		c.Set(row, cell.(int32))
	case *rowset.ScalarColumn[int64]:
		c.Set(row, cell.(int64))
	case *rowset.ScalarColumn[float64]:
		c.Set(row, cell.(float64))
	case *rowset.ScalarColumn[float32]:
		c.Set(row, cell.(float32))
	case *rowset.ScalarColumn[bool]:
		c.Set(row, cell.(bool))
	default:
		panic("unhandled column buffer in test cursor")
	}
}

func transferRows(t *testing.T, path string, descs []strategy.ColumnDescriptor,
	caps strategy.DriverCapabilities, batchSize int, rows [][]any) *Plan {
	t.Helper()

	plan, err := BuildPlan(descs, caps)
	require.NoError(t, err)

	out, err := sink.NewOutput(path, plan.Fields, sink.Options{})
	require.NoError(t, err)

	buffer := rowset.NewRowSetBuffer(batchSize, plan.BufferDescriptions())
	cursor := newMemoryCursor(rows)
	require.NoError(t, buffer.Bind(cursor))
	staging := sink.NewBuffer(batchSize)

	for {
		n, err := buffer.Fetch(context.Background(), cursor)
		require.NoError(t, err)
		if n == 0 {
			break
		}
		require.NoError(t, writeBatch(plan, out, staging, buffer))
	}
	require.NoError(t, out.Close())
	return plan
}

func TestTransferRoundTrip(t *testing.T) {
	descs := []strategy.ColumnDescriptor{
		{Name: "id", Nullable: false, Class: strategy.ClassInt32},
		{Name: "name", Nullable: true, Class: strategy.ClassText, Length: 32},
		{Name: "amount", Nullable: true, Class: strategy.ClassDecimal, Precision: 20, Scale: 2},
		{Name: "qty", Nullable: true, Class: strategy.ClassDecimal, Precision: 18, Scale: 0},
	}
	rows := [][]any{
		{int32(1), "alpha", "123456789012345678.90", "42"},
		{int32(2), nil, "-0.01", nil},
		{int32(3), "gamma", nil, "-999"},
		{int32(4), "delta", "1.50", "7"},
		{int32(5), nil, "0", "0"},
	}

	path := filepath.Join(t.TempDir(), "out.parquet")
	// No native 64-bit binds: qty rides the text-parse path.
	transferRows(t, path, descs, strategy.DriverCapabilities{NativeInt64: false}, 2, rows)

	r, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer r.Close()

	assert.EqualValues(t, 5, r.NumRows())
	// Two full batches plus the remainder.
	assert.Equal(t, 3, r.NumRowGroups())

	sc := r.MetaData().Schema
	require.Equal(t, 4, sc.NumColumns())
	assert.Equal(t, "id", sc.Column(0).Name())
	assert.Equal(t, schema.ConvertedTypes.Decimal, sc.Column(2).ConvertedType())
	assert.Equal(t, 9, sc.Column(2).TypeLength())

	var ids []int32
	var amounts []string
	var qtys []int64
	var amountNulls, qtyNulls int
	for rg := 0; rg < r.NumRowGroups(); rg++ {
		rgr := r.RowGroup(rg)

		col, err := rgr.Column(0)
		require.NoError(t, err)
		idr := col.(*file.Int32ColumnChunkReader)
		vals := make([]int32, 8)
		_, n, err := idr.ReadBatch(8, vals, nil, nil)
		require.NoError(t, err)
		ids = append(ids, vals[:n]...)

		col, err = rgr.Column(2)
		require.NoError(t, err)
		ar := col.(*file.FixedLenByteArrayColumnChunkReader)
		fvals := make([]parquet.FixedLenByteArray, 8)
		def := make([]int16, 8)
		total, n, err := ar.ReadBatch(8, fvals, def, nil)
		require.NoError(t, err)
		for i := 0; i < n; i++ {
			require.Len(t, []byte(fvals[i]), 9)
			amounts = append(amounts, strategy.DecodeTwosComplement(fvals[i]).String())
		}
		amountNulls += int(total) - n

		col, err = rgr.Column(3)
		require.NoError(t, err)
		qr := col.(*file.Int64ColumnChunkReader)
		qvals := make([]int64, 8)
		total, n, err = qr.ReadBatch(8, qvals, def, nil)
		require.NoError(t, err)
		qtys = append(qtys, qvals[:n]...)
		qtyNulls += int(total) - n
	}

	assert.Equal(t, []int32{1, 2, 3, 4, 5}, ids)
	// Unscaled two's-complement renderings of the non-null amounts.
	assert.Equal(t, []string{"12345678901234567890", "-1", "150", "0"}, amounts)
	assert.Equal(t, 1, amountNulls)
	assert.Equal(t, []int64{42, -999, 7, 0}, qtys)
	assert.Equal(t, 1, qtyNulls)
}

// Purely fractional decimals render with a leading zero ("-0.12345"), one
// character more than their digit count: the staging width must absorb it or
// the scaled-up remnant would store a wrong value.
func TestTransferFractionalDecimalRoundTrip(t *testing.T) {
	descs := []strategy.ColumnDescriptor{
		{Name: "frac", Nullable: true, Class: strategy.ClassDecimal, Precision: 5, Scale: 5},
	}
	rows := [][]any{
		{"-0.12345"},
		{"0.00001"},
		{"0.99999"},
		{nil},
	}

	path := filepath.Join(t.TempDir(), "out.parquet")
	transferRows(t, path, descs, strategy.DriverCapabilities{NativeInt64: true}, 10, rows)

	r, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer r.Close()

	col, err := r.RowGroup(0).Column(0)
	require.NoError(t, err)
	fr := col.(*file.FixedLenByteArrayColumnChunkReader)
	vals := make([]parquet.FixedLenByteArray, 8)
	def := make([]int16, 8)
	total, n, err := fr.ReadBatch(8, vals, def, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Equal(t, 3, n)

	var got []string
	for i := 0; i < n; i++ {
		got = append(got, strategy.DecodeTwosComplement(vals[i]).String())
	}
	assert.Equal(t, []string{"-12345", "1", "99999"}, got)
}

func TestTransferRequiredColumnHasNoLevels(t *testing.T) {
	descs := []strategy.ColumnDescriptor{
		{Name: "flag", Nullable: false, Class: strategy.ClassBool},
		{Name: "score", Nullable: true, Class: strategy.ClassFloat64},
	}
	rows := [][]any{
		{true, 1.5},
		{false, nil},
	}

	path := filepath.Join(t.TempDir(), "out.parquet")
	transferRows(t, path, descs, strategy.DriverCapabilities{NativeInt64: true}, 10, rows)

	r, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	defer r.Close()

	sc := r.MetaData().Schema
	assert.EqualValues(t, 0, sc.Column(0).MaxDefinitionLevel())
	assert.EqualValues(t, 1, sc.Column(1).MaxDefinitionLevel())

	rgr := r.RowGroup(0)
	col, err := rgr.Column(1)
	require.NoError(t, err)
	fr := col.(*file.Float64ColumnChunkReader)
	vals := make([]float64, 4)
	def := make([]int16, 4)
	total, n, err := fr.ReadBatch(4, vals, def, nil)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1.5, vals[0])
	assert.Equal(t, []int16{1, 0}, def[:2])
}

func TestBuildPlanSummary(t *testing.T) {
	descs := []strategy.ColumnDescriptor{
		{Name: "amount", Nullable: true, Class: strategy.ClassDecimal, Precision: 38, Scale: 10},
		{Name: "note", Nullable: true, Class: strategy.ClassText, Length: 80},
	}
	plan, err := BuildPlan(descs, strategy.DriverCapabilities{NativeInt64: true})
	require.NoError(t, err)

	sum := plan.Summary()
	require.Len(t, sum, 2)

	assert.Equal(t, "amount", sum[0].Name)
	assert.Equal(t, "FIXED_LEN_BYTE_ARRAY", sum[0].PhysicalType)
	assert.Equal(t, "DECIMAL", sum[0].ConvertedType)
	assert.Equal(t, 38, sum[0].Precision)
	assert.Equal(t, 10, sum[0].Scale)
	assert.Equal(t, 16, sum[0].TypeLength)

	assert.Equal(t, "note", sum[1].Name)
	assert.Equal(t, "BYTE_ARRAY", sum[1].PhysicalType)
	assert.Equal(t, "UTF8", sum[1].ConvertedType)
	assert.Equal(t, 80, sum[1].BufferMaxLen)
}
