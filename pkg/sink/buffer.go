// Package sink writes column batches to Parquet through the low-level
// physical-type writers, one row group per fetched batch.
package sink

import (
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"

	"github.com/quarrydata/quarry/pkg/errors"
)

// Buffer is the reusable staging area between a column view and a Parquet
// column chunk writer. It owns the definition-level scratch, the dense value
// scratch per physical type, and the byte arena backing fixed-length values.
// All scratch is bounded by the batch size given at construction and reused
// across batches and columns.
type Buffer struct {
	batchSize int
	defLevels []int16
	i32       []int32
	i64       []int64
	f32       []float32
	f64       []float64
	bools     []bool
	byteArr   []parquet.ByteArray
	fixed     []parquet.FixedLenByteArray
	arena     []byte
}

// NewBuffer creates a staging buffer for batches of up to batchSize rows.
func NewBuffer(batchSize int) *Buffer {
	return &Buffer{
		batchSize: batchSize,
		defLevels: make([]int16, 0, batchSize),
		i32:       make([]int32, 0, batchSize),
		i64:       make([]int64, 0, batchSize),
		f32:       make([]float32, 0, batchSize),
		f64:       make([]float64, 0, batchSize),
		bools:     make([]bool, 0, batchSize),
		byteArr:   make([]parquet.ByteArray, 0, batchSize),
		fixed:     make([]parquet.FixedLenByteArray, 0, batchSize),
	}
}

// BatchSize reports the row capacity the scratch is sized for
func (b *Buffer) BatchSize() int { return b.batchSize }

// levels densifies n optional values: present values keep their order in the
// dense value slice, definition levels record presence. For required columns
// levels returns nil and a missing value panics — a NOT NULL column yielding
// NULL means the source broke its schema contract.
func (b *Buffer) levels(n int, optional bool, present func(i int) bool) []int16 {
	if !optional {
		for i := 0; i < n; i++ {
			if !present(i) {
				panic(fmt.Sprintf("sink: NULL at row %d of a required column", i))
			}
		}
		return nil
	}
	def := b.defLevels[:0]
	for i := 0; i < n; i++ {
		if present(i) {
			def = append(def, 1)
		} else {
			def = append(def, 0)
		}
	}
	b.defLevels = def
	return def
}

// WriteInt32 appends n optional values to an INT32 column chunk.
func (b *Buffer) WriteInt32(cw *file.Int32ColumnChunkWriter, n int, optional bool, value func(i int) (int32, bool)) error {
	vals := b.i32[:0]
	for i := 0; i < n; i++ {
		if v, ok := value(i); ok {
			vals = append(vals, v)
		}
	}
	b.i32 = vals
	def := b.levels(n, optional, func(i int) bool { _, ok := value(i); return ok })
	if _, err := cw.WriteBatch(vals, def, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write int32 batch")
	}
	return nil
}

// WriteInt64 appends n optional values to an INT64 column chunk.
func (b *Buffer) WriteInt64(cw *file.Int64ColumnChunkWriter, n int, optional bool, value func(i int) (int64, bool)) error {
	vals := b.i64[:0]
	for i := 0; i < n; i++ {
		if v, ok := value(i); ok {
			vals = append(vals, v)
		}
	}
	b.i64 = vals
	def := b.levels(n, optional, func(i int) bool { _, ok := value(i); return ok })
	if _, err := cw.WriteBatch(vals, def, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write int64 batch")
	}
	return nil
}

// WriteFloat32 appends n optional values to a FLOAT column chunk.
func (b *Buffer) WriteFloat32(cw *file.Float32ColumnChunkWriter, n int, optional bool, value func(i int) (float32, bool)) error {
	vals := b.f32[:0]
	for i := 0; i < n; i++ {
		if v, ok := value(i); ok {
			vals = append(vals, v)
		}
	}
	b.f32 = vals
	def := b.levels(n, optional, func(i int) bool { _, ok := value(i); return ok })
	if _, err := cw.WriteBatch(vals, def, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write float batch")
	}
	return nil
}

// WriteFloat64 appends n optional values to a DOUBLE column chunk.
func (b *Buffer) WriteFloat64(cw *file.Float64ColumnChunkWriter, n int, optional bool, value func(i int) (float64, bool)) error {
	vals := b.f64[:0]
	for i := 0; i < n; i++ {
		if v, ok := value(i); ok {
			vals = append(vals, v)
		}
	}
	b.f64 = vals
	def := b.levels(n, optional, func(i int) bool { _, ok := value(i); return ok })
	if _, err := cw.WriteBatch(vals, def, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write double batch")
	}
	return nil
}

// WriteBool appends n optional values to a BOOLEAN column chunk.
func (b *Buffer) WriteBool(cw *file.BooleanColumnChunkWriter, n int, optional bool, value func(i int) (bool, bool)) error {
	vals := b.bools[:0]
	for i := 0; i < n; i++ {
		if v, ok := value(i); ok {
			vals = append(vals, v)
		}
	}
	b.bools = vals
	def := b.levels(n, optional, func(i int) bool { _, ok := value(i); return ok })
	if _, err := cw.WriteBatch(vals, def, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write boolean batch")
	}
	return nil
}

// WriteByteArray appends n optional values to a BYTE_ARRAY column chunk. The
// byte slices are consumed during the call and may alias fetch storage.
func (b *Buffer) WriteByteArray(cw *file.ByteArrayColumnChunkWriter, n int, optional bool, value func(i int) ([]byte, bool)) error {
	vals := b.byteArr[:0]
	for i := 0; i < n; i++ {
		if v, ok := value(i); ok {
			vals = append(vals, parquet.ByteArray(v))
		}
	}
	b.byteArr = vals
	def := b.levels(n, optional, func(i int) bool { _, ok := value(i); return ok })
	if _, err := cw.WriteBatch(vals, def, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write byte array batch")
	}
	return nil
}

// WriteFixedLenByteArray appends n optional values of exactly byteLen bytes
// each to a FIXED_LEN_BYTE_ARRAY column chunk. Values are copied into the
// buffer's arena, so callers may reuse their encoding scratch between rows. A
// value of the wrong length is an internal invariant violation.
func (b *Buffer) WriteFixedLenByteArray(cw *file.FixedLenByteArrayColumnChunkWriter, n int, optional bool, byteLen int, value func(i int) ([]byte, bool)) error {
	if need := n * byteLen; cap(b.arena) < need {
		b.arena = make([]byte, 0, need)
	}
	arena := b.arena[:0]
	vals := b.fixed[:0]
	for i := 0; i < n; i++ {
		v, ok := value(i)
		if !ok {
			continue
		}
		if len(v) != byteLen {
			panic(fmt.Sprintf("sink: fixed-length value of %d bytes in a column of length %d", len(v), byteLen))
		}
		start := len(arena)
		arena = append(arena, v...)
		vals = append(vals, parquet.FixedLenByteArray(arena[start:start+byteLen]))
	}
	b.arena = arena
	b.fixed = vals
	def := b.levels(n, optional, func(i int) bool { _, ok := value(i); return ok })
	if _, err := cw.WriteBatch(vals, def, nil); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to write fixed-length byte array batch")
	}
	return nil
}
