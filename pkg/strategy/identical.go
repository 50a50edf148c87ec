package strategy

import (
	"fmt"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/quarrydata/quarry/pkg/rowset"
	"github.com/quarrydata/quarry/pkg/sink"
)

// Identical strategies fetch values in the same physical representation the
// sink stores them in: the copy is a null-aware passthrough with no numeric
// transformation.

type identicalInt32 struct {
	optional  bool
	kind      rowset.BufferKind
	converted schema.ConvertedType
	precision int
	scale     int
}

func newIdenticalInt32(optional bool) *identicalInt32 {
	return &identicalInt32{
		optional:  optional,
		kind:      rowset.KindInt32,
		converted: schema.ConvertedTypes.None,
		precision: -1,
		scale:     -1,
	}
}

// newDecimalInt32 stores a scale-0 decimal of precision at most 9 as
// INT32/DECIMAL, precision preserved.
func newDecimalInt32(optional bool, precision int) *identicalInt32 {
	return &identicalInt32{
		optional:  optional,
		kind:      rowset.KindInt32,
		converted: schema.ConvertedTypes.Decimal,
		precision: precision,
		scale:     0,
	}
}

// newDateStrategy stores dates as INT32/DATE days since the Unix epoch.
func newDateStrategy(optional bool) *identicalInt32 {
	return &identicalInt32{
		optional:  optional,
		kind:      rowset.KindDate,
		converted: schema.ConvertedTypes.Date,
		precision: -1,
		scale:     -1,
	}
}

func (s *identicalInt32) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.Int32, s.converted, -1, s.precision, s.scale)
}

func (s *identicalInt32) BufferDescription() rowset.ColumnBufferDescription {
	return rowset.ColumnBufferDescription{Kind: s.kind}
}

func (s *identicalInt32) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w := int32Writer(cw)
	var sv rowset.ScalarView[int32]
	if s.kind == rowset.KindDate {
		sv = view.Date()
	} else {
		sv = view.Int32()
	}
	return buf.WriteInt32(w, sv.Len(), s.optional, sv.Value)
}

type identicalInt64 struct {
	optional  bool
	kind      rowset.BufferKind
	converted schema.ConvertedType
	precision int
	scale     int
}

func newIdenticalInt64(optional bool) *identicalInt64 {
	return &identicalInt64{
		optional:  optional,
		kind:      rowset.KindInt64,
		converted: schema.ConvertedTypes.None,
		precision: -1,
		scale:     -1,
	}
}

// newDecimalInt64 stores a scale-0 decimal of precision at most 18 as
// INT64/DECIMAL. Safe because 10^18-1 < 2^63-1; revisit if the target
// integer width ever changes.
func newDecimalInt64(optional bool, precision int) *identicalInt64 {
	return &identicalInt64{
		optional:  optional,
		kind:      rowset.KindInt64,
		converted: schema.ConvertedTypes.Decimal,
		precision: precision,
		scale:     0,
	}
}

// newTimestampStrategy stores timestamps as INT64/TIMESTAMP_MICROS.
func newTimestampStrategy(optional bool) *identicalInt64 {
	return &identicalInt64{
		optional:  optional,
		kind:      rowset.KindTimestamp,
		converted: schema.ConvertedTypes.TimestampMicros,
		precision: -1,
		scale:     -1,
	}
}

func (s *identicalInt64) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.Int64, s.converted, -1, s.precision, s.scale)
}

func (s *identicalInt64) BufferDescription() rowset.ColumnBufferDescription {
	return rowset.ColumnBufferDescription{Kind: s.kind}
}

func (s *identicalInt64) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w := int64Writer(cw)
	var sv rowset.ScalarView[int64]
	if s.kind == rowset.KindTimestamp {
		sv = view.Timestamp()
	} else {
		sv = view.Int64()
	}
	return buf.WriteInt64(w, sv.Len(), s.optional, sv.Value)
}

type identicalFloat64 struct {
	optional bool
}

func (s *identicalFloat64) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.Double, schema.ConvertedTypes.None, -1, -1, -1)
}

func (s *identicalFloat64) BufferDescription() rowset.ColumnBufferDescription {
	return rowset.ColumnBufferDescription{Kind: rowset.KindFloat64}
}

func (s *identicalFloat64) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w, ok := cw.(*file.Float64ColumnChunkWriter)
	if !ok {
		panic(writerMismatch("DOUBLE", cw))
	}
	sv := view.Float64()
	return buf.WriteFloat64(w, sv.Len(), s.optional, sv.Value)
}

type identicalFloat32 struct {
	optional bool
}

func (s *identicalFloat32) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.Float, schema.ConvertedTypes.None, -1, -1, -1)
}

func (s *identicalFloat32) BufferDescription() rowset.ColumnBufferDescription {
	return rowset.ColumnBufferDescription{Kind: rowset.KindFloat32}
}

func (s *identicalFloat32) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w, ok := cw.(*file.Float32ColumnChunkWriter)
	if !ok {
		panic(writerMismatch("FLOAT", cw))
	}
	sv := view.Float32()
	return buf.WriteFloat32(w, sv.Len(), s.optional, sv.Value)
}

type identicalBool struct {
	optional bool
}

func (s *identicalBool) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.Boolean, schema.ConvertedTypes.None, -1, -1, -1)
}

func (s *identicalBool) BufferDescription() rowset.ColumnBufferDescription {
	return rowset.ColumnBufferDescription{Kind: rowset.KindBool}
}

func (s *identicalBool) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w, ok := cw.(*file.BooleanColumnChunkWriter)
	if !ok {
		panic(writerMismatch("BOOLEAN", cw))
	}
	sv := view.Bool()
	return buf.WriteBool(w, sv.Len(), s.optional, sv.Value)
}

// textStrategy stages and stores character data as-is (BYTE_ARRAY/UTF8), or
// raw bytes without the UTF8 annotation for binary columns.
type textStrategy struct {
	optional  bool
	maxStrLen int
	converted schema.ConvertedType
}

func newTextStrategy(optional bool, maxStrLen int) *textStrategy {
	return &textStrategy{optional: optional, maxStrLen: maxStrLen, converted: schema.ConvertedTypes.UTF8}
}

func newBinaryStrategy(optional bool, maxStrLen int) *textStrategy {
	return &textStrategy{optional: optional, maxStrLen: maxStrLen, converted: schema.ConvertedTypes.None}
}

func (s *textStrategy) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.ByteArray, s.converted, -1, -1, -1)
}

func (s *textStrategy) BufferDescription() rowset.ColumnBufferDescription {
	return rowset.TextBuffer(s.maxStrLen)
}

func (s *textStrategy) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w, ok := cw.(*file.ByteArrayColumnChunkWriter)
	if !ok {
		panic(writerMismatch("BYTE_ARRAY", cw))
	}
	tv := view.Text()
	return buf.WriteByteArray(w, tv.Len(), s.optional, tv.Value)
}

func int32Writer(cw file.ColumnChunkWriter) *file.Int32ColumnChunkWriter {
	w, ok := cw.(*file.Int32ColumnChunkWriter)
	if !ok {
		panic(writerMismatch("INT32", cw))
	}
	return w
}

func int64Writer(cw file.ColumnChunkWriter) *file.Int64ColumnChunkWriter {
	w, ok := cw.(*file.Int64ColumnChunkWriter)
	if !ok {
		panic(writerMismatch("INT64", cw))
	}
	return w
}

func writerMismatch(want string, cw file.ColumnChunkWriter) string {
	return fmt.Sprintf("strategy: column writer %T does not match declared physical type %s", cw, want)
}
