package strategy

import (
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/quarrydata/quarry/pkg/rowset"
	"github.com/quarrydata/quarry/pkg/sink"
)

// DecimalStrategy chooses how a decimal column is fetched and stored, from
// (precision, scale, native-64-bit capability) alone. The native integer
// fetch is preferred wherever precision permits: it is the cheapest lossless
// path. Text parsing is the fallback for drivers that cannot bind 64-bit
// integers reliably, and the binary codec is the escape hatch when no
// fixed-width native integer can hold the value losslessly.
func DecimalStrategy(nullable bool, precision, scale int, nativeInt64 bool) ColumnFetchStrategy {
	switch {
	case scale < 0 || scale > precision:
		// Parquet decimal metadata requires 0 <= scale <= precision; PostgreSQL
		// permits declarations outside that range, which keep their exact
		// textual rendering instead.
		return newTextStrategy(nullable, decimalDisplaySize(precision, scale))
	case precision <= 9 && scale == 0:
		return newDecimalInt32(nullable, precision)
	case precision <= 18 && scale == 0:
		if nativeInt64 {
			return newDecimalInt64(nullable, precision)
		}
		return newInt64FromText(nullable, precision)
	default:
		return newDecimalBinary(nullable, precision, scale)
	}
}

// decimalDisplaySize is the widest textual rendering the database/sql drivers
// produce for a decimal of the given precision and scale: every digit plus
// the sign, the radix point, and the leading zero purely fractional values
// carry ("-0.12345"). Scales beyond the precision add digits of their own.
// Staging buffers sized to it can never truncate.
func decimalDisplaySize(precision, scale int) int {
	digits := precision
	if scale > digits {
		digits = scale
	}
	return digits + 3
}

// int64FromText fetches a scale-0 decimal as text and parses it into a
// 64-bit integer, for sources that do not bind 64-bit integers reliably. The
// schema still reports INT64/DECIMAL even though values are staged as text.
type int64FromText struct {
	optional  bool
	precision int
}

func newInt64FromText(optional bool, precision int) *int64FromText {
	return &int64FromText{optional: optional, precision: precision}
}

func (s *int64FromText) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.Int64, schema.ConvertedTypes.Decimal, -1, s.precision, 0)
}

func (s *int64FromText) BufferDescription() rowset.ColumnBufferDescription {
	return rowset.TextBuffer(decimalDisplaySize(s.precision, 0))
}

func (s *int64FromText) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w := int64Writer(cw)
	tv := view.Text()
	return buf.WriteInt64(w, tv.Len(), s.optional, func(i int) (int64, bool) {
		text, ok := tv.Value(i)
		if !ok {
			return 0, false
		}
		if tv.Truncated(i) {
			panic(truncatedDecimal(text))
		}
		// Scale is always 0 on this path, so there is no radix point to handle.
		return parseRadix10Signed(text), true
	})
}

// decimalBinary fetches a decimal as text and stores it as a fixed-length
// big-endian two's-complement byte string, preserving exact precision for
// values no fixed-width native integer can hold.
type decimalBinary struct {
	optional      bool
	precision     int
	scale         int
	lengthInBytes int
	enc           twosComplementEncoder
	scratch       []byte
}

func newDecimalBinary(optional bool, precision, scale int) *decimalBinary {
	length := DecimalLengthInBytes(precision)
	return &decimalBinary{
		optional:      optional,
		precision:     precision,
		scale:         scale,
		lengthInBytes: length,
		enc:           newTwosComplementEncoder(length),
		scratch:       make([]byte, length),
	}
}

func (s *decimalBinary) SchemaNode(name string) (schema.Node, error) {
	return primitiveNode(name, s.optional, parquet.Types.FixedLenByteArray,
		schema.ConvertedTypes.Decimal, s.lengthInBytes, s.precision, s.scale)
}

func (s *decimalBinary) BufferDescription() rowset.ColumnBufferDescription {
	// Always staged as text, regardless of the final physical encoding.
	return rowset.TextBuffer(decimalDisplaySize(s.precision, s.scale))
}

func (s *decimalBinary) Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error {
	w, ok := cw.(*file.FixedLenByteArrayColumnChunkWriter)
	if !ok {
		panic(writerMismatch("FIXED_LEN_BYTE_ARRAY", cw))
	}
	tv := view.Text()
	return buf.WriteFixedLenByteArray(w, tv.Len(), s.optional, s.lengthInBytes, func(i int) ([]byte, bool) {
		text, ok := tv.Value(i)
		if !ok {
			return nil, false
		}
		if tv.Truncated(i) {
			panic(truncatedDecimal(text))
		}
		s.enc.Encode(text, s.scale, s.scratch)
		return s.scratch, true
	})
}
