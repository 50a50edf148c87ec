// Package strategy maps source column metadata to per-column fetch
// strategies. A strategy is an immutable policy built once per projected
// column: it declares the Parquet schema node for the column, the shape of
// the staging buffer it fetches through, and the copy routine that moves one
// batch from the buffer into the column writer.
package strategy

import (
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/quarrydata/quarry/pkg/rowset"
	"github.com/quarrydata/quarry/pkg/sink"
)

// defaultTextLength sizes text staging buffers when the source does not
// report a column length.
const defaultTextLength = 1024

// ColumnFetchStrategy decides how one column's values are represented
// physically, from schema metadata alone.
type ColumnFetchStrategy interface {
	// SchemaNode returns the physical Parquet node for the column, including
	// repetition and any converted-type, precision, and scale annotations. It
	// is invoked once per column before any data flows.
	SchemaNode(name string) (schema.Node, error)
	// BufferDescription is the staging-buffer shape this strategy fetches
	// through. It may differ from the final physical type: decimals beyond
	// native integer range are always staged as text.
	BufferDescription() rowset.ColumnBufferDescription
	// Copy appends one batch of this column's values to the writer, honoring
	// null positions. The view is not mutated. A view variant other than the
	// one BufferDescription promised is an internal invariant violation.
	Copy(buf *sink.Buffer, cw file.ColumnChunkWriter, view rowset.ColumnView) error
}

// TypeClass is the coarse source-type classification introspection produces.
type TypeClass uint8

const (
	// ClassText covers character data of any length
	ClassText TypeClass = iota
	// ClassBinary covers raw byte data
	ClassBinary
	// ClassInt32 covers integers of 32 bits or fewer
	ClassInt32
	// ClassInt64 covers 64-bit integers
	ClassInt64
	// ClassFloat32 covers single-precision floats
	ClassFloat32
	// ClassFloat64 covers double-precision floats
	ClassFloat64
	// ClassDecimal covers fixed-point decimals with declared precision and scale
	ClassDecimal
	// ClassDate covers calendar dates
	ClassDate
	// ClassTimestamp covers date-time values
	ClassTimestamp
	// ClassBool covers booleans
	ClassBool
)

// ColumnDescriptor is the trusted per-column schema metadata the source
// supplies. Precision, scale, and nullability come from upstream
// introspection and are not validated here.
type ColumnDescriptor struct {
	Name     string
	Nullable bool
	Class    TypeClass
	// Precision and Scale are meaningful for ClassDecimal
	Precision int
	Scale     int
	// Length is the maximum value length in bytes for text and binary columns
	Length int
}

// DriverCapabilities captures per-driver quirks that influence strategy
// selection.
type DriverCapabilities struct {
	// NativeInt64 reports whether the driver binds 64-bit integers reliably
	NativeInt64 bool
}

// ForColumn selects the fetch strategy for one column. Unclassifiable types
// fall back to text staging, which is lossless.
func ForColumn(desc ColumnDescriptor, caps DriverCapabilities) ColumnFetchStrategy {
	switch desc.Class {
	case ClassInt32:
		return newIdenticalInt32(desc.Nullable)
	case ClassInt64:
		return newIdenticalInt64(desc.Nullable)
	case ClassFloat32:
		return &identicalFloat32{optional: desc.Nullable}
	case ClassFloat64:
		return &identicalFloat64{optional: desc.Nullable}
	case ClassBool:
		return &identicalBool{optional: desc.Nullable}
	case ClassDate:
		return newDateStrategy(desc.Nullable)
	case ClassTimestamp:
		return newTimestampStrategy(desc.Nullable)
	case ClassDecimal:
		return DecimalStrategy(desc.Nullable, desc.Precision, desc.Scale, caps.NativeInt64)
	case ClassBinary:
		return newBinaryStrategy(desc.Nullable, textLength(desc))
	default:
		return newTextStrategy(desc.Nullable, textLength(desc))
	}
}

func textLength(desc ColumnDescriptor) int {
	if desc.Length > 0 {
		return desc.Length
	}
	return defaultTextLength
}

func repetition(optional bool) parquet.Repetition {
	if optional {
		return parquet.Repetitions.Optional
	}
	return parquet.Repetitions.Required
}

// primitiveNode builds a primitive schema node with converted-type
// annotations. typeLen, precision, and scale are -1 where unused.
func primitiveNode(name string, optional bool, typ parquet.Type, converted schema.ConvertedType, typeLen, precision, scale int) (schema.Node, error) {
	node, err := schema.NewPrimitiveNodeConverted(name, repetition(optional), typ,
		converted, typeLen, precision, scale, -1)
	if err != nil {
		return nil, err
	}
	return node, nil
}
