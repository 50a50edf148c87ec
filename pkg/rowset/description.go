// Package rowset implements the batch row-set buffer that stages fetched rows
// in typed, column-major storage. A RowSetBuffer is bound once to a cursor and
// reused across repeated fetch calls; storage is allocated up front and never
// relocated, so a cursor implementation may retain references to the bound
// columns between fetches.
package rowset

// BufferKind identifies the physical variant of a column buffer.
type BufferKind uint8

const (
	// KindText stages values as length-prefixed bytes at a fixed per-row stride
	KindText BufferKind = iota
	// KindFloat64 stages values as 64-bit floats
	KindFloat64
	// KindFloat32 stages values as 32-bit floats
	KindFloat32
	// KindDate stages values as days since the Unix epoch
	KindDate
	// KindTimestamp stages values as microseconds since the Unix epoch
	KindTimestamp
	// KindInt32 stages values as 32-bit signed integers
	KindInt32
	// KindInt64 stages values as 64-bit signed integers
	KindInt64
	// KindBool stages values as booleans
	KindBool
)

// String returns the kind name for diagnostics
func (k BufferKind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindFloat64:
		return "float64"
	case KindFloat32:
		return "float32"
	case KindDate:
		return "date"
	case KindTimestamp:
		return "timestamp"
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindBool:
		return "bool"
	default:
		return "unknown"
	}
}

// ColumnBufferDescription is the immutable per-column shape tag a fetch
// strategy requests for its staging buffer. It is produced once from source
// schema metadata at bind time.
type ColumnBufferDescription struct {
	Kind BufferKind
	// MaxStrLen is the longest value, in bytes, a text buffer can hold per
	// row. Only meaningful when Kind is KindText.
	MaxStrLen int
}

// TextBuffer describes a text column buffer holding values up to maxStrLen
// bytes per row.
func TextBuffer(maxStrLen int) ColumnBufferDescription {
	return ColumnBufferDescription{Kind: KindText, MaxStrLen: maxStrLen}
}
