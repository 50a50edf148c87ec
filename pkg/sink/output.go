package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/schema"

	"github.com/quarrydata/quarry/pkg/errors"
)

// Options configures a Parquet output.
type Options struct {
	// Compression is the column compression codec
	Compression compress.Compression
	// BatchesPerFile rotates to a new numbered file after this many row
	// groups. Zero writes a single file.
	BatchesPerFile int
}

// CodecFromName maps a codec name to a Parquet compression codec.
func CodecFromName(name string) (compress.Compression, error) {
	switch strings.ToLower(name) {
	case "", "snappy":
		return compress.Codecs.Snappy, nil
	case "gzip":
		return compress.Codecs.Gzip, nil
	case "zstd":
		return compress.Codecs.Zstd, nil
	case "brotli":
		return compress.Codecs.Brotli, nil
	case "lz4":
		return compress.Codecs.Lz4Raw, nil
	case "none", "uncompressed":
		return compress.Codecs.Uncompressed, nil
	default:
		return compress.Codecs.Uncompressed,
			errors.Newf(errors.ErrorTypeConfig, "unknown compression codec %q", name)
	}
}

// Output owns the Parquet file (or numbered sequence of files) a transfer
// writes into. The schema group node is emitted once per file; every batch
// becomes one serial row group.
type Output struct {
	path           string
	root           *schema.GroupNode
	props          *parquet.WriterProperties
	batchesPerFile int

	writer        *file.Writer
	fileIndex     int
	batchesInFile int
	rowGroups     int
}

// NewOutput assembles the schema group node from the per-column nodes and
// prepares an output at path. No file is created until the first row group.
func NewOutput(path string, fields schema.FieldList, opts Options) (*Output, error) {
	root, err := schema.NewGroupNode("schema", parquet.Repetitions.Required, fields, -1)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeInternal, "failed to assemble schema root")
	}
	props := parquet.NewWriterProperties(
		parquet.WithCompression(opts.Compression),
		parquet.WithDictionaryDefault(true),
	)
	return &Output{
		path:           path,
		root:           root,
		props:          props,
		batchesPerFile: opts.BatchesPerFile,
	}, nil
}

// Root returns the schema root emitted into every output file
func (o *Output) Root() *schema.GroupNode { return o.root }

// RowGroups reports the total number of row groups written so far
func (o *Output) RowGroups() int { return o.rowGroups }

// CurrentPath returns the path of the file currently being written, or the
// configured path if none is open yet.
func (o *Output) CurrentPath() string {
	if o.batchesPerFile <= 0 || o.fileIndex == 0 {
		return o.path
	}
	return numberedPath(o.path, o.fileIndex)
}

// NextRowGroup appends a serial row group for the next batch, rotating to a
// new file first when the per-file batch budget is exhausted.
func (o *Output) NextRowGroup() (file.SerialRowGroupWriter, error) {
	if o.writer != nil && o.batchesPerFile > 0 && o.batchesInFile >= o.batchesPerFile {
		if err := o.closeFile(); err != nil {
			return nil, err
		}
	}
	if o.writer == nil {
		if err := o.openFile(); err != nil {
			return nil, err
		}
	}
	o.batchesInFile++
	o.rowGroups++
	return o.writer.AppendRowGroup(), nil
}

// Close finalizes the current file, writing the footer.
func (o *Output) Close() error {
	return o.closeFile()
}

func (o *Output) openFile() error {
	path := o.path
	if o.batchesPerFile > 0 {
		o.fileIndex++
		path = numberedPath(o.path, o.fileIndex)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create output file")
	}
	o.writer = file.NewParquetWriter(f, o.root, file.WithWriterProps(o.props))
	o.batchesInFile = 0
	return nil
}

func (o *Output) closeFile() error {
	if o.writer == nil {
		return nil
	}
	// Close writes the footer and closes the underlying file.
	err := o.writer.Close()
	o.writer = nil
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to finalize output file")
	}
	return nil
}

// numberedPath inserts a 1-based index before the file extension:
// out.parquet becomes out_1.parquet.
func numberedPath(path string, index int) string {
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	return fmt.Sprintf("%s_%d%s", base, index, ext)
}
