package source

import (
	"context"
	"database/sql"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/rowset"
)

// Cursor drives a database/sql result set through the row-set buffer's
// bind/fetch protocol. Bound column buffers are filled in place on every
// fetch; the scan scratch is allocated once and reused per row.
type Cursor struct {
	rows         *sql.Rows
	rowArraySize int
	columns      []rowset.BoundColumn
	scan         []any
	dest         []any
	exhausted    bool
}

// NewCursor wraps an open result set. The rows remain owned by the caller
// and must stay open for the lifetime of the fetch loop.
func NewCursor(rows *sql.Rows) (*Cursor, error) {
	names, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to read result columns")
	}
	c := &Cursor{
		rows:    rows,
		columns: make([]rowset.BoundColumn, len(names)),
		scan:    make([]any, len(names)),
		dest:    make([]any, len(names)),
	}
	for i := range c.dest {
		c.dest[i] = &c.scan[i]
	}
	return c, nil
}

// SetRowArraySize requests up to n rows per fetch.
func (c *Cursor) SetRowArraySize(n int) error {
	if n <= 0 {
		return errors.Newf(errors.ErrorTypeInternal, "row array size must be positive, got %d", n)
	}
	c.rowArraySize = n
	return nil
}

// BindColumn registers the stable buffer for the column at the 1-based
// ordinal.
func (c *Cursor) BindColumn(ordinal int, col rowset.BoundColumn) error {
	if ordinal < 1 || ordinal > len(c.columns) {
		return errors.Newf(errors.ErrorTypeInternal,
			"column ordinal %d out of range, result has %d columns", ordinal, len(c.columns))
	}
	c.columns[ordinal-1] = col
	return nil
}

// Fetch fills the bound buffers with the next batch and returns the number of
// rows delivered. Zero with a nil error means the result set is exhausted.
func (c *Cursor) Fetch(ctx context.Context) (int, error) {
	if c.rowArraySize <= 0 {
		return 0, errors.New(errors.ErrorTypeInternal, "fetch before row array size was set")
	}
	if c.exhausted {
		return 0, nil
	}

	row := 0
	for row < c.rowArraySize {
		if err := ctx.Err(); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeQuery, "fetch aborted")
		}
		if !c.rows.Next() {
			c.exhausted = true
			if err := c.rows.Err(); err != nil {
				return 0, errors.Wrap(err, errors.ErrorTypeConnection, "fetch failed")
			}
			break
		}
		if err := c.rows.Scan(c.dest...); err != nil {
			return 0, errors.Wrap(err, errors.ErrorTypeData, "failed to scan row")
		}
		for i, col := range c.columns {
			if col == nil {
				continue
			}
			if err := setValue(col, row, c.scan[i]); err != nil {
				return 0, err
			}
		}
		row++
	}
	return row, nil
}
