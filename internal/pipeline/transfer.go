package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/quarrydata/quarry/pkg/config"
	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/logger"
	"github.com/quarrydata/quarry/pkg/rowset"
	"github.com/quarrydata/quarry/pkg/sink"
	"github.com/quarrydata/quarry/pkg/source"
	"github.com/quarrydata/quarry/pkg/strategy"
)

// Result summarizes a completed transfer.
type Result struct {
	Rows      int64
	Batches   int
	RowGroups int
	Duration  time.Duration
}

// Describe connects to the source, resolves the per-column plan for the
// configured query, and returns it without fetching any data.
func Describe(ctx context.Context, cfg *config.Config) (*Plan, error) {
	db, err := source.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, cfg.Query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "query failed")
	}
	defer rows.Close()

	descs, err := source.Describe(rows)
	if err != nil {
		return nil, err
	}
	return BuildPlan(descs, capabilities(cfg))
}

// Transfer executes the configured query and writes its result set to
// Parquet, one row group per fetched batch. Abort points exist between
// batches only: a context cancellation takes effect before the next fetch.
func Transfer(ctx context.Context, cfg *config.Config) (*Result, error) {
	start := time.Now()
	log := logger.With(
		zap.String("driver", cfg.Driver),
		zap.String("output", cfg.Output),
	)

	codec, err := sink.CodecFromName(cfg.Compression)
	if err != nil {
		return nil, err
	}

	db, err := source.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, cfg.Query)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "query failed")
	}
	defer rows.Close()

	descs, err := source.Describe(rows)
	if err != nil {
		return nil, err
	}
	plan, err := BuildPlan(descs, capabilities(cfg))
	if err != nil {
		return nil, err
	}
	log.Info("plan resolved",
		zap.Int("columns", len(plan.Columns)),
		zap.Int("batch_size", cfg.BatchSize),
	)

	out, err := sink.NewOutput(cfg.Output, plan.Fields, sink.Options{
		Compression:    codec,
		BatchesPerFile: cfg.BatchesPerFile,
	})
	if err != nil {
		return nil, err
	}
	defer out.Close()

	buffer := rowset.NewRowSetBuffer(cfg.BatchSize, plan.BufferDescriptions())
	cursor, err := source.NewCursor(rows)
	if err != nil {
		return nil, err
	}
	if err := buffer.Bind(cursor); err != nil {
		return nil, err
	}
	staging := sink.NewBuffer(cfg.BatchSize)

	res := &Result{}
	for {
		n, err := buffer.Fetch(ctx, cursor)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			break
		}
		if err := writeBatch(plan, out, staging, buffer); err != nil {
			return nil, err
		}
		res.Rows += int64(n)
		res.Batches++
		log.Debug("batch written",
			zap.Int("rows", n),
			zap.Int64("total_rows", res.Rows),
		)
	}
	res.RowGroups = out.RowGroups()

	if err := out.Close(); err != nil {
		return nil, err
	}
	res.Duration = time.Since(start)
	log.Info("transfer complete",
		zap.Int64("rows", res.Rows),
		zap.Int("batches", res.Batches),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// writeBatch appends the buffer's current batch as one row group, copying
// each column through its strategy.
func writeBatch(plan *Plan, out *sink.Output, staging *sink.Buffer, buffer *rowset.RowSetBuffer) error {
	rg, err := out.NextRowGroup()
	if err != nil {
		return err
	}
	for i := range plan.Columns {
		cw, err := rg.NextColumn()
		if err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to open column writer")
		}
		if err := plan.Columns[i].Strategy.Copy(staging, cw, buffer.Column(i)); err != nil {
			return err
		}
		if err := cw.Close(); err != nil {
			return errors.Wrap(err, errors.ErrorTypeFile, "failed to close column writer")
		}
	}
	if err := rg.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to close row group")
	}
	return nil
}

func capabilities(cfg *config.Config) strategy.DriverCapabilities {
	caps := source.Capabilities(cfg.Driver)
	if cfg.NoNativeInt64 {
		caps.NativeInt64 = false
	}
	return caps
}
