// Package quarry moves SQL query results into Parquet files while preserving
// exact arbitrary-precision decimal semantics under a fixed memory budget.
//
// A transfer binds one reusable row-set buffer to the source cursor, fetches
// the result set batch by batch, and writes each batch as one Parquet row
// group. Memory use is fixed up front by the batch size and the per-column
// buffer shapes; it does not grow with the size of the result set.
//
// Decimal columns never pass through floating point. Depending on declared
// precision and scale they are stored as INT32, INT64, or as fixed-length
// big-endian two's-complement byte strings, so every value round-trips
// exactly.
//
// The quarry command in cmd/quarry is the user-facing CLI; internal/pipeline
// drives the fetch/copy cycle; pkg/strategy selects the per-column physical
// representation; pkg/rowset, pkg/source, and pkg/sink implement the staging
// buffer, the database/sql adapter, and the Parquet writer.
package quarry
