// Package source adapts a database/sql result set to the row-set buffer's
// bind/fetch protocol and introspects column metadata into the descriptors
// the strategy engine consumes.
package source

import (
	"database/sql"
	"strings"

	// Registered database/sql drivers.
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/snowflakedb/gosnowflake"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/strategy"
)

// DriverName resolves a user-facing driver alias to the registered
// database/sql driver name.
func DriverName(driver string) (string, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx":
		return "pgx", nil
	case "mysql", "mariadb":
		return "mysql", nil
	case "snowflake":
		return "snowflake", nil
	default:
		return "", errors.Newf(errors.ErrorTypeCapability, "unsupported driver %q", driver)
	}
}

// Capabilities reports the binding quirks of a driver. Unknown drivers are
// assumed unable to bind 64-bit integers reliably, which degrades 10-18
// digit decimals to the lossless text-fallback path rather than assuming the
// native integer width holds.
func Capabilities(driver string) strategy.DriverCapabilities {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pgx", "mysql", "mariadb", "snowflake":
		return strategy.DriverCapabilities{NativeInt64: true}
	default:
		return strategy.DriverCapabilities{NativeInt64: false}
	}
}

// Open opens a database handle for the given driver alias and DSN.
func Open(driver, dsn string) (*sql.DB, error) {
	name, err := DriverName(driver)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(name, dsn)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConnection, "failed to open database")
	}
	return db, nil
}

// Describe introspects the result set's column metadata into one trusted
// descriptor per projected column.
func Describe(rows *sql.Rows) ([]strategy.ColumnDescriptor, error) {
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to introspect result columns")
	}
	descs := make([]strategy.ColumnDescriptor, len(types))
	for i, ct := range types {
		nullable, ok := ct.Nullable()
		if !ok {
			// Drivers that cannot report nullability get the safe answer.
			nullable = true
		}
		precision, scale, hasDecimalSize := ct.DecimalSize()
		length, hasLength := ct.Length()
		descs[i] = MapColumn(ct.Name(), ct.DatabaseTypeName(), nullable,
			precision, scale, hasDecimalSize, length, hasLength)
	}
	return descs, nil
}

// MapColumn classifies one column from the metadata a driver reports.
// Decimals without a declared precision and any type the table does not know
// fall back to text staging, which is lossless.
func MapColumn(name, dbType string, nullable bool, precision, scale int64, hasDecimalSize bool, length int64, hasLength bool) strategy.ColumnDescriptor {
	desc := strategy.ColumnDescriptor{
		Name:     name,
		Nullable: nullable,
	}
	if hasLength && length > 0 && length <= 1<<20 {
		desc.Length = int(length)
	}

	switch strings.ToUpper(dbType) {
	case "TINYINT", "SMALLINT", "INT2", "MEDIUMINT", "INT", "INTEGER", "INT4", "SERIAL":
		desc.Class = strategy.ClassInt32
	case "BIGINT", "INT8", "BIGSERIAL":
		desc.Class = strategy.ClassInt64
	case "DECIMAL", "NUMERIC", "NUMBER", "FIXED":
		if hasDecimalSize && precision > 0 {
			desc.Class = strategy.ClassDecimal
			desc.Precision = int(precision)
			desc.Scale = int(scale)
		} else {
			// Unconstrained numeric: no precision to size a binary encoding by.
			desc.Class = strategy.ClassText
		}
	case "FLOAT4", "REAL":
		desc.Class = strategy.ClassFloat32
	case "FLOAT8", "FLOAT", "DOUBLE", "DOUBLE PRECISION":
		desc.Class = strategy.ClassFloat64
	case "BOOL", "BOOLEAN", "BIT":
		desc.Class = strategy.ClassBool
	case "DATE":
		desc.Class = strategy.ClassDate
	case "TIMESTAMP", "TIMESTAMPTZ", "DATETIME",
		"TIMESTAMP_NTZ", "TIMESTAMP_LTZ", "TIMESTAMP_TZ":
		desc.Class = strategy.ClassTimestamp
	case "BYTEA", "BINARY", "VARBINARY", "BLOB", "TINYBLOB", "MEDIUMBLOB", "LONGBLOB":
		desc.Class = strategy.ClassBinary
	default:
		desc.Class = strategy.ClassText
	}
	return desc
}
