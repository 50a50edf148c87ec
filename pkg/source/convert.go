package source

import (
	"fmt"
	"strconv"
	"time"

	"github.com/quarrydata/quarry/pkg/errors"
	"github.com/quarrydata/quarry/pkg/rowset"
)

// setValue converts one driver value into the bound column's typed storage.
// Drivers disagree about the Go types they hand back for the same SQL type
// (mysql renders most things as []byte, pgx as native types), so every path
// accepts the textual rendering as well.
func setValue(col rowset.BoundColumn, row int, v any) error {
	if v == nil {
		col.SetNull(row)
		return nil
	}

	switch c := col.(type) {
	case *rowset.TextColumn:
		b, err := asBytes(v)
		if err != nil {
			return err
		}
		c.Set(row, b)
	case *rowset.ScalarColumn[int32]:
		if c.Kind() == rowset.KindDate {
			t, err := asTime(v)
			if err != nil {
				return err
			}
			c.Set(row, daysSinceEpoch(t))
		} else {
			n, err := asInt64(v)
			if err != nil {
				return err
			}
			c.Set(row, int32(n))
		}
	case *rowset.ScalarColumn[int64]:
		if c.Kind() == rowset.KindTimestamp {
			t, err := asTime(v)
			if err != nil {
				return err
			}
			c.Set(row, t.UnixMicro())
		} else {
			n, err := asInt64(v)
			if err != nil {
				return err
			}
			c.Set(row, n)
		}
	case *rowset.ScalarColumn[float64]:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		c.Set(row, f)
	case *rowset.ScalarColumn[float32]:
		f, err := asFloat64(v)
		if err != nil {
			return err
		}
		c.Set(row, float32(f))
	case *rowset.ScalarColumn[bool]:
		b, err := asBool(v)
		if err != nil {
			return err
		}
		c.Set(row, b)
	default:
		return errors.Newf(errors.ErrorTypeInternal, "unknown column buffer type %T", col)
	}
	return nil
}

func asBytes(v any) ([]byte, error) {
	switch t := v.(type) {
	case []byte:
		return t, nil
	case string:
		return []byte(t), nil
	case time.Time:
		return t.AppendFormat(nil, time.RFC3339Nano), nil
	default:
		return fmt.Appendf(nil, "%v", v), nil
	}
}

func asInt64(v any) (int64, error) {
	switch t := v.(type) {
	case int64:
		return t, nil
	case []byte:
		return strconv.ParseInt(string(t), 10, 64)
	case string:
		return strconv.ParseInt(t, 10, 64)
	default:
		return 0, errors.Newf(errors.ErrorTypeData, "cannot convert %T to integer", v)
	}
}

func asFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int64:
		return float64(t), nil
	case []byte:
		return strconv.ParseFloat(string(t), 64)
	case string:
		return strconv.ParseFloat(t, 64)
	default:
		return 0, errors.Newf(errors.ErrorTypeData, "cannot convert %T to float", v)
	}
}

func asBool(v any) (bool, error) {
	switch t := v.(type) {
	case bool:
		return t, nil
	case int64:
		return t != 0, nil
	case []byte:
		// MySQL renders BIT(1) as a single raw byte.
		if len(t) == 1 && (t[0] == 0 || t[0] == 1) {
			return t[0] == 1, nil
		}
		return strconv.ParseBool(string(t))
	case string:
		return strconv.ParseBool(t)
	default:
		return false, errors.Newf(errors.ErrorTypeData, "cannot convert %T to bool", v)
	}
}

// timeLayouts are tried in order for drivers that render temporal values as
// text.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

func asTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case []byte:
		return parseTime(string(t))
	case string:
		return parseTime(t)
	default:
		return time.Time{}, errors.Newf(errors.ErrorTypeData, "cannot convert %T to time", v)
	}
}

func parseTime(s string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Newf(errors.ErrorTypeData, "unrecognized temporal value %q", s)
}

// daysSinceEpoch converts a date to whole days since the Unix epoch, flooring
// for dates before 1970.
func daysSinceEpoch(t time.Time) int32 {
	secs := t.Unix()
	days := secs / 86400
	if secs < 0 && secs%86400 != 0 {
		days--
	}
	return int32(days)
}
