// Package projection converts raw driver values into JSON-safe values using
// the type tag of each attribute.
package projection

import (
	"database/sql/driver"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bitechdev/RecordSpec/pkg/common"
	"github.com/bitechdev/RecordSpec/pkg/heading"
)

// BlobSentinel replaces blob values when blobs were not requested
const BlobSentinel = "=BLOB="

// Options controls projection of a result set
type Options struct {
	FetchBlobs bool
}

// rule converts one non-null value of an attribute
type rule func(attr heading.Attribute, v interface{}) (interface{}, error)

var rules = map[heading.Tag]rule{
	heading.TagDate:      projectDate,
	heading.TagTime:      projectTime,
	heading.TagDatetime:  projectDatetime,
	heading.TagTimestamp: projectDatetime,
	heading.TagDecimal:   projectDecimal,
	heading.TagUUID:      projectUUID,
	heading.TagInt:       projectInt,
	heading.TagFloat:     projectFloat,
	heading.TagBool:      projectBool,
}

// Value projects a single value. Null passes through for every tag.
func Value(attr heading.Attribute, v interface{}, opts Options) (interface{}, error) {
	v = unwrap(v)
	if v == nil {
		return nil, nil
	}
	if attr.IsBlob {
		if !opts.FetchBlobs {
			return BlobSentinel, nil
		}
		return v, nil
	}
	if r, ok := rules[attr.Tag]; ok {
		out, err := r(attr, v)
		if err != nil {
			return nil, fmt.Errorf("attribute %s: %w", attr.Name, err)
		}
		return out, nil
	}
	return scalar(v), nil
}

// Row projects one raw row into a positional tuple ordered like attrs
func Row(attrs []heading.Attribute, row common.Row, opts Options) ([]interface{}, error) {
	out := make([]interface{}, len(attrs))
	for i, attr := range attrs {
		v, err := Value(attr, row[attr.Name], opts)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// Rows projects a result set
func Rows(attrs []heading.Attribute, rows []common.Row, opts Options) ([][]interface{}, error) {
	out := make([][]interface{}, 0, len(rows))
	for _, row := range rows {
		tuple, err := Row(attrs, row, opts)
		if err != nil {
			return nil, err
		}
		out = append(out, tuple)
	}
	return out, nil
}

// unwrap resolves driver.Valuer wrappers and pointers
func unwrap(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch val := v.(type) {
	case time.Time, []byte, string, decimal.Decimal, uuid.UUID:
		return val
	case driver.Valuer:
		inner, err := val.Value()
		if err != nil {
			return v
		}
		return unwrap(inner)
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil
		}
		return unwrap(rv.Elem().Interface())
	}
	return v
}

func projectDate(_ heading.Attribute, v interface{}) (interface{}, error) {
	t, err := asTime(v, "2006-01-02")
	if err != nil {
		return nil, err
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	// day is UTC midnight, so its Unix time is a whole number of days
	return day.Unix(), nil
}

func projectTime(_ heading.Attribute, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case time.Duration:
		return val.Seconds(), nil
	case time.Time:
		midnight := time.Date(val.Year(), val.Month(), val.Day(), 0, 0, 0, 0, val.Location())
		return val.Sub(midnight).Seconds(), nil
	case []byte:
		return parseClock(string(val))
	case string:
		return parseClock(val)
	case int64:
		return float64(val), nil
	case float64:
		return val, nil
	}
	return nil, fmt.Errorf("unsupported time value %T", v)
}

// parseClock reads [-]HH:MM:SS[.ffffff]; hours may exceed 24 for MySQL TIME
func parseClock(s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	if i := strings.IndexAny(s, "+Z"); i > 0 {
		s = s[:i]
	}
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return nil, fmt.Errorf("malformed time %q", s)
	}
	total := float64(hours*3600+minutes*60) + seconds
	if neg {
		total = -total
	}
	return total, nil
}

func projectDatetime(_ heading.Attribute, v interface{}) (interface{}, error) {
	t, err := asTime(v, "2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05.999999999Z07:00", "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02")
	if err != nil {
		return nil, err
	}
	return float64(t.Unix()) + float64(t.Nanosecond())/1e9, nil
}

func asTime(v interface{}, layouts ...string) (time.Time, error) {
	var s string
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case []byte:
		s = string(val)
	case string:
		s = val
	default:
		return time.Time{}, fmt.Errorf("unsupported temporal value %T", v)
	}
	s = strings.TrimSpace(s)
	for _, layout := range append(layouts, time.RFC3339Nano) {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("malformed temporal value %q", s)
}

// projectDecimal keeps the exact stored text. Binary floats only arrive from
// stores without a decimal type and are rendered to the declared scale.
func projectDecimal(attr heading.Attribute, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case []byte:
		return string(val), nil
	case string:
		return val, nil
	case decimal.Decimal:
		return val.String(), nil
	case float64:
		return floatDecimal(decimal.NewFromFloat(val), attr.Scale), nil
	case float32:
		return floatDecimal(decimal.NewFromFloat32(val), attr.Scale), nil
	case int64:
		return floatDecimal(decimal.NewFromInt(val), attr.Scale), nil
	case int:
		return floatDecimal(decimal.NewFromInt(int64(val)), attr.Scale), nil
	}
	return nil, fmt.Errorf("unsupported decimal value %T", v)
}

func floatDecimal(d decimal.Decimal, scale int) string {
	if scale <= 0 {
		return d.String()
	}
	return d.StringFixed(int32(scale))
}

func projectUUID(_ heading.Attribute, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case uuid.UUID:
		return val.String(), nil
	case []byte:
		if len(val) == 16 {
			u, err := uuid.FromBytes(val)
			if err != nil {
				return nil, err
			}
			return u.String(), nil
		}
		return parseUUIDText(string(val))
	case string:
		return parseUUIDText(val)
	case [16]byte:
		return uuid.UUID(val).String(), nil
	}
	return nil, fmt.Errorf("unsupported uuid value %T", v)
}

func parseUUIDText(s string) (interface{}, error) {
	u, err := uuid.Parse(s)
	if err != nil {
		return nil, fmt.Errorf("malformed uuid %q", s)
	}
	return u.String(), nil
}

func projectInt(attr heading.Attribute, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case []byte:
		return parseInt(string(val))
	case string:
		return parseInt(val)
	case float64:
		if val == math.Trunc(val) && math.Abs(val) < 1<<53 {
			return int64(val), nil
		}
		return val, nil
	case bool:
		if val {
			return int64(1), nil
		}
		return int64(0), nil
	}
	return scalar(v), nil
}

func parseInt(s string) (interface{}, error) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	if u, err := strconv.ParseUint(s, 10, 64); err == nil {
		return u, nil
	}
	return nil, fmt.Errorf("malformed integer %q", s)
}

func projectFloat(_ heading.Attribute, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case []byte:
		return strconv.ParseFloat(strings.TrimSpace(string(val)), 64)
	case string:
		return strconv.ParseFloat(strings.TrimSpace(val), 64)
	}
	out := scalar(v)
	if i, ok := out.(int64); ok {
		return float64(i), nil
	}
	return out, nil
}

func projectBool(_ heading.Attribute, v interface{}) (interface{}, error) {
	switch val := v.(type) {
	case bool:
		return val, nil
	case int64:
		return val != 0, nil
	case []byte:
		return strconv.ParseBool(string(val))
	case string:
		return strconv.ParseBool(val)
	}
	return scalar(v), nil
}

// scalar normalizes driver specific numeric wrappers and byte text
func scalar(v interface{}) interface{} {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case decimal.Decimal:
		return val.String()
	case uuid.UUID:
		return val.String()
	case time.Time:
		return float64(val.UnixNano()) / float64(time.Second)
	case int:
		return int64(val)
	case int8:
		return int64(val)
	case int16:
		return int64(val)
	case int32:
		return int64(val)
	case uint8:
		return int64(val)
	case uint16:
		return int64(val)
	case uint32:
		return int64(val)
	case float32:
		return float64(val)
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	case reflect.Float32, reflect.Float64:
		return rv.Float()
	case reflect.Bool:
		return rv.Bool()
	case reflect.String:
		return rv.String()
	}
	return v
}
