package sqlstore

import (
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	domainerrors "github.com/leengari/tablestore/internal/domain/errors"
	"github.com/leengari/tablestore/internal/domain/schema"
	"github.com/leengari/tablestore/internal/ndarray"
)

// columnType resolves the logical type of a column, preferring the caller's
// descriptor over the introspected handle. The empty type means unknown.
func columnType(t schema.Table, p *schema.PhysicalTable, name string) schema.ColumnType {
	if col, ok := t.Column(name); ok {
		return col.Type
	}
	for _, col := range p.Columns {
		if col.Name == name {
			return col.Logical
		}
	}
	return ""
}

// encodeValue turns a caller value into something the store accepts.
func (e *Engine) encodeValue(table, column string, typ schema.ColumnType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	if typ == schema.ColumnTypeNDArray {
		arr, err := ndarray.FromSlice(v)
		if err != nil {
			return nil, &domainerrors.CodecError{Table: table, Column: column, Value: v, Err: err}
		}
		blob, err := ndarray.Encode(arr, e.codec)
		if err != nil {
			return nil, &domainerrors.CodecError{Table: table, Column: column, Value: v, Err: err}
		}
		return blob, nil
	}
	out, err := normalizeScalar(v)
	if err != nil {
		return nil, &domainerrors.CodecError{Table: table, Column: column, Value: v, Err: err}
	}
	return out, nil
}

// normalizeScalar reduces foreign numeric types to int64 or float64 and
// single-element arrays to their element. Anything else passes through for
// the store to judge.
func normalizeScalar(v interface{}) (interface{}, error) {
	switch x := v.(type) {
	case int64, float64, string, bool, []byte:
		return x, nil
	case int:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		return uintToInt64(uint64(x))
	case uint64:
		return uintToInt64(x)
	case float32:
		return float64(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
		return x.Float64()
	case decimal.Decimal:
		if x.IsInteger() && x.Abs().LessThanOrEqual(decimal.NewFromInt(math.MaxInt64)) {
			return x.IntPart(), nil
		}
		return x.InexactFloat64(), nil
	case *decimal.Decimal:
		if x == nil {
			return nil, nil
		}
		return normalizeScalar(*x)
	case *ndarray.Array:
		if s, ok := x.Scalar(); ok {
			return normalizeScalar(s)
		}
		return nil, fmt.Errorf("array of shape %v is not a scalar", x.Shape())
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
		arr, err := ndarray.FromSlice(v)
		if err != nil {
			return nil, err
		}
		if s, ok := arr.Scalar(); ok {
			return normalizeScalar(s)
		}
		return nil, fmt.Errorf("array of shape %v is not a scalar", arr.Shape())
	}
	return v, nil
}

func uintToInt64(u uint64) (interface{}, error) {
	if u > math.MaxInt64 {
		return nil, fmt.Errorf("unsigned value %d overflows int64", u)
	}
	return int64(u), nil
}

// decodeValue converts a scanned store value into the logical type.
func decodeValue(table, column string, typ schema.ColumnType, v interface{}) (interface{}, error) {
	if v == nil {
		return nil, nil
	}
	var (
		out interface{}
		err error
	)
	switch typ {
	case schema.ColumnTypeNDArray:
		blob, ok := v.([]byte)
		if !ok {
			if s, isStr := v.(string); isStr {
				blob = []byte(s)
			} else {
				err = fmt.Errorf("expected blob, got %T", v)
				break
			}
		}
		out, err = ndarray.Decode(blob)
	case schema.ColumnTypeInt:
		out, err = toInt64(v)
	case schema.ColumnTypeFloat:
		out, err = toFloat64(v)
	case schema.ColumnTypeBool:
		out, err = toBool(v)
	case schema.ColumnTypeText:
		out, err = toText(v)
	default:
		if b, ok := v.([]byte); ok {
			out = string(b)
		} else {
			out = v
		}
	}
	if err != nil {
		return nil, &domainerrors.CodecError{Table: table, Column: column, Value: v, Err: err}
	}
	return out, nil
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return 0, fmt.Errorf("unsigned value %d overflows int64", x)
		}
		return int64(x), nil
	case float64:
		if x != math.Trunc(x) {
			return 0, fmt.Errorf("float %v is not an integer", x)
		}
		return int64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case []byte:
		return strconv.ParseInt(string(x), 10, 64)
	case string:
		return strconv.ParseInt(x, 10, 64)
	}
	return 0, fmt.Errorf("cannot read %T as INT", v)
}

func toFloat64(v interface{}) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case []byte:
		return strconv.ParseFloat(string(x), 64)
	case string:
		return strconv.ParseFloat(x, 64)
	}
	return 0, fmt.Errorf("cannot read %T as FLOAT", v)
}

func toBool(v interface{}) (bool, error) {
	switch x := v.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	case []byte:
		return parseBool(string(x))
	case string:
		return parseBool(x)
	}
	return false, fmt.Errorf("cannot read %T as BOOL", v)
}

func parseBool(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "t", "true":
		return true, nil
	case "0", "f", "false":
		return false, nil
	}
	return false, fmt.Errorf("cannot read %q as BOOL", s)
}

func toText(v interface{}) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case []byte:
		return string(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	}
	return "", fmt.Errorf("cannot read %T as TEXT", v)
}
