package structure

import (
	"bytes"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
)

// Values read from a buffer have these Go types:
//
//	INT    int64
//	UINT   uint64
//	FLOAT  float64
//	STRING string
//	BLOCK  []byte
//	array  []any of the element type
//
// Writes accept any Go integer or float type, numeric strings (including
// 0x hex), and []byte or string for STRING and BLOCK items.

// toBigInt converts an integer-like value. Floats are truncated toward zero.
func toBigInt(v any) (*big.Int, error) {
	switch x := v.(type) {
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float32:
		return floatToBig(float64(x))
	case float64:
		return floatToBig(x)
	case bool:
		if x {
			return big.NewInt(1), nil
		}
		return big.NewInt(0), nil
	case *big.Int:
		return new(big.Int).Set(x), nil
	case string:
		s := strings.TrimSpace(x)
		if b, ok := new(big.Int).SetString(s, 0); ok {
			return b, nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return floatToBig(f)
		}
		return nil, fmt.Errorf("%w: %q is not an integer", ErrInvalidValue, x)
	}
	return nil, fmt.Errorf("%w: %T is not an integer", ErrInvalidValue, v)
}

func floatToBig(f float64) (*big.Int, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v is not an integer", ErrInvalidValue, f)
	}
	b, _ := big.NewFloat(math.Trunc(f)).Int(nil)
	return b, nil
}

// ToInt64 converts a numeric value to int64. Floats are truncated.
func ToInt64(v any) (int64, error) {
	b, err := toBigInt(v)
	if err != nil {
		return 0, err
	}
	if !b.IsInt64() {
		return 0, fmt.Errorf("%w: %s does not fit in 64 bits", ErrInvalidValue, b)
	}
	return b.Int64(), nil
}

// ToFloat64 converts a numeric value to float64.
func ToFloat64(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return x, nil
	case float32:
		return float64(x), nil
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case bool:
		if x {
			return 1, nil
		}
		return 0, nil
	case *big.Int:
		f, _ := new(big.Float).SetInt(x).Float64()
		return f, nil
	case string:
		s := strings.TrimSpace(x)
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
		if b, ok := new(big.Int).SetString(s, 0); ok {
			f, _ := new(big.Float).SetInt(b).Float64()
			return f, nil
		}
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidValue, x)
	}
	return 0, fmt.Errorf("%w: %T is not a number", ErrInvalidValue, v)
}

// IsNumeric reports whether v is a Go integer or float value.
func IsNumeric(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64, *big.Int:
		return true
	}
	return false
}

func toBytes(v any) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case string:
		return []byte(x), nil
	case nil:
		return nil, nil
	}
	return nil, fmt.Errorf("%w: %T cannot be written to a STRING or BLOCK item", ErrInvalidValue, v)
}

// toSlice converts any slice (other than a bare []byte or string) into []any.
func toSlice(v any) ([]any, error) {
	if s, ok := v.([]any); ok {
		return s, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("%w: values must be a slice but is %T", ErrInvalidValue, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// Normalize converts v into the canonical Go type for items of dataType
// (see the table above). Virtual types are returned unchanged.
func Normalize(dataType DataType, array bool, v any) (any, error) {
	if array {
		elems, err := toSlice(v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(elems))
		for i, e := range elems {
			n, err := Normalize(dataType, false, e)
			if err != nil {
				return nil, err
			}
			out[i] = n
		}
		return out, nil
	}
	switch dataType {
	case Int:
		return ToInt64(v)
	case Uint:
		b, err := toBigInt(v)
		if err != nil {
			return nil, err
		}
		if b.Sign() < 0 || !b.IsUint64() {
			return nil, fmt.Errorf("%w: %s is not a 64-bit unsigned integer", ErrInvalidValue, b)
		}
		return b.Uint64(), nil
	case Float:
		return ToFloat64(v)
	case String:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		return string(b), nil
	case Block:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		out := make([]byte, len(b))
		copy(out, b)
		return out, nil
	}
	return v, nil
}

// Equal compares two values the way identification compares ID values:
// numbers by numeric value, byte slices by content, slices element-wise.
func Equal(a, b any) bool {
	if IsNumeric(a) && IsNumeric(b) {
		ab, aerr := toBigInt(a)
		bb, berr := toBigInt(b)
		if aerr == nil && berr == nil && isIntegral(a) && isIntegral(b) {
			return ab.Cmp(bb) == 0
		}
		af, _ := ToFloat64(a)
		bf, _ := ToFloat64(b)
		return af == bf
	}
	switch x := a.(type) {
	case []byte:
		switch y := b.(type) {
		case []byte:
			return bytes.Equal(x, y)
		case string:
			return string(x) == y
		}
		return false
	case string:
		switch y := b.(type) {
		case string:
			return x == y
		case []byte:
			return x == string(y)
		}
		return false
	case []any:
		y, ok := b.([]any)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return reflect.DeepEqual(a, b)
}

func isIntegral(v any) bool {
	switch v.(type) {
	case float32, float64:
		return false
	}
	return true
}
