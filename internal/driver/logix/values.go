package logix

import "math"

// CIP atomic data type codes.
const (
	TypeBOOL   = 0xC1
	TypeSINT   = 0xC2
	TypeINT    = 0xC3
	TypeDINT   = 0xC4
	TypeLINT   = 0xC5
	TypeUSINT  = 0xC6
	TypeUINT   = 0xC7
	TypeUDINT  = 0xC8
	TypeULINT  = 0xC9
	TypeREAL   = 0xCA
	TypeLREAL  = 0xCB
	TypeSTRING = 0xD0
)

var typeNames = map[uint16]string{
	TypeBOOL:   "BOOL",
	TypeSINT:   "SINT",
	TypeINT:    "INT",
	TypeDINT:   "DINT",
	TypeLINT:   "LINT",
	TypeUSINT:  "USINT",
	TypeUINT:   "UINT",
	TypeUDINT:  "UDINT",
	TypeULINT:  "ULINT",
	TypeREAL:   "REAL",
	TypeLREAL:  "LREAL",
	TypeSTRING: "STRING",
}

var typeSizes = map[uint16]int{
	TypeBOOL:   1,
	TypeSINT:   1,
	TypeINT:    2,
	TypeDINT:   4,
	TypeLINT:   8,
	TypeUSINT:  1,
	TypeUINT:   2,
	TypeUDINT:  4,
	TypeULINT:  8,
	TypeREAL:   4,
	TypeLREAL:  8,
	TypeSTRING: 88,
}

// typeOfValue maps a value returned by a tag read to its CIP type.
func typeOfValue(v any) (uint16, bool) {
	switch v.(type) {
	case bool, []bool:
		return TypeBOOL, true
	case int8, []int8:
		return TypeSINT, true
	case int16, []int16:
		return TypeINT, true
	case int32, []int32:
		return TypeDINT, true
	case int64, []int64:
		return TypeLINT, true
	case uint8, []uint8:
		return TypeUSINT, true
	case uint16, []uint16:
		return TypeUINT, true
	case uint32, []uint32:
		return TypeUDINT, true
	case uint64, []uint64:
		return TypeULINT, true
	case float32, []float32:
		return TypeREAL, true
	case float64, []float64:
		return TypeLREAL, true
	case string, []string:
		return TypeSTRING, true
	}
	return 0, false
}

// typed converts a decoded JSON value (bool, int64, float64, string or a
// []any of those) to the Go type gologix writes for dataType. It returns
// the failure status text when the value does not fit.
func typed(value any, dataType uint16) (any, string) {
	if values, ok := value.([]any); ok {
		return typedList(values, dataType)
	}
	switch dataType {
	case TypeBOOL:
		return scalar(value, toBool)
	case TypeSINT:
		return scalar(value, toSigned[int8])
	case TypeINT:
		return scalar(value, toSigned[int16])
	case TypeDINT:
		return scalar(value, toSigned[int32])
	case TypeLINT:
		return scalar(value, toSigned[int64])
	case TypeUSINT:
		return scalar(value, toUnsigned[uint8])
	case TypeUINT:
		return scalar(value, toUnsigned[uint16])
	case TypeUDINT:
		return scalar(value, toUnsigned[uint32])
	case TypeULINT:
		return scalar(value, toUnsigned[uint64])
	case TypeREAL:
		return scalar(value, toFloat32)
	case TypeLREAL:
		return scalar(value, toFloat64)
	case TypeSTRING:
		return scalar(value, toString)
	}
	return nil, StatusTypeMismatch
}

func typedList(values []any, dataType uint16) (any, string) {
	switch dataType {
	case TypeBOOL:
		return slice(values, toBool)
	case TypeSINT:
		return slice(values, toSigned[int8])
	case TypeINT:
		return slice(values, toSigned[int16])
	case TypeDINT:
		return slice(values, toSigned[int32])
	case TypeLINT:
		return slice(values, toSigned[int64])
	case TypeUSINT:
		return slice(values, toUnsigned[uint8])
	case TypeUINT:
		return slice(values, toUnsigned[uint16])
	case TypeUDINT:
		return slice(values, toUnsigned[uint32])
	case TypeULINT:
		return slice(values, toUnsigned[uint64])
	case TypeREAL:
		return slice(values, toFloat32)
	case TypeLREAL:
		return slice(values, toFloat64)
	case TypeSTRING:
		return slice(values, toString)
	}
	return nil, StatusTypeMismatch
}

// scalar converts v with conv, which reports a value that does not fit as
// a failure status text.
func scalar[T any](v any, conv func(any) (T, string)) (any, string) {
	out, status := conv(v)
	if status != "" {
		return nil, status
	}
	return out, ""
}

func slice[T any](values []any, conv func(any) (T, string)) (any, string) {
	out := make([]T, len(values))
	for i, v := range values {
		var status string
		if out[i], status = conv(v); status != "" {
			return nil, status
		}
	}
	return out, ""
}

// integral returns v as an int64 when it holds a whole number.
func integral(v any) (int64, string) {
	switch x := v.(type) {
	case int64:
		return x, ""
	case float64:
		if x != math.Trunc(x) {
			return 0, StatusTypeMismatch
		}
		// float64(math.MaxInt64) rounds up to 2^63.
		if x < math.MinInt64 || x >= math.MaxInt64 {
			return 0, StatusOutOfRange
		}
		return int64(x), ""
	case bool:
		if x {
			return 1, ""
		}
		return 0, ""
	}
	return 0, StatusTypeMismatch
}

func toSigned[T int8 | int16 | int32 | int64](v any) (T, string) {
	n, status := integral(v)
	if status != "" {
		return 0, status
	}
	if int64(T(n)) != n {
		return 0, StatusOutOfRange
	}
	return T(n), ""
}

func toUnsigned[T uint8 | uint16 | uint32 | uint64](v any) (T, string) {
	n, status := integral(v)
	if status != "" {
		return 0, status
	}
	if n < 0 || uint64(T(n)) != uint64(n) {
		return 0, StatusOutOfRange
	}
	return T(n), ""
}

func toBool(v any) (bool, string) {
	switch x := v.(type) {
	case bool:
		return x, ""
	case int64:
		return x != 0, ""
	case float64:
		return x != 0, ""
	}
	return false, StatusTypeMismatch
}

func toFloat64(v any) (float64, string) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int64:
		f = float64(x)
	default:
		return 0, StatusTypeMismatch
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, StatusOutOfRange
	}
	return f, ""
}

func toFloat32(v any) (float32, string) {
	f, status := toFloat64(v)
	if status != "" {
		return 0, status
	}
	if math.Abs(f) > math.MaxFloat32 {
		return 0, StatusOutOfRange
	}
	return float32(f), ""
}

func toString(v any) (string, string) {
	if s, ok := v.(string); ok {
		return s, ""
	}
	return "", StatusTypeMismatch
}

// plain converts a value read through gologix to the shapes the service
// encodes: int64 for every integer that fits, float64 for REAL and []any
// for arrays.
func plain(v any) any {
	switch x := v.(type) {
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case float32:
		return float64(x)
	case []bool:
		return list(x)
	case []int8:
		return list(x)
	case []int16:
		return list(x)
	case []int32:
		return list(x)
	case []int64:
		return list(x)
	case []uint8:
		return list(x)
	case []uint16:
		return list(x)
	case []uint32:
		return list(x)
	case []uint64:
		return list(x)
	case []float32:
		return list(x)
	case []float64:
		return list(x)
	case []string:
		return list(x)
	}
	return v
}

func list[T any](xs []T) []any {
	out := make([]any, len(xs))
	for i, x := range xs {
		out[i] = plain(x)
	}
	return out
}
