package simulated

import (
	"fmt"
	"math"
	"strconv"
)

// CIP atomic data type codes.
const (
	TypeBOOL   = 0xC1
	TypeSINT   = 0xC2
	TypeINT    = 0xC3
	TypeDINT   = 0xC4
	TypeLINT   = 0xC5
	TypeREAL   = 0xCA
	TypeSTRING = 0xD0
	TypeLREAL  = 0xCB
	typeStruct = 0x0FCE
)

// Status texts reported for failed tag operations.
const (
	StatusPathUnknown    = "Path destination unknown"
	StatusTypeMismatch   = "Data type mismatch"
	StatusOutOfRange     = "Value out of range"
	StatusPathSegment    = "Path segment error"
	StatusNotSupported   = "Service not supported"
	StatusTooManyElement = "Too many elements requested"
)

var typeNames = map[int]string{
	TypeBOOL:   "BOOL",
	TypeSINT:   "SINT",
	TypeINT:    "INT",
	TypeDINT:   "DINT",
	TypeLINT:   "LINT",
	TypeREAL:   "REAL",
	TypeLREAL:  "LREAL",
	TypeSTRING: "STRING",
}

var typeSizes = map[int]int{
	TypeBOOL:   1,
	TypeSINT:   1,
	TypeINT:    2,
	TypeDINT:   4,
	TypeLINT:   8,
	TypeREAL:   4,
	TypeLREAL:  8,
	TypeSTRING: 88,
}

// intRange gives the representable range of each integer type.
var intRange = map[int][2]int64{
	TypeSINT: {math.MinInt8, math.MaxInt8},
	TypeINT:  {math.MinInt16, math.MaxInt16},
	TypeDINT: {math.MinInt32, math.MaxInt32},
	TypeLINT: {math.MinInt64, math.MaxInt64},
}

// coerce converts a written value to the Go representation of dataType.
// It returns the failure status text when the value does not fit.
func coerce(value any, dataType int) (any, string) {
	switch dataType {
	case TypeBOOL:
		switch v := value.(type) {
		case bool:
			return v, ""
		case int64:
			return v != 0, ""
		case float64:
			return v != 0, ""
		}
		return nil, StatusTypeMismatch

	case TypeSINT, TypeINT, TypeDINT, TypeLINT:
		var n int64
		switch v := value.(type) {
		case int64:
			n = v
		case float64:
			if v != math.Trunc(v) {
				return nil, StatusTypeMismatch
			}
			// float64(math.MaxInt64) rounds up to 2^63, which is out of range.
			if v < math.MinInt64 || v >= math.MaxInt64 {
				return nil, StatusOutOfRange
			}
			n = int64(v)
		case bool:
			if v {
				n = 1
			}
		case string:
			parsed, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				return nil, StatusTypeMismatch
			}
			n = parsed
		default:
			return nil, StatusTypeMismatch
		}
		r := intRange[dataType]
		if n < r[0] || n > r[1] {
			return nil, StatusOutOfRange
		}
		return n, ""

	case TypeREAL, TypeLREAL:
		var f float64
		switch v := value.(type) {
		case float64:
			f = v
		case int64:
			f = float64(v)
		case string:
			parsed, err := strconv.ParseFloat(v, 64)
			if err != nil {
				return nil, StatusTypeMismatch
			}
			f = parsed
		default:
			return nil, StatusTypeMismatch
		}
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, StatusOutOfRange
		}
		if dataType == TypeREAL && math.Abs(f) > math.MaxFloat32 {
			return nil, StatusOutOfRange
		}
		return f, ""

	case TypeSTRING:
		switch v := value.(type) {
		case string:
			return v, ""
		default:
			return fmt.Sprint(v), ""
		}
	}

	return nil, StatusTypeMismatch
}
