package bytecode

import (
	"math"
	"strconv"
)

// Value is the runtime value type: a 64-bit IEEE float.
type Value float64

// String formats v the way results are printed. Integral values keep one
// decimal place so that 7 prints as "7.0".
func (v Value) String() string {
	f := float64(v)
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case f == math.Trunc(f) && math.Abs(f) < 1e16:
		return strconv.FormatFloat(f, 'f', 1, 64)
	default:
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
}
