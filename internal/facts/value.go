// internal/facts/value.go

package facts

import (
	"errors"
	"fmt"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Value is a fact value. After normalisation it is always one of
// bool, float64, string or []string.
type Value interface{}

// ErrUnsupportedValue is returned when a value cannot be represented as a fact.
var ErrUnsupportedValue = errors.New("unsupported fact value")

// Normalize converts v into its canonical fact representation. Integers are
// widened to float64 and strings are NFC-normalised. A nil v yields (nil, nil):
// null values are treated as absent, never as an error.
func Normalize(v interface{}) (Value, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case bool:
		return val, nil
	case string:
		return norm.NFC.String(val), nil
	case float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case []string:
		out := make([]string, len(val))
		for i, s := range val {
			out[i] = norm.NFC.String(s)
		}
		return out, nil
	case []interface{}:
		out := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: sequence element %d is %T, want string", ErrUnsupportedValue, i, item)
			}
			out[i] = norm.NFC.String(s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// Equal reports whether two normalised values are identical. Values of
// different kinds are never equal.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case float64:
		bv, ok := b.(float64)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case []string:
		bv, ok := b.([]string)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if av[i] != bv[i] {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

// Number returns v as a float64 when it is numeric.
func Number(v Value) (float64, bool) {
	f, ok := v.(float64)
	return f, ok
}

// Whole returns v when it is a finite whole number. The value stays a
// float64 so magnitudes beyond the int range keep their order.
func Whole(v Value) (float64, bool) {
	f, ok := v.(float64)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return f, true
}

// IsTrue reports whether v is the boolean true.
func IsTrue(v Value) bool {
	b, ok := v.(bool)
	return ok && b
}

func clone(v Value) Value {
	if seq, ok := v.([]string); ok {
		out := make([]string, len(seq))
		copy(out, seq)
		return out
	}
	return v
}
