package utils

import (
	"fmt"
	"math"
)

// ToString converts various types to string.
func ToString(val any) string {
	switch v := val.(type) {
	case nil:
		return "<nil>"
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Increment adds step to an integer value and returns the result with the
// same dynamic type as val. It fails for non-integer values and on overflow.
func Increment(val any, step int64) (any, error) {
	switch v := val.(type) {
	case int:
		if !addFits(int64(v), step, math.MinInt, math.MaxInt) {
			return nil, overflow(val, step)
		}
		return v + int(step), nil
	case int64:
		if !addFits(v, step, math.MinInt64, math.MaxInt64) {
			return nil, overflow(val, step)
		}
		return v + step, nil
	case int32:
		if !addFits(int64(v), step, math.MinInt32, math.MaxInt32) {
			return nil, overflow(val, step)
		}
		return v + int32(step), nil
	case int16:
		if !addFits(int64(v), step, math.MinInt16, math.MaxInt16) {
			return nil, overflow(val, step)
		}
		return v + int16(step), nil
	case int8:
		if !addFits(int64(v), step, math.MinInt8, math.MaxInt8) {
			return nil, overflow(val, step)
		}
		return v + int8(step), nil
	case uint:
		if step < 0 || uint64(v) > math.MaxUint-uint64(step) {
			return nil, overflow(val, step)
		}
		return v + uint(step), nil
	case uint64:
		if step < 0 || v > math.MaxUint64-uint64(step) {
			return nil, overflow(val, step)
		}
		return v + uint64(step), nil
	case uint32:
		if step < 0 || uint64(v)+uint64(step) > math.MaxUint32 {
			return nil, overflow(val, step)
		}
		return v + uint32(step), nil
	case uint16:
		if step < 0 || uint64(v)+uint64(step) > math.MaxUint16 {
			return nil, overflow(val, step)
		}
		return v + uint16(step), nil
	case uint8:
		if step < 0 || uint64(v)+uint64(step) > math.MaxUint8 {
			return nil, overflow(val, step)
		}
		return v + uint8(step), nil
	default:
		return nil, fmt.Errorf("cannot increment %T", val)
	}
}

func addFits(v, step, lo, hi int64) bool {
	if step > 0 {
		return v <= hi-step
	}
	return v >= lo-step
}

func overflow(val any, step int64) error {
	return fmt.Errorf("%v + %d overflows %T", val, step, val)
}
