package utils

import (
	"fmt"
	"math"
)

// CheckNonNegative validates a size/length/position field read back off
// disk is representable as a non-negative signed 64-bit value.
func CheckNonNegative(field string, v int64) error {
	if v < 0 {
		return fmt.Errorf("%s: expected non-negative value, got %d", field, v)
	}
	return nil
}

// CheckUint64FitsInt64 validates that an unsigned 64-bit value can be
// stored losslessly in the signed 64-bit value field of a Slot.
func CheckUint64FitsInt64(v uint64) error {
	if v > math.MaxInt64 {
		return fmt.Errorf("value %d does not fit in a 64-bit slot", v)
	}
	return nil
}

// CheckAddOverflow returns an error if a+b would overflow an int64,
// used when computing new end-of-file offsets.
func CheckAddOverflow(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, fmt.Errorf("cannot add negative offsets: %d + %d", a, b)
	}
	if a > math.MaxInt64-b {
		return 0, fmt.Errorf("offset overflow: %d + %d exceeds int64 max", a, b)
	}
	return a + b, nil
}
