// Package sizing provides overflow-checked size arithmetic for container
// offsets, declared entry sizes, and index lengths.
package sizing

import "math"

// ToUint32 converts an int to uint32, returning overflowErr if it doesn't
// fit. Declared entry sizes and index lengths are 32-bit on disk.
func ToUint32(size int, overflowErr error) (uint32, error) {
	if size < 0 || size > math.MaxUint32 {
		return 0, overflowErr
	}
	return uint32(size), nil
}

// AddUint64 adds two uint64 values, returning (result, false) on overflow.
func AddUint64(a, b uint64) (uint64, bool) {
	sum := a + b
	if sum < a {
		return 0, false
	}
	return sum, true
}
