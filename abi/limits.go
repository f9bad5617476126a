package abi

import "math"

// Safety limits applied to every descriptor read from a result.
const (
	MaxElements    = 1 << 16 // records per array
	MaxBufferBytes = 1 << 28 // bytes per byte buffer (256 MB)
)

// SafeMulU32 multiplies without wrapping.
func SafeMulU32(a, b uint32) (uint32, bool) {
	if b != 0 && a > math.MaxUint32/b {
		return 0, false
	}
	return a * b, true
}

// SafeAddU32 adds without wrapping.
func SafeAddU32(a, b uint32) (uint32, bool) {
	if a > math.MaxUint32-b {
		return 0, false
	}
	return a + b, true
}
