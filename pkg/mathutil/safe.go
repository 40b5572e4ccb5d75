package mathutil

import (
	"errors"
	"math"
)

// ErrOverflow is returned when an arithmetic operation on base units would
// wrap around.
var ErrOverflow = errors.New("uint64 overflow")

// ErrUnderflow is returned when subtracting more than the available amount.
var ErrUnderflow = errors.New("uint64 underflow")

// SafeAdd returns a + b or ErrOverflow.
func SafeAdd(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}

// SafeSub returns a - b or ErrUnderflow.
func SafeSub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}
