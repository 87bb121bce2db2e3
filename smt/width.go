package smt

import "fmt"

// WidthMismatchError is raised when an operator is applied to operands of
// inconsistent bit-vector widths. Per the layer's invariant this is a
// programming error, not a run-time path: callers are expected to let it
// propagate and abort the run rather than recover from it mid-state.
type WidthMismatchError struct {
	Op       string
	Expected uint
	Got      uint
}

func (e *WidthMismatchError) Error() string {
	return fmt.Sprintf("smt: %s: width mismatch: expected %d, got %d", e.Op, e.Expected, e.Got)
}

func checkWidth(op string, expected, got uint) {
	if expected != got {
		panic(&WidthMismatchError{Op: op, Expected: expected, Got: got})
	}
}
