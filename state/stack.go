package state

import (
	"errors"

	"github.com/eth2030/laser/smt"
)

const stackLimit = 1024

// ErrStackOverflow and ErrStackUnderflow are terminal path errors: the
// owning machine state is dropped, never panicked, matching the teacher's
// sentinel-error convention in core/vm/interpreter.go.
var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

// Stack is the EVM operand stack generalized to symbolic 256-bit words,
// grounded on the teacher's core/vm/stack.go (same method names, *big.Int
// swapped for *smt.BitVec).
type Stack struct {
	data []*smt.BitVec
}

// NewStack returns a new empty stack.
func NewStack() *Stack {
	return &Stack{data: make([]*smt.BitVec, 0, 16)}
}

// Push pushes a term onto the stack.
func (st *Stack) Push(val *smt.BitVec) error {
	if len(st.data) >= stackLimit {
		return ErrStackOverflow
	}
	st.data = append(st.data, val)
	return nil
}

// Pop removes and returns the top element.
func (st *Stack) Pop() (*smt.BitVec, error) {
	if len(st.data) == 0 {
		return nil, ErrStackUnderflow
	}
	ret := st.data[len(st.data)-1]
	st.data = st.data[:len(st.data)-1]
	return ret, nil
}

// Peek returns the top element without removing it.
func (st *Stack) Peek() (*smt.BitVec, error) {
	return st.Back(0)
}

// Back returns the nth element from the top (0-indexed: 0 = top).
func (st *Stack) Back(n int) (*smt.BitVec, error) {
	if n >= len(st.data) {
		return nil, ErrStackUnderflow
	}
	return st.data[len(st.data)-1-n], nil
}

// Swap swaps the top element with the nth element from the top.
func (st *Stack) Swap(n int) error {
	if n >= len(st.data) {
		return ErrStackUnderflow
	}
	top := len(st.data) - 1
	st.data[top], st.data[top-n] = st.data[top-n], st.data[top]
	return nil
}

// Dup duplicates the nth element from the top (1-indexed, matching DUPn)
// and pushes it. Terms are immutable, so duplication is a plain pointer
// copy -- no deep copy is needed the way the teacher's *big.Int variant
// requires.
func (st *Stack) Dup(n int) error {
	if n > len(st.data) {
		return ErrStackUnderflow
	}
	val := st.data[len(st.data)-n]
	return st.Push(val)
}

// Len returns the number of items on the stack.
func (st *Stack) Len() int { return len(st.data) }

// Data returns the underlying stack slice (bottom to top). Callers must
// not mutate it.
func (st *Stack) Data() []*smt.BitVec { return st.data }

// Clone returns a stack with an independent backing slice; the terms
// themselves are immutable and safe to share.
func (st *Stack) Clone() *Stack {
	data := make([]*smt.BitVec, len(st.data))
	copy(data, st.data)
	return &Stack{data: data}
}
