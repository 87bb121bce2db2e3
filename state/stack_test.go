package state

import (
	"testing"

	"github.com/eth2030/laser/smt"
)

func TestStackPushPop(t *testing.T) {
	st := NewStack()
	st.Push(smt.BitVecValUint64(42, 256))
	st.Push(smt.BitVecValUint64(99, 256))

	if st.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", st.Len())
	}

	val, err := st.Pop()
	if err != nil {
		t.Fatalf("Pop() error: %v", err)
	}
	if val.Value().Uint64() != 99 {
		t.Errorf("Pop() = %d, want 99", val.Value().Uint64())
	}

	val, err = st.Pop()
	if err != nil {
		t.Fatalf("Pop() error: %v", err)
	}
	if val.Value().Uint64() != 42 {
		t.Errorf("Pop() = %d, want 42", val.Value().Uint64())
	}

	if st.Len() != 0 {
		t.Errorf("Len() = %d, want 0", st.Len())
	}
}

func TestStackUnderflow(t *testing.T) {
	st := NewStack()
	if _, err := st.Pop(); err != ErrStackUnderflow {
		t.Errorf("Pop() on empty stack error = %v, want ErrStackUnderflow", err)
	}
}

func TestStackBack(t *testing.T) {
	st := NewStack()
	st.Push(smt.BitVecValUint64(1, 256))
	st.Push(smt.BitVecValUint64(2, 256))
	st.Push(smt.BitVecValUint64(3, 256))

	v, _ := st.Back(0)
	if v.Value().Uint64() != 3 {
		t.Errorf("Back(0) = %d, want 3", v.Value().Uint64())
	}
	v, _ = st.Back(2)
	if v.Value().Uint64() != 1 {
		t.Errorf("Back(2) = %d, want 1", v.Value().Uint64())
	}
}

func TestStackSwapDup(t *testing.T) {
	st := NewStack()
	st.Push(smt.BitVecValUint64(1, 256))
	st.Push(smt.BitVecValUint64(2, 256))

	if err := st.Swap(1); err != nil {
		t.Fatalf("Swap(1) error: %v", err)
	}
	v, _ := st.Peek()
	if v.Value().Uint64() != 1 {
		t.Errorf("after Swap(1), Peek() = %d, want 1", v.Value().Uint64())
	}

	if err := st.Dup(1); err != nil {
		t.Fatalf("Dup(1) error: %v", err)
	}
	if st.Len() != 3 {
		t.Fatalf("Len() after Dup = %d, want 3", st.Len())
	}
}

func TestStackCloneIndependence(t *testing.T) {
	st := NewStack()
	st.Push(smt.BitVecValUint64(1, 256))

	cp := st.Clone()
	cp.Push(smt.BitVecValUint64(2, 256))

	if st.Len() != 1 {
		t.Errorf("original Len() = %d after clone mutation, want 1", st.Len())
	}
	if cp.Len() != 2 {
		t.Errorf("clone Len() = %d, want 2", cp.Len())
	}
}
