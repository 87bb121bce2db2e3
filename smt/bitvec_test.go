package smt

import (
	"testing"

	"github.com/holiman/uint256"
)

func TestBitVecValConcreteArithmetic(t *testing.T) {
	tests := []struct {
		name string
		a, b uint64
		op   func(a, b *BitVec) *BitVec
		want uint64
	}{
		{"Add", 2, 3, Add, 5},
		{"Sub", 10, 4, Sub, 6},
		{"Mul", 6, 7, Mul, 42},
		{"UDiv", 10, 3, UDiv, 3},
		{"UDivByZero", 10, 0, UDiv, 0},
		{"URem", 10, 3, URem, 1},
		{"And", 0b1100, 0b1010, And, 0b1000},
		{"Or", 0b1100, 0b1010, Or, 0b1110},
		{"Xor", 0b1100, 0b1010, Xor, 0b0110},
		{"Shl", 1, 4, Shl, 16},
		{"LShr", 16, 4, LShr, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := BitVecValUint64(tt.a, 256)
			b := BitVecValUint64(tt.b, 256)
			got := tt.op(a, b)
			if !got.IsConcrete() {
				t.Fatalf("result is not concrete: %s", got)
			}
			want := new(uint256.Int).SetUint64(tt.want)
			if !got.Value().Eq(want) {
				t.Errorf("%s(%d, %d) = %s, want %d", tt.name, tt.a, tt.b, got.Value().Hex(), tt.want)
			}
		})
	}
}

func TestAlgebraicIdentities(t *testing.T) {
	x := BitVecSym("x", 256)
	zero := BitVecValUint64(0, 256)
	one := BitVecValUint64(1, 256)

	if got := Add(x, zero); !got.Eq(x) {
		t.Errorf("Add(x, 0) = %s, want x", got)
	}
	if got := Mul(x, one); !got.Eq(x) {
		t.Errorf("Mul(x, 1) = %s, want x", got)
	}
	if got := Mul(x, zero); !got.Eq(zero) {
		t.Errorf("Mul(x, 0) = %s, want 0", got)
	}
	if got := Xor(x, x); !got.Eq(zero) {
		t.Errorf("Xor(x, x) = %s, want 0", got)
	}
	if got := Sub(x, x); !got.Eq(zero) {
		t.Errorf("Sub(x, x) = %s, want 0", got)
	}
}

func TestWidthMismatchPanics(t *testing.T) {
	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected panic on width mismatch")
		}
		if _, ok := r.(*WidthMismatchError); !ok {
			t.Fatalf("expected *WidthMismatchError, got %T", r)
		}
	}()
	a := BitVecSym("a", 256)
	b := BitVecSym("b", 8)
	Add(a, b)
}

func TestExtractConcat(t *testing.T) {
	v := BitVecValUint64(0x1122, 32)
	lo := Extract(15, 0, v)
	if lo.Width() != 16 {
		t.Fatalf("Extract width = %d, want 16", lo.Width())
	}
	if lo.Value().Uint64() != 0x1122 {
		t.Errorf("Extract(15,0, 0x1122) = %#x, want 0x1122", lo.Value().Uint64())
	}

	hi := BitVecValUint64(0xAB, 8)
	loHalf := BitVecValUint64(0xCD, 8)
	cat := Concat(hi, loHalf)
	if cat.Width() != 16 {
		t.Fatalf("Concat width = %d, want 16", cat.Width())
	}
	if cat.Value().Uint64() != 0xABCD {
		t.Errorf("Concat(0xAB, 0xCD) = %#x, want 0xABCD", cat.Value().Uint64())
	}
}

func TestSignExtend(t *testing.T) {
	// 0x80 as an 8-bit value is -128 signed; sign-extended to 16 bits it's
	// 0xFF80.
	v := BitVecValUint64(0x80, 8)
	ext := SignExt(8, v)
	if ext.Value().Uint64() != 0xFF80 {
		t.Errorf("SignExt(8, 0x80) = %#x, want 0xff80", ext.Value().Uint64())
	}

	pos := BitVecValUint64(0x7F, 8)
	extPos := SignExt(8, pos)
	if extPos.Value().Uint64() != 0x7F {
		t.Errorf("SignExt(8, 0x7f) = %#x, want 0x7f", extPos.Value().Uint64())
	}
}

func TestAnnotationsUnionOnBinaryOp(t *testing.T) {
	type taint string
	x := BitVecSym("x", 256, taint("caller"))
	y := BitVecSym("y", 256, taint("value"))
	sum := Add(x, y)
	if !sum.Annotations().Has(taint("caller")) || !sum.Annotations().Has(taint("value")) {
		t.Errorf("Add(x, y).Annotations() = %v, want union of both operands", sum.Annotations())
	}
}

func TestIte(t *testing.T) {
	cond := BoolVal(true)
	t1 := BitVecValUint64(1, 256)
	e1 := BitVecValUint64(2, 256)
	if got := Ite(cond, t1, e1); !got.Eq(t1) {
		t.Errorf("Ite(true, 1, 2) = %s, want 1", got)
	}
	if got := Ite(BoolVal(false), t1, e1); !got.Eq(e1) {
		t.Errorf("Ite(false, 1, 2) = %s, want 2", got)
	}
}
