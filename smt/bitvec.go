package smt

import (
	"fmt"

	"github.com/holiman/uint256"
)

// bvOp identifies the operator that produced a BitVec node. bvOpConst and
// bvOpVar are leaves; every other op carries its operands in BitVec.ops.
type bvOp int

const (
	bvOpConst bvOp = iota
	bvOpVar
	bvOpAdd
	bvOpSub
	bvOpMul
	bvOpUDiv
	bvOpSDiv
	bvOpURem
	bvOpSRem
	bvOpAnd
	bvOpOr
	bvOpXor
	bvOpNot
	bvOpNeg
	bvOpShl
	bvOpLShr
	bvOpAShr
	bvOpConcat
	bvOpExtract
	bvOpZeroExt
	bvOpSignExt
	bvOpIte
	bvOpSelect
)

// BitVec is an immutable symbolic or concrete bit-vector term of a fixed
// width. Two BitVecs compare structurally via Eq, not semantically; use
// smt/solver for semantic (satisfiability-based) comparisons.
type BitVec struct {
	width       uint
	op          bvOp
	ops         []*BitVec // operands for arithmetic/bitwise/concat/extract/ite
	value       *uint256.Int
	name        string
	hi, lo      uint     // bvOpExtract: bits [hi:lo], inclusive, 0-indexed from LSB
	extBits     uint     // bvOpZeroExt/bvOpSignExt: number of bits added
	cond        *Bool    // bvOpIte
	arr         *Array   // bvOpSelect: array being read
	annotations Annotations
}

// Width returns the bit-vector's width in bits.
func (b *BitVec) Width() uint { return b.width }

// Annotations returns the term's annotation set.
func (b *BitVec) Annotations() Annotations { return b.annotations }

// WithAnnotations returns a copy of b carrying the given additional
// annotations unioned onto its existing set.
func (b *BitVec) WithAnnotations(extra Annotations) *BitVec {
	cp := *b
	cp.annotations = b.annotations.Union(extra)
	return &cp
}

// IsConcrete reports whether the term is a literal value rather than a
// symbolic expression.
func (b *BitVec) IsConcrete() bool { return b.op == bvOpConst }

// Value returns the concrete value of the term. It panics if the term is
// not concrete; callers should check IsConcrete first.
func (b *BitVec) Value() *uint256.Int {
	if b.op != bvOpConst {
		panic("smt: Value called on non-concrete BitVec")
	}
	return b.value.Clone()
}

// Name returns the symbol name of a free variable term, or "" otherwise.
func (b *BitVec) Name() string {
	if b.op == bvOpVar {
		return b.name
	}
	return ""
}

// BitVecVal constructs a concrete bit-vector of the given width.
func BitVecVal(value *uint256.Int, width uint, annotations ...Annotation) *BitVec {
	v := value.Clone()
	maskTo(v, width)
	return &BitVec{op: bvOpConst, width: width, value: v, annotations: NewAnnotations(annotations...)}
}

// BitVecValUint64 is a convenience constructor for small concrete values.
func BitVecValUint64(value uint64, width uint, annotations ...Annotation) *BitVec {
	return BitVecVal(new(uint256.Int).SetUint64(value), width, annotations...)
}

// BitVecSym constructs a free symbolic bit-vector variable of the given
// width and name. Distinct calls with the same name denote the same
// variable to the solver.
func BitVecSym(name string, width uint, annotations ...Annotation) *BitVec {
	return &BitVec{op: bvOpVar, width: width, name: name, annotations: NewAnnotations(annotations...)}
}

func maskTo(v *uint256.Int, width uint) {
	if width >= 256 {
		return
	}
	var mask uint256.Int
	mask.Lsh(uint256.NewInt(1), width)
	mask.SubUint64(&mask, 1)
	v.And(v, &mask)
}

func binOp(op bvOp, name string, a, b *BitVec) *BitVec {
	checkWidth(name, a.width, b.width)
	n := &BitVec{op: op, width: a.width, ops: []*BitVec{a, b}, annotations: a.annotations.Union(b.annotations)}
	return simplifyBitVec(n)
}

// Add returns a+b mod 2^width.
func Add(a, b *BitVec) *BitVec { return binOp(bvOpAdd, "Add", a, b) }

// Sub returns a-b mod 2^width.
func Sub(a, b *BitVec) *BitVec { return binOp(bvOpSub, "Sub", a, b) }

// Mul returns a*b mod 2^width.
func Mul(a, b *BitVec) *BitVec { return binOp(bvOpMul, "Mul", a, b) }

// UDiv returns the unsigned quotient of a/b.
func UDiv(a, b *BitVec) *BitVec { return binOp(bvOpUDiv, "UDiv", a, b) }

// SDiv returns the signed (two's-complement) quotient of a/b.
func SDiv(a, b *BitVec) *BitVec { return binOp(bvOpSDiv, "SDiv", a, b) }

// URem returns the unsigned remainder of a/b.
func URem(a, b *BitVec) *BitVec { return binOp(bvOpURem, "URem", a, b) }

// SRem returns the signed remainder of a/b.
func SRem(a, b *BitVec) *BitVec { return binOp(bvOpSRem, "SRem", a, b) }

// And returns the bitwise AND of a and b.
func And(a, b *BitVec) *BitVec { return binOp(bvOpAnd, "And", a, b) }

// Or returns the bitwise OR of a and b.
func Or(a, b *BitVec) *BitVec { return binOp(bvOpOr, "Or", a, b) }

// Xor returns the bitwise XOR of a and b.
func Xor(a, b *BitVec) *BitVec { return binOp(bvOpXor, "Xor", a, b) }

// Shl returns a shifted left by b bits.
func Shl(a, b *BitVec) *BitVec { return binOp(bvOpShl, "Shl", a, b) }

// LShr returns a shifted right by b bits, logically (zero-filled).
func LShr(a, b *BitVec) *BitVec { return binOp(bvOpLShr, "LShr", a, b) }

// AShr returns a shifted right by b bits, arithmetically (sign-extended).
func AShr(a, b *BitVec) *BitVec { return binOp(bvOpAShr, "AShr", a, b) }

// Not returns the bitwise complement of a.
func Not(a *BitVec) *BitVec {
	n := &BitVec{op: bvOpNot, width: a.width, ops: []*BitVec{a}, annotations: a.annotations}
	return simplifyBitVec(n)
}

// Neg returns the two's-complement negation of a.
func Neg(a *BitVec) *BitVec {
	n := &BitVec{op: bvOpNeg, width: a.width, ops: []*BitVec{a}, annotations: a.annotations}
	return simplifyBitVec(n)
}

// Concat returns the bit-vector formed by placing hi above lo: the result
// has width hi.Width()+lo.Width(), with hi occupying the most-significant
// bits.
func Concat(hi, lo *BitVec) *BitVec {
	n := &BitVec{
		op:          bvOpConcat,
		width:       hi.width + lo.width,
		ops:         []*BitVec{hi, lo},
		annotations: hi.annotations.Union(lo.annotations),
	}
	return simplifyBitVec(n)
}

// Extract returns bits [high:low] of a, inclusive, 0-indexed from the LSB.
// The result has width high-low+1.
func Extract(high, low uint, a *BitVec) *BitVec {
	if high >= a.width || low > high {
		panic(fmt.Sprintf("smt: Extract: out-of-range [%d:%d] of width %d", high, low, a.width))
	}
	n := &BitVec{op: bvOpExtract, width: high - low + 1, ops: []*BitVec{a}, hi: high, lo: low, annotations: a.annotations}
	return simplifyBitVec(n)
}

// ZeroExt extends a with extraBits zero bits in the most-significant
// position.
func ZeroExt(extraBits uint, a *BitVec) *BitVec {
	if extraBits == 0 {
		return a
	}
	n := &BitVec{op: bvOpZeroExt, width: a.width + extraBits, ops: []*BitVec{a}, extBits: extraBits, annotations: a.annotations}
	return simplifyBitVec(n)
}

// SignExt sign-extends a with extraBits bits in the most-significant
// position.
func SignExt(extraBits uint, a *BitVec) *BitVec {
	if extraBits == 0 {
		return a
	}
	n := &BitVec{op: bvOpSignExt, width: a.width + extraBits, ops: []*BitVec{a}, extBits: extraBits, annotations: a.annotations}
	return simplifyBitVec(n)
}

// Ite ("if-then-else") returns t if cond is true, e otherwise. t and e must
// share a width.
func Ite(cond *Bool, t, e *BitVec) *BitVec {
	checkWidth("Ite", t.width, e.width)
	n := &BitVec{
		op:          bvOpIte,
		width:       t.width,
		ops:         []*BitVec{t, e},
		cond:        cond,
		annotations: unionAll(cond.annotations, t.annotations, e.annotations),
	}
	return simplifyBitVec(n)
}

// Eq reports structural (not semantic) equality between two terms.
func (b *BitVec) Eq(other *BitVec) bool {
	return structuralEqualBV(b, other)
}

func structuralEqualBV(a, b *BitVec) bool {
	if a == b {
		return true
	}
	if a.width != b.width || a.op != b.op {
		return false
	}
	switch a.op {
	case bvOpConst:
		return a.value.Eq(b.value)
	case bvOpVar:
		return a.name == b.name
	case bvOpExtract:
		return a.hi == b.hi && a.lo == b.lo && structuralEqualBV(a.ops[0], b.ops[0])
	case bvOpZeroExt, bvOpSignExt:
		return a.extBits == b.extBits && structuralEqualBV(a.ops[0], b.ops[0])
	case bvOpSelect:
		return a.arr.Eq(b.arr) && structuralEqualBV(a.ops[0], b.ops[0])
	case bvOpIte:
		if !a.cond.Eq(b.cond) {
			return false
		}
		fallthrough
	default:
		if len(a.ops) != len(b.ops) {
			return false
		}
		for i := range a.ops {
			if !structuralEqualBV(a.ops[i], b.ops[i]) {
				return false
			}
		}
		return true
	}
}

// String renders a term as an s-expression-like debug string; it is not
// meant to be parsed back.
func (b *BitVec) String() string {
	switch b.op {
	case bvOpConst:
		return fmt.Sprintf("#x%s", b.value.Hex())
	case bvOpVar:
		return b.name
	case bvOpSelect:
		return fmt.Sprintf("(select %s %s)", b.arr.String(), b.ops[0].String())
	case bvOpExtract:
		return fmt.Sprintf("(extract[%d:%d] %s)", b.hi, b.lo, b.ops[0].String())
	case bvOpIte:
		return fmt.Sprintf("(ite %s %s %s)", b.cond.String(), b.ops[0].String(), b.ops[1].String())
	default:
		out := "(" + bvOpName(b.op)
		for _, o := range b.ops {
			out += " " + o.String()
		}
		return out + ")"
	}
}

func bvOpName(op bvOp) string {
	switch op {
	case bvOpAdd:
		return "bvadd"
	case bvOpSub:
		return "bvsub"
	case bvOpMul:
		return "bvmul"
	case bvOpUDiv:
		return "bvudiv"
	case bvOpSDiv:
		return "bvsdiv"
	case bvOpURem:
		return "bvurem"
	case bvOpSRem:
		return "bvsrem"
	case bvOpAnd:
		return "bvand"
	case bvOpOr:
		return "bvor"
	case bvOpXor:
		return "bvxor"
	case bvOpNot:
		return "bvnot"
	case bvOpNeg:
		return "bvneg"
	case bvOpShl:
		return "bvshl"
	case bvOpLShr:
		return "bvlshr"
	case bvOpAShr:
		return "bvashr"
	case bvOpConcat:
		return "concat"
	case bvOpZeroExt:
		return "zero_extend"
	case bvOpSignExt:
		return "sign_extend"
	default:
		return "?"
	}
}
