package smt

import "github.com/holiman/uint256"

// Simplify returns a logically equivalent but structurally reduced term. It
// is idempotent but not required to be canonical: every constructor already
// calls the matching simplify* helper, so Simplify on an already-built term
// is normally a no-op that returns the same pointer.
func Simplify(b *BitVec) *BitVec { return simplifyBitVec(b) }

// SimplifyBool is the Bool analogue of Simplify.
func SimplifyBool(b *Bool) *Bool { return simplifyBool(b) }

func allOnes(width uint) *uint256.Int {
	v := new(uint256.Int).SetAllOne()
	maskTo(v, width)
	return v
}

// simplifyBitVec folds constant subtrees and applies a handful of algebraic
// identities on construction. It never looks at sibling states or needs the
// solver: this is purely structural reduction, matching the term layer's
// "simplify is idempotent but not canonical" contract.
func simplifyBitVec(b *BitVec) *BitVec {
	switch b.op {
	case bvOpConst, bvOpVar:
		return b

	case bvOpNot:
		x := b.ops[0]
		if x.op == bvOpNot {
			return x.ops[0]
		}
		if x.IsConcrete() {
			v := new(uint256.Int).Not(x.value)
			maskTo(v, b.width)
			return BitVecVal(v, b.width).WithAnnotations(b.annotations)
		}
		return b

	case bvOpNeg:
		x := b.ops[0]
		if x.op == bvOpNeg {
			return x.ops[0]
		}
		if x.IsConcrete() {
			v := new(uint256.Int).Neg(x.value)
			maskTo(v, b.width)
			return BitVecVal(v, b.width).WithAnnotations(b.annotations)
		}
		return b

	case bvOpExtract:
		x := b.ops[0]
		if b.lo == 0 && b.hi == x.width-1 {
			return x
		}
		if x.IsConcrete() {
			v := new(uint256.Int).Rsh(x.value, b.lo)
			maskTo(v, b.width)
			return BitVecVal(v, b.width).WithAnnotations(b.annotations)
		}
		return b

	case bvOpZeroExt:
		x := b.ops[0]
		if x.IsConcrete() {
			return BitVecVal(x.value.Clone(), b.width).WithAnnotations(b.annotations)
		}
		return b

	case bvOpSignExt:
		x := b.ops[0]
		if x.IsConcrete() {
			v := x.value.Clone()
			signBit := x.width - 1
			if bitSet(v, signBit) {
				mask := allOnes(b.width)
				var lowMask uint256.Int
				lowMask.Lsh(uint256.NewInt(1), x.width)
				lowMask.SubUint64(&lowMask, 1)
				mask.Xor(mask, &lowMask)
				v.Or(v, mask)
			}
			maskTo(v, b.width)
			return BitVecVal(v, b.width).WithAnnotations(b.annotations)
		}
		return b

	case bvOpSelect:
		return simplifySelect(b)

	case bvOpIte:
		if b.cond.IsConcrete() {
			if b.cond.Value() {
				return b.ops[0]
			}
			return b.ops[1]
		}
		return b

	case bvOpConcat:
		hi, lo := b.ops[0], b.ops[1]
		if hi.IsConcrete() && lo.IsConcrete() {
			v := new(uint256.Int).Lsh(hi.value, lo.width)
			v.Or(v, lo.value)
			maskTo(v, b.width)
			return BitVecVal(v, b.width).WithAnnotations(b.annotations)
		}
		return b
	}

	// Binary arithmetic/bitwise/shift ops.
	a, c := b.ops[0], b.ops[1]
	if a.IsConcrete() && c.IsConcrete() {
		if v, ok := foldConstBinOp(b.op, a.value, c.value, b.width); ok {
			return BitVecVal(v, b.width).WithAnnotations(b.annotations)
		}
	}
	if reduced := algebraicIdentity(b.op, a, c, b.width); reduced != nil {
		return reduced.WithAnnotations(b.annotations)
	}
	return b
}

func bitSet(v *uint256.Int, bit uint) bool {
	shifted := new(uint256.Int).Rsh(v, bit)
	return shifted.Uint64()&1 == 1
}

func foldConstBinOp(op bvOp, a, c *uint256.Int, width uint) (*uint256.Int, bool) {
	v := new(uint256.Int)
	switch op {
	case bvOpAdd:
		v.Add(a, c)
	case bvOpSub:
		v.Sub(a, c)
	case bvOpMul:
		v.Mul(a, c)
	case bvOpUDiv:
		if c.IsZero() {
			v.Clear()
		} else {
			v.Div(a, c)
		}
	case bvOpSDiv:
		if c.IsZero() {
			v.Clear()
		} else {
			v.SDiv(a, c)
		}
	case bvOpURem:
		if c.IsZero() {
			v.Clear()
		} else {
			v.Mod(a, c)
		}
	case bvOpSRem:
		if c.IsZero() {
			v.Clear()
		} else {
			v.SMod(a, c)
		}
	case bvOpAnd:
		v.And(a, c)
	case bvOpOr:
		v.Or(a, c)
	case bvOpXor:
		v.Xor(a, c)
	case bvOpShl:
		if c.Gt(uint256.NewInt(255)) {
			v.Clear()
		} else {
			v.Lsh(a, uint(c.Uint64()))
		}
	case bvOpLShr:
		if c.Gt(uint256.NewInt(255)) {
			v.Clear()
		} else {
			v.Rsh(a, uint(c.Uint64()))
		}
	case bvOpAShr:
		if c.Gt(uint256.NewInt(255)) {
			if bitSet(a, width-1) {
				v.SetAllOne()
			} else {
				v.Clear()
			}
		} else {
			v.SRsh(a, uint(c.Uint64()))
		}
	default:
		return nil, false
	}
	maskTo(v, width)
	return v, true
}

// algebraicIdentity applies a handful of well-known simplification rules for
// operand patterns other than const-const, returning nil when no rule fires.
func algebraicIdentity(op bvOp, a, c *BitVec, width uint) *BitVec {
	zero := func() bool { return a.IsConcrete() && a.value.IsZero() }
	cZero := func() bool { return c.IsConcrete() && c.value.IsZero() }
	cOne := func() bool { return c.IsConcrete() && c.value.IsUint64() && c.value.Uint64() == 1 }
	aOne := func() bool { return a.IsConcrete() && a.value.IsUint64() && a.value.Uint64() == 1 }
	allOne := func(t *BitVec) bool { return t.IsConcrete() && t.value.Eq(allOnes(width)) }

	switch op {
	case bvOpAdd:
		if zero() {
			return c
		}
		if cZero() {
			return a
		}
	case bvOpSub:
		if cZero() {
			return a
		}
		if structuralEqualBV(a, c) {
			return BitVecVal(new(uint256.Int), width)
		}
	case bvOpMul:
		if zero() || cZero() {
			return BitVecVal(new(uint256.Int), width)
		}
		if aOne() {
			return c
		}
		if cOne() {
			return a
		}
	case bvOpUDiv, bvOpSDiv:
		if cOne() {
			return a
		}
	case bvOpAnd:
		if zero() || cZero() {
			return BitVecVal(new(uint256.Int), width)
		}
		if allOne(a) {
			return c
		}
		if allOne(c) {
			return a
		}
		if structuralEqualBV(a, c) {
			return a
		}
	case bvOpOr:
		if zero() {
			return c
		}
		if cZero() {
			return a
		}
		if allOne(a) || allOne(c) {
			return BitVecVal(allOnes(width), width)
		}
		if structuralEqualBV(a, c) {
			return a
		}
	case bvOpXor:
		if zero() {
			return c
		}
		if cZero() {
			return a
		}
		if structuralEqualBV(a, c) {
			return BitVecVal(new(uint256.Int), width)
		}
	case bvOpShl, bvOpLShr, bvOpAShr:
		if cZero() {
			return a
		}
	}
	return nil
}

// simplifySelect walks down the Store chain past every Store whose key
// provably differs, returns the stored value at the first Store whose key
// matches structurally, and resolves Select over a constant array outright. Neither
// rule requires the solver: both are structural, matching the layer's
// "equality on terms is structural" contract. A Select whose key may or may
// not alias an intervening Store's key (unresolvable structurally) is left
// as-is for the solver to reason about semantically.
func simplifySelect(b *BitVec) *BitVec {
	key := b.ops[0]
	arr := b.arr
	for arr.op == arrayOpStore {
		if structuralEqualBV(arr.key, key) {
			return arr.val.WithAnnotations(b.annotations)
		}
		if !keysMayAlias(arr.key, key) {
			arr = arr.base
			continue
		}
		break
	}
	if arr.op == arrayOpConst {
		return arr.defaultVal.WithAnnotations(b.annotations)
	}
	if arr == b.arr {
		return b
	}
	return arr.Select(key).WithAnnotations(b.annotations)
}

// keysMayAlias is a conservative structural check: two keys provably cannot
// alias only when both are concrete and unequal. Anything else (including
// two distinct symbolic keys) is treated as potentially aliasing, deferring
// the real answer to the solver.
func keysMayAlias(a, b *BitVec) bool {
	if a.IsConcrete() && b.IsConcrete() {
		return a.value.Eq(b.value)
	}
	return true
}

func simplifyBool(b *Bool) *Bool {
	switch b.op {
	case boolOpConst, boolOpVar:
		return b

	case boolOpNot:
		x := b.boolOps[0]
		if x.op == boolOpNot {
			return x.boolOps[0]
		}
		if x.IsConcrete() {
			return BoolVal(!x.Value()).WithAnnotations(b.annotations)
		}
		return b

	case boolOpAnd:
		return foldAndOr(b, true)

	case boolOpOr:
		return foldAndOr(b, false)
	}

	// Relational comparisons over two BitVecs.
	a, c := b.bvOps[0], b.bvOps[1]
	if a.IsConcrete() && c.IsConcrete() {
		return BoolVal(foldCmp(b.op, a.value, c.value, a.width)).WithAnnotations(b.annotations)
	}
	if b.op == boolOpEq && structuralEqualBV(a, c) {
		return BoolVal(true).WithAnnotations(b.annotations)
	}
	return b
}

// foldAndOr drops concrete identity/absorbing elements from a variadic
// And/Or term; identity is true for And, false for Or.
func foldAndOr(b *Bool, isAnd bool) *Bool {
	absorbing := !isAnd
	var kept []*Bool
	for _, t := range b.boolOps {
		if t.IsConcrete() {
			if t.Value() == absorbing {
				return BoolVal(absorbing).WithAnnotations(b.annotations)
			}
			continue // drop the identity element
		}
		kept = append(kept, t)
	}
	if len(kept) == 0 {
		return BoolVal(isAnd).WithAnnotations(b.annotations)
	}
	if len(kept) == 1 {
		return kept[0]
	}
	if len(kept) == len(b.boolOps) {
		return b
	}
	b2 := *b
	b2.boolOps = kept
	return &b2
}

func foldCmp(op boolOp, a, c *uint256.Int, width uint) bool {
	switch op {
	case boolOpEq:
		return a.Eq(c)
	case boolOpULT:
		return a.Lt(c)
	case boolOpULE:
		return a.Lt(c) || a.Eq(c)
	case boolOpUGT:
		return a.Gt(c)
	case boolOpUGE:
		return a.Gt(c) || a.Eq(c)
	case boolOpSLT:
		return a.Slt(c)
	case boolOpSLE:
		return a.Slt(c) || a.Eq(c)
	case boolOpSGT:
		return a.Sgt(c)
	case boolOpSGE:
		return a.Sgt(c) || a.Eq(c)
	}
	return false
}
