package smt

import "github.com/holiman/uint256"

// AsAnd returns the conjuncts of b if it is an And term, or ok=false
// otherwise. Used by solver backends that want to flatten a constraint set
// before reasoning about it structurally.
func AsAnd(b *Bool) ([]*Bool, bool) {
	if b.op == boolOpAnd {
		return b.boolOps, true
	}
	return nil, false
}

// SimpleBound recognizes a single `variable OP constant` (or the mirrored
// `constant OP variable`) comparison and returns the unsigned [lo, hi]
// bound it implies on the variable. ok is false for anything else
// (comparisons between two variables, signed comparisons, boolean
// combinators, disequalities) -- callers fall back to substitution-based
// checking for those.
func SimpleBound(t *Bool) (name string, width uint, lo, hi *uint256.Int, ok bool) {
	switch t.op {
	case boolOpEq, boolOpULT, boolOpULE, boolOpUGT, boolOpUGE:
	default:
		return "", 0, nil, nil, false
	}
	a, b := t.bvOps[0], t.bvOps[1]

	var v *BitVec
	var c *uint256.Int
	varOnLeft := false
	switch {
	case a.op == bvOpVar && b.IsConcrete():
		v, c, varOnLeft = a, b.value, true
	case b.op == bvOpVar && a.IsConcrete():
		v, c, varOnLeft = b, a.value, false
	default:
		return "", 0, nil, nil, false
	}

	one := uint256.NewInt(1)
	switch t.op {
	case boolOpEq:
		return v.name, v.width, c.Clone(), c.Clone(), true
	case boolOpULT:
		if varOnLeft {
			return v.name, v.width, nil, subClamped(c, one), true
		}
		return v.name, v.width, addClamped(c, one), nil, true
	case boolOpULE:
		if varOnLeft {
			return v.name, v.width, nil, c.Clone(), true
		}
		return v.name, v.width, c.Clone(), nil, true
	case boolOpUGT:
		if varOnLeft {
			return v.name, v.width, addClamped(c, one), nil, true
		}
		return v.name, v.width, nil, subClamped(c, one), true
	case boolOpUGE:
		if varOnLeft {
			return v.name, v.width, c.Clone(), nil, true
		}
		return v.name, v.width, nil, c.Clone(), true
	}
	return "", 0, nil, nil, false
}

// AsBoolVarLiteral returns the variable name if b is exactly a free Bool
// variable (a bare positive literal).
func AsBoolVarLiteral(b *Bool) (string, bool) {
	if b.op == boolOpVar {
		return b.name, true
	}
	return "", false
}

// AsNegatedBoolVarLiteral returns the variable name if b is exactly the
// negation of a free Bool variable.
func AsNegatedBoolVarLiteral(b *Bool) (string, bool) {
	if b.op == boolOpNot && b.boolOps[0].op == boolOpVar {
		return b.boolOps[0].name, true
	}
	return "", false
}

func addClamped(a, b *uint256.Int) *uint256.Int {
	v := new(uint256.Int).Add(a, b)
	if v.Lt(a) {
		return new(uint256.Int).SetAllOne()
	}
	return v
}

func subClamped(a, b *uint256.Int) *uint256.Int {
	if a.Lt(b) {
		return new(uint256.Int)
	}
	return new(uint256.Int).Sub(a, b)
}
