package smt

// Assignment is a concrete valuation for free variables, the shape a solver
// backend hands back as a satisfying model and the term layer consumes to
// evaluate a constraint set under that model.
type Assignment struct {
	BitVecs map[string]*BitVec // must be concrete
	Bools   map[string]*Bool   // must be concrete
}

// NewAssignment returns an empty Assignment.
func NewAssignment() *Assignment {
	return &Assignment{BitVecs: map[string]*BitVec{}, Bools: map[string]*Bool{}}
}

// SubstituteBitVec replaces every free variable leaf in b with its value
// under a, re-simplifying bottom-up. Variables absent from a are left as
// free variables.
func SubstituteBitVec(b *BitVec, a *Assignment) *BitVec {
	switch b.op {
	case bvOpConst:
		return b
	case bvOpVar:
		if v, ok := a.BitVecs[b.name]; ok {
			return v
		}
		return b
	case bvOpSelect:
		key := SubstituteBitVec(b.ops[0], a)
		arr := substituteArray(b.arr, a)
		return arr.Select(key)
	case bvOpExtract:
		return Extract(b.hi, b.lo, SubstituteBitVec(b.ops[0], a))
	case bvOpZeroExt:
		return ZeroExt(b.extBits, SubstituteBitVec(b.ops[0], a))
	case bvOpSignExt:
		return SignExt(b.extBits, SubstituteBitVec(b.ops[0], a))
	case bvOpIte:
		return Ite(SubstituteBool(b.cond, a), SubstituteBitVec(b.ops[0], a), SubstituteBitVec(b.ops[1], a))
	case bvOpNot:
		return Not(SubstituteBitVec(b.ops[0], a))
	case bvOpNeg:
		return Neg(SubstituteBitVec(b.ops[0], a))
	case bvOpConcat:
		return Concat(SubstituteBitVec(b.ops[0], a), SubstituteBitVec(b.ops[1], a))
	default:
		x := SubstituteBitVec(b.ops[0], a)
		y := SubstituteBitVec(b.ops[1], a)
		return binOp(b.op, bvOpName(b.op), x, y)
	}
}

func substituteArray(arr *Array, a *Assignment) *Array {
	switch arr.op {
	case arrayOpConst:
		return K(arr.domainWidth, SubstituteBitVec(arr.defaultVal, a))
	case arrayOpVar:
		return arr
	default:
		return substituteArray(arr.base, a).Store(SubstituteBitVec(arr.key, a), SubstituteBitVec(arr.val, a))
	}
}

// SubstituteBool is the Bool analogue of SubstituteBitVec.
func SubstituteBool(b *Bool, a *Assignment) *Bool {
	switch b.op {
	case boolOpConst:
		return b
	case boolOpVar:
		if v, ok := a.Bools[b.name]; ok {
			return v
		}
		return b
	case boolOpAnd:
		terms := make([]*Bool, len(b.boolOps))
		for i, t := range b.boolOps {
			terms[i] = SubstituteBool(t, a)
		}
		return AndBool(terms...)
	case boolOpOr:
		terms := make([]*Bool, len(b.boolOps))
		for i, t := range b.boolOps {
			terms[i] = SubstituteBool(t, a)
		}
		return OrBool(terms...)
	case boolOpNot:
		return NotBool(SubstituteBool(b.boolOps[0], a))
	default:
		x := SubstituteBitVec(b.bvOps[0], a)
		y := SubstituteBitVec(b.bvOps[1], a)
		return cmpOp(b.op, boolOpName(b.op), x, y)
	}
}

// FreeVars walks b and collects the names and widths of every free BitVec
// variable and the name of every free Bool variable it reaches.
func FreeVars(b *Bool) (bitvecs map[string]uint, bools map[string]bool) {
	bitvecs = map[string]uint{}
	bools = map[string]bool{}
	collectBoolVars(b, bitvecs, bools)
	return
}

func collectBoolVars(b *Bool, bitvecs map[string]uint, bools map[string]bool) {
	switch b.op {
	case boolOpVar:
		bools[b.name] = true
	case boolOpAnd, boolOpOr:
		for _, t := range b.boolOps {
			collectBoolVars(t, bitvecs, bools)
		}
	case boolOpNot:
		collectBoolVars(b.boolOps[0], bitvecs, bools)
	case boolOpConst:
	default:
		collectBitVecVars(b.bvOps[0], bitvecs)
		collectBitVecVars(b.bvOps[1], bitvecs)
	}
}

func collectBitVecVars(b *BitVec, out map[string]uint) {
	switch b.op {
	case bvOpConst:
		return
	case bvOpVar:
		out[b.name] = b.width
	case bvOpSelect:
		collectBitVecVars(b.ops[0], out)
		collectArrayVars(b.arr, out)
	case bvOpIte:
		collectBitVecVars(b.ops[0], out)
		collectBitVecVars(b.ops[1], out)
	default:
		for _, o := range b.ops {
			collectBitVecVars(o, out)
		}
	}
}

func collectArrayVars(arr *Array, out map[string]uint) {
	switch arr.op {
	case arrayOpConst:
		collectBitVecVars(arr.defaultVal, out)
	case arrayOpVar:
	default:
		collectArrayVars(arr.base, out)
		collectBitVecVars(arr.key, out)
		collectBitVecVars(arr.val, out)
	}
}
