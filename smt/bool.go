package smt

import "fmt"

type boolOp int

const (
	boolOpConst boolOp = iota
	boolOpVar
	boolOpAnd
	boolOpOr
	boolOpNot
	boolOpEq
	boolOpULT
	boolOpULE
	boolOpUGT
	boolOpUGE
	boolOpSLT
	boolOpSLE
	boolOpSGT
	boolOpSGE
)

// Bool is an immutable symbolic or concrete boolean term: either a free
// variable, a concrete truth value, a boolean combinator over other Bools,
// or a relational comparison over two BitVecs of equal width.
type Bool struct {
	op          boolOp
	value       bool
	name        string
	boolOps     []*Bool
	bvOps       []*BitVec // relational comparisons
	annotations Annotations
}

// Annotations returns the term's annotation set.
func (b *Bool) Annotations() Annotations { return b.annotations }

// WithAnnotations returns a copy of b carrying the given additional
// annotations unioned onto its existing set.
func (b *Bool) WithAnnotations(extra Annotations) *Bool {
	cp := *b
	cp.annotations = b.annotations.Union(extra)
	return &cp
}

// IsConcrete reports whether the term is a literal truth value.
func (b *Bool) IsConcrete() bool { return b.op == boolOpConst }

// Value returns the concrete truth value of the term; panics if not
// concrete.
func (b *Bool) Value() bool {
	if b.op != boolOpConst {
		panic("smt: Value called on non-concrete Bool")
	}
	return b.value
}

// BoolVal constructs a concrete boolean term.
func BoolVal(value bool, annotations ...Annotation) *Bool {
	return &Bool{op: boolOpConst, value: value, annotations: NewAnnotations(annotations...)}
}

// BoolSym constructs a free symbolic boolean variable.
func BoolSym(name string, annotations ...Annotation) *Bool {
	return &Bool{op: boolOpVar, name: name, annotations: NewAnnotations(annotations...)}
}

// AndBool returns the conjunction of the given boolean terms. With zero
// operands it returns the concrete truth value true (the empty conjunction).
func AndBool(terms ...*Bool) *Bool {
	if len(terms) == 0 {
		return BoolVal(true)
	}
	if len(terms) == 1 {
		return terms[0]
	}
	sets := make([]Annotations, len(terms))
	for i, t := range terms {
		sets[i] = t.annotations
	}
	n := &Bool{op: boolOpAnd, boolOps: terms, annotations: unionAll(sets...)}
	return simplifyBool(n)
}

// OrBool returns the disjunction of the given boolean terms.
func OrBool(terms ...*Bool) *Bool {
	if len(terms) == 0 {
		return BoolVal(false)
	}
	if len(terms) == 1 {
		return terms[0]
	}
	sets := make([]Annotations, len(terms))
	for i, t := range terms {
		sets[i] = t.annotations
	}
	n := &Bool{op: boolOpOr, boolOps: terms, annotations: unionAll(sets...)}
	return simplifyBool(n)
}

// NotBool returns the negation of a.
func NotBool(a *Bool) *Bool {
	n := &Bool{op: boolOpNot, boolOps: []*Bool{a}, annotations: a.annotations}
	return simplifyBool(n)
}

func cmpOp(op boolOp, name string, a, b *BitVec) *Bool {
	checkWidth(name, a.width, b.width)
	n := &Bool{op: op, bvOps: []*BitVec{a, b}, annotations: a.annotations.Union(b.annotations)}
	return simplifyBool(n)
}

// Eq returns a Bool that holds iff a and b denote the same bit-vector
// value. Note this is semantic equality of the produced term's meaning, not
// BitVec.Eq's structural comparison.
func Eq(a, b *BitVec) *Bool { return cmpOp(boolOpEq, "Eq", a, b) }

// ULT returns a <u b (unsigned less-than).
func ULT(a, b *BitVec) *Bool { return cmpOp(boolOpULT, "ULT", a, b) }

// ULE returns a <=u b.
func ULE(a, b *BitVec) *Bool { return cmpOp(boolOpULE, "ULE", a, b) }

// UGT returns a >u b.
func UGT(a, b *BitVec) *Bool { return cmpOp(boolOpUGT, "UGT", a, b) }

// UGE returns a >=u b.
func UGE(a, b *BitVec) *Bool { return cmpOp(boolOpUGE, "UGE", a, b) }

// SLT returns a <s b (signed less-than).
func SLT(a, b *BitVec) *Bool { return cmpOp(boolOpSLT, "SLT", a, b) }

// SLE returns a <=s b.
func SLE(a, b *BitVec) *Bool { return cmpOp(boolOpSLE, "SLE", a, b) }

// SGT returns a >s b.
func SGT(a, b *BitVec) *Bool { return cmpOp(boolOpSGT, "SGT", a, b) }

// SGE returns a >=s b.
func SGE(a, b *BitVec) *Bool { return cmpOp(boolOpSGE, "SGE", a, b) }

// Eq reports structural (not semantic) equality between two Bool terms.
func (b *Bool) Eq(other *Bool) bool {
	return structuralEqualBool(b, other)
}

func structuralEqualBool(a, b *Bool) bool {
	if a == b {
		return true
	}
	if a.op != b.op {
		return false
	}
	switch a.op {
	case boolOpConst:
		return a.value == b.value
	case boolOpVar:
		return a.name == b.name
	case boolOpAnd, boolOpOr, boolOpNot:
		if len(a.boolOps) != len(b.boolOps) {
			return false
		}
		for i := range a.boolOps {
			if !structuralEqualBool(a.boolOps[i], b.boolOps[i]) {
				return false
			}
		}
		return true
	default:
		return structuralEqualBV(a.bvOps[0], b.bvOps[0]) && structuralEqualBV(a.bvOps[1], b.bvOps[1])
	}
}

// String renders a term as an s-expression-like debug string.
func (b *Bool) String() string {
	switch b.op {
	case boolOpConst:
		return fmt.Sprintf("%t", b.value)
	case boolOpVar:
		return b.name
	case boolOpAnd, boolOpOr, boolOpNot:
		out := "(" + boolOpName(b.op)
		for _, o := range b.boolOps {
			out += " " + o.String()
		}
		return out + ")"
	default:
		return fmt.Sprintf("(%s %s %s)", boolOpName(b.op), b.bvOps[0].String(), b.bvOps[1].String())
	}
}

func boolOpName(op boolOp) string {
	switch op {
	case boolOpAnd:
		return "and"
	case boolOpOr:
		return "or"
	case boolOpNot:
		return "not"
	case boolOpEq:
		return "="
	case boolOpULT:
		return "bvult"
	case boolOpULE:
		return "bvule"
	case boolOpUGT:
		return "bvugt"
	case boolOpUGE:
		return "bvuge"
	case boolOpSLT:
		return "bvslt"
	case boolOpSLE:
		return "bvsle"
	case boolOpSGT:
		return "bvsgt"
	case boolOpSGE:
		return "bvsge"
	default:
		return "?"
	}
}
