package solver

import (
	"github.com/eth2030/laser/smt"
	"github.com/holiman/uint256"
)

// Solver decides satisfiability of a conjunction of boolean terms and, on a
// SAT verdict, produces a witnessing Model. Constraints is built against
// this interface rather than a concrete backend so the engine can later be
// pointed at an external SMT process without touching callers.
type Solver interface {
	// Check reports whether the conjunction of terms is satisfiable. A nil
	// Model with ok==false means UNSAT; ok==true always comes with a
	// non-nil Model.
	Check(terms []*smt.Bool) (model *Model, ok bool, err error)
}

// IntervalSolver is the engine's built-in Solver: it propagates per-variable
// unsigned bounds from top-level conjuncts (And is flattened recursively;
// Or/Not stop propagation for their subtree and are instead checked by
// substitution once a witness is chosen) and proposes the lower bound of
// each variable's interval as its witness value. If that witness does not
// satisfy the full term set once substituted back in, it retries with one
// variable at a time flipped (a bit-vector to its upper bound, a bool to
// the opposite value), then with every variable flipped at once, and
// reports UNSAT if none of those candidates satisfies the terms.
//
// This is a from-scratch implementation: none of the example repos ship or
// import a usable Go SMT binding (the reference implementation calls out to
// z3 from Python), so there is no ecosystem library to wire here. Swapping
// in an external solver process later only requires a new Solver
// implementation, never a change to Constraints or its callers.
type IntervalSolver struct{}

type interval struct {
	lo, hi *uint256.Int
	width  uint
}

func fullInterval(width uint) interval {
	return interval{lo: new(uint256.Int), hi: allOnesMask(width), width: width}
}

func allOnesMask(width uint) *uint256.Int {
	v := new(uint256.Int).SetAllOne()
	if width >= 256 {
		return v
	}
	var mask uint256.Int
	mask.Lsh(uint256.NewInt(1), width)
	mask.SubUint64(&mask, 1)
	v.And(v, &mask)
	return v
}

func (IntervalSolver) Check(terms []*smt.Bool) (*Model, bool, error) {
	conj := flattenAnd(terms)

	bvWidths, _ := smt.FreeVars(smt.AndBool(conj...))
	intervals := make(map[string]interval, len(bvWidths))
	for name, width := range bvWidths {
		intervals[name] = fullInterval(width)
	}

	for _, t := range conj {
		if t.IsConcrete() {
			if !t.Value() {
				return nil, false, nil
			}
			continue
		}
		narrowFromLiteral(t, intervals)
	}
	for _, iv := range intervals {
		if iv.lo.Gt(iv.hi) {
			return nil, false, nil
		}
	}

	boolDefaults := boolLiteralDefaults(conj)

	tryModel := func(flipBV, flipBool map[string]bool) (*Model, bool) {
		m := NewModel()
		for name, iv := range intervals {
			if flipBV[name] {
				m.BitVecs[name] = iv.hi.Clone()
			} else {
				m.BitVecs[name] = iv.lo.Clone()
			}
		}
		for name, def := range boolDefaults {
			if flipBool[name] {
				m.Bools[name] = !def
			} else {
				m.Bools[name] = def
			}
		}
		if satisfiesAll(conj, m, bvWidths) {
			return m, true
		}
		return nil, false
	}

	if m, ok := tryModel(nil, nil); ok {
		return m, true, nil
	}
	// Retry flipping each variable's witness (bit-vector to its interval's
	// upper bound, bool to the opposite of its guessed default), one at a
	// time, then all at once: enough to resolve simple asymmetric literals
	// without a full backtracking search.
	bvNames := make([]string, 0, len(intervals))
	for name := range intervals {
		bvNames = append(bvNames, name)
	}
	boolNames := make([]string, 0, len(boolDefaults))
	for name := range boolDefaults {
		boolNames = append(boolNames, name)
	}
	for _, name := range bvNames {
		if m, ok := tryModel(map[string]bool{name: true}, nil); ok {
			return m, true, nil
		}
	}
	for _, name := range boolNames {
		if m, ok := tryModel(nil, map[string]bool{name: true}); ok {
			return m, true, nil
		}
	}
	allBV := make(map[string]bool, len(bvNames))
	for _, name := range bvNames {
		allBV[name] = true
	}
	allBool := make(map[string]bool, len(boolNames))
	for _, name := range boolNames {
		allBool[name] = true
	}
	if m, ok := tryModel(allBV, allBool); ok {
		return m, true, nil
	}
	return nil, false, nil
}

func flattenAnd(terms []*smt.Bool) []*smt.Bool {
	var out []*smt.Bool
	var walk func(*smt.Bool)
	walk = func(b *smt.Bool) {
		if flat, ok := smt.AsAnd(b); ok {
			for _, t := range flat {
				walk(t)
			}
			return
		}
		out = append(out, b)
	}
	for _, t := range terms {
		walk(t)
	}
	return out
}

// boolLiteralDefaults scans the conjunction for bare-variable and
// negated-variable literals to seed a starting guess, defaulting any bool
// variable seen only inside a larger expression (e.g. nested under Or) to
// true.
func boolLiteralDefaults(conj []*smt.Bool) map[string]bool {
	out := map[string]bool{}
	for _, t := range conj {
		_, bools := smt.FreeVars(t)
		for k := range bools {
			if _, known := out[k]; !known {
				out[k] = true
			}
		}
	}
	for _, t := range conj {
		if name, ok := smt.AsBoolVarLiteral(t); ok {
			out[name] = true
		} else if name, ok := smt.AsNegatedBoolVarLiteral(t); ok {
			out[name] = false
		}
	}
	return out
}

// narrowFromLiteral tightens the interval of a single variable if t is a
// simple `var OP const` or `const OP var` comparison. Anything more complex
// is left alone; satisfiesAll still checks it against the final witness.
func narrowFromLiteral(t *smt.Bool, intervals map[string]interval) {
	name, width, boundLo, boundHi, ok := smt.SimpleBound(t)
	if !ok {
		return
	}
	iv, known := intervals[name]
	if !known {
		iv = fullInterval(width)
	}
	if boundLo != nil && boundLo.Gt(iv.lo) {
		iv.lo = boundLo
	}
	if boundHi != nil && boundHi.Lt(iv.hi) {
		iv.hi = boundHi
	}
	intervals[name] = iv
}

func satisfiesAll(conj []*smt.Bool, m *Model, widths map[string]uint) bool {
	a := m.Assignment(widths)
	for _, t := range conj {
		v := smt.SubstituteBool(t, a)
		if !v.IsConcrete() || !v.Value() {
			return false
		}
	}
	return true
}
