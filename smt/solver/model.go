// Package solver delegates satisfiability queries over smt terms to a
// pluggable backend, caches verdicts keyed by the constraint-set hash, and
// implements the independence optimizer that partitions a constraint set
// into variable-disjoint components before solving.
package solver

import (
	"github.com/eth2030/laser/smt"
	"github.com/holiman/uint256"
)

// Model is a satisfying assignment for a constraint set, returned by
// Solver.Check on a SAT verdict.
type Model struct {
	BitVecs map[string]*uint256.Int
	Bools   map[string]bool
}

// NewModel returns an empty Model.
func NewModel() *Model {
	return &Model{BitVecs: map[string]*uint256.Int{}, Bools: map[string]bool{}}
}

// Merge folds other's assignments into m, returning m. Caller must ensure
// the two models assign disjoint variable sets (true for models produced by
// the independence optimizer's per-partition solves).
func (m *Model) Merge(other *Model) *Model {
	for k, v := range other.BitVecs {
		m.BitVecs[k] = v
	}
	for k, v := range other.Bools {
		m.Bools[k] = v
	}
	return m
}

// Assignment converts the model into an smt.Assignment suitable for
// SubstituteBitVec/SubstituteBool, with every width sourced from widths.
func (m *Model) Assignment(widths map[string]uint) *smt.Assignment {
	a := smt.NewAssignment()
	for name, v := range m.BitVecs {
		a.BitVecs[name] = smt.BitVecVal(v, widths[name])
	}
	for name, v := range m.Bools {
		a.Bools[name] = smt.BoolVal(v)
	}
	return a
}
