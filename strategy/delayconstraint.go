package strategy

import "github.com/eth2030/laser/state"

// DelayConstraint is the two-tier pending/ready worklist described in
// spec.md §4.H: a newly-appended state starts in the pending tier and is
// promoted to the ready tier only once its path constraints are shown
// satisfiable (or the answer is already cached as satisfiable via the
// model-reuse cache, which Constraints.IsSat consults internally).
// Grounded on original_source/mythril/laser/ethereum/strategy/
// constraint_strategy.py's DelayConstraintStrategy: both tiers are FIFO,
// and PickNext drains the pending tier one state at a time -- dropping any
// that turn out unsatisfiable -- until the ready tier has something to
// return or pending is exhausted.
type DelayConstraint struct {
	ready   []*state.GlobalState
	pending []*state.GlobalState
}

// NewDelayConstraint returns an empty delay-constraint worklist.
func NewDelayConstraint() *DelayConstraint {
	return &DelayConstraint{}
}

func (d *DelayConstraint) Append(gs *state.GlobalState) {
	d.pending = append(d.pending, gs)
}

func (d *DelayConstraint) PickNext() (*state.GlobalState, bool) {
	for len(d.ready) == 0 && len(d.pending) > 0 {
		gs := d.pending[0]
		d.pending = d.pending[1:]
		if _, sat := gs.Constraints().IsSat(); sat {
			d.ready = append(d.ready, gs)
		}
		// Unsatisfiable paths are dropped silently, same terminal
		// treatment as every other dead-end condition in this engine.
	}
	if len(d.ready) == 0 {
		return nil, false
	}
	front := d.ready[0]
	d.ready = d.ready[1:]
	return front, true
}

// Len reports the number of states across both tiers.
func (d *DelayConstraint) Len() int { return len(d.ready) + len(d.pending) }
