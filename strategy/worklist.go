// Package strategy implements the search-strategy component: the scheduler
// that owns the set of live global states and decides which one runs next.
// Grounded on original_source/mythril/laser/ethereum/strategy/
// constraint_strategy.py (a strategy wraps another strategy and filters by
// constraint satisfiability) and, for the plain LIFO/FIFO shapes, the
// teacher's own queue/heap style in pkg/txpool/priority_queue.go.
package strategy

import "github.com/eth2030/laser/state"

// Worklist is the scheduler contract every search strategy implements:
// Append adds a newly-forked state to the live set, PickNext removes and
// returns the one to run next. PickNext's second return is false once the
// worklist is empty.
type Worklist interface {
	Append(gs *state.GlobalState)
	PickNext() (*state.GlobalState, bool)
	Len() int
}

// DepthBounded wraps any Worklist and silently discards a state whose
// InstructionCount has already exceeded maxDepth on Append, matching
// spec.md §4.H's "any state whose instruction count exceeds max_depth is
// discarded" rule without every strategy needing to reimplement it. A
// maxDepth of 0 means unbounded.
type DepthBounded struct {
	inner    Worklist
	maxDepth uint64
}

// NewDepthBounded wraps inner with a max_depth cutoff.
func NewDepthBounded(inner Worklist, maxDepth uint64) *DepthBounded {
	return &DepthBounded{inner: inner, maxDepth: maxDepth}
}

func (d *DepthBounded) Append(gs *state.GlobalState) {
	if d.maxDepth > 0 && gs.InstructionCount > d.maxDepth {
		return
	}
	d.inner.Append(gs)
}

func (d *DepthBounded) PickNext() (*state.GlobalState, bool) { return d.inner.PickNext() }
func (d *DepthBounded) Len() int                             { return d.inner.Len() }
