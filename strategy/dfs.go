package strategy

import "github.com/eth2030/laser/state"

// DFS is the default worklist: a LIFO stack, so execution follows one path
// to completion (or a dead end) before backtracking to its most recent
// fork, matching spec.md §4.H's "the default is LIFO (depth-first)".
type DFS struct {
	stack []*state.GlobalState
}

// NewDFS returns an empty depth-first worklist.
func NewDFS() *DFS { return &DFS{} }

func (d *DFS) Append(gs *state.GlobalState) {
	d.stack = append(d.stack, gs)
}

func (d *DFS) PickNext() (*state.GlobalState, bool) {
	if len(d.stack) == 0 {
		return nil, false
	}
	top := d.stack[len(d.stack)-1]
	d.stack = d.stack[:len(d.stack)-1]
	return top, true
}

func (d *DFS) Len() int { return len(d.stack) }
