package strategy

import "github.com/eth2030/laser/state"

// BFS is a FIFO worklist: states are explored in the order they were
// forked, level by level, matching spec.md §4.H's "alternative strategies
// include breadth-first".
type BFS struct {
	queue []*state.GlobalState
}

// NewBFS returns an empty breadth-first worklist.
func NewBFS() *BFS { return &BFS{} }

func (b *BFS) Append(gs *state.GlobalState) {
	b.queue = append(b.queue, gs)
}

func (b *BFS) PickNext() (*state.GlobalState, bool) {
	if len(b.queue) == 0 {
		return nil, false
	}
	front := b.queue[0]
	b.queue = b.queue[1:]
	return front, true
}

func (b *BFS) Len() int { return len(b.queue) }
