package state

import (
	"errors"

	"github.com/eth2030/laser/smt/solver"
)

// ErrNoActiveFrame is returned by operations that require a non-empty
// call-frame stack when none remains (the transaction has already
// returned/stopped/reverted at the top level).
var ErrNoActiveFrame = errors.New("state: no active machine frame")

// GlobalState aggregates one world state, a non-empty stack of machine
// states (one per active call frame, deepest/active last), the current
// Environment, an instruction-index counter (component G's CFG node
// bookkeeping reads this), and the annotation bag. The ownership invariant
// -- forking produces two states sharing no mutable substructure -- is
// implemented by Clone deep-copying every field transitively.
type GlobalState struct {
	World            *WorldState
	Frames           []*MachineState
	Env              *Environment
	InstructionCount uint64
	Annotations      *AnnotationBag
}

// NewGlobalState starts a new global state with a single frame at depth 0.
func NewGlobalState(world *WorldState, env *Environment, startGas uint64) *GlobalState {
	return &GlobalState{
		World:       world,
		Frames:      []*MachineState{NewMachineState(0, startGas)},
		Env:         env,
		Annotations: NewAnnotationBag(),
	}
}

// Current returns the active (innermost) machine frame.
func (g *GlobalState) Current() (*MachineState, error) {
	if len(g.Frames) == 0 {
		return nil, ErrNoActiveFrame
	}
	return g.Frames[len(g.Frames)-1], nil
}

// PushFrame enters a new call frame (CALL/DELEGATECALL/STATICCALL/
// CALLCODE/CREATE/CREATE2), returning the new frame's depth.
func (g *GlobalState) PushFrame(m *MachineState) int {
	g.Frames = append(g.Frames, m)
	return len(g.Frames) - 1
}

// PopFrame leaves the current call frame (RETURN/STOP/REVERT/halt),
// returning the frame that was popped. It reports ErrNoActiveFrame if
// there was nothing to pop.
func (g *GlobalState) PopFrame() (*MachineState, error) {
	if len(g.Frames) == 0 {
		return nil, ErrNoActiveFrame
	}
	top := g.Frames[len(g.Frames)-1]
	g.Frames = g.Frames[:len(g.Frames)-1]
	return top, nil
}

// AtTopLevel reports whether the popped-to state has no remaining frames,
// meaning the current transaction is complete.
func (g *GlobalState) AtTopLevel() bool {
	return len(g.Frames) == 0
}

// Constraints is a convenience accessor for the path constraints, which
// live on the world state rather than any individual machine frame.
func (g *GlobalState) Constraints() *solver.Constraints {
	return g.World.Path
}

// Fork returns a deep copy of g sharing no mutable substructure: writes
// through the returned state (storage, memory, stack, transient storage,
// constraints, annotations) must never be observable on g. This is the
// engine's one fork-purity primitive; the branching opcodes call it once
// per successor they produce (each candidate target of a symbolic JUMP,
// JUMPI's taken and fall-through states), while single-successor opcodes,
// CALL-family frame pushes and returns included, continue on the same
// state without forking.
func (g *GlobalState) Fork() *GlobalState {
	frames := make([]*MachineState, len(g.Frames))
	for i, f := range g.Frames {
		frames[i] = f.Clone()
	}
	return &GlobalState{
		World:            g.World.Clone(),
		Frames:           frames,
		Env:              g.Env.Clone(),
		InstructionCount: g.InstructionCount,
		Annotations:      g.Annotations.CloneOnFork(),
	}
}
