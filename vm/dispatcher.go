// Package vm implements instruction dispatch: decoding one opcode against a
// global state and producing the global states that follow from it.
// Grounded on the teacher's core/vm/jump_table.go + core/vm/interpreter.go
// (table-driven operation descriptors, an EVM-wide Run loop), generalized
// per spec.md §4.F so a single opcode can fork into multiple successor
// states instead of mutating one concrete machine in place.
package vm

import (
	"fmt"

	"github.com/eth2030/laser/cfgraph"
	"github.com/eth2030/laser/hooks"
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
)

// Dispatcher holds everything Step needs beyond the global state itself:
// the opcode table, the detector hook bus, the shared CFG, and the bounds
// spec.md §6's Configuration names (jump-target enumeration bound, call
// depth bound, overall depth bound).
type Dispatcher struct {
	Table  JumpTable
	Hooks  *hooks.Bus
	CFG    *cfgraph.Graph
	Gas    uint64 // not read by any opcode: CALL-family and CREATE forward the calling frame's Gas.Min instead

	MaxDepth              uint64
	CallDepthBound        int
	SymbolicCalldataBound int

	// Issues accumulates every finding a CALLBACK detection module reports
	// from Step's Pre/Post hook invocations. Shared mutable state across
	// every state Step is called on, the same way CFG is (§5's "solver
	// model cache and the CFG are the only mutable structures shared across
	// states" extends naturally to the accumulated issue list).
	Issues []hooks.Issue
}

// NewDispatcher returns a Dispatcher with the full opcode table installed.
// hooksBus and cfg may be nil (no detectors registered / no CFG tracked).
func NewDispatcher(hooksBus *hooks.Bus, cfg *cfgraph.Graph) *Dispatcher {
	if hooksBus == nil {
		hooksBus = hooks.NewBus()
	}
	return &Dispatcher{
		Table:                 NewJumpTable(),
		Hooks:                 hooksBus,
		CFG:                   cfg,
		MaxDepth:              0, // 0 means unbounded; engine.Config wires a real value
		CallDepthBound:        1024,
		SymbolicCalldataBound: 8,
	}
}

func (d *Dispatcher) codeOf(gs *state.GlobalState) []byte {
	addr := gs.Env.CodeAddress
	if addr == (common.Address{}) {
		addr = gs.Env.ActiveAccount
	}
	return gs.World.Account(addr).Code
}

func oneSuccessor(gs *state.GlobalState) []*state.GlobalState {
	return []*state.GlobalState{gs}
}

func noSuccessors() []*state.GlobalState {
	return nil
}

// chargeMemory extends frame.Memory to cover [offset, offset+size) and
// charges the quadratic memory-expansion gas for growing to that size
// before the extension actually happens, matching the teacher's
// gasMemExpansion (computed against the pre-expansion length).
func chargeMemory(frame *state.MachineState, offset, size uint64) {
	if size == 0 {
		return
	}
	end := memoryEnd(offset, size)
	cost := gasMemExpansion(uint64(frame.Memory.Len()), end)
	frame.Gas.Charge(0, cost, cost)
	frame.Memory.Resize(end)
}

// Step decodes and executes exactly one opcode against gs, returning the
// successor states to hand to the worklist. A nil, nil result means gs's
// path terminated here (stack under/overflow, undefined opcode, depth
// bound, a write under a static frame, an unresolvable operand) with
// nothing further to schedule. A halting opcode instead returns gs itself
// as its one successor, with the finished frame popped.
func (d *Dispatcher) Step(gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		// No active frame: the transaction already completed on a prior
		// step (every CALL-family/CREATE/top-level frame has returned).
		return noSuccessors(), nil
	}
	if d.MaxDepth > 0 && gs.InstructionCount >= d.MaxDepth {
		return noSuccessors(), nil
	}

	code := d.codeOf(gs)
	var op OpCode
	if frame.PC >= uint64(len(code)) {
		op = STOP
	} else {
		op = OpCode(code[frame.PC])
	}

	def := d.Table[op]
	if def == nil {
		// Undefined opcode: terminal per spec.md §7 (recovered by dropping
		// the path silently, same policy as StackUnderflow/InvalidJump).
		return noSuccessors(), nil
	}
	if frame.Stack.Len() < def.minStack || frame.Stack.Len() > def.maxStack {
		return noSuccessors(), nil
	}
	if frame.Static && def.writes {
		// STATICCALL's no-state-change rule (EIP-214). A real EVM reverts
		// just the call; this engine doesn't thread a per-call revert back
		// through Step, so the path ends here instead, the same terminal
		// treatment as every other malformed-operand condition.
		return noSuccessors(), nil
	}

	instrAddr := frame.PC
	found, err := d.Hooks.Pre(gs, byte(op), instrAddr)
	if err != nil {
		return nil, fmt.Errorf("vm: pre-hook for %s: %w", op, err)
	}
	d.Issues = append(d.Issues, found...)

	frame.Gas.Charge(def.constantGas, 0, 0)
	gs.InstructionCount++

	if op == JUMPDEST {
		d.recordNode(gs, frame.PC)
	}

	successors, err := def.execute(d, gs)
	if err != nil {
		return nil, fmt.Errorf("vm: executing %s: %w", op, err)
	}

	// Every opcode except JUMP/JUMPI (which position PC themselves on each
	// branch they produce) and the halting family (which pop their frame
	// entirely) advances PC by exactly one here. PUSHn's executionFunc adds
	// the extra size-1 bytes its immediate occupies beyond this; CALL-family
	// ops push a new frame but frame still points at the caller's, so this
	// correctly advances the caller's PC to resume after the call returns.
	if !def.jumps && !def.halts && len(successors) > 0 {
		frame.PC++
	}

	for _, succ := range successors {
		found, err := d.Hooks.Post(succ, byte(op), instrAddr)
		if err != nil {
			return successors, fmt.Errorf("vm: post-hook for %s: %w", op, err)
		}
		d.Issues = append(d.Issues, found...)
	}
	return successors, nil
}

// recordNode registers/traverses a CFG node at the given start_pc for the
// active account, per spec.md §4.G ("a new node begins at each JUMPDEST").
func (d *Dispatcher) recordNode(gs *state.GlobalState, startPC uint64) {
	if d.CFG == nil {
		return
	}
	key := cfgraph.NodeKey{
		Contract:      gs.Env.ActiveAccount.Hex(),
		StartPC:       startPC,
		PathSignature: pathSignature(gs),
	}
	n := d.CFG.NodeFor(key, "")
	d.CFG.RecordTraversal(n.ID)
}

// pathSignature derives a coarse per-path discriminator from the current
// constraint count, enough to separate states reached under materially
// different preconditions without hashing full constraint terms on every
// JUMPDEST (spec.md §4.G's node-uniqueness rule names the signature's
// purpose, not its exact encoding).
func pathSignature(gs *state.GlobalState) string {
	return fmt.Sprintf("c%d", gs.Constraints().Len())
}

// resolveAddress widens a stack word down to a 20-byte address, as every
// ADDRESS-family operand (BALANCE, EXTCODE*, CALL target, ...) requires.
func resolveAddress(w *smt.BitVec) (common.Address, bool) {
	if !w.IsConcrete() {
		return common.Address{}, false
	}
	buf := w.Value().Bytes32()
	return common.BytesToAddress(buf[12:]), true
}
