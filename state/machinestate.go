package state

import (
	"github.com/eth2030/laser/smt"
	"github.com/ethereum/go-ethereum/common"
)

// GasEnvelope tracks a (min, max) bound on gas consumed so far rather than
// an exact figure, matching the spec's "does not model gas economically
// beyond tracking a min/max envelope" non-goal.
type GasEnvelope struct {
	Min uint64
	Max uint64
}

// Charge widens the envelope by a static cost (added to both bounds) and a
// dynamic cost range [dynMin, dynMax] (added respectively).
func (g *GasEnvelope) Charge(static, dynMin, dynMax uint64) {
	g.Min += static + dynMin
	g.Max += static + dynMax
}

// MachineState is one call frame's mutable execution state: operand stack,
// byte-addressable memory, program counter, call depth, and gas envelope.
// Grounded on the teacher's Stack/Memory pair plus the (pc, gas) fields the
// teacher threads through core/vm/interpreter.go's Run loop.
type MachineState struct {
	Stack          *Stack
	Memory         *Memory
	PC             uint64
	Depth          int
	Gas            GasEnvelope
	LastReturnData *smt.BitVec // nil if no CALL/CREATE family op has returned yet

	// LastReturnDataBytes is the byte-exact form of the same return data,
	// kept separately because LastReturnData's term encoding can only
	// represent up to 32 bytes of concrete value without truncating (the
	// term layer's constants live in a fixed 256-bit register regardless
	// of the term's nominal width). RETURNDATASIZE/RETURNDATACOPY read
	// this field when set; LastReturnData stays for the purely-symbolic
	// approximation case where no concrete bytes exist at all.
	LastReturnDataBytes []byte

	// Call-return bookkeeping, set when this frame was pushed by a
	// CALL-family or CREATE-family instruction so the dispatcher can
	// restore the caller's environment and splice the callee's return
	// data back into the caller's memory once this frame pops. Nil for
	// the top-level (depth 0) frame.
	CallerEnv    *Environment
	ReturnOffset uint64
	ReturnSize   uint64
	IsCreate     bool // true if this frame was pushed by CREATE/CREATE2

	// CalleeAddr is the account this frame executes as (its Environment's
	// ActiveAccount at push time), stashed here because Environment itself
	// lives on GlobalState, not per frame: once the frame pops and
	// CallerEnv is restored, this is the only place its own identity
	// survives for the pop-time bookkeeping (installing CREATE's runtime
	// code, crediting a SELFDESTRUCT beneficiary).
	CalleeAddr common.Address

	// Static marks a frame entered via STATICCALL (or nested under one): a
	// state-mutating opcode inside it terminates the path rather than
	// writing, the same drop-the-path policy used for other malformed
	// operand conditions.
	Static bool
}

// NewMachineState returns a fresh frame at depth with the given starting
// gas (used as both the min and max of the envelope).
func NewMachineState(depth int, startGas uint64) *MachineState {
	return &MachineState{
		Stack:  NewStack(),
		Memory: NewMemory(),
		Depth:  depth,
		Gas:    GasEnvelope{Min: startGas, Max: startGas},
	}
}

// Clone returns a MachineState independent of m: writes through the clone's
// Stack/Memory must never be observable on m's.
func (m *MachineState) Clone() *MachineState {
	var callerEnv *Environment
	if m.CallerEnv != nil {
		callerEnv = m.CallerEnv.Clone()
	}
	var retBytes []byte
	if m.LastReturnDataBytes != nil {
		retBytes = make([]byte, len(m.LastReturnDataBytes))
		copy(retBytes, m.LastReturnDataBytes)
	}
	return &MachineState{
		Stack:               m.Stack.Clone(),
		Memory:              m.Memory.Clone(),
		PC:                  m.PC,
		Depth:               m.Depth,
		Gas:                 m.Gas,
		LastReturnData:      m.LastReturnData,
		LastReturnDataBytes: retBytes,
		CallerEnv:           callerEnv,
		ReturnOffset:        m.ReturnOffset,
		ReturnSize:          m.ReturnSize,
		IsCreate:            m.IsCreate,
		CalleeAddr:          m.CalleeAddr,
		Static:              m.Static,
	}
}
