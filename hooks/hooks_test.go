package hooks

import (
	"testing"

	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/smt/solver"
	"github.com/eth2030/laser/state"
)

func freshBool(t *testing.T) *smt.BitVec {
	t.Helper()
	return smt.BitVecSym("retval", 256)
}

func eqOne(t *testing.T, b *smt.BitVec) *smt.Bool {
	t.Helper()
	return smt.Eq(b, smt.BitVecValUint64(1, b.Width()))
}

type recordingModule struct {
	desc     Descriptor
	preCalls int
}

func (m *recordingModule) Descriptor() Descriptor { return m.desc }

func (m *recordingModule) PreHook(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error) {
	m.preCalls++
	return nil, nil
}

func (m *recordingModule) PostHook(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error) {
	return nil, nil
}

func newTestGlobalState() *state.GlobalState {
	world := state.NewWorldState(solver.IntervalSolver{})
	env := &state.Environment{Calldata: state.ConcreteCalldata(nil)}
	return state.NewGlobalState(world, env, 100000)
}

func TestBusRoutesOnlyRegisteredOpcodes(t *testing.T) {
	bus := NewBus()
	m := &recordingModule{desc: Descriptor{Name: "m", PreHooks: []byte{opStop}}}
	bus.Register(m)

	gs := newTestGlobalState()
	if _, err := bus.Pre(gs, opStop, 0); err != nil {
		t.Fatalf("Pre: %v", err)
	}
	if _, err := bus.Pre(gs, opReturn, 0); err != nil {
		t.Fatalf("Pre: %v", err)
	}
	if m.preCalls != 1 {
		t.Errorf("preCalls = %d, want 1 (should not fire for unregistered opcode)", m.preCalls)
	}
}

func TestUncheckedRetvalFlagsUnconstrainedCall(t *testing.T) {
	gs := newTestGlobalState()
	frame, err := gs.Current()
	if err != nil {
		t.Fatal(err)
	}
	// Simulate the CALL-family opcode having just pushed a fresh symbolic
	// success flag onto the stack.
	retval := freshBool(t)
	if err := frame.Stack.Push(retval); err != nil {
		t.Fatal(err)
	}

	d := UncheckedRetval{}
	if _, err := d.PostHook(gs, opCall, 10); err != nil {
		t.Fatalf("PostHook: %v", err)
	}

	issues, err := d.PreHook(gs, opStop, 11)
	if err != nil {
		t.Fatalf("PreHook: %v", err)
	}
	if len(issues) != 1 {
		t.Fatalf("len(issues) = %d, want 1", len(issues))
	}
	if issues[0].SWCID != swcUncheckedRetVal {
		t.Errorf("SWCID = %q, want %q", issues[0].SWCID, swcUncheckedRetVal)
	}
	if issues[0].Address != 10 {
		t.Errorf("Address = %d, want 10 (the CALL site)", issues[0].Address)
	}
}

func TestUncheckedRetvalSilentWhenConstrained(t *testing.T) {
	gs := newTestGlobalState()
	frame, err := gs.Current()
	if err != nil {
		t.Fatal(err)
	}
	retval := freshBool(t)
	if err := frame.Stack.Push(retval); err != nil {
		t.Fatal(err)
	}

	d := UncheckedRetval{}
	if _, err := d.PostHook(gs, opCall, 10); err != nil {
		t.Fatal(err)
	}

	// Caller checked the result: constrain retval == 1 (a require(success)
	// style check), leaving retval == 0 unsatisfiable.
	gs.Constraints().Add(eqOne(t, retval))

	issues, err := d.PreHook(gs, opStop, 11)
	if err != nil {
		t.Fatalf("PreHook: %v", err)
	}
	if len(issues) != 0 {
		t.Errorf("len(issues) = %d, want 0 once the call result is constrained", len(issues))
	}
}
