package strategy

import (
	"testing"

	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
)

func newTestGlobalState(addr common.Address) *state.GlobalState {
	world := state.NewWorldState(nil)
	env := &state.Environment{
		ActiveAccount: addr,
		Caller:        state.AddressToBitVec(common.HexToAddress("0xbb")),
		Origin:        state.AddressToBitVec(common.HexToAddress("0xbb")),
		CallValue:     smt.BitVecValUint64(0, 256),
		Calldata:      state.ConcreteCalldata(nil),
		GasPrice:      smt.BitVecValUint64(1, 256),
	}
	return state.NewGlobalState(world, env, 1_000_000)
}

func TestDFSIsLIFO(t *testing.T) {
	d := NewDFS()
	a := newTestGlobalState(common.HexToAddress("0x01"))
	b := newTestGlobalState(common.HexToAddress("0x02"))
	d.Append(a)
	d.Append(b)

	got, ok := d.PickNext()
	if !ok || got != b {
		t.Fatalf("DFS.PickNext() = %v, want the most recently appended state", got)
	}
	got, ok = d.PickNext()
	if !ok || got != a {
		t.Fatalf("DFS.PickNext() = %v, want the first-appended state", got)
	}
	if _, ok := d.PickNext(); ok {
		t.Error("PickNext on an empty DFS worklist should report false")
	}
}

func TestBFSIsFIFO(t *testing.T) {
	b := NewBFS()
	s1 := newTestGlobalState(common.HexToAddress("0x01"))
	s2 := newTestGlobalState(common.HexToAddress("0x02"))
	b.Append(s1)
	b.Append(s2)

	got, ok := b.PickNext()
	if !ok || got != s1 {
		t.Fatalf("BFS.PickNext() = %v, want the first-appended state", got)
	}
	got, ok = b.PickNext()
	if !ok || got != s2 {
		t.Fatalf("BFS.PickNext() = %v, want the second-appended state", got)
	}
}

func TestDepthBoundedDropsExceedingStates(t *testing.T) {
	d := NewDepthBounded(NewDFS(), 10)
	within := newTestGlobalState(common.HexToAddress("0x01"))
	within.InstructionCount = 5
	exceeds := newTestGlobalState(common.HexToAddress("0x02"))
	exceeds.InstructionCount = 11

	d.Append(within)
	d.Append(exceeds)
	if got := d.Len(); got != 1 {
		t.Fatalf("Len() = %d, want 1 (one state dropped for exceeding max_depth)", got)
	}
	got, ok := d.PickNext()
	if !ok || got != within {
		t.Errorf("PickNext() = %v, want the within-bound state", got)
	}
}

func TestDepthBoundedZeroMeansUnbounded(t *testing.T) {
	d := NewDepthBounded(NewDFS(), 0)
	gs := newTestGlobalState(common.HexToAddress("0x01"))
	gs.InstructionCount = 1_000_000
	d.Append(gs)
	if d.Len() != 1 {
		t.Error("max_depth = 0 should never drop a state")
	}
}

func TestDelayConstraintPromotesSatisfiableStates(t *testing.T) {
	d := NewDelayConstraint()
	gs := newTestGlobalState(common.HexToAddress("0x01"))
	d.Append(gs)

	got, ok := d.PickNext()
	if !ok || got != gs {
		t.Fatalf("PickNext() did not return the pending state once checked satisfiable")
	}
}

func TestDelayConstraintDropsUnsatisfiableStates(t *testing.T) {
	d := NewDelayConstraint()
	gs := newTestGlobalState(common.HexToAddress("0x01"))
	gs.Constraints().Add(smt.BoolVal(false))
	d.Append(gs)

	if _, ok := d.PickNext(); ok {
		t.Error("PickNext should never surface a state with unsatisfiable constraints")
	}
	if d.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after the unsatisfiable state is dropped", d.Len())
	}
}

func TestDelayConstraintReadyTierIsFIFO(t *testing.T) {
	d := NewDelayConstraint()
	s1 := newTestGlobalState(common.HexToAddress("0x01"))
	s2 := newTestGlobalState(common.HexToAddress("0x02"))
	d.Append(s1)
	d.Append(s2)

	got1, ok := d.PickNext()
	if !ok || got1 != s1 {
		t.Fatalf("first PickNext() = %v, want s1", got1)
	}
	got2, ok := d.PickNext()
	if !ok || got2 != s2 {
		t.Fatalf("second PickNext() = %v, want s2", got2)
	}
}
