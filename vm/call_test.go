package vm

import (
	"testing"

	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
)

// pushCallArgs pushes a CALL/CALLCODE/STATICCALL/DELEGATECALL-family frame's
// operands in the bottom-to-top order doCall's pop sequence expects:
// gas is popped first (so it must be pushed last, on top).
func pushCallArgs(t *testing.T, st *state.Stack, retSize, retOffset, argsSize, argsOffset, value uint64, hasValue bool, addr common.Address, gas uint64) {
	t.Helper()
	pushConcrete(t, st, retSize)
	pushConcrete(t, st, retOffset)
	pushConcrete(t, st, argsSize)
	pushConcrete(t, st, argsOffset)
	if hasValue {
		pushConcrete(t, st, value)
	}
	if err := st.Push(state.AddressToBitVec(addr)); err != nil {
		t.Fatalf("Push addr: %v", err)
	}
	pushConcrete(t, st, gas)
}

func TestCallToEmptyAccountIsValueTransfer(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0xcc")
	gs.World.Account(gs.Env.ActiveAccount).Balance = smt.BitVecValUint64(100, 256)

	pushCallArgs(t, frame.Stack, 0, 0, 0, 0, 40, true, target, 50000)
	succ, err := opCall(d, gs)
	if err != nil {
		t.Fatalf("opCall: %v", err)
	}
	if len(succ) != 1 {
		t.Fatalf("len(succ) = %d, want 1", len(succ))
	}
	if got := popUint64(t, frame.Stack); got != 1 {
		t.Errorf("CALL to an empty account pushed %d, want 1 (success)", got)
	}
	if got := gs.World.Account(target).Balance.Value().Uint64(); got != 40 {
		t.Errorf("target balance = %d, want 40", got)
	}
	if got := gs.World.Account(gs.Env.ActiveAccount).Balance.Value().Uint64(); got != 60 {
		t.Errorf("caller balance = %d, want 60", got)
	}
}

func TestCallPushesFrameAndReturns(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0xdd")
	gs.World.Account(target).Code = []byte{byte(STOP)}
	callerAddr := gs.Env.ActiveAccount

	pushCallArgs(t, frame.Stack, 32, 0, 0, 0, 0, true, target, 50000)
	succ, err := opCall(d, gs)
	if err != nil {
		t.Fatalf("opCall: %v", err)
	}
	if len(succ) != 1 {
		t.Fatalf("len(succ) = %d, want 1", len(succ))
	}
	inner := succ[0]
	if len(inner.Frames) != 2 {
		t.Fatalf("len(Frames) = %d, want 2 after CALL push", len(inner.Frames))
	}
	if inner.Env.ActiveAccount != target {
		t.Errorf("callee Env.ActiveAccount = %v, want %v", inner.Env.ActiveAccount, target)
	}

	// Step once more to run the callee's STOP, which should pop back to the
	// caller and push a success word.
	after, err := d.Step(inner)
	if err != nil {
		t.Fatalf("Step (callee STOP): %v", err)
	}
	if len(after) != 1 {
		t.Fatalf("len(after) = %d, want 1", len(after))
	}
	if len(after[0].Frames) != 1 {
		t.Fatalf("len(Frames) after return = %d, want 1", len(after[0].Frames))
	}
	if after[0].Env.ActiveAccount != callerAddr {
		t.Errorf("Env not restored to caller after return: got %v, want %v", after[0].Env.ActiveAccount, callerAddr)
	}
	callerFrame, _ := after[0].Current()
	if got := popUint64(t, callerFrame.Stack); got != 1 {
		t.Errorf("pushed result = %d, want 1 (success)", got)
	}
}

func TestDelegateCallInheritsCallerContext(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0xee")
	gs.World.Account(target).Code = []byte{byte(STOP)}
	callerAddr := gs.Env.ActiveAccount

	pushCallArgs(t, frame.Stack, 0, 0, 0, 0, 0, false, target, 50000)
	succ, err := opDelegateCall(d, gs)
	if err != nil {
		t.Fatalf("opDelegateCall: %v", err)
	}
	inner := succ[0]
	if inner.Env.ActiveAccount != callerAddr {
		t.Errorf("DELEGATECALL storage context = %v, want caller %v", inner.Env.ActiveAccount, callerAddr)
	}
	if inner.Env.CodeAddress != target {
		t.Errorf("DELEGATECALL CodeAddress = %v, want %v", inner.Env.CodeAddress, target)
	}
	if inner.Env.CallValue.Value().Uint64() != gs.Env.CallValue.Value().Uint64() {
		t.Error("DELEGATECALL should inherit the caller's CallValue")
	}
}

func TestStaticCallMarksFrameStatic(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0xff")
	gs.World.Account(target).Code = []byte{byte(STOP)}

	pushCallArgs(t, frame.Stack, 0, 0, 0, 0, 0, false, target, 50000)
	succ, err := opStaticCall(d, gs)
	if err != nil {
		t.Fatalf("opStaticCall: %v", err)
	}
	innerFrame, _ := succ[0].Current()
	if !innerFrame.Static {
		t.Error("STATICCALL's pushed frame should have Static = true")
	}
}

func TestCallUnresolvedAddressApproximates(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	pushConcrete(t, frame.Stack, 0) // retSize
	pushConcrete(t, frame.Stack, 0) // retOffset
	pushConcrete(t, frame.Stack, 0) // argsSize
	pushConcrete(t, frame.Stack, 0) // argsOffset
	pushConcrete(t, frame.Stack, 0) // value
	if err := frame.Stack.Push(smt.BitVecSym("target", 256)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	pushConcrete(t, frame.Stack, 50000) // gas

	succ, err := opCall(d, gs)
	if err != nil {
		t.Fatalf("opCall: %v", err)
	}
	if len(succ) != 1 {
		t.Fatalf("len(succ) = %d, want 1 (approximated, path continues)", len(succ))
	}
	result, err := frame.Stack.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if result.IsConcrete() {
		t.Error("CALL to an unresolvable address should push a fresh symbolic result")
	}
}

func TestOpReturnAndFinishFrameSplicesCallerMemory(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0x11")
	gs.World.Account(target).Code = []byte{
		byte(PUSH1), 0xaa,
		byte(PUSH1), 0x00,
		byte(MSTORE8),
		byte(PUSH1), 0x01, // size
		byte(PUSH1), 0x00, // offset
		byte(RETURN),
	}

	pushCallArgs(t, frame.Stack, 32, 0, 0, 0, 0, true, target, 100000)
	succ, err := opCall(d, gs)
	if err != nil {
		t.Fatalf("opCall: %v", err)
	}
	inner := succ[0]
	for i := 0; i < 6; i++ {
		next, err := d.Step(inner)
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if len(next) != 1 {
			t.Fatalf("Step %d: len(next) = %d, want 1", i, len(next))
		}
		inner = next[0]
		if len(inner.Frames) == 1 {
			break
		}
	}
	if len(inner.Frames) != 1 {
		t.Fatalf("callee never returned to the caller frame")
	}
	callerFrame, _ := inner.Current()
	if got := popUint64(t, callerFrame.Stack); got != 1 {
		t.Errorf("CALL result = %d, want 1 (success)", got)
	}
	word := callerFrame.Memory.Read(0, 32)
	if !word.IsConcrete() || word.Value().Bytes32() != [32]byte{0xaa} {
		t.Errorf("caller memory[0:32] after RETURN splice = %v, want 0xaa followed by 31 zero bytes", word)
	}
}

func TestCreateInstallsDeployedCode(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	// Constructor: store one runtime byte (0x60 i.e. PUSH1) and RETURN it.
	initCode := []byte{
		byte(PUSH1), 0x60,
		byte(PUSH1), 0x00,
		byte(MSTORE8),
		byte(PUSH1), 0x01,
		byte(PUSH1), 0x00,
		byte(RETURN),
	}
	frame.Memory.WriteBytes(0, initCode)
	pushConcrete(t, frame.Stack, uint64(len(initCode))) // size
	pushConcrete(t, frame.Stack, 0)                     // offset
	pushConcrete(t, frame.Stack, 0)                     // value

	succ, err := opCreate(d, gs)
	if err != nil {
		t.Fatalf("opCreate: %v", err)
	}
	inner := succ[0]
	if len(inner.Frames) != 2 {
		t.Fatalf("len(Frames) = %d, want 2 after CREATE push", len(inner.Frames))
	}
	createdAddr := inner.Env.ActiveAccount

	for i := 0; i < 6; i++ {
		next, err := d.Step(inner)
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if len(next) != 1 {
			t.Fatalf("Step %d: len(next) = %d, want 1", i, len(next))
		}
		inner = next[0]
		if len(inner.Frames) == 1 {
			break
		}
	}
	if len(inner.Frames) != 1 {
		t.Fatal("constructor never returned")
	}
	callerFrame, _ := inner.Current()
	addrWord := mustPop(t, callerFrame.Stack)
	if !addrWord.IsConcrete() || addrWord.Value().Sign() == 0 {
		t.Fatal("CREATE should push a nonzero address on success")
	}
	deployed := inner.World.Account(createdAddr).Code
	if len(deployed) != 1 || deployed[0] != 0x60 {
		t.Errorf("deployed code = %x, want [0x60]", deployed)
	}
}

func mustPop(t *testing.T, st *state.Stack) *smt.BitVec {
	t.Helper()
	w, err := st.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	return w
}

func TestSelfdestructCreditsBeneficiary(t *testing.T) {
	d, gs := newTestState(nil)
	frame, _ := gs.Current()
	beneficiary := common.HexToAddress("0x22")
	gs.World.Account(gs.Env.ActiveAccount).Balance = smt.BitVecValUint64(75, 256)

	if err := frame.Stack.Push(state.AddressToBitVec(beneficiary)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	succ, err := opSelfdestruct(d, gs)
	if err != nil {
		t.Fatalf("opSelfdestruct: %v", err)
	}
	if len(succ) != 1 {
		t.Fatalf("len(succ) = %d, want 1", len(succ))
	}
	if got := succ[0].World.Account(beneficiary).Balance.Value().Uint64(); got != 75 {
		t.Errorf("beneficiary balance = %d, want 75", got)
	}
	if !succ[0].World.Account(gs.Env.ActiveAccount).Deleted {
		t.Error("self-destructed account should be marked Deleted")
	}
}
