package vm

import (
	"testing"

	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
)

func TestOpAddressCallerOriginCallValue(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()

	if _, err := opAddress(nil, gs); err != nil {
		t.Fatalf("opAddress: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != state.AddressToBitVec(gs.Env.ActiveAccount).Value().Uint64() {
		t.Errorf("ADDRESS = %d, want %d", got, state.AddressToBitVec(gs.Env.ActiveAccount).Value().Uint64())
	}

	if _, err := opCaller(nil, gs); err != nil {
		t.Fatalf("opCaller: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != gs.Env.Caller.Value().Uint64() {
		t.Errorf("CALLER = %d, want %d", got, gs.Env.Caller.Value().Uint64())
	}

	if _, err := opOrigin(nil, gs); err != nil {
		t.Fatalf("opOrigin: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != gs.Env.Origin.Value().Uint64() {
		t.Errorf("ORIGIN = %d, want %d", got, gs.Env.Origin.Value().Uint64())
	}

	if _, err := opCallValue(nil, gs); err != nil {
		t.Fatalf("opCallValue: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 0 {
		t.Errorf("CALLVALUE = %d, want 0", got)
	}
}

func TestOpBalanceKnownAndUnresolvedAddress(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0x33")
	gs.World.Account(target).Balance = smt.BitVecValUint64(99, 256)

	if err := frame.Stack.Push(state.AddressToBitVec(target)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opBalance(nil, gs); err != nil {
		t.Fatalf("opBalance: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 99 {
		t.Errorf("BALANCE(known) = %d, want 99", got)
	}

	if err := frame.Stack.Push(smt.BitVecSym("addr", 256)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opBalance(nil, gs); err != nil {
		t.Fatalf("opBalance: %v", err)
	}
	result, err := frame.Stack.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if result.IsConcrete() {
		t.Error("BALANCE of an unresolved address should be symbolic")
	}
}

func TestOpCalldataLoadConcreteAndPastEnd(t *testing.T) {
	_, gs := newTestState(nil)
	gs.Env.Calldata = state.ConcreteCalldata([]byte{0xde, 0xad, 0xbe, 0xef})
	frame, _ := gs.Current()

	pushConcrete(t, frame.Stack, 0)
	if _, err := opCalldataLoad(nil, gs); err != nil {
		t.Fatalf("opCalldataLoad: %v", err)
	}
	got, err := frame.Stack.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	want := make([]byte, 32)
	copy(want, []byte{0xde, 0xad, 0xbe, 0xef})
	if gotBytes := got.Value().Bytes32(); gotBytes != [32]byte(want) {
		t.Errorf("CALLDATALOAD(0) = %x, want %x", gotBytes, want)
	}

	// Reading past calldata's end zero-pads rather than erroring.
	pushConcrete(t, frame.Stack, 1000)
	if _, err := opCalldataLoad(nil, gs); err != nil {
		t.Fatalf("opCalldataLoad: %v", err)
	}
	got2 := popUint64(t, frame.Stack)
	if got2 != 0 {
		t.Errorf("CALLDATALOAD past end = %d, want 0", got2)
	}
}

func TestOpCalldataLoadSymbolicOffsetIsFreshSymbolic(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	if err := frame.Stack.Push(smt.BitVecSym("off", 256)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opCalldataLoad(nil, gs); err != nil {
		t.Fatalf("opCalldataLoad: %v", err)
	}
	result, err := frame.Stack.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if result.IsConcrete() {
		t.Error("CALLDATALOAD with a symbolic offset should push a fresh symbolic word")
	}
}

func TestOpCalldataSize(t *testing.T) {
	_, gs := newTestState(nil)
	gs.Env.Calldata = state.ConcreteCalldata([]byte{1, 2, 3})
	frame, _ := gs.Current()
	if _, err := opCalldataSize(nil, gs); err != nil {
		t.Fatalf("opCalldataSize: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 3 {
		t.Errorf("CALLDATASIZE = %d, want 3", got)
	}
}

func TestOpCalldataCopyZeroPadsPastEnd(t *testing.T) {
	_, gs := newTestState(nil)
	gs.Env.Calldata = state.ConcreteCalldata([]byte{0xaa, 0xbb})
	frame, _ := gs.Current()

	pushConcrete(t, frame.Stack, 4) // size
	pushConcrete(t, frame.Stack, 0) // offset
	pushConcrete(t, frame.Stack, 0) // destOffset
	if _, err := opCalldataCopy(nil, gs); err != nil {
		t.Fatalf("opCalldataCopy: %v", err)
	}
	word := frame.Memory.Read(0, 4)
	if !word.IsConcrete() {
		t.Fatal("copied memory should be concrete")
	}
	if got := word.Value().Uint64(); got != 0xaabb0000 {
		t.Errorf("CALLDATACOPY result = %x, want %x", got, 0xaabb0000)
	}
}

func TestOpCalldataCopySymbolicSizeTerminates(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	if err := frame.Stack.Push(smt.BitVecSym("size", 256)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	pushConcrete(t, frame.Stack, 0)
	pushConcrete(t, frame.Stack, 0)
	succ, err := opCalldataCopy(nil, gs)
	if err != nil {
		t.Fatalf("opCalldataCopy: %v", err)
	}
	if len(succ) != 0 {
		t.Errorf("len(succ) = %d, want 0 for symbolic size", len(succ))
	}
}

func TestOpCodeSizeAndCodeCopy(t *testing.T) {
	code := []byte{byte(PUSH1), 0x01, byte(STOP)}
	d, gs := newTestState(code)
	frame, _ := gs.Current()

	if _, err := opCodeSize(d, gs); err != nil {
		t.Fatalf("opCodeSize: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != uint64(len(code)) {
		t.Errorf("CODESIZE = %d, want %d", got, len(code))
	}

	pushConcrete(t, frame.Stack, 3) // size
	pushConcrete(t, frame.Stack, 0) // offset
	pushConcrete(t, frame.Stack, 0) // destOffset
	if _, err := opCodeCopy(d, gs); err != nil {
		t.Fatalf("opCodeCopy: %v", err)
	}
	word := frame.Memory.Read(0, 3)
	if !word.IsConcrete() || word.Value().Uint64() != 0x6001_00 {
		t.Errorf("CODECOPY result = %v, want code bytes %x", word, code)
	}
}

func TestOpExtcodesizeAndExtcodecopy(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0x44")
	gs.World.Account(target).Code = []byte{0xde, 0xad}

	if err := frame.Stack.Push(state.AddressToBitVec(target)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opExtcodesize(nil, gs); err != nil {
		t.Fatalf("opExtcodesize: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 2 {
		t.Errorf("EXTCODESIZE = %d, want 2", got)
	}

	pushConcrete(t, frame.Stack, 4) // size, reads past end -> zero pad
	pushConcrete(t, frame.Stack, 0) // offset
	pushConcrete(t, frame.Stack, 0) // destOffset
	if err := frame.Stack.Push(state.AddressToBitVec(target)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opExtcodecopy(nil, gs); err != nil {
		t.Fatalf("opExtcodecopy: %v", err)
	}
	word := frame.Memory.Read(0, 4)
	if !word.IsConcrete() {
		t.Fatal("EXTCODECOPY result should be concrete for a concrete account")
	}
	if word.Value().Uint64() != 0xdead0000 {
		t.Errorf("EXTCODECOPY result = %x, want deadbeef-style %x", word.Value().Uint64(), 0xdead0000)
	}
}

func TestOpExtcodesizeUnknownAccountIsZero(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	if err := frame.Stack.Push(smt.BitVecSym("addr", 256)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opExtcodesize(nil, gs); err != nil {
		t.Fatalf("opExtcodesize: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 0 {
		t.Errorf("EXTCODESIZE(unresolved) = %d, want 0", got)
	}
}

func TestOpGasPrice(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	if _, err := opGasPrice(nil, gs); err != nil {
		t.Fatalf("opGasPrice: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 1 {
		t.Errorf("GASPRICE = %d, want 1", got)
	}
}

func TestOpReturndataSizeAndCopy(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	frame.LastReturnDataBytes = []byte{0x11, 0x22, 0x33}

	if _, err := opReturndataSize(nil, gs); err != nil {
		t.Fatalf("opReturndataSize: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 3 {
		t.Errorf("RETURNDATASIZE = %d, want 3", got)
	}

	pushConcrete(t, frame.Stack, 3) // size
	pushConcrete(t, frame.Stack, 0) // offset
	pushConcrete(t, frame.Stack, 0) // destOffset
	if _, err := opReturndataCopy(nil, gs); err != nil {
		t.Fatalf("opReturndataCopy: %v", err)
	}
	word := frame.Memory.Read(0, 3)
	if !word.IsConcrete() || word.Value().Uint64() != 0x112233 {
		t.Errorf("RETURNDATACOPY result = %v, want 0x112233", word)
	}
}

func TestOpReturndataCopyOutOfBoundsTerminates(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	frame.LastReturnDataBytes = []byte{0x11}

	pushConcrete(t, frame.Stack, 32) // size, larger than the 1 available byte
	pushConcrete(t, frame.Stack, 0)  // offset
	pushConcrete(t, frame.Stack, 0)  // destOffset
	succ, err := opReturndataCopy(nil, gs)
	if err != nil {
		t.Fatalf("opReturndataCopy: %v", err)
	}
	if len(succ) != 0 {
		t.Errorf("len(succ) = %d, want 0 for an out-of-bounds RETURNDATACOPY", len(succ))
	}
}

func TestOpExtcodehashKnownAndEmptyAccount(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	target := common.HexToAddress("0x55")
	gs.World.Account(target).Code = []byte{0x01}

	if err := frame.Stack.Push(state.AddressToBitVec(target)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opExtcodehash(nil, gs); err != nil {
		t.Fatalf("opExtcodehash: %v", err)
	}
	result, err := frame.Stack.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if !result.IsConcrete() || result.Value().Sign() == 0 {
		t.Error("EXTCODEHASH of an account with code should be a nonzero concrete hash")
	}

	empty := common.HexToAddress("0x66")
	gs.World.Account(empty) // creates, leaves Code nil
	if err := frame.Stack.Push(state.AddressToBitVec(empty)); err != nil {
		t.Fatalf("Push: %v", err)
	}
	if _, err := opExtcodehash(nil, gs); err != nil {
		t.Fatalf("opExtcodehash: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 0 {
		t.Errorf("EXTCODEHASH(empty account) = %d, want 0", got)
	}
}

func TestBlockContextPassthroughOpcodes(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()

	cases := []struct {
		name string
		fn   executionFunc
		want uint64
	}{
		{"COINBASE", opCoinbase, gs.World.Block.Coinbase.Value().Uint64()},
		{"TIMESTAMP", opTimestamp, gs.World.Block.Timestamp.Value().Uint64()},
		{"NUMBER", opNumber, gs.World.Block.Number.Value().Uint64()},
		{"GASLIMIT", opGasLimit, gs.World.Block.GasLimit.Value().Uint64()},
		{"CHAINID", opChainID, gs.World.Block.ChainID.Value().Uint64()},
		{"BASEFEE", opBaseFee, gs.World.Block.BaseFee.Value().Uint64()},
		{"BLOBBASEFEE", opBlobBaseFee, 1},
	}
	for _, tc := range cases {
		if _, err := tc.fn(nil, gs); err != nil {
			t.Fatalf("%s: %v", tc.name, err)
		}
		if got := popUint64(t, frame.Stack); got != tc.want {
			t.Errorf("%s = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestOpSelfBalance(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	gs.World.Account(gs.Env.ActiveAccount).Balance = smt.BitVecValUint64(42, 256)
	if _, err := opSelfBalance(nil, gs); err != nil {
		t.Fatalf("opSelfBalance: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 42 {
		t.Errorf("SELFBALANCE = %d, want 42", got)
	}
}

func TestOpBlockhashAndPrevRandaoAreSymbolic(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()

	pushConcrete(t, frame.Stack, 5)
	if _, err := opBlockhash(nil, gs); err != nil {
		t.Fatalf("opBlockhash: %v", err)
	}
	result, err := frame.Stack.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if result.IsConcrete() {
		t.Error("BLOCKHASH should push a fresh symbolic word")
	}

	if _, err := opPrevRandao(nil, gs); err != nil {
		t.Fatalf("opPrevRandao: %v", err)
	}
	result2, err := frame.Stack.Pop()
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if result2.IsConcrete() {
		t.Error("PREVRANDAO should push a fresh symbolic word")
	}
}

func TestOpBlobHashIsZero(t *testing.T) {
	_, gs := newTestState(nil)
	frame, _ := gs.Current()
	pushConcrete(t, frame.Stack, 0)
	if _, err := opBlobHash(nil, gs); err != nil {
		t.Fatalf("opBlobHash: %v", err)
	}
	if got := popUint64(t, frame.Stack); got != 0 {
		t.Errorf("BLOBHASH = %d, want 0 (no blob transaction modelled)", got)
	}
}
