package tx

import (
	"testing"

	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
)

func TestContractCreationLaunchSetsUpRootFrame(t *testing.T) {
	world := state.NewWorldState(nil)
	sender := common.HexToAddress("0x01")

	creation := &ContractCreationTransaction{
		Value:    smt.BitVecValUint64(0, 256),
		InitCode: []byte{0x60, 0x01},
		GasLimit: 100000,
	}
	gs, addr, err := creation.Launch(world, sender)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if addr == (common.Address{}) {
		t.Fatal("Launch should derive a nonzero contract address")
	}
	if gs.Env.ActiveAccount != addr {
		t.Errorf("ActiveAccount = %v, want %v", gs.Env.ActiveAccount, addr)
	}
	frame, err := gs.Current()
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if !frame.IsCreate {
		t.Error("root frame should be marked IsCreate so a top-level RETURN installs runtime code")
	}
	if frame.CalleeAddr != addr {
		t.Errorf("CalleeAddr = %v, want %v", frame.CalleeAddr, addr)
	}
	if got := world.Account(addr).Code; len(got) != 2 || got[0] != 0x60 {
		t.Errorf("deployed account's code = %x, want the init code until RETURN installs runtime code", got)
	}
}

func TestContractCreationLaunchRequiresInitCode(t *testing.T) {
	world := state.NewWorldState(nil)
	creation := &ContractCreationTransaction{}
	if _, _, err := creation.Launch(world, common.HexToAddress("0x01")); err == nil {
		t.Error("Launch with nil InitCode should return an error")
	}
}

func TestContractCreationLaunchTransfersValueFromSender(t *testing.T) {
	world := state.NewWorldState(nil)
	sender := common.HexToAddress("0x02")
	world.Account(sender).Balance = smt.BitVecValUint64(100, 256)

	creation := &ContractCreationTransaction{
		Value:    smt.BitVecValUint64(30, 256),
		InitCode: []byte{0x00},
		GasLimit: 100000,
	}
	_, addr, err := creation.Launch(world, sender)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if got := world.Account(sender).Balance.Value().Uint64(); got != 70 {
		t.Errorf("sender balance = %d, want 70", got)
	}
	if got := world.Account(addr).Balance.Value().Uint64(); got != 30 {
		t.Errorf("new contract balance = %d, want 30", got)
	}
}

func TestMessageCallLaunchUsesDefaultsWhenFieldsNil(t *testing.T) {
	world := state.NewWorldState(nil)
	sender := common.HexToAddress("0x03")
	callee := common.HexToAddress("0x04")
	world.Account(callee).Code = []byte{0x00}

	call := &MessageCallTransaction{Callee: callee, GasLimit: 50000}
	gs, err := call.Launch(world, sender)
	if err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if gs.Env.ActiveAccount != callee {
		t.Errorf("ActiveAccount = %v, want %v", gs.Env.ActiveAccount, callee)
	}
	if gs.Env.Calldata.Size() != 0 {
		t.Error("nil Calldata should default to empty concrete calldata")
	}
	if got := gs.Env.CallValue.Value().Uint64(); got != 0 {
		t.Errorf("CallValue default = %d, want 0", got)
	}
}

func TestMessageCallLaunchTransfersValue(t *testing.T) {
	world := state.NewWorldState(nil)
	sender := common.HexToAddress("0x05")
	callee := common.HexToAddress("0x06")
	world.Account(sender).Balance = smt.BitVecValUint64(50, 256)

	call := &MessageCallTransaction{
		Callee:   callee,
		Value:    smt.BitVecValUint64(20, 256),
		GasLimit: 50000,
	}
	if _, err := call.Launch(world, sender); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if got := world.Account(sender).Balance.Value().Uint64(); got != 30 {
		t.Errorf("sender balance = %d, want 30", got)
	}
	if got := world.Account(callee).Balance.Value().Uint64(); got != 20 {
		t.Errorf("callee balance = %d, want 20", got)
	}
}

func TestMessageCallLaunchSymbolicValueDoesNotPanic(t *testing.T) {
	world := state.NewWorldState(nil)
	sender := common.HexToAddress("0x07")
	callee := common.HexToAddress("0x08")

	call := &MessageCallTransaction{
		Callee:   callee,
		Value:    smt.BitVecSym("value", 256),
		GasLimit: 50000,
	}
	if _, err := call.Launch(world, sender); err != nil {
		t.Fatalf("Launch: %v", err)
	}
	if world.Account(callee).Balance.IsConcrete() {
		t.Error("a symbolic transfer value should leave the callee's balance symbolic")
	}
}
