package vm

import (
	"github.com/eth2030/laser/precompiles"
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// callKind distinguishes the four CALL-family opcodes along the three axes
// they differ on: whether a value operand is present, whether the callee's
// code runs against the caller's own storage/balance (CALLCODE/
// DELEGATECALL), and whether it additionally inherits the caller's own
// Caller/CallValue instead of taking new ones (DELEGATECALL only).
type callKind struct {
	hasValue        bool
	keepStorageCtx  bool
	inheritCallerEnv bool
	static          bool
}

var (
	callKindCall         = callKind{hasValue: true}
	callKindCallCode     = callKind{hasValue: true, keepStorageCtx: true}
	callKindDelegateCall = callKind{keepStorageCtx: true, inheritCallerEnv: true}
	callKindStaticCall   = callKind{static: true}
)

// readMemoryArgsConcrete reads size bytes of call arguments out of frame's memory as
// a concrete byte slice, used both to build the callee's Calldata and as
// precompile input. Per the concrete/symbolic split this engine uses
// throughout (EXP, KECCAK256, precompiles), a call whose argument bytes
// aren't all concrete can't be handed to a nested frame's byte-exact
// Calldata or a precompile's Go implementation; the caller degrades to an
// unconstrained-result approximation instead.
func readMemoryArgsConcrete(frame *state.MachineState, offset, size uint64) ([]byte, bool) {
	if size == 0 {
		return nil, true
	}
	// Read one byte at a time rather than frame.Memory.Read(offset, size)
	// as a single term: the term layer folds an all-concrete Concat chain
	// into one constant stored in a 256-bit register, so a single read
	// wider than 32 bytes would silently truncate (the same hazard
	// opKeccak256 works around).
	out := make([]byte, size)
	for i := uint64(0); i < size; i++ {
		b := frame.Memory.Read(offset+i, 1)
		if !b.IsConcrete() {
			return nil, false
		}
		out[i] = byte(b.Value().Uint64())
	}
	return out, true
}

func doCall(d *Dispatcher, gs *state.GlobalState, kind callKind) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	gasWord, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	addrWord, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	var value *smt.BitVec
	if kind.hasValue {
		value, err = frame.Stack.Pop()
		if err != nil {
			return nil, err
		}
	} else {
		value = smt.BitVecValUint64(0, 256)
	}
	argsOffset, argsSize, retOffset, retSize, err := pop4(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !argsOffset.IsConcrete() || !argsSize.IsConcrete() || !retOffset.IsConcrete() || !retSize.IsConcrete() {
		return noSuccessors(), nil
	}
	ao, as := argsOffset.Value().Uint64(), argsSize.Value().Uint64()
	ro, rs := retOffset.Value().Uint64(), retSize.Value().Uint64()
	chargeMemory(frame, ao, as)
	chargeMemory(frame, ro, rs)

	target, resolved := resolveAddress(addrWord)

	callGas := frame.Gas.Min
	if gasWord.IsConcrete() {
		if requested := gasWord.Value().Uint64(); requested < callGas {
			callGas = requested
		}
	}
	frame.Gas.Charge(0, callGas, callGas)

	if !resolved {
		// Unresolvable callee: approximated as an unconstrained external
		// call -- a fresh symbolic success flag, no return data, no frame.
		clearReturnData(frame)
		return pushWord(gs, smt.FreshBitVec("call_success", 256))
	}

	if precompiles.IsPrecompile(target) {
		argBytes, ok := readMemoryArgsConcrete(frame, ao, as)
		if !ok {
			clearReturnData(frame)
			return pushWord(gs, smt.FreshBitVec("call_success", 256))
		}
		out, _, err := precompiles.Run(target, state.ConcreteCalldata(argBytes), callGas)
		success := err == nil
		writeCallReturn(frame, out, ro, rs, success)
		return pushWord(gs, boolToWord(smt.BoolVal(success)))
	}

	if frame.Depth+1 > d.CallDepthBound {
		clearReturnData(frame)
		return pushWord(gs, smt.BitVecValUint64(0, 256))
	}

	callee := gs.World.Account(target)
	if len(callee.Code) == 0 {
		// Calling an account with no code: a plain value transfer, always
		// succeeds (insufficient balance isn't modelled as a hard failure
		// here -- Balance is a symbolic term the solver may never pin down).
		if kind.hasValue {
			transferValue(gs, gs.Env.ActiveAccount, target, value)
		}
		clearReturnData(frame)
		return pushWord(gs, smt.BitVecValUint64(1, 256))
	}

	var argBytes []byte
	if as > 0 {
		var ok bool
		argBytes, ok = readMemoryArgsConcrete(frame, ao, as)
		if !ok {
			clearReturnData(frame)
			return pushWord(gs, smt.FreshBitVec("call_success", 256))
		}
	}

	storageCtx := target
	callerWidened := state.AddressToBitVec(gs.Env.ActiveAccount)
	calleeEnv := &state.Environment{
		ActiveAccount: storageCtx,
		Caller:        callerWidened,
		Origin:        gs.Env.Origin,
		CallValue:     value,
		Calldata:      state.ConcreteCalldata(argBytes),
		GasPrice:      gs.Env.GasPrice,
		CodeAddress:   target,
	}
	if kind.keepStorageCtx {
		calleeEnv.ActiveAccount = gs.Env.ActiveAccount
	}
	if kind.inheritCallerEnv {
		calleeEnv.Caller = gs.Env.Caller
		calleeEnv.CallValue = gs.Env.CallValue
	}

	if kind.hasValue && !kind.keepStorageCtx {
		transferValue(gs, gs.Env.ActiveAccount, target, value)
	}

	callee2 := state.NewMachineState(frame.Depth+1, callGas)
	callee2.CallerEnv = gs.Env
	callee2.ReturnOffset = ro
	callee2.ReturnSize = rs
	callee2.CalleeAddr = calleeEnv.ActiveAccount
	callee2.Static = frame.Static || kind.static
	gs.PushFrame(callee2)
	gs.Env = calleeEnv
	return oneSuccessor(gs), nil
}

func pop4(st *state.Stack) (a, b, c, d *smt.BitVec, err error) {
	a, b, err = pop2(st)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	c, d, err = pop2(st)
	if err != nil {
		return nil, nil, nil, nil, err
	}
	return a, b, c, d, nil
}

// clearReturnData resets a frame's return-data bookkeeping, used whenever a
// CALL/CREATE is approximated away (unresolved target, symbolic arguments)
// so a later RETURNDATACOPY doesn't read a stale result from a previous
// call on the same frame.
func clearReturnData(frame *state.MachineState) {
	frame.LastReturnData = nil
	frame.LastReturnDataBytes = nil
}

// transferValue moves value from from's balance to to's. Both balances are
// symbolic terms; the move is applied unconditionally (no insufficient-
// balance branch is forked) since this engine doesn't treat a negative
// resulting balance as itself meaningful -- a detector module reasoning
// about balance underflow does so from the path constraints, not from a
// dispatch-level guard.
func transferValue(gs *state.GlobalState, from, to common.Address, value *smt.BitVec) {
	if from == to {
		return
	}
	fromAcc := gs.World.Account(from)
	toAcc := gs.World.Account(to)
	fromAcc.Balance = smt.Sub(fromAcc.Balance, value)
	toAcc.Balance = smt.Add(toAcc.Balance, value)
}

// writeCallReturn splices up to min(len(out), retSize) bytes of out into
// frame's memory at retOffset, matching CALL's retOffset/retSize truncation
// rule.
func writeCallReturn(frame *state.MachineState, out []byte, retOffset, retSize uint64, success bool) {
	frame.LastReturnData = nil
	frame.LastReturnDataBytes = out
	if retSize == 0 || len(out) == 0 {
		return
	}
	n := retSize
	if uint64(len(out)) < n {
		n = uint64(len(out))
	}
	frame.Memory.WriteBytes(retOffset, out[:n])
}

func opCall(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return doCall(d, gs, callKindCall)
}

func opCallCode(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return doCall(d, gs, callKindCallCode)
}

func opDelegateCall(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return doCall(d, gs, callKindDelegateCall)
}

func opStaticCall(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return doCall(d, gs, callKindStaticCall)
}

// deriveCreateAddress computes CREATE's new contract address,
// keccak256(rlp([sender, nonce]))[12:], the Yellow Paper's ADDR formula.
func deriveCreateAddress(sender common.Address, nonce uint64) common.Address {
	enc, err := rlp.EncodeToBytes([]interface{}{sender, nonce})
	if err != nil {
		return common.Address{}
	}
	return common.BytesToAddress(crypto.Keccak256(enc)[12:])
}

// deriveCreate2Address computes CREATE2's new contract address,
// keccak256(0xff ++ sender ++ salt ++ keccak256(initCode))[12:].
func deriveCreate2Address(sender common.Address, salt [32]byte, initCode []byte) common.Address {
	initHash := crypto.Keccak256(initCode)
	buf := make([]byte, 0, 1+20+32+32)
	buf = append(buf, 0xff)
	buf = append(buf, sender.Bytes()...)
	buf = append(buf, salt[:]...)
	buf = append(buf, initHash...)
	return common.BytesToAddress(crypto.Keccak256(buf)[12:])
}

func doCreate(d *Dispatcher, gs *state.GlobalState, isCreate2 bool) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	value, offset, size, err := pop3(frame.Stack)
	if err != nil {
		return nil, err
	}
	var salt *smt.BitVec
	if isCreate2 {
		salt, err = frame.Stack.Pop()
		if err != nil {
			return nil, err
		}
	}
	if !offset.IsConcrete() || !size.IsConcrete() {
		clearReturnData(frame)
		return pushWord(gs, smt.FreshBitVec("create_addr", 256))
	}
	o, s := offset.Value().Uint64(), size.Value().Uint64()
	chargeMemory(frame, o, s)
	if frame.Depth+1 > d.CallDepthBound {
		clearReturnData(frame)
		return pushWord(gs, smt.BitVecValUint64(0, 256))
	}

	initCode, ok := readMemoryArgsConcrete(frame, o, s)
	if !ok {
		clearReturnData(frame)
		return pushWord(gs, smt.FreshBitVec("create_addr", 256))
	}

	sender := gs.Env.ActiveAccount
	senderAcc := gs.World.Account(sender)
	nonce := senderAcc.Nonce
	senderAcc.Nonce++

	var newAddr common.Address
	if isCreate2 {
		var saltBytes [32]byte
		if salt.IsConcrete() {
			saltBytes = salt.Value().Bytes32()
		}
		newAddr = deriveCreate2Address(sender, saltBytes, initCode)
	} else {
		newAddr = deriveCreateAddress(sender, nonce)
	}

	if gs.World.Exists(newAddr) && len(gs.World.Account(newAddr).Code) > 0 {
		// Address collision with an already-deployed contract: CREATE fails.
		clearReturnData(frame)
		return pushWord(gs, smt.BitVecValUint64(0, 256))
	}

	newAcc := state.NewAccount(newAddr)
	newAcc.Code = initCode // runs as the constructor; RETURN installs the real runtime code
	newAcc.Nonce = 1
	gs.World.SetAccount(newAcc)
	transferValue(gs, sender, newAddr, value)

	calleeEnv := &state.Environment{
		ActiveAccount: newAddr,
		Caller:        state.AddressToBitVec(sender),
		Origin:        gs.Env.Origin,
		CallValue:     value,
		Calldata:      state.ConcreteCalldata(nil),
		GasPrice:      gs.Env.GasPrice,
		CodeAddress:   newAddr,
	}
	callGas := frame.Gas.Min
	frame.Gas.Charge(0, callGas, callGas)
	child := state.NewMachineState(frame.Depth+1, callGas)
	child.CallerEnv = gs.Env
	child.IsCreate = true
	child.CalleeAddr = newAddr
	child.Static = frame.Static
	gs.PushFrame(child)
	gs.Env = calleeEnv
	return oneSuccessor(gs), nil
}

func opCreate(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return doCreate(d, gs, false)
}

func opCreate2(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return doCreate(d, gs, true)
}

// finishFrame pops the active frame and either ends the transaction (no
// caller remains) or hands control back to the caller: restoring its
// Environment, splicing return data into its memory (CALL-family) or
// installing it as the new account's runtime code (CREATE-family), and
// pushing the appropriate result word.
func finishFrame(gs *state.GlobalState, output []byte, success bool) ([]*state.GlobalState, error) {
	popped, err := gs.PopFrame()
	if err != nil {
		return nil, err
	}
	if gs.AtTopLevel() {
		// No caller frame to return into: this was the transaction's root
		// frame. A root ContractCreationTransaction frame (tx.Sequencer
		// marks it IsCreate, CalleeAddr) still needs its RETURN output
		// installed as the deployed account's runtime code, the same
		// bookkeeping a nested CREATE's return gets below.
		if popped.IsCreate {
			if success {
				gs.World.Account(popped.CalleeAddr).Code = output
			} else {
				gs.World.DeleteAccount(popped.CalleeAddr)
			}
		}
		return oneSuccessor(gs), nil
	}
	caller, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if popped.CallerEnv != nil {
		gs.Env = popped.CallerEnv
	}
	if popped.IsCreate {
		if success {
			gs.World.Account(popped.CalleeAddr).Code = output
			return pushWord(gs, state.AddressToBitVec(popped.CalleeAddr))
		}
		gs.World.DeleteAccount(popped.CalleeAddr)
		return pushWord(gs, smt.BitVecValUint64(0, 256))
	}
	writeCallReturn(caller, output, popped.ReturnOffset, popped.ReturnSize, success)
	return pushWord(gs, boolToWord(smt.BoolVal(success)))
}

func opReturn(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	offset, size, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !offset.IsConcrete() || !size.IsConcrete() {
		return noSuccessors(), nil
	}
	o, s := offset.Value().Uint64(), size.Value().Uint64()
	chargeMemory(frame, o, s)
	output, ok := readMemoryArgsConcrete(frame, o, s)
	if !ok {
		// Symbolic return data can't be installed as a new contract's code
		// or compared byte-exactly by a caller's RETURNDATACOPY; approximate
		// as a successful return of unconstrained size.
		output = nil
	}
	return finishFrame(gs, output, true)
}

func opRevert(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	offset, size, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !offset.IsConcrete() || !size.IsConcrete() {
		return noSuccessors(), nil
	}
	o, s := offset.Value().Uint64(), size.Value().Uint64()
	chargeMemory(frame, o, s)
	output, _ := readMemoryArgsConcrete(frame, o, s)
	return finishFrame(gs, output, false)
}

func opInvalid(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return finishFrame(gs, nil, false)
}

func opSelfdestruct(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	beneficiaryWord, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	self := gs.Env.ActiveAccount
	if beneficiary, ok := resolveAddress(beneficiaryWord); ok {
		transferValue(gs, self, beneficiary, gs.World.Account(self).Balance)
	}
	gs.World.DeleteAccount(self)
	return finishFrame(gs, nil, true)
}
