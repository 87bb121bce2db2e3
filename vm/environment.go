package vm

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
)

func pushWord(gs *state.GlobalState, w *smt.BitVec) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(w); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opAddress(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, state.AddressToBitVec(gs.Env.ActiveAccount))
}

func opBalance(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	addrWord, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	addr, ok := resolveAddress(addrWord)
	var bal *smt.BitVec
	if ok {
		bal = gs.World.Account(addr).Balance
	} else {
		bal = smt.FreshBitVec("balance", 256)
	}
	if err := frame.Stack.Push(bal); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opOrigin(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.Env.Origin)
}

func opCaller(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.Env.Caller)
}

func opCallValue(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.Env.CallValue)
}

func opCalldataLoad(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	offset, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	if !offset.IsConcrete() {
		return pushWord(gs, smt.FreshBitVec("calldataload", 256))
	}
	return pushWord(gs, gs.Env.Calldata.Load(offset.Value().Uint64()))
}

func opCalldataSize(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, smt.BitVecValUint64(uint64(gs.Env.Calldata.Size()), 256))
}

func copyToMemory(frame *state.MachineState, destOffset uint64, size uint64, chargeCopy bool, read func(size uint64) *smt.BitVec) {
	chargeMemory(frame, destOffset, size)
	if chargeCopy {
		words := (size + 31) / 32
		cost := words * GasCopy
		frame.Gas.Charge(0, cost, cost)
	}
	if size == 0 {
		return
	}
	frame.Memory.Write(destOffset, read(size))
}

func opCalldataCopy(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	destOffset, offset, size, err := pop3(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !destOffset.IsConcrete() || !offset.IsConcrete() || !size.IsConcrete() {
		return noSuccessors(), nil
	}
	do, o, s := destOffset.Value().Uint64(), offset.Value().Uint64(), size.Value().Uint64()
	copyToMemory(frame, do, s, true, func(sz uint64) *smt.BitVec { return gs.Env.Calldata.Copy(o, sz) })
	return oneSuccessor(gs), nil
}

func opCodeSize(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, smt.BitVecValUint64(uint64(len(d.codeOf(gs))), 256))
}

func opCodeCopy(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	destOffset, offset, size, err := pop3(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !destOffset.IsConcrete() || !offset.IsConcrete() || !size.IsConcrete() {
		return noSuccessors(), nil
	}
	do, o, s := destOffset.Value().Uint64(), offset.Value().Uint64(), size.Value().Uint64()
	code := d.codeOf(gs)
	chargeMemory(frame, do, s)
	words := (s + 31) / 32
	cost := words * GasCopy
	frame.Gas.Charge(0, cost, cost)
	frame.Memory.WriteBytes(do, sliceZeroPadded(code, o, s))
	return oneSuccessor(gs), nil
}

// sliceZeroPadded returns size bytes of data starting at offset, zero-padding
// past the end -- CODECOPY/EXTCODECOPY/RETURNDATACOPY's common read shape.
func sliceZeroPadded(data []byte, offset, size uint64) []byte {
	out := make([]byte, size)
	if offset >= uint64(len(data)) {
		return out
	}
	n := uint64(len(data)) - offset
	if n > size {
		n = size
	}
	copy(out, data[offset:offset+n])
	return out
}

func opGasPrice(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.Env.GasPrice)
}

func opExtcodesize(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	addrWord, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	addr, ok := resolveAddress(addrWord)
	var size uint64
	if ok {
		size = uint64(len(gs.World.Account(addr).Code))
	}
	if err := frame.Stack.Push(smt.BitVecValUint64(size, 256)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opExtcodecopy(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	addrWord, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	destOffset, offset, size, err := pop3(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !destOffset.IsConcrete() || !offset.IsConcrete() || !size.IsConcrete() {
		return noSuccessors(), nil
	}
	do, o, s := destOffset.Value().Uint64(), offset.Value().Uint64(), size.Value().Uint64()
	var code []byte
	if addr, ok := resolveAddress(addrWord); ok {
		code = gs.World.Account(addr).Code
	}
	chargeMemory(frame, do, s)
	words := (s + 31) / 32
	cost := words * GasCopy
	frame.Gas.Charge(0, cost, cost)
	frame.Memory.WriteBytes(do, sliceZeroPadded(code, o, s))
	return oneSuccessor(gs), nil
}

func opReturndataSize(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	var size uint64
	if frame.LastReturnDataBytes != nil {
		size = uint64(len(frame.LastReturnDataBytes))
	} else if frame.LastReturnData != nil {
		size = frame.LastReturnData.Width() / 8
	}
	return pushWord(gs, smt.BitVecValUint64(size, 256))
}

func opReturndataCopy(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	destOffset, offset, size, err := pop3(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !destOffset.IsConcrete() || !offset.IsConcrete() || !size.IsConcrete() {
		return noSuccessors(), nil
	}
	do, o, s := destOffset.Value().Uint64(), offset.Value().Uint64(), size.Value().Uint64()
	chargeMemory(frame, do, s)
	if s == 0 {
		return oneSuccessor(gs), nil
	}
	if frame.LastReturnDataBytes != nil {
		if o+s > uint64(len(frame.LastReturnDataBytes)) {
			return noSuccessors(), nil
		}
		frame.Memory.WriteBytes(do, frame.LastReturnDataBytes[o:o+s])
		return oneSuccessor(gs), nil
	}
	if frame.LastReturnData == nil {
		frame.Memory.WriteBytes(do, make([]byte, s))
		return oneSuccessor(gs), nil
	}
	retWidth := frame.LastReturnData.Width()
	retBytes := retWidth / 8
	if o+s > retBytes {
		return noSuccessors(), nil
	}
	hi := retWidth - 1 - 8*uint(o)
	lo := hi - 8*uint(s) + 1
	frame.Memory.Write(do, smt.Extract(hi, lo, frame.LastReturnData))
	return oneSuccessor(gs), nil
}

func opExtcodehash(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	addrWord, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	addr, ok := resolveAddress(addrWord)
	var hashWord *smt.BitVec
	if ok && gs.World.Exists(addr) {
		acc := gs.World.Account(addr)
		if len(acc.Code) == 0 {
			hashWord = smt.BitVecValUint64(0, 256)
		} else {
			hashWord = hashConcreteBytes(acc.Code)
		}
	} else {
		hashWord = smt.BitVecValUint64(0, 256)
	}
	if err := frame.Stack.Push(hashWord); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opBlockhash(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if _, err := frame.Stack.Pop(); err != nil {
		return nil, err
	}
	// Block hashes of arbitrary prior blocks aren't modelled; a fresh
	// symbolic word matches the "this history isn't reasoned about
	// precisely" degrade pattern used throughout this file.
	if err := frame.Stack.Push(smt.FreshBitVec("blockhash", 256)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opCoinbase(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.World.Block.Coinbase)
}

func opTimestamp(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.World.Block.Timestamp)
}

func opNumber(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.World.Block.Number)
}

func opPrevRandao(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, smt.FreshBitVec("prevrandao", 256))
}

func opGasLimit(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.World.Block.GasLimit)
}

func opChainID(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.World.Block.ChainID)
}

func opSelfBalance(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.World.Account(gs.Env.ActiveAccount).Balance)
}

func opBaseFee(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, gs.World.Block.BaseFee)
}

func opBlobHash(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if _, err := frame.Stack.Pop(); err != nil {
		return nil, err
	}
	// No blob-carrying transaction is modelled; EIP-4844 versioned hashes
	// read as concrete zero (the "index out of range" case).
	if err := frame.Stack.Push(smt.BitVecValUint64(0, 256)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opBlobBaseFee(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return pushWord(gs, smt.BitVecValUint64(1, 256))
}
