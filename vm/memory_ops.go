package vm

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
)

func opPop(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if _, err := frame.Stack.Pop(); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opMload(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	offset, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	if !offset.IsConcrete() {
		return noSuccessors(), nil
	}
	o := offset.Value().Uint64()
	chargeMemory(frame, o, 32)
	if err := frame.Stack.Push(frame.Memory.Read(o, 32)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opMstore(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	offset, value, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !offset.IsConcrete() {
		return noSuccessors(), nil
	}
	o := offset.Value().Uint64()
	chargeMemory(frame, o, 32)
	frame.Memory.Write(o, value)
	return oneSuccessor(gs), nil
}

func opMstore8(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	offset, value, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if !offset.IsConcrete() {
		return noSuccessors(), nil
	}
	o := offset.Value().Uint64()
	chargeMemory(frame, o, 1)
	frame.Memory.Write(o, smt.Extract(7, 0, value))
	return oneSuccessor(gs), nil
}

func opSload(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	key, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	acc := gs.World.Account(gs.Env.ActiveAccount)
	if err := frame.Stack.Push(acc.SLoad(key)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opSstore(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	key, value, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	gs.World.Account(gs.Env.ActiveAccount).SStore(key, value)
	return oneSuccessor(gs), nil
}

func opPc(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(smt.BitVecValUint64(frame.PC, 256)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opMsize(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(smt.BitVecValUint64(uint64(frame.Memory.Len()), 256)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opGas(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	// Pushes the envelope's minimum remaining: a detector reasoning about
	// gas-dependent branches sees the pessimistic bound.
	if err := frame.Stack.Push(smt.BitVecValUint64(frame.Gas.Min, 256)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opJumpdest(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return oneSuccessor(gs), nil
}

func opTload(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	key, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	acc := gs.World.Account(gs.Env.ActiveAccount)
	if err := frame.Stack.Push(acc.Transient.Load(key)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opTstore(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	key, value, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	gs.World.Account(gs.Env.ActiveAccount).Transient.Store(key, value)
	return oneSuccessor(gs), nil
}

func opMcopy(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
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
	if s == 0 {
		return oneSuccessor(gs), nil
	}
	chargeMemory(frame, do, s)
	chargeMemory(frame, o, s)
	words := (s + 31) / 32
	cost := words * GasMcopyBase
	frame.Gas.Charge(0, cost, cost)
	data := frame.Memory.Read(o, s)
	frame.Memory.Write(do, data)
	return oneSuccessor(gs), nil
}
