package vm

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/holiman/uint256"
)

// pop2 pops the two operands most opcodes need, top of stack first (matching
// the teacher's x, y := stack.pop(), stack.pop() convention where x is the
// operand closer to the top).
func pop2(st *state.Stack) (x, y *smt.BitVec, err error) {
	x, err = st.Pop()
	if err != nil {
		return nil, nil, err
	}
	y, err = st.Pop()
	if err != nil {
		return nil, nil, err
	}
	return x, y, nil
}

func pop3(st *state.Stack) (x, y, z *smt.BitVec, err error) {
	x, y, err = pop2(st)
	if err != nil {
		return nil, nil, nil, err
	}
	z, err = st.Pop()
	if err != nil {
		return nil, nil, nil, err
	}
	return x, y, z, nil
}

// binop pops two words, applies f, pushes the result, and returns gs as its
// own sole successor -- the shape of every straight-line arithmetic/bitwise
// opcode.
func binop(gs *state.GlobalState, f func(a, b *smt.BitVec) *smt.BitVec) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	a, b, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(f(a, b)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opStop(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return finishFrame(gs, nil, true)
}

func opAdd(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.Add)
}

func opMul(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.Mul)
}

func opSub(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.Sub)
}

func opDiv(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.UDiv)
}

func opSdiv(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.SDiv)
}

func opMod(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.URem)
}

func opSmod(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.SRem)
}

func opAddmod(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	a, b, n, err := pop3(frame.Stack)
	if err != nil {
		return nil, err
	}
	sum := smt.ZeroExt(256, a)
	sum = smt.Add(sum, smt.ZeroExt(256, b))
	wideMod := smt.URem(sum, smt.ZeroExt(256, n))
	if err := frame.Stack.Push(smt.Extract(255, 0, wideMod)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opMulmod(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	a, b, n, err := pop3(frame.Stack)
	if err != nil {
		return nil, err
	}
	prod := smt.Mul(smt.ZeroExt(256, a), smt.ZeroExt(256, b))
	wideMod := smt.URem(prod, smt.ZeroExt(256, n))
	if err := frame.Stack.Push(smt.Extract(255, 0, wideMod)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

// opExp computes concrete exponentiation directly (the term layer has no
// native Exp operator); when either operand is symbolic it returns a fresh
// symbolic word, the same degrade-to-approximation pattern used elsewhere
// for operations the solver can't usefully reason about precisely (storage
// reads under a symbolic key, KECCAK256 of symbolic input).
func opExp(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	base, exponent, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}

	dynGas := GasExtStep * uint64(byteLen(exponent))
	frame.Gas.Charge(0, dynGas, dynGas)

	var result *smt.BitVec
	if base.IsConcrete() && exponent.IsConcrete() {
		r := new(uint256.Int).Exp(base.Value(), exponent.Value())
		result = smt.BitVecVal(r, 256)
	} else {
		result = smt.FreshBitVec("exp", 256)
	}
	if err := frame.Stack.Push(result); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

// byteLen returns the number of significant bytes in a concrete exponent
// (used for EXP's dynamic gas); a symbolic exponent is charged as if it
// were the full 32 bytes, the conservative upper bound.
func byteLen(b *smt.BitVec) int {
	if !b.IsConcrete() {
		return 32
	}
	buf := b.Value().Bytes32()
	n := 0
	for i := 0; i < 32; i++ {
		if buf[i] != 0 {
			n = 32 - i
			break
		}
	}
	return n
}

func opSignExtend(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	b, x, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	var result *smt.BitVec
	if b.IsConcrete() {
		bn := b.Value()
		if bn.Cmp(uint256.NewInt(31)) >= 0 {
			result = x
		} else {
			byteIdx := uint(bn.Uint64())
			signBit := byteIdx*8 + 7
			lo := smt.Extract(signBit, 0, x)
			result = smt.SignExt(256-(signBit+1), lo)
		}
	} else {
		// Unresolvable without a concrete byte index; approximate with a
		// fresh symbolic word rather than attempt a 32-way ITE expansion.
		result = smt.FreshBitVec("signextend", 256)
	}
	if err := frame.Stack.Push(result); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func boolToWord(cond *smt.Bool) *smt.BitVec {
	return smt.Ite(cond, smt.BitVecValUint64(1, 256), smt.BitVecValUint64(0, 256))
}

func cmpop(gs *state.GlobalState, f func(a, b *smt.BitVec) *smt.Bool) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	a, b, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(boolToWord(f(a, b))); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opLt(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return cmpop(gs, smt.ULT)
}

func opGt(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return cmpop(gs, smt.UGT)
}

func opSlt(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return cmpop(gs, smt.SLT)
}

func opSgt(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return cmpop(gs, smt.SGT)
}

func opEq(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return cmpop(gs, smt.Eq)
}

func opIsZero(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	a, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	cond := smt.Eq(a, smt.BitVecValUint64(0, a.Width()))
	if err := frame.Stack.Push(boolToWord(cond)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opAnd(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.And)
}

func opOr(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.Or)
}

func opXor(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	return binop(gs, smt.Xor)
}

func opNot(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	a, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(smt.Not(a)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opByte(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	i, x, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	var result *smt.BitVec
	if i.IsConcrete() && i.Value().Cmp(uint256.NewInt(32)) < 0 {
		byteIdx := uint(i.Value().Uint64())
		hi := 255 - byteIdx*8
		lo := hi - 7
		result = smt.ZeroExt(248, smt.Extract(hi, lo, x))
	} else if i.IsConcrete() {
		result = smt.BitVecValUint64(0, 256)
	} else {
		result = smt.FreshBitVec("byte", 256)
	}
	if err := frame.Stack.Push(result); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opSHL(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	shift, value, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(smt.Shl(value, shift)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opSHR(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	shift, value, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(smt.LShr(value, shift)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

func opSAR(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	shift, value, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(smt.AShr(value, shift)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}
