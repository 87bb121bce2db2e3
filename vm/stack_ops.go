package vm

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/holiman/uint256"
)

func opPush0(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	if err := frame.Stack.Push(smt.BitVecValUint64(0, 256)); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}

// makePush returns the executionFunc for PUSHn, reading n bytes of
// immediate data from code at PC+1 and advancing PC past them. Grounded on
// the teacher's makePush, which reads the n-byte immediate the same way;
// here the immediate is always concrete (bytecode itself is never
// symbolic), so the pushed word is a plain BitVecVal.
func makePush(n uint64) executionFunc {
	return func(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
		frame, err := gs.Current()
		if err != nil {
			return nil, err
		}
		code := d.codeOf(gs)
		start := frame.PC + 1
		buf := make([]byte, n)
		for i := uint64(0); i < n; i++ {
			idx := start + i
			if idx < uint64(len(code)) {
				buf[i] = code[idx]
			}
		}
		val := smt.BitVecVal(new(uint256.Int).SetBytes(buf), 256)
		if err := frame.Stack.Push(val); err != nil {
			return nil, err
		}
		// Dispatcher.Step's uniform pc++ accounts for the opcode byte
		// itself; the n immediate bytes are skipped here, matching the
		// teacher's makePush (*pc += size, with the loop's pc++ after).
		frame.PC += n
		return oneSuccessor(gs), nil
	}
}

// makeDup returns the executionFunc for DUPn.
func makeDup(n int) executionFunc {
	return func(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
		frame, err := gs.Current()
		if err != nil {
			return nil, err
		}
		if err := frame.Stack.Dup(n); err != nil {
			return nil, err
		}
		return oneSuccessor(gs), nil
	}
}

// makeSwap returns the executionFunc for SWAPn.
func makeSwap(n int) executionFunc {
	return func(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
		frame, err := gs.Current()
		if err != nil {
			return nil, err
		}
		if err := frame.Stack.Swap(n); err != nil {
			return nil, err
		}
		return oneSuccessor(gs), nil
	}
}
