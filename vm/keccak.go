package vm

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/holiman/uint256"
)

// symbolicHashCache gives KECCAK256 of non-concrete input a weak determinism
// guarantee within a single run: the same symbolic input term (by its
// structural string form) always hashes to the same fresh symbolic output,
// rather than a new unconstrained variable every time the same expression
// is hashed along different paths. The term layer has no native hash
// operator (keccak256 isn't an SMT primitive any more than EXP is), so this
// is the same concrete-or-approximate pattern opExp uses.
var symbolicHashCache = map[string]*smt.BitVec{}

func hashConcreteBytes(data []byte) *smt.BitVec {
	h := crypto.Keccak256(data)
	return smt.BitVecVal(new(uint256.Int).SetBytes(h), 256)
}

func hashSymbolic(input *smt.BitVec) *smt.BitVec {
	key := input.String()
	if cached, ok := symbolicHashCache[key]; ok {
		return cached
	}
	fresh := smt.FreshBitVec("keccak256", 256)
	symbolicHashCache[key] = fresh
	return fresh
}

func opKeccak256(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
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
	words := (s + 31) / 32
	cost := words * GasKeccak256Word
	frame.Gas.Charge(0, cost, cost)

	if s == 0 {
		return pushWord(gs, hashConcreteBytes(nil))
	}

	// Read byte-by-byte rather than as one s*8-bit term: the term layer's
	// concrete constant folding stores values in a 256-bit register, so a
	// single Concat spanning more than 32 bytes of all-concrete input would
	// silently truncate. Reading one byte at a time keeps every folded
	// constant within 8 bits.
	raw := make([]byte, s)
	allConcrete := true
	for i := uint64(0); i < s; i++ {
		b := frame.Memory.Read(o+i, 1)
		if !b.IsConcrete() {
			allConcrete = false
			break
		}
		raw[i] = byte(b.Value().Uint64())
	}

	var result *smt.BitVec
	if allConcrete {
		result = hashConcreteBytes(raw)
	} else {
		result = hashSymbolic(frame.Memory.Read(o, s))
	}
	if err := frame.Stack.Push(result); err != nil {
		return nil, err
	}
	return oneSuccessor(gs), nil
}
