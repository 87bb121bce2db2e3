package state

import (
	"github.com/eth2030/laser/smt"
	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Environment is the active transaction's read-only context: which account
// is executing, who called it, the original transaction sender, the value
// attached, the calldata, and the gas price. Every value-bearing field is a
// term so a transaction can be constructed with some or all of them left
// symbolic (the transaction sequencer's "fresh symbolic caller/value/
// calldata per transaction" requirement).
type Environment struct {
	ActiveAccount common.Address
	Caller        *smt.BitVec // address widened to 256 bits
	Origin        *smt.BitVec
	CallValue     *smt.BitVec
	Calldata      *Calldata
	GasPrice      *smt.BitVec

	// CodeAddress is the account whose code is actually executing. Equal to
	// ActiveAccount for everything except CALLCODE/DELEGATECALL, where the
	// caller's own storage/balance stays active but the target's code runs
	// against it. The zero address means "same as ActiveAccount", so
	// Environments built before this field existed still behave the same.
	CodeAddress common.Address
}

// Clone returns a copy of e. Every field is either immutable (terms) or
// read-only for the environment's lifetime (Calldata), so this is a
// shallow copy; it exists for symmetry with the rest of the state package's
// Clone methods and to make a future mutable field safe to add.
func (e *Environment) Clone() *Environment {
	cp := *e
	return &cp
}

// AddressToBitVec widens a 20-byte address to a 256-bit term, the
// representation used on the stack and in the Environment.
func AddressToBitVec(addr common.Address) *smt.BitVec {
	var buf [32]byte
	copy(buf[12:], addr.Bytes())
	return smt.BitVecVal(new(uint256.Int).SetBytes32(buf[:]), 256)
}
