package state

import (
	"github.com/eth2030/laser/smt"
	"github.com/ethereum/go-ethereum/common"
)

// Account is one entry of the world state: balance and persistent storage
// are symbolic terms (so a transaction can reason about them under path
// constraints), code is concrete (bytecode is supplied by the external
// disassembler, never synthesised).
type Account struct {
	Address   common.Address
	Balance   *smt.BitVec // width 256
	Nonce     uint64
	Code      []byte
	CodeHash  common.Hash
	Storage   *smt.Array // 256 -> 256, persistent (SLOAD/SSTORE)
	Transient *TransientStorage
	Deleted   bool
}

// NewAccount returns a fresh account with zero balance, empty code, and
// storage that reads as a concrete zero until written -- the common case
// for an address the engine has not yet materialized a concrete prestate
// for.
func NewAccount(addr common.Address) *Account {
	zero256 := smt.BitVecValUint64(0, 256)
	return &Account{
		Address:   addr,
		Balance:   zero256,
		Storage:   smt.K(256, smt.BitVecValUint64(0, 256)),
		Transient: NewTransientStorage(smt.BitVecValUint64(0, 256)),
	}
}

// SLoad reads persistent storage slot key.
func (a *Account) SLoad(key *smt.BitVec) *smt.BitVec {
	return a.Storage.Select(key)
}

// SStore writes value to persistent storage slot key. Per the spec's
// dispatch design, the caller is responsible for making the write
// conditional on the active path constraint when semantics require it
// (e.g. under a speculative branch); SStore itself always applies.
func (a *Account) SStore(key, value *smt.BitVec) {
	a.Storage = a.Storage.Store(key, value)
}

// Clone returns a deep-enough copy that a write through the clone is never
// observable through a. Storage and Balance are immutable smt terms, so
// only Transient (mutable journal) and Code (mutable slice) need an actual
// copy.
func (a *Account) Clone() *Account {
	cp := *a
	cp.Transient = a.Transient.Clone()
	if a.Code != nil {
		cp.Code = make([]byte, len(a.Code))
		copy(cp.Code, a.Code)
	}
	return &cp
}
