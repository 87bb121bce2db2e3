package state

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/smt/solver"
	"github.com/ethereum/go-ethereum/common"
)

// BlockContext carries the block-level terms an instruction transformer
// may read (NUMBER, TIMESTAMP, COINBASE, GASLIMIT, BASEFEE, CHAINID); every
// field is a term so a caller can leave any of them symbolic.
type BlockContext struct {
	Number    *smt.BitVec
	Timestamp *smt.BitVec
	Coinbase  *smt.BitVec // address, widened to 256 bits
	GasLimit  *smt.BitVec
	BaseFee   *smt.BitVec
	ChainID   *smt.BitVec
}

// DefaultBlockContext returns a BlockContext with plausible concrete
// defaults, useful for tests and for callers that don't need a symbolic
// block environment.
func DefaultBlockContext() BlockContext {
	z := func(v uint64) *smt.BitVec { return smt.BitVecValUint64(v, 256) }
	return BlockContext{
		Number:    z(1),
		Timestamp: z(0),
		Coinbase:  z(0),
		GasLimit:  z(30_000_000),
		BaseFee:   z(0),
		ChainID:   z(1),
	}
}

// WorldState maps account addresses to accounts and owns the path's
// Constraints, since constraints accumulate over a path rather than a
// machine frame. Cloning is shallow over the accounts map entries
// themselves (Account.Clone is called per-entry so branching executions
// cannot observe each other's writes) but deep enough to satisfy the
// fork-purity invariant.
type WorldState struct {
	accounts map[common.Address]*Account
	Block    BlockContext
	Path     *solver.Constraints
}

// NewWorldState returns an empty world state backed by a fresh Constraints
// set using the given solver (nil selects solver.IntervalSolver).
func NewWorldState(s solver.Solver) *WorldState {
	return &WorldState{
		accounts: make(map[common.Address]*Account),
		Block:    DefaultBlockContext(),
		Path:     solver.NewConstraints(s),
	}
}

// Account returns the account at addr, creating an empty one on first
// access (matches EVM semantics: every address has an implicit account).
func (w *WorldState) Account(addr common.Address) *Account {
	if a, ok := w.accounts[addr]; ok {
		return a
	}
	a := NewAccount(addr)
	w.accounts[addr] = a
	return a
}

// SetAccount installs acc at its own address, overwriting any existing
// entry. Used when materializing a prestate.
func (w *WorldState) SetAccount(acc *Account) {
	w.accounts[acc.Address] = acc
}

// Exists reports whether addr has an entry in the world state without the
// create-on-access side effect of Account.
func (w *WorldState) Exists(addr common.Address) bool {
	_, ok := w.accounts[addr]
	return ok
}

// DeleteAccount marks the account at addr as deleted (SELFDESTRUCT). The
// entry is kept, not removed, so EIP-158 empty-account-cleanup semantics
// (observing whether an address was ever touched) remain expressible by a
// caller.
func (w *WorldState) DeleteAccount(addr common.Address) {
	w.Account(addr).Deleted = true
}

// Clone returns a world state whose accounts and constraints are
// independent of w: forking w and writing through the clone must never
// become visible on w.
func (w *WorldState) Clone() *WorldState {
	accounts := make(map[common.Address]*Account, len(w.accounts))
	for addr, a := range w.accounts {
		accounts[addr] = a.Clone()
	}
	return &WorldState{
		accounts: accounts,
		Block:    w.Block,
		Path:     w.Path.Clone(),
	}
}

// Accounts returns the address set materialized in the world state, for
// iteration by callers that need to snapshot or render the full prestate.
func (w *WorldState) Accounts() map[common.Address]*Account {
	return w.accounts
}
