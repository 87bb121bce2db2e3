// Package tx implements the transaction sequencer (component G's
// transaction half; CFG construction lives in cfgraph): constructing a
// ContractCreationTransaction to obtain a contract's runtime code, then
// iteratively launching MessageCallTransactions against it, per spec.md
// §4.F's "Transaction sequencer" paragraph. Grounded on the teacher's
// pkg/core/state_transition.go for the overall shape (a struct that owns
// config, exposes one entry point per transaction kind, returns a result),
// generalized from "apply one concrete transaction to a StateDB" to
// "launch one transaction's root GlobalState and drain every state it
// forks into".
package tx

import (
	"fmt"

	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"
)

// ContractCreationTransaction runs initCode as a constructor against a
// fresh account address, installing whatever it RETURNs as the deployed
// runtime code. Every value-bearing field may be left symbolic.
type ContractCreationTransaction struct {
	Caller   *smt.BitVec // widened to 256 bits
	Origin   *smt.BitVec
	Value    *smt.BitVec
	InitCode []byte // always concrete: bytecode is supplied, never synthesised
	GasPrice *smt.BitVec
	GasLimit uint64
}

// MessageCallTransaction invokes an existing account's code with the given
// caller, value, and calldata. Calldata may be fully symbolic (the
// sequencer's default when none is supplied), fully concrete, or a mix.
type MessageCallTransaction struct {
	Caller   *smt.BitVec
	Origin   *smt.BitVec
	Callee   common.Address
	Value    *smt.BitVec
	Calldata *state.Calldata
	GasPrice *smt.BitVec
	GasLimit uint64
}

// newCreationAccount derives the contract address deterministically from
// sender/nonce -- keccak256(rlp([sender, nonce]))[12:], the same Yellow
// Paper ADDR formula vm's doCreate applies for a nested CREATE. Duplicated
// rather than imported since vm's deriveCreateAddress is unexported.
func newCreationAccount(world *state.WorldState, sender common.Address) common.Address {
	acc := world.Account(sender)
	nonce := acc.Nonce
	acc.Nonce++
	enc, err := rlp.EncodeToBytes([]interface{}{sender, nonce})
	if err != nil {
		return common.Address{}
	}
	return common.BytesToAddress(crypto.Keccak256(enc)[12:])
}

// Launch builds the root GlobalState for a ContractCreationTransaction:
// a fresh account at the derived address, its code set to InitCode (which
// executes as the constructor; a later RETURN installs the real runtime
// code, per vm.finishFrame's top-level IsCreate handling), and a root
// frame marked IsCreate so that handoff fires even though this frame has
// no caller to return into.
func (c *ContractCreationTransaction) Launch(world *state.WorldState, sender common.Address) (*state.GlobalState, common.Address, error) {
	if c.InitCode == nil {
		return nil, common.Address{}, fmt.Errorf("tx: ContractCreationTransaction requires InitCode")
	}
	newAddr := newCreationAccount(world, sender)
	newAcc := state.NewAccount(newAddr)
	newAcc.Code = c.InitCode
	newAcc.Nonce = 1
	world.SetAccount(newAcc)
	if c.Value != nil && sender != newAddr {
		newAcc.Balance = smt.Add(newAcc.Balance, c.Value)
		senderAcc := world.Account(sender)
		senderAcc.Balance = smt.Sub(senderAcc.Balance, c.Value)
	}

	env := &state.Environment{
		ActiveAccount: newAddr,
		Caller:        valueOr(c.Caller, state.AddressToBitVec(sender)),
		Origin:        valueOr(c.Origin, state.AddressToBitVec(sender)),
		CallValue:     valueOr(c.Value, smt.BitVecValUint64(0, 256)),
		Calldata:      state.ConcreteCalldata(nil),
		GasPrice:      valueOr(c.GasPrice, smt.BitVecValUint64(1, 256)),
		CodeAddress:   newAddr,
	}
	gs := state.NewGlobalState(world, env, c.GasLimit)
	root, err := gs.Current()
	if err != nil {
		return nil, common.Address{}, err
	}
	root.IsCreate = true
	root.CalleeAddr = newAddr
	return gs, newAddr, nil
}

// Launch builds the root GlobalState for a MessageCallTransaction against
// an already-deployed account.
func (m *MessageCallTransaction) Launch(world *state.WorldState, sender common.Address) (*state.GlobalState, error) {
	if m.Value != nil && sender != m.Callee {
		// smt.Add/Sub constant-fold when both operands are concrete and
		// otherwise build an unresolved term for the solver, so no
		// IsConcrete branch is needed here the way vm.transferValue's
		// callers branch on other operands.
		callee := world.Account(m.Callee)
		from := world.Account(sender)
		callee.Balance = smt.Add(callee.Balance, m.Value)
		from.Balance = smt.Sub(from.Balance, m.Value)
	}
	calldata := m.Calldata
	if calldata == nil {
		calldata = state.ConcreteCalldata(nil)
	}
	env := &state.Environment{
		ActiveAccount: m.Callee,
		Caller:        valueOr(m.Caller, state.AddressToBitVec(sender)),
		Origin:        valueOr(m.Origin, state.AddressToBitVec(sender)),
		CallValue:     valueOr(m.Value, smt.BitVecValUint64(0, 256)),
		Calldata:      calldata,
		GasPrice:      valueOr(m.GasPrice, smt.BitVecValUint64(1, 256)),
		CodeAddress:   m.Callee,
	}
	return state.NewGlobalState(world, env, m.GasLimit), nil
}

func valueOr(v *smt.BitVec, fallback *smt.BitVec) *smt.BitVec {
	if v != nil {
		return v
	}
	return fallback
}
