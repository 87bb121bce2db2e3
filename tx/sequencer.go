package tx

import (
	"fmt"
	"time"

	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/eth2030/laser/strategy"
	"github.com/eth2030/laser/vm"
	"github.com/ethereum/go-ethereum/common"
)

// Config controls the sequencer's transaction loop. Named to mirror the
// configuration fields SPEC_FULL.md's engine.Config carries for this
// package; engine.Config embeds (or copies into) a tx.Config when it
// builds a Sequencer.
type Config struct {
	// TransactionCount is how many MessageCallTransactions follow the
	// initial ContractCreationTransaction.
	TransactionCount int
	// GasLimit is the starting gas envelope for every transaction's root
	// frame.
	GasLimit uint64
	// SymbolicCalldataBound is the byte length of the fresh symbolic
	// calldata generated for each message-call transaction when the
	// caller doesn't supply concrete calldata.
	SymbolicCalldataBound int
	// MaxDepth bounds the instruction count of any one state within a
	// single transaction's drain (0 = unbounded), applied via
	// strategy.DepthBounded.
	MaxDepth uint64
	// StrategyName selects the worklist implementation backing each
	// transaction's drain: "dfs" (default), "bfs", or "delay-constraint".
	// Unrecognized or empty names fall back to "dfs".
	StrategyName string
}

// newWorklist builds the strategy.Worklist named by cfg.StrategyName,
// wrapped in strategy.DepthBounded per cfg.MaxDepth.
func newWorklist(cfg Config) strategy.Worklist {
	var base strategy.Worklist
	switch cfg.StrategyName {
	case "bfs":
		base = strategy.NewBFS()
	case "delay-constraint":
		base = strategy.NewDelayConstraint()
	default:
		base = strategy.NewDFS()
	}
	return strategy.NewDepthBounded(base, cfg.MaxDepth)
}

// Sequencer is the top-level loop named component G in spec.md §2: it owns
// a vm.Dispatcher and drives one ContractCreationTransaction followed by
// Config.TransactionCount MessageCallTransactions, draining every state
// each transaction forks into before starting the next. Grounded on the
// teacher's pkg/core/state_transition.go's StateTransition (a struct
// wrapping config plus an ApplyBlock loop over transactions), generalized
// from "one concrete transaction each" to "one transaction launches a
// whole forked state tree that must be fully drained".
type Sequencer struct {
	Dispatcher *vm.Dispatcher
	Config     Config

	// Deadline is the cooperative cancellation point spec.md §5 describes:
	// polled between instructions inside drain, never pre-empted. The zero
	// value disables it, so a caller that never sets it gets the previous
	// always-run-to-completion behavior.
	Deadline time.Time

	// Partial is set once Deadline elapses, either mid-drain or between
	// transactions; Run stops launching further transactions once it sees
	// this, matching spec.md §7's "the scheduler surfaces partial results
	// and a warning" policy.
	Partial bool
}

// NewSequencer returns a Sequencer wired to d per cfg.
func NewSequencer(d *vm.Dispatcher, cfg Config) *Sequencer {
	return &Sequencer{Dispatcher: d, Config: cfg}
}

// expired reports whether Deadline is set and has passed.
func (s *Sequencer) expired() bool {
	return !s.Deadline.IsZero() && !time.Now().Before(s.Deadline)
}

// Run launches a ContractCreationTransaction for initCode against a fresh
// account (sender as the creator), then iterates Config.TransactionCount
// MessageCallTransactions against the deployed contract, each with fresh
// symbolic caller/value/calldata so a solver can later synthesise a
// concrete witness sequence (spec.md §4.F). Transient storage is cleared
// on every account between transactions (EIP-1153: never observable across
// transaction boundaries). It returns every terminal global state produced
// across the whole run and the address the contract was deployed to.
func (s *Sequencer) Run(world *state.WorldState, sender common.Address, initCode []byte) ([]*state.GlobalState, common.Address, error) {
	creation := &ContractCreationTransaction{
		Caller:   smt.BitVecSym("creator", 256),
		Origin:   smt.BitVecSym("creator", 256),
		Value:    smt.BitVecValUint64(0, 256),
		InitCode: initCode,
		GasPrice: smt.BitVecSym("gasprice_create", 256),
		GasLimit: s.Config.GasLimit,
	}
	root, contractAddr, err := creation.Launch(world, sender)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("tx: launching creation transaction: %w", err)
	}

	var all []*state.GlobalState
	terminal, err := s.drain(root)
	if err != nil {
		return nil, common.Address{}, fmt.Errorf("tx: draining creation transaction: %w", err)
	}
	all = append(all, terminal...)

	for i := 0; i < s.Config.TransactionCount; i++ {
		if s.expired() {
			s.Partial = true
			break
		}
		s.clearTransientStorage(world)

		call := &MessageCallTransaction{
			Caller:   smt.BitVecSym(fmt.Sprintf("caller_%d", i), 256),
			Origin:   smt.BitVecSym(fmt.Sprintf("origin_%d", i), 256),
			Callee:   contractAddr,
			Value:    smt.BitVecSym(fmt.Sprintf("value_%d", i), 256),
			Calldata: state.SymbolicCalldata(fmt.Sprintf("calldata_%d", i), s.Config.SymbolicCalldataBound),
			GasPrice: smt.BitVecSym(fmt.Sprintf("gasprice_%d", i), 256),
			GasLimit: s.Config.GasLimit,
		}
		callRoot, err := call.Launch(world, sender)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("tx: launching message call %d: %w", i, err)
		}
		terminal, err := s.drain(callRoot)
		if err != nil {
			return nil, common.Address{}, fmt.Errorf("tx: draining message call %d: %w", i, err)
		}
		all = append(all, terminal...)
	}
	return all, contractAddr, nil
}

// drain runs root and every state it forks into to completion, returning
// the states that reached a terminal point: either every frame popped
// (the transaction finished normally) or Dispatcher.Step reported a
// dead end (stack underflow, undefined opcode, a bound exceeded). A fresh
// worklist (Config.StrategyName, depth-bounded per Config.MaxDepth) backs
// the drain; nothing about a single transaction's internal fork tree needs
// a shared worklist across transactions, so each call starts clean.
func (s *Sequencer) drain(root *state.GlobalState) ([]*state.GlobalState, error) {
	wl := newWorklist(s.Config)
	wl.Append(root)

	var terminal []*state.GlobalState
	for {
		if s.expired() {
			s.Partial = true
			break
		}
		gs, ok := wl.PickNext()
		if !ok {
			break
		}
		successors, err := s.Dispatcher.Step(gs)
		if err != nil {
			return nil, err
		}
		if len(successors) == 0 {
			terminal = append(terminal, gs)
			continue
		}
		if gs.AtTopLevel() {
			// The transaction's root frame just finished (RETURN/STOP/
			// REVERT popped it); successors[0] is gs itself with an empty
			// Frames slice, nothing further to step.
			terminal = append(terminal, successors[0])
			continue
		}
		for _, succ := range successors {
			wl.Append(succ)
		}
	}
	return terminal, nil
}

// clearTransientStorage discards every account's EIP-1153 journal,
// required at each transaction boundary per spec.md §4.F and grounded on
// TransientStorage.Clear's own doc comment.
func (s *Sequencer) clearTransientStorage(world *state.WorldState) {
	for _, acc := range world.Accounts() {
		acc.Transient.Clear()
	}
}
