// Package engine composes the term layer, constraints, world/machine/global
// state, instruction dispatch, CFG construction, the transaction sequencer,
// the worklist strategy, the precompile registry, and the detection-module
// hook bus into the single entry point external callers (disassemblers,
// CLIs, report renderers) use. Grounded on the teacher's
// core.StateProcessor (pkg/core/processor.go): a struct wrapping a config,
// exposing one Process-style entry point, returning results plus an error;
// generalized here from "apply a block's transactions against a StateDB"
// to "run a contract-creation transaction plus a configured number of
// message calls against a symbolic world state and report every issue a
// registered detector raised along the way".
package engine

// Config is the engine's explicit, no-ambient-state configuration, naming
// exactly the fields spec.md's external-interfaces section lists. A caller
// builds this directly or via its own flag/env layer; no CLI flag parsing
// lives in this package.
type Config struct {
	// MaxDepth bounds the instruction count of any single explored state
	// (0 = unbounded).
	MaxDepth uint64
	// TransactionCount is how many MessageCallTransactions follow the
	// initial ContractCreationTransaction.
	TransactionCount int
	// CallDepthBound bounds CALL-family nesting depth.
	CallDepthBound int
	// StrategyName selects the worklist: "dfs" (default), "bfs", or
	// "delay-constraint".
	StrategyName string
	// SolverTimeoutMS bounds a single solver query. Zero means no timeout;
	// IntervalSolver is synchronous and doesn't observe this field itself,
	// but an external Solver implementation may.
	SolverTimeoutMS int
	// ExecutionTimeoutMS bounds the whole-run wall clock, creation
	// transaction included. Cooperative: a deadline polled between
	// instructions, not a hard preemption. CreateTimeoutMS is accepted but
	// not enforced: the creation transaction has no deadline of its own.
	CreateTimeoutMS    int
	ExecutionTimeoutMS int
	// SymbolicCalldataBound is the byte length of the fresh symbolic
	// calldata generated per message-call transaction.
	SymbolicCalldataBound int
	// ParallelSolving enables coarse-grained parallelism across independent
	// worklists. Not yet implemented by this single-threaded engine; kept
	// as a recognized, currently-inert field so callers built against the
	// full configuration surface don't break when it is.
	ParallelSolving bool
	// DisableDependencyPruning turns off Constraints' independence
	// optimizer, useful for debugging a solver discrepancy against the
	// naive single-partition path.
	DisableDependencyPruning bool
	// GasLimit is the starting gas envelope for every transaction's root
	// frame. Not named directly in spec.md's configuration list but
	// required to construct one; defaulted by DefaultConfig.
	GasLimit uint64
}

// DefaultConfig returns a Config with conservative defaults suitable for a
// single small contract: a handful of message-call transactions, an
// unbounded-looking but practically safe depth bound, and DFS exploration.
func DefaultConfig() Config {
	return Config{
		MaxDepth:              100_000,
		TransactionCount:      2,
		CallDepthBound:        1024,
		StrategyName:          "dfs",
		SolverTimeoutMS:       10_000,
		CreateTimeoutMS:       10_000,
		ExecutionTimeoutMS:    60_000,
		SymbolicCalldataBound: 32,
		GasLimit:              10_000_000,
	}
}
