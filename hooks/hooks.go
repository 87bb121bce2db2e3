// Package hooks implements the detection-module hook bus: a registry of
// pluggable analyzers that run synchronously around instruction dispatch
// (CALLBACK style) or once over the final state space (POST style).
// Grounded on original_source/mythril/analysis/module/base.py's
// DetectionModule/EntryPoint shape, adapted to Go's lack of ABCs via a
// plain interface and a descriptor struct in place of class attributes.
//
// hooks intentionally depends only on state, not vm, so vm can import
// hooks without an import cycle; opcodes are threaded through as raw
// bytes rather than vm.OpCode.
package hooks

import "github.com/eth2030/laser/state"

// EntryPoint selects how a detection module is driven.
type EntryPoint int

const (
	// Callback modules are invoked synchronously by the dispatcher around
	// their registered opcodes. Preferred: cheap, incremental.
	Callback EntryPoint = iota
	// Post modules run once over the complete, finished state space.
	// Severely slower; discouraged per the teacher's own doc comment.
	Post
)

func (e EntryPoint) String() string {
	if e == Post {
		return "POST"
	}
	return "CALLBACK"
}

// Descriptor is a detection module's static metadata.
type Descriptor struct {
	Name       string
	SWCID      string
	EntryPoint EntryPoint
	PreHooks   []byte // opcodes this module wants a pre-dispatch callback for
	PostHooks  []byte // opcodes this module wants a post-dispatch callback for
}

// Issue is one emitted finding, built from whatever the detector module
// observed plus a witness derived from the solver model at discovery time.
// The transaction-sequence witness itself is a tx-package concern; Issue
// carries the raw satisfying model so a caller building a full replay can
// thread it through tx.Sequencer without this package needing to import tx.
type Issue struct {
	Contract         string
	Function         string
	Address          uint64
	Title            string
	SWCID            string
	Severity         string
	DescriptionHead  string
	DescriptionTail  string
	GasUsed          [2]uint64 // (min, max) gas envelope at discovery
	WitnessModel     map[string]any
	WitnessAssignment []byte // opaque, solver-encoded; nil if not yet materialized
}

// DetectionModule is the interface every detector implements. PreHook and
// PostHook are called only for opcodes the module listed in its Descriptor;
// the Bus does the filtering so modules never see opcodes they didn't ask
// for. instrAddr is the program counter of the instruction being hooked
// (the CALL site for a post-hook on a CALL-family opcode, for example).
type DetectionModule interface {
	Descriptor() Descriptor
	PreHook(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error)
	PostHook(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error)
}

// Bus routes pre/post dispatch events to the registered modules interested
// in a given opcode. Rebuilt lazily whenever the registered set changes,
// per the design note's "avoids per-instruction scanning" rationale.
type Bus struct {
	modules  []DetectionModule
	preByOp  map[byte][]DetectionModule
	postByOp map[byte][]DetectionModule
	dirty    bool
}

// NewBus returns an empty hook bus.
func NewBus() *Bus {
	return &Bus{preByOp: map[byte][]DetectionModule{}, postByOp: map[byte][]DetectionModule{}}
}

// Register adds m to the bus. The per-opcode index is rebuilt lazily on the
// next Pre/Post call.
func (b *Bus) Register(m DetectionModule) {
	b.modules = append(b.modules, m)
	b.dirty = true
}

// Modules returns every registered module, for a POST-entry-point driver
// that walks the finished state space itself.
func (b *Bus) Modules() []DetectionModule {
	return b.modules
}

func (b *Bus) rebuild() {
	b.preByOp = map[byte][]DetectionModule{}
	b.postByOp = map[byte][]DetectionModule{}
	for _, m := range b.modules {
		d := m.Descriptor()
		for _, op := range d.PreHooks {
			b.preByOp[op] = append(b.preByOp[op], m)
		}
		for _, op := range d.PostHooks {
			b.postByOp[op] = append(b.postByOp[op], m)
		}
	}
	b.dirty = false
}

// Pre invokes every CALLBACK module registered for opcode's pre-hook,
// against gs as it stands immediately before that instruction's semantic
// transformer runs.
func (b *Bus) Pre(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error) {
	if b.dirty {
		b.rebuild()
	}
	var issues []Issue
	for _, m := range b.preByOp[opcode] {
		found, err := m.PreHook(gs, opcode, instrAddr)
		if err != nil {
			return issues, err
		}
		issues = append(issues, found...)
	}
	return issues, nil
}

// Post invokes every CALLBACK module registered for opcode's post-hook,
// once per successor state the dispatcher produced.
func (b *Bus) Post(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error) {
	if b.dirty {
		b.rebuild()
	}
	var issues []Issue
	for _, m := range b.postByOp[opcode] {
		found, err := m.PostHook(gs, opcode, instrAddr)
		if err != nil {
			return issues, err
		}
		issues = append(issues, found...)
	}
	return issues, nil
}
