package hooks

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/smt/solver"
	"github.com/eth2030/laser/state"
)

// Opcode bytes duplicated from vm's enumeration (CALL family + STOP/RETURN)
// so this package never imports vm. Values match the EVM's fixed opcode
// encoding, not a choice made here.
const (
	opStop         byte = 0x00
	opCall         byte = 0xf1
	opCallCode     byte = 0xf2
	opReturn       byte = 0xf3
	opDelegateCall byte = 0xf4
	opStaticCall   byte = 0xfa
)

const swcUncheckedRetVal = "SWC-104"

const annotationKeyUncheckedRetval = "unchecked_retval"

// retvalRecord is one observed external call whose success flag has not yet
// been checked at the point a STOP/RETURN hook inspects it.
type retvalRecord struct {
	address uint64
	retval  *smt.BitVec
}

// uncheckedRetvalAnnotation is the per-path scratchpad: every CALL-family
// return value observed so far, awaiting a STOP/RETURN boundary to check
// whether it was ever constrained. Grounded on
// original_source/mythril/analysis/module/modules/unchecked_retval.py's
// UncheckedRetvalAnnotation.
type uncheckedRetvalAnnotation struct {
	retvals []retvalRecord
}

func (a *uncheckedRetvalAnnotation) CloneOnFork() state.Annotation {
	cp := make([]retvalRecord, len(a.retvals))
	copy(cp, a.retvals)
	return &uncheckedRetvalAnnotation{retvals: cp}
}

// UncheckedRetval detects external calls whose boolean success return value
// is never constrained by the path before the path's transaction ends --
// i.e. both retval=0 and retval=1 remain satisfiable at STOP/RETURN, so the
// caller neither checked nor implicitly required success.
type UncheckedRetval struct{}

var _ DetectionModule = UncheckedRetval{}

func (UncheckedRetval) Descriptor() Descriptor {
	return Descriptor{
		Name:       "Return value of an external call is not checked",
		SWCID:      swcUncheckedRetVal,
		EntryPoint: Callback,
		PreHooks:   []byte{opStop, opReturn},
		PostHooks:  []byte{opCall, opDelegateCall, opStaticCall, opCallCode},
	}
}

func (UncheckedRetval) annotation(gs *state.GlobalState) *uncheckedRetvalAnnotation {
	if a, ok := gs.Annotations.Get(annotationKeyUncheckedRetval).(*uncheckedRetvalAnnotation); ok {
		return a
	}
	a := &uncheckedRetvalAnnotation{}
	gs.Annotations.Set(annotationKeyUncheckedRetval, a)
	return a
}

// PostHook records the CALL-family instruction's return value (the boolean
// success flag CALL-family opcodes leave on top of stack) for later
// inspection.
func (d UncheckedRetval) PostHook(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error) {
	frame, err := gs.Current()
	if err != nil {
		// No active frame: the call halted the path (e.g. ran out of
		// gas) before a return value was ever pushed. Nothing to record.
		return nil, nil
	}
	retval, err := frame.Stack.Peek()
	if err != nil {
		return nil, nil
	}
	a := d.annotation(gs)
	a.retvals = append(a.retvals, retvalRecord{address: instrAddr, retval: retval})
	return nil, nil
}

// PreHook runs at STOP/RETURN: for every unchecked retval recorded on this
// path, ask the solver whether it can be simultaneously 0 and 1 under the
// path's constraints. If both remain satisfiable, the transaction never
// branched on the call's result, so the issue is raised.
func (d UncheckedRetval) PreHook(gs *state.GlobalState, opcode byte, instrAddr uint64) ([]Issue, error) {
	a := d.annotation(gs)
	if len(a.retvals) == 0 {
		return nil, nil
	}

	frame, err := gs.Current()
	if err != nil {
		return nil, nil
	}

	var issues []Issue
	for _, rv := range a.retvals {
		satOne := gs.Constraints().Clone()
		satOne.Add(smt.Eq(rv.retval, smt.BitVecValUint64(1, rv.retval.Width())))
		modelOne, okOne := satOne.IsSat()
		if !okOne {
			continue
		}

		satZero := gs.Constraints().Clone()
		satZero.Add(smt.Eq(rv.retval, smt.BitVecValUint64(0, rv.retval.Width())))
		modelZero, okZero := satZero.IsSat()
		if !okZero {
			continue
		}

		issues = append(issues, Issue{
			Contract:        gs.Env.ActiveAccount.Hex(),
			Address:         rv.address,
			Title:           "Unchecked return value from external call.",
			SWCID:           swcUncheckedRetVal,
			Severity:        "Medium",
			DescriptionHead: "The return value of a message call is not checked.",
			DescriptionTail: "External calls return a boolean value. If the callee halts " +
				"with an exception, false is returned and execution continues in the " +
				"caller. The caller should check whether an exception happened and react " +
				"accordingly, e.g. by wrapping the call in require().",
			GasUsed:      [2]uint64{frame.Gas.Min, frame.Gas.Max},
			WitnessModel: mergeModels(modelOne, modelZero),
		})
	}
	return issues, nil
}

// mergeModels flattens the two witnessing models (retval=1 and retval=0)
// into one map the caller can hand to a tx-package witness builder; the
// second model's entries are prefixed to avoid colliding with the first's.
func mergeModels(one, zero *solver.Model) map[string]any {
	out := map[string]any{}
	for k, v := range one.BitVecs {
		out[k] = v
	}
	for k, v := range one.Bools {
		out[k] = v
	}
	for k, v := range zero.BitVecs {
		out["alt_"+k] = v
	}
	for k, v := range zero.Bools {
		out["alt_"+k] = v
	}
	return out
}
