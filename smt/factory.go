package smt

import (
	"fmt"
	"sync/atomic"
)

// Factory is the single place the rest of the engine goes through to mint
// fresh symbolic terms, mirroring mythril's symbol_factory convention: a
// shared counter keeps generated names globally unique across forked
// states without requiring callers to track a namespace themselves.
type Factory struct {
	counter atomic.Uint64
}

// DefaultFactory is the process-wide Factory used by the package-level
// Fresh* convenience functions.
var DefaultFactory = &Factory{}

// Bool returns a concrete Bool term.
func (f *Factory) Bool(value bool, annotations ...Annotation) *Bool {
	return BoolVal(value, annotations...)
}

// BoolSym returns a free Bool variable with the given name.
func (f *Factory) BoolSym(name string, annotations ...Annotation) *Bool {
	return BoolSym(name, annotations...)
}

// BitVecVal returns a concrete BitVec term.
func (f *Factory) BitVecVal(value uint64, width uint, annotations ...Annotation) *BitVec {
	return BitVecValUint64(value, width, annotations...)
}

// BitVecSym returns a free BitVec variable with the given name.
func (f *Factory) BitVecSym(name string, width uint, annotations ...Annotation) *BitVec {
	return BitVecSym(name, width, annotations...)
}

// FreshBitVec mints a BitVec variable with a process-unique name derived
// from prefix, used wherever the engine needs "a new symbol for this
// calldata byte / storage slot / return value" without colliding across
// forked states.
func (f *Factory) FreshBitVec(prefix string, width uint, annotations ...Annotation) *BitVec {
	id := f.counter.Add(1)
	return BitVecSym(fmt.Sprintf("%s_%d", prefix, id), width, annotations...)
}

// FreshBool is the Bool analogue of FreshBitVec.
func (f *Factory) FreshBool(prefix string, annotations ...Annotation) *Bool {
	id := f.counter.Add(1)
	return BoolSym(fmt.Sprintf("%s_%d", prefix, id), annotations...)
}

// FreshBitVec mints a process-unique BitVec variable using DefaultFactory.
func FreshBitVec(prefix string, width uint, annotations ...Annotation) *BitVec {
	return DefaultFactory.FreshBitVec(prefix, width, annotations...)
}

// FreshBool mints a process-unique Bool variable using DefaultFactory.
func FreshBool(prefix string, annotations ...Annotation) *Bool {
	return DefaultFactory.FreshBool(prefix, annotations...)
}
