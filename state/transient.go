package state

import "github.com/eth2030/laser/smt"

// transientWrite is one entry in a TransientStorage journal.
type transientWrite struct {
	key   *smt.BitVec
	value *smt.BitVec
}

// TransientStorage is a journaled overlay of EIP-1153 TSTORE/TLOAD writes,
// keyed by 256-bit slot and cleared at every top-level transaction
// boundary. Grounded on mythril's transient_storage.py: an append-only list
// of {key, value} records; reads rebuild the effective value lazily as
// store∘store∘...(empty_array, writes...)[key] rather than maintaining a
// live map, so the solver can fold the chain symbolically when the key is
// not concrete.
type TransientStorage struct {
	writes []transientWrite
	defVal *smt.BitVec
}

// NewTransientStorage returns an empty transient store that reads as
// defaultValue (conventionally a concrete zero) until written.
func NewTransientStorage(defaultValue *smt.BitVec) *TransientStorage {
	return &TransientStorage{defVal: defaultValue}
}

// Store records a write. It never mutates or removes a prior entry,
// matching the append-only journal design.
func (t *TransientStorage) Store(key, value *smt.BitVec) {
	t.writes = append(t.writes, transientWrite{key: key, value: value})
}

// Load reconstructs the effective value at key by folding the write journal
// into a store chain over the default array and selecting key. For a
// concrete key this resolves to the most recent concrete-matching write (or
// the default) via the term layer's structural Select simplification; for a
// symbolic key the unresolved select is returned and left to the solver.
func (t *TransientStorage) Load(key *smt.BitVec) *smt.BitVec {
	arr := smt.K(key.Width(), t.defVal)
	for _, w := range t.writes {
		arr = arr.Store(w.key, w.value)
	}
	return arr.Select(key)
}

// Clear discards the entire write journal, as required at every top-level
// transaction boundary (EIP-1153 transient storage is never observable
// across transactions).
func (t *TransientStorage) Clear() {
	t.writes = nil
}

// Clone returns a copy of t that shares no mutable backing slice with the
// original: appending to the clone's journal must never become visible on
// t, and vice versa (the fork-purity invariant).
func (t *TransientStorage) Clone() *TransientStorage {
	writes := make([]transientWrite, len(t.writes))
	copy(writes, t.writes)
	return &TransientStorage{writes: writes, defVal: t.defVal}
}

// Len reports the number of entries in the write journal. Exposed mainly
// for tests asserting the journal grows append-only.
func (t *TransientStorage) Len() int { return len(t.writes) }
