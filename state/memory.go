package state

import "github.com/eth2030/laser/smt"

// Memory is a byte-addressable symbolic buffer, generalized from the
// teacher's core/vm/memory.go ([]byte) to a slice of 8-bit terms so a
// write of symbolic data (e.g. CALLDATACOPY of symbolic calldata) is
// representable. Reads of width 8·size are built with Concat over the
// requested byte range; writes decompose the value into bytes with
// Extract. Uninitialized bytes read as concrete zero.
type Memory struct {
	store []*smt.BitVec // each element width 8
}

// NewMemory returns a new empty Memory.
func NewMemory() *Memory {
	return &Memory{}
}

func zeroByte() *smt.BitVec { return smt.BitVecValUint64(0, 8) }

// Resize grows memory to at least size bytes, zero-filling the extension.
func (m *Memory) Resize(size uint64) {
	if uint64(len(m.store)) >= size {
		return
	}
	grown := make([]*smt.BitVec, size)
	copy(grown, m.store)
	for i := len(m.store); i < len(grown); i++ {
		grown[i] = zeroByte()
	}
	m.store = grown
}

// Write stores value (a term of width 8·len(value-in-bytes), taken as the
// big-endian byte decomposition of a wider term) at the given offset.
// Write decomposes value into individual bytes via Extract so that a
// subsequent byte-range Read can Concat an arbitrary sub-range back
// together, matching the EVM's byte-granular memory semantics.
func (m *Memory) Write(offset uint64, value *smt.BitVec) {
	width := value.Width()
	if width%8 != 0 {
		panic("state: Memory.Write: value width not a multiple of 8")
	}
	nBytes := width / 8
	m.Resize(offset + nBytes)
	for i := uint64(0); i < nBytes; i++ {
		// Byte i (0 = most significant, big-endian) occupies bits
		// [width-1-8*i : width-8-8*i].
		hi := width - 1 - 8*uint(i)
		lo := hi - 7
		m.store[offset+i] = smt.Extract(hi, lo, value)
	}
}

// WriteBytes stores a concrete byte slice at offset, for callers that
// already have concrete data (e.g. CODECOPY of a known contract's code).
func (m *Memory) WriteBytes(offset uint64, data []byte) {
	m.Resize(offset + uint64(len(data)))
	for i, b := range data {
		m.store[offset+uint64(i)] = smt.BitVecValUint64(uint64(b), 8)
	}
}

// Read returns a term of width 8·size covering [offset, offset+size),
// extending memory with zero bytes first if the range isn't yet resident.
// size==0 returns nil, matching the teacher's Memory.Get.
func (m *Memory) Read(offset, size uint64) *smt.BitVec {
	if size == 0 {
		return nil
	}
	m.Resize(offset + size)
	result := m.store[offset]
	for i := uint64(1); i < size; i++ {
		result = smt.Concat(result, m.store[offset+i])
	}
	return result
}

// Len returns the current length of memory in bytes.
func (m *Memory) Len() int { return len(m.store) }

// Clone returns a Memory with an independent backing slice; the byte terms
// themselves are immutable and safe to share.
func (m *Memory) Clone() *Memory {
	store := make([]*smt.BitVec, len(m.store))
	copy(store, m.store)
	return &Memory{store: store}
}
