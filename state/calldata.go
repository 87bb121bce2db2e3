package state

import (
	"fmt"

	"github.com/eth2030/laser/smt"
)

// Calldata is a read-only byte sequence that may be fully concrete, fully
// symbolic (one free variable per byte), or a mix, all satisfying the same
// CALLDATALOAD/CALLDATACOPY/CALLDATASIZE read interface. Reads past the end
// return concrete zero bytes, matching the EVM's zero-padding semantics.
type Calldata struct {
	bytes []*smt.BitVec // each element width 8
}

// ConcreteCalldata builds a Calldata from a known byte slice.
func ConcreteCalldata(data []byte) *Calldata {
	bytes := make([]*smt.BitVec, len(data))
	for i, b := range data {
		bytes[i] = smt.BitVecValUint64(uint64(b), 8)
	}
	return &Calldata{bytes: bytes}
}

// SymbolicCalldata builds a Calldata of the given length where every byte
// is a distinct free variable named "<namePrefix>_<index>", letting the
// solver later synthesise a concrete witness transaction.
func SymbolicCalldata(namePrefix string, length int) *Calldata {
	bytes := make([]*smt.BitVec, length)
	for i := range bytes {
		bytes[i] = smt.BitVecSym(fmt.Sprintf("%s_%d", namePrefix, i), 8)
	}
	return &Calldata{bytes: bytes}
}

// IsConcrete reports whether every byte is a concrete value, the condition
// under which the precompile boundary may execute a call synchronously
// instead of raising NativeContractException.
func (c *Calldata) IsConcrete() bool {
	for _, b := range c.bytes {
		if !b.IsConcrete() {
			return false
		}
	}
	return true
}

// ConcreteBytes returns the concrete byte slice backing c. It panics if
// IsConcrete is false; callers must check first.
func (c *Calldata) ConcreteBytes() []byte {
	out := make([]byte, len(c.bytes))
	for i, b := range c.bytes {
		out[i] = byte(b.Value().Uint64())
	}
	return out
}

// Size returns the calldata length in bytes.
func (c *Calldata) Size() int { return len(c.bytes) }

// Load returns the 32-byte big-endian word starting at byte offset, the
// shape CALLDATALOAD needs; bytes beyond Size() are concrete zero.
func (c *Calldata) Load(offset uint64) *smt.BitVec {
	return c.read(offset, 32)
}

// Copy returns size bytes starting at offset (CALLDATACOPY's source
// range); bytes beyond Size() are concrete zero.
func (c *Calldata) Copy(offset, size uint64) *smt.BitVec {
	if size == 0 {
		return nil
	}
	return c.read(offset, size)
}

func (c *Calldata) read(offset, size uint64) *smt.BitVec {
	result := c.byteAt(offset)
	for i := uint64(1); i < size; i++ {
		result = smt.Concat(result, c.byteAt(offset+i))
	}
	return result
}

func (c *Calldata) byteAt(i uint64) *smt.BitVec {
	if i >= uint64(len(c.bytes)) {
		return zeroByte()
	}
	return c.bytes[i]
}
