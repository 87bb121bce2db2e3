package solver

import (
	"encoding/binary"
	"hash/fnv"

	"github.com/VictoriaMetrics/fastcache"
	"github.com/eth2030/laser/smt"
	"github.com/holiman/uint256"
)

const modelCacheSizeBytes = 32 * 1024 * 1024

// cacheEntry is a Gob-free fixed byte encoding of a cached verdict: one byte
// for sat/unsat followed by, on SAT, a length-prefixed run of
// name=value pairs. fastcache only stores []byte, so the cache owns its own
// tiny wire format rather than pulling in an encoding package for it.
type cacheEntry struct {
	sat   bool
	model *Model
}

// modelCache wraps fastcache to remember recent solver verdicts keyed by the
// constraint set's hash, so identical unsolved subgoals shared across
// sibling states (the common case after a fork) are not re-solved.
type modelCache struct {
	c *fastcache.Cache
}

func newModelCache() *modelCache {
	return &modelCache{c: fastcache.New(modelCacheSizeBytes)}
}

func hashConjunction(conj []*smt.Bool) []byte {
	h := fnv.New64a()
	for _, t := range conj {
		h.Write([]byte(t.String()))
		h.Write([]byte{0})
	}
	sum := h.Sum64()
	key := make([]byte, 8)
	binary.LittleEndian.PutUint64(key, sum)
	return key
}

func (mc *modelCache) get(key []byte) (*cacheEntry, bool) {
	buf, ok := mc.c.HasGet(nil, key)
	if !ok {
		return nil, false
	}
	return decodeCacheEntry(buf), true
}

func (mc *modelCache) put(key []byte, e *cacheEntry) {
	mc.c.Set(key, encodeCacheEntry(e))
}

func encodeCacheEntry(e *cacheEntry) []byte {
	if !e.sat {
		return []byte{0}
	}
	out := []byte{1}
	for name, v := range e.model.BitVecs {
		b := v.Bytes32()
		out = append(out, 'b')
		out = appendString(out, name)
		out = append(out, b[:]...)
	}
	for name, v := range e.model.Bools {
		out = append(out, 'o')
		out = appendString(out, name)
		if v {
			out = append(out, 1)
		} else {
			out = append(out, 0)
		}
	}
	return out
}

func appendString(out []byte, s string) []byte {
	var lenBuf [2]byte
	binary.LittleEndian.PutUint16(lenBuf[:], uint16(len(s)))
	out = append(out, lenBuf[:]...)
	return append(out, s...)
}

func decodeCacheEntry(buf []byte) *cacheEntry {
	if len(buf) == 0 || buf[0] == 0 {
		return &cacheEntry{sat: false}
	}
	m := NewModel()
	i := 1
	for i < len(buf) {
		tag := buf[i]
		i++
		l := int(binary.LittleEndian.Uint16(buf[i : i+2]))
		i += 2
		name := string(buf[i : i+l])
		i += l
		switch tag {
		case 'b':
			var w [32]byte
			copy(w[:], buf[i:i+32])
			i += 32
			m.BitVecs[name] = new(uint256.Int).SetBytes32(w[:])
		case 'o':
			m.Bools[name] = buf[i] == 1
			i++
		}
	}
	return &cacheEntry{sat: true, model: m}
}
