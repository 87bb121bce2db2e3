package vm

import (
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
	"github.com/ethereum/go-ethereum/common"
)

// logsAnnotationKey is the state.AnnotationBag key LOG0..LOG4 file entries
// under. There is no separate receipt/StateDB concept here (unlike the
// teacher's evm.StateDB.AddLog), so emitted logs simply accumulate on the
// path's own GlobalState the same way any other detector scratchpad would.
const logsAnnotationKey = "vm.logs"

// LogEntry records one LOGn emission: the emitting account, its topics (n
// of them, n in 0..4), and the memory region copied out as data. Offsets
// and sizes that are symbolic at the time of the LOG are not approximated:
// a LOG over unresolved memory bounds terminates the path (see makeLog)
// rather than recording a partial entry.
type LogEntry struct {
	Address common.Address
	Topics  []*smt.BitVec
	Data    *smt.BitVec
	Size    uint64
}

// LogsAnnotation is the per-path list of LogEntry values emitted so far.
type LogsAnnotation struct {
	Entries []LogEntry
}

// CloneOnFork copies the entry slice so a forked sibling's subsequent LOGs
// never append onto the same backing array as the original path's.
func (a *LogsAnnotation) CloneOnFork() state.Annotation {
	out := make([]LogEntry, len(a.Entries))
	copy(out, a.Entries)
	return &LogsAnnotation{Entries: out}
}

func logsOf(gs *state.GlobalState) *LogsAnnotation {
	if existing, ok := gs.Annotations.Get(logsAnnotationKey).(*LogsAnnotation); ok {
		return existing
	}
	fresh := &LogsAnnotation{}
	gs.Annotations.Set(logsAnnotationKey, fresh)
	return fresh
}

// makeLog returns the executionFunc for LOG0..LOG4, grounded on the
// teacher's makeLog: pop offset and size, then n topic words, read the
// memory slice as data, and record it against the active account.
func makeLog(n int) executionFunc {
	return func(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
		frame, err := gs.Current()
		if err != nil {
			return nil, err
		}
		offset, size, err := pop2(frame.Stack)
		if err != nil {
			return nil, err
		}
		topics := make([]*smt.BitVec, n)
		for i := 0; i < n; i++ {
			t, err := frame.Stack.Pop()
			if err != nil {
				return nil, err
			}
			topics[i] = t
		}
		if !offset.IsConcrete() || !size.IsConcrete() {
			return noSuccessors(), nil
		}
		o, s := offset.Value().Uint64(), size.Value().Uint64()
		chargeMemory(frame, o, s)
		cost := GasLogTopic*uint64(n) + GasLogData*s
		frame.Gas.Charge(0, cost, cost)

		var data *smt.BitVec
		if s > 0 {
			data = frame.Memory.Read(o, s)
		}
		logs := logsOf(gs)
		logs.Entries = append(logs.Entries, LogEntry{
			Address: gs.Env.ActiveAccount,
			Topics:  topics,
			Data:    data,
			Size:    s,
		})
		return oneSuccessor(gs), nil
	}
}
