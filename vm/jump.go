package vm

import (
	"github.com/eth2030/laser/cfgraph"
	"github.com/eth2030/laser/smt"
	"github.com/eth2030/laser/state"
)

// isValidJumpdest reports whether dest names a JUMPDEST instruction byte in
// code (not merely a byte that happens to equal 0x5b inside a PUSH
// immediate): like the teacher's contract.validJumpdest, it scans code
// linearly from offset 0, skipping PUSH immediates, and accepts dest only
// if it lands on an instruction boundary.
func isValidJumpdest(code []byte, dest uint64) bool {
	if dest >= uint64(len(code)) || OpCode(code[dest]) != JUMPDEST {
		return false
	}
	pc := uint64(0)
	for pc < dest {
		op := OpCode(code[pc])
		pc++
		if op.IsPush() {
			pc += op.PushSize()
		}
	}
	return pc == dest
}

// resolveJumpTargets returns the concrete candidate destinations for
// target under gs's current path constraints. A concrete target yields
// exactly one candidate. A symbolic target is resolved by repeatedly
// asking the solver for a model, reading off target's value under it, and
// excluding that value before asking again, up to bound candidates --
// spec's jump-resolution rule. exceeded reports whether the bound was hit
// before the solver ran out of distinct satisfying values (the "a warning
// is recorded" case).
func resolveJumpTargets(gs *state.GlobalState, target *smt.BitVec, bound int) (candidates []uint64, exceeded bool) {
	if target.IsConcrete() {
		return []uint64{target.Value().Uint64()}, false
	}
	if bound <= 0 {
		bound = 1
	}

	// smt has no public "free variables of a BitVec" query; ULE(target,
	// target) is never const-folded and is not given the Eq-specific
	// structural shortcut, so walking it with FreeVars reaches both
	// operands (the same term) and yields target's free variable set.
	widths, _ := smt.FreeVars(smt.ULE(target, target))

	working := gs.Constraints().Clone()
	for len(candidates) < bound {
		model, sat := working.IsSat()
		if !sat {
			return candidates, false
		}
		assignment := model.Assignment(widths)
		resolved := smt.SubstituteBitVec(target, assignment)
		if !resolved.IsConcrete() {
			// The model didn't pin every free variable target depends on
			// (can happen for a target built over terms outside the
			// solver's variable-disjoint partition); stop rather than loop
			// forever on the same unresolved value.
			return candidates, false
		}
		val := resolved.Value().Uint64()
		candidates = append(candidates, val)
		working.Add(smt.NotBool(smt.Eq(target, smt.BitVecValUint64(val, target.Width()))))
	}
	// The loop only exits via the length check when another distinct value
	// may still be reachable -- check once more without committing to it.
	if _, sat := working.IsSat(); sat {
		exceeded = true
	}
	return candidates, exceeded
}

func opJump(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	target, err := frame.Stack.Pop()
	if err != nil {
		return nil, err
	}
	code := d.codeOf(gs)
	candidates, exceeded := resolveJumpTargets(gs, target, d.SymbolicCalldataBound)
	_ = exceeded // TODO(eth2030/laser): surface the discarded-models warning through a diagnostics sink once one exists.

	if target.IsConcrete() {
		if !isValidJumpdest(code, candidates[0]) {
			return noSuccessors(), nil
		}
		frame.PC = candidates[0]
		return oneSuccessor(gs), nil
	}

	fromPC := frame.PC
	var out []*state.GlobalState
	for _, dest := range candidates {
		if !isValidJumpdest(code, dest) {
			continue
		}
		succ := gs.Fork()
		sf, err := succ.Current()
		if err != nil {
			return nil, err
		}
		succ.World.Path.Add(smt.Eq(target, smt.BitVecValUint64(dest, target.Width())))
		sf.PC = dest
		d.recordJumpEdge(gs, fromPC, succ, dest, cfgraph.Unconditional, nil)
		out = append(out, succ)
	}
	return out, nil
}

func opJumpi(d *Dispatcher, gs *state.GlobalState) ([]*state.GlobalState, error) {
	frame, err := gs.Current()
	if err != nil {
		return nil, err
	}
	target, cond, err := pop2(frame.Stack)
	if err != nil {
		return nil, err
	}
	condBool := smt.NotBool(smt.Eq(cond, smt.BitVecValUint64(0, cond.Width())))
	code := d.codeOf(gs)
	fromPC := frame.PC
	fallthroughPC := fromPC + 1

	if condBool.IsConcrete() {
		if !condBool.Value() {
			frame.PC = fallthroughPC
			return oneSuccessor(gs), nil
		}
		candidates, _ := resolveJumpTargets(gs, target, d.SymbolicCalldataBound)
		if target.IsConcrete() {
			if !isValidJumpdest(code, candidates[0]) {
				return noSuccessors(), nil
			}
			frame.PC = candidates[0]
			return oneSuccessor(gs), nil
		}
		var out []*state.GlobalState
		for _, dest := range candidates {
			if !isValidJumpdest(code, dest) {
				continue
			}
			succ := gs.Fork()
			sf, err := succ.Current()
			if err != nil {
				return nil, err
			}
			succ.World.Path.Add(smt.Eq(target, smt.BitVecValUint64(dest, target.Width())))
			sf.PC = dest
			out = append(out, succ)
		}
		return out, nil
	}

	candidates, _ := resolveJumpTargets(gs, target, d.SymbolicCalldataBound)

	fall := gs.Fork()
	ff, err := fall.Current()
	if err != nil {
		return nil, err
	}
	fall.World.Path.Add(smt.NotBool(condBool))
	ff.PC = fallthroughPC

	var out []*state.GlobalState
	var takenDests []uint64
	for _, dest := range candidates {
		if !isValidJumpdest(code, dest) {
			continue
		}
		taken := gs.Fork()
		tf, err := taken.Current()
		if err != nil {
			return nil, err
		}
		taken.World.Path.Add(condBool)
		if target.IsConcrete() {
			// no extra equality needed, target already pins one value
		} else {
			taken.World.Path.Add(smt.Eq(target, smt.BitVecValUint64(dest, target.Width())))
		}
		tf.PC = dest
		out = append(out, taken)
		takenDests = append(takenDests, dest)
	}
	d.recordConditionalBranches(gs, fromPC, out, takenDests, fall, fallthroughPC, condBool)
	out = append(out, fall)

	return out, nil
}

// cfgNodeFor resolves (or creates) the CFG node for gs's active account at
// pc. The JUMP/JUMPI instruction's own address is treated as ending a
// block (not only JUMPDESTs), a simplification documented in DESIGN.md: it
// avoids threading "which JUMPDEST started the current block" through
// every instruction just to label edges.
func (d *Dispatcher) cfgNodeFor(gs *state.GlobalState, pc uint64) *cfgraph.Node {
	key := cfgraph.NodeKey{Contract: gs.Env.ActiveAccount.Hex(), StartPC: pc, PathSignature: pathSignature(gs)}
	return d.CFG.NodeFor(key, "")
}

// recordJumpEdge registers the CFG node succ's destination lands in and a
// single edge from fromPC to it, used by JUMP's unconditional fan-out.
func (d *Dispatcher) recordJumpEdge(gs *state.GlobalState, fromPC uint64, succ *state.GlobalState, destPC uint64, jt cfgraph.JumpType, cond *smt.Bool) {
	if d.CFG == nil {
		return
	}
	fromNode := d.cfgNodeFor(gs, fromPC)
	toNode := d.cfgNodeFor(succ, destPC)
	d.CFG.RecordTraversal(toNode.ID)
	d.CFG.AddEdge(fromNode.ID, toNode.ID, jt, cond)
}

// recordConditionalBranches registers the CFG nodes a JUMPI's taken
// successors (one per symbolic-target candidate; exactly one for a
// concrete target) and its single fall-through successor land in, and
// wires each taken/fall-through pair through cfgraph.Graph's
// AddConditionalBranch, which derives the fall-through edge's condition as
// the negation of cond rather than having the caller compute and pass both
// conditions separately (spec.md §3's CFG-edge invariant: a conditional
// branch's two edges must be negations of each other). The fall-through
// node's traversal is recorded exactly once regardless of how many taken
// candidates there are, since it is the same successor state every time.
func (d *Dispatcher) recordConditionalBranches(gs *state.GlobalState, fromPC uint64, taken []*state.GlobalState, takenPCs []uint64, fall *state.GlobalState, fallPC uint64, cond *smt.Bool) {
	if d.CFG == nil {
		return
	}
	fromNode := d.cfgNodeFor(gs, fromPC)
	fallNode := d.cfgNodeFor(fall, fallPC)
	d.CFG.RecordTraversal(fallNode.ID)
	for i, t := range taken {
		takenNode := d.cfgNodeFor(t, takenPCs[i])
		d.CFG.RecordTraversal(takenNode.ID)
		d.CFG.AddConditionalBranch(fromNode.ID, takenNode.ID, fallNode.ID, cond)
	}
}
