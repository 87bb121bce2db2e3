package solver

import "github.com/eth2030/laser/smt"

// Constraints is an append-only conjunction of boolean terms associated
// with one execution path. It never removes a term: forking copies the
// term slice (the terms themselves are immutable and shared) so siblings
// diverge only by appending.
type Constraints struct {
	terms  []*smt.Bool
	solver Solver
	cache  *modelCache

	// disablePartitioning turns off the independence optimizer, solving
	// the full conjunction as one group. Exposed via
	// DisableIndependencePruning for callers (engine.Config's
	// DisableDependencyPruning) debugging a discrepancy against the
	// partitioned path; functionally equivalent, only slower.
	disablePartitioning bool
}

// NewConstraints returns an empty constraint set backed by the given
// solver. A nil solver defaults to IntervalSolver{}.
func NewConstraints(s Solver) *Constraints {
	if s == nil {
		s = IntervalSolver{}
	}
	return &Constraints{solver: s, cache: newModelCache()}
}

// Add appends term to the set. Concrete-false terms are kept rather than
// special-cased here: IsSat will report them unsatisfiable on the next
// query, same as any other contradiction.
func (c *Constraints) Add(term *smt.Bool) {
	c.terms = append(c.terms, term)
}

// Clone returns a snapshot-clone of c for forking: the returned Constraints
// shares no mutable state with c: it holds its own copy of c's term slice
// (and shares c's solver and model cache).
func (c *Constraints) Clone() *Constraints {
	terms := make([]*smt.Bool, len(c.terms))
	copy(terms, c.terms)
	return &Constraints{terms: terms, solver: c.solver, cache: c.cache, disablePartitioning: c.disablePartitioning}
}

// DisableIndependencePruning turns off the variable-disjoint partitioning
// optimization for c (and every future Clone of it), falling back to
// solving the whole term set as a single group. Satisfiability is
// unaffected; only solve cost changes.
func (c *Constraints) DisableIndependencePruning() {
	c.disablePartitioning = true
}

// Len reports the number of conjuncts.
func (c *Constraints) Len() int { return len(c.terms) }

// Terms returns the conjunction as a slice. Callers must not mutate it.
func (c *Constraints) Terms() []*smt.Bool { return c.terms }

// IsSat reports whether the conjunction is satisfiable, returning a witness
// Model when it is. It consults the model cache first, then partitions the
// term set into variable-disjoint components via the independence
// optimizer, solving (and caching) each independently -- satisfiability of
// a conjunction equals the conjunction of satisfiability across
// variable-disjoint partitions, so this is exact, not an approximation.
func (c *Constraints) IsSat() (*Model, bool) {
	key := hashConjunction(c.terms)
	if e, hit := c.cache.get(key); hit {
		if !e.sat {
			return nil, false
		}
		return e.model, true
	}

	model, ok := c.solveWithIndependencePartitioning()
	c.cache.put(key, &cacheEntry{sat: ok, model: model})
	return model, ok
}

// GetModel is IsSat without the boolean: it returns the most recently
// computed (or freshly computed) witness, or nil if the set is unsat.
func (c *Constraints) GetModel() *Model {
	m, ok := c.IsSat()
	if !ok {
		return nil
	}
	return m
}

// solveWithIndependencePartitioning splits c.terms into variable-disjoint
// groups (union-find over each term's free variables) and solves each group
// with c.solver, merging the per-group models and caching each group's
// verdict under its own key so later constraint sets that happen to share a
// sub-group (e.g. two sibling states that both inherit an unrelated
// storage-slot constraint) hit the cache too.
func (c *Constraints) solveWithIndependencePartitioning() (*Model, bool) {
	if c.disablePartitioning {
		m, ok, err := c.solver.Check(c.terms)
		if err != nil {
			return nil, false
		}
		return m, ok
	}
	groups := partitionByVariable(c.terms)
	if len(groups) <= 1 {
		m, ok, err := c.solver.Check(c.terms)
		if err != nil {
			return nil, false
		}
		return m, ok
	}

	merged := NewModel()
	for _, group := range groups {
		groupKey := hashConjunction(group)
		var (
			m  *Model
			ok bool
		)
		if e, hit := c.cache.get(groupKey); hit {
			m, ok = e.model, e.sat
		} else {
			var err error
			m, ok, err = c.solver.Check(group)
			if err != nil {
				return nil, false
			}
			c.cache.put(groupKey, &cacheEntry{sat: ok, model: m})
		}
		if !ok {
			return nil, false
		}
		merged.Merge(m)
	}
	return merged, true
}

// partitionByVariable groups terms into variable-disjoint components: two
// terms land in the same group iff they share a free variable, or are
// transitively connected through a chain of terms that do.
func partitionByVariable(terms []*smt.Bool) [][]*smt.Bool {
	n := len(terms)
	parent := make([]int, n)
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(x int) int {
		for parent[x] != x {
			parent[x] = parent[parent[x]]
			x = parent[x]
		}
		return x
	}
	union := func(a, b int) {
		ra, rb := find(a), find(b)
		if ra != rb {
			parent[ra] = rb
		}
	}

	varOwner := map[string]int{}
	for i, t := range terms {
		bvs, bools := smt.FreeVars(t)
		for name := range bvs {
			if owner, seen := varOwner[name]; seen {
				union(owner, i)
			} else {
				varOwner[name] = i
			}
		}
		for name := range bools {
			key := "bool:" + name
			if owner, seen := varOwner[key]; seen {
				union(owner, i)
			} else {
				varOwner[key] = i
			}
		}
	}

	groupOf := map[int][]*smt.Bool{}
	for i, t := range terms {
		r := find(i)
		groupOf[r] = append(groupOf[r], t)
	}
	out := make([][]*smt.Bool, 0, len(groupOf))
	for _, g := range groupOf {
		out = append(out, g)
	}
	return out
}
