package cfgraph

import "github.com/eth2030/laser/smt"

// Graph is the engine-wide control-flow graph, shared (and therefore
// mutex-guarded by the caller if parallelism is ever added, per §5's
// "shared resources" note) across every global state's dispatch step.
type Graph struct {
	nodes  map[NodeID]*Node
	byKey  map[NodeKey]NodeID
	edges  map[edgeKey]*Edge
	nextID NodeID
}

type edgeKey struct {
	from, to NodeID
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{
		nodes: map[NodeID]*Node{},
		byKey: map[NodeKey]NodeID{},
		edges: map[edgeKey]*Edge{},
	}
}

// NodeFor returns the node registered under key, creating one if this is
// the first state to reach this (contract, start_pc, path_signature)
// triple. A new node begins at each JUMPDEST, function entry, or after a
// call-return, per §4.G; callers are responsible for calling NodeFor only
// at those points.
func (g *Graph) NodeFor(key NodeKey, function string) *Node {
	if id, ok := g.byKey[key]; ok {
		return g.nodes[id]
	}
	id := g.nextID
	g.nextID++
	n := &Node{ID: id, Contract: key.Contract, Function: function, StartPC: key.StartPC, PathSignature: key.PathSignature}
	g.nodes[id] = n
	g.byKey[key] = id
	return n
}

// RecordTraversal increments the node's traversed-state counter, called
// once per global state that passes through it.
func (g *Graph) RecordTraversal(id NodeID) {
	if n, ok := g.nodes[id]; ok {
		n.stateCount++
	}
}

// AddEdge records an edge from -> to, deduplicating on (from, to): a
// repeated traversal of the same two nodes does not grow the edge set.
func (g *Graph) AddEdge(from, to NodeID, jt JumpType, condition *smt.Bool) *Edge {
	key := edgeKey{from, to}
	if e, ok := g.edges[key]; ok {
		return e
	}
	var cond any
	if condition != nil {
		cond = condition
	}
	e := &Edge{From: from, To: to, Type: jt, Condition: cond}
	g.edges[key] = e
	return e
}

// AddConditionalBranch records the pair of edges a JUMPI produces: one
// CONDITIONAL edge per successor, whose conditions must be negations of
// each other modulo the path constraints (the invariant §3 names for CFG
// edges). Callers pass the taken-branch condition; the fall-through edge's
// condition is its negation.
func (g *Graph) AddConditionalBranch(from NodeID, takenTo, fallthroughTo NodeID, cond *smt.Bool) (taken, fallthrough_ *Edge) {
	taken = g.AddEdge(from, takenTo, Conditional, cond)
	fallthrough_ = g.AddEdge(from, fallthroughTo, Conditional, smt.NotBool(cond))
	return
}

// Node looks up a node by id.
func (g *Graph) Node(id NodeID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns every node in the graph. Callers must not mutate the
// returned map.
func (g *Graph) Nodes() map[NodeID]*Node { return g.nodes }

// Edges returns every edge in the graph, in no particular order.
func (g *Graph) Edges() []*Edge {
	out := make([]*Edge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	return out
}

// Len reports the number of nodes.
func (g *Graph) Len() int { return len(g.nodes) }
