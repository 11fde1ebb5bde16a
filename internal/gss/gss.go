/*
Package gss implements a graph-structured stack, the shared-stack data
structure a GLL parser uses to run every viable parse thread in lockstep
without blowing up the stack exponentially on ambiguous input.

gorgo's own GSS (lr/dss) is built for its GLR parser, where stack nodes are
merged purely by parse state; the implementation file itself (lr/dss/stack.go)
is missing from this distribution, leaving only its test suite (lr/dss/
stack_test.go) and lr/glr/glr.go's usage of Push/Pop/Fork/Reduce as evidence
of its shape. A GLL parser needs a different invariant: nodes are identified
by (return label, input position), per Scott & Johnstone's reference
algorithm, so that a call-return point is shared across every parse thread
that reaches the same label at the same position. This package implements
that position-indexed variant directly, keeping gorgo's role for the
structure — sharing common stack prefixes across parallel parses — and its
tracer() convention, rather than attempting to reconstruct the missing file.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package gss

import (
	"fmt"
	"sync"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'xs.gss'.
func tracer() tracing.Trace {
	return tracing.Select("xs.gss")
}

// Label identifies a grammar slot to return to once a call completes. The
// gll package supplies its own concrete label type; gss only needs it to be
// usable as a map key.
type Label interface{}

type nodeKey struct {
	label Label
	pos   int
}

// Node is a single GSS node: one (label, input position) pair, shared by
// every parse thread that calls into the same nonterminal at the same
// position.
type Node struct {
	Label Label
	Pos   int

	mu     sync.Mutex
	preds  []*edge
	popped map[int]interface{} // position -> sppf node summarizing what was popped
	order  []int               // positions in the order they were first popped
}

type edge struct {
	to   *Node
	data interface{}
}

// predecessors returns a snapshot of this node's predecessor edges.
func (n *Node) predecessors() []*edge {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]*edge, len(n.preds))
	copy(out, n.preds)
	return out
}

func (n *Node) String() string {
	return fmt.Sprintf("gss(%v@%d)", n.Label, n.Pos)
}

// PopRecord describes one prior pop of a node, replayed to a newly connected
// predecessor so it does not miss a continuation that already happened.
type PopRecord struct {
	Pos      int
	NodeData interface{}
	EdgeData interface{}
}

// Continuation is produced by Pop: one descriptor per predecessor edge,
// telling the caller which label to resume and with what combined data.
type Continuation struct {
	To       *Node
	EdgeData interface{}
	NodeData interface{}
}

// Graph interns GSS nodes by (label, position) and records the edges and
// pops needed to replay missed continuations, per Scott & Johnstone's
// create/pop procedures.
type Graph struct {
	mu    sync.Mutex
	nodes map[nodeKey]*Node
}

// NewGraph creates an empty GSS, good for one parse run.
func NewGraph() *Graph {
	return &Graph{nodes: map[nodeKey]*Node{}}
}

// Create returns the node for (label, pos), creating it on first use.
func (g *Graph) Create(label Label, pos int) *Node {
	key := nodeKey{label, pos}
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.nodes[key]; ok {
		return n
	}
	n := &Node{Label: label, Pos: pos, popped: map[int]interface{}{}, order: nil}
	g.nodes[key] = n
	tracer().Debugf("created %s", n)
	return n
}

// Connect adds an edge v -> u carrying data, unless it already exists. If v
// has already been popped at one or more positions, those pops are replayed
// as PopRecords so the caller can immediately schedule the continuations it
// would otherwise miss (this is what makes GLL correct on left recursion and
// shared right contexts).
func (g *Graph) Connect(v, u *Node, data interface{}) []PopRecord {
	v.mu.Lock()
	for _, e := range v.preds {
		if e.to == u && edgeDataEqual(e.data, data) {
			v.mu.Unlock()
			return nil
		}
	}
	v.preds = append(v.preds, &edge{to: u, data: data})
	popped := make(map[int]interface{}, len(v.popped))
	for pos, nd := range v.popped {
		popped[pos] = nd
	}
	v.mu.Unlock()

	if len(popped) == 0 {
		return nil
	}
	recs := make([]PopRecord, 0, len(popped))
	for pos, nd := range popped {
		recs = append(recs, PopRecord{Pos: pos, NodeData: nd, EdgeData: data})
	}
	tracer().Debugf("replaying %d pop(s) onto newly connected edge %s -> %s", len(recs), v, u)
	return recs
}

// edgeDataEqual compares edge payloads for the narrow cases gll threads
// through (nil, or a comparable SPPF node reference); anything else is
// treated as always-distinct so Connect never silently drops an edge.
func edgeDataEqual(a, b interface{}) (equal bool) {
	if a == nil && b == nil {
		return true
	}
	// == on two interfaces panics when both hold the same uncomparable
	// dynamic type; such payloads count as distinct.
	defer func() {
		if recover() != nil {
			equal = false
		}
	}()
	return a == b
}

// Pop records that v was popped at position pos summarizing nodeData, and
// returns one continuation per predecessor edge of v, combining that edge's
// data with nodeData the way the gll reducer expects (left sibling +
// right sibling -> packed SPPF node).
func (g *Graph) Pop(v *Node, pos int, nodeData interface{}) []Continuation {
	v.mu.Lock()
	if _, already := v.popped[pos]; already {
		v.mu.Unlock()
		return nil
	}
	v.popped[pos] = nodeData
	v.order = append(v.order, pos)
	preds := make([]*edge, len(v.preds))
	copy(preds, v.preds)
	v.mu.Unlock()

	out := make([]Continuation, 0, len(preds))
	for _, e := range preds {
		out = append(out, Continuation{To: e.to, EdgeData: e.data, NodeData: nodeData})
	}
	tracer().Debugf("popped %s at %d, %d continuation(s)", v, pos, len(out))
	return out
}

// Results returns every recorded pop for this node, in the order each
// position was first popped. A parser revisiting an already-computed
// (label, position) slot calls this instead of redoing the work, which is
// what makes node sharing actually save parse threads rather than just
// deduplicate nodes that nothing ever reads back.
func (n *Node) Results() []PopRecord {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]PopRecord, 0, len(n.order))
	for _, pos := range n.order {
		out = append(out, PopRecord{Pos: pos, NodeData: n.popped[pos]})
	}
	return out
}

// Size reports the number of interned nodes, useful for parser diagnostics
// and tests asserting on sharing (fewer nodes than parse threads means
// sharing happened).
func (g *Graph) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.nodes)
}
