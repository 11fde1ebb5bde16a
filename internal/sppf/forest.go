/*
Package sppf implements a Shared Packed Parse Forest: the data structure a
GLL parser reduces into instead of a single parse tree, so that ambiguous
input (an input for which more than one derivation exists) can be
represented in space proportional to the grammar and input size rather than
in space proportional to the number of derivations.

The design follows gorgo's lr/sppf/forest.go closely: symbol nodes [A (x…y)]
fan out via or-edges to RHS-nodes [δ (x) Σ], which fan out via and-edges to
the symbol nodes of their right-hand side, in sequence. RHS-node identity is
the key to collapsing ambiguity into a DAG instead of a forest of separate
trees (Grune & Jacobs, "Parsing Techniques", §3.7.3.1): two RHS-nodes are the
same node if and only if every member symbol, in order, spans the same
input range.

gorgo computes that identity with a hand-rolled int32 rolling hash
(rhsSignature) and stores sets of candidate nodes in a bespoke iteratable.Set
whose implementation is not present in this distribution (only its doc.go
survived). This package instead fingerprints a RHS with
github.com/cnf/structhash over a plain struct built from the rule, the
symbols' Values and their start positions, and stores candidate sets with
github.com/emirpasic/gods's hashset — the same role, served by a real
dependency already carried for other parts of the front end rather than a
reconstruction of a missing internal package.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package sppf

import (
	"fmt"
	"io"
	"sort"

	"github.com/cnf/structhash"
	"github.com/emirpasic/gods/sets/hashset"
	"github.com/npillmayer/schuko/tracing"

	"github.com/vibe-xs/xs"
)

// tracer traces with key 'xs.sppf'.
func tracer() tracing.Trace {
	return tracing.Select("xs.sppf")
}

// searchTree models a tree of height 2: (p1, p2) -> set of candidate nodes.
// For symbol nodes (p1, p2) = (start, end); for RHS-nodes (p1, p2) =
// (start, rule).
type searchTree map[uint64]map[uint64]*hashset.Set

func (t searchTree) add(p1, p2 uint64, item interface{}) {
	t1, ok := t[p1]
	if !ok {
		t1 = make(map[uint64]*hashset.Set)
		t[p1] = t1
	}
	s, ok := t1[p2]
	if !ok {
		s = hashset.New()
		t1[p2] = s
	}
	s.Add(item)
}

func (t searchTree) candidates(p1, p2 uint64) []interface{} {
	if t1, ok := t[p1]; ok {
		if s, ok := t1[p2]; ok {
			return s.Values()
		}
	}
	return nil
}

func (t searchTree) all() []interface{} {
	var out []interface{}
	for _, t1 := range t {
		for _, s := range t1 {
			out = append(out, s.Values()...)
		}
	}
	return out
}

// SymbolNode represents [A (x…y)]: a grammar symbol recognized over the
// input span (x…y).
type SymbolNode struct {
	Symbol *Symbol
	Extent xs.Span
}

func (sn *SymbolNode) String() string {
	return fmt.Sprintf("%s %s", sn.Symbol, sn.Extent)
}

// rhsNode represents [δ (x) Σ]: one right-hand side, identified by its
// start position and a fingerprint Σ over its children.
type rhsNode struct {
	rule  int
	start uint64
	sigma string
}

type rhsFingerprint struct {
	Rule  int
	Start uint64
	Kids  []kidFingerprint
}

type kidFingerprint struct {
	Value int
	From  uint64
}

func rhsSignature(rule int, rhs []*SymbolNode, start uint64) string {
	fp := rhsFingerprint{Rule: rule, Start: start}
	for _, kid := range rhs {
		fp.Kids = append(fp.Kids, kidFingerprint{Value: kid.Symbol.Value, From: kid.Extent.From()})
	}
	h, err := structhash.Hash(fp, 1)
	if err != nil {
		// structhash only fails on unsupported field types, and
		// rhsFingerprint contains none; a failure here is a programmer error.
		panic(fmt.Sprintf("sppf: hashing RHS fingerprint: %v", err))
	}
	return h
}

type orEdge struct {
	fromSym *SymbolNode
	toRHS   *rhsNode
}

type andEdge struct {
	fromRHS  *rhsNode
	toSym    *SymbolNode
	sequence uint
}

// Forest is a shared packed parse forest under construction by a GLL parser.
type Forest struct {
	symbolNodes searchTree
	rhsNodes    searchTree
	orEdges     map[*SymbolNode]*hashset.Set
	andEdges    map[*rhsNode]*hashset.Set
	parent      map[*SymbolNode]*SymbolNode
	root        *SymbolNode
}

// NewForest returns an empty forest.
func NewForest() *Forest {
	return &Forest{
		symbolNodes: searchTree{},
		rhsNodes:    searchTree{},
		orEdges:     map[*SymbolNode]*hashset.Set{},
		andEdges:    map[*rhsNode]*hashset.Set{},
		parent:      map[*SymbolNode]*SymbolNode{},
	}
}

// Root returns the forest's designated root node, or nil if none has been
// set yet.
func (f *Forest) Root() *SymbolNode { return f.root }

// SetRoot designates the root node of the forest explicitly (used when the
// grammar has no single wrapping start production).
func (f *Forest) SetRoot(sn *SymbolNode) { f.root = sn }

// Parent returns the symbol node a given node was folded into, if any.
func (f *Forest) Parent(sn *SymbolNode) (*SymbolNode, bool) {
	p, ok := f.parent[sn]
	return p, ok
}

// AddTerminal adds a node for a recognized terminal token at position pos.
func (f *Forest) AddTerminal(t *Symbol, pos uint64) *SymbolNode {
	return f.addSymNode(t, pos, pos+1)
}

// AddReduction adds a node for a reduced grammar rule. The extent of the
// reduction is derived from the RHS children. If rhs is empty, use
// AddEpsilonReduction instead.
func (f *Forest) AddReduction(sym *Symbol, rule int, rhs []*SymbolNode) *SymbolNode {
	if len(rhs) == 0 {
		return nil
	}
	start := rhs[0].Extent.From()
	end := rhs[len(rhs)-1].Extent.To()
	tracer().Debugf("reduction: %s -> rhs=%v over (%d…%d)", sym, rhs, start, end)
	node := f.addRHSNode(rule, rhs, start)
	f.addOrEdge(sym, node, start, end)
	for seq, kid := range rhs {
		f.addAndEdge(node, uint(seq), kid)
		f.parent[kid] = f.findSymNode(sym, start, end)
	}
	symnode := f.findSymNode(sym, start, end)
	if sym.Name == startSymbolName {
		f.root = symnode
	}
	return symnode
}

// AddEpsilonReduction adds a node for a reduction of an empty right-hand
// side at position pos.
func (f *Forest) AddEpsilonReduction(sym *Symbol, rule int, pos uint64) *SymbolNode {
	node := f.addRHSNode(rule, nil, pos)
	f.addOrEdge(sym, node, pos, pos)
	symnode := f.findSymNode(sym, pos, pos)
	epsNode := &SymbolNode{Symbol: Epsilon, Extent: xs.NewSpan(pos, pos)}
	f.addAndEdge(node, 0, epsNode)
	f.parent[epsNode] = symnode
	if sym.Name == startSymbolName {
		f.root = symnode
	}
	return symnode
}

const startSymbolName = "S'"

func (f *Forest) findSymNode(sym *Symbol, start, end uint64) *SymbolNode {
	for _, v := range f.symbolNodes.candidates(start, end) {
		sn := v.(*SymbolNode)
		if sn.Symbol == sym {
			return sn
		}
	}
	return nil
}

func (f *Forest) addSymNode(sym *Symbol, start, end uint64) *SymbolNode {
	if sn := f.findSymNode(sym, start, end); sn != nil {
		return sn
	}
	sn := &SymbolNode{Symbol: sym, Extent: xs.NewSpan(start, end)}
	f.symbolNodes.add(start, end, sn)
	return sn
}

func (f *Forest) findRHSNode(rule int, rhs []*SymbolNode, start uint64) *rhsNode {
	signature := rhsSignature(rule, rhs, start)
	for _, v := range f.rhsNodes.candidates(start, uint64(rule)) {
		n := v.(*rhsNode)
		if n.sigma == signature {
			return n
		}
	}
	return nil
}

func (f *Forest) addRHSNode(rule int, rhs []*SymbolNode, start uint64) *rhsNode {
	if n := f.findRHSNode(rule, rhs, start); n != nil {
		return n
	}
	n := &rhsNode{rule: rule, start: start, sigma: rhsSignature(rule, rhs, start)}
	f.rhsNodes.add(start, uint64(rule), n)
	return n
}

func (f *Forest) addOrEdge(sym *Symbol, rhs *rhsNode, start, end uint64) {
	sn := f.addSymNode(sym, start, end)
	e := orEdge{fromSym: sn, toRHS: rhs}
	set, ok := f.orEdges[sn]
	if !ok {
		set = hashset.New()
		f.orEdges[sn] = set
	}
	set.Add(e)
}

func (f *Forest) addAndEdge(rhs *rhsNode, seq uint, sym *SymbolNode) andEdge {
	e := andEdge{fromRHS: rhs, toSym: sym, sequence: seq}
	set, ok := f.andEdges[rhs]
	if !ok {
		set = hashset.New()
		f.andEdges[rhs] = set
	}
	set.Add(e)
	return e
}

// Children returns the ordered children of a symbol node's only
// derivation. For a node with more than one derivation it returns one of
// them, which one is unspecified (or-edges are kept in an unordered set);
// Derivations exposes all of them.
func (f *Forest) Children(sn *SymbolNode) []*SymbolNode {
	ds := f.Derivations(sn)
	if len(ds) == 0 {
		return nil
	}
	return ds[0]
}

// Derivations returns every distinct ordered child sequence recorded for a
// symbol node — more than one element means the parse was ambiguous at this
// point.
func (f *Forest) Derivations(sn *SymbolNode) [][]*SymbolNode {
	orSet, ok := f.orEdges[sn]
	if !ok {
		return nil
	}
	var out [][]*SymbolNode
	for _, ev := range orSet.Values() {
		oe := ev.(orEdge)
		andSet, ok := f.andEdges[oe.toRHS]
		if !ok {
			out = append(out, nil)
			continue
		}
		edges := andSet.Values()
		sort.Slice(edges, func(i, j int) bool {
			return edges[i].(andEdge).sequence < edges[j].(andEdge).sequence
		})
		kids := make([]*SymbolNode, 0, len(edges))
		for _, ev := range edges {
			kids = append(kids, ev.(andEdge).toSym)
		}
		out = append(out, kids)
	}
	return out
}

// Ambiguous reports whether a symbol node has more than one recorded
// derivation.
func (f *Forest) Ambiguous(sn *SymbolNode) bool {
	return len(f.Derivations(sn)) > 1
}

// Rule returns the grammar rule number recorded for a symbol node's
// derivation (for a node with several, an unspecified one of them, not
// necessarily the one Children returns), and false for nodes with no recorded
// reduction (terminals, or a node nothing ever reduced to). A reducer
// walking the forest uses this alongside Children to tell which grammar
// alternative produced a given node, the way a hand-written AST builder
// switches on a parse tree's concrete node type.
func (f *Forest) Rule(sn *SymbolNode) (int, bool) {
	orSet, ok := f.orEdges[sn]
	if !ok {
		return 0, false
	}
	vals := orSet.Values()
	if len(vals) == 0 {
		return 0, false
	}
	return vals[0].(orEdge).toRHS.rule, true
}

// WriteDOT renders the forest in GraphViz DOT format, mirroring gorgo's
// ToGraphViz — useful for debugging parser/grammar issues, never used by
// the production pipeline.
func WriteDOT(f *Forest, w io.Writer) {
	io.WriteString(w, "digraph G {\n")
	io.WriteString(w, "node [fontname=\"Helvetica\",shape=box,fontsize=10];\n")
	rhsNodes := f.rhsNodes.all()
	sort.Slice(rhsNodes, func(i, j int) bool {
		return rhsNodes[i].(*rhsNode).rule < rhsNodes[j].(*rhsNode).rule
	})
	for _, v := range rhsNodes {
		n := v.(*rhsNode)
		fmt.Fprintf(w, "\"rule %d (%s)\" [style=rounded,color=\"#404040\"]\n", n.rule, n.sigma)
	}
	symNodes := f.symbolNodes.all()
	sort.Slice(symNodes, func(i, j int) bool {
		return symNodes[i].(*SymbolNode).Extent.From() < symNodes[j].(*SymbolNode).Extent.From()
	})
	for _, v := range symNodes {
		n := v.(*SymbolNode)
		if n.Symbol.IsTerminal() {
			fmt.Fprintf(w, "\"%s\" [fillcolor=grey90,style=filled]\n", n)
		} else {
			fmt.Fprintf(w, "\"%s\" []\n", n)
		}
	}
	for _, set := range f.orEdges {
		for _, ev := range set.Values() {
			e := ev.(orEdge)
			fmt.Fprintf(w, "\"%s\" -> \"rule %d (%s)\" [style=dashed]\n", e.fromSym, e.toRHS.rule, e.toRHS.sigma)
		}
	}
	for _, set := range f.andEdges {
		for _, ev := range set.Values() {
			e := ev.(andEdge)
			fmt.Fprintf(w, "\"rule %d (%s)\" -> \"%s\" [label=%d]\n", e.fromRHS.rule, e.fromRHS.sigma, e.toSym, e.sequence)
		}
	}
	io.WriteString(w, "}\n")
}
