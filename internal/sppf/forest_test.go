package sppf

import "testing"

func TestAddTerminalIsIdempotent(t *testing.T) {
	f := NewForest()
	tok := &Symbol{Name: "IdentLower", Value: 1, Terminal: true}
	a := f.AddTerminal(tok, 3)
	b := f.AddTerminal(tok, 3)
	if a != b {
		t.Fatalf("expected the same terminal node to be reused")
	}
}

func TestAddReductionSharesUnambiguousNode(t *testing.T) {
	f := NewForest()
	ident := &Symbol{Name: "IdentLower", Value: 1, Terminal: true}
	leaf := f.AddTerminal(ident, 0)

	expr := &Symbol{Name: "expr", Value: 100}
	a := f.AddReduction(expr, 1, []*SymbolNode{leaf})
	b := f.AddReduction(expr, 1, []*SymbolNode{leaf})
	if a != b {
		t.Fatalf("expected reduction to reuse the existing symbol node")
	}
	if f.Ambiguous(a) {
		t.Fatalf("single identical derivation should not be flagged ambiguous")
	}
}

func TestAddReductionRecordsAmbiguity(t *testing.T) {
	f := NewForest()
	ident := &Symbol{Name: "IdentLower", Value: 1, Terminal: true}
	num := &Symbol{Name: "Int", Value: 2, Terminal: true}
	leafA := f.AddTerminal(ident, 0)
	leafB := f.AddTerminal(num, 0)

	expr := &Symbol{Name: "expr", Value: 100}
	f.AddReduction(expr, 1, []*SymbolNode{leafA})
	sn := f.AddReduction(expr, 2, []*SymbolNode{leafB})

	if !f.Ambiguous(sn) {
		t.Fatalf("expected two distinct rules over the same span to be ambiguous")
	}
	if got := len(f.Derivations(sn)); got != 2 {
		t.Fatalf("derivations = %d, want 2", got)
	}
}

func TestAddEpsilonReduction(t *testing.T) {
	f := NewForest()
	opt := &Symbol{Name: "maybeEffects", Value: 50}
	sn := f.AddEpsilonReduction(opt, 7, 4)
	if sn.Extent.From() != 4 || sn.Extent.To() != 4 {
		t.Fatalf("epsilon node span = %s, want (4…4)", sn.Extent)
	}
	kids := f.Children(sn)
	if len(kids) != 1 || kids[0].Symbol != Epsilon {
		t.Fatalf("expected a single epsilon child, got %v", kids)
	}
}

func TestChildrenOrderedBySequence(t *testing.T) {
	f := NewForest()
	a := f.AddTerminal(&Symbol{Name: "a", Value: 1, Terminal: true}, 0)
	b := f.AddTerminal(&Symbol{Name: "b", Value: 2, Terminal: true}, 1)
	c := f.AddTerminal(&Symbol{Name: "c", Value: 3, Terminal: true}, 2)

	rule := &Symbol{Name: "abc", Value: 10}
	sn := f.AddReduction(rule, 9, []*SymbolNode{a, b, c})
	kids := f.Children(sn)
	if len(kids) != 3 || kids[0] != a || kids[1] != b || kids[2] != c {
		t.Fatalf("children out of order: %v", kids)
	}
}

func TestRootTrackedForStartSymbol(t *testing.T) {
	f := NewForest()
	leaf := f.AddTerminal(&Symbol{Name: "a", Value: 1, Terminal: true}, 0)
	start := &Symbol{Name: startSymbolName, Value: 0}
	root := f.AddReduction(start, 1, []*SymbolNode{leaf})
	if f.Root() != root {
		t.Fatalf("expected forest root to be set to the S' reduction")
	}
}
