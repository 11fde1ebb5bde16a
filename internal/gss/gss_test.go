package gss

import "testing"

func TestCreateIsIdempotent(t *testing.T) {
	g := NewGraph()
	a := g.Create("L1", 3)
	b := g.Create("L1", 3)
	if a != b {
		t.Fatalf("Create(L1,3) returned distinct nodes, want sharing")
	}
	if g.Size() != 1 {
		t.Fatalf("graph size = %d, want 1", g.Size())
	}
}

func TestCreateDistinguishesPosition(t *testing.T) {
	g := NewGraph()
	a := g.Create("L1", 3)
	b := g.Create("L1", 4)
	if a == b {
		t.Fatalf("nodes at different positions must not be shared")
	}
}

func TestConnectDeduplicatesEdges(t *testing.T) {
	g := NewGraph()
	v := g.Create("L1", 0)
	u := g.Create("L0", 0)
	if recs := g.Connect(v, u, "call-data"); recs != nil {
		t.Fatalf("first Connect should return no replayed pops, got %v", recs)
	}
	if recs := g.Connect(v, u, "call-data"); recs != nil {
		t.Fatalf("duplicate Connect should be a no-op, got %v", recs)
	}
	if got := len(v.predecessors()); got != 1 {
		t.Fatalf("predecessor count = %d, want 1", got)
	}
}

func TestPopProducesOneContinuationPerPredecessor(t *testing.T) {
	g := NewGraph()
	v := g.Create("L1", 0)
	u1 := g.Create("L0", 0)
	u2 := g.Create("L0-alt", 0)
	g.Connect(v, u1, "edge1")
	g.Connect(v, u2, "edge2")

	conts := g.Pop(v, 5, "sppf-summary")
	if len(conts) != 2 {
		t.Fatalf("continuations = %d, want 2", len(conts))
	}
	seen := map[*Node]bool{}
	for _, c := range conts {
		seen[c.To] = true
		if c.NodeData != "sppf-summary" {
			t.Errorf("NodeData = %v, want sppf-summary", c.NodeData)
		}
	}
	if !seen[u1] || !seen[u2] {
		t.Fatalf("expected continuations to both u1 and u2")
	}
}

func TestPopIsIdempotentAtSamePosition(t *testing.T) {
	g := NewGraph()
	v := g.Create("L1", 0)
	u := g.Create("L0", 0)
	g.Connect(v, u, nil)

	first := g.Pop(v, 5, "z1")
	if len(first) != 1 {
		t.Fatalf("first pop continuations = %d, want 1", len(first))
	}
	second := g.Pop(v, 5, "z2")
	if second != nil {
		t.Fatalf("re-popping the same position should be a no-op, got %v", second)
	}
}

func TestConnectAfterPopReplaysContinuation(t *testing.T) {
	g := NewGraph()
	v := g.Create("L1", 0)
	u1 := g.Create("L0", 0)
	g.Connect(v, u1, nil)
	g.Pop(v, 7, "summary")

	// a second parse thread reaches the same call node later and connects a
	// new predecessor after the pop already happened; it must still receive
	// a continuation rather than silently missing the derivation.
	u2 := g.Create("L0-late", 0)
	recs := g.Connect(v, u2, nil)
	if len(recs) != 1 {
		t.Fatalf("expected 1 replayed pop record, got %d", len(recs))
	}
	if recs[0].Pos != 7 || recs[0].NodeData != "summary" {
		t.Errorf("replayed record = %+v, want pos 7 / summary", recs[0])
	}
}

func TestResultsPreservesPopOrder(t *testing.T) {
	g := NewGraph()
	v := g.Create("L1", 0)

	g.Pop(v, 9, "third")
	g.Pop(v, 3, "first")
	g.Pop(v, 3, "duplicate-ignored")
	g.Pop(v, 6, "second")

	results := v.Results()
	if len(results) != 3 {
		t.Fatalf("Results() len = %d, want 3 (dup pop at an already-recorded position is a no-op)", len(results))
	}
	// insertion order, not position order: 9 was popped before 3 or 6.
	if results[0].Pos != 9 || results[0].NodeData != "third" {
		t.Errorf("results[0] = %+v, want {Pos:9 NodeData:third}", results[0])
	}
	if results[1].Pos != 3 || results[1].NodeData != "first" {
		t.Errorf("results[1] = %+v, want {Pos:3 NodeData:first}", results[1])
	}
	if results[2].Pos != 6 || results[2].NodeData != "second" {
		t.Errorf("results[2] = %+v, want {Pos:6 NodeData:second}", results[2])
	}
}
