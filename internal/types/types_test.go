package types

import "testing"

func TestEffectRowString(t *testing.T) {
	closed := ClosedRow(EffectInstance{Name: "IO"}, EffectInstance{Name: "State", Args: []Type{Prim{Kind: Int}}})
	if got, want := closed.String(), "{IO, State Int}"; got != want {
		t.Fatalf("closed row: got %q want %q", got, want)
	}
	open := OpenRow("e1")
	if got, want := open.String(), "{|e1}"; got != want {
		t.Fatalf("open empty row: got %q want %q", got, want)
	}
}

func TestTypeSchemeString(t *testing.T) {
	mono := Monotype(Prim{Kind: Int})
	if mono.String() != "Int" {
		t.Fatalf("monotype: got %q", mono.String())
	}
	scheme := TypeScheme{TypeVars: []string{"a"}, Type: List{Elem: Var{Name: "a"}}}
	if got, want := scheme.String(), "forall a. [a]"; got != want {
		t.Fatalf("scheme: got %q want %q", got, want)
	}
}

func TestUnifyVarBindsConcrete(t *testing.T) {
	s := NewSubst()
	a := Var{Name: "a"}
	if err := s.Unify(a, Prim{Kind: Int}); err != nil {
		t.Fatalf("unify: %v", err)
	}
	if got := s.Resolve(a); got != (Prim{Kind: Int}) {
		t.Fatalf("resolve: got %v", got)
	}
}

func TestUnifyVarToVarChain(t *testing.T) {
	s := NewSubst()
	a, b := Var{Name: "a"}, Var{Name: "b"}
	if err := s.Unify(a, b); err != nil {
		t.Fatalf("unify a b: %v", err)
	}
	if err := s.Unify(b, Prim{Kind: Bool}); err != nil {
		t.Fatalf("unify b Bool: %v", err)
	}
	if got := s.Resolve(a); got != (Prim{Kind: Bool}) {
		t.Fatalf("a should resolve through b to Bool, got %v", got)
	}
}

func TestUnifyOccursCheck(t *testing.T) {
	s := NewSubst()
	a := Var{Name: "a"}
	err := s.Unify(a, List{Elem: a})
	if err == nil {
		t.Fatal("expected occurs check error")
	}
	if _, ok := err.(*OccursCheckError); !ok {
		t.Fatalf("expected *OccursCheckError, got %T", err)
	}
}

func TestUnifyConstructorMismatch(t *testing.T) {
	s := NewSubst()
	err := s.Unify(Prim{Kind: Int}, Prim{Kind: Bool})
	if err == nil {
		t.Fatal("expected mismatch error")
	}
	if _, ok := err.(*MismatchError); !ok {
		t.Fatalf("expected *MismatchError, got %T", err)
	}
}

func TestUnifyFuncRecurses(t *testing.T) {
	s := NewSubst()
	a := Var{Name: "a"}
	f1 := Func{Param: a, Result: Prim{Kind: Int}}
	f2 := Func{Param: Prim{Kind: String}, Result: Var{Name: "b"}}
	if err := s.Unify(f1, f2); err != nil {
		t.Fatalf("unify funcs: %v", err)
	}
	if got := s.Resolve(a); got != (Prim{Kind: String}) {
		t.Fatalf("param: got %v", got)
	}
	if got := s.Resolve(Var{Name: "b"}); got != (Prim{Kind: Int}) {
		t.Fatalf("result: got %v", got)
	}
}

func TestUnifyRowsClosedExactMatch(t *testing.T) {
	s := NewSubst()
	re := NewRowEnv()
	a := ClosedRow(EffectInstance{Name: "IO"})
	b := ClosedRow(EffectInstance{Name: "IO"})
	if _, err := re.UnifyRows(s, a, b); err != nil {
		t.Fatalf("unify rows: %v", err)
	}
}

func TestUnifyRowsClosedMismatchFails(t *testing.T) {
	s := NewSubst()
	re := NewRowEnv()
	a := ClosedRow(EffectInstance{Name: "IO"})
	b := ClosedRow(EffectInstance{Name: "State"})
	_, err := re.UnifyRows(s, a, b)
	if err == nil {
		t.Fatal("expected row mismatch error")
	}
	if _, ok := err.(*RowMismatchError); !ok {
		t.Fatalf("expected *RowMismatchError, got %T", err)
	}
}

func TestUnifyRowsOneOpenAbsorbsDifference(t *testing.T) {
	s := NewSubst()
	re := NewRowEnv()
	a := ClosedRow(EffectInstance{Name: "IO"}, EffectInstance{Name: "State"})
	b := OpenRow("e1", EffectInstance{Name: "IO"})
	result, err := re.UnifyRows(s, a, b)
	if err != nil {
		t.Fatalf("unify rows: %v", err)
	}
	if _, ok := result.Has("State"); !ok {
		t.Fatalf("expected State absorbed into result, got %s", result)
	}
	bound := re.Resolve(b)
	if _, ok := bound.Has("State"); !ok {
		t.Fatalf("expected e1 bound to absorb State, got %s", bound)
	}
}

func TestUnifyRowsBothOpenShareFreshTail(t *testing.T) {
	s := NewSubst()
	re := NewRowEnv()
	a := OpenRow("e1", EffectInstance{Name: "IO"})
	b := OpenRow("e2", EffectInstance{Name: "State"})
	result, err := re.UnifyRows(s, a, b)
	if err != nil {
		t.Fatalf("unify rows: %v", err)
	}
	if _, ok := result.Has("IO"); !ok {
		t.Fatalf("expected IO present, got %s", result)
	}
	if _, ok := result.Has("State"); !ok {
		t.Fatalf("expected State present, got %s", result)
	}
	if !result.IsOpen() {
		t.Fatalf("expected residual row still open, got %s", result)
	}
}
