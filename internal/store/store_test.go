package store

import (
	"testing"

	"github.com/vibe-xs/xs/internal/ast"
	"github.com/vibe-xs/xs/internal/types"
)

func lambda(param string, body ast.Expr) *ast.Lambda {
	return &ast.Lambda{Params: []ast.Param{{Name: param}}, Body: body}
}

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func intLit(n int64) *ast.Literal { return &ast.Literal{Kind: ast.LitInt, Value: n} }

func TestHashExprAlphaInvariant(t *testing.T) {
	// fn x -> x  and  fn y -> y  must hash identically: bound variables
	// are renamed to de Bruijn indices, not hashed by name (spec §8
	// property 2).
	a := lambda("x", ident("x"))
	b := lambda("y", ident("y"))
	if HashExpr(a) != HashExpr(b) {
		t.Fatalf("alpha-equivalent lambdas hashed differently: %s vs %s", HashExpr(a), HashExpr(b))
	}
}

func TestHashExprSpanInvariant(t *testing.T) {
	a := &ast.Literal{Kind: ast.LitInt, Value: int64(42)}
	b := &ast.Literal{Kind: ast.LitInt, Value: int64(42)}
	b.Overflowed = false
	// Spans live on the embedded base struct, which these tests never
	// set — hashing must not reach into it regardless.
	if HashExpr(a) != HashExpr(b) {
		t.Fatalf("span-identical literals hashed differently")
	}
}

func TestHashExprDistinguishesFreeFromBound(t *testing.T) {
	// fn x -> x   vs   fn x -> y   (y free) must hash differently.
	bound := lambda("x", ident("x"))
	free := lambda("x", ident("y"))
	if HashExpr(bound) == HashExpr(free) {
		t.Fatalf("bound and free references hashed the same")
	}
}

func TestHashExprRecordFieldOrderInvariant(t *testing.T) {
	a := &ast.Record{
		Fields:     map[string]ast.Expr{"a": intLit(1), "b": intLit(2)},
		FieldOrder: []string{"a", "b"},
	}
	b := &ast.Record{
		Fields:     map[string]ast.Expr{"a": intLit(1), "b": intLit(2)},
		FieldOrder: []string{"b", "a"},
	}
	if HashExpr(a) != HashExpr(b) {
		t.Fatalf("field-order-permuted records hashed differently")
	}
}

func TestHashExprDistinguishesDifferentValues(t *testing.T) {
	if HashExpr(intLit(1)) == HashExpr(intLit(2)) {
		t.Fatalf("distinct literals hashed the same")
	}
}

func TestHashExprRecAndLetSelfReference(t *testing.T) {
	// rec f x = f x   — the self-reference via Name must resolve to a
	// bound (de Bruijn) occurrence, not a free one.
	rec := &ast.Rec{
		Name:   "f",
		Params: []ast.Param{{Name: "x"}},
		Body:   &ast.Apply{Func: ident("f"), Arg: ident("x")},
	}
	recRenamed := &ast.Rec{
		Name:   "g",
		Params: []ast.Param{{Name: "y"}},
		Body:   &ast.Apply{Func: ident("g"), Arg: ident("y")},
	}
	if HashExpr(rec) != HashExpr(recRenamed) {
		t.Fatalf("alpha-equivalent recs hashed differently")
	}
}

func TestStoreInsertDedup(t *testing.T) {
	s := New()
	a := lambda("x", &ast.Apply{
		Func: &ast.Apply{Func: ident("*"), Arg: ident("x")},
		Arg:  intLit(2),
	})
	b := lambda("y", &ast.Apply{
		Func: &ast.Apply{Func: ident("*"), Arg: ident("y")},
		Arg:  intLit(2),
	})

	e1, err := s.Insert("double", a, types.Monotype(types.Prim{Kind: types.Int}), nil)
	if err != nil {
		t.Fatalf("first insert: %v", err)
	}
	e2, err := s.Insert("twice", b, types.Monotype(types.Prim{Kind: types.Int}), nil)
	if err != nil {
		t.Fatalf("second insert: %v", err)
	}
	if e1.Hash != e2.Hash {
		t.Fatalf("alpha-equivalent definitions produced distinct entries")
	}
	if s.Len() != 1 {
		t.Fatalf("expected one entry after deduplicating insert, got %d", s.Len())
	}

	names := s.ListByNamePrefix("")
	if len(names) != 2 {
		t.Fatalf("expected both names registered against the single entry, got %d", len(names))
	}
}

func TestStoreLookupPrefix(t *testing.T) {
	s := New()
	entry, err := s.Insert("one", intLit(1), types.Monotype(types.Prim{Kind: types.Int}), nil)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	full := entry.Hash.String()

	if _, err := s.LookupPrefix(full[:3]); err == nil {
		t.Fatalf("expected PrefixTooShortError for a 3-char prefix")
	} else if _, ok := err.(*PrefixTooShortError); !ok {
		t.Fatalf("expected *PrefixTooShortError, got %T", err)
	}

	got, err := s.LookupPrefix(full[:8])
	if err != nil {
		t.Fatalf("lookup by 8-char prefix: %v", err)
	}
	if got.Hash != entry.Hash {
		t.Fatalf("prefix lookup returned the wrong entry")
	}

	if _, err := s.LookupPrefix("ffffffff"); err == nil {
		t.Fatalf("expected NotFoundError for an unmatched prefix")
	}
}

func TestStoreAmbiguousPrefix(t *testing.T) {
	s := New()
	if _, err := s.Insert("a", intLit(1), types.Monotype(types.Prim{Kind: types.Int}), nil); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert("b", intLit(2), types.Monotype(types.Prim{Kind: types.Int}), nil); err != nil {
		t.Fatal(err)
	}
	// A 4-char prefix shared by both digests is unlikely for only two
	// entries, so the ambiguous branch runs only when the two digests'
	// 4-char prefixes happen to collide; otherwise the test checks the
	// unambiguous path instead: the 4-char prefix resolves to its entry.
	s.mu.Lock()
	var hashes []Hash
	for h := range s.entries {
		hashes = append(hashes, h)
	}
	s.mu.Unlock()
	if len(hashes) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(hashes))
	}
	p1, p2 := hashes[0].String()[:4], hashes[1].String()[:4]
	if p1 == p2 {
		if _, err := s.LookupPrefix(p1); err == nil {
			t.Fatalf("expected AmbiguousPrefixError")
		} else if _, ok := err.(*AmbiguousPrefixError); !ok {
			t.Fatalf("expected *AmbiguousPrefixError, got %T", err)
		}
	} else if got, err := s.LookupPrefix(p1); err != nil || got.Hash != hashes[0] {
		t.Fatalf("unique prefix %s: got %v, %v; want entry %s", p1, got, err, hashes[0])
	}
}

func TestStoreReverseDependencies(t *testing.T) {
	s := New()
	base, err := s.Insert("base", intLit(21), types.Monotype(types.Prim{Kind: types.Int}), nil)
	if err != nil {
		t.Fatal(err)
	}
	deps := map[Hash]struct{}{base.Hash: {}}
	dependent, err := s.Insert("usesBase", &ast.HashRef{Prefix: base.Hash.String()[:8]}, types.Monotype(types.Prim{Kind: types.Int}), deps)
	if err != nil {
		t.Fatal(err)
	}

	dependents := s.Dependents(base.Hash)
	if len(dependents) != 1 || dependents[0].Hash != dependent.Hash {
		t.Fatalf("expected exactly %s as a dependent of %s, got %v", dependent.Hash, base.Hash, dependents)
	}
}

func TestHashExprMatchPatternScoping(t *testing.T) {
	// match x { h :: t -> h | _ -> 0 }  and  match y { a :: b -> a | _ -> 0 }
	// are alpha-equivalent and must hash identically.
	m1 := &ast.Match{
		Scrutinee: ident("x"),
		Arms: []ast.MatchArm{
			{Pattern: &ast.PCons{Head: &ast.PVar{Name: "h"}, Tail: &ast.PVar{Name: "t"}}, Body: ident("h")},
			{Pattern: &ast.PWildcard{}, Body: intLit(0)},
		},
	}
	m2 := &ast.Match{
		Scrutinee: ident("x"),
		Arms: []ast.MatchArm{
			{Pattern: &ast.PCons{Head: &ast.PVar{Name: "a"}, Tail: &ast.PVar{Name: "b"}}, Body: ident("a")},
			{Pattern: &ast.PWildcard{}, Body: intLit(0)},
		},
	}
	if HashExpr(m1) != HashExpr(m2) {
		t.Fatalf("alpha-equivalent matches hashed differently")
	}
}

func TestHashExprTypeVarAnnotationAlphaInvariant(t *testing.T) {
	a := &ast.Lambda{
		Params: []ast.Param{{Name: "x", Type: &ast.TEName{Name: "a"}}},
		Body:   ident("x"),
	}
	b := &ast.Lambda{
		Params: []ast.Param{{Name: "x", Type: &ast.TEName{Name: "b"}}},
		Body:   ident("x"),
	}
	if HashExpr(a) != HashExpr(b) {
		t.Fatalf("differently-named but consistently-used type variables hashed differently")
	}
}
