package check

import (
	"testing"

	"github.com/vibe-xs/xs/internal/ast"
	"github.com/vibe-xs/xs/internal/types"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func intLit(n int64) *ast.Literal { return &ast.Literal{Kind: ast.LitInt, Value: n} }

func apply(f ast.Expr, args ...ast.Expr) ast.Expr {
	for _, a := range args {
		f = &ast.Apply{Func: f, Arg: a}
	}
	return f
}

// TestInferArithmeticIsTypeSafe covers spec §8 property 4: a well-typed
// program over the built-in operators infers Int and the pure, empty
// effect row.
func TestInferArithmeticIsTypeSafe(t *testing.T) {
	c := New(nil)
	env := NewGlobalEnv()
	e := apply(ident("+"), intLit(1), intLit(2))
	ty, row, err := c.Infer(env, e)
	if err != nil {
		t.Fatalf("infer error: %v", err)
	}
	p, ok := c.subst.Apply(ty).(types.Prim)
	if !ok || p.Kind != types.Int {
		t.Fatalf("got %v, want Int", ty)
	}
	if !row.IsEmpty() {
		t.Fatalf("got effect row %v, want empty", row)
	}
}

// TestInferArithmeticRejectsTypeMismatch covers spec §8 property 4's
// negative case: applying an Int operator to a Bool argument must fail
// type checking rather than silently coerce.
func TestInferArithmeticRejectsTypeMismatch(t *testing.T) {
	c := New(nil)
	env := NewGlobalEnv()
	e := apply(ident("+"), intLit(1), &ast.Literal{Kind: ast.LitBool, Value: true})
	if _, _, err := c.Infer(env, e); err == nil {
		t.Fatalf("expected a type mismatch error")
	}
}

// TestInferPerformProducesOpenEffectRow covers spec §8 property 5: a
// perform of a registered effect's operation infers that effect present
// in an open row, not the empty row.
func TestInferPerformProducesOpenEffectRow(t *testing.T) {
	c := New(nil)
	env := NewGlobalEnv()
	perform := &ast.Perform{Effect: "IO", Operation: "print", Args: []ast.Expr{&ast.Literal{Kind: ast.LitString, Value: "hi"}}}
	_, row, err := c.Infer(env, perform)
	if err != nil {
		t.Fatalf("infer error: %v", err)
	}
	row = c.rows.Resolve(row)
	if _, ok := row.Has("IO"); !ok {
		t.Fatalf("got row %v, want it to contain IO", row)
	}
	if !row.IsOpen() {
		t.Fatalf("got row %v, want an open row", row)
	}
}

// TestInferHandleRemovesHandledEffect covers spec §8 property 8: handling
// an effect removes it from the resulting row.
func TestInferHandleRemovesHandledEffect(t *testing.T) {
	c := New(nil)
	env := NewGlobalEnv()
	getExpr := &ast.Perform{Effect: "State", Operation: "get"}
	handle := &ast.Handle{
		Body: getExpr,
		Clauses: []ast.HandleClause{
			{Effect: "State", Operation: "get", Continuation: "k", Body: apply(ident("k"), intLit(0))},
		},
	}
	_, row, err := c.Infer(env, handle)
	if err != nil {
		t.Fatalf("infer error: %v", err)
	}
	row = c.rows.Resolve(row)
	if _, ok := row.Has("State"); ok {
		t.Fatalf("got row %v, State should have been removed by the handler", row)
	}
}

// TestGeneralizePureIdentityIsPolymorphic covers spec §8 property 7: a
// pure let-bound identity function generalizes over its type variable and
// can then be applied at two different types.
func TestGeneralizePureIdentityIsPolymorphic(t *testing.T) {
	c := New(nil)
	env := NewGlobalEnv()
	idLambda := &ast.Lambda{Params: []ast.Param{{Name: "x"}}, Body: ident("x")}
	useTwice := &ast.Tuple{Elements: []ast.Expr{
		apply(ident("id"), intLit(1)),
		apply(ident("id"), &ast.Literal{Kind: ast.LitBool, Value: true}),
	}}
	let := &ast.Let{Name: "id", Value: idLambda, Body: useTwice}
	ty, row, err := c.Infer(env, let)
	if err != nil {
		t.Fatalf("infer error: %v (a monomorphic id would fail to apply at two types)", err)
	}
	tup, ok := c.subst.Apply(ty).(types.Tuple)
	if !ok || len(tup.Elems) != 2 {
		t.Fatalf("got %v, want a 2-tuple", ty)
	}
	if !row.IsEmpty() {
		t.Fatalf("got effect row %v, want empty", row)
	}
}

// TestGeneralizeRestrictedByEffectRow covers spec §4.D's value-and-effect
// restriction: a let-binding whose value has a non-empty effect row must
// not be generalized (its monomorphic use sites must all unify to the
// same type).
func TestGeneralizeRestrictedByEffectRow(t *testing.T) {
	c := New(nil)
	env := NewGlobalEnv()
	// let loud = perform IO.readLine() in (loud, loud) -- fine, no
	// polymorphism required since both uses are the same expression.
	readLine := &ast.Perform{Effect: "IO", Operation: "readLine"}
	useTwice := &ast.Tuple{Elements: []ast.Expr{ident("loud"), ident("loud")}}
	let := &ast.Let{Name: "loud", Value: readLine, Body: useTwice}
	_, _, err := c.Infer(env, let)
	if err != nil {
		t.Fatalf("infer error: %v", err)
	}
	scheme, ok := env.Lookup("loud")
	_ = scheme
	if ok {
		t.Fatalf("loud should not remain bound in the outer env after a scoped let")
	}
	// State.get's result is a fresh type variable and its row is non-empty,
	// so binding it must yield a monotype rather than quantify that variable.
	getT, getRow, err := c.Infer(env, &ast.Perform{Effect: "State", Operation: "get"})
	if err != nil {
		t.Fatalf("infer error: %v", err)
	}
	if s := c.schemeFor(env, getT, getRow); len(s.TypeVars) != 0 {
		t.Fatalf("effectful binding generalized over %v, want a monotype", s.TypeVars)
	}
}

// TestCheckProgramRejectsUnhandledNonIOEffect covers spec §4.E: a program
// whose top-level effect row still contains a non-IO effect is rejected.
func TestCheckProgramRejectsUnhandledNonIOEffect(t *testing.T) {
	perform := &ast.Perform{Effect: "State", Operation: "get"}
	prog := &ast.Program{Items: []ast.Expr{perform}}
	if _, err := Check(prog, nil); err == nil {
		t.Fatalf("expected UnhandledEffect at top level")
	}
}

// TestCheckProgramAllowsTopLevelIO covers spec §4.E's exception: IO may
// reach the top level unhandled (the default host handler takes it).
func TestCheckProgramAllowsTopLevelIO(t *testing.T) {
	perform := &ast.Perform{Effect: "IO", Operation: "print", Args: []ast.Expr{&ast.Literal{Kind: ast.LitString, Value: "hi"}}}
	prog := &ast.Program{Items: []ast.Expr{perform}}
	res, err := Check(prog, nil)
	if err != nil {
		t.Fatalf("infer error: %v", err)
	}
	if _, ok := res.Row.Has("IO"); !ok {
		t.Fatalf("got row %v, want it to still list IO", res.Row)
	}
}
