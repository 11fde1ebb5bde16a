package eval

import (
	"testing"

	"github.com/vibe-xs/xs/internal/ast"
)

func ident(name string) *ast.Ident { return &ast.Ident{Name: name} }

func intLit(n int64) *ast.Literal { return &ast.Literal{Kind: ast.LitInt, Value: n} }

func run(t *testing.T, e ast.Expr) Value {
	t.Helper()
	ev := NewEvaluator(nil, nil)
	v, err := ev.Eval(NewGlobalEnv(), nil, e)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	return v
}

func TestEvalArithmetic(t *testing.T) {
	// 1 + 2
	e := &ast.Apply{
		Func: &ast.Apply{Func: ident("+"), Arg: intLit(1)},
		Arg:  intLit(2),
	}
	v := run(t, e)
	if i, ok := v.(VInt); !ok || i != 3 {
		t.Fatalf("1 + 2 = %v, want VInt(3)", v)
	}
}

func TestEvalDivisionByZero(t *testing.T) {
	e := &ast.Apply{
		Func: &ast.Apply{Func: ident("/"), Arg: intLit(1)},
		Arg:  intLit(0),
	}
	ev := NewEvaluator(nil, nil)
	_, err := ev.Eval(NewGlobalEnv(), nil, e)
	if err == nil {
		t.Fatalf("expected DivisionByZero error")
	}
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != "DivisionByZero" {
		t.Fatalf("got %v, want DivisionByZero", err)
	}
}

func TestEvalIdentityApplication(t *testing.T) {
	// let id = fn x -> x in id (id 42)
	idFn := &ast.Lambda{Params: []ast.Param{{Name: "x"}}, Body: ident("x")}
	inner := &ast.Apply{Func: ident("id"), Arg: intLit(42)}
	outer := &ast.Apply{Func: ident("id"), Arg: inner}
	let := &ast.Let{Name: "id", Value: idFn, Body: outer}
	v := run(t, let)
	if i, ok := v.(VInt); !ok || i != 42 {
		t.Fatalf("got %v, want VInt(42)", v)
	}
}

func TestEvalRecFactorial(t *testing.T) {
	// rec fact n = if n <= 1 then 1 else n * fact (n - 1) in fact 5
	cond := &ast.Apply{Func: &ast.Apply{Func: ident("<="), Arg: ident("n")}, Arg: intLit(1)}
	recurse := &ast.Apply{Func: ident("fact"), Arg: &ast.Apply{
		Func: &ast.Apply{Func: ident("-"), Arg: ident("n")}, Arg: intLit(1),
	}}
	elseBranch := &ast.Apply{Func: &ast.Apply{Func: ident("*"), Arg: ident("n")}, Arg: recurse}
	body := &ast.If{Cond: cond, Then: intLit(1), Else: elseBranch}
	rec := &ast.Rec{Name: "fact", Params: []ast.Param{{Name: "n"}}, Body: body}
	call := &ast.Apply{Func: ident("fact"), Arg: intLit(5)}
	prog := &ast.Block{Exprs: []ast.Expr{rec, call}}
	v := run(t, prog)
	if i, ok := v.(VInt); !ok || i != 120 {
		t.Fatalf("fact 5 = %v, want VInt(120)", v)
	}
}

func TestEvalListConsAndMatch(t *testing.T) {
	// match (1 :: 2 :: []) with | h :: _ -> h | [] -> 0
	list := &ast.Apply{
		Func: &ast.Apply{Func: ident("::"), Arg: intLit(1)},
		Arg: &ast.Apply{
			Func: &ast.Apply{Func: ident("::"), Arg: intLit(2)},
			Arg:  &ast.List{Elements: nil},
		},
	}
	m := &ast.Match{
		Scrutinee: list,
		Arms: []ast.MatchArm{
			{Pattern: &ast.PCons{Head: &ast.PVar{Name: "h"}, Tail: &ast.PWildcard{}}, Body: ident("h")},
			{Pattern: &ast.PList{Elements: nil}, Body: intLit(0)},
		},
	}
	v := run(t, m)
	if i, ok := v.(VInt); !ok || i != 1 {
		t.Fatalf("got %v, want VInt(1)", v)
	}
}

func TestEvalMatchFailure(t *testing.T) {
	m := &ast.Match{
		Scrutinee: intLit(5),
		Arms:      []ast.MatchArm{{Pattern: &ast.PLiteral{Lit: intLit(1)}, Body: intLit(0)}},
	}
	ev := NewEvaluator(nil, nil)
	_, err := ev.Eval(NewGlobalEnv(), nil, m)
	if err == nil {
		t.Fatalf("expected PatternMatchFailure")
	}
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != "PatternMatchFailure" {
		t.Fatalf("got %v, want PatternMatchFailure", err)
	}
}

func TestEvalHandleStateGetPut(t *testing.T) {
	// handle (perform State.put(perform State.get() + 1)) with
	//   | State.get() k -> k(10)
	//   | State.put(v) k -> v
	get := &ast.Perform{Effect: "State", Operation: "get"}
	incremented := &ast.Apply{Func: &ast.Apply{Func: ident("+"), Arg: get}, Arg: intLit(1)}
	put := &ast.Perform{Effect: "State", Operation: "put", Args: []ast.Expr{incremented}}
	handle := &ast.Handle{
		Body: put,
		Clauses: []ast.HandleClause{
			{Effect: "State", Operation: "get", Continuation: "k", Body: &ast.Apply{Func: ident("k"), Arg: intLit(10)}},
			{Effect: "State", Operation: "put", Params: []string{"v"}, Continuation: "k", Body: ident("v")},
		},
	}
	v := run(t, handle)
	if i, ok := v.(VInt); !ok || i != 11 {
		t.Fatalf("got %v, want VInt(11)", v)
	}
}

func TestEvalHandleIOPrintViaHost(t *testing.T) {
	var printed []string
	host := NewStdHost(func(s string) { printed = append(printed, s) }, func() string { return "" })
	perform := &ast.Perform{Effect: "IO", Operation: "print", Args: []ast.Expr{&ast.Literal{Kind: ast.LitString, Value: "hi"}}}
	ev := NewEvaluator(host, nil)
	_, err := ev.Eval(NewGlobalEnv(), nil, perform)
	if err != nil {
		t.Fatalf("eval error: %v", err)
	}
	if len(printed) != 1 || printed[0] != "hi" {
		t.Fatalf("got %v, want [\"hi\"]", printed)
	}
}

func TestEvalHandleUnhandledEffectPropagatesAsRuntimeError(t *testing.T) {
	perform := &ast.Perform{Effect: "Exception", Operation: "throw", Args: []ast.Expr{intLit(1)}}
	ev := NewEvaluator(nil, nil)
	_, err := ev.Eval(NewGlobalEnv(), nil, perform)
	if err == nil {
		t.Fatalf("expected UnhandledEffect error")
	}
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != "UnhandledEffect" {
		t.Fatalf("got %v, want UnhandledEffect", err)
	}
}

func TestEvalContinuationSingleShot(t *testing.T) {
	// handle (perform State.get()) with | State.get() k -> (k(1), k(2))
	// invoking k a second time must fail with ContinuationAlreadyResumed.
	get := &ast.Perform{Effect: "State", Operation: "get"}
	firstCall := &ast.Apply{Func: ident("k"), Arg: intLit(1)}
	secondCall := &ast.Apply{Func: ident("k"), Arg: intLit(2)}
	body := &ast.Tuple{Elements: []ast.Expr{firstCall, secondCall}}
	handle := &ast.Handle{
		Body: get,
		Clauses: []ast.HandleClause{
			{Effect: "State", Operation: "get", Continuation: "k", Body: body},
		},
	}
	ev := NewEvaluator(nil, nil)
	_, err := ev.Eval(NewGlobalEnv(), nil, handle)
	if err == nil {
		t.Fatalf("expected ContinuationAlreadyResumed")
	}
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != "ContinuationAlreadyResumed" {
		t.Fatalf("got %v, want ContinuationAlreadyResumed", err)
	}
}

func TestEvalHashRef(t *testing.T) {
	// Without a term store attached, a HashRef fails with UnresolvedHashRef.
	ev := NewEvaluator(nil, nil)
	_, err := ev.Eval(NewGlobalEnv(), nil, &ast.HashRef{Prefix: "deadbeef"})
	if err == nil {
		t.Fatalf("expected UnresolvedHashRef with no store attached")
	}
	re, ok := err.(*RuntimeError)
	if !ok || re.Kind != "UnresolvedHashRef" {
		t.Fatalf("got %v, want UnresolvedHashRef", err)
	}
}

func TestEvalDeterminism(t *testing.T) {
	// spec §8 property 6: evaluating the same closed expression twice
	// yields identical results.
	e := &ast.Apply{
		Func: &ast.Apply{Func: ident("*"), Arg: intLit(6)},
		Arg:  intLit(7),
	}
	a := run(t, e)
	b := run(t, e)
	av, aok := a.(VInt)
	bv, bok := b.(VInt)
	if !aok || !bok || av != bv {
		t.Fatalf("non-deterministic result: %v vs %v", a, b)
	}
}
