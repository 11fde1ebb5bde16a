package gll

import (
	"testing"

	"github.com/vibe-xs/xs/internal/lexer"
)

func mustParse(t *testing.T, src string) *Result {
	t.Helper()
	lx, err := lexer.New()
	if err != nil {
		t.Fatalf("lexer.New: %v", err)
	}
	toks, err := lx.All(src)
	if err != nil {
		t.Fatalf("All(%q): %v", src, err)
	}
	p := New(toks)
	res, err := p.ParseProgram()
	if err != nil {
		t.Fatalf("ParseProgram(%q): %v", src, err)
	}
	return res
}

func TestParseLiteralExpr(t *testing.T) {
	res := mustParse(t, "42")
	if res.Root == nil {
		t.Fatal("expected a root node")
	}
}

func TestParseLetIn(t *testing.T) {
	mustParse(t, "let x = 1 in x")
}

func TestParseLambdaAndApp(t *testing.T) {
	mustParse(t, "fn x y -> x")
	mustParse(t, "(fn x -> x) 1")
}

func TestParseIfElse(t *testing.T) {
	mustParse(t, "if true then 1 else 2")
}

func TestParseRec(t *testing.T) {
	mustParse(t, "rec fact n = n")
}

func TestParseBinopChain(t *testing.T) {
	mustParse(t, "1 + 2")
	mustParse(t, "x |> f")
}

func TestParseMatch(t *testing.T) {
	mustParse(t, `match x {
Some(y) -> y
| None -> 0
}`)
}

func TestParsePerformAndHandle(t *testing.T) {
	mustParse(t, "perform IO.print 1")
	mustParse(t, `handle body with {
| IO.print m k -> k
| return x -> x
}`)
}

func TestParseDoBlock(t *testing.T) {
	mustParse(t, `do {
x <- perform IO.read
perform IO.print x
}`)
}

// TestParseRecordVsBlockAmbiguity exercises the one input shape where
// "{"-opening is genuinely ambiguous rather than merely ambiguous in name:
// "{ x }" is a complete single-field record (the shorthand field "x" bound
// to a variable "x") and, independently, a complete one-statement block
// (the bare expression "x"). Both productions consume the identical token
// range, so the shared atom SymbolNode must carry two packed derivations.
func TestParseRecordVsBlockAmbiguity(t *testing.T) {
	lx, err := lexer.New()
	if err != nil {
		t.Fatalf("lexer.New: %v", err)
	}
	toks, err := lx.All(`{ x }`)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	p := New(toks)
	alts := p.parse(ntAtom, p.skipLayout(0))
	if len(alts) == 0 {
		t.Fatalf("expected at least one atom alternative for %q", `{ x }`)
	}
	node := alts[0].node
	if !p.forest.Ambiguous(node) {
		t.Fatalf("expected %q to parse as both a record and a block", `{ x }`)
	}
	if ds := p.forest.Derivations(node); len(ds) < 2 {
		t.Fatalf("expected at least 2 packed derivations, got %d", len(ds))
	}
}

func TestParseList(t *testing.T) {
	mustParse(t, "[1, 2, 3]")
	mustParse(t, "[]")
}

func TestParseTuple(t *testing.T) {
	mustParse(t, "(1, 2)")
}

func TestParseQualifiedAndHashRef(t *testing.T) {
	mustParse(t, "Module.value")
	mustParse(t, "#deadbeef")
}

func TestParseModuleImportExport(t *testing.T) {
	mustParse(t, "module Foo")
	mustParse(t, "import Bar as B")
	mustParse(t, "export f, g")
}

func TestParseTypeAndEffectDecl(t *testing.T) {
	mustParse(t, "type Option a = Some a | None")
	mustParse(t, `effect State s {
get : s,
put : s,
}`)
}

func TestParsePatternForms(t *testing.T) {
	mustParse(t, `match xs {
[] -> 0
| x :: rest -> x
| _ -> 0
}`)
}

func TestParseRecordPattern(t *testing.T) {
	mustParse(t, `match p {
{ x = a, y } -> a
| _ -> 0
}`)
}

func TestParseFailureReportsSpan(t *testing.T) {
	lx, err := lexer.New()
	if err != nil {
		t.Fatalf("lexer.New: %v", err)
	}
	toks, err := lx.All("let x =")
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	p := New(toks)
	if _, err := p.ParseProgram(); err == nil {
		t.Fatalf("expected a parse error for incomplete let")
	}
}
