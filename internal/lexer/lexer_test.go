package lexer

import (
	"testing"

	"github.com/vibe-xs/xs"
)

func scanAll(t *testing.T, src string) []Token {
	t.Helper()
	l, err := New(WithSource("test"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	toks, err := l.All(src)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	return toks
}

func kinds(toks []Token) []xs.TokType {
	out := make([]xs.TokType, len(toks))
	for i, t := range toks {
		out[i] = t.TokType()
	}
	return out
}

func TestKeywordsVsIdentifiers(t *testing.T) {
	toks := scanAll(t, "let rec integer in")
	got := kinds(toks)
	want := []xs.TokType{KwLet, KwRec, IdentLower, KwIn, EOF}
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d (%v)", len(got), len(want), toks)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, Name(got[i]), Name(want[i]))
		}
	}
}

func TestIdentifierCaseSplit(t *testing.T) {
	toks := scanAll(t, "x Some")
	if toks[0].TokType() != IdentLower {
		t.Errorf("x: got %s, want IdentLower", Name(toks[0].TokType()))
	}
	if toks[1].TokType() != IdentUpper {
		t.Errorf("Some: got %s, want IdentUpper", Name(toks[1].TokType()))
	}
}

func TestIntLiteral(t *testing.T) {
	toks := scanAll(t, "42")
	if toks[0].TokType() != Int {
		t.Fatalf("got %s, want Int", Name(toks[0].TokType()))
	}
	if toks[0].Value().(int64) != 42 {
		t.Errorf("value = %v, want 42", toks[0].Value())
	}
}

func TestIntOverflowWraps(t *testing.T) {
	toks := scanAll(t, "18446744073709551615") // 2^64 - 1
	if !toks[0].Overflowed() {
		t.Errorf("expected overflow flag set")
	}
	if toks[0].Value().(int64) != -1 {
		t.Errorf("wrapped value = %v, want -1", toks[0].Value())
	}
}

func TestFloatLiteral(t *testing.T) {
	toks := scanAll(t, "3.14")
	if toks[0].TokType() != Float {
		t.Fatalf("got %s, want Float", Name(toks[0].TokType()))
	}
	if toks[0].Value().(float64) != 3.14 {
		t.Errorf("value = %v, want 3.14", toks[0].Value())
	}
}

func TestStringEscapes(t *testing.T) {
	toks := scanAll(t, `"a\nb\"c"`)
	if toks[0].TokType() != String {
		t.Fatalf("got %s, want String", Name(toks[0].TokType()))
	}
	if toks[0].Value().(string) != "a\nb\"c" {
		t.Errorf("value = %q, want %q", toks[0].Value(), "a\nb\"c")
	}
}

func TestHashRefVsComment(t *testing.T) {
	toks := scanAll(t, "#abc123\nx # trailing comment")
	if toks[0].TokType() != HashRef {
		t.Fatalf("got %s, want HashRef", Name(toks[0].TokType()))
	}
	if toks[0].Lexeme() != "#abc123" {
		t.Errorf("lexeme = %q, want #abc123", toks[0].Lexeme())
	}
	// "x" then EOF; the trailing "# trailing comment" is skipped entirely.
	rest := toks[1:]
	foundX := false
	for _, tok := range rest {
		if tok.TokType() == IdentLower && tok.Lexeme() == "x" {
			foundX = true
		}
	}
	if !foundX {
		t.Errorf("expected identifier 'x' among %v", rest)
	}
	if rest[len(rest)-1].TokType() != EOF {
		t.Errorf("last token = %s, want EOF", Name(rest[len(rest)-1].TokType()))
	}
}

func TestDashDashComment(t *testing.T) {
	toks := scanAll(t, "x -- this is a comment\ny")
	var idents []string
	for _, tok := range toks {
		if tok.TokType() == IdentLower {
			idents = append(idents, tok.Lexeme())
		}
	}
	if len(idents) != 2 || idents[0] != "x" || idents[1] != "y" {
		t.Errorf("identifiers = %v, want [x y]", idents)
	}
}

func TestOperators(t *testing.T) {
	toks := scanAll(t, "|> -> => <- :: == != <= >=")
	want := []xs.TokType{PipeArrow, Arrow, FatArrow, LArrow, Cons, EqEq, NotEq, Le, Ge, EOF}
	got := kinds(toks)
	if len(got) != len(want) {
		t.Fatalf("token count = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %s, want %s", i, Name(got[i]), Name(want[i]))
		}
	}
}

func TestRetrieverLooksUpByPosition(t *testing.T) {
	l, err := New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	sc, err := l.Scan("let x")
	if err != nil {
		t.Fatalf("Scan: %v", err)
	}
	first, err := sc.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	retr := sc.Retriever()
	got := retr(first.Span().From())
	if got.TokType() != KwLet {
		t.Errorf("retriever(0) = %s, want let", Name(got.TokType()))
	}
}
