package lexer

import (
	"fmt"

	"github.com/vibe-xs/xs"
)

// Token categories produced by the lexer (spec §4.A). Values are handed to
// lexmachine as pattern IDs, so they must be stable for the lifetime of a
// compiled DFA.
const (
	EOF xs.TokType = iota
	Int
	Float
	Bool
	String
	IdentLower // initial lowercase: value variable / type variable
	IdentUpper // initial uppercase: constructor / type / module
	HashRef    // "#" followed by one or more hex digits
	Newline    // significant inside block contexts

	// keywords
	KwLet
	KwRec
	KwIn
	KwFn
	KwIf
	KwThen
	KwElse
	KwMatch
	KwType
	KwModule
	KwImport
	KwExport
	KwAs
	KwPerform
	KwHandle
	KwWith
	KwDo
	KwEnd
	KwForall
	KwEffect
	KwReturn

	// punctuation
	LParen
	RParen
	LBracket
	RBracket
	LBrace
	RBrace
	Comma
	Semi
	Colon
	Equals

	// operators
	Arrow       // ->
	FatArrow    // =>
	LArrow      // <-
	Pipe        // |
	PipeArrow   // |>
	Lt          // <
	Gt          // >
	Le          // <=
	Ge          // >=
	EqEq        // ==
	NotEq       // !=
	Plus        // +
	Minus       // -
	Star        // *
	Slash       // /
	Percent     // %
	AndAnd      // &&
	OrOr        // ||
	Cons        // ::
	Question    // ?
	Backslash   // \
	Underscore  // _
	Dot         // .
	Bang        // !  (effect-row annotation marker in types)
)

var names = map[xs.TokType]string{
	EOF: "EOF", Int: "Int", Float: "Float", Bool: "Bool", String: "String",
	IdentLower: "IdentLower", IdentUpper: "IdentUpper", HashRef: "HashRef", Newline: "Newline",
	KwLet: "let", KwRec: "rec", KwIn: "in", KwFn: "fn", KwIf: "if", KwElse: "else",
	KwThen: "then",
	KwMatch: "match", KwType: "type", KwModule: "module", KwImport: "import",
	KwExport: "export", KwAs: "as", KwPerform: "perform", KwHandle: "handle",
	KwWith: "with", KwDo: "do", KwEnd: "end", KwForall: "forall", KwEffect: "effect",
	KwReturn: "return",
	LParen: "(", RParen: ")", LBracket: "[", RBracket: "]", LBrace: "{", RBrace: "}",
	Comma: ",", Semi: ";", Colon: ":", Equals: "=",
	Arrow: "->", FatArrow: "=>", LArrow: "<-", Pipe: "|", PipeArrow: "|>",
	Lt: "<", Gt: ">", Le: "<=", Ge: ">=", EqEq: "==", NotEq: "!=",
	Plus: "+", Minus: "-", Star: "*", Slash: "/", Percent: "%",
	AndAnd: "&&", OrOr: "||", Cons: "::", Question: "?", Backslash: "\\",
	Underscore: "_", Dot: ".", Bang: "!",
}

// Name renders a TokType for diagnostics and grammar error messages.
func Name(t xs.TokType) string {
	if n, ok := names[t]; ok {
		return n
	}
	return fmt.Sprintf("tok(%d)", int(t))
}

// Keywords maps the reserved words of spec §4.A to their token type.
var Keywords = map[string]xs.TokType{
	"let": KwLet, "rec": KwRec, "in": KwIn, "fn": KwFn, "if": KwIf, "else": KwElse,
	"then": KwThen,
	"match": KwMatch, "type": KwType, "module": KwModule, "import": KwImport,
	"export": KwExport, "as": KwAs, "perform": KwPerform, "handle": KwHandle,
	"with": KwWith, "do": KwDo, "end": KwEnd, "forall": KwForall, "effect": KwEffect,
	"return": KwReturn,
}

// Token is the concrete implementation of xs.Token produced by this package.
type Token struct {
	kind       xs.TokType
	lexeme     string
	value      interface{}
	span       xs.Span
	overflowed bool // int literal exceeded int64 range and was wrapped mod 2^64
}

var _ xs.Token = Token{}

func (t Token) TokType() xs.TokType { return t.kind }
func (t Token) Lexeme() string      { return t.lexeme }
func (t Token) Value() interface{}  { return t.value }
func (t Token) Span() xs.Span       { return t.span }

// Overflowed reports whether an Int token's literal exceeded int64 range.
func (t Token) Overflowed() bool { return t.overflowed }

func (t Token) String() string {
	return fmt.Sprintf("%s(%q)@%s", Name(t.kind), t.lexeme, t.span)
}
