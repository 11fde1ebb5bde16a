/*
Package lexer turns Vibe/XS source text into a stream of xs.Token values.

The DFA is built once, at New(), from literal/keyword/pattern tables using
github.com/timtadh/lexmachine — the same library gorgo's lr/scanner/lexmach
wraps. Numeric literals are additionally range-checked against int64 at lex
time, and "#" is disambiguated into either a content-hash reference or a
line comment depending on what follows it.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/npillmayer/schuko/tracing"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"

	"github.com/vibe-xs/xs"
	"github.com/vibe-xs/xs/diag"
)

// tracer traces with key 'xs.lexer'.
func tracer() tracing.Trace {
	return tracing.Select("xs.lexer")
}

var literals = []string{
	"(", ")", "[", "]", "{", "}", ",", ";", ":", "=",
	"->", "=>", "<-", "|", "|>", "<", ">", "<=", ">=", "==", "!=", "!",
	"+", "-", "*", "/", "%", "&&", "||", "::", "?", "\\", "_", ".",
}

var literalTok = map[string]xs.TokType{
	"(": LParen, ")": RParen, "[": LBracket, "]": RBracket, "{": LBrace, "}": RBrace,
	",": Comma, ";": Semi, ":": Colon, "=": Equals,
	"->": Arrow, "=>": FatArrow, "<-": LArrow, "|": Pipe, "|>": PipeArrow,
	"<": Lt, ">": Gt, "<=": Le, ">=": Ge, "==": EqEq, "!=": NotEq, "!": Bang,
	"+": Plus, "-": Minus, "*": Star, "/": Slash, "%": Percent,
	"&&": AndAnd, "||": OrOr, "::": Cons, "?": Question, "\\": Backslash,
	"_": Underscore, ".": Dot,
}

var once sync.Once
var compiled *lexmachine.Lexer
var compileErr error

// Option configures a Lexer at construction time.
type Option func(*Lexer)

// WithSource attaches a source identifier used only for diagnostics.
func WithSource(name string) Option {
	return func(l *Lexer) { l.source = name }
}

// Lexer scans one source string into tokens on demand.
type Lexer struct {
	source string
	errs   []*diag.Error
}

// New builds a Lexer. Compiling the underlying DFA happens at most once per
// process; subsequent calls reuse the compiled machine.
func New(opts ...Option) (*Lexer, error) {
	once.Do(compile)
	if compileErr != nil {
		return nil, compileErr
	}
	l := &Lexer{}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

func compile() {
	lex := lexmachine.NewLexer()

	// longest-match wins; among equal-length matches lexmachine prefers the
	// rule added first, so keywords and multi-char operators are added
	// before their single-char/identifier counterparts.
	for _, lit := range literals {
		r := regexpEscape(lit)
		tt := literalTok[lit]
		lex.Add([]byte(r), tokenAction(tt))
	}
	for word, tt := range Keywords {
		lex.Add([]byte(word), tokenAction(tt))
	}

	// "#" followed by a hex digit starts a hash reference; any other "#"
	// starts a line comment.
	lex.Add([]byte(`#[0-9a-fA-F]+`), tokenAction(HashRef))
	lex.Add([]byte(`--[^\n]*`), skipAction)
	lex.Add([]byte(`#([^0-9a-fA-F\n][^\n]*)?`), skipAction)

	lex.Add([]byte(`[0-9]+\.[0-9]+([eE][-+]?[0-9]+)?`), floatAction)
	lex.Add([]byte(`[0-9]+`), intAction)

	lex.Add([]byte(`"([^"\\]|\\.)*"`), stringAction)

	lex.Add([]byte(`true|false`), boolAction)

	lex.Add([]byte(`[a-z_][a-zA-Z0-9_']*`), identAction(IdentLower))
	lex.Add([]byte(`[A-Z][a-zA-Z0-9_']*`), identAction(IdentUpper))

	lex.Add([]byte(`\n`), tokenAction(Newline))
	lex.Add([]byte(`[ \t\r]+`), skipAction)

	if err := lex.Compile(); err != nil {
		tracer().Errorf("error compiling lexer DFA: %v", err)
		compileErr = fmt.Errorf("lexer: compiling DFA: %w", err)
		return
	}
	compiled = lex
}

func regexpEscape(lit string) string {
	var b strings.Builder
	for _, r := range lit {
		b.WriteByte('\\')
		b.WriteRune(r)
	}
	return b.String()
}

func span(m *machines.Match) xs.Span {
	return xs.NewSpan(uint64(m.TC-len(m.Bytes)), uint64(m.TC))
}

func tokenAction(tt xs.TokType) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return Token{kind: tt, lexeme: string(m.Bytes), span: span(m)}, nil
	}
}

func skipAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return nil, nil
}

func boolAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	return Token{kind: Bool, lexeme: string(m.Bytes), value: string(m.Bytes) == "true", span: span(m)}, nil
}

func identAction(tt xs.TokType) lexmachine.Action {
	return func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
		return Token{kind: tt, lexeme: string(m.Bytes), span: span(m)}, nil
	}
}

func intAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	lexeme := string(m.Bytes)
	tok := Token{kind: Int, lexeme: lexeme, span: span(m)}
	// parse as the wrapped bit pattern directly: a literal whose value does
	// not fit in int64 wraps mod 2^64 (spec open question a), same as any
	// other overflowing arithmetic in this language.
	u, err := strconv.ParseUint(lexeme, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("lexer: integer literal %q does not fit in 64 bits", lexeme)
	}
	if _, signedErr := strconv.ParseInt(lexeme, 10, 64); signedErr != nil {
		tok.overflowed = true
	}
	tok.value = int64(u)
	return tok, nil
}

func floatAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	lexeme := string(m.Bytes)
	f, err := strconv.ParseFloat(lexeme, 64)
	if err != nil {
		return nil, fmt.Errorf("lexer: invalid float literal %q: %w", lexeme, err)
	}
	return Token{kind: Float, lexeme: lexeme, value: f, span: span(m)}, nil
}

func stringAction(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
	raw := string(m.Bytes)
	unquoted, err := unescape(raw[1 : len(raw)-1])
	if err != nil {
		return nil, fmt.Errorf("lexer: %w", err)
	}
	return Token{kind: String, lexeme: raw, value: unquoted, span: span(m)}, nil
}

func unescape(body string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c != '\\' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(body) {
			return "", fmt.Errorf("dangling escape at end of string literal")
		}
		switch body[i] {
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		default:
			return "", fmt.Errorf("unknown escape sequence \\%c", body[i])
		}
	}
	return b.String(), nil
}

// Scanner tokenizes one input string, producing tokens on demand via Next
// and remembering them for TokenRetriever-style random access.
type Scanner struct {
	lex     *Lexer
	scanner *lexmachine.Scanner
	seen    []Token
	byPos   map[uint64]Token
	done    bool
}

// Scan begins scanning input.
func (l *Lexer) Scan(input string) (*Scanner, error) {
	s, err := compiled.Scanner([]byte(input))
	if err != nil {
		return nil, fmt.Errorf("lexer: %w", err)
	}
	return &Scanner{lex: l, scanner: s, byPos: map[uint64]Token{}}, nil
}

// Next returns the next token, or an EOF token once input is exhausted.
func (s *Scanner) Next() (Token, error) {
	if s.done {
		return Token{kind: EOF}, nil
	}
	for {
		tok, err, eof := s.scanner.Next()
		if eof {
			s.done = true
			return Token{kind: EOF}, nil
		}
		if err != nil {
			if ui, is := err.(*machines.UnconsumedInput); is {
				s.scanner.TC = ui.FailTC
				tracer().Errorf("unconsumed input at %d", ui.FailTC)
				continue
			}
			return Token{}, fmt.Errorf("lexer: %w", err)
		}
		t := tok.(Token)
		s.seen = append(s.seen, t)
		s.byPos[t.span.From()] = t
		return t, nil
	}
}

// All scans every remaining token, Newline tokens included, up to and
// including the final EOF token (the parser's grammar rules skip Newline
// tokens except where they separate statements).
func (l *Lexer) All(input string) ([]Token, error) {
	sc, err := l.Scan(input)
	if err != nil {
		return nil, err
	}
	var toks []Token
	for {
		t, err := sc.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, t)
		if t.kind == EOF {
			return toks, nil
		}
	}
}

// Retriever returns a TokenRetriever over the positions this scanner has
// already produced tokens for, satisfying xs.TokenRetriever for the
// SPPF-to-AST reduction pass.
func (s *Scanner) Retriever() xs.TokenRetriever {
	return func(pos uint64) xs.Token {
		if t, ok := s.byPos[pos]; ok {
			return t
		}
		return Token{kind: EOF}
	}
}
