package xs

/*
License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/

import "fmt"

// TokType is a category for a lexer token. Concrete values are defined by
// package internal/lexer; callers outside of the lexer/parser pair should
// treat this as opaque.
type TokType int

// TokTypeStringer renders a TokType for diagnostics.
type TokTypeStringer func(TokType) string

// Token is a single lexical token, carrying its category, its literal
// source text, an optional already-converted value, and its span.
type Token interface {
	TokType() TokType
	Lexeme() string
	Value() interface{}
	Span() Span
}

// TokenRetriever fetches the token that starts at a given input position.
// The parser and the SPPF-to-AST reducer use it to recover the original
// lexeme for a terminal leaf of the parse forest.
type TokenRetriever func(pos uint64) Token

// Span is a half-open byte range [From, To) into the source text. Every
// AST node, token and parse-forest node carries one.
type Span struct {
	from, to uint64
}

// NewSpan builds a span from a start (inclusive) and end (exclusive) offset.
func NewSpan(from, to uint64) Span {
	return Span{from: from, to: to}
}

// From returns the start offset of a span.
func (s Span) From() uint64 { return s.from }

// To returns the end offset of a span (exclusive).
func (s Span) To() uint64 { return s.to }

// Len returns the number of bytes covered by a span.
func (s Span) Len() uint64 { return s.to - s.from }

// IsNull returns true for the zero span.
func (s Span) IsNull() bool { return s == Span{} }

// Extend returns the smallest span covering both s and other.
func (s Span) Extend(other Span) Span {
	if other.from < s.from {
		s.from = other.from
	}
	if other.to > s.to {
		s.to = other.to
	}
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s.from, s.to)
}
