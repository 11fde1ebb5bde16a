/*
Package diag implements the error/diagnostic model shared by every phase of
the pipeline (lexer, parser, checker, evaluator), per spec §7.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package diag

import (
	"fmt"

	"github.com/vibe-xs/xs"
)

// Phase identifies which pipeline stage raised a diagnostic.
type Phase int

const (
	Lexical Phase = iota
	Parse
	Resolution
	Type
	Runtime
)

func (p Phase) String() string {
	switch p {
	case Lexical:
		return "lexical"
	case Parse:
		return "parse"
	case Resolution:
		return "resolution"
	case Type:
		return "type"
	case Runtime:
		return "runtime"
	default:
		return "unknown"
	}
}

// Severity distinguishes hard failures from best-effort warnings (see
// spec §9(b): non-exhaustive match is a warning, not an error).
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

func (s Severity) String() string {
	if s == SeverityWarning {
		return "warning"
	}
	return "error"
}

// Error is the single diagnostic type produced by every phase. It carries
// enough structure for a host to format "expected vs found" type errors in
// concrete syntax (spec §7) without needing five unrelated error types.
type Error struct {
	Phase    Phase
	Severity Severity
	Span     xs.Span
	Kind     string // e.g. "TypeMismatch", "UnknownIdentifier", "DivisionByZero"
	Message  string
	Expected string // concrete-syntax rendering, only set for type mismatches
	Found    string
}

func (e *Error) Error() string {
	if e.Expected != "" || e.Found != "" {
		return fmt.Sprintf("%s error at %s: %s (expected %s, found %s)",
			e.Phase, e.Span, e.Message, e.Expected, e.Found)
	}
	return fmt.Sprintf("%s error at %s: %s", e.Phase, e.Span, e.Message)
}

// New builds a hard error diagnostic.
func New(phase Phase, kind string, span xs.Span, format string, args ...interface{}) *Error {
	return &Error{
		Phase:    phase,
		Severity: SeverityError,
		Span:     span,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}

// Mismatch builds a type-mismatch error carrying the two clashing types in
// their concrete-syntax rendering.
func Mismatch(span xs.Span, expected, found string) *Error {
	return &Error{
		Phase:    Type,
		Severity: SeverityError,
		Span:     span,
		Kind:     "TypeMismatch",
		Message:  "type mismatch",
		Expected: expected,
		Found:    found,
	}
}

// Warning builds a best-effort warning diagnostic (non-fatal).
func Warning(phase Phase, kind string, span xs.Span, format string, args ...interface{}) *Error {
	return &Error{
		Phase:    phase,
		Severity: SeverityWarning,
		Span:     span,
		Kind:     kind,
		Message:  fmt.Sprintf(format, args...),
	}
}
