package eval

import "fmt"

// RuntimeError is spec §4.H/§7's runtime-error family: DivisionByZero,
// PatternMatchFailure, ListHeadOfEmpty, HoleEncountered, UnresolvedHashRef,
// ContinuationAlreadyResumed, plus the defensive kinds for what the checker
// would normally have rejected (ApplyNonFunction, TypeError,
// UnknownIdentifier, FieldAccess, UnhandledEffect, Unsupported), which
// this package needs since it can also run unchecked ASTs directly (tests,
// a host skipping internal/check). It does not implement diag.Error
// (diag's Phase/Span model is for checker-phase diagnostics carrying
// concrete-syntax types; a runtime error instead carries whatever dynamic
// value or position context is useful at the panic site) but is a plain Go
// error, per spec §7 ("each error has a kind tag... a one-line human
// message").
type RuntimeError struct {
	Kind    string
	Message string
}

func (e *RuntimeError) Error() string { return fmt.Sprintf("runtime error [%s]: %s", e.Kind, e.Message) }

// RuntimeErrorf builds a RuntimeError with a formatted message.
func RuntimeErrorf(kind, format string, args ...interface{}) *RuntimeError {
	return &RuntimeError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}
