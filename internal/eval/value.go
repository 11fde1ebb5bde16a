/*
Package eval implements spec §4.H: a tree-walking evaluator over
internal/ast's checked AST, executing algebraic effects (perform/handle)
via installed handlers and delivering continuations as first-class,
single-shot values.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package eval

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/vibe-xs/xs/internal/ast"
)

func tracer() tracing.Trace {
	return tracing.Select("xs.eval")
}

// Value is the tagged variant of spec §4.H's runtime value: Int | Float |
// Bool | String | Unit | List | Tuple | Record | Constructor | Closure |
// RecClosure | Continuation.
type Value interface {
	fmt.Stringer
	valueNode()
}

// VInt is a signed 64-bit integer value. Arithmetic overflow wraps modulo
// 2^64, reinterpreted as two's-complement (spec §9 open question a,
// DESIGN.md) — this falls directly out of Go's own int64 arithmetic
// semantics, so no bespoke wraparound code exists beyond using int64
// throughout.
type VInt int64

func (VInt) valueNode()      {}
func (v VInt) String() string { return fmt.Sprintf("%d", int64(v)) }

// VFloat is an IEEE-754 double value.
type VFloat float64

func (VFloat) valueNode()      {}
func (v VFloat) String() string { return fmt.Sprintf("%g", float64(v)) }

// VBool is a boolean value.
type VBool bool

func (VBool) valueNode() {}
func (v VBool) String() string {
	if v {
		return "true"
	}
	return "false"
}

// VString is a UTF-8 string value.
type VString string

func (VString) valueNode()      {}
func (v VString) String() string { return string(v) }

// VUnit is the sole unit value.
type VUnit struct{}

func (VUnit) valueNode()      {}
func (VUnit) String() string { return "()" }

// VList is an immutable sequence of values, spec's List(seq of Value).
// Represented as a Go slice; list operations (cons, match) always copy
// rather than mutate, matching the language's value semantics.
type VList struct{ Elements []Value }

func (VList) valueNode() {}
func (v VList) String() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = e.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// VTuple is a fixed-arity product value.
type VTuple struct{ Elements []Value }

func (VTuple) valueNode() {}
func (v VTuple) String() string {
	parts := make([]string, len(v.Elements))
	for i, e := range v.Elements {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// VRecord is a labelled-field value.
type VRecord struct {
	Fields     map[string]Value
	FieldOrder []string
}

func (VRecord) valueNode() {}
func (v VRecord) String() string {
	parts := make([]string, len(v.FieldOrder))
	for i, n := range v.FieldOrder {
		parts[i] = fmt.Sprintf("%s = %s", n, v.Fields[n])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// VConstructor is an ADT constructor application value.
type VConstructor struct {
	Name string
	Args []Value
}

func (VConstructor) valueNode() {}
func (v VConstructor) String() string {
	if len(v.Args) == 0 {
		return v.Name
	}
	parts := make([]string, len(v.Args))
	for i, a := range v.Args {
		parts[i] = a.String()
	}
	return v.Name + "(" + strings.Join(parts, ", ") + ")"
}

// VClosure is a lambda value: a single parameter, a body, and the
// environment snapshot it closed over (spec: "closures capture a snapshot
// of the enclosing environment").
type VClosure struct {
	Param   string
	Body    ast.Expr
	Env     *Env
}

func (*VClosure) valueNode()      {}
func (v *VClosure) String() string { return fmt.Sprintf("<closure %s>", v.Param) }

// VRecClosure is a closure that also binds its own name inside its
// environment for self-recursion (spec's Rec).
type VRecClosure struct {
	Self  string
	Param string
	Body  ast.Expr
	Env   *Env
}

func (*VRecClosure) valueNode()      {}
func (v *VRecClosure) String() string { return fmt.Sprintf("<rec %s %s>", v.Self, v.Param) }

// VBuiltin is a host-level primitive function (the desugared operator
// identifiers "+", "::", "==", … that internal/check's prelude types and
// this package's NewGlobalEnv binds to Go closures instead of user-level
// VClosures — no bytecode or AST body exists for them to evaluate).
type VBuiltin struct {
	Name string
	Fn   func(Value) (Value, error)
}

func (*VBuiltin) valueNode()      {}
func (v *VBuiltin) String() string { return fmt.Sprintf("<builtin %s>", v.Name) }

// VContinuation is spec's first-class Continuation: invoking it with an
// argument resumes the suspended computation that performed the effect it
// was reified from. See handle.go for the channel-based implementation
// that makes "invoking it" actually resume a blocked dynamic extent.
type VContinuation struct {
	resume func(Value) (Value, error)
}

func (*VContinuation) valueNode()      {}
func (v *VContinuation) String() string { return "<continuation>" }

// Apply calls a callable value (VClosure, VRecClosure, VBuiltin, or
// VContinuation) with one argument — the single entry point every Apply
// AST node and every internal dispatch (pattern-matched k-calls, operator
// application) funnels through. frame is the *caller's* dynamic handler
// stack: effects are dynamically, not lexically, scoped (spec §4.H/§5 —
// a perform inside a called closure is caught by whichever handler
// dynamically encloses the call, not whichever enclosed the closure's
// definition), so it is threaded through rather than taken from the
// closure's captured Env.
func Apply(ev *Evaluator, frame *Frame, fn Value, arg Value) (Value, error) {
	switch f := fn.(type) {
	case *VClosure:
		inner := f.Env.Child()
		inner.Bind(f.Param, arg)
		return ev.Eval(inner, frame, f.Body)
	case *VRecClosure:
		inner := f.Env.Child()
		inner.Bind(f.Self, f)
		inner.Bind(f.Param, arg)
		return ev.Eval(inner, frame, f.Body)
	case *VBuiltin:
		return f.Fn(arg)
	case *VContinuation:
		return f.resume(arg)
	default:
		return nil, RuntimeErrorf("ApplyNonFunction", "value %s is not callable", fn)
	}
}
