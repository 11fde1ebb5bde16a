/*
Package types implements the Type/EffectRow/TypeScheme data model of spec
§3 and the union-find substitutions the checker (internal/check) drives
Algorithm W with.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package types

import (
	"fmt"
	"sort"
	"strings"

	"github.com/npillmayer/schuko/tracing"
	"golang.org/x/exp/maps"
)

func tracer() tracing.Trace {
	return tracing.Select("xs.types")
}

// PrimKind enumerates the primitive scalar types.
type PrimKind int

const (
	Int PrimKind = iota
	Float
	Bool
	String
	Unit
)

func (k PrimKind) String() string {
	switch k {
	case Int:
		return "Int"
	case Float:
		return "Float"
	case Bool:
		return "Bool"
	case String:
		return "String"
	case Unit:
		return "Unit"
	default:
		return "?prim"
	}
}

// Type is the tagged variant of spec §3: Int | Float | Bool | String | Unit
// | List(T) | Tuple([T]) | Option(T) | Record({field→T}) | Var(name) |
// UserDefined(name, [T]) | Function(T₁, T₂) | FunctionWithEffect(T₁, T₂,
// EffectRow). Go has no sum types, so each variant is its own struct
// implementing a marker method, the shape every reducer-style node in the
// retrieved examples uses (sunholo/ailang's core.CoreExpr/CorePattern,
// gorgo's terex.Atom tagging).
type Type interface {
	fmt.Stringer
	typeNode()
}

// Prim is one of Int, Float, Bool, String, Unit.
type Prim struct{ Kind PrimKind }

func (Prim) typeNode()        {}
func (p Prim) String() string { return p.Kind.String() }

// List is spec's List(T).
type List struct{ Elem Type }

func (List) typeNode()        {}
func (l List) String() string { return fmt.Sprintf("[%s]", l.Elem) }

// Tuple is spec's Tuple([T]).
type Tuple struct{ Elems []Type }

func (Tuple) typeNode() {}
func (t Tuple) String() string {
	parts := make([]string, len(t.Elems))
	for i, e := range t.Elems {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

// Option is spec's Option(T).
type Option struct{ Elem Type }

func (Option) typeNode()        {}
func (o Option) String() string { return fmt.Sprintf("Option %s", o.Elem) }

// Record is spec's Record({field→T}).
type Record struct{ Fields map[string]Type }

func (Record) typeNode() {}
func (r Record) String() string {
	names := maps.Keys(r.Fields)
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, n := range names {
		parts[i] = fmt.Sprintf("%s: %s", n, r.Fields[n])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

// Var is a type variable, either rigid (user-written, e.g. "a" in
// "type Option a = ...") or a fresh unification variable minted by the
// checker (conventionally named "t%d").
type Var struct{ Name string }

func (Var) typeNode()        {}
func (v Var) String() string { return v.Name }

// UserDefined is a reference to a declared ADT, instantiated with type
// arguments (possibly none).
type UserDefined struct {
	Name string
	Args []Type
}

func (UserDefined) typeNode() {}
func (u UserDefined) String() string {
	if len(u.Args) == 0 {
		return u.Name
	}
	parts := make([]string, len(u.Args))
	for i, a := range u.Args {
		parts[i] = a.String()
	}
	return u.Name + " " + strings.Join(parts, " ")
}

// Func is spec's Function(T₁, T₂) when Effect is the empty closed row, and
// FunctionWithEffect(T₁, T₂, EffectRow) otherwise — one Go struct for both,
// rather than two, since the only difference is whether Effect carries
// anything; every call site that cares inspects Effect directly.
type Func struct {
	Param  Type
	Result Type
	Effect EffectRow
}

func (Func) typeNode() {}
func (f Func) String() string {
	if f.Effect.IsEmpty() {
		return fmt.Sprintf("%s -> %s", f.Param, f.Result)
	}
	return fmt.Sprintf("%s ->%s %s", f.Param, f.Effect, f.Result)
}

// EffectInstance is spec's (name, [type args]) pair identifying one
// concrete effect occupying a row, e.g. "State Int".
type EffectInstance struct {
	Name string
	Args []Type
}

func (e EffectInstance) String() string {
	if len(e.Args) == 0 {
		return e.Name
	}
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return e.Name + " " + strings.Join(parts, " ")
}

// key returns a string uniquely identifying the effect name plus its type
// arguments' concrete-syntax rendering, used for set membership/difference.
func (e EffectInstance) key() string {
	return e.String()
}

// EffectRow is spec's EffectRow: either Closed(set) — Tail == "" — or
// Open(set, tail-variable) — Tail names the unification variable standing
// for "whatever else this row might contain".
type EffectRow struct {
	Effects []EffectInstance
	Tail    string
}

// ClosedRow builds a closed row from a set of effect instances.
func ClosedRow(effects ...EffectInstance) EffectRow {
	return EffectRow{Effects: effects}
}

// OpenRow builds an open row with the given tail variable.
func OpenRow(tail string, effects ...EffectInstance) EffectRow {
	return EffectRow{Effects: effects, Tail: tail}
}

// EmptyRow is the closed, empty effect row (pure).
var EmptyRow = EffectRow{}

// IsEmpty reports whether a row is the pure, closed, empty row.
func (r EffectRow) IsEmpty() bool {
	return r.Tail == "" && len(r.Effects) == 0
}

// IsOpen reports whether a row still carries a tail variable.
func (r EffectRow) IsOpen() bool {
	return r.Tail != ""
}

func (r EffectRow) String() string {
	if r.IsEmpty() {
		return ""
	}
	names := make([]string, len(r.Effects))
	for i, e := range r.Effects {
		names[i] = e.String()
	}
	sort.Strings(names)
	body := strings.Join(names, ", ")
	if r.Tail == "" {
		return "{" + body + "}"
	}
	if body == "" {
		return "{|" + r.Tail + "}"
	}
	return "{" + body + " | " + r.Tail + "}"
}

// Has reports whether the row's concrete part already lists an instance
// with this effect name (ignoring type arguments — an effect name occupies
// at most one slot per row per spec §4.D's union rule).
func (r EffectRow) Has(name string) (EffectInstance, bool) {
	for _, e := range r.Effects {
		if e.Name == name {
			return e, true
		}
	}
	return EffectInstance{}, false
}

// WithInstance returns a copy of r with inst added (or replacing an
// existing instance of the same name).
func (r EffectRow) WithInstance(inst EffectInstance) EffectRow {
	out := EffectRow{Tail: r.Tail}
	replaced := false
	for _, e := range r.Effects {
		if e.Name == inst.Name {
			out.Effects = append(out.Effects, inst)
			replaced = true
			continue
		}
		out.Effects = append(out.Effects, e)
	}
	if !replaced {
		out.Effects = append(out.Effects, inst)
	}
	return out
}

// TypeScheme is spec's `∀ type-vars. ∀ effect-vars. Type`, produced by
// generalization at let-bindings (§4.D).
type TypeScheme struct {
	TypeVars   []string
	EffectVars []string
	Type       Type
}

// Monotype wraps a type with no quantified variables — the scheme bound
// for a monomorphic (value-restricted) let-binding.
func Monotype(t Type) TypeScheme {
	return TypeScheme{Type: t}
}

func (s TypeScheme) String() string {
	if len(s.TypeVars) == 0 && len(s.EffectVars) == 0 {
		return s.Type.String()
	}
	vars := append(append([]string{}, s.TypeVars...), s.EffectVars...)
	return fmt.Sprintf("forall %s. %s", strings.Join(vars, " "), s.Type)
}
