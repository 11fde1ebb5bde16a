/*
Package check implements spec §4.D's type-and-effect checker: Algorithm W
extended with row-polymorphic effect inference over `internal/ast`'s tree,
using `internal/types`'s `Type`/`EffectRow`/`TypeScheme`/`Subst`/`RowEnv`
machinery.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package check

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/vibe-xs/xs/internal/types"
)

func tracer() tracing.Trace {
	return tracing.Select("xs.check")
}

// Env is the typing environment: a chain of scopes binding names to type
// schemes, grounded on gorgo's Scope/ScopeTree (runtime/symtable.go) —
// a parent-linked lookup chain rather than one flat map, so a lambda's
// parameter scope can shadow an outer let-binding without mutating it.
type Env struct {
	vars   map[string]types.TypeScheme
	parent *Env
}

// NewEnv creates the top-level (global) environment.
func NewEnv() *Env {
	return &Env{vars: make(map[string]types.TypeScheme)}
}

// Child pushes a new, empty scope atop e — mirroring
// runtime.ScopeTree.PushNewScope's parent-linking, without the stack-of-
// scopes bookkeeping ScopeTree adds for a mutable current-scope pointer:
// each inference rule that needs a child scope just holds its own *Env.
func (e *Env) Child() *Env {
	return &Env{vars: make(map[string]types.TypeScheme), parent: e}
}

// Bind adds (or shadows) a binding in e's own scope.
func (e *Env) Bind(name string, scheme types.TypeScheme) {
	e.vars[name] = scheme
}

// Lookup resolves name by walking e and its ancestors, innermost first —
// the same walk as Scope.ResolveTag.
func (e *Env) Lookup(name string) (types.TypeScheme, bool) {
	for s := e; s != nil; s = s.parent {
		if scheme, ok := s.vars[name]; ok {
			return scheme, true
		}
	}
	return types.TypeScheme{}, false
}

// freeTypeVars collects the names of every unbound type variable
// reachable from t (after resolving through subst) into out.
func freeTypeVars(subst *types.Subst, t types.Type, out map[string]bool) {
	switch x := subst.Apply(t).(type) {
	case types.Var:
		out[x.Name] = true
	case types.List:
		freeTypeVars(subst, x.Elem, out)
	case types.Option:
		freeTypeVars(subst, x.Elem, out)
	case types.Tuple:
		for _, e := range x.Elems {
			freeTypeVars(subst, e, out)
		}
	case types.Record:
		for _, ft := range x.Fields {
			freeTypeVars(subst, ft, out)
		}
	case types.UserDefined:
		for _, a := range x.Args {
			freeTypeVars(subst, a, out)
		}
	case types.Func:
		freeTypeVars(subst, x.Param, out)
		freeTypeVars(subst, x.Result, out)
	}
}

// freeEffectVars collects every open row-tail name reachable from t's
// Func nodes (after resolving each row through rows) into out.
func freeEffectVars(subst *types.Subst, rows *types.RowEnv, t types.Type, out map[string]bool) {
	switch x := subst.Apply(t).(type) {
	case types.List:
		freeEffectVars(subst, rows, x.Elem, out)
	case types.Option:
		freeEffectVars(subst, rows, x.Elem, out)
	case types.Tuple:
		for _, e := range x.Elems {
			freeEffectVars(subst, rows, e, out)
		}
	case types.Record:
		for _, ft := range x.Fields {
			freeEffectVars(subst, rows, ft, out)
		}
	case types.UserDefined:
		for _, a := range x.Args {
			freeEffectVars(subst, rows, a, out)
		}
	case types.Func:
		row := rows.Resolve(x.Effect)
		if row.Tail != "" {
			out[row.Tail] = true
		}
		freeEffectVars(subst, rows, x.Param, out)
		freeEffectVars(subst, rows, x.Result, out)
	}
}

// envFreeVars collects every type and effect variable free in any scheme
// bound in env (quantified variables of each scheme excluded) — the "not
// free in the environment" side condition generalization checks against.
func envFreeVars(env *Env, subst *types.Subst, rows *types.RowEnv) (types map[string]bool, effects map[string]bool) {
	types, effects = make(map[string]bool), make(map[string]bool)
	for s := env; s != nil; s = s.parent {
		for _, scheme := range s.vars {
			quantified := make(map[string]bool, len(scheme.TypeVars)+len(scheme.EffectVars))
			for _, v := range scheme.TypeVars {
				quantified[v] = true
			}
			for _, v := range scheme.EffectVars {
				quantified[v] = true
			}
			local := map[string]bool{}
			freeTypeVars(subst, scheme.Type, local)
			localEff := map[string]bool{}
			freeEffectVars(subst, rows, scheme.Type, localEff)
			for v := range local {
				if !quantified[v] {
					types[v] = true
				}
			}
			for v := range localEff {
				if !quantified[v] {
					effects[v] = true
				}
			}
		}
	}
	return types, effects
}

// substType replaces every Var named in sub with its replacement,
// recursively — used both for constructor/effect-signature instantiation
// (TypeParams -> fresh vars) and nowhere else (Subst.Apply plays this role
// once unification is underway; this helper is for schematic signatures
// that are not unification variables at all, just placeholder names).
func substType(t types.Type, sub map[string]types.Type) types.Type {
	switch x := t.(type) {
	case types.Var:
		if r, ok := sub[x.Name]; ok {
			return r
		}
		return x
	case types.List:
		return types.List{Elem: substType(x.Elem, sub)}
	case types.Option:
		return types.Option{Elem: substType(x.Elem, sub)}
	case types.Tuple:
		elems := make([]types.Type, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = substType(e, sub)
		}
		return types.Tuple{Elems: elems}
	case types.Record:
		fields := make(map[string]types.Type, len(x.Fields))
		for n, ft := range x.Fields {
			fields[n] = substType(ft, sub)
		}
		return types.Record{Fields: fields}
	case types.UserDefined:
		args := make([]types.Type, len(x.Args))
		for i, a := range x.Args {
			args[i] = substType(a, sub)
		}
		return types.UserDefined{Name: x.Name, Args: args}
	case types.Func:
		return types.Func{Param: substType(x.Param, sub), Result: substType(x.Result, sub), Effect: x.Effect}
	default:
		return t
	}
}

// collectVarNames gathers every distinct Var name reachable from t.
func collectVarNames(t types.Type, out map[string]bool) {
	switch x := t.(type) {
	case types.Var:
		out[x.Name] = true
	case types.List:
		collectVarNames(x.Elem, out)
	case types.Option:
		collectVarNames(x.Elem, out)
	case types.Tuple:
		for _, e := range x.Elems {
			collectVarNames(e, out)
		}
	case types.Record:
		for _, ft := range x.Fields {
			collectVarNames(ft, out)
		}
	case types.UserDefined:
		for _, a := range x.Args {
			collectVarNames(a, out)
		}
	case types.Func:
		collectVarNames(x.Param, out)
		collectVarNames(x.Result, out)
	}
}
