package check

import "github.com/vibe-xs/xs/internal/types"

// preludeSchemes is the type-scheme table for the operator identifiers
// internal/ast's reducer desugars infix operators into (spec §4.C:
// "operators are not a distinct node kind, they are ordinary identifiers
// the initial environment binds to built-in functions"). Arithmetic is
// Int-only (spec's own worked examples — §8 scenarios 1 and 3 — never mix
// Float into an arithmetic operator), the ordering comparisons (<, >, <=,
// >=) are Int-only as well, "==" and "!=" are polymorphic over one type
// variable that instantiate freshens per call site, and "::" is list-cons.
func preludeSchemes() map[string]types.TypeScheme {
	i, b := types.Prim{Kind: types.Int}, types.Prim{Kind: types.Bool}
	arith := types.Monotype(types.Func{Param: i, Result: types.Func{Param: i, Result: i}})
	cmpBool := types.Monotype(types.Func{Param: i, Result: types.Func{Param: i, Result: b}})
	logic := types.Monotype(types.Func{Param: b, Result: types.Func{Param: b, Result: b}})
	eqScheme := func() types.TypeScheme {
		a := types.Var{Name: "a"}
		return types.TypeScheme{TypeVars: []string{"a"}, Type: types.Func{Param: a, Result: types.Func{Param: a, Result: b}}}
	}
	consScheme := func() types.TypeScheme {
		a := types.Var{Name: "a"}
		list := types.List{Elem: a}
		return types.TypeScheme{TypeVars: []string{"a"}, Type: types.Func{Param: a, Result: types.Func{Param: list, Result: list}}}
	}
	return map[string]types.TypeScheme{
		"+": arith, "-": arith, "*": arith, "/": arith, "%": arith,
		"<": cmpBool, ">": cmpBool, "<=": cmpBool, ">=": cmpBool,
		"==": eqScheme(), "!=": eqScheme(),
		"&&": logic, "||": logic,
		"::": consScheme(),
	}
}

// NewGlobalEnv creates the top-level environment with every operator
// identifier spec §4.C's desugaring relies on already bound, so a bare
// `1 + 2` resolves "+" the same way any other Ident would.
func NewGlobalEnv() *Env {
	env := NewEnv()
	for name, scheme := range preludeSchemes() {
		env.Bind(name, scheme)
	}
	return env
}
