package check

import "github.com/vibe-xs/xs/internal/types"

// OpSig is one effect operation's signature, written in terms of the
// effect's own (and, for Exception.throw, the operation's own extra
// universal) type-parameter names — Instantiate freshens every one of them
// per call site, so independent `perform`s of the same operation never
// share a unification variable.
type OpSig struct {
	Param  types.Type
	Result types.Type
}

// EffectSig is one effect's registered signature table entry (spec §4.D:
// "Effect signatures are registered for built-in effects ... and for any
// user-declared effect").
type EffectSig struct {
	Name       string
	TypeParams []string
	Ops        map[string]OpSig
}

// Instantiate looks up op and returns freshly-instantiated param/result
// types (every Var name the signature mentions is replaced by a new
// unification variable, not just the declared TypeParams — Exception's
// `throw: e -> α` needs its own free result type, independent of `e`,
// freshened the same way).
func (sig *EffectSig) Instantiate(c *Checker, op string) (param, result types.Type, ok bool) {
	o, ok := sig.Ops[op]
	if !ok {
		return nil, nil, false
	}
	names := map[string]bool{}
	collectVarNames(o.Param, names)
	collectVarNames(o.Result, names)
	sub := make(map[string]types.Type, len(names))
	for n := range names {
		sub[n] = c.freshType()
	}
	return substType(o.Param, sub), substType(o.Result, sub), true
}

func prim(k types.PrimKind) types.Type { return types.Prim{Kind: k} }

// builtinEffects is spec §4.G's table, verbatim.
func builtinEffects() map[string]*EffectSig {
	return map[string]*EffectSig{
		"IO": {
			Name: "IO",
			Ops: map[string]OpSig{
				"print":    {Param: prim(types.String), Result: prim(types.Unit)},
				"readLine": {Param: prim(types.Unit), Result: prim(types.String)},
			},
		},
		"State": {
			Name:       "State",
			TypeParams: []string{"s"},
			Ops: map[string]OpSig{
				"get": {Param: prim(types.Unit), Result: types.Var{Name: "s"}},
				"put": {Param: types.Var{Name: "s"}, Result: prim(types.Unit)},
			},
		},
		"Exception": {
			Name:       "Exception",
			TypeParams: []string{"e"},
			Ops: map[string]OpSig{
				"throw": {Param: types.Var{Name: "e"}, Result: types.Var{Name: "r"}},
			},
		},
		"Async": {
			Name: "Async",
			Ops: map[string]OpSig{
				"delay": {Param: prim(types.Int), Result: prim(types.Unit)},
			},
		},
	}
}
