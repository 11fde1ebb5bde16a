package eval

import "github.com/vibe-xs/xs/internal/ast"

// evalMatch implements spec §4.H's Match rule: "pattern-match in
// declaration order, executing the first arm whose pattern matches and
// whose guard (if any) evaluates to true."
func (ev *Evaluator) evalMatch(env *Env, frame *Frame, m *ast.Match) (Value, error) {
	scrut, err := ev.Eval(env, frame, m.Scrutinee)
	if err != nil {
		return nil, err
	}
	for _, arm := range m.Arms {
		armEnv := env.Child()
		if !matchPattern(armEnv, arm.Pattern, scrut) {
			continue
		}
		if arm.Guard != nil {
			g, err := ev.Eval(armEnv, frame, arm.Guard)
			if err != nil {
				return nil, err
			}
			if b, ok := g.(VBool); !ok || !bool(b) {
				continue
			}
		}
		return ev.Eval(armEnv, frame, arm.Body)
	}
	return nil, RuntimeErrorf("PatternMatchFailure", "no arm of match matched value %s", scrut)
}

// matchPattern attempts to match pat against v, binding any pattern
// variables into env as a side effect. It only mutates env when the match
// as a whole succeeds is not guaranteed by this function alone — callers
// always pass a fresh child scope per arm (see evalMatch) so a failed
// partial match never leaks bindings into a sibling arm.
func matchPattern(env *Env, pat ast.Pattern, v Value) bool {
	switch p := pat.(type) {
	case *ast.PWildcard:
		return true
	case *ast.PVar:
		env.Bind(p.Name, v)
		return true
	case *ast.PLiteral:
		return literalEquals(p.Lit, v)
	case *ast.PCtor:
		c, ok := v.(VConstructor)
		if !ok || c.Name != p.Name || len(c.Args) != len(p.Args) {
			return false
		}
		for i, sub := range p.Args {
			if !matchPattern(env, sub, c.Args[i]) {
				return false
			}
		}
		return true
	case *ast.PCons:
		l, ok := v.(VList)
		if !ok || len(l.Elements) == 0 {
			return false
		}
		if !matchPattern(env, p.Head, l.Elements[0]) {
			return false
		}
		return matchPattern(env, p.Tail, VList{Elements: l.Elements[1:]})
	case *ast.PList:
		l, ok := v.(VList)
		if !ok || len(l.Elements) != len(p.Elements) {
			return false
		}
		for i, sub := range p.Elements {
			if !matchPattern(env, sub, l.Elements[i]) {
				return false
			}
		}
		return true
	case *ast.PTuple:
		t, ok := v.(VTuple)
		if !ok || len(t.Elements) != len(p.Elements) {
			return false
		}
		for i, sub := range p.Elements {
			if !matchPattern(env, sub, t.Elements[i]) {
				return false
			}
		}
		return true
	case *ast.PRecord:
		r, ok := v.(VRecord)
		if !ok {
			return false
		}
		for _, f := range p.Fields {
			fv, ok := r.Fields[f.Name]
			if !ok || !matchPattern(env, f.Pattern, fv) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func literalEquals(lit *ast.Literal, v Value) bool {
	switch lit.Kind {
	case ast.LitInt:
		i, ok := v.(VInt)
		return ok && int64(i) == lit.Value.(int64)
	case ast.LitFloat:
		f, ok := v.(VFloat)
		return ok && float64(f) == lit.Value.(float64)
	case ast.LitBool:
		b, ok := v.(VBool)
		return ok && bool(b) == lit.Value.(bool)
	case ast.LitString:
		s, ok := v.(VString)
		return ok && string(s) == lit.Value.(string)
	case ast.LitUnit:
		_, ok := v.(VUnit)
		return ok
	default:
		return false
	}
}
