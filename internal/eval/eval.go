package eval

import (
	"github.com/vibe-xs/xs/internal/ast"
	"github.com/vibe-xs/xs/internal/store"
)

// Evaluator drives spec §4.H's tree walk over one program. Like
// internal/check.Checker it is not safe for concurrent Eval calls against
// the same instance that also touch hashCache, though the Handle
// machinery's own internal goroutines are themselves safe (each owns its
// private channels).
type Evaluator struct {
	host      Host
	store     *store.Store // may be nil: HashRef evaluation is then unavailable
	hashCache map[store.Hash]Value
}

// NewEvaluator creates an Evaluator. host may be nil if the program is
// known not to perform IO.
func NewEvaluator(host Host, st *store.Store) *Evaluator {
	return &Evaluator{host: host, store: st, hashCache: make(map[store.Hash]Value)}
}

// NewGlobalEnv creates the top-level value environment with every
// operator identifier internal/check's prelude types bound to its Go
// implementation (spec §4.C: "operators are not a distinct node kind,
// they are ordinary identifiers the initial environment binds to
// built-in functions").
func NewGlobalEnv() *Env {
	env := NewEnv()
	for name, fn := range builtins() {
		env.Bind(name, fn)
	}
	return env
}

// Eval implements spec §4.H's evaluation rules over e, within env (lexical
// bindings) and frame (the dynamic handler stack perform/handle thread
// through).
func (ev *Evaluator) Eval(env *Env, frame *Frame, e ast.Expr) (Value, error) {
	switch x := e.(type) {
	case *ast.Literal:
		return evalLiteral(x)

	case *ast.Ident:
		if v, ok := env.Lookup(x.Name); ok {
			return v, nil
		}
		return nil, RuntimeErrorf("UnknownIdentifier", "unbound identifier %q", x.Name)

	case *ast.QualifiedIdent:
		key := x.Module + "." + x.Name
		if v, ok := env.Lookup(key); ok {
			return v, nil
		}
		return nil, RuntimeErrorf("UnknownIdentifier", "unbound identifier %q", key)

	case *ast.HashRef:
		return ev.evalHashRef(x)

	case *ast.Lambda:
		return ev.evalLambda(env, x)

	case *ast.Apply:
		fn, err := ev.Eval(env, frame, x.Func)
		if err != nil {
			return nil, err
		}
		arg, err := ev.Eval(env, frame, x.Arg)
		if err != nil {
			return nil, err
		}
		return Apply(ev, frame, fn, arg)

	case *ast.RecordAccess:
		v, err := ev.Eval(env, frame, x.Record)
		if err != nil {
			return nil, err
		}
		rec, ok := v.(VRecord)
		if !ok {
			return nil, RuntimeErrorf("FieldAccess", "value %s is not a record", v)
		}
		fv, ok := rec.Fields[x.Field]
		if !ok {
			return nil, RuntimeErrorf("FieldAccess", "record has no field %q", x.Field)
		}
		return fv, nil

	case *ast.Let:
		v, err := ev.Eval(env, frame, x.Value)
		if err != nil {
			return nil, err
		}
		if x.Body == nil {
			env.Bind(x.Name, v)
			return v, nil
		}
		inner := env.Child()
		inner.Bind(x.Name, v)
		return ev.Eval(inner, frame, x.Body)

	case *ast.Rec:
		rc := &VRecClosure{Self: x.Name, Env: env}
		if len(x.Params) > 0 {
			rc.Param = x.Params[0].Name
			rc.Body = curriedLambdaBody(x.Params[1:], x.Body)
		}
		// A top-level or block-scoped "rec" persists into the enclosing
		// scope the same way a body-less Let does, so later items/
		// statements can call it by name.
		env.Bind(x.Name, rc)
		return rc, nil

	case *ast.If:
		condV, err := ev.Eval(env, frame, x.Cond)
		if err != nil {
			return nil, err
		}
		cond, ok := condV.(VBool)
		if !ok {
			return nil, RuntimeErrorf("TypeError", "if condition is not a Bool: %s", condV)
		}
		if bool(cond) {
			return ev.Eval(env, frame, x.Then)
		}
		if x.Else != nil {
			return ev.Eval(env, frame, x.Else)
		}
		return VUnit{}, nil

	case *ast.Match:
		return ev.evalMatch(env, frame, x)

	case *ast.List:
		elems := make([]Value, len(x.Elements))
		for i, el := range x.Elements {
			v, err := ev.Eval(env, frame, el)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return VList{Elements: elems}, nil

	case *ast.Tuple:
		elems := make([]Value, len(x.Elements))
		for i, el := range x.Elements {
			v, err := ev.Eval(env, frame, el)
			if err != nil {
				return nil, err
			}
			elems[i] = v
		}
		return VTuple{Elements: elems}, nil

	case *ast.Record:
		fields := make(map[string]Value, len(x.FieldOrder))
		for _, n := range x.FieldOrder {
			v, err := ev.Eval(env, frame, x.Fields[n])
			if err != nil {
				return nil, err
			}
			fields[n] = v
		}
		return VRecord{Fields: fields, FieldOrder: append([]string{}, x.FieldOrder...)}, nil

	case *ast.Constructor:
		args := make([]Value, len(x.Args))
		for i, a := range x.Args {
			v, err := ev.Eval(env, frame, a)
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return VConstructor{Name: x.Name, Args: args}, nil

	case *ast.Perform:
		return ev.evalPerform(env, frame, x)

	case *ast.Handle:
		return ev.evalHandle(env, frame, x)

	case *ast.Do:
		return ev.evalDo(env, frame, x)

	case *ast.Block:
		inner := env.Child()
		var last Value = VUnit{}
		for _, el := range x.Exprs {
			v, err := ev.Eval(inner, frame, el)
			if err != nil {
				return nil, err
			}
			last = v
		}
		return last, nil

	case *ast.Hole:
		return nil, RuntimeErrorf("HoleEncountered", "hole encountered at %s", x.Span())

	case *ast.Program:
		return ev.evalProgram(env, frame, x)

	default:
		return nil, RuntimeErrorf("Unsupported", "evaluator cannot handle node type %T", e)
	}
}

func (ev *Evaluator) evalProgram(env *Env, frame *Frame, p *ast.Program) (Value, error) {
	var last Value = VUnit{}
	for _, item := range p.Items {
		switch x := item.(type) {
		case *ast.TypeDef, *ast.EffectDef, *ast.Import, *ast.Export, *ast.Module:
			// Declarations with no runtime value of their own within this
			// core's scope (module/import resolution against the store is
			// internal/check's concern; nothing here needs a runtime
			// representation for them).
			continue
		default:
			v, err := ev.Eval(env, frame, x)
			if err != nil {
				return nil, err
			}
			last = v
		}
	}
	return last, nil
}

func evalLiteral(lit *ast.Literal) (Value, error) {
	switch lit.Kind {
	case ast.LitInt:
		return VInt(lit.Value.(int64)), nil
	case ast.LitFloat:
		return VFloat(lit.Value.(float64)), nil
	case ast.LitBool:
		return VBool(lit.Value.(bool)), nil
	case ast.LitString:
		return VString(lit.Value.(string)), nil
	default:
		return VUnit{}, nil
	}
}

// curriedLambdaBody builds the nested-Lambda body a multi-parameter Rec
// curries into, matching internal/ast's own currying convention for
// Lambda (spec §4.C) — Rec's reducer already curries when it builds the
// AST, so in practice len(x.Params) == 1 by the time Eval sees it; this
// exists only so the evaluator does not assume that invariant silently.
func curriedLambdaBody(params []ast.Param, body ast.Expr) ast.Expr {
	if len(params) == 0 {
		return body
	}
	return &ast.Lambda{Params: params, Body: body}
}

func (ev *Evaluator) evalLambda(env *Env, lam *ast.Lambda) (Value, error) {
	if len(lam.Params) == 0 {
		return ev.Eval(env, nil, lam.Body)
	}
	body := lam.Body
	if len(lam.Params) > 1 {
		body = &ast.Lambda{Params: lam.Params[1:], Body: lam.Body}
	}
	return &VClosure{Param: lam.Params[0].Name, Body: body, Env: env}, nil
}

func (ev *Evaluator) evalDo(env *Env, frame *Frame, do *ast.Do) (Value, error) {
	inner := env.Child()
	var last Value = VUnit{}
	for _, st := range do.Stmts {
		v, err := ev.Eval(inner, frame, st.Expr)
		if err != nil {
			return nil, err
		}
		last = v
		if st.Name != "" {
			inner.Bind(st.Name, v)
		}
	}
	return last, nil
}

func (ev *Evaluator) evalHashRef(ref *ast.HashRef) (Value, error) {
	if ev.store == nil {
		return nil, RuntimeErrorf("UnresolvedHashRef", "hash reference #%s: no term store attached", ref.Prefix)
	}
	entry, err := ev.store.LookupPrefix(ref.Prefix)
	if err != nil {
		return nil, RuntimeErrorf("UnresolvedHashRef", "hash reference #%s: %v", ref.Prefix, err)
	}
	if v, ok := ev.hashCache[entry.Hash]; ok {
		return v, nil
	}
	v, err := ev.Eval(NewGlobalEnv(), nil, entry.Expr)
	if err != nil {
		return nil, err
	}
	ev.hashCache[entry.Hash] = v
	return v, nil
}
