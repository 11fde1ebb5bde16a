package check

import (
	"fmt"
	"sort"

	"github.com/vibe-xs/xs"
	"github.com/vibe-xs/xs/diag"
	"github.com/vibe-xs/xs/internal/ast"
	"github.com/vibe-xs/xs/internal/store"
	"github.com/vibe-xs/xs/internal/types"
)

// ctorInfo is one registered constructor's field shape, resolved lazily
// (spec §4.D's Constructor rule: "look up the user-defined type;
// instantiate its parameters") rather than eagerly at TypeDef registration
// time, so a constructor mentioning a not-yet-declared type in its own
// fields (mutually recursive ADTs) still registers correctly.
type ctorInfo struct {
	typeName       string
	typeParams     []string
	fieldTypeExprs []ast.TypeExpr
}

// Checker drives Algorithm W plus row-polymorphic effect inference (spec
// §4.D) over one program. A Checker is not safe for concurrent use — like
// gorgo's LRAnalysis, it owns a single mutable substitution for the
// duration of one check.
type Checker struct {
	subst    *types.Subst
	rows     *types.RowEnv
	fresh    int
	effects  map[string]*EffectSig
	adts     map[string]*ast.TypeDef
	ctors    map[string]ctorInfo
	store    *store.Store // may be nil: HashRef resolution and term insertion are then unavailable
	warnings []*diag.Error
}

// Warnings returns every best-effort warning diagnostic (spec §9(b): non-
// exhaustive match) collected during the most recent Infer/Check call.
func (c *Checker) Warnings() []*diag.Error { return c.warnings }

// New creates a Checker with the built-in effect signature table
// pre-registered (spec §4.G) and, if st is non-nil, wired to resolve
// HashRef expressions and insert top-level definitions into it.
func New(st *store.Store) *Checker {
	return &Checker{
		subst:   types.NewSubst(),
		rows:    types.NewRowEnv(),
		effects: builtinEffects(),
		adts:    make(map[string]*ast.TypeDef),
		ctors:   make(map[string]ctorInfo),
		store:   st,
	}
}

func (c *Checker) freshType() types.Type {
	c.fresh++
	return types.Var{Name: fmt.Sprintf("t%d", c.fresh)}
}

// RegisterTypeDef adds a TypeDef's constructors to the checker's ADT/
// constructor tables (spec §4.D's Constructor rule's "user-defined type").
func (c *Checker) RegisterTypeDef(td *ast.TypeDef) {
	c.adts[td.Name] = td
	for _, ctor := range td.Ctors {
		c.ctors[ctor.Name] = ctorInfo{
			typeName:       td.Name,
			typeParams:     td.TypeParams,
			fieldTypeExprs: ctor.FieldTypes,
		}
	}
}

// RegisterEffectDef extends the effect signature table with a
// user-declared effect (spec §4.D: "treated as an extension of the
// signature table").
func (c *Checker) RegisterEffectDef(ed *ast.EffectDef) {
	sig := &EffectSig{Name: ed.Name, TypeParams: ed.TypeParams, Ops: make(map[string]OpSig, len(ed.Ops))}
	for _, op := range ed.Ops {
		fn, ok := c.resolveTypeExpr(op.Type).(types.Func)
		if !ok {
			tracer().Errorf("effect %s.%s: declared signature is not an arrow type", ed.Name, op.Name)
			continue
		}
		sig.Ops[op.Name] = OpSig{Param: fn.Param, Result: fn.Result}
	}
	c.effects[ed.Name] = sig
}

func (c *Checker) instantiateCtor(name string) ([]types.Type, types.Type, bool) {
	info, ok := c.ctors[name]
	if !ok {
		return nil, nil, false
	}
	sub := make(map[string]types.Type, len(info.typeParams))
	args := make([]types.Type, len(info.typeParams))
	for i, p := range info.typeParams {
		fr := c.freshType()
		sub[p] = fr
		args[i] = fr
	}
	fields := make([]types.Type, len(info.fieldTypeExprs))
	for i, fte := range info.fieldTypeExprs {
		fields[i] = substType(c.resolveTypeExpr(fte), sub)
	}
	return fields, types.UserDefined{Name: info.typeName, Args: args}, true
}

// --- unification wrappers: translate internal/types' plain errors into diag.Error ---

func (c *Checker) unify(span xs.Span, a, b types.Type) error {
	if err := c.subst.Unify(a, b); err != nil {
		switch e := err.(type) {
		case *types.MismatchError:
			return diag.Mismatch(span, renderType(e.Expected), renderType(e.Found))
		case *types.OccursCheckError:
			return diag.New(diag.Type, "OccursCheck", span, "%s occurs in %s", e.Var, e.Type)
		default:
			return diag.New(diag.Type, "TypeMismatch", span, "%v", err)
		}
	}
	return nil
}

func (c *Checker) unifyRows(span xs.Span, a, b types.EffectRow) (types.EffectRow, error) {
	row, err := c.rows.UnifyRows(c.subst, a, b)
	if err != nil {
		return types.EffectRow{}, diag.New(diag.Type, "TypeMismatch", span, "%v", err)
	}
	return row, nil
}

func findEffectInstance(effects []types.EffectInstance, name string) bool {
	for _, e := range effects {
		if e.Name == name {
			return true
		}
	}
	return false
}

// unionRows implements spec §4.D's `⊎`: the effects of several
// independently-inferred subexpressions accumulate rather than having to
// match exactly — unlike unifyRows (equality, used where two rows must be
// the *same* row: branches' declared latent effect against what the body
// actually performs).
func (c *Checker) unionRows(rows ...types.EffectRow) types.EffectRow {
	var effects []types.EffectInstance
	tail := ""
	for _, r := range rows {
		r = c.rows.Resolve(r)
		for _, e := range r.Effects {
			if !findEffectInstance(effects, e.Name) {
				effects = append(effects, e)
			}
		}
		if r.Tail == "" {
			continue
		}
		if tail == "" {
			tail = r.Tail
			continue
		}
		if tail == r.Tail {
			continue
		}
		shared := c.rows.Fresh()
		_ = c.rows.BindTail(tail, types.OpenRow(shared))
		_ = c.rows.BindTail(r.Tail, types.OpenRow(shared))
		tail = shared
	}
	return types.EffectRow{Effects: effects, Tail: tail}
}

// --- generalization / instantiation ------------------------------------------

func (c *Checker) generalize(env *Env, t types.Type) types.TypeScheme {
	t = c.subst.Apply(t)
	tfree, efree := map[string]bool{}, map[string]bool{}
	freeTypeVars(c.subst, t, tfree)
	freeEffectVars(c.subst, c.rows, t, efree)
	envT, envE := envFreeVars(env, c.subst, c.rows)

	var tvars, evars []string
	for v := range tfree {
		if !envT[v] {
			tvars = append(tvars, v)
		}
	}
	for v := range efree {
		if !envE[v] {
			evars = append(evars, v)
		}
	}
	sort.Strings(tvars)
	sort.Strings(evars)
	return types.TypeScheme{TypeVars: tvars, EffectVars: evars, Type: t}
}

// schemeFor implements the value-and-effect restriction (spec §4.D): a
// pure right-hand side generalizes; an effectful one binds monomorphically.
func (c *Checker) schemeFor(env *Env, t types.Type, row types.EffectRow) types.TypeScheme {
	if c.rows.Resolve(row).IsEmpty() {
		return c.generalize(env, t)
	}
	return types.Monotype(c.subst.Apply(t))
}

func (c *Checker) instantiate(scheme types.TypeScheme) types.Type {
	if len(scheme.TypeVars) == 0 && len(scheme.EffectVars) == 0 {
		return scheme.Type
	}
	sub := make(map[string]types.Type, len(scheme.TypeVars))
	for _, v := range scheme.TypeVars {
		sub[v] = c.freshType()
	}
	rowSub := make(map[string]string, len(scheme.EffectVars))
	for _, v := range scheme.EffectVars {
		rowSub[v] = c.rows.Fresh()
	}
	return instantiateWithRows(scheme.Type, sub, rowSub)
}

func instantiateWithRows(t types.Type, sub map[string]types.Type, rowSub map[string]string) types.Type {
	switch x := t.(type) {
	case types.Var:
		if r, ok := sub[x.Name]; ok {
			return r
		}
		return x
	case types.List:
		return types.List{Elem: instantiateWithRows(x.Elem, sub, rowSub)}
	case types.Option:
		return types.Option{Elem: instantiateWithRows(x.Elem, sub, rowSub)}
	case types.Tuple:
		elems := make([]types.Type, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = instantiateWithRows(e, sub, rowSub)
		}
		return types.Tuple{Elems: elems}
	case types.Record:
		fields := make(map[string]types.Type, len(x.Fields))
		for n, ft := range x.Fields {
			fields[n] = instantiateWithRows(ft, sub, rowSub)
		}
		return types.Record{Fields: fields}
	case types.UserDefined:
		args := make([]types.Type, len(x.Args))
		for i, a := range x.Args {
			args[i] = instantiateWithRows(a, sub, rowSub)
		}
		return types.UserDefined{Name: x.Name, Args: args}
	case types.Func:
		effect := x.Effect
		if newTail, ok := rowSub[effect.Tail]; ok {
			effect = types.EffectRow{Effects: effect.Effects, Tail: newTail}
		}
		return types.Func{
			Param:  instantiateWithRows(x.Param, sub, rowSub),
			Result: instantiateWithRows(x.Result, sub, rowSub),
			Effect: effect,
		}
	default:
		return t
	}
}

// --- main inference dispatch --------------------------------------------------

// Infer implements spec §4.D's inference rules, returning the pair
// `(type, effect-row)` every rule is defined to produce.
func (c *Checker) Infer(env *Env, e ast.Expr) (types.Type, types.EffectRow, error) {
	switch x := e.(type) {
	case *ast.Literal:
		return litType(x), types.EmptyRow, nil

	case *ast.Ident:
		if scheme, ok := env.Lookup(x.Name); ok {
			return c.instantiate(scheme), types.EmptyRow, nil
		}
		if fields, resultT, ok := c.instantiateCtor(x.Name); ok {
			t := resultT
			for i := len(fields) - 1; i >= 0; i-- {
				t = types.Func{Param: fields[i], Result: t, Effect: types.EmptyRow}
			}
			return t, types.EmptyRow, nil
		}
		return nil, types.EmptyRow, diag.New(diag.Resolution, "UnknownIdentifier", x.Span(), "unknown identifier %q", x.Name)

	case *ast.QualifiedIdent:
		key := x.Module + "." + x.Name
		if scheme, ok := env.Lookup(key); ok {
			return c.instantiate(scheme), types.EmptyRow, nil
		}
		return nil, types.EmptyRow, diag.New(diag.Resolution, "UnknownIdentifier", x.Span(), "unknown identifier %q", key)

	case *ast.HashRef:
		if c.store == nil {
			return nil, types.EmptyRow, diag.New(diag.Resolution, "UnknownIdentifier", x.Span(), "hash reference #%s: no term store attached", x.Prefix)
		}
		entry, err := c.store.LookupPrefix(x.Prefix)
		if err != nil {
			return nil, types.EmptyRow, diag.New(diag.Resolution, "UnknownIdentifier", x.Span(), "hash reference #%s: %v", x.Prefix, err)
		}
		return c.instantiate(entry.Scheme), types.EmptyRow, nil

	case *ast.Lambda:
		return c.inferLambda(env, x)

	case *ast.Apply:
		return c.inferApply(env, x)

	case *ast.RecordAccess:
		recT, row, err := c.Infer(env, x.Record)
		if err != nil {
			return nil, types.EmptyRow, err
		}
		resolved := c.subst.Apply(recT)
		rec, ok := resolved.(types.Record)
		if !ok {
			return nil, types.EmptyRow, diag.New(diag.Type, "TypeMismatch", x.Span(), "field access %q on non-record type %s", x.Field, renderType(resolved))
		}
		ft, ok := rec.Fields[x.Field]
		if !ok {
			return nil, types.EmptyRow, diag.New(diag.Type, "TypeMismatch", x.Span(), "record has no field %q", x.Field)
		}
		return ft, row, nil

	case *ast.Let:
		return c.inferLet(env, x)

	case *ast.Rec:
		return c.inferRec(env, x)

	case *ast.If:
		return c.inferIf(env, x)

	case *ast.Match:
		return c.inferMatch(env, x)

	case *ast.List:
		return c.inferList(env, x)

	case *ast.Tuple:
		elems := make([]types.Type, len(x.Elements))
		rows := make([]types.EffectRow, len(x.Elements))
		for i, el := range x.Elements {
			t, r, err := c.Infer(env, el)
			if err != nil {
				return nil, types.EmptyRow, err
			}
			elems[i], rows[i] = t, r
		}
		return types.Tuple{Elems: elems}, c.unionRows(rows...), nil

	case *ast.Record:
		fields := make(map[string]types.Type, len(x.FieldOrder))
		rows := make([]types.EffectRow, 0, len(x.FieldOrder))
		for _, n := range x.FieldOrder {
			t, r, err := c.Infer(env, x.Fields[n])
			if err != nil {
				return nil, types.EmptyRow, err
			}
			fields[n] = t
			rows = append(rows, r)
		}
		return types.Record{Fields: fields}, c.unionRows(rows...), nil

	case *ast.Constructor:
		return c.inferConstructor(env, x)

	case *ast.Perform:
		return c.inferPerform(env, x)

	case *ast.Handle:
		return c.inferHandle(env, x)

	case *ast.Do:
		return c.inferDo(env, x)

	case *ast.Block:
		var last types.Type = types.Prim{Kind: types.Unit}
		var rows []types.EffectRow
		inner := env.Child()
		for _, el := range x.Exprs {
			t, r, err := c.Infer(inner, el)
			if err != nil {
				return nil, types.EmptyRow, err
			}
			last, rows = t, append(rows, r)
		}
		return last, c.unionRows(rows...), nil

	case *ast.Hole:
		return c.freshType(), types.EmptyRow, nil

	default:
		return nil, types.EmptyRow, diag.New(diag.Type, "TypeMismatch", e.Span(), "unhandled expression %T", e)
	}
}

func (c *Checker) inferLambda(env *Env, lam *ast.Lambda) (types.Type, types.EffectRow, error) {
	if len(lam.Params) == 0 {
		t, row, err := c.Infer(env, lam.Body)
		return t, row, err
	}
	p := lam.Params[0]
	alpha := c.freshType()
	if p.Type != nil {
		declared := c.resolveTypeExpr(p.Type)
		if err := c.unify(lam.Span(), alpha, declared); err != nil {
			return nil, types.EmptyRow, err
		}
	}
	inner := env.Child()
	inner.Bind(p.Name, types.Monotype(alpha))

	var body ast.Expr = lam.Body
	if len(lam.Params) > 1 {
		body = &ast.Lambda{Params: lam.Params[1:], Body: lam.Body}
	}
	beta, rho, err := c.Infer(inner, body)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	return types.Func{Param: alpha, Result: beta, Effect: rho}, types.EmptyRow, nil
}

func (c *Checker) inferApply(env *Env, app *ast.Apply) (types.Type, types.EffectRow, error) {
	tf, row1, err := c.Infer(env, app.Func)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	ta, row2, err := c.Infer(env, app.Arg)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	beta := c.freshType()
	rho3 := types.OpenRow(c.rows.Fresh())
	template := types.Func{Param: ta, Result: beta, Effect: rho3}
	if err := c.unify(app.Span(), tf, template); err != nil {
		return nil, types.EmptyRow, err
	}
	calleeEffect := rho3
	if fn, ok := c.subst.Apply(tf).(types.Func); ok {
		calleeEffect = fn.Effect
	}
	rho3Resolved, err := c.unifyRows(app.Span(), calleeEffect, rho3)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	return beta, c.unionRows(row1, row2, rho3Resolved), nil
}

func (c *Checker) inferLet(env *Env, let *ast.Let) (types.Type, types.EffectRow, error) {
	valT, valRow, err := c.Infer(env, let.Value)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	if let.Type != nil {
		declared := c.resolveTypeExpr(let.Type)
		if err := c.unify(let.Span(), valT, declared); err != nil {
			return nil, types.EmptyRow, err
		}
	}
	scheme := c.schemeFor(env, valT, valRow)
	if let.Body == nil {
		env.Bind(let.Name, scheme)
		return valT, valRow, nil
	}
	inner := env.Child()
	inner.Bind(let.Name, scheme)
	bodyT, bodyRow, err := c.Infer(inner, let.Body)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	return bodyT, c.unionRows(valRow, bodyRow), nil
}

func (c *Checker) inferRec(env *Env, rec *ast.Rec) (types.Type, types.EffectRow, error) {
	if len(rec.Params) != 1 {
		return nil, types.EmptyRow, diag.New(diag.Type, "ArityMismatch", rec.Span(), "rec %q: expected exactly one curried parameter, found %d", rec.Name, len(rec.Params))
	}
	p := rec.Params[0]
	alpha := c.freshType()
	if p.Type != nil {
		declared := c.resolveTypeExpr(p.Type)
		if err := c.unify(rec.Span(), alpha, declared); err != nil {
			return nil, types.EmptyRow, err
		}
	}
	beta := c.freshType()
	if rec.ReturnType != nil {
		declared := c.resolveTypeExpr(rec.ReturnType)
		if err := c.unify(rec.Span(), beta, declared); err != nil {
			return nil, types.EmptyRow, err
		}
	}
	rho := types.OpenRow(c.rows.Fresh())
	fType := types.Func{Param: alpha, Result: beta, Effect: rho}

	inner := env.Child()
	inner.Bind(rec.Name, types.Monotype(fType))
	inner.Bind(p.Name, types.Monotype(alpha))

	bodyT, bodyRow, err := c.Infer(inner, rec.Body)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	if err := c.unify(rec.Body.Span(), beta, bodyT); err != nil {
		return nil, types.EmptyRow, err
	}
	if _, err := c.unifyRows(rec.Body.Span(), rho, bodyRow); err != nil {
		return nil, types.EmptyRow, err
	}
	return c.subst.Apply(fType), types.EmptyRow, nil
}

func (c *Checker) inferIf(env *Env, iff *ast.If) (types.Type, types.EffectRow, error) {
	condT, condRow, err := c.Infer(env, iff.Cond)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	if err := c.unify(iff.Cond.Span(), condT, types.Prim{Kind: types.Bool}); err != nil {
		return nil, types.EmptyRow, err
	}
	thenT, thenRow, err := c.Infer(env, iff.Then)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	var elseRow types.EffectRow
	if iff.Else != nil {
		elseT, r, err := c.Infer(env, iff.Else)
		if err != nil {
			return nil, types.EmptyRow, err
		}
		if err := c.unify(iff.Span(), thenT, elseT); err != nil {
			return nil, types.EmptyRow, err
		}
		elseRow = r
	} else {
		// A condition-only "if c then t" evaluates to Unit on the
		// (implicit) false branch.
		if err := c.unify(iff.Span(), thenT, types.Prim{Kind: types.Unit}); err != nil {
			return nil, types.EmptyRow, err
		}
	}
	return thenT, c.unionRows(condRow, thenRow, elseRow), nil
}

func (c *Checker) inferMatch(env *Env, m *ast.Match) (types.Type, types.EffectRow, error) {
	scrutT, scrutRow, err := c.Infer(env, m.Scrutinee)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	rows := []types.EffectRow{scrutRow}
	var resultT types.Type
	seenCtors := map[string]bool{}
	catchAll := false
	for i, arm := range m.Arms {
		armEnv := env.Child()
		if err := c.checkPattern(armEnv, arm.Pattern, scrutT); err != nil {
			return nil, types.EmptyRow, err
		}
		switch p := arm.Pattern.(type) {
		case *ast.PWildcard, *ast.PVar:
			catchAll = true
		case *ast.PCtor:
			seenCtors[p.Name] = true
		}
		if arm.Guard != nil {
			guardT, guardRow, err := c.Infer(armEnv, arm.Guard)
			if err != nil {
				return nil, types.EmptyRow, err
			}
			if err := c.unify(arm.Guard.Span(), guardT, types.Prim{Kind: types.Bool}); err != nil {
				return nil, types.EmptyRow, err
			}
			rows = append(rows, guardRow)
		}
		bodyT, bodyRow, err := c.Infer(armEnv, arm.Body)
		if err != nil {
			return nil, types.EmptyRow, err
		}
		if i == 0 {
			resultT = bodyT
		} else if err := c.unify(arm.Body.Span(), resultT, bodyT); err != nil {
			return nil, types.EmptyRow, err
		}
		rows = append(rows, bodyRow)
	}
	c.checkExhaustiveness(m, scrutT, seenCtors, catchAll)
	return resultT, c.unionRows(rows...), nil
}

// checkExhaustiveness is the best-effort NonExhaustiveMatch warning (spec
// §4.D / §9 open question b, resolved non-fatal in DESIGN.md). It only
// attempts coverage analysis for matches over a declared ADT; every other
// scrutinee shape is left unchecked rather than risk a false positive.
func (c *Checker) checkExhaustiveness(m *ast.Match, scrutT types.Type, seenCtors map[string]bool, catchAll bool) {
	if catchAll {
		return
	}
	ud, ok := c.subst.Apply(scrutT).(types.UserDefined)
	if !ok {
		return
	}
	td, ok := c.adts[ud.Name]
	if !ok {
		return
	}
	var missing []string
	for _, ctor := range td.Ctors {
		if !seenCtors[ctor.Name] {
			missing = append(missing, ctor.Name)
		}
	}
	if len(missing) > 0 {
		c.warnings = append(c.warnings, diag.Warning(diag.Type, "NonExhaustiveMatch", m.Span(),
			"match over %s is missing case(s): %v", ud.Name, missing))
	}
}

func (c *Checker) inferList(env *Env, l *ast.List) (types.Type, types.EffectRow, error) {
	elem := c.freshType()
	var rows []types.EffectRow
	for _, el := range l.Elements {
		t, r, err := c.Infer(env, el)
		if err != nil {
			return nil, types.EmptyRow, err
		}
		if err := c.unify(el.Span(), elem, t); err != nil {
			return nil, types.EmptyRow, err
		}
		rows = append(rows, r)
	}
	return types.List{Elem: elem}, c.unionRows(rows...), nil
}

func (c *Checker) inferConstructor(env *Env, ctor *ast.Constructor) (types.Type, types.EffectRow, error) {
	fields, resultT, ok := c.instantiateCtor(ctor.Name)
	if !ok {
		return nil, types.EmptyRow, diag.New(diag.Resolution, "UnknownIdentifier", ctor.Span(), "unknown constructor %q", ctor.Name)
	}
	if len(fields) != len(ctor.Args) {
		return nil, types.EmptyRow, diag.New(diag.Type, "ArityMismatch", ctor.Span(), "constructor %q expects %d argument(s), got %d", ctor.Name, len(fields), len(ctor.Args))
	}
	var rows []types.EffectRow
	for i, a := range ctor.Args {
		t, r, err := c.Infer(env, a)
		if err != nil {
			return nil, types.EmptyRow, err
		}
		if err := c.unify(a.Span(), fields[i], t); err != nil {
			return nil, types.EmptyRow, err
		}
		rows = append(rows, r)
	}
	return resultT, c.unionRows(rows...), nil
}

func (c *Checker) inferPerform(env *Env, p *ast.Perform) (types.Type, types.EffectRow, error) {
	sig, ok := c.effects[p.Effect]
	if !ok {
		return nil, types.EmptyRow, diag.New(diag.Type, "UnknownEffect", p.Span(), "unknown effect %q", p.Effect)
	}
	paramT, resultT, ok := sig.Instantiate(c, p.Operation)
	if !ok {
		return nil, types.EmptyRow, diag.New(diag.Type, "UnknownEffect", p.Span(), "effect %q has no operation %q", p.Effect, p.Operation)
	}
	var rows []types.EffectRow
	switch len(p.Args) {
	case 0:
		if err := c.unify(p.Span(), paramT, types.Prim{Kind: types.Unit}); err != nil {
			return nil, types.EmptyRow, err
		}
	case 1:
		t, r, err := c.Infer(env, p.Args[0])
		if err != nil {
			return nil, types.EmptyRow, err
		}
		if err := c.unify(p.Args[0].Span(), paramT, t); err != nil {
			return nil, types.EmptyRow, err
		}
		rows = append(rows, r)
	default:
		return nil, types.EmptyRow, diag.New(diag.Type, "ArityMismatch", p.Span(), "operation %s.%s takes exactly one argument, got %d", p.Effect, p.Operation, len(p.Args))
	}
	rows = append(rows, types.OpenRow(c.rows.Fresh(), types.EffectInstance{Name: p.Effect}))
	return resultT, c.unionRows(rows...), nil
}

func (c *Checker) inferHandle(env *Env, h *ast.Handle) (types.Type, types.EffectRow, error) {
	bodyT, bodyRow, err := c.Infer(env, h.Body)
	if err != nil {
		return nil, types.EmptyRow, err
	}
	answer := c.freshType()
	primeTail := c.rows.Fresh()

	var expectedInsts []types.EffectInstance
	for _, cl := range h.Clauses {
		if !cl.IsReturn && !findEffectInstance(expectedInsts, cl.Effect) {
			expectedInsts = append(expectedInsts, types.EffectInstance{Name: cl.Effect})
		}
	}
	expectedRow := types.OpenRow(primeTail, expectedInsts...)
	if _, err := c.unifyRows(h.Span(), bodyRow, expectedRow); err != nil {
		return nil, types.EmptyRow, err
	}
	primeRow := c.rows.Resolve(types.OpenRow(primeTail))

	rows := []types.EffectRow{primeRow}
	sawReturn := false
	for _, cl := range h.Clauses {
		clauseEnv := env.Child()
		if cl.IsReturn {
			sawReturn = true
			if len(cl.Params) > 0 {
				clauseEnv.Bind(cl.Params[0], types.Monotype(bodyT))
			}
			t, r, err := c.Infer(clauseEnv, cl.Body)
			if err != nil {
				return nil, types.EmptyRow, err
			}
			if err := c.unify(cl.Body.Span(), t, answer); err != nil {
				return nil, types.EmptyRow, err
			}
			rows = append(rows, r)
			continue
		}
		sig, ok := c.effects[cl.Effect]
		if !ok {
			return nil, types.EmptyRow, diag.New(diag.Type, "UnknownEffect", h.Span(), "unknown effect %q", cl.Effect)
		}
		paramT, resultT, ok := sig.Instantiate(c, cl.Operation)
		if !ok {
			return nil, types.EmptyRow, diag.New(diag.Type, "UnknownEffect", h.Span(), "effect %q has no operation %q", cl.Effect, cl.Operation)
		}
		switch len(cl.Params) {
		case 0:
			if err := c.unify(h.Span(), paramT, types.Prim{Kind: types.Unit}); err != nil {
				return nil, types.EmptyRow, err
			}
		case 1:
			clauseEnv.Bind(cl.Params[0], types.Monotype(paramT))
		default:
			return nil, types.EmptyRow, diag.New(diag.Type, "ArityMismatch", h.Span(), "handler clause %s.%s binds %d argument names, operation takes one", cl.Effect, cl.Operation, len(cl.Params))
		}
		kType := types.Func{Param: resultT, Result: answer, Effect: primeRow}
		clauseEnv.Bind(cl.Continuation, types.Monotype(kType))
		t, r, err := c.Infer(clauseEnv, cl.Body)
		if err != nil {
			return nil, types.EmptyRow, err
		}
		if err := c.unify(cl.Body.Span(), t, answer); err != nil {
			return nil, types.EmptyRow, err
		}
		rows = append(rows, r)
	}
	if !sawReturn {
		if err := c.unify(h.Span(), bodyT, answer); err != nil {
			return nil, types.EmptyRow, err
		}
	}
	return answer, c.unionRows(rows...), nil
}

func (c *Checker) inferDo(env *Env, do *ast.Do) (types.Type, types.EffectRow, error) {
	inner := env.Child()
	var rows []types.EffectRow
	var last types.Type = types.Prim{Kind: types.Unit}
	for _, st := range do.Stmts {
		t, r, err := c.Infer(inner, st.Expr)
		if err != nil {
			return nil, types.EmptyRow, err
		}
		rows = append(rows, r)
		last = t
		if st.Name != "" {
			inner.Bind(st.Name, types.Monotype(t))
		}
	}
	return last, c.unionRows(rows...), nil
}

// --- pattern checking ---------------------------------------------------------

func (c *Checker) checkPattern(env *Env, pat ast.Pattern, t types.Type) error {
	switch p := pat.(type) {
	case *ast.PWildcard:
		return nil
	case *ast.PVar:
		env.Bind(p.Name, types.Monotype(t))
		return nil
	case *ast.PLiteral:
		return c.unify(p.Span(), t, litType(p.Lit))
	case *ast.PCons:
		elem := c.freshType()
		if err := c.unify(p.Span(), t, types.List{Elem: elem}); err != nil {
			return err
		}
		if err := c.checkPattern(env, p.Head, elem); err != nil {
			return err
		}
		return c.checkPattern(env, p.Tail, types.List{Elem: elem})
	case *ast.PList:
		elem := c.freshType()
		if err := c.unify(p.Span(), t, types.List{Elem: elem}); err != nil {
			return err
		}
		for _, el := range p.Elements {
			if err := c.checkPattern(env, el, elem); err != nil {
				return err
			}
		}
		return nil
	case *ast.PTuple:
		elems := make([]types.Type, len(p.Elements))
		for i := range elems {
			elems[i] = c.freshType()
		}
		if err := c.unify(p.Span(), t, types.Tuple{Elems: elems}); err != nil {
			return err
		}
		for i, el := range p.Elements {
			if err := c.checkPattern(env, el, elems[i]); err != nil {
				return err
			}
		}
		return nil
	case *ast.PRecord:
		resolved := c.subst.Apply(t)
		rec, ok := resolved.(types.Record)
		if !ok {
			return diag.New(diag.Type, "TypeMismatch", p.Span(), "record pattern against non-record type %s", renderType(resolved))
		}
		for _, f := range p.Fields {
			ft, ok := rec.Fields[f.Name]
			if !ok {
				return diag.New(diag.Type, "TypeMismatch", p.Span(), "record has no field %q", f.Name)
			}
			if err := c.checkPattern(env, f.Pattern, ft); err != nil {
				return err
			}
		}
		return nil
	case *ast.PCtor:
		fields, resultT, ok := c.instantiateCtor(p.Name)
		if !ok {
			return diag.New(diag.Resolution, "UnknownIdentifier", p.Span(), "unknown constructor %q", p.Name)
		}
		if err := c.unify(p.Span(), t, resultT); err != nil {
			return err
		}
		if len(fields) != len(p.Args) {
			return diag.New(diag.Type, "ArityMismatch", p.Span(), "constructor %q expects %d argument(s), got %d", p.Name, len(fields), len(p.Args))
		}
		for i, a := range p.Args {
			if err := c.checkPattern(env, a, fields[i]); err != nil {
				return err
			}
		}
		return nil
	default:
		return diag.New(diag.Type, "TypeMismatch", pat.Span(), "unhandled pattern %T", pat)
	}
}
