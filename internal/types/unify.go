package types

import "fmt"

// MismatchError reports a unification failure between two concrete,
// non-variable types.
type MismatchError struct {
	Expected, Found Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("type mismatch: expected %s, found %s", e.Expected, e.Found)
}

// OccursCheckError reports that a type variable would have to bind to a
// type containing itself.
type OccursCheckError struct {
	Var  string
	Type Type
}

func (e *OccursCheckError) Error() string {
	return fmt.Sprintf("occurs check failed: %s occurs in %s", e.Var, e.Type)
}

// Subst is the union-find-flavored mutable substitution over type
// variables that Algorithm W accumulates as it unifies. It's "union-find"
// in spirit rather than by rank/path-compression bookkeeping (gorgo's own
// lr/tables.go closure computations are plain worklist-over-a-set, not a
// textbook disjoint-set forest either): each bound variable points
// directly at its replacement, and Resolve walks the chain, collapsing it
// as it goes.
type Subst struct {
	bindings map[string]Type
}

// NewSubst creates an empty substitution.
func NewSubst() *Subst {
	return &Subst{bindings: make(map[string]Type)}
}

// Resolve follows t through the substitution chain until it reaches a
// concrete type or an unbound variable, compressing the chain it walked.
func (s *Subst) Resolve(t Type) Type {
	v, ok := t.(Var)
	if !ok {
		return t
	}
	seen := []string{v.Name}
	cur, bound := s.bindings[v.Name]
	for bound {
		if next, ok := cur.(Var); ok {
			if nb, ok2 := s.bindings[next.Name]; ok2 {
				seen = append(seen, next.Name)
				cur = nb
				continue
			}
		}
		break
	}
	for _, name := range seen {
		s.bindings[name] = cur
	}
	return cur
}

// Apply recursively resolves every type variable reachable from t.
func (s *Subst) Apply(t Type) Type {
	t = s.Resolve(t)
	switch x := t.(type) {
	case List:
		return List{Elem: s.Apply(x.Elem)}
	case Option:
		return Option{Elem: s.Apply(x.Elem)}
	case Tuple:
		elems := make([]Type, len(x.Elems))
		for i, e := range x.Elems {
			elems[i] = s.Apply(e)
		}
		return Tuple{Elems: elems}
	case Record:
		fields := make(map[string]Type, len(x.Fields))
		for n, ft := range x.Fields {
			fields[n] = s.Apply(ft)
		}
		return Record{Fields: fields}
	case UserDefined:
		args := make([]Type, len(x.Args))
		for i, a := range x.Args {
			args[i] = s.Apply(a)
		}
		return UserDefined{Name: x.Name, Args: args}
	case Func:
		return Func{Param: s.Apply(x.Param), Result: s.Apply(x.Result), Effect: x.Effect}
	default:
		return t
	}
}

func occursIn(name string, t Type, s *Subst) bool {
	switch x := s.Resolve(t).(type) {
	case Var:
		return x.Name == name
	case List:
		return occursIn(name, x.Elem, s)
	case Option:
		return occursIn(name, x.Elem, s)
	case Tuple:
		for _, e := range x.Elems {
			if occursIn(name, e, s) {
				return true
			}
		}
	case Record:
		for _, ft := range x.Fields {
			if occursIn(name, ft, s) {
				return true
			}
		}
	case UserDefined:
		for _, a := range x.Args {
			if occursIn(name, a, s) {
				return true
			}
		}
	case Func:
		return occursIn(name, x.Param, s) || occursIn(name, x.Result, s)
	}
	return false
}

// Bind records var := t, after an occurs check.
func (s *Subst) Bind(v Var, t Type) error {
	if occursIn(v.Name, t, s) {
		return &OccursCheckError{Var: v.Name, Type: t}
	}
	s.bindings[v.Name] = t
	tracer().Debugf("bind %s := %s", v.Name, t)
	return nil
}

// Unify implements spec §4.D's type unification: standard first-order,
// mandatory occurs check, "α := β when both are free variables", failure
// on constructor mismatch.
func (s *Subst) Unify(a, b Type) error {
	a, b = s.Resolve(a), s.Resolve(b)
	if av, ok := a.(Var); ok {
		if bv, ok := b.(Var); ok && av.Name == bv.Name {
			return nil
		}
		return s.Bind(av, b)
	}
	if bv, ok := b.(Var); ok {
		return s.Bind(bv, a)
	}
	switch x := a.(type) {
	case Prim:
		y, ok := b.(Prim)
		if !ok || x.Kind != y.Kind {
			return &MismatchError{Expected: a, Found: b}
		}
		return nil
	case List:
		y, ok := b.(List)
		if !ok {
			return &MismatchError{Expected: a, Found: b}
		}
		return s.Unify(x.Elem, y.Elem)
	case Option:
		y, ok := b.(Option)
		if !ok {
			return &MismatchError{Expected: a, Found: b}
		}
		return s.Unify(x.Elem, y.Elem)
	case Tuple:
		y, ok := b.(Tuple)
		if !ok || len(x.Elems) != len(y.Elems) {
			return &MismatchError{Expected: a, Found: b}
		}
		for i := range x.Elems {
			if err := s.Unify(x.Elems[i], y.Elems[i]); err != nil {
				return err
			}
		}
		return nil
	case Record:
		y, ok := b.(Record)
		if !ok || len(x.Fields) != len(y.Fields) {
			return &MismatchError{Expected: a, Found: b}
		}
		for n, ft := range x.Fields {
			yt, ok := y.Fields[n]
			if !ok {
				return &MismatchError{Expected: a, Found: b}
			}
			if err := s.Unify(ft, yt); err != nil {
				return err
			}
		}
		return nil
	case UserDefined:
		y, ok := b.(UserDefined)
		if !ok || x.Name != y.Name || len(x.Args) != len(y.Args) {
			return &MismatchError{Expected: a, Found: b}
		}
		for i := range x.Args {
			if err := s.Unify(x.Args[i], y.Args[i]); err != nil {
				return err
			}
		}
		return nil
	case Func:
		y, ok := b.(Func)
		if !ok {
			return &MismatchError{Expected: a, Found: b}
		}
		if err := s.Unify(x.Param, y.Param); err != nil {
			return err
		}
		if err := s.Unify(x.Result, y.Result); err != nil {
			return err
		}
		return nil
	}
	return &MismatchError{Expected: a, Found: b}
}
