package types

import "fmt"

// RowMismatchError reports that two closed rows carry different effect
// sets, or two row tails were bound to incompatible residues.
type RowMismatchError struct {
	A, B EffectRow
}

func (e *RowMismatchError) Error() string {
	return fmt.Sprintf("effect row mismatch: %s vs %s", e.A, e.B)
}

// RowEnv is the tail-variable counterpart of Subst: it binds open row
// tails to the residual rows unification forces them to stand for, the
// way Subst binds type variables to types. Kept as its own small
// structure (rather than folded into Subst) because row tails and type
// variables never share a namespace or a resolution rule.
type RowEnv struct {
	tails map[string]EffectRow
	fresh int
}

// NewRowEnv creates an empty row environment.
func NewRowEnv() *RowEnv {
	return &RowEnv{tails: make(map[string]EffectRow)}
}

// Fresh mints a new, never-before-used tail variable name.
func (e *RowEnv) Fresh() string {
	e.fresh++
	return fmt.Sprintf("e%d", e.fresh)
}

// Resolve follows a row's tail through bound tails, merging each bound
// row's own effects into the result, until it reaches a closed row or an
// unbound tail.
func (e *RowEnv) Resolve(row EffectRow) EffectRow {
	seen := map[string]bool{}
	effects := append([]EffectInstance{}, row.Effects...)
	tail := row.Tail
	for tail != "" && !seen[tail] {
		seen[tail] = true
		bound, ok := e.tails[tail]
		if !ok {
			break
		}
		for _, inst := range bound.Effects {
			if _, has := hasInstance(effects, inst.Name); !has {
				effects = append(effects, inst)
			}
		}
		tail = bound.Tail
	}
	return EffectRow{Effects: effects, Tail: tail}
}

func hasInstance(effects []EffectInstance, name string) (EffectInstance, bool) {
	for _, e := range effects {
		if e.Name == name {
			return e, true
		}
	}
	return EffectInstance{}, false
}

// BindTail binds an unbound tail variable to a residual row. Occurs-check
// equivalent: a tail may not be bound to a row that (transitively) names
// itself as its own tail.
func (e *RowEnv) BindTail(name string, row EffectRow) error {
	for t := row.Tail; t != ""; {
		if t == name {
			return fmt.Errorf("row occurs check failed: %s occurs in %s", name, row)
		}
		bound, ok := e.tails[t]
		if !ok {
			break
		}
		t = bound.Tail
	}
	e.tails[name] = row
	tracer().Debugf("bind row tail %s := %s", name, row)
	return nil
}

// UnifyRows implements spec §4.D's row unification: given two rows
// ({E1...} | t1) and ({F1...} | t2), the effect instances common to both
// (by name) must unify pointwise on their type arguments; effects present
// in only one side become part of the other side's residue, which is
// equated by binding whichever tail is still open to the other side's
// residual row. Two closed rows must carry exactly the same effect set
// (residual rows, since they have no tail left to absorb a difference).
func (e *RowEnv) UnifyRows(s *Subst, a, b EffectRow) (EffectRow, error) {
	a, b = e.Resolve(a), e.Resolve(b)

	var onlyA, onlyB []EffectInstance
	for _, ea := range a.Effects {
		eb, ok := hasInstance(b.Effects, ea.Name)
		if !ok {
			onlyA = append(onlyA, ea)
			continue
		}
		if len(ea.Args) != len(eb.Args) {
			return EffectRow{}, &RowMismatchError{A: a, B: b}
		}
		for i := range ea.Args {
			if err := s.Unify(ea.Args[i], eb.Args[i]); err != nil {
				return EffectRow{}, err
			}
		}
	}
	for _, eb := range b.Effects {
		if _, ok := hasInstance(a.Effects, eb.Name); !ok {
			onlyB = append(onlyB, eb)
		}
	}

	switch {
	case a.Tail == "" && b.Tail == "":
		if len(onlyA) != 0 || len(onlyB) != 0 {
			return EffectRow{}, &RowMismatchError{A: a, B: b}
		}
		return a, nil
	case a.Tail == "":
		// b's tail must absorb whatever a has that b doesn't.
		if err := e.BindTail(b.Tail, EffectRow{Effects: onlyA}); err != nil {
			return EffectRow{}, err
		}
		return e.Resolve(a), nil
	case b.Tail == "":
		if err := e.BindTail(a.Tail, EffectRow{Effects: onlyB}); err != nil {
			return EffectRow{}, err
		}
		return e.Resolve(b), nil
	default:
		// Both open: unify the two tails against a shared fresh tail
		// carrying the side the other one is missing.
		shared := e.Fresh()
		if err := e.BindTail(a.Tail, EffectRow{Effects: onlyB, Tail: shared}); err != nil {
			return EffectRow{}, err
		}
		if err := e.BindTail(b.Tail, EffectRow{Effects: onlyA, Tail: shared}); err != nil {
			return EffectRow{}, err
		}
		return e.Resolve(EffectRow{Effects: append(append([]EffectInstance{}, a.Effects...), onlyB...), Tail: shared}), nil
	}
}
