package check

import (
	"github.com/vibe-xs/xs/internal/ast"
	"github.com/vibe-xs/xs/internal/types"
)

var primNames = map[string]types.PrimKind{
	"Int":    types.Int,
	"Float":  types.Float,
	"Bool":   types.Bool,
	"String": types.String,
	"Unit":   types.Unit,
}

// isTypeVarName mirrors internal/store's convention: a lowercase-initial
// bare name is a type variable, not a concrete type/ADT reference.
func isTypeVarName(name string) bool {
	return name != "" && name[0] >= 'a' && name[0] <= 'z'
}

// resolveTypeExpr lowers the parser's surface TypeExpr into internal/
// types.Type. ADT names not yet declared resolve successfully to a
// UserDefined reference anyway — spec's declaration order is not
// constrained, and arity/existence is checked lazily, at first use
// (Constructor/PCtor), not here.
func (c *Checker) resolveTypeExpr(te ast.TypeExpr) types.Type {
	switch x := te.(type) {
	case *ast.TEName:
		if x.Arg == nil {
			if isTypeVarName(x.Name) {
				return types.Var{Name: x.Name}
			}
			if k, ok := primNames[x.Name]; ok {
				return types.Prim{Kind: k}
			}
			return types.UserDefined{Name: x.Name}
		}
		arg := c.resolveTypeExpr(x.Arg)
		switch x.Name {
		case "List":
			return types.List{Elem: arg}
		case "Option":
			return types.Option{Elem: arg}
		default:
			return types.UserDefined{Name: x.Name, Args: []types.Type{arg}}
		}
	case *ast.TEList:
		return types.List{Elem: c.resolveTypeExpr(x.Elem)}
	case *ast.TEArrow:
		return types.Func{
			Param:  c.resolveTypeExpr(x.Param),
			Result: c.resolveTypeExpr(x.Result),
			Effect: c.resolveEffectRow(x.Effect),
		}
	default:
		tracer().Errorf("resolveTypeExpr: unhandled node type %T", te)
		return c.freshType()
	}
}

func (c *Checker) resolveEffectRow(r *ast.TEEffectRow) types.EffectRow {
	if r == nil {
		return types.EmptyRow
	}
	insts := make([]types.EffectInstance, len(r.Names))
	for i, n := range r.Names {
		insts[i] = types.EffectInstance{Name: n}
	}
	return types.EffectRow{Effects: insts, Tail: r.Tail}
}

// litType returns the primitive type of a literal (spec §4.D: "Literal:
// (T_lit, ∅)").
func litType(lit *ast.Literal) types.Type {
	switch lit.Kind {
	case ast.LitInt:
		return prim(types.Int)
	case ast.LitFloat:
		return prim(types.Float)
	case ast.LitBool:
		return prim(types.Bool)
	case ast.LitString:
		return prim(types.String)
	default:
		return prim(types.Unit)
	}
}

func renderType(t types.Type) string {
	if t == nil {
		return "?"
	}
	return t.String()
}
