/*
Package ast implements the core data model of spec §3 — the single
canonical Expression/Pattern/TypeExpr tree the SPPF reducer (reduce.go)
produces — reshaped as tagged Go structs rather than gorgo's terex.Atom/
GCons cons-list encoding (see DESIGN.md: "internal/types" entry, the same
reshaping rationale applies here since these are the same family of
"one marker-method interface, many small structs" node as every
reducer-style tree in the retrieved examples, most directly ailang's
core.CoreExpr/CorePattern).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package ast

import (
	"github.com/vibe-xs/xs"
)

// Expr is the tagged variant of spec §3's Expression. Every node carries a
// Span for diagnostics, mirroring every other AST family in this module.
type Expr interface {
	exprNode()
	Span() xs.Span
}

type base struct{ span xs.Span }

func (b base) Span() xs.Span { return b.span }

// Literal is a tagged scalar value: Int (int64), Float (float64), Bool,
// String, or Unit (represented by a nil Value).
type Literal struct {
	base
	Kind  LitKind
	Value interface{}
	// Overflowed records that an Int literal exceeded int64 range at lex
	// time and was wrapped mod 2^64 (spec §9 open question a).
	Overflowed bool
}

// LitKind discriminates Literal.Value's dynamic type.
type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitBool
	LitString
	LitUnit
)

func (*Literal) exprNode() {}

// Ident is a bare (unqualified) identifier reference.
type Ident struct {
	base
	Name string
}

func (*Ident) exprNode() {}

// QualifiedIdent is spec's QualifiedIdent(module, name): "M.x" or, for a
// chained "M.N.x", Module == "M.N".
type QualifiedIdent struct {
	base
	Module string
	Name   string
}

func (*QualifiedIdent) exprNode() {}

// HashRef is spec's HashRef(hex-prefix): a reference into the term store.
type HashRef struct {
	base
	Prefix string
}

func (*HashRef) exprNode() {}

// Param is one lambda/rec parameter: a name with an optional declared type.
type Param struct {
	Name string
	Type TypeExpr // nil if undeclared
}

// Lambda is spec's Lambda(params, body). The AST reducer curries a
// multi-parameter "fn x y -> e" into nested single-parameter Lambdas
// immediately (spec §4.C), so by the time a Lambda reaches the checker it
// always has exactly one Param — Params is kept as a slice only because a
// bare, not-yet-curried lambda is a convenient intermediate the reducer
// builds before currying it away; checker and evaluator only ever see
// len(Params) == 1.
type Lambda struct {
	base
	Params []Param
	Body   Expr
}

func (*Lambda) exprNode() {}

// Apply is spec's Apply(func, args) after currying: exactly one argument.
type Apply struct {
	base
	Func Expr
	Arg  Expr
}

func (*Apply) exprNode() {}

// RecordAccess is spec's RecordAccess(expr, field): "r.field" (or, as part
// of an app chain, "(f x).field").
type RecordAccess struct {
	base
	Record Expr
	Field  string
}

func (*RecordAccess) exprNode() {}

// Let is spec's Let(name, type?, value, body?). Body == nil for a
// top-level binding; Body != nil for a scoped "let x = e in body" or the
// "let x = e; rest" form a block desugars into this shape for.
type Let struct {
	base
	Name  string
	Type  TypeExpr // nil if undeclared
	Value Expr
	Body  Expr // nil for a top-level definition
}

func (*Let) exprNode() {}

// Rec is spec's Rec(name, params, returnType?, body): a self-recursive
// binding. Like Lambda, Params is curried away before it reaches the
// checker/evaluator — a multi-parameter "rec f x y = e" becomes a Rec
// binding a single-parameter Lambda body, self-referencing via Name.
type Rec struct {
	base
	Name       string
	Params     []Param
	ReturnType TypeExpr // nil if undeclared
	Body       Expr
}

func (*Rec) exprNode() {}

// If is spec's If(cond, then, else). Else is nil for a condition-only
// "if c then t" (evaluates to Unit on the false branch, per the
// standard ML convention this parser's "then" keyword addition follows —
// see DESIGN.md).
type If struct {
	base
	Cond Expr
	Then Expr
	Else Expr // nil if no else-branch was written
}

func (*If) exprNode() {}

// MatchArm is one "pattern [if guard] -> body" arm of a Match.
type MatchArm struct {
	Pattern Pattern
	Guard   Expr // nil if the arm has no guard
	Body    Expr
}

// Match is spec's Match(scrutinee, arms).
type Match struct {
	base
	Scrutinee Expr
	Arms      []MatchArm
}

func (*Match) exprNode() {}

// List is spec's List([elements]).
type List struct {
	base
	Elements []Expr
}

func (*List) exprNode() {}

// Tuple is spec's Tuple([elements]).
type Tuple struct {
	base
	Elements []Expr
}

func (*Tuple) exprNode() {}

// Record is spec's Record({field→expr}). FieldOrder preserves source
// order, since a record literal's field order is observable in
// diagnostics (and the hashing normalization of internal/store needs a
// deterministic child order).
type Record struct {
	base
	Fields     map[string]Expr
	FieldOrder []string
}

func (*Record) exprNode() {}

// Constructor is spec's Constructor(name, args): an ADT constructor
// application, e.g. "Some(1)" or a nullary "None".
type Constructor struct {
	base
	Name string
	Args []Expr
}

func (*Constructor) exprNode() {}

// CtorDef is one constructor clause of a TypeDef: "Name fieldType…".
type CtorDef struct {
	Name       string
	FieldTypes []TypeExpr
}

// TypeDef is spec's TypeDef(name, typeParams, ctors).
type TypeDef struct {
	base
	Name       string
	TypeParams []string
	Ctors      []CtorDef
}

func (*TypeDef) exprNode() {}

// EffectOpSig is one operation signature of an EffectDef: "op: argType -> resultType".
type EffectOpSig struct {
	Name string
	Type TypeExpr
}

// EffectDef declares a user effect (spec §4.D: "effect declaration —
// treated as an extension of the [effect] signature table, syntactically
// similar to type"). Not one of spec §3's Expression node kinds verbatim
// (spec.md's data model predates user-declared effects being spelled out
// as a concrete grammar form) but required by spec §4.D's own text; kept
// alongside TypeDef rather than invented as an unrelated top-level
// concept.
type EffectDef struct {
	base
	Name       string
	TypeParams []string
	Ops        []EffectOpSig
}

func (*EffectDef) exprNode() {}

// Module is spec's Module(name, exports, body).
type Module struct {
	base
	Name    string
	Exports []string
	Body    []Expr
}

func (*Module) exprNode() {}

// Import is spec's Import(module, hash?, alias?, items?).
type Import struct {
	base
	Module string
	Hash   string // "" if unpinned
	Alias  string // "" if unaliased
	Items  []string
}

func (*Import) exprNode() {}

// Export lists names re-exported from the current module/top level.
type Export struct {
	base
	Names []string
}

func (*Export) exprNode() {}

// Perform is spec's Perform(effect, operation, args).
type Perform struct {
	base
	Effect    string
	Operation string
	Args      []Expr
}

func (*Perform) exprNode() {}

// HandleClause is one "EFFECT.OP arg1 arg2 … k -> body" handler clause, or
// the optional "return x -> body" clause (Effect == "", Operation == "",
// in which case Continuation is unused and Params holds the single bound
// result name).
type HandleClause struct {
	Effect       string
	Operation    string
	Params       []string
	Continuation string // "" for the return-clause
	Body         Expr
	IsReturn     bool
}

// Handle is spec's Handle(expr, clauses, returnHandler?). The optional
// return-clause, if present, is folded into Clauses with IsReturn set,
// rather than kept as a separate field — every consumer (checker,
// evaluator) already has to scan Clauses for a matching (effect,
// operation) pair, and a return-clause is just the entry with no effect
// name to match.
type Handle struct {
	base
	Body    Expr
	Clauses []HandleClause
}

func (*Handle) exprNode() {}

// DoStmt is one statement of a Do block: either a bind ("x <- e") or a
// plain expression statement.
type DoStmt struct {
	Name string // "" for a plain expression statement
	Expr Expr
}

// Do is spec's Do([statements]).
type Do struct {
	base
	Stmts []DoStmt
}

func (*Do) exprNode() {}

// Block is spec's Block([exprs]): sequencing, value is the last element's.
type Block struct {
	base
	Exprs []Expr
}

func (*Block) exprNode() {}

// Hole is spec's Hole: a typed placeholder the checker infers a type for
// but the evaluator rejects at runtime.
type Hole struct {
	base
}

func (*Hole) exprNode() {}

// Program is the top-level result of reducing a whole source file: a
// sequence of top-level items (spec §6: "the reducer wraps multiple
// top-level items in an implicit Block").
type Program struct {
	base
	Items []Expr
}

func (*Program) exprNode() {}

// --- patterns --------------------------------------------------------------

// Pattern is the tagged variant of spec §3's Pattern.
type Pattern interface {
	patternNode()
	Span() xs.Span
}

// PWildcard is "_".
type PWildcard struct{ base }

func (*PWildcard) patternNode() {}

// PVar binds the scrutinee (or a sub-term of it) to a name.
type PVar struct {
	base
	Name string
}

func (*PVar) patternNode() {}

// PLiteral matches a literal value exactly.
type PLiteral struct {
	base
	Lit *Literal
}

func (*PLiteral) patternNode() {}

// PCtor matches a constructor application "C(p1, …, pn)" (or a nullary
// "C").
type PCtor struct {
	base
	Name string
	Args []Pattern
}

func (*PCtor) patternNode() {}

// PCons matches "h :: t".
type PCons struct {
	base
	Head Pattern
	Tail Pattern
}

func (*PCons) patternNode() {}

// PList matches a fixed-length list literal "[p1, …, pn]" (including the
// empty list "[]").
type PList struct {
	base
	Elements []Pattern
}

func (*PList) patternNode() {}

// PTuple matches a tuple pattern "(p1, …, pn)".
type PTuple struct {
	base
	Elements []Pattern
}

func (*PTuple) patternNode() {}

// PRecordField is one field of a PRecord: a field name plus the pattern
// bound against its value (a bare "{x}" shorthand sets Pattern to a PVar
// of the same name — see DESIGN.md).
type PRecordField struct {
	Name    string
	Pattern Pattern
}

// PRecord matches a record pattern "{field = p, …}".
type PRecord struct {
	base
	Fields []PRecordField
}

func (*PRecord) patternNode() {}

// --- syntactic types ---------------------------------------------------------

// TypeExpr is the surface-syntax counterpart of internal/types.Type: what
// the parser recovers from a ": type" annotation, before internal/check
// resolves names (ADTs, type variables) against the checker's environment
// and lowers it into an internal/types.Type. Kept as its own small tagged
// family rather than reusing internal/types.Type directly, because a
// syntactic type can name a not-yet-declared ADT or bind a fresh rigid
// type variable — resolution is the checker's job, not the parser's.
type TypeExpr interface {
	typeExprNode()
}

// TEName is a bare, possibly-applied type name: "Int", "a" (a type
// variable — lowercase initial), "List a", "Option Int".
type TEName struct {
	Name string
	Arg  TypeExpr // nil if not applied to an argument
}

func (*TEName) typeExprNode() {}

// TEList is spec's concrete "[T]" list-type syntax.
type TEList struct{ Elem TypeExpr }

func (*TEList) typeExprNode() {}

// TEArrow is "T1 -> T2", optionally carrying an effect-row annotation
// ("T1 ->{E} T2" surface form spelled "T1 -> T2 ! {E}" per this grammar —
// see parseType in internal/gll).
type TEArrow struct {
	Param  TypeExpr
	Result TypeExpr
	Effect *TEEffectRow // nil if the arrow carries no explicit effect annotation
}

func (*TEArrow) typeExprNode() {}

// TEEffectRow is the surface syntax of an effect row annotation: either a
// single bare name (sugar for a singleton closed row) or a "{E1, E2 | tail}"
// form.
type TEEffectRow struct {
	Names []string
	Tail  string // "" if closed
}
