/*
Reducer walks a GLL parse forest (internal/gll, internal/sppf) down from its
root and emits the single canonical Expression tree spec §4.C describes,
applying every normalization that section names: currying of multi-param
lambdas/applications, let/letIn desugaring, do-notation statement shaping,
pipeline rewriting, and qualified-identifier nesting.

Because every internal/gll production except parseAtom's "{" branch
records at most one derivation for a given symbol node (alternatives that
end at different positions become distinct nodes), forest.Children's only
derivation is the parse this reducer must honor almost everywhere. The one place that invariant does not hold —
parseAtom's "{" branch, which deliberately keeps both a record and a block
derivation live when both apply — is resolved here rather than in the
parser: children (below) picks the shallowest surviving derivation and,
should two tie at the same depth, records a residual-ambiguity diag.Error
naming both candidates (spec.md §4.B). What the grammar does defer to this
layer for every node is precedence and associativity: parseApp always
builds a flat atom-chain-then-one-binop-then-recursive-rhs shape
(right-nested, uniform), and flattenBinops/buildPrecedence re-associate
that into spec's precedence table (operator precedence table, left-assoc
by default, right-assoc for "->" and "::" — §4.B) via a standard
precedence-climbing pass over the flattened operand/operator sequence.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package ast

import (
	"fmt"
	"strings"

	"github.com/npillmayer/schuko/tracing"

	"github.com/vibe-xs/xs"
	"github.com/vibe-xs/xs/diag"
	"github.com/vibe-xs/xs/internal/gll"
	"github.com/vibe-xs/xs/internal/lexer"
	"github.com/vibe-xs/xs/internal/sppf"
)

// tracer traces with key 'xs.ast'.
func tracer() tracing.Trace {
	return tracing.Select("xs.ast")
}

// Reducer holds the forest and original token slice a single reduction
// pass needs to recover literal values and byte spans for terminal leaves
// (a parse-forest SymbolNode's Extent is a token-index range, not a byte
// range — see internal/gll/parser.go's leaf/AddTerminal pairing). err is
// the reducer's sticky first ambiguity error (see children): the walk
// keeps going once one is recorded (so a single pass still reports one
// best-effort tree), but Reduce surfaces it instead of the tree it built.
type Reducer struct {
	forest *sppf.Forest
	toks   []lexer.Token
	err    *diag.Error
}

// Reduce walks a completed gll.Result into a Program.
func Reduce(res *gll.Result) (*Program, error) {
	r := &Reducer{forest: res.Forest, toks: res.Tokens}
	prog := r.reduceRoot(res.Root)
	if r.err != nil {
		return nil, r.err
	}
	return prog, nil
}

// ParseSource lexes and parses src, then reduces the resulting forest into
// a Program — the single convenience entry point most callers (internal/
// check, internal/eval, tests) want instead of driving lexer/gll by hand.
func ParseSource(src string) (*Program, error) {
	lx, err := lexer.New()
	if err != nil {
		return nil, err
	}
	toks, err := lx.All(src)
	if err != nil {
		return nil, err
	}
	p := gll.New(toks)
	res, err := p.ParseProgram()
	if err != nil {
		return nil, err
	}
	return Reduce(res)
}

// --- token/span plumbing ---------------------------------------------------

func (r *Reducer) tok(node *sppf.SymbolNode) lexer.Token {
	idx := int(node.Extent.From())
	if idx < 0 || idx >= len(r.toks) {
		return lexer.Token{}
	}
	return r.toks[idx]
}

func (r *Reducer) firstTerminal(node *sppf.SymbolNode) (lexer.Token, bool) {
	if node == nil {
		return lexer.Token{}, false
	}
	if node.Symbol.IsTerminal() {
		return r.tok(node), true
	}
	for _, c := range r.forest.Children(node) {
		if t, ok := r.firstTerminal(c); ok {
			return t, ok
		}
	}
	return lexer.Token{}, false
}

func (r *Reducer) lastTerminal(node *sppf.SymbolNode) (lexer.Token, bool) {
	if node == nil {
		return lexer.Token{}, false
	}
	if node.Symbol.IsTerminal() {
		return r.tok(node), true
	}
	children := r.forest.Children(node)
	for i := len(children) - 1; i >= 0; i-- {
		if t, ok := r.lastTerminal(children[i]); ok {
			return t, ok
		}
	}
	return lexer.Token{}, false
}

// spanOf computes a node's byte span by finding its leftmost and rightmost
// terminal descendants. Nodes whose only derivation is an epsilon
// reduction (empty list/record/program, etc.) have no terminal
// descendants at all; for those it falls back to the token immediately
// before (or at) the node's token-index position, which is always the
// delimiter that closes the empty construct.
func (r *Reducer) spanOf(node *sppf.SymbolNode) xs.Span {
	first, ok1 := r.firstTerminal(node)
	last, ok2 := r.lastTerminal(node)
	if ok1 && ok2 {
		return first.Span().Extend(last.Span())
	}
	idx := int(node.Extent.From())
	if idx-1 >= 0 && idx-1 < len(r.toks) {
		return r.toks[idx-1].Span()
	}
	if idx >= 0 && idx < len(r.toks) {
		return r.toks[idx].Span()
	}
	return xs.Span{}
}

// delimiterBefore returns the token type immediately preceding a node's
// span — used only to tell a parenthesized-grouping atomicType from a
// bracketed list-type atomicType, which reduce to the same rule with an
// identically shaped single "type" child (see reduceAtomicType).
func (r *Reducer) delimiterBefore(node *sppf.SymbolNode) xs.TokType {
	idx := int(node.Extent.From()) - 1
	if idx < 0 || idx >= len(r.toks) {
		return lexer.EOF
	}
	return r.toks[idx].TokType()
}

// isEpsilon reports whether node's only recorded derivation is the
// epsilon reduction (an empty collection): several grammar rules are
// reused for both the empty and non-empty cases (ruleRecord, ruleDo,
// rulePatternList, rulePatternRecord, ruleProgram), so emptiness must be
// checked structurally rather than inferred from the rule alone.
func (r *Reducer) isEpsilon(node *sppf.SymbolNode) bool {
	children := r.forest.Children(node)
	return len(children) == 1 && children[0].Symbol == sppf.Epsilon
}

func (r *Reducer) rule(node *sppf.SymbolNode) gll.Rule {
	ruleNum, _ := r.forest.Rule(node)
	return gll.Rule(ruleNum)
}

// pathString renders a module-path node — either a bare terminal
// identifier or a "qualified" nonterminal (a run of dot-joined idents) —
// back into its dotted surface form.
func (r *Reducer) pathString(node *sppf.SymbolNode) string {
	if node.Symbol.IsTerminal() {
		return r.tok(node).Lexeme()
	}
	var parts []string
	for _, c := range r.forest.Children(node) {
		parts = append(parts, r.tok(c).Lexeme())
	}
	return strings.Join(parts, ".")
}

// children is the one place every semantic reduceXxx function reaches into
// the forest: spec.md §4.B's disambiguation rule — "where multiple parses
// remain after precedence and associativity, the reducer picks the
// shallowest derivation; any residual ambiguity is a parse error naming
// both candidates" — is implemented here rather than at each call site, so
// it applies uniformly no matter which node in the tree turns out to carry
// more than one recorded derivation (in this grammar, only "{...}"
// genuinely parses two ways — record vs block, spec.md §4.B's own example
// — but nothing below assumes that is the only spot). An unambiguous node
// (the overwhelming majority) costs one Derivations call and returns its
// single entry exactly as forest.Children would.
func (r *Reducer) children(node *sppf.SymbolNode) []*sppf.SymbolNode {
	ds := r.forest.Derivations(node)
	if len(ds) == 0 {
		return nil
	}
	if len(ds) == 1 {
		return ds[0]
	}
	best := 0
	bestDepth := r.derivationDepth(ds[0])
	tiedAt := []int{0}
	for i := 1; i < len(ds); i++ {
		d := r.derivationDepth(ds[i])
		switch {
		case d < bestDepth:
			bestDepth, best = d, i
			tiedAt = []int{i}
		case d == bestDepth:
			tiedAt = append(tiedAt, i)
		}
	}
	if len(tiedAt) > 1 && r.err == nil {
		a, b := r.describeDerivation(ds[tiedAt[0]]), r.describeDerivation(ds[tiedAt[1]])
		r.err = diag.New(diag.Parse, "AmbiguousResidual", r.spanOf(node),
			"ambiguous parse: %d derivations tie at depth %d (%s vs %s)",
			len(tiedAt), bestDepth, a, b)
	}
	return ds[best]
}

// derivationDepth measures one candidate child sequence's tree height,
// using each child's own first recorded derivation (forest.Children) to
// descend — a node whose ambiguity is resolved one level up never needs
// its descendants' alternatives re-examined, since ambiguity in this
// grammar does not nest.
func (r *Reducer) derivationDepth(kids []*sppf.SymbolNode) int {
	max := 0
	for _, k := range kids {
		if d := r.nodeDepth(k); d > max {
			max = d
		}
	}
	return 1 + max
}

func (r *Reducer) nodeDepth(node *sppf.SymbolNode) int {
	if node == nil || node.Symbol.IsTerminal() {
		return 0
	}
	return r.derivationDepth(r.forest.Children(node))
}

// describeDerivation names a tied candidate for the ambiguity error
// message: the rule that produced its first (and, for a tie, only
// meaningfully distinct) child.
func (r *Reducer) describeDerivation(kids []*sppf.SymbolNode) string {
	if len(kids) == 0 {
		return "<empty>"
	}
	if kids[0].Symbol.IsTerminal() {
		return fmt.Sprintf("%q", r.tok(kids[0]).Lexeme())
	}
	return kids[0].Symbol.Name
}

// --- program / top-level items ----------------------------------------------

func (r *Reducer) reduceRoot(root *sppf.SymbolNode) *Program {
	children := r.children(root) // S' -> program
	progNode := children[0]
	var items []Expr
	if !r.isEpsilon(progNode) {
		for _, c := range r.children(progNode) {
			items = append(items, r.reduceItem(c))
		}
	}
	return &Program{base{r.spanOf(progNode)}, items}
}

func (r *Reducer) reduceItem(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	child := children[0]
	switch r.rule(node) {
	case gll.RuleItemModule:
		return r.reduceModuleDecl(child)
	case gll.RuleItemImport:
		return r.reduceImportDecl(child)
	case gll.RuleItemExport:
		return r.reduceExportDecl(child)
	case gll.RuleItemType:
		return r.reduceTypeDecl(child)
	case gll.RuleItemEffect:
		return r.reduceEffectDecl(child)
	case gll.RuleItemExpr:
		return r.reduceExprNode(child)
	}
	panic(fmt.Sprintf("ast: unreachable item rule %d", r.rule(node)))
}

func (r *Reducer) reduceModuleDecl(node *sppf.SymbolNode) *Module {
	children := r.children(node)
	name := r.tok(children[0]).Lexeme()
	return &Module{base: base{r.spanOf(node)}, Name: name}
}

func (r *Reducer) reduceImportDecl(node *sppf.SymbolNode) *Import {
	children := r.children(node)
	imp := &Import{base: base{r.spanOf(node)}, Module: r.pathString(children[0])}
	for _, c := range children[1:] {
		if !c.Symbol.IsTerminal() {
			continue
		}
		t := r.tok(c)
		if t.TokType() == lexer.HashRef {
			imp.Hash = strings.TrimPrefix(t.Lexeme(), "#")
		} else {
			imp.Alias = t.Lexeme()
		}
	}
	return imp
}

func (r *Reducer) reduceExportDecl(node *sppf.SymbolNode) *Export {
	children := r.children(node)
	exp := &Export{base: base{r.spanOf(node)}}
	for _, c := range children {
		exp.Names = append(exp.Names, r.tok(c).Lexeme())
	}
	return exp
}

func (r *Reducer) reduceTypeParams(node *sppf.SymbolNode) []string {
	if r.isEpsilon(node) {
		return nil
	}
	var out []string
	for _, c := range r.children(node) {
		out = append(out, r.tok(c).Lexeme())
	}
	return out
}

func (r *Reducer) reduceTypeDecl(node *sppf.SymbolNode) *TypeDef {
	children := r.children(node)
	name := r.tok(children[0]).Lexeme()
	tparams := r.reduceTypeParams(children[1])
	ctors := r.reduceTypeDeclRHS(children[2])
	return &TypeDef{base{r.spanOf(node)}, name, tparams, ctors}
}

func (r *Reducer) reduceTypeDeclRHS(node *sppf.SymbolNode) []CtorDef {
	var out []CtorDef
	for _, c := range r.children(node) {
		out = append(out, r.reduceCtorDef(c))
	}
	return out
}

func (r *Reducer) reduceCtorDef(node *sppf.SymbolNode) CtorDef {
	children := r.children(node)
	name := r.tok(children[0]).Lexeme()
	var fields []TypeExpr
	for _, c := range children[1:] {
		fields = append(fields, r.reduceAtomicType(c))
	}
	return CtorDef{Name: name, FieldTypes: fields}
}

func (r *Reducer) reduceEffectDecl(node *sppf.SymbolNode) *EffectDef {
	children := r.children(node)
	name := r.tok(children[0]).Lexeme()
	tparams := r.reduceTypeParams(children[1])
	var ops []EffectOpSig
	for _, c := range children[2:] {
		oc := r.children(c)
		ops = append(ops, EffectOpSig{Name: r.tok(oc[0]).Lexeme(), Type: r.reduceTypeNode(oc[1])})
	}
	return &EffectDef{base{r.spanOf(node)}, name, tparams, ops}
}

// --- expressions ------------------------------------------------------

func (r *Reducer) reduceExprNode(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	child := children[0]
	switch r.rule(node) {
	case gll.RuleExprApp:
		return r.reduceApp(child)
	case gll.RuleExprLet:
		return r.reduceLet(child)
	case gll.RuleExprRec:
		return r.reduceRec(child)
	case gll.RuleExprLambda:
		return r.reduceLambda(child)
	case gll.RuleExprIf:
		return r.reduceIf(child)
	case gll.RuleExprMatch:
		return r.reduceMatch(child)
	case gll.RuleExprHandle:
		return r.reduceHandle(child)
	case gll.RuleExprDo:
		return r.reduceDo(child)
	case gll.RuleExprPerform:
		return r.reducePerform(child)
	}
	panic(fmt.Sprintf("ast: unreachable expr rule %d", r.rule(node)))
}

// opInfo is one operator occurrence recovered while flattening a
// right-nested app-chain-binop derivation (see flattenBinops).
type opInfo struct {
	tt   xs.TokType
	name string
	span xs.Span
}

func (r *Reducer) reduceApp(node *sppf.SymbolNode) Expr {
	if r.rule(node) == gll.RuleAppChainAtom {
		return r.buildChain(r.children(node))
	}
	operands, ops := r.flattenBinops(node)
	return buildPrecedence(operands, ops)
}

// flattenBinops walks a right-nested chain of ruleAppChainBinop
// derivations (parseApp always recurses into a full "expr" for its RHS,
// so "a + b * c" parses as app(a, +, expr(app(b, *, expr(app(c))))) —
// right-associative and precedence-blind by construction) and returns the
// flat operand/operator sequence a precedence-climbing pass can
// re-associate.
func (r *Reducer) flattenBinops(appNode *sppf.SymbolNode) ([]Expr, []opInfo) {
	children := r.children(appNode)
	if r.rule(appNode) != gll.RuleAppChainBinop {
		return []Expr{r.buildChain(children)}, nil
	}
	n := len(children)
	lhs := r.buildChain(children[:n-2])
	opTok := r.tok(children[n-2])
	op := opInfo{tt: opTok.TokType(), name: opTok.Lexeme(), span: opTok.Span()}
	rhsNode := children[n-1]
	if rhsChildren := r.children(rhsNode); r.rule(rhsNode) == gll.RuleExprApp {
		moreOperands, moreOps := r.flattenBinops(rhsChildren[0])
		return append([]Expr{lhs}, moreOperands...), append([]opInfo{op}, moreOps...)
	}
	return []Expr{lhs, r.reduceExprNode(rhsNode)}, []opInfo{op}
}

// buildChain folds a flat sequence of "atom" (application) and bare
// identifier ("." field access) children into a single Expr, left to
// right: the first child is the base value, every later "atom" child
// applies the running value to it, and every later bare-identifier child
// (recovered from a consumed "." that the grammar didn't keep a node for)
// accesses that field of the running value.
func (r *Reducer) buildChain(children []*sppf.SymbolNode) Expr {
	var cur Expr
	for _, c := range children {
		if c.Symbol.IsTerminal() {
			t := r.tok(c)
			sp := t.Span()
			if cur != nil {
				sp = cur.Span().Extend(sp)
			}
			cur = &RecordAccess{base: base{sp}, Record: cur, Field: t.Lexeme()}
			continue
		}
		val := r.reduceAtom(c)
		if cur == nil {
			cur = val
			continue
		}
		cur = &Apply{base: base{cur.Span().Extend(val.Span())}, Func: cur, Arg: val}
	}
	return cur
}

func (r *Reducer) reduceAtom(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	rule := r.rule(node)
	// a "{" atom can carry both a record and a block derivation, and
	// Forest.Rule may report either; the child children() chose decides.
	if rule == gll.RuleAtomRecord || rule == gll.RuleAtomBlock {
		rule = gll.RuleAtomBlock
		if children[0].Symbol.Name == "record" {
			rule = gll.RuleAtomRecord
		}
	}
	switch rule {
	case gll.RuleAtomLiteral:
		return r.reduceLiteral(children[0])
	case gll.RuleAtomIdent:
		t := r.tok(children[0])
		return &Ident{base: base{t.Span()}, Name: t.Lexeme()}
	case gll.RuleAtomQualified:
		return r.reduceQualified(children[0])
	case gll.RuleAtomHashRef:
		return r.reduceHashRef(children[0])
	case gll.RuleAtomParen:
		return r.reduceExprNode(children[0])
	case gll.RuleAtomUnit:
		return &Literal{base: base{r.spanOf(node)}, Kind: LitUnit}
	case gll.RuleAtomList:
		return r.reduceListExpr(children[0])
	case gll.RuleAtomTuple:
		return r.reduceTupleExpr(children[0])
	case gll.RuleAtomRecord:
		return r.reduceRecordExpr(children[0])
	case gll.RuleAtomBlock:
		return r.reduceBlock(children[0])
	case gll.RuleAtomHole:
		return &Hole{base: base{r.spanOf(node)}}
	}
	panic(fmt.Sprintf("ast: unreachable atom rule %d", r.rule(node)))
}

func (r *Reducer) reduceLiteral(node *sppf.SymbolNode) *Literal {
	t := r.tok(r.children(node)[0])
	lit := &Literal{base: base{t.Span()}}
	switch t.TokType() {
	case lexer.Int:
		lit.Kind, lit.Value = LitInt, t.Value().(int64)
		lit.Overflowed = t.Overflowed()
	case lexer.Float:
		lit.Kind, lit.Value = LitFloat, t.Value().(float64)
	case lexer.Bool:
		lit.Kind, lit.Value = LitBool, t.Value().(bool)
	case lexer.String:
		lit.Kind, lit.Value = LitString, t.Value().(string)
	}
	return lit
}

func (r *Reducer) reduceQualified(node *sppf.SymbolNode) Expr {
	full := r.pathString(node)
	idx := strings.LastIndex(full, ".")
	return &QualifiedIdent{base{r.spanOf(node)}, full[:idx], full[idx+1:]}
}

func (r *Reducer) reduceHashRef(node *sppf.SymbolNode) Expr {
	t := r.tok(r.children(node)[0])
	return &HashRef{base{t.Span()}, strings.TrimPrefix(t.Lexeme(), "#")}
}

func (r *Reducer) reduceListExpr(node *sppf.SymbolNode) Expr {
	l := &List{base: base{r.spanOf(node)}}
	if r.isEpsilon(node) {
		return l
	}
	for _, c := range r.children(node) {
		l.Elements = append(l.Elements, r.reduceExprNode(c))
	}
	return l
}

func (r *Reducer) reduceTupleExpr(node *sppf.SymbolNode) Expr {
	t := &Tuple{base: base{r.spanOf(node)}}
	for _, c := range r.children(node) {
		t.Elements = append(t.Elements, r.reduceExprNode(c))
	}
	return t
}

func (r *Reducer) reduceRecordExpr(node *sppf.SymbolNode) Expr {
	rec := &Record{base: base{r.spanOf(node)}, Fields: map[string]Expr{}}
	if r.isEpsilon(node) {
		return rec
	}
	for _, c := range r.children(node) {
		fc := r.children(c)
		name := r.tok(fc[0]).Lexeme()
		if len(fc) == 1 {
			// shorthand "{ x }" (spec.md §4.B's record-vs-block ambiguity:
			// this is the one input shape the grammar genuinely parses two
			// ways) — field x bound to a variable of the same name.
			rec.Fields[name] = &Ident{base: base{r.spanOf(fc[0])}, Name: name}
		} else {
			rec.Fields[name] = r.reduceExprNode(fc[1])
		}
		rec.FieldOrder = append(rec.FieldOrder, name)
	}
	return rec
}

// reduceBlock implements spec §4.C's block-scoping desugar: a bodyless
// "let x = e" or a "rec f … = e" statement that isn't the block's last
// element binds its name over the remainder of the block, the way "let x
// = e in body" does explicitly. The grammar has no separate node for
// this — it parses a block as a flat sequence of expr children — so the
// rewrite happens here, after each statement has already been reduced to
// an Expr.
func (r *Reducer) reduceBlock(node *sppf.SymbolNode) Expr {
	var exprs []Expr
	for _, c := range r.children(node) {
		exprs = append(exprs, r.reduceExprNode(c))
	}
	return buildBlockBody(exprs, r.spanOf(node))
}

func buildBlockBody(exprs []Expr, sp xs.Span) Expr {
	if len(exprs) == 0 {
		return &Block{base: base{sp}}
	}
	if len(exprs) == 1 {
		if let, ok := exprs[0].(*Let); ok && let.Body == nil {
			return &Let{base: let.base, Name: let.Name, Type: let.Type, Value: let.Value,
				Body: &Literal{base: base{sp}, Kind: LitUnit}}
		}
		return exprs[0]
	}
	switch head := exprs[0].(type) {
	case *Let:
		if head.Body == nil {
			rest := buildBlockBody(exprs[1:], sp)
			return &Let{base: head.base, Name: head.Name, Type: head.Type, Value: head.Value, Body: rest}
		}
	case *Rec:
		rest := buildBlockBody(exprs[1:], sp)
		return &Let{base: head.base, Name: head.Name, Value: head, Body: rest}
	}
	return &Block{base: base{sp}, Exprs: exprs}
}

func (r *Reducer) reduceLet(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	name := r.tok(children[0]).Lexeme()
	i := 1
	var typeExpr TypeExpr
	if i < len(children) && children[i].Symbol.Name == "type" {
		typeExpr = r.reduceTypeNode(children[i])
		i++
	}
	value := r.reduceExprNode(children[i])
	i++
	var body Expr
	if r.rule(node) == gll.RuleLetIn {
		body = r.reduceExprNode(children[i])
	}
	return &Let{base{r.spanOf(node)}, name, typeExpr, value, body}
}

func (r *Reducer) reduceParam(node *sppf.SymbolNode) Param {
	children := r.children(node)
	p := Param{Name: r.tok(children[0]).Lexeme()}
	if len(children) > 1 {
		p.Type = r.reduceTypeNode(children[1])
	}
	return p
}

func curryLambda(params []Param, body Expr, sp xs.Span) Expr {
	result := body
	for i := len(params) - 1; i >= 0; i-- {
		result = &Lambda{base{sp}, []Param{params[i]}, result}
	}
	return result
}

func (r *Reducer) reduceLambda(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	var params []Param
	for i := 0; i < len(children)-1; i++ {
		params = append(params, r.reduceParam(children[i]))
	}
	body := r.reduceExprNode(children[len(children)-1])
	return curryLambda(params, body, r.spanOf(node))
}

func (r *Reducer) reduceRec(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	name := r.tok(children[0]).Lexeme()
	i := 1
	var params []Param
	for i < len(children) && children[i].Symbol.Name == "param" {
		params = append(params, r.reduceParam(children[i]))
		i++
	}
	var retType TypeExpr
	if i < len(children) && children[i].Symbol.Name == "type" {
		retType = r.reduceTypeNode(children[i])
		i++
	}
	body := r.reduceExprNode(children[i])
	sp := r.spanOf(node)
	innerBody := curryLambda(params[1:], body, sp)
	return &Rec{base{sp}, name, []Param{params[0]}, retType, innerBody}
}

func (r *Reducer) reduceIf(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	cond := r.reduceExprNode(children[0])
	then := r.reduceExprNode(children[1])
	var els Expr
	if len(children) > 2 {
		els = r.reduceExprNode(children[2])
	}
	return &If{base{r.spanOf(node)}, cond, then, els}
}

func (r *Reducer) reduceMatch(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	scrut := r.reduceExprNode(children[0])
	var arms []MatchArm
	for _, c := range children[1:] {
		arms = append(arms, r.reduceMatchArm(c))
	}
	return &Match{base{r.spanOf(node)}, scrut, arms}
}

func (r *Reducer) reduceMatchArm(node *sppf.SymbolNode) MatchArm {
	children := r.children(node)
	pat := r.reducePattern(children[0])
	bodyIdx := 1
	var guard Expr
	if len(children) == 3 {
		guard = r.reduceExprNode(children[1])
		bodyIdx = 2
	}
	return MatchArm{Pattern: pat, Guard: guard, Body: r.reduceExprNode(children[bodyIdx])}
}

func (r *Reducer) reduceHandle(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	body := r.reduceExprNode(children[0])
	var clauses []HandleClause
	for _, c := range children[1:] {
		clauses = append(clauses, r.reduceHandleArm(c))
	}
	return &Handle{base{r.spanOf(node)}, body, clauses}
}

func (r *Reducer) reduceHandleArm(node *sppf.SymbolNode) HandleClause {
	children := r.children(node)
	if r.rule(node) == gll.RuleHandleReturn {
		return HandleClause{IsReturn: true, Params: []string{r.tok(children[0]).Lexeme()},
			Body: r.reduceExprNode(children[1])}
	}
	opChildren := r.children(children[0])
	effect, op := r.tok(opChildren[0]).Lexeme(), r.tok(opChildren[1]).Lexeme()
	idents := children[1 : len(children)-1]
	var names []string
	for _, idn := range idents {
		names = append(names, r.tok(idn).Lexeme())
	}
	k := ""
	params := names
	if len(names) > 0 {
		k = names[len(names)-1]
		params = names[:len(names)-1]
	}
	body := r.reduceExprNode(children[len(children)-1])
	return HandleClause{Effect: effect, Operation: op, Params: params, Continuation: k, Body: body}
}

func (r *Reducer) reducePerform(node *sppf.SymbolNode) Expr {
	children := r.children(node)
	effect, op := r.tok(children[0]).Lexeme(), r.tok(children[1]).Lexeme()
	var args []Expr
	for _, c := range children[2:] {
		args = append(args, r.reduceAtom(c))
	}
	return &Perform{base{r.spanOf(node)}, effect, op, args}
}

func (r *Reducer) reduceDo(node *sppf.SymbolNode) Expr {
	d := &Do{base: base{r.spanOf(node)}}
	if r.isEpsilon(node) {
		return d
	}
	for _, c := range r.children(node) {
		d.Stmts = append(d.Stmts, r.reduceDoStmt(c))
	}
	return d
}

func (r *Reducer) reduceDoStmt(node *sppf.SymbolNode) DoStmt {
	children := r.children(node)
	if r.rule(node) == gll.RuleDoStmtBind {
		return DoStmt{Name: r.tok(children[0]).Lexeme(), Expr: r.reduceExprNode(children[1])}
	}
	return DoStmt{Expr: r.reduceExprNode(children[0])}
}

// --- patterns -----------------------------------------------------------

func (r *Reducer) reducePattern(node *sppf.SymbolNode) Pattern {
	children := r.children(node)
	switch r.rule(node) {
	case gll.RulePatternWildcard:
		return &PWildcard{base{r.spanOf(node)}}
	case gll.RulePatternIdent:
		t := r.tok(children[0])
		return &PVar{base{t.Span()}, t.Lexeme()}
	case gll.RulePatternLiteral:
		lit := r.reduceLiteral(children[0])
		return &PLiteral{base{lit.Span()}, lit}
	case gll.RulePatternCtor:
		t := r.tok(children[0])
		var args []Pattern
		for _, c := range children[1:] {
			args = append(args, r.reducePattern(c))
		}
		return &PCtor{base{r.spanOf(node)}, t.Lexeme(), args}
	case gll.RulePatternTuple:
		var elems []Pattern
		for _, c := range children {
			elems = append(elems, r.reducePattern(c))
		}
		return &PTuple{base{r.spanOf(node)}, elems}
	case gll.RulePatternList:
		pl := &PList{base: base{r.spanOf(node)}}
		if r.isEpsilon(node) {
			return pl
		}
		for _, c := range children {
			pl.Elements = append(pl.Elements, r.reducePattern(c))
		}
		return pl
	case gll.RulePatternCons:
		return &PCons{base{r.spanOf(node)}, r.reducePattern(children[0]), r.reducePattern(children[1])}
	case gll.RulePatternRecord:
		pr := &PRecord{base: base{r.spanOf(node)}}
		if r.isEpsilon(node) {
			return pr
		}
		for _, c := range children {
			fc := r.children(c)
			name := r.tok(fc[0]).Lexeme()
			var pat Pattern
			if len(fc) > 1 {
				pat = r.reducePattern(fc[1])
			} else {
				pat = &PVar{base{r.tok(fc[0]).Span()}, name}
			}
			pr.Fields = append(pr.Fields, PRecordField{Name: name, Pattern: pat})
		}
		return pr
	}
	panic(fmt.Sprintf("ast: unreachable pattern rule %d", r.rule(node)))
}

// --- types ---------------------------------------------------------------

func (r *Reducer) reduceAtomicType(node *sppf.SymbolNode) TypeExpr {
	children := r.children(node)
	if children[0].Symbol.Name == "type" {
		inner := r.reduceTypeNode(children[0])
		if r.delimiterBefore(node) == lexer.LBracket {
			return &TEList{Elem: inner}
		}
		return inner
	}
	name := r.tok(children[0]).Lexeme()
	var arg TypeExpr
	if len(children) > 1 {
		arg = r.reduceAtomicType(children[1])
	}
	return &TEName{Name: name, Arg: arg}
}

func (r *Reducer) reduceTypeNode(node *sppf.SymbolNode) TypeExpr {
	children := r.children(node)
	atomic := r.reduceAtomicType(children[0])
	i := 1
	var result TypeExpr
	var effRow *TEEffectRow
	if i < len(children) && children[i].Symbol.Name == "type" {
		// in "A -> B ! E" the right-hand type parse took the "! E" suffix;
		// a bare B cannot carry it, so it annotates this arrow
		if rk := r.children(children[i]); len(rk) == 2 && rk[1].Symbol.Name == "effectRow" {
			result = r.reduceAtomicType(rk[0])
			effRow = r.reduceEffectRow(rk[1])
		} else {
			result = r.reduceTypeNode(children[i])
		}
		i++
	}
	if i < len(children) && children[i].Symbol.Name == "effectRow" {
		effRow = r.reduceEffectRow(children[i])
	}
	if result == nil {
		return atomic
	}
	return &TEArrow{Param: atomic, Result: result, Effect: effRow}
}

func (r *Reducer) reduceEffectRow(node *sppf.SymbolNode) *TEEffectRow {
	children := r.children(node)
	if r.rule(node) == gll.RuleEffectRow {
		return &TEEffectRow{Names: []string{r.tok(children[0]).Lexeme()}}
	}
	n := len(children)
	tail := ""
	if r.rule(node) == gll.RuleEffectRowOpen {
		tail = r.tok(children[n-1]).Lexeme()
		n--
	}
	var names []string
	for _, c := range children[:n] {
		names = append(names, r.tok(c).Lexeme())
	}
	return &TEEffectRow{Names: names, Tail: tail}
}

// --- operator precedence ----------------------------------------------------

func precLevel(tt xs.TokType) int {
	switch tt {
	case lexer.PipeArrow:
		return 0
	case lexer.OrOr:
		return 1
	case lexer.AndAnd:
		return 2
	case lexer.EqEq, lexer.NotEq, lexer.Lt, lexer.Gt, lexer.Le, lexer.Ge:
		return 3
	case lexer.Cons:
		return 4
	case lexer.Plus, lexer.Minus:
		return 5
	case lexer.Star, lexer.Slash, lexer.Percent:
		return 6
	}
	return 0
}

func rightAssoc(tt xs.TokType) bool { return tt == lexer.Cons }

// applyBinop desugars one resolved binop application. Every operator
// except pipeline becomes a curried application of an Ident named after
// the operator's lexeme (spec §4.C: "elaboration normalizes to curried
// unary application" — operators are not a distinct node kind, they are
// ordinary identifiers the initial environment binds to built-in
// functions). Pipeline is the one operator spec §4.C gives an explicit
// rewrite rule for: "x | f" (here spelled "x |> f") desugars to
// "Apply(f, [x])" directly, not to a call of an operator named "|>".
func applyBinop(op opInfo, lhs, rhs Expr) Expr {
	sp := lhs.Span().Extend(rhs.Span())
	if op.tt == lexer.PipeArrow {
		return &Apply{base: base{sp}, Func: rhs, Arg: lhs}
	}
	ident := &Ident{base: base{op.span}, Name: op.name}
	return &Apply{base: base{sp}, Func: &Apply{base: base{sp}, Func: ident, Arg: lhs}, Arg: rhs}
}

// pstate drives precedence climbing over the flat operand/operator lists
// flattenBinops recovers (len(operands) == len(ops)+1, operand i sits
// before ops[i] which sits before operand i+1).
type pstate struct {
	operands []Expr
	ops      []opInfo
	oi, pi   int
}

func (s *pstate) next() Expr {
	e := s.operands[s.oi]
	s.oi++
	return e
}

func (s *pstate) peek() (opInfo, bool) {
	if s.pi < len(s.ops) {
		return s.ops[s.pi], true
	}
	return opInfo{}, false
}

func (s *pstate) parse(minPrec int) Expr {
	lhs := s.next()
	for {
		op, ok := s.peek()
		if !ok {
			break
		}
		prec := precLevel(op.tt)
		if prec < minPrec {
			break
		}
		s.pi++
		nextMin := prec + 1
		if rightAssoc(op.tt) {
			nextMin = prec
		}
		rhs := s.parse(nextMin)
		lhs = applyBinop(op, lhs, rhs)
	}
	return lhs
}

func buildPrecedence(operands []Expr, ops []opInfo) Expr {
	if len(ops) == 0 {
		return operands[0]
	}
	s := &pstate{operands: operands, ops: ops}
	return s.parse(0)
}
