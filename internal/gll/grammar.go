package gll

import (
	"github.com/vibe-xs/xs"
	"github.com/vibe-xs/xs/internal/lexer"
	"github.com/vibe-xs/xs/internal/sppf"
)

// This file implements the grammar slots summarized in spec.md §4.B. The
// grammar snippet there leaves the shape of matchArm/handleArm/doStmt/
// pattern/typeDecl implicit ("grammar (summarized...)"); those slots are
// filled in here consistent with the semantics spelled out elsewhere in
// the specification (§4.C desugaring, §4.D/§4.E handler clause shape,
// §4.G effect signatures) rather than copied from any single source — see
// DESIGN.md.
//
// Genuine parse-time ambiguity is confined to exactly the spots spec.md
// names: "{" opening both a record and a block literal. Infix precedence
// and juxtaposition-application are explicitly deferred to the AST
// reducer (spec.md §4.B/§4.C) and don't require multiple SPPF
// alternatives at parse time — an app is always one flat sequence of
// atoms/accessors, possibly ending in one binop+expr tail, and the
// reducer re-associates it. Keyword-delimited constructs (let, rec, fn,
// if, match, handle, perform, do) are selected unambiguously by their
// leading token. parseLet still returns two alternatives when "in" follows
// the bound value (the "let … in" form and the body-less let that stops
// before "in"), and productions that loop over a callee's alternatives
// pass each of them on.

// Pipe ("|") is deliberately excluded here even though spec.md's §4.C prose
// writes pipeline as "a | f": bare "|" is also the mandatory leading marker
// on every handler clause and the inter-arm separator in match, both at the
// same syntactic position a pipeline operator would occupy mid-expression.
// Spec's own Open Question (c) flags the clash and leaves the resolution to
// the implementer; this parser gives "|" a single structural role (arm/
// clause separator) and reserves "|>" as the one spelling of pipeline,
// rather than threading match/handle-arm context through expr parsing to
// tell the two apart at identical token positions. See DESIGN.md.
func isBinop(tt xs.TokType) bool {
	switch tt {
	case lexer.Plus, lexer.Minus, lexer.Star, lexer.Slash, lexer.Percent,
		lexer.AndAnd, lexer.OrOr, lexer.EqEq, lexer.NotEq,
		lexer.Lt, lexer.Gt, lexer.Le, lexer.Ge, lexer.Cons,
		lexer.PipeArrow:
		return true
	}
	return false
}

func (p *Parser) binopLeaf(pos int) (*sppf.SymbolNode, int, bool) {
	pos = p.skipLayout(pos)
	if pos >= len(p.toks) {
		return nil, pos, false
	}
	tt := p.toks[pos].TokType()
	if !isBinop(tt) {
		return nil, pos, false
	}
	node := p.forest.AddTerminal(p.termFor(tt), uint64(pos))
	return node, pos + 1, true
}

func nonNil(nodes ...*sppf.SymbolNode) []*sppf.SymbolNode {
	out := make([]*sppf.SymbolNode, 0, len(nodes))
	for _, n := range nodes {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

func first(alts []alt) (alt, bool) {
	if len(alts) == 0 {
		return alt{}, false
	}
	return alts[0], true
}

// --- program / declarations ------------------------------------------------

func (p *Parser) parseProgram(pos int) []alt {
	var children []*sppf.SymbolNode
	cur := p.skipLayout(pos)
	start := cur
	for {
		itemAlts := p.parse(ntItem, cur)
		it, ok := first(itemAlts)
		if !ok {
			break
		}
		children = append(children, it.node)
		cur = p.skipLayout(it.next)
		if p.isEOF(cur) {
			break
		}
	}
	if len(children) == 0 {
		return []alt{{p.reduceEpsilon(ntProgram, ruleProgram, start), start}}
	}
	return []alt{{p.reduce(ntProgram, ruleProgram, children), cur}}
}

func (p *Parser) parseItem(pos int) []alt {
	pos = p.skipLayout(pos)
	tt := p.at(pos).TokType()
	switch tt {
	case lexer.KwModule:
		if a, ok := first(p.parse(ntModuleDecl, pos)); ok {
			return []alt{{p.reduce(ntItem, ruleItemModule, []*sppf.SymbolNode{a.node}), a.next}}
		}
	case lexer.KwImport:
		if a, ok := first(p.parse(ntImportDecl, pos)); ok {
			return []alt{{p.reduce(ntItem, ruleItemImport, []*sppf.SymbolNode{a.node}), a.next}}
		}
	case lexer.KwExport:
		if a, ok := first(p.parse(ntExportDecl, pos)); ok {
			return []alt{{p.reduce(ntItem, ruleItemExport, []*sppf.SymbolNode{a.node}), a.next}}
		}
	case lexer.KwType:
		if a, ok := first(p.parse(ntTypeDecl, pos)); ok {
			return []alt{{p.reduce(ntItem, ruleItemType, []*sppf.SymbolNode{a.node}), a.next}}
		}
	case lexer.KwEffect:
		if a, ok := first(p.parse(ntEffectDecl, pos)); ok {
			return []alt{{p.reduce(ntItem, ruleItemEffect, []*sppf.SymbolNode{a.node}), a.next}}
		}
	default:
		if a, ok := first(p.parse(ntExpr, pos)); ok {
			return []alt{{p.reduce(ntItem, ruleItemExpr, []*sppf.SymbolNode{a.node}), a.next}}
		}
	}
	return nil
}

func (p *Parser) parseModuleDecl(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwModule)
	if !ok {
		return nil
	}
	name, n2, ok := p.identAny(n1)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntModuleDecl, ruleModuleDecl, []*sppf.SymbolNode{name}), n2}}
}

func (p *Parser) parseImportDecl(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwImport)
	if !ok {
		return nil
	}
	qual, n2, ok := first(p.parse(ntQualified, n1))
	var pathNode *sppf.SymbolNode
	cur := n1
	if ok {
		pathNode = qual.node
		cur = n2
	} else if id, n, ok2 := p.identAny(n1); ok2 {
		pathNode = id
		cur = n
	} else {
		return nil
	}
	var hashNode *sppf.SymbolNode
	if h, n, ok := p.leaf(cur, lexer.HashRef); ok {
		hashNode = h
		cur = n
	}
	var aliasNode *sppf.SymbolNode
	if _, n, ok := p.leaf(cur, lexer.KwAs); ok {
		if id, n2, ok := p.identAny(n); ok {
			aliasNode = id
			cur = n2
		}
	}
	children := nonNil(pathNode, hashNode, aliasNode)
	return []alt{{p.reduce(ntImportDecl, ruleImportDecl, children), cur}}
}

func (p *Parser) parseExportDecl(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwExport)
	if !ok {
		return nil
	}
	id, cur, ok := p.identAny(n1)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{id}
	for {
		if _, n, ok := p.leaf(cur, lexer.Comma); ok {
			if id2, n2, ok := p.identAny(n); ok {
				children = append(children, id2)
				cur = n2
				continue
			}
		}
		break
	}
	return []alt{{p.reduce(ntExportDecl, ruleExportDecl, children), cur}}
}

func (p *Parser) parseTypeParams(pos int) []alt {
	start := p.skipLayout(pos)
	cur := start
	var children []*sppf.SymbolNode
	for {
		n := p.skipLayout(cur)
		if n >= len(p.toks) || p.toks[n].TokType() != lexer.IdentLower {
			break
		}
		node := p.forest.AddTerminal(p.termFor(lexer.IdentLower), uint64(n))
		children = append(children, node)
		cur = n + 1
	}
	if len(children) == 0 {
		return []alt{{p.reduceEpsilon(ntTypeParams, ruleTypeParams, start), start}}
	}
	return []alt{{p.reduce(ntTypeParams, ruleTypeParams, children), cur}}
}

// ctorDef := IDENT atomicType*
func (p *Parser) parseCtorDef(pos int) (*sppf.SymbolNode, int, bool) {
	name, cur, ok := p.identAny(pos)
	if !ok {
		return nil, pos, false
	}
	children := []*sppf.SymbolNode{name}
	for {
		a, ok := first(p.parse(ntAtomicType, cur))
		if !ok {
			break
		}
		children = append(children, a.node)
		cur = a.next
	}
	return p.reduce(NT("ctorDef"), Rule(0), children), cur, true
}

func (p *Parser) parseTypeDeclRHS(pos int) []alt {
	_, cur, ok := p.leaf(pos, lexer.Equals)
	if !ok {
		return nil
	}
	first0, n, ok := p.parseCtorDef(cur)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{first0}
	cur = n
	for {
		if _, n2, ok := p.leaf(cur, lexer.Pipe); ok {
			if ctor, n3, ok := p.parseCtorDef(n2); ok {
				children = append(children, ctor)
				cur = n3
				continue
			}
		}
		break
	}
	return []alt{{p.reduce(ntTypeDeclRHS, ruleTypeDeclSum, children), cur}}
}

func (p *Parser) parseTypeDecl(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwType)
	if !ok {
		return nil
	}
	name, n2, ok := p.identAny(n1)
	if !ok {
		return nil
	}
	tp, n3 := first(p.parse(ntTypeParams, n2))
	if !n3 {
		return nil
	}
	rhsAlt, ok := first(p.parse(ntTypeDeclRHS, tp.next))
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{name, tp.node, rhsAlt.node}
	return []alt{{p.reduce(ntTypeDecl, ruleTypeDecl, children), rhsAlt.next}}
}

func (p *Parser) parseEffectOpSig(pos int) (*sppf.SymbolNode, int, bool) {
	name, n1, ok := p.identAny(pos)
	if !ok {
		return nil, pos, false
	}
	_, n2, ok := p.leaf(n1, lexer.Colon)
	if !ok {
		return nil, pos, false
	}
	ty, ok := first(p.parse(ntType, n2))
	if !ok {
		return nil, pos, false
	}
	return p.reduce(NT("effectOpSig"), Rule(0), []*sppf.SymbolNode{name, ty.node}), ty.next, true
}

func (p *Parser) parseEffectDecl(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwEffect)
	if !ok {
		return nil
	}
	name, n2, ok := p.identAny(n1)
	if !ok {
		return nil
	}
	tp, ok := first(p.parse(ntTypeParams, n2))
	if !ok {
		return nil
	}
	_, n3, ok := p.leaf(tp.next, lexer.LBrace)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{name, tp.node}
	cur := n3
	for {
		sig, n, ok := p.parseEffectOpSig(cur)
		if !ok {
			break
		}
		children = append(children, sig)
		cur = n
		if _, n2, ok := p.leaf(cur, lexer.Comma); ok {
			cur = n2
		}
	}
	_, n4, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntEffectDecl, ruleEffectDecl, children), n4}}
}

// --- expressions ------------------------------------------------------

func (p *Parser) parseExpr(pos int) []alt {
	pos = p.skipLayout(pos)
	tt := p.at(pos).TokType()
	var sub NT
	var rule Rule
	switch tt {
	case lexer.KwLet:
		sub, rule = ntLet, ruleExprLet
	case lexer.KwRec:
		sub, rule = ntRec, ruleExprRec
	case lexer.KwFn:
		sub, rule = ntLambda, ruleExprLambda
	case lexer.KwIf:
		sub, rule = ntIf, ruleExprIf
	case lexer.KwMatch:
		sub, rule = ntMatch, ruleExprMatch
	case lexer.KwHandle:
		sub, rule = ntHandle, ruleExprHandle
	case lexer.KwPerform:
		sub, rule = ntPerform, ruleExprPerform
	case lexer.KwDo:
		sub, rule = ntDo, ruleExprDo
	default:
		sub, rule = ntApp, ruleExprApp
	}
	var out []alt
	for _, a := range p.parse(sub, pos) {
		out = append(out, alt{p.reduce(ntExpr, rule, []*sppf.SymbolNode{a.node}), a.next})
	}
	return out
}

func (p *Parser) parseApp(pos int) []alt {
	var out []alt
	for _, first0 := range p.parse(ntAtom, pos) {
		children := []*sppf.SymbolNode{first0.node}
		cur := first0.next
		endedInBinop := false
	loop:
		for {
			if _, n, ok := p.leaf(cur, lexer.Dot); ok {
				if id, n2, ok := p.identAny(n); ok {
					children = append(children, id)
					cur = n2
					continue
				}
			}
			if bop, n, ok := p.binopLeaf(cur); ok {
				for _, rhs := range p.parse(ntExpr, n) {
					allChildren := append(append([]*sppf.SymbolNode{}, children...), bop, rhs.node)
					out = append(out, alt{p.reduce(ntApp, ruleAppChainBinop, allChildren), rhs.next})
				}
				endedInBinop = true
				break loop
			}
			if nextAtoms := p.parse(ntAtom, cur); len(nextAtoms) > 0 {
				na := nextAtoms[0]
				children = append(children, na.node)
				cur = na.next
				continue
			}
			break
		}
		if !endedInBinop {
			out = append(out, alt{p.reduce(ntApp, ruleAppChainAtom, children), cur})
		}
	}
	return out
}

func (p *Parser) parseAtom(pos int) []alt {
	pos = p.skipLayout(pos)
	tok := p.at(pos)
	switch tok.TokType() {
	case lexer.Int, lexer.Float, lexer.Bool, lexer.String:
		if a, ok := first(p.parse(ntLiteral, pos)); ok {
			return []alt{{p.reduce(ntAtom, ruleAtomLiteral, []*sppf.SymbolNode{a.node}), a.next}}
		}
		return nil
	case lexer.HashRef:
		if a, ok := first(p.parse(ntHashRef, pos)); ok {
			return []alt{{p.reduce(ntAtom, ruleAtomHashRef, []*sppf.SymbolNode{a.node}), a.next}}
		}
		return nil
	case lexer.Underscore:
		return []alt{{p.reduce(ntAtom, ruleAtomHole, []*sppf.SymbolNode{p.forest.AddTerminal(p.termFor(lexer.Underscore), uint64(pos))}), pos + 1}}
	case lexer.LParen:
		if _, n1, ok := p.leaf(pos, lexer.LParen); ok {
			if _, n2, ok := p.leaf(n1, lexer.RParen); ok {
				return []alt{{p.reduceEpsilon(ntAtom, ruleAtomUnit, n1), n2}}
			}
		}
		return p.parseParenOrTuple(pos)
	case lexer.LBracket:
		if a, ok := first(p.parse(ntList, pos)); ok {
			return []alt{{p.reduce(ntAtom, ruleAtomList, []*sppf.SymbolNode{a.node}), a.next}}
		}
		return nil
	case lexer.LBrace:
		var out []alt
		if a, ok := first(p.parse(ntRecord, pos)); ok {
			out = append(out, alt{p.reduce(ntAtom, ruleAtomRecord, []*sppf.SymbolNode{a.node}), a.next})
		}
		if a, ok := first(p.parse(ntBlock, pos)); ok {
			out = append(out, alt{p.reduce(ntAtom, ruleAtomBlock, []*sppf.SymbolNode{a.node}), a.next})
		}
		return out
	case lexer.IdentUpper:
		if qa, ok := first(p.parse(ntQualified, pos)); ok {
			return []alt{{p.reduce(ntAtom, ruleAtomQualified, []*sppf.SymbolNode{qa.node}), qa.next}}
		}
		fallthrough
	case lexer.IdentLower:
		id, n, ok := p.identAny(pos)
		if !ok {
			return nil
		}
		return []alt{{p.reduce(ntAtom, ruleAtomIdent, []*sppf.SymbolNode{id}), n}}
	}
	p.recordFailure(pos, "expected an expression")
	return nil
}

func (p *Parser) parseParenOrTuple(pos int) []alt {
	if a, ok := first(p.parse(ntTuple, pos)); ok {
		return []alt{{p.reduce(ntAtom, ruleAtomTuple, []*sppf.SymbolNode{a.node}), a.next}}
	}
	_, n1, ok := p.leaf(pos, lexer.LParen)
	if !ok {
		return nil
	}
	inner, ok := first(p.parse(ntExpr, n1))
	if !ok {
		return nil
	}
	_, n2, ok := p.leaf(inner.next, lexer.RParen)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntAtom, ruleAtomParen, []*sppf.SymbolNode{inner.node}), n2}}
}

func (p *Parser) parseLiteral(pos int) []alt {
	pos = p.skipLayout(pos)
	tt := p.at(pos).TokType()
	if tt != lexer.Int && tt != lexer.Float && tt != lexer.Bool && tt != lexer.String {
		return nil
	}
	node, n, ok := p.leaf(pos, tt)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntLiteral, ruleLiteral, []*sppf.SymbolNode{node}), n}}
}

// qualified := IDENT ('.' IDENT)+, restricted to a leading uppercase
// identifier so module-path access ("M.x") can be told apart from record
// field access ("r.field") at the lexical level, the way spec.md's own
// examples always capitalize module names.
func (p *Parser) parseQualified(pos int) []alt {
	first0, cur, ok := p.leaf(pos, lexer.IdentUpper)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{first0}
	count := 0
	for {
		if _, n, ok := p.leaf(cur, lexer.Dot); ok {
			if id, n2, ok := p.identAny(n); ok {
				children = append(children, id)
				cur = n2
				count++
				continue
			}
		}
		break
	}
	if count == 0 {
		return nil
	}
	return []alt{{p.reduce(ntQualified, ruleQualified, children), cur}}
}

func (p *Parser) parseHashRefNT(pos int) []alt {
	node, n, ok := p.leaf(pos, lexer.HashRef)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntHashRef, ruleHashRef, []*sppf.SymbolNode{node}), n}}
}

func (p *Parser) parseHole(pos int) []alt {
	node, n, ok := p.leaf(pos, lexer.Underscore)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntHole, ruleHole, []*sppf.SymbolNode{node}), n}}
}

func (p *Parser) parseLet(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwLet)
	if !ok {
		return nil
	}
	name, n2, ok := p.identAny(n1)
	if !ok {
		return nil
	}
	var typeNode *sppf.SymbolNode
	cur := n2
	if _, n, ok := p.leaf(cur, lexer.Colon); ok {
		if ta, ok := first(p.parse(ntType, n)); ok {
			typeNode = ta.node
			cur = ta.next
		}
	}
	_, n3, ok := p.leaf(cur, lexer.Equals)
	if !ok {
		return nil
	}
	var out []alt
	for _, va := range p.parse(ntExpr, n3) {
		if _, n4, ok := p.leaf(va.next, lexer.KwIn); ok {
			for _, body := range p.parse(ntExpr, n4) {
				children := nonNil(name, typeNode, va.node, body.node)
				out = append(out, alt{p.reduce(ntLet, ruleLetIn, children), body.next})
			}
		}
		children := nonNil(name, typeNode, va.node)
		out = append(out, alt{p.reduce(ntLet, ruleLet, children), va.next})
	}
	return out
}

func (p *Parser) parseRec(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwRec)
	if !ok {
		return nil
	}
	name, cur, ok := p.identAny(n1)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{name}
	paramCount := 0
	for {
		pa, ok := first(p.parse(ntParam, cur))
		if !ok {
			break
		}
		children = append(children, pa.node)
		cur = pa.next
		paramCount++
	}
	if paramCount == 0 {
		return nil
	}
	if _, n, ok := p.leaf(cur, lexer.Colon); ok {
		if ta, ok := first(p.parse(ntType, n)); ok {
			children = append(children, ta.node)
			cur = ta.next
		}
	}
	_, n2, ok := p.leaf(cur, lexer.Equals)
	if !ok {
		return nil
	}
	var out []alt
	for _, body := range p.parse(ntExpr, n2) {
		out = append(out, alt{p.reduce(ntRec, ruleRec, append(append([]*sppf.SymbolNode{}, children...), body.node)), body.next})
	}
	return out
}

func (p *Parser) parseLambda(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwFn)
	if !ok {
		return nil
	}
	var children []*sppf.SymbolNode
	cur := n1
	for {
		pa, ok := first(p.parse(ntParam, cur))
		if !ok {
			break
		}
		children = append(children, pa.node)
		cur = pa.next
	}
	if len(children) == 0 {
		return nil
	}
	_, n2, ok := p.leaf(cur, lexer.Arrow)
	if !ok {
		return nil
	}
	var out []alt
	for _, body := range p.parse(ntExpr, n2) {
		out = append(out, alt{p.reduce(ntLambda, ruleLambda, append(append([]*sppf.SymbolNode{}, children...), body.node)), body.next})
	}
	return out
}

// param := IDENT (':' type)?, the ':' form written bare rather than
// parenthesized since fn's parameter list is Kleene-star over param, not
// comma-separated, so no paren is needed to delimit one param from the next.
func (p *Parser) parseParam(pos int) []alt {
	name, n1, ok := p.identAny(pos)
	if !ok {
		return nil
	}
	if _, n2, ok := p.leaf(n1, lexer.Colon); ok {
		if ty, ok := first(p.parse(ntType, n2)); ok {
			children := []*sppf.SymbolNode{name, ty.node}
			return []alt{{p.reduce(ntParam, ruleParamTyped, children), ty.next}}
		}
	}
	return []alt{{p.reduce(ntParam, ruleParam, []*sppf.SymbolNode{name}), n1}}
}

func (p *Parser) parseIf(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwIf)
	if !ok {
		return nil
	}
	var out []alt
	for _, cond := range p.parse(ntExpr, n1) {
		_, n2, ok := p.leaf(cond.next, lexer.KwThen)
		if !ok {
			continue
		}
		for _, then := range p.parse(ntExpr, n2) {
			if _, n2, ok := p.leaf(then.next, lexer.KwElse); ok {
				for _, els := range p.parse(ntExpr, n2) {
					children := []*sppf.SymbolNode{cond.node, then.node, els.node}
					out = append(out, alt{p.reduce(ntIf, ruleIfElse, children), els.next})
				}
			} else {
				children := []*sppf.SymbolNode{cond.node, then.node}
				out = append(out, alt{p.reduce(ntIf, ruleIf, children), then.next})
			}
		}
	}
	return out
}

func (p *Parser) parseMatch(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwMatch)
	if !ok {
		return nil
	}
	scrut, ok := first(p.parse(ntExpr, n1))
	if !ok {
		return nil
	}
	_, n2, ok := p.leaf(scrut.next, lexer.LBrace)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{scrut.node}
	cur := n2
	armStart := true
	for {
		next := cur
		if _, n, ok := p.leaf(cur, lexer.Pipe); ok {
			next = n
		} else if !armStart {
			// a leading "|" before the first arm is conventional but
			// optional; every arm after the first needs one to separate
			// it from the previous arm's body expression.
			break
		}
		arm, ok := first(p.parse(ntMatchArm, next))
		if !ok {
			break
		}
		children = append(children, arm.node)
		cur = arm.next
		armStart = false
	}
	_, n3, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntMatch, ruleMatch, children), n3}}
}

func (p *Parser) parseMatchArm(pos int) []alt {
	pat, ok := first(p.parse(ntPattern, pos))
	if !ok {
		return nil
	}
	cur := pat.next
	var guard *sppf.SymbolNode
	if _, n, ok := p.leaf(cur, lexer.KwIf); ok {
		if g, ok := first(p.parse(ntExpr, n)); ok {
			guard = g.node
			cur = g.next
		}
	}
	_, n2, ok := p.leaf(cur, lexer.Arrow)
	if !ok {
		return nil
	}
	body, ok := first(p.parse(ntExpr, n2))
	if !ok {
		return nil
	}
	children := nonNil(pat.node, guard, body.node)
	return []alt{{p.reduce(ntMatchArm, ruleMatchArm, children), body.next}}
}

func (p *Parser) parseHandle(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwHandle)
	if !ok {
		return nil
	}
	inner, ok := first(p.parse(ntExpr, n1))
	if !ok {
		return nil
	}
	_, n2, ok := p.leaf(inner.next, lexer.KwWith)
	if !ok {
		return nil
	}
	_, n3, ok := p.leaf(n2, lexer.LBrace)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{inner.node}
	cur := n3
	for {
		// the leading "|" is mandatory on every clause (spec.md §6).
		_, n, ok := p.leaf(cur, lexer.Pipe)
		if !ok {
			break
		}
		arm, ok := first(p.parse(ntHandleArm, n))
		if !ok {
			break
		}
		children = append(children, arm.node)
		cur = arm.next
	}
	_, n4, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntHandle, ruleHandle, children), n4}}
}

// handleArm := 'return' IDENT '->' expr
//            | handlerOp (IDENT | '_')+ '->' expr
// The second form's identifier run is "arg1 arg2 … k" (spec.md §6): the
// grammar itself can't tell where an effect op's declared arguments end and
// the continuation name k begins — that split depends on the operation's
// declared arity, a semantic fact the checker resolves (internal/check),
// not a syntactic one. The reducer treats the last identifier as k and
// everything before it as bound argument patterns.
func (p *Parser) parseHandleArm(pos int) []alt {
	if _, n1, ok := p.leaf(pos, lexer.KwReturn); ok {
		if id, n2, ok := p.identAny(n1); ok {
			if _, n3, ok := p.leaf(n2, lexer.Arrow); ok {
				if body, ok := first(p.parse(ntExpr, n3)); ok {
					children := []*sppf.SymbolNode{id, body.node}
					return []alt{{p.reduce(ntHandleArm, ruleHandleReturn, children), body.next}}
				}
			}
		}
		return nil
	}
	qual, cur, ok := p.parseHandlerOpName(pos)
	if !ok {
		return nil
	}
	var idents []*sppf.SymbolNode
	for {
		n := p.skipLayout(cur)
		if n >= len(p.toks) {
			break
		}
		tt := p.toks[n].TokType()
		if tt == lexer.Underscore {
			idents = append(idents, p.forest.AddTerminal(p.termFor(lexer.Underscore), uint64(n)))
			cur = n + 1
			continue
		}
		if tt == lexer.IdentLower || tt == lexer.IdentUpper {
			id, n2, ok := p.identAny(n)
			if !ok {
				break
			}
			idents = append(idents, id)
			cur = n2
			continue
		}
		break
	}
	if len(idents) == 0 {
		return nil
	}
	_, n5, ok := p.leaf(cur, lexer.Arrow)
	if !ok {
		return nil
	}
	body, ok := first(p.parse(ntExpr, n5))
	if !ok {
		return nil
	}
	children := append(append([]*sppf.SymbolNode{qual}, idents...), body.node)
	return []alt{{p.reduce(ntHandleArm, ruleHandleArm, children), body.next}}
}

// parseHandlerOpName accepts "E.op" without requiring the leading-uppercase
// restriction parseQualified imposes on ordinary expressions: an effect
// name is always uppercase by spec.md's own examples (IO, State, Exception),
// so the restriction holds here too, but written directly to keep control
// flow (and its failure position) local to handleArm.
func (p *Parser) parseHandlerOpName(pos int) (*sppf.SymbolNode, int, bool) {
	e, n1, ok := p.leaf(pos, lexer.IdentUpper)
	if !ok {
		return nil, pos, false
	}
	_, n2, ok := p.leaf(n1, lexer.Dot)
	if !ok {
		return nil, pos, false
	}
	op, n3, ok := p.identAny(n2)
	if !ok {
		return nil, pos, false
	}
	return p.reduce(NT("handlerOp"), Rule(0), []*sppf.SymbolNode{e, op}), n3, true
}

func (p *Parser) peekIs(pos int, tt xs.TokType) bool {
	pos = p.skipLayout(pos)
	return pos < len(p.toks) && p.toks[pos].TokType() == tt
}

func (p *Parser) parsePerform(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwPerform)
	if !ok {
		return nil
	}
	e, n2, ok := p.leaf(n1, lexer.IdentUpper)
	if !ok {
		return nil
	}
	_, n3, ok := p.leaf(n2, lexer.Dot)
	if !ok {
		return nil
	}
	op, cur, ok := p.identAny(n3)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{e, op}
	for {
		a, ok := first(p.parse(ntAtom, cur))
		if !ok {
			break
		}
		children = append(children, a.node)
		cur = a.next
	}
	return []alt{{p.reduce(ntPerform, rulePerform, children), cur}}
}

func (p *Parser) parseDo(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.KwDo)
	if !ok {
		return nil
	}
	_, n2, ok := p.leaf(n1, lexer.LBrace)
	if !ok {
		return nil
	}
	var children []*sppf.SymbolNode
	cur := n2
	for {
		stmt, ok := first(p.parse(ntDoStmt, cur))
		if !ok {
			break
		}
		children = append(children, stmt.node)
		cur = p.skipStmtSeparator(stmt.next)
	}
	_, n3, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return nil
	}
	if len(children) == 0 {
		return []alt{{p.reduceEpsilon(ntDo, ruleDo, n2), n3}}
	}
	return []alt{{p.reduce(ntDo, ruleDo, children), n3}}
}

// skipStmtSeparator consumes one ";" or one run of Newline tokens, the two
// interchangeable separators a do-block accepts between statements.
func (p *Parser) skipStmtSeparator(pos int) int {
	if pos < len(p.toks) && p.toks[pos].TokType() == lexer.Semi {
		return pos + 1
	}
	n := pos
	for n < len(p.toks) && p.toks[n].TokType() == lexer.Newline {
		n++
	}
	return n
}

func (p *Parser) parseDoStmt(pos int) []alt {
	start := p.skipLayout(pos)
	if p.peekIs(start, lexer.IdentLower) {
		save := start
		if id, n1, ok := p.identAny(start); ok {
			if _, n2, ok := p.leaf(n1, lexer.LArrow); ok {
				if e, ok := first(p.parse(ntExpr, n2)); ok {
					children := []*sppf.SymbolNode{id, e.node}
					return []alt{{p.reduce(ntDoStmt, ruleDoStmtBind, children), e.next}}
				}
			}
		}
		start = save
	}
	e, ok := first(p.parse(ntExpr, start))
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntDoStmt, ruleDoStmtExpr, []*sppf.SymbolNode{e.node}), e.next}}
}

// --- collection / compound literals -------------------------------------

func (p *Parser) parseList(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.LBracket)
	if !ok {
		return nil
	}
	if _, n2, ok := p.leaf(n1, lexer.RBracket); ok {
		return []alt{{p.reduceEpsilon(ntList, ruleListEmpty, n1), n2}}
	}
	var children []*sppf.SymbolNode
	cur := n1
	for {
		e, ok := first(p.parse(ntExpr, cur))
		if !ok {
			break
		}
		children = append(children, e.node)
		cur = e.next
		if _, n, ok := p.leaf(cur, lexer.Comma); ok {
			cur = n
			continue
		}
		break
	}
	_, n3, ok := p.leaf(cur, lexer.RBracket)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntList, ruleList, children), n3}}
}

func (p *Parser) parseTuple(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.LParen)
	if !ok {
		return nil
	}
	first0, ok := first(p.parse(ntExpr, n1))
	if !ok {
		return nil
	}
	_, n2, ok := p.leaf(first0.next, lexer.Comma)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{first0.node}
	cur := n2
	for {
		e, ok := first(p.parse(ntExpr, cur))
		if !ok {
			return nil
		}
		children = append(children, e.node)
		cur = e.next
		if _, n, ok := p.leaf(cur, lexer.Comma); ok {
			cur = n
			continue
		}
		break
	}
	_, n3, ok := p.leaf(cur, lexer.RParen)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntTuple, ruleTuple, children), n3}}
}

func (p *Parser) parseRecord(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.LBrace)
	if !ok {
		return nil
	}
	var children []*sppf.SymbolNode
	cur := n1
	if !p.peekIs(cur, lexer.RBrace) {
		for {
			field, n, ok := p.parseRecordField(cur)
			if !ok {
				return nil
			}
			children = append(children, field)
			cur = n
			if _, n2, ok := p.leaf(cur, lexer.Comma); ok {
				cur = n2
				continue
			}
			break
		}
	}
	_, n2, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return nil
	}
	if len(children) == 0 {
		return []alt{{p.reduceEpsilon(ntRecord, ruleRecord, n1), n2}}
	}
	return []alt{{p.reduce(ntRecord, ruleRecord, children), n2}}
}

func (p *Parser) parseRecordField(pos int) (*sppf.SymbolNode, int, bool) {
	start := p.skipLayout(pos)
	name, n1, ok := p.identAny(start)
	if !ok {
		return nil, pos, false
	}
	if _, n2, ok := p.leaf(n1, lexer.Equals); ok {
		val, ok := first(p.parse(ntExpr, n2))
		if !ok {
			return nil, pos, false
		}
		return p.reduce(NT("recordField"), ruleRecordField, []*sppf.SymbolNode{name, val.node}), val.next, true
	}
	// shorthand "{ x }": field x bound to a variable of the same name.
	// This is what makes "{"-opening genuinely ambiguous between a record
	// and a block (spec.md §4.B) — a bare identifier is also a complete
	// one-statement block — rather than ambiguous only in name.
	if p.toks[start].TokType() != lexer.IdentLower {
		return nil, pos, false
	}
	return p.reduce(NT("recordField"), ruleRecordFieldShorthand, []*sppf.SymbolNode{name}), n1, true
}

func (p *Parser) parseBlock(pos int) []alt {
	_, n1, ok := p.leaf(pos, lexer.LBrace)
	if !ok {
		return nil
	}
	var children []*sppf.SymbolNode
	cur := n1
	for {
		e, ok := first(p.parse(ntExpr, cur))
		if !ok {
			break
		}
		children = append(children, e.node)
		cur = p.skipStmtSeparator(e.next)
	}
	if len(children) == 0 {
		return nil
	}
	_, n2, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntBlock, ruleBlock, children), n2}}
}

// --- patterns -----------------------------------------------------------

func (p *Parser) parsePattern(pos int) []alt {
	base, ok := p.parsePatternBase(pos)
	if !ok {
		return nil
	}
	if _, n, ok := p.leaf(base.next, lexer.Cons); ok {
		if tail, ok := first(p.parse(ntPattern, n)); ok {
			children := []*sppf.SymbolNode{base.node, tail.node}
			return []alt{{p.reduce(ntPattern, rulePatternCons, children), tail.next}}
		}
	}
	return []alt{base}
}

func (p *Parser) parsePatternBase(pos int) (alt, bool) {
	pos = p.skipLayout(pos)
	tok := p.at(pos)
	switch tok.TokType() {
	case lexer.Underscore:
		node := p.forest.AddTerminal(p.termFor(lexer.Underscore), uint64(pos))
		return alt{p.reduce(ntPattern, rulePatternWildcard, []*sppf.SymbolNode{node}), pos + 1}, true
	case lexer.Int, lexer.Float, lexer.Bool, lexer.String:
		if lit, ok := first(p.parse(ntLiteral, pos)); ok {
			return alt{p.reduce(ntPattern, rulePatternLiteral, []*sppf.SymbolNode{lit.node}), lit.next}, true
		}
	case lexer.LParen:
		return p.parsePatternTuple(pos)
	case lexer.LBracket:
		return p.parsePatternList(pos)
	case lexer.LBrace:
		return p.parsePatternRecord(pos)
	case lexer.IdentUpper:
		name, n, ok := p.identAny(pos)
		if !ok {
			return alt{}, false
		}
		if _, n2, ok := p.leaf(n, lexer.LParen); ok {
			var args []*sppf.SymbolNode
			cur := n2
			if !p.peekIs(cur, lexer.RParen) {
				for {
					a, ok := first(p.parse(ntPattern, cur))
					if !ok {
						return alt{}, false
					}
					args = append(args, a.node)
					cur = a.next
					if _, n3, ok := p.leaf(cur, lexer.Comma); ok {
						cur = n3
						continue
					}
					break
				}
			}
			_, n3, ok := p.leaf(cur, lexer.RParen)
			if !ok {
				return alt{}, false
			}
			children := append([]*sppf.SymbolNode{name}, args...)
			return alt{p.reduce(ntPattern, rulePatternCtor, children), n3}, true
		}
		return alt{p.reduce(ntPattern, rulePatternCtor, []*sppf.SymbolNode{name}), n}, true
	case lexer.IdentLower:
		name, n, ok := p.identAny(pos)
		if !ok {
			return alt{}, false
		}
		return alt{p.reduce(ntPattern, rulePatternIdent, []*sppf.SymbolNode{name}), n}, true
	}
	p.recordFailure(pos, "expected a pattern")
	return alt{}, false
}

// patternTuple := '(' pattern ',' pattern (',' pattern)* ')' — parsed
// directly over ntPattern (unlike an ordinary expression tuple) so that a
// tuple pattern's elements are themselves patterns, not expressions.
func (p *Parser) parsePatternTuple(pos int) (alt, bool) {
	_, n1, ok := p.leaf(pos, lexer.LParen)
	if !ok {
		return alt{}, false
	}
	first0, ok := first(p.parse(ntPattern, n1))
	if !ok {
		return alt{}, false
	}
	_, n2, ok := p.leaf(first0.next, lexer.Comma)
	if !ok {
		return alt{}, false
	}
	children := []*sppf.SymbolNode{first0.node}
	cur := n2
	for {
		e, ok := first(p.parse(ntPattern, cur))
		if !ok {
			return alt{}, false
		}
		children = append(children, e.node)
		cur = e.next
		if _, n, ok := p.leaf(cur, lexer.Comma); ok {
			cur = n
			continue
		}
		break
	}
	_, n3, ok := p.leaf(cur, lexer.RParen)
	if !ok {
		return alt{}, false
	}
	return alt{p.reduce(ntPattern, rulePatternTuple, children), n3}, true
}

func (p *Parser) parsePatternList(pos int) (alt, bool) {
	_, n1, ok := p.leaf(pos, lexer.LBracket)
	if !ok {
		return alt{}, false
	}
	if _, n2, ok := p.leaf(n1, lexer.RBracket); ok {
		return alt{p.reduceEpsilon(ntPattern, rulePatternList, n1), n2}, true
	}
	var children []*sppf.SymbolNode
	cur := n1
	for {
		e, ok := first(p.parse(ntPattern, cur))
		if !ok {
			return alt{}, false
		}
		children = append(children, e.node)
		cur = e.next
		if _, n, ok := p.leaf(cur, lexer.Comma); ok {
			cur = n
			continue
		}
		break
	}
	_, n3, ok := p.leaf(cur, lexer.RBracket)
	if !ok {
		return alt{}, false
	}
	return alt{p.reduce(ntPattern, rulePatternList, children), n3}, true
}

// patternRecord := '{' patternField (',' patternField)* '}'
// patternField  := IDENT ('=' pattern)? — a bare field name is shorthand for
// binding a variable pattern of the same name, the way record patterns
// abbreviate in every ML-family language the retrieved examples draw on.
func (p *Parser) parsePatternRecord(pos int) (alt, bool) {
	_, n1, ok := p.leaf(pos, lexer.LBrace)
	if !ok {
		return alt{}, false
	}
	var children []*sppf.SymbolNode
	cur := n1
	if !p.peekIs(cur, lexer.RBrace) {
		for {
			field, n, ok := p.parsePatternField(cur)
			if !ok {
				return alt{}, false
			}
			children = append(children, field)
			cur = n
			if _, n2, ok := p.leaf(cur, lexer.Comma); ok {
				cur = n2
				continue
			}
			break
		}
	}
	_, n2, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return alt{}, false
	}
	if len(children) == 0 {
		return alt{p.reduceEpsilon(ntPattern, rulePatternRecord, n1), n2}, true
	}
	return alt{p.reduce(ntPattern, rulePatternRecord, children), n2}, true
}

func (p *Parser) parsePatternField(pos int) (*sppf.SymbolNode, int, bool) {
	name, n1, ok := p.identAny(pos)
	if !ok {
		return nil, pos, false
	}
	if _, n2, ok := p.leaf(n1, lexer.Equals); ok {
		if pat, ok := first(p.parse(ntPattern, n2)); ok {
			return p.reduce(NT("patternField"), Rule(0), []*sppf.SymbolNode{name, pat.node}), pat.next, true
		}
		return nil, pos, false
	}
	return p.reduce(NT("patternField"), Rule(0), []*sppf.SymbolNode{name}), n1, true
}

// --- types ---------------------------------------------------------------

func (p *Parser) parseAtomicType(pos int) []alt {
	pos = p.skipLayout(pos)
	tok := p.at(pos)
	switch tok.TokType() {
	case lexer.LParen:
		_, n1, ok := p.leaf(pos, lexer.LParen)
		if !ok {
			return nil
		}
		inner, ok := first(p.parse(ntType, n1))
		if !ok {
			return nil
		}
		_, n2, ok := p.leaf(inner.next, lexer.RParen)
		if !ok {
			return nil
		}
		return []alt{{p.reduce(ntAtomicType, ruleAtomicType, []*sppf.SymbolNode{inner.node}), n2}}
	case lexer.LBracket:
		_, n1, ok := p.leaf(pos, lexer.LBracket)
		if !ok {
			return nil
		}
		elem, ok := first(p.parse(ntType, n1))
		if !ok {
			return nil
		}
		_, n2, ok := p.leaf(elem.next, lexer.RBracket)
		if !ok {
			return nil
		}
		return []alt{{p.reduce(ntAtomicType, ruleAtomicType, []*sppf.SymbolNode{elem.node}), n2}}
	case lexer.IdentLower, lexer.IdentUpper:
		// a single optional type argument covers the common one-parameter
		// constructors ("List a", "Option a"); multi-argument type
		// application is not parsed.
		name, cur, ok := p.identAny(pos)
		if !ok {
			return nil
		}
		children := []*sppf.SymbolNode{name}
		if tok := p.at(p.skipLayout(cur)); tok.TokType() == lexer.IdentLower || tok.TokType() == lexer.IdentUpper {
			if arg, ok := first(p.parse(ntAtomicType, cur)); ok {
				children = append(children, arg.node)
				cur = arg.next
			}
		}
		return []alt{{p.reduce(ntAtomicType, ruleAtomicType, children), cur}}
	}
	return nil
}

func (p *Parser) parseType(pos int) []alt {
	at, ok := first(p.parse(ntAtomicType, pos))
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{at.node}
	cur := at.next
	if _, n, ok := p.leaf(cur, lexer.Arrow); ok {
		if rhs, ok := first(p.parse(ntType, n)); ok {
			children = append(children, rhs.node)
			cur = rhs.next
		}
	}
	if _, n, ok := p.leaf(cur, lexer.Bang); ok {
		if row, ok := first(p.parse(ntEffectRow, n)); ok {
			children = append(children, row.node)
			cur = row.next
		}
	}
	return []alt{{p.reduce(ntType, ruleType, children), cur}}
}

func (p *Parser) parseEffectRow(pos int) []alt {
	pos = p.skipLayout(pos)
	if p.peekIs(pos, lexer.IdentUpper) || p.peekIs(pos, lexer.IdentLower) {
		name, n, ok := p.identAny(pos)
		if ok {
			return []alt{{p.reduce(ntEffectRow, ruleEffectRow, []*sppf.SymbolNode{name}), n}}
		}
	}
	_, n1, ok := p.leaf(pos, lexer.LBrace)
	if !ok {
		return nil
	}
	name, cur, ok := p.identAny(n1)
	if !ok {
		return nil
	}
	children := []*sppf.SymbolNode{name}
	for {
		if _, n, ok := p.leaf(cur, lexer.Comma); ok {
			if id, n2, ok := p.identAny(n); ok {
				children = append(children, id)
				cur = n2
				continue
			}
		}
		break
	}
	rule := Rule(ruleEffectRowClosed)
	if _, n, ok := p.leaf(cur, lexer.Pipe); ok {
		if tail, n2, ok := p.identAny(n); ok {
			children = append(children, tail)
			cur = n2
			rule = ruleEffectRowOpen
		}
	}
	_, n2, ok := p.leaf(cur, lexer.RBrace)
	if !ok {
		return nil
	}
	return []alt{{p.reduce(ntEffectRow, rule, children), n2}}
}
