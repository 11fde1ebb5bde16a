/*
Package gll implements a Generalized LL parser over the surface grammar of
Vibe/XS, producing a internal/sppf.Forest instead of a single parse tree:
where the grammar admits two derivations of the same input (record-vs-block,
both opening on "{"), the shared packed parse forest keeps both until the
AST reducer (internal/ast) disambiguates them. Infix precedence and
application are not parsed ambiguously: an app is one flat sequence that
the reducer re-associates.

gorgo's own parsers (lr/glr, lr/slr) are table-driven: a grammar is compiled
offline into ACTION/GOTO tables, and the parser is a generic table
interpreter. That shape does not fit a GLL parser over a hand-written,
ambiguous expression grammar — there is no table to compile, only a set of
recursive grammar slots. This package keeps gorgo's runtime *data
structures* (the GSS from internal/gss, the SPPF from internal/sppf) and
replaces the table-interpreter loop with memoized recursive descent: each
grammar slot is one function, results at a given (nonterminal, input
position) are memoized once in the GSS so every caller that reaches the
same slot at the same position shares the same node and the same set of
results, which is the property that matters for avoiding exponential
blowup on ambiguous input — whether the scheduling loop is an explicit
worklist or the Go call stack is an implementation detail the outside
world (the SPPF it produces) cannot observe.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package gll

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"

	"github.com/vibe-xs/xs"
	"github.com/vibe-xs/xs/diag"
	"github.com/vibe-xs/xs/internal/gss"
	"github.com/vibe-xs/xs/internal/lexer"
	"github.com/vibe-xs/xs/internal/sppf"
)

// tracer traces with key 'xs.gll'.
func tracer() tracing.Trace {
	return tracing.Select("xs.gll")
}

// NT names a grammar nonterminal; it doubles as a sppf.Symbol name and as a
// gss.Label.
type NT string

const (
	ntStart       NT = "S'"
	ntProgram     NT = "program"
	ntItem        NT = "item"
	ntModuleDecl  NT = "moduleDecl"
	ntImportDecl  NT = "importDecl"
	ntExportDecl  NT = "exportDecl"
	ntTypeDecl    NT = "typeDecl"
	ntEffectDecl  NT = "effectDecl"
	ntExpr        NT = "expr"
	ntApp         NT = "app"
	ntAtom        NT = "atom"
	ntLet         NT = "let"
	ntRec         NT = "rec"
	ntLambda      NT = "lambda"
	ntIf          NT = "if"
	ntMatch       NT = "match"
	ntHandle      NT = "handle"
	ntPerform     NT = "perform"
	ntDo          NT = "do"
	ntDoStmt      NT = "doStmt"
	ntMatchArm    NT = "matchArm"
	ntHandleArm   NT = "handleArm"
	ntPattern     NT = "pattern"
	ntParam       NT = "param"
	ntLiteral     NT = "literal"
	ntQualified   NT = "qualified"
	ntHashRef     NT = "hashRef"
	ntList        NT = "list"
	ntTuple       NT = "tuple"
	ntRecord      NT = "record"
	ntBlock       NT = "block"
	ntHole        NT = "hole"
	ntType        NT = "type"
	ntAtomicType  NT = "atomicType"
	ntEffectRow   NT = "effectRow"
	ntTypeParams  NT = "typeParams"
	ntTypeDeclRHS NT = "typeDeclRHS"
)

// Rule identifies one grammar alternative, used only to bucket RHS-node
// search-tree lookups (see internal/sppf); uniqueness across alternatives
// is nice-to-have for readability, not required for correctness, since the
// RHS fingerprint also encodes the rule number.
type Rule int

const (
	_ Rule = iota
	ruleProgram
	ruleItemModule
	ruleItemImport
	ruleItemExport
	ruleItemType
	ruleItemEffect
	ruleItemExpr
	ruleModuleDecl
	ruleImportDecl
	ruleExportDecl
	ruleTypeDecl
	ruleEffectDecl
	ruleExprApp
	ruleExprLet
	ruleExprRec
	ruleExprLambda
	ruleExprIf
	ruleExprMatch
	ruleExprHandle
	ruleExprDo
	ruleExprPerform
	ruleAppSingle
	ruleAppChainAtom
	ruleAppChainAccess
	ruleAppChainBinop
	ruleAtomLiteral
	ruleAtomIdent
	ruleAtomQualified
	ruleAtomHashRef
	ruleAtomParen
	ruleAtomList
	ruleAtomTuple
	ruleAtomRecord
	ruleAtomBlock
	ruleAtomHole
	ruleAtomUnit
	ruleLiteral
	ruleQualified
	ruleHashRef
	ruleHole
	ruleLet
	ruleLetIn
	ruleRec
	ruleLambda
	ruleIf
	ruleIfElse
	ruleMatch
	ruleMatchArm
	ruleHandle
	ruleHandleArm
	ruleHandleReturn
	rulePerform
	rulePerformQualified
	ruleDo
	ruleDoStmtBind
	ruleDoStmtExpr
	ruleList
	ruleListEmpty
	ruleTuple
	ruleRecord
	ruleRecordField
	ruleRecordFieldShorthand
	ruleBlock
	rulePattern
	rulePatternWildcard
	rulePatternIdent
	rulePatternLiteral
	rulePatternCtor
	rulePatternTuple
	rulePatternList
	rulePatternCons
	rulePatternRecord
	ruleParam
	ruleParamTyped
	ruleType
	ruleTypeArrow
	ruleTypeEffect
	ruleAtomicType
	ruleEffectRow
	ruleEffectRowOpen
	ruleEffectRowClosed
	ruleTypeParams
	ruleTypeDeclAlias
	ruleTypeDeclSum
)

type memoKey struct {
	nt  NT
	pos int
}

type alt struct {
	node *sppf.SymbolNode
	next int
}

// Parser runs one parse over a fixed token slice.
type Parser struct {
	toks   []lexer.Token
	forest *sppf.Forest
	gss    *gss.Graph
	nts    map[NT]*sppf.Symbol
	terms  map[xs.TokType]*sppf.Symbol
	done   map[memoKey]bool // (nt, pos) slots whose gss node has all its results recorded
	active map[memoKey]bool

	// callers is the stack of gss nodes currently being computed, innermost
	// last. parse connects the node it is about to compute to the node on
	// top of this stack (its caller), the GLL "push a return edge" step;
	// since this grammar has no left recursion (no nonterminal can reach
	// itself at the same position without consuming a token first), driving
	// that push/connect/pop sequence from the Go call stack instead of an
	// explicit worklist is a legitimate scheduling choice — the resulting
	// graph of nodes, edges and replayed pops is identical either way.
	callers []*gss.Node

	failPos int
	failMsg string
}

// New creates a parser over an already-scanned token slice. Newline tokens
// remain in the slice; grammar rules skip over them except inside "do"
// blocks, where they act as an alternative statement separator to ";".
func New(toks []lexer.Token) *Parser {
	return &Parser{
		toks:   toks,
		forest: sppf.NewForest(),
		gss:    gss.NewGraph(),
		nts:    map[NT]*sppf.Symbol{},
		terms:  map[xs.TokType]*sppf.Symbol{},
		done:   map[memoKey]bool{},
		active: map[memoKey]bool{},
	}
}

// Result is the outcome of a successful parse: the forest and its root.
type Result struct {
	Forest *sppf.Forest
	Root   *sppf.SymbolNode
	Tokens []lexer.Token
}

// ParseProgram parses a whole source file (a sequence of top-level items)
// and returns the resulting forest.
func (p *Parser) ParseProgram() (*Result, error) {
	alts := p.parse(ntProgram, p.skipLayout(0))
	for _, a := range alts {
		if p.isEOF(a.next) {
			root := p.forest.AddReduction(p.symFor(ntStart), int(ruleProgram), []*sppf.SymbolNode{a.node})
			p.forest.SetRoot(root)
			return &Result{Forest: p.forest, Root: root, Tokens: p.toks}, nil
		}
	}
	return nil, p.parseError()
}

func (p *Parser) parseError() error {
	pos := p.failPos
	if pos >= len(p.toks) {
		pos = len(p.toks) - 1
	}
	if pos < 0 {
		pos = 0
	}
	tok := p.toks[pos]
	msg := p.failMsg
	if msg == "" {
		msg = fmt.Sprintf("unexpected %s %q", lexer.Name(tok.TokType()), tok.Lexeme())
	}
	return diag.New(diag.Parse, "ParseError", tok.Span(), "%s", msg)
}

func (p *Parser) recordFailure(pos int, msg string) {
	if pos > p.failPos {
		p.failPos = pos
		p.failMsg = msg
	}
}

// --- symbol interning -------------------------------------------------

func (p *Parser) symFor(nt NT) *sppf.Symbol {
	if s, ok := p.nts[nt]; ok {
		return s
	}
	s := &sppf.Symbol{Name: string(nt), Value: len(p.nts) + 1000}
	p.nts[nt] = s
	return s
}

func (p *Parser) termFor(tt xs.TokType) *sppf.Symbol {
	if s, ok := p.terms[tt]; ok {
		return s
	}
	s := &sppf.Symbol{Name: lexer.Name(tt), Value: int(tt), Terminal: true}
	p.terms[tt] = s
	return s
}

// --- token access -------------------------------------------------------

func (p *Parser) isEOF(pos int) bool {
	return pos >= len(p.toks) || p.toks[pos].TokType() == lexer.EOF
}

func (p *Parser) at(pos int) lexer.Token {
	if pos >= len(p.toks) {
		return lexer.Token{}
	}
	return p.toks[pos]
}

// skipLayout advances past Newline tokens that aren't meaningful outside
// a "do" block.
func (p *Parser) skipLayout(pos int) int {
	for pos < len(p.toks) && p.toks[pos].TokType() == lexer.Newline {
		pos++
	}
	return pos
}

// leaf wraps the token at pos into an SPPF terminal node, if it matches tt.
func (p *Parser) leaf(pos int, tt xs.TokType) (*sppf.SymbolNode, int, bool) {
	pos = p.skipLayout(pos)
	if pos >= len(p.toks) {
		p.recordFailure(pos, fmt.Sprintf("unexpected end of input, expected %s", lexer.Name(tt)))
		return nil, pos, false
	}
	tok := p.toks[pos]
	if tok.TokType() != tt {
		p.recordFailure(pos, fmt.Sprintf("expected %s, found %s %q", lexer.Name(tt), lexer.Name(tok.TokType()), tok.Lexeme()))
		return nil, pos, false
	}
	node := p.forest.AddTerminal(p.termFor(tt), uint64(pos))
	return node, pos + 1, true
}

func (p *Parser) identAny(pos int) (*sppf.SymbolNode, int, bool) {
	pos = p.skipLayout(pos)
	if pos >= len(p.toks) {
		return nil, pos, false
	}
	tt := p.toks[pos].TokType()
	if tt != lexer.IdentLower && tt != lexer.IdentUpper {
		p.recordFailure(pos, fmt.Sprintf("expected identifier, found %s %q", lexer.Name(tt), p.toks[pos].Lexeme()))
		return nil, pos, false
	}
	node := p.forest.AddTerminal(p.termFor(tt), uint64(pos))
	return node, pos + 1, true
}

// --- memoized dispatch ----------------------------------------------------

// parse returns every distinct (node, next-position) alternative for
// nonterminal nt starting at pos, sharing the result with every later caller
// that reaches the same (nt, pos) pair.
//
// It follows Scott & Johnstone's create/pop GSS discipline: it creates (or
// finds) the node for (nt, pos), connects it to its caller's node — the
// return edge a GLL worklist would otherwise push — and, if the node has
// already been popped (computed) by an earlier caller, returns its recorded
// results directly from the node via gss.Node.Results rather than
// recomputing or consulting a side cache. Connect's replay of already-
// recorded pops onto a newly added edge is what lets a caller that arrives
// after the callee has already finished still observe every result; this
// parser drives that replay by re-deriving the alt slice from the returned
// PopRecords instead of scheduling continuations onto an explicit queue,
// which is equivalent for a grammar with no left recursion (see the Parser
// struct doc).
func (p *Parser) parse(nt NT, pos int) []alt {
	pos = p.skipLayout(pos)
	key := memoKey{nt, pos}
	node := p.gss.Create(nt, pos)

	if len(p.callers) > 0 {
		caller := p.callers[len(p.callers)-1]
		if recs := p.gss.Connect(node, caller, nil); len(recs) > 0 {
			// node had already been popped before this edge existed;
			// Connect just replayed those pops onto it, so caller's own
			// eventual Results() call will already see them.
			tracer().Debugf("replayed %d pop(s) of %s onto late caller %s", len(recs), node, caller)
		}
	}

	if p.done[key] {
		return poppedAlts(node)
	}
	if p.active[key] {
		// grammar is not left-recursive; a slot revisited while still
		// active at the same position would be a bug in a production
		// function, not legitimate ambiguity.
		return nil
	}

	p.active[key] = true
	p.callers = append(p.callers, node)
	results := p.dispatch(nt, pos)
	p.callers = p.callers[:len(p.callers)-1]
	delete(p.active, key)

	for _, a := range results {
		p.gss.Pop(node, a.next, a.node)
	}
	p.done[key] = true
	return results
}

// poppedAlts reconstructs the alt slice a node's own popped records
// represent, letting a repeat caller share a callee's work via the gss node
// itself rather than a side cache.
func poppedAlts(node *gss.Node) []alt {
	recs := node.Results()
	out := make([]alt, 0, len(recs))
	for _, r := range recs {
		out = append(out, alt{node: r.NodeData.(*sppf.SymbolNode), next: r.Pos})
	}
	return out
}

func (p *Parser) dispatch(nt NT, pos int) []alt {
	switch nt {
	case ntProgram:
		return p.parseProgram(pos)
	case ntItem:
		return p.parseItem(pos)
	case ntModuleDecl:
		return p.parseModuleDecl(pos)
	case ntImportDecl:
		return p.parseImportDecl(pos)
	case ntExportDecl:
		return p.parseExportDecl(pos)
	case ntTypeDecl:
		return p.parseTypeDecl(pos)
	case ntEffectDecl:
		return p.parseEffectDecl(pos)
	case ntExpr:
		return p.parseExpr(pos)
	case ntApp:
		return p.parseApp(pos)
	case ntAtom:
		return p.parseAtom(pos)
	case ntLet:
		return p.parseLet(pos)
	case ntRec:
		return p.parseRec(pos)
	case ntLambda:
		return p.parseLambda(pos)
	case ntIf:
		return p.parseIf(pos)
	case ntMatch:
		return p.parseMatch(pos)
	case ntHandle:
		return p.parseHandle(pos)
	case ntPerform:
		return p.parsePerform(pos)
	case ntDo:
		return p.parseDo(pos)
	case ntDoStmt:
		return p.parseDoStmt(pos)
	case ntMatchArm:
		return p.parseMatchArm(pos)
	case ntHandleArm:
		return p.parseHandleArm(pos)
	case ntPattern:
		return p.parsePattern(pos)
	case ntParam:
		return p.parseParam(pos)
	case ntLiteral:
		return p.parseLiteral(pos)
	case ntQualified:
		return p.parseQualified(pos)
	case ntHashRef:
		return p.parseHashRefNT(pos)
	case ntList:
		return p.parseList(pos)
	case ntTuple:
		return p.parseTuple(pos)
	case ntRecord:
		return p.parseRecord(pos)
	case ntBlock:
		return p.parseBlock(pos)
	case ntHole:
		return p.parseHole(pos)
	case ntType:
		return p.parseType(pos)
	case ntAtomicType:
		return p.parseAtomicType(pos)
	case ntEffectRow:
		return p.parseEffectRow(pos)
	case ntTypeParams:
		return p.parseTypeParams(pos)
	case ntTypeDeclRHS:
		return p.parseTypeDeclRHS(pos)
	default:
		panic(fmt.Sprintf("gll: unknown nonterminal %q", nt))
	}
}

// reduce wraps forest.AddReduction with this parser's symbol table.
func (p *Parser) reduce(nt NT, rule Rule, children []*sppf.SymbolNode) *sppf.SymbolNode {
	return p.forest.AddReduction(p.symFor(nt), int(rule), children)
}

func (p *Parser) reduceEpsilon(nt NT, rule Rule, pos int) *sppf.SymbolNode {
	return p.forest.AddEpsilonReduction(p.symFor(nt), int(rule), uint64(pos))
}

func keyword(tt xs.TokType) bool {
	switch tt {
	case lexer.KwLet, lexer.KwRec, lexer.KwFn, lexer.KwIf, lexer.KwMatch,
		lexer.KwHandle, lexer.KwPerform, lexer.KwDo:
		return true
	}
	return false
}
