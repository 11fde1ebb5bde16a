/*
Package store implements the content-addressed term store of spec §4.F: a
mutable, append-only table of `TermEntry` values keyed by a structural hash
of their normalized AST, with hash-prefix lookup and reverse-dependency
tracking.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package store

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"math"
	"sort"

	"github.com/npillmayer/schuko/tracing"

	"github.com/vibe-xs/xs/internal/ast"
)

func tracer() tracing.Trace {
	return tracing.Select("xs.store")
}

// Hash is a term's content address: the SHA-256 digest of its normalized
// encoding (spec §4.F, §9's wire contract).
type Hash [32]byte

// String renders the hash as lowercase hex, matching spec §9's wire
// contract ("hexadecimal lowercase SHA-256").
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// HashExpr computes the content address of e per spec §4.F's normalization:
// spans stripped, bound variables (and bound type/effect-row variables
// found in type annotations) renamed to de Bruijn indices, constructor/
// type/effect names hashed as-is.
func HashExpr(e ast.Expr) Hash {
	h, _ := hashExprBytes(e)
	return h
}

// hashExprBytes returns both the digest and the normalized bytes it was
// computed over, so Store.Insert can defend against the "practically
// impossible" differing-payload collision case (spec §4.F) without
// recomputing the hash.
func hashExprBytes(e ast.Expr) (Hash, []byte) {
	h := newHasher()
	h.hashExpr(e)
	sum := sha256.Sum256(h.buf)
	return Hash(sum), h.buf
}

// --- node kind tags ---------------------------------------------------------
//
// One fixed byte per node kind, per spec §4.F ("a fixed tag byte per node
// kind"). Grouped by family; values only need to be stable within one
// build, not across versions of this package, since the store is
// in-process and not persisted in this exercise's scope (spec §6:
// "on-disk serialization format details" are out of scope).
const (
	tagLitInt byte = iota
	tagLitFloat
	tagLitBool
	tagLitString
	tagLitUnit
	tagBoundVar
	tagFreeIdent
	tagQualifiedIdent
	tagHashRef
	tagLambda
	tagApply
	tagRecordAccess
	tagLet
	tagLetNoBody
	tagRec
	tagIf
	tagMatch
	tagMatchArm
	tagList
	tagTuple
	tagRecord
	tagConstructor
	tagTypeDef
	tagCtorDef
	tagEffectDef
	tagEffectOpSig
	tagModule
	tagImport
	tagExport
	tagPerform
	tagHandle
	tagHandleClause
	tagDo
	tagDoStmt
	tagBlock
	tagHole
	tagProgram

	tagPWildcard
	tagPVar
	tagPLiteral
	tagPCtor
	tagPCons
	tagPList
	tagPTuple
	tagPRecord

	tagTEName
	tagTEVar
	tagTEList
	tagTEArrow
	tagTEEffectRow
)

// hasher accumulates the normalized byte encoding of one term. scope holds
// term-level bound names (innermost last); tyvars assigns a stable,
// first-occurrence-order index to each distinct type/effect-row variable
// name this term's annotations mention, so two annotations using different
// but consistently-renamed variable names ("a -> a" vs "b -> b") hash
// identically. One hasher is scoped to exactly one HashExpr call — tyvars
// does not persist across top-level definitions, matching the fact that
// each definition's own quantifiers are independent (spec §4.D:
// generalization happens per let-binding).
type hasher struct {
	buf    []byte
	scope  []string
	tyvars map[string]int
}

func newHasher() *hasher {
	return &hasher{tyvars: make(map[string]int)}
}

func (h *hasher) byte(b byte)      { h.buf = append(h.buf, b) }
func (h *hasher) bytes(b []byte)   { h.buf = append(h.buf, b...) }
func (h *hasher) uvarint(n uint64) { h.buf = binary.AppendUvarint(h.buf, n) }

func (h *hasher) str(s string) {
	h.uvarint(uint64(len(s)))
	h.buf = append(h.buf, s...)
}

func (h *hasher) present(ok bool) {
	if ok {
		h.byte(1)
	} else {
		h.byte(0)
	}
}

func (h *hasher) push(name string) { h.scope = append(h.scope, name) }
func (h *hasher) pop()              { h.scope = h.scope[:len(h.scope)-1] }
func (h *hasher) popN(n int)        { h.scope = h.scope[:len(h.scope)-n] }

// deBruijn returns the binding distance of name from the top of scope
// (0 == innermost), or ok == false if name is unbound in this term (a free
// reference to a top-level or imported name, hashed by its literal text
// instead).
func (h *hasher) deBruijn(name string) (int, bool) {
	for i := len(h.scope) - 1; i >= 0; i-- {
		if h.scope[i] == name {
			return len(h.scope) - 1 - i, true
		}
	}
	return 0, false
}

func (h *hasher) tyvarIndex(name string) int {
	if idx, ok := h.tyvars[name]; ok {
		return idx
	}
	idx := len(h.tyvars)
	h.tyvars[name] = idx
	return idx
}

// isTypeVarName reports whether a bare TEName should be treated as a type
// variable to be alpha-renamed rather than a concrete type/ADT name to hash
// literally — spec §3's convention (also followed by the parser and
// internal/types) is that type variables are lowercase-initial identifiers.
func isTypeVarName(name string) bool {
	return name != "" && name[0] >= 'a' && name[0] <= 'z'
}

func (h *hasher) hashExpr(e ast.Expr) {
	switch x := e.(type) {
	case *ast.Literal:
		h.hashLiteral(x)
	case *ast.Ident:
		if idx, bound := h.deBruijn(x.Name); bound {
			h.byte(tagBoundVar)
			h.uvarint(uint64(idx))
		} else {
			h.byte(tagFreeIdent)
			h.str(x.Name)
		}
	case *ast.QualifiedIdent:
		h.byte(tagQualifiedIdent)
		h.str(x.Module)
		h.str(x.Name)
	case *ast.HashRef:
		h.byte(tagHashRef)
		h.str(x.Prefix)
	case *ast.Lambda:
		h.byte(tagLambda)
		names := make([]string, len(x.Params))
		for i, p := range x.Params {
			names[i] = p.Name
			h.present(p.Type != nil)
			if p.Type != nil {
				h.hashType(p.Type)
			}
			h.push(p.Name)
		}
		h.hashExpr(x.Body)
		h.popN(len(names))
	case *ast.Apply:
		h.byte(tagApply)
		h.hashExpr(x.Func)
		h.hashExpr(x.Arg)
	case *ast.RecordAccess:
		h.byte(tagRecordAccess)
		h.hashExpr(x.Record)
		h.str(x.Field)
	case *ast.Let:
		h.hashExpr(x.Value)
		h.present(x.Type != nil)
		if x.Type != nil {
			h.hashType(x.Type)
		}
		if x.Body == nil {
			h.byte(tagLetNoBody)
			return
		}
		h.byte(tagLet)
		h.push(x.Name)
		h.hashExpr(x.Body)
		h.pop()
	case *ast.Rec:
		h.byte(tagRec)
		h.push(x.Name)
		names := make([]string, len(x.Params))
		for i, p := range x.Params {
			names[i] = p.Name
			h.present(p.Type != nil)
			if p.Type != nil {
				h.hashType(p.Type)
			}
			h.push(p.Name)
		}
		h.present(x.ReturnType != nil)
		if x.ReturnType != nil {
			h.hashType(x.ReturnType)
		}
		h.hashExpr(x.Body)
		h.popN(len(names))
		h.pop()
	case *ast.If:
		h.byte(tagIf)
		h.hashExpr(x.Cond)
		h.hashExpr(x.Then)
		h.present(x.Else != nil)
		if x.Else != nil {
			h.hashExpr(x.Else)
		}
	case *ast.Match:
		h.byte(tagMatch)
		h.hashExpr(x.Scrutinee)
		h.uvarint(uint64(len(x.Arms)))
		for _, arm := range x.Arms {
			h.hashMatchArm(arm)
		}
	case *ast.List:
		h.byte(tagList)
		h.uvarint(uint64(len(x.Elements)))
		for _, el := range x.Elements {
			h.hashExpr(el)
		}
	case *ast.Tuple:
		h.byte(tagTuple)
		h.uvarint(uint64(len(x.Elements)))
		for _, el := range x.Elements {
			h.hashExpr(el)
		}
	case *ast.Record:
		h.byte(tagRecord)
		names := append([]string{}, x.FieldOrder...)
		sort.Strings(names)
		h.uvarint(uint64(len(names)))
		for _, n := range names {
			h.str(n)
			h.hashExpr(x.Fields[n])
		}
	case *ast.Constructor:
		h.byte(tagConstructor)
		h.str(x.Name)
		h.uvarint(uint64(len(x.Args)))
		for _, a := range x.Args {
			h.hashExpr(a)
		}
	case *ast.TypeDef:
		h.byte(tagTypeDef)
		h.str(x.Name)
		h.uvarint(uint64(len(x.TypeParams)))
		for _, p := range x.TypeParams {
			h.str(p)
		}
		h.uvarint(uint64(len(x.Ctors)))
		for _, c := range x.Ctors {
			h.byte(tagCtorDef)
			h.str(c.Name)
			h.uvarint(uint64(len(c.FieldTypes)))
			for _, ft := range c.FieldTypes {
				h.hashType(ft)
			}
		}
	case *ast.EffectDef:
		h.byte(tagEffectDef)
		h.str(x.Name)
		h.uvarint(uint64(len(x.TypeParams)))
		for _, p := range x.TypeParams {
			h.str(p)
		}
		h.uvarint(uint64(len(x.Ops)))
		for _, op := range x.Ops {
			h.byte(tagEffectOpSig)
			h.str(op.Name)
			h.hashType(op.Type)
		}
	case *ast.Module:
		h.byte(tagModule)
		h.str(x.Name)
		exports := append([]string{}, x.Exports...)
		sort.Strings(exports)
		h.uvarint(uint64(len(exports)))
		for _, n := range exports {
			h.str(n)
		}
		h.uvarint(uint64(len(x.Body)))
		for _, item := range x.Body {
			h.hashExpr(item)
		}
	case *ast.Import:
		h.byte(tagImport)
		h.str(x.Module)
		h.str(x.Hash)
		h.str(x.Alias)
		items := append([]string{}, x.Items...)
		sort.Strings(items)
		h.uvarint(uint64(len(items)))
		for _, n := range items {
			h.str(n)
		}
	case *ast.Export:
		h.byte(tagExport)
		names := append([]string{}, x.Names...)
		sort.Strings(names)
		h.uvarint(uint64(len(names)))
		for _, n := range names {
			h.str(n)
		}
	case *ast.Perform:
		h.byte(tagPerform)
		h.str(x.Effect)
		h.str(x.Operation)
		h.uvarint(uint64(len(x.Args)))
		for _, a := range x.Args {
			h.hashExpr(a)
		}
	case *ast.Handle:
		h.byte(tagHandle)
		h.hashExpr(x.Body)
		h.uvarint(uint64(len(x.Clauses)))
		for _, cl := range x.Clauses {
			h.hashHandleClause(cl)
		}
	case *ast.Do:
		h.byte(tagDo)
		h.uvarint(uint64(len(x.Stmts)))
		bound := 0
		for _, st := range x.Stmts {
			h.byte(tagDoStmt)
			h.present(st.Name != "")
			h.hashExpr(st.Expr)
			if st.Name != "" {
				h.push(st.Name)
				bound++
			}
		}
		h.popN(bound)
	case *ast.Block:
		h.byte(tagBlock)
		h.uvarint(uint64(len(x.Exprs)))
		for _, el := range x.Exprs {
			h.hashExpr(el)
		}
	case *ast.Hole:
		h.byte(tagHole)
	case *ast.Program:
		h.byte(tagProgram)
		h.uvarint(uint64(len(x.Items)))
		for _, item := range x.Items {
			h.hashExpr(item)
		}
	default:
		tracer().Errorf("hashExpr: unhandled node type %T", e)
	}
}

func (h *hasher) hashLiteral(lit *ast.Literal) {
	switch lit.Kind {
	case ast.LitInt:
		h.byte(tagLitInt)
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], uint64(lit.Value.(int64)))
		h.bytes(buf[:])
	case ast.LitFloat:
		h.byte(tagLitFloat)
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], math.Float64bits(lit.Value.(float64)))
		h.bytes(buf[:])
	case ast.LitBool:
		h.byte(tagLitBool)
		if lit.Value.(bool) {
			h.byte(1)
		} else {
			h.byte(0)
		}
	case ast.LitString:
		h.byte(tagLitString)
		h.str(lit.Value.(string))
	case ast.LitUnit:
		h.byte(tagLitUnit)
	}
}

func (h *hasher) hashMatchArm(arm ast.MatchArm) {
	h.byte(tagMatchArm)
	var bound []string
	h.hashPattern(arm.Pattern, &bound)
	for _, n := range bound {
		h.push(n)
	}
	h.present(arm.Guard != nil)
	if arm.Guard != nil {
		h.hashExpr(arm.Guard)
	}
	h.hashExpr(arm.Body)
	h.popN(len(bound))
}

func (h *hasher) hashHandleClause(cl ast.HandleClause) {
	h.byte(tagHandleClause)
	h.present(cl.IsReturn)
	h.str(cl.Effect)
	h.str(cl.Operation)
	h.uvarint(uint64(len(cl.Params)))
	for _, p := range cl.Params {
		h.push(p)
	}
	h.present(cl.Continuation != "")
	if cl.Continuation != "" {
		h.push(cl.Continuation)
	}
	h.hashExpr(cl.Body)
	h.popN(len(cl.Params))
	if cl.Continuation != "" {
		h.pop()
	}
}

// hashPattern encodes p and appends every name it binds, in left-to-right
// traversal order, to *bound — the caller pushes them onto scope (in that
// order) before hashing whatever the pattern's match arm guards or body.
// Bound names are never written to the byte stream themselves (only the
// fact and position of a binding), keeping hashing alpha-invariant.
func (h *hasher) hashPattern(p ast.Pattern, bound *[]string) {
	switch x := p.(type) {
	case *ast.PWildcard:
		h.byte(tagPWildcard)
	case *ast.PVar:
		h.byte(tagPVar)
		*bound = append(*bound, x.Name)
	case *ast.PLiteral:
		h.byte(tagPLiteral)
		h.hashLiteral(x.Lit)
	case *ast.PCtor:
		h.byte(tagPCtor)
		h.str(x.Name)
		h.uvarint(uint64(len(x.Args)))
		for _, a := range x.Args {
			h.hashPattern(a, bound)
		}
	case *ast.PCons:
		h.byte(tagPCons)
		h.hashPattern(x.Head, bound)
		h.hashPattern(x.Tail, bound)
	case *ast.PList:
		h.byte(tagPList)
		h.uvarint(uint64(len(x.Elements)))
		for _, el := range x.Elements {
			h.hashPattern(el, bound)
		}
	case *ast.PTuple:
		h.byte(tagPTuple)
		h.uvarint(uint64(len(x.Elements)))
		for _, el := range x.Elements {
			h.hashPattern(el, bound)
		}
	case *ast.PRecord:
		h.byte(tagPRecord)
		fields := append([]ast.PRecordField{}, x.Fields...)
		sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })
		h.uvarint(uint64(len(fields)))
		for _, f := range fields {
			h.str(f.Name)
			h.hashPattern(f.Pattern, bound)
		}
	default:
		tracer().Errorf("hashPattern: unhandled node type %T", p)
	}
}

func (h *hasher) hashType(t ast.TypeExpr) {
	switch x := t.(type) {
	case *ast.TEName:
		if x.Arg == nil && isTypeVarName(x.Name) {
			h.byte(tagTEVar)
			h.uvarint(uint64(h.tyvarIndex(x.Name)))
			return
		}
		h.byte(tagTEName)
		h.str(x.Name)
		h.present(x.Arg != nil)
		if x.Arg != nil {
			h.hashType(x.Arg)
		}
	case *ast.TEList:
		h.byte(tagTEList)
		h.hashType(x.Elem)
	case *ast.TEArrow:
		h.byte(tagTEArrow)
		h.hashType(x.Param)
		h.hashType(x.Result)
		h.present(x.Effect != nil)
		if x.Effect != nil {
			h.hashEffectRow(x.Effect)
		}
	default:
		tracer().Errorf("hashType: unhandled node type %T", t)
	}
}

func (h *hasher) hashEffectRow(r *ast.TEEffectRow) {
	h.byte(tagTEEffectRow)
	names := append([]string{}, r.Names...)
	sort.Strings(names)
	h.uvarint(uint64(len(names)))
	for _, n := range names {
		h.str(n)
	}
	h.present(r.Tail != "")
	if r.Tail != "" {
		h.uvarint(uint64(h.tyvarIndex(r.Tail)))
	}
}
