package gll

// Exported aliases for the grammar's nonterminal and rule identifiers. The
// parser itself only needs them unexported, but a forest walker outside this
// package (internal/ast's reducer) has to tell grammar alternatives apart at
// a node it's visiting, and the node's shape alone doesn't always carry that
// information — a two-element pattern list and a cons pattern, for
// instance, reduce to the same nonterminal with two identically-named
// "pattern" children, differing only in which rule produced them.

const (
	NTProgram     = ntProgram
	NTItem        = ntItem
	NTModuleDecl  = ntModuleDecl
	NTImportDecl  = ntImportDecl
	NTExportDecl  = ntExportDecl
	NTTypeDecl    = ntTypeDecl
	NTEffectDecl  = ntEffectDecl
	NTExpr        = ntExpr
	NTApp         = ntApp
	NTAtom        = ntAtom
	NTLet         = ntLet
	NTRec         = ntRec
	NTLambda      = ntLambda
	NTIf          = ntIf
	NTMatch       = ntMatch
	NTHandle      = ntHandle
	NTPerform     = ntPerform
	NTDo          = ntDo
	NTDoStmt      = ntDoStmt
	NTMatchArm    = ntMatchArm
	NTHandleArm   = ntHandleArm
	NTPattern     = ntPattern
	NTParam       = ntParam
	NTLiteral     = ntLiteral
	NTQualified   = ntQualified
	NTHashRef     = ntHashRef
	NTList        = ntList
	NTTuple       = ntTuple
	NTRecord      = ntRecord
	NTBlock       = ntBlock
	NTHole        = ntHole
	NTType        = ntType
	NTAtomicType  = ntAtomicType
	NTEffectRow   = ntEffectRow
	NTTypeParams  = ntTypeParams
	NTTypeDeclRHS = ntTypeDeclRHS
)

const (
	RuleProgram          = ruleProgram
	RuleItemModule       = ruleItemModule
	RuleItemImport       = ruleItemImport
	RuleItemExport       = ruleItemExport
	RuleItemType         = ruleItemType
	RuleItemEffect       = ruleItemEffect
	RuleItemExpr         = ruleItemExpr
	RuleModuleDecl       = ruleModuleDecl
	RuleImportDecl       = ruleImportDecl
	RuleExportDecl       = ruleExportDecl
	RuleTypeDecl         = ruleTypeDecl
	RuleEffectDecl       = ruleEffectDecl
	RuleExprApp          = ruleExprApp
	RuleExprLet          = ruleExprLet
	RuleExprRec          = ruleExprRec
	RuleExprLambda       = ruleExprLambda
	RuleExprIf           = ruleExprIf
	RuleExprMatch        = ruleExprMatch
	RuleExprHandle       = ruleExprHandle
	RuleExprDo           = ruleExprDo
	RuleExprPerform      = ruleExprPerform
	RuleAppSingle        = ruleAppSingle
	RuleAppChainAtom     = ruleAppChainAtom
	RuleAppChainAccess   = ruleAppChainAccess
	RuleAppChainBinop    = ruleAppChainBinop
	RuleAtomLiteral      = ruleAtomLiteral
	RuleAtomIdent        = ruleAtomIdent
	RuleAtomQualified    = ruleAtomQualified
	RuleAtomHashRef      = ruleAtomHashRef
	RuleAtomParen        = ruleAtomParen
	RuleAtomList         = ruleAtomList
	RuleAtomTuple        = ruleAtomTuple
	RuleAtomRecord       = ruleAtomRecord
	RuleAtomBlock        = ruleAtomBlock
	RuleAtomHole         = ruleAtomHole
	RuleAtomUnit         = ruleAtomUnit
	RuleLiteral          = ruleLiteral
	RuleQualified        = ruleQualified
	RuleHashRef          = ruleHashRef
	RuleHole             = ruleHole
	RuleLet              = ruleLet
	RuleLetIn            = ruleLetIn
	RuleRec              = ruleRec
	RuleLambda           = ruleLambda
	RuleIf               = ruleIf
	RuleIfElse           = ruleIfElse
	RuleMatch            = ruleMatch
	RuleMatchArm         = ruleMatchArm
	RuleHandle           = ruleHandle
	RuleHandleArm        = ruleHandleArm
	RuleHandleReturn     = ruleHandleReturn
	RulePerform          = rulePerform
	RulePerformQualified = rulePerformQualified
	RuleDo               = ruleDo
	RuleDoStmtBind       = ruleDoStmtBind
	RuleDoStmtExpr       = ruleDoStmtExpr
	RuleList             = ruleList
	RuleListEmpty        = ruleListEmpty
	RuleTuple            = ruleTuple
	RuleRecord           = ruleRecord
	RuleRecordField      = ruleRecordField
	RuleBlock            = ruleBlock
	RulePattern          = rulePattern
	RulePatternWildcard  = rulePatternWildcard
	RulePatternIdent     = rulePatternIdent
	RulePatternLiteral   = rulePatternLiteral
	RulePatternCtor      = rulePatternCtor
	RulePatternTuple     = rulePatternTuple
	RulePatternList      = rulePatternList
	RulePatternCons      = rulePatternCons
	RulePatternRecord    = rulePatternRecord
	RuleParam            = ruleParam
	RuleParamTyped       = ruleParamTyped
	RuleType             = ruleType
	RuleTypeArrow        = ruleTypeArrow
	RuleTypeEffect       = ruleTypeEffect
	RuleAtomicType       = ruleAtomicType
	RuleEffectRow        = ruleEffectRow
	RuleEffectRowOpen    = ruleEffectRowOpen
	RuleEffectRowClosed  = ruleEffectRowClosed
	RuleTypeParams       = ruleTypeParams
	RuleTypeDeclAlias    = ruleTypeDeclAlias
	RuleTypeDeclSum      = ruleTypeDeclSum
)
