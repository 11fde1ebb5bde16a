/*
Package xs implements the front-end and evaluation core of Vibe/XS, a small
statically-typed functional language with algebraic data types, first-class
functions, pattern matching, a content-addressed module system and an
algebraic effects system.

Package structure mirrors the pipeline source text flows through:

■ internal/lexer: source text to a token stream with spans.

■ internal/sppf and internal/gll: a GLL parser producing a shared packed
parse forest over the (ambiguous) surface grammar.

■ internal/ast: the canonical AST the forest is reduced to, plus the type
and effect-row data model.

■ internal/check: Hindley-Milner inference extended with row-polymorphic
effects.

■ internal/store: content-addressed storage for top-level definitions.

■ internal/eval: a closure-based tree-walking evaluator with effect
handler dispatch.

The root package holds data types shared by all of the above: source spans
and the token abstraction produced by the lexer and consumed by the parser.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2017–2021 Norbert Pillmayer <norbert@pillmayer.com>
*/
package xs
