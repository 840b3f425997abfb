// Package vibe implements the VibeLang compiler front-end: an
// indentation-sensitive lexer, a recursive-descent parser with Pratt-style
// expression parsing, a type checker, a lightweight symbolic contract
// verifier, a deterministic AST optimizer, a canonical formatter, and a
// code emitter targeting Python with a small tagged-result runtime.
//
// The passes compose through Run, which threads a shared source-ordered
// diagnostic buffer and halts after the first pass that reports an error.
package vibe
