// Package peg is a small parsing-expression-grammar engine: ordered
// choice with backtracking, zero-width predicates and committed
// sequences (Must/IfMust) that turn local failure into a fatal parse
// error. Lexing and parsing are combined; grammars are plain object
// graphs of tagged Rule nodes referenced by name.
//
// Analyze performs the input-independent self-check (left recursion,
// repetition over nullable bodies) that guards against non-terminating
// grammars; it is expected to run once before any real input is parsed.
//
// Observers attach per named rule and fire on every successful match,
// including matches on speculative paths that are later backtracked.
// Positional state collected by observers therefore has to be
// reconciled by the observer itself.
package peg
