// Package diag defines the diagnostic model shared by the grammar
// self-check, the analysis parse and the fixer.
//
//   - Severity: tri-level enum (Info, Warning, Error).
//   - Code: compact numeric identifier with a stable string form; bands:
//     1xxx grammar defects, 2xxx syntax, 3xxx fixer, 4xxx I/O.
//   - Diagnostic: Severity + Code + Message + primary source.Span + Notes.
//   - Reporter: emission contract; BagReporter collects into a Bag,
//     DedupReporter suppresses the duplicates that a backtracking parse
//     naturally produces.
//
// Package diag performs no formatting or IO. Rendering lives in
// internal/diagfmt; orchestration lives in internal/driver.
package diag
