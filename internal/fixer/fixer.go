// Package fixer lowers cartridge source written in the console's Lua
// dialect into standard Lua 5.3 syntax.
//
// A fix is two passes over the same text. The analysis pass parses the
// (possibly boot-shim-patched) source against the dialect grammar and
// records where the non-standard constructs matched. The rewrite pass
// consumes those records: `!=` becomes `~=` by single-byte substitution,
// and each compound assignment `a op= b` is rebuilt in place as
// `a=a op(b)`. The rewrite never adds or removes lines, so every
// recorded position stays valid while its category is being applied.
package fixer

import (
	"fmt"
	"strings"

	"fortio.org/safecast"

	"pix8/internal/diag"
	"pix8/internal/grammar"
	"pix8/internal/peg"
	"pix8/internal/source"
	"pix8/internal/trace"
)

// Some cartridge exporters append this fragment without a preceding
// line break or the then/end pair, which is not parseable. The patch
// restores both before analysis runs.
const (
	bootShimBroken  = "if(_update60)_update=function()"
	bootShimPatched = "\nif(_update60)then _update=function()"
)

// reassignment is one recorded compound-assignment match.
// col is the 0-based byte offset of the match start within its line;
// size is the full match length in bytes and may run past the end of
// the line when the expression list continues across a line break.
type reassignment struct {
	line int
	col  int
	size int
}

// Fixer holds one cartridge's text and the occurrence lists for a
// single fix. Instances are not safe for concurrent use; parallel
// callers create one Fixer per input.
type Fixer struct {
	set      *source.FileSet
	fileID   source.FileID
	name     string
	code     string
	noShim   bool
	patched  bool
	reporter diag.Reporter
	tracer   trace.Tracer

	notEquals     []int
	reassignments []reassignment
}

// Option configures a Fixer.
type Option func(*Fixer)

// WithReporter routes analysis diagnostics to r.
func WithReporter(r diag.Reporter) Option {
	return func(f *Fixer) { f.reporter = r }
}

// WithName sets the name the cartridge is registered under for
// position reporting. The default is "code".
func WithName(name string) Option {
	return func(f *Fixer) { f.name = name }
}

// WithBootShim toggles the boot-shim patch. It is on by default.
func WithBootShim(enabled bool) Option {
	return func(f *Fixer) { f.noShim = !enabled }
}

// WithTracer emits grammar-rule events to t during the analysis parse
// when t traces at rule level.
func WithTracer(t trace.Tracer) Option {
	return func(f *Fixer) { f.tracer = t }
}

// WithFileSet registers the cartridge in an existing FileSet instead of
// a private one, so spans in emitted diagnostics resolve for the
// caller. The fixer always adds its own (patched) copy; it never
// parses a file the caller loaded.
func WithFileSet(set *source.FileSet) Option {
	return func(f *Fixer) { f.set = set }
}

// New prepares a Fixer for the given cartridge text. The boot-shim
// patch is applied here, before any parsing, so that every recorded
// position refers to the patched text.
func New(code string, opts ...Option) *Fixer {
	f := &Fixer{
		code:     code,
		reporter: diag.NopReporter{},
		name:     "code",
	}
	for _, opt := range opts {
		opt(f)
	}

	if idx := strings.Index(f.code, bootShimBroken); !f.noShim && idx >= 0 {
		f.code = f.code[:idx] + bootShimPatched + f.code[idx+len(bootShimBroken):] + " end"
		f.patched = true
	}

	if f.set == nil {
		f.set = source.NewFileSet()
	}
	f.fileID = f.set.AddVirtual(f.name, []byte(f.code))

	if f.patched {
		diag.ReportInfo(f.reporter, diag.FixBootShim,
			source.Point(f.fileID, 0), "boot shim patched before analysis")
	}
	return f
}

// Code returns the text the fixer operates on, after the boot-shim
// patch.
func (f *Fixer) Code() string {
	return f.code
}

// FileID identifies the (patched) cartridge inside the FileSet the
// fixer reports against.
func (f *Fixer) FileID() source.FileID {
	return f.fileID
}

// Patched reports whether the boot-shim patch was applied.
func (f *Fixer) Patched() bool {
	return f.patched
}

// Fix validates the grammar, parses the cartridge, and returns the
// lowered text. The returned text has the same line count as the
// patched input and contains no `!=` tokens and no compound
// assignments. A *SyntaxError means the input does not conform to the
// dialect; a *GrammarError means the grammar itself is defective and
// no input can be parsed.
func (f *Fixer) Fix() (string, error) {
	f.notEquals = f.notEquals[:0]
	f.reassignments = f.reassignments[:0]

	lang := grammar.Lua()

	diag.ReportInfo(f.reporter, diag.GramInfo, source.Span{}, "checking grammar")
	if err := lang.Analyze(); err != nil {
		return "", f.grammarError(err)
	}

	diag.ReportInfo(f.reporter, diag.SynInfo, source.Point(f.fileID, 0), "checking cartridge")
	opts := peg.Options{Actions: f.actions(), Trace: trace.RuleObserver(f.tracer)}
	if err := lang.Parse([]byte(f.code), opts); err != nil {
		return "", f.syntaxError(err)
	}
	diag.ReportInfo(f.reporter, diag.SynInfo, source.Point(f.fileID, 0), "cartridge is valid")

	for _, off := range f.notEquals {
		offU, convErr := safecast.Conv[uint32](off)
		if convErr != nil {
			panic(fmt.Errorf("not-equal offset overflow: %w", convErr))
		}
		diag.ReportInfo(f.reporter, diag.FixNotEqual,
			source.Span{File: f.fileID, Start: offU, End: offU + 2},
			fmt.Sprintf("'!=' at byte %d", off))
	}

	return f.rewrite(), nil
}

// actions wires the occurrence recorders into the analysis parse.
func (f *Fixer) actions() map[string]peg.Action {
	file := f.set.Get(f.fileID)
	return map[string]peg.Action{
		// The parser backtracks without notice, so a recorded offset may
		// belong to an abandoned speculative path. Offsets only ever
		// grow along the committed path, which makes the reconciliation
		// rule exact: any previously recorded offset at or past the new
		// match start cannot have survived.
		grammar.RuleNotEqual: func(in peg.Capture) {
			for len(f.notEquals) > 0 && f.notEquals[len(f.notEquals)-1] >= in.Start {
				f.notEquals = f.notEquals[:len(f.notEquals)-1]
			}
			f.notEquals = append(f.notEquals, in.Start)
		},

		grammar.RuleReassignment: func(in peg.Capture) {
			start, err := safecast.Conv[uint32](in.Start)
			if err != nil {
				panic(fmt.Errorf("reassignment offset overflow: %w", err))
			}
			lc := file.Pos(start)
			f.reassignments = append(f.reassignments, reassignment{
				line: int(lc.Line),
				col:  int(lc.Col) - 1,
				size: in.End - in.Start,
			})
			diag.ReportInfo(f.reporter, diag.FixReassign,
				spanOf(f.fileID, in),
				fmt.Sprintf("compound assignment at %d:%d: %s", lc.Line, lc.Col, f.code[in.Start:in.End]))
		},

		grammar.RuleShortIf: func(in peg.Capture) {
			start, err := safecast.Conv[uint32](in.Start)
			if err != nil {
				panic(fmt.Errorf("short-if offset overflow: %w", err))
			}
			lc := file.Pos(start)
			f.reporter.Report(diag.SynShortIf, diag.SevWarning, spanOf(f.fileID, in),
				fmt.Sprintf("unsupported single-line if at %d:%d: %s", lc.Line, lc.Col, f.code[in.Start:in.End]), nil)
		},
	}
}

// rewrite applies both lowering categories to a copy of the text.
func (f *Fixer) rewrite() string {
	buf := []byte(f.code)
	for _, off := range f.notEquals {
		if buf[off] != '!' {
			panic(fmt.Errorf("fixer: recorded not-equal at byte %d points at %q, want '!'", off, buf[off]))
		}
		buf[off] = '~'
	}

	lines := strings.Split(string(buf), "\n")
	for l := range lines {
		for _, item := range f.reassignments {
			if item.line != l+1 {
				continue
			}
			lines[l] = lowerReassignment(lines[l], item)
		}
	}
	return strings.Join(lines, "\n")
}

// lowerReassignment rewrites one `lhs op= rhs` span inside line as
// `lhs=lhs op(rhs)`. The recorded span bounds the whole statement, not
// the operator, so the operator is found by scanning for the first `=`
// directly preceded by an arithmetic operator byte. The span may run
// past the line end (the expression list can swallow the trailing line
// break); slices are clamped to the line.
func lowerReassignment(line string, item reassignment) string {
	for pos := item.col; pos < len(line); pos++ {
		if line[pos] != '=' || pos == 0 || !strings.ContainsRune("+-*/%", rune(line[pos-1])) {
			continue
		}
		spanEnd := item.col + item.size
		if spanEnd > len(line) {
			spanEnd = len(line)
		}
		return line[:pos-1] + "=" + line[item.col:pos-1] + string(line[pos-1]) +
			"(" + line[pos+1:spanEnd] + ")" + line[spanEnd:]
	}
	panic(fmt.Errorf("fixer: no compound operator inside recorded span %d:%d+%d: %q",
		item.line, item.col, item.size, line))
}

func spanOf(id source.FileID, in peg.Capture) source.Span {
	start, err := safecast.Conv[uint32](in.Start)
	if err != nil {
		panic(fmt.Errorf("capture start overflow: %w", err))
	}
	end, err := safecast.Conv[uint32](in.End)
	if err != nil {
		panic(fmt.Errorf("capture end overflow: %w", err))
	}
	return source.Span{File: id, Start: start, End: end}
}
