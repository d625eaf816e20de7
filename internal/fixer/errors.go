package fixer

import (
	"errors"
	"fmt"

	"fortio.org/safecast"

	"pix8/internal/diag"
	"pix8/internal/peg"
	"pix8/internal/source"
)

// SyntaxError is a cartridge that does not conform to the dialect. It
// is scoped to one Fix call; retrying with different input is fine.
type SyntaxError struct {
	Name     string
	Line     int // 1-based
	Col      int // 1-based
	Offset   int // absolute byte offset into the patched text
	Fragment string // the offending line, without its line break
	Expected string
	err      error
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: expected %s", e.Name, e.Line, e.Col, e.Expected)
}

func (e *SyntaxError) Unwrap() error { return e.err }

// GrammarError means the grammar itself failed its structural check.
// It does not depend on the input and retrying cannot help.
type GrammarError struct {
	err error
}

func (e *GrammarError) Error() string {
	return "grammar self-check failed: " + e.err.Error()
}

func (e *GrammarError) Unwrap() error { return e.err }

func (f *Fixer) syntaxError(err error) error {
	var perr *peg.ParseError
	if !errors.As(err, &perr) {
		return err
	}
	off, convErr := safecast.Conv[uint32](perr.Offset)
	if convErr != nil {
		panic(fmt.Errorf("parse error offset overflow: %w", convErr))
	}
	file := f.set.Get(f.fileID)
	lc := file.Pos(off)
	serr := &SyntaxError{
		Name:     f.name,
		Line:     int(lc.Line),
		Col:      int(lc.Col),
		Offset:   perr.Offset,
		Fragment: file.GetLine(lc.Line),
		Expected: perr.Expected,
		err:      err,
	}
	diag.ReportError(f.reporter, diag.SynParseFailed,
		source.Point(f.fileID, off), serr.Error())
	return serr
}

func (f *Fixer) grammarError(err error) error {
	var derr *peg.DefectError
	if errors.As(err, &derr) {
		for _, d := range derr.Defects {
			code := diag.GramLeftRecursion
			if d.Kind == peg.DefectNullableLoop {
				code = diag.GramNullableLoop
			}
			diag.ReportError(f.reporter, code, source.Span{}, d.String())
		}
	} else {
		diag.ReportError(f.reporter, diag.GramUnresolvedRef, source.Span{}, err.Error())
	}
	return &GrammarError{err: err}
}
