package diagfmt

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-runewidth"

	"pix8/internal/diag"
	"pix8/internal/source"
)

var (
	errorColor = color.New(color.FgRed, color.Bold)
	warnColor  = color.New(color.FgYellow, color.Bold)
	infoColor  = color.New(color.FgCyan)
	noteColor  = color.New(color.FgBlue)
	caretColor = color.New(color.FgGreen, color.Bold)
)

// Pretty renders each diagnostic as
//
//	<path>:<line>:<col>: <SEV> <CODE>: <message>
//	  <source line>
//	  ^~~~
//
// with the underline covering the primary span, clipped to its first
// line. Notes follow in the same shape when ShowNotes is set.
func Pretty(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeHeading(w, fs, d.Primary, severityLabel(d.Severity, opts.Color), d.Code.ID(), d.Message, opts)
		writeContext(w, fs, d.Primary, opts)
		if opts.ShowNotes {
			for _, n := range d.Notes {
				label := "note"
				if opts.Color {
					label = noteColor.Sprint(label)
				}
				writeHeading(w, fs, n.Span, label, "", n.Msg, opts)
				writeContext(w, fs, n.Span, opts)
			}
		}
	}
}

// Short renders one heading line per diagnostic, without the source
// context block.
func Short(w io.Writer, bag *diag.Bag, fs *source.FileSet, opts PrettyOpts) {
	for _, d := range bag.Items() {
		writeHeading(w, fs, d.Primary, severityLabel(d.Severity, opts.Color), d.Code.ID(), d.Message, opts)
	}
}

func severityLabel(sev diag.Severity, colored bool) string {
	label := sev.String()
	if !colored {
		return label
	}
	switch sev {
	case diag.SevError:
		return errorColor.Sprint(label)
	case diag.SevWarning:
		return warnColor.Sprint(label)
	default:
		return infoColor.Sprint(label)
	}
}

func writeHeading(w io.Writer, fs *source.FileSet, span source.Span, label, code, msg string, opts PrettyOpts) {
	// a diagnostic may carry no location at all, e.g. a failed load
	if int(span.File) >= len(fs.Files()) {
		if code != "" {
			fmt.Fprintf(w, "%s %s: %s\n", label, code, msg)
			return
		}
		fmt.Fprintf(w, "%s: %s\n", label, msg)
		return
	}
	f := fs.Get(span.File)
	start, _ := fs.Resolve(span)

	var path string
	switch opts.PathMode {
	case PathModeAbsolute:
		path = f.FormatPath("absolute", "")
	case PathModeRelative:
		path = f.FormatPath("relative", fs.BaseDir())
	case PathModeBasename:
		path = f.FormatPath("basename", "")
	default:
		path = f.FormatPath("auto", "")
	}

	if code != "" {
		fmt.Fprintf(w, "%s:%d:%d: %s %s: %s\n", path, start.Line, start.Col, label, code, msg)
		return
	}
	fmt.Fprintf(w, "%s:%d:%d: %s: %s\n", path, start.Line, start.Col, label, msg)
}

// writeContext prints the source line under the heading with a caret
// underline. Empty files produce no context block.
func writeContext(w io.Writer, fs *source.FileSet, span source.Span, opts PrettyOpts) {
	if int(span.File) >= len(fs.Files()) {
		return
	}
	f := fs.Get(span.File)
	if len(f.Content) == 0 {
		return
	}
	start, _ := fs.Resolve(span)
	line := expandTabs(f.GetLine(start.Line))
	if opts.Width > 0 && len(line) > int(opts.Width) {
		line = line[:opts.Width]
	}
	fmt.Fprintf(w, "  %s\n", line)

	// underline from the span start to its end or the line end,
	// at least one caret
	startCol := int(start.Col) - 1
	if startCol > len(line) {
		startCol = len(line)
	}
	width := int(span.Len())
	if rest := len(line) - startCol; width > rest {
		width = rest
	}
	if width < 1 {
		width = 1
	}
	indent := runewidth.StringWidth(line[:startCol])
	underline := "^" + strings.Repeat("~", width-1)
	if opts.Color {
		underline = caretColor.Sprint(underline)
	}
	fmt.Fprintf(w, "  %s%s\n", strings.Repeat(" ", indent), underline)
}

// expandTabs keeps the caret line aligned with the source line.
func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
