package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Grammar self-check defects (input-independent, fatal).
	GramInfo          Code = 1000
	GramLeftRecursion Code = 1001
	GramNullableLoop  Code = 1002
	GramUnresolvedRef Code = 1003

	// Syntax over cartridge input.
	SynInfo        Code = 2000
	SynParseFailed Code = 2001
	SynShortIf     Code = 2002

	// Fixer analysis and rewrite reporting.
	FixInfo     Code = 3000
	FixNotEqual Code = 3001
	FixReassign Code = 3002
	FixBootShim Code = 3003

	// I/O
	IOLoadFileError Code = 4000
)

var codeDescription = map[Code]string{
	UnknownCode: "Unknown diagnostic",

	GramInfo:          "Grammar information",
	GramLeftRecursion: "Grammar rule is left-recursive without consuming input",
	GramNullableLoop:  "Grammar repeats a rule that can match empty input",
	GramUnresolvedRef: "Grammar references an undefined rule",

	SynInfo:        "Syntax information",
	SynParseFailed: "Cartridge source does not match the grammar",
	SynShortIf:     "single-line if without then/end is recognized but not fixed",

	FixInfo:     "Fixer information",
	FixNotEqual: "'!=' operator recorded for lowering to '~='",
	FixReassign: "compound assignment recorded for lowering",
	FixBootShim: "boot shim fragment patched before parsing",

	IOLoadFileError: "I/O load file error",
}

func (c Code) ID() string {
	switch ic := int(c); {
	case ic >= 1000 && ic < 2000:
		return fmt.Sprintf("GRM%04d", ic)
	case ic >= 2000 && ic < 3000:
		return fmt.Sprintf("SYN%04d", ic)
	case ic >= 3000 && ic < 4000:
		return fmt.Sprintf("FIX%04d", ic)
	case ic >= 4000 && ic < 5000:
		return fmt.Sprintf("IO%04d", ic)
	}
	return "E0000"
}

func (c Code) Title() string {
	desc, ok := codeDescription[c]
	if !ok {
		return codeDescription[UnknownCode]
	}
	return desc
}

func (c Code) String() string {
	return fmt.Sprintf("[%s]: %s", c.ID(), c.Title())
}
