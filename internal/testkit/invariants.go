package testkit

import (
	"fmt"
	"strings"

	"pix8/internal/fixer"
	"pix8/internal/grammar"
	"pix8/internal/peg"
)

// CheckFixInvariants runs the fundamental properties of a successful
// lowering against its fixer:
// 1) the rewrite preserves the line count of the (patched) source
// 2) the fixed text still parses
// 3) fixing the fixed text again changes nothing
func CheckFixInvariants(f *fixer.Fixer, fixed string) error {
	if f == nil {
		return fmt.Errorf("nil fixer")
	}

	// 1) the rewrite is line-oriented, so the patched input and the
	// output must have identical line structure
	if in, out := strings.Count(f.Code(), "\n"), strings.Count(fixed, "\n"); in != out {
		return fmt.Errorf("line count changed: %d -> %d", in, out)
	}

	// 2) output must still parse
	if err := grammar.Lua().Parse([]byte(fixed), peg.Options{}); err != nil {
		return fmt.Errorf("fixed text does not parse: %w", err)
	}

	// 3) idempotence: a second pass finds nothing to rewrite
	again, err := fixer.New(fixed, fixer.WithBootShim(false)).Fix()
	if err != nil {
		return fmt.Errorf("second pass failed: %w", err)
	}
	if again != fixed {
		return fmt.Errorf("lowering is not idempotent:\nfirst:  %q\nsecond: %q", fixed, again)
	}
	return nil
}
