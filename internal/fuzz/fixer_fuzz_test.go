package fuzztests

import (
	"testing"
	"time"

	"pix8/internal/fixer"
	"pix8/internal/testkit"
)

// FuzzFixRoundTrip checks that every input the fixer accepts comes out
// as standard syntax: the result parses, keeps the line structure, and
// a second pass changes nothing.
func FuzzFixRoundTrip(f *testing.F) {
	addCorpusSeeds(f)
	f.Fuzz(func(t *testing.T, input []byte) {
		if len(input) > maxFuzzInput {
			input = append([]byte(nil), input[:maxFuzzInput]...)
		} else {
			input = append([]byte(nil), input...)
		}

		type outcome struct {
			fx    *fixer.Fixer
			fixed string
			err   error
		}
		done := make(chan outcome, 1)
		go func() {
			fx := fixer.New(string(input))
			fixed, err := fx.Fix()
			done <- outcome{fx: fx, fixed: fixed, err: err}
		}()

		var out outcome
		select {
		case out = <-done:
		case <-time.After(parseTimeout):
			t.Fatalf("fixer hang detected on input (%d bytes): %q",
				len(input), truncateForLog(input, 200))
		}

		if out.err != nil {
			return // rejected inputs are out of scope here
		}
		if err := testkit.CheckFixInvariants(out.fx, out.fixed); err != nil {
			t.Fatalf("invariant violated: %v\ninput: %q", err, truncateForLog(input, 200))
		}
	})
}
