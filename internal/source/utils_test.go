package source

import (
	"testing"
)

func TestNormalizeCRLF(t *testing.T) {
	in := []byte("a\r\nb\rc\r\n")
	out, changed := normalizeCRLF(in)
	if !changed {
		t.Fatal("expected change")
	}
	if string(out) != "a\nb\rc\n" {
		t.Fatalf("unexpected result: %q", out)
	}

	plain := []byte("no carriage returns")
	out, changed = normalizeCRLF(plain)
	if changed {
		t.Fatal("expected no change")
	}
	if string(out) != string(plain) {
		t.Fatalf("content mutated: %q", out)
	}
}

func TestRemoveBOM(t *testing.T) {
	in := []byte{0xEF, 0xBB, 0xBF, 'x'}
	out, had := removeBOM(in)
	if !had || string(out) != "x" {
		t.Fatalf("BOM not stripped: %q had=%v", out, had)
	}

	out, had = removeBOM([]byte("xy"))
	if had || string(out) != "xy" {
		t.Fatalf("short content mishandled: %q had=%v", out, had)
	}
}

func TestToLineColEmptyIndex(t *testing.T) {
	lc := toLineCol(nil, 5)
	if lc.Line != 1 || lc.Col != 6 {
		t.Fatalf("expected 1:6, got %d:%d", lc.Line, lc.Col)
	}
}
