package diag

import (
	"strings"
	"testing"

	"pix8/internal/source"
)

func TestFormatShortDiagnostics(t *testing.T) {
	fs := source.NewFileSetWithBase(".")
	id := fs.AddVirtual("cart.lua", []byte("a+=1\nb!=c\n"))

	bag := NewBag(8)
	bag.Add(New(SevInfo, FixReassign, source.Span{File: id, Start: 0, End: 4}, "a+=1"))
	bag.Add(New(SevError, SynParseFailed, source.Span{File: id, Start: 5, End: 6}, "unexpected input"))
	bag.Sort()

	out := FormatShortDiagnostics(bag.Items(), fs, false)
	lines := strings.Split(out, "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d:\n%s", len(lines), out)
	}
	if !strings.Contains(lines[0], "FIX3002") || !strings.Contains(lines[0], "cart.lua:1:1") {
		t.Errorf("unexpected first line: %s", lines[0])
	}
	if !strings.Contains(lines[1], "SYN2001") || !strings.Contains(lines[1], "cart.lua:2:1") {
		t.Errorf("unexpected second line: %s", lines[1])
	}
}

func TestBagDedupAndSort(t *testing.T) {
	fs := source.NewFileSet()
	id := fs.AddVirtual("cart.lua", []byte("x!=y"))

	bag := NewBag(8)
	sp := source.Span{File: id, Start: 1, End: 3}
	bag.Add(New(SevInfo, FixNotEqual, sp, "recorded"))
	bag.Add(New(SevInfo, FixNotEqual, sp, "recorded"))
	bag.Dedup()
	if bag.Len() != 1 {
		t.Fatalf("expected 1 after dedup, got %d", bag.Len())
	}
}

func TestDedupReporter(t *testing.T) {
	bag := NewBag(8)
	r := NewDedupReporter(BagReporter{Bag: bag})

	sp := source.Span{Start: 4, End: 6}
	r.Report(FixNotEqual, SevInfo, sp, "recorded", nil)
	r.Report(FixNotEqual, SevInfo, sp, "recorded", nil)
	r.Report(FixNotEqual, SevInfo, source.Span{Start: 9, End: 11}, "recorded", nil)

	if bag.Len() != 2 {
		t.Fatalf("expected 2 unique reports, got %d", bag.Len())
	}
}
