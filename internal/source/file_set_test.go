package source

import (
	"testing"
)

func TestAddVirtualBuildsLineIndex(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("cart.lua", []byte("a=1\nb=2\nc=3"))
	f := fs.Get(id)

	if len(f.LineIdx) != 2 {
		t.Fatalf("expected 2 newline offsets, got %d", len(f.LineIdx))
	}
	if f.LineIdx[0] != 3 || f.LineIdx[1] != 7 {
		t.Fatalf("unexpected line index: %v", f.LineIdx)
	}
	if f.Flags&FileVirtual == 0 {
		t.Error("expected FileVirtual flag")
	}
}

func TestResolveMultiLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("cart.lua", []byte("print(1)\nprint(2)\n"))

	// offset 9 is the 'p' starting line 2
	start, _ := fs.Resolve(Span{File: id, Start: 9, End: 9})
	if start.Line != 2 || start.Col != 1 {
		t.Fatalf("expected 2:1, got %d:%d", start.Line, start.Col)
	}

	// offset 8 is the newline terminating line 1
	start, _ = fs.Resolve(Span{File: id, Start: 8, End: 8})
	if start.Line != 1 || start.Col != 9 {
		t.Fatalf("expected 1:9, got %d:%d", start.Line, start.Col)
	}
}

func TestGetLine(t *testing.T) {
	fs := NewFileSet()
	id := fs.AddVirtual("cart.lua", []byte("first\nsecond\nthird"))
	f := fs.Get(id)

	cases := []struct {
		num  uint32
		want string
	}{
		{1, "first"},
		{2, "second"},
		{3, "third"},
		{4, ""},
		{0, ""},
	}
	for _, c := range cases {
		if got := f.GetLine(c.num); got != c.want {
			t.Errorf("GetLine(%d) = %q, want %q", c.num, got, c.want)
		}
	}
}

func TestFileVersioning(t *testing.T) {
	fs := NewFileSet()

	id1 := fs.Add("cart.lua", []byte("version 1"), 0)
	id2 := fs.Add("cart.lua", []byte("version 2"), 0)
	if id1 == id2 {
		t.Fatal("expected distinct FileIDs for repeated Add")
	}

	f, ok := fs.GetByPath("cart.lua")
	if !ok {
		t.Fatal("expected file to exist")
	}
	if f.ID != id2 {
		t.Errorf("expected index to point at latest version, got %d", f.ID)
	}
}

func TestHashDiffersByContent(t *testing.T) {
	fs := NewFileSet()
	a := fs.Get(fs.AddVirtual("a.lua", []byte("x=1")))
	b := fs.Get(fs.AddVirtual("b.lua", []byte("x=2")))
	if a.Hash == b.Hash {
		t.Error("expected different content hashes")
	}
}
