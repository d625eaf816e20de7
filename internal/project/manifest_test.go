package project

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, ManifestName)
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "game.lua"), []byte("x = 1"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := writeManifest(t, dir, `
[cart]
name = "celeste-classic"
version = "0.1"
entry = "game.lua"

[fix]
boot_shim = false
report = "json"
`)

	m, err := Load(path)
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if m.Cart.Name != "celeste-classic" {
		t.Errorf("Name = %q", m.Cart.Name)
	}
	if m.BootShim() {
		t.Error("BootShim() = true, want false from manifest")
	}
	if got := m.Sources(); len(got) != 1 || got[0] != "game.lua" {
		t.Errorf("Sources() = %v", got)
	}
	paths, err := m.SourcePaths(dir)
	if err != nil {
		t.Fatalf("SourcePaths() = %v", err)
	}
	if paths[0] != filepath.Join(dir, "game.lua") {
		t.Errorf("SourcePaths() = %v", paths)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "main.lua"), nil, 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := Load(writeManifest(t, dir, "[cart]\nname = \"demo\"\n"))
	if err != nil {
		t.Fatalf("Load() = %v", err)
	}
	if !m.BootShim() {
		t.Error("BootShim() = false, want default true")
	}
	if got := m.Sources(); len(got) != 1 || got[0] != "main.lua" {
		t.Errorf("Sources() = %v, want default main.lua", got)
	}
}

func TestLoadRejects(t *testing.T) {
	dir := t.TempDir()
	cases := []struct {
		name string
		body string
		want error
	}{
		{"no cart section", "[fix]\nreport = \"json\"\n", ErrCartSectionMissing},
		{"no name", "[cart]\nversion = \"1\"\n", ErrCartNameMissing},
		{"bad name", "[cart]\nname = \"a b\"\n", nil},
		{"bad report", "[cart]\nname = \"demo\"\n[fix]\nreport = \"xml\"\n", nil},
		{"escaping source", "[cart]\nname = \"demo\"\nentry = \"../other.lua\"\n", nil},
		{"absolute source", "[cart]\nname = \"demo\"\nentry = \"/etc/cart.lua\"\n", nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeManifest(t, dir, tc.body))
			if err == nil {
				t.Fatal("Load() = nil, want error")
			}
			if tc.want != nil && !errors.Is(err, tc.want) {
				t.Errorf("Load() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestFindManifestWalksUp(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "[cart]\nname = \"demo\"\n")
	nested := filepath.Join(root, "src", "deep")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	path, ok, err := FindManifest(nested)
	if err != nil || !ok {
		t.Fatalf("FindManifest() = %q, %v, %v", path, ok, err)
	}
	if filepath.Dir(path) != root {
		t.Errorf("found %q, want under %q", path, root)
	}

	dir, ok, err := FindRoot(nested)
	if err != nil || !ok || dir != root {
		t.Errorf("FindRoot() = %q, %v, %v, want %q", dir, ok, err, root)
	}
}

func TestFindManifestAbsent(t *testing.T) {
	_, ok, err := FindManifest(t.TempDir())
	if err != nil {
		t.Fatalf("FindManifest() error = %v", err)
	}
	if ok {
		t.Error("FindManifest() found a manifest in an empty tree")
	}
}
