// Package project locates and loads cart.toml, the cartridge project
// manifest. The manifest names the cartridge, points at its Lua
// sources, and carries fix-pipeline defaults that the CLI flags can
// override.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/BurntSushi/toml"
)

// ManifestName is the file the project root is identified by.
const ManifestName = "cart.toml"

// Manifest is the decoded cart.toml.
type Manifest struct {
	Cart CartSection `toml:"cart"`
	Fix  FixSection  `toml:"fix"`
}

// CartSection describes the cartridge itself.
type CartSection struct {
	Name    string   `toml:"name"`
	Version string   `toml:"version"`
	Author  string   `toml:"author"`
	Entry   string   `toml:"entry"` // single source, relative to the root
	Files   []string `toml:"files"` // explicit source list, overrides Entry
}

// FixSection carries pipeline defaults.
type FixSection struct {
	BootShim *bool  `toml:"boot_shim"` // nil means default (on)
	Report   string `toml:"report"`    // pretty|json|short
	Out      string `toml:"out"`       // output directory for fixed carts
}

var (
	// ErrCartSectionMissing indicates that [cart] is missing.
	ErrCartSectionMissing = errors.New("missing [cart]")
	// ErrCartNameMissing indicates that [cart].name is missing or empty.
	ErrCartNameMissing = errors.New("missing [cart].name")
)

// FindManifest walks up from startDir to locate cart.toml.
func FindManifest(startDir string) (path string, ok bool, err error) {
	if startDir == "" {
		startDir = "."
	}
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", false, fmt.Errorf("failed to resolve start directory: %w", err)
	}
	for {
		candidate := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, true, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return "", false, fmt.Errorf("failed to stat %q: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return "", false, nil
}

// FindRoot returns the directory containing cart.toml, if any.
func FindRoot(startDir string) (root string, ok bool, err error) {
	manifestPath, ok, err := FindManifest(startDir)
	if err != nil || !ok {
		return "", ok, err
	}
	return filepath.Dir(manifestPath), true, nil
}

// Load parses and validates a cart.toml.
func Load(path string) (Manifest, error) {
	var m Manifest
	meta, err := toml.DecodeFile(path, &m)
	if err != nil {
		return Manifest{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if !meta.IsDefined("cart") {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrCartSectionMissing)
	}
	m.Cart.Name = strings.TrimSpace(m.Cart.Name)
	if m.Cart.Name == "" {
		return Manifest{}, fmt.Errorf("%s: %w", path, ErrCartNameMissing)
	}
	if !IsValidCartName(m.Cart.Name) {
		return Manifest{}, fmt.Errorf("%s: invalid [cart].name %q", path, m.Cart.Name)
	}
	switch m.Fix.Report {
	case "", "pretty", "json", "short":
	default:
		return Manifest{}, fmt.Errorf("%s: invalid [fix].report %q (expected: pretty|json|short)", path, m.Fix.Report)
	}
	root := filepath.Dir(path)
	for _, f := range m.Sources() {
		if _, err := resolveSource(root, f); err != nil {
			return Manifest{}, fmt.Errorf("%s: %w", path, err)
		}
	}
	return m, nil
}

// Sources returns the configured source list: Files when set, otherwise
// Entry, otherwise "main.lua".
func (m Manifest) Sources() []string {
	if len(m.Cart.Files) > 0 {
		return m.Cart.Files
	}
	if m.Cart.Entry != "" {
		return []string{m.Cart.Entry}
	}
	return []string{"main.lua"}
}

// SourcePaths resolves Sources against the manifest root.
func (m Manifest) SourcePaths(root string) ([]string, error) {
	out := make([]string, 0, len(m.Sources()))
	for _, f := range m.Sources() {
		p, err := resolveSource(root, f)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// BootShim reports whether the boot-shim patch is enabled. Defaults to
// true when the manifest does not say.
func (m Manifest) BootShim() bool {
	return m.Fix.BootShim == nil || *m.Fix.BootShim
}

// resolveSource validates a source path stays within the root.
func resolveSource(root, rel string) (string, error) {
	if rel == "" {
		return "", errors.New("empty source path")
	}
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("invalid source %q: must be relative", rel)
	}
	clean := filepath.Clean(filepath.FromSlash(rel))
	full := filepath.Join(root, clean)
	if !pathWithin(root, full) {
		return "", fmt.Errorf("invalid source %q: escapes project root", rel)
	}
	return full, nil
}

func pathWithin(root, candidate string) bool {
	rel, err := filepath.Rel(root, candidate)
	if err != nil {
		return false
	}
	return rel == "." || (!strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "..")
}

// IsValidCartName accepts ASCII identifiers with dashes, the usual
// cartridge naming on disk.
func IsValidCartName(name string) bool {
	if name == "" {
		return false
	}
	for i, r := range name {
		if r > unicode.MaxASCII {
			return false
		}
		ok := r == '_' || r == '-' || unicode.IsLetter(r) || (i > 0 && unicode.IsDigit(r))
		if !ok {
			return false
		}
	}
	return true
}
