package main

import (
	"os"
	"path/filepath"

	"pix8/internal/project"
)

// findManifestFor walks up from the target looking for cart.toml. A
// manifest that fails to load is ignored rather than failing the run.
func findManifestFor(targetPath string) (project.Manifest, bool) {
	dir := targetPath
	if info, err := os.Stat(targetPath); err != nil || !info.IsDir() {
		dir = filepath.Dir(targetPath)
	}
	path, ok, err := project.FindManifest(dir)
	if err != nil || !ok {
		return project.Manifest{}, false
	}
	manifest, err := project.Load(path)
	if err != nil {
		return project.Manifest{}, false
	}
	return manifest, true
}
