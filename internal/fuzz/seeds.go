package fuzztests

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
)

const maxSeedBytes = 64 << 10 // 64 KiB

func addCorpusSeeds(f *testing.F) {
	addTestdataSeeds(f)
	addDialectSeeds(f)
}

// addTestdataSeeds walks the repository testdata tree and adds every
// cartridge it finds.
func addTestdataSeeds(f *testing.F) {
	root := filepath.Join("..", "..", "testdata")
	if _, err := os.Stat(root); err != nil {
		return
	}
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil || d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(path); ext != ".lua" && ext != ".p8" {
			return nil
		}
		// #nosec G304 -- path comes from repository testdata walk
		src, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		f.Add(clampSeed(src))
		return nil
	})
}

// addDialectSeeds seeds the shorthand constructs directly so the corpus
// covers them even with an empty testdata tree.
func addDialectSeeds(f *testing.F) {
	for _, seed := range []string{
		"",
		"x = 1\n",
		"a += 1\nb -= 2\nc *= 3\nd /= 4\ne %= 5\n",
		"if a != b then a = b end\n",
		"if (a != b) c = 1\n",
		"t[i] += f(x, \"!=\")\n",
		"-- a += 1 inside a comment\ns = \"a != b\"\n",
		"function _update()\n\tt += 1\nend\n",
		"if(_update60)_update=function() _update60() end",
		"::top::\ngoto top\n",
		"local s = [[long\nstring]]\n",
		"#!interpreter line\nx = 0x1p4\n",
	} {
		f.Add([]byte(seed))
	}
}

func clampSeed(src []byte) []byte {
	if len(src) <= maxSeedBytes {
		return append([]byte(nil), src...)
	}
	return append([]byte(nil), src[:maxSeedBytes]...)
}
