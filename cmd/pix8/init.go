package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"pix8/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new cartridge project",
	Long: `Initialize a cartridge project by creating a manifest (cart.toml) and a
hello-world entry point (main.lua). If [path|name] is omitted, initializes
the current directory. If a non-existing name is provided, a directory will
be created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	var target string
	if len(args) == 0 || args[0] == "." {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		target = wd
	} else {
		arg := args[0]
		if !filepath.IsAbs(arg) {
			wd, err := os.Getwd()
			if err != nil {
				return err
			}
			target = filepath.Join(wd, arg)
		} else {
			target = arg
		}
	}

	if st, err := os.Stat(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err = os.MkdirAll(target, 0o755); err != nil {
				return fmt.Errorf("failed to create directory %q: %w", target, err)
			}
		} else {
			return err
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if !project.IsValidCartName(name) {
		name = "my-cart"
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(defaultManifest(name)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	mainPath := filepath.Join(target, "main.lua")
	createdMain := false
	if _, err := os.Stat(mainPath); errors.Is(err, os.ErrNotExist) {
		if err := os.WriteFile(mainPath, []byte(defaultMainLua()), 0o600); err != nil {
			return fmt.Errorf("failed to write main.lua: %w", err)
		}
		createdMain = true
	}

	rel := target
	if wd, err := os.Getwd(); err == nil {
		if r, err2 := filepath.Rel(wd, target); err2 == nil {
			rel = r
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Initialized cartridge project in %s\n", rel)
	fmt.Fprintf(cmd.OutOrStdout(), "  - %s\n", project.ManifestName)
	if createdMain {
		fmt.Fprintln(cmd.OutOrStdout(), "  - main.lua")
	} else {
		fmt.Fprintln(cmd.OutOrStdout(), "  - main.lua (existing)")
	}
	return nil
}

func defaultManifest(name string) string {
	return fmt.Sprintf(`# pix8 cartridge manifest
[cart]
name = "%s"
version = "0.1.0"
entry = "main.lua"

[fix]
report = "pretty"
`, name)
}

func defaultMainLua() string {
	return `-- hello cartridge
t = 0

function _update()
	t += 1
end

function _draw()
	cls()
	print("hello pix8", 44, 60 + 4 * sin(t / 60), 7)
end
`
}
