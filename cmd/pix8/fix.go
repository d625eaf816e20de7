package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pix8/internal/driver"
	"pix8/internal/source"
)

var fixCmd = &cobra.Command{
	Use:   "fix [flags] <cart.lua|cart.p8|directory>",
	Short: "Lower shorthand syntax in a cartridge or directory",
	Long: "Parse PICO-8 shorthand Lua and rewrite it as standard Lua 5.3:\n" +
		"`!=` becomes `~=` and compound assignments are expanded. The result\n" +
		"goes to stdout unless --write or --out redirects it.",
	Args: cobra.ExactArgs(1),
	RunE: runFix,
}

func init() {
	fixCmd.Flags().BoolP("write", "w", false, "rewrite files in place")
	fixCmd.Flags().String("out", "", "write fixed carts under this directory")
	fixCmd.Flags().String("format", "pretty", "diagnostic format (pretty|json|short)")
	fixCmd.Flags().Bool("disk-cache", false, "cache fix results on disk")
	fixCmd.Flags().Bool("no-boot-shim", false, "leave the boot shim fragment untouched")
	fixCmd.Flags().String("ui", "auto", "progress display for directories (auto|on|off)")
}

type fixSettings struct {
	write    bool
	outDir   string
	format   reportFormat
	ui       uiMode
	driver   driver.Options
	colored  bool
	quiet    bool
	cleanup  func()
	rootPath string
}

func readFixSettings(cmd *cobra.Command, targetPath string) (*fixSettings, error) {
	s := &fixSettings{rootPath: targetPath, cleanup: func() {}}

	var err error
	if s.write, err = flagBool(cmd, "write"); err != nil {
		return nil, err
	}
	if s.outDir, err = flagString(cmd, "out", ""); err != nil {
		return nil, err
	}
	formatStr, err := flagString(cmd, "format", "pretty")
	if err != nil {
		return nil, err
	}
	uiStr, err := flagString(cmd, "ui", "auto")
	if err != nil {
		return nil, err
	}
	diskCache, err := flagBool(cmd, "disk-cache")
	if err != nil {
		return nil, err
	}
	noShim, err := flagBool(cmd, "no-boot-shim")
	if err != nil {
		return nil, err
	}
	maxDiagnostics, err := cmd.Root().PersistentFlags().GetInt("max-diagnostics")
	if err != nil {
		return nil, err
	}
	jobs, err := cmd.Root().PersistentFlags().GetInt("jobs")
	if err != nil {
		return nil, err
	}
	if s.quiet, err = cmd.Root().PersistentFlags().GetBool("quiet"); err != nil {
		return nil, err
	}

	// a cart.toml near the target supplies defaults for flags the user
	// did not set
	if manifest, ok := findManifestFor(targetPath); ok {
		if !cmd.Flags().Changed("no-boot-shim") {
			noShim = !manifest.BootShim()
		}
		if !cmd.Flags().Changed("format") && manifest.Fix.Report != "" {
			formatStr = manifest.Fix.Report
		}
		if !cmd.Flags().Changed("out") && manifest.Fix.Out != "" {
			s.outDir = manifest.Fix.Out
		}
	}

	if s.format, err = readReportFormat(formatStr); err != nil {
		return nil, err
	}
	if s.ui, err = readUIMode(uiStr); err != nil {
		return nil, err
	}
	if s.write && s.outDir != "" {
		return nil, fmt.Errorf("--write and --out are mutually exclusive")
	}
	s.colored = useColor(cmd)

	tracer, traceCleanup, err := setupTracing(cmd)
	if err != nil {
		return nil, err
	}
	s.cleanup = traceCleanup

	s.driver = driver.Options{
		MaxDiagnostics: maxDiagnostics,
		Jobs:           jobs,
		NoBootShim:     noShim,
		Tracer:         tracer,
	}
	if diskCache {
		cache, err := driver.OpenDiskCache("pix8")
		if err != nil {
			s.cleanup()
			return nil, fmt.Errorf("fix: open disk cache: %w", err)
		}
		s.driver.Cache = cache
	}
	return s, nil
}

func runFix(cmd *cobra.Command, args []string) error {
	targetPath := args[0]
	info, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}

	s, err := readFixSettings(cmd, targetPath)
	if err != nil {
		return err
	}
	defer s.cleanup()

	if !info.IsDir() {
		return runFixFile(cmd, s, targetPath)
	}
	return runFixDir(cmd, s, targetPath)
}

func runFixFile(cmd *cobra.Command, s *fixSettings, path string) error {
	fileSet := source.NewFileSetWithBase(filepath.Dir(path))
	res := s.driver.FixFile(fileSet, path)

	reportResult(cmd, s, fileSet, res)
	if res.Failed() {
		return fmt.Errorf("fix: %w", res.Err)
	}

	switch {
	case s.write:
		return writeFixed(path, res.Fixed)
	case s.outDir != "":
		return writeFixed(filepath.Join(s.outDir, filepath.Base(path)), res.Fixed)
	default:
		_, err := fmt.Fprint(cmd.OutOrStdout(), res.Fixed)
		return err
	}
}

func runFixDir(cmd *cobra.Command, s *fixSettings, dir string) error {
	if !s.write && s.outDir == "" {
		return fmt.Errorf("fix: refusing to dump a directory to stdout, pass --write or --out")
	}

	fileSet, results, err := fixDirWithProgress(cmd, s, dir)
	if err != nil {
		return fmt.Errorf("fix: %w", err)
	}

	failed := 0
	for _, res := range results {
		reportResult(cmd, s, fileSet, res)
		if res.Failed() {
			failed++
			continue
		}
		target := res.Path
		if s.outDir != "" {
			rel, relErr := filepath.Rel(dir, res.Path)
			if relErr != nil {
				rel = filepath.Base(res.Path)
			}
			target = filepath.Join(s.outDir, rel)
		}
		if err := writeFixed(target, res.Fixed); err != nil {
			return err
		}
	}

	if !s.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "fixed %d of %d cart(s)\n", len(results)-failed, len(results))
	}
	if failed > 0 {
		return fmt.Errorf("fix: %d cart(s) failed", failed)
	}
	return nil
}

// reportResult renders a result's diagnostics to stderr. Fatal errors
// are always shown; with --quiet everything else is dropped.
func reportResult(cmd *cobra.Command, s *fixSettings, fileSet *source.FileSet, res driver.Result) {
	if res.Bag == nil || res.Bag.Len() == 0 {
		return
	}
	if s.quiet && !res.Bag.HasErrors() {
		return
	}
	if err := renderBag(cmd.ErrOrStderr(), s.format, res.Bag, fileSet, s.colored, s.driver.MaxDiagnostics); err != nil {
		fmt.Fprintf(cmd.ErrOrStderr(), "fix: render diagnostics: %v\n", err)
	}
}

// flagBool and flagString treat a flag the command does not define as
// unset, so fix and check can share one settings reader.
func flagBool(cmd *cobra.Command, name string) (bool, error) {
	if cmd.Flags().Lookup(name) == nil {
		return false, nil
	}
	return cmd.Flags().GetBool(name)
}

func flagString(cmd *cobra.Command, name, fallback string) (string, error) {
	if cmd.Flags().Lookup(name) == nil {
		return fallback, nil
	}
	return cmd.Flags().GetString(name)
}

func writeFixed(path, fixed string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	if err := os.WriteFile(path, []byte(fixed), 0o644); err != nil {
		return fmt.Errorf("fix: %w", err)
	}
	return nil
}
