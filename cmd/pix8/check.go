package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"pix8/internal/source"
)

var checkCmd = &cobra.Command{
	Use:   "check [flags] <cart.lua|cart.p8|directory>",
	Short: "Report syntax diagnostics without rewriting anything",
	Args:  cobra.ExactArgs(1),
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().String("format", "pretty", "diagnostic format (pretty|json|short)")
	checkCmd.Flags().Bool("no-boot-shim", false, "leave the boot shim fragment untouched")
	checkCmd.Flags().String("ui", "off", "progress display for directories (auto|on|off)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	targetPath := args[0]
	info, err := os.Stat(targetPath)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}

	s, err := readCheckSettings(cmd, targetPath)
	if err != nil {
		return err
	}
	defer s.cleanup()

	if !info.IsDir() {
		fileSet := source.NewFileSetWithBase(filepath.Dir(targetPath))
		res := s.driver.CheckFile(fileSet, targetPath)
		reportResult(cmd, s, fileSet, res)
		if res.Failed() {
			return fmt.Errorf("check: %w", res.Err)
		}
		return nil
	}

	fileSet, results, err := s.driver.CheckDir(cmd.Context(), targetPath)
	if err != nil {
		return fmt.Errorf("check: %w", err)
	}
	failed := 0
	for _, res := range results {
		reportResult(cmd, s, fileSet, res)
		if res.Failed() {
			failed++
		}
	}
	if !s.quiet {
		fmt.Fprintf(cmd.ErrOrStderr(), "checked %d cart(s), %d failed\n", len(results), failed)
	}
	if failed > 0 {
		return fmt.Errorf("check: %d cart(s) failed", failed)
	}
	return nil
}

// readCheckSettings reuses the fix settings reader; check shares its
// flags apart from the output destinations.
func readCheckSettings(cmd *cobra.Command, targetPath string) (*fixSettings, error) {
	s, err := readFixSettings(cmd, targetPath)
	if err != nil {
		return nil, err
	}
	s.write = false
	s.outDir = ""
	return s, nil
}
