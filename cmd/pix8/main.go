package main

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pix8/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "pix8",
	Short: "PICO-8 cartridge source tools",
	Long:  `pix8 lowers PICO-8 shorthand Lua into standard Lua 5.3 and reports syntax diagnostics`,
}

func main() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(fixCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(keywordsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(initCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Int("max-diagnostics", 256, "maximum number of diagnostics to show")
	rootCmd.PersistentFlags().Int("jobs", 0, "parallel workers for directories (0 = number of CPUs)")
	rootCmd.PersistentFlags().String("trace", "", "trace output path (- for stderr)")
	rootCmd.PersistentFlags().String("trace-level", "off", "trace level (off|file|pass|rule)")

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}
