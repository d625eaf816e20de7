package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"pix8/internal/diag"
	"pix8/internal/diagfmt"
	"pix8/internal/source"
)

type reportFormat string

const (
	reportPretty reportFormat = "pretty"
	reportJSON   reportFormat = "json"
	reportShort  reportFormat = "short"
)

func readReportFormat(value string) (reportFormat, error) {
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "", "pretty":
		return reportPretty, nil
	case "json":
		return reportJSON, nil
	case "short":
		return reportShort, nil
	default:
		return "", fmt.Errorf("invalid --format value %q (expected pretty|json|short)", value)
	}
}

// useColor resolves the persistent --color flag against the terminal.
func useColor(cmd *cobra.Command) bool {
	value, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false
	}
	switch strings.TrimSpace(strings.ToLower(value)) {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}

func renderBag(w io.Writer, format reportFormat, bag *diag.Bag, fs *source.FileSet, colored bool, max int) error {
	bag.Sort()
	switch format {
	case reportJSON:
		return diagfmt.JSON(w, bag, fs, diagfmt.JSONOpts{
			IncludePositions: true,
			PathMode:         diagfmt.PathModeRelative,
			Max:              max,
			IncludeNotes:     true,
		})
	case reportShort:
		diagfmt.Short(w, bag, fs, diagfmt.PrettyOpts{
			Color:    colored,
			PathMode: diagfmt.PathModeRelative,
		})
		return nil
	default:
		diagfmt.Pretty(w, bag, fs, diagfmt.PrettyOpts{
			Color:     colored,
			PathMode:  diagfmt.PathModeRelative,
			ShowNotes: true,
		})
		return nil
	}
}
