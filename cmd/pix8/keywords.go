package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"pix8/internal/grammar"
)

var keywordsCmd = &cobra.Command{
	Use:   "keywords",
	Short: "List the reserved words of the cartridge dialect",
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := cmd.Flags().GetString("format")
		if err != nil {
			return err
		}
		words := grammar.Keywords()
		switch format {
		case "json":
			enc := json.NewEncoder(cmd.OutOrStdout())
			return enc.Encode(words)
		case "pretty", "":
			for _, w := range words {
				fmt.Fprintln(cmd.OutOrStdout(), w)
			}
			return nil
		default:
			return fmt.Errorf("unknown format: %s", format)
		}
	},
}

func init() {
	keywordsCmd.Flags().String("format", "pretty", "output format (pretty|json)")
}
