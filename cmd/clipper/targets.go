package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/use-agent/clipper/clipper"
)

var targetsCmd = &cobra.Command{
	Use:   "targets <url>",
	Short: "Print the translation URLs derived from an article URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}
		if clipper.ExtractToken(args[0]) == "" {
			fmt.Fprintln(os.Stderr, "warning: no article identifier in URL; translation pages will be empty")
		}
		for _, t := range clipper.DeriveTargets(args[0], cfg.Clipper.Templates) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", t.LanguageTag, t.DerivedURL)
		}
		return nil
	},
}
