package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/use-agent/clipper/clipper"
	"github.com/use-agent/clipper/models"
)

var quiet bool

var clipCmd = &cobra.Command{
	Use:   "clip <url>",
	Short: "Clip one article and print the run report as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		// stdout carries the report, so logs go to stderr.
		cfg, err := loadConfig(os.Stderr)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		status := func(phase models.Phase, s string) {
			if !quiet {
				fmt.Fprintln(os.Stderr, renderStatus(phase, s))
			}
		}

		a, err := build(cfg, clipper.WithStatusFunc(status))
		if err != nil {
			return err
		}
		defer a.Close()

		report, runErr := a.clipper.Run(ctx, args[0])

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return fmt.Errorf("encode report: %w", err)
		}
		return runErr
	},
}

func init() {
	clipCmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print status lines")
}
