package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/clipper/api"
	"github.com/use-agent/clipper/cache"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the clip HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(os.Stdout)
		if err != nil {
			return err
		}
		slog.Info("clipper starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"maxPages", cfg.Browser.MaxPages,
		)
		if cfg.Auth.Enabled && len(cfg.Auth.APIKeys) == 0 {
			slog.Warn("auth enabled but no API keys configured, API is open")
		}

		// ── 1. Browser and pipeline ─────────────────────────────────
		a, err := build(cfg)
		if err != nil {
			return err
		}
		defer a.Close()

		// ── 2. Cache and router ─────────────────────────────────────
		cc := cache.New(cfg.Cache.MaxEntries)
		defer cc.Close()

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		router := api.NewRouter(ctx, a.clipper, a.opener, cfg, cc, time.Now())

		// ── 3. HTTP server ──────────────────────────────────────────
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:    addr,
			Handler: router,
		}

		errCh := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		// ── 4. Graceful shutdown ────────────────────────────────────
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		select {
		case sig := <-quit:
			slog.Info("shutdown signal received", "signal", sig.String())
		case err := <-errCh:
			slog.Error("HTTP server error", "error", err)
			return err
		}

		// A clip can poll for the full poll timeout, so in-flight requests
		// get that long to finish.
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Clipper.PollTimeout+5*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}

		// a.Close runs via defer: pending webhooks drain, then Chrome is killed
		// if we launched it.
		slog.Info("clipper stopped")
		return nil
	},
}
