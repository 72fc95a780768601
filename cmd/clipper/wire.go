package main

import (
	"fmt"
	"log/slog"

	"github.com/use-agent/clipper/clipper"
	"github.com/use-agent/clipper/config"
	"github.com/use-agent/clipper/engine"
	"github.com/use-agent/clipper/submitter"
	"github.com/use-agent/clipper/webhook"
	"github.com/use-agent/clipper/window"
)

// app owns everything a command needs to run clips.
type app struct {
	clipper  *clipper.Clipper
	opener   *window.RodOpener
	notifier *webhook.Notifier
}

// build launches the browser and wires a Clipper. The caller must Close the
// returned app.
func build(cfg *config.Config, opts ...clipper.Option) (*app, error) {
	if err := cfg.Clipper.Validate(); err != nil {
		return nil, err
	}

	opener, err := window.NewRodOpener(cfg.Browser)
	if err != nil {
		return nil, fmt.Errorf("init browser: %w", err)
	}
	a := &app{opener: opener}

	loader := engine.New(cfg.Fetch.Mode, engine.NewRodEngine(opener, cfg.Clipper.SourceWait))

	var subOpts []submitter.Option
	if cfg.Clipper.SigningSecret != "" {
		subOpts = append(subOpts, submitter.WithSigningSecret(cfg.Clipper.SigningSecret))
	}

	base := []clipper.Option{clipper.WithFetchTimeout(cfg.Fetch.Timeout)}
	if cfg.Webhook.URL != "" {
		a.notifier = webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret)
		base = append(base, clipper.WithNotifier(a.notifier))
	}

	a.clipper, err = clipper.New(cfg.Clipper, loader, opener, submitter.New(subOpts...), append(base, opts...)...)
	if err != nil {
		opener.Close()
		return nil, err
	}

	slog.Info("clipper ready",
		"fetch_mode", loader.Name(),
		"max_pages", cfg.Browser.MaxPages,
		"templates", len(cfg.Clipper.Templates),
		"marker", cfg.Clipper.MarkerSelector,
		"webhook", cfg.Webhook.URL != "",
	)
	return a, nil
}

// Close waits for pending webhook deliveries, then shuts the browser down.
func (a *app) Close() {
	if a.notifier != nil {
		a.notifier.Wait()
	}
	a.opener.Close()
}
