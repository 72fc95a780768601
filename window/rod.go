package window

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/clipper/config"
	"github.com/use-agent/clipper/models"
	"github.com/ysmood/gson"
)

// closedProbeTimeout bounds the target-info call used to detect a window
// that was closed from the outside.
const closedProbeTimeout = 2 * time.Second

// RodOpener opens windows as new targets of one Chromium instance.
// It is safe for concurrent use.
type RodOpener struct {
	browser  *rod.Browser
	launched bool
	cfg      config.BrowserConfig
	blocked  map[proto.NetworkResourceType]struct{}
	slots    chan struct{}
	open     atomic.Int32
}

// NewRodOpener launches a browser, or attaches to cfg.CDPURL when set.
func NewRodOpener(cfg config.BrowserConfig) (*RodOpener, error) {
	controlURL := cfg.CDPURL
	launched := controlURL == ""

	if launched {
		l := launcher.New().
			Headless(cfg.Headless).
			NoSandbox(cfg.NoSandbox)

		if cfg.BrowserBin != "" {
			l = l.Bin(cfg.BrowserBin)
		}
		if cfg.Proxy != "" {
			l = l.Proxy(cfg.Proxy)
		}

		// Auxiliary windows are opened programmatically, so the popup
		// blocker stays off and background tabs keep their timers running.
		l.Set(flags.Flag("disable-blink-features"), "AutomationControlled")
		l.Delete(flags.Flag("enable-automation"))
		l.Set(flags.Flag("disable-popup-blocking"))
		l.Set(flags.Flag("disable-renderer-backgrounding"))
		l.Set(flags.Flag("disable-background-timer-throttling"))
		l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
		l.Set(flags.Flag("disable-dev-shm-usage"))
		l.Set(flags.Flag("no-first-run"))

		u, err := l.Launch()
		if err != nil {
			return nil, models.NewClipError(models.ErrCodeBrowserCrash, "failed to launch browser", err)
		}
		controlURL = u
		slog.Info("browser launched", "controlURL", controlURL)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, models.NewClipError(models.ErrCodeBrowserCrash, "failed to connect to browser", err)
	}

	maxPages := cfg.MaxPages
	if maxPages <= 0 {
		maxPages = 1
	}

	return &RodOpener{
		browser:  browser,
		launched: launched,
		cfg:      cfg,
		blocked:  blockedSet(cfg.BlockedResourceTypes),
		slots:    make(chan struct{}, maxPages),
	}, nil
}

// Open creates a new target and starts navigating it to rawURL. It returns
// as soon as navigation has started; readiness is the poller's concern.
func (o *RodOpener) Open(ctx context.Context, rawURL string) (Handle, error) {
	select {
	case o.slots <- struct{}{}:
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: no free window slot: %v", ErrBlocked, ctx.Err())
	}

	page, err := o.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		<-o.slots
		return nil, fmt.Errorf("%w: create target: %v", ErrBlocked, err)
	}
	o.open.Add(1)

	h := &rodHandle{
		page: page,
		url:  rawURL,
		onRelease: func() {
			o.open.Add(-1)
			<-o.slots
		},
	}

	// Stealth and hijack only apply to navigations started after them.
	if o.cfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth", "error", evalErr)
		}
	}
	if u, parseErr := url.Parse(rawURL); parseErr == nil {
		_ = proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(map[string]string{
				"Referer": "https://www.google.com/search?q=" + url.QueryEscape(u.Hostname()),
			}),
		}.Call(page)
	}
	h.router = setupHijack(page, o.blocked)

	if navErr := page.Context(ctx).Navigate(rawURL); navErr != nil {
		_ = h.Release()
		return nil, fmt.Errorf("%w: navigate %s: %v", ErrBlocked, rawURL, navErr)
	}
	return h, nil
}

// Stats returns a snapshot of the window budget.
func (o *RodOpener) Stats() models.WindowStats {
	return models.WindowStats{
		MaxWindows:  cap(o.slots),
		OpenWindows: int(o.open.Load()),
	}
}

// Close kills a launched browser. An attached browser belongs to its user
// and is left running.
func (o *RodOpener) Close() {
	if !o.launched {
		return
	}
	slog.Info("window opener shutting down: closing browser")
	if err := o.browser.Close(); err != nil {
		slog.Warn("browser close failed", "error", err)
	}
}

// rodHandle is a window backed by one rod page.
type rodHandle struct {
	page      *rod.Page
	url       string
	router    *rod.HijackRouter
	onRelease func()

	once     sync.Once
	released atomic.Bool
	releases atomic.Int32
	err      error
}

func (h *rodHandle) URL() string { return h.url }

func (h *rodHandle) Document(ctx context.Context) (string, error) {
	return h.page.Context(ctx).HTML()
}

func (h *rodHandle) WaitStable(ctx context.Context, d time.Duration) error {
	return h.page.Context(ctx).WaitDOMStable(d, 0.1)
}

// Closed asks the browser whether the target still exists. A probe that
// merely times out means the browser is busy, not that the window is gone.
func (h *rodHandle) Closed() bool {
	if h.released.Load() {
		return true
	}
	ctx, cancel := context.WithTimeout(context.Background(), closedProbeTimeout)
	defer cancel()

	_, err := h.page.Context(ctx).Info()
	if err == nil || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}

func (h *rodHandle) Release() error {
	h.once.Do(func() {
		h.released.Store(true)
		if h.router != nil {
			_ = h.router.Stop()
		}
		h.err = h.page.Close()
		h.releases.Add(1)
		if h.onRelease != nil {
			h.onRelease()
		}
	})
	return h.err
}

// Releases reports how many times the window was actually closed (0 or 1).
func (h *rodHandle) Releases() int { return int(h.releases.Load()) }

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
