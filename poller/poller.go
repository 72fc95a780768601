// Package poller waits for a marker element to appear in an auxiliary window
// and harvests its markup.
//
// Each poll is a small state machine:
//
//	WAITING ──marker found──▶ FOUND
//	   │ ──window gone──────▶ CLOSED
//	   └ ──timeout elapsed──▶ TIMED_OUT
//
// Unreadable documents (mid-navigation, cross-origin, not yet loaded) keep
// the poll WAITING. The window is released exactly once when the poll ends.
package poller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/use-agent/clipper/window"
)

// State of a poll.
type State string

const (
	Waiting  State = "waiting"
	Found    State = "found"
	Closed   State = "closed"
	TimedOut State = "timed_out"
)

// Harvest is the settled result of one poll. HTML is empty unless State is
// Found.
type Harvest struct {
	State   State
	HTML    string
	Elapsed time.Duration

	// Reads counts document reads attempted, failed ones included.
	Reads int

	// Err explains a Closed or TimedOut result when there is more to say.
	Err error
}

// Empty reports whether nothing was harvested.
func (h Harvest) Empty() bool { return h.HTML == "" }

// Poller polls windows for one compiled marker selector.
// It is safe for concurrent use; each Poll is independent.
type Poller struct {
	marker   cascadia.Selector
	raw      string
	timeout  time.Duration
	interval time.Duration
}

// New compiles marker and returns a Poller.
func New(marker string, timeout, interval time.Duration) (*Poller, error) {
	if interval <= 0 {
		return nil, fmt.Errorf("poller: interval must be positive, got %s", interval)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("poller: timeout must be positive, got %s", timeout)
	}
	sel, err := cascadia.Compile(marker)
	if err != nil {
		return nil, fmt.Errorf("poller: invalid marker %q: %w", marker, err)
	}
	return &Poller{marker: sel, raw: marker, timeout: timeout, interval: interval}, nil
}

// Poll is a one-shot form of New followed by (*Poller).Poll. An invalid
// marker settles as Closed with Err set, after releasing h.
func Poll(ctx context.Context, h window.Handle, marker string, timeout, interval time.Duration) Harvest {
	p, err := New(marker, timeout, interval)
	if err != nil {
		release(h)
		return Harvest{State: Closed, Err: err}
	}
	return p.Poll(ctx, h)
}

// Marker returns the selector the poller looks for.
func (p *Poller) Marker() string { return p.raw }

// Poll checks h every interval until the marker appears, the window closes,
// or the timeout elapses. h is released before Poll returns.
func (p *Poller) Poll(ctx context.Context, h window.Handle) Harvest {
	start := time.Now()
	if h == nil {
		return Harvest{State: Closed, Err: errors.New("poller: no window")}
	}
	defer release(h)

	// The deadline context is the poll's cancellable timer; document reads
	// inherit it so a hung read cannot outlive the timeout.
	deadline, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	reads := 0
	settle := func(s State, html string, err error) Harvest {
		return Harvest{State: s, HTML: html, Elapsed: time.Since(start), Reads: reads, Err: err}
	}

	for {
		select {
		case <-deadline.Done():
			if err := ctx.Err(); err != nil {
				return settle(TimedOut, "", err)
			}
			return settle(TimedOut, "", fmt.Errorf("poller: %q not found within %s", p.raw, p.timeout))

		case <-ticker.C:
			if time.Since(start) >= p.timeout {
				return settle(TimedOut, "", fmt.Errorf("poller: %q not found within %s", p.raw, p.timeout))
			}
			if h.Closed() {
				return settle(Closed, "", errors.New("poller: window closed before marker appeared"))
			}

			reads++
			doc, err := h.Document(deadline)
			if err != nil {
				slog.Debug("poll: document not readable yet", "url", h.URL(), "read", reads, "error", err)
				continue
			}
			if html := p.find(doc); html != "" {
				return settle(Found, html, nil)
			}
		}
	}
}

// find returns the outer HTML of the first marker match in doc, or "".
func (p *Poller) find(doc string) string {
	d, err := goquery.NewDocumentFromReader(strings.NewReader(doc))
	if err != nil {
		return ""
	}
	node := d.FindMatcher(p.marker).First()
	if node.Length() == 0 {
		return ""
	}
	html, err := goquery.OuterHtml(node)
	if err != nil {
		return ""
	}
	return html
}

func release(h window.Handle) {
	if h == nil {
		return
	}
	if err := h.Release(); err != nil {
		slog.Debug("poll: window release failed", "url", h.URL(), "error", err)
	}
}
