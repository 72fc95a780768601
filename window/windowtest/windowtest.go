// Package windowtest provides in-memory windows and openers for tests that
// must not launch a browser.
package windowtest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/use-agent/clipper/window"
)

// ErrUnreadable is returned by Document while the fake is not yet readable.
var ErrUnreadable = errors.New("windowtest: document not readable")

// Window is a scripted window. The zero value is never readable.
type Window struct {
	// Addr is returned by URL.
	Addr string

	// HTML is served once the window has been read ReadyAfter times.
	HTML       string
	ReadyAfter int

	// Readable set to false keeps Document failing forever.
	Readable bool

	// CloseAfter closes the window from the outside after that many reads.
	// Zero disables it.
	CloseAfter int

	reads    atomic.Int32
	external atomic.Bool
	released atomic.Bool
	releases atomic.Int32
}

// Ready returns a window that serves html after readyAfter failed reads.
func Ready(addr, html string, readyAfter int) *Window {
	return &Window{Addr: addr, HTML: html, ReadyAfter: readyAfter, Readable: true}
}

// Unreadable returns a window whose document can never be read, as with a
// permanent cross-origin failure.
func Unreadable(addr string) *Window {
	return &Window{Addr: addr}
}

func (w *Window) URL() string { return w.Addr }

func (w *Window) Document(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	n := int(w.reads.Add(1))
	if w.CloseAfter > 0 && n >= w.CloseAfter {
		w.external.Store(true)
	}
	if w.Closed() {
		return "", errors.New("windowtest: window closed")
	}
	if !w.Readable || n <= w.ReadyAfter {
		return "", ErrUnreadable
	}
	return w.HTML, nil
}

func (w *Window) Closed() bool {
	return w.released.Load() || w.external.Load()
}

func (w *Window) Release() error {
	if w.released.CompareAndSwap(false, true) {
		w.releases.Add(1)
	}
	return nil
}

// Close simulates the user or the site closing the window.
func (w *Window) Close() { w.external.Store(true) }

// Reads reports how many times Document was called.
func (w *Window) Reads() int { return int(w.reads.Load()) }

// Releases reports how many times Release actually closed the window.
func (w *Window) Releases() int { return int(w.releases.Load()) }

// Opener hands out pre-registered windows by URL. URLs without a window, or
// listed in Blocked, are refused with window.ErrBlocked.
type Opener struct {
	mu      sync.Mutex
	windows map[string]*Window
	blocked map[string]bool
	opened  []string
}

// NewOpener creates an empty Opener.
func NewOpener() *Opener {
	return &Opener{
		windows: make(map[string]*Window),
		blocked: make(map[string]bool),
	}
}

// Add registers w under its URL.
func (o *Opener) Add(w *Window) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.windows[w.Addr] = w
	return o
}

// Block makes Open refuse addr.
func (o *Opener) Block(addr string) *Opener {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.blocked[addr] = true
	return o
}

func (o *Opener) Open(_ context.Context, addr string) (window.Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.opened = append(o.opened, addr)

	w, ok := o.windows[addr]
	if !ok || o.blocked[addr] {
		return nil, fmt.Errorf("%w: %s", window.ErrBlocked, addr)
	}
	return w, nil
}

// Opened lists every URL Open was called with, in call order.
func (o *Opener) Opened() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.opened...)
}
