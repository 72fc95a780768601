// Package window opens auxiliary browser windows and hands them out as
// owned handles that are closed exactly once.
package window

import (
	"context"
	"errors"
	"time"
)

// ErrBlocked means the browser refused to create a window. Callers treat the
// target as unavailable, not as a failure of the run.
var ErrBlocked = errors.New("window: blocked")

// Opener creates top-level browsing contexts.
type Opener interface {
	// Open creates a window at url. It returns an error wrapping ErrBlocked
	// when no window could be created.
	Open(ctx context.Context, url string) (Handle, error)
}

// Handle is an owned window. The owner must call Release exactly once when
// done; further calls are no-ops.
type Handle interface {
	// URL is the address the window was opened at.
	URL() string

	// Document returns the window's current serialized DOM. It fails while
	// the document is unreadable (mid-navigation, not yet loaded).
	Document(ctx context.Context) (string, error)

	// Closed reports whether the window is gone, either released or closed
	// from the outside.
	Closed() bool

	// Release closes the window. Only the first call has an effect.
	Release() error
}

// Settler is implemented by handles that can wait for their DOM to stop
// changing before being read.
type Settler interface {
	WaitStable(ctx context.Context, d time.Duration) error
}
