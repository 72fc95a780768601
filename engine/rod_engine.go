package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/use-agent/clipper/models"
	"github.com/use-agent/clipper/window"
)

// RodEngine renders the source article in a browser window opened through a
// window.Opener, waits for its DOM to settle, and reads it back.
type RodEngine struct {
	opener window.Opener
	settle time.Duration
}

// NewRodEngine creates a RodEngine. settle is the quiet period the DOM must
// hold before it is read; zero skips the wait.
func NewRodEngine(opener window.Opener, settle time.Duration) *RodEngine {
	return &RodEngine{opener: opener, settle: settle}
}

func (e *RodEngine) Name() string { return "browser" }

func (e *RodEngine) Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error) {
	if e.opener == nil {
		return nil, fmt.Errorf("%s: opener not configured", e.Name())
	}
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	h, err := e.opener.Open(ctx, req.URL)
	if err != nil {
		return nil, models.NewClipError(models.ErrCodeSourceLoad, "could not open source window", err)
	}
	defer func() { _ = h.Release() }()

	if s, ok := h.(window.Settler); ok && e.settle > 0 {
		if stableErr := s.WaitStable(ctx, e.settle); stableErr != nil {
			slog.Debug("WaitDOMStable did not converge, proceeding with current DOM", "error", stableErr)
		}
	}

	html, err := h.Document(ctx)
	if err != nil {
		return nil, categorizeError(err, "failed to read source document")
	}

	return &FetchResult{
		HTML:       html,
		FinalURL:   h.URL(),
		EngineName: e.Name(),
	}, nil
}
