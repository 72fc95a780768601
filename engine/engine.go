package engine

import (
	"context"
	"time"
)

// Engine loads the source article for extraction.
type Engine interface {
	// Name returns the engine identifier ("http" or "browser").
	Name() string

	// Fetch retrieves the page content for the given request.
	Fetch(ctx context.Context, req *FetchRequest) (*FetchResult, error)
}

// FetchRequest contains everything an engine needs to fetch a page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
	Timeout time.Duration
}

// FetchResult is the output of a successful engine fetch.
type FetchResult struct {
	HTML       string
	StatusCode int
	FinalURL   string
	EngineName string
}

// New returns the engine for mode: "http" or anything else for browser.
func New(mode string, browser *RodEngine) Engine {
	if mode == "http" {
		return NewHTTPEngine()
	}
	return browser
}
