// Package webhook announces finished clip runs to an external endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/use-agent/clipper/models"
	"github.com/use-agent/clipper/submitter"
)

// Event types.
const (
	EventDone   = "clip.done"
	EventFailed = "clip.failed"
)

// Event is the payload sent to the webhook endpoint.
type Event struct {
	Type      string             `json:"type"`
	RunID     string             `json:"run_id"`
	Timestamp int64              `json:"timestamp"`
	Report    *models.ClipReport `json:"report"`
}

// NewEvent builds the event announcing report.
func NewEvent(report *models.ClipReport) *Event {
	typ := EventDone
	if report.Phase == models.PhaseFailed {
		typ = EventFailed
	}
	return &Event{
		Type:      typ,
		RunID:     report.RunID,
		Timestamp: time.Now().Unix(),
		Report:    report,
	}
}

// Notifier delivers events with retries. Bodies are signed like submissions
// when a secret is set; see submitter.SignatureHeader.
type Notifier struct {
	url    string
	secret string
	client *http.Client
	delays []time.Duration
	wg     sync.WaitGroup
}

// New creates a Notifier posting to url.
func New(url, secret string) *Notifier {
	return &Notifier{
		url:    url,
		secret: secret,
		client: &http.Client{Timeout: 10 * time.Second},
		delays: []time.Duration{0, 1 * time.Second, 5 * time.Second, 30 * time.Second},
	}
}

// Deliver sends one encoded event synchronously.
func (n *Notifier) Deliver(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("webhook: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Clipper-Webhook/1.0")
	if n.secret != "" {
		req.Header.Set(submitter.SignatureHeader, "sha256="+submitter.Sign(n.secret, body))
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Notify announces report in the background, retrying after 1s, 5s and 30s.
// The report is encoded before Notify returns.
func (n *Notifier) Notify(report *models.ClipReport) {
	event := NewEvent(report)
	body, err := json.Marshal(event)
	if err != nil {
		slog.Error("webhook: marshal event", "run_id", event.RunID, "error", err)
		return
	}

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		for attempt, delay := range n.delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, body)
			cancel()
			if err == nil {
				slog.Info("webhook delivered", "url", n.url, "event", event.Type, "run_id", event.RunID, "attempt", attempt+1)
				return
			}
			slog.Warn("webhook delivery failed", "url", n.url, "event", event.Type, "run_id", event.RunID, "attempt", attempt+1, "error", err)
		}
		slog.Error("webhook delivery exhausted all retries", "url", n.url, "event", event.Type, "run_id", event.RunID)
	}()
}

// Wait blocks until every pending delivery has finished.
func (n *Notifier) Wait() { n.wg.Wait() }
