package submitter

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/use-agent/clipper/models"
)

// SignatureHeader carries the HMAC-SHA256 of the request body.
const SignatureHeader = "X-Clipper-Signature"

// maxBody caps how much of a response is kept as diagnostic text.
const maxBody = 1 << 20

// Submitter posts JSON records to the collection endpoints. It never retries.
type Submitter struct {
	client        *http.Client
	signingSecret string
	userAgent     string
}

// Option configures a Submitter.
type Option func(*Submitter)

// WithHTTPClient replaces the default client (10s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(s *Submitter) { s.client = c }
}

// WithSigningSecret signs every body; see SignatureHeader.
func WithSigningSecret(secret string) Option {
	return func(s *Submitter) { s.signingSecret = secret }
}

// New creates a Submitter.
func New(opts ...Option) *Submitter {
	s := &Submitter{
		client:    &http.Client{Timeout: 10 * time.Second},
		userAgent: "Clipper/1.0",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit POSTs body as JSON to endpoint and classifies the response.
//
// A 2xx status is accepted. Anything else, including a transport failure, is
// rejected with Err set and whatever response text could be read.
func (s *Submitter) Submit(ctx context.Context, endpoint string, body any) models.SubmissionResult {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.SubmissionResult{Err: fmt.Errorf("submitter: marshal body: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return models.SubmissionResult{Err: fmt.Errorf("submitter: create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	if s.signingSecret != "" {
		req.Header.Set(SignatureHeader, "sha256="+Sign(s.signingSecret, payload))
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return models.SubmissionResult{Err: fmt.Errorf("submitter: post %s: %w", endpoint, err)}
	}
	defer resp.Body.Close()

	// Reading the body is best effort; a failed read leaves an empty diagnostic.
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	result := models.SubmissionResult{
		StatusCode: resp.StatusCode,
		RawBody:    string(raw),
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		result.Err = fmt.Errorf("submitter: %s returned status %d", endpoint, resp.StatusCode)
		return result
	}

	result.Accepted = true
	result.AssignedID = assignedID(raw)
	return result
}

// SubmitArticle posts the base record.
func (s *Submitter) SubmitArticle(ctx context.Context, endpoint string, r models.ArticleRecord) models.SubmissionResult {
	return s.Submit(ctx, endpoint, r.Payload())
}

// SubmitTranslation posts one harvested translation.
func (s *Submitter) SubmitTranslation(ctx context.Context, endpoint string, p models.TranslationPayload) models.SubmissionResult {
	return s.Submit(ctx, endpoint, p)
}

// Sign returns the hex HMAC-SHA256 of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// assignedID extracts "article_id" from a JSON body. The receiver may send it
// as a number or a string; both are normalised to a string.
func assignedID(raw []byte) string {
	var probe struct {
		ArticleID json.RawMessage `json:"article_id"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil || len(probe.ArticleID) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(probe.ArticleID, &s); err == nil {
		return strings.TrimSpace(s)
	}

	var n json.Number
	if err := json.Unmarshal(probe.ArticleID, &n); err == nil {
		return n.String()
	}
	return ""
}
