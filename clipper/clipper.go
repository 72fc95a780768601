// Package clipper runs the clip pipeline: load and extract the source
// article, submit it, then harvest and submit each translation.
package clipper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"
	"github.com/use-agent/clipper/config"
	"github.com/use-agent/clipper/engine"
	"github.com/use-agent/clipper/extractor"
	"github.com/use-agent/clipper/langcheck"
	"github.com/use-agent/clipper/models"
	"github.com/use-agent/clipper/poller"
	"github.com/use-agent/clipper/simhash"
	"github.com/use-agent/clipper/submitter"
	"github.com/use-agent/clipper/window"
)

// StatusFunc receives a human-readable status line at every phase
// transition. It may be called from several goroutines at once.
type StatusFunc func(phase models.Phase, status string)

// Notifier is told about every finished run, failed ones included.
type Notifier interface {
	Notify(report *models.ClipReport)
}

// Clipper wires the pipeline components together. One Clipper can serve
// many runs concurrently.
type Clipper struct {
	cfg          config.ClipperConfig
	loader       engine.Engine
	opener       window.Opener
	sub          *submitter.Submitter
	poller       *poller.Poller
	detector     langcheck.Detector
	status       StatusFunc
	notifier     Notifier
	delay        func() time.Duration
	fetchTimeout time.Duration
}

// Option configures a Clipper.
type Option func(*Clipper)

// WithStatusFunc sets the status side channel.
func WithStatusFunc(fn StatusFunc) Option {
	return func(c *Clipper) {
		if fn != nil {
			c.status = fn
		}
	}
}

// WithNotifier announces finished runs, for example through a webhook.
func WithNotifier(n Notifier) Option {
	return func(c *Clipper) { c.notifier = n }
}

// WithLanguageDetector replaces the lingua detector used to check harvests.
func WithLanguageDetector(d langcheck.Detector) Option {
	return func(c *Clipper) { c.detector = d }
}

// WithDelayFunc replaces the random pause taken between two window openings.
func WithDelayFunc(fn func() time.Duration) Option {
	return func(c *Clipper) { c.delay = fn }
}

// WithFetchTimeout bounds loading the source article.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Clipper) { c.fetchTimeout = d }
}

// New validates cfg and returns a Clipper.
func New(cfg config.ClipperConfig, loader engine.Engine, opener window.Opener, sub *submitter.Submitter, opts ...Option) (*Clipper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if loader == nil || opener == nil || sub == nil {
		return nil, errors.New("clipper: loader, opener and submitter are required")
	}
	p, err := poller.New(cfg.MarkerSelector, cfg.PollTimeout, cfg.PollInterval)
	if err != nil {
		return nil, err
	}

	c := &Clipper{
		cfg:    cfg,
		loader: loader,
		opener: opener,
		sub:    sub,
		poller: p,
		status: func(models.Phase, string) {},
	}
	c.delay = func() time.Duration { return randomDelay(cfg.InterTargetDelayMin, cfg.InterTargetDelayMax) }
	if cfg.CheckLanguage {
		c.detector = langcheck.NewLingua()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run clips sourceURL. The returned report is never nil; err is a
// *models.ClipError when the run failed before any translation work began.
func (c *Clipper) Run(ctx context.Context, sourceURL string) (*models.ClipReport, error) {
	r := &run{
		c: c,
		report: &models.ClipReport{
			RunID:     uuid.NewString(),
			SourceURL: sourceURL,
			Phase:     models.PhaseIdle,
			StartedAt: time.Now(),
		},
	}
	r.log = slog.With("run_id", r.report.RunID, "url", sourceURL)

	r.advance(models.PhaseExtracting, "Extracting article")
	record, err := c.extract(ctx, r, sourceURL)
	if err != nil {
		return r.fail(err)
	}
	r.report.Record = &record

	r.advance(models.PhaseSubmittingBase, "Submitting article")
	res := c.sub.SubmitArticle(ctx, c.cfg.BaseEndpoint, record)
	if !res.Accepted {
		code := models.ErrCodeRejected
		if res.StatusCode == 0 {
			code = models.ErrCodeNetworkFailure
		}
		return r.fail(models.NewClipError(code, "base submission failed", res.Err))
	}
	if res.AssignedID == "" {
		return r.fail(models.NewClipError(models.ErrCodeMissingArticleID,
			"base submission returned no article id", nil))
	}
	r.report.ArticleID = res.AssignedID
	r.log = r.log.With("article_id", res.AssignedID)

	targets := DeriveTargets(sourceURL, c.cfg.Templates)
	r.report.Targets = make([]models.TargetOutcome, len(targets))
	c.auxiliary(ctx, r, targets)

	return r.done(), nil
}

// extract loads the source page and builds the record from it.
func (c *Clipper) extract(ctx context.Context, r *run, sourceURL string) (models.ArticleRecord, error) {
	page, err := c.loader.Fetch(ctx, &engine.FetchRequest{URL: sourceURL, Timeout: c.fetchTimeout})
	if err != nil {
		return models.ArticleRecord{}, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return models.ArticleRecord{}, models.NewClipError(models.ErrCodeSourceLoad, "source markup could not be parsed", err)
	}

	record := extractor.Extract(doc, sourceURL, c.cfg.AuthToken)
	if record.Title == extractor.NoTitle {
		r.log.Warn("title selectors matched nothing", "code", models.ErrCodeExtractionMiss)
	}
	if record.BodyHTML == "" {
		r.log.Warn("body selectors matched nothing", "code", models.ErrCodeExtractionMiss)
	}

	if preview, err := extractor.Preview(record); err != nil {
		r.log.Debug("preview render failed", "error", err)
	} else {
		r.report.Preview = preview
	}
	r.log.Info("article extracted", "engine", page.EngineName, "title", record.Title, "tag", record.Tag, "body_bytes", len(record.BodyHTML))
	return record, nil
}

// auxiliary opens the targets one after another and polls each in its own
// goroutine as soon as it is open. It returns when every poll and
// submission has settled.
func (c *Clipper) auxiliary(ctx context.Context, r *run, targets []models.AuxiliaryTarget) {
	r.advance(models.PhaseOpeningAuxiliary, fmt.Sprintf("Opening %d translation windows", len(targets)))

	var wg sync.WaitGroup
	blocked := 0
	for i, t := range targets {
		if i > 0 {
			if err := sleep(ctx, c.delay()); err != nil {
				for j := i; j < len(targets); j++ {
					r.report.Targets[j] = models.TargetOutcome{Target: targets[j], Status: models.TargetSkipped, Detail: err.Error()}
				}
				break
			}
		}

		h, err := c.opener.Open(ctx, t.DerivedURL)
		if err != nil {
			r.log.Warn("translation window blocked", "language", t.LanguageTag, "target", t.DerivedURL, "code", models.ErrCodeWindowBlocked, "error", err)
			r.report.Targets[i] = models.TargetOutcome{Target: t, Status: models.TargetBlocked, Detail: err.Error()}
			blocked++
			continue
		}

		wg.Add(1)
		go func(i int, t models.AuxiliaryTarget, h window.Handle) {
			defer wg.Done()
			r.report.Targets[i] = c.harvest(ctx, r, t, h)
		}(i, t, h)
	}

	if len(targets) > 0 && blocked == len(targets) {
		r.warn("all translation windows were blocked")
	}

	r.advance(models.PhasePolling, "Waiting for translations")
	wg.Wait()

	for _, pair := range duplicates(r.report.Targets) {
		r.warn(fmt.Sprintf("%s and %s translations are near-identical", pair[0], pair[1]))
	}
}

// duplicates lists pairs of language tags whose harvests fingerprint as the
// same text, as when a site serves one language for every translation page.
func duplicates(outcomes []models.TargetOutcome) [][2]string {
	var pairs [][2]string
	for i := range outcomes {
		a, ok := parseFingerprint(outcomes[i].Fingerprint)
		if !ok {
			continue
		}
		for j := i + 1; j < len(outcomes); j++ {
			b, ok := parseFingerprint(outcomes[j].Fingerprint)
			if ok && simhash.Similar(a, b, simhash.DuplicateThreshold) {
				pairs = append(pairs, [2]string{outcomes[i].Target.LanguageTag, outcomes[j].Target.LanguageTag})
			}
		}
	}
	return pairs
}

func parseFingerprint(s string) (uint64, bool) {
	if s == "" {
		return 0, false
	}
	fp, err := strconv.ParseUint(s, 16, 64)
	return fp, err == nil && fp != 0
}

// harvest polls one window and submits its content if any was found.
func (c *Clipper) harvest(ctx context.Context, r *run, t models.AuxiliaryTarget, h window.Handle) models.TargetOutcome {
	log := r.log.With("language", t.LanguageTag)
	hv := c.poller.Poll(ctx, h)
	out := models.TargetOutcome{
		Target:       t,
		HarvestBytes: len(hv.HTML),
		PollMs:       hv.Elapsed.Milliseconds(),
	}

	if hv.Empty() {
		out.Status = models.TargetTimedOut
		if hv.State == poller.Closed {
			out.Status = models.TargetClosed
		}
		if hv.Err != nil {
			out.Detail = hv.Err.Error()
		}
		log.Warn("empty harvest, skipping translation", "state", hv.State, "reads", hv.Reads, "code", models.ErrCodePollTimeout, "error", hv.Err)
		return out
	}

	text := langcheck.Text(hv.HTML)
	out.Fingerprint = fmt.Sprintf("%016x", simhash.Fingerprint(text))

	if c.detector != nil {
		if code, ok := c.detector.Detect(text); ok {
			out.DetectedLanguage = code
			if !langcheck.Matches(t.LanguageTag, code) {
				r.warn(fmt.Sprintf("%s translation looks like %q", t.LanguageTag, code))
				log.Warn("harvest language mismatch", "detected", code)
			}
		}
	}

	r.advance(models.PhaseSubmittingAuxiliary, fmt.Sprintf("Submitting %s translation", t.LanguageTag))
	res := c.sub.SubmitTranslation(ctx, c.cfg.TranslationEndpoint, models.TranslationPayload{
		ArticleID:   r.report.ArticleID,
		LanguageTag: t.LanguageTag,
		HTML:        hv.HTML,
		AuthToken:   c.cfg.AuthToken,
	})
	if !res.Accepted {
		out.Status = models.TargetRejected
		if res.Err != nil {
			out.Detail = res.Err.Error()
		}
		log.Warn("translation submission rejected", "status", res.StatusCode, "body", res.RawBody, "error", res.Err)
		return out
	}

	out.Status = models.TargetSubmitted
	log.Info("translation submitted", "bytes", out.HarvestBytes, "poll_ms", out.PollMs)
	return out
}

// randomDelay returns a uniform duration in [lo, hi].
func randomDelay(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + rand.N(hi-lo+1)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
