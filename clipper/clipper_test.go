package clipper

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/clipper/config"
	"github.com/use-agent/clipper/engine"
	"github.com/use-agent/clipper/models"
	"github.com/use-agent/clipper/submitter"
	"github.com/use-agent/clipper/window/windowtest"
)

const (
	sourceURL = "https://www.nikkei.com/article/DGXZQOUC24ABC0U4A120C2000000/"
	token     = "DGXZQOUC24ABC0U4A120C2000000"

	sourceHTML = `<html><body><div class="cmn-section">
<h1 class="cmn-article_title">X</h1>
<dl class="cmn-article_status"><dd class="cmnc-publish">2024-01-01</dd></dl>
<div class="cmn-article_text"><p>First paragraph.</p><p>Second paragraph.</p></div>
</div></body></html>`

	enURL = "https://www.nikkei.com/news/article-translation/?ng=" + token
	zhURL = "https://www.nikkei.com/news/article-translation/?bf=0&ng=" + token + "&mta=c"
)

func translatedPage(text string) string {
	return `<html><body><div id="engDiffBox"><p>` + text + `</p></div></body></html>`
}

// staticEngine serves fixed markup for every source URL.
type staticEngine struct {
	html string
	err  error
}

func (e staticEngine) Name() string { return "static" }

func (e staticEngine) Fetch(_ context.Context, req *engine.FetchRequest) (*engine.FetchResult, error) {
	if e.err != nil {
		return nil, e.err
	}
	return &engine.FetchResult{HTML: e.html, FinalURL: req.URL, EngineName: e.Name()}, nil
}

// receiver records every payload posted to the collection endpoints.
type receiver struct {
	mu           sync.Mutex
	articles     []models.ArticlePayload
	translations []models.TranslationPayload

	baseStatus int
	baseBody   string
	rejectLang string
}

func (rc *receiver) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/articles", func(w http.ResponseWriter, r *http.Request) {
		var p models.ArticlePayload
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &p)
		rc.mu.Lock()
		rc.articles = append(rc.articles, p)
		rc.mu.Unlock()

		status := rc.baseStatus
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, rc.baseBody)
	})
	mux.HandleFunc("/translations", func(w http.ResponseWriter, r *http.Request) {
		var p models.TranslationPayload
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &p)
		rc.mu.Lock()
		rc.translations = append(rc.translations, p)
		rc.mu.Unlock()

		if p.LanguageTag == rc.rejectLang {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func (rc *receiver) snapshot() ([]models.ArticlePayload, []models.TranslationPayload) {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]models.ArticlePayload(nil), rc.articles...),
		append([]models.TranslationPayload(nil), rc.translations...)
}

func testConfig(srv *httptest.Server) config.ClipperConfig {
	cfg := config.Default().Clipper
	cfg.BaseEndpoint = srv.URL + "/articles"
	cfg.TranslationEndpoint = srv.URL + "/translations"
	cfg.AuthToken = "s3cret"
	cfg.PollTimeout = 300 * time.Millisecond
	cfg.PollInterval = 10 * time.Millisecond
	cfg.InterTargetDelayMin = 0
	cfg.InterTargetDelayMax = 0
	cfg.CheckLanguage = false
	return cfg
}

func newClipper(t *testing.T, cfg config.ClipperConfig, opener *windowtest.Opener, opts ...Option) *Clipper {
	t.Helper()
	c, err := New(cfg, staticEngine{html: sourceHTML}, opener, submitter.New(), opts...)
	require.NoError(t, err)
	return c
}

func TestRun_EndToEnd(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	en := windowtest.Ready(enURL, translatedPage("English text"), 2)
	zh := windowtest.Ready(zhURL, translatedPage("中文内容"), 0)
	opener := windowtest.NewOpener().Add(en).Add(zh)

	var statuses []string
	var mu sync.Mutex
	c := newClipper(t, testConfig(srv), opener, WithStatusFunc(func(_ models.Phase, s string) {
		mu.Lock()
		statuses = append(statuses, s)
		mu.Unlock()
	}))

	report, err := c.Run(context.Background(), sourceURL)
	require.NoError(t, err)

	articles, translations := rc.snapshot()
	require.Len(t, articles, 1)
	assert.Equal(t, "X", articles[0].Title)
	assert.Equal(t, "2024-01-01", articles[0].Publish)
	assert.Equal(t, sourceURL, articles[0].URL)
	assert.Equal(t, "s3cret", articles[0].AuthToken)
	assert.Equal(t, "<p>First paragraph.</p>\n<p>Second paragraph.</p>\n", articles[0].Text)

	assert.Equal(t, []string{enURL, zhURL}, opener.Opened())

	require.Len(t, translations, 2)
	langs := map[string]bool{}
	for _, tr := range translations {
		assert.Equal(t, "42", tr.ArticleID)
		assert.Equal(t, "s3cret", tr.AuthToken)
		assert.Contains(t, tr.HTML, `id="engDiffBox"`)
		langs[tr.LanguageTag] = true
	}
	assert.Equal(t, map[string]bool{"en": true, "zh": true}, langs)

	assert.Equal(t, models.PhaseDone, report.Phase)
	assert.Equal(t, "42", report.ArticleID)
	assert.Equal(t, 2, report.Submitted())
	assert.NotEmpty(t, report.RunID)
	assert.NotEmpty(t, report.Preview)
	assert.Empty(t, report.Warnings)
	assert.Equal(t, 1, en.Releases())
	assert.Equal(t, 1, zh.Releases())

	mu.Lock()
	defer mu.Unlock()
	assert.ElementsMatch(t, report.Statuses, statuses)
	assert.Equal(t, "Extracting article", statuses[0])
	assert.Equal(t, "Done: 2 of 2 translations submitted", statuses[len(statuses)-1])
	assert.Contains(t, statuses, "Submitting en translation")
	assert.Contains(t, statuses, "Submitting zh translation")
}

func TestRun_MissingArticleIDAborts(t *testing.T) {
	rc := &receiver{baseBody: `{"ok":true}`}
	srv := rc.server(t)
	opener := windowtest.NewOpener()

	report, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)

	var ce *models.ClipError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.ErrCodeMissingArticleID, ce.Code)
	assert.Equal(t, models.PhaseFailed, report.Phase)
	assert.Empty(t, opener.Opened(), "no window may open without an article id")

	_, translations := rc.snapshot()
	assert.Empty(t, translations)
}

func TestRun_BaseRejectedAborts(t *testing.T) {
	rc := &receiver{baseStatus: http.StatusForbidden, baseBody: `bad token`}
	srv := rc.server(t)
	opener := windowtest.NewOpener()

	_, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)

	var ce *models.ClipError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.ErrCodeRejected, ce.Code)
	assert.Empty(t, opener.Opened())

	articles, _ := rc.snapshot()
	assert.Len(t, articles, 1, "base submission is never retried")
}

func TestRun_BaseNetworkFailureAborts(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	cfg := testConfig(srv)
	srv.Close()

	opener := windowtest.NewOpener()
	_, err := newClipper(t, cfg, opener).Run(context.Background(), sourceURL)

	var ce *models.ClipError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, models.ErrCodeNetworkFailure, ce.Code)
	assert.Empty(t, opener.Opened())
}

func TestRun_SourceLoadFailure(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	loadErr := models.NewClipError(models.ErrCodeTimeout, "source timed out", context.DeadlineExceeded)
	c, err := New(testConfig(srv), staticEngine{err: loadErr}, windowtest.NewOpener(), submitter.New())
	require.NoError(t, err)

	report, err := c.Run(context.Background(), sourceURL)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, models.PhaseFailed, report.Phase)

	articles, _ := rc.snapshot()
	assert.Empty(t, articles, "nothing is submitted before extraction succeeds")
}

func TestRun_BlockedTargetDoesNotStopSibling(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":42}`}
	srv := rc.server(t)

	zh := windowtest.Ready(zhURL, translatedPage("中文内容"), 1)
	opener := windowtest.NewOpener().Block(enURL).Add(zh)

	report, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)
	require.NoError(t, err)

	_, translations := rc.snapshot()
	require.Len(t, translations, 1)
	assert.Equal(t, "zh", translations[0].LanguageTag)
	assert.Equal(t, "42", translations[0].ArticleID)

	require.Len(t, report.Targets, 2)
	assert.Equal(t, models.TargetBlocked, report.Targets[0].Status)
	assert.Equal(t, models.TargetSubmitted, report.Targets[1].Status)
	assert.Empty(t, report.Warnings)
}

func TestRun_TimeoutDoesNotStopSibling(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	en := windowtest.Unreadable(enURL)
	zh := windowtest.Ready(zhURL, translatedPage("中文内容"), 0)
	opener := windowtest.NewOpener().Add(en).Add(zh)

	report, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)
	require.NoError(t, err)

	_, translations := rc.snapshot()
	require.Len(t, translations, 1)
	assert.Equal(t, "zh", translations[0].LanguageTag)

	assert.Equal(t, models.TargetTimedOut, report.Targets[0].Status)
	assert.Zero(t, report.Targets[0].HarvestBytes)
	assert.GreaterOrEqual(t, report.Targets[0].PollMs, int64(300))
	assert.Equal(t, 1, en.Releases())
}

func TestRun_AllBlockedWarns(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)
	opener := windowtest.NewOpener()

	report, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)
	require.NoError(t, err, "blocked windows never fail the run")

	assert.Equal(t, models.PhaseDone, report.Phase)
	assert.Equal(t, []string{"all translation windows were blocked"}, report.Warnings)
	assert.Len(t, opener.Opened(), 2)

	_, translations := rc.snapshot()
	assert.Empty(t, translations)
}

func TestRun_ClosedWindowSkipsSubmission(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	en := windowtest.Unreadable(enURL)
	en.CloseAfter = 2
	zh := windowtest.Ready(zhURL, `<html><body><p>no marker here</p></body></html>`, 0)
	opener := windowtest.NewOpener().Add(en).Add(zh)

	report, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)
	require.NoError(t, err)

	_, translations := rc.snapshot()
	assert.Empty(t, translations, "empty harvests are never submitted")
	assert.Equal(t, models.TargetClosed, report.Targets[0].Status)
	assert.Equal(t, models.TargetTimedOut, report.Targets[1].Status)
	assert.Equal(t, "Done: 0 of 2 translations submitted", report.Statuses[len(report.Statuses)-1])
}

func TestRun_RejectedTranslationIsSkipped(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`, rejectLang: "en"}
	srv := rc.server(t)

	opener := windowtest.NewOpener().
		Add(windowtest.Ready(enURL, translatedPage("English"), 0)).
		Add(windowtest.Ready(zhURL, translatedPage("中文"), 0))

	report, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)
	require.NoError(t, err)

	assert.Equal(t, models.TargetRejected, report.Targets[0].Status)
	assert.NotEmpty(t, report.Targets[0].Detail)
	assert.Equal(t, models.TargetSubmitted, report.Targets[1].Status)
	assert.Equal(t, models.PhaseDone, report.Phase)
}

type fixedDetector string

func (d fixedDetector) Detect(string) (string, bool) { return string(d), true }

func TestRun_LanguageMismatchWarnsButSubmits(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	opener := windowtest.NewOpener().
		Add(windowtest.Ready(enURL, translatedPage("トヨタは通期の営業利益予想を上方修正した"), 0)).
		Add(windowtest.Ready(zhURL, translatedPage("日銀は金融政策の現状維持を決めた"), 0))

	report, err := newClipper(t, testConfig(srv), opener, WithLanguageDetector(fixedDetector("ja"))).
		Run(context.Background(), sourceURL)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Submitted())
	assert.Len(t, report.Warnings, 2)
	for _, o := range report.Targets {
		assert.Equal(t, "ja", o.DetectedLanguage)
	}
}

func TestRun_NearIdenticalHarvestsWarn(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	same := translatedPage("Toyota raised its full-year operating profit forecast")
	opener := windowtest.NewOpener().
		Add(windowtest.Ready(enURL, same, 0)).
		Add(windowtest.Ready(zhURL, same, 0))

	report, err := newClipper(t, testConfig(srv), opener).Run(context.Background(), sourceURL)
	require.NoError(t, err)

	assert.Equal(t, 2, report.Submitted(), "duplicates are still submitted")
	assert.Equal(t, []string{"en and zh translations are near-identical"}, report.Warnings)
	assert.Equal(t, report.Targets[0].Fingerprint, report.Targets[1].Fingerprint)
}

type recordingNotifier struct {
	mu      sync.Mutex
	reports []*models.ClipReport
}

func (n *recordingNotifier) Notify(r *models.ClipReport) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.reports = append(n.reports, r)
}

func TestRun_NotifiesOnDoneAndFailure(t *testing.T) {
	ok := &receiver{baseBody: `{"article_id":"42"}`}
	bad := &receiver{baseBody: `{}`}
	n := &recordingNotifier{}

	_, err := newClipper(t, testConfig(ok.server(t)), windowtest.NewOpener(), WithNotifier(n)).Run(context.Background(), sourceURL)
	require.NoError(t, err)
	_, err = newClipper(t, testConfig(bad.server(t)), windowtest.NewOpener(), WithNotifier(n)).Run(context.Background(), sourceURL)
	require.Error(t, err)

	require.Len(t, n.reports, 2)
	assert.Equal(t, models.PhaseDone, n.reports[0].Phase)
	assert.Equal(t, models.PhaseFailed, n.reports[1].Phase)
}

func TestRun_DelayBetweenOpenings(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	opener := windowtest.NewOpener().
		Add(windowtest.Ready(enURL, translatedPage("English"), 0)).
		Add(windowtest.Ready(zhURL, translatedPage("中文"), 0))

	calls := 0
	c := newClipper(t, testConfig(srv), opener, WithDelayFunc(func() time.Duration {
		calls++
		return 20 * time.Millisecond
	}))

	_, err := c.Run(context.Background(), sourceURL)
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "one pause between two openings")
}

func TestRun_CanceledDuringDelaySkipsRest(t *testing.T) {
	rc := &receiver{baseBody: `{"article_id":"42"}`}
	srv := rc.server(t)

	opener := windowtest.NewOpener().
		Add(windowtest.Unreadable(enURL)).
		Add(windowtest.Ready(zhURL, translatedPage("中文"), 0))

	ctx, cancel := context.WithCancel(context.Background())
	c := newClipper(t, testConfig(srv), opener, WithDelayFunc(func() time.Duration {
		cancel()
		return time.Second
	}))

	report, err := c.Run(ctx, sourceURL)
	require.NoError(t, err)
	assert.Equal(t, []string{enURL}, opener.Opened())
	assert.Equal(t, models.TargetSkipped, report.Targets[1].Status)
	assert.True(t, errors.Is(ctx.Err(), context.Canceled))
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := config.Default().Clipper
	_, err := New(cfg, staticEngine{}, windowtest.NewOpener(), submitter.New())
	assert.Error(t, err, "endpoints are required")

	cfg.BaseEndpoint, cfg.TranslationEndpoint, cfg.AuthToken = "http://a", "http://b", "t"
	cfg.MarkerSelector = "div[["
	_, err = New(cfg, staticEngine{}, windowtest.NewOpener(), submitter.New())
	assert.Error(t, err, "invalid marker")
}

func TestRandomDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), randomDelay(0, 0))
	assert.Equal(t, time.Second, randomDelay(time.Second, time.Second))
	for range 100 {
		d := randomDelay(400*time.Millisecond, 2500*time.Millisecond)
		assert.GreaterOrEqual(t, d, 400*time.Millisecond)
		assert.LessOrEqual(t, d, 2500*time.Millisecond)
	}
}
