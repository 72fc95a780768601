package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/use-agent/clipper/config"
	"github.com/use-agent/clipper/models"
)

type okRunner struct{}

func (okRunner) Run(_ context.Context, u string) (*models.ClipReport, error) {
	return &models.ClipReport{SourceURL: u, Phase: models.PhaseDone}, nil
}

func TestRouter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.Default()
	cfg.Server.Mode = "test"
	cfg.Auth.APIKeys = []string{"key"}
	r := NewRouter(ctx, okRunner{}, nil, cfg, nil, time.Now())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	if w.Code != http.StatusOK {
		t.Errorf("health without auth: %d", w.Code)
	}

	body := `{"url":"https://www.nikkei.com/article/A"}`
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/clip", strings.NewReader(body)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("clip without key: %d", w.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/clip", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", "key")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("clip with key: %d %s", w.Code, w.Body.String())
	}
}
