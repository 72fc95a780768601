package webhook

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/use-agent/clipper/models"
	"github.com/use-agent/clipper/submitter"
)

func TestNotify_SignedEvent(t *testing.T) {
	var got Event
	var sig string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		sig = r.Header.Get(submitter.SignatureHeader)
		if want := "sha256=" + submitter.Sign("hook", body); sig != want {
			t.Errorf("signature %q, want %q", sig, want)
		}
		_ = json.Unmarshal(body, &got)
	}))
	defer srv.Close()

	n := New(srv.URL, "hook")
	n.Notify(&models.ClipReport{RunID: "r1", Phase: models.PhaseDone, ArticleID: "42"})
	n.Wait()

	if got.Type != EventDone || got.RunID != "r1" || got.Report == nil || got.Report.ArticleID != "42" {
		t.Errorf("unexpected event: %+v", got)
	}
}

func TestNotify_Retries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	n := New(srv.URL, "")
	n.delays = []time.Duration{0, time.Millisecond, time.Millisecond, time.Millisecond}
	n.Notify(&models.ClipReport{RunID: "r2", Phase: models.PhaseFailed})
	n.Wait()

	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestNewEvent(t *testing.T) {
	if e := NewEvent(&models.ClipReport{Phase: models.PhaseFailed}); e.Type != EventFailed {
		t.Errorf("type = %s", e.Type)
	}
	if e := NewEvent(&models.ClipReport{Phase: models.PhaseDone}); e.Type != EventDone {
		t.Errorf("type = %s", e.Type)
	}
}
