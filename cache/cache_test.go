package cache

import (
	"testing"
	"time"

	"github.com/use-agent/clipper/models"
)

func done(url string) *models.ClipReport {
	return &models.ClipReport{SourceURL: url, Phase: models.PhaseDone}
}

func TestCache_GetSet(t *testing.T) {
	c := New(10)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }

	key := Key("https://www.nikkei.com/article/A")
	c.Set(key, done("https://www.nikkei.com/article/A"))

	if _, ok := c.Get(key, 0); ok {
		t.Error("maxAge 0 must skip the cache")
	}
	if r, ok := c.Get(key, 1000); !ok || r.SourceURL != "https://www.nikkei.com/article/A" {
		t.Errorf("expected hit, got %v %v", r, ok)
	}

	now = now.Add(2 * time.Second)
	if _, ok := c.Get(key, 1000); ok {
		t.Error("stale entry returned")
	}
}

func TestCache_SkipsUnfinishedRuns(t *testing.T) {
	c := New(10)
	defer c.Close()

	c.Set("k", &models.ClipReport{Phase: models.PhaseFailed})
	c.Set("k2", nil)
	if c.Len() != 0 {
		t.Errorf("only finished reports are cached, have %d", c.Len())
	}
}

func TestCache_Eviction(t *testing.T) {
	c := New(2)
	defer c.Close()

	c.Set("a", done("a"))
	c.Set("b", done("b"))
	c.Set("b", done("b2"))
	if c.Len() != 2 {
		t.Fatalf("overwrite must not evict, len %d", c.Len())
	}
	c.Set("c", done("c"))
	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
	if _, ok := c.Get("c", 60_000); !ok {
		t.Error("newest entry missing")
	}
}

func TestCache_Sweep(t *testing.T) {
	c := New(10)
	defer c.Close()

	now := time.Now()
	c.now = func() time.Time { return now }
	c.Set("old", done("old"))

	now = now.Add(2 * time.Hour)
	c.Set("new", done("new"))
	c.sweep()

	if c.Len() != 1 {
		t.Errorf("len = %d, want 1", c.Len())
	}
}

func TestKey(t *testing.T) {
	a := Key("https://www.nikkei.com/article/A")
	if a != Key("  https://www.nikkei.com/article/A#comments ") {
		t.Error("fragment and whitespace should not change the key")
	}
	if a == Key("https://www.nikkei.com/article/B") {
		t.Error("different articles share a key")
	}
}
