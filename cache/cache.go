// Package cache remembers recent clip reports so the same article is not
// submitted twice in quick succession.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/use-agent/clipper/models"
)

const (
	sweepEvery = 5 * time.Minute
	retention  = time.Hour
)

type entry struct {
	report    *models.ClipReport
	createdAt time.Time
}

// Cache holds finished reports keyed by source URL. It is safe for
// concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a Cache with room for maxEntries reports. A background sweep
// drops reports older than an hour until Close is called.
func New(maxEntries int) *Cache {
	c := &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        time.Now,
		stop:       make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

// Key derives the cache key for a source URL. Fragments and surrounding
// whitespace do not change the article, so they are ignored.
func Key(sourceURL string) string {
	u := strings.TrimSpace(sourceURL)
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	sum := sha256.Sum256([]byte(u))
	return hex.EncodeToString(sum[:])
}

// Get returns the report for key if it is younger than maxAgeMs. A
// non-positive maxAgeMs disables the lookup.
func (c *Cache) Get(key string, maxAgeMs int) (*models.ClipReport, bool) {
	if maxAgeMs <= 0 {
		return nil, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if c.now().Sub(e.createdAt) > time.Duration(maxAgeMs)*time.Millisecond {
		return nil, false
	}
	return e.report, true
}

// Set stores report under key. Only finished runs are kept: a failed run
// must be retried, not replayed. At capacity one arbitrary entry is evicted.
func (c *Cache) Set(key string, report *models.ClipReport) {
	if report == nil || report.Phase != models.PhaseDone || c.maxEntries <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		for k := range c.store {
			delete(c.store, k)
			break
		}
	}
	c.store[key] = &entry{report: report, createdAt: c.now()}
}

// Len reports how many reports are cached.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// Close stops the background sweep.
func (c *Cache) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	cutoff := c.now().Add(-retention)
	c.mu.Lock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
	c.mu.Unlock()
}
