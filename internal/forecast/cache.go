package forecast

import (
	"strings"
	"sync"
	"time"
)

// cacheTTL is how long a generated analysis stays valid. The inputs only
// change when the company profile changes, so repeated taps on the same
// button within this window reuse the previous answer instead of burning
// another generation round trip.
const cacheTTL = 30 * time.Minute

type cacheEntry struct {
	text      string
	expiresAt time.Time
}

type analysisCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

func newAnalysisCache(ttl time.Duration) *analysisCache {
	return &analysisCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *analysisCache) get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}

	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)

		return "", false
	}

	return entry.text, true
}

// put stores a result and sweeps expired entries while holding the lock, so
// the map does not grow with keys nobody asks for again.
func (c *analysisCache) put(key, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	for k, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, k)
		}
	}

	c.entries[key] = cacheEntry{text: text, expiresAt: now.Add(c.ttl)}
}

func cacheKey(parts ...string) string {
	return strings.Join(parts, "|")
}
