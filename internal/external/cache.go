package external

import (
	"sync"
	"time"

	"github.com/fineflow77/btclti/internal/domain"
)

type cacheEntry struct {
	quote     domain.SpotQuote
	expiresAt time.Time
}

// quoteCache keeps the latest spot quote per currency for ttl.
type quoteCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	entries map[string]cacheEntry
}

func newQuoteCache(ttl time.Duration) *quoteCache {
	return &quoteCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
	}
}

func (c *quoteCache) get(currency string) (domain.SpotQuote, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[currency]
	if !ok || time.Now().After(entry.expiresAt) {
		return domain.SpotQuote{}, false
	}
	return entry.quote, true
}

// set caches q until ttl after its fetch time.
func (c *quoteCache) set(q domain.SpotQuote) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[q.Currency] = cacheEntry{
		quote:     q,
		expiresAt: q.FetchedAt.Add(c.ttl),
	}
}
