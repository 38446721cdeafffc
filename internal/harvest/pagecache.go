package harvest

import (
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// TTLPageCache is a run-scoped cache of fetched pages. It replaces the
// ambient process-wide cache the scrapers used to share: the cache is built
// per run and injected into the engine, so two runs never see each other's
// entries.
type TTLPageCache struct {
	c *gocache.Cache
}

// NewTTLPageCache builds a cache whose entries expire after ttl.
func NewTTLPageCache(ttl time.Duration) *TTLPageCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &TTLPageCache{
		c: gocache.New(ttl, ttl),
	}
}

// Get returns the cached page for a URL, if present and unexpired.
func (p *TTLPageCache) Get(rawURL string) (Page, bool) {
	v, ok := p.c.Get(rawURL)
	if !ok {
		return Page{}, false
	}
	page, ok := v.(Page)
	return page, ok
}

// Put stores a fetched page under its URL.
func (p *TTLPageCache) Put(rawURL string, page Page) {
	p.c.SetDefault(rawURL, page)
}

// Flush drops every entry. Exposed for explicit invalidation mid-run.
func (p *TTLPageCache) Flush() {
	p.c.Flush()
}
