package harvest

import (
	"context"
	"time"
)

// Fetcher retrieves a page with a plain HTTP client.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (Page, error)
}

// Renderer retrieves a page through a browser with script execution.
type Renderer interface {
	Render(ctx context.Context, rawURL string) (Page, error)
	Close(ctx context.Context) error
}

// ScrollRenderer is implemented by renderers that can expand infinite-scroll
// pages before serialization.
type ScrollRenderer interface {
	ScrollAndRender(ctx context.Context, rawURL string) (Page, error)
}

// PageFetcher is the mode-aware client the engine fetches through.
type PageFetcher interface {
	Fetch(ctx context.Context, rawURL string, mode FetchMode) (Page, error)
}

// RetryPolicy decides whether and when a failed fetch is retried.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// RobotsPolicy gates URLs on robots.txt directives.
type RobotsPolicy interface {
	Allowed(ctx context.Context, rawURL string) bool
}

// Strategy is one self-contained extraction algorithm. Extract is total: it
// never fails, it returns an empty slice when the page does not match.
type Strategy interface {
	Name() string
	Extract(page *ParsedPage, seed Seed) []RawRecord
}

// PageCache is a run-scoped cache of fetched pages.
type PageCache interface {
	Get(rawURL string) (Page, bool)
	Put(rawURL string, page Page)
}

// Clock returns the current time (swappable for tests).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
