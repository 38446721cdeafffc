package harvest

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
)

// ErrRobotsDisallowed marks URLs the robots policy refused. Callers record
// these as skips, not failures.
var ErrRobotsDisallowed = errors.New("disallowed by robots.txt")

// Client is the mode-aware fetch front end: it consults the run cache and
// robots policy, retries with backoff, and falls back from rendered to static
// mode on rendered exhaustion (many sources serve usable static HTML even
// when script execution fails).
type Client struct {
	fetcher  Fetcher
	renderer Renderer
	retry    RetryPolicy
	robots   RobotsPolicy
	cache    PageCache
	logger   *zap.Logger
}

// NewClient wires the fetch stack. renderer and cache may be nil.
func NewClient(
	fetcher Fetcher,
	renderer Renderer,
	retry RetryPolicy,
	robots RobotsPolicy,
	cache PageCache,
	logger *zap.Logger,
) *Client {
	return &Client{
		fetcher:  fetcher,
		renderer: renderer,
		retry:    retry,
		robots:   robots,
		cache:    cache,
		logger:   logger,
	}
}

// Fetch retrieves a URL in the requested mode. On exhaustion it returns a
// *FetchError wrapping the last attempt's error.
func (c *Client) Fetch(ctx context.Context, rawURL string, mode FetchMode) (Page, error) {
	if c.cache != nil {
		if page, ok := c.cache.Get(rawURL); ok {
			return page, nil
		}
	}
	if c.robots != nil && !c.robots.Allowed(ctx, rawURL) {
		return Page{}, ErrRobotsDisallowed
	}

	page, err := c.fetchWithRetry(ctx, rawURL, mode)
	if err != nil && (mode == ModeRendered || mode == ModeScroll) {
		// One static retry before giving up on a rendered source.
		c.logger.Warn("rendered fetch exhausted; attempting static fallback",
			zap.String("url", rawURL), zap.Error(err))
		if staticPage, staticErr := c.fetcher.Fetch(ctx, rawURL); staticErr == nil {
			page, err = staticPage, nil
		}
	}
	if err != nil {
		return Page{}, &FetchError{URL: rawURL, LastErr: err}
	}

	if c.cache != nil {
		c.cache.Put(rawURL, page)
	}
	return page, nil
}

func (c *Client) fetchWithRetry(ctx context.Context, rawURL string, mode FetchMode) (Page, error) {
	var lastErr error
	for attempt := 0; ; attempt++ {
		page, err := c.fetchOnce(ctx, rawURL, mode)
		if err == nil {
			return page, nil
		}
		lastErr = err
		if !c.retry.ShouldRetry(err, attempt+1) {
			return Page{}, lastErr
		}
		if waitErr := sleepCtx(ctx, c.retry.Backoff(attempt)); waitErr != nil {
			return Page{}, waitErr
		}
		c.logger.Debug("retrying fetch",
			zap.String("url", rawURL), zap.Int("attempt", attempt+1), zap.Error(err))
	}
}

func (c *Client) fetchOnce(ctx context.Context, rawURL string, mode FetchMode) (Page, error) {
	switch mode {
	case ModeRendered:
		if c.renderer == nil {
			return Page{}, ErrRendererDisabled
		}
		return c.renderer.Render(ctx, rawURL)
	case ModeScroll:
		if c.renderer == nil {
			return Page{}, ErrRendererDisabled
		}
		if sr, ok := c.renderer.(ScrollRenderer); ok {
			return sr.ScrollAndRender(ctx, rawURL)
		}
		return c.renderer.Render(ctx, rawURL)
	default:
		return c.fetcher.Fetch(ctx, rawURL)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
