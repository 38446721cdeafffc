package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type fixedIDs struct {
	id string
}

func (g fixedIDs) NewID() (string, error) { return g.id, nil }

// fakePageFetcher serves canned pages keyed by URL and records every fetch.
type fakePageFetcher struct {
	mu      sync.Mutex
	pages   map[string]string
	fetched []string
}

func (f *fakePageFetcher) Fetch(_ context.Context, rawURL string, _ FetchMode) (Page, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, rawURL)
	body, ok := f.pages[rawURL]
	f.mu.Unlock()
	if !ok {
		return Page{}, &FetchError{URL: rawURL, LastErr: errors.New("connection refused")}
	}
	return Page{
		URL:        rawURL,
		FinalURL:   rawURL,
		StatusCode: http.StatusOK,
		Body:       []byte(body),
	}, nil
}

func (f *fakePageFetcher) fetchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.fetched)
}

func cardPage(name, link string) string {
	return fmt.Sprintf(`<html><body>
		<div class="scheme-card">
			<h3 class="scheme-title">%s</h3>
			<p class="scheme-description">Benefit scheme description.</p>
			<a class="scheme-link" href="%s">Details</a>
		</div>
	</body></html>`, name, link)
}

func cardPageWithNext(name, link, next string) string {
	return fmt.Sprintf(`<html><body>
		<div class="scheme-card">
			<h3 class="scheme-title">%s</h3>
			<p class="scheme-description">Benefit scheme description.</p>
			<a class="scheme-link" href="%s">Details</a>
		</div>
		<a rel="next" href="%s">Next</a>
	</body></html>`, name, link, next)
}

func testEngineConfig() Config {
	return Config{
		Regions:           nil,
		UserAgent:         "test-agent",
		MaxRetries:        1,
		RetryBaseDelay:    time.Millisecond,
		RequestTimeout:    time.Second,
		MaxPagesPerSource: 10,
		Concurrency:       2,
		MaxBodyBytes:      1 << 20,
		RenderTimeout:     time.Second,
		OutputDir:         "unused",
	}
}

func newTestEngine(cfg Config, data Dataset, fetcher PageFetcher) *Engine {
	logger := zap.NewNop()
	return NewEngine(
		cfg,
		data,
		fetcher,
		NewChain(data, logger),
		NewNormalizer(data),
		NewRegionResolver(data),
		NewDeduplicator(),
		fixedClock{now: time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC)},
		fixedIDs{id: "run-test"},
		logger,
	)
}

func TestEngine_Run_NoSeeds(t *testing.T) {
	data := DefaultDataset()
	data.Seeds = nil
	engine := newTestEngine(testEngineConfig(), data, &fakePageFetcher{})

	_, err := engine.Run(context.Background())
	require.ErrorIs(t, err, ErrNoSeeds)
}

func TestEngine_Run_PartialFailureIsContained(t *testing.T) {
	data := DefaultDataset()
	data.Seeds = []Seed{
		{URL: "https://a.gov.in/schemes", Kind: SeedCurated},
		{URL: "https://b.gov.in/schemes", Kind: SeedCurated},
		{URL: "https://c.gov.in/schemes", Kind: SeedCurated},
		{URL: "https://dead1.gov.in/schemes", Kind: SeedCurated},
		{URL: "https://dead2.gov.in/schemes", Kind: SeedCurated},
	}
	fetcher := &fakePageFetcher{pages: map[string]string{
		"https://a.gov.in/schemes": cardPage("Scheme A", "/a"),
		"https://b.gov.in/schemes": cardPage("Scheme B", "/b"),
		"https://c.gov.in/schemes": cardPage("Scheme C", "/c"),
	}}
	engine := newTestEngine(testEngineConfig(), data, fetcher)

	result, err := engine.Run(context.Background())
	require.NoError(t, err, "dead sources must not fail the run")
	require.Equal(t, "run-test", result.RunID)
	require.Len(t, result.Records, 3)
	require.Len(t, result.Failures, 2)
	require.Equal(t, 3, result.Stats.PagesVisited)
	require.Equal(t, 2, result.Stats.Errors)
	require.Equal(t, 3, result.Stats.UniqueRecords)
}

func TestEngine_Run_PaginationFollowsNextLinks(t *testing.T) {
	data := DefaultDataset()
	data.Seeds = []Seed{{URL: "https://a.gov.in/schemes?page=1", Kind: SeedCurated}}
	fetcher := &fakePageFetcher{pages: map[string]string{
		"https://a.gov.in/schemes?page=1": cardPageWithNext("Scheme One", "/s1", "/schemes?page=2"),
		"https://a.gov.in/schemes?page=2": cardPageWithNext("Scheme Two", "/s2", "/schemes?page=3"),
		"https://a.gov.in/schemes?page=3": cardPage("Scheme Three", "/s3"),
	}}
	engine := newTestEngine(testEngineConfig(), data, fetcher)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, result.Stats.PagesVisited)
	require.Len(t, result.Records, 3)
}

func TestEngine_Run_PaginationSafetyValve(t *testing.T) {
	// Every page links to a fresh next page; only the cap stops the crawl.
	data := DefaultDataset()
	data.Seeds = []Seed{{URL: "https://a.gov.in/schemes?page=1", Kind: SeedCurated}}

	pages := make(map[string]string)
	for i := 1; i <= 20; i++ {
		pages[fmt.Sprintf("https://a.gov.in/schemes?page=%d", i)] = cardPageWithNext(
			fmt.Sprintf("Scheme %d", i),
			fmt.Sprintf("/s%d", i),
			fmt.Sprintf("/schemes?page=%d", i+1),
		)
	}
	fetcher := &fakePageFetcher{pages: pages}

	cfg := testEngineConfig()
	cfg.MaxPagesPerSource = 3
	engine := newTestEngine(cfg, data, fetcher)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3, result.Stats.PagesVisited)
	require.Equal(t, 3, fetcher.fetchCount())
	require.Empty(t, result.Failures, "hitting the cap is partial success, not an error")
}

func TestEngine_Run_DuplicateAcrossSources(t *testing.T) {
	// The same scheme listed on two portals with tracking noise on one link
	// must collapse to a single record.
	data := DefaultDataset()
	data.Seeds = []Seed{
		{URL: "https://a.gov.in/schemes", Kind: SeedCurated, Region: "Central"},
		{URL: "https://b.gov.in/schemes", Kind: SeedCurated, Region: "Central"},
	}
	fetcher := &fakePageFetcher{pages: map[string]string{
		"https://a.gov.in/schemes": cardPage("PM Kisan", "https://pmkisan.gov.in/apply"),
		"https://b.gov.in/schemes": cardPage("PM KISAN", "https://pmkisan.gov.in/apply/?utm_source=portal"),
	}}
	engine := newTestEngine(testEngineConfig(), data, fetcher)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, 1, result.Stats.Duplicates)
	require.Len(t, result.Duplicates, 1)
}

func TestEngine_Run_MalformedRecordsAreCounted(t *testing.T) {
	data := DefaultDataset()
	data.Seeds = []Seed{{URL: "https://a.gov.in/schemes", Kind: SeedCurated}}
	// A card with no name in any candidate selector.
	body := `<html><body>
		<div class="scheme-card">
			<p class="scheme-description">An orphaned description mentioning a yojana.</p>
		</div>
		<div class="scheme-card">
			<h3 class="scheme-title">Valid Scheme</h3>
			<p class="scheme-description">Has a name.</p>
		</div>
	</body></html>`
	fetcher := &fakePageFetcher{pages: map[string]string{"https://a.gov.in/schemes": body}}
	engine := newTestEngine(testEngineConfig(), data, fetcher)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, 1, result.Stats.Malformed)
	require.Equal(t, 2, result.Stats.RecordsFound)
}

func TestEngine_Run_SeedRegionIsFallback(t *testing.T) {
	data := DefaultDataset()
	data.Seeds = []Seed{{URL: "https://schemes.example.org/list", Kind: SeedRegionListing, Region: "Kerala"}}
	fetcher := &fakePageFetcher{pages: map[string]string{
		"https://schemes.example.org/list": cardPage("Local Pension", "/lp"),
	}}
	engine := newTestEngine(testEngineConfig(), data, fetcher)

	result, err := engine.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Records, 1)
	require.Equal(t, "Kerala", result.Records[0].Region)
}
