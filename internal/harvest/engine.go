package harvest

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// ErrNoSeeds means the configuration produced an empty work list; the only
// failure class that aborts a run before it starts.
var ErrNoSeeds = errors.New("no seeds configured")

// Engine drives the crawl: it enumerates seeds by trust order, runs the
// fetch → extract → normalize → resolve → dedupe pipeline per page, paginates
// each source up to the safety valve, and accumulates the run result. One
// worker owns one source end to end, which keeps per-host request ordering
// intact without a separate per-host lock.
type Engine struct {
	cfg        Config
	data       Dataset
	client     PageFetcher
	chain      *Chain
	normalizer *Normalizer
	regions    *RegionResolver
	dedupe     *Deduplicator
	clock      Clock
	ids        IDGenerator
	logger     *zap.Logger

	limiterMu    sync.Mutex
	hostLimiters map[string]*rate.Limiter
}

// NewEngine wires the pipeline components.
func NewEngine(
	cfg Config,
	data Dataset,
	client PageFetcher,
	chain *Chain,
	normalizer *Normalizer,
	regions *RegionResolver,
	dedupe *Deduplicator,
	clock Clock,
	ids IDGenerator,
	logger *zap.Logger,
) *Engine {
	return &Engine{
		cfg:          cfg,
		data:         data,
		client:       client,
		chain:        chain,
		normalizer:   normalizer,
		regions:      regions,
		dedupe:       dedupe,
		clock:        clock,
		ids:          ids,
		logger:       logger,
		hostLimiters: make(map[string]*rate.Limiter),
	}
}

// accumulator collects accepted records, failures, and stats across workers.
type accumulator struct {
	mu       sync.Mutex
	records  []SchemeRecord
	failures []FailureEntry
	stats    RunStats
}

func (a *accumulator) addRecord(rec SchemeRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.records = append(a.records, rec)
}

func (a *accumulator) addFailure(f FailureEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failures = append(a.failures, f)
}

func (a *accumulator) bump(fn func(*RunStats)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	fn(&a.stats)
}

// Run executes one harvest. Per-source failures are contained: the caller is
// always handed a usable RunResult unless no seeds exist at all.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	seeds := e.data.SeedsForRegions(e.cfg.Regions)
	if len(seeds) == 0 {
		return RunResult{}, ErrNoSeeds
	}

	runID, err := e.ids.NewID()
	if err != nil {
		return RunResult{}, fmt.Errorf("new run id: %w", err)
	}

	if e.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.cfg.RunTimeout)
		defer cancel()
	}

	started := e.clock.Now()
	e.logger.Info("harvest run starting",
		zap.String("run_id", runID),
		zap.Int("seeds", len(seeds)),
		zap.Int("concurrency", e.cfg.Concurrency))

	acc := &accumulator{}
	jobs := make(chan Seed)
	var wg sync.WaitGroup
	for i := 0; i < e.cfg.Concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for seed := range jobs {
				e.crawlSource(ctx, seed, acc)
			}
		}()
	}

	for _, seed := range seeds {
		select {
		case jobs <- seed:
		case <-ctx.Done():
		}
		if ctx.Err() != nil {
			break
		}
	}
	close(jobs)
	wg.Wait()

	result := RunResult{
		RunID:      runID,
		StartedAt:  started,
		FinishedAt: e.clock.Now(),
		Records:    acc.records,
		Duplicates: e.dedupe.Duplicates(),
		Failures:   acc.failures,
		Stats:      acc.stats,
	}
	result.Stats.UniqueRecords = len(acc.records)
	result.Stats.Duplicates = e.dedupe.DuplicateCount()
	result.Stats.Errors = len(acc.failures)

	e.logger.Info("harvest run finished",
		zap.String("run_id", runID),
		zap.Int("pages_visited", result.Stats.PagesVisited),
		zap.Int("records_found", result.Stats.RecordsFound),
		zap.Int("unique_records", result.Stats.UniqueRecords),
		zap.Int("duplicates", result.Stats.Duplicates),
		zap.Int("errors", result.Stats.Errors))
	return result, nil
}

// crawlSource runs one seed's landing page and its pagination to completion.
func (e *Engine) crawlSource(ctx context.Context, seed Seed, acc *accumulator) {
	mode := seed.Mode
	if mode == "" {
		mode = ModeStatic
	}
	delay := e.cfg.DelayFor(seed.Kind)

	pageURL := seed.URL
	visited := map[string]struct{}{}
	for pageNum := 1; pageNum <= e.cfg.MaxPagesPerSource; pageNum++ {
		if ctx.Err() != nil {
			return
		}
		if _, seen := visited[pageURL]; seen {
			return // pagination loop
		}
		visited[pageURL] = struct{}{}

		if err := e.pace(ctx, pageURL, delay); err != nil {
			return
		}

		fetchStart := time.Now()
		page, err := e.client.Fetch(ctx, pageURL, mode)
		fetchDuration.Observe(time.Since(fetchStart).Seconds())
		if errors.Is(err, ErrRobotsDisallowed) {
			e.logger.Info("source skipped by robots policy", zap.String("url", pageURL))
			return
		}
		if err != nil {
			fetchFailures.Inc()
			acc.addFailure(FailureEntry{URL: pageURL, Error: err.Error(), Timestamp: e.clock.Now()})
			e.logger.Warn("source fetch failed",
				zap.String("url", pageURL), zap.String("kind", string(seed.Kind)), zap.Error(err))
			return
		}
		acc.bump(func(s *RunStats) { s.PagesVisited++ })
		pagesVisited.WithLabelValues(string(mode)).Inc()

		parsed := ParsePage(page)
		e.processPage(parsed, seed, acc)

		next := e.nextPageURL(parsed)
		if next == "" || next == pageURL {
			return
		}
		if pageNum == e.cfg.MaxPagesPerSource {
			// Safety valve hit: partial success, not a failure.
			e.logger.Warn("pagination capped",
				zap.String("url", seed.URL), zap.Int("max_pages", e.cfg.MaxPagesPerSource))
			return
		}
		pageURL = next
	}
}

// processPage runs extraction and the pure pipeline stages over one fetched
// page. A page yielding zero records through every strategy is a normal
// outcome, logged only at debug level.
func (e *Engine) processPage(page *ParsedPage, seed Seed, acc *accumulator) {
	raws := e.chain.Extract(page, seed)
	if len(raws) == 0 {
		e.logger.Debug("no records on page", zap.String("url", page.BaseURL()))
		return
	}
	acc.bump(func(s *RunStats) { s.RecordsFound += len(raws) })

	now := e.clock.Now()
	for _, raw := range raws {
		rec, ok := e.normalizer.Record(raw, page.Page, seed, now)
		if !ok {
			malformedDropped.Inc()
			acc.bump(func(s *RunStats) { s.Malformed++ })
			continue
		}
		rec.Region = e.regions.Resolve(raw, page, e.fallbackRegion(seed))
		if rec.Region == "" {
			malformedDropped.Inc()
			acc.bump(func(s *RunStats) { s.Malformed++ })
			continue
		}
		if !e.dedupe.Accept(rec) {
			duplicatesRejected.Inc()
			continue
		}
		recordsAccepted.Inc()
		acc.addRecord(rec)
	}
}

func (e *Engine) fallbackRegion(seed Seed) string {
	if seed.Region != "" {
		return seed.Region
	}
	return CentralRegion
}

// nextPageURL looks for a "next page" control through the configured
// pagination selectors, then falls back to scanning anchor labels.
func (e *Engine) nextPageURL(page *ParsedPage) string {
	if page.Doc == nil {
		return ""
	}
	for _, sel := range e.data.PaginationSelectors {
		if href, ok := page.Doc.Find(sel).First().Attr("href"); ok {
			if resolved := resolveHref(href, page.BaseURL()); resolved != "" {
				return resolved
			}
		}
	}
	labels := lowerAll(e.data.NextLabels)
	next := ""
	page.Doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		label := strings.ToLower(strings.TrimSpace(a.Text()))
		if label == "" {
			if aria, ok := a.Attr("aria-label"); ok {
				label = strings.ToLower(strings.TrimSpace(aria))
			}
		}
		for _, want := range labels {
			if label == want {
				if href, ok := a.Attr("href"); ok {
					next = resolveHref(href, page.BaseURL())
				}
				return false
			}
		}
		return true
	})
	return next
}

func resolveHref(href, base string) string {
	href = strings.TrimSpace(href)
	if href == "" || strings.HasPrefix(href, "#") || strings.HasPrefix(href, "javascript:") {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return ref.String()
	}
	return baseURL.ResolveReference(ref).String()
}

// pace enforces the fixed inter-request delay for a host. Limiters are keyed
// by hostname so concurrent sources on distinct hosts never wait on each
// other.
func (e *Engine) pace(ctx context.Context, rawURL string, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	host := strings.ToLower(parsed.Hostname())

	e.limiterMu.Lock()
	limiter, ok := e.hostLimiters[host]
	if !ok {
		limiter = rate.NewLimiter(rate.Every(delay), 1)
		e.hostLimiters[host] = limiter
	}
	e.limiterMu.Unlock()

	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("pace %s: %w", host, err)
	}
	return nil
}
