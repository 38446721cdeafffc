package harvest

import (
	"fmt"
	"strings"
	"time"
)

// FetchMode selects how a page is retrieved.
type FetchMode string

// Fetch modes. ModeScroll renders and scrolls to the page bottom to trigger
// infinite-scroll loaders before serializing the DOM.
const (
	ModeStatic   FetchMode = "static"
	ModeRendered FetchMode = "rendered"
	ModeScroll   FetchMode = "scroll"
)

// SeedKind ranks seed sources by trust. Curated seeds are attempted first,
// category-search seeds last.
type SeedKind string

// Seed kinds in descending trust order.
const (
	SeedCurated        SeedKind = "curated"
	SeedRegionListing  SeedKind = "region-listing"
	SeedCategorySearch SeedKind = "category-search"
)

// Seed is a starting URL for one crawl source.
type Seed struct {
	URL      string    `yaml:"url"`
	Kind     SeedKind  `yaml:"kind"`
	Region   string    `yaml:"region,omitempty"`
	Category string    `yaml:"category,omitempty"`
	Mode     FetchMode `yaml:"mode,omitempty"`
}

// Page is a fetched document.
type Page struct {
	URL        string
	FinalURL   string
	StatusCode int
	Body       []byte
	Rendered   bool
	FetchedAt  time.Time
}

// BaseURL returns the URL relative links should resolve against.
func (p Page) BaseURL() string {
	if p.FinalURL != "" {
		return p.FinalURL
	}
	return p.URL
}

// RawRecord is one extraction strategy's output for a single candidate
// record, before normalization. Any field may be empty.
type RawRecord struct {
	Name            string
	Description     string
	DescriptionHTML string
	Eligibility     string
	EligibilityHTML string
	Link            string
	Category        string
	Region          string
}

// SchemeRecord is the canonical unit of output. Records are immutable once
// built; updates are modeled as replacement in the accumulation set.
type SchemeRecord struct {
	Name            string    `json:"name"`
	Region          string    `json:"region"`
	DescriptionText string    `json:"descriptionText"`
	DescriptionHTML string    `json:"descriptionHtml,omitempty"`
	EligibilityText string    `json:"eligibilityText"`
	EligibilityHTML string    `json:"eligibilityHtml,omitempty"`
	Link            string    `json:"link"`
	SourceURL       string    `json:"sourceUrl"`
	ScrapedAt       time.Time `json:"scrapedAt"`
	Category        string    `json:"category,omitempty"`
	BenefitAmount   *float64  `json:"benefitAmount,omitempty"`
}

// CanonicalKey is the deduplication identity of a record. Two records with
// equal keys are the same real-world scheme for the purposes of one run.
type CanonicalKey string

// Key computes the canonical key: lowercase name and region joined with the
// normalized link. Name and link are assumed already normalized.
func (r SchemeRecord) Key() CanonicalKey {
	return CanonicalKey(strings.ToLower(r.Name) + "|" + strings.ToLower(r.Region) + "|" + r.Link)
}

// FailureEntry records one per-source failure.
type FailureEntry struct {
	URL       string    `json:"url"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// RunStats summarizes one run for the log artifact.
type RunStats struct {
	PagesVisited  int `json:"pagesVisited"`
	RecordsFound  int `json:"recordsFound"`
	UniqueRecords int `json:"uniqueRecords"`
	Duplicates    int `json:"duplicates"`
	Malformed     int `json:"malformed"`
	Errors        int `json:"errors"`
}

// RunResult is the orchestrator's terminal artifact.
type RunResult struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []SchemeRecord
	Duplicates map[CanonicalKey]int
	Failures   []FailureEntry
	Stats      RunStats
}

// FetchError wraps the last error after attempt exhaustion for a URL.
type FetchError struct {
	URL     string
	LastErr error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.LastErr)
}

func (e *FetchError) Unwrap() error {
	return e.LastErr
}
