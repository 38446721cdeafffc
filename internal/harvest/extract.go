package harvest

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// ParsedPage bundles a fetched page with its parsed DOM and flattened text.
// Parsing happens once per page; every strategy and the region resolver scan
// the same document.
type ParsedPage struct {
	Page
	Doc  *goquery.Document
	Text string
}

// ParsePage builds a ParsedPage. A body that fails to parse as HTML still
// yields a usable ParsedPage with a nil Doc (the structured strategy can
// handle raw JSON bodies).
func ParsePage(page Page) *ParsedPage {
	parsed := &ParsedPage{Page: page}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Body))
	if err != nil {
		return parsed
	}
	parsed.Doc = doc
	parsed.Text = doc.Text()
	return parsed
}

// Chain applies the ordered extraction strategies to one page and returns the
// first non-empty result set. Results are never merged across strategies:
// merging noisy matches would reintroduce duplicates the deduplicator would
// have to absorb at higher cost. An empty result is a legitimate "no data on
// this page" outcome, not an error.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

// NewChain builds the chain in priority order: structured response, card
// scan, table scan, list scan, free-text scan.
func NewChain(data Dataset, logger *zap.Logger) *Chain {
	return &Chain{
		strategies: []Strategy{
			&structuredStrategy{},
			&cardStrategy{sets: data.CardSelectors},
			&tableStrategy{keywords: lowerAll(data.SchemeKeywords)},
			&listStrategy{keywords: lowerAll(data.SchemeKeywords)},
			&textStrategy{keywords: lowerAll(data.SchemeKeywords)},
		},
		logger: logger,
	}
}

// Extract runs the chain against a page.
func (c *Chain) Extract(page *ParsedPage, seed Seed) []RawRecord {
	for _, s := range c.strategies {
		records := s.Extract(page, seed)
		if len(records) > 0 {
			c.logger.Debug("strategy matched",
				zap.String("strategy", s.Name()),
				zap.String("url", page.BaseURL()),
				zap.Int("records", len(records)))
			recordsExtracted.WithLabelValues(s.Name()).Add(float64(len(records)))
			return records
		}
	}
	return nil
}

func lowerAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		s = strings.ToLower(strings.TrimSpace(s))
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsAnyKeyword(text string, keywords []string) bool {
	lower := strings.ToLower(text)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// firstSentence cuts text at the first sentence delimiter, used to derive a
// name from free-form list or line text.
func firstSentence(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.IndexAny(text, ".!?:\n"); idx > 0 {
		return strings.TrimSpace(text[:idx])
	}
	return text
}
