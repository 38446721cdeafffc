package harvest

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// Field length caps bound storage for the snapshot and the upsert.
const (
	maxNameLen = 1000
	maxTextLen = 5000
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	// Decorative characters stripped from every text field: quotes,
	// asterisks, bullets and control bytes.
	decorativeRe = regexp.MustCompile("[\"'`“”‘’*•◦▪]|\\p{Cc}")
)

// Normalizer canonicalizes extracted fields into SchemeRecords.
type Normalizer struct {
	amountRes      []*regexp.Regexp
	trackingParams map[string]struct{}
}

// NewNormalizer compiles the dataset's amount patterns and tracking-param
// denylist. Patterns that fail to compile are skipped, not fatal: the amount
// is a best-effort enrichment.
func NewNormalizer(data Dataset) *Normalizer {
	n := &Normalizer{
		trackingParams: make(map[string]struct{}, len(data.TrackingParams)),
	}
	for _, p := range data.AmountPatterns {
		re, err := regexp.Compile(p)
		if err != nil {
			continue
		}
		n.amountRes = append(n.amountRes, re)
	}
	for _, p := range data.TrackingParams {
		n.trackingParams[strings.ToLower(p)] = struct{}{}
	}
	return n
}

// Record builds a SchemeRecord from a raw extraction. It returns ok=false for
// malformed records (no name after normalization); those are dropped silently
// and only counted in diagnostics.
func (n *Normalizer) Record(raw RawRecord, page Page, seed Seed, now time.Time) (SchemeRecord, bool) {
	rec := SchemeRecord{
		Name:            CleanText(truncate(raw.Name, maxNameLen)),
		DescriptionHTML: strings.TrimSpace(raw.DescriptionHTML),
		EligibilityHTML: strings.TrimSpace(raw.EligibilityHTML),
		SourceURL:       page.BaseURL(),
		ScrapedAt:       now,
		Category:        CleanText(raw.Category),
	}
	if rec.Name == "" {
		return SchemeRecord{}, false
	}
	if rec.Category == "" {
		rec.Category = seed.Category
	}

	// Prefer deriving canonical text from the HTML fragment when both are
	// available, so the two representations cannot drift.
	rec.DescriptionText = canonicalText(raw.Description, rec.DescriptionHTML)
	rec.EligibilityText = canonicalText(raw.Eligibility, rec.EligibilityHTML)

	if raw.Link != "" {
		rec.Link = n.NormalizeLink(raw.Link, page.BaseURL())
	}
	if amount, ok := n.ParseBenefitAmount(rec.DescriptionText); ok {
		rec.BenefitAmount = &amount
	}
	return rec, true
}

func canonicalText(text, html string) string {
	if html != "" {
		if stripped := HTMLToText(html); stripped != "" {
			return CleanText(truncate(stripped, maxTextLen))
		}
	}
	return CleanText(truncate(text, maxTextLen))
}

// CleanText trims, collapses internal whitespace to single spaces, and strips
// decorative characters. It is idempotent: CleanText(CleanText(x)) ==
// CleanText(x).
func CleanText(s string) string {
	s = decorativeRe.ReplaceAllString(s, "")
	s = whitespaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// HTMLToText strips tags from an HTML fragment.
func HTMLToText(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(doc.Text())
}

// NormalizeLink resolves a possibly relative URL against the page base, drops
// the fragment and tracking query parameters, lowercases the host, and
// removes default ports. The result feeds the canonical dedup key, so two
// URLs differing only by tracking noise collide correctly.
func (n *Normalizer) NormalizeLink(raw, base string) string {
	ref, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	if base != "" {
		if baseURL, err := url.Parse(base); err == nil {
			ref = baseURL.ResolveReference(ref)
		}
	}
	if !ref.IsAbs() {
		return ""
	}

	ref.Scheme = strings.ToLower(ref.Scheme)
	ref.Host = strings.ToLower(ref.Host)
	if ref.Scheme == "http" {
		ref.Host = strings.TrimSuffix(ref.Host, ":80")
	}
	if ref.Scheme == "https" {
		ref.Host = strings.TrimSuffix(ref.Host, ":443")
	}
	ref.Fragment = ""
	ref.Path = strings.TrimSuffix(ref.Path, "/")

	q := ref.Query()
	for key := range q {
		lower := strings.ToLower(key)
		if strings.HasPrefix(lower, "utm_") {
			q.Del(key)
			continue
		}
		if _, drop := n.trackingParams[lower]; drop {
			q.Del(key)
		}
	}
	ref.RawQuery = q.Encode()

	return ref.String()
}

// ParseBenefitAmount scans text for a currency-tagged numeric token using the
// configured pattern set and returns the first match. Thousands separators
// are tolerated. Absent is a normal outcome.
func (n *Normalizer) ParseBenefitAmount(text string) (float64, bool) {
	for _, re := range n.amountRes {
		match := re.FindStringSubmatch(text)
		if len(match) < 2 {
			continue
		}
		cleaned := strings.ReplaceAll(match[1], ",", "")
		amount, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			continue
		}
		return amount, true
	}
	return 0, false
}

// truncate caps s at limit bytes without splitting a multi-byte rune.
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
