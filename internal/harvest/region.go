package harvest

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// CentralRegion is the sentinel for nation-wide schemes, distinct from any
// named region.
const CentralRegion = "Central"

// Meta tag names checked for a region signal, in order.
var regionMetaNames = []string{"geo.placename", "geo.region", "state", "og:locality"}

// Content label patterns: "State: X", "Applicable in: X", "Location: X".
var regionLabelRe = regexp.MustCompile(`(?i)(?:state|applicable in|location|region)\s*[:\-]\s*([A-Za-z][A-Za-z ]{2,40})`)

// Breadcrumb trail shapes: "Home > X", "Schemes > X".
var breadcrumbTrailRe = regexp.MustCompile(`(?i)(?:home|schemes)\s*[>»/]\s*([A-Za-z][A-Za-z ]{2,40})`)

// RegionResolver determines the governing administrative region for a record
// through a prioritized chain of signals. Every step either resolves or falls
// through; unmapped input is "no match", never an error.
type RegionResolver struct {
	slugs           map[string]string
	centralKeywords []string
	centralDomains  []string
}

// NewRegionResolver builds a resolver from the dataset's slug table and
// central-government heuristics.
func NewRegionResolver(data Dataset) *RegionResolver {
	return &RegionResolver{
		slugs:           data.RegionSlugs,
		centralKeywords: lowerAll(data.CentralKeywords),
		centralDomains:  lowerAll(data.CentralDomains),
	}
}

// Resolve walks the signal chain: extracted field, page metadata,
// breadcrumbs, URL segments, content labels, central heuristic, caller
// fallback.
func (r *RegionResolver) Resolve(raw RawRecord, page *ParsedPage, fallback string) string {
	if region, ok := r.lookup(raw.Region); ok {
		return region
	}
	if region, ok := r.fromMetadata(page); ok {
		return region
	}
	if region, ok := r.fromBreadcrumbs(page); ok {
		return region
	}
	if region, ok := r.fromURL(page.BaseURL()); ok {
		return region
	}
	if region, ok := r.fromContentLabels(page); ok {
		return region
	}
	if r.isCentral(page) {
		return CentralRegion
	}
	return fallback
}

// lookup maps a free-form token through the slug table.
func (r *RegionResolver) lookup(token string) (string, bool) {
	key := slugKey(token)
	if key == "" {
		return "", false
	}
	region, ok := r.slugs[key]
	return region, ok
}

func (r *RegionResolver) fromMetadata(page *ParsedPage) (string, bool) {
	if page.Doc == nil {
		return "", false
	}
	for _, name := range regionMetaNames {
		sel := page.Doc.Find(`meta[name="` + name + `"], meta[property="` + name + `"]`).First()
		if sel.Length() == 0 {
			continue
		}
		if content, ok := sel.Attr("content"); ok {
			if region, found := r.lookup(content); found {
				return region, true
			}
		}
	}
	return "", false
}

func (r *RegionResolver) fromBreadcrumbs(page *ParsedPage) (string, bool) {
	if page.Doc == nil {
		return "", false
	}
	found := ""
	crumbs := page.Doc.Find(`.breadcrumb li, nav[aria-label="breadcrumb"] li, ol.breadcrumb li, .breadcrumbs a`)
	crumbs.EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		region, ok := r.lookup(sel.Text())
		if ok && region != CentralRegion {
			found = region
			return false
		}
		return true
	})
	if found != "" {
		return found, true
	}
	// Plain-text trails without breadcrumb markup.
	if match := breadcrumbTrailRe.FindStringSubmatch(page.Text); len(match) > 1 {
		if region, ok := r.lookup(match[1]); ok && region != CentralRegion {
			return region, true
		}
	}
	return "", false
}

// fromURL maps each path segment through the slug table. Segments resolving
// to the central sentinel are skipped so a more specific deeper segment can
// still win; the sentinel is only reachable through the central heuristic.
func (r *RegionResolver) fromURL(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	for _, segment := range strings.Split(parsed.Path, "/") {
		if segment == "" {
			continue
		}
		region, ok := r.lookup(segment)
		if !ok || region == CentralRegion {
			continue
		}
		return region, true
	}
	return "", false
}

// fromContentLabels matches "State: X" style labels. The captured run can
// drag in trailing words when the page text lacks separators, so lookup is
// retried on shrinking word prefixes.
func (r *RegionResolver) fromContentLabels(page *ParsedPage) (string, bool) {
	match := regionLabelRe.FindStringSubmatch(page.Text)
	if len(match) < 2 {
		return "", false
	}
	words := strings.Fields(match[1])
	for n := len(words); n > 0; n-- {
		if region, ok := r.lookup(strings.Join(words[:n], " ")); ok {
			return region, true
		}
	}
	return "", false
}

// isCentral checks the fixed keyword set against the page text and the URL
// host against the central-government domain allowlist.
func (r *RegionResolver) isCentral(page *ParsedPage) bool {
	if containsAnyKeyword(page.Text, r.centralKeywords) {
		return true
	}
	parsed, err := url.Parse(page.BaseURL())
	if err != nil {
		return false
	}
	host := strings.ToLower(parsed.Hostname())
	for _, domain := range r.centralDomains {
		if host == domain || strings.HasSuffix(host, "."+domain) {
			return true
		}
	}
	return false
}

var slugCleanRe = regexp.MustCompile(`[^a-z0-9]+`)

// slugKey normalizes a token for slug-table lookup: lowercase, non-alphanumeric
// runs collapsed to single hyphens.
func slugKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugCleanRe.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}
