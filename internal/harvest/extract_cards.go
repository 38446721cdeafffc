package harvest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// cardStrategy scans for item containers using an ordered list of candidate
// selector sets. The first set whose container selector matches at least one
// element wins; sub-fields are extracted through their own ordered candidate
// sub-selectors, first match wins per field.
type cardStrategy struct {
	sets []CardSelectorSet
}

func (s *cardStrategy) Name() string { return "cards" }

func (s *cardStrategy) Extract(page *ParsedPage, _ Seed) []RawRecord {
	if page.Doc == nil {
		return nil
	}
	for _, set := range s.sets {
		if set.Container == "" {
			continue
		}
		items := page.Doc.Find(set.Container)
		if items.Length() == 0 {
			continue
		}
		var records []RawRecord
		items.Each(func(_ int, item *goquery.Selection) {
			rec := extractCard(item, set)
			if rec != (RawRecord{}) {
				records = append(records, rec)
			}
		})
		if len(records) > 0 {
			return records
		}
	}
	return nil
}

func extractCard(item *goquery.Selection, set CardSelectorSet) RawRecord {
	rec := RawRecord{
		Name:        firstText(item, set.Name),
		Category:    firstText(item, set.Category),
		Region:      firstText(item, set.Region),
		Eligibility: firstText(item, set.Eligibility),
		Link:        firstHref(item, set.Link),
	}
	rec.Description, rec.DescriptionHTML = firstTextAndHTML(item, set.Description)
	if rec.Eligibility != "" {
		_, rec.EligibilityHTML = firstTextAndHTML(item, set.Eligibility)
	}
	return rec
}

func firstText(item *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		found := item.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(found.Text()); text != "" {
			return text
		}
	}
	return ""
}

// firstTextAndHTML returns both the text and the inner HTML of the first
// matching sub-selector, so the normalizer can derive canonical text from the
// HTML fragment instead of trusting a separately scraped text node.
func firstTextAndHTML(item *goquery.Selection, selectors []string) (string, string) {
	for _, sel := range selectors {
		found := item.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		text := strings.TrimSpace(found.Text())
		if text == "" {
			continue
		}
		html, err := found.Html()
		if err != nil {
			return text, ""
		}
		return text, strings.TrimSpace(html)
	}
	return "", ""
}

func firstHref(item *goquery.Selection, selectors []string) string {
	for _, sel := range selectors {
		found := item.Find(sel).First()
		if found.Length() == 0 {
			continue
		}
		if href, ok := found.Attr("href"); ok && strings.TrimSpace(href) != "" {
			return strings.TrimSpace(href)
		}
	}
	// The container itself may be the anchor.
	if href, ok := item.Attr("href"); ok {
		return strings.TrimSpace(href)
	}
	return ""
}
