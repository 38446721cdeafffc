package harvest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// listStrategy scans list items whose text contains a scheme-indicating
// keyword. The name is the text up to the first sentence delimiter.
type listStrategy struct {
	keywords []string
}

const listItemMinLen = 10

func (s *listStrategy) Name() string { return "list" }

func (s *listStrategy) Extract(page *ParsedPage, _ Seed) []RawRecord {
	if page.Doc == nil {
		return nil
	}
	var records []RawRecord
	page.Doc.Find("ul li, ol li").Each(func(_ int, item *goquery.Selection) {
		// Skip items that contain nested lists; their leaf items are
		// visited separately.
		if item.Find("li").Length() > 0 {
			return
		}
		text := strings.TrimSpace(item.Text())
		if len(text) < listItemMinLen || !containsAnyKeyword(text, s.keywords) {
			return
		}
		rec := RawRecord{
			Name:        firstSentence(text),
			Description: text,
		}
		if href, ok := item.Find("a[href]").First().Attr("href"); ok {
			rec.Link = strings.TrimSpace(href)
		}
		records = append(records, rec)
	})
	return records
}
