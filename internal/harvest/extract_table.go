package harvest

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// tableStrategy scans table rows: column 0 is the name, column 1 the
// description, the link comes from the last column or any embedded anchor.
// Only rows whose concatenated text contains a scheme-indicating keyword are
// kept, which filters out layout tables.
type tableStrategy struct {
	keywords []string
}

func (s *tableStrategy) Name() string { return "table" }

func (s *tableStrategy) Extract(page *ParsedPage, _ Seed) []RawRecord {
	if page.Doc == nil {
		return nil
	}
	var records []RawRecord
	page.Doc.Find("table tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() == 0 {
			return // header or empty row
		}
		rowText := strings.TrimSpace(row.Text())
		if !containsAnyKeyword(rowText, s.keywords) {
			return
		}
		rec := RawRecord{
			Name: strings.TrimSpace(cells.Eq(0).Text()),
		}
		if cells.Length() > 1 {
			rec.Description = strings.TrimSpace(cells.Eq(1).Text())
		}
		if href, ok := row.Find("a[href]").First().Attr("href"); ok {
			rec.Link = strings.TrimSpace(href)
		} else if cells.Length() > 2 {
			rec.Link = strings.TrimSpace(cells.Eq(cells.Length() - 1).Text())
		}
		if rec.Name == "" && rec.Description == "" {
			return
		}
		records = append(records, rec)
	})
	return records
}
