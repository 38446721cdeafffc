package harvest

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// structuredStrategy parses JSON payloads: either the whole body (API
// responses proxied through a seed URL) or JSON blobs embedded in script
// tags. It locates an array-shaped field under common key names and maps each
// element's fields through ordered alias lists.
type structuredStrategy struct{}

// Key aliases tried in order; first present non-empty value wins.
var (
	arrayKeys       = []string{"schemes", "data", "results", "items", "records"}
	nameAliases     = []string{"name", "title", "scheme_name", "schemeName", "scheme"}
	descAliases     = []string{"description", "details", "summary", "about", "objective"}
	eligAliases     = []string{"eligibility", "eligibility_criteria", "eligibilityCriteria", "who_can_apply", "beneficiaries"}
	linkAliases     = []string{"link", "url", "website", "href", "official_link"}
	categoryAliases = []string{"category", "type", "sector", "department"}
	regionAliases   = []string{"state", "region", "locality", "applicable_state"}
)

func (s *structuredStrategy) Name() string { return "structured" }

func (s *structuredStrategy) Extract(page *ParsedPage, _ Seed) []RawRecord {
	body := strings.TrimSpace(string(page.Body))
	if items := decodeItems(body); len(items) > 0 {
		return mapItems(items)
	}
	if page.Doc == nil {
		return nil
	}
	// Embedded blobs: try every script tag whose content looks like JSON.
	var records []RawRecord
	page.Doc.Find("script").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		content := strings.TrimSpace(sel.Text())
		if content == "" || (content[0] != '{' && content[0] != '[') {
			return true
		}
		if items := decodeItems(content); len(items) > 0 {
			records = mapItems(items)
			return len(records) == 0
		}
		return true
	})
	return records
}

// decodeItems accepts either a bare top-level array or an object carrying an
// array under one of the common keys.
func decodeItems(body string) []map[string]any {
	if body == "" {
		return nil
	}
	switch body[0] {
	case '[':
		var arr []map[string]any
		if err := json.Unmarshal([]byte(body), &arr); err != nil {
			return nil
		}
		return arr
	case '{':
		var obj map[string]any
		if err := json.Unmarshal([]byte(body), &obj); err != nil {
			return nil
		}
		for _, key := range arrayKeys {
			raw, ok := obj[key]
			if !ok {
				continue
			}
			items, ok := toItemSlice(raw)
			if ok && len(items) > 0 {
				return items
			}
		}
		return nil
	default:
		return nil
	}
}

func toItemSlice(raw any) ([]map[string]any, bool) {
	arr, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	items := make([]map[string]any, 0, len(arr))
	for _, el := range arr {
		if m, ok := el.(map[string]any); ok {
			items = append(items, m)
		}
	}
	return items, true
}

func mapItems(items []map[string]any) []RawRecord {
	var out []RawRecord
	for _, item := range items {
		rec := RawRecord{
			Name:        firstAlias(item, nameAliases),
			Description: firstAlias(item, descAliases),
			Eligibility: firstAlias(item, eligAliases),
			Link:        firstAlias(item, linkAliases),
			Category:    firstAlias(item, categoryAliases),
			Region:      firstAlias(item, regionAliases),
		}
		if rec == (RawRecord{}) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func firstAlias(item map[string]any, aliases []string) string {
	for _, key := range aliases {
		if v, ok := item[key]; ok {
			if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}
