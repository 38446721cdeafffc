package harvest

import (
	"strings"
)

// textStrategy is the last resort: it scans the page's flattened text for
// lines containing scheme-indicating keywords. Line length bounds and a match
// cap keep the noise down, since this is the least precise strategy.
type textStrategy struct {
	keywords []string
}

const (
	textLineMinLen = 20
	textLineMaxLen = 300
	textMatchLimit = 50
)

func (s *textStrategy) Name() string { return "text" }

func (s *textStrategy) Extract(page *ParsedPage, _ Seed) []RawRecord {
	text := page.Text
	if text == "" {
		text = string(page.Body)
	}
	var records []RawRecord
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if len(line) < textLineMinLen || len(line) > textLineMaxLen {
			continue
		}
		if !containsAnyKeyword(line, s.keywords) {
			continue
		}
		records = append(records, RawRecord{
			Name:        firstSentence(line),
			Description: line,
		})
		if len(records) >= textMatchLimit {
			break
		}
	}
	return records
}
