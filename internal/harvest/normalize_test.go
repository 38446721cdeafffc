package harvest

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/require"
)

func testNormalizer() *Normalizer {
	return NewNormalizer(DefaultDataset())
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"collapses whitespace", "  PM  Kisan \t Samman\n Nidhi ", "PM Kisan Samman Nidhi"},
		{"strips decorations", `"Ujjwala" *Yojana* • LPG`, "Ujjwala Yojana LPG"},
		{"strips control characters", "Awas\x00Yojana\x07", "AwasYojana"},
		{"empty stays empty", "   ", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, CleanText(tc.in))
		})
	}
}

func TestCleanText_Idempotent(t *testing.T) {
	inputs := []string{
		"  PM  Kisan ",
		`"quoted" • text`,
		"already clean",
	}
	for _, in := range inputs {
		once := CleanText(in)
		require.Equal(t, once, CleanText(once))
	}
}

func TestNormalizeLink(t *testing.T) {
	n := testNormalizer()
	base := "https://www.india.gov.in/schemes"

	t.Run("tracking noise collides to one canonical link", func(t *testing.T) {
		a := n.NormalizeLink("https://pmkisan.gov.in/scheme/?utm_source=fb&gclid=xyz#details", base)
		b := n.NormalizeLink("https://pmkisan.gov.in/scheme", base)
		require.Equal(t, b, a)
	})

	t.Run("relative resolves against base", func(t *testing.T) {
		got := n.NormalizeLink("/schemes/pmay", base)
		require.Equal(t, "https://www.india.gov.in/schemes/pmay", got)
	})

	t.Run("host lowercased and default port dropped", func(t *testing.T) {
		got := n.NormalizeLink("HTTPS://Pmkisan.GOV.IN:443/Scheme", base)
		require.Equal(t, "https://pmkisan.gov.in/Scheme", got)
	})

	t.Run("trailing slash removed", func(t *testing.T) {
		require.Equal(t,
			n.NormalizeLink("https://example.gov.in/scheme", base),
			n.NormalizeLink("https://example.gov.in/scheme/", base))
	})

	t.Run("meaningful query params survive", func(t *testing.T) {
		got := n.NormalizeLink("https://example.gov.in/search?scheme_id=42&utm_medium=mail", base)
		require.Equal(t, "https://example.gov.in/search?scheme_id=42", got)
	})

	t.Run("unresolvable relative without base", func(t *testing.T) {
		require.Empty(t, n.NormalizeLink("/schemes/pmay", ""))
	})
}

func TestParseBenefitAmount(t *testing.T) {
	n := testNormalizer()

	cases := []struct {
		text string
		want float64
		ok   bool
	}{
		{"Provides ₹6,000 per year in three instalments", 6000, true},
		{"Assistance of Rs. 2,50,000 for house construction", 250000, true},
		{"One time grant of INR 1500.50", 1500.50, true},
		{"Pays 5000 rupees per month", 5000, true},
		{"No monetary component", 0, false},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			got, ok := n.ParseBenefitAmount(tc.text)
			require.Equal(t, tc.ok, ok)
			if tc.ok {
				require.InDelta(t, tc.want, got, 0.001)
			}
		})
	}
}

func TestTruncate_RuneBoundary(t *testing.T) {
	// Devanagari letters are three bytes each, so a byte cap at 1000 lands
	// mid-rune.
	long := strings.Repeat("क", 400)
	got := truncate(long, maxNameLen)
	require.True(t, utf8.ValidString(got))
	require.Equal(t, 999, len(got))

	require.Equal(t, "abc", truncate("abc", 3))
	require.Equal(t, "ab", truncate("abc", 2))
}

func TestNormalizer_Record_LongNameStaysValidUTF8(t *testing.T) {
	n := testNormalizer()
	page := Page{URL: "https://kerala.gov.in/schemes"}
	raw := RawRecord{Name: strings.Repeat("य", 500)}

	rec, ok := n.Record(raw, page, Seed{}, time.Now())
	require.True(t, ok)
	require.True(t, utf8.ValidString(rec.Name))
	require.LessOrEqual(t, len(rec.Name), maxNameLen)
}

func TestNormalizer_Record(t *testing.T) {
	n := testNormalizer()
	now := time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC)
	page := Page{URL: "https://kerala.gov.in/schemes", FinalURL: "https://kerala.gov.in/schemes"}

	t.Run("full record", func(t *testing.T) {
		raw := RawRecord{
			Name:            "  Vidya   Scholarship ",
			Description:     "scraped text that may be stale",
			DescriptionHTML: "<p>Merit scholarship of ₹10,000 per year</p>",
			Link:            "/apply/vidya?utm_source=x",
			Category:        "Education",
		}
		rec, ok := n.Record(raw, page, Seed{}, now)
		require.True(t, ok)
		require.Equal(t, "Vidya Scholarship", rec.Name)
		// Canonical text comes from the HTML fragment, not the scraped text.
		require.Equal(t, "Merit scholarship of ₹10,000 per year", rec.DescriptionText)
		require.Equal(t, "https://kerala.gov.in/apply/vidya", rec.Link)
		require.Equal(t, "https://kerala.gov.in/schemes", rec.SourceURL)
		require.Equal(t, now, rec.ScrapedAt)
		require.NotNil(t, rec.BenefitAmount)
		require.InDelta(t, 10000, *rec.BenefitAmount, 0.001)
	})

	t.Run("nameless record is malformed", func(t *testing.T) {
		_, ok := n.Record(RawRecord{Description: "text without a name"}, page, Seed{}, now)
		require.False(t, ok)
	})

	t.Run("category falls back to seed", func(t *testing.T) {
		rec, ok := n.Record(RawRecord{Name: "Annapurna"}, page, Seed{Category: "Food"}, now)
		require.True(t, ok)
		require.Equal(t, "Food", rec.Category)
	})
}
