package harvest

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// CardSelectorSet describes one candidate card/list-item shape. Container is
// the item selector; the field slices are ordered candidate sub-selectors,
// first match wins per field.
type CardSelectorSet struct {
	Container   string   `yaml:"container"`
	Name        []string `yaml:"name"`
	Description []string `yaml:"description"`
	Eligibility []string `yaml:"eligibility"`
	Link        []string `yaml:"link"`
	Category    []string `yaml:"category"`
	Region      []string `yaml:"region"`
}

// Dataset holds the externally updatable harvest data: seeds, selector lists,
// keyword sets, and the slug table. Live sites change their markup without
// notice, so none of this is hard-coded logic; the compiled-in defaults are
// just a starting point.
type Dataset struct {
	Seeds               []Seed            `yaml:"seeds"`
	CardSelectors       []CardSelectorSet `yaml:"card_selectors"`
	PaginationSelectors []string          `yaml:"pagination_selectors"`
	NextLabels          []string          `yaml:"next_labels"`
	SchemeKeywords      []string          `yaml:"scheme_keywords"`
	CentralKeywords     []string          `yaml:"central_keywords"`
	CentralDomains      []string          `yaml:"central_domains"`
	RegionSlugs         map[string]string `yaml:"region_slugs"`
	TrackingParams      []string          `yaml:"tracking_params"`
	AmountPatterns      []string          `yaml:"amount_patterns"`
}

// LoadDataset reads the harvest data file. Sections the file omits fall back
// to the compiled-in defaults so a partial file only overrides what it names.
func LoadDataset(path string) (Dataset, error) {
	base := DefaultDataset()
	if path == "" {
		return base, nil
	}
	raw, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		return Dataset{}, fmt.Errorf("read data file %s: %w", path, err)
	}
	var file Dataset
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return Dataset{}, fmt.Errorf("parse data file %s: %w", path, err)
	}
	return mergeDataset(base, file), nil
}

func mergeDataset(base, file Dataset) Dataset {
	out := base
	if len(file.Seeds) > 0 {
		out.Seeds = file.Seeds
	}
	if len(file.CardSelectors) > 0 {
		out.CardSelectors = file.CardSelectors
	}
	if len(file.PaginationSelectors) > 0 {
		out.PaginationSelectors = file.PaginationSelectors
	}
	if len(file.NextLabels) > 0 {
		out.NextLabels = file.NextLabels
	}
	if len(file.SchemeKeywords) > 0 {
		out.SchemeKeywords = file.SchemeKeywords
	}
	if len(file.CentralKeywords) > 0 {
		out.CentralKeywords = file.CentralKeywords
	}
	if len(file.CentralDomains) > 0 {
		out.CentralDomains = file.CentralDomains
	}
	if len(file.RegionSlugs) > 0 {
		out.RegionSlugs = file.RegionSlugs
	}
	if len(file.TrackingParams) > 0 {
		out.TrackingParams = file.TrackingParams
	}
	if len(file.AmountPatterns) > 0 {
		out.AmountPatterns = file.AmountPatterns
	}
	return out
}

// SeedsForRegions returns the dataset's seeds ordered by trust (curated,
// region listing, category search) with region-listing seeds filtered down to
// the requested regions. An empty region filter keeps everything.
func (d Dataset) SeedsForRegions(regions []string) []Seed {
	wanted := make(map[string]struct{}, len(regions))
	for _, r := range regions {
		wanted[slugKey(r)] = struct{}{}
	}
	var out []Seed
	for _, kind := range []SeedKind{SeedCurated, SeedRegionListing, SeedCategorySearch} {
		for _, s := range d.Seeds {
			if s.Kind != kind {
				continue
			}
			if kind == SeedRegionListing && len(wanted) > 0 {
				if _, ok := wanted[slugKey(s.Region)]; !ok {
					continue
				}
			}
			out = append(out, s)
		}
	}
	return out
}

// DefaultDataset returns the compiled-in harvest data.
func DefaultDataset() Dataset {
	return Dataset{
		Seeds: []Seed{
			{URL: "https://www.myscheme.gov.in/search", Kind: SeedCurated, Mode: ModeRendered},
			{URL: "https://www.india.gov.in/my-government/schemes", Kind: SeedCurated},
			{URL: "https://www.india.gov.in/topics/agriculture/schemes", Kind: SeedCategorySearch, Category: "Agriculture"},
			{URL: "https://www.india.gov.in/topics/education/schemes", Kind: SeedCategorySearch, Category: "Education"},
			{URL: "https://www.india.gov.in/topics/social-development/schemes", Kind: SeedCategorySearch, Category: "Social Development"},
		},
		CardSelectors: []CardSelectorSet{
			{
				Container:   ".scheme-card, .scheme-item, .yojana-card",
				Name:        []string{".scheme-title", ".scheme-name", "h2", "h3"},
				Description: []string{".scheme-description", ".description", "p"},
				Eligibility: []string{".eligibility", ".scheme-eligibility"},
				Link:        []string{"a.scheme-link", "a"},
				Category:    []string{".category", ".scheme-category"},
				Region:      []string{".state", ".region"},
			},
			{
				Container:   ".card, .list-group-item",
				Name:        []string{".card-title", "h2", "h3", "h4", "strong"},
				Description: []string{".card-text", ".card-body p", "p"},
				Eligibility: []string{".eligibility"},
				Link:        []string{"a[href]"},
				Category:    []string{".badge", ".tag"},
				Region:      []string{".state"},
			},
			{
				Container:   "article, .result-item, .search-result",
				Name:        []string{"h1", "h2", "h3", ".title"},
				Description: []string{".summary", ".excerpt", "p"},
				Eligibility: []string{".eligibility"},
				Link:        []string{"a[href]"},
				Category:    []string{".category"},
				Region:      []string{".location", ".state"},
			},
		},
		PaginationSelectors: []string{
			"a[rel=next]",
			".pagination a.next",
			".pagination li.next a",
			"a.next-page",
			".pager a.next",
		},
		NextLabels: []string{"next", "next page", "»", ">", "more schemes", "older"},
		SchemeKeywords: []string{
			"scheme", "yojana", "yojna", "scholarship", "pension",
			"subsidy", "welfare", "benefit", "awas", "bima", "kalyan",
		},
		CentralKeywords: []string{
			"central government", "ministry of", "government of india",
			"national scheme", "pan india", "centrally sponsored",
		},
		CentralDomains: []string{
			"india.gov.in", "mygov.in", "pmindia.gov.in",
			"pmkisan.gov.in", "myscheme.gov.in",
		},
		RegionSlugs:    defaultRegionSlugs(),
		TrackingParams: []string{"gclid", "fbclid", "msclkid", "ref", "source", "campaign"},
		AmountPatterns: []string{
			`(?:₹|Rs\.?|INR)\s*([0-9][0-9,]*(?:\.[0-9]+)?)`,
			`(?i)([0-9][0-9,]*(?:\.[0-9]+)?)\s*(?:rupees|rs\.?)(?:\s|/|-|$)`,
		},
	}
}

// defaultRegionSlugs maps normalized slugs to canonical region display names.
// Entries mapping to CentralRegion let URL segments like /central/ resolve to
// the nationwide sentinel.
func defaultRegionSlugs() map[string]string {
	return map[string]string{
		"andhra-pradesh":    "Andhra Pradesh",
		"arunachal-pradesh": "Arunachal Pradesh",
		"assam":             "Assam",
		"bihar":             "Bihar",
		"chhattisgarh":      "Chhattisgarh",
		"goa":               "Goa",
		"gujarat":           "Gujarat",
		"haryana":           "Haryana",
		"himachal-pradesh":  "Himachal Pradesh",
		"jharkhand":         "Jharkhand",
		"karnataka":         "Karnataka",
		"kerala":            "Kerala",
		"madhya-pradesh":    "Madhya Pradesh",
		"maharashtra":       "Maharashtra",
		"manipur":           "Manipur",
		"meghalaya":         "Meghalaya",
		"mizoram":           "Mizoram",
		"nagaland":          "Nagaland",
		"odisha":            "Odisha",
		"orissa":            "Odisha",
		"punjab":            "Punjab",
		"rajasthan":         "Rajasthan",
		"sikkim":            "Sikkim",
		"tamil-nadu":        "Tamil Nadu",
		"tamilnadu":         "Tamil Nadu",
		"telangana":         "Telangana",
		"tripura":           "Tripura",
		"uttar-pradesh":     "Uttar Pradesh",
		"uttarakhand":       "Uttarakhand",
		"west-bengal":       "West Bengal",
		"delhi":             "Delhi",
		"jammu-and-kashmir": "Jammu and Kashmir",
		"ladakh":            "Ladakh",
		"puducherry":        "Puducherry",
		"pondicherry":       "Puducherry",
		"chandigarh":        "Chandigarh",
		"andaman-and-nicobar-islands": "Andaman and Nicobar Islands",
		"central":  CentralRegion,
		"india":    CentralRegion,
		"national": CentralRegion,
	}
}
