package harvest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDataset_EmptyPathUsesDefaults(t *testing.T) {
	data, err := LoadDataset("")
	require.NoError(t, err)
	require.NotEmpty(t, data.Seeds)
	require.NotEmpty(t, data.CardSelectors)
	require.NotEmpty(t, data.RegionSlugs)
	require.NotEmpty(t, data.AmountPatterns)
}

func TestLoadDataset_FileOverridesSectionWise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "harvest.yaml")
	content := `
seeds:
  - url: https://kerala.gov.in/schemes
    kind: region-listing
    region: Kerala
next_labels: ["weiter"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	data, err := LoadDataset(path)
	require.NoError(t, err)

	// Named sections are replaced.
	require.Len(t, data.Seeds, 1)
	require.Equal(t, SeedRegionListing, data.Seeds[0].Kind)
	require.Equal(t, []string{"weiter"}, data.NextLabels)
	// Omitted sections keep their defaults.
	require.Equal(t, DefaultDataset().SchemeKeywords, data.SchemeKeywords)
	require.Equal(t, DefaultDataset().RegionSlugs, data.RegionSlugs)
}

func TestLoadDataset_MissingFile(t *testing.T) {
	_, err := LoadDataset(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}

func TestLoadDataset_MalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seeds: {not a list"), 0o600))
	_, err := LoadDataset(path)
	require.Error(t, err)
}

func TestSeedsForRegions_TrustOrder(t *testing.T) {
	data := Dataset{Seeds: []Seed{
		{URL: "https://search.example.gov.in", Kind: SeedCategorySearch},
		{URL: "https://kerala.gov.in/schemes", Kind: SeedRegionListing, Region: "Kerala"},
		{URL: "https://myscheme.gov.in", Kind: SeedCurated},
	}}

	seeds := data.SeedsForRegions(nil)
	require.Len(t, seeds, 3)
	require.Equal(t, SeedCurated, seeds[0].Kind)
	require.Equal(t, SeedRegionListing, seeds[1].Kind)
	require.Equal(t, SeedCategorySearch, seeds[2].Kind)
}

func TestSeedsForRegions_FiltersRegionListings(t *testing.T) {
	data := Dataset{Seeds: []Seed{
		{URL: "https://myscheme.gov.in", Kind: SeedCurated},
		{URL: "https://kerala.gov.in/schemes", Kind: SeedRegionListing, Region: "Kerala"},
		{URL: "https://bihar.gov.in/schemes", Kind: SeedRegionListing, Region: "Bihar"},
		{URL: "https://search.example.gov.in", Kind: SeedCategorySearch},
	}}

	seeds := data.SeedsForRegions([]string{"kerala"})
	require.Len(t, seeds, 3)
	for _, s := range seeds {
		if s.Kind == SeedRegionListing {
			require.Equal(t, "Kerala", s.Region)
		}
	}
}
