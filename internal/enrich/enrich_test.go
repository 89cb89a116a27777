package enrich

import (
	"testing"

	"github.com/JustinTDCT/enrichr/internal/fetch"
	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/providers"
	"github.com/JustinTDCT/enrichr/internal/selector"
)

func TestMergeMetadataFirstNonEmptyWins(t *testing.T) {
	o := &Orchestrator{Priority: selector.ProviderPriority{"tmdb", "omdb"}}
	movie := &models.Movie{}
	results := []fetch.MetadataResult{
		{Provider: "omdb", Metadata: providers.Metadata{Title: "Wrong Title", Plot: "omdb plot"}},
		{Provider: "tmdb", Metadata: providers.Metadata{Title: "Correct Title", Year: 1999}},
	}

	o.mergeMetadata(movie, results)

	if movie.Title != "Correct Title" {
		t.Errorf("Title = %q, want Correct Title (tmdb ranked first)", movie.Title)
	}
	if movie.Year != 1999 {
		t.Errorf("Year = %d, want 1999", movie.Year)
	}
	if movie.Plot != "omdb plot" {
		t.Errorf("Plot = %q, want omdb plot (only omdb supplied it)", movie.Plot)
	}
	if movie.Status != models.StatusEnriching {
		t.Errorf("Status = %q, want enriching", movie.Status)
	}
}

func TestMergeMetadataSkipsFailedProviders(t *testing.T) {
	o := &Orchestrator{Priority: selector.ProviderPriority{"tmdb"}}
	movie := &models.Movie{}
	results := []fetch.MetadataResult{
		{Provider: "tmdb", Err: errTest{}},
	}
	o.mergeMetadata(movie, results)
	if movie.Title != "" {
		t.Errorf("Title = %q, want empty since the only provider failed", movie.Title)
	}
}

func TestSortByPriorityOrdersKnownProvidersFirst(t *testing.T) {
	results := []fetch.MetadataResult{
		{Provider: "fanarttv"},
		{Provider: "tmdb"},
		{Provider: "omdb"},
	}
	sortByPriority(results, selector.ProviderPriority{"tmdb", "omdb"})
	if results[0].Provider != "tmdb" || results[1].Provider != "omdb" {
		t.Errorf("unexpected order: %v", providerNames(results))
	}
}

func providerNames(results []fetch.MetadataResult) []string {
	names := make([]string, len(results))
	for i, r := range results {
		names[i] = r.Provider
	}
	return names
}

type errTest struct{}

func (errTest) Error() string { return "test error" }
