package selector

import (
	"testing"

	"github.com/JustinTDCT/enrichr/internal/imaging"
	"github.com/JustinTDCT/enrichr/internal/models"
)

func votes(v float64) *float64 { return &v }

func TestSelectPrefersLanguageAndHD(t *testing.T) {
	candidates := []*models.AssetCandidate{
		{Provider: "tmdb", Language: "fr", Width: 2000, Height: 3000, Votes: votes(10)},
		{Provider: "tmdb", Language: "en", Width: 2000, Height: 3000, Votes: votes(1)},
		{Provider: "fanarttv", Language: "en", Width: 500, Height: 750, Votes: votes(50)},
	}
	got := Select(candidates, "en", ProviderPriority{"tmdb", "fanarttv"})
	if got == nil || got.Language != "en" || got.Width != 2000 {
		t.Fatalf("expected the HD english candidate, got %+v", got)
	}
}

func TestSelectFallsBackToVotesWithinTier(t *testing.T) {
	candidates := []*models.AssetCandidate{
		{Provider: "a", Language: "en", Width: 1920, Height: 1080, Votes: votes(5)},
		{Provider: "b", Language: "en", Width: 1920, Height: 1080, Votes: votes(20)},
	}
	got := Select(candidates, "en", nil)
	if got.Provider != "b" {
		t.Errorf("expected candidate b (higher votes), got %s", got.Provider)
	}
}

// TestSelectVotesRequireSignificantGap pins the relative-difference gate: a
// one-vote edge (101 vs 100) is not significant relative to min(votes), so
// the tie falls through to pixel area instead of picking the higher count.
func TestSelectVotesRequireSignificantGap(t *testing.T) {
	candidates := []*models.AssetCandidate{
		{Provider: "a", Language: "en", Width: 1000, Height: 1000, Votes: votes(101)},
		{Provider: "b", Language: "en", Width: 1500, Height: 1500, Votes: votes(100)},
	}
	got := Select(candidates, "en", nil)
	if got.Provider != "b" {
		t.Errorf("expected candidate b (larger area, votes gap insignificant), got %s", got.Provider)
	}
}

func TestSelectEmpty(t *testing.T) {
	if got := Select(nil, "en", nil); got != nil {
		t.Errorf("Select(nil) = %+v, want nil", got)
	}
}

func TestDedupByURL(t *testing.T) {
	candidates := []*models.AssetCandidate{
		{Provider: "tmdb", SourceURL: "https://example.com/a.jpg"},
		{Provider: "fanarttv", SourceURL: "https://example.com/a.jpg"},
		{Provider: "omdb", SourceURL: "https://example.com/b.jpg"},
	}
	deduped := Dedup(candidates, imaging.ModeDefault)
	if len(deduped) != 2 {
		t.Errorf("Dedup kept %d candidates, want 2", len(deduped))
	}
}

func TestDedupByPerceptualHash(t *testing.T) {
	candidates := []*models.AssetCandidate{
		{Provider: "tmdb", SourceURL: "https://a.example/1.jpg", AHash: "ffffffff", DHash: "00000000"},
		{Provider: "fanarttv", SourceURL: "https://b.example/2.jpg", AHash: "ffffffff", DHash: "00000000"},
	}
	deduped := Dedup(candidates, imaging.ModeLenient)
	if len(deduped) != 1 {
		t.Errorf("Dedup kept %d perceptually-identical candidates, want 1", len(deduped))
	}
}
