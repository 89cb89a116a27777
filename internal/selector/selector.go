// Package selector deduplicates and scores asset candidates for a single
// (entity, asset_type) and picks the one that gets published.
package selector

import (
	"math"
	"sort"

	"github.com/JustinTDCT/enrichr/internal/imaging"
	"github.com/JustinTDCT/enrichr/internal/models"
)

// ProviderPriority orders providers when every other tiebreaker is equal.
// Lower index wins.
type ProviderPriority []string

func (p ProviderPriority) rank(provider string) int {
	for i, name := range p {
		if name == provider {
			return i
		}
	}
	return len(p)
}

// Tier buckets a candidate by language fit crossed with HD-ness — the
// scheme the spec calls out as a 4-tier system: matching language and HD
// beats matching language alone, which beats HD-only, which beats neither.
func tier(c *models.AssetCandidate, preferredLanguage string) int {
	langMatch := preferredLanguage == "" || c.Language == preferredLanguage || c.Language == ""
	switch {
	case langMatch && c.IsHD():
		return 0
	case langMatch:
		return 1
	case c.IsHD():
		return 2
	default:
		return 3
	}
}

// Dedup removes candidates that are perceptual-hash duplicates of one
// already seen, keeping the first (assumed highest-priority) occurrence.
// Candidates without computed hashes never match perceptually; they are
// merged only by the exact-copy check below.
func Dedup(candidates []*models.AssetCandidate, mode imaging.Mode) []*models.AssetCandidate {
	var kept []*models.AssetCandidate
	for _, c := range candidates {
		dup := false
		if c.AHash != "" && c.DHash != "" {
			for _, k := range kept {
				if k.AHash == "" || k.DHash == "" {
					continue
				}
				h1 := imaging.Hashes{AHash: c.AHash, DHash: c.DHash}
				h2 := imaging.Hashes{AHash: k.AHash, DHash: k.DHash}
				if imaging.IsDuplicate(h1, h2, mode) {
					dup = true
					break
				}
			}
		}
		if !dup {
			// Exact-copy check: the same source URL, or the same nonzero
			// dimensions with the same content hash. Byte size is not
			// compared on its own.
			for _, k := range kept {
				if c.SourceURL == k.SourceURL {
					dup = true
					break
				}
				if c.Width > 0 && c.Width == k.Width && c.Height == k.Height && c.ContentHash != "" && c.ContentHash == k.ContentHash {
					dup = true
					break
				}
			}
		}
		if !dup {
			kept = append(kept, c)
		}
	}
	return kept
}

// Select picks the best candidate from a deduplicated slice, in priority
// order: tier, then votes, then pixel area, then provider priority preset.
// Returns nil if candidates is empty. Locked or unmonitored entities should
// never reach this function — that guard lives in the publisher.
func Select(candidates []*models.AssetCandidate, preferredLanguage string, priority ProviderPriority) *models.AssetCandidate {
	if len(candidates) == 0 {
		return nil
	}

	ranked := make([]*models.AssetCandidate, len(candidates))
	copy(ranked, candidates)

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		ta, tb := tier(a, preferredLanguage), tier(b, preferredLanguage)
		if ta != tb {
			return ta < tb
		}
		av, bv := votesOf(a), votesOf(b)
		if significant(av, bv, 0.5) {
			return av > bv
		}
		aa, ba := float64(a.PixelArea()), float64(b.PixelArea())
		if significant(aa, ba, 0.1) {
			return aa > ba
		}
		return priority.rank(a.Provider) < priority.rank(b.Provider)
	})

	best := ranked[0]
	best.SelectionReason = selectionReason(best, preferredLanguage)
	best.DisplayScore = displayScore(best, preferredLanguage)
	return best
}

// significant reports whether a and b differ by more than factor times
// their minimum, the relative-difference gate that keeps a one-vote or
// one-pixel edge from deciding ordering a tier comparison already settled.
// When both values are zero the minimum is zero, so any nonzero difference
// is significant — no extra case needed for "neither candidate has data".
func significant(a, b, factor float64) bool {
	min := math.Min(a, b)
	return math.Abs(a-b) > factor*min
}

func votesOf(c *models.AssetCandidate) float64 {
	if c.Votes == nil {
		return 0
	}
	return *c.Votes
}

func selectionReason(c *models.AssetCandidate, preferredLanguage string) string {
	switch tier(c, preferredLanguage) {
	case 0:
		return "preferred language, HD"
	case 1:
		return "preferred language"
	case 2:
		return "HD, language fallback"
	default:
		return "best available fallback"
	}
}

// displayScore is a single 0-100 number summarizing tier/votes/area for
// operator-facing listings; it is never used in the selection comparison
// itself, which always compares the fields directly.
func displayScore(c *models.AssetCandidate, preferredLanguage string) float64 {
	base := float64(3-tier(c, preferredLanguage)) * 25
	base += votesOf(c) / 10
	if c.IsHD() {
		base += 5
	}
	if base > 100 {
		base = 100
	}
	return base
}
