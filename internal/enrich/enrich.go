// Package enrich drives the end-to-end metadata/artwork pipeline for a
// single entity: pull metadata and candidate assets from every configured
// provider, score and select the winning asset per type, attach cast
// thumbnails, and settle on a trailer. Each phase has its own failure
// policy — a total loss in phase one aborts the run, later phases degrade
// gracefully and just log what they could not do.
package enrich

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/cache"
	"github.com/JustinTDCT/enrichr/internal/fetch"
	"github.com/JustinTDCT/enrichr/internal/imaging"
	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/providers"
	"github.com/JustinTDCT/enrichr/internal/registry"
	"github.com/JustinTDCT/enrichr/internal/repository"
	"github.com/JustinTDCT/enrichr/internal/selector"
)

// movieAssetTypes is the set of asset types worth requesting for a
// movie entity. TV/music libraries would extend this list; only movies are
// wired today.
var movieAssetTypes = []models.AssetType{
	models.AssetPoster, models.AssetFanart, models.AssetBanner,
	models.AssetClearLogo, models.AssetClearArt, models.AssetDiscArt,
	models.AssetLandscape, models.AssetThumb, models.AssetTrailer,
}

// ProgressFunc reports phase-level progress for a single entity's run, so
// callers can push it out over a notification transport.
type ProgressFunc func(phase string, done, total int)

type Orchestrator struct {
	Registry     *registry.Registry
	Movies       *repository.MovieRepository
	Assets       *repository.AssetRepository
	Activity     *repository.ActivityRepository
	Cache        *cache.Store
	HashMode     imaging.Mode
	Priority     selector.ProviderPriority
	PreferredLang string

	httpClient *http.Client
}

func New(reg *registry.Registry, movies *repository.MovieRepository, assets *repository.AssetRepository,
	activity *repository.ActivityRepository, store *cache.Store, priority selector.ProviderPriority) *Orchestrator {
	return &Orchestrator{
		Registry:      reg,
		Movies:        movies,
		Assets:        assets,
		Activity:      activity,
		Cache:         store,
		HashMode:      imaging.ModeDefault,
		Priority:      priority,
		PreferredLang: "en",
		httpClient:    &http.Client{Timeout: 20 * time.Second},
	}
}

// Result summarizes what each phase accomplished, for callers that want to
// report more than a pass/fail.
type Result struct {
	MetadataProviders int
	AssetsSelected    int
	CastThumbsPulled  int
	TrailerSelected   bool
}

// Run executes all five phases for movie in order. A phase-one total
// failure aborts early and returns an error; every later phase failure is
// logged and absorbed so a run always leaves the entity in its best
// achievable state rather than an all-or-nothing outcome.
func (o *Orchestrator) Run(ctx context.Context, movie *models.Movie, progress ProgressFunc) (Result, error) {
	var result Result

	// ── Phase 1: Provider Fetch ──
	metaResults := o.fetchMetadata(ctx, movie, progress)
	if (fetch.Results{Metadata: metaResults}).AllFailed() {
		return result, fmt.Errorf("enrich %s: every provider failed metadata lookup", movie.ID)
	}
	o.mergeMetadata(movie, metaResults)
	result.MetadataProviders = countOK(metaResults)

	if err := o.Movies.UpdateMetadata(movie); err != nil {
		return result, fmt.Errorf("persist merged metadata: %w", err)
	}

	externalIDs := providerExternalIDs(movie)

	// ── Phase 2: Asset Selection ──
	selected := o.selectAssets(ctx, movie, externalIDs, progress)
	result.AssetsSelected = selected

	// ── Phase 3: Actor Enrichment ──
	result.CastThumbsPulled = o.enrichActors(ctx, movie, metaResults, progress)

	// ── Phase 4 & 5: Trailer Analysis + Selection ──
	result.TrailerSelected = o.selectTrailer(ctx, movie, externalIDs, progress)

	if movie.CanMarkEnriched() {
		if err := o.Movies.MarkEnriched(movie.ID); err != nil {
			log.Printf("enrich: mark enriched %s: %v", movie.ID, err)
		}
	}
	o.logActivity(movie.ID, "enrich", fmt.Sprintf("enriched %q from %d provider(s), %d asset(s) selected",
		movie.Title, result.MetadataProviders, result.AssetsSelected))

	return result, nil
}

func (o *Orchestrator) fetchMetadata(ctx context.Context, movie *models.Movie, progress ProgressFunc) []fetch.MetadataResult {
	ids := providerExternalIDs(movie)
	return fetch.FetchMetadata(ctx, o.Registry, ids, func(provider string, done, total int) {
		if progress != nil {
			progress("metadata", done, total)
		}
	})
}

// providerExternalIDs maps each registered provider name to the id it
// should be queried with. Fanart.tv keys off the TMDB id, so both share it.
func providerExternalIDs(movie *models.Movie) map[string]string {
	ids := map[string]string{}
	if movie.ExternalIDs.TMDB != "" {
		ids["tmdb"] = movie.ExternalIDs.TMDB
		ids["fanarttv"] = movie.ExternalIDs.TMDB
	}
	if movie.ExternalIDs.IMDB != "" {
		ids["omdb"] = movie.ExternalIDs.IMDB
	}
	if movie.ExternalIDs.TVDB != "" {
		ids["tvdb"] = movie.ExternalIDs.TVDB
	}
	return ids
}

func countOK(results []fetch.MetadataResult) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// mergeMetadata applies each successful provider result to movie in
// provider-priority order, first non-empty field wins, and unions external
// ids so later phases can query every provider the entity is now known to.
func (o *Orchestrator) mergeMetadata(movie *models.Movie, results []fetch.MetadataResult) {
	ranked := make([]fetch.MetadataResult, len(results))
	copy(ranked, results)
	sortByPriority(ranked, o.Priority)

	for _, r := range ranked {
		if r.Err != nil {
			continue
		}
		md := r.Metadata
		if movie.Title == "" {
			movie.Title = md.Title
		}
		if movie.OriginalTitle == "" {
			movie.OriginalTitle = md.OriginalTitle
		}
		if movie.Year == 0 {
			movie.Year = md.Year
		}
		if movie.Plot == "" {
			movie.Plot = md.Plot
		}
		if movie.Tagline == "" {
			movie.Tagline = md.Tagline
		}
		if movie.RuntimeMin == 0 {
			movie.RuntimeMin = md.RuntimeMin
		}
		if movie.ReleaseDate == "" {
			movie.ReleaseDate = md.ReleaseDate
		}
		if movie.ExternalIDs.TMDB == "" {
			movie.ExternalIDs.TMDB = md.ExternalIDs.TMDB
		}
		if movie.ExternalIDs.IMDB == "" {
			movie.ExternalIDs.IMDB = md.ExternalIDs.IMDB
		}
		if movie.ExternalIDs.TVDB == "" {
			movie.ExternalIDs.TVDB = md.ExternalIDs.TVDB
		}
	}
	if movie.Status == "" || movie.Status == models.StatusUnidentified || movie.Status == models.StatusIdentified {
		movie.Status = models.StatusEnriching
	}
}

func sortByPriority(results []fetch.MetadataResult, priority selector.ProviderPriority) {
	rank := func(name string) int {
		for i, p := range priority {
			if p == name {
				return i
			}
		}
		return len(priority)
	}
	for i := 1; i < len(results); i++ {
		for j := i; j > 0 && rank(results[j].Provider) < rank(results[j-1].Provider); j-- {
			results[j], results[j-1] = results[j-1], results[j]
		}
	}
}

// selectAssets runs phase two for every asset type worth requesting on a
// movie entity and returns how many asset types ended with a selection.
func (o *Orchestrator) selectAssets(ctx context.Context, movie *models.Movie, externalIDs map[string]string, progress ProgressFunc) int {
	selectedCount := 0
	for _, assetType := range movieAssetTypes {
		if assetType == models.AssetTrailer {
			continue // handled separately by phases 4/5
		}
		assetResults := fetch.FetchAssets(ctx, o.Registry, assetType, externalIDs, func(provider string, done, total int) {
			if progress != nil {
				progress("assets:"+string(assetType), done, total)
			}
		})

		candidates := o.toCandidates(ctx, movie.ID, assetType, assetResults)
		if len(candidates) == 0 {
			continue
		}

		deduped := selector.Dedup(candidates, o.HashMode)
		winner := selector.Select(deduped, o.PreferredLang, o.Priority)
		if winner == nil {
			continue
		}

		for _, c := range deduped {
			if err := o.Assets.Create(c); err != nil {
				log.Printf("enrich: save candidate %s/%s from %s: %v", movie.ID, assetType, c.Provider, err)
			}
		}
		if err := o.Assets.SetSelected(movie.ID, assetType, winner.ID); err != nil {
			log.Printf("enrich: select %s/%s: %v", movie.ID, assetType, err)
			continue
		}
		selectedCount++
	}
	return selectedCount
}

// toCandidates downloads each asset's bytes far enough to compute a
// perceptual hash and cache it, converting provider results into
// persistable AssetCandidate rows. Candidates whose bytes cannot be
// fetched are dropped rather than failing the whole phase.
func (o *Orchestrator) toCandidates(ctx context.Context, entityID uuid.UUID, assetType models.AssetType, results []fetch.AssetResult) []*models.AssetCandidate {
	var out []*models.AssetCandidate
	for _, r := range results {
		if r.Err != nil {
			log.Printf("enrich: %s asset fetch from %s failed: %v", assetType, r.Provider, r.Err)
			continue
		}
		for _, a := range r.Assets {
			c := &models.AssetCandidate{
				ID:        uuid.New(),
				EntityID:  entityID,
				AssetType: assetType,
				Provider:  r.Provider,
				SourceURL: a.SourceURL,
				Width:     a.Width,
				Height:    a.Height,
				Language:  a.Language,
				Votes:     a.Votes,
			}
			hash, err := o.hashAndCache(ctx, entityID, assetType, a.SourceURL)
			if err != nil {
				log.Printf("enrich: %s asset %s from %s dropped: %v", assetType, a.SourceURL, r.Provider, err)
				continue
			}
			c.ContentHash = hash.contentHash
			c.AHash = hash.ahash
			c.DHash = hash.dhash
			out = append(out, c)
		}
	}
	return out
}

type assetHash struct {
	contentHash string
	ahash       string
	dhash       string
}

func (o *Orchestrator) hashAndCache(ctx context.Context, entityID uuid.UUID, assetType models.AssetType, url string) (assetHash, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return assetHash{}, err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return assetHash{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return assetHash{}, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return assetHash{}, err
	}

	hashes, err := imaging.Compute(bytes.NewReader(body))
	if err != nil {
		return assetHash{}, err
	}

	contentHash, _, _, err := o.Cache.Put(models.CacheKindImage, bytes.NewReader(body))
	if err != nil {
		return assetHash{}, err
	}

	return assetHash{contentHash: contentHash, ahash: hashes.AHash, dhash: hashes.DHash}, nil
}

// enrichActors pulls a profile thumbnail for each cast member the
// highest-priority metadata provider returned, warming the cache so the
// publisher never blocks on a provider fetch. There is no dedicated cast
// table; the cast list itself is stored as JSON on the movie row via SetCast.
func (o *Orchestrator) enrichActors(ctx context.Context, movie *models.Movie, metaResults []fetch.MetadataResult, progress ProgressFunc) int {
	var cast []providers.CastMember
	ranked := make([]fetch.MetadataResult, len(metaResults))
	copy(ranked, metaResults)
	sortByPriority(ranked, o.Priority)
	for _, r := range ranked {
		if r.Err == nil && len(r.Metadata.Cast) > 0 {
			cast = r.Metadata.Cast
			break
		}
	}

	pulled := 0
	for i, member := range cast {
		if member.ProfileURL == "" {
			continue
		}
		if progress != nil {
			progress("actors", i+1, len(cast))
		}
		if _, err := o.hashAndCache(ctx, movie.ID, models.AssetCharacterArt, member.ProfileURL); err != nil {
			log.Printf("enrich: cast thumb for %q: %v", member.Name, err)
			continue
		}
		pulled++
	}

	if len(cast) > 0 {
		if body, err := json.Marshal(cast); err != nil {
			log.Printf("enrich: marshal cast for %s: %v", movie.ID, err)
		} else if err := o.Movies.SetCast(movie.ID, string(body)); err != nil {
			log.Printf("enrich: persist cast for %s: %v", movie.ID, err)
		}
	}
	return pulled
}

// selectTrailer runs phases four and five together: fetch trailer
// candidates, drop any whose URL does not resolve (phase 4's "analysis"),
// then pick the remaining best one with selector.Select (language tier, then
// a significant vote gap, then provider priority) in phase 5; perceptual
// hashing does not apply to video, so trailers skip Dedup.
func (o *Orchestrator) selectTrailer(ctx context.Context, movie *models.Movie, externalIDs map[string]string, progress ProgressFunc) bool {
	results := fetch.FetchAssets(ctx, o.Registry, models.AssetTrailer, externalIDs, func(provider string, done, total int) {
		if progress != nil {
			progress("trailer", done, total)
		}
	})

	var candidates []*models.AssetCandidate
	for _, r := range results {
		if r.Err != nil {
			continue
		}
		for _, a := range r.Assets {
			if !o.trailerReachable(ctx, a.SourceURL) {
				continue
			}
			candidates = append(candidates, &models.AssetCandidate{
				ID:        uuid.New(),
				EntityID:  movie.ID,
				AssetType: models.AssetTrailer,
				Provider:  r.Provider,
				SourceURL: a.SourceURL,
				Language:  a.Language,
				Votes:     a.Votes,
			})
		}
	}
	if len(candidates) == 0 {
		return false
	}

	winner := selector.Select(candidates, o.PreferredLang, o.Priority)
	for _, c := range candidates {
		if err := o.Assets.Create(c); err != nil {
			log.Printf("enrich: save trailer candidate %s: %v", movie.ID, err)
		}
	}
	if err := o.Assets.SetSelected(movie.ID, models.AssetTrailer, winner.ID); err != nil {
		log.Printf("enrich: select trailer %s: %v", movie.ID, err)
		return false
	}
	return true
}

func (o *Orchestrator) trailerReachable(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (o *Orchestrator) logActivity(entityID uuid.UUID, kind, message string) {
	if o.Activity == nil {
		return
	}
	if err := o.Activity.Log(kind, &entityID, message); err != nil {
		log.Printf("enrich: log activity: %v", err)
	}
}
