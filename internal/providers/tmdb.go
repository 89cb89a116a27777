package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/perr"
)

// TMDB adapts The Movie Database's v3 REST API to the Provider contract.
type TMDB struct {
	apiKey string
	client *http.Client
}

func NewTMDB(apiKey string) *TMDB {
	return &TMDB{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

func (t *TMDB) Name() string { return "tmdb" }

func (t *TMDB) Capabilities() Capabilities {
	return Capabilities{
		Name:             "tmdb",
		SupportsSearch:   true,
		SupportsMetadata: true,
		SupportsAssets:   true,
		AssetTypes:       []models.AssetType{models.AssetPoster, models.AssetFanart},
		RateLimitPerMin:  40,
	}
}

var tmdbGenreMap = map[int]string{
	28: "Action", 12: "Adventure", 16: "Animation", 35: "Comedy", 80: "Crime",
	99: "Documentary", 18: "Drama", 10751: "Family", 14: "Fantasy", 36: "History",
	27: "Horror", 10402: "Music", 9648: "Mystery", 10749: "Romance",
	878: "Science Fiction", 10770: "TV Movie", 53: "Thriller", 10752: "War", 37: "Western",
}

func (t *TMDB) do(ctx context.Context, reqURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return perr.Validation(err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return perr.Network(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return perr.RateLimit(0, fmt.Errorf("tmdb rate limited"))
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return perr.Auth(fmt.Errorf("tmdb auth rejected (status %d)", resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return perr.NotFound(fmt.Errorf("tmdb returned 404"))
	case resp.StatusCode >= 500:
		return perr.ServerError(fmt.Errorf("tmdb returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return perr.Validation(fmt.Errorf("tmdb returned %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.ServerError(fmt.Errorf("decode tmdb response: %w", err))
	}
	return nil
}

type tmdbSearchResponse struct {
	Results []struct {
		ID            int     `json:"id"`
		Title         string  `json:"title"`
		OriginalTitle string  `json:"original_title"`
		Overview      string  `json:"overview"`
		PosterPath    string  `json:"poster_path"`
		ReleaseDate   string  `json:"release_date"`
		VoteAverage   float64 `json:"vote_average"`
	} `json:"results"`
}

func (t *TMDB) Search(ctx context.Context, query string, kind models.MediaKind, year int) ([]SearchResult, error) {
	if t.apiKey == "" {
		return nil, perr.Auth(fmt.Errorf("tmdb api key not configured"))
	}

	results, err := t.search(ctx, query, year)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && year > 0 {
		results, err = t.search(ctx, query, 0)
		if err != nil {
			return nil, err
		}
	}
	return results, nil
}

func (t *TMDB) search(ctx context.Context, query string, year int) ([]SearchResult, error) {
	reqURL := fmt.Sprintf("https://api.themoviedb.org/3/search/movie?api_key=%s&query=%s",
		t.apiKey, url.QueryEscape(query))
	if year > 0 {
		reqURL += fmt.Sprintf("&year=%d", year)
	}

	var resp tmdbSearchResponse
	if err := t.do(ctx, reqURL, &resp); err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(resp.Results))
	for i, r := range resp.Results {
		resultYear := 0
		if len(r.ReleaseDate) >= 4 {
			fmt.Sscanf(r.ReleaseDate[:4], "%d", &resultYear)
		}
		conf := titleSimilarity(query, r.Title)
		if r.OriginalTitle != "" && r.OriginalTitle != r.Title {
			if origConf := titleSimilarity(query, r.OriginalTitle); origConf > conf {
				conf = origConf
			}
		}
		if i < 3 {
			conf += 0.05 * float64(3-i) / 3.0
			if conf > 1.0 {
				conf = 1.0
			}
		}
		out = append(out, SearchResult{
			ExternalID: fmt.Sprintf("%d", r.ID),
			Title:      r.Title,
			Year:       resultYear,
			Confidence: conf,
		})
	}
	return out, nil
}

// titleSimilarity scores a search query against a result title: exact match
// is 1.0, prefix containment is 0.9, otherwise falls back to word-overlap
// with a penalty when the result carries many extra words the query never
// asked for (e.g. query "Cloverfield" vs result "10 Cloverfield Lane").
func titleSimilarity(query, result string) float64 {
	q := strings.ToLower(strings.TrimSpace(query))
	r := strings.ToLower(strings.TrimSpace(result))

	if q == r {
		return 1.0
	}
	if strings.HasPrefix(r, q+" ") || strings.HasPrefix(q, r+" ") {
		return 0.9
	}

	qWords := strings.Fields(q)
	rWords := strings.Fields(r)
	if len(qWords) == 0 || len(rWords) == 0 {
		return 0.0
	}

	rSet := make(map[string]bool, len(rWords))
	for _, w := range rWords {
		rSet[w] = true
	}
	matches := 0
	for _, w := range qWords {
		if rSet[w] {
			matches++
		}
	}

	total := len(qWords)
	if len(rWords) > total {
		total = len(rWords)
	}
	score := float64(matches) / float64(total)
	if len(rWords) > len(qWords) {
		score *= float64(len(qWords)) / float64(len(rWords))
	}
	return score
}

type tmdbReleaseDateCountry struct {
	ISO31661     string `json:"iso_3166_1"`
	ReleaseDates []struct {
		Certification string `json:"certification"`
	} `json:"release_dates"`
}

func extractUSCertification(countries []tmdbReleaseDateCountry) string {
	for _, c := range countries {
		if c.ISO31661 != "US" {
			continue
		}
		for _, rd := range c.ReleaseDates {
			if rd.Certification != "" {
				return rd.Certification
			}
		}
	}
	return ""
}

type tmdbCastMember struct {
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

func (t *TMDB) GetMetadata(ctx context.Context, externalID string) (Metadata, error) {
	if t.apiKey == "" {
		return Metadata{}, perr.Auth(fmt.Errorf("tmdb api key not configured"))
	}

	reqURL := fmt.Sprintf(
		"https://api.themoviedb.org/3/movie/%s?api_key=%s&append_to_response=release_dates,credits",
		externalID, t.apiKey,
	)

	var r struct {
		Title         string  `json:"title"`
		OriginalTitle string  `json:"original_title"`
		Overview      string  `json:"overview"`
		Tagline       string  `json:"tagline"`
		ReleaseDate   string  `json:"release_date"`
		Runtime       int     `json:"runtime"`
		VoteAverage   float64 `json:"vote_average"`
		IMDBId        string  `json:"imdb_id"`
		Genres        []struct {
			Name string `json:"name"`
		} `json:"genres"`
		ReleaseDates struct {
			Results []tmdbReleaseDateCountry `json:"results"`
		} `json:"release_dates"`
		Credits struct {
			Cast []tmdbCastMember `json:"cast"`
		} `json:"credits"`
	}
	if err := t.do(ctx, reqURL, &r); err != nil {
		return Metadata{}, err
	}

	year := 0
	if len(r.ReleaseDate) >= 4 {
		fmt.Sscanf(r.ReleaseDate[:4], "%d", &year)
	}

	genres := make([]string, 0, len(r.Genres))
	for _, g := range r.Genres {
		genres = append(genres, g.Name)
	}

	cast := make([]CastMember, 0, len(r.Credits.Cast))
	for _, c := range r.Credits.Cast {
		profileURL := ""
		if c.ProfilePath != "" {
			profileURL = "https://image.tmdb.org/t/p/w185" + c.ProfilePath
		}
		cast = append(cast, CastMember{
			Name: c.Name, Character: c.Character, Order: c.Order, ProfileURL: profileURL,
		})
	}

	rating := r.VoteAverage
	return Metadata{
		Title:         r.Title,
		OriginalTitle: r.OriginalTitle,
		Year:          year,
		Plot:          r.Overview,
		Tagline:       r.Tagline,
		RuntimeMin:    r.Runtime,
		ReleaseDate:   r.ReleaseDate,
		ExternalIDs:   models.ExternalIDs{TMDB: externalID, IMDB: r.IMDBId},
		Genres:        genres,
		Rating:        &rating,
		ContentRating: extractUSCertification(r.ReleaseDates.Results),
		Cast:          cast,
	}, nil
}

func (t *TMDB) GetAssets(ctx context.Context, externalID string) ([]AssetResult, error) {
	if t.apiKey == "" {
		return nil, perr.Auth(fmt.Errorf("tmdb api key not configured"))
	}

	reqURL := fmt.Sprintf("https://api.themoviedb.org/3/movie/%s/images?api_key=%s", externalID, t.apiKey)

	var r struct {
		Posters []struct {
			FilePath    string  `json:"file_path"`
			Width       int     `json:"width"`
			Height      int     `json:"height"`
			Iso639_1    string  `json:"iso_639_1"`
			VoteAverage float64 `json:"vote_average"`
		} `json:"posters"`
		Backdrops []struct {
			FilePath    string  `json:"file_path"`
			Width       int     `json:"width"`
			Height      int     `json:"height"`
			Iso639_1    string  `json:"iso_639_1"`
			VoteAverage float64 `json:"vote_average"`
		} `json:"backdrops"`
	}
	if err := t.do(ctx, reqURL, &r); err != nil {
		return nil, err
	}

	out := make([]AssetResult, 0, len(r.Posters)+len(r.Backdrops))
	for _, p := range r.Posters {
		votes := p.VoteAverage
		out = append(out, AssetResult{
			AssetType: models.AssetPoster,
			SourceURL: "https://image.tmdb.org/t/p/original" + p.FilePath,
			Width:     p.Width, Height: p.Height, Language: p.Iso639_1, Votes: &votes,
		})
	}
	for _, b := range r.Backdrops {
		votes := b.VoteAverage
		out = append(out, AssetResult{
			AssetType: models.AssetFanart,
			SourceURL: "https://image.tmdb.org/t/p/original" + b.FilePath,
			Width:     b.Width, Height: b.Height, Language: b.Iso639_1, Votes: &votes,
		})
	}
	return out, nil
}

func (t *TMDB) TestConnection(ctx context.Context) TestResult {
	now := time.Now()
	if t.apiKey == "" {
		return TestResult{OK: false, CheckedAt: now, Message: "no api key configured"}
	}
	reqURL := fmt.Sprintf("https://api.themoviedb.org/3/configuration?api_key=%s", t.apiKey)
	var out map[string]any
	if err := t.do(ctx, reqURL, &out); err != nil {
		return TestResult{OK: false, CheckedAt: now, Message: err.Error()}
	}
	return TestResult{OK: true, CheckedAt: now, Message: "ok"}
}
