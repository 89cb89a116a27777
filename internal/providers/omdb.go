package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/perr"
)

// OMDb supplies a rating: the IMDb rating, or the Rotten Tomatoes score when
// no IMDb rating is present; Metacritic is not read. It
// has no search of its own — it is always looked up by the IMDB ID another
// provider already resolved — and never supplies assets.
type OMDb struct {
	apiKey string
	client *http.Client
}

func NewOMDb(apiKey string) *OMDb {
	return &OMDb{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

func (o *OMDb) Name() string { return "omdb" }

func (o *OMDb) Capabilities() Capabilities {
	return Capabilities{
		Name:             "omdb",
		SupportsSearch:   false,
		SupportsMetadata: true,
		SupportsAssets:   false,
		RateLimitPerMin:  60,
	}
}

func (o *OMDb) Search(ctx context.Context, query string, kind models.MediaKind, year int) ([]SearchResult, error) {
	return nil, perr.Validation(fmt.Errorf("omdb does not support search, lookup by imdb id only"))
}

// GetMetadata treats externalID as an IMDB id (ttXXXXXXX).
func (o *OMDb) GetMetadata(ctx context.Context, externalID string) (Metadata, error) {
	if o.apiKey == "" {
		return Metadata{}, perr.Auth(fmt.Errorf("omdb api key not configured"))
	}
	if externalID == "" {
		return Metadata{}, perr.Validation(fmt.Errorf("imdb id required"))
	}

	reqURL := fmt.Sprintf("http://www.omdbapi.com/?i=%s&apikey=%s", url.QueryEscape(externalID), url.QueryEscape(o.apiKey))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Metadata{}, perr.Validation(err)
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return Metadata{}, perr.Network(err)
	}
	defer resp.Body.Close()

	var r struct {
		Response   string `json:"Response"`
		Error      string `json:"Error"`
		IMDBRating string `json:"imdbRating"`
		Ratings    []struct {
			Source string `json:"Source"`
			Value  string `json:"Value"`
		} `json:"Ratings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Metadata{}, perr.ServerError(fmt.Errorf("decode omdb response: %w", err))
	}
	if r.Response == "False" {
		return Metadata{}, perr.NotFound(fmt.Errorf("omdb: %s", r.Error))
	}

	var rating *float64
	if r.IMDBRating != "" && r.IMDBRating != "N/A" {
		var v float64
		fmt.Sscanf(r.IMDBRating, "%f", &v)
		rating = &v
	}
	for _, rt := range r.Ratings {
		if rt.Source == "Rotten Tomatoes" && rating == nil {
			var pct float64
			fmt.Sscanf(rt.Value, "%f%%", &pct)
			rating = &pct
		}
	}

	return Metadata{
		ExternalIDs: models.ExternalIDs{IMDB: externalID},
		Rating:      rating,
	}, nil
}

func (o *OMDb) GetAssets(ctx context.Context, externalID string) ([]AssetResult, error) {
	return nil, perr.Validation(fmt.Errorf("omdb does not supply assets"))
}

func (o *OMDb) TestConnection(ctx context.Context) TestResult {
	now := time.Now()
	if o.apiKey == "" {
		return TestResult{OK: false, CheckedAt: now, Message: "no api key configured"}
	}
	_, err := o.GetMetadata(ctx, "tt0111161")
	if err != nil {
		return TestResult{OK: false, CheckedAt: now, Message: err.Error()}
	}
	return TestResult{OK: true, CheckedAt: now, Message: "ok"}
}
