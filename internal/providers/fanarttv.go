package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/perr"
)

// FanartTV adapts fanart.tv's extended artwork API, which is keyed by TMDB
// ID for movies and carries vote counts ("likes") we can feed into asset
// scoring directly.
type FanartTV struct {
	apiKey string
	client *http.Client
}

func NewFanartTV(apiKey string) *FanartTV {
	return &FanartTV{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

func (f *FanartTV) Name() string { return "fanarttv" }

func (f *FanartTV) Capabilities() Capabilities {
	return Capabilities{
		Name:             "fanarttv",
		SupportsSearch:   false,
		SupportsMetadata: false,
		SupportsAssets:   true,
		AssetTypes: []models.AssetType{
			models.AssetClearLogo, models.AssetClearArt, models.AssetBanner,
			models.AssetDiscArt, models.AssetThumb, models.AssetFanart,
		},
		RateLimitPerMin: 90,
	}
}

func (f *FanartTV) Search(ctx context.Context, query string, kind models.MediaKind, year int) ([]SearchResult, error) {
	return nil, perr.Validation(fmt.Errorf("fanarttv does not support search, lookup by tmdb id only"))
}

func (f *FanartTV) GetMetadata(ctx context.Context, externalID string) (Metadata, error) {
	return Metadata{}, perr.Validation(fmt.Errorf("fanarttv does not supply metadata"))
}

type fanartImage struct {
	URL   string `json:"url"`
	Likes string `json:"likes"`
	Lang  string `json:"lang"`
}

func likesAsVotes(likes string) *float64 {
	n, err := strconv.ParseFloat(likes, 64)
	if err != nil {
		return nil
	}
	return &n
}

// GetAssets treats externalID as a TMDB movie id.
func (f *FanartTV) GetAssets(ctx context.Context, externalID string) ([]AssetResult, error) {
	if f.apiKey == "" {
		return nil, perr.Auth(fmt.Errorf("fanart.tv api key not configured"))
	}

	reqURL := fmt.Sprintf("https://webservice.fanart.tv/v3/movies/%s?api_key=%s", externalID, f.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, perr.Validation(err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, perr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, perr.NotFound(fmt.Errorf("fanart.tv: no artwork for %s", externalID))
	}
	if resp.StatusCode >= 500 {
		return nil, perr.ServerError(fmt.Errorf("fanart.tv returned %d", resp.StatusCode))
	}
	if resp.StatusCode >= 400 {
		return nil, perr.Validation(fmt.Errorf("fanart.tv returned %d", resp.StatusCode))
	}

	var result struct {
		HDMovieLogos     []fanartImage `json:"hdmovielogo"`
		MovieLogos       []fanartImage `json:"movielogo"`
		HDClearArt       []fanartImage `json:"hdmovieclearart"`
		MovieClearArt    []fanartImage `json:"movieclearart"`
		MovieBanners     []fanartImage `json:"moviebanner"`
		MovieDiscs       []fanartImage `json:"moviedisc"`
		MovieThumbs      []fanartImage `json:"moviethumb"`
		MovieBackgrounds []fanartImage `json:"moviebackground"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, perr.ServerError(fmt.Errorf("decode fanart.tv response: %w", err))
	}

	var out []AssetResult
	appendAll := func(assetType models.AssetType, sets ...[]fanartImage) {
		for _, images := range sets {
			for _, img := range images {
				if img.URL == "" {
					continue
				}
				out = append(out, AssetResult{
					AssetType: assetType,
					SourceURL: img.URL,
					Language:  img.Lang,
					Votes:     likesAsVotes(img.Likes),
				})
			}
		}
	}

	appendAll(models.AssetClearLogo, result.HDMovieLogos, result.MovieLogos)
	appendAll(models.AssetClearArt, result.HDClearArt, result.MovieClearArt)
	appendAll(models.AssetBanner, result.MovieBanners)
	appendAll(models.AssetDiscArt, result.MovieDiscs)
	appendAll(models.AssetThumb, result.MovieThumbs)
	appendAll(models.AssetFanart, result.MovieBackgrounds)

	return out, nil
}

func (f *FanartTV) TestConnection(ctx context.Context) TestResult {
	now := time.Now()
	if f.apiKey == "" {
		return TestResult{OK: false, CheckedAt: now, Message: "no api key configured"}
	}
	// A well-known TMDB id (Fight Club) used purely as a connectivity probe.
	_, err := f.GetAssets(ctx, "550")
	if err != nil && perr.KindOf(err) == perr.KindAuth {
		return TestResult{OK: false, CheckedAt: now, Message: err.Error()}
	}
	return TestResult{OK: true, CheckedAt: now, Message: "ok"}
}
