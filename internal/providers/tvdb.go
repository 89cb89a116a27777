package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/JustinTDCT/enrichr/internal/models"
	"github.com/JustinTDCT/enrichr/internal/perr"
)

// TVDB adapts TheTVDB v4 API, which requires a short-lived JWT obtained via
// a login call before any other endpoint can be used.
type TVDB struct {
	apiKey string
	client *http.Client

	mu    sync.Mutex
	token string
}

func NewTVDB(apiKey string) *TVDB {
	return &TVDB{apiKey: apiKey, client: &http.Client{Timeout: 10 * time.Second}}
}

func (t *TVDB) Name() string { return "tvdb" }

func (t *TVDB) Capabilities() Capabilities {
	return Capabilities{
		Name:             "tvdb",
		SupportsSearch:   true,
		SupportsMetadata: true,
		SupportsAssets:   false,
		RateLimitPerMin:  30,
	}
}

func (t *TVDB) authenticate(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token != "" {
		return nil
	}

	body := fmt.Sprintf(`{"apikey":"%s"}`, t.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api4.thetvdb.com/v4/login", strings.NewReader(body))
	if err != nil {
		return perr.Validation(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return perr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return perr.Auth(fmt.Errorf("tvdb login rejected"))
	}
	if resp.StatusCode != http.StatusOK {
		return perr.ServerError(fmt.Errorf("tvdb login returned %d", resp.StatusCode))
	}

	var result struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return perr.ServerError(fmt.Errorf("decode tvdb login response: %w", err))
	}
	t.token = result.Data.Token
	return nil
}

func (t *TVDB) request(ctx context.Context, endpoint string, out any) error {
	if t.apiKey == "" {
		return perr.Auth(fmt.Errorf("tvdb api key not configured"))
	}
	if err := t.authenticate(ctx); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api4.thetvdb.com/v4"+endpoint, nil)
	if err != nil {
		return perr.Validation(err)
	}
	t.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+t.token)
	t.mu.Unlock()
	req.Header.Set("Accept", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return perr.Network(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		t.mu.Lock()
		t.token = ""
		t.mu.Unlock()
		return perr.Auth(fmt.Errorf("tvdb token rejected"))
	case resp.StatusCode == http.StatusNotFound:
		return perr.NotFound(fmt.Errorf("tvdb: not found"))
	case resp.StatusCode >= 500:
		return perr.ServerError(fmt.Errorf("tvdb returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return perr.Validation(fmt.Errorf("tvdb returned %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return perr.ServerError(fmt.Errorf("decode tvdb response: %w", err))
	}
	return nil
}

func (t *TVDB) Search(ctx context.Context, query string, kind models.MediaKind, year int) ([]SearchResult, error) {
	searchType := "movie"
	if kind == models.MediaKindTV {
		searchType = "series"
	}

	endpoint := fmt.Sprintf("/search?query=%s&type=%s", url.QueryEscape(query), searchType)
	if year > 0 {
		endpoint += fmt.Sprintf("&year=%d", year)
	}

	var result struct {
		Data []struct {
			TVDBID   string `json:"tvdb_id"`
			ObjectID string `json:"objectID"`
			Name     string `json:"name"`
			Year     string `json:"year"`
		} `json:"data"`
	}
	if err := t.request(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	out := make([]SearchResult, 0, len(result.Data))
	for _, r := range result.Data {
		resultYear := 0
		if r.Year != "" {
			fmt.Sscanf(r.Year, "%d", &resultYear)
		}
		id := r.TVDBID
		if id == "" {
			id = r.ObjectID
		}
		out = append(out, SearchResult{
			ExternalID: id,
			Title:      r.Name,
			Year:       resultYear,
			Confidence: titleSimilarity(query, r.Name),
		})
	}
	return out, nil
}

func (t *TVDB) GetMetadata(ctx context.Context, externalID string) (Metadata, error) {
	var result struct {
		Data struct {
			Name       string `json:"name"`
			Overview   string `json:"overview"`
			Year       string `json:"year"`
			FirstAired string `json:"firstAired"`
			Genres     []struct {
				Name string `json:"name"`
			} `json:"genres"`
		} `json:"data"`
	}
	if err := t.request(ctx, fmt.Sprintf("/movies/%s/extended", externalID), &result); err != nil {
		return Metadata{}, err
	}

	r := result.Data
	year := 0
	if r.Year != "" {
		fmt.Sscanf(r.Year, "%d", &year)
	}
	genres := make([]string, 0, len(r.Genres))
	for _, g := range r.Genres {
		genres = append(genres, g.Name)
	}

	return Metadata{
		Title:       r.Name,
		Year:        year,
		Plot:        r.Overview,
		ReleaseDate: r.FirstAired,
		ExternalIDs: models.ExternalIDs{TVDB: externalID},
		Genres:      genres,
	}, nil
}

func (t *TVDB) GetAssets(ctx context.Context, externalID string) ([]AssetResult, error) {
	return nil, perr.Validation(fmt.Errorf("tvdb adapter does not serve assets"))
}

func (t *TVDB) TestConnection(ctx context.Context) TestResult {
	now := time.Now()
	if t.apiKey == "" {
		return TestResult{OK: false, CheckedAt: now, Message: "no api key configured"}
	}
	if err := t.authenticate(ctx); err != nil {
		return TestResult{OK: false, CheckedAt: now, Message: err.Error()}
	}
	return TestResult{OK: true, CheckedAt: now, Message: "ok"}
}
