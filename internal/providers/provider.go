// Package providers defines the uniform adapter contract every external
// metadata/artwork source implements, plus concrete adapters for TMDB,
// OMDb, Fanart.tv and TheTVDB.
package providers

import (
	"context"
	"time"

	"github.com/JustinTDCT/enrichr/internal/models"
)

// Capabilities describes what an adapter can be asked to do, so the fetch
// orchestrator and registry can skip calls a provider never answers.
type Capabilities struct {
	Name             string
	SupportsSearch   bool
	SupportsMetadata bool
	SupportsAssets   bool
	AssetTypes       []models.AssetType
	RateLimitPerMin  int
}

// SearchResult is a single candidate match returned from a title/year query.
type SearchResult struct {
	ExternalID string
	Title      string
	Year       int
	Confidence float64
}

// Metadata is the normalized metadata record a provider contributes for one
// matched entity.
type Metadata struct {
	Title         string
	OriginalTitle string
	Year          int
	Plot          string
	Tagline       string
	RuntimeMin    int
	ReleaseDate   string
	ExternalIDs   models.ExternalIDs
	Genres        []string
	Rating        *float64
	ContentRating string
	Cast          []CastMember
}

// CastMember is a normalized actor credit, used by the actor-enrichment
// phase to attach thumbnails independently of which provider supplied them.
type CastMember struct {
	Name        string
	Character   string
	Order       int
	ProfileURL  string
}

// AssetResult is one candidate image/video a provider offers for an entity.
type AssetResult struct {
	AssetType models.AssetType
	SourceURL string
	Width     int
	Height    int
	Language  string
	Votes     *float64
}

// TestResult is returned by TestConnection, recorded to provider_config so
// operators can see why a provider went unhealthy.
type TestResult struct {
	OK        bool
	CheckedAt time.Time
	Message   string
}

// Provider is the uniform contract adapters implement. A method a provider
// cannot serve is declared unsupported in its Capabilities, and calling it
// anyway returns a validation error.
type Provider interface {
	Name() string
	Capabilities() Capabilities
	Search(ctx context.Context, query string, kind models.MediaKind, year int) ([]SearchResult, error)
	GetMetadata(ctx context.Context, externalID string) (Metadata, error)
	GetAssets(ctx context.Context, externalID string) ([]AssetResult, error)
	TestConnection(ctx context.Context) TestResult
}
