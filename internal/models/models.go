// Package models holds the storage-agnostic domain entities shared across
// the enrichment pipeline: libraries, movies, asset candidates, cache files,
// jobs and provider configuration.
package models

import (
	"time"

	"github.com/google/uuid"
)

// ──────────────────── Library ────────────────────

type MediaKind string

const (
	MediaKindMovie MediaKind = "movie"
	MediaKindTV    MediaKind = "tv"
	MediaKindMusic MediaKind = "music"
)

type Library struct {
	ID          uuid.UUID `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Path        string    `json:"path" db:"path"`
	MediaKind   MediaKind `json:"media_kind" db:"media_kind"`
	AutoEnrich  bool      `json:"auto_enrich" db:"auto_enrich"`
	AutoPublish bool      `json:"auto_publish" db:"auto_publish"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// ──────────────────── Movie (concrete Entity) ────────────────────

type EnrichmentStatus string

const (
	StatusUnidentified EnrichmentStatus = "unidentified"
	StatusIdentified   EnrichmentStatus = "identified"
	StatusEnriching    EnrichmentStatus = "enriching"
	StatusEnriched     EnrichmentStatus = "enriched"
)

// ExternalIDs is the closed set of cross-provider identifiers an Entity can carry.
type ExternalIDs struct {
	TMDB string `json:"tmdb,omitempty"`
	IMDB string `json:"imdb,omitempty"`
	TVDB string `json:"tvdb,omitempty"`
}

func (e ExternalIDs) Empty() bool {
	return e.TMDB == "" && e.IMDB == "" && e.TVDB == ""
}

type Movie struct {
	ID            uuid.UUID        `json:"id" db:"id"`
	LibraryID     uuid.UUID        `json:"library_id" db:"library_id"`
	FilePath      string           `json:"file_path" db:"file_path"`
	// MainMediaFiles is the full set of video files this entity owns —
	// FilePath plus any stacked parts (CD1/CD2). The publisher must treat
	// membership in this set, not equality with FilePath alone, as "main
	// media" when excluding files from inventory/cleanup.
	MainMediaFiles []string        `json:"main_media_files" db:"-"`
	CastJSON      string           `json:"-" db:"cast_json"`
	Title         string           `json:"title" db:"title"`
	SortTitle     string           `json:"sort_title" db:"sort_title"`
	OriginalTitle string           `json:"original_title" db:"original_title"`
	Year          int              `json:"year" db:"year"`
	Plot          string           `json:"plot" db:"plot"`
	Tagline       string           `json:"tagline" db:"tagline"`
	RuntimeMin    int              `json:"runtime_minutes" db:"runtime_minutes"`
	ReleaseDate   string           `json:"release_date" db:"release_date"`
	ExternalIDs   ExternalIDs      `json:"external_ids" db:"-"`
	Status        EnrichmentStatus `json:"status" db:"status"`
	Monitored     bool             `json:"monitored" db:"monitored"`
	DeletedAt     *time.Time       `json:"deleted_at,omitempty" db:"deleted_at"`
	LastPublished *time.Time       `json:"last_published_at,omitempty" db:"last_published_at"`
	PublishedNFOHash string        `json:"published_nfo_hash" db:"published_nfo_hash"`
	EnrichedAt    *time.Time       `json:"enriched_at,omitempty" db:"enriched_at"`
	CreatedAt     time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// CanMarkEnriched reports whether the entity has enough identity to be
// marked enriched: a non-empty title and at least one stable identifier.
func (m *Movie) CanMarkEnriched() bool {
	return m.Title != "" && !m.ExternalIDs.Empty()
}

// ──────────────────── Asset Candidate ────────────────────

type AssetType string

const (
	AssetPoster       AssetType = "poster"
	AssetFanart       AssetType = "fanart"
	AssetBanner       AssetType = "banner"
	AssetClearLogo    AssetType = "clearlogo"
	AssetClearArt     AssetType = "clearart"
	AssetDiscArt      AssetType = "discart"
	AssetLandscape    AssetType = "landscape"
	AssetThumb        AssetType = "thumb"
	AssetCharacterArt AssetType = "characterart"
	AssetKeyArt       AssetType = "keyart"
	AssetTrailer      AssetType = "trailer"
)

// PublishSuffix is the Kodi-convention filename suffix for each asset type.
// The NFO file has no suffix and is handled separately by the publisher
// since it has no AssetCandidate of its own.
var PublishSuffix = map[AssetType]string{
	AssetPoster:       "-poster",
	AssetFanart:       "-fanart",
	AssetBanner:       "-banner",
	AssetClearLogo:    "-clearlogo",
	AssetClearArt:     "-clearart",
	AssetDiscArt:      "-disc",
	AssetLandscape:    "-landscape",
	AssetKeyArt:       "-keyart",
	AssetTrailer:      "-trailer",
	AssetThumb:        "-thumb",
	AssetCharacterArt: "-characterart",
}

// hdQualityHints are resolution/source hints a provider may attach to a
// candidate that imply HD without meeting the pixel-dimension threshold.
var hdQualityHints = map[string]bool{
	"HD": true, "BluRay": true, "4K": true, "UHD": true, "1080p": true, "2160p": true,
	"hd": true, "4k": true,
}

type AssetCandidate struct {
	ID            uuid.UUID `json:"id" db:"id"`
	EntityID      uuid.UUID `json:"entity_id" db:"entity_id"`
	AssetType     AssetType `json:"asset_type" db:"asset_type"`
	Provider      string    `json:"provider" db:"provider"`
	SourceURL     string    `json:"source_url" db:"source_url"`
	ContentHash   string    `json:"content_hash,omitempty" db:"content_hash"`
	Width         int       `json:"width" db:"width"`
	Height        int       `json:"height" db:"height"`
	Language      string    `json:"language" db:"language"`
	Votes         *float64  `json:"votes,omitempty" db:"votes"`
	QualityHint   string    `json:"quality_hint,omitempty" db:"quality_hint"`
	AHash         string    `json:"ahash,omitempty" db:"ahash"`
	DHash         string    `json:"dhash,omitempty" db:"dhash"`
	IsSelected    bool      `json:"is_selected" db:"is_selected"`
	SelectionReason string  `json:"selection_reason,omitempty" db:"selection_reason"`
	DisplayScore  float64   `json:"display_score,omitempty" db:"display_score"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// IsHD reports width/height >= 1920, or a recognized quality hint string.
func (c *AssetCandidate) IsHD() bool {
	if c.Width >= 1920 || c.Height >= 1920 {
		return true
	}
	return hdQualityHints[c.QualityHint]
}

func (c *AssetCandidate) PixelArea() int64 {
	return int64(c.Width) * int64(c.Height)
}

// ──────────────────── Cache File (content-addressed store) ────────────────────

type CacheMediaKind string

const (
	CacheKindImage CacheMediaKind = "image"
	CacheKindVideo CacheMediaKind = "video"
	CacheKindAudio CacheMediaKind = "audio"
	CacheKindText  CacheMediaKind = "text"
)

type CacheFile struct {
	ID        uuid.UUID      `json:"id" db:"id"`
	Hash      string         `json:"hash" db:"hash"`
	Path      string         `json:"path" db:"path"`
	Size      int64          `json:"size" db:"size"`
	Kind      CacheMediaKind `json:"kind" db:"kind"`
	AHash     string         `json:"ahash,omitempty" db:"ahash"`
	DHash     string         `json:"dhash,omitempty" db:"dhash"`
	EntityID  uuid.UUID      `json:"entity_id" db:"entity_id"`
	AssetType AssetType      `json:"asset_type" db:"asset_type"`
	IsLocked  bool           `json:"is_locked" db:"is_locked"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// LibraryFile is the "this asset type is currently published to this path"
// statement, rebuilt wholesale on every publish pass.
type LibraryFile struct {
	ID          uuid.UUID `json:"id" db:"id"`
	EntityID    uuid.UUID `json:"entity_id" db:"entity_id"`
	AssetType   AssetType `json:"asset_type" db:"asset_type"`
	CacheFileID uuid.UUID `json:"cache_file_id" db:"cache_file_id"`
	Path        string    `json:"path" db:"path"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// ──────────────────── Job ────────────────────

type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
)

// JobKind is the closed set of background work kinds the queue accepts.
type JobKind string

const (
	JobFileScan        JobKind = "fileScan"
	JobProviderUpdate  JobKind = "providerUpdate"
	JobIdentify        JobKind = "identify"
	JobEnrich          JobKind = "enrich"
	JobPublish         JobKind = "publish"
	JobNotifyPlayer    JobKind = "notifyPlayer"
	JobWebhookReceived JobKind = "webhookReceived"
)

type Job struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	Kind        JobKind         `json:"kind" db:"kind"`
	Priority    int             `json:"priority" db:"priority"`
	Payload     []byte          `json:"payload" db:"payload"`
	Status      JobStatus       `json:"status" db:"status"`
	RetryCount  int             `json:"retry_count" db:"retry_count"`
	MaxRetries  int             `json:"max_retries" db:"max_retries"`
	Manual      bool            `json:"manual" db:"manual"`
	DedupKey    string          `json:"dedup_key,omitempty" db:"dedup_key"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty" db:"started_at"`
}

// Priority classes for provider calls. The fetch orchestrator does not take
// a priority class; it applies one fixed per-provider timeout to every call.
type Priority string

const (
	PriorityUser       Priority = "user"
	PriorityBackground Priority = "background"
)

// Job priority numbers: lower claims first. Manual/webhook-triggered work
// jumps the queue ahead of cadence-driven background work.
const (
	PriorityManual     = 0
	PriorityWebhook    = 10
	PriorityUserJob    = 20
	PriorityBackground2 = 50
	PriorityLow        = 100
)

// ──────────────────── Provider Config ────────────────────

type TestStatus string

const (
	TestNeverRun TestStatus = "never_tested"
	TestSuccess  TestStatus = "success"
	TestError    TestStatus = "error"
)

type ProviderConfig struct {
	Provider        string            `json:"provider" db:"provider"`
	Enabled         bool              `json:"enabled" db:"enabled"`
	APIKey          string            `json:"-" db:"api_key"`
	PersonalAPIKey  string            `json:"-" db:"personal_api_key"`
	Language        string            `json:"language" db:"language"`
	Region          string            `json:"region" db:"region"`
	Options         map[string]string `json:"options" db:"-"`
	LastTestAt      *time.Time        `json:"last_test_at,omitempty" db:"last_test_at"`
	LastTestStatus  TestStatus        `json:"last_test_status" db:"last_test_status"`
}

// ──────────────────── Scheduler Config ────────────────────

type SchedulerConfig struct {
	LibraryID               uuid.UUID  `json:"library_id" db:"library_id"`
	FileScannerEnabled      bool       `json:"file_scanner_enabled" db:"file_scanner_enabled"`
	FileScannerIntervalHrs  int        `json:"file_scanner_interval_hours" db:"file_scanner_interval_hours"`
	ProviderUpdaterEnabled  bool       `json:"provider_updater_enabled" db:"provider_updater_enabled"`
	ProviderUpdaterIntervalHrs int     `json:"provider_updater_interval_hours" db:"provider_updater_interval_hours"`
	LastFileScanAt         *time.Time  `json:"last_file_scan_at,omitempty" db:"last_file_scan_at"`
	LastProviderUpdateAt   *time.Time  `json:"last_provider_update_at,omitempty" db:"last_provider_update_at"`
}
