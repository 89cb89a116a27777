package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/JustinTDCT/enrichr/internal/models"
)

type MovieRepository struct {
	db *sql.DB
}

func NewMovieRepository(db *sql.DB) *MovieRepository {
	return &MovieRepository{db: db}
}

const movieColumns = `id, library_id, file_path, title, sort_title, original_title, year, plot,
	tagline, runtime_minutes, release_date, tmdb_id, imdb_id, tvdb_id, status, monitored,
	deleted_at, last_published_at, published_nfo_hash, main_media_files, cast_json, enriched_at,
	created_at, updated_at`

func scanMovie(scan func(...any) error) (*models.Movie, error) {
	m := &models.Movie{}
	err := scan(
		&m.ID, &m.LibraryID, &m.FilePath, &m.Title, &m.SortTitle, &m.OriginalTitle, &m.Year, &m.Plot,
		&m.Tagline, &m.RuntimeMin, &m.ReleaseDate, &m.ExternalIDs.TMDB, &m.ExternalIDs.IMDB, &m.ExternalIDs.TVDB,
		&m.Status, &m.Monitored, &m.DeletedAt, &m.LastPublished, &m.PublishedNFOHash,
		pq.Array(&m.MainMediaFiles), &m.CastJSON, &m.EnrichedAt,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (r *MovieRepository) Create(m *models.Movie) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if len(m.MainMediaFiles) == 0 {
		m.MainMediaFiles = []string{m.FilePath}
	}
	query := `
		INSERT INTO movies (id, library_id, file_path, title, sort_title, original_title, year, plot,
			tagline, runtime_minutes, release_date, tmdb_id, imdb_id, tvdb_id, status, monitored, main_media_files)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`
	return r.db.QueryRow(query,
		m.ID, m.LibraryID, m.FilePath, m.Title, m.SortTitle, m.OriginalTitle, m.Year, m.Plot,
		m.Tagline, m.RuntimeMin, m.ReleaseDate, m.ExternalIDs.TMDB, m.ExternalIDs.IMDB, m.ExternalIDs.TVDB,
		m.Status, m.Monitored, pq.Array(m.MainMediaFiles),
	).Scan(&m.CreatedAt, &m.UpdatedAt)
}

func (r *MovieRepository) GetByID(id uuid.UUID) (*models.Movie, error) {
	row := r.db.QueryRow(`SELECT `+movieColumns+` FROM movies WHERE id = $1`, id)
	m, err := scanMovie(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("movie %s not found", id)
	}
	return m, err
}

func (r *MovieRepository) GetByFilePath(libraryID uuid.UUID, filePath string) (*models.Movie, error) {
	row := r.db.QueryRow(`SELECT `+movieColumns+` FROM movies WHERE library_id = $1 AND file_path = $2`, libraryID, filePath)
	m, err := scanMovie(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return m, err
}

func (r *MovieRepository) ListByLibrary(libraryID uuid.UUID) ([]*models.Movie, error) {
	rows, err := r.db.Query(`SELECT `+movieColumns+` FROM movies WHERE library_id = $1 AND deleted_at IS NULL ORDER BY sort_title`, libraryID)
	if err != nil {
		return nil, fmt.Errorf("list movies: %w", err)
	}
	defer rows.Close()

	var out []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListUnidentified returns every monitored movie awaiting first identification.
func (r *MovieRepository) ListUnidentified(libraryID uuid.UUID) ([]*models.Movie, error) {
	rows, err := r.db.Query(
		`SELECT `+movieColumns+` FROM movies WHERE library_id = $1 AND status = $2 AND monitored AND deleted_at IS NULL`,
		libraryID, models.StatusUnidentified,
	)
	if err != nil {
		return nil, fmt.Errorf("list unidentified: %w", err)
	}
	defer rows.Close()

	var out []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MovieRepository) UpdateMetadata(m *models.Movie) error {
	_, err := r.db.Exec(`
		UPDATE movies SET title = $1, sort_title = $2, original_title = $3, year = $4, plot = $5,
			tagline = $6, runtime_minutes = $7, release_date = $8, tmdb_id = $9, imdb_id = $10,
			tvdb_id = $11, status = $12, updated_at = now()
		WHERE id = $13
	`, m.Title, m.SortTitle, m.OriginalTitle, m.Year, m.Plot, m.Tagline, m.RuntimeMin, m.ReleaseDate,
		m.ExternalIDs.TMDB, m.ExternalIDs.IMDB, m.ExternalIDs.TVDB, m.Status, m.ID)
	if err != nil {
		return fmt.Errorf("update movie %s: %w", m.ID, err)
	}
	return nil
}

// SetCast persists the cast credits the highest-priority metadata provider
// returned, JSON-encoded since there is no dedicated cast table — the
// publisher decodes it back into providers.CastMember at publish time.
func (r *MovieRepository) SetCast(id uuid.UUID, castJSON string) error {
	_, err := r.db.Exec(`UPDATE movies SET cast_json = $1, updated_at = now() WHERE id = $2`, castJSON, id)
	if err != nil {
		return fmt.Errorf("set cast %s: %w", id, err)
	}
	return nil
}

func (r *MovieRepository) MarkEnriched(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE movies SET status = $1, enriched_at = now(), updated_at = now() WHERE id = $2`,
		models.StatusEnriched, id)
	if err != nil {
		return fmt.Errorf("mark enriched %s: %w", id, err)
	}
	return nil
}

func (r *MovieRepository) MarkPublished(id uuid.UUID, nfoHash string) error {
	_, err := r.db.Exec(`UPDATE movies SET last_published_at = now(), published_nfo_hash = $1, updated_at = now() WHERE id = $2`,
		nfoHash, id)
	if err != nil {
		return fmt.Errorf("mark published %s: %w", id, err)
	}
	return nil
}

// SoftDelete marks a movie deleted without removing its row immediately —
// the garbage collector reclaims it after the configured retention window.
func (r *MovieRepository) SoftDelete(id uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE movies SET deleted_at = now(), updated_at = now() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("soft delete %s: %w", id, err)
	}
	return nil
}

// ListDeletedBefore returns movies soft-deleted before cutoff, for the GC
// pass to hard-delete along with their cache files.
func (r *MovieRepository) ListDeletedBefore(cutoff time.Time) ([]*models.Movie, error) {
	rows, err := r.db.Query(`SELECT `+movieColumns+` FROM movies WHERE deleted_at IS NOT NULL AND deleted_at < $1`, cutoff)
	if err != nil {
		return nil, fmt.Errorf("list deleted: %w", err)
	}
	defer rows.Close()

	var out []*models.Movie
	for rows.Next() {
		m, err := scanMovie(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan movie: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MovieRepository) HardDelete(id uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM movies WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("hard delete %s: %w", id, err)
	}
	return nil
}
