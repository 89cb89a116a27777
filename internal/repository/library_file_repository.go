package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

// LibraryFileRepository tracks which cache file is currently published at
// which path for an entity. Every publish pass rebuilds these rows wholesale
// for the entity it touches: DeleteForEntity then Create for each asset
// actually written.
type LibraryFileRepository struct {
	db *sql.DB
}

func NewLibraryFileRepository(db *sql.DB) *LibraryFileRepository {
	return &LibraryFileRepository{db: db}
}

func libraryFileTableFor(kind models.CacheMediaKind) (string, error) {
	switch kind {
	case models.CacheKindImage:
		return "library_image_files", nil
	case models.CacheKindVideo:
		return "library_video_files", nil
	case models.CacheKindAudio:
		return "library_audio_files", nil
	case models.CacheKindText:
		return "library_text_files", nil
	default:
		return "", fmt.Errorf("unknown cache kind %q", kind)
	}
}

func (r *LibraryFileRepository) Create(kind models.CacheMediaKind, f *models.LibraryFile) error {
	table, err := libraryFileTableFor(kind)
	if err != nil {
		return err
	}
	if f.ID == uuid.Nil {
		f.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, entity_id, asset_type, cache_file_id, path)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`, table)
	return r.db.QueryRow(query, f.ID, f.EntityID, f.AssetType, f.CacheFileID, f.Path).Scan(&f.CreatedAt)
}

func (r *LibraryFileRepository) ListForEntity(kind models.CacheMediaKind, entityID uuid.UUID) ([]*models.LibraryFile, error) {
	table, err := libraryFileTableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`SELECT id, entity_id, asset_type, cache_file_id, path, created_at FROM %s WHERE entity_id = $1`, table)
	rows, err := r.db.Query(query, entityID)
	if err != nil {
		return nil, fmt.Errorf("list library files: %w", err)
	}
	defer rows.Close()

	var out []*models.LibraryFile
	for rows.Next() {
		f := &models.LibraryFile{}
		if err := rows.Scan(&f.ID, &f.EntityID, &f.AssetType, &f.CacheFileID, &f.Path, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan library file: %w", err)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

func (r *LibraryFileRepository) DeleteForEntity(kind models.CacheMediaKind, entityID uuid.UUID) error {
	table, err := libraryFileTableFor(kind)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE entity_id = $1`, table), entityID)
	if err != nil {
		return fmt.Errorf("delete library files for %s: %w", entityID, err)
	}
	return nil
}
