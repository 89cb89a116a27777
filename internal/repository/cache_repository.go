package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

// CacheRepository persists the bookkeeping rows for content-addressed cache
// files. One table backs each media kind (image/video/audio/text), but the
// Go-side shape is identical, so a single repository parametrizes on kind.
type CacheRepository struct {
	db *sql.DB
}

func NewCacheRepository(db *sql.DB) *CacheRepository {
	return &CacheRepository{db: db}
}

func tableFor(kind models.CacheMediaKind) (string, error) {
	switch kind {
	case models.CacheKindImage:
		return "cache_image_files", nil
	case models.CacheKindVideo:
		return "cache_video_files", nil
	case models.CacheKindAudio:
		return "cache_audio_files", nil
	case models.CacheKindText:
		return "cache_text_files", nil
	default:
		return "", fmt.Errorf("unknown cache kind %q", kind)
	}
}

func (r *CacheRepository) Create(c *models.CacheFile) error {
	table, err := tableFor(c.Kind)
	if err != nil {
		return err
	}
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	query := fmt.Sprintf(`
		INSERT INTO %s (id, hash, path, size, entity_id, asset_type, is_locked)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (hash) DO NOTHING
		RETURNING created_at
	`, table)

	err = r.db.QueryRow(query, c.ID, c.Hash, c.Path, c.Size, c.EntityID, c.AssetType, c.IsLocked).Scan(&c.CreatedAt)
	if err == sql.ErrNoRows {
		// Already present: fetch the existing row's id/created_at.
		existing, findErr := r.GetByHash(c.Kind, c.Hash)
		if findErr != nil {
			return findErr
		}
		*c = *existing
		return nil
	}
	if err != nil {
		return fmt.Errorf("insert cache file: %w", err)
	}
	return nil
}

func (r *CacheRepository) GetByHash(kind models.CacheMediaKind, hash string) (*models.CacheFile, error) {
	table, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	c := &models.CacheFile{Kind: kind}
	query := fmt.Sprintf(`SELECT id, hash, path, size, entity_id, asset_type, is_locked, created_at FROM %s WHERE hash = $1`, table)
	err = r.db.QueryRow(query, hash).Scan(&c.ID, &c.Hash, &c.Path, &c.Size, &c.EntityID, &c.AssetType, &c.IsLocked, &c.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("cache file %s/%s not found", kind, hash)
	}
	return c, err
}

// ListOrphaned returns cache files of kind no longer referenced by any
// library_*_files row, for the garbage collector to sweep.
func (r *CacheRepository) ListOrphaned(kind models.CacheMediaKind) ([]*models.CacheFile, error) {
	cacheTable, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	libraryTable := "library_" + string(kind) + "_files"

	query := fmt.Sprintf(`
		SELECT c.id, c.hash, c.path, c.size, c.entity_id, c.asset_type, c.is_locked, c.created_at
		FROM %s c
		WHERE NOT c.is_locked
		AND NOT EXISTS (SELECT 1 FROM %s l WHERE l.cache_file_id = c.id)
	`, cacheTable, libraryTable)

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("list orphaned %s cache files: %w", kind, err)
	}
	defer rows.Close()

	var out []*models.CacheFile
	for rows.Next() {
		c := &models.CacheFile{Kind: kind}
		if err := rows.Scan(&c.ID, &c.Hash, &c.Path, &c.Size, &c.EntityID, &c.AssetType, &c.IsLocked, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan orphaned cache file: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *CacheRepository) Delete(kind models.CacheMediaKind, id uuid.UUID) error {
	table, err := tableFor(kind)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete cache file %s: %w", id, err)
	}
	return nil
}
