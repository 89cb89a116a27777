package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

type AssetRepository struct {
	db *sql.DB
}

func NewAssetRepository(db *sql.DB) *AssetRepository {
	return &AssetRepository{db: db}
}

const assetColumns = `id, entity_id, asset_type, provider, source_url, content_hash, width, height,
	language, votes, quality_hint, ahash, dhash, is_selected, selection_reason, display_score, created_at`

func scanAsset(scan func(...any) error) (*models.AssetCandidate, error) {
	a := &models.AssetCandidate{}
	err := scan(&a.ID, &a.EntityID, &a.AssetType, &a.Provider, &a.SourceURL, &a.ContentHash,
		&a.Width, &a.Height, &a.Language, &a.Votes, &a.QualityHint, &a.AHash, &a.DHash,
		&a.IsSelected, &a.SelectionReason, &a.DisplayScore, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AssetRepository) Create(a *models.AssetCandidate) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return r.db.QueryRow(`
		INSERT INTO asset_candidates (id, entity_id, asset_type, provider, source_url, content_hash,
			width, height, language, votes, quality_hint, ahash, dhash, is_selected, selection_reason, display_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at
	`, a.ID, a.EntityID, a.AssetType, a.Provider, a.SourceURL, a.ContentHash, a.Width, a.Height,
		a.Language, a.Votes, a.QualityHint, a.AHash, a.DHash, a.IsSelected, a.SelectionReason, a.DisplayScore,
	).Scan(&a.CreatedAt)
}

func (r *AssetRepository) ListForEntityAndType(entityID uuid.UUID, assetType models.AssetType) ([]*models.AssetCandidate, error) {
	rows, err := r.db.Query(`SELECT `+assetColumns+` FROM asset_candidates WHERE entity_id = $1 AND asset_type = $2`, entityID, assetType)
	if err != nil {
		return nil, fmt.Errorf("list asset candidates: %w", err)
	}
	defer rows.Close()

	var out []*models.AssetCandidate
	for rows.Next() {
		a, err := scanAsset(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan asset candidate: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SetSelected clears any prior selection for (entityID, assetType) and marks
// selectedID as the chosen candidate, keeping the one-selected-per-type
// invariant intact.
func (r *AssetRepository) SetSelected(entityID uuid.UUID, assetType models.AssetType, selectedID uuid.UUID) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`UPDATE asset_candidates SET is_selected = false WHERE entity_id = $1 AND asset_type = $2`, entityID, assetType); err != nil {
		return fmt.Errorf("clear selection: %w", err)
	}
	if _, err := tx.Exec(`UPDATE asset_candidates SET is_selected = true WHERE id = $1`, selectedID); err != nil {
		return fmt.Errorf("set selection: %w", err)
	}
	return tx.Commit()
}

func (r *AssetRepository) DeleteForEntity(entityID uuid.UUID) error {
	_, err := r.db.Exec(`DELETE FROM asset_candidates WHERE entity_id = $1`, entityID)
	if err != nil {
		return fmt.Errorf("delete asset candidates for %s: %w", entityID, err)
	}
	return nil
}
