package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

type LibraryRepository struct {
	db *sql.DB
}

func NewLibraryRepository(db *sql.DB) *LibraryRepository {
	return &LibraryRepository{db: db}
}

const libraryColumns = `id, name, path, media_kind, auto_enrich, auto_publish, created_at, updated_at`

func scanLibrary(scan func(...any) error) (*models.Library, error) {
	l := &models.Library{}
	err := scan(&l.ID, &l.Name, &l.Path, &l.MediaKind, &l.AutoEnrich, &l.AutoPublish, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *LibraryRepository) Create(l *models.Library) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return r.db.QueryRow(`
		INSERT INTO libraries (id, name, path, media_kind, auto_enrich, auto_publish)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`, l.ID, l.Name, l.Path, l.MediaKind, l.AutoEnrich, l.AutoPublish).Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (r *LibraryRepository) GetByID(id uuid.UUID) (*models.Library, error) {
	row := r.db.QueryRow(`SELECT `+libraryColumns+` FROM libraries WHERE id = $1`, id)
	l, err := scanLibrary(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("library %s not found", id)
	}
	return l, err
}

func (r *LibraryRepository) List() ([]*models.Library, error) {
	rows, err := r.db.Query(`SELECT ` + libraryColumns + ` FROM libraries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list libraries: %w", err)
	}
	defer rows.Close()

	var out []*models.Library
	for rows.Next() {
		l, err := scanLibrary(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan library: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}
