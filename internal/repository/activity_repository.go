package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// ActivityRepository appends to a lightweight audit trail table so
// operators can see what happened without combing through process logs.
// Each enrichment run writes one row.
type ActivityRepository struct {
	db *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Log(kind string, entityID *uuid.UUID, message string) error {
	_, err := r.db.Exec(`INSERT INTO activity_log (id, kind, entity_id, message) VALUES ($1, $2, $3, $4)`,
		uuid.New(), kind, entityID, message)
	if err != nil {
		return fmt.Errorf("log activity: %w", err)
	}
	return nil
}

type ActivityEntry struct {
	ID        uuid.UUID
	Kind      string
	EntityID  *uuid.UUID
	Message   string
	CreatedAt sql.NullTime
}

func (r *ActivityRepository) Recent(limit int) ([]*ActivityEntry, error) {
	rows, err := r.db.Query(`SELECT id, kind, entity_id, message, created_at FROM activity_log ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent activity: %w", err)
	}
	defer rows.Close()

	var out []*ActivityEntry
	for rows.Next() {
		e := &ActivityEntry{}
		if err := rows.Scan(&e.ID, &e.Kind, &e.EntityID, &e.Message, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
