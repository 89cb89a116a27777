package repository

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

type SchedulerRepository struct {
	db *sql.DB
}

func NewSchedulerRepository(db *sql.DB) *SchedulerRepository {
	return &SchedulerRepository{db: db}
}

func (r *SchedulerRepository) Get(libraryID uuid.UUID) (*models.SchedulerConfig, error) {
	c := &models.SchedulerConfig{}
	err := r.db.QueryRow(`
		SELECT library_id, file_scanner_enabled, file_scanner_interval_hours,
			provider_updater_enabled, provider_updater_interval_hours,
			last_file_scan_at, last_provider_update_at
		FROM library_scheduler_config WHERE library_id = $1
	`, libraryID).Scan(&c.LibraryID, &c.FileScannerEnabled, &c.FileScannerIntervalHrs,
		&c.ProviderUpdaterEnabled, &c.ProviderUpdaterIntervalHrs, &c.LastFileScanAt, &c.LastProviderUpdateAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("scheduler config for library %s not found", libraryID)
	}
	return c, err
}

func (r *SchedulerRepository) List() ([]*models.SchedulerConfig, error) {
	rows, err := r.db.Query(`
		SELECT library_id, file_scanner_enabled, file_scanner_interval_hours,
			provider_updater_enabled, provider_updater_interval_hours,
			last_file_scan_at, last_provider_update_at
		FROM library_scheduler_config
	`)
	if err != nil {
		return nil, fmt.Errorf("list scheduler config: %w", err)
	}
	defer rows.Close()

	var out []*models.SchedulerConfig
	for rows.Next() {
		c := &models.SchedulerConfig{}
		if err := rows.Scan(&c.LibraryID, &c.FileScannerEnabled, &c.FileScannerIntervalHrs,
			&c.ProviderUpdaterEnabled, &c.ProviderUpdaterIntervalHrs, &c.LastFileScanAt, &c.LastProviderUpdateAt); err != nil {
			return nil, fmt.Errorf("scan scheduler config: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SchedulerRepository) Upsert(c *models.SchedulerConfig) error {
	_, err := r.db.Exec(`
		INSERT INTO library_scheduler_config (library_id, file_scanner_enabled, file_scanner_interval_hours,
			provider_updater_enabled, provider_updater_interval_hours)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (library_id) DO UPDATE SET
			file_scanner_enabled = EXCLUDED.file_scanner_enabled,
			file_scanner_interval_hours = EXCLUDED.file_scanner_interval_hours,
			provider_updater_enabled = EXCLUDED.provider_updater_enabled,
			provider_updater_interval_hours = EXCLUDED.provider_updater_interval_hours
	`, c.LibraryID, c.FileScannerEnabled, c.FileScannerIntervalHrs, c.ProviderUpdaterEnabled, c.ProviderUpdaterIntervalHrs)
	if err != nil {
		return fmt.Errorf("upsert scheduler config for %s: %w", c.LibraryID, err)
	}
	return nil
}

func (r *SchedulerRepository) MarkFileScanRun(libraryID uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE library_scheduler_config SET last_file_scan_at = now() WHERE library_id = $1`, libraryID)
	if err != nil {
		return fmt.Errorf("mark file scan run for %s: %w", libraryID, err)
	}
	return nil
}

func (r *SchedulerRepository) MarkProviderUpdateRun(libraryID uuid.UUID) error {
	_, err := r.db.Exec(`UPDATE library_scheduler_config SET last_provider_update_at = now() WHERE library_id = $1`, libraryID)
	if err != nil {
		return fmt.Errorf("mark provider update run for %s: %w", libraryID, err)
	}
	return nil
}
