package repository

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

func TestGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT id, library_id, file_path`).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "library_id", "file_path", "title", "sort_title", "original_title", "year", "plot",
			"tagline", "runtime_minutes", "release_date", "tmdb_id", "imdb_id", "tvdb_id", "status", "monitored",
			"deleted_at", "last_published_at", "published_nfo_hash", "main_media_files", "cast_json", "enriched_at",
			"created_at", "updated_at",
		}))

	repo := NewMovieRepository(db)
	_, err = repo.GetByID(id)
	if err == nil {
		t.Fatalf("expected not-found error")
	}
}

func TestMarkEnriched(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectExec(`UPDATE movies SET status`).
		WithArgs(models.StatusEnriched, id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := NewMovieRepository(db)
	if err := repo.MarkEnriched(id); err != nil {
		t.Fatalf("MarkEnriched: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestListDeletedBefore(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cutoff := time.Now()
	rows := sqlmock.NewRows([]string{
		"id", "library_id", "file_path", "title", "sort_title", "original_title", "year", "plot",
		"tagline", "runtime_minutes", "release_date", "tmdb_id", "imdb_id", "tvdb_id", "status", "monitored",
		"deleted_at", "last_published_at", "published_nfo_hash", "main_media_files", "cast_json", "enriched_at",
		"created_at", "updated_at",
	})
	mock.ExpectQuery(`SELECT id, library_id, file_path`).WithArgs(cutoff).WillReturnRows(rows)

	repo := NewMovieRepository(db)
	got, err := repo.ListDeletedBefore(cutoff)
	if err != nil {
		t.Fatalf("ListDeletedBefore: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no rows, got %d", len(got))
	}
}
