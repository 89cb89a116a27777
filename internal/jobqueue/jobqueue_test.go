package jobqueue

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

func TestAddInsertsPendingJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`INSERT INTO job_queue`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(id))

	q := New(db)
	got, err := q.Add(models.JobEnrich, models.PriorityUserJob, map[string]string{"entity_id": "abc"}, true, "")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got != id {
		t.Errorf("Add returned %s, want %s", got, id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestPickNextEmptyQueue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT id, kind, priority`).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "kind", "priority", "payload", "status", "retry_count", "max_retries", "manual", "dedup_key", "created_at",
		}))
	mock.ExpectRollback()

	q := New(db)
	job, err := q.PickNext()
	if err != nil {
		t.Fatalf("PickNext: %v", err)
	}
	if job != nil {
		t.Errorf("PickNext on empty queue = %+v, want nil", job)
	}
}

func TestFailExhaustsRetriesDropsJob(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	id := uuid.New()
	mock.ExpectQuery(`SELECT retry_count, max_retries`).
		WillReturnRows(sqlmock.NewRows([]string{"retry_count", "max_retries"}).AddRow(2, 3))
	mock.ExpectExec(`DELETE FROM job_queue`).WillReturnResult(sqlmock.NewResult(0, 1))

	q := New(db)
	willRetry, err := q.Fail(id)
	if err != nil {
		t.Fatalf("Fail: %v", err)
	}
	if willRetry {
		t.Errorf("Fail should report no more retries once retry_count+1 reaches max_retries")
	}
}

func TestResetStalledReturnsCount(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE job_queue SET status = 'pending'`).
		WillReturnResult(sqlmock.NewResult(0, 3))

	q := New(db)
	n, err := q.ResetStalled(10 * time.Minute)
	if err != nil {
		t.Fatalf("ResetStalled: %v", err)
	}
	if n != 3 {
		t.Errorf("ResetStalled = %d, want 3", n)
	}
}
