// Package jobqueue implements a Postgres-table-backed priority queue for
// background work: file scans, provider updates, identification, enrichment,
// publishing, player notification and webhook-triggered jobs. Claims use
// SELECT ... FOR UPDATE SKIP LOCKED so multiple worker goroutines never pick
// up the same row.
package jobqueue

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/JustinTDCT/enrichr/internal/models"
)

type Queue struct {
	db *sql.DB
}

func New(db *sql.DB) *Queue {
	return &Queue{db: db}
}

// Add inserts a new job. If dedupKey is non-empty and a job with the same
// key is already queued (pending or processing), Add is a no-op and returns
// the existing job's ID.
func (q *Queue) Add(kind models.JobKind, priority int, payload any, manual bool, dedupKey string) (uuid.UUID, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal payload: %w", err)
	}

	id := uuid.New()
	var dk sql.NullString
	if dedupKey != "" {
		dk = sql.NullString{String: dedupKey, Valid: true}
	}

	row := q.db.QueryRow(`
		INSERT INTO job_queue (id, kind, priority, payload, status, manual, dedup_key)
		VALUES ($1, $2, $3, $4, 'pending', $5, $6)
		ON CONFLICT (dedup_key) WHERE dedup_key IS NOT NULL DO NOTHING
		RETURNING id
	`, id, string(kind), priority, body, manual, dk)

	var returned uuid.UUID
	if err := row.Scan(&returned); err != nil {
		if err == sql.ErrNoRows {
			// Conflict hit: another queued job already holds this dedup key.
			existing, findErr := q.findByDedupKey(dedupKey)
			if findErr != nil {
				return uuid.Nil, findErr
			}
			return existing, nil
		}
		return uuid.Nil, fmt.Errorf("insert job: %w", err)
	}
	return returned, nil
}

func (q *Queue) findByDedupKey(dedupKey string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(`SELECT id FROM job_queue WHERE dedup_key = $1`, dedupKey).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("find dedup job: %w", err)
	}
	return id, nil
}

// PickNext atomically claims the highest-priority pending job (lowest
// priority number first, then oldest), marking it processing. Returns
// (nil, nil) if the queue is empty.
func (q *Queue) PickNext() (*models.Job, error) {
	tx, err := q.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT id, kind, priority, payload, status, retry_count, max_retries, manual, dedup_key, created_at
		FROM job_queue
		WHERE status = 'pending'
		ORDER BY priority ASC, created_at ASC
		FOR UPDATE SKIP LOCKED
		LIMIT 1
	`)

	var job models.Job
	var dk sql.NullString
	err = row.Scan(&job.ID, &job.Kind, &job.Priority, &job.Payload, &job.Status,
		&job.RetryCount, &job.MaxRetries, &job.Manual, &dk, &job.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan claimed job: %w", err)
	}
	if dk.Valid {
		job.DedupKey = dk.String
	}

	now := time.Now()
	if _, err := tx.Exec(`UPDATE job_queue SET status = 'processing', started_at = $1 WHERE id = $2`, now, job.ID); err != nil {
		return nil, fmt.Errorf("mark processing: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}

	job.Status = models.JobProcessing
	job.StartedAt = &now
	return &job, nil
}

// Complete removes a job on success.
func (q *Queue) Complete(id uuid.UUID) error {
	_, err := q.db.Exec(`DELETE FROM job_queue WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("complete job %s: %w", id, err)
	}
	return nil
}

// Fail requeues a job for retry if it has retries remaining, otherwise
// deletes it as terminally failed. Returns whether it will be retried.
func (q *Queue) Fail(id uuid.UUID) (willRetry bool, err error) {
	var retryCount, maxRetries int
	row := q.db.QueryRow(`SELECT retry_count, max_retries FROM job_queue WHERE id = $1`, id)
	if err := row.Scan(&retryCount, &maxRetries); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("read job %s: %w", id, err)
	}

	if retryCount+1 >= maxRetries {
		if _, err := q.db.Exec(`DELETE FROM job_queue WHERE id = $1`, id); err != nil {
			return false, fmt.Errorf("drop exhausted job %s: %w", id, err)
		}
		return false, nil
	}

	if _, err := q.db.Exec(`
		UPDATE job_queue SET status = 'pending', retry_count = retry_count + 1, started_at = NULL
		WHERE id = $1
	`, id); err != nil {
		return false, fmt.Errorf("requeue job %s: %w", id, err)
	}
	return true, nil
}

// ResetStalled requeues any job that has been in "processing" for longer
// than staleAfter, recovering from a worker crash mid-job.
func (q *Queue) ResetStalled(staleAfter time.Duration) (int, error) {
	cutoff := time.Now().Add(-staleAfter)
	result, err := q.db.Exec(`
		UPDATE job_queue SET status = 'pending', started_at = NULL
		WHERE status = 'processing' AND started_at < $1
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("reset stalled jobs: %w", err)
	}
	n, _ := result.RowsAffected()
	return int(n), nil
}

// Stats describes queue depth by status, used by operator-facing diagnostics.
type Stats struct {
	Pending    int
	Processing int
}

func (q *Queue) GetStats() (Stats, error) {
	var s Stats
	row := q.db.QueryRow(`
		SELECT
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'processing')
		FROM job_queue
	`)
	if err := row.Scan(&s.Pending, &s.Processing); err != nil {
		return Stats{}, fmt.Errorf("queue stats: %w", err)
	}
	return s, nil
}
