package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/clubkit/clubkit/go/internal/models"
	"github.com/clubkit/clubkit/go/internal/sqlutil"
)

// Enqueuer defines what triggering services need from the job queue. The
// enqueue happens on the caller's transaction, so a job exists if and only
// if the occurrence write that caused it committed.
type Enqueuer interface {
	Enqueue(ctx context.Context, jobType models.JobType, payload any) error
}

// Repository implements the durable job queue over Postgres.
type Repository struct {
	db sqlutil.DBTX
}

// NewRepository creates a new jobs repository bound to db, which may be a
// pool or an open transaction.
func NewRepository(db sqlutil.DBTX) *Repository {
	return &Repository{db: db}
}

// Enqueue durably appends a pending job.
func (r *Repository) Enqueue(ctx context.Context, jobType models.JobType, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode job payload: %w", err)
	}

	const query = `
INSERT INTO jobs (id, type, payload, processed)
VALUES ($1, $2, $3, false)`

	if _, err := r.db.Exec(ctx, query, uuid.New(), jobType, data); err != nil {
		return fmt.Errorf("failed to enqueue %s job: %w", jobType, err)
	}
	return nil
}

// ClaimBatch fetches up to max unprocessed jobs, oldest first, locking the
// rows for the duration of the caller's transaction. SKIP LOCKED keeps
// concurrent workers from claiming the same job.
func (r *Repository) ClaimBatch(ctx context.Context, max int) ([]models.Job, error) {
	const query = `
SELECT id, type, payload, processed, processed_at, created_at
FROM jobs
WHERE processed = false
ORDER BY created_at
LIMIT $1
FOR UPDATE SKIP LOCKED`

	rows, err := r.db.Query(ctx, query, max)
	if err != nil {
		return nil, fmt.Errorf("failed to claim jobs: %w", err)
	}
	defer rows.Close()

	var out []models.Job
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(&job.ID, &job.Type, &job.Payload, &job.Processed, &job.ProcessedAt, &job.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan job: %w", err)
		}
		out = append(out, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read jobs: %w", err)
	}
	return out, nil
}

// MarkProcessed records that a job's handler completed successfully.
func (r *Repository) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	const query = `UPDATE jobs SET processed = true, processed_at = $2 WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, at); err != nil {
		return fmt.Errorf("failed to mark job processed: %w", err)
	}
	return nil
}
