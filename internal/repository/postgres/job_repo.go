package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cloudsync/internal/domain"
	"cloudsync/internal/port"
)

const jobColumns = `id, title, status, error, created_at, started_at, finished_at`

type jobRepo struct {
	db *sqlx.DB
}

// NewJobRepo creates a new PostgreSQL-backed JobQueue.
func NewJobRepo(db *sqlx.DB) port.JobQueue {
	return &jobRepo{db: db}
}

func (r *jobRepo) ListJobsByTitle(ctx context.Context, title string, statuses []domain.JobStatus) ([]domain.Job, error) {
	query, args, err := sqlx.In(
		"SELECT "+jobColumns+" FROM jobs WHERE title = ? AND status IN (?) ORDER BY created_at ASC",
		title, statuses)
	if err != nil {
		return nil, fmt.Errorf("jobRepo.ListJobsByTitle: %w", err)
	}

	var jobs []domain.Job
	if err := r.db.SelectContext(ctx, &jobs, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("jobRepo.ListJobsByTitle: %w", err)
	}
	return jobs, nil
}

func (r *jobRepo) Enqueue(ctx context.Context, title string) (*domain.Job, error) {
	job := &domain.Job{
		ID:        uuid.New(),
		Title:     title,
		Status:    domain.JobStatusQueued,
		CreatedAt: time.Now().UTC(),
	}

	_, err := r.db.ExecContext(ctx,
		"INSERT INTO jobs (id, title, status, created_at) VALUES ($1, $2, $3, $4)",
		job.ID, job.Title, job.Status, job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("jobRepo.Enqueue: %w", err)
	}
	return job, nil
}

// ClaimNext uses SKIP LOCKED so concurrent workers never claim the same job.
func (r *jobRepo) ClaimNext(ctx context.Context, title string) (*domain.Job, error) {
	query := `UPDATE jobs SET status = $1, started_at = $2
		WHERE id = (
			SELECT id FROM jobs
			WHERE title = $3 AND status = $4
			ORDER BY created_at ASC
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + jobColumns

	var job domain.Job
	err := r.db.GetContext(ctx, &job, query,
		domain.JobStatusRunning, time.Now().UTC(), title, domain.JobStatusQueued)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("jobRepo.ClaimNext: %w", err)
	}
	return &job, nil
}

func (r *jobRepo) Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, errMsg string) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE jobs SET status = $1, error = $2, finished_at = $3 WHERE id = $4",
		status, errMsg, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("jobRepo.Finish: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// FailStale releases jobs whose worker died or lost its database connection
// before recording a result.
func (r *jobRepo) FailStale(ctx context.Context, title string, startedBefore time.Time, errMsg string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE jobs SET status = $1, error = $2, finished_at = $3
		WHERE title = $4 AND status = $5 AND started_at < $6`,
		domain.JobStatusFailed, errMsg, time.Now().UTC(), title, domain.JobStatusRunning, startedBefore)
	if err != nil {
		return 0, fmt.Errorf("jobRepo.FailStale: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("jobRepo.FailStale: %w", err)
	}
	return rows, nil
}
