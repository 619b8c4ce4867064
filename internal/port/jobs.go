package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cloudsync/internal/domain"
)

// JobQueue persists background jobs.
type JobQueue interface {
	ListJobsByTitle(ctx context.Context, title string, statuses []domain.JobStatus) ([]domain.Job, error)
	Enqueue(ctx context.Context, title string) (*domain.Job, error)
	// ClaimNext marks the oldest queued job with the given title as running.
	// It returns domain.ErrNotFound when no job is waiting.
	ClaimNext(ctx context.Context, title string) (*domain.Job, error)
	Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, errMsg string) error
	// FailStale marks running jobs with the given title that started before
	// startedBefore as failed and returns how many it marked.
	FailStale(ctx context.Context, title string, startedBefore time.Time, errMsg string) (int64, error)
}

// Locker provides named locks held by at most one caller deployment-wide.
// The lock is released when fn returns, whatever its outcome.
type Locker interface {
	WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error
}
