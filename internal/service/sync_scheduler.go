package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/metrics"
	"cloudsync/internal/port"
)

const (
	// SyncJobTitle names sync jobs in the job queue.
	SyncJobTitle = "cloudsync.sync"
	// SyncScheduleLock guards the count-then-enqueue sequence.
	SyncScheduleLock = "cloudsync:sync-schedule"
	// DefaultMaxOutstandingSyncJobs caps queued and running sync jobs.
	DefaultMaxOutstandingSyncJobs = 10
	// DefaultSyncJobTimeout bounds one sync pass.
	DefaultSyncJobTimeout = 30 * time.Minute

	// staleJobGrace is how long past its timeout a running job may still
	// record its own result before the scheduler fails it.
	staleJobGrace = time.Minute
	staleJobError = "sync job exceeded its timeout without recording a result"
)

// SyncScheduler enqueues sync jobs, capping how many can be outstanding.
type SyncScheduler interface {
	// Schedule enqueues a sync job unless the cap is reached. It reports
	// whether a job was enqueued.
	Schedule(ctx context.Context) (bool, error)
}

type syncScheduler struct {
	jobs           port.JobQueue
	locker         port.Locker
	maxOutstanding int
	jobTimeout     time.Duration
	metrics        *metrics.Metrics
	logger         *zap.Logger
	now            func() time.Time
}

// NewSyncScheduler creates a new SyncScheduler. Non-positive values use
// DefaultMaxOutstandingSyncJobs and DefaultSyncJobTimeout. Running jobs older
// than jobTimeout no longer count toward the cap.
func NewSyncScheduler(
	jobs port.JobQueue,
	locker port.Locker,
	maxOutstanding int,
	jobTimeout time.Duration,
	m *metrics.Metrics,
	logger *zap.Logger,
) SyncScheduler {
	if maxOutstanding <= 0 {
		maxOutstanding = DefaultMaxOutstandingSyncJobs
	}
	if jobTimeout <= 0 {
		jobTimeout = DefaultSyncJobTimeout
	}
	return &syncScheduler{
		jobs:           jobs,
		locker:         locker,
		maxOutstanding: maxOutstanding,
		jobTimeout:     jobTimeout,
		metrics:        m,
		logger:         logger,
		now:            time.Now,
	}
}

func (s *syncScheduler) Schedule(ctx context.Context) (bool, error) {
	enqueued := false
	err := s.locker.WithLock(ctx, SyncScheduleLock, func(ctx context.Context) error {
		cutoff := s.now().UTC().Add(-(s.jobTimeout + staleJobGrace))
		failed, err := s.jobs.FailStale(ctx, SyncJobTitle, cutoff, staleJobError)
		if err != nil {
			return err
		}
		if failed > 0 {
			s.logger.Warn("failed stale sync jobs", zap.Int64("count", failed), zap.Time("started_before", cutoff))
		}

		outstanding, err := s.jobs.ListJobsByTitle(ctx, SyncJobTitle, domain.OutstandingJobStatuses)
		if err != nil {
			return err
		}
		if len(outstanding) >= s.maxOutstanding {
			s.logger.Info("too many outstanding sync jobs, skipping",
				zap.Int("outstanding", len(outstanding)),
				zap.Int("max", s.maxOutstanding),
			)
			return nil
		}

		job, err := s.jobs.Enqueue(ctx, SyncJobTitle)
		if err != nil {
			return err
		}
		s.logger.Info("sync job enqueued", zap.String("job_id", job.ID.String()))
		enqueued = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("syncScheduler.Schedule: %w", err)
	}
	s.metrics.SyncSchedule(enqueued)
	return enqueued, nil
}
