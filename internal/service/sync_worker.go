package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/metrics"
	"cloudsync/internal/port"
)

// jobResultTimeout bounds recording a job result once the pass is over.
const jobResultTimeout = 10 * time.Second

// SyncWorkerConfig holds settings for the sync job worker.
type SyncWorkerConfig struct {
	PollInterval time.Duration
	Concurrency  int
	JobTimeout   time.Duration
}

// SyncWorker claims queued sync jobs and runs a sync pass for each. Any
// number of workers may share one job queue.
type SyncWorker struct {
	jobs    port.JobQueue
	sync    SyncService
	cfg     SyncWorkerConfig
	metrics *metrics.Metrics
	logger  *zap.Logger
	wg      sync.WaitGroup
}

// NewSyncWorker creates a new SyncWorker.
func NewSyncWorker(jobs port.JobQueue, syncService SyncService, cfg SyncWorkerConfig, m *metrics.Metrics, logger *zap.Logger) *SyncWorker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = DefaultSyncJobTimeout
	}
	return &SyncWorker{
		jobs:    jobs,
		sync:    syncService,
		cfg:     cfg,
		metrics: m,
		logger:  logger,
	}
}

// Start runs the polling loop until ctx is canceled. It blocks until all
// in-flight sync passes have finished.
func (w *SyncWorker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.cfg.Concurrency)

	w.logger.Info("sync worker started",
		zap.Duration("poll", w.cfg.PollInterval),
		zap.Int("concurrency", w.cfg.Concurrency),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("sync worker shutting down, waiting for in-flight jobs")
			w.wg.Wait()
			w.logger.Info("sync worker shutdown complete")
			return
		case <-ticker.C:
			for len(sem) < w.cfg.Concurrency {
				job, err := w.jobs.ClaimNext(ctx, SyncJobTitle)
				if err != nil {
					if !errors.Is(err, domain.ErrNotFound) && ctx.Err() == nil {
						w.logger.Error("claiming sync job failed", zap.Error(err))
					}
					break
				}

				sem <- struct{}{} // acquire
				w.wg.Add(1)
				go func() {
					defer w.wg.Done()
					defer func() { <-sem }() // release

					// A fresh context lets in-flight passes finish during shutdown.
					runCtx, cancel := context.WithTimeout(context.Background(), w.cfg.JobTimeout)
					defer cancel()
					w.run(runCtx, job)
				}()
			}
		}
	}
}

// RunOnce claims and runs one queued sync job synchronously. It reports
// whether a job was found.
func (w *SyncWorker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.jobs.ClaimNext(ctx, SyncJobTitle)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, w.run(ctx, job)
}

func (w *SyncWorker) run(ctx context.Context, job *domain.Job) error {
	w.logger.Info("running sync job", zap.String("job_id", job.ID.String()))

	stats, err := w.sync.Run(ctx)
	w.metrics.SyncRun(err)

	status, errMsg := domain.JobStatusFinished, ""
	if err != nil {
		status, errMsg = domain.JobStatusFailed, err.Error()
		w.logger.Error("sync job failed", zap.String("job_id", job.ID.String()), zap.Error(err))
	} else {
		w.logger.Info("sync job finished", zap.String("job_id", job.ID.String()), zap.Any("stats", stats))
	}

	// The pass may have ended because ctx expired; the result is still recorded.
	finishCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), jobResultTimeout)
	defer cancel()
	if finishErr := w.jobs.Finish(finishCtx, job.ID, status, errMsg); finishErr != nil {
		w.logger.Error("recording sync job result failed", zap.String("job_id", job.ID.String()), zap.Error(finishErr))
		if err == nil {
			err = finishErr
		}
	}
	return err
}
