// Package scheduler runs periodic maintenance tasks on cron specifications.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// A Task is a named job run on a cron specification such as "@hourly" or
// "@every 1m".
type Task struct {
	Name string
	Spec string
	Run  func(ctx context.Context) error
}

// Scheduler runs tasks; a run still in progress causes the next one to be skipped.
type Scheduler struct {
	cron   *cron.Cron
	logger *zap.Logger
}

// New creates a stopped Scheduler.
func New(logger *zap.Logger) *Scheduler {
	log := cronLogger{logger.Sugar()}
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.Recover(log),
			cron.SkipIfStillRunning(log),
		)),
		logger: logger,
	}
}

// Add registers task. Runs use ctx and are cut off when it is canceled.
func (s *Scheduler) Add(ctx context.Context, task Task) error {
	_, err := s.cron.AddFunc(task.Spec, func() {
		start := time.Now()
		if err := task.Run(ctx); err != nil {
			s.logger.Error("scheduled task failed", zap.String("task", task.Name), zap.Error(err))
			return
		}
		s.logger.Debug("scheduled task finished", zap.String("task", task.Name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return fmt.Errorf("scheduling %s (%q): %w", task.Name, task.Spec, err)
	}
	s.logger.Info("task registered", zap.String("task", task.Name), zap.String("spec", task.Spec))
	return nil
}

// Start launches the scheduler asynchronously.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler is running", zap.Int("tasks", len(s.cron.Entries())))
}

// Stop prevents new runs and waits for running ones or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}
