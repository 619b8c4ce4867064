// Package app wires configuration into the services shared by the server and
// the cloudstorage CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	kafkago "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"cloudsync/internal/config"
	"cloudsync/internal/hook/kafka"
	"cloudsync/internal/metrics"
	"cloudsync/internal/port"
	"cloudsync/internal/queue/fake"
	"cloudsync/internal/queue/sqs"
	"cloudsync/internal/repository/postgres"
	"cloudsync/internal/s3event"
	"cloudsync/internal/service"
	"cloudsync/internal/storage"
)

// App holds the long-lived dependencies and services.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	DB       *sqlx.DB
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Store    port.ObjectStore

	Auth      service.AuthService
	Sync      service.SyncService
	Scheduler service.SyncScheduler
	Worker    *service.SyncWorker
	Multipart service.MultipartService
	Resources service.ResourceService

	closers []func() error
}

// New connects to the database, the blob store and the event queue and
// builds the services on top of them.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger}

	if cfg.Metrics.Enabled {
		a.Registry = prometheus.NewRegistry()
		a.Registry.MustRegister(collectors.NewGoCollector())
		a.Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		a.Metrics = metrics.New(a.Registry)
	}

	db, err := postgres.NewDB(ctx, &cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	a.DB = db
	a.closers = append(a.closers, db.Close)

	store, err := storage.New(ctx, &cfg.Storage)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.Store = store

	source, err := a.eventSource(ctx)
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("failed to initialize event queue: %w", err)
	}

	// Initialize repositories
	catalog := postgres.NewCatalogRepo(db)
	uploads := postgres.NewMultipartRepo(db)
	jobs := postgres.NewJobRepo(db)
	locker := postgres.NewAdvisoryLocker(db)

	// Initialize services
	a.Auth = service.NewAuthService(cfg.JWT)
	a.Sync = service.NewSyncService(source, catalog, a.Metrics, logger.Named("sync"))
	a.Scheduler = service.NewSyncScheduler(
		jobs, locker, cfg.Sync.MaxOutstandingJobs, cfg.Sync.JobTimeout, a.Metrics, logger.Named("scheduler"),
	)
	a.Worker = service.NewSyncWorker(jobs, a.Sync, service.SyncWorkerConfig{
		PollInterval: cfg.Sync.PollInterval,
		Concurrency:  cfg.Sync.Concurrency,
		JobTimeout:   cfg.Sync.JobTimeout,
	}, a.Metrics, logger.Named("worker"))
	a.Multipart = service.NewMultipartService(
		catalog, uploads, store, a.ingestionHook(), cfg.Storage.Bucket, a.Metrics, logger.Named("multipart"),
	)
	a.Resources = service.NewResourceService(catalog, store, cfg.Storage.Bucket, cfg.Storage.PresignExpiry)

	return a, nil
}

// eventSource selects the fake replay queue or SQS.
func (a *App) eventSource(ctx context.Context) (*s3event.Source, error) {
	logger := a.Logger.Named("events")
	if a.Config.Sync.UseFakeEvents {
		queue, err := fake.NewDefaultQueue()
		if err != nil {
			return nil, err
		}
		logger.Warn("using fake sync events")
		return s3event.NewSource(queue, fake.Bucket, logger), nil
	}

	queue, err := sqs.NewSQSQueue(ctx, &a.Config.Sync, &a.Config.Storage)
	if err != nil {
		return nil, err
	}
	return s3event.NewSource(queue, a.Config.Storage.Bucket, logger), nil
}

// ingestionHook returns nil when no hook is configured.
func (a *App) ingestionHook() port.IngestionHook {
	cfg := a.Config.Hook
	if !cfg.Enabled() {
		return nil
	}
	producer := kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      cfg.Brokers,
		Topic:        cfg.Topic,
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafkago.RequireAll,
		MaxAttempts:  3,
	})
	a.closers = append(a.closers, producer.Close)
	a.Logger.Info("ingestion hook enabled",
		zap.String("hook", cfg.Name),
		zap.Strings("brokers", cfg.Brokers),
		zap.Strings("formats", cfg.Formats),
	)
	return kafka.NewHook(cfg.Name, cfg.Formats, producer)
}

// FixCORS replaces the CORS rules of the configured bucket.
func (a *App) FixCORS(ctx context.Context, origins []string) error {
	updater, ok := a.Store.(port.BucketCORSUpdater)
	if !ok {
		return fmt.Errorf("storage provider %s cannot update bucket CORS", a.Config.Storage.Provider)
	}
	return updater.SetBucketCORS(ctx, a.Config.Storage.Bucket, origins)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
