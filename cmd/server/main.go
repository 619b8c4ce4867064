package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"cloudsync/internal/app"
	"cloudsync/internal/config"
	"cloudsync/internal/handler"
	"cloudsync/internal/logger"
	"cloudsync/internal/router"
	"cloudsync/internal/scheduler"
	"cloudsync/internal/tracing"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Init(ctx, tracingConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			zl.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	// Periodic triggers
	sched := scheduler.New(zl.Named("cron"))
	err = sched.Add(ctx, scheduler.Task{
		Name: "sync-schedule",
		Spec: cfg.Sync.Schedule,
		Run: func(ctx context.Context) error {
			_, err := a.Scheduler.Schedule(ctx)
			return err
		},
	})
	if err != nil {
		return err
	}
	err = sched.Add(ctx, scheduler.Task{
		Name: "multipart-reap",
		Spec: cfg.Multipart.ReapSchedule,
		Run: func(ctx context.Context) error {
			_, err := a.Multipart.Reap(ctx, cfg.Multipart.MaxLifetime)
			return err
		},
	})
	if err != nil {
		return err
	}
	sched.Start()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.Worker.Start(ctx)
	}()

	// Initialize handlers
	multipartH := handler.NewMultipartHandler(a.Multipart)
	resourceH := handler.NewResourceHandler(a.Resources)
	adminH := handler.NewAdminHandler(a.Scheduler, a.Multipart, cfg.Multipart.MaxLifetime)
	healthH := handler.NewHealthHandler(a.DB)

	opts := router.Options{
		Logger:         zl.Named("http"),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}
	if a.Registry != nil {
		opts.MetricsHandler = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})
		opts.MetricsPath = cfg.Metrics.Path
	}
	r := router.Setup(a.Auth, multipartH, resourceH, adminH, healthH, opts)

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		zl.Info("server starting", zap.String("addr", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		stop()
		wg.Wait()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	zl.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sched.Stop(shutdownCtx)
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server shutdown failed", zap.Error(err))
	}
	wg.Wait()
	return nil
}

func tracingConfig(cfg *config.Config) tracing.Config {
	if !cfg.Tracing.Enabled {
		return tracing.Config{}
	}
	return tracing.Config{
		Endpoint:    cfg.Tracing.Endpoint,
		Insecure:    cfg.Server.Environment != "production",
		SampleRatio: cfg.Tracing.SampleRatio,
		ServiceName: cfg.Tracing.ServiceName,
		Attributes:  map[string]string{"deployment.environment": cfg.Server.Environment},
	}
}
