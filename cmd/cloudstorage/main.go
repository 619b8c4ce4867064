package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cloudsync/internal/app"
	"cloudsync/internal/config"
	"cloudsync/internal/logger"
)

var maxLifetime time.Duration

func main() {
	c := &cobra.Command{
		Use:          "cloudstorage",
		Short:        "Maintenance commands for catalog blob storage",
		SilenceUsage: true,
	}

	cleanCmd.Flags().DurationVar(&maxLifetime, "max-lifetime", 0, "reap sessions older than this (default from config)")
	c.AddCommand(syncCmd, cleanCmd, fixCORSCmd)

	if err := c.Execute(); err != nil {
		log.Fatalf("%+v", err)
	}
}

var (
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Drain the event queue into the catalog once",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return withApp(c.Context(), func(ctx context.Context, a *app.App) error {
				stats, err := a.Sync.Run(ctx)
				if err != nil {
					return err
				}
				return printJSON(stats)
			})
		},
	}

	//

	cleanCmd = &cobra.Command{
		Use:   "clean-multipart",
		Short: "Abort multipart uploads older than the maximum lifetime",
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, _ []string) error {
			return withApp(c.Context(), func(ctx context.Context, a *app.App) error {
				lifetime := maxLifetime
				if lifetime <= 0 {
					lifetime = a.Config.Multipart.MaxLifetime
				}
				result, err := a.Multipart.Reap(ctx, lifetime)
				if err != nil {
					return err
				}
				return printJSON(result)
			})
		},
	}

	//

	fixCORSCmd = &cobra.Command{
		Use:   "fix-cors <domain>...",
		Short: "Replace the bucket CORS rules with the given origins",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return withApp(c.Context(), func(ctx context.Context, a *app.App) error {
				if err := a.FixCORS(ctx, args); err != nil {
					return err
				}
				fmt.Printf("CORS rules of %s set to %v\n", a.Config.Storage.Bucket, args)
				return nil
			})
		},
	}
)

func withApp(parent context.Context, fn func(ctx context.Context, a *app.App) error) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	a, err := app.New(ctx, cfg, zl)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	return fn(ctx, a)
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
