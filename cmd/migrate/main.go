package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"

	"cloudsync/internal/config"
	"cloudsync/internal/logger"
)

const usage = "Usage: migrate [up|down|steps N|force V|version]"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	zl, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl, os.Args[1:]); err != nil {
		zl.Fatal("migration failed", zap.String("command", os.Args[1]), zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger, args []string) error {
	m, err := migrate.New("file://"+cfg.DB.MigrationsPath, cfg.DB.DSN())
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	switch args[0] {
	case "up":
		if err := m.Up(); ignoreNoChange(err) != nil {
			return err
		}
	case "down":
		if err := m.Down(); ignoreNoChange(err) != nil {
			return err
		}
	case "steps":
		n, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Steps(n); ignoreNoChange(err) != nil {
			return err
		}
	case "force":
		v, err := intArg(args)
		if err != nil {
			return err
		}
		if err := m.Force(v); err != nil {
			return err
		}
	case "version":
	default:
		fmt.Println(usage)
		return fmt.Errorf("unknown command %q", args[0])
	}

	version, dirty, err := m.Version()
	if ignoreNilVersion(err) != nil {
		return fmt.Errorf("read version: %w", err)
	}
	zl.Info("schema version", zap.String("command", args[0]), zap.Uint("version", version), zap.Bool("dirty", dirty))
	return nil
}

func intArg(args []string) (int, error) {
	if len(args) < 2 {
		return 0, fmt.Errorf("%s requires a number argument", args[0])
	}
	n, err := strconv.Atoi(args[1])
	if err != nil {
		return 0, fmt.Errorf("invalid %s argument: %w", args[0], err)
	}
	return n, nil
}

func ignoreNoChange(err error) error {
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}

func ignoreNilVersion(err error) error {
	if errors.Is(err, migrate.ErrNilVersion) {
		return nil
	}
	return err
}
