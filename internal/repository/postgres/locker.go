package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"cloudsync/internal/port"
)

// advisoryLocker implements port.Locker with transaction-scoped advisory
// locks, released by Postgres when the transaction ends.
type advisoryLocker struct {
	db *sqlx.DB
}

// NewAdvisoryLocker creates a Locker shared by every process using db.
func NewAdvisoryLocker(db *sqlx.DB) port.Locker {
	return &advisoryLocker{db: db}
}

func (l *advisoryLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("advisoryLocker.WithLock begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", name); err != nil {
		return fmt.Errorf("advisoryLocker.WithLock %s: %w", name, err)
	}
	if err := fn(ctx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("advisoryLocker.WithLock commit: %w", err)
	}
	return nil
}
