package port

import (
	"context"

	"cloudsync/internal/domain"
)

// IngestionHook hands finished uploads to a downstream processor.
type IngestionHook interface {
	// Name is the url type a resource carries once the hook owns it.
	Name() string
	// Accepts reports whether resources of the given format are submitted.
	Accepts(format string) bool
	Submit(ctx context.Context, res *domain.Resource) error
}
