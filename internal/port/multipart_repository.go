package port

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cloudsync/internal/domain"
)

// MultipartRepository persists multipart upload sessions and their parts.
type MultipartRepository interface {
	// Create returns domain.ErrUploadConflict when another session already
	// targets the same destination key.
	Create(ctx context.Context, upload *domain.MultipartUpload) error
	GetByID(ctx context.Context, id string) (*domain.MultipartUpload, error)
	GetByDestinationKey(ctx context.Context, key string) (*domain.MultipartUpload, error)
	ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.MultipartUpload, error)
	ListInitiatedBefore(ctx context.Context, cutoff time.Time) ([]domain.MultipartUpload, error)
	CountParts(ctx context.Context, uploadID string) (int, error)
	UpsertPart(ctx context.Context, part *domain.MultipartPart) error
	// ListParts returns parts ordered by ascending part number.
	ListParts(ctx context.Context, uploadID string) ([]domain.MultipartPart, error)
	// Delete removes the session and, by cascade, its parts.
	Delete(ctx context.Context, id string) error
}
