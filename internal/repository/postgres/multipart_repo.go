package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"cloudsync/internal/domain"
	"cloudsync/internal/port"
)

const (
	uploadColumns = `id, resource_id, destination_key, size, original_filename, initiated_at, initiated_by`

	uniqueViolation = "23505"
)

type multipartRepo struct {
	db *sqlx.DB
}

// NewMultipartRepo creates a new PostgreSQL-backed MultipartRepository.
func NewMultipartRepo(db *sqlx.DB) port.MultipartRepository {
	return &multipartRepo{db: db}
}

func (r *multipartRepo) Create(ctx context.Context, upload *domain.MultipartUpload) error {
	if upload.InitiatedAt.IsZero() {
		upload.InitiatedAt = time.Now().UTC()
	}

	query := `INSERT INTO multipart_uploads (` + uploadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		upload.ID, upload.ResourceID, upload.DestinationKey, upload.Size,
		upload.OriginalFilename, upload.InitiatedAt, upload.InitiatedBy)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrUploadConflict
		}
		return fmt.Errorf("multipartRepo.Create: %w", err)
	}
	return nil
}

func (r *multipartRepo) GetByID(ctx context.Context, id string) (*domain.MultipartUpload, error) {
	return r.getOne(ctx, "multipartRepo.GetByID", "id = $1", id)
}

func (r *multipartRepo) GetByDestinationKey(ctx context.Context, key string) (*domain.MultipartUpload, error) {
	return r.getOne(ctx, "multipartRepo.GetByDestinationKey", "destination_key = $1", key)
}

func (r *multipartRepo) getOne(ctx context.Context, op, where string, arg any) (*domain.MultipartUpload, error) {
	var upload domain.MultipartUpload
	err := r.db.GetContext(ctx, &upload,
		"SELECT "+uploadColumns+" FROM multipart_uploads WHERE "+where, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &upload, nil
}

func (r *multipartRepo) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.MultipartUpload, error) {
	var uploads []domain.MultipartUpload
	err := r.db.SelectContext(ctx, &uploads,
		"SELECT "+uploadColumns+" FROM multipart_uploads WHERE resource_id = $1 ORDER BY initiated_at ASC",
		resourceID)
	if err != nil {
		return nil, fmt.Errorf("multipartRepo.ListByResource: %w", err)
	}
	return uploads, nil
}

func (r *multipartRepo) ListInitiatedBefore(ctx context.Context, cutoff time.Time) ([]domain.MultipartUpload, error) {
	var uploads []domain.MultipartUpload
	err := r.db.SelectContext(ctx, &uploads,
		"SELECT "+uploadColumns+" FROM multipart_uploads WHERE initiated_at < $1 ORDER BY initiated_at ASC",
		cutoff)
	if err != nil {
		return nil, fmt.Errorf("multipartRepo.ListInitiatedBefore: %w", err)
	}
	return uploads, nil
}

func (r *multipartRepo) CountParts(ctx context.Context, uploadID string) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM multipart_parts WHERE upload_id = $1", uploadID)
	if err != nil {
		return 0, fmt.Errorf("multipartRepo.CountParts: %w", err)
	}
	return count, nil
}

func (r *multipartRepo) UpsertPart(ctx context.Context, part *domain.MultipartPart) error {
	part.CreatedAt = time.Now().UTC()

	query := `INSERT INTO multipart_parts (upload_id, part_number, etag, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (upload_id, part_number)
		DO UPDATE SET etag = EXCLUDED.etag, created_at = EXCLUDED.created_at`

	_, err := r.db.ExecContext(ctx, query, part.UploadID, part.PartNumber, part.ETag, part.CreatedAt)
	if err != nil {
		return fmt.Errorf("multipartRepo.UpsertPart: %w", err)
	}
	return nil
}

func (r *multipartRepo) ListParts(ctx context.Context, uploadID string) ([]domain.MultipartPart, error) {
	var parts []domain.MultipartPart
	err := r.db.SelectContext(ctx, &parts,
		`SELECT upload_id, part_number, etag, created_at FROM multipart_parts
		 WHERE upload_id = $1 ORDER BY part_number ASC`, uploadID)
	if err != nil {
		return nil, fmt.Errorf("multipartRepo.ListParts: %w", err)
	}
	return parts, nil
}

func (r *multipartRepo) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM multipart_uploads WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("multipartRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}
