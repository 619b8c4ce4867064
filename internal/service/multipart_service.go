package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/metrics"
	"cloudsync/internal/objectkey"
	"cloudsync/internal/port"
	"cloudsync/internal/tracing"
)

const (
	// MinPartNumber and MaxPartNumber bound multipart part numbers.
	MinPartNumber = 1
	MaxPartNumber = 10000
)

// InitiateInput is the input for starting a multipart upload.
type InitiateInput struct {
	ResourceID uuid.UUID
	Filename   string
	Size       int64
	Actor      uuid.UUID
}

// UploadPartInput is the input for uploading one part.
type UploadPartInput struct {
	UploadID   string
	PartNumber int32
	Body       io.Reader
	Size       int64
}

// UploadPartResult is the recorded part.
type UploadPartResult struct {
	PartNumber int32  `json:"part_number"`
	ETag       string `json:"etag"`
}

// FinishInput is the input for committing a multipart upload.
type FinishInput struct {
	UploadID  string
	Actor     uuid.UUID
	KeepDraft bool
}

// AbortResult lists the sessions aborted for a resource and the ones that
// could not be.
type AbortResult struct {
	Aborted []string `json:"aborted"`
	Errors  []string `json:"errors"`
}

// ReapResult summarizes one sweep over expired sessions.
type ReapResult struct {
	Considered int      `json:"total"`
	Removed    int      `json:"removed"`
	Errors     []string `json:"errors"`
}

// MultipartService coordinates chunked uploads between the catalog, the
// session store and the blob backend.
type MultipartService interface {
	Initiate(ctx context.Context, input InitiateInput) (*domain.MultipartUpload, error)
	UploadPart(ctx context.Context, input UploadPartInput) (*UploadPartResult, error)
	Finish(ctx context.Context, input FinishInput) (*domain.Resource, error)
	Abort(ctx context.Context, resourceID uuid.UUID) (*AbortResult, error)
	Reap(ctx context.Context, maxLifetime time.Duration) (*ReapResult, error)
	Check(ctx context.Context, resourceID uuid.UUID) (*domain.MultipartUpload, error)
}

type multipartService struct {
	catalog port.Catalog
	uploads port.MultipartRepository
	storage port.BlobStorage
	hook    port.IngestionHook
	bucket  string
	metrics *metrics.Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// NewMultipartService creates a new MultipartService. hook may be nil.
func NewMultipartService(
	catalog port.Catalog,
	uploads port.MultipartRepository,
	storage port.BlobStorage,
	hook port.IngestionHook,
	bucket string,
	m *metrics.Metrics,
	logger *zap.Logger,
) MultipartService {
	return &multipartService{
		catalog: catalog,
		uploads: uploads,
		storage: storage,
		hook:    hook,
		bucket:  bucket,
		metrics: m,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *multipartService) Initiate(ctx context.Context, input InitiateInput) (upload *domain.MultipartUpload, err error) {
	ctx, span := tracing.Start(ctx, "multipart.initiate", attribute.String("resource.id", input.ResourceID.String()))
	defer func() {
		tracing.End(span, err)
		s.metrics.MultipartOp("initiate", err)
	}()

	res, err := s.catalog.ResourceShow(ctx, input.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Initiate: %w", err)
	}
	pkg, err := s.catalog.PackageShow(ctx, res.PackageID.String(), false)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Initiate: %w", err)
	}
	key, err := objectkey.FromResource(pkg, res)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Initiate: %w", err)
	}

	wasInProgress := res.UploadInProgress
	res.UploadInProgress = true
	if res.StorageKey == nil {
		raw := key.Raw
		res.StorageKey = &raw
	}
	if err := s.catalog.ResourceUpdate(ctx, input.Actor, res); err != nil {
		return nil, fmt.Errorf("multipartService.Initiate: %w", err)
	}
	discarded := false
	defer func() {
		// On conflict the winning initiator owns the flag; a failed discard
		// may leave an earlier live session behind.
		if err != nil && !errors.Is(err, domain.ErrUploadConflict) && (discarded || !wasInProgress) {
			s.clearInProgress(ctx, input.Actor, res.ID)
		}
	}()

	if err := s.discardStale(ctx, key.Raw, res.ID); err != nil {
		return nil, fmt.Errorf("multipartService.Initiate: %w", err)
	}
	discarded = true

	uploadID, err := s.storage.InitiateMultipart(ctx, s.bucket, key.Raw)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Initiate: %w", err)
	}

	upload = &domain.MultipartUpload{
		ID:               uploadID,
		ResourceID:       res.ID,
		DestinationKey:   key.Raw,
		Size:             input.Size,
		OriginalFilename: input.Filename,
		InitiatedAt:      s.now().UTC(),
		InitiatedBy:      actorRef(input.Actor),
	}
	if err := s.uploads.Create(ctx, upload); err != nil {
		if errors.Is(err, domain.ErrUploadConflict) {
			// Another initiator won the destination key; release our backend session.
			if abortErr := s.storage.AbortMultipart(ctx, s.bucket, key.Raw, uploadID); abortErr != nil {
				s.logger.Warn("aborting losing multipart session failed",
					zap.String("upload_id", uploadID), zap.Error(abortErr))
			}
		}
		return nil, fmt.Errorf("multipartService.Initiate: %w", err)
	}

	s.logger.Info("multipart upload initiated",
		zap.String("upload_id", uploadID),
		zap.String("resource_id", res.ID.String()),
		zap.String("key", key.Raw),
	)
	return upload, nil
}

// discardStale drops the live session on the destination key and any other
// session of the resource.
func (s *multipartService) discardStale(ctx context.Context, destinationKey string, resourceID uuid.UUID) error {
	existing, err := s.uploads.GetByDestinationKey(ctx, destinationKey)
	switch {
	case err == nil:
		if err := s.discard(ctx, existing); err != nil {
			return err
		}
	case !errors.Is(err, domain.ErrSessionNotFound):
		return err
	}

	others, err := s.uploads.ListByResource(ctx, resourceID)
	if err != nil {
		return err
	}
	for i := range others {
		if err := s.discard(ctx, &others[i]); err != nil {
			return err
		}
	}
	return nil
}

// discard aborts the backend session and deletes its record. Sessions that
// are already gone on either side are not an error.
func (s *multipartService) discard(ctx context.Context, upload *domain.MultipartUpload) error {
	err := s.storage.AbortMultipart(ctx, s.bucket, upload.DestinationKey, upload.ID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	err = s.uploads.Delete(ctx, upload.ID)
	if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return err
	}
	return nil
}

func (s *multipartService) UploadPart(ctx context.Context, input UploadPartInput) (result *UploadPartResult, err error) {
	ctx, span := tracing.Start(ctx, "multipart.upload_part",
		attribute.String("upload.id", input.UploadID),
		attribute.Int("part.number", int(input.PartNumber)),
	)
	defer func() {
		tracing.End(span, err)
		s.metrics.MultipartOp("upload_part", err)
	}()

	if input.PartNumber < MinPartNumber || input.PartNumber > MaxPartNumber {
		return nil, domain.ErrInvalidPartNumber
	}

	upload, err := s.uploads.GetByID(ctx, input.UploadID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.UploadPart: %w", err)
	}

	etag, err := s.storage.UploadPart(ctx, s.bucket, upload.DestinationKey, upload.ID, input.PartNumber, input.Body, input.Size)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, fmt.Errorf("multipartService.UploadPart: %w", err)
		}
		return nil, fmt.Errorf("%w: part %d: %w", domain.ErrPartUploadFailed, input.PartNumber, err)
	}

	part := &domain.MultipartPart{
		UploadID:   upload.ID,
		PartNumber: input.PartNumber,
		ETag:       etag,
	}
	if err := s.uploads.UpsertPart(ctx, part); err != nil {
		return nil, fmt.Errorf("multipartService.UploadPart: %w", err)
	}
	return &UploadPartResult{PartNumber: input.PartNumber, ETag: etag}, nil
}

func (s *multipartService) Finish(ctx context.Context, input FinishInput) (res *domain.Resource, err error) {
	ctx, span := tracing.Start(ctx, "multipart.finish", attribute.String("upload.id", input.UploadID))
	defer func() {
		tracing.End(span, err)
		s.metrics.MultipartOp("finish", err)
	}()

	upload, err := s.uploads.GetByID(ctx, input.UploadID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Finish: %w", err)
	}
	parts, err := s.uploads.ListParts(ctx, upload.ID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Finish: %w", err)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].PartNumber < parts[j].PartNumber })

	completed := make([]port.CompletedPart, len(parts))
	for i, p := range parts {
		completed[i] = port.CompletedPart{PartNumber: p.PartNumber, ETag: p.ETag}
	}

	s.removeExisting(ctx, upload.DestinationKey)
	if err := s.storage.CompleteMultipart(ctx, s.bucket, upload.DestinationKey, upload.ID, completed); err != nil {
		return nil, fmt.Errorf("multipartService.Finish: %w", err)
	}
	if err := s.uploads.Delete(ctx, upload.ID); err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
		return nil, fmt.Errorf("multipartService.Finish: %w", err)
	}

	res, err = s.catalog.ResourceShow(ctx, upload.ResourceID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Finish: %w", err)
	}
	destination := upload.DestinationKey
	res.UploadInProgress = false
	res.URL = upload.OriginalFilename
	res.URLType = domain.URLTypeUpload
	res.Size = upload.Size
	res.StorageKey = &destination
	if res.Format == "" {
		res.Format = formatFromFilename(upload.OriginalFilename)
	}
	if err := s.catalog.ResourceUpdate(ctx, input.Actor, res); err != nil {
		return nil, fmt.Errorf("multipartService.Finish: %w", err)
	}

	if !input.KeepDraft {
		s.activatePackage(ctx, input.Actor, res.PackageID)
	}
	s.submit(ctx, res)

	s.logger.Info("multipart upload finished",
		zap.String("upload_id", upload.ID),
		zap.String("resource_id", res.ID.String()),
		zap.Int("parts", len(completed)),
	)
	return res, nil
}

// removeExisting deletes the object a commit is about to replace, since some
// backends refuse to overwrite on commit. Failures are logged and left to the
// commit itself to surface.
func (s *multipartService) removeExisting(ctx context.Context, key string) {
	exists, err := s.storage.ObjectExists(ctx, s.bucket, key)
	if err != nil {
		s.logger.Warn("checking existing object failed", zap.String("key", key), zap.Error(err))
		exists = true
	}
	if !exists {
		return
	}
	if err := s.storage.DeleteObject(ctx, s.bucket, key); err != nil {
		s.logger.Warn("deleting existing object failed", zap.String("key", key), zap.Error(err))
	}
}

// activatePackage promotes a draft package once its file is in place.
// Failures are logged; the upload itself is already committed.
func (s *multipartService) activatePackage(ctx context.Context, actor, packageID uuid.UUID) {
	pkg, err := s.catalog.PackageShow(ctx, packageID.String(), false)
	if err != nil {
		s.logger.Error("loading package after upload failed", zap.String("package_id", packageID.String()), zap.Error(err))
		return
	}
	if pkg.State != domain.PackageStateDraft {
		return
	}
	if err := s.catalog.PackagePatch(ctx, actor, pkg.ID, domain.PackageStateActive); err != nil {
		s.logger.Error("activating package failed", zap.String("package_id", pkg.ID.String()), zap.Error(err))
	}
}

// submit hands the resource to the ingestion hook when it is configured for
// the format and the resource is not already routed through it.
func (s *multipartService) submit(ctx context.Context, res *domain.Resource) {
	if s.hook == nil || !s.hook.Accepts(res.Format) || res.URLType == s.hook.Name() {
		return
	}
	if err := s.hook.Submit(ctx, res); err != nil {
		s.logger.Error("submitting resource to ingestion hook failed",
			zap.String("hook", s.hook.Name()),
			zap.String("resource_id", res.ID.String()),
			zap.Error(err),
		)
	}
}

func (s *multipartService) Abort(ctx context.Context, resourceID uuid.UUID) (result *AbortResult, err error) {
	ctx, span := tracing.Start(ctx, "multipart.abort", attribute.String("resource.id", resourceID.String()))
	defer func() {
		tracing.End(span, err)
		s.metrics.MultipartOp("abort", err)
	}()

	uploads, err := s.uploads.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Abort: %w", err)
	}

	result = &AbortResult{Aborted: []string{}, Errors: []string{}}
	for i := range uploads {
		upload := &uploads[i]
		if err := s.discard(ctx, upload); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", upload.ID, err))
			continue
		}
		result.Aborted = append(result.Aborted, upload.ID)
	}

	if len(result.Errors) == 0 {
		s.clearInProgress(ctx, uuid.Nil, resourceID)
	}
	return result, nil
}

// clearInProgress drops the upload flag of a resource left without a live
// session.
func (s *multipartService) clearInProgress(ctx context.Context, actor, resourceID uuid.UUID) {
	res, err := s.catalog.ResourceShow(ctx, resourceID)
	if err != nil {
		s.logger.Warn("loading resource to clear upload flag failed", zap.String("resource_id", resourceID.String()), zap.Error(err))
		return
	}
	if !res.UploadInProgress {
		return
	}
	res.UploadInProgress = false
	if err := s.catalog.ResourceUpdate(ctx, actor, res); err != nil {
		s.logger.Warn("clearing upload flag failed", zap.String("resource_id", resourceID.String()), zap.Error(err))
	}
}

func (s *multipartService) Reap(ctx context.Context, maxLifetime time.Duration) (*ReapResult, error) {
	cutoff := s.now().UTC().Add(-maxLifetime)
	expired, err := s.uploads.ListInitiatedBefore(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Reap: %w", err)
	}

	result := &ReapResult{Considered: len(expired), Errors: []string{}}
	for i := range expired {
		upload := &expired[i]
		if err := s.discard(ctx, upload); err != nil {
			s.logger.Warn("reaping multipart session failed", zap.String("upload_id", upload.ID), zap.Error(err))
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", upload.ID, err))
			continue
		}
		result.Removed++
	}
	s.metrics.ReapResult(result.Removed, len(result.Errors))

	s.logger.Info("multipart sessions reaped",
		zap.Time("cutoff", cutoff),
		zap.Int("total", result.Considered),
		zap.Int("removed", result.Removed),
		zap.Int("errors", len(result.Errors)),
	)
	return result, nil
}

func (s *multipartService) Check(ctx context.Context, resourceID uuid.UUID) (*domain.MultipartUpload, error) {
	uploads, err := s.uploads.ListByResource(ctx, resourceID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Check: %w", err)
	}
	if len(uploads) == 0 {
		return nil, domain.ErrSessionNotFound
	}

	upload := &uploads[len(uploads)-1]
	count, err := s.uploads.CountParts(ctx, upload.ID)
	if err != nil {
		return nil, fmt.Errorf("multipartService.Check: %w", err)
	}
	upload.PartCount = count
	return upload, nil
}

func actorRef(actor uuid.UUID) *uuid.UUID {
	if actor == uuid.Nil {
		return nil
	}
	return &actor
}
