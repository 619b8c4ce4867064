package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/metrics"
	"cloudsync/internal/objectkey"
	"cloudsync/internal/port"
	"cloudsync/internal/s3event"
	"cloudsync/internal/tracing"
)

// EventSource yields batches of sync events. An empty batch means the
// source is drained.
type EventSource interface {
	Receive(ctx context.Context) ([]*s3event.Event, error)
}

// SyncAction is the catalog change applied for one event.
type SyncAction string

const (
	SyncActionNone           SyncAction = "none"
	SyncActionSkipped        SyncAction = "skipped"
	SyncActionPackageCreate  SyncAction = "package_create"
	SyncActionResourceCreate SyncAction = "resource_create"
	SyncActionResourceUpdate SyncAction = "resource_update"
	SyncActionResourceDelete SyncAction = "resource_delete"
)

// SyncStats counts event dispositions of one sync pass.
type SyncStats struct {
	Received int `json:"received"`
	Skipped  int `json:"skipped"`
	Invalid  int `json:"invalid"`
	Errors   int `json:"errors"`
}

// SyncService reconciles blob store events into the catalog.
type SyncService interface {
	// Run drains the event source, applying events one at a time.
	Run(ctx context.Context) (*SyncStats, error)
	// Apply reconciles one event inside its own catalog transaction.
	Apply(ctx context.Context, event *s3event.Event) (SyncAction, error)
}

type syncService struct {
	source  EventSource
	catalog port.CatalogStore
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewSyncService creates a new SyncService implementation.
func NewSyncService(
	source EventSource,
	catalog port.CatalogStore,
	m *metrics.Metrics,
	logger *zap.Logger,
) SyncService {
	return &syncService{
		source:  source,
		catalog: catalog,
		metrics: m,
		logger:  logger,
	}
}

func (s *syncService) Run(ctx context.Context) (*SyncStats, error) {
	stats := &SyncStats{}
	for {
		events, err := s.source.Receive(ctx)
		if err != nil {
			return stats, fmt.Errorf("syncService.Run: %w", err)
		}
		if len(events) == 0 {
			s.logger.Info("sync pass finished",
				zap.Int("received", stats.Received),
				zap.Int("skipped", stats.Skipped),
				zap.Int("invalid", stats.Invalid),
				zap.Int("errors", stats.Errors),
			)
			return stats, nil
		}
		for _, event := range events {
			s.handle(ctx, event, stats)
		}
	}
}

// handle applies one event and acknowledges it. It never fails the batch.
func (s *syncService) handle(ctx context.Context, event *s3event.Event, stats *SyncStats) {
	action, err := s.Apply(ctx, event)

	var disposition string
	switch {
	case err == nil:
		if ackErr := event.MarkReceived(ctx); ackErr != nil {
			s.logger.Error("acknowledging sync event failed", zap.String("key", event.Key.Raw), zap.Error(ackErr))
		}
		disposition = metrics.DispositionReceived
		if action == SyncActionSkipped {
			disposition = metrics.DispositionSkipped
			stats.Skipped++
		} else {
			stats.Received++
		}
	case domain.IsInvalidEvent(err):
		if ackErr := event.MarkInvalid(ctx, err.Error()); ackErr != nil {
			s.logger.Error("dropping invalid sync event failed", zap.String("key", event.Key.Raw), zap.Error(ackErr))
		}
		disposition = metrics.DispositionInvalid
		stats.Invalid++
	default:
		event.MarkError(ctx, err)
		disposition = metrics.DispositionError
		stats.Errors++
	}
	s.metrics.SyncEvent(string(event.Kind), disposition)
}

func (s *syncService) Apply(ctx context.Context, event *s3event.Event) (action SyncAction, err error) {
	ctx, span := tracing.Start(ctx, "sync.apply",
		attribute.String("object.key", event.Key.Raw),
		attribute.String("event.kind", string(event.Kind)),
	)
	defer func() { tracing.End(span, err) }()

	tx, err := s.catalog.Begin(ctx)
	if err != nil {
		return SyncActionNone, fmt.Errorf("syncService.Apply: %w", err)
	}

	action, err = s.apply(ctx, tx, event)
	if err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Error("rolling back sync transaction failed", zap.Error(rbErr))
		}
		return SyncActionNone, err
	}
	if err := tx.Commit(); err != nil {
		return SyncActionNone, fmt.Errorf("syncService.Apply: %w", err)
	}
	return action, nil
}

func (s *syncService) apply(ctx context.Context, tx port.CatalogTx, event *s3event.Event) (SyncAction, error) {
	key := event.Key

	org, err := tx.OrganizationShow(ctx, key.OrganizationName)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return SyncActionNone, fmt.Errorf("%w: %s", domain.ErrMissingOrganization, key.OrganizationName)
		}
		return SyncActionNone, err
	}
	admin, ok := org.Admin()
	if !ok {
		return SyncActionNone, fmt.Errorf("%w: %s", domain.ErrMissingOrganizationAdmin, org.Name)
	}

	pkg, err := tx.PackageShow(ctx, key.PackageName, true)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return SyncActionNone, err
	}
	var current *domain.Resource
	if pkg != nil {
		current = pkg.ResourceByName(key.ResourceName)
	}

	if !event.CanApplyTo(current) {
		s.logger.Debug("ignoring stale sync event", zap.String("key", key.Raw), zap.String("kind", string(event.Kind)))
		return SyncActionSkipped, nil
	}
	if pkg != nil && pkg.OwnerOrgID != org.ID {
		return SyncActionNone, fmt.Errorf("%w: package %s, organization %s", domain.ErrCrossTenantMismatch, pkg.Name, org.Name)
	}

	s.logger.Debug("handling sync event", zap.String("key", key.Raw), zap.String("kind", string(event.Kind)))
	actor := admin.UserID

	switch {
	case event.Kind == s3event.KindCreated && pkg == nil:
		res := createdResource(event, nil)
		newPkg := &domain.Package{
			Name:              key.PackageName,
			Title:             objectkey.TitleFromPackageName(key.LocalPackageName()),
			OwnerOrgID:        org.ID,
			OrganizationName:  org.Name,
			StorageKeySegment: key.PackageSegment,
			State:             domain.PackageStateActive,
			Private:           true,
			Resources:         []domain.Resource{*res},
		}
		if err := tx.PackageCreate(ctx, actor, newPkg); err != nil {
			return SyncActionNone, err
		}
		return SyncActionPackageCreate, nil

	case event.Kind == s3event.KindCreated && current == nil:
		res := createdResource(event, nil)
		res.PackageID = pkg.ID
		if err := tx.ResourceCreate(ctx, actor, res); err != nil {
			return SyncActionNone, err
		}
		return SyncActionResourceCreate, nil

	case event.Kind == s3event.KindCreated:
		if err := tx.ResourceUpdate(ctx, actor, createdResource(event, current)); err != nil {
			return SyncActionNone, err
		}
		return SyncActionResourceUpdate, nil

	case event.Kind == s3event.KindRemoved && current != nil:
		if err := tx.ResourceDelete(ctx, actor, removedResource(event, current)); err != nil {
			return SyncActionNone, err
		}
		return SyncActionResourceDelete, nil
	}
	return SyncActionNone, nil
}

// createdResource derives the resource state after a CREATED event, starting
// from current when the resource exists.
func createdResource(event *s3event.Event, current *domain.Resource) *domain.Resource {
	res := &domain.Resource{Name: event.Key.ResourceName}
	if current != nil {
		copied := *current
		res = &copied
	}

	raw := event.Key.Raw
	sequencer := event.Sequencer
	modified := event.Time

	res.URL = event.Key.Filename
	res.URLType = domain.URLTypeUpload
	res.Size = event.SizeBytes
	res.Sequencer = &sequencer
	res.StorageKey = &raw
	res.LastModified = &modified
	res.State = domain.ResourceStateActive
	if res.Format == "" {
		res.Format = formatFromFilename(event.Key.Filename)
	}
	if event.Key.Type == objectkey.TypeStreaming {
		resourceType := domain.ResourceTypeStream
		res.ResourceType = &resourceType
	}
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	return res
}

// removedResource is the tombstone left by a REMOVED event. The cursor moves
// forward so a stale CREATED cannot bring the resource back.
func removedResource(event *s3event.Event, current *domain.Resource) *domain.Resource {
	res := *current
	sequencer := event.Sequencer
	modified := event.Time

	res.URL = ""
	res.StorageKey = nil
	res.Sequencer = &sequencer
	res.LastModified = &modified
	res.State = domain.ResourceStateDeleted
	return &res
}

// formatFromFilename returns the lowercase extension, e.g. "csv".
func formatFromFilename(name string) string {
	return strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
}
