package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cloudsync/internal/domain"
	"cloudsync/internal/objectkey"
	"cloudsync/internal/queue/fake"
	"cloudsync/internal/s3event"
	"cloudsync/internal/service"
	"cloudsync/mocks"
)

type batchSource struct {
	batches [][]*s3event.Event
	err     error
}

func (s *batchSource) Receive(context.Context) ([]*s3event.Event, error) {
	if s.err != nil {
		return nil, s.err
	}
	if len(s.batches) == 0 {
		return nil, nil
	}
	batch := s.batches[0]
	s.batches = s.batches[1:]
	return batch, nil
}

func setupSyncService(source service.EventSource) (service.SyncService, *mocks.MockCatalogStore, *mocks.MockCatalogTx) {
	store := new(mocks.MockCatalogStore)
	tx := new(mocks.MockCatalogTx)
	store.On("Begin", mock.Anything).Return(tx, nil).Maybe()
	svc := service.NewSyncService(source, store, nil, zap.NewNop())
	return svc, store, tx
}

func testOrg() *domain.Organization {
	orgID := uuid.New()
	return &domain.Organization{
		ID:   orgID,
		Name: "test-organization",
		Members: []domain.Member{
			{OrganizationID: orgID, UserID: uuid.New(), Capacity: domain.CapacityMember},
			{OrganizationID: orgID, UserID: uuid.New(), Capacity: domain.CapacityAdmin},
		},
	}
}

func testEvent(t *testing.T, raw string, kind s3event.Kind, sequencer string) *s3event.Event {
	t.Helper()
	key, err := objectkey.Parse(raw)
	require.NoError(t, err)
	return &s3event.Event{
		Key:       key,
		Kind:      kind,
		SizeBytes: 50,
		Sequencer: sequencer,
		Time:      time.Date(2023, 9, 9, 9, 9, 9, 0, time.UTC),
	}
}

const uploadKey = "1/test-organization/sync-test/data.csv"

// --- Apply ---

func TestSyncService_Apply_CreatesPackage(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	org := testOrg()
	admin, _ := org.Admin()

	tx.On("OrganizationShow", mock.Anything, "test-organization").Return(org, nil)
	tx.On("PackageShow", mock.Anything, "test-organization--sync-test", true).Return(nil, domain.ErrNotFound)
	tx.On("PackageCreate", mock.Anything, admin.UserID, mock.MatchedBy(func(p *domain.Package) bool {
		if len(p.Resources) != 1 {
			return false
		}
		res := p.Resources[0]
		return p.Name == "test-organization--sync-test" &&
			p.Title == "Sync Test" &&
			p.OwnerOrgID == org.ID &&
			p.StorageKeySegment == "sync-test" &&
			p.Private &&
			p.State == domain.PackageStateActive &&
			res.Name == "data.csv" &&
			res.URL == "data.csv" &&
			res.URLType == domain.URLTypeUpload &&
			res.Format == "csv" &&
			res.Size == 50 &&
			*res.Sequencer == "0a" &&
			*res.StorageKey == uploadKey &&
			res.State == domain.ResourceStateActive
	})).Return(nil)
	tx.On("Commit").Return(nil)

	action, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	require.NoError(t, err)
	assert.Equal(t, service.SyncActionPackageCreate, action)
	tx.AssertExpectations(t)
	tx.AssertNotCalled(t, "Rollback")
}

func TestSyncService_Apply_CreatesResourceInExistingPackage(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	org := testOrg()
	pkg := &domain.Package{ID: uuid.New(), Name: "test-organization--sync-test", OwnerOrgID: org.ID}

	tx.On("OrganizationShow", mock.Anything, "test-organization").Return(org, nil)
	tx.On("PackageShow", mock.Anything, pkg.Name, true).Return(pkg, nil)
	tx.On("ResourceCreate", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.Resource) bool {
		return r.PackageID == pkg.ID && r.Name == "data.csv" && r.ID != uuid.Nil
	})).Return(nil)
	tx.On("Commit").Return(nil)

	action, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	require.NoError(t, err)
	assert.Equal(t, service.SyncActionResourceCreate, action)
	tx.AssertExpectations(t)
}

func TestSyncService_Apply_UpdatesNewerResource(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	org := testOrg()
	oldSeq := "05"
	resID := uuid.New()
	pkg := &domain.Package{
		ID: uuid.New(), Name: "test-organization--sync-test", OwnerOrgID: org.ID,
		Resources: []domain.Resource{{ID: resID, Name: "data.csv", Sequencer: &oldSeq, Format: "CSV"}},
	}

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(org, nil)
	tx.On("PackageShow", mock.Anything, mock.Anything, true).Return(pkg, nil)
	tx.On("ResourceUpdate", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.Resource) bool {
		return r.ID == resID && *r.Sequencer == "0a" && r.Format == "CSV" && r.State == domain.ResourceStateActive
	})).Return(nil)
	tx.On("Commit").Return(nil)

	action, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	require.NoError(t, err)
	assert.Equal(t, service.SyncActionResourceUpdate, action)
	tx.AssertExpectations(t)
}

func TestSyncService_Apply_SkipsStaleEvent(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	org := testOrg()
	newer := "ff"
	pkg := &domain.Package{
		ID: uuid.New(), Name: "test-organization--sync-test", OwnerOrgID: org.ID,
		Resources: []domain.Resource{{ID: uuid.New(), Name: "data.csv", Sequencer: &newer}},
	}

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(org, nil)
	tx.On("PackageShow", mock.Anything, mock.Anything, true).Return(pkg, nil)
	tx.On("Commit").Return(nil)

	action, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	require.NoError(t, err)
	assert.Equal(t, service.SyncActionSkipped, action)
	tx.AssertNotCalled(t, "ResourceUpdate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncService_Apply_RemovedWritesTombstone(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	org := testOrg()
	oldSeq := "05"
	storageKey := uploadKey
	resID := uuid.New()
	pkg := &domain.Package{
		ID: uuid.New(), Name: "test-organization--sync-test", OwnerOrgID: org.ID,
		Resources: []domain.Resource{{
			ID: resID, Name: "data.csv", URL: "data.csv", Sequencer: &oldSeq,
			StorageKey: &storageKey, State: domain.ResourceStateActive,
		}},
	}

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(org, nil)
	tx.On("PackageShow", mock.Anything, mock.Anything, true).Return(pkg, nil)
	tx.On("ResourceDelete", mock.Anything, mock.Anything, mock.MatchedBy(func(r *domain.Resource) bool {
		return r.ID == resID &&
			r.URL == "" &&
			r.StorageKey == nil &&
			*r.Sequencer == "0b" &&
			r.LastModified != nil &&
			r.State == domain.ResourceStateDeleted
	})).Return(nil)
	tx.On("Commit").Return(nil)

	action, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindRemoved, "0b"))

	require.NoError(t, err)
	assert.Equal(t, service.SyncActionResourceDelete, action)
	tx.AssertExpectations(t)
}

func TestSyncService_Apply_RemovedWithoutPackageIsNoop(t *testing.T) {
	svc, _, tx := setupSyncService(nil)

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(testOrg(), nil)
	tx.On("PackageShow", mock.Anything, mock.Anything, true).Return(nil, domain.ErrNotFound)
	tx.On("Commit").Return(nil)

	action, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindRemoved, "0b"))

	require.NoError(t, err)
	assert.Equal(t, service.SyncActionNone, action)
}

func TestSyncService_Apply_StreamingKeyTagsResource(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	raw := "1/test-organization/sync-test/stream/PUT-S3-Qj0zi-3-2023-07-24-09-07-42-3d8d51f5-0fc4-3a21-8d2e-ff614b8e9a30"

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(testOrg(), nil)
	tx.On("PackageShow", mock.Anything, mock.Anything, true).Return(nil, domain.ErrNotFound)
	tx.On("PackageCreate", mock.Anything, mock.Anything, mock.MatchedBy(func(p *domain.Package) bool {
		res := p.Resources[0]
		return res.Name == "stream" &&
			res.ResourceType != nil && *res.ResourceType == domain.ResourceTypeStream &&
			res.LastModified.Equal(time.Date(2023, 7, 24, 9, 7, 42, 0, time.UTC))
	})).Return(nil)
	tx.On("Commit").Return(nil)

	key, err := objectkey.Parse(raw)
	require.NoError(t, err)
	event := &s3event.Event{Key: key, Kind: s3event.KindCreated, Sequencer: "01", Time: *key.IngestionTime}

	_, err = svc.Apply(context.Background(), event)

	require.NoError(t, err)
	tx.AssertExpectations(t)
}

func TestSyncService_Apply_MissingOrganization(t *testing.T) {
	svc, _, tx := setupSyncService(nil)

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(nil, domain.ErrNotFound)
	tx.On("Rollback").Return(nil)

	_, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	assert.ErrorIs(t, err, domain.ErrMissingOrganization)
	assert.True(t, domain.IsInvalidEvent(err))
	tx.AssertCalled(t, "Rollback")
	tx.AssertNotCalled(t, "Commit")
}

func TestSyncService_Apply_MissingAdmin(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	org := testOrg()
	org.Members = org.Members[:1]

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(org, nil)
	tx.On("Rollback").Return(nil)

	_, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	assert.ErrorIs(t, err, domain.ErrMissingOrganizationAdmin)
}

func TestSyncService_Apply_CrossTenantPackage(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	pkg := &domain.Package{ID: uuid.New(), Name: "test-organization--sync-test", OwnerOrgID: uuid.New()}

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(testOrg(), nil)
	tx.On("PackageShow", mock.Anything, mock.Anything, true).Return(pkg, nil)
	tx.On("Rollback").Return(nil)

	_, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	assert.ErrorIs(t, err, domain.ErrCrossTenantMismatch)
	tx.AssertNotCalled(t, "ResourceCreate", mock.Anything, mock.Anything, mock.Anything)
}

func TestSyncService_Apply_CatalogFailureRollsBack(t *testing.T) {
	svc, _, tx := setupSyncService(nil)
	dbErr := errors.New("connection reset")

	tx.On("OrganizationShow", mock.Anything, mock.Anything).Return(testOrg(), nil)
	tx.On("PackageShow", mock.Anything, mock.Anything, true).Return(nil, domain.ErrNotFound)
	tx.On("PackageCreate", mock.Anything, mock.Anything, mock.Anything).Return(dbErr)
	tx.On("Rollback").Return(nil)

	_, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	assert.ErrorIs(t, err, dbErr)
	assert.False(t, domain.IsInvalidEvent(err))
	tx.AssertCalled(t, "Rollback")
}

func TestSyncService_Apply_BeginFailure(t *testing.T) {
	store := new(mocks.MockCatalogStore)
	store.On("Begin", mock.Anything).Return(nil, errors.New("pool exhausted"))
	svc := service.NewSyncService(nil, store, nil, zap.NewNop())

	_, err := svc.Apply(context.Background(), testEvent(t, uploadKey, s3event.KindCreated, "0a"))

	assert.Error(t, err)
}

// --- Run ---

func TestSyncService_Run_CountsDispositions(t *testing.T) {
	org := testOrg()
	ok := testEvent(t, uploadKey, s3event.KindCreated, "0a")
	invalid := testEvent(t, "1/unknown-org/sync-test/data.csv", s3event.KindCreated, "0a")
	failing := testEvent(t, "1/test-organization/broken/data.csv", s3event.KindCreated, "0a")

	source := &batchSource{batches: [][]*s3event.Event{{ok, invalid}, {failing}}}
	svc, _, tx := setupSyncService(source)

	tx.On("OrganizationShow", mock.Anything, "test-organization").Return(org, nil)
	tx.On("OrganizationShow", mock.Anything, "unknown-org").Return(nil, domain.ErrNotFound)
	tx.On("PackageShow", mock.Anything, "test-organization--sync-test", true).Return(nil, domain.ErrNotFound)
	tx.On("PackageShow", mock.Anything, "test-organization--broken", true).Return(nil, errors.New("timeout"))
	tx.On("PackageCreate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tx.On("Commit").Return(nil)
	tx.On("Rollback").Return(nil)

	stats, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, &service.SyncStats{Received: 1, Invalid: 1, Errors: 1}, stats)
}

func TestSyncService_Run_SourceError(t *testing.T) {
	svc, _, _ := setupSyncService(&batchSource{err: errors.New("queue unavailable")})

	_, err := svc.Run(context.Background())

	assert.Error(t, err)
}

func TestSyncService_Run_ReplaysFakeQueue(t *testing.T) {
	queue, err := fake.NewDefaultQueue()
	require.NoError(t, err)
	source := s3event.NewSource(queue, fake.Bucket, zap.NewNop())
	svc, _, tx := setupSyncService(source)

	tx.On("OrganizationShow", mock.Anything, "test-organization").Return(testOrg(), nil)
	tx.On("PackageShow", mock.Anything, "test-organization--sync-test-create-1", true).Return(nil, domain.ErrNotFound)
	tx.On("PackageCreate", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	tx.On("Commit").Return(nil)

	stats, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 4, stats.Received)
	tx.AssertNumberOfCalls(t, "PackageCreate", 3)
	assert.Equal(t, []string{"fake-1"}, queue.Deleted())
}
