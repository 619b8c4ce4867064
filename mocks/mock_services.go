package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"cloudsync/internal/domain"
	"cloudsync/internal/service"
)

// MockMultipartService is a mock implementation of service.MultipartService.
type MockMultipartService struct {
	mock.Mock
}

func (m *MockMultipartService) Initiate(ctx context.Context, input service.InitiateInput) (*domain.MultipartUpload, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MultipartUpload), args.Error(1)
}

func (m *MockMultipartService) UploadPart(ctx context.Context, input service.UploadPartInput) (*service.UploadPartResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.UploadPartResult), args.Error(1)
}

func (m *MockMultipartService) Finish(ctx context.Context, input service.FinishInput) (*domain.Resource, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *MockMultipartService) Abort(ctx context.Context, resourceID uuid.UUID) (*service.AbortResult, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.AbortResult), args.Error(1)
}

func (m *MockMultipartService) Reap(ctx context.Context, maxLifetime time.Duration) (*service.ReapResult, error) {
	args := m.Called(ctx, maxLifetime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ReapResult), args.Error(1)
}

func (m *MockMultipartService) Check(ctx context.Context, resourceID uuid.UUID) (*domain.MultipartUpload, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MultipartUpload), args.Error(1)
}

// MockResourceService is a mock implementation of service.ResourceService.
type MockResourceService struct {
	mock.Mock
}

func (m *MockResourceService) DownloadURL(ctx context.Context, resourceID uuid.UUID) (string, error) {
	args := m.Called(ctx, resourceID)
	return args.String(0), args.Error(1)
}

func (m *MockResourceService) PackageByOrganization(ctx context.Context, organization, name string) (*domain.Package, error) {
	args := m.Called(ctx, organization, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Package), args.Error(1)
}

// MockSyncScheduler is a mock implementation of service.SyncScheduler.
type MockSyncScheduler struct {
	mock.Mock
}

func (m *MockSyncScheduler) Schedule(ctx context.Context) (bool, error) {
	args := m.Called(ctx)
	return args.Bool(0), args.Error(1)
}
