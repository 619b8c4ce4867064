package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"cloudsync/internal/domain"
)

// MockMultipartRepo is a mock implementation of port.MultipartRepository.
type MockMultipartRepo struct {
	mock.Mock
}

func (m *MockMultipartRepo) Create(ctx context.Context, upload *domain.MultipartUpload) error {
	args := m.Called(ctx, upload)
	return args.Error(0)
}

func (m *MockMultipartRepo) GetByID(ctx context.Context, id string) (*domain.MultipartUpload, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MultipartUpload), args.Error(1)
}

func (m *MockMultipartRepo) GetByDestinationKey(ctx context.Context, key string) (*domain.MultipartUpload, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MultipartUpload), args.Error(1)
}

func (m *MockMultipartRepo) ListByResource(ctx context.Context, resourceID uuid.UUID) ([]domain.MultipartUpload, error) {
	args := m.Called(ctx, resourceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MultipartUpload), args.Error(1)
}

func (m *MockMultipartRepo) ListInitiatedBefore(ctx context.Context, cutoff time.Time) ([]domain.MultipartUpload, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MultipartUpload), args.Error(1)
}

func (m *MockMultipartRepo) CountParts(ctx context.Context, uploadID string) (int, error) {
	args := m.Called(ctx, uploadID)
	return args.Int(0), args.Error(1)
}

func (m *MockMultipartRepo) UpsertPart(ctx context.Context, part *domain.MultipartPart) error {
	args := m.Called(ctx, part)
	return args.Error(0)
}

func (m *MockMultipartRepo) ListParts(ctx context.Context, uploadID string) ([]domain.MultipartPart, error) {
	args := m.Called(ctx, uploadID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.MultipartPart), args.Error(1)
}

func (m *MockMultipartRepo) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
