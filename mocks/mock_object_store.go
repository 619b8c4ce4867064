package mocks

import (
	"context"
	"io"
	"time"

	"github.com/stretchr/testify/mock"

	"cloudsync/internal/port"
)

// MockObjectStore is a mock implementation of port.ObjectStore and
// port.BucketCORSUpdater.
type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) InitiateMultipart(ctx context.Context, bucket, key string) (string, error) {
	args := m.Called(ctx, bucket, key)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	args := m.Called(ctx, bucket, key, uploadID, partNumber, body, size)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []port.CompletedPart) error {
	args := m.Called(ctx, bucket, key, uploadID, parts)
	return args.Error(0)
}

func (m *MockObjectStore) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	args := m.Called(ctx, bucket, key, uploadID)
	return args.Error(0)
}

func (m *MockObjectStore) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	args := m.Called(ctx, bucket, key)
	return args.Bool(0), args.Error(1)
}

func (m *MockObjectStore) DeleteObject(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockObjectStore) SupportsPresignedURLs() bool {
	args := m.Called()
	return args.Bool(0)
}

func (m *MockObjectStore) Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, ttl)
	return args.String(0), args.Error(1)
}

func (m *MockObjectStore) ObjectURL(bucket, key string) string {
	args := m.Called(bucket, key)
	return args.String(0)
}

func (m *MockObjectStore) SetBucketCORS(ctx context.Context, bucket string, origins []string) error {
	args := m.Called(ctx, bucket, origins)
	return args.Error(0)
}
