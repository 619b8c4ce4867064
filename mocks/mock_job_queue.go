package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"cloudsync/internal/domain"
)

// MockJobQueue is a mock implementation of port.JobQueue.
type MockJobQueue struct {
	mock.Mock
}

func (m *MockJobQueue) ListJobsByTitle(ctx context.Context, title string, statuses []domain.JobStatus) ([]domain.Job, error) {
	args := m.Called(ctx, title, statuses)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Job), args.Error(1)
}

func (m *MockJobQueue) Enqueue(ctx context.Context, title string) (*domain.Job, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobQueue) ClaimNext(ctx context.Context, title string) (*domain.Job, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Job), args.Error(1)
}

func (m *MockJobQueue) Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, errMsg string) error {
	args := m.Called(ctx, id, status, errMsg)
	return args.Error(0)
}

func (m *MockJobQueue) FailStale(ctx context.Context, title string, startedBefore time.Time, errMsg string) (int64, error) {
	args := m.Called(ctx, title, startedBefore, errMsg)
	return args.Get(0).(int64), args.Error(1)
}

// MockLocker is a mock implementation of port.Locker. When the expectation
// returns no error, fn runs as if the lock was acquired.
type MockLocker struct {
	mock.Mock
}

func (m *MockLocker) WithLock(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	args := m.Called(ctx, name)
	if err := args.Error(0); err != nil {
		return err
	}
	return fn(ctx)
}
