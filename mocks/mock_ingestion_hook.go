package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"cloudsync/internal/domain"
)

// MockIngestionHook is a mock implementation of port.IngestionHook.
type MockIngestionHook struct {
	mock.Mock
}

func (m *MockIngestionHook) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockIngestionHook) Accepts(format string) bool {
	args := m.Called(format)
	return args.Bool(0)
}

func (m *MockIngestionHook) Submit(ctx context.Context, res *domain.Resource) error {
	args := m.Called(ctx, res)
	return args.Error(0)
}
