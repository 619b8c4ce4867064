package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"cloudsync/internal/domain"
	"cloudsync/internal/port"
)

// MockCatalog implements the port.Catalog operations.
type MockCatalog struct {
	mock.Mock
}

func (m *MockCatalog) OrganizationShow(ctx context.Context, name string) (*domain.Organization, error) {
	args := m.Called(ctx, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Organization), args.Error(1)
}

func (m *MockCatalog) PackageShow(ctx context.Context, nameOrID string, forUpdate bool) (*domain.Package, error) {
	args := m.Called(ctx, nameOrID, forUpdate)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Package), args.Error(1)
}

func (m *MockCatalog) PackageCreate(ctx context.Context, actor uuid.UUID, pkg *domain.Package) error {
	args := m.Called(ctx, actor, pkg)
	return args.Error(0)
}

func (m *MockCatalog) PackagePatch(ctx context.Context, actor, id uuid.UUID, state domain.PackageState) error {
	args := m.Called(ctx, actor, id, state)
	return args.Error(0)
}

func (m *MockCatalog) ResourceShow(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Resource), args.Error(1)
}

func (m *MockCatalog) ResourceCreate(ctx context.Context, actor uuid.UUID, res *domain.Resource) error {
	args := m.Called(ctx, actor, res)
	return args.Error(0)
}

func (m *MockCatalog) ResourceUpdate(ctx context.Context, actor uuid.UUID, res *domain.Resource) error {
	args := m.Called(ctx, actor, res)
	return args.Error(0)
}

func (m *MockCatalog) ResourceDelete(ctx context.Context, actor uuid.UUID, res *domain.Resource) error {
	args := m.Called(ctx, actor, res)
	return args.Error(0)
}

// MockCatalogTx is a mock implementation of port.CatalogTx.
type MockCatalogTx struct {
	MockCatalog
}

func (m *MockCatalogTx) Commit() error {
	args := m.Called()
	return args.Error(0)
}

func (m *MockCatalogTx) Rollback() error {
	args := m.Called()
	return args.Error(0)
}

// MockCatalogStore is a mock implementation of port.CatalogStore.
type MockCatalogStore struct {
	MockCatalog
}

func (m *MockCatalogStore) Begin(ctx context.Context) (port.CatalogTx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(port.CatalogTx), args.Error(1)
}
