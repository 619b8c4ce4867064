package port

import (
	"context"

	"github.com/google/uuid"

	"cloudsync/internal/domain"
)

// Catalog is the set of catalog operations the sync and upload flows consume.
// Mutations take the id of the acting user. Lookups return domain.ErrNotFound
// when nothing matches.
type Catalog interface {
	// OrganizationShow returns the organization with its members.
	OrganizationShow(ctx context.Context, name string) (*domain.Organization, error)
	// PackageShow looks a package up by global name or id and loads its
	// resources, tombstones included. forUpdate locks the package row until
	// the surrounding transaction ends.
	PackageShow(ctx context.Context, nameOrID string, forUpdate bool) (*domain.Package, error)
	// PackageCreate inserts the package and every resource embedded in it.
	PackageCreate(ctx context.Context, actor uuid.UUID, pkg *domain.Package) error
	PackagePatch(ctx context.Context, actor uuid.UUID, id uuid.UUID, state domain.PackageState) error

	ResourceShow(ctx context.Context, id uuid.UUID) (*domain.Resource, error)
	ResourceCreate(ctx context.Context, actor uuid.UUID, res *domain.Resource) error
	ResourceUpdate(ctx context.Context, actor uuid.UUID, res *domain.Resource) error
	// ResourceDelete stores res as a tombstone: state deleted, cursor kept.
	ResourceDelete(ctx context.Context, actor uuid.UUID, res *domain.Resource) error
}

// CatalogTx is a catalog bound to one database transaction.
type CatalogTx interface {
	Catalog
	Commit() error
	Rollback() error
}

// CatalogStore runs catalog operations directly or inside a transaction.
type CatalogStore interface {
	Catalog
	Begin(ctx context.Context) (CatalogTx, error)
}
