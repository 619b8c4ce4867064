package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"cloudsync/internal/domain"
	"cloudsync/internal/port"
)

const (
	packageColumns = `p.id, p.name, p.title, p.owner_org_id, o.name AS organization_name,
		p.storage_key_segment, p.state, p.private, p.created_by, p.created_at, p.updated_at`

	resourceColumns = `id, package_id, name, url, url_type, format, size, storage_key, sequencer,
		last_modified, resource_type, upload_in_progress, state, created_at, updated_at`
)

// catalogQueries implements port.Catalog over a pool or a transaction.
type catalogQueries struct {
	db sqlx.ExtContext
}

type catalogRepo struct {
	catalogQueries
	conn *sqlx.DB
}

// NewCatalogRepo creates a new PostgreSQL-backed CatalogStore.
func NewCatalogRepo(db *sqlx.DB) port.CatalogStore {
	return &catalogRepo{catalogQueries: catalogQueries{db: db}, conn: db}
}

func (r *catalogRepo) Begin(ctx context.Context) (port.CatalogTx, error) {
	tx, err := r.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("catalogRepo.Begin: %w", err)
	}
	return &catalogTx{catalogQueries: catalogQueries{db: tx}, tx: tx}, nil
}

type catalogTx struct {
	catalogQueries
	tx *sqlx.Tx
}

func (t *catalogTx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("catalogTx.Commit: %w", err)
	}
	return nil
}

// Rollback is a no-op after Commit.
func (t *catalogTx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("catalogTx.Rollback: %w", err)
	}
	return nil
}

func (r *catalogQueries) OrganizationShow(ctx context.Context, name string) (*domain.Organization, error) {
	var org domain.Organization
	err := sqlx.GetContext(ctx, r.db, &org,
		"SELECT id, name, title, created_at FROM organizations WHERE name = $1", name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.OrganizationShow: %w", err)
	}

	err = sqlx.SelectContext(ctx, r.db, &org.Members,
		`SELECT organization_id, user_id, capacity FROM organization_members
		 WHERE organization_id = $1 ORDER BY created_at ASC, user_id ASC`, org.ID)
	if err != nil {
		return nil, fmt.Errorf("catalogRepo.OrganizationShow members: %w", err)
	}
	return &org, nil
}

func (r *catalogQueries) PackageShow(ctx context.Context, nameOrID string, forUpdate bool) (*domain.Package, error) {
	query := "SELECT " + packageColumns + " FROM packages p JOIN organizations o ON o.id = p.owner_org_id"
	var arg any = nameOrID
	if id, err := uuid.Parse(nameOrID); err == nil {
		query += " WHERE p.id = $1"
		arg = id
	} else {
		query += " WHERE p.name = $1"
	}
	if forUpdate {
		query += " FOR UPDATE OF p"
	}

	var pkg domain.Package
	if err := sqlx.GetContext(ctx, r.db, &pkg, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.PackageShow: %w", err)
	}

	err := sqlx.SelectContext(ctx, r.db, &pkg.Resources,
		"SELECT "+resourceColumns+" FROM resources WHERE package_id = $1 ORDER BY created_at ASC", pkg.ID)
	if err != nil {
		return nil, fmt.Errorf("catalogRepo.PackageShow resources: %w", err)
	}
	return &pkg, nil
}

func (r *catalogQueries) PackageCreate(ctx context.Context, actor uuid.UUID, pkg *domain.Package) error {
	if pkg.ID == uuid.Nil {
		pkg.ID = uuid.New()
	}
	now := time.Now().UTC()
	pkg.CreatedAt = now
	pkg.UpdatedAt = now
	pkg.CreatedBy = actorRef(actor)

	query := `INSERT INTO packages
		(id, name, title, owner_org_id, storage_key_segment, state, private,
		 created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $9, $10)`

	_, err := r.db.ExecContext(ctx, query,
		pkg.ID, pkg.Name, pkg.Title, pkg.OwnerOrgID, pkg.StorageKeySegment, pkg.State,
		pkg.Private, pkg.CreatedBy, pkg.CreatedAt, pkg.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalogRepo.PackageCreate: %w", err)
	}

	for i := range pkg.Resources {
		pkg.Resources[i].PackageID = pkg.ID
		if err := r.ResourceCreate(ctx, actor, &pkg.Resources[i]); err != nil {
			return err
		}
	}
	return nil
}

func (r *catalogQueries) PackagePatch(ctx context.Context, actor, id uuid.UUID, state domain.PackageState) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE packages SET state = $1, updated_by = $2, updated_at = $3 WHERE id = $4",
		state, actorRef(actor), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("catalogRepo.PackagePatch: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *catalogQueries) ResourceShow(ctx context.Context, id uuid.UUID) (*domain.Resource, error) {
	var res domain.Resource
	err := sqlx.GetContext(ctx, r.db, &res,
		"SELECT "+resourceColumns+" FROM resources WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("catalogRepo.ResourceShow: %w", err)
	}
	return &res, nil
}

func (r *catalogQueries) ResourceCreate(ctx context.Context, actor uuid.UUID, res *domain.Resource) error {
	if res.ID == uuid.Nil {
		res.ID = uuid.New()
	}
	now := time.Now().UTC()
	res.CreatedAt = now
	res.UpdatedAt = now

	query := `INSERT INTO resources
		(id, package_id, name, url, url_type, format, size, storage_key, sequencer,
		 last_modified, resource_type, upload_in_progress, state,
		 created_by, updated_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14, $15, $16)`

	_, err := r.db.ExecContext(ctx, query,
		res.ID, res.PackageID, res.Name, res.URL, res.URLType, res.Format, res.Size,
		res.StorageKey, res.Sequencer, res.LastModified, res.ResourceType,
		res.UploadInProgress, res.State, actorRef(actor), res.CreatedAt, res.UpdatedAt)
	if err != nil {
		return fmt.Errorf("catalogRepo.ResourceCreate: %w", err)
	}
	return nil
}

func (r *catalogQueries) ResourceUpdate(ctx context.Context, actor uuid.UUID, res *domain.Resource) error {
	res.UpdatedAt = time.Now().UTC()

	query := `UPDATE resources SET
		url = $1, url_type = $2, format = $3, size = $4, storage_key = $5, sequencer = $6,
		last_modified = $7, resource_type = $8, upload_in_progress = $9, state = $10,
		updated_by = $11, updated_at = $12
		WHERE id = $13`

	result, err := r.db.ExecContext(ctx, query,
		res.URL, res.URLType, res.Format, res.Size, res.StorageKey, res.Sequencer,
		res.LastModified, res.ResourceType, res.UploadInProgress, res.State,
		actorRef(actor), res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("catalogRepo.ResourceUpdate: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *catalogQueries) ResourceDelete(ctx context.Context, actor uuid.UUID, res *domain.Resource) error {
	res.State = domain.ResourceStateDeleted
	res.StorageKey = nil
	res.URL = ""
	res.UpdatedAt = time.Now().UTC()

	query := `UPDATE resources SET
		url = '', storage_key = NULL, sequencer = $1, last_modified = $2, state = $3,
		updated_by = $4, updated_at = $5
		WHERE id = $6`

	result, err := r.db.ExecContext(ctx, query,
		res.Sequencer, res.LastModified, res.State, actorRef(actor), res.UpdatedAt, res.ID)
	if err != nil {
		return fmt.Errorf("catalogRepo.ResourceDelete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// actorRef stores uuid.Nil as NULL.
func actorRef(actor uuid.UUID) *uuid.UUID {
	if actor == uuid.Nil {
		return nil
	}
	return &actor
}
