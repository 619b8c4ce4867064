package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cloudsync/internal/domain"
	"cloudsync/internal/objectkey"
	"cloudsync/internal/port"
)

// ResourceService serves read access to uploaded resources and their packages.
type ResourceService interface {
	// DownloadURL returns a presigned URL when the backend supports it and the
	// plain object URL otherwise.
	DownloadURL(ctx context.Context, resourceID uuid.UUID) (string, error)
	// PackageByOrganization looks a package up by organization and the local
	// name the organization knows it by. Tombstoned resources are omitted.
	PackageByOrganization(ctx context.Context, organization, name string) (*domain.Package, error)
}

type resourceService struct {
	catalog port.Catalog
	signer  port.URLSigner
	bucket  string
	ttl     time.Duration
}

// NewResourceService creates a new ResourceService.
func NewResourceService(catalog port.Catalog, signer port.URLSigner, bucket string, ttl time.Duration) ResourceService {
	return &resourceService{
		catalog: catalog,
		signer:  signer,
		bucket:  bucket,
		ttl:     ttl,
	}
}

func (s *resourceService) DownloadURL(ctx context.Context, resourceID uuid.UUID) (string, error) {
	res, err := s.catalog.ResourceShow(ctx, resourceID)
	if err != nil {
		return "", fmt.Errorf("resourceService.DownloadURL: %w", err)
	}
	if res.State == domain.ResourceStateDeleted {
		return "", domain.ErrNotFound
	}
	if res.URLType != domain.URLTypeUpload {
		return "", domain.ErrNotUploadResource
	}

	pkg, err := s.catalog.PackageShow(ctx, res.PackageID.String(), false)
	if err != nil {
		return "", fmt.Errorf("resourceService.DownloadURL: %w", err)
	}
	key, err := objectkey.FromResource(pkg, res)
	if err != nil {
		return "", fmt.Errorf("resourceService.DownloadURL: %w", err)
	}

	if !s.signer.SupportsPresignedURLs() {
		return s.signer.ObjectURL(s.bucket, key.Raw), nil
	}
	url, err := s.signer.Presign(ctx, s.bucket, key.Raw, s.ttl)
	if err != nil {
		return "", fmt.Errorf("resourceService.DownloadURL: %w", err)
	}
	return url, nil
}

func (s *resourceService) PackageByOrganization(ctx context.Context, organization, name string) (*domain.Package, error) {
	global := objectkey.GlobalPackageName(organization, objectkey.CanonicalizePackageName(name))
	pkg, err := s.catalog.PackageShow(ctx, global, false)
	if err != nil {
		return nil, fmt.Errorf("resourceService.PackageByOrganization: %w", err)
	}
	if pkg.OrganizationName != organization || pkg.State == domain.PackageStateDeleted {
		return nil, domain.ErrNotFound
	}

	live := make([]domain.Resource, 0, len(pkg.Resources))
	for _, res := range pkg.Resources {
		if res.State != domain.ResourceStateDeleted {
			live = append(live, res)
		}
	}
	pkg.Resources = live
	return pkg, nil
}
