package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"cloudsync/internal/config"
	"cloudsync/internal/domain"
	"cloudsync/internal/port"
)

// minioClient is the generic S3-compatible backend. It never hands out
// presigned URLs; downloads go through the plain object URL.
type minioClient struct {
	core    *minio.Core
	baseURL string
}

// NewMinioClient creates a new object store for any S3-compatible endpoint.
func NewMinioClient(cfg *config.StorageConfig) (port.ObjectStore, error) {
	core, err := minio.NewCore(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return &minioClient{core: core, baseURL: scheme + "://" + cfg.Endpoint}, nil
}

func (m *minioClient) InitiateMultipart(ctx context.Context, bucket, key string) (string, error) {
	uploadID, err := m.core.NewMultipartUpload(ctx, bucket, key, minio.PutObjectOptions{})
	if err != nil {
		return "", fmt.Errorf("minio initiate multipart: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return uploadID, nil
}

func (m *minioClient) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	part, err := m.core.PutObjectPart(ctx, bucket, key, uploadID, int(partNumber), body, size, minio.PutObjectPartOptions{})
	if err != nil {
		if code(err) == "NoSuchUpload" {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("minio upload part: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return part.ETag, nil
}

func (m *minioClient) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []port.CompletedPart) error {
	completed := make([]minio.CompletePart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, minio.CompletePart{PartNumber: int(p.PartNumber), ETag: p.ETag})
	}
	if _, err := m.core.CompleteMultipartUpload(ctx, bucket, key, uploadID, completed, minio.PutObjectOptions{}); err != nil {
		return fmt.Errorf("minio complete multipart: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return nil
}

func (m *minioClient) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	if err := m.core.AbortMultipartUpload(ctx, bucket, key, uploadID); err != nil {
		if code(err) == "NoSuchUpload" {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("minio abort multipart: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return nil
}

func (m *minioClient) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := m.core.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err != nil {
		if code(err) == "NoSuchKey" {
			return false, nil
		}
		return false, fmt.Errorf("minio stat object: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return true, nil
}

func (m *minioClient) DeleteObject(ctx context.Context, bucket, key string) error {
	err := m.core.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{})
	if err != nil && code(err) != "NoSuchKey" {
		return fmt.Errorf("minio delete: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return nil
}

func (m *minioClient) SupportsPresignedURLs() bool {
	return false
}

func (m *minioClient) Presign(context.Context, string, string, time.Duration) (string, error) {
	return "", domain.ErrPresignUnavailable
}

func (m *minioClient) ObjectURL(bucket, key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return m.baseURL + "/" + bucket + "/" + strings.Join(segments, "/")
}

func code(err error) string {
	return minio.ToErrorResponse(err).Code
}
