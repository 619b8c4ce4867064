package port

import (
	"context"
	"io"
	"time"
)

// CompletedPart is one part handed to CompleteMultipart.
type CompletedPart struct {
	PartNumber int32
	ETag       string
}

// BlobStorage abstracts the blob store operations used by multipart uploads.
type BlobStorage interface {
	InitiateMultipart(ctx context.Context, bucket, key string) (uploadID string, err error)
	UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64) (etag string, err error)
	// CompleteMultipart combines parts, which must be ordered by part number.
	CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []CompletedPart) error
	// AbortMultipart returns domain.ErrSessionNotFound when the backend no
	// longer knows the upload.
	AbortMultipart(ctx context.Context, bucket, key, uploadID string) error
	ObjectExists(ctx context.Context, bucket, key string) (bool, error)
	// DeleteObject treats a missing object as success.
	DeleteObject(ctx context.Context, bucket, key string) error
}

// URLSigner builds download URLs. Backends that cannot presign return false
// from SupportsPresignedURLs and domain.ErrPresignUnavailable from Presign.
type URLSigner interface {
	SupportsPresignedURLs() bool
	Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	ObjectURL(bucket, key string) string
}

// ObjectStore is a blob backend together with its URL capability.
type ObjectStore interface {
	BlobStorage
	URLSigner
}

// BucketCORSUpdater replaces the CORS rules of a bucket.
type BucketCORSUpdater interface {
	SetBucketCORS(ctx context.Context, bucket string, origins []string) error
}
