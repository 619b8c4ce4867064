package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	"cloudsync/internal/config"
	"cloudsync/internal/domain"
	"cloudsync/internal/port"
)

type s3Client struct {
	client        *s3.Client
	presigner     *s3.PresignClient
	region        string
	endpoint      string
	useSecureURLs bool
}

// Client is the S3 backend: a port.ObjectStore that can also manage bucket CORS.
type Client interface {
	port.ObjectStore
	port.BucketCORSUpdater
}

// NewS3Client creates a new S3-backed object store.
func NewS3Client(ctx context.Context, cfg *config.StorageConfig) (Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	opts = append(opts, awsconfig.WithRegion(cfg.Region))

	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.NewFromConfig(awsCfg, s3Opts...)
	return &s3Client{
		client:        client,
		presigner:     s3.NewPresignClient(client),
		region:        cfg.Region,
		endpoint:      strings.TrimSuffix(cfg.Endpoint, "/"),
		useSecureURLs: cfg.UseSecureURLs,
	}, nil
}

func (c *s3Client) InitiateMultipart(ctx context.Context, bucket, key string) (string, error) {
	result, err := c.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return "", fmt.Errorf("s3 initiate multipart: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return aws.ToString(result.UploadId), nil
}

func (c *s3Client) UploadPart(ctx context.Context, bucket, key, uploadID string, partNumber int32, body io.Reader, size int64) (string, error) {
	result, err := c.client.UploadPart(ctx, &s3.UploadPartInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(key),
		UploadId:      aws.String(uploadID),
		PartNumber:    aws.Int32(partNumber),
		Body:          body,
		ContentLength: aws.Int64(size),
	})
	if err != nil {
		if isCode(err, "NoSuchUpload") {
			return "", domain.ErrSessionNotFound
		}
		return "", fmt.Errorf("s3 upload part: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return aws.ToString(result.ETag), nil
}

func (c *s3Client) CompleteMultipart(ctx context.Context, bucket, key, uploadID string, parts []port.CompletedPart) error {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, p := range parts {
		completed = append(completed, types.CompletedPart{
			PartNumber: aws.Int32(p.PartNumber),
			ETag:       aws.String(p.ETag),
		})
	}

	_, err := c.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return fmt.Errorf("s3 complete multipart: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return nil
}

func (c *s3Client) AbortMultipart(ctx context.Context, bucket, key, uploadID string) error {
	_, err := c.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		if isCode(err, "NoSuchUpload") {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("s3 abort multipart: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return nil
}

func (c *s3Client) ObjectExists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := c.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isCode(err, "NotFound", "NoSuchKey") {
			return false, nil
		}
		return false, fmt.Errorf("s3 head object: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return true, nil
}

func (c *s3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil && !isCode(err, "NoSuchKey", "NotFound") {
		return fmt.Errorf("s3 delete: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return nil
}

func (c *s3Client) SupportsPresignedURLs() bool {
	return c.useSecureURLs
}

func (c *s3Client) Presign(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
	if !c.useSecureURLs {
		return "", domain.ErrPresignUnavailable
	}
	result, err := c.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign: %w: %w", domain.ErrPresignUnavailable, err)
	}
	return result.URL, nil
}

func (c *s3Client) ObjectURL(bucket, key string) string {
	if c.endpoint != "" {
		return c.endpoint + "/" + bucket + "/" + escapeKey(key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", bucket, c.region, escapeKey(key))
}

// SetBucketCORS allows browsers on origins to upload parts directly.
func (c *s3Client) SetBucketCORS(ctx context.Context, bucket string, origins []string) error {
	_, err := c.client.PutBucketCors(ctx, &s3.PutBucketCorsInput{
		Bucket: aws.String(bucket),
		CORSConfiguration: &types.CORSConfiguration{
			CORSRules: []types.CORSRule{{
				AllowedOrigins: origins,
				AllowedMethods: []string{"GET", "PUT", "POST", "DELETE", "HEAD"},
				AllowedHeaders: []string{"*"},
				ExposeHeaders:  []string{"ETag"},
				MaxAgeSeconds:  aws.Int32(3000),
			}},
		},
	})
	if err != nil {
		return fmt.Errorf("s3 put bucket cors: %w: %w", domain.ErrBackendRequestFailed, err)
	}
	return nil
}

func isCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, code := range codes {
		if apiErr.ErrorCode() == code {
			return true
		}
	}
	return false
}

func escapeKey(key string) string {
	segments := strings.Split(key, "/")
	for i, s := range segments {
		segments[i] = url.PathEscape(s)
	}
	return strings.Join(segments, "/")
}
