package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"

	"github.com/cloudsquares/photoservice/internal/config"
	"github.com/cloudsquares/photoservice/internal/domain"
)

type s3Storage struct {
	client    *minio.Client
	bucket    string
	publicURL string
}

// NewS3Storage connects to the S3-compatible store. The client is created
// once at startup and shared by all requests.
func NewS3Storage(cfg *config.StorageConfig) (domain.ObjectStorage, error) {
	if cfg.S3Endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	if cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	if cfg.S3AccessKey == "" || cfg.S3SecretKey == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}

	creds := credentials.NewStaticV4(cfg.S3AccessKey, cfg.S3SecretKey, "")
	client, err := minio.New(hostFromEndpoint(cfg.S3Endpoint), &minio.Options{
		Creds:  creds,
		Secure: cfg.S3UseSSL,
		Region: cfg.S3Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize s3 client: %w", err)
	}

	ctx := context.Background()
	exists, err := client.BucketExists(ctx, cfg.S3Bucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check s3 bucket: %w", err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.S3Bucket, minio.MakeBucketOptions{Region: cfg.S3Region}); err != nil {
			zlog.Logger.Warn().Err(err).Str("bucket", cfg.S3Bucket).Msg("unable to create bucket, ensure it exists and credentials are correct")
		} else {
			zlog.Logger.Info().Str("bucket", cfg.S3Bucket).Msg("created s3 bucket")
		}
	}

	scheme := "http"
	if cfg.S3UseSSL {
		scheme = "https"
	}
	return &s3Storage{
		client:    client,
		bucket:    cfg.S3Bucket,
		publicURL: fmt.Sprintf("%s://%s/%s", scheme, client.EndpointURL().Host, cfg.S3Bucket),
	}, nil
}

// hostFromEndpoint accepts either "host:port" or a full URL, since both
// forms occur in deployment configs.
func hostFromEndpoint(endpoint string) string {
	if strings.Contains(endpoint, "://") {
		if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
			return u.Host
		}
	}
	return endpoint
}

// Put stores the object under key with the requested access tier and
// returns the public URL for public objects or the bare key for private
// ones. Private objects are later read via Presign.
func (s *s3Storage) Put(ctx context.Context, key string, r io.Reader, size int64, access string) (string, error) {
	if r == nil {
		return "", fmt.Errorf("%w: reader is nil", domain.ErrStorageFailed)
	}

	acl := "private"
	if access == domain.AccessPublic {
		acl = "public-read"
	}
	opts := minio.PutObjectOptions{
		ContentType:  "image/jpeg",
		UserMetadata: map[string]string{"x-amz-acl": acl},
	}

	if _, err := s.client.PutObject(ctx, s.bucket, key, r, size, opts); err != nil {
		zlog.Logger.Error().Err(err).Str("key", key).Msg("failed to put object to s3")
		return "", fmt.Errorf("%w: put %s: %v", domain.ErrStorageFailed, key, err)
	}

	zlog.Logger.Info().Str("key", key).Str("access", access).Msg("object saved to s3")

	if access == domain.AccessPublic {
		return s.publicURL + "/" + key, nil
	}
	return key, nil
}

// Delete removes the object. The bool distinguishes "deleted" from "not
// found"; a missing object is not an error but is not a success either.
func (s *s3Storage) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, nil
	}

	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if resp := minio.ToErrorResponse(err); resp.Code == "NoSuchKey" {
			zlog.Logger.Warn().Str("key", key).Msg("object not found for deletion")
			return false, nil
		}
		zlog.Logger.Error().Err(err).Str("key", key).Msg("failed to stat object before deletion")
		return false, fmt.Errorf("%w: stat %s: %v", domain.ErrStorageFailed, key, err)
	}

	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		zlog.Logger.Error().Err(err).Str("key", key).Msg("failed to delete object from s3")
		return false, fmt.Errorf("%w: remove %s: %v", domain.ErrStorageFailed, key, err)
	}

	zlog.Logger.Info().Str("key", key).Msg("object deleted from s3")
	return true, nil
}

// Presign generates a time-limited GET URL for a private object.
func (s *s3Storage) Presign(ctx context.Context, key string, ttl time.Duration) (string, error) {
	if key == "" {
		return "", domain.ErrMissingKey
	}

	u, err := s.client.PresignedGetObject(ctx, s.bucket, key, ttl, url.Values{})
	if err != nil {
		zlog.Logger.Error().Err(err).Str("key", key).Msg("failed to presign object")
		return "", fmt.Errorf("%w: presign %s: %v", domain.ErrStorageFailed, key, err)
	}
	return u.String(), nil
}
