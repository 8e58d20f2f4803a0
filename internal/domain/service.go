package domain

import (
	"context"
	"io"
	"time"
)

// PhotoService is the batch pipeline surface exposed to the HTTP layer.
type PhotoService interface {
	UploadBatch(ctx context.Context, auth *AuthContext, batch *UploadBatch) (*BatchResult, error)
	DeletePhotos(ctx context.Context, auth *AuthContext, req *DeleteRequest) (*DeleteResult, error)
	PresignURL(ctx context.Context, key string) (string, error)
	PresignURLs(ctx context.Context, keys []string) []SignedLink
}

// ImageTransformer normalizes one raw image into storage-ready bytes.
type ImageTransformer interface {
	Transform(r io.Reader) ([]byte, error)
}

// ObjectStorage persists photos by key. Put returns a public URL for the
// public tier and the bare key for the private tier. Delete distinguishes
// "deleted" from "not found"; both are non-error results.
type ObjectStorage interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, access string) (string, error)
	Delete(ctx context.Context, key string) (bool, error)
	Presign(ctx context.Context, key string, ttl time.Duration) (string, error)
}

// TaskDispatcher delivers completed work to the downstream consumer.
// Both calls are single attempts; the pipeline never retries them.
type TaskDispatcher interface {
	DispatchCreated(ctx context.Context, tasks []PhotoTask) error
	DispatchDeleted(ctx context.Context, deletion PhotoDeletion) error
	Close() error
}
