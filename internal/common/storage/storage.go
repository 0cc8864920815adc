// internal/common/storage/storage.go
package storage

import (
	"context"
	"time"
)

// BlobStore holds retained uploads, registry source files and generated
// downloads. Get returns an error matching errors.ErrNotFound for a missing
// object.
type BlobStore interface {
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	Delete(ctx context.Context, bucket, key string) error
	PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error)
}
