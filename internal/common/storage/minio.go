// internal/common/storage/minio.go
package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"docverify/internal/common/config"
	apperrors "docverify/internal/common/errors"
	"docverify/internal/common/logger"
)

const DefaultPresignExpiry = 15 * time.Minute

// MinIOAPI is the subset of the minio client this package calls. GetObject
// returns a plain reader so tests can fake it.
type MinIOAPI interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
	StatObject(ctx context.Context, bucketName, objectName string, opts minio.StatObjectOptions) (minio.ObjectInfo, error)
	RemoveObject(ctx context.Context, bucketName, objectName string, opts minio.RemoveObjectOptions) error
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

type minioClient struct {
	*minio.Client
}

func (c minioClient) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return c.Client.GetObject(ctx, bucketName, objectName, opts)
}

type MinIOStore struct {
	client MinIOAPI
	region string
	logger logger.Logger
}

// NewMinIOStore connects to the configured endpoint and makes sure every
// bucket exists.
func NewMinIOStore(ctx context.Context, cfg config.StorageConfig, log logger.Logger) (*MinIOStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	s := NewMinIOStoreWithClient(minioClient{client}, cfg.Region, log)
	if err := s.EnsureBuckets(ctx, cfg.DocumentsBucket, cfg.RegistryBucket, cfg.DownloadsBucket); err != nil {
		return nil, err
	}
	log.Info("MinIO connected", map[string]interface{}{"endpoint": cfg.Endpoint, "ssl": cfg.UseSSL})
	return s, nil
}

func NewMinIOStoreWithClient(client MinIOAPI, region string, log logger.Logger) *MinIOStore {
	return &MinIOStore{client: client, region: region, logger: log}
}

func (s *MinIOStore) EnsureBuckets(ctx context.Context, buckets ...string) error {
	for _, bucket := range buckets {
		if bucket == "" {
			continue
		}
		exists, err := s.client.BucketExists(ctx, bucket)
		if err != nil {
			return apperrors.NewStorageError("bucket exists", err)
		}
		if exists {
			continue
		}
		if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return apperrors.NewStorageError(fmt.Sprintf("make bucket %s", bucket), err)
		}
		s.logger.Info("Created bucket", map[string]interface{}{"bucket": bucket})
	}
	return nil
}

func (s *MinIOStore) Put(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return apperrors.NewStorageError("put object", err)
	}
	return nil
}

func (s *MinIOStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.mapError("get object", bucket, key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, s.mapError("read object", bucket, key, err)
	}
	return data, nil
}

func (s *MinIOStore) Exists(ctx context.Context, bucket, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, bucket, key, minio.StatObjectOptions{})
	if err == nil {
		return true, nil
	}
	if isNoSuchKey(err) {
		return false, nil
	}
	return false, apperrors.NewStorageError("stat object", err)
}

func (s *MinIOStore) Delete(ctx context.Context, bucket, key string) error {
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.NewStorageError("remove object", err)
	}
	return nil
}

func (s *MinIOStore) PresignGet(ctx context.Context, bucket, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = DefaultPresignExpiry
	}
	u, err := s.client.PresignedGetObject(ctx, bucket, key, expiry, nil)
	if err != nil {
		return "", apperrors.NewStorageError("presign get", err)
	}
	return u.String(), nil
}

func (s *MinIOStore) mapError(op, bucket, key string, err error) error {
	if isNoSuchKey(err) {
		return apperrors.NewNotFoundError("object", bucket+"/"+key)
	}
	return apperrors.NewStorageError(op, err)
}

func isNoSuchKey(err error) bool {
	code := minio.ToErrorResponse(err).Code
	return code == "NoSuchKey" || code == "NoSuchBucket"
}
