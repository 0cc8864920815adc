// Package storagetest provides an in-memory BlobStore for tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "docverify/internal/common/errors"
)

type Object struct {
	Data        []byte
	ContentType string
}

// Store is a BlobStore backed by a map. Set FailPut or FailGet to simulate
// an outage.
type Store struct {
	mu      sync.Mutex
	objects map[string]Object
	FailPut error
	FailGet error
}

func New() *Store {
	return &Store{objects: make(map[string]Object)}
}

func path(bucket, key string) string { return bucket + "/" + key }

func (s *Store) Put(_ context.Context, bucket, key string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailPut != nil {
		return apperrors.NewStorageError("put object", s.FailPut)
	}
	s.objects[path(bucket, key)] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return nil
}

func (s *Store) Get(_ context.Context, bucket, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailGet != nil {
		return nil, apperrors.NewStorageError("get object", s.FailGet)
	}
	obj, ok := s.objects[path(bucket, key)]
	if !ok {
		return nil, apperrors.NewNotFoundError("object", path(bucket, key))
	}
	return append([]byte(nil), obj.Data...), nil
}

func (s *Store) Exists(_ context.Context, bucket, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[path(bucket, key)]
	return ok, nil
}

func (s *Store) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, path(bucket, key))
	return nil
}

func (s *Store) PresignGet(_ context.Context, bucket, key string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://blobs.test/%s?X-Amz-Expires=%d", path(bucket, key), int(expiry.Seconds())), nil
}

// Object returns a stored object for assertions.
func (s *Store) Object(bucket, key string) (Object, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[path(bucket, key)]
	return obj, ok
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
