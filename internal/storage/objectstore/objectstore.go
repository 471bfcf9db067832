// Package objectstore stores objects in a cloud bucket (S3 or GCS) and hands
// out time-limited signed URLs for them.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"time"

	"gallery-service/internal/infra/cache"
	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"
)

const (
	defaultContentType = "application/octet-stream"
	defaultURLExpiry   = 15 * time.Minute
)

// Driver is the provider-specific part of a bucket. Get must return an
// apperrors.NotFound error for a missing key; Remove reports false for one.
type Driver interface {
	Type() storage.Type
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Sign(ctx context.Context, key string, expiry time.Duration) (string, error)
	Remove(ctx context.Context, key string) (bool, error)
}

type Storage struct {
	driver Driver
	urls   *cache.URLCache
	expiry time.Duration
	now    func() time.Time
}

func New(driver Driver, urls *cache.URLCache, expiry time.Duration) *Storage {
	if urls == nil {
		urls = cache.NewURLCache()
	}
	if expiry <= 0 {
		expiry = defaultURLExpiry
	}
	return &Storage{driver: driver, urls: urls, expiry: expiry, now: time.Now}
}

func (s *Storage) Type() storage.Type {
	return s.driver.Type()
}

func contentType(name string) string {
	if ct := mime.TypeByExtension(path.Ext(name)); ct != "" {
		return ct
	}
	return defaultContentType
}

func (s *Storage) Store(ctx context.Context, data []byte, name, folder string) (*storage.Object, error) {
	key := storage.ObjectKey(folder, name)
	if err := s.driver.Put(ctx, key, data, contentType(name)); err != nil {
		return nil, apperrors.StorageUploadFailure(fmt.Sprintf("%s upload failed", s.driver.Type()), err)
	}

	obj := &storage.Object{Key: key, Size: int64(len(data)), Type: s.driver.Type()}
	if url, err := s.ResolveURL(ctx, key); err == nil {
		obj.URL = url
	}
	return obj, nil
}

func (s *Storage) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	return s.driver.Get(ctx, key)
}

// ResolveURL returns a cached signed URL while it has time left, else signs
// a new one.
func (s *Storage) ResolveURL(ctx context.Context, key string) (string, error) {
	if url, ok := s.urls.Get(key); ok {
		return url, nil
	}

	expires := s.now().Add(s.expiry)
	url, err := s.driver.Sign(ctx, key, s.expiry)
	if err != nil {
		return "", err
	}
	s.urls.Set(key, url, expires)
	return url, nil
}

func (s *Storage) Delete(ctx context.Context, key string) (bool, error) {
	s.urls.Delete(key)
	return s.driver.Remove(ctx, key)
}
