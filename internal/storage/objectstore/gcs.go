package objectstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gallery-service/internal/config"
	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"

	gcs "cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

const (
	errFailedCreateGCSClientFmt = "failed to create GCS client: %w"
	errFailedWriteObjectFmt     = "failed to write object: %w"
	errFailedCloseWriterFmt     = "failed to finalize object: %w"
	errFailedOpenObjectFmt      = "failed to open object: %w"
	errFailedSignURLFmt         = "failed to sign URL: %w"
	errFailedRemoveObjectFmt    = "failed to remove object: %w"
)

type GCSDriver struct {
	client *gcs.Client
	bucket string
}

func NewGCSDriver(ctx context.Context, cfg config.GCSConfig) (*GCSDriver, error) {
	client, err := gcs.NewClient(ctx, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf(errFailedCreateGCSClientFmt, err)
	}
	return &GCSDriver{client: client, bucket: cfg.Bucket}, nil
}

func (d *GCSDriver) Type() storage.Type {
	return storage.TypeGCS
}

// Put never overwrites; object names already carry a unique photo ID.
func (d *GCSDriver) Put(ctx context.Context, key string, data []byte, contentType string) error {
	obj := d.client.Bucket(d.bucket).Object(key)
	w := obj.If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := w.Write(data); err != nil {
		_ = w.Close()
		return fmt.Errorf(errFailedWriteObjectFmt, err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf(errFailedCloseWriterFmt, err)
	}
	return nil
}

func (d *GCSDriver) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	r, err := d.client.Bucket(d.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, apperrors.NotFound(fmt.Sprintf(errObjectNotFoundFmt, key))
		}
		return nil, fmt.Errorf(errFailedOpenObjectFmt, err)
	}
	return r, nil
}

func (d *GCSDriver) Sign(_ context.Context, key string, expiry time.Duration) (string, error) {
	url, err := d.client.Bucket(d.bucket).SignedURL(key, &gcs.SignedURLOptions{
		Method:  http.MethodGet,
		Expires: time.Now().Add(expiry),
		Scheme:  gcs.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf(errFailedSignURLFmt, err)
	}
	return url, nil
}

func (d *GCSDriver) Remove(ctx context.Context, key string) (bool, error) {
	err := d.client.Bucket(d.bucket).Object(key).Delete(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return false, nil
		}
		return false, fmt.Errorf(errFailedRemoveObjectFmt, err)
	}
	return true, nil
}

func (d *GCSDriver) Close() error {
	return d.client.Close()
}
