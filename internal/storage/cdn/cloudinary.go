// Package cdn stores images with Cloudinary. Objects are addressed by their
// public ID and always served from Cloudinary's delivery URLs.
package cdn

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"

	"gallery-service/internal/config"
	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
)

const (
	destroyResultOK       = "ok"
	destroyResultNotFound = "not found"

	errCreateClientFmt   = "failed to create cloudinary client: %w"
	errUploadFmt         = "cloudinary upload failed: %w"
	errUploadRejectedFmt = "cloudinary rejected upload: %s"
	errDestroyFmt        = "cloudinary destroy failed: %w"
	errDestroyResultFmt  = "cloudinary destroy returned %q"
	errBuildURLFmt       = "failed to build delivery URL: %w"
)

type Storage struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func New(cfg config.CDNConfig) (*Storage, error) {
	cld, err := cloudinary.NewFromParams(cfg.CloudName, cfg.APIKey, cfg.APISecret)
	if err != nil {
		return nil, fmt.Errorf(errCreateClientFmt, err)
	}
	cld.Config.URL.Secure = true

	return &Storage{cld: cld, folder: strings.Trim(cfg.Folder, "/")}, nil
}

func (s *Storage) Type() storage.Type {
	return storage.TypeCDN
}

// publicID drops the extension; Cloudinary appends the delivered format.
func publicID(name string) string {
	return strings.TrimSuffix(name, path.Ext(name))
}

func (s *Storage) Store(ctx context.Context, data []byte, name, folder string) (*storage.Object, error) {
	overwrite := false
	res, err := s.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		PublicID:  publicID(name),
		Folder:    storage.ObjectKey(s.folder, folder),
		Overwrite: &overwrite,
	})
	if err != nil {
		return nil, apperrors.StorageUploadFailure("cdn upload failed", fmt.Errorf(errUploadFmt, err))
	}
	if res.Error.Message != "" {
		return nil, apperrors.StorageUploadFailure("cdn upload failed", fmt.Errorf(errUploadRejectedFmt, res.Error.Message))
	}

	return &storage.Object{
		Key:  res.PublicID,
		URL:  res.SecureURL,
		Size: int64(res.Bytes),
		Type: storage.TypeCDN,
	}, nil
}

// Fetch is unsupported: clients are redirected to the delivery URL.
func (s *Storage) Fetch(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrFetchUnsupported
}

func (s *Storage) ResolveURL(_ context.Context, key string) (string, error) {
	asset, err := s.cld.Image(key)
	if err != nil {
		return "", fmt.Errorf(errBuildURLFmt, err)
	}
	url, err := asset.String()
	if err != nil {
		return "", fmt.Errorf(errBuildURLFmt, err)
	}
	return url, nil
}

func (s *Storage) Delete(ctx context.Context, key string) (bool, error) {
	invalidate := true
	res, err := s.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: key, Invalidate: &invalidate})
	if err != nil {
		return false, fmt.Errorf(errDestroyFmt, err)
	}

	switch res.Result {
	case destroyResultOK:
		return true, nil
	case destroyResultNotFound:
		return false, nil
	}
	return false, fmt.Errorf(errDestroyResultFmt, res.Result)
}
