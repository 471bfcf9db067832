// Package local stores objects on the filesystem under a single root.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"
)

const (
	dirPerm  = 0o755
	filePerm = 0o644

	errInvalidKeyFmt     = "invalid storage key %q"
	errCreateRootFmt     = "failed to create storage root: %w"
	errCreateDirFmt      = "failed to create directory: %w"
	errWriteObjectFmt    = "failed to write object: %w"
	errOpenObjectFmt     = "failed to open object: %w"
	errDeleteObjectFmt   = "failed to delete object: %w"
	errObjectNotFoundFmt = "object %s not found"
)

type Storage struct {
	root      string
	urlPrefix string
}

// New creates root if needed. urlPrefix is the public path under which root
// is served statically.
func New(root, urlPrefix string) (*Storage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf(errCreateRootFmt, err)
	}
	if err := os.MkdirAll(abs, dirPerm); err != nil {
		return nil, fmt.Errorf(errCreateRootFmt, err)
	}
	return &Storage{root: abs, urlPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *Storage) Type() storage.Type {
	return storage.TypeLocal
}

// Root is the absolute directory objects are written under.
func (s *Storage) Root() string {
	return s.root
}

// resolve maps a key to a path inside root, rejecting anything that would
// escape it.
func (s *Storage) resolve(key string) (string, error) {
	if key == "" || strings.Contains(key, "\\") || strings.HasPrefix(key, "/") {
		return "", fmt.Errorf(errInvalidKeyFmt, key)
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf(errInvalidKeyFmt, key)
		}
	}

	full := filepath.Join(s.root, filepath.FromSlash(key))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf(errInvalidKeyFmt, key)
	}
	return full, nil
}

func (s *Storage) Store(ctx context.Context, data []byte, name, folder string) (*storage.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := storage.ObjectKey(folder, name)
	full, err := s.resolve(key)
	if err != nil {
		return nil, apperrors.StorageUploadFailure("invalid object key", err)
	}

	dir := filepath.Dir(full)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return nil, apperrors.StorageUploadFailure("local store failed", fmt.Errorf(errCreateDirFmt, err))
	}

	tmp, err := os.CreateTemp(dir, ".upload-*")
	if err != nil {
		return nil, apperrors.StorageUploadFailure("local store failed", fmt.Errorf(errWriteObjectFmt, err))
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, apperrors.StorageUploadFailure("local store failed", fmt.Errorf(errWriteObjectFmt, err))
	}
	if err := tmp.Close(); err != nil {
		return nil, apperrors.StorageUploadFailure("local store failed", fmt.Errorf(errWriteObjectFmt, err))
	}
	if err := os.Chmod(tmpPath, filePerm); err != nil {
		return nil, apperrors.StorageUploadFailure("local store failed", fmt.Errorf(errWriteObjectFmt, err))
	}
	if err := os.Rename(tmpPath, full); err != nil {
		return nil, apperrors.StorageUploadFailure("local store failed", fmt.Errorf(errWriteObjectFmt, err))
	}

	return &storage.Object{
		Key:  key,
		URL:  s.urlFor(key),
		Size: int64(len(data)),
		Type: storage.TypeLocal,
	}, nil
}

func (s *Storage) Fetch(_ context.Context, key string) (io.ReadCloser, error) {
	full, err := s.resolve(key)
	if err != nil {
		return nil, apperrors.NotFound(err.Error())
	}

	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperrors.NotFound(fmt.Sprintf(errObjectNotFoundFmt, key))
		}
		return nil, fmt.Errorf(errOpenObjectFmt, err)
	}
	return f, nil
}

func (s *Storage) ResolveURL(_ context.Context, key string) (string, error) {
	if _, err := s.resolve(key); err != nil {
		return "", apperrors.NotFound(err.Error())
	}
	if s.urlPrefix == "" {
		return "", storage.ErrNoPublicURL
	}
	return s.urlFor(key), nil
}

func (s *Storage) urlFor(key string) string {
	if s.urlPrefix == "" {
		return ""
	}
	return s.urlPrefix + "/" + key
}

func (s *Storage) Delete(_ context.Context, key string) (bool, error) {
	full, err := s.resolve(key)
	if err != nil {
		return false, nil
	}

	if err := os.Remove(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf(errDeleteObjectFmt, err)
	}
	return true, nil
}
