// Package storage defines the backend contract shared by the CDN, GridFS,
// object-store and local filesystem implementations, plus the selection
// policy and read-side registry.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	apperrors "gallery-service/pkg/errors"
)

type Type string

const (
	TypeCDN    Type = "cloudinary"
	TypeGridFS Type = "gridfs"
	TypeS3     Type = "s3"
	TypeGCS    Type = "gcs"
	TypeLocal  Type = "local"
)

func (t Type) String() string {
	return string(t)
}

var (
	// ErrNoPublicURL is returned by ResolveURL when the backend can only
	// serve bytes; callers stream via Fetch instead.
	ErrNoPublicURL = errors.New("backend has no public URL for object")
	// ErrFetchUnsupported is returned by Fetch when the backend only hands
	// out URLs.
	ErrFetchUnsupported = errors.New("backend does not serve object bytes")
)

// Object describes one stored blob.
type Object struct {
	Key  string
	URL  string
	Size int64
	Type Type
}

// Backend stores and retrieves opaque blobs. Implementations are safe for
// concurrent use and perform blocking network or disk I/O.
type Backend interface {
	Type() Type
	Store(ctx context.Context, data []byte, name, folder string) (*Object, error)
	Fetch(ctx context.Context, key string) (io.ReadCloser, error)
	ResolveURL(ctx context.Context, key string) (string, error)
	// Delete reports whether an object was removed; a missing key is not an
	// error.
	Delete(ctx context.Context, key string) (bool, error)
}

// ObjectKey joins folder and name into a slash-separated key.
func ObjectKey(folder, name string) string {
	folder = strings.Trim(folder, "/")
	if folder == "" {
		return name
	}
	return path.Join(folder, name)
}

// IsNotFound reports whether err means the object does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, apperrors.ErrNotFound)
}
