// Package gridfs stores objects in MongoDB GridFS. Keys are the hex form of
// the GridFS file ID; objects have no public URL and are streamed.
package gridfs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	errUploadFmt     = "gridfs upload failed: %w"
	errOpenFmt       = "gridfs open failed: %w"
	errDeleteFmt     = "gridfs delete failed: %w"
	errInvalidKeyFmt = "invalid gridfs key %q"
	errNotFoundFmt   = "gridfs object %s not found"
)

type Storage struct {
	handle *Handle
}

func New(handle *Handle) *Storage {
	return &Storage{handle: handle}
}

func (s *Storage) Type() storage.Type {
	return storage.TypeGridFS
}

func (s *Storage) Store(ctx context.Context, data []byte, name, folder string) (*storage.Object, error) {
	bucket, err := s.handle.Bucket(ctx)
	if err != nil {
		return nil, err
	}

	opts := options.GridFSUpload().SetMetadata(bson.D{
		{Key: "folder", Value: folder},
		{Key: "contentType", Value: "image/jpeg"},
	})
	id, err := bucket.UploadFromStream(ctx, storage.ObjectKey(folder, name), bytes.NewReader(data), opts)
	if err != nil {
		return nil, apperrors.StorageUploadFailure("gridfs upload failed", fmt.Errorf(errUploadFmt, err))
	}

	return &storage.Object{
		Key:  id.Hex(),
		Size: int64(len(data)),
		Type: storage.TypeGridFS,
	}, nil
}

func parseKey(key string) (bson.ObjectID, error) {
	id, err := bson.ObjectIDFromHex(key)
	if err != nil {
		return bson.ObjectID{}, apperrors.NotFound(fmt.Sprintf(errInvalidKeyFmt, key))
	}
	return id, nil
}

func (s *Storage) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	id, err := parseKey(key)
	if err != nil {
		return nil, err
	}
	bucket, err := s.handle.Bucket(ctx)
	if err != nil {
		return nil, err
	}

	stream, err := bucket.OpenDownloadStream(ctx, id)
	if err != nil {
		if errors.Is(err, mongo.ErrFileNotFound) {
			return nil, apperrors.NotFound(fmt.Sprintf(errNotFoundFmt, key))
		}
		return nil, fmt.Errorf(errOpenFmt, err)
	}
	return stream, nil
}

func (s *Storage) ResolveURL(context.Context, string) (string, error) {
	return "", storage.ErrNoPublicURL
}

func (s *Storage) Delete(ctx context.Context, key string) (bool, error) {
	id, err := parseKey(key)
	if err != nil {
		return false, nil
	}
	bucket, err := s.handle.Bucket(ctx)
	if err != nil {
		return false, err
	}

	if err := bucket.Delete(ctx, id); err != nil {
		if errors.Is(err, mongo.ErrFileNotFound) {
			return false, nil
		}
		return false, fmt.Errorf(errDeleteFmt, err)
	}
	return true, nil
}
