package gridfs

import (
	"context"
	"errors"
	"testing"

	"gallery-service/internal/config"
	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"

	"github.com/stretchr/testify/assert"
)

var _ storage.Backend = (*Storage)(nil)

func TestHandle_NotConfigured(t *testing.T) {
	h := NewHandle(config.MongoConfig{})

	assert.False(t, h.Configured())
	assert.False(t, h.Ready())

	_, err := h.Bucket(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestStorage_UnreadyHandleIsConfigurationError(t *testing.T) {
	s := New(NewHandle(config.MongoConfig{}))

	_, err := s.Store(context.Background(), []byte("x"), "a.jpg", "g")
	assert.True(t, errors.Is(err, apperrors.ErrConfiguration))
}

func TestStorage_InvalidKeys(t *testing.T) {
	s := New(NewHandle(config.MongoConfig{}))

	_, err := s.Fetch(context.Background(), "not-hex")
	assert.True(t, storage.IsNotFound(err))

	deleted, err := s.Delete(context.Background(), "not-hex")
	assert.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.ResolveURL(context.Background(), "507f1f77bcf86cd799439011")
	assert.ErrorIs(t, err, storage.ErrNoPublicURL)
}
