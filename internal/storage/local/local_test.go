package local

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"gallery-service/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ storage.Backend = (*Storage)(nil)

func TestStorage_StoreFetchDelete(t *testing.T) {
	s, err := New(t.TempDir(), "/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	obj, err := s.Store(ctx, []byte("jpeg-bytes"), "thumb.jpg", "galleries/g1")
	require.NoError(t, err)
	assert.Equal(t, "galleries/g1/thumb.jpg", obj.Key)
	assert.Equal(t, "/uploads/galleries/g1/thumb.jpg", obj.URL)
	assert.Equal(t, int64(10), obj.Size)
	assert.Equal(t, storage.TypeLocal, obj.Type)

	rc, err := s.Fetch(ctx, obj.Key)
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "jpeg-bytes", string(body))

	url, err := s.ResolveURL(ctx, obj.Key)
	require.NoError(t, err)
	assert.Equal(t, obj.URL, url)

	deleted, err := s.Delete(ctx, obj.Key)
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Delete(ctx, obj.Key)
	require.NoError(t, err)
	assert.False(t, deleted)

	_, err = s.Fetch(ctx, obj.Key)
	assert.True(t, storage.IsNotFound(err))
}

func TestStorage_RejectsTraversal(t *testing.T) {
	root := t.TempDir()
	s, err := New(filepath.Join(root, "store"), "/uploads")
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "secret.txt"), []byte("x"), 0o600))
	ctx := context.Background()

	for _, key := range []string{"../secret.txt", "/etc/passwd", "a/../../secret.txt", `a\b`, ""} {
		_, err := s.Fetch(ctx, key)
		assert.Error(t, err, key)
	}

	_, err = s.Store(ctx, []byte("x"), "evil.jpg", "../outside")
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(root, "outside", "evil.jpg"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestStorage_NoURLPrefix(t *testing.T) {
	s, err := New(t.TempDir(), "")
	require.NoError(t, err)

	obj, err := s.Store(context.Background(), []byte("x"), "a.jpg", "")
	require.NoError(t, err)

	_, err = s.ResolveURL(context.Background(), obj.Key)
	assert.ErrorIs(t, err, storage.ErrNoPublicURL)
}
