package upload

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io/fs"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gallery-service/internal/imaging"
	"gallery-service/internal/repository/memory"
	"gallery-service/internal/storage"
	"gallery-service/internal/storage/local"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func countObjects(t *testing.T, root string) int {
	t.Helper()
	n := 0
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			n++
		}
		return nil
	})
	require.NoError(t, err)
	return n
}

type fixture struct {
	root    string
	backend *local.Storage
	store   *memory.Store
}

func newFixture(t *testing.T) *fixture {
	root := t.TempDir()
	backend, err := local.New(root, "/uploads")
	require.NoError(t, err)
	return &fixture{root: root, backend: backend, store: memory.NewStore()}
}

func newCoordinator(t *testing.T, backend storage.Backend, f *fixture, cfg Config) *Coordinator {
	p, err := imaging.NewPipeline()
	require.NoError(t, err)
	if cfg.Limits == (imaging.Limits{}) {
		cfg.Limits = imaging.DefaultLimits()
	}
	return NewCoordinator(p, backend, f.store.Photos(), cfg)
}

func TestUploadBatch_PartialFailureLeavesNoOrphans(t *testing.T) {
	f := newFixture(t)
	c := newCoordinator(t, f.backend, f, Config{})

	files := []File{
		{Name: "one.jpg", Data: testJPEG(t, 400, 300)},
		{Name: "two.jpg", Data: []byte("not an image")},
		{Name: "three.jpg", Data: testJPEG(t, 300, 400)},
	}

	res := c.UploadBatch(context.Background(), uuid.New(), uuid.New(), files)

	require.Len(t, res.Uploaded, 2)
	require.Len(t, res.Errors, 1)
	assert.False(t, res.AllFailed())
	assert.Equal(t, "two.jpg", res.Errors[0].FileName)
	assert.Equal(t, "INVALID_IMAGE", res.Errors[0].Code)
	assert.Equal(t, "one.jpg", res.Uploaded[0].OriginalName)
	assert.Equal(t, "three.jpg", res.Uploaded[1].OriginalName)

	assert.Equal(t, 6, countObjects(t, f.root), "original, thumbnail and preview for each success")
	assert.Equal(t, 2, f.store.Photos().Len())

	for _, p := range res.Uploaded {
		assert.True(t, p.Complete())
		assert.Equal(t, "local", p.StorageType)
		assert.Equal(t, 300, p.Thumbnail.Width)
		assert.Equal(t, 300, p.Thumbnail.Height)
	}
}

func TestUploadBatch_UnderSizedFileRejected(t *testing.T) {
	f := newFixture(t)
	c := newCoordinator(t, f.backend, f, Config{})

	res := c.UploadBatch(context.Background(), uuid.New(), uuid.New(), []File{
		{Name: "tiny.jpg", Data: testJPEG(t, 50, 50)},
	})

	assert.True(t, res.AllFailed())
	require.Len(t, res.Errors, 1)
	assert.True(t, errors.Is(res.Errors[0].Err, apperrors.ErrInvalidImage))
	assert.Equal(t, 0, countObjects(t, f.root))
}

type failingRole struct {
	storage.Backend
	role string
}

func (b *failingRole) Store(ctx context.Context, data []byte, name, folder string) (*storage.Object, error) {
	if strings.Contains(name, "_"+b.role) {
		return nil, apperrors.StorageUploadFailure("upload failed", errors.New("connection reset"))
	}
	return b.Backend.Store(ctx, data, name, folder)
}

func TestUploadBatch_StoreFailureCleansUpEarlierVariants(t *testing.T) {
	f := newFixture(t)
	c := newCoordinator(t, &failingRole{Backend: f.backend, role: "preview"}, f, Config{})

	res := c.UploadBatch(context.Background(), uuid.New(), uuid.New(), []File{
		{Name: "a.jpg", Data: testJPEG(t, 400, 300)},
	})

	assert.True(t, res.AllFailed())
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "STORAGE_UPLOAD_FAILURE", res.Errors[0].Code)
	assert.Equal(t, 0, countObjects(t, f.root), "original and thumbnail are removed")
	assert.Equal(t, 0, f.store.Photos().Len())
}

type panickyProcessor struct {
	Processor
	name string
}

func (p *panickyProcessor) Process(data []byte, name string, opts imaging.Options) (*imaging.Result, error) {
	if name == p.name {
		panic("decoder blew up")
	}
	return p.Processor.Process(data, name, opts)
}

func TestUploadBatch_PanicIsolatedToFile(t *testing.T) {
	f := newFixture(t)
	pipeline, err := imaging.NewPipeline()
	require.NoError(t, err)
	c := NewCoordinator(&panickyProcessor{Processor: pipeline, name: "bad.jpg"}, f.backend, f.store.Photos(),
		Config{Limits: imaging.DefaultLimits()})

	var res *BatchResult
	require.NotPanics(t, func() {
		res = c.UploadBatch(context.Background(), uuid.New(), uuid.New(), []File{
			{Name: "good.jpg", Data: testJPEG(t, 400, 300)},
			{Name: "bad.jpg", Data: testJPEG(t, 400, 300)},
		})
	})

	require.Len(t, res.Uploaded, 1)
	require.Len(t, res.Errors, 1)
	assert.Equal(t, "good.jpg", res.Uploaded[0].OriginalName)
	assert.Equal(t, "bad.jpg", res.Errors[0].FileName)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", res.Errors[0].Code)
	assert.NotContains(t, res.Errors[0].Message, "decoder blew up")
}

type panickyStore struct {
	storage.Backend
	role string
}

func (b *panickyStore) Store(ctx context.Context, data []byte, name, folder string) (*storage.Object, error) {
	if strings.Contains(name, "_"+b.role) {
		panic("driver bug")
	}
	return b.Backend.Store(ctx, data, name, folder)
}

func TestUploadBatch_PanicInStoreCleansUp(t *testing.T) {
	f := newFixture(t)
	c := newCoordinator(t, &panickyStore{Backend: f.backend, role: "preview"}, f, Config{})

	res := c.UploadBatch(context.Background(), uuid.New(), uuid.New(), []File{
		{Name: "a.jpg", Data: testJPEG(t, 400, 300)},
	})

	assert.True(t, res.AllFailed())
	assert.Equal(t, 0, countObjects(t, f.root), "variants stored before the panic are removed")
	assert.Equal(t, 0, f.store.Photos().Len())
}

type blockingBackend struct {
	storage.Backend
}

func (b *blockingBackend) Store(ctx context.Context, _ []byte, _, _ string) (*storage.Object, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestUploadBatch_DeadlineReportsProcessingTimeout(t *testing.T) {
	f := newFixture(t)
	c := newCoordinator(t, &blockingBackend{Backend: f.backend}, f, Config{
		Workers: 1,
		Timeout: 50 * time.Millisecond,
	})

	files := []File{
		{Name: "a.jpg", Data: testJPEG(t, 200, 150)},
		{Name: "b.jpg", Data: testJPEG(t, 200, 150)},
		{Name: "c.jpg", Data: testJPEG(t, 200, 150)},
	}
	res := c.UploadBatch(context.Background(), uuid.New(), uuid.New(), files)

	assert.True(t, res.AllFailed())
	require.Len(t, res.Errors, 3)
	for _, fe := range res.Errors {
		assert.Equal(t, "PROCESSING_TIMEOUT", fe.Code, fe.FileName)
		assert.True(t, errors.Is(fe.Err, apperrors.ErrProcessingTimeout))
	}
	assert.Equal(t, 0, countObjects(t, f.root))
}

func TestUploadBatch_WatermarkStored(t *testing.T) {
	f := newFixture(t)
	c := newCoordinator(t, f.backend, f, Config{
		Options: imaging.Options{Watermark: &imaging.WatermarkOptions{Text: "proof", Anchor: imaging.AnchorCenter}},
	})

	res := c.UploadBatch(context.Background(), uuid.New(), uuid.New(), []File{
		{Name: "a.jpg", Data: testJPEG(t, 600, 400)},
	})

	require.Len(t, res.Uploaded, 1)
	require.NotNil(t, res.Uploaded[0].Watermarked)
	assert.Equal(t, 4, countObjects(t, f.root))
}
