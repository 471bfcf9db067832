// Package upload runs batch photo uploads: each file is validated, processed
// into renditions, stored and recorded, with everything already stored for a
// file removed again if a later step fails.
package upload

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gallery-service/internal/domain/photo"
	"gallery-service/internal/imaging"
	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultWorkers      = 4
	DefaultBatchTimeout = 2 * time.Minute
	cleanupTimeout      = 30 * time.Second

	codeUploadFailed = "UPLOAD_FAILED"
	codeTimeout      = "PROCESSING_TIMEOUT"

	errTimeoutMsg  = "batch deadline passed before this file finished"
	errStoreFmt    = "failed to store %s: %w"
	errPersistFmt  = "failed to save photo record: %w"
	errPanicMsg    = "processing failed unexpectedly"
	variantNameFmt = "%s_%s.jpg"
)

type Processor interface {
	Process(data []byte, originalName string, opts imaging.Options) (*imaging.Result, error)
}

type PhotoCreator interface {
	Create(ctx context.Context, input photo.CreatePhotoInput) (*photo.Photo, error)
}

type File struct {
	Name string
	Data []byte
}

type FileError struct {
	FileName string `json:"fileName"`
	Code     string `json:"code"`
	Message  string `json:"error"`
	Err      error  `json:"-"`
}

type BatchResult struct {
	Uploaded []*photo.Photo `json:"uploaded"`
	Errors   []FileError    `json:"errors"`
}

// AllFailed is true when no file in the batch succeeded.
func (r *BatchResult) AllFailed() bool {
	return len(r.Uploaded) == 0
}

type Config struct {
	Limits  imaging.Limits
	Options imaging.Options
	Workers int
	Timeout time.Duration
}

type Coordinator struct {
	pipeline Processor
	backend  storage.Backend
	photos   PhotoCreator
	cfg      Config
	newID    func() uuid.UUID
	logger   *log.Logger
}

func NewCoordinator(pipeline Processor, backend storage.Backend, photos PhotoCreator, cfg Config) *Coordinator {
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultWorkers
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultBatchTimeout
	}
	return &Coordinator{
		pipeline: pipeline,
		backend:  backend,
		photos:   photos,
		cfg:      cfg,
		newID:    uuid.New,
		logger:   log.New("upload"),
	}
}

type outcome struct {
	photo *photo.Photo
	err   error
}

// UploadBatch processes files concurrently under one deadline. Results keep
// the order of files; a failure never affects sibling files.
func (c *Coordinator) UploadBatch(ctx context.Context, galleryID, ownerID uuid.UUID, files []File) *BatchResult {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	outcomes := make([]outcome, len(files))
	sem := semaphore.NewWeighted(int64(c.cfg.Workers))
	var eg errgroup.Group

	for i, f := range files {
		i, f := i, f

		if err := sem.Acquire(ctx, 1); err != nil {
			for j := i; j < len(files); j++ {
				outcomes[j].err = c.classify(ctx, err)
			}
			break
		}

		eg.Go(func() error {
			defer sem.Release(1)
			p, err := c.uploadOne(ctx, galleryID, ownerID, f)
			outcomes[i] = outcome{photo: p, err: err}
			return nil
		})
	}
	_ = eg.Wait()

	result := &BatchResult{Uploaded: []*photo.Photo{}, Errors: []FileError{}}
	for i, o := range outcomes {
		if o.err != nil {
			result.Errors = append(result.Errors, NewFileError(files[i].Name, o.err))
			continue
		}
		result.Uploaded = append(result.Uploaded, o.photo)
	}

	c.logger.Infof("batch for gallery %s: %d uploaded, %d failed", galleryID, len(result.Uploaded), len(result.Errors))
	return result
}

// classify turns a deadline hit into ProcessingTimeout; other errors pass
// through unchanged.
func (c *Coordinator) classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return apperrors.ProcessingTimeout(errTimeoutMsg)
	}
	return err
}

func (c *Coordinator) uploadOne(ctx context.Context, galleryID, ownerID uuid.UUID, f File) (p *photo.Photo, err error) {
	var stored []*storage.Object
	defer func() {
		if r := recover(); r != nil {
			c.logger.Errorf("panic while uploading %s: %v", f.Name, r)
			p, err = nil, apperrors.InternalServer(errPanicMsg, fmt.Errorf("panic: %v", r))
		}
		if err != nil {
			err = c.classify(ctx, err)
			c.cleanup(f.Name, stored)
		}
	}()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, err := imaging.Validate(f.Data, c.cfg.Limits); err != nil {
		return nil, err
	}

	res, err := c.pipeline.Process(f.Data, f.Name, c.cfg.Options)
	if err != nil {
		return nil, err
	}

	id := c.newID()
	folder := galleryID.String()
	store := func(role photo.Role, r imaging.Rendition) (photo.Variant, error) {
		if err := ctx.Err(); err != nil {
			return photo.Variant{}, err
		}
		obj, err := c.backend.Store(ctx, r.Data, fmt.Sprintf(variantNameFmt, id, role), folder)
		if err != nil {
			return photo.Variant{}, fmt.Errorf(errStoreFmt, role, err)
		}
		stored = append(stored, obj)
		return photo.Variant{
			Role:   role,
			Key:    obj.Key,
			URL:    obj.URL,
			Width:  r.Width,
			Height: r.Height,
			Size:   obj.Size,
		}, nil
	}

	input := photo.CreatePhotoInput{
		ID:           id,
		GalleryID:    galleryID,
		OwnerID:      ownerID,
		OriginalName: f.Name,
		StorageType:  c.backend.Type().String(),
		Metadata:     res.Metadata,
	}

	if input.Original, err = store(photo.RoleOriginal, res.Original); err != nil {
		return nil, err
	}
	if input.Thumbnail, err = store(photo.RoleThumbnail, res.Thumbnail); err != nil {
		return nil, err
	}
	if input.Preview, err = store(photo.RolePreview, res.Preview); err != nil {
		return nil, err
	}
	if res.Watermarked != nil {
		wm, err := store(photo.RoleWatermarked, *res.Watermarked)
		if err != nil {
			return nil, err
		}
		input.Watermarked = &wm
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err = c.photos.Create(ctx, input)
	if err != nil {
		return nil, fmt.Errorf(errPersistFmt, err)
	}
	return p, nil
}

// cleanup runs on its own context so it still completes after the batch
// deadline.
func (c *Coordinator) cleanup(fileName string, objects []*storage.Object) {
	if len(objects) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	for _, obj := range objects {
		if _, err := c.backend.Delete(ctx, obj.Key); err != nil {
			c.logger.Errorf("cleanup of %s for %s failed: %v", obj.Key, fileName, err)
		}
	}
}

// NewFileError reports err against one file, keeping the AppError code when
// there is one.
func NewFileError(name string, err error) FileError {
	fe := FileError{FileName: name, Code: codeUploadFailed, Message: err.Error(), Err: err}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		fe.Code = appErr.Code
		fe.Message = appErr.Message
	}
	if errors.Is(err, apperrors.ErrProcessingTimeout) {
		fe.Code = codeTimeout
	}
	if errors.Is(err, apperrors.ErrStorageUploadFailure) {
		fe.Message = "storage upload failed"
	}
	return fe
}
