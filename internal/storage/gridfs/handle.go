package gridfs

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"gallery-service/internal/config"
	apperrors "gallery-service/pkg/errors"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	errConnectFmt = "failed to connect to mongo: %w"
	errPingFmt    = "failed to ping mongo: %w"
	errNotReady   = "document store is not connected"
)

// Handle owns the Mongo client and GridFS bucket. The bucket is only usable
// after a successful Connect; Ready reports that state without I/O.
type Handle struct {
	cfg    config.MongoConfig
	mu     sync.Mutex
	client *mongo.Client
	bucket *mongo.GridFSBucket
	ready  atomic.Bool
}

func NewHandle(cfg config.MongoConfig) *Handle {
	return &Handle{cfg: cfg}
}

func (h *Handle) Configured() bool {
	return h.cfg.Configured()
}

func (h *Handle) Ready() bool {
	return h.ready.Load()
}

// Connect opens the client and verifies it with a ping. Calling it again
// after success is a no-op.
func (h *Handle) Connect(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.ready.Load() {
		return nil
	}
	if !h.cfg.Configured() {
		return apperrors.Configuration(errNotReady)
	}

	ctx, cancel := context.WithTimeout(ctx, h.cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(options.Client().
		ApplyURI(h.cfg.URI).
		SetConnectTimeout(h.cfg.ConnectTimeout))
	if err != nil {
		return fmt.Errorf(errConnectFmt, err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf(errPingFmt, err)
	}

	h.client = client
	h.bucket = client.Database(h.cfg.Database).GridFSBucket(options.GridFSBucket().SetName(h.cfg.Bucket))
	h.ready.Store(true)
	return nil
}

// Bucket connects on first use. A handle that cannot connect yields a
// configuration error rather than a nil bucket.
func (h *Handle) Bucket(ctx context.Context) (*mongo.GridFSBucket, error) {
	if !h.ready.Load() {
		if err := h.Connect(ctx); err != nil {
			return nil, &apperrors.AppError{
				Code:    "CONFIGURATION_ERROR",
				Message: errNotReady,
				Err:     fmt.Errorf("%w: %v", apperrors.ErrConfiguration, err),
			}
		}
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bucket, nil
}

// Ping is used by the health endpoint.
func (h *Handle) Ping(ctx context.Context) error {
	h.mu.Lock()
	client := h.client
	h.mu.Unlock()
	if client == nil {
		return apperrors.Configuration(errNotReady)
	}
	return client.Ping(ctx, readpref.Primary())
}

func (h *Handle) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.client == nil {
		return nil
	}
	h.ready.Store(false)
	err := h.client.Disconnect(ctx)
	h.client = nil
	h.bucket = nil
	return err
}
