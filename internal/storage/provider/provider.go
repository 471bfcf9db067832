// Package provider turns storage configuration into the selection policy and
// read registry used by the upload and variant paths.
package provider

import (
	"context"

	"gallery-service/internal/config"
	"gallery-service/internal/infra/cache"
	"gallery-service/internal/storage"
	"gallery-service/internal/storage/cdn"
	"gallery-service/internal/storage/gridfs"
	"gallery-service/internal/storage/local"
	"gallery-service/internal/storage/objectstore"

	"github.com/labstack/gommon/log"
)

// Deps carries the long-lived handles backends share.
type Deps struct {
	Mongo *gridfs.Handle
	URLs  *cache.URLCache
}

type Storage struct {
	Active   storage.Backend
	Registry *storage.Registry
}

func openCDN(cfg config.CDNConfig) func(context.Context) (storage.Backend, error) {
	return func(context.Context) (storage.Backend, error) {
		return cdn.New(cfg)
	}
}

func openGridFS(h *gridfs.Handle) func(context.Context) (storage.Backend, error) {
	return func(ctx context.Context) (storage.Backend, error) {
		if err := h.Connect(ctx); err != nil {
			return nil, err
		}
		return gridfs.New(h), nil
	}
}

func openS3(cfg config.StorageConfig, urls *cache.URLCache) func(context.Context) (storage.Backend, error) {
	return func(context.Context) (storage.Backend, error) {
		d, err := objectstore.NewS3Driver(cfg.S3)
		if err != nil {
			return nil, err
		}
		return objectstore.New(d, urls, cfg.URLExpiry), nil
	}
}

func openGCS(cfg config.StorageConfig, urls *cache.URLCache) func(context.Context) (storage.Backend, error) {
	return func(ctx context.Context) (storage.Backend, error) {
		d, err := objectstore.NewGCSDriver(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return objectstore.New(d, urls, cfg.URLExpiry), nil
	}
}

func openLocal(cfg config.LocalConfig) func(context.Context) (storage.Backend, error) {
	return func(context.Context) (storage.Backend, error) {
		return local.New(cfg.Root, cfg.URLPrefix)
	}
}

func objectStoreCandidate(cfg config.StorageConfig, urls *cache.URLCache) *storage.Candidate {
	switch {
	case cfg.S3.Configured():
		return &storage.Candidate{Type: storage.TypeS3, Viable: func() bool { return true }, Open: openS3(cfg, urls)}
	case cfg.GCS.Configured():
		return &storage.Candidate{Type: storage.TypeGCS, Viable: func() bool { return true }, Open: openGCS(cfg, urls)}
	}
	return nil
}

// NewPolicy maps configuration onto the four selection roles. The blob store
// is only viable once the Mongo handle has connected.
func NewPolicy(cfg config.StorageConfig, deps Deps) storage.Policy {
	p := storage.Policy{
		CDN: &storage.Candidate{
			Type:   storage.TypeCDN,
			Viable: cfg.CDN.Configured,
			Open:   openCDN(cfg.CDN),
		},
		ObjectStore: objectStoreCandidate(cfg, deps.URLs),
		Local: &storage.Candidate{
			Type:   storage.TypeLocal,
			Viable: func() bool { return true },
			Open:   openLocal(cfg.Local),
		},
	}
	if deps.Mongo != nil {
		p.BlobStore = &storage.Candidate{
			Type:   storage.TypeGridFS,
			Viable: deps.Mongo.Ready,
			Open:   openGridFS(deps.Mongo),
		}
	}
	return p
}

// New selects the active backend and registers every other configured
// backend for reads of photos stored before a configuration change. All
// backends are wrapped with a single retry.
func New(ctx context.Context, cfg config.StorageConfig, deps Deps, logger *log.Logger) (*Storage, error) {
	if deps.URLs == nil {
		deps.URLs = cache.NewURLCache()
	}

	active, err := storage.Select(ctx, NewPolicy(cfg, deps), logger)
	if err != nil {
		return nil, err
	}
	active = storage.WithRetry(active, 0)
	logger.Infof("storage backend selected: %s", active.Type())

	reg := storage.NewRegistry(active)
	register := func(t storage.Type, open func(context.Context) (storage.Backend, error)) {
		reg.Register(t, func(ctx context.Context) (storage.Backend, error) {
			b, err := open(ctx)
			if err != nil {
				return nil, err
			}
			return storage.WithRetry(b, 0), nil
		})
	}

	if cfg.CDN.Configured() {
		register(storage.TypeCDN, openCDN(cfg.CDN))
	}
	if deps.Mongo != nil && deps.Mongo.Configured() {
		register(storage.TypeGridFS, openGridFS(deps.Mongo))
	}
	if cfg.S3.Configured() {
		register(storage.TypeS3, openS3(cfg, deps.URLs))
	}
	if cfg.GCS.Configured() {
		register(storage.TypeGCS, openGCS(cfg, deps.URLs))
	}
	register(storage.TypeLocal, openLocal(cfg.Local))

	return &Storage{Active: active, Registry: reg}, nil
}
