package storage

import (
	"context"
	"fmt"
	"sync"

	apperrors "gallery-service/pkg/errors"
)

// Registry resolves the storage type recorded on a photo to a backend, so
// photos written under an earlier active backend stay readable. Non-active
// backends are opened on first use.
type Registry struct {
	mu       sync.Mutex
	active   Backend
	backends map[Type]Backend
	openers  map[Type]func(ctx context.Context) (Backend, error)
}

func NewRegistry(active Backend) *Registry {
	r := &Registry{
		active:   active,
		backends: make(map[Type]Backend),
		openers:  make(map[Type]func(ctx context.Context) (Backend, error)),
	}
	if active != nil {
		r.backends[active.Type()] = active
	}
	return r
}

// Active is the backend new uploads are written to.
func (r *Registry) Active() Backend {
	return r.active
}

// Register adds a lazily opened backend for reads.
func (r *Registry) Register(t Type, open func(ctx context.Context) (Backend, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[t]; ok {
		return
	}
	r.openers[t] = open
}

// Backend returns the backend for a recorded storage type. The lock is only
// held to claim the opener; opening itself runs outside of it.
func (r *Registry) Backend(ctx context.Context, storageType string) (Backend, error) {
	t := Type(storageType)

	r.mu.Lock()
	if b, ok := r.backends[t]; ok {
		r.mu.Unlock()
		return b, nil
	}
	open, ok := r.openers[t]
	r.mu.Unlock()

	if !ok {
		return nil, apperrors.Configuration(fmt.Sprintf("storage backend %q is not available", storageType))
	}

	b, err := open(ctx)
	if err != nil {
		return nil, &apperrors.AppError{
			Code:    "CONFIGURATION_ERROR",
			Message: fmt.Sprintf("storage backend %q could not be opened", storageType),
			Err:     fmt.Errorf("%w: %v", apperrors.ErrConfiguration, err),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.backends[t]; ok {
		return existing, nil
	}
	r.backends[t] = b
	delete(r.openers, t)
	return b, nil
}
