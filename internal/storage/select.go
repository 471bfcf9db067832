package storage

import (
	"context"
	"fmt"
	"strings"

	apperrors "gallery-service/pkg/errors"

	"github.com/labstack/gommon/log"
)

// Candidate is one backend the selection policy may pick.
type Candidate struct {
	Type Type
	// Viable reports whether the backend is configured (and, for stateful
	// handles, connected). It must not perform slow I/O.
	Viable func() bool
	Open   func(ctx context.Context) (Backend, error)
}

// Policy lists candidates by role; nil roles are skipped.
type Policy struct {
	CDN         *Candidate
	BlobStore   *Candidate
	ObjectStore *Candidate
	Local       *Candidate
}

func (p Policy) ordered() []*Candidate {
	return []*Candidate{p.CDN, p.BlobStore, p.ObjectStore, p.Local}
}

// Select picks the first viable backend in priority order: CDN, blob store,
// object store, local filesystem. It is meant to run once at startup. A
// viable backend that fails to open is a configuration error; selection does
// not fall through to the next candidate.
func Select(ctx context.Context, p Policy, logger *log.Logger) (Backend, error) {
	var viable []*Candidate
	for _, c := range p.ordered() {
		if c != nil && c.Viable != nil && c.Viable() {
			viable = append(viable, c)
		}
	}

	if len(viable) == 0 {
		return nil, apperrors.Configuration("no storage backend is configured")
	}

	chosen := viable[0]
	if len(viable) > 1 && logger != nil {
		names := make([]string, 0, len(viable))
		for _, c := range viable {
			names = append(names, c.Type.String())
		}
		logger.Warnf("multiple storage backends configured (%s); using %s", strings.Join(names, ", "), chosen.Type)
	}

	backend, err := chosen.Open(ctx)
	if err != nil {
		return nil, &apperrors.AppError{
			Code:    "CONFIGURATION_ERROR",
			Message: fmt.Sprintf("storage backend %s could not be opened", chosen.Type),
			Err:     fmt.Errorf("%w: %v", apperrors.ErrConfiguration, err),
		}
	}

	return backend, nil
}
