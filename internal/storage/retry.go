package storage

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/labstack/gommon/log"
)

const defaultRetryBackoff = 200 * time.Millisecond

type retrying struct {
	Backend
	backoff time.Duration
	logger  *log.Logger
}

// WithRetry retries Fetch, ResolveURL and Delete once after a backoff when
// the first attempt fails for a reason other than a missing object or an
// unsupported operation. Store is never retried.
func WithRetry(b Backend, backoff time.Duration) Backend {
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &retrying{Backend: b, backoff: backoff, logger: log.New("storage")}
}

func retryable(err error) bool {
	return err != nil &&
		!IsNotFound(err) &&
		!errors.Is(err, ErrNoPublicURL) &&
		!errors.Is(err, ErrFetchUnsupported) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

func (r *retrying) wait(ctx context.Context, op string, err error) error {
	r.logger.Warnf("%s %s failed, retrying once: %v", r.Backend.Type(), op, err)
	timer := time.NewTimer(r.backoff)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (r *retrying) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	rc, err := r.Backend.Fetch(ctx, key)
	if !retryable(err) {
		return rc, err
	}
	if werr := r.wait(ctx, "fetch", err); werr != nil {
		return nil, err
	}
	return r.Backend.Fetch(ctx, key)
}

func (r *retrying) ResolveURL(ctx context.Context, key string) (string, error) {
	url, err := r.Backend.ResolveURL(ctx, key)
	if !retryable(err) {
		return url, err
	}
	if werr := r.wait(ctx, "resolve", err); werr != nil {
		return "", err
	}
	return r.Backend.ResolveURL(ctx, key)
}

func (r *retrying) Delete(ctx context.Context, key string) (bool, error) {
	deleted, err := r.Backend.Delete(ctx, key)
	if !retryable(err) {
		return deleted, err
	}
	if werr := r.wait(ctx, "delete", err); werr != nil {
		return false, err
	}
	return r.Backend.Delete(ctx, key)
}
