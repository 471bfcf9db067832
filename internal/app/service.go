package app

import (
	"context"
	"errors"
	stdhttp "net/http"
	"time"

	"gallery-service/internal/config"
	"gallery-service/internal/http"
	"gallery-service/internal/infra/cache"
	"gallery-service/internal/repository/postgres"
	"gallery-service/internal/storage/gridfs"

	"github.com/labstack/gommon/log"
)

const cacheCleanupInterval = 5 * time.Minute

// Service represents the gallery application
type Service struct {
	config   *config.Config
	db       *postgres.DB
	mongo    *gridfs.Handle
	urlCache *cache.URLCache
	server   *http.Server
	logger   *log.Logger
	stop     chan struct{}
}

// Start starts background tasks and blocks serving HTTP until shutdown.
func (s *Service) Start() error {
	go s.startCacheCleanup()

	s.logger.Infof("starting gallery service on :%s", s.config.Server.Port)
	if err := s.server.Start(":" + s.config.Server.Port); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return err
	}
	return nil
}

// startCacheCleanup runs a background task to clear expired cache entries
func (s *Service) startCacheCleanup() {
	ticker := time.NewTicker(cacheCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.urlCache.Clear()
		case <-s.stop:
			return
		}
	}
}

// Shutdown stops the HTTP server first, then releases storage and database
// connections.
func (s *Service) Shutdown(ctx context.Context) error {
	close(s.stop)
	err := s.server.Shutdown(ctx)
	if s.mongo != nil {
		if cerr := s.mongo.Close(ctx); cerr != nil {
			s.logger.Warnf("failed to close mongo client: %v", cerr)
		}
	}
	s.db.Close()
	return err
}
