package app

import (
	"context"
	"fmt"

	"gallery-service/internal/access"
	"gallery-service/internal/audit"
	"gallery-service/internal/auth"
	"gallery-service/internal/config"
	"gallery-service/internal/http"
	"gallery-service/internal/imaging"
	"gallery-service/internal/infra/cache"
	"gallery-service/internal/repository/postgres"
	"gallery-service/internal/sharing"
	"gallery-service/internal/storage/gridfs"
	"gallery-service/internal/storage/provider"
	"gallery-service/internal/token"
	"gallery-service/internal/types"
	"gallery-service/internal/upload"
	"gallery-service/pkg/metrics"
	"gallery-service/pkg/password"

	"github.com/labstack/gommon/log"
)

// InitializeService wires up all dependencies and returns a configured Service
func InitializeService(ctx context.Context, cfg *config.Config) (*Service, error) {
	logger := log.New("app")

	db, err := postgres.New(ctx, &cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	logger.Info("database connection established")

	galleries := postgres.NewGalleryRepository(db)
	photos := postgres.NewPhotoRepository(db)
	shares := postgres.NewShareLinkRepository(db)
	invitations := postgres.NewInvitationRepository(db)

	// The blob store only becomes a candidate once Mongo answers; a failed
	// connect leaves it unready rather than failing startup.
	var mongo *gridfs.Handle
	if cfg.Storage.Mongo.Configured() {
		mongo = gridfs.NewHandle(cfg.Storage.Mongo)
		if err := mongo.Connect(ctx); err != nil {
			logger.Warnf("mongo unavailable, gridfs backend disabled: %v", err)
		}
	}

	release := func() {
		if mongo != nil {
			_ = mongo.Close(ctx)
		}
		db.Close()
	}

	urlCache := cache.NewURLCache()
	store, err := provider.New(ctx, cfg.Storage, provider.Deps{Mongo: mongo, URLs: urlCache}, log.New("storage"))
	if err != nil {
		release()
		return nil, err
	}

	pipeline, err := imaging.NewPipeline()
	if err != nil {
		release()
		return nil, fmt.Errorf("failed to initialise image pipeline: %w", err)
	}
	coordinator := upload.NewCoordinator(pipeline, store.Active, photos, uploadConfig(cfg.Upload))

	issuer := token.NewIssuer(shares, invitations)
	sharingService := sharing.NewService(galleries, shares, invitations, issuer, password.NewHasher(cfg.Share.BcryptCost), sharing.Config{
		InvitationTTL:     cfg.Share.InvitationTTL,
		InvitationMaxUses: cfg.Share.InvitationMaxUses,
	})
	gate := access.NewGate(shares, invitations, galleries, access.NewRecorder(shares, invitations))

	jwtService := auth.NewJWTService(cfg.JWT.Secret, auth.DefaultTokenExpiry)

	checks := []types.HealthChecker{types.NamedCheck{Label: "database", Ping: db.Ping}}
	if mongo != nil {
		checks = append(checks, types.NamedCheck{Label: "mongo", Ping: mongo.Ping})
	}

	server := http.NewServer(&http.ServerDependencies{
		Config:         cfg,
		Gate:           gate,
		Shares:         sharingService,
		Invitations:    sharingService,
		Uploader:       coordinator,
		Backends:       store.Registry,
		Photos:         photos,
		Galleries:      galleries,
		AuthMiddleware: auth.NewMiddleware(jwtService),
		AuditLogger:    audit.NewPostgresLogger(db.Pool),
		Metrics:        metrics.GetMetrics(),
		HealthChecks:   checks,
	})

	return &Service{
		config:   cfg,
		db:       db,
		mongo:    mongo,
		urlCache: urlCache,
		server:   server,
		logger:   logger,
		stop:     make(chan struct{}),
	}, nil
}

func uploadConfig(cfg config.UploadConfig) upload.Config {
	out := upload.Config{
		Limits: imaging.Limits{
			MaxBytes:     cfg.MaxFileSize,
			MinDimension: cfg.MinDimension,
			MaxDimension: cfg.MaxDimension,
		},
		Options: imaging.Options{Quality: cfg.JPEGQuality},
		Workers: cfg.Workers,
		Timeout: cfg.BatchTimeout,
	}
	if cfg.WatermarkText != "" {
		out.Options.Watermark = &imaging.WatermarkOptions{
			Text:   cfg.WatermarkText,
			Anchor: imaging.ParseAnchor(cfg.WatermarkPosition),
		}
	}
	return out
}
