package http

import (
	"context"
	"io"
	stdhttp "net/http"
	"strconv"
	"strings"

	"gallery-service/internal/auth"
	"gallery-service/internal/config"
	"gallery-service/internal/http/handler"
	"gallery-service/internal/http/middleware"
	"gallery-service/internal/types"
	"gallery-service/pkg/metrics"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
)

const (
	requestBodyLimit   = "1M"
	multipartOverhead  = int64(1 << 20)
	uploadRoute        = "/api/galleries/:id/photos"
	defaultUploadLimit = "64M"
)

type ServerDependencies struct {
	Config         *config.Config
	Gate           handler.AccessGate
	Shares         handler.ShareManager
	Invitations    handler.InvitationManager
	Uploader       handler.BatchUploader
	Backends       handler.BackendResolver
	Photos         handler.PhotoReader
	Galleries      handler.GalleryGetter
	AuthMiddleware *auth.Middleware
	AuditLogger    types.AuditLogger
	Metrics        types.OutcomeRecorder
	HealthChecks   []types.HealthChecker
}

type Server struct {
	echo *echo.Echo
	deps *ServerDependencies
}

func NewServer(deps *ServerDependencies) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Set custom HTTP error handler
	e.HTTPErrorHandler = CustomHTTPErrorHandler

	cfg := deps.Config
	e.Server.ReadTimeout = cfg.Server.ReadTimeout
	e.Server.WriteTimeout = cfg.Server.WriteTimeout
	e.IPExtractor = ipExtractor(cfg.Server)

	// Request ID middleware (first, so all logs have request ID)
	e.Use(middleware.RequestID())
	e.Use(middleware.SecurityHeaders())
	e.Use(accessLog(nil))
	e.Use(echomiddleware.Recover())
	e.Use(metrics.MetricsMiddleware())
	e.Use(echomiddleware.BodyLimitWithConfig(echomiddleware.BodyLimitConfig{
		// Uploads carry their own, larger limit.
		Skipper: func(c echo.Context) bool { return c.Path() == uploadRoute },
		Limit:   requestBodyLimit,
	}))

	strict := func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	if cfg.RateLimit.Enabled {
		globalRateLimiter := middleware.NewGlobalRateLimiter(cfg.RateLimit.GlobalRPS, cfg.RateLimit.GlobalBurst)
		e.Use(globalRateLimiter.Middleware())

		// Strict limits on the token and code endpoints slow down guessing.
		strict = middleware.NewStrictRateLimiter(cfg.RateLimit.StrictRPS, cfg.RateLimit.StrictBurst).Middleware()
	}
	noStore := middleware.NoStore()

	publicBaseURL := cfg.Server.PublicBaseURL
	shareHandler := handler.NewShareHandler(deps.Gate, deps.Photos, publicBaseURL, deps.Metrics, deps.AuditLogger)
	variantHandler := handler.NewVariantHandler(deps.Gate, deps.Photos, deps.Backends)
	uploadHandler := handler.NewUploadHandler(deps.Galleries, deps.Uploader, handler.UploadLimits{
		MaxFiles:    cfg.Upload.MaxFiles,
		MaxFileSize: cfg.Upload.MaxFileSize,
	}, deps.Metrics, deps.AuditLogger)
	managementHandler := handler.NewManagementHandler(deps.Shares, deps.Invitations, publicBaseURL, deps.AuditLogger)
	healthHandler := handler.NewHealthHandler(deps.HealthChecks...)

	e.GET("/shares/:token", shareHandler.GetShare, strict, noStore)
	e.GET("/invitations/:code", shareHandler.ValidateInvitation, strict, noStore)
	e.POST("/invitations/:code/use", shareHandler.UseInvitation, strict, noStore)

	e.GET("/photos/:id/thumbnail", variantHandler.Thumbnail)
	e.GET("/photos/:id/preview", variantHandler.Preview)
	e.GET("/photos/:id/download", variantHandler.Download)

	e.GET("/health", healthHandler.Health)
	metrics.RegisterMetricsRoute(e)

	if prefix := cfg.Storage.Local.URLPrefix; strings.HasPrefix(prefix, "/") {
		e.Static(prefix, cfg.Storage.Local.Root)
	}

	api := e.Group("/api")
	api.Use(deps.AuthMiddleware.RequireJWT())
	api.Use(noStore)

	api.POST("/galleries/:id/photos", uploadHandler.UploadPhotos, echomiddleware.BodyLimit(uploadBodyLimit(cfg.Upload)))

	api.POST("/galleries/:id/shares", managementHandler.CreateShareLink)
	api.GET("/galleries/:id/shares", managementHandler.ListShareLinks)
	api.PATCH("/shares/:id", managementHandler.UpdateShareLink)
	api.POST("/shares/:id/deactivate", managementHandler.DeactivateShareLink)
	api.DELETE("/shares/:id", managementHandler.DeleteShareLink)

	api.POST("/galleries/:id/invitations", managementHandler.CreateInvitation)
	api.GET("/galleries/:id/invitations", managementHandler.ListInvitations)
	api.POST("/invitations/:id/resend", managementHandler.ResendInvitation)
	api.POST("/invitations/:id/deactivate", managementHandler.DeactivateInvitation)
	api.DELETE("/invitations/:id", managementHandler.DeleteInvitation)

	return &Server{
		echo: e,
		deps: deps,
	}
}

// uploadBodyLimit allows a full batch of maximum-size files.
func uploadBodyLimit(cfg config.UploadConfig) string {
	if cfg.MaxFileSize <= 0 || cfg.MaxFiles <= 0 {
		return defaultUploadLimit
	}
	return strconv.FormatInt((cfg.MaxFileSize*int64(cfg.MaxFiles)+multipartOverhead)/1024, 10) + "K"
}

// ipExtractor believes X-Forwarded-For only when the peer is a configured
// proxy; otherwise the client is the peer address. Rate-limit buckets and
// unique-view counts key on the result.
func ipExtractor(cfg config.ServerConfig) echo.IPExtractor {
	nets, err := cfg.TrustedProxyNets()
	if err != nil || len(nets) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range nets {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// Handler exposes the router for in-process tests.
func (s *Server) Handler() stdhttp.Handler {
	return s.echo
}

func (s *Server) Start(address string) error {
	return s.echo.Start(address)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// accessLogFormat logs the path without the query string, since variant URLs
// carry the share token in ?token=.
const accessLogFormat = `{"time":"${time_rfc3339_nano}","id":"${id}","remote_ip":"${remote_ip}",` +
	`"host":"${host}","method":"${method}","path":"${path}","user_agent":"${user_agent}",` +
	`"status":${status},"error":"${error}","latency":${latency},"latency_human":"${latency_human}"` +
	`,"bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n"

// accessLog writes to the echo logger's output when out is nil.
func accessLog(out io.Writer) echo.MiddlewareFunc {
	return echomiddleware.LoggerWithConfig(echomiddleware.LoggerConfig{
		Format: accessLogFormat,
		Output: out,
	})
}
