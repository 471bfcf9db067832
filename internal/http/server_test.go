package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gallery-service/internal/access"
	"gallery-service/internal/auth"
	"gallery-service/internal/config"
	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/imaging"
	"gallery-service/internal/repository/memory"
	"gallery-service/internal/sharing"
	"gallery-service/internal/storage"
	"gallery-service/internal/storage/local"
	"gallery-service/internal/token"
	"gallery-service/internal/types"
	"gallery-service/internal/upload"
	"gallery-service/pkg/password"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdefghijklmnopqrstuvwxyzABCDEF"

type testServer struct {
	server  *Server
	jwt     *auth.JWTService
	sharing *sharing.Service
	owner   uuid.UUID
	gallery *gallery.Gallery
}

func newTestServer(t *testing.T, healthy bool, tweaks ...func(*config.Config)) *testServer {
	t.Helper()
	store := memory.NewStore()
	owner := uuid.New()
	g := store.PutGallery(gallery.Gallery{OwnerID: owner, Title: "Studio"})

	svc := sharing.NewService(store.Galleries(), store.ShareLinks(), store.Invitations(),
		token.NewIssuer(store.ShareLinks(), store.Invitations()), password.NewHasher(password.MinCost), sharing.Config{})
	gate := access.NewGate(store.ShareLinks(), store.Invitations(), store.Galleries(),
		access.NewRecorder(store.ShareLinks(), store.Invitations()))

	root := t.TempDir()
	backend, err := local.New(root, "/uploads")
	require.NoError(t, err)
	pipeline, err := imaging.NewPipeline()
	require.NoError(t, err)

	cfg := &config.Config{
		Server:    config.ServerConfig{PublicBaseURL: "https://photos.example.com", ReadTimeout: time.Second, WriteTimeout: time.Second},
		Upload:    config.UploadConfig{MaxFiles: 5, MaxFileSize: 1 << 20},
		Storage:   config.StorageConfig{Local: config.LocalConfig{Root: root, URLPrefix: "/uploads"}},
		RateLimit: config.RateLimitConfig{Enabled: true, GlobalRPS: 1000, GlobalBurst: 1000, StrictRPS: 1000, StrictBurst: 1000},
	}

	for _, tweak := range tweaks {
		tweak(cfg)
	}

	ping := func(context.Context) error { return nil }
	if !healthy {
		ping = func(context.Context) error { return errors.New("connection refused") }
	}

	jwt := auth.NewJWTService(testSecret, time.Hour)
	server := NewServer(&ServerDependencies{
		Config:         cfg,
		Gate:           gate,
		Shares:         svc,
		Invitations:    svc,
		Uploader:       upload.NewCoordinator(pipeline, backend, store.Photos(), upload.Config{Limits: imaging.DefaultLimits()}),
		Backends:       storage.NewRegistry(backend),
		Photos:         store.Photos(),
		Galleries:      store.Galleries(),
		AuthMiddleware: auth.NewMiddleware(jwt),
		HealthChecks:   []types.HealthChecker{types.NamedCheck{Label: "database", Ping: ping}},
	})

	return &testServer{server: server, jwt: jwt, sharing: svc, owner: owner, gallery: g}
}

func (s *testServer) do(t *testing.T, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	s.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestServer_Health(t *testing.T) {
	rec := newTestServer(t, true).do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(echo.HeaderXRequestID))

	rec = newTestServer(t, false).do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestServer_APIRequiresJWT(t *testing.T) {
	s := newTestServer(t, true)
	path := "/api/galleries/" + s.gallery.ID.String() + "/shares"

	rec := s.do(t, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	tok, err := s.jwt.Generate(s.owner, "owner@example.com")
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(`{"permissions":{"showExif":true}}`))
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+tok)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = s.do(t, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))
}

func TestServer_PublicShareRoute(t *testing.T) {
	s := newTestServer(t, true)
	link, err := s.sharing.CreateShareLink(context.Background(), s.owner, s.gallery.ID, sharing.CreateShareInput{})
	require.NoError(t, err)

	rec := s.do(t, httptest.NewRequest(http.MethodGet, "/shares/"+link.Token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get(echo.HeaderCacheControl))

	rec = s.do(t, httptest.NewRequest(http.MethodGet, "/shares/"+strings.Repeat("c", 64), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestServer_UnknownRouteUsesErrorHandler(t *testing.T) {
	rec := newTestServer(t, true).do(t, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "request_id")
}

func TestUploadBodyLimit(t *testing.T) {
	assert.Equal(t, defaultUploadLimit, uploadBodyLimit(config.UploadConfig{}))
	assert.Equal(t, "3072K", uploadBodyLimit(config.UploadConfig{MaxFiles: 2, MaxFileSize: 1 << 20}))
}

func TestServer_StrictLimiterIgnoresSpoofedForwardedFor(t *testing.T) {
	tests := []struct {
		name     string
		proxies  []string
		peer     string
		wantCode []int
	}{
		{
			name:     "no trusted proxies",
			peer:     "203.0.113.9:4000",
			wantCode: []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests, http.StatusTooManyRequests},
		},
		{
			name:     "peer outside trusted range",
			proxies:  []string{"10.0.0.0/8"},
			peer:     "203.0.113.9:4000",
			wantCode: []int{http.StatusForbidden, http.StatusForbidden, http.StatusTooManyRequests, http.StatusTooManyRequests},
		},
		{
			name:     "trusted proxy forwards distinct clients",
			proxies:  []string{"10.0.0.0/8"},
			peer:     "10.1.2.3:4000",
			wantCode: []int{http.StatusForbidden, http.StatusForbidden, http.StatusForbidden, http.StatusForbidden},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t, true, func(cfg *config.Config) {
				cfg.Server.TrustedProxies = tt.proxies
				cfg.RateLimit.StrictRPS = 1
				cfg.RateLimit.StrictBurst = 2
			})
			link, err := s.sharing.CreateShareLink(context.Background(), s.owner, s.gallery.ID,
				sharing.CreateShareInput{Password: "hunter22"})
			require.NoError(t, err)

			for i, want := range tt.wantCode {
				req := httptest.NewRequest(http.MethodGet, "/shares/"+link.Token, nil)
				req.RemoteAddr = tt.peer
				req.Header.Set("X-Share-Password", "wrong-guess")
				req.Header.Set(echo.HeaderXForwardedFor, fmt.Sprintf("198.51.100.%d", i+1))
				assert.Equal(t, want, s.do(t, req).Code, "attempt %d", i)
			}
		})
	}
}

func TestAccessLog_OmitsQueryString(t *testing.T) {
	var buf bytes.Buffer
	e := echo.New()
	e.Use(accessLog(&buf))
	e.GET("/photos/:id/preview", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/photos/abc/preview?token=s3cr3t-share-token&code=INV-CODE", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	line := buf.String()
	assert.Contains(t, line, `"path":"/photos/abc/preview"`)
	assert.NotContains(t, line, "s3cr3t-share-token")
	assert.NotContains(t, line, "INV-CODE")
}
