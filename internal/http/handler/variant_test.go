package handler

import (
	"bytes"
	"context"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gallery-service/internal/access"
	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/photo"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/sharing"
	"gallery-service/internal/storage"
	"gallery-service/internal/storage/local"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) variantRequest(h *VariantHandler, serve func(*VariantHandler) echo.HandlerFunc, photoID, tok string) *httptest.ResponseRecorder {
	e.t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/photos/"+photoID+"/x?token="+tok, nil)
	c, rec := newContext(req, []string{paramID}, []string{photoID})
	require.NoError(e.t, serve(h)(c))
	return rec
}

func thumbnail(h *VariantHandler) echo.HandlerFunc { return h.Thumbnail }

func preview(h *VariantHandler) echo.HandlerFunc { return h.Preview }

func download(h *VariantHandler) echo.HandlerFunc { return h.Download }

func TestVariant_StreamsDerivedWithLongCache(t *testing.T) {
	e := newEnv(t)
	p := e.uploadPhoto(e.gallery.ID, 2000, 1000)
	link := e.createLink(sharing.CreateShareInput{})
	h := NewVariantHandler(e.gate, e.store.Photos(), e.registry)

	rec := e.variantRequest(h, thumbnail, p.ID.String(), link.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, contentTypeJPEG, rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, cacheControlImmutable, rec.Header().Get(echo.HeaderCacheControl))
	cfg, _, err := image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 300, cfg.Width)
	assert.Equal(t, 300, cfg.Height)

	rec = e.variantRequest(h, preview, p.ID.String(), link.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	cfg, _, err = image.DecodeConfig(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1200, cfg.Width)
	assert.Equal(t, 600, cfg.Height)

	stored, err := e.store.ShareLinks().GetByID(context.Background(), link.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Stats.TotalViews, "image requests are not views")
}

func TestVariant_Download(t *testing.T) {
	e := newEnv(t)
	p := e.uploadPhoto(e.gallery.ID, 400, 300)
	h := NewVariantHandler(e.gate, e.store.Photos(), e.registry)

	denied := e.createLink(sharing.CreateShareInput{})
	rec := e.variantRequest(h, download, p.ID.String(), denied.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	allowed := e.createLink(sharing.CreateShareInput{Permissions: share.Permissions{AllowDownloads: true}})
	rec = e.variantRequest(h, download, p.ID.String(), allowed.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, cacheControlNoStore, rec.Header().Get(echo.HeaderCacheControl))
	assert.True(t, strings.HasPrefix(rec.Header().Get(echo.HeaderContentDisposition), "attachment;"))
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), p.OriginalName)
}

func TestVariant_Denials(t *testing.T) {
	e := newEnv(t)
	p := e.uploadPhoto(e.gallery.ID, 400, 300)
	link := e.createLink(sharing.CreateShareInput{})

	other := e.store.PutGallery(gallery.Gallery{OwnerID: e.owner, Title: "Other"})
	foreign := e.uploadPhoto(other.ID, 400, 300)

	inactive := e.createLink(sharing.CreateShareInput{})
	_, err := e.sharing.DeactivateShareLink(context.Background(), e.owner, inactive.ID)
	require.NoError(t, err)

	h := NewVariantHandler(e.gate, e.store.Photos(), e.registry)

	tests := []struct {
		name       string
		photoID    string
		token      string
		wantStatus int
	}{
		{"bad photo id", "not-a-uuid", link.Token, http.StatusBadRequest},
		{"unknown token", p.ID.String(), strings.Repeat("b", 64), http.StatusNotFound},
		{"inactive link", p.ID.String(), inactive.Token, http.StatusForbidden},
		{"photo from another gallery", foreign.ID.String(), link.Token, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.variantRequest(h, thumbnail, tt.photoID, tt.token)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Empty(t, rec.Header().Get(echo.HeaderCacheControl))
		})
	}
}

func TestVariant_ExhaustedQuotaStillLoadsImages(t *testing.T) {
	e := newEnv(t)
	p := e.uploadPhoto(e.gallery.ID, 400, 300)
	one := 1
	link := e.createLink(sharing.CreateShareInput{MaxViews: &one})
	_, err := e.gate.EvaluateShare(context.Background(), access.ShareRequest{Token: link.Token})
	require.NoError(t, err)

	h := NewVariantHandler(e.gate, e.store.Photos(), e.registry)
	rec := e.variantRequest(h, thumbnail, p.ID.String(), link.Token)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestVariant_RedirectsWhenBackendHasURL(t *testing.T) {
	e := newEnv(t)
	p := e.uploadPhoto(e.gallery.ID, 400, 300)
	link := e.createLink(sharing.CreateShareInput{})

	withURLs, err := local.New(e.backend.Root(), "/uploads")
	require.NoError(t, err)
	h := NewVariantHandler(e.gate, e.store.Photos(), storage.NewRegistry(withURLs))

	rec := e.variantRequest(h, thumbnail, p.ID.String(), link.Token)
	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/uploads/"+p.Thumbnail.Key, rec.Header().Get(echo.HeaderLocation))
	assert.Equal(t, cacheControlRedirect, rec.Header().Get(echo.HeaderCacheControl))
}

func TestRoleFor(t *testing.T) {
	watermarked := &photo.Photo{
		Preview:     photo.Variant{Role: photo.RolePreview, Key: "p"},
		Watermarked: &photo.Variant{Role: photo.RoleWatermarked, Key: "w"},
	}
	plain := &photo.Photo{Preview: photo.Variant{Role: photo.RolePreview, Key: "p"}}

	tests := []struct {
		name    string
		variant string
		perms   share.Permissions
		p       *photo.Photo
		want    photo.Role
		wantErr bool
	}{
		{"thumbnail", variantThumbnail, share.Permissions{}, plain, photo.RoleThumbnail, false},
		{"preview", variantPreview, share.Permissions{}, watermarked, photo.RolePreview, false},
		{"watermarked preview", variantPreview, share.Permissions{WatermarkEnabled: true}, watermarked, photo.RoleWatermarked, false},
		{"watermark enabled but missing", variantPreview, share.Permissions{WatermarkEnabled: true}, plain, photo.RolePreview, false},
		{"download allowed", variantDownload, share.Permissions{AllowDownloads: true}, plain, photo.RoleOriginal, false},
		{"download denied", variantDownload, share.Permissions{}, plain, "", true},
		{"unknown", "raw", share.Permissions{}, plain, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := roleFor(tt.variant, &share.ShareLink{Permissions: tt.perms}, tt.p)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
