package handler

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path"

	"gallery-service/internal/access"
	"gallery-service/internal/domain/photo"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/storage"
	apperrors "gallery-service/pkg/errors"

	"github.com/labstack/echo/v4"
)

const (
	variantThumbnail = "thumbnail"
	variantPreview   = "preview"
	variantDownload  = "download"

	contentTypeJPEG        = "image/jpeg"
	contentTypeOctetStream = "application/octet-stream"
)

// Redirect targets may be signed URLs that expire.
const cacheControlRedirect = "private, max-age=60"

// VariantHandler serves image bytes for photos in a shared gallery.
type VariantHandler struct {
	gate     AccessGate
	photos   PhotoReader
	backends BackendResolver
}

func NewVariantHandler(gate AccessGate, photos PhotoReader, backends BackendResolver) *VariantHandler {
	return &VariantHandler{gate: gate, photos: photos, backends: backends}
}

func (h *VariantHandler) Thumbnail(c echo.Context) error {
	return h.serve(c, variantThumbnail)
}

func (h *VariantHandler) Preview(c echo.Context) error {
	return h.serve(c, variantPreview)
}

func (h *VariantHandler) Download(c echo.Context) error {
	return h.serve(c, variantDownload)
}

func (h *VariantHandler) serve(c echo.Context, variant string) error {
	ctx := c.Request().Context()

	photoID, err := parseUUIDParam(c, paramID, msgInvalidPhotoID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	link, err := h.gate.AuthorizeVariant(ctx, c.QueryParam(queryToken))
	if err != nil {
		var denial *access.Denial
		if errors.As(err, &denial) {
			return respondDenial(c, denial, msgShareLinkNotFound, msgShareLinkUnavailable)
		}
		return RespondWithMappedError(c, err)
	}

	p, err := h.photos.GetByID(ctx, photoID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return respondError(c, http.StatusNotFound, msgPhotoNotFound)
		}
		return RespondWithMappedError(c, err)
	}
	// A token only unlocks photos of its own gallery.
	if p.GalleryID != link.GalleryID {
		return respondError(c, http.StatusNotFound, msgPhotoNotFound)
	}

	role, err := roleFor(variant, link, p)
	if err != nil {
		return handleHTTPError(c, err)
	}
	v, ok := p.Variant(role)
	if !ok {
		return respondError(c, http.StatusNotFound, msgPhotoNotFound)
	}

	backend, err := h.backends.Backend(ctx, p.StorageType)
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	if role.Derived() {
		return h.serveDerived(c, backend, v)
	}
	return h.serveOriginal(c, backend, p, v)
}

// roleFor maps the requested endpoint to a stored rendition. Links with
// watermarking enabled get the watermarked rendition as their preview.
func roleFor(variant string, link *share.ShareLink, p *photo.Photo) (photo.Role, error) {
	switch variant {
	case variantThumbnail:
		return photo.RoleThumbnail, nil
	case variantPreview:
		if link.Permissions.WatermarkEnabled {
			if _, ok := p.Variant(photo.RoleWatermarked); ok {
				return photo.RoleWatermarked, nil
			}
		}
		return photo.RolePreview, nil
	case variantDownload:
		if !link.Permissions.AllowDownloads {
			return "", echo.NewHTTPError(http.StatusForbidden, msgDownloadsNotAllowed)
		}
		return photo.RoleOriginal, nil
	}
	return "", echo.NewHTTPError(http.StatusBadRequest, msgInvalidVariant)
}

// serveDerived redirects when the backend can hand out a URL and streams
// otherwise.
func (h *VariantHandler) serveDerived(c echo.Context, backend storage.Backend, v photo.Variant) error {
	target, err := backend.ResolveURL(c.Request().Context(), v.Key)
	if err == nil {
		c.Response().Header().Set(echo.HeaderCacheControl, cacheControlRedirect)
		return c.Redirect(http.StatusFound, target)
	}
	if !errors.Is(err, storage.ErrNoPublicURL) {
		return h.fetchFailed(c, v, err)
	}

	c.Response().Header().Set(echo.HeaderCacheControl, cacheControlImmutable)
	return h.stream(c, backend, v, contentTypeJPEG)
}

// serveOriginal streams where possible so the attachment and no-store
// headers apply, and redirects only for URL-only backends.
func (h *VariantHandler) serveOriginal(c echo.Context, backend storage.Backend, p *photo.Photo, v photo.Variant) error {
	c.Response().Header().Set(echo.HeaderCacheControl, cacheControlNoStore)

	rc, err := backend.Fetch(c.Request().Context(), v.Key)
	if errors.Is(err, storage.ErrFetchUnsupported) {
		target, err := backend.ResolveURL(c.Request().Context(), v.Key)
		if err != nil {
			return h.fetchFailed(c, v, err)
		}
		return c.Redirect(http.StatusFound, target)
	}
	if err != nil {
		return h.fetchFailed(c, v, err)
	}
	defer rc.Close()

	contentType := mime.TypeByExtension(path.Ext(v.Key))
	if contentType == "" {
		contentType = contentTypeOctetStream
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", p.OriginalName))
	return c.Stream(http.StatusOK, contentType, rc)
}

func (h *VariantHandler) stream(c echo.Context, backend storage.Backend, v photo.Variant, contentType string) error {
	rc, err := backend.Fetch(c.Request().Context(), v.Key)
	if err != nil {
		return h.fetchFailed(c, v, err)
	}
	defer rc.Close()
	return c.Stream(http.StatusOK, contentType, rc)
}

func (h *VariantHandler) fetchFailed(c echo.Context, v photo.Variant, err error) error {
	c.Response().Header().Del(echo.HeaderCacheControl)
	if storage.IsNotFound(err) {
		return respondError(c, http.StatusNotFound, msgPhotoNotFound)
	}
	c.Logger().Errorf("fetch %s variant %s: %v", v.Role, v.Key, err)
	return respondError(c, http.StatusBadGateway, msgFetchVariantFail)
}
