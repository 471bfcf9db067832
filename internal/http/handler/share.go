package handler

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"gallery-service/internal/access"
	"gallery-service/internal/audit"
	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/photo"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/types"
	"gallery-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ShareHandler serves the visitor-facing share link and invitation endpoints.
type ShareHandler struct {
	gate        AccessGate
	photos      PhotoReader
	baseURL     string
	outcomes    types.OutcomeRecorder
	auditLogger types.AuditLogger
}

func NewShareHandler(
	gate AccessGate,
	photos PhotoReader,
	baseURL string,
	outcomes types.OutcomeRecorder,
	auditLogger types.AuditLogger,
) *ShareHandler {
	return &ShareHandler{
		gate:        gate,
		photos:      photos,
		baseURL:     strings.TrimRight(baseURL, "/"),
		outcomes:    outcomes,
		auditLogger: auditLogger,
	}
}

type GetShareRequest struct {
	Password string `json:"password"`
}

type GallerySummary struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	PhotographerID uuid.UUID `json:"photographerId"`
	InviteOnly     bool      `json:"inviteOnly"`
}

type SharedPhoto struct {
	ID           uuid.UUID       `json:"id"`
	OriginalName string          `json:"originalName"`
	Width        int             `json:"width"`
	Height       int             `json:"height"`
	ThumbnailURL string          `json:"thumbnailUrl"`
	PreviewURL   string          `json:"previewUrl"`
	DownloadURL  string          `json:"downloadUrl,omitempty"`
	Metadata     *photo.Metadata `json:"metadata,omitempty"`
}

type ShareResponse struct {
	Gallery     GallerySummary    `json:"gallery"`
	Permissions share.Permissions `json:"permissions"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
	Photos      []SharedPhoto     `json:"photos"`
}

// GetShare evaluates a share token and returns the gallery it unlocks. The
// password travels in a header or JSON body, never in the query string.
func (h *ShareHandler) GetShare(c echo.Context) error {
	var body GetShareRequest
	if err := bindOptionalJSON(c, &body); err != nil {
		return handleHTTPError(c, err)
	}

	req := access.ShareRequest{
		Token:          c.Param(paramToken),
		Password:       firstNonEmpty(c.Request().Header.Get(headerSharePassword), body.Password),
		InvitationCode: firstNonEmpty(c.Request().Header.Get(headerInvitationCode), c.QueryParam(queryInvite)),
		Visitor:        visitorFromContext(c),
	}

	grant, err := h.gate.EvaluateShare(c.Request().Context(), req)
	h.recordOutcome(err)
	if err != nil {
		var denial *access.Denial
		if errors.As(err, &denial) {
			c.Logger().Infof("share %s denied: %s", logger.TokenPrefix(req.Token), denial.Reason)
			return respondDenial(c, denial, msgShareLinkNotFound, msgShareLinkUnavailable)
		}
		return RespondWithMappedError(c, err)
	}

	photos, err := h.photos.ListByGallery(c.Request().Context(), grant.Gallery.ID)
	if err != nil {
		c.Logger().Errorf("list photos for gallery %s: %v", grant.Gallery.ID, err)
		return respondError(c, http.StatusInternalServerError, msgListPhotosFail)
	}

	return c.JSON(http.StatusOK, ShareResponse{
		Gallery:     summarize(grant.Gallery),
		Permissions: grant.Link.Permissions,
		ExpiresAt:   grant.Link.ExpiresAt,
		Photos:      h.sharedPhotos(photos, grant.Link),
	})
}

func (h *ShareHandler) sharedPhotos(photos []*photo.Photo, link *share.ShareLink) []SharedPhoto {
	out := make([]SharedPhoto, 0, len(photos))
	for _, p := range photos {
		if !p.Complete() {
			continue
		}
		sp := SharedPhoto{
			ID:           p.ID,
			OriginalName: p.OriginalName,
			Width:        p.Metadata.Width,
			Height:       p.Metadata.Height,
			ThumbnailURL: variantURL(h.baseURL, p.ID, variantThumbnail, link.Token),
			PreviewURL:   variantURL(h.baseURL, p.ID, variantPreview, link.Token),
		}
		if link.Permissions.AllowDownloads {
			sp.DownloadURL = variantURL(h.baseURL, p.ID, variantDownload, link.Token)
		}
		if link.Permissions.ShowExif {
			md := p.Metadata
			sp.Metadata = &md
		}
		out = append(out, sp)
	}
	return out
}

func (h *ShareHandler) recordOutcome(err error) {
	if h.outcomes != nil {
		h.outcomes.RecordAccessOutcome(accessOutcome(err))
	}
}

func (h *ShareHandler) audit(c echo.Context, resourceType audit.ResourceType, id uuid.UUID, action audit.Action, metadata map[string]any) {
	if h.auditLogger != nil {
		_ = h.auditLogger.LogFromContext(c, resourceType, &id, action, audit.StatusSuccess, metadata)
	}
}

func summarize(g *gallery.Gallery) GallerySummary {
	return GallerySummary{
		ID:             g.ID,
		Title:          g.Title,
		PhotographerID: g.OwnerID,
		InviteOnly:     g.InviteOnly,
	}
}

func visitorFromContext(c echo.Context) access.Visitor {
	return access.Visitor{
		IP:        c.RealIP(),
		UserAgent: c.Request().UserAgent(),
		Location:  access.LocationFromHeader(c.Request().Header),
	}
}

func variantURL(baseURL string, photoID uuid.UUID, variant, token string) string {
	return fmt.Sprintf("%s/photos/%s/%s?%s=%s", baseURL, photoID, variant, queryToken, url.QueryEscape(token))
}
