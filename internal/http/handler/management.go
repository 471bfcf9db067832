package handler

import (
	"net/http"
	"strings"
	"time"

	"gallery-service/internal/audit"
	"gallery-service/internal/auth"
	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/sharing"
	"gallery-service/internal/types"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ManagementHandler lets a photographer manage the share links and
// invitations of their own galleries. Ownership is enforced by the sharing
// service.
type ManagementHandler struct {
	shares      ShareManager
	invitations InvitationManager
	baseURL     string
	auditLogger types.AuditLogger
}

func NewManagementHandler(
	shares ShareManager,
	invitations InvitationManager,
	baseURL string,
	auditLogger types.AuditLogger,
) *ManagementHandler {
	return &ManagementHandler{
		shares:      shares,
		invitations: invitations,
		baseURL:     strings.TrimRight(baseURL, "/"),
		auditLogger: auditLogger,
	}
}

type CreateShareLinkRequest struct {
	Password    string            `json:"password"`
	ExpiresAt   *time.Time        `json:"expiresAt"`
	MaxViews    *int              `json:"maxViews"`
	Permissions share.Permissions `json:"permissions"`
}

type UpdateShareLinkRequest struct {
	Active        *bool              `json:"active"`
	ExpiresAt     *time.Time         `json:"expiresAt"`
	ClearExpiry   bool               `json:"clearExpiry"`
	MaxViews      *int               `json:"maxViews"`
	ClearMaxViews bool               `json:"clearMaxViews"`
	Password      *string            `json:"password"`
	Permissions   *share.Permissions `json:"permissions"`
}

type ShareLinkResponse struct {
	*share.ShareLink
	URL         string `json:"url"`
	HasPassword bool   `json:"hasPassword"`
}

type CreateInvitationRequest struct {
	RecipientEmail string     `json:"recipientEmail"`
	RecipientName  string     `json:"recipientName"`
	ExpiresAt      *time.Time `json:"expiresAt"`
	MaxUses        *int       `json:"maxUses"`
}

type InvitationDetailResponse struct {
	*invitation.Invitation
	URL string `json:"url"`
}

func (h *ManagementHandler) CreateShareLink(c echo.Context) error {
	userID, galleryID, err := h.ownerAndID(c, msgInvalidGalleryID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	var req CreateShareLinkRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	link, err := h.shares.CreateShareLink(c.Request().Context(), userID, galleryID, sharing.CreateShareInput{
		Password:    req.Password,
		ExpiresAt:   req.ExpiresAt,
		MaxViews:    req.MaxViews,
		Permissions: req.Permissions,
	})
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeShareLink, link.ID, audit.ActionCreate, map[string]any{
		"gallery_id":   galleryID.String(),
		"has_password": link.HasPassword(),
	})
	return c.JSON(http.StatusCreated, h.shareResponse(link))
}

func (h *ManagementHandler) ListShareLinks(c echo.Context) error {
	userID, galleryID, err := h.ownerAndID(c, msgInvalidGalleryID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	links, err := h.shares.ListShareLinks(c.Request().Context(), userID, galleryID)
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	out := make([]ShareLinkResponse, 0, len(links))
	for _, link := range links {
		out = append(out, h.shareResponse(link))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ManagementHandler) UpdateShareLink(c echo.Context) error {
	userID, id, err := h.ownerAndID(c, msgInvalidShareLinkID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	var req UpdateShareLinkRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	link, err := h.shares.UpdateShareLink(c.Request().Context(), userID, id, sharing.UpdateShareInput{
		Active:        req.Active,
		ExpiresAt:     req.ExpiresAt,
		ClearExpiry:   req.ClearExpiry,
		MaxViews:      req.MaxViews,
		ClearMaxViews: req.ClearMaxViews,
		Password:      req.Password,
		Permissions:   req.Permissions,
	})
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeShareLink, link.ID, audit.ActionUpdate, nil)
	return c.JSON(http.StatusOK, h.shareResponse(link))
}

func (h *ManagementHandler) DeactivateShareLink(c echo.Context) error {
	userID, id, err := h.ownerAndID(c, msgInvalidShareLinkID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	link, err := h.shares.DeactivateShareLink(c.Request().Context(), userID, id)
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeShareLink, link.ID, audit.ActionDeactivate, nil)
	return c.JSON(http.StatusOK, h.shareResponse(link))
}

func (h *ManagementHandler) DeleteShareLink(c echo.Context) error {
	userID, id, err := h.ownerAndID(c, msgInvalidShareLinkID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	if err := h.shares.DeleteShareLink(c.Request().Context(), userID, id); err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeShareLink, id, audit.ActionDelete, nil)
	return respondMessage(c, http.StatusOK, msgShareLinkDeleted)
}

func (h *ManagementHandler) CreateInvitation(c echo.Context) error {
	userID, galleryID, err := h.ownerAndID(c, msgInvalidGalleryID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	var req CreateInvitationRequest
	if err := bindStrictJSON(c, &req); err != nil {
		return handleHTTPError(c, err)
	}

	inv, err := h.invitations.CreateInvitation(c.Request().Context(), userID, galleryID, sharing.CreateInvitationInput{
		RecipientEmail: strings.TrimSpace(req.RecipientEmail),
		RecipientName:  strings.TrimSpace(req.RecipientName),
		ExpiresAt:      req.ExpiresAt,
		MaxUses:        req.MaxUses,
	})
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeInvitation, inv.ID, audit.ActionCreate, map[string]any{
		"gallery_id": galleryID.String(),
	})
	return c.JSON(http.StatusCreated, h.invitationResponse(inv))
}

func (h *ManagementHandler) ListInvitations(c echo.Context) error {
	userID, galleryID, err := h.ownerAndID(c, msgInvalidGalleryID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	invs, err := h.invitations.ListInvitations(c.Request().Context(), userID, galleryID)
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	out := make([]InvitationDetailResponse, 0, len(invs))
	for _, inv := range invs {
		out = append(out, h.invitationResponse(inv))
	}
	return c.JSON(http.StatusOK, out)
}

// ResendInvitation issues a fresh code; the previous one stops working.
func (h *ManagementHandler) ResendInvitation(c echo.Context) error {
	userID, id, err := h.ownerAndID(c, msgInvalidInvitationID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	inv, err := h.invitations.ResendInvitation(c.Request().Context(), userID, id)
	if err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeInvitation, inv.ID, audit.ActionResend, nil)
	return c.JSON(http.StatusOK, h.invitationResponse(inv))
}

func (h *ManagementHandler) DeactivateInvitation(c echo.Context) error {
	userID, id, err := h.ownerAndID(c, msgInvalidInvitationID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	if err := h.invitations.DeactivateInvitation(c.Request().Context(), userID, id); err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeInvitation, id, audit.ActionDeactivate, nil)
	return respondMessage(c, http.StatusOK, msgInvitationDeactivated)
}

func (h *ManagementHandler) DeleteInvitation(c echo.Context) error {
	userID, id, err := h.ownerAndID(c, msgInvalidInvitationID)
	if err != nil {
		return handleHTTPError(c, err)
	}

	if err := h.invitations.DeleteInvitation(c.Request().Context(), userID, id); err != nil {
		return RespondWithMappedError(c, err)
	}

	h.audit(c, audit.ResourceTypeInvitation, id, audit.ActionDelete, nil)
	return respondMessage(c, http.StatusOK, msgInvitationDeleted)
}

// ownerAndID returns the caller and the :id path parameter, or an
// *echo.HTTPError describing which one is unusable.
func (h *ManagementHandler) ownerAndID(c echo.Context, invalidIDMsg string) (uuid.UUID, uuid.UUID, error) {
	userID, err := auth.GetUserID(c)
	if err != nil {
		return uuid.Nil, uuid.Nil, echo.NewHTTPError(http.StatusUnauthorized, err.Error())
	}
	id, err := parseUUIDParam(c, paramID, invalidIDMsg)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, id, nil
}

func (h *ManagementHandler) shareResponse(link *share.ShareLink) ShareLinkResponse {
	return ShareLinkResponse{
		ShareLink:   link,
		URL:         h.baseURL + "/shares/" + link.Token,
		HasPassword: link.HasPassword(),
	}
}

func (h *ManagementHandler) invitationResponse(inv *invitation.Invitation) InvitationDetailResponse {
	return InvitationDetailResponse{
		Invitation: inv,
		URL:        h.baseURL + "/invitations/" + inv.Code,
	}
}

func (h *ManagementHandler) audit(c echo.Context, resourceType audit.ResourceType, id uuid.UUID, action audit.Action, metadata map[string]any) {
	if h.auditLogger != nil {
		_ = h.auditLogger.LogFromContext(c, resourceType, &id, action, audit.StatusSuccess, metadata)
	}
}
