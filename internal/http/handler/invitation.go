package handler

import (
	"errors"
	"net/http"
	"time"

	"gallery-service/internal/access"
	"gallery-service/internal/audit"
	"gallery-service/pkg/logger"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// InvitationSummary omits RemainingUses for unlimited invitations.
type InvitationSummary struct {
	RecipientName string     `json:"recipientName,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	RemainingUses *int       `json:"remainingUses,omitempty"`
}

type InvitationResponse struct {
	GalleryID  uuid.UUID         `json:"galleryId"`
	Gallery    GallerySummary    `json:"gallery"`
	Invitation InvitationSummary `json:"invitation"`
}

// ValidateInvitation checks a code without consuming a use.
func (h *ShareHandler) ValidateInvitation(c echo.Context) error {
	return h.evaluateInvitation(c, false)
}

// UseInvitation consumes one use of a code and records the visit.
func (h *ShareHandler) UseInvitation(c echo.Context) error {
	return h.evaluateInvitation(c, true)
}

func (h *ShareHandler) evaluateInvitation(c echo.Context, consume bool) error {
	code := c.Param(paramCode)
	grant, err := h.gate.EvaluateInvitation(c.Request().Context(), access.InvitationRequest{
		Code:    code,
		Visitor: visitorFromContext(c),
		Consume: consume,
	})
	if consume {
		h.recordOutcome(err)
	}
	if err != nil {
		var denial *access.Denial
		if errors.As(err, &denial) {
			c.Logger().Infof("invitation %s denied: %s", logger.TokenPrefix(code), denial.Reason)
			return respondDenial(c, denial, msgInvitationNotFound, msgInvitationUnavailable)
		}
		return RespondWithMappedError(c, err)
	}

	inv := grant.Invitation
	if consume {
		h.audit(c, audit.ResourceTypeInvitation, inv.ID, audit.ActionUse, map[string]any{
			"gallery_id": inv.GalleryID.String(),
			"uses":       inv.CurrentUses,
		})
	}

	summary := InvitationSummary{
		RecipientName: inv.RecipientName,
		ExpiresAt:     inv.ExpiresAt,
	}
	if inv.MaxUses != nil {
		remaining := *inv.MaxUses - inv.CurrentUses
		if remaining < 0 {
			remaining = 0
		}
		summary.RemainingUses = &remaining
	}

	return c.JSON(http.StatusOK, InvitationResponse{
		GalleryID:  grant.Gallery.ID,
		Gallery:    summarize(grant.Gallery),
		Invitation: summary,
	})
}
