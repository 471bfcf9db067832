// Package access decides whether a share link or invitation request is
// granted and records granted requests.
//
// Checks run in a fixed order: existence, active flag, expiry, quota, then
// the invitation gate and finally the password. A caller therefore never
// learns that a link is password protected unless the link is otherwise
// usable.
package access

import (
	"context"
	"errors"
	"time"

	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/token"
	apperrors "gallery-service/pkg/errors"
	"gallery-service/pkg/password"

	"github.com/google/uuid"
)

type ShareLinkLookup interface {
	GetByToken(ctx context.Context, token string) (*share.ShareLink, error)
}

type InvitationLookup interface {
	GetByCode(ctx context.Context, code string) (*invitation.Invitation, error)
}

type GalleryLookup interface {
	GetByID(ctx context.Context, id uuid.UUID) (*gallery.Gallery, error)
}

type ShareRequest struct {
	Token          string
	Password       string
	InvitationCode string
	Visitor        Visitor
}

type ShareGrant struct {
	Link    *share.ShareLink
	Gallery *gallery.Gallery
}

type InvitationRequest struct {
	Code    string
	Visitor Visitor
	// Consume records a use; validation alone leaves counters untouched.
	Consume bool
}

type InvitationGrant struct {
	Invitation *invitation.Invitation
	Gallery    *gallery.Gallery
}

type Gate struct {
	shares      ShareLinkLookup
	invitations InvitationLookup
	galleries   GalleryLookup
	recorder    *Recorder
	verify      func(plain, hash string) bool
	now         func() time.Time
}

func NewGate(shares ShareLinkLookup, invitations InvitationLookup, galleries GalleryLookup, recorder *Recorder) *Gate {
	return &Gate{
		shares:      shares,
		invitations: invitations,
		galleries:   galleries,
		recorder:    recorder,
		verify:      password.NewHasher(password.DefaultCost).Verify,
		now:         time.Now,
	}
}

// EvaluateShare returns a grant or an error. A *Denial means the request was
// refused; any other error is an infrastructure failure.
func (g *Gate) EvaluateShare(ctx context.Context, req ShareRequest) (*ShareGrant, error) {
	link, err := g.resolveShare(ctx, req.Token, true)
	if err != nil {
		g.equalise(req.Password)
		return nil, err
	}

	gal, err := g.galleries.GetByID(ctx, link.GalleryID)
	if err != nil {
		g.equalise(req.Password)
		return nil, notFoundOr(err)
	}

	if gal.InviteOnly {
		if req.InvitationCode == "" {
			g.equalise(req.Password)
			return nil, deny(ReasonInvitationRequired)
		}
		inv, err := g.resolveInvitation(ctx, req.InvitationCode)
		if err != nil {
			var denial *Denial
			if !errors.As(err, &denial) {
				return nil, err
			}
			g.equalise(req.Password)
			return nil, deny(ReasonInvitationInvalid)
		}
		if inv.GalleryID != gal.ID {
			g.equalise(req.Password)
			return nil, deny(ReasonInvitationInvalid)
		}
	}

	if link.HasPassword() {
		if req.Password == "" {
			return nil, deny(ReasonPasswordRequired)
		}
		if !g.verify(req.Password, link.PasswordHash) {
			return nil, deny(ReasonPasswordInvalid)
		}
	} else {
		g.equalise(req.Password)
	}

	stats, err := g.recorder.RecordShareAccess(ctx, link.ID, req.Visitor)
	if err != nil {
		return nil, recordFailure(err)
	}
	link.Stats = *stats

	return &ShareGrant{Link: link, Gallery: gal}, nil
}

// EvaluateInvitation runs the first four checks for an invitation code and,
// when req.Consume is set, records one use.
func (g *Gate) EvaluateInvitation(ctx context.Context, req InvitationRequest) (*InvitationGrant, error) {
	inv, err := g.resolveInvitation(ctx, req.Code)
	if err != nil {
		return nil, err
	}

	gal, err := g.galleries.GetByID(ctx, inv.GalleryID)
	if err != nil {
		return nil, notFoundOr(err)
	}

	if req.Consume {
		updated, err := g.recorder.RecordInvitationUse(ctx, inv.ID, req.Visitor)
		if err != nil {
			return nil, recordFailure(err)
		}
		inv = updated
	}

	return &InvitationGrant{Invitation: inv, Gallery: gal}, nil
}

// AuthorizeVariant checks a token presented with an image request. Photo IDs
// are only disclosed through a granted share, so the password and invitation
// gates are not repeated, and nothing is recorded. Quota is not checked
// either: the view that exhausted it must still be able to load its images.
func (g *Gate) AuthorizeVariant(ctx context.Context, tok string) (*share.ShareLink, error) {
	return g.resolveShare(ctx, tok, false)
}

func (g *Gate) resolveShare(ctx context.Context, tok string, checkQuota bool) (*share.ShareLink, error) {
	if !token.ValidShareTokenFormat(tok) {
		return nil, deny(ReasonNotFound)
	}

	link, err := g.shares.GetByToken(ctx, tok)
	if err != nil {
		return nil, notFoundOr(err)
	}

	now := g.now()
	switch {
	case link.IsDeleted():
		return nil, deny(ReasonNotFound)
	case !link.Active:
		return nil, deny(ReasonInactive)
	case link.IsExpired(now):
		return nil, deny(ReasonExpired)
	case checkQuota && link.IsQuotaExhausted():
		return nil, deny(ReasonQuotaExhausted)
	}
	return link, nil
}

func (g *Gate) resolveInvitation(ctx context.Context, code string) (*invitation.Invitation, error) {
	if !token.ValidInvitationCodeFormat(code) {
		return nil, deny(ReasonNotFound)
	}

	inv, err := g.invitations.GetByCode(ctx, code)
	if err != nil {
		return nil, notFoundOr(err)
	}

	now := g.now()
	switch {
	case inv.IsDeleted():
		return nil, deny(ReasonNotFound)
	case !inv.Active:
		return nil, deny(ReasonInactive)
	case inv.IsExpired(now):
		return nil, deny(ReasonExpired)
	case inv.IsQuotaExhausted():
		return nil, deny(ReasonQuotaExhausted)
	}
	return inv, nil
}

// equalise burns one bcrypt comparison when a supplied password would
// otherwise go unchecked, so response time does not reveal which branch ran.
func (g *Gate) equalise(plain string) {
	if plain != "" {
		g.verify(plain, "")
	}
}

func notFoundOr(err error) error {
	if errors.Is(err, apperrors.ErrNotFound) {
		return deny(ReasonNotFound)
	}
	return err
}

// recordFailure maps the outcome of the conditional increment. Losing the
// race for the last view is a quota denial, not an error.
func recordFailure(err error) error {
	switch {
	case errors.Is(err, apperrors.ErrQuotaExhausted):
		return deny(ReasonQuotaExhausted)
	case errors.Is(err, apperrors.ErrNotFound):
		return deny(ReasonNotFound)
	}
	return err
}
