// Package sharing manages share links and invitations on behalf of a
// gallery's owner.
package sharing

import (
	"context"
	"time"

	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/repository"
	apperrors "gallery-service/pkg/errors"
	"gallery-service/pkg/validator"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

const (
	errNotGalleryOwner    = "gallery is not owned by the caller"
	errMaxViewsPositive   = "maxViews must be at least 1"
	errMaxUsesPositive    = "maxUses must be at least 1"
	errExpiryInPast       = "expiresAt must be in the future"
	errHashSharePassword  = "failed to hash share password"
	errShareLinkNotFound  = "share link not found"
	errInvitationNotFound = "invitation not found"
)

type TokenIssuer interface {
	CreateWithShareToken(ctx context.Context, insert func(token string) error) error
	CreateWithInvitationCode(ctx context.Context, insert func(code string) error) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
}

type Config struct {
	InvitationTTL     time.Duration
	InvitationMaxUses int
}

type Service struct {
	galleries   repository.GalleryRepository
	shares      repository.ShareLinkRepository
	invitations repository.InvitationRepository
	issuer      TokenIssuer
	hasher      PasswordHasher
	cfg         Config
	now         func() time.Time
	logger      *log.Logger
}

func NewService(
	galleries repository.GalleryRepository,
	shares repository.ShareLinkRepository,
	invitations repository.InvitationRepository,
	issuer TokenIssuer,
	hasher PasswordHasher,
	cfg Config,
) *Service {
	if cfg.InvitationTTL <= 0 {
		cfg.InvitationTTL = invitation.DefaultTTL
	}
	return &Service{
		galleries:   galleries,
		shares:      shares,
		invitations: invitations,
		issuer:      issuer,
		hasher:      hasher,
		cfg:         cfg,
		now:         time.Now,
		logger:      log.New("sharing"),
	}
}

type CreateShareInput struct {
	Password    string
	ExpiresAt   *time.Time
	MaxViews    *int
	Permissions share.Permissions
}

// UpdateShareInput leaves nil fields untouched. A non-nil empty Password
// removes protection.
type UpdateShareInput struct {
	Active        *bool
	ExpiresAt     *time.Time
	ClearExpiry   bool
	MaxViews      *int
	ClearMaxViews bool
	Password      *string
	Permissions   *share.Permissions
}

type CreateInvitationInput struct {
	RecipientEmail string
	RecipientName  string
	ExpiresAt      *time.Time
	MaxUses        *int
}

func (s *Service) ownedGallery(ctx context.Context, ownerID, galleryID uuid.UUID) (*gallery.Gallery, error) {
	g, err := s.galleries.GetByID(ctx, galleryID)
	if err != nil {
		return nil, err
	}
	if g.OwnerID != ownerID {
		return nil, apperrors.Forbidden(errNotGalleryOwner)
	}
	return g, nil
}

func (s *Service) validateExpiry(expiresAt *time.Time) error {
	if expiresAt != nil && !expiresAt.After(s.now()) {
		return apperrors.Validation(errExpiryInPast)
	}
	return nil
}

func (s *Service) hashPassword(plain string) (string, error) {
	if err := validator.SharePassword(plain); err != nil {
		return "", apperrors.Validation(err.Error())
	}
	hash, err := s.hasher.Hash(plain)
	if err != nil {
		return "", apperrors.InternalServer(errHashSharePassword, err)
	}
	return hash, nil
}

func (s *Service) CreateShareLink(ctx context.Context, ownerID, galleryID uuid.UUID, input CreateShareInput) (*share.ShareLink, error) {
	if _, err := s.ownedGallery(ctx, ownerID, galleryID); err != nil {
		return nil, err
	}
	if input.MaxViews != nil && *input.MaxViews < 1 {
		return nil, apperrors.Validation(errMaxViewsPositive)
	}
	if err := s.validateExpiry(input.ExpiresAt); err != nil {
		return nil, err
	}

	var passwordHash string
	if input.Password != "" {
		hash, err := s.hashPassword(input.Password)
		if err != nil {
			return nil, err
		}
		passwordHash = hash
	}

	var link *share.ShareLink
	err := s.issuer.CreateWithShareToken(ctx, func(tok string) error {
		created, err := s.shares.Create(ctx, share.CreateShareLinkInput{
			Token:        tok,
			GalleryID:    galleryID,
			OwnerID:      ownerID,
			PasswordHash: passwordHash,
			ExpiresAt:    input.ExpiresAt,
			MaxViews:     input.MaxViews,
			Permissions:  input.Permissions,
		})
		link = created
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("share link %s created for gallery %s", link.ID, galleryID)
	return link, nil
}

func (s *Service) ownedShareLink(ctx context.Context, ownerID, id uuid.UUID) (*share.ShareLink, error) {
	link, err := s.shares.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if link.OwnerID != ownerID {
		// Foreign links are indistinguishable from missing ones.
		return nil, apperrors.NotFound(errShareLinkNotFound)
	}
	return link, nil
}

func (s *Service) UpdateShareLink(ctx context.Context, ownerID, id uuid.UUID, input UpdateShareInput) (*share.ShareLink, error) {
	if _, err := s.ownedShareLink(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if input.MaxViews != nil && *input.MaxViews < 1 {
		return nil, apperrors.Validation(errMaxViewsPositive)
	}
	if !input.ClearExpiry {
		if err := s.validateExpiry(input.ExpiresAt); err != nil {
			return nil, err
		}
	}

	update := share.UpdateShareLinkInput{
		Active:        input.Active,
		ExpiresAt:     input.ExpiresAt,
		ClearExpiry:   input.ClearExpiry,
		MaxViews:      input.MaxViews,
		ClearMaxViews: input.ClearMaxViews,
		Permissions:   input.Permissions,
	}
	if input.Password != nil {
		if *input.Password == "" {
			update.ClearPassword = true
		} else {
			hash, err := s.hashPassword(*input.Password)
			if err != nil {
				return nil, err
			}
			update.PasswordHash = &hash
		}
	}

	return s.shares.Update(ctx, id, update)
}

func (s *Service) DeactivateShareLink(ctx context.Context, ownerID, id uuid.UUID) (*share.ShareLink, error) {
	inactive := false
	return s.UpdateShareLink(ctx, ownerID, id, UpdateShareInput{Active: &inactive})
}

func (s *Service) DeleteShareLink(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.ownedShareLink(ctx, ownerID, id); err != nil {
		return err
	}
	if err := s.shares.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.logger.Infof("share link %s deleted", id)
	return nil
}

func (s *Service) ListShareLinks(ctx context.Context, ownerID, galleryID uuid.UUID) ([]*share.ShareLink, error) {
	if _, err := s.ownedGallery(ctx, ownerID, galleryID); err != nil {
		return nil, err
	}
	return s.shares.ListByGallery(ctx, galleryID)
}

func (s *Service) CreateInvitation(ctx context.Context, ownerID, galleryID uuid.UUID, input CreateInvitationInput) (*invitation.Invitation, error) {
	if _, err := s.ownedGallery(ctx, ownerID, galleryID); err != nil {
		return nil, err
	}
	if input.RecipientEmail != "" {
		if err := validator.Email(input.RecipientEmail); err != nil {
			return nil, apperrors.Validation(err.Error())
		}
	}
	if err := validator.RecipientName(input.RecipientName); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if err := s.validateExpiry(input.ExpiresAt); err != nil {
		return nil, err
	}

	maxUses := input.MaxUses
	if maxUses == nil && s.cfg.InvitationMaxUses > 0 {
		defaultUses := s.cfg.InvitationMaxUses
		maxUses = &defaultUses
	}
	if maxUses != nil && *maxUses < 1 {
		return nil, apperrors.Validation(errMaxUsesPositive)
	}

	expiresAt := input.ExpiresAt
	if expiresAt == nil {
		defaultExpiry := s.now().Add(s.cfg.InvitationTTL)
		expiresAt = &defaultExpiry
	}

	var inv *invitation.Invitation
	err := s.issuer.CreateWithInvitationCode(ctx, func(code string) error {
		created, err := s.invitations.Create(ctx, invitation.CreateInvitationInput{
			Code:           code,
			GalleryID:      galleryID,
			OwnerID:        ownerID,
			RecipientEmail: input.RecipientEmail,
			RecipientName:  input.RecipientName,
			ExpiresAt:      expiresAt,
			MaxUses:        maxUses,
		})
		inv = created
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("invitation %s created for gallery %s", inv.ID, galleryID)
	return inv, nil
}

func (s *Service) ownedInvitation(ctx context.Context, ownerID, id uuid.UUID) (*invitation.Invitation, error) {
	inv, err := s.invitations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if inv.OwnerID != ownerID {
		return nil, apperrors.NotFound(errInvitationNotFound)
	}
	return inv, nil
}

// ResendInvitation retires the current code, issues a new one and restarts
// the expiry window. Delivering the new code is the caller's concern.
func (s *Service) ResendInvitation(ctx context.Context, ownerID, id uuid.UUID) (*invitation.Invitation, error) {
	if _, err := s.ownedInvitation(ctx, ownerID, id); err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.cfg.InvitationTTL)

	var inv *invitation.Invitation
	err := s.issuer.CreateWithInvitationCode(ctx, func(code string) error {
		replaced, err := s.invitations.ReplaceCode(ctx, id, code, &expiresAt)
		inv = replaced
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Infof("invitation %s reissued", id)
	return inv, nil
}

func (s *Service) DeactivateInvitation(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.ownedInvitation(ctx, ownerID, id); err != nil {
		return err
	}
	return s.invitations.SetActive(ctx, id, false)
}

func (s *Service) DeleteInvitation(ctx context.Context, ownerID, id uuid.UUID) error {
	if _, err := s.ownedInvitation(ctx, ownerID, id); err != nil {
		return err
	}
	return s.invitations.SoftDelete(ctx, id)
}

func (s *Service) ListInvitations(ctx context.Context, ownerID, galleryID uuid.UUID) ([]*invitation.Invitation, error) {
	if _, err := s.ownedGallery(ctx, ownerID, galleryID); err != nil {
		return nil, err
	}
	return s.invitations.ListByGallery(ctx, galleryID)
}
