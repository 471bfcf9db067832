package repository

import (
	"context"
	"time"

	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/photo"
	"gallery-service/internal/domain/share"

	"github.com/google/uuid"
)

// GalleryRepository reads galleries owned by the surrounding application.
type GalleryRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*gallery.Gallery, error)
}

// PhotoRepository defines photo metadata access operations
type PhotoRepository interface {
	Create(ctx context.Context, input photo.CreatePhotoInput) (*photo.Photo, error)
	GetByID(ctx context.Context, id uuid.UUID) (*photo.Photo, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]*photo.Photo, error)
}

// ShareLinkRepository defines share link data access operations.
// Soft-deleted links are invisible to every read.
type ShareLinkRepository interface {
	Create(ctx context.Context, input share.CreateShareLinkInput) (*share.ShareLink, error)
	GetByID(ctx context.Context, id uuid.UUID) (*share.ShareLink, error)
	GetByToken(ctx context.Context, token string) (*share.ShareLink, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]*share.ShareLink, error)
	Update(ctx context.Context, id uuid.UUID, input share.UpdateShareLinkInput) (*share.ShareLink, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// RecordAccess applies one view in a single atomic operation: counters,
	// unique-view dedup, timestamps and the capped log. It fails with
	// ErrQuotaExhausted when max views was reached before the increment.
	RecordAccess(ctx context.Context, id uuid.UUID, entry share.AccessLogEntry) (*share.Stats, error)
}

// InvitationRepository defines invitation data access operations
type InvitationRepository interface {
	Create(ctx context.Context, input invitation.CreateInvitationInput) (*invitation.Invitation, error)
	GetByID(ctx context.Context, id uuid.UUID) (*invitation.Invitation, error)
	GetByCode(ctx context.Context, code string) (*invitation.Invitation, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]*invitation.Invitation, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) error
	// ReplaceCode swaps in a freshly issued code and expiry; the old code
	// stops resolving immediately.
	ReplaceCode(ctx context.Context, id uuid.UUID, code string, expiresAt *time.Time) (*invitation.Invitation, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// RecordUse is the invitation counterpart of ShareLinkRepository.RecordAccess.
	RecordUse(ctx context.Context, id uuid.UUID, entry share.AccessLogEntry) (*invitation.Invitation, error)
}
