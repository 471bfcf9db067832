package handler

import (
	"context"

	"gallery-service/internal/access"
	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/photo"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/sharing"
	"gallery-service/internal/storage"
	"gallery-service/internal/upload"

	"github.com/google/uuid"
)

// Consumer-side interfaces defined by handlers
// Each interface contains only the methods needed by the specific handler

// ShareAccessHandler and VariantHandler interfaces
type AccessGate interface {
	EvaluateShare(ctx context.Context, req access.ShareRequest) (*access.ShareGrant, error)
	EvaluateInvitation(ctx context.Context, req access.InvitationRequest) (*access.InvitationGrant, error)
	AuthorizeVariant(ctx context.Context, token string) (*share.ShareLink, error)
}

type PhotoReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*photo.Photo, error)
	ListByGallery(ctx context.Context, galleryID uuid.UUID) ([]*photo.Photo, error)
}

type BackendResolver interface {
	Backend(ctx context.Context, storageType string) (storage.Backend, error)
}

// UploadHandler interfaces
type GalleryGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*gallery.Gallery, error)
}

type BatchUploader interface {
	UploadBatch(ctx context.Context, galleryID, ownerID uuid.UUID, files []upload.File) *upload.BatchResult
}

// ManagementHandler interfaces
type ShareManager interface {
	CreateShareLink(ctx context.Context, ownerID, galleryID uuid.UUID, input sharing.CreateShareInput) (*share.ShareLink, error)
	UpdateShareLink(ctx context.Context, ownerID, id uuid.UUID, input sharing.UpdateShareInput) (*share.ShareLink, error)
	DeactivateShareLink(ctx context.Context, ownerID, id uuid.UUID) (*share.ShareLink, error)
	DeleteShareLink(ctx context.Context, ownerID, id uuid.UUID) error
	ListShareLinks(ctx context.Context, ownerID, galleryID uuid.UUID) ([]*share.ShareLink, error)
}

type InvitationManager interface {
	CreateInvitation(ctx context.Context, ownerID, galleryID uuid.UUID, input sharing.CreateInvitationInput) (*invitation.Invitation, error)
	ResendInvitation(ctx context.Context, ownerID, id uuid.UUID) (*invitation.Invitation, error)
	DeactivateInvitation(ctx context.Context, ownerID, id uuid.UUID) error
	DeleteInvitation(ctx context.Context, ownerID, id uuid.UUID) error
	ListInvitations(ctx context.Context, ownerID, galleryID uuid.UUID) ([]*invitation.Invitation, error)
}
