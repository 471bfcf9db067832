package invitation

import (
	"time"

	"gallery-service/internal/domain/share"

	"github.com/google/uuid"
)

const (
	MaxUsageLogEntries = 50
	DefaultTTL         = 30 * 24 * time.Hour
)

type Invitation struct {
	ID             uuid.UUID              `json:"id"`
	Code           string                 `json:"code"`
	GalleryID      uuid.UUID              `json:"galleryId"`
	OwnerID        uuid.UUID              `json:"ownerId"`
	RecipientEmail string                 `json:"recipientEmail,omitempty"`
	RecipientName  string                 `json:"recipientName,omitempty"`
	Active         bool                   `json:"active"`
	ExpiresAt      *time.Time             `json:"expiresAt,omitempty"`
	MaxUses        *int                   `json:"maxUses,omitempty"`
	CurrentUses    int                    `json:"currentUses"`
	FirstUsedAt    *time.Time             `json:"firstUsedAt,omitempty"`
	LastUsedAt     *time.Time             `json:"lastUsedAt,omitempty"`
	UsageLog       []share.AccessLogEntry `json:"usageLog"`
	DeletedAt      *time.Time             `json:"-"`
	CreatedAt      time.Time              `json:"createdAt"`
	UpdatedAt      time.Time              `json:"updatedAt"`
}

func (i *Invitation) IsDeleted() bool {
	return i.DeletedAt != nil
}

func (i *Invitation) IsExpired(now time.Time) bool {
	return i.ExpiresAt != nil && now.After(*i.ExpiresAt)
}

func (i *Invitation) IsQuotaExhausted() bool {
	return i.MaxUses != nil && i.CurrentUses >= *i.MaxUses
}

type CreateInvitationInput struct {
	Code           string
	GalleryID      uuid.UUID
	OwnerID        uuid.UUID
	RecipientEmail string
	RecipientName  string
	ExpiresAt      *time.Time
	MaxUses        *int
}
