package share

import (
	"time"

	"github.com/google/uuid"
)

const (
	// MaxAccessLogEntries bounds ShareLink.AccessLog; oldest entries drop first.
	MaxAccessLogEntries = 100
	// UniqueViewWindow is how far back the access log is searched for a
	// previous visit from the same IP.
	UniqueViewWindow = 24 * time.Hour
)

type Permissions struct {
	AllowDownloads   bool `json:"allowDownloads"`
	ShowExif         bool `json:"showExif"`
	WatermarkEnabled bool `json:"watermarkEnabled"`
	AllowInquiries   bool `json:"allowInquiries"`
}

type AccessLogEntry struct {
	IP         string    `json:"ip"`
	UserAgent  string    `json:"userAgent"`
	Location   string    `json:"location,omitempty"`
	AccessedAt time.Time `json:"accessedAt"`
}

type Stats struct {
	TotalViews      int        `json:"totalViews"`
	UniqueViews     int        `json:"uniqueViews"`
	FirstAccessedAt *time.Time `json:"firstAccessedAt,omitempty"`
	LastAccessedAt  *time.Time `json:"lastAccessedAt,omitempty"`
}

type ShareLink struct {
	ID           uuid.UUID        `json:"id"`
	Token        string           `json:"token"`
	GalleryID    uuid.UUID        `json:"galleryId"`
	OwnerID      uuid.UUID        `json:"ownerId"`
	PasswordHash string           `json:"-"`
	Active       bool             `json:"active"`
	ExpiresAt    *time.Time       `json:"expiresAt,omitempty"`
	MaxViews     *int             `json:"maxViews,omitempty"`
	Permissions  Permissions      `json:"permissions"`
	Stats        Stats            `json:"stats"`
	AccessLog    []AccessLogEntry `json:"accessLog"`
	DeletedAt    *time.Time       `json:"-"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// HasPassword mirrors presence of the stored hash; there is no separate flag
// that could drift from it.
func (l *ShareLink) HasPassword() bool {
	return l.PasswordHash != ""
}

func (l *ShareLink) IsDeleted() bool {
	return l.DeletedAt != nil
}

func (l *ShareLink) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

func (l *ShareLink) IsQuotaExhausted() bool {
	return l.MaxViews != nil && l.Stats.TotalViews >= *l.MaxViews
}

type CreateShareLinkInput struct {
	Token        string
	GalleryID    uuid.UUID
	OwnerID      uuid.UUID
	PasswordHash string
	ExpiresAt    *time.Time
	MaxViews     *int
	Permissions  Permissions
}

// UpdateShareLinkInput leaves nil fields untouched. ClearPassword wins over
// PasswordHash; ClearExpiry and ClearMaxViews likewise.
type UpdateShareLinkInput struct {
	Active        *bool
	ExpiresAt     *time.Time
	ClearExpiry   bool
	MaxViews      *int
	ClearMaxViews bool
	PasswordHash  *string
	ClearPassword bool
	Permissions   *Permissions
}

// IsUniqueVisit reports whether no entry from ip exists in log within window
// before now. Only the bounded log is consulted, so visits older than the
// retained entries are counted as unique again.
func IsUniqueVisit(log []AccessLogEntry, ip string, now time.Time, window time.Duration) bool {
	cutoff := now.Add(-window)
	for _, entry := range log {
		if entry.IP == ip && entry.AccessedAt.After(cutoff) {
			return false
		}
	}
	return true
}

// AppendCapped appends entry and keeps the most recent limit entries.
func AppendCapped(log []AccessLogEntry, entry AccessLogEntry, limit int) []AccessLogEntry {
	out := make([]AccessLogEntry, 0, len(log)+1)
	out = append(out, log...)
	out = append(out, entry)
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out
}
