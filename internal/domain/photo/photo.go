package photo

import (
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleOriginal    Role = "original"
	RolePreview     Role = "preview"
	RoleThumbnail   Role = "thumbnail"
	RoleWatermarked Role = "watermarked"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOriginal, RolePreview, RoleThumbnail, RoleWatermarked:
		return true
	}
	return false
}

// Derived reports whether the role is a rendition rather than the upload.
func (r Role) Derived() bool {
	return r != RoleOriginal
}

type Variant struct {
	Role   Role   `json:"role"`
	Key    string `json:"key"`
	URL    string `json:"url,omitempty"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Size   int64  `json:"size"`
}

type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Metadata fields are absent when the source carries no such information.
type Metadata struct {
	Width        int        `json:"width"`
	Height       int        `json:"height"`
	Format       string     `json:"format,omitempty"`
	CameraMake   string     `json:"cameraMake,omitempty"`
	CameraModel  string     `json:"cameraModel,omitempty"`
	Lens         string     `json:"lens,omitempty"`
	FocalLength  *float64   `json:"focalLength,omitempty"`
	ExposureTime string     `json:"exposureTime,omitempty"`
	FNumber      *float64   `json:"fNumber,omitempty"`
	ISO          *int       `json:"iso,omitempty"`
	CapturedAt   *time.Time `json:"capturedAt,omitempty"`
	GPS          *GPS       `json:"gps,omitempty"`
}

type Photo struct {
	ID           uuid.UUID `json:"id"`
	GalleryID    uuid.UUID `json:"galleryId"`
	OwnerID      uuid.UUID `json:"ownerId"`
	OriginalName string    `json:"originalName"`
	StorageType  string    `json:"storageType"`
	Original     Variant   `json:"original"`
	Preview      Variant   `json:"preview"`
	Thumbnail    Variant   `json:"thumbnail"`
	Watermarked  *Variant  `json:"watermarked,omitempty"`
	Metadata     Metadata  `json:"metadata"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Variant returns the stored variant for role, if the photo has one.
func (p *Photo) Variant(role Role) (Variant, bool) {
	switch role {
	case RoleOriginal:
		return p.Original, p.Original.Key != ""
	case RolePreview:
		return p.Preview, p.Preview.Key != ""
	case RoleThumbnail:
		return p.Thumbnail, p.Thumbnail.Key != ""
	case RoleWatermarked:
		if p.Watermarked == nil {
			return Variant{}, false
		}
		return *p.Watermarked, p.Watermarked.Key != ""
	}
	return Variant{}, false
}

// Complete reports whether the required variants are all present.
func (p *Photo) Complete() bool {
	return p.Original.Key != "" && p.Preview.Key != "" && p.Thumbnail.Key != ""
}

type CreatePhotoInput struct {
	ID           uuid.UUID
	GalleryID    uuid.UUID
	OwnerID      uuid.UUID
	OriginalName string
	StorageType  string
	Original     Variant
	Preview      Variant
	Thumbnail    Variant
	Watermarked  *Variant
	Metadata     Metadata
}
