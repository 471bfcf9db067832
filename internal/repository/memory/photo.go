package memory

import (
	"context"
	"sort"

	"gallery-service/internal/domain/photo"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
)

type PhotoRepository struct{ s *Store }

func copyPhoto(p *photo.Photo) *photo.Photo {
	out := *p
	if p.Watermarked != nil {
		w := *p.Watermarked
		out.Watermarked = &w
	}
	return &out
}

func (r *PhotoRepository) Create(_ context.Context, input photo.CreatePhotoInput) (*photo.Photo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, exists := r.s.photos[id]; exists {
		return nil, apperrors.Conflict("photo already exists")
	}

	p := &photo.Photo{
		ID:           id,
		GalleryID:    input.GalleryID,
		OwnerID:      input.OwnerID,
		OriginalName: input.OriginalName,
		StorageType:  input.StorageType,
		Original:     input.Original,
		Preview:      input.Preview,
		Thumbnail:    input.Thumbnail,
		Watermarked:  input.Watermarked,
		Metadata:     input.Metadata,
		CreatedAt:    r.s.now(),
	}
	r.s.photos[id] = copyPhoto(p)
	return p, nil
}

func (r *PhotoRepository) GetByID(_ context.Context, id uuid.UUID) (*photo.Photo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.photos[id]
	if !ok {
		return nil, apperrors.NotFound("photo not found")
	}
	return copyPhoto(p), nil
}

func (r *PhotoRepository) ListByGallery(_ context.Context, galleryID uuid.UUID) ([]*photo.Photo, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	photos := make([]*photo.Photo, 0)
	for _, p := range r.s.photos {
		if p.GalleryID == galleryID {
			photos = append(photos, copyPhoto(p))
		}
	}
	sort.Slice(photos, func(i, j int) bool { return photos[i].CreatedAt.Before(photos[j].CreatedAt) })
	return photos, nil
}

// Len is the number of stored photos.
func (r *PhotoRepository) Len() int {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return len(r.s.photos)
}
