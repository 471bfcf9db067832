// Package memory implements the repository interfaces in process memory.
// Every mutation happens under one lock, which gives RecordAccess and
// RecordUse the same all-or-nothing behaviour as the Postgres statements.
package memory

import (
	"context"
	"sync"
	"time"

	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/photo"
	"gallery-service/internal/domain/share"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
)

type Store struct {
	mu          sync.Mutex
	now         func() time.Time
	galleries   map[uuid.UUID]*gallery.Gallery
	photos      map[uuid.UUID]*photo.Photo
	shares      map[uuid.UUID]*share.ShareLink
	invitations map[uuid.UUID]*invitation.Invitation
}

func NewStore() *Store {
	return &Store{
		now:         time.Now,
		galleries:   make(map[uuid.UUID]*gallery.Gallery),
		photos:      make(map[uuid.UUID]*photo.Photo),
		shares:      make(map[uuid.UUID]*share.ShareLink),
		invitations: make(map[uuid.UUID]*invitation.Invitation),
	}
}

// SetClock overrides the time source used for timestamps.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// PutGallery inserts or replaces a gallery.
func (s *Store) PutGallery(g gallery.Gallery) *gallery.Gallery {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	s.galleries[g.ID] = &g
	out := g
	return &out
}

func (s *Store) Galleries() *GalleryRepository {
	return &GalleryRepository{s: s}
}

func (s *Store) Photos() *PhotoRepository {
	return &PhotoRepository{s: s}
}

func (s *Store) ShareLinks() *ShareLinkRepository {
	return &ShareLinkRepository{s: s}
}

func (s *Store) Invitations() *InvitationRepository {
	return &InvitationRepository{s: s}
}

type GalleryRepository struct{ s *Store }

func (r *GalleryRepository) GetByID(_ context.Context, id uuid.UUID) (*gallery.Gallery, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	g, ok := r.s.galleries[id]
	if !ok || g.IsDeleted() {
		return nil, apperrors.NotFound("gallery not found")
	}
	out := *g
	return &out, nil
}

func copyLog(log []share.AccessLogEntry) []share.AccessLogEntry {
	out := make([]share.AccessLogEntry, len(log))
	copy(out, log)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func copyInt(i *int) *int {
	if i == nil {
		return nil
	}
	v := *i
	return &v
}
