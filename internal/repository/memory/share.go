package memory

import (
	"context"
	"sort"

	"gallery-service/internal/domain/share"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
)

const errShareLinkNotFound = "share link not found"

type ShareLinkRepository struct{ s *Store }

func copyShareLink(l *share.ShareLink) *share.ShareLink {
	out := *l
	out.ExpiresAt = copyTime(l.ExpiresAt)
	out.MaxViews = copyInt(l.MaxViews)
	out.DeletedAt = copyTime(l.DeletedAt)
	out.Stats.FirstAccessedAt = copyTime(l.Stats.FirstAccessedAt)
	out.Stats.LastAccessedAt = copyTime(l.Stats.LastAccessedAt)
	out.AccessLog = copyLog(l.AccessLog)
	return &out
}

func (r *ShareLinkRepository) Create(_ context.Context, input share.CreateShareLinkInput) (*share.ShareLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.shares {
		if existing.Token == input.Token {
			return nil, apperrors.Conflict("share token already exists")
		}
	}

	now := r.s.now()
	link := &share.ShareLink{
		ID:           uuid.New(),
		Token:        input.Token,
		GalleryID:    input.GalleryID,
		OwnerID:      input.OwnerID,
		PasswordHash: input.PasswordHash,
		Active:       true,
		ExpiresAt:    copyTime(input.ExpiresAt),
		MaxViews:     copyInt(input.MaxViews),
		Permissions:  input.Permissions,
		AccessLog:    []share.AccessLogEntry{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.s.shares[link.ID] = link
	return copyShareLink(link), nil
}

func (r *ShareLinkRepository) live(id uuid.UUID) (*share.ShareLink, error) {
	link, ok := r.s.shares[id]
	if !ok || link.IsDeleted() {
		return nil, apperrors.NotFound(errShareLinkNotFound)
	}
	return link, nil
}

func (r *ShareLinkRepository) GetByID(_ context.Context, id uuid.UUID) (*share.ShareLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return copyShareLink(link), nil
}

func (r *ShareLinkRepository) GetByToken(_ context.Context, token string) (*share.ShareLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, link := range r.s.shares {
		if link.Token == token && !link.IsDeleted() {
			return copyShareLink(link), nil
		}
	}
	return nil, apperrors.NotFound(errShareLinkNotFound)
}

func (r *ShareLinkRepository) TokenExists(_ context.Context, token string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, link := range r.s.shares {
		if link.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (r *ShareLinkRepository) ListByGallery(_ context.Context, galleryID uuid.UUID) ([]*share.ShareLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	links := make([]*share.ShareLink, 0)
	for _, link := range r.s.shares {
		if link.GalleryID == galleryID && !link.IsDeleted() {
			links = append(links, copyShareLink(link))
		}
	}
	sort.Slice(links, func(i, j int) bool { return links[i].CreatedAt.After(links[j].CreatedAt) })
	return links, nil
}

func (r *ShareLinkRepository) Update(_ context.Context, id uuid.UUID, input share.UpdateShareLinkInput) (*share.ShareLink, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link, err := r.live(id)
	if err != nil {
		return nil, err
	}

	if input.Active != nil {
		link.Active = *input.Active
	}
	switch {
	case input.ClearExpiry:
		link.ExpiresAt = nil
	case input.ExpiresAt != nil:
		link.ExpiresAt = copyTime(input.ExpiresAt)
	}
	switch {
	case input.ClearMaxViews:
		link.MaxViews = nil
	case input.MaxViews != nil:
		link.MaxViews = copyInt(input.MaxViews)
	}
	switch {
	case input.ClearPassword:
		link.PasswordHash = ""
	case input.PasswordHash != nil:
		link.PasswordHash = *input.PasswordHash
	}
	if input.Permissions != nil {
		link.Permissions = *input.Permissions
	}
	link.UpdatedAt = r.s.now()

	return copyShareLink(link), nil
}

func (r *ShareLinkRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link, err := r.live(id)
	if err != nil {
		return err
	}
	now := r.s.now()
	link.DeletedAt = &now
	link.Active = false
	link.UpdatedAt = now
	return nil
}

func (r *ShareLinkRepository) RecordAccess(_ context.Context, id uuid.UUID, entry share.AccessLogEntry) (*share.Stats, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	link, err := r.live(id)
	if err != nil {
		return nil, err
	}
	if link.IsQuotaExhausted() {
		return nil, apperrors.ErrQuotaExhausted
	}

	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = r.s.now().UTC()
	}
	at := entry.AccessedAt

	link.Stats.TotalViews++
	if share.IsUniqueVisit(link.AccessLog, entry.IP, at, share.UniqueViewWindow) {
		link.Stats.UniqueViews++
	}
	if link.Stats.FirstAccessedAt == nil {
		link.Stats.FirstAccessedAt = &at
	}
	link.Stats.LastAccessedAt = &at
	link.AccessLog = share.AppendCapped(link.AccessLog, entry, share.MaxAccessLogEntries)
	link.UpdatedAt = at

	stats := copyShareLink(link).Stats
	return &stats, nil
}
