package memory

import (
	"context"
	"sort"
	"time"

	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"
	apperrors "gallery-service/pkg/errors"

	"github.com/google/uuid"
)

const errInvitationNotFound = "invitation not found"

type InvitationRepository struct{ s *Store }

func copyInvitation(i *invitation.Invitation) *invitation.Invitation {
	out := *i
	out.ExpiresAt = copyTime(i.ExpiresAt)
	out.MaxUses = copyInt(i.MaxUses)
	out.FirstUsedAt = copyTime(i.FirstUsedAt)
	out.LastUsedAt = copyTime(i.LastUsedAt)
	out.DeletedAt = copyTime(i.DeletedAt)
	out.UsageLog = copyLog(i.UsageLog)
	return &out
}

func (r *InvitationRepository) codeTaken(code string) bool {
	for _, existing := range r.s.invitations {
		if existing.Code == code {
			return true
		}
	}
	return false
}

func (r *InvitationRepository) live(id uuid.UUID) (*invitation.Invitation, error) {
	inv, ok := r.s.invitations[id]
	if !ok || inv.IsDeleted() {
		return nil, apperrors.NotFound(errInvitationNotFound)
	}
	return inv, nil
}

func (r *InvitationRepository) Create(_ context.Context, input invitation.CreateInvitationInput) (*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.codeTaken(input.Code) {
		return nil, apperrors.Conflict("invitation code already exists")
	}

	now := r.s.now()
	inv := &invitation.Invitation{
		ID:             uuid.New(),
		Code:           input.Code,
		GalleryID:      input.GalleryID,
		OwnerID:        input.OwnerID,
		RecipientEmail: input.RecipientEmail,
		RecipientName:  input.RecipientName,
		Active:         true,
		ExpiresAt:      copyTime(input.ExpiresAt),
		MaxUses:        copyInt(input.MaxUses),
		UsageLog:       []share.AccessLogEntry{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.s.invitations[inv.ID] = inv
	return copyInvitation(inv), nil
}

func (r *InvitationRepository) GetByID(_ context.Context, id uuid.UUID) (*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.live(id)
	if err != nil {
		return nil, err
	}
	return copyInvitation(inv), nil
}

func (r *InvitationRepository) GetByCode(_ context.Context, code string) (*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, inv := range r.s.invitations {
		if inv.Code == code && !inv.IsDeleted() {
			return copyInvitation(inv), nil
		}
	}
	return nil, apperrors.NotFound(errInvitationNotFound)
}

func (r *InvitationRepository) CodeExists(_ context.Context, code string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.codeTaken(code), nil
}

func (r *InvitationRepository) ListByGallery(_ context.Context, galleryID uuid.UUID) ([]*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*invitation.Invitation, 0)
	for _, inv := range r.s.invitations {
		if inv.GalleryID == galleryID && !inv.IsDeleted() {
			out = append(out, copyInvitation(inv))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *InvitationRepository) SetActive(_ context.Context, id uuid.UUID, active bool) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.live(id)
	if err != nil {
		return err
	}
	inv.Active = active
	inv.UpdatedAt = r.s.now()
	return nil
}

func (r *InvitationRepository) ReplaceCode(_ context.Context, id uuid.UUID, code string, expiresAt *time.Time) (*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.live(id)
	if err != nil {
		return nil, err
	}
	if r.codeTaken(code) {
		return nil, apperrors.Conflict("invitation code already exists")
	}
	inv.Code = code
	inv.ExpiresAt = copyTime(expiresAt)
	inv.Active = true
	inv.UpdatedAt = r.s.now()
	return copyInvitation(inv), nil
}

func (r *InvitationRepository) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.live(id)
	if err != nil {
		return err
	}
	now := r.s.now()
	inv.DeletedAt = &now
	inv.Active = false
	inv.UpdatedAt = now
	return nil
}

func (r *InvitationRepository) RecordUse(_ context.Context, id uuid.UUID, entry share.AccessLogEntry) (*invitation.Invitation, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	inv, err := r.live(id)
	if err != nil {
		return nil, err
	}
	if inv.IsQuotaExhausted() {
		return nil, apperrors.ErrQuotaExhausted
	}

	if entry.AccessedAt.IsZero() {
		entry.AccessedAt = r.s.now().UTC()
	}
	at := entry.AccessedAt

	inv.CurrentUses++
	if inv.FirstUsedAt == nil {
		inv.FirstUsedAt = &at
	}
	inv.LastUsedAt = &at
	inv.UsageLog = share.AppendCapped(inv.UsageLog, entry, invitation.MaxUsageLogEntries)
	inv.UpdatedAt = at

	return copyInvitation(inv), nil
}
