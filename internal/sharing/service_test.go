package sharing

import (
	"context"
	"errors"
	"testing"
	"time"

	"gallery-service/internal/domain/gallery"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/repository/memory"
	"gallery-service/internal/token"
	apperrors "gallery-service/pkg/errors"
	"gallery-service/pkg/password"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	store   *memory.Store
	svc     *Service
	owner   uuid.UUID
	gallery *gallery.Gallery
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	owner := uuid.New()
	g := store.PutGallery(gallery.Gallery{OwnerID: owner, Title: "Portraits"})
	issuer := token.NewIssuer(store.ShareLinks(), store.Invitations())
	svc := NewService(store.Galleries(), store.ShareLinks(), store.Invitations(), issuer,
		password.NewHasher(password.MinCost), Config{InvitationTTL: 30 * 24 * time.Hour, InvitationMaxUses: 1})
	return &fixture{store: store, svc: svc, owner: owner, gallery: g}
}

func TestCreateShareLink(t *testing.T) {
	f := newFixture(t)
	maxViews := 10

	link, err := f.svc.CreateShareLink(context.Background(), f.owner, f.gallery.ID, CreateShareInput{
		Password:    "s3cret",
		MaxViews:    &maxViews,
		Permissions: share.Permissions{AllowDownloads: true},
	})
	require.NoError(t, err)

	assert.True(t, token.ValidShareTokenFormat(link.Token))
	assert.True(t, link.HasPassword())
	assert.NotEqual(t, "s3cret", link.PasswordHash)
	assert.True(t, link.Active)
	assert.True(t, link.Permissions.AllowDownloads)
}

func TestCreateShareLink_RejectsForeignGallery(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateShareLink(context.Background(), uuid.New(), f.gallery.ID, CreateShareInput{})
	assert.True(t, errors.Is(err, apperrors.ErrForbidden))
}

func TestCreateShareLink_Validation(t *testing.T) {
	f := newFixture(t)
	zero := 0
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name  string
		input CreateShareInput
	}{
		{"zero max views", CreateShareInput{MaxViews: &zero}},
		{"past expiry", CreateShareInput{ExpiresAt: &past}},
		{"oversized password", CreateShareInput{Password: string(make([]byte, 100))}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.CreateShareLink(context.Background(), f.owner, f.gallery.ID, tt.input)
			assert.True(t, errors.Is(err, apperrors.ErrValidation), "got %v", err)
		})
	}
}

func TestUpdateShareLink_PasswordLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link, err := f.svc.CreateShareLink(ctx, f.owner, f.gallery.ID, CreateShareInput{})
	require.NoError(t, err)
	require.False(t, link.HasPassword())

	pw := "new-password"
	updated, err := f.svc.UpdateShareLink(ctx, f.owner, link.ID, UpdateShareInput{Password: &pw})
	require.NoError(t, err)
	assert.True(t, updated.HasPassword())

	empty := ""
	cleared, err := f.svc.UpdateShareLink(ctx, f.owner, link.ID, UpdateShareInput{Password: &empty})
	require.NoError(t, err)
	assert.False(t, cleared.HasPassword())
}

func TestUpdateShareLink_ForeignOwnerSeesNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link, err := f.svc.CreateShareLink(ctx, f.owner, f.gallery.ID, CreateShareInput{})
	require.NoError(t, err)

	_, err = f.svc.DeactivateShareLink(ctx, uuid.New(), link.ID)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeactivateAndDeleteShareLink(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	link, err := f.svc.CreateShareLink(ctx, f.owner, f.gallery.ID, CreateShareInput{})
	require.NoError(t, err)

	deactivated, err := f.svc.DeactivateShareLink(ctx, f.owner, link.ID)
	require.NoError(t, err)
	assert.False(t, deactivated.Active)

	require.NoError(t, f.svc.DeleteShareLink(ctx, f.owner, link.ID))

	links, err := f.svc.ListShareLinks(ctx, f.owner, f.gallery.ID)
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestCreateInvitation_Defaults(t *testing.T) {
	f := newFixture(t)
	before := time.Now()

	inv, err := f.svc.CreateInvitation(context.Background(), f.owner, f.gallery.ID, CreateInvitationInput{
		RecipientEmail: "guest@example.com",
		RecipientName:  "Guest",
	})
	require.NoError(t, err)

	assert.True(t, token.ValidInvitationCodeFormat(inv.Code))
	require.NotNil(t, inv.ExpiresAt)
	assert.WithinDuration(t, before.Add(30*24*time.Hour), *inv.ExpiresAt, time.Minute)
	require.NotNil(t, inv.MaxUses)
	assert.Equal(t, 1, *inv.MaxUses)
}

func TestCreateInvitation_RejectsBadEmail(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.CreateInvitation(context.Background(), f.owner, f.gallery.ID, CreateInvitationInput{RecipientEmail: "nope"})
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
}

func TestResendInvitation_RegeneratesCode(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvitation(ctx, f.owner, f.gallery.ID, CreateInvitationInput{})
	require.NoError(t, err)
	require.NoError(t, f.svc.DeactivateInvitation(ctx, f.owner, inv.ID))

	resent, err := f.svc.ResendInvitation(ctx, f.owner, inv.ID)
	require.NoError(t, err)

	assert.NotEqual(t, inv.Code, resent.Code)
	assert.True(t, resent.Active)
	_, err = f.store.Invitations().GetByCode(ctx, inv.Code)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestDeleteInvitation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inv, err := f.svc.CreateInvitation(ctx, f.owner, f.gallery.ID, CreateInvitationInput{})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteInvitation(ctx, f.owner, inv.ID))

	list, err := f.svc.ListInvitations(ctx, f.owner, f.gallery.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
