package token

import (
	"context"
	"errors"
	"testing"

	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"
	"gallery-service/internal/repository/memory"
	apperrors "gallery-service/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedChecker struct {
	taken map[string]bool
	calls int
}

func (f *fixedChecker) TokenExists(_ context.Context, token string) (bool, error) {
	f.calls++
	return f.taken[token], nil
}

func (f *fixedChecker) CodeExists(_ context.Context, code string) (bool, error) {
	f.calls++
	return f.taken[code], nil
}

func sequence(values ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		v := values[i%len(values)]
		i++
		return v, nil
	}
}

func TestIssueInvitationCode_DistinctAndFormatted(t *testing.T) {
	checker := &fixedChecker{taken: map[string]bool{}}
	issuer := NewIssuer(checker, checker)
	ctx := context.Background()

	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := issuer.IssueInvitationCode(ctx)
		require.NoError(t, err)
		assert.True(t, ValidInvitationCodeFormat(code), code)
		assert.False(t, seen[code], "duplicate code %s", code)
		seen[code] = true
		checker.taken[code] = true
	}
}

func TestIssueInvitationCode_RetriesOnCollision(t *testing.T) {
	checker := &fixedChecker{taken: map[string]bool{"AAAAAAAA": true}}
	issuer := NewIssuer(checker, checker)
	issuer.generateCode = sequence("AAAAAAAA", "AAAAAAAA", "BBBBBBBB")

	code, err := issuer.IssueInvitationCode(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", code)
	assert.Equal(t, 3, checker.calls)
}

func TestIssueInvitationCode_Exhausted(t *testing.T) {
	checker := &fixedChecker{taken: map[string]bool{"AAAAAAAA": true}}
	issuer := NewIssuer(checker, checker)
	issuer.generateCode = sequence("AAAAAAAA")

	_, err := issuer.IssueInvitationCode(context.Background())
	assert.True(t, errors.Is(err, apperrors.ErrCodeGenerationExhausted))
	assert.Equal(t, MaxInvitationCodeAttempts, checker.calls)
}

func TestIssueShareToken_RetriesUntilUnique(t *testing.T) {
	taken := "collides"
	checker := &fixedChecker{taken: map[string]bool{taken: true}}
	issuer := NewIssuer(checker, checker)
	issuer.generateToken = sequence(taken, taken, taken, "fresh")

	tok, err := issuer.IssueShareToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok)
}

func TestIssueShareToken_StopsOnCancelledContext(t *testing.T) {
	checker := &fixedChecker{taken: map[string]bool{"dup": true}}
	issuer := NewIssuer(checker, checker)
	issuer.generateToken = sequence("dup")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := issuer.IssueShareToken(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIssueShareToken_Format(t *testing.T) {
	checker := &fixedChecker{taken: map[string]bool{}}
	issuer := NewIssuer(checker, checker)

	tok, err := issuer.IssueShareToken(context.Background())
	require.NoError(t, err)
	assert.True(t, ValidShareTokenFormat(tok))
}

// The pre-check misses a concurrent insert; the unique constraint rejects the
// duplicate and the issuer mints again.
func TestCreateWithShareToken_RetriesOnStoreConflict(t *testing.T) {
	store := memory.NewStore()
	repo := store.ShareLinks()
	ctx := context.Background()

	_, err := repo.Create(ctx, share.CreateShareLinkInput{Token: "raced"})
	require.NoError(t, err)

	blind := &fixedChecker{taken: map[string]bool{}}
	issuer := NewIssuer(blind, blind)
	issuer.generateToken = sequence("raced", "winner")

	var created *share.ShareLink
	err = issuer.CreateWithShareToken(ctx, func(tok string) error {
		link, err := repo.Create(ctx, share.CreateShareLinkInput{Token: tok})
		created = link
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, "winner", created.Token)
}

func TestCreateWithInvitationCode_GivesUpAfterRepeatedConflicts(t *testing.T) {
	store := memory.NewStore()
	repo := store.Invitations()
	ctx := context.Background()

	_, err := repo.Create(ctx, invitation.CreateInvitationInput{Code: "DEADBEEF"})
	require.NoError(t, err)

	blind := &fixedChecker{taken: map[string]bool{}}
	issuer := NewIssuer(blind, blind)
	issuer.generateCode = sequence("DEADBEEF")

	err = issuer.CreateWithInvitationCode(ctx, func(code string) error {
		_, err := repo.Create(ctx, invitation.CreateInvitationInput{Code: code})
		return err
	})
	assert.True(t, errors.Is(err, apperrors.ErrCodeGenerationExhausted))
}

func TestFormatValidators(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
		fn    func(string) bool
		input string
	}{
		{"share token ok", true, ValidShareTokenFormat, "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"},
		{"share token uppercase", false, ValidShareTokenFormat, "0123456789ABCDEF0123456789abcdef0123456789abcdef0123456789abcdef"},
		{"share token short", false, ValidShareTokenFormat, "abc"},
		{"code ok", true, ValidInvitationCodeFormat, "A1B2C3D4"},
		{"code lowercase", false, ValidInvitationCodeFormat, "a1b2c3d4"},
		{"code long", false, ValidInvitationCodeFormat, "A1B2C3D4E"},
		{"code non hex", false, ValidInvitationCodeFormat, "ZZZZZZZZ"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, tt.fn(tt.input))
		})
	}
}
