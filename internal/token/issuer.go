// Package token issues share tokens and invitation codes that are unique in
// the store. Existence checks are advisory; the store's unique indexes are
// authoritative and a conflict on insert triggers a fresh mint.
package token

import (
	"context"
	"errors"
	"regexp"

	apperrors "gallery-service/pkg/errors"
	rawtoken "gallery-service/pkg/token"

	"github.com/labstack/gommon/log"
)

const (
	MaxInvitationCodeAttempts = 10
	// MaxInsertAttempts bounds how often an insert is retried after the
	// store rejects a freshly minted value as a duplicate.
	MaxInsertAttempts = 3
	logPrefixLength   = 8
)

var (
	shareTokenPattern     = regexp.MustCompile(`^[0-9a-f]{64}$`)
	invitationCodePattern = regexp.MustCompile(`^[0-9A-F]{8}$`)
)

type ShareTokenChecker interface {
	TokenExists(ctx context.Context, token string) (bool, error)
}

type InvitationCodeChecker interface {
	CodeExists(ctx context.Context, code string) (bool, error)
}

type Issuer struct {
	shares        ShareTokenChecker
	invitations   InvitationCodeChecker
	generateToken func() (string, error)
	generateCode  func() (string, error)
	logger        *log.Logger
}

func NewIssuer(shares ShareTokenChecker, invitations InvitationCodeChecker) *Issuer {
	return &Issuer{
		shares:        shares,
		invitations:   invitations,
		generateToken: rawtoken.GenerateShareToken,
		generateCode:  rawtoken.GenerateInvitationCode,
		logger:        log.New("token"),
	}
}

// IssueShareToken loops until it finds a token the store does not know.
// A 256-bit space makes a second iteration practically unreachable, so the
// loop is bounded only by ctx.
func (i *Issuer) IssueShareToken(ctx context.Context) (string, error) {
	for {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate, err := i.generateToken()
		if err != nil {
			return "", apperrors.InternalServer("failed to generate share token", err)
		}

		exists, err := i.shares.TokenExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		i.logger.Warnf("share token collision on %s, regenerating", rawtoken.Prefix(candidate, logPrefixLength))
	}
}

func (i *Issuer) IssueInvitationCode(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= MaxInvitationCodeAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		candidate, err := i.generateCode()
		if err != nil {
			return "", apperrors.InternalServer("failed to generate invitation code", err)
		}

		exists, err := i.invitations.CodeExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		i.logger.Warnf("invitation code collision (attempt %d/%d)", attempt, MaxInvitationCodeAttempts)
	}

	return "", apperrors.CodeGenerationExhausted(MaxInvitationCodeAttempts)
}

// CreateWithShareToken mints a token and passes it to insert, minting again
// when insert reports ErrConflict.
func (i *Issuer) CreateWithShareToken(ctx context.Context, insert func(token string) error) error {
	return retryOnConflict(func() error {
		candidate, err := i.IssueShareToken(ctx)
		if err != nil {
			return err
		}
		return insert(candidate)
	})
}

// CreateWithInvitationCode is CreateWithShareToken for invitation codes.
func (i *Issuer) CreateWithInvitationCode(ctx context.Context, insert func(code string) error) error {
	return retryOnConflict(func() error {
		candidate, err := i.IssueInvitationCode(ctx)
		if err != nil {
			return err
		}
		return insert(candidate)
	})
}

func retryOnConflict(attempt func() error) error {
	var err error
	for n := 0; n < MaxInsertAttempts; n++ {
		err = attempt()
		if !errors.Is(err, apperrors.ErrConflict) {
			return err
		}
	}
	return apperrors.CodeGenerationExhausted(MaxInsertAttempts)
}

func ValidShareTokenFormat(s string) bool {
	return shareTokenPattern.MatchString(s)
}

func ValidInvitationCodeFormat(s string) bool {
	return invitationCodePattern.MatchString(s)
}
