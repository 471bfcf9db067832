package access

import (
	apperrors "gallery-service/pkg/errors"
)

// Reason is the machine-readable cause of a denied request.
type Reason string

const (
	ReasonNotFound           Reason = "not_found"
	ReasonInactive           Reason = "inactive"
	ReasonExpired            Reason = "expired"
	ReasonQuotaExhausted     Reason = "quota_exhausted"
	ReasonInvitationRequired Reason = "invitation_required"
	ReasonInvitationInvalid  Reason = "invitation_invalid"
	ReasonPasswordRequired   Reason = "password_required"
	ReasonPasswordInvalid    Reason = "password_invalid"
)

var reasonErrors = map[Reason]error{
	ReasonNotFound:           apperrors.ErrNotFound,
	ReasonInactive:           apperrors.ErrInactive,
	ReasonExpired:            apperrors.ErrExpired,
	ReasonQuotaExhausted:     apperrors.ErrQuotaExhausted,
	ReasonInvitationRequired: apperrors.ErrInvitationRequired,
	ReasonInvitationInvalid:  apperrors.ErrInvitationInvalid,
	ReasonPasswordRequired:   apperrors.ErrPasswordRequired,
	ReasonPasswordInvalid:    apperrors.ErrPasswordInvalid,
}

// Denial is returned by the gate instead of a grant. It unwraps to the
// matching sentinel in pkg/errors.
type Denial struct {
	Reason Reason
}

func deny(reason Reason) *Denial {
	return &Denial{Reason: reason}
}

func (d *Denial) Error() string {
	return "access denied: " + string(d.Reason)
}

func (d *Denial) Unwrap() error {
	return reasonErrors[d.Reason]
}

// RequiresPassword reports whether the caller should be prompted for a password.
func (d *Denial) RequiresPassword() bool {
	return d.Reason == ReasonPasswordRequired || d.Reason == ReasonPasswordInvalid
}

// RequiresInvitation reports whether the caller should be prompted for an
// invitation code.
func (d *Denial) RequiresInvitation() bool {
	return d.Reason == ReasonInvitationRequired || d.Reason == ReasonInvitationInvalid
}
