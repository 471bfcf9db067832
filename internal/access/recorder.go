package access

import (
	"context"
	"net/http"
	"strings"
	"time"

	"gallery-service/internal/domain/invitation"
	"gallery-service/internal/domain/share"

	"github.com/google/uuid"
	"github.com/labstack/gommon/log"
)

const maxUserAgentLength = 512

// Headers set by edge proxies carrying a coarse country code.
var locationHeaders = []string{"CF-IPCountry", "X-Geo-Country", "X-Country-Code"}

type ShareAccessStore interface {
	RecordAccess(ctx context.Context, id uuid.UUID, entry share.AccessLogEntry) (*share.Stats, error)
}

type InvitationUseStore interface {
	RecordUse(ctx context.Context, id uuid.UUID, entry share.AccessLogEntry) (*invitation.Invitation, error)
}

// Recorder turns a granted request into exactly one atomic store update.
type Recorder struct {
	shares      ShareAccessStore
	invitations InvitationUseStore
	now         func() time.Time
	logger      *log.Logger
}

func NewRecorder(shares ShareAccessStore, invitations InvitationUseStore) *Recorder {
	return &Recorder{
		shares:      shares,
		invitations: invitations,
		now:         time.Now,
		logger:      log.New("access"),
	}
}

// Visitor identifies the requester of a single access.
type Visitor struct {
	IP        string
	UserAgent string
	Location  string
}

func (r *Recorder) entry(v Visitor) share.AccessLogEntry {
	ua := v.UserAgent
	if len(ua) > maxUserAgentLength {
		ua = ua[:maxUserAgentLength]
	}
	return share.AccessLogEntry{
		IP:         v.IP,
		UserAgent:  ua,
		Location:   v.Location,
		AccessedAt: r.now().UTC(),
	}
}

func (r *Recorder) RecordShareAccess(ctx context.Context, linkID uuid.UUID, v Visitor) (*share.Stats, error) {
	stats, err := r.shares.RecordAccess(ctx, linkID, r.entry(v))
	if err != nil {
		r.logger.Debugf("share access not recorded for %s: %v", linkID, err)
		return nil, err
	}
	return stats, nil
}

func (r *Recorder) RecordInvitationUse(ctx context.Context, invitationID uuid.UUID, v Visitor) (*invitation.Invitation, error) {
	inv, err := r.invitations.RecordUse(ctx, invitationID, r.entry(v))
	if err != nil {
		r.logger.Debugf("invitation use not recorded for %s: %v", invitationID, err)
		return nil, err
	}
	return inv, nil
}

// LocationFromHeader returns the first proxy-supplied country code, or "".
func LocationFromHeader(h http.Header) string {
	for _, name := range locationHeaders {
		if v := strings.TrimSpace(h.Get(name)); v != "" && v != "XX" {
			return strings.ToUpper(v)
		}
	}
	return ""
}
