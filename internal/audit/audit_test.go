package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chanWriter chan *Event

func (w chanWriter) Write(_ context.Context, event *Event) error {
	w <- event
	return nil
}

func TestLogFromContext(t *testing.T) {
	events := make(chanWriter, 1)
	l := NewLogger(events)

	req := httptest.NewRequest(http.MethodPost, "/api/galleries/x/shares", nil)
	req.Header.Set("User-Agent", "test-agent")
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)
	rec.Header().Set(echo.HeaderXRequestID, "req-12345678")

	userID := uuid.New()
	c.Set(contextKeyUserID, userID)
	linkID := uuid.New()

	require.NoError(t, l.LogFromContext(c, ResourceTypeShareLink, &linkID, ActionCreate, StatusSuccess, map[string]any{
		"password": "hunter2",
		"gallery":  "g1",
	}))

	select {
	case event := <-events:
		assert.Equal(t, "create_share_link", event.EventType)
		assert.Equal(t, ActorTypeUser, event.ActorType)
		assert.Equal(t, userID, *event.ActorID)
		assert.Equal(t, linkID, *event.ResourceID)
		assert.Equal(t, "req-12345678", event.RequestID)
		assert.Equal(t, "test-agent", event.UserAgent)
		assert.Equal(t, "[REDACTED]", event.Metadata["password"])
		assert.Equal(t, "g1", event.Metadata["gallery"])
	case <-time.After(time.Second):
		t.Fatal("event was not written")
	}
}

func TestLogFromContext_Visitor(t *testing.T) {
	events := make(chanWriter, 1)
	l := NewLogger(events)

	c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/invitations/ABCD/use", nil), httptest.NewRecorder())
	require.NoError(t, l.LogFromContext(c, ResourceTypeInvitation, nil, ActionUse, StatusSuccess, nil))

	event := <-events
	assert.Equal(t, ActorTypeVisitor, event.ActorType)
	assert.Nil(t, event.ActorID)
}
