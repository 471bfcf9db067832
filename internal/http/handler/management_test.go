package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (e *env) manage(caller uuid.UUID, method, id, body string, call func(*ManagementHandler) echo.HandlerFunc) *httptest.ResponseRecorder {
	e.t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, "/", nil)
	} else {
		req = httptest.NewRequest(method, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	c, rec := newContext(req, []string{paramID}, []string{id})
	withOwner(c, caller)
	h := NewManagementHandler(e.sharing, e.sharing, testBaseURL+"/", nil)
	require.NoError(e.t, call(h)(c))
	return rec
}

func TestManagement_ShareLinkLifecycle(t *testing.T) {
	e := newEnv(t)
	galleryID := e.gallery.ID.String()

	rec := e.manage(e.owner, http.MethodPost, galleryID, `{"password":"letmein1","maxViews":5,"permissions":{"allowDownloads":true}}`,
		func(h *ManagementHandler) echo.HandlerFunc { return h.CreateShareLink })
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotContains(t, rec.Body.String(), "letmein1")

	var created ShareLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.Token, 64)
	assert.Equal(t, testBaseURL+"/shares/"+created.Token, created.URL)
	assert.True(t, created.HasPassword)
	assert.True(t, created.Permissions.AllowDownloads)
	require.NotNil(t, created.MaxViews)
	assert.Equal(t, 5, *created.MaxViews)

	linkID := created.ID.String()
	rec = e.manage(e.owner, http.MethodPatch, linkID, `{"password":"","clearMaxViews":true}`,
		func(h *ManagementHandler) echo.HandlerFunc { return h.UpdateShareLink })
	require.Equal(t, http.StatusOK, rec.Code)
	var updated ShareLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.False(t, updated.HasPassword)
	assert.Nil(t, updated.MaxViews)

	rec = e.manage(e.owner, http.MethodGet, galleryID, "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.ListShareLinks })
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []ShareLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	assert.Len(t, listed, 1)

	rec = e.manage(e.owner, http.MethodPost, linkID, "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.DeactivateShareLink })
	require.Equal(t, http.StatusOK, rec.Code)
	var deactivated ShareLinkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deactivated))
	assert.False(t, deactivated.Active)

	rec = e.manage(e.owner, http.MethodDelete, linkID, "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.DeleteShareLink })
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.manage(e.owner, http.MethodDelete, linkID, "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.DeleteShareLink })
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestManagement_InvitationLifecycle(t *testing.T) {
	e := newEnv(t)

	rec := e.manage(e.owner, http.MethodPost, e.gallery.ID.String(), `{"recipientEmail":"guest@example.com","recipientName":"Guest"}`,
		func(h *ManagementHandler) echo.HandlerFunc { return h.CreateInvitation })
	require.Equal(t, http.StatusCreated, rec.Code)
	var created InvitationDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Len(t, created.Code, 8)
	assert.Equal(t, testBaseURL+"/invitations/"+created.Code, created.URL)
	require.NotNil(t, created.MaxUses)
	assert.Equal(t, 1, *created.MaxUses)

	id := created.ID.String()
	rec = e.manage(e.owner, http.MethodPost, id, "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.ResendInvitation })
	require.Equal(t, http.StatusOK, rec.Code)
	var resent InvitationDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resent))
	assert.NotEqual(t, created.Code, resent.Code)

	rec = e.manage(e.owner, http.MethodGet, e.gallery.ID.String(), "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.ListInvitations })
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []InvitationDetailResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, resent.Code, listed[0].Code)

	rec = e.manage(e.owner, http.MethodPost, id, "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.DeactivateInvitation })
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.manage(e.owner, http.MethodDelete, id, "",
		func(h *ManagementHandler) echo.HandlerFunc { return h.DeleteInvitation })
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestManagement_RequestErrors(t *testing.T) {
	e := newEnv(t)
	galleryID := e.gallery.ID.String()
	create := func(h *ManagementHandler) echo.HandlerFunc { return h.CreateShareLink }

	tests := []struct {
		name       string
		caller     uuid.UUID
		id         string
		body       string
		wantStatus int
	}{
		{"not the owner", uuid.New(), galleryID, `{}`, http.StatusForbidden},
		{"bad gallery id", e.owner, "nope", `{}`, http.StatusBadRequest},
		{"unknown field", e.owner, galleryID, `{"owner":"me"}`, http.StatusBadRequest},
		{"zero max views", e.owner, galleryID, `{"maxViews":0}`, http.StatusBadRequest},
		{"expiry in the past", e.owner, galleryID, `{"expiresAt":"2001-01-01T00:00:00Z"}`, http.StatusBadRequest},
		{"unknown gallery", e.owner, uuid.New().String(), `{}`, http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := e.manage(tt.caller, http.MethodPost, tt.id, tt.body, create)
			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}
