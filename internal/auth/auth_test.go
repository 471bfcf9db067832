package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "Zq8#mL2vR9!xT4pW7&kN3sB6yE1uH5gJ"

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	userID := uuid.New()

	token, err := svc.Generate(userID, "photographer@example.com")
	require.NoError(t, err)

	claims, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "photographer@example.com", claims.Email)
}

func TestJWTService_RejectsBadTokens(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)

	other, err := NewJWTService("a-different-secret-that-is-long-enough!!", time.Hour).Generate(uuid.New(), "")
	require.NoError(t, err)

	expired := NewJWTService(testSecret, time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Generate(uuid.New(), "")
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, JWTClaims{UserID: uuid.New()}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, JWTClaims{}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, tok := range map[string]string{
		"wrong secret": other,
		"expired":      old,
		"alg none":     none,
		"no user":      noUser,
		"garbage":      "not.a.token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(tok)
			assert.Error(t, err)
		})
	}
}

func TestRequireJWT(t *testing.T) {
	svc := NewJWTService(testSecret, time.Hour)
	mw := NewMiddleware(svc).RequireJWT()
	userID := uuid.New()
	token, err := svc.Generate(userID, "")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid bearer", "Bearer " + token, http.StatusOK},
		{"lowercase scheme", "bearer " + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + token, http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(echo.HeaderAuthorization, tt.header)
			}
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := mw(func(c echo.Context) error {
				id, err := GetUserID(c)
				require.NoError(t, err)
				assert.Equal(t, userID, id)
				assert.Equal(t, AuthTypeJWT, GetAuthType(c))
				return c.NoContent(http.StatusOK)
			})(c)

			require.NoError(t, err)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestGetUserID_Unauthenticated(t *testing.T) {
	c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	_, err := GetUserID(c)
	assert.Error(t, err)
	assert.Equal(t, AuthType(""), GetAuthType(c))
}
