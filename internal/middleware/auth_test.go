package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const secret = "test-secret"

func newEcho() *echo.Echo {
	e := echo.New()
	e.GET("/me", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]any{"user": UserID(c), "admin": IsAdmin(c)})
	}, AuthMiddleware(secret))
	e.GET("/admin", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	}, AuthMiddleware(secret), RequireAdmin())
	return e
}

func do(e *echo.Echo, path, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set(echo.HeaderAuthorization, authorization)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthMiddleware(t *testing.T) {
	e := newEcho()

	token, err := IssueToken(secret, "u1", "", time.Hour)
	require.NoError(t, err)

	rec := do(e, "/me", "Bearer "+token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"user":"u1","admin":false}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", token).Code, "missing Bearer prefix")

	forged, err := IssueToken("other-secret", "u1", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Bearer "+forged).Code)

	expired, err := IssueToken(secret, "u1", "", -time.Minute)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Bearer "+expired).Code)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"user_id": "u1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, do(e, "/me", "Bearer "+unsigned).Code)
}

func TestRequireAdmin(t *testing.T) {
	e := newEcho()

	user, err := IssueToken(secret, "u1", "", time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusForbidden, do(e, "/admin", "Bearer "+user).Code)

	admin, err := IssueToken(secret, "root", RoleAdmin, time.Hour)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, do(e, "/admin", "Bearer "+admin).Code)
}
