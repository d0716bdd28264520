package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astropay/activityfeed/internal/auth"
	"github.com/astropay/activityfeed/internal/config"
	"github.com/astropay/activityfeed/internal/httpapi/middleware"
)

func testAuthHandler() *AuthHandler {
	issuer := auth.New(&config.Config{SecretKey: "test-secret", JWTAlgorithm: "HS256", JWTExpireMinutes: 30})
	return NewAuthHandler(issuer)
}

func TestCreateTokenRejectsMissingUserID(t *testing.T) {
	h := testAuthHandler()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"user_id":""}`))
	rec := httptest.NewRecorder()

	h.CreateToken(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTokenRejectsMalformedBody(t *testing.T) {
	h := testAuthHandler()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`not json`))
	rec := httptest.NewRecorder()

	h.CreateToken(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateTokenIssuesBearerToken(t *testing.T) {
	h := testAuthHandler()
	req := httptest.NewRequest(http.MethodPost, "/auth/token", strings.NewReader(`{"user_id":"user-9"}`))
	rec := httptest.NewRecorder()

	h.CreateToken(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp tokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "bearer", resp.TokenType)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Positive(t, resp.ExpiresIn)
}

func TestMeReturnsUserIDFromContext(t *testing.T) {
	issuer := auth.New(&config.Config{SecretKey: "test-secret", JWTAlgorithm: "HS256", JWTExpireMinutes: 30})
	h := NewAuthHandler(issuer)
	token, _, err := issuer.Issue("user-5")
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	middleware.RequireAuth(issuer)(http.HandlerFunc(h.Me)).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "user-5", body["user_id"])
}
