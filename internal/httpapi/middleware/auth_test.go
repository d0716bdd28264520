package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/auth"
	"github.com/astropay/activityfeed/internal/config"
)

func testIssuer() *auth.Issuer {
	return auth.New(&config.Config{SecretKey: "test-secret", JWTAlgorithm: "HS256", JWTExpireMinutes: 30})
}

func TestOptionalAuthAttachesUserIDWhenTokenValid(t *testing.T) {
	issuer := testIssuer()
	token, _, err := issuer.Issue("user-42")
	assert.NoError(t, err)

	var seen string
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, ok = UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	OptionalAuth(issuer)(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, ok)
	assert.Equal(t, "user-42", seen)
}

func TestOptionalAuthPassesThroughWithNoToken(t *testing.T) {
	issuer := testIssuer()
	called := false
	var ok bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		_, ok = UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/transactions", nil)
	OptionalAuth(issuer)(next).ServeHTTP(httptest.NewRecorder(), req)

	assert.True(t, called)
	assert.False(t, ok)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	issuer := testIssuer()
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	rec := httptest.NewRecorder()
	RequireAuth(issuer)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsValidToken(t *testing.T) {
	issuer := testIssuer()
	token, _, err := issuer.Issue("user-7")
	assert.NoError(t, err)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserIDFromContext(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	RequireAuth(issuer)(next).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-7", seen)
}
