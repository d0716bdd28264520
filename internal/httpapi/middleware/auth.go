package middleware

import (
	"net/http"
	"strings"

	"github.com/astropay/activityfeed/internal/auth"
)

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// OptionalAuth extracts and validates a bearer token if present,
// attaching the resulting user_id to the request context. A missing
// or invalid token is never an error here — it leaves the request
// unauthenticated, the Go analog of get_current_user_id_optional
// swallowing the decode failure instead of raising.
func OptionalAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token, ok := bearerToken(r); ok {
				if userID, err := issuer.Validate(token); err == nil {
					r = r.WithContext(withUserID(r.Context(), userID))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuth rejects a request outright unless it carries a valid
// bearer token, for routes with no query-parameter fallback (e.g.
// /auth/me) — the Go analog of get_current_user_id's hard dependency.
func RequireAuth(issuer *auth.Issuer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				writeUnauthorized(w, "missing bearer token")
				return
			}
			userID, err := issuer.Validate(token)
			if err != nil {
				writeUnauthorized(w, "invalid authentication credentials")
				return
			}
			next.ServeHTTP(w, r.WithContext(withUserID(r.Context(), userID)))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
}
