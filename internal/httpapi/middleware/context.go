// Package middleware adapts the gateway's CORS/security-header/auth/
// timeout middleware lineage to the activity feed's single-tenant
// concern: identify the caller (or not), and never let one slow
// request hold a handler goroutine past its deadline.
package middleware

import "context"

type contextKey string

// userIDContextKey stores the identity extracted from a validated
// bearer token, mirroring the teacher gateway's APIKeyContextKey/
// UserIDContextKey pattern of typed, unexported context keys plus
// exported accessor functions.
const userIDContextKey contextKey = "user_id"

// UserIDFromContext returns the authenticated caller's user_id, if a
// valid bearer token was presented on this request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(userIDContextKey).(string)
	return v, ok && v != ""
}

func withUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDContextKey, userID)
}
