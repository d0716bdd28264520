// Package auth issues and validates the bearer tokens that identify a
// caller to the transactions API. Authentication is optional by
// default (REQUIRE_AUTH=false): callers may fall back to a user_id
// query parameter, used only for development and testing, exactly as
// the original's dependency split (get_current_user_id vs.
// get_current_user_id_optional) documents.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/astropay/activityfeed/internal/config"
)

var (
	ErrInvalidToken = errors.New("auth: invalid or expired token")
	ErrMissingUser  = errors.New("auth: token has no user_id")
)

// Claims is the JWT payload this service issues and accepts. Both sub
// and user_id carry the identity, matching the original's
// `{"sub": user_id, "user_id": user_id}` double-write.
type Claims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

// Issuer mints and validates tokens against a single HMAC secret.
type Issuer struct {
	secret        []byte
	signingMethod jwt.SigningMethod
	expire        time.Duration
}

func New(cfg *config.Config) *Issuer {
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if method == nil {
		method = jwt.SigningMethodHS256
	}
	return &Issuer{
		secret:        []byte(cfg.SecretKey),
		signingMethod: method,
		expire:        time.Duration(cfg.JWTExpireMinutes) * time.Minute,
	}
}

// Issue mints a token for userID, returning it alongside its lifetime
// in seconds (expires_in, in the original's token response shape).
func (i *Issuer) Issue(userID string) (token string, expiresIn int, err error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expire)),
		},
	}
	signed, err := jwt.NewWithClaims(i.signingMethod, claims).SignedString(i.secret)
	if err != nil {
		return "", 0, fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, int(i.expire.Seconds()), nil
}

// Validate parses and verifies tokenString, returning the user_id it
// carries. A token whose subject/user_id claim is empty fails
// validation, mirroring the original's explicit "user_id not found"
// 401 rather than accepting an identity-less token.
func (i *Issuer) Validate(tokenString string) (string, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != i.signingMethod.Alg() {
			return nil, fmt.Errorf("auth: unexpected signing method %q", t.Method.Alg())
		}
		return i.secret, nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return "", ErrMissingUser
	}
	return userID, nil
}
