package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{SecretKey: "test-secret", JWTAlgorithm: "HS256", JWTExpireMinutes: 30}
}

func TestIssueThenValidateRoundTrips(t *testing.T) {
	i := New(testConfig())
	token, expiresIn, err := i.Issue("user-123")
	assert.NoError(t, err)
	assert.Equal(t, 30*60, expiresIn)

	userID, err := i.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-123", userID)
}

func TestValidateRejectsGarbage(t *testing.T) {
	i := New(testConfig())
	_, err := i.Validate("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsTokenSignedWithDifferentSecret(t *testing.T) {
	issuerA := New(testConfig())
	cfgB := testConfig()
	cfgB.SecretKey = "a-different-secret"
	issuerB := New(cfgB)

	token, _, err := issuerA.Issue("user-1")
	assert.NoError(t, err)

	_, err = issuerB.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	cfg := testConfig()
	cfg.JWTExpireMinutes = 0
	i := New(cfg)
	token, _, err := i.Issue("user-1")
	assert.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	_, err = i.Validate(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestDefaultsToHS256OnUnknownAlgorithm(t *testing.T) {
	cfg := testConfig()
	cfg.JWTAlgorithm = "not-a-real-algorithm"
	i := New(cfg)
	token, _, err := i.Issue("user-1")
	assert.NoError(t, err)
	userID, err := i.Validate(token)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", userID)
}
