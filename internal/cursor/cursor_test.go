package cursor

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	id := uuid.New()
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	encoded := Encode(id, ts)
	require.NotEmpty(t, encoded)

	decoded, ok := Decode(encoded)
	require.True(t, ok)
	assert.Equal(t, id, decoded.ID)
	assert.True(t, ts.Equal(decoded.CreatedAt))
}

func TestDecodeInvalidInputsReturnNotOK(t *testing.T) {
	cases := []string{
		"",
		"not-base64!!!",
		base64URLNoPad("not json"),
		base64URLNoPad(`{"id":"not-a-uuid","created_at":"2026-01-01T00:00:00Z"}`),
		base64URLNoPad(`{"id":"` + uuid.New().String() + `","created_at":"not-a-date"}`),
	}
	for _, c := range cases {
		_, ok := Decode(c)
		assert.False(t, ok, "expected Decode(%q) to fail", c)
	}
}

func TestEncodeIsDeterministic(t *testing.T) {
	id := uuid.New()
	ts := time.Now().UTC()
	assert.Equal(t, Encode(id, ts), Encode(id, ts))
}

func base64URLNoPad(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}
