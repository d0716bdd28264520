package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/domain"
)

func sampleTransaction() domain.Transaction {
	return domain.Transaction{
		ID:              uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		UserID:          "user-1",
		TransactionType: domain.TransactionTypeP2P,
		Product:         domain.ProductP2P,
		Status:          domain.StatusCompleted,
		Currency:        "USD",
		Amount:          decimal.NewFromFloat(12.5),
		CreatedAt:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestToEnvelopeOmitsVersionWhenNil(t *testing.T) {
	env := toEnvelope(sampleTransaction(), nil)

	assert.Equal(t, "00000000-0000-0000-0000-000000000001", env.ID)
	assert.Equal(t, "user-1", env.UserID)
	assert.Equal(t, "12.5", env.Amount)
	assert.Nil(t, env.Version)
	assert.Equal(t, "2026-01-02T03:04:05Z", env.CreatedAt)
}

func TestToEnvelopeCarriesExplicitVersion(t *testing.T) {
	env := toEnvelope(sampleTransaction(), int64Ptr(7))

	if assert.NotNil(t, env.Version) {
		assert.Equal(t, int64(7), *env.Version)
	}
}

func int64Ptr(v int64) *int64 { return &v }
