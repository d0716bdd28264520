package strategy

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/domain"
)

func TestRegistryResolvesKnownTypes(t *testing.T) {
	r := NewRegistry()

	_, isDefault := r.For(domain.TransactionTypeCard).(defaultStrategy)
	assert.False(t, isDefault)
	_, isDefault = r.For(domain.TransactionTypeP2P).(defaultStrategy)
	assert.False(t, isDefault)
	_, isDefault = r.For(domain.TransactionTypeCrypto).(defaultStrategy)
	assert.False(t, isDefault)
}

func TestRegistryFallsBackForUnknownType(t *testing.T) {
	r := NewRegistry()
	s := r.For(domain.TransactionTypeTopUp)
	_, ok := s.(defaultStrategy)
	assert.True(t, ok)
}

func TestCardSearchContentIncludesMerchantFields(t *testing.T) {
	s := cardStrategy{}
	tx := domain.NewTransactionInput{
		Amount:   decimal.NewFromFloat(12.50),
		Currency: "USD",
		Status:   domain.StatusCompleted,
		Metadata: domain.Metadata{"merchant_name": "Coffee Shop", "location": "NYC"},
	}
	content := s.BuildSearchContent(tx)
	assert.Contains(t, content, "Coffee Shop")
	assert.Contains(t, content, "NYC")
	assert.Contains(t, content, "12.5")
}

func TestDefaultSearchContentUsesTransactionType(t *testing.T) {
	s := defaultStrategy{}
	tx := domain.NewTransactionInput{
		TransactionType: domain.TransactionTypeTopUp,
		Amount:          decimal.NewFromInt(10),
		Currency:        "EUR",
		Status:          domain.StatusPending,
	}
	assert.Equal(t, "top_up 10 EUR pending", s.BuildSearchContent(tx))
}

func TestEnrichMetadataCopiesWithoutAliasing(t *testing.T) {
	s := cardStrategy{}
	original := domain.Metadata{"merchant_name": "Shop"}
	enriched := s.EnrichMetadata(original)
	enriched["merchant_name"] = "Other"
	assert.Equal(t, "Shop", original["merchant_name"])
}
