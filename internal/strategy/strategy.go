// Package strategy implements the per-transaction-type enrichment and
// search-content rules: each TransactionType gets its own Strategy,
// with a Default used for anything the registry doesn't recognize.
package strategy

import (
	"fmt"
	"strings"

	"github.com/astropay/activityfeed/internal/domain"
)

// Strategy builds the searchable summary for a transaction and
// validates/enriches its metadata. Validation never fails in the
// built-in strategies — it exists as a hook for domain-specific rules
// a future transaction type might need.
type Strategy interface {
	ValidateMetadata(meta domain.Metadata) error
	EnrichMetadata(meta domain.Metadata) domain.Metadata
	BuildSearchContent(tx domain.NewTransactionInput) string
}

// Registry resolves a Strategy by transaction type, falling back to
// Default for anything unregistered.
type Registry struct {
	strategies map[domain.TransactionType]Strategy
	fallback   Strategy
}

// NewRegistry builds the registry with the built-in strategies wired
// to their transaction types, matching the original factory's card/
// p2p/crypto trio plus a default for everything else.
func NewRegistry() *Registry {
	return &Registry{
		strategies: map[domain.TransactionType]Strategy{
			domain.TransactionTypeCard:   cardStrategy{},
			domain.TransactionTypeP2P:    p2pStrategy{},
			domain.TransactionTypeCrypto: cryptoStrategy{},
		},
		fallback: defaultStrategy{},
	}
}

// For resolves the Strategy for a transaction type.
func (r *Registry) For(t domain.TransactionType) Strategy {
	if s, ok := r.strategies[t]; ok {
		return s
	}
	return r.fallback
}

func metaString(meta domain.Metadata, key string) (string, bool) {
	v, ok := meta[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func copyMetadata(meta domain.Metadata) domain.Metadata {
	if meta == nil {
		return domain.Metadata{}
	}
	out := make(domain.Metadata, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// --- card payment ---

type cardStrategy struct{}

func (cardStrategy) ValidateMetadata(domain.Metadata) error { return nil }

func (cardStrategy) EnrichMetadata(meta domain.Metadata) domain.Metadata {
	return copyMetadata(meta)
}

func (cardStrategy) BuildSearchContent(tx domain.NewTransactionInput) string {
	parts := []string{
		fmt.Sprintf("Card payment %s %s", tx.Amount.String(), tx.Currency),
		string(tx.Status),
	}
	for _, key := range []string{"merchant_name", "merchant_category", "location"} {
		if v, ok := metaString(tx.Metadata, key); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// --- P2P transfer ---

type p2pStrategy struct{}

func (p2pStrategy) ValidateMetadata(domain.Metadata) error { return nil }

func (p2pStrategy) EnrichMetadata(meta domain.Metadata) domain.Metadata {
	return copyMetadata(meta)
}

func (p2pStrategy) BuildSearchContent(tx domain.NewTransactionInput) string {
	parts := []string{
		fmt.Sprintf("P2P transfer %s %s", tx.Amount.String(), tx.Currency),
		string(tx.Status),
	}
	for _, key := range []string{"peer_name", "peer_email", "direction"} {
		if v, ok := metaString(tx.Metadata, key); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// --- crypto ---

type cryptoStrategy struct{}

func (cryptoStrategy) ValidateMetadata(domain.Metadata) error { return nil }

func (cryptoStrategy) EnrichMetadata(meta domain.Metadata) domain.Metadata {
	return copyMetadata(meta)
}

func (cryptoStrategy) BuildSearchContent(tx domain.NewTransactionInput) string {
	parts := []string{
		fmt.Sprintf("Crypto %s %s", tx.Amount.String(), tx.Currency),
		string(tx.Status),
	}
	for _, key := range []string{"crypto_type", "wallet_address"} {
		if v, ok := metaString(tx.Metadata, key); ok {
			parts = append(parts, v)
		}
	}
	return strings.Join(parts, " ")
}

// --- default ---

type defaultStrategy struct{}

func (defaultStrategy) ValidateMetadata(domain.Metadata) error { return nil }

func (defaultStrategy) EnrichMetadata(meta domain.Metadata) domain.Metadata {
	return copyMetadata(meta)
}

func (defaultStrategy) BuildSearchContent(tx domain.NewTransactionInput) string {
	return fmt.Sprintf("%s %s %s %s", tx.TransactionType, tx.Amount.String(), tx.Currency, tx.Status)
}
