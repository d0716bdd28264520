// Package domain holds the core transaction types shared by every
// adapter and service in the activity feed: the store, the search
// index, the cache, the event pipeline, and the HTTP surface all speak
// this vocabulary rather than their own ad-hoc structs.
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionType enumerates the kinds of activity the feed accepts.
type TransactionType string

const (
	TransactionTypeCard        TransactionType = "card"
	TransactionTypeP2P         TransactionType = "p2p"
	TransactionTypeCrypto      TransactionType = "crypto"
	TransactionTypeTopUp       TransactionType = "top_up"
	TransactionTypeWithdrawal  TransactionType = "withdrawal"
	TransactionTypeBillPayment TransactionType = "bill_payment"
	TransactionTypeEarnings    TransactionType = "earnings"
)

func (t TransactionType) Valid() bool {
	switch t {
	case TransactionTypeCard, TransactionTypeP2P, TransactionTypeCrypto,
		TransactionTypeTopUp, TransactionTypeWithdrawal,
		TransactionTypeBillPayment, TransactionTypeEarnings:
		return true
	}
	return false
}

// Product is the line of business a transaction belongs to.
type Product string

const (
	ProductCard     Product = "Card"
	ProductP2P      Product = "P2P"
	ProductCrypto   Product = "Crypto"
	ProductEarnings Product = "Earnings"
)

func (p Product) Valid() bool {
	switch p {
	case ProductCard, ProductP2P, ProductCrypto, ProductEarnings:
		return true
	}
	return false
}

// Status is the lifecycle state of a transaction.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusPending   Status = "pending"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

func (s Status) Valid() bool {
	switch s {
	case StatusCompleted, StatusPending, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Metadata is the free-form, per-transaction-type payload. Keys and
// values are strings on the wire; callers that need structured values
// encode them as JSON strings under a single key.
type Metadata map[string]any

// Transaction is the canonical record. Amount is fixed-point
// (shopspring/decimal) on this, the authoritative, path; the search
// index is allowed to widen it to float64 for range filtering only.
type Transaction struct {
	ID              uuid.UUID       `json:"id"`
	UserID          string          `json:"user_id"`
	TransactionType TransactionType `json:"transaction_type"`
	Product         Product         `json:"product"`
	Status          Status          `json:"status"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	Metadata        Metadata        `json:"metadata,omitempty"`
	SearchContent   string          `json:"-"`
	Version         int64           `json:"-"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

// NewTransactionInput is what callers supply to create a transaction;
// ID, Version, CreatedAt and SearchContent are assigned by the service.
type NewTransactionInput struct {
	UserID          string
	TransactionType TransactionType
	Product         Product
	Status          Status
	Currency        string
	Amount          decimal.Decimal
	Metadata        Metadata
}

// Filter narrows a transaction listing. Zero values mean "unset" for
// every field except the two amount bounds, which are pointers because
// decimal.Decimal's zero value (0) is a legitimate bound.
type Filter struct {
	TransactionType TransactionType
	Product         Product
	Status          Status
	Currency        string
	StartDate       *time.Time
	EndDate         *time.Time
	MinAmount       *decimal.Decimal
	MaxAmount       *decimal.Decimal
	SearchQuery     string
	MetadataFilters map[string]string
}
