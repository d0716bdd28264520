package consumer

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/astropay/activityfeed/internal/domain"
)

// inboundEnvelope mirrors events.Envelope, the wire shape this
// consumer reads back off the transactions topic. It is decoded
// independently rather than shared with the events package so the
// consumer's tolerance for partially-populated or malformed fields
// (a dead letter candidate, not a panic) stays local to this package.
type inboundEnvelope struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	TransactionType string          `json:"transaction_type"`
	Product         string          `json:"product"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	Amount          string          `json:"amount"`
	Metadata        domain.Metadata `json:"metadata,omitempty"`
	CreatedAt       string          `json:"created_at"`
	Version         *int64          `json:"version,omitempty"`
}

type inboundMessage struct {
	EventType   string          `json:"event_type"`
	Transaction inboundEnvelope `json:"transaction"`
	Timestamp   string          `json:"timestamp"`
}

// fingerprint is the idempotency key: sha256 over (id, event_type,
// timestamp), the same triple the original consumer hashes, so a
// redelivered message always reduces to the same fingerprint.
func fingerprint(msg inboundMessage) string {
	content := msg.Transaction.ID + ":" + msg.EventType + ":" + msg.Timestamp
	sum := sha256.Sum256([]byte(content))
	return hex.EncodeToString(sum[:])
}

// toTransaction converts the wire envelope into a domain.Transaction.
// Malformed identifiers, amounts or timestamps are reported as errors
// rather than silently defaulted, so the caller can route the message
// to the dead letter queue instead of indexing garbage.
func toTransaction(env inboundEnvelope) (domain.Transaction, error) {
	id, err := uuid.Parse(env.ID)
	if err != nil {
		return domain.Transaction{}, err
	}
	amount, err := decimal.NewFromString(env.Amount)
	if err != nil {
		return domain.Transaction{}, err
	}
	createdAt, err := time.Parse(time.RFC3339Nano, env.CreatedAt)
	if err != nil {
		createdAt, err = time.Parse(time.RFC3339, env.CreatedAt)
		if err != nil {
			return domain.Transaction{}, err
		}
	}
	return domain.Transaction{
		ID:              id,
		UserID:          env.UserID,
		TransactionType: domain.TransactionType(env.TransactionType),
		Product:         domain.Product(env.Product),
		Status:          domain.Status(env.Status),
		Currency:        env.Currency,
		Amount:          amount,
		Metadata:        env.Metadata,
		CreatedAt:       createdAt,
	}, nil
}
