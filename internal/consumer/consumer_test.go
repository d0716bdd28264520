package consumer

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/domain"
)

func TestFingerprintIsDeterministicOverIDEventTypeTimestamp(t *testing.T) {
	msg := inboundMessage{
		EventType:   "transaction.created",
		Transaction: inboundEnvelope{ID: "tx-1"},
		Timestamp:   "2026-01-01T00:00:00Z",
	}
	a := fingerprint(msg)
	b := fingerprint(msg)
	assert.Equal(t, a, b)
	assert.Len(t, a, 64) // hex-encoded sha256
}

func TestFingerprintDiffersOnTimestamp(t *testing.T) {
	base := inboundMessage{EventType: "transaction.created", Transaction: inboundEnvelope{ID: "tx-1"}, Timestamp: "2026-01-01T00:00:00Z"}
	other := base
	other.Timestamp = "2026-01-01T00:00:01Z"
	assert.NotEqual(t, fingerprint(base), fingerprint(other))
}

func TestToTransactionRejectsMalformedFields(t *testing.T) {
	_, err := toTransaction(inboundEnvelope{ID: "not-a-uuid", Amount: "12.50", CreatedAt: "2026-01-01T00:00:00Z"})
	assert.Error(t, err)

	_, err = toTransaction(inboundEnvelope{ID: "00000000-0000-0000-0000-000000000001", Amount: "not-a-number", CreatedAt: "2026-01-01T00:00:00Z"})
	assert.Error(t, err)

	_, err = toTransaction(inboundEnvelope{ID: "00000000-0000-0000-0000-000000000001", Amount: "12.50", CreatedAt: "not-a-timestamp"})
	assert.Error(t, err)
}

func TestToTransactionParsesValidEnvelope(t *testing.T) {
	tx, err := toTransaction(inboundEnvelope{
		ID:              "00000000-0000-0000-0000-000000000001",
		UserID:          "user-1",
		TransactionType: string(domain.TransactionTypeCard),
		Amount:          "12.50",
		Currency:        "USD",
		CreatedAt:       "2026-01-01T00:00:00Z",
	})
	assert.NoError(t, err)
	assert.Equal(t, "user-1", tx.UserID)
	assert.Equal(t, "12.5", tx.Amount.String())
}

func TestSeenSetEvictsOldestOverCapacity(t *testing.T) {
	s := newSeenSet(2)
	s.Add("a")
	s.Add("b")
	s.Add("c")
	assert.False(t, s.Contains("a"), "oldest entry should have been evicted")
	assert.True(t, s.Contains("b"))
	assert.True(t, s.Contains("c"))
}

func TestSeenSetAddIsIdempotent(t *testing.T) {
	s := newSeenSet(2)
	s.Add("a")
	s.Add("a")
	s.Add("a")
	assert.True(t, s.Contains("a"))
}

func TestSplitBrokersTrimsAndDropsEmpty(t *testing.T) {
	got := splitBrokers(" broker1:9092 , broker2:9092,, ")
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, got)
}
