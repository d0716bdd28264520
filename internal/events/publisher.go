// Package events is the event publisher (C7): it appends
// transaction.{created,updated,deleted} events to a partitioned log
// keyed by user_id, so every event for a user lands on the same
// partition and preserves per-user ordering.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/domain"
)

// Event is the wire envelope published to the transactions topic.
type Event struct {
	EventType   string     `json:"event_type"`
	Transaction Envelope   `json:"transaction"`
	Timestamp   string     `json:"timestamp"`
}

// Envelope is the transaction payload embedded in an event; it widens
// Metadata to a plain map and formats timestamps as ISO-8601 so the
// wire format matches across producer/consumer language boundaries.
type Envelope struct {
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

func toEnvelope(tx domain.Transaction, version *int64) Envelope {
	return Envelope{
		ID:              tx.ID.String(),
		UserID:          tx.UserID,
		TransactionType: string(tx.TransactionType),
		Product:         string(tx.Product),
		Status:          string(tx.Status),
		Currency:        tx.Currency,
		Amount:          tx.Amount.String(),
		Metadata:        tx.Metadata,
		CreatedAt:       tx.CreatedAt.UTC().Format(time.RFC3339Nano),
		Version:         version,
	}
}

// Publisher wraps a franz-go client configured for ordered, replicated
// delivery: AllISRAcks plus a single in-flight produce request per
// broker, the Go analog of acks='all' + max_in_flight_requests_per_connection=1.
type Publisher struct {
	client  *kgo.Client
	topic   string
	breaker *breaker.Breaker
	log     zerolog.Logger
}

// New builds a Publisher against the given brokers and topic.
func New(brokers []string, topic string, br *breaker.Breaker, log zerolog.Logger) (*Publisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.MaxProduceRequestsInflightPerBroker(1),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, fmt.Errorf("events: new client: %w", err)
	}
	return &Publisher{client: client, topic: topic, breaker: br, log: log.With().Str("component", "events").Logger()}, nil
}

func (p *Publisher) Close() { p.client.Close() }

func (p *Publisher) publish(ctx context.Context, eventType string, tx domain.Transaction, version *int64) error {
	evt := Event{
		EventType:   eventType,
		Transaction: toEnvelope(tx, version),
		Timestamp:   tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal: %w", err)
	}

	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(tx.UserID),
		Value: body,
	}

	runErr := p.breaker.Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		results := p.client.ProduceSync(ctx, record)
		return results.FirstErr()
	})
	if runErr != nil {
		if breaker.IsOpen(runErr) {
			p.log.Warn().Str("event_type", eventType).Msg("event publish skipped: circuit breaker open")
		} else {
			p.log.Warn().Err(runErr).Str("event_type", eventType).Msg("event publish failed")
		}
		return runErr
	}
	return nil
}

// PublishCreated publishes a transaction.created event.
func (p *Publisher) PublishCreated(ctx context.Context, tx domain.Transaction) error {
	return p.publish(ctx, "transaction.created", tx, nil)
}

// PublishUpdated publishes a transaction.updated event carrying the
// explicit version the consumer should honor.
func (p *Publisher) PublishUpdated(ctx context.Context, tx domain.Transaction, version int64) error {
	return p.publish(ctx, "transaction.updated", tx, &version)
}

// PublishDeleted publishes a transaction.deleted event.
func (p *Publisher) PublishDeleted(ctx context.Context, tx domain.Transaction) error {
	return p.publish(ctx, "transaction.deleted", tx, nil)
}

func (p *Publisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
