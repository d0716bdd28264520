package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/domain"
)

var errUnknownEventType = errors.New("consumer: unknown event type")
var errMissingTransactionID = errors.New("consumer: delete event missing transaction id")

func splitBrokers(csv string) []string {
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

type processedMarker struct {
	ProcessedAt string `json:"processed_at"`
}

func (c *Consumer) processedCacheKey(fp string) string { return "message:processed:" + fp }

func (c *Consumer) isDuplicate(ctx context.Context, fp string) bool {
	if c.seen.Contains(fp) {
		return true
	}
	var marker processedMarker
	found, err := c.cache.Get(ctx, c.processedCacheKey(fp), &marker)
	if err != nil {
		c.log.Warn().Err(err).Msg("idempotency cache lookup failed")
		return false
	}
	return found
}

func (c *Consumer) markProcessed(ctx context.Context, fp string) {
	c.seen.Add(fp)
	c.cache.Set(ctx, c.processedCacheKey(fp), processedMarker{ProcessedAt: time.Now().UTC().Format(time.RFC3339Nano)}, processedMarkerTTL)
}

// processRecord runs a single message through the fingerprint, dedup,
// enrich, version and fan-out pipeline. A nil return means the record
// should be acked (committed); a non-nil return means it should be
// routed to the dead letter queue instead.
func (c *Consumer) processRecord(ctx context.Context, rec *kgo.Record) error {
	var msg inboundMessage
	if err := json.Unmarshal(rec.Value, &msg); err != nil {
		return err
	}

	if msg.Transaction.ID == "" {
		c.log.Warn().Str("event_type", msg.EventType).Msg("message missing transaction data, acking to avoid reprocessing")
		return nil
	}

	fp := fingerprint(msg)
	if c.isDuplicate(ctx, fp) {
		c.log.Info().Str("message_id", fp).Str("transaction_id", msg.Transaction.ID).Msg("duplicate message detected, skipping")
		return nil
	}

	switch msg.EventType {
	case "transaction.created", "transaction.updated":
		return c.processUpsert(ctx, msg, fp)
	case "transaction.deleted":
		return c.processDelete(ctx, msg, fp)
	default:
		c.log.Warn().Str("event_type", msg.EventType).Msg("unknown event type")
		return errUnknownEventType
	}
}

func (c *Consumer) processUpsert(ctx context.Context, msg inboundMessage, fp string) error {
	tx, err := toTransaction(msg.Transaction)
	if err != nil {
		return err
	}

	strat := c.strategies.For(tx.TransactionType)
	tx.Metadata = strat.EnrichMetadata(tx.Metadata)
	tx.SearchContent = strat.BuildSearchContent(domain.NewTransactionInput{
		UserID:          tx.UserID,
		TransactionType: tx.TransactionType,
		Product:         tx.Product,
		Status:          tx.Status,
		Currency:        tx.Currency,
		Amount:          tx.Amount,
		Metadata:        tx.Metadata,
	})

	tx.Version = c.resolveVersion(ctx, tx.ID.String(), msg.Transaction.Version)

	indexErr := c.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		return c.search.Index(ctx, tx, tx.Version)
	})

	if indexErr == nil {
		auditErr := c.breakers.Get(breaker.Postgres).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
			return c.store.Upsert(ctx, tx)
		})
		if auditErr != nil {
			c.log.Warn().Err(auditErr).Str("transaction_id", tx.ID.String()).Msg("audit db write failed")
		}
		c.markProcessed(ctx, fp)
		c.log.Info().Str("transaction_id", tx.ID.String()).Str("event_type", msg.EventType).Msg("transaction processed")
		return nil
	}

	auditErr := c.breakers.Get(breaker.Postgres).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		return c.store.Upsert(ctx, tx)
	})

	if breaker.IsOpen(indexErr) && auditErr == nil {
		// Index outage with the durable audit write intact: ack now and
		// let the breaker-recheck loop rebuild the index once it closes,
		// rather than block the partition on an outage every message
		// will hit the same way.
		c.markProcessed(ctx, fp)
		c.log.Warn().Str("transaction_id", tx.ID.String()).Msg("transaction saved to audit db but not indexed: circuit breaker open")
		return nil
	}

	if auditErr != nil {
		c.log.Warn().Err(auditErr).Str("transaction_id", tx.ID.String()).Msg("audit db write failed")
	}
	c.log.Warn().Err(indexErr).Str("transaction_id", tx.ID.String()).Msg("failed to index transaction, routing to dead letter queue")
	return indexErr
}

func (c *Consumer) processDelete(ctx context.Context, msg inboundMessage, fp string) error {
	if msg.Transaction.ID == "" {
		return errMissingTransactionID
	}
	id, err := uuid.Parse(msg.Transaction.ID)
	if err != nil {
		return err
	}

	indexErr := c.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		return c.search.Delete(ctx, id.String())
	})

	if indexErr == nil {
		auditErr := c.breakers.Get(breaker.Postgres).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
			return c.store.Delete(ctx, id)
		})
		if auditErr != nil {
			c.log.Warn().Err(auditErr).Str("transaction_id", id.String()).Msg("failed to delete from audit db")
		}
		c.markProcessed(ctx, fp)
		c.log.Info().Str("transaction_id", id.String()).Msg("transaction deleted")
		return nil
	}

	auditErr := c.breakers.Get(breaker.Postgres).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		return c.store.Delete(ctx, id)
	})

	if breaker.IsOpen(indexErr) && auditErr == nil {
		c.markProcessed(ctx, fp)
		c.log.Warn().Str("transaction_id", id.String()).Msg("transaction deleted from audit db but not from index: circuit breaker open")
		return nil
	}

	if auditErr != nil {
		c.log.Warn().Err(auditErr).Str("transaction_id", id.String()).Msg("failed to delete from audit db")
	}
	c.log.Warn().Err(indexErr).Str("transaction_id", id.String()).Msg("failed to delete from search index, routing to dead letter queue")
	return indexErr
}

// resolveVersion honors an explicit version carried on the wire;
// otherwise it queries Elasticsearch's current external version for
// the document and assigns one past it, so a redelivery never regresses
// a document that has already moved on. A breaker-open or lookup error
// falls back to version 1, the same "best effort, never block" posture
// as the rest of this pipeline.
func (c *Consumer) resolveVersion(ctx context.Context, id string, explicit *int64) int64 {
	if explicit != nil {
		return *explicit
	}

	var current int64
	var found bool
	err := c.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		v, f, err := c.search.GetVersion(ctx, id)
		current, found = v, f
		return err
	})
	if err != nil || !found {
		return 1
	}
	return current + 1
}
