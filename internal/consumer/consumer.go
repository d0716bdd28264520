// Package consumer is the Kafka batch pipeline (C8): it fingerprints
// each inbound event for idempotency, enriches and versions the
// transaction, fans the result out to Elasticsearch and the
// relational audit table, and dead-letters whatever it cannot
// process — all before committing offsets by hand, so a crash between
// processing and commit replays rather than silently drops.
package consumer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/cache/redis"
	"github.com/astropay/activityfeed/internal/config"
	"github.com/astropay/activityfeed/internal/search/elastic"
	"github.com/astropay/activityfeed/internal/store/postgres"
	"github.com/astropay/activityfeed/internal/strategy"
)

const (
	processedMarkerTTL = 24 * time.Hour
	seenSetCapacity    = 50_000
)

// Consumer owns one Kafka client used both to consume the
// transactions topic and to produce to its dead letter topic.
type Consumer struct {
	client     *kgo.Client
	dlqTopic   string
	breakers   *breaker.Registry
	search     *elastic.Client
	store      *postgres.Store
	cache      *redis.Cache
	strategies *strategy.Registry
	log        zerolog.Logger
	seen       *seenSet
	cfg        *config.Config
}

// New builds a Consumer. The returned value owns a live Kafka client;
// callers must call Close when done.
func New(
	cfg *config.Config,
	log zerolog.Logger,
	breakers *breaker.Registry,
	search *elastic.Client,
	store *postgres.Store,
	cache *redis.Cache,
	strategies *strategy.Registry,
) (*Consumer, error) {
	offsetReset := kgo.NewOffset().AtStart()
	if cfg.KafkaAutoOffsetReset == "latest" {
		offsetReset = kgo.NewOffset().AtEnd()
	}

	client, err := kgo.NewClient(
		kgo.SeedBrokers(splitBrokers(cfg.KafkaBrokers)...),
		kgo.ConsumerGroup(cfg.KafkaConsumerGroup),
		kgo.ConsumeTopics(cfg.KafkaTransactionTopic),
		kgo.ConsumeResetOffset(offsetReset),
		kgo.DisableAutoCommit(),
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.RecordRetries(3),
	)
	if err != nil {
		return nil, err
	}

	return &Consumer{
		client:     client,
		dlqTopic:   cfg.KafkaDLQTopic,
		breakers:   breakers,
		search:     search,
		store:      store,
		cache:      cache,
		strategies: strategies,
		log:        log.With().Str("component", "consumer").Logger(),
		seen:       newSeenSet(seenSetCapacity),
		cfg:        cfg,
	}, nil
}

func (c *Consumer) Close() { c.client.Close() }

// Run polls batches until ctx is cancelled. It also starts the
// background circuit-breaker recheck loop, grounded on the same
// ticker/select shape the provider health poller uses elsewhere in
// this codebase's lineage.
func (c *Consumer) Run(ctx context.Context) error {
	go c.breakerRecheckLoop(ctx)

	for {
		fetches := c.client.PollFetches(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		fetches.EachError(func(topic string, partition int32, err error) {
			c.log.Error().Err(err).Str("topic", topic).Int32("partition", partition).Msg("fetch error")
		})

		var records []*kgo.Record
		fetches.EachRecord(func(r *kgo.Record) {
			records = append(records, r)
		})
		if len(records) == 0 {
			continue
		}

		c.processBatch(ctx, records)
	}
}

func (c *Consumer) processBatch(ctx context.Context, records []*kgo.Record) {
	c.log.Info().Int("batch_size", len(records)).Msg("processing batch")

	var successful, failed []*kgo.Record
	var failedErrs []error

	for _, rec := range records {
		if err := c.processRecord(ctx, rec); err != nil {
			failed = append(failed, rec)
			failedErrs = append(failedErrs, err)
			continue
		}
		successful = append(successful, rec)
	}

	for i, rec := range failed {
		c.sendToDLQ(ctx, rec, failedErrs[i])
	}

	if len(successful) > 0 {
		if err := c.client.CommitRecords(ctx, successful...); err != nil {
			c.log.Warn().Err(err).Msg("failed to commit offsets")
		} else {
			c.log.Info().Int("count", len(successful)).Msg("committed successful messages")
		}
	}

	c.log.Info().
		Int("total", len(records)).
		Int("successful", len(successful)).
		Int("failed", len(failed)).
		Msg("batch processed")
}

// sendToDLQ forwards a failed record to the dead letter topic, unless
// the Elasticsearch breaker is currently open — in that case the
// message is left uncommitted (so the next poll redelivers it once the
// dependency recovers) rather than routed to the DLQ under a failure
// that will very likely repeat for every other message in the batch.
func (c *Consumer) sendToDLQ(ctx context.Context, rec *kgo.Record, procErr error) {
	if c.breakers.Get(breaker.Elasticsearch).State() == breaker.StateOpen {
		c.log.Info().Msg("message not sent to DLQ: circuit breaker open, will retry later")
		return
	}

	errMsg := "unknown error"
	if procErr != nil {
		errMsg = procErr.Error()
	}

	var original any
	if err := json.Unmarshal(rec.Value, &original); err != nil {
		original = string(rec.Value)
	}
	payload, err := json.Marshal(map[string]any{
		"original_message": original,
		"error":            errMsg,
		"timestamp":        time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		c.log.Error().Err(err).Msg("failed to marshal DLQ payload")
		return
	}

	dlqRecord := &kgo.Record{Topic: c.dlqTopic, Key: rec.Key, Value: payload}
	if err := c.client.ProduceSync(ctx, dlqRecord).FirstErr(); err != nil {
		c.log.Error().Err(err).Msg("failed to send message to DLQ")
		return
	}
	c.log.Warn().Str("dlq_topic", c.dlqTopic).Msg("message sent to DLQ")
}

// breakerRecheckLoop periodically pings Elasticsearch while its
// breaker is open and force-closes it the moment a ping succeeds,
// so a recovered dependency doesn't have to wait out the breaker's
// own timeout under a consumer that has no traffic driving probes.
func (c *Consumer) breakerRecheckLoop(ctx context.Context) {
	interval := c.cfg.CircuitBreakerCheckInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.checkAndResetBreaker(ctx)
		}
	}
}

func (c *Consumer) checkAndResetBreaker(ctx context.Context) {
	br := c.breakers.Get(breaker.Elasticsearch)
	if br == nil || br.State() != breaker.StateOpen {
		return
	}
	pingCtx, cancel := context.WithTimeout(ctx, c.cfg.ExternalServiceTimeout)
	defer cancel()
	if err := c.search.Ping(pingCtx); err != nil {
		c.log.Debug().Err(err).Msg("elasticsearch still unavailable")
		return
	}
	c.breakers.Reset(breaker.Elasticsearch)
	c.log.Info().Msg("circuit breaker reset: elasticsearch is now available")
}
