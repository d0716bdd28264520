// Command consumer runs the Kafka batch pipeline (C8): it pulls
// transaction events off the partitioned log and fans them out to
// Elasticsearch and the relational audit store, dead-lettering
// whatever it cannot process.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/cache/redis"
	"github.com/astropay/activityfeed/internal/config"
	"github.com/astropay/activityfeed/internal/consumer"
	"github.com/astropay/activityfeed/internal/logging"
	"github.com/astropay/activityfeed/internal/search/elastic"
	"github.com/astropay/activityfeed/internal/store/postgres"
	"github.com/astropay/activityfeed/internal/strategy"
)

func main() {
	cfg := config.Load()
	log := logging.New(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	breakers := breaker.NewRegistry(cfg, log, breaker.Postgres, breaker.Redis, breaker.Elasticsearch, breaker.Kafka)

	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}
	defer store.Close()

	search, err := elastic.New(ctx, cfg.ElasticsearchURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to elasticsearch")
	}

	cache, err := redis.New(cfg.RedisURL, breakers.Get(breaker.Redis), log, cfg.CacheTTL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer cache.Close()

	strategies := strategy.NewRegistry()

	c, err := consumer.New(cfg, log, breakers, search, store, cache, strategies)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build consumer")
	}
	defer c.Close()

	log.Info().
		Str("topic", cfg.KafkaTransactionTopic).
		Str("group", cfg.KafkaConsumerGroup).
		Msg("activity feed consumer starting")

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("consumer stopped with error")
		os.Exit(1)
	}

	log.Info().Msg("consumer shut down cleanly")
}
