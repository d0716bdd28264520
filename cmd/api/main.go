// Command api runs the activity feed's HTTP query/create surface:
// dual-path transaction listing, single-transaction lookup, the HTTP
// short-circuit create path, and token issuance.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/astropay/activityfeed/internal/auth"
	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/cache/redis"
	"github.com/astropay/activityfeed/internal/config"
	"github.com/astropay/activityfeed/internal/events"
	"github.com/astropay/activityfeed/internal/health"
	"github.com/astropay/activityfeed/internal/httpapi"
	"github.com/astropay/activityfeed/internal/logging"
	"github.com/astropay/activityfeed/internal/query"
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

	publisher, err := events.New(splitBrokers(cfg.KafkaBrokers), cfg.KafkaTransactionTopic, breakers.Get(breaker.Kafka), log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build event publisher")
	}
	defer publisher.Close()

	strategies := strategy.NewRegistry()

	var primary query.Backend
	if cfg.UseSearchPrimary {
		primary = query.NewSearchBackend(search, store, breakers)
	} else {
		primary = query.NewRelationalBackend(store, breakers)
	}
	queries := query.New(primary, store, search, true, cache, cfg.CacheTTL, breakers)
	writer := query.NewWriter(store, search, publisher, strategies, queries, breakers, log)

	issuer := auth.New(cfg)
	checker := health.New(store, cache, search, publisher, breakers, cfg.ExternalServiceTimeout)

	handler := httpapi.New(httpapi.Deps{
		Config:   cfg,
		Logger:   log,
		Issuer:   issuer,
		Queries:  queries,
		Writer:   writer,
		Health:   checker,
		Breakers: breakers,
	})

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: handler,
	}

	go func() {
		log.Info().Str("addr", cfg.Addr).Msg("activity feed API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func splitBrokers(csv string) []string {
	var out []string
	for _, part := range strings.Split(csv, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
