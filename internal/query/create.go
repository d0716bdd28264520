package query

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/astropay/activityfeed/internal/apperr"
	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/domain"
	"github.com/astropay/activityfeed/internal/events"
	"github.com/astropay/activityfeed/internal/search/elastic"
	"github.com/astropay/activityfeed/internal/store/postgres"
	"github.com/astropay/activityfeed/internal/strategy"
)

// Writer is the HTTP create-path: unlike the consumer, which is the
// system's durable write path via Kafka, this is the short-circuit the
// data model's Lifecycle section calls out — write straight to the
// relational store, index synchronously, and publish an event for
// downstream subscribers, all within the request.
type Writer struct {
	store      *postgres.Store
	search     *elastic.Client
	publisher  *events.Publisher
	strategies *strategy.Registry
	queries    *Service
	breakers   *breaker.Registry
	log        zerolog.Logger
}

// NewWriter builds the create-path service. store, search and queries
// are the same instances the query Service and its backends read
// through, so a write is immediately visible to a cache-cold read.
func NewWriter(store *postgres.Store, search *elastic.Client, publisher *events.Publisher, strategies *strategy.Registry, queries *Service, breakers *breaker.Registry, log zerolog.Logger) *Writer {
	return &Writer{
		store:      store,
		search:     search,
		publisher:  publisher,
		strategies: strategies,
		queries:    queries,
		breakers:   breakers,
		log:        log.With().Str("component", "transaction_writer").Logger(),
	}
}

// Create assembles, validates, and persists a new transaction: strategy
// enrichment → relational insert → synchronous search index → event
// publish → user cache invalidation. The last three steps are
// best-effort — a degraded Elasticsearch, Kafka, or Redis must never
// turn a successful database write into a failed request, matching the
// "eventual consistency with bounded lag is sufficient" non-goal.
func (w *Writer) Create(ctx context.Context, input domain.NewTransactionInput) (domain.Transaction, error) {
	if input.UserID == "" {
		return domain.Transaction{}, apperr.Validation("user_id is required")
	}
	if !input.TransactionType.Valid() {
		return domain.Transaction{}, apperr.Validation("invalid transaction_type")
	}
	if !input.Product.Valid() {
		return domain.Transaction{}, apperr.Validation("invalid product")
	}
	if !input.Status.Valid() {
		return domain.Transaction{}, apperr.Validation("invalid status")
	}

	strat := w.strategies.For(input.TransactionType)
	if err := strat.ValidateMetadata(input.Metadata); err != nil {
		return domain.Transaction{}, apperr.Validation(err.Error())
	}
	input.Metadata = strat.EnrichMetadata(input.Metadata)

	tx := domain.Transaction{
		ID:              uuid.New(),
		UserID:          input.UserID,
		TransactionType: input.TransactionType,
		Product:         input.Product,
		Status:          input.Status,
		Currency:        input.Currency,
		Amount:          input.Amount,
		Metadata:        input.Metadata,
		SearchContent:   strat.BuildSearchContent(input),
		Version:         1,
		CreatedAt:       time.Now().UTC(),
	}

	var created domain.Transaction
	err := w.breakers.Get(breaker.Postgres).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		var createErr error
		created, createErr = w.store.Create(ctx, tx)
		return createErr
	})
	if err != nil {
		return domain.Transaction{}, apperr.Internal(err)
	}

	indexErr := w.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		return w.search.Index(ctx, created, 1)
	})
	if indexErr != nil {
		w.log.Warn().Err(indexErr).Str("id", created.ID.String()).Msg("search index failed on create; relational write stands")
	}

	if err := w.publisher.PublishCreated(ctx, created); err != nil {
		w.log.Warn().Err(err).Str("id", created.ID.String()).Msg("event publish failed on create")
	}

	w.queries.InvalidateUser(ctx, created.UserID)

	return created, nil
}
