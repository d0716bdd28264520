package query

import (
	"context"

	"github.com/google/uuid"

	"github.com/astropay/activityfeed/internal/apperr"
	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/domain"
	"github.com/astropay/activityfeed/internal/search/elastic"
	"github.com/astropay/activityfeed/internal/store/postgres"
)

func parseUUID(s string) (uuid.UUID, error) { return uuid.Parse(s) }

// RelationalBackend answers listings directly from the relational
// store. It is the default primary and the only backend capable of
// serving the "search disabled" substring fallback.
type RelationalBackend struct {
	store    *postgres.Store
	breakers *breaker.Registry
}

func NewRelationalBackend(store *postgres.Store, breakers *breaker.Registry) *RelationalBackend {
	return &RelationalBackend{store: store, breakers: breakers}
}

func (b *RelationalBackend) Name() string { return "relational" }

func (b *RelationalBackend) ListOffset(ctx context.Context, userID string, filter domain.Filter, p OffsetParams) ([]domain.Transaction, int, error) {
	var items []domain.Transaction
	var total int
	err := b.breakers.Get(breaker.Postgres).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		var runErr error
		items, total, runErr = b.store.ListOffset(ctx, userID, filter, p.Page, p.PageSize)
		return runErr
	})
	return items, total, err
}

func (b *RelationalBackend) ListKeyset(ctx context.Context, userID string, filter domain.Filter, after *domain.Transaction, limit int) ([]domain.Transaction, bool, error) {
	var items []domain.Transaction
	var hasMore bool
	err := b.breakers.Get(breaker.Postgres).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		var runErr error
		items, hasMore, runErr = b.store.ListPage(ctx, userID, filter, after, limit)
		return runErr
	})
	return items, hasMore, err
}

// SearchBackend answers listings from Elasticsearch, hydrating full
// records from the relational store (the search index is never the
// amount-precision authority). When USE_ELASTICSEARCH_AS_PRIMARY is
// set, this is selected as Service.primary; the service's own
// searchThenHydrate/searchThenHydrateKeyset methods then become
// redundant with this backend's own listing path only in the sense
// that both end up calling Search + hydrate — this type exists so a
// search-primary deployment also uses Elasticsearch for filter-only
// listings (no search_query set), not just when one is present.
type SearchBackend struct {
	search   *elastic.Client
	store    *postgres.Store
	breakers *breaker.Registry
}

func NewSearchBackend(search *elastic.Client, store *postgres.Store, breakers *breaker.Registry) *SearchBackend {
	return &SearchBackend{search: search, store: store, breakers: breakers}
}

func (b *SearchBackend) Name() string { return "search" }

func (b *SearchBackend) ListOffset(ctx context.Context, userID string, filter domain.Filter, p OffsetParams) ([]domain.Transaction, int, error) {
	q := toSearchQuery(userID, filter, p.Page, p.PageSize)
	var ids []string
	var total int
	err := b.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		var runErr error
		ids, total, runErr = b.search.Search(ctx, q)
		return runErr
	})
	if err != nil {
		return nil, 0, err
	}
	items, err := hydrateWithStore(ctx, b.store, b.breakers, ids)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (b *SearchBackend) ListKeyset(ctx context.Context, userID string, filter domain.Filter, after *domain.Transaction, limit int) ([]domain.Transaction, bool, error) {
	q := toSearchQuery(userID, filter, 1, limit*2)
	var ids []string
	err := b.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		var runErr error
		ids, _, runErr = b.search.Search(ctx, q)
		return runErr
	})
	if err != nil {
		return nil, false, err
	}
	items, err := hydrateWithStore(ctx, b.store, b.breakers, ids)
	if err != nil {
		return nil, false, err
	}
	items = sortCanonicalDesc(items)
	if after != nil {
		items = filterStrictlyAfter(items, *after)
	}
	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}
	return items, hasMore, nil
}

func hydrateWithStore(ctx context.Context, store *postgres.Store, breakers *breaker.Registry, ids []string) ([]domain.Transaction, error) {
	out := make([]domain.Transaction, 0, len(ids))
	for _, idStr := range ids {
		id, err := parseUUID(idStr)
		if err != nil {
			continue
		}
		var tx domain.Transaction
		runErr := breakers.Get(breaker.Postgres).Run(ctx, notFoundClassifier, func(ctx context.Context) error {
			var getErr error
			tx, getErr = store.GetByID(ctx, id)
			return getErr
		})
		if runErr == postgres.ErrNotFound {
			continue
		}
		if runErr != nil {
			return nil, apperr.Internal(runErr)
		}
		out = append(out, tx)
	}
	return out, nil
}

// notFoundClassifier excludes a missing row from the breaker's failure
// accounting: a 404 is a correct answer from a healthy store, not a
// dependency failure, so it must not count toward tripping the circuit.
func notFoundClassifier(err error) bool {
	return err != nil && err != postgres.ErrNotFound
}
