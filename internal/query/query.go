// Package query implements the dual-path query service: one contract,
// two interchangeable backends (relational-primary, search-primary)
// selected once at startup, sharing cache-key construction, cursor
// handling, and the search-fallback-when-disabled rule.
package query

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/astropay/activityfeed/internal/apperr"
	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/cache/redis"
	"github.com/astropay/activityfeed/internal/cursor"
	"github.com/astropay/activityfeed/internal/domain"
	"github.com/astropay/activityfeed/internal/search/elastic"
	"github.com/astropay/activityfeed/internal/store/postgres"
)

// Page is an offset-paginated result.
type Page struct {
	Items      []domain.Transaction `json:"items"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PageSize   int                  `json:"page_size"`
	TotalPages int                  `json:"total_pages"`
}

// KeysetPage is a cursor-paginated result.
type KeysetPage struct {
	Items      []domain.Transaction `json:"items"`
	NextCursor *string              `json:"next_cursor"`
	HasMore    bool                 `json:"has_more"`
	Limit      int                  `json:"limit"`
}

// OffsetParams selects a page by number.
type OffsetParams struct {
	Page     int
	PageSize int
}

// CursorParams selects a page by opaque cursor.
type CursorParams struct {
	Cursor string
	Limit  int
}

// Backend is the port the two primaries implement; Service contains
// everything backend-agnostic (cache, cursor assembly, search
// fallback).
type Backend interface {
	// ListOffset returns a user's transactions for offset pagination.
	ListOffset(ctx context.Context, userID string, filter domain.Filter, p OffsetParams) ([]domain.Transaction, int, error)
	// ListKeyset returns a user's transactions strictly after `after`
	// (nil means from the start), ordered by the canonical order.
	ListKeyset(ctx context.Context, userID string, filter domain.Filter, after *domain.Transaction, limit int) ([]domain.Transaction, bool, error)
	// Name identifies the backend for logging/cache-namespace purposes.
	Name() string
}

// Service is the dual-path query engine. It is backend-agnostic:
// primary selects the path used when no search_query is present;
// search is consulted whenever a search query is present and
// searchEnabled is true, and the relational store's substring filter
// answers a search query when search is disabled or fails.
type Service struct {
	primary       Backend
	store         *postgres.Store
	search        *elastic.Client
	searchEnabled bool
	cache         *redis.Cache
	cacheTTL      time.Duration
	breakers      *breaker.Registry
}

// New builds the query service. primary determines which backend
// answers non-search-query listings; store is always available for
// by-id hydration and as the relational-substring fallback when
// search is disabled.
func New(primary Backend, store *postgres.Store, search *elastic.Client, searchEnabled bool, cache *redis.Cache, cacheTTL time.Duration, breakers *breaker.Registry) *Service {
	return &Service{
		primary:       primary,
		store:         store,
		search:        search,
		searchEnabled: searchEnabled,
		cache:         cache,
		cacheTTL:      cacheTTL,
		breakers:      breakers,
	}
}

// Get answers an offset-paginated listing, consulting the cache first
// and writing through on a miss.
func (s *Service) Get(ctx context.Context, userID string, filter domain.Filter, p OffsetParams) (Page, error) {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.PageSize < 1 {
		p.PageSize = 20
	}

	key := buildCacheKeyOffset(s.primary.Name(), userID, filter, p)
	var cached Page
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	var (
		items []domain.Transaction
		total int
		err   error
	)
	if filter.SearchQuery != "" {
		items, total, err = s.searchThenHydrate(ctx, userID, filter, p)
	} else {
		items, total, err = s.primary.ListOffset(ctx, userID, filter, p)
	}
	if err != nil {
		return Page{}, err
	}

	totalPages := (total + p.PageSize - 1) / p.PageSize
	page := Page{Items: items, Total: total, Page: p.Page, PageSize: p.PageSize, TotalPages: totalPages}
	s.cache.Set(ctx, key, page, s.cacheTTL)
	return page, nil
}

// GetKeyset answers a cursor-paginated listing.
func (s *Service) GetKeyset(ctx context.Context, userID string, filter domain.Filter, p CursorParams) (KeysetPage, error) {
	if p.Limit < 1 {
		p.Limit = 20
	}

	key := buildCacheKeyCursor(s.primary.Name(), userID, filter, p)
	var cached KeysetPage
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	var after *domain.Transaction
	if c, ok := cursor.Decode(p.Cursor); ok {
		after = &domain.Transaction{ID: c.ID, CreatedAt: c.CreatedAt}
	}

	var (
		items   []domain.Transaction
		hasMore bool
		err     error
	)
	if filter.SearchQuery != "" {
		items, hasMore, err = s.searchThenHydrateKeyset(ctx, userID, filter, after, p.Limit)
	} else {
		items, hasMore, err = s.primary.ListKeyset(ctx, userID, filter, after, p.Limit)
	}
	if err != nil {
		return KeysetPage{}, err
	}

	var nextCursor *string
	if hasMore && len(items) > 0 {
		last := items[len(items)-1]
		c := cursor.Encode(last.ID, last.CreatedAt)
		nextCursor = &c
	}

	result := KeysetPage{Items: items, NextCursor: nextCursor, HasMore: hasMore, Limit: p.Limit}
	s.cache.Set(ctx, key, result, s.cacheTTL)
	return result, nil
}

// GetOne returns a single transaction by id, cached under its own key.
// Cross-user access is the caller's (HTTP layer's) responsibility —
// this method returns whatever record exists regardless of owner.
func (s *Service) GetOne(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	key := fmt.Sprintf("transaction:%s", id.String())
	var cached domain.Transaction
	if found, err := s.cache.Get(ctx, key, &cached); err == nil && found {
		return cached, nil
	}

	var tx domain.Transaction
	err := s.breakers.Get(breaker.Postgres).Run(ctx, notFoundClassifier, func(ctx context.Context) error {
		var getErr error
		tx, getErr = s.store.GetByID(ctx, id)
		return getErr
	})
	if err != nil {
		if err == postgres.ErrNotFound {
			return domain.Transaction{}, apperr.NotFound("transaction not found")
		}
		return domain.Transaction{}, apperr.Internal(err)
	}
	s.cache.Set(ctx, key, tx, s.cacheTTL)
	return tx, nil
}

// InvalidateUser drops every cached page for a user after a write.
func (s *Service) InvalidateUser(ctx context.Context, userID string) {
	s.cache.DeletePattern(ctx, fmt.Sprintf("transactions:user:%s:*", userID))
}

// searchThenHydrate implements the "search returns IDs or documents,
// relational store hydrates" rule for the offset path; when search is
// disabled it falls back to the relational substring filter, matching
// the original's "Elasticsearch is not available" branch.
func (s *Service) searchThenHydrate(ctx context.Context, userID string, filter domain.Filter, p OffsetParams) ([]domain.Transaction, int, error) {
	if !s.searchEnabled {
		return NewRelationalBackend(s.store, s.breakers).ListOffset(ctx, userID, filter, p)
	}

	q := toSearchQuery(userID, filter, p.Page, p.PageSize)
	var ids []string
	var total int
	err := s.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		var runErr error
		ids, total, runErr = s.search.Search(ctx, q)
		return runErr
	})
	if err != nil {
		// Search failure (including breaker-open) degrades to the
		// relational substring fallback rather than failing the
		// request outright.
		return NewRelationalBackend(s.store, s.breakers).ListOffset(ctx, userID, filter, p)
	}
	items, err := s.hydrate(ctx, ids)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *Service) searchThenHydrateKeyset(ctx context.Context, userID string, filter domain.Filter, after *domain.Transaction, limit int) ([]domain.Transaction, bool, error) {
	if !s.searchEnabled {
		return NewRelationalBackend(s.store, s.breakers).ListKeyset(ctx, userID, filter, after, limit)
	}

	q := toSearchQuery(userID, filter, 1, limit*2)
	var ids []string
	err := s.breakers.Get(breaker.Elasticsearch).Run(ctx, breaker.DefaultClassifier, func(ctx context.Context) error {
		var runErr error
		ids, _, runErr = s.search.Search(ctx, q)
		return runErr
	})
	if err != nil {
		return NewRelationalBackend(s.store, s.breakers).ListKeyset(ctx, userID, filter, after, limit)
	}
	items, err := s.hydrate(ctx, ids)
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

func (s *Service) hydrate(ctx context.Context, ids []string) ([]domain.Transaction, error) {
	return hydrateWithStore(ctx, s.store, s.breakers, ids)
}

func sortCanonicalDesc(items []domain.Transaction) []domain.Transaction {
	out := make([]domain.Transaction, len(items))
	copy(out, items)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && lessCanonical(out[j-1], out[j]); j-- {
			out[j-1], out[j] = out[j], out[j-1]
		}
	}
	return out
}

// lessCanonical reports whether b should come before a under the
// canonical DESC order (b is newer, or equally old with a higher id).
func lessCanonical(a, b domain.Transaction) bool {
	if a.CreatedAt.Equal(b.CreatedAt) {
		return a.ID.String() < b.ID.String()
	}
	return a.CreatedAt.Before(b.CreatedAt)
}

func filterStrictlyAfter(items []domain.Transaction, after domain.Transaction) []domain.Transaction {
	out := items[:0:0]
	for _, tx := range items {
		if tx.CreatedAt.Before(after.CreatedAt) ||
			(tx.CreatedAt.Equal(after.CreatedAt) && tx.ID.String() < after.ID.String()) {
			out = append(out, tx)
		}
	}
	return out
}

func toSearchQuery(userID string, filter domain.Filter, page, pageSize int) elastic.SearchQuery {
	q := elastic.SearchQuery{
		UserID:          userID,
		Text:            filter.SearchQuery,
		TransactionType: string(filter.TransactionType),
		Product:         string(filter.Product),
		Status:          string(filter.Status),
		Currency:        filter.Currency,
		MetadataFilters: filter.MetadataFilters,
		Page:            page,
		PageSize:        pageSize,
	}
	if filter.MinAmount != nil {
		v, _ := filter.MinAmount.Float64()
		q.MinAmount = &v
	}
	if filter.MaxAmount != nil {
		v, _ := filter.MaxAmount.Float64()
		q.MaxAmount = &v
	}
	if filter.StartDate != nil {
		v := filter.StartDate.UTC().Format(time.RFC3339)
		q.StartDate = &v
	}
	if filter.EndDate != nil {
		v := filter.EndDate.UTC().Format(time.RFC3339)
		q.EndDate = &v
	}
	return q
}

// buildCacheKeyOffset and buildCacheKeyCursor construct deterministic
// cache keys: two requests that would produce the same result must
// produce the same key, and the search/relational namespaces never
// collide because the backend name is embedded.
func buildCacheKeyOffset(backend, userID string, filter domain.Filter, p OffsetParams) string {
	parts := []string{"transactions", "user", userID, backend}
	parts = appendFilterParts(parts, filter)
	parts = append(parts, fmt.Sprintf("page:%d:size:%d", p.Page, p.PageSize))
	return strings.Join(parts, ":")
}

func buildCacheKeyCursor(backend, userID string, filter domain.Filter, p CursorParams) string {
	parts := []string{"transactions", "user", userID, backend, "cursor"}
	parts = appendFilterParts(parts, filter)
	parts = append(parts, fmt.Sprintf("limit:%d", p.Limit))
	if p.Cursor != "" {
		truncated := p.Cursor
		if len(truncated) > 20 {
			truncated = truncated[:20]
		}
		parts = append(parts, "cursor:"+truncated)
	}
	return strings.Join(parts, ":")
}

func appendFilterParts(parts []string, filter domain.Filter) []string {
	if filter.TransactionType != "" {
		parts = append(parts, "type:"+string(filter.TransactionType))
	}
	if filter.Product != "" {
		parts = append(parts, "product:"+string(filter.Product))
	}
	if filter.Status != "" {
		parts = append(parts, "status:"+string(filter.Status))
	}
	if filter.Currency != "" {
		parts = append(parts, "currency:"+filter.Currency)
	}
	if filter.SearchQuery != "" {
		parts = append(parts, "search:"+filter.SearchQuery)
	}
	if filter.StartDate != nil {
		parts = append(parts, "start:"+filter.StartDate.UTC().Format(time.RFC3339Nano))
	}
	if filter.EndDate != nil {
		parts = append(parts, "end:"+filter.EndDate.UTC().Format(time.RFC3339Nano))
	}
	if filter.MinAmount != nil {
		parts = append(parts, "min:"+filter.MinAmount.String())
	}
	if filter.MaxAmount != nil {
		parts = append(parts, "max:"+filter.MaxAmount.String())
	}
	if len(filter.MetadataFilters) > 0 {
		parts = append(parts, fmt.Sprintf("meta:%v", filter.MetadataFilters))
	}
	return parts
}
