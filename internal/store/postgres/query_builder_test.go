package postgres

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/domain"
)

func TestQueryBuilderBasicUserFilter(t *testing.T) {
	qb := newQueryBuilder("user-1", domain.Filter{})
	qb.orderAndLimit(20)

	assert.Equal(t, []any{"user-1"}, qb.args())
	assert.Contains(t, qb.sql(), "WHERE user_id = $1")
	assert.Contains(t, qb.sql(), "ORDER BY created_at DESC, id DESC")
	assert.Contains(t, qb.sql(), "LIMIT 21")
}

func TestQueryBuilderAppliesAllFilters(t *testing.T) {
	min := decimal.NewFromInt(5)
	max := decimal.NewFromInt(500)
	start := time.Now().Add(-24 * time.Hour)
	end := time.Now()

	f := domain.Filter{
		TransactionType: domain.TransactionTypeCard,
		Product:         domain.ProductCard,
		Status:          domain.StatusCompleted,
		Currency:        "USD",
		StartDate:       &start,
		EndDate:         &end,
		MinAmount:       &min,
		MaxAmount:       &max,
		SearchQuery:     "coffee",
	}
	qb := newQueryBuilder("user-1", f)
	sql := qb.sql()

	assert.Contains(t, sql, "transaction_type = $2")
	assert.Contains(t, sql, "product = $3")
	assert.Contains(t, sql, "status = $4")
	assert.Contains(t, sql, "currency = $5")
	assert.Contains(t, sql, "created_at >= $6")
	assert.Contains(t, sql, "created_at <= $7")
	assert.Contains(t, sql, "amount >= $8")
	assert.Contains(t, sql, "amount <= $9")
	assert.Contains(t, sql, "search_content ILIKE $10")
	assert.Len(t, qb.args(), 10)
}

func TestQueryBuilderMetadataFilterRequiresKeyExistence(t *testing.T) {
	qb := newQueryBuilder("user-1", domain.Filter{
		MetadataFilters: map[string]string{"merchant_category": "coffee_shop"},
	})
	sql := qb.sql()
	assert.Contains(t, sql, "custom_metadata->>$2 IS NOT NULL")
	assert.Contains(t, sql, "custom_metadata->>$2 = $3")
	assert.Equal(t, []any{"user-1", "merchant_category", "coffee_shop"}, qb.args())
}

func TestQueryBuilderAfterCursorUsesKeysetPredicate(t *testing.T) {
	qb := newQueryBuilder("user-1", domain.Filter{})
	ts := time.Now()
	id := uuid.New()
	qb.afterCursor(ts, id)
	qb.orderAndLimit(20)

	sql := qb.sql()
	assert.Contains(t, sql, "created_at < $2 OR (created_at = $3 AND id < $4)")
	assert.Equal(t, []any{"user-1", ts, ts, id}, qb.args())
}

func TestQueryBuilderCountSQLHasNoOrderOrLimit(t *testing.T) {
	qb := newQueryBuilder("user-1", domain.Filter{})
	countSQL := qb.countSQL()
	assert.Contains(t, countSQL, "SELECT COUNT(*)")
	assert.NotContains(t, countSQL, "ORDER BY")
	assert.NotContains(t, countSQL, "LIMIT")
}

func TestQueryBuilderOffsetAppendsOffsetClause(t *testing.T) {
	qb := newQueryBuilder("user-1", domain.Filter{})
	qb.orderAndLimit(20)
	qb.offset(40)
	assert.Contains(t, qb.sql(), "OFFSET 40")
}
