package query

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/domain"
)

func TestBuildCacheKeyOffsetDeterministic(t *testing.T) {
	filter := domain.Filter{TransactionType: domain.TransactionTypeCard, Currency: "USD"}
	p := OffsetParams{Page: 2, PageSize: 20}

	k1 := buildCacheKeyOffset("relational", "u1", filter, p)
	k2 := buildCacheKeyOffset("relational", "u1", filter, p)
	assert.Equal(t, k1, k2)
	assert.Equal(t, "transactions:user:u1:relational:type:card:currency:USD:page:2:size:20", k1)
}

func TestBuildCacheKeyNamespacesByBackend(t *testing.T) {
	filter := domain.Filter{}
	p := OffsetParams{Page: 1, PageSize: 20}
	rel := buildCacheKeyOffset("relational", "u1", filter, p)
	search := buildCacheKeyOffset("search", "u1", filter, p)
	assert.NotEqual(t, rel, search)
}

func TestBuildCacheKeyCursorTruncatesCursor(t *testing.T) {
	longCursor := "abcdefghijklmnopqrstuvwxyz0123456789"
	key := buildCacheKeyCursor("relational", "u1", domain.Filter{}, CursorParams{Cursor: longCursor, Limit: 20})
	assert.Contains(t, key, "cursor:"+longCursor[:20])
	assert.NotContains(t, key, longCursor[20:])
}

func TestSortCanonicalDescOrdersByCreatedAtThenID(t *testing.T) {
	now := time.Now()
	idLow := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	idHigh := uuid.MustParse("00000000-0000-0000-0000-000000000002")

	older := domain.Transaction{ID: idHigh, CreatedAt: now.Add(-time.Hour)}
	newer := domain.Transaction{ID: idLow, CreatedAt: now}
	sameTimeLower := domain.Transaction{ID: idLow, CreatedAt: now.Add(-time.Hour)}

	sorted := sortCanonicalDesc([]domain.Transaction{older, newer})
	assert.Equal(t, newer.ID, sorted[0].ID)
	assert.Equal(t, older.ID, sorted[1].ID)

	tied := sortCanonicalDesc([]domain.Transaction{older, sameTimeLower})
	assert.Equal(t, idHigh, tied[0].ID, "higher id string sorts first on a created_at tie")
}

func TestFilterStrictlyAfterExcludesCursorRowItself(t *testing.T) {
	now := time.Now()
	id := uuid.New()
	cursorRow := domain.Transaction{ID: id, CreatedAt: now}
	before := domain.Transaction{ID: uuid.New(), CreatedAt: now.Add(-time.Minute)}

	out := filterStrictlyAfter([]domain.Transaction{cursorRow, before}, cursorRow)
	assert.Len(t, out, 1)
	assert.Equal(t, before.ID, out[0].ID)
}
