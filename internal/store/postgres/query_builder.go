package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/astropay/activityfeed/internal/domain"
)

const baseColumns = `id, user_id, transaction_type, product, status, currency, amount,
       custom_metadata, search_content, created_at, updated_at`

// queryBuilder assembles the WHERE clause shared by ListPage,
// ListOffset and their COUNT(*) companion, mirroring the original
// repository's _apply_filters: every optional filter appends its own
// predicate and positional argument, metadata filters use the
// Postgres JSON ->> extraction-plus-not-null idiom so an absent key
// never matches.
type queryBuilder struct {
	clauses  []string
	argVals  []any
	orderBy  string
	limit    int
	hasLimit bool
	off      int
	hasOff   bool
}

func newQueryBuilder(userID string, f domain.Filter) *queryBuilder {
	qb := &queryBuilder{}
	qb.clauses = append(qb.clauses, qb.next("user_id ="))
	qb.argVals = append(qb.argVals, userID)

	if f.TransactionType != "" {
		qb.clauses = append(qb.clauses, qb.next("transaction_type ="))
		qb.argVals = append(qb.argVals, f.TransactionType)
	}
	if f.Product != "" {
		qb.clauses = append(qb.clauses, qb.next("product ="))
		qb.argVals = append(qb.argVals, f.Product)
	}
	if f.Status != "" {
		qb.clauses = append(qb.clauses, qb.next("status ="))
		qb.argVals = append(qb.argVals, f.Status)
	}
	if f.Currency != "" {
		qb.clauses = append(qb.clauses, qb.next("currency ="))
		qb.argVals = append(qb.argVals, f.Currency)
	}
	if f.StartDate != nil {
		qb.clauses = append(qb.clauses, qb.next("created_at >="))
		qb.argVals = append(qb.argVals, *f.StartDate)
	}
	if f.EndDate != nil {
		qb.clauses = append(qb.clauses, qb.next("created_at <="))
		qb.argVals = append(qb.argVals, *f.EndDate)
	}
	if f.MinAmount != nil {
		qb.clauses = append(qb.clauses, qb.next("amount >="))
		qb.argVals = append(qb.argVals, *f.MinAmount)
	}
	if f.MaxAmount != nil {
		qb.clauses = append(qb.clauses, qb.next("amount <="))
		qb.argVals = append(qb.argVals, *f.MaxAmount)
	}
	if f.SearchQuery != "" {
		qb.clauses = append(qb.clauses, qb.next("search_content ILIKE"))
		qb.argVals = append(qb.argVals, "%"+f.SearchQuery+"%")
	}
	for key, value := range f.MetadataFilters {
		idx := len(qb.argVals) + 1
		qb.clauses = append(qb.clauses, fmt.Sprintf("custom_metadata->>$%d IS NOT NULL AND custom_metadata->>$%d = $%d", idx, idx, idx+1))
		qb.argVals = append(qb.argVals, key, value)
	}

	return qb
}

// next returns "<prefix> $N" using the next 1-based positional index,
// without yet appending the value — callers append the value right
// after so clause and arg indices stay in lockstep.
func (qb *queryBuilder) next(prefix string) string {
	idx := len(qb.argVals) + 1
	return fmt.Sprintf("%s $%d", prefix, idx)
}

// afterCursor adds the keyset predicate for "strictly after this row"
// under (created_at DESC, id DESC) ordering:
// created_at < cursor_created_at OR (created_at = cursor_created_at AND id < cursor_id).
func (qb *queryBuilder) afterCursor(createdAt time.Time, id uuid.UUID) {
	i1 := len(qb.argVals) + 1
	i2 := i1 + 1
	i3 := i2 + 1
	qb.clauses = append(qb.clauses, fmt.Sprintf(
		"(created_at < $%d OR (created_at = $%d AND id < $%d))", i1, i2, i3))
	qb.argVals = append(qb.argVals, createdAt, createdAt, id)
}

func (qb *queryBuilder) orderAndLimit(limit int) {
	qb.orderBy = "created_at DESC, id DESC"
	qb.limit = limit
	qb.hasLimit = true
}

func (qb *queryBuilder) offset(n int) {
	qb.off = n
	qb.hasOff = true
}

func (qb *queryBuilder) where() string {
	return strings.Join(qb.clauses, " AND ")
}

func (qb *queryBuilder) sql() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM transactions WHERE %s", baseColumns, qb.where())
	if qb.orderBy != "" {
		fmt.Fprintf(&b, " ORDER BY %s", qb.orderBy)
	}
	if qb.hasLimit {
		fmt.Fprintf(&b, " LIMIT %d", qb.limit)
	}
	if qb.hasOff {
		fmt.Fprintf(&b, " OFFSET %d", qb.off)
	}
	return b.String()
}

func (qb *queryBuilder) countSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM transactions WHERE %s", qb.where())
}

func (qb *queryBuilder) args() []any { return qb.argVals }
