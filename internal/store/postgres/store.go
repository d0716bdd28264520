// Package postgres is the relational store adapter: the authoritative
// write path for every transaction, and a read path usable directly
// or behind the query service's cache.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/astropay/activityfeed/internal/domain"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("postgres: transaction not found")

// Store wraps a pgx connection pool with the transaction operations
// the query service and consumer both need.
type Store struct {
	pool *pgxpool.Pool
}

// New opens a connection pool against databaseURL. Callers should call
// Ping separately (it is broken out for the health aggregator and the
// circuit breaker to share).
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres: connect: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

const insertSQL = `
INSERT INTO transactions
	(id, user_id, transaction_type, product, status, currency, amount, custom_metadata, search_content, created_at)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING created_at
`

// Create inserts a new transaction row. id, searchContent and
// createdAt are assigned by the caller (the query/consumer service),
// not generated here, so Elasticsearch indexing and the relational
// row always agree on them.
func (s *Store) Create(ctx context.Context, tx domain.Transaction) (domain.Transaction, error) {
	metaJSON, err := marshalMetadata(tx.Metadata)
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: marshal metadata: %w", err)
	}

	row := s.pool.QueryRow(ctx, insertSQL,
		tx.ID, tx.UserID, tx.TransactionType, tx.Product, tx.Status, tx.Currency,
		tx.Amount, metaJSON, tx.SearchContent, tx.CreatedAt,
	)
	if err := row.Scan(&tx.CreatedAt); err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: insert: %w", err)
	}
	return tx, nil
}

const upsertSQL = `
INSERT INTO transactions
	(id, user_id, transaction_type, product, status, currency, amount, custom_metadata, search_content, created_at)
VALUES
	($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (id) DO UPDATE SET
	user_id = EXCLUDED.user_id,
	transaction_type = EXCLUDED.transaction_type,
	product = EXCLUDED.product,
	status = EXCLUDED.status,
	currency = EXCLUDED.currency,
	amount = EXCLUDED.amount,
	custom_metadata = EXCLUDED.custom_metadata,
	search_content = EXCLUDED.search_content,
	updated_at = now()
`

// Upsert writes tx to the audit table, inserting it if absent or
// overwriting every mutable column if present. This is the consumer's
// write path: unlike Create, it never fails on a duplicate id, since a
// redelivered or out-of-order event for an id already on file is
// expected, not exceptional.
func (s *Store) Upsert(ctx context.Context, tx domain.Transaction) error {
	metaJSON, err := marshalMetadata(tx.Metadata)
	if err != nil {
		return fmt.Errorf("postgres: marshal metadata: %w", err)
	}
	_, err = s.pool.Exec(ctx, upsertSQL,
		tx.ID, tx.UserID, tx.TransactionType, tx.Product, tx.Status, tx.Currency,
		tx.Amount, metaJSON, tx.SearchContent, tx.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert: %w", err)
	}
	return nil
}

// Delete removes the audit row for id, if any. A delete for an id that
// was never written is not an error — the consumer may receive a
// transaction.deleted event for a row it never saw created.
func (s *Store) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("postgres: delete: %w", err)
	}
	return nil
}

const getByIDSQL = `
SELECT id, user_id, transaction_type, product, status, currency, amount,
       custom_metadata, search_content, created_at, updated_at
FROM transactions
WHERE id = $1
`

// GetByID returns the transaction with the given id, or ErrNotFound if
// none exists.
func (s *Store) GetByID(ctx context.Context, id uuid.UUID) (domain.Transaction, error) {
	row := s.pool.QueryRow(ctx, getByIDSQL, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Transaction{}, ErrNotFound
	}
	if err != nil {
		return domain.Transaction{}, fmt.Errorf("postgres: get by id: %w", err)
	}
	return tx, nil
}

// ListPage lists a user's transactions ordered by (created_at DESC, id
// DESC), the canonical keyset order C2's cursor is built on. It fetches
// limit+1 rows so the caller can compute has_more without a second
// query, exactly as the relational repository this is grounded on
// does.
func (s *Store) ListPage(ctx context.Context, userID string, filter domain.Filter, after *domain.Transaction, limit int) ([]domain.Transaction, bool, error) {
	qb := newQueryBuilder(userID, filter)
	if after != nil {
		qb.afterCursor(after.CreatedAt, after.ID)
	}
	qb.orderAndLimit(limit + 1)

	rows, err := s.pool.Query(ctx, qb.sql(), qb.args()...)
	if err != nil {
		return nil, false, fmt.Errorf("postgres: list page: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, false, fmt.Errorf("postgres: scan page: %w", err)
	}

	hasMore := len(txs) > limit
	if hasMore {
		txs = txs[:limit]
	}
	return txs, hasMore, nil
}

// ListOffset lists a user's transactions with classic offset/limit
// pagination, for clients that prefer page numbers over cursors.
func (s *Store) ListOffset(ctx context.Context, userID string, filter domain.Filter, page, pageSize int) ([]domain.Transaction, int, error) {
	qb := newQueryBuilder(userID, filter)

	total, err := s.count(ctx, qb)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: count: %w", err)
	}

	offset := (page - 1) * pageSize
	qb.orderAndLimit(pageSize)
	qb.offset(offset)

	rows, err := s.pool.Query(ctx, qb.sql(), qb.args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: list offset: %w", err)
	}
	defer rows.Close()

	txs, err := scanTransactions(rows)
	if err != nil {
		return nil, 0, fmt.Errorf("postgres: scan page: %w", err)
	}
	return txs, total, nil
}

func (s *Store) count(ctx context.Context, qb *queryBuilder) (int, error) {
	var total int
	row := s.pool.QueryRow(ctx, qb.countSQL(), qb.args()...)
	if err := row.Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func scanTransactions(rows pgx.Rows) ([]domain.Transaction, error) {
	var out []domain.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (domain.Transaction, error) {
	var tx domain.Transaction
	var metaJSON []byte
	if err := row.Scan(
		&tx.ID, &tx.UserID, &tx.TransactionType, &tx.Product, &tx.Status, &tx.Currency,
		&tx.Amount, &metaJSON, &tx.SearchContent, &tx.CreatedAt, &tx.UpdatedAt,
	); err != nil {
		return domain.Transaction{}, err
	}
	meta, err := unmarshalMetadata(metaJSON)
	if err != nil {
		return domain.Transaction{}, err
	}
	tx.Metadata = meta
	return tx, nil
}

func marshalMetadata(meta domain.Metadata) ([]byte, error) {
	if meta == nil {
		return []byte("null"), nil
	}
	return json.Marshal(meta)
}

func unmarshalMetadata(raw []byte) (domain.Metadata, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var meta domain.Metadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return meta, nil
}
