package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/astropay/activityfeed/internal/apperr"
	"github.com/astropay/activityfeed/internal/domain"
	"github.com/astropay/activityfeed/internal/httpapi/middleware"
	"github.com/astropay/activityfeed/internal/query"
)

// TransactionsHandler serves the transaction create/list/get-by-id
// surface, grounded on app/api/routes/transactions.py's three routes.
type TransactionsHandler struct {
	writer   *query.Writer
	queries  *query.Service
	pageSize int
	pageMax  int
}

func NewTransactionsHandler(writer *query.Writer, queries *query.Service, pageSizeDefault, pageSizeMax int) *TransactionsHandler {
	return &TransactionsHandler{writer: writer, queries: queries, pageSize: pageSizeDefault, pageMax: pageSizeMax}
}

type transactionRequest struct {
	UserID          string          `json:"user_id"`
	TransactionType string          `json:"transaction_type"`
	Product         string          `json:"product"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	Amount          decimal.Decimal `json:"amount"`
	Metadata        domain.Metadata `json:"metadata"`
}

type transactionResponse struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	TransactionType string          `json:"transaction_type"`
	Product         string          `json:"product"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	Amount          string          `json:"amount"`
	Metadata        domain.Metadata `json:"metadata,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       *time.Time      `json:"updated_at,omitempty"`
}

func toResponse(tx domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:              tx.ID.String(),
		UserID:          tx.UserID,
		TransactionType: string(tx.TransactionType),
		Product:         string(tx.Product),
		Status:          string(tx.Status),
		Currency:        tx.Currency,
		Amount:          tx.Amount.String(),
		Metadata:        tx.Metadata,
		CreatedAt:       tx.CreatedAt,
		UpdatedAt:       tx.UpdatedAt,
	}
}

// Create handles POST /transactions. A JWT-derived user_id always
// overrides whatever user_id the body carries, so an authenticated
// caller can never write on behalf of another user.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if jwtUserID, ok := middleware.UserIDFromContext(r.Context()); ok {
		req.UserID = jwtUserID
	}

	input := domain.NewTransactionInput{
		UserID:          req.UserID,
		TransactionType: domain.TransactionType(req.TransactionType),
		Product:         domain.Product(req.Product),
		Status:          domain.Status(req.Status),
		Currency:        req.Currency,
		Amount:          req.Amount,
		Metadata:        req.Metadata,
	}

	tx, err := h.writer.Create(r.Context(), input)
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toResponse(tx))
}

// List handles GET /transactions: filter assembly, JWT-vs-query-param
// user_id resolution, and the cursor-vs-offset pagination selection
// rule, all mirroring the original route's priority order exactly.
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	jwtUserID, authenticated := middleware.UserIDFromContext(r.Context())
	effectiveUserID := strings.TrimSpace(jwtUserID)
	if !authenticated {
		effectiveUserID = strings.TrimSpace(q.Get("user_id"))
		if effectiveUserID == "" {
			writeError(w, http.StatusBadRequest,
				"user_id is required. Provide it either via JWT token in Authorization header or as query parameter (for development/testing only).")
			return
		}
	}

	filter, err := h.parseFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	cursorParam := q.Get("cursor")
	limitParam := q.Get("limit")
	pageParam := q.Get("page")

	if useCursorPagination(cursorParam, limitParam, pageParam) {
		limit := h.pageSize
		if limitParam != "" {
			if v, err := strconv.Atoi(limitParam); err == nil && v > 0 {
				limit = v
			}
		}
		if limit > h.pageMax {
			limit = h.pageMax
		}
		page, err := h.queries.GetKeyset(r.Context(), effectiveUserID, filter, query.CursorParams{Cursor: cursorParam, Limit: limit})
		if err != nil {
			writeAppErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, page)
		return
	}

	pageNum := 1
	if pageParam != "" {
		if v, err := strconv.Atoi(pageParam); err == nil && v > 0 {
			pageNum = v
		}
	}
	pageSize := h.pageSize
	if sizeParam := q.Get("page_size"); sizeParam != "" {
		if v, err := strconv.Atoi(sizeParam); err == nil && v > 0 {
			pageSize = v
		}
	}
	if pageSize > h.pageMax {
		pageSize = h.pageMax
	}

	result, err := h.queries.Get(r.Context(), effectiveUserID, filter, query.OffsetParams{Page: pageNum, PageSize: pageSize})
	if err != nil {
		writeAppErr(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// GetByID handles GET /transactions/{id}. A malformed UUID is a 400,
// a valid UUID with no matching row is a 404, and a valid UUID
// belonging to a different authenticated user is a 403 — in that
// order, matching the original route precisely.
func (h *TransactionsHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		writeError(w, http.StatusBadRequest,
			"Invalid transaction ID format. Expected UUID, got: '"+idParam+"'. "+
				"If you're trying to search, use query parameters: /transactions?search_query=...")
		return
	}

	tx, err := h.queries.GetOne(r.Context(), id)
	if err != nil {
		writeAppErr(w, err)
		return
	}

	if userID, ok := middleware.UserIDFromContext(r.Context()); ok && tx.UserID != userID {
		writeAppErr(w, apperr.Forbidden("you can only access your own transactions"))
		return
	}

	writeJSON(w, http.StatusOK, toResponse(tx))
}

func (h *TransactionsHandler) parseFilter(q map[string][]string) (domain.Filter, error) {
	get := func(key string) string {
		if v, ok := q[key]; ok && len(v) > 0 {
			return v[0]
		}
		return ""
	}

	filter := domain.Filter{
		TransactionType: domain.TransactionType(get("transaction_type")),
		Product:         domain.Product(get("product")),
		Status:          domain.Status(get("status")),
		Currency:        get("currency"),
		SearchQuery:     get("search_query"),
	}
	if filter.TransactionType != "" && !filter.TransactionType.Valid() {
		return domain.Filter{}, errInvalidEnum("transaction_type", get("transaction_type"))
	}
	if filter.Product != "" && !filter.Product.Valid() {
		return domain.Filter{}, errInvalidEnum("product", get("product"))
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return domain.Filter{}, errInvalidEnum("status", get("status"))
	}

	if v := get("start_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.Filter{}, errInvalidEnum("start_date", v)
		}
		filter.StartDate = &t
	}
	if v := get("end_date"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return domain.Filter{}, errInvalidEnum("end_date", v)
		}
		filter.EndDate = &t
	}
	if v := get("min_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return domain.Filter{}, errInvalidEnum("min_amount", v)
		}
		filter.MinAmount = &d
	}
	if v := get("max_amount"); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil {
			return domain.Filter{}, errInvalidEnum("max_amount", v)
		}
		filter.MaxAmount = &d
	}

	metadataFilters := make(map[string]string)
	for _, key := range []string{"direction", "merchant_name", "card_last_four", "peer_name"} {
		if v := get(key); v != "" {
			metadataFilters[key] = v
		}
	}
	if len(metadataFilters) > 0 {
		filter.MetadataFilters = metadataFilters
	}

	return filter, nil
}

func errInvalidEnum(field, value string) error {
	return apperr.Validation("invalid " + field + ": '" + value + "'")
}

// useCursorPagination selects the pagination method: cursor pagination
// wins whenever a cursor is present, or a limit is given with no page
// number — matching the original's
// `cursor is not None or (limit is not None and page is None)` rule
// exactly, including the case where both page and limit are absent
// (falls through to offset pagination, page 1).
func useCursorPagination(cursor, limit, page string) bool {
	return cursor != "" || (limit != "" && page == "")
}
