package elastic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/astropay/activityfeed/internal/domain"
)

// Client wraps the low-level go-elasticsearch REST client with the
// transaction-index operations the query service and consumer need.
type Client struct {
	es *elasticsearch.Client
}

// New builds a Client pointed at addr and ensures the transactions
// index exists with its mapping applied.
func New(ctx context.Context, addr string) (*Client, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: []string{addr}})
	if err != nil {
		return nil, fmt.Errorf("elastic: new client: %w", err)
	}
	c := &Client{es: es}
	if err := c.ensureIndex(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Client) ensureIndex(ctx context.Context) error {
	existsRes, err := c.es.Indices.Exists([]string{IndexName}, c.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elastic: check index exists: %w", err)
	}
	defer existsRes.Body.Close()
	if existsRes.StatusCode == 200 {
		return nil
	}

	createRes, err := c.es.Indices.Create(
		IndexName,
		c.es.Indices.Create.WithContext(ctx),
		c.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return fmt.Errorf("elastic: create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("elastic: create index: %s", createRes.String())
	}
	return nil
}

func (c *Client) Ping(ctx context.Context) error {
	res, err := c.es.Ping(c.es.Ping.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("elastic: ping: %s", res.String())
	}
	return nil
}

// document is the wire shape indexed into Elasticsearch: a denormalized
// projection of domain.Transaction with amount widened to float64.
type document struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	TransactionType string          `json:"transaction_type"`
	Product         string          `json:"product"`
	Status          string          `json:"status"`
	Currency        string          `json:"currency"`
	Amount          float64         `json:"amount"`
	CreatedAt       string          `json:"created_at"`
	SearchContent   string          `json:"search_content"`
	Metadata        domain.Metadata `json:"metadata,omitempty"`
}

func toDocument(tx domain.Transaction) document {
	amount, _ := tx.Amount.Float64()
	return document{
		ID:              tx.ID.String(),
		UserID:          tx.UserID,
		TransactionType: string(tx.TransactionType),
		Product:         string(tx.Product),
		Status:          string(tx.Status),
		Currency:        tx.Currency,
		Amount:          amount,
		CreatedAt:       tx.CreatedAt.UTC().Format("2006-01-02T15:04:05.999999999Z07:00"),
		SearchContent:   tx.SearchContent,
		Metadata:        tx.Metadata,
	}
}

// Index upserts tx into the transactions index. version is applied as
// an external_gte version so an out-of-order redelivery of an older
// version never clobbers a newer one, per the document-versioning
// invariant of the ingestion pipeline.
func (c *Client) Index(ctx context.Context, tx domain.Transaction, version int64) error {
	body, err := json.Marshal(toDocument(tx))
	if err != nil {
		return fmt.Errorf("elastic: marshal document: %w", err)
	}

	req := esapi.IndexRequest{
		Index:       IndexName,
		DocumentID:  tx.ID.String(),
		Body:        bytes.NewReader(body),
		Version:     &version,
		VersionType: "external_gte",
	}
	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("elastic: index request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		// A 409 here means a newer version already won the race; that
		// is not a failure, the caller's version is simply stale.
		if res.StatusCode == 409 {
			return nil
		}
		return fmt.Errorf("elastic: index: %s", res.String())
	}
	return nil
}

// GetVersion returns the currently indexed external version for id.
// found is false if no document exists yet, in which case the caller
// should assign version 1.
func (c *Client) GetVersion(ctx context.Context, id string) (version int64, found bool, err error) {
	res, err := c.es.Get(IndexName, id, c.es.Get.WithContext(ctx))
	if err != nil {
		return 0, false, fmt.Errorf("elastic: get request: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 404 {
		return 0, false, nil
	}
	if res.IsError() {
		return 0, false, fmt.Errorf("elastic: get: %s", res.String())
	}
	var parsed struct {
		Version int64 `json:"_version"`
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return 0, false, fmt.Errorf("elastic: read get response: %w", err)
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return 0, false, fmt.Errorf("elastic: decode get response: %w", err)
	}
	return parsed.Version, true, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	res, err := c.es.Delete(IndexName, id, c.es.Delete.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elastic: delete request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() && res.StatusCode != 404 {
		return fmt.Errorf("elastic: delete: %s", res.String())
	}
	return nil
}

// SearchQuery is the set of parameters the search-primary query path
// assembles from an incoming HTTP request.
type SearchQuery struct {
	UserID          string
	Text            string
	TransactionType string
	Product         string
	Status          string
	Currency        string
	MetadataFilters map[string]string
	MinAmount       *float64
	MaxAmount       *float64
	StartDate       *string
	EndDate         *string
	Page            int
	PageSize        int
}

// Result is a single hit plus its stored document, translated back
// into the canonical domain.Transaction shape where possible (amount
// stays a float here — it is advisory, never authoritative).
type Result struct {
	ID            string
	UserID        string
	Amount        float64
	Currency      string
	SearchContent string
}

// Search runs q against the transactions index and returns the
// matching document IDs plus the total hit count.
func (c *Client) Search(ctx context.Context, q SearchQuery) ([]string, int, error) {
	body, err := buildSearchBody(q)
	if err != nil {
		return nil, 0, fmt.Errorf("elastic: build query: %w", err)
	}

	res, err := c.es.Search(
		c.es.Search.WithContext(ctx),
		c.es.Search.WithIndex(IndexName),
		c.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, 0, fmt.Errorf("elastic: search request: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, 0, fmt.Errorf("elastic: search: %s", res.String())
	}

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("elastic: read search response: %w", err)
	}
	return parseSearchResponse(raw)
}

func buildSearchBody(q SearchQuery) ([]byte, error) {
	must := []map[string]any{
		{"term": map[string]any{"user_id": q.UserID}},
	}
	if q.Text != "" {
		must = append(must, map[string]any{
			"match": map[string]any{
				"search_content": map[string]any{
					"query":    q.Text,
					"fuzziness": "AUTO",
					"operator":  "or",
				},
			},
		})
	}

	var filter []map[string]any
	if q.TransactionType != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"transaction_type": q.TransactionType}})
	}
	if q.Product != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"product": q.Product}})
	}
	if q.Status != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"status": q.Status}})
	}
	if q.Currency != "" {
		filter = append(filter, map[string]any{"term": map[string]any{"currency": q.Currency}})
	}
	for key, value := range q.MetadataFilters {
		filter = append(filter, map[string]any{"term": map[string]any{"metadata." + key: value}})
	}
	if q.MinAmount != nil || q.MaxAmount != nil {
		rng := map[string]any{}
		if q.MinAmount != nil {
			rng["gte"] = *q.MinAmount
		}
		if q.MaxAmount != nil {
			rng["lte"] = *q.MaxAmount
		}
		filter = append(filter, map[string]any{"range": map[string]any{"amount": rng}})
	}
	if q.StartDate != nil || q.EndDate != nil {
		rng := map[string]any{}
		if q.StartDate != nil {
			rng["gte"] = *q.StartDate
		}
		if q.EndDate != nil {
			rng["lte"] = *q.EndDate
		}
		filter = append(filter, map[string]any{"range": map[string]any{"created_at": rng}})
	}

	boolQuery := map[string]any{"must": must}
	if len(filter) > 0 {
		boolQuery["filter"] = filter
	}

	page, pageSize := q.Page, q.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	return json.Marshal(map[string]any{
		"query": map[string]any{"bool": boolQuery},
		"sort":  []map[string]any{{"created_at": map[string]any{"order": "desc"}}},
		"from":  (page - 1) * pageSize,
		"size":  pageSize,
	})
}

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []struct {
			ID string `json:"_id"`
		} `json:"hits"`
	} `json:"hits"`
}

func parseSearchResponse(raw []byte) ([]string, int, error) {
	var sr searchResponse
	if err := json.Unmarshal(raw, &sr); err != nil {
		return nil, 0, err
	}
	ids := make([]string, 0, len(sr.Hits.Hits))
	for _, h := range sr.Hits.Hits {
		ids = append(ids, h.ID)
	}
	return ids, sr.Hits.Total.Value, nil
}
