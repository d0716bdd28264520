// Package elastic is the Elasticsearch-backed search adapter: the
// document shape and mapping for the transactions index, and the
// query builder used by the search-primary query path.
package elastic

const IndexName = "transactions"

// mapping is the index mapping applied at startup if the index does
// not already exist. amount is a float here — unlike the relational
// store's decimal column, the index exists for filtering and free-text
// search, never for the authoritative monetary value.
const mapping = `{
  "mappings": {
    "properties": {
      "id": {"type": "keyword"},
      "user_id": {"type": "keyword"},
      "transaction_type": {"type": "keyword"},
      "product": {"type": "keyword"},
      "status": {"type": "keyword"},
      "currency": {"type": "keyword"},
      "amount": {"type": "float"},
      "created_at": {"type": "date"},
      "search_content": {
        "type": "text",
        "analyzer": "standard",
        "fields": {
          "keyword": {"type": "keyword"}
        }
      },
      "metadata": {"type": "object", "enabled": true}
    }
  }
}`
