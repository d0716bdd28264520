package elastic

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildSearchBodyIncludesUserFilterAlways(t *testing.T) {
	body, err := buildSearchBody(SearchQuery{UserID: "user-1", Page: 1, PageSize: 20})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))

	boolQuery := parsed["query"].(map[string]any)["bool"].(map[string]any)
	must := boolQuery["must"].([]any)
	require.Len(t, must, 1)
	term := must[0].(map[string]any)["term"].(map[string]any)
	assert.Equal(t, "user-1", term["user_id"])
	assert.Nil(t, boolQuery["filter"])
}

func TestBuildSearchBodyAddsTextMatchWhenQueryPresent(t *testing.T) {
	body, err := buildSearchBody(SearchQuery{UserID: "user-1", Text: "coffee", Page: 1, PageSize: 20})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	must := parsed["query"].(map[string]any)["bool"].(map[string]any)["must"].([]any)
	require.Len(t, must, 2)
}

func TestBuildSearchBodyAddsFilterClauses(t *testing.T) {
	min := 10.0
	body, err := buildSearchBody(SearchQuery{
		UserID:          "user-1",
		TransactionType: "card",
		MinAmount:       &min,
		Page:            1,
		PageSize:        20,
	})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	filter := parsed["query"].(map[string]any)["bool"].(map[string]any)["filter"].([]any)
	assert.Len(t, filter, 2)
}

func TestBuildSearchBodyPaginationFromSize(t *testing.T) {
	body, err := buildSearchBody(SearchQuery{UserID: "u", Page: 3, PageSize: 10})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(body, &parsed))
	assert.Equal(t, float64(20), parsed["from"])
	assert.Equal(t, float64(10), parsed["size"])
}

func TestParseSearchResponseExtractsIDsAndTotal(t *testing.T) {
	raw := []byte(`{"hits":{"total":{"value":2},"hits":[{"_id":"a"},{"_id":"b"}]}}`)
	ids, total, err := parseSearchResponse(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	assert.Equal(t, 2, total)
}
