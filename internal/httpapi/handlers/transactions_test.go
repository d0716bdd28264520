package handlers

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFilterBuildsMetadataFiltersFromKnownKeys(t *testing.T) {
	h := &TransactionsHandler{}
	q, err := url.ParseQuery("direction=sent&merchant_name=Coffee+Shop&unrelated=ignored")
	require.NoError(t, err)

	filter, err := h.parseFilter(q)
	require.NoError(t, err)
	assert.Equal(t, "sent", filter.MetadataFilters["direction"])
	assert.Equal(t, "Coffee Shop", filter.MetadataFilters["merchant_name"])
	assert.NotContains(t, filter.MetadataFilters, "unrelated")
}

func TestParseFilterRejectsInvalidTransactionType(t *testing.T) {
	h := &TransactionsHandler{}
	q, err := url.ParseQuery("transaction_type=not_a_type")
	require.NoError(t, err)

	_, err = h.parseFilter(q)
	assert.Error(t, err)
}

func TestParseFilterRejectsMalformedAmount(t *testing.T) {
	h := &TransactionsHandler{}
	q, err := url.ParseQuery("min_amount=not-a-number")
	require.NoError(t, err)

	_, err = h.parseFilter(q)
	assert.Error(t, err)
}

func TestParseFilterAcceptsEmptyQuery(t *testing.T) {
	h := &TransactionsHandler{}
	filter, err := h.parseFilter(url.Values{})
	require.NoError(t, err)
	assert.Empty(t, filter.MetadataFilters)
	assert.Empty(t, filter.TransactionType)
}

func TestUseCursorPaginationPrefersCursorWhenPresent(t *testing.T) {
	assert.True(t, useCursorPagination("abc", "", ""))
	assert.True(t, useCursorPagination("abc", "", "2"))
}

func TestUseCursorPaginationWhenLimitGivenWithoutPage(t *testing.T) {
	assert.True(t, useCursorPagination("", "20", ""))
}

func TestUseCursorPaginationFalseWhenPageGiven(t *testing.T) {
	assert.False(t, useCursorPagination("", "20", "2"))
	assert.False(t, useCursorPagination("", "", "2"))
}

func TestUseCursorPaginationDefaultsToOffsetWhenNothingGiven(t *testing.T) {
	assert.False(t, useCursorPagination("", "", ""))
}
