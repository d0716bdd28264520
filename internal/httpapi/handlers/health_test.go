package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/config"
	"github.com/astropay/activityfeed/internal/health"
)

type okPinger struct{}

func (okPinger) Ping(ctx context.Context) error { return nil }

func TestHealthCheckWritesReportAsJSON(t *testing.T) {
	breakers := breaker.NewRegistry(&config.Config{
		CircuitBreakerEnabled:         true,
		CircuitBreakerFailureThresh:   3,
		CircuitBreakerTimeout:         time.Minute,
		CircuitBreakerHalfOpenSuccess: 1,
	}, zerolog.Nop(), breaker.Postgres, breaker.Redis, breaker.Elasticsearch, breaker.Kafka)
	checker := health.New(okPinger{}, okPinger{}, okPinger{}, okPinger{}, breakers, time.Second)
	h := NewHealthHandler(checker)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.Check(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var report health.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, health.StatusHealthy, report.Status)
}
