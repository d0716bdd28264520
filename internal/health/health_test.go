package health

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/config"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(ctx context.Context) error { return f.err }

func testBreakers() *breaker.Registry {
	cfg := &config.Config{
		CircuitBreakerEnabled:         true,
		CircuitBreakerFailureThresh:   3,
		CircuitBreakerTimeout:         time.Minute,
		CircuitBreakerHalfOpenSuccess: 1,
	}
	return breaker.NewRegistry(cfg, zerolog.Nop(), breaker.Postgres, breaker.Redis, breaker.Elasticsearch, breaker.Kafka)
}

func TestCheckAllHealthyWhenEverythingPings(t *testing.T) {
	c := New(fakePinger{}, fakePinger{}, fakePinger{}, fakePinger{}, testBreakers(), time.Second)
	report := c.Check(context.Background())
	assert.Equal(t, StatusHealthy, report.Status)
	assert.Equal(t, StatusHealthy, report.Database)
	assert.Equal(t, StatusHealthy, report.Redis)
	assert.Equal(t, StatusHealthy, report.Elasticsearch)
	assert.Equal(t, StatusHealthy, report.Kafka)
}

func TestDatabaseUnhealthyMakesOverallUnhealthy(t *testing.T) {
	c := New(fakePinger{err: errors.New("down")}, fakePinger{}, fakePinger{}, fakePinger{}, testBreakers(), time.Second)
	report := c.Check(context.Background())
	assert.Equal(t, StatusUnhealthy, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Database)
}

func TestNonDatabaseFailureDegradesRatherThanFails(t *testing.T) {
	c := New(fakePinger{}, fakePinger{err: errors.New("down")}, fakePinger{}, fakePinger{}, testBreakers(), time.Second)
	report := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Status)
	assert.Equal(t, StatusUnhealthy, report.Redis)
}

func TestOpenBreakerReportsDegradedEvenWhenPingSucceeds(t *testing.T) {
	breakers := testBreakers()
	br := breakers.Get(breaker.Elasticsearch)
	for i := 0; i < 3; i++ {
		_ = br.Run(context.Background(), breaker.DefaultClassifier, func(context.Context) error {
			return errors.New("boom")
		})
	}
	assert.Equal(t, breaker.StateOpen, br.State())

	c := New(fakePinger{}, fakePinger{}, fakePinger{}, fakePinger{}, breakers, time.Second)
	report := c.Check(context.Background())
	assert.Equal(t, StatusDegraded, report.Elasticsearch)
	assert.Equal(t, StatusDegraded, report.Status)
}
