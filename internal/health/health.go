// Package health aggregates dependency status (C10): each dependency
// is pinged directly, then folded together with its circuit breaker's
// state, so a ping that succeeds against an open breaker still reports
// degraded rather than healthy — the breaker is the leading indicator,
// not the ping.
package health

import (
	"context"
	"time"

	"github.com/astropay/activityfeed/internal/breaker"
)

// pinger is satisfied by every dependency adapter this package checks
// (postgres.Store, redis.Cache, elastic.Client, events.Publisher) —
// accepting the interface instead of the concrete types lets this
// package's own tests substitute fakes instead of live connections.
type pinger interface {
	Ping(ctx context.Context) error
}

// Status is one dependency's or the overall report's health state.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusDegraded  Status = "degraded"
	StatusUnhealthy Status = "unhealthy"
)

// Report is the aggregate health snapshot, shaped to match the
// original health check response one-for-one.
type Report struct {
	Status        Status `json:"status"`
	Database      Status `json:"database"`
	Redis         Status `json:"redis"`
	Elasticsearch Status `json:"elasticsearch"`
	Kafka         Status `json:"kafka"`
}

// Checker pings every dependency and folds in breaker state. It is
// independently callable and backs the HTTP /health route; the
// /internal/breakers admin view reads breaker states straight from
// the registry instead.
type Checker struct {
	store     pinger
	cache     pinger
	search    pinger
	publisher pinger
	breakers  *breaker.Registry
	timeout   time.Duration
}

func New(store, cache, search, publisher pinger, breakers *breaker.Registry, timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{store: store, cache: cache, search: search, publisher: publisher, breakers: breakers, timeout: timeout}
}

func (c *Checker) pingCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

// Check runs every dependency ping and returns the combined report.
// Database unhealthy always makes the overall status unhealthy,
// mirroring the audit table's role as the system of record; otherwise
// the overall status is healthy only if every dependency is healthy.
func (c *Checker) Check(ctx context.Context) Report {
	dbStatus := c.checkDatabase(ctx)
	redisStatus := c.checkRedis(ctx)
	searchStatus := c.checkSearch(ctx)
	kafkaStatus := c.checkKafka(ctx)

	var overall Status
	switch {
	case dbStatus == StatusUnhealthy:
		overall = StatusUnhealthy
	case redisStatus == StatusHealthy && searchStatus == StatusHealthy && kafkaStatus == StatusHealthy:
		overall = StatusHealthy
	default:
		overall = StatusDegraded
	}

	return Report{
		Status:        overall,
		Database:      dbStatus,
		Redis:         redisStatus,
		Elasticsearch: searchStatus,
		Kafka:         kafkaStatus,
	}
}

func (c *Checker) checkDatabase(ctx context.Context) Status {
	if c.breakers.Get(breaker.Postgres).State() == breaker.StateOpen {
		return StatusDegraded
	}
	pingCtx, cancel := c.pingCtx(ctx)
	defer cancel()
	if err := c.store.Ping(pingCtx); err != nil {
		return StatusUnhealthy
	}
	return StatusHealthy
}

func (c *Checker) checkRedis(ctx context.Context) Status {
	if c.breakers.Get(breaker.Redis).State() == breaker.StateOpen {
		return StatusDegraded
	}
	pingCtx, cancel := c.pingCtx(ctx)
	defer cancel()
	if err := c.cache.Ping(pingCtx); err != nil {
		return StatusUnhealthy
	}
	return StatusHealthy
}

func (c *Checker) checkSearch(ctx context.Context) Status {
	if c.breakers.Get(breaker.Elasticsearch).State() == breaker.StateOpen {
		return StatusDegraded
	}
	pingCtx, cancel := c.pingCtx(ctx)
	defer cancel()
	if err := c.search.Ping(pingCtx); err != nil {
		return StatusUnhealthy
	}
	return StatusHealthy
}

func (c *Checker) checkKafka(ctx context.Context) Status {
	if c.breakers.Get(breaker.Kafka).State() == breaker.StateOpen {
		return StatusDegraded
	}
	pingCtx, cancel := c.pingCtx(ctx)
	defer cancel()
	if err := c.publisher.Ping(pingCtx); err != nil {
		return StatusUnhealthy
	}
	return StatusHealthy
}
