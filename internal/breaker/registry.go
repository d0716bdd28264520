package breaker

import (
	"github.com/rs/zerolog"

	"github.com/astropay/activityfeed/internal/config"
)

// Names of the dependencies this service guards with a circuit
// breaker, mirroring the original's elasticsearch/redis/kafka trio
// plus the relational store, which the original left unguarded but
// the spec's resilience layer covers uniformly.
const (
	Postgres      = "postgres"
	Redis         = "redis"
	Elasticsearch = "elasticsearch"
	Kafka         = "kafka"
)

// Registry owns one Breaker per guarded dependency, built once at
// startup and threaded through every component that needs one —
// replacing the original's lazily-initialized module-level globals
// with an explicit value every caller receives by construction.
type Registry struct {
	breakers map[string]*Breaker
	cfg      *config.Config
	log      zerolog.Logger
}

// NewRegistry builds a breaker for every name given, all sharing cfg's
// thresholds.
func NewRegistry(cfg *config.Config, log zerolog.Logger, names ...string) *Registry {
	r := &Registry{breakers: make(map[string]*Breaker, len(names)), cfg: cfg, log: log}
	for _, n := range names {
		r.breakers[n] = New(n, cfg, log)
	}
	return r
}

// Get returns the named breaker, or nil if it was never registered.
func (r *Registry) Get(name string) *Breaker {
	return r.breakers[name]
}

// Reset force-closes the named breaker. Returns false if the name is
// unknown.
func (r *Registry) Reset(name string) bool {
	b, ok := r.breakers[name]
	if !ok {
		return false
	}
	b.Reset(r.cfg, r.log)
	return true
}

// States returns a snapshot of every breaker's current state, keyed by
// name, for the health aggregator and the breaker admin HTTP endpoint.
func (r *Registry) States() map[string]State {
	out := make(map[string]State, len(r.breakers))
	for name, b := range r.breakers {
		out[name] = b.State()
	}
	return out
}
