// Package httpapi assembles the chi router: the middleware chain and
// route table around the auth/transactions/health handlers, adapted
// from the gateway's router.go ordering (CORS → security headers →
// request ID → recoverer → request log → timeout), with auth applied
// per route group inside that chain.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/astropay/activityfeed/internal/auth"
	"github.com/astropay/activityfeed/internal/breaker"
	"github.com/astropay/activityfeed/internal/config"
	"github.com/astropay/activityfeed/internal/health"
	"github.com/astropay/activityfeed/internal/httpapi/handlers"
	"github.com/astropay/activityfeed/internal/httpapi/middleware"
	"github.com/astropay/activityfeed/internal/query"
)

// Deps bundles everything the router needs to wire handlers; kept as
// one struct rather than a long parameter list since New is only ever
// called once, from cmd/api/main.go.
type Deps struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Issuer   *auth.Issuer
	Queries  *query.Service
	Writer   *query.Writer
	Health   *health.Checker
	Breakers *breaker.Registry
}

// New builds the full HTTP handler: middleware chain plus routes,
// mounted under cfg.APIPrefix.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.CORS([]string{"*"}))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Timeout(d.Config.RequestTimeout))

	authHandler := handlers.NewAuthHandler(d.Issuer)
	txHandler := handlers.NewTransactionsHandler(d.Writer, d.Queries, d.Config.PageSizeDefault, d.Config.PageSizeMax)
	healthHandler := handlers.NewHealthHandler(d.Health)
	breakerHandler := handlers.NewBreakerHandler(d.Breakers)

	optional := middleware.OptionalAuth(d.Issuer)
	require := middleware.RequireAuth(d.Issuer)

	// When RequireAuth is set, /transactions only ever accepts the
	// authenticated identity — the bare user_id query parameter
	// development/testing shortcut is withdrawn along with the 401
	// a missing or invalid token now produces.
	transactionsAuth := optional
	if d.Config.RequireAuth {
		transactionsAuth = require
	}

	r.Get("/health", healthHandler.Check)

	r.Route("/internal/breakers", func(r chi.Router) {
		r.Get("/", breakerHandler.Status)
		r.Post("/{name}/reset", breakerHandler.Reset)
	})

	r.Route(d.Config.APIPrefix, func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/token", authHandler.CreateToken)
			r.With(require).Get("/me", authHandler.Me)
		})

		r.Route("/transactions", func(r chi.Router) {
			r.Use(transactionsAuth)
			r.Post("/", txHandler.Create)
			r.Get("/", txHandler.List)
			r.Get("/{id}", txHandler.GetByID)
		})
	})

	return r
}

func requestLogger(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rw := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(rw, r)
			log.Info().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Str("req_id", chimw.GetReqID(r.Context())).
				Int("status", rw.Status()).
				Dur("duration", time.Since(start)).
				Msg("request completed")
		})
	}
}
