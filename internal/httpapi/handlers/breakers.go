package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/astropay/activityfeed/internal/breaker"
)

// BreakerHandler exposes the circuit breakers' state and an explicit
// reset operation, the in-process equivalent of the original's
// reset_circuit_breaker.py script. That script reset module-level
// breaker globals from a separate one-off process, which only ever
// affected the same in-memory state if it happened to run inside the
// serving process itself; an admin HTTP endpoint on the running
// service is the faithful port of that intent, not a standalone binary
// with nothing in-process to act on.
type BreakerHandler struct {
	registry *breaker.Registry
}

func NewBreakerHandler(registry *breaker.Registry) *BreakerHandler {
	return &BreakerHandler{registry: registry}
}

// Status handles GET /internal/breakers.
func (h *BreakerHandler) Status(w http.ResponseWriter, r *http.Request) {
	states := h.registry.States()
	out := make(map[string]string, len(states))
	for name, state := range states {
		out[name] = state.String()
	}
	writeJSON(w, http.StatusOK, out)
}

// Reset handles POST /internal/breakers/{name}/reset.
func (h *BreakerHandler) Reset(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if !h.registry.Reset(name) {
		writeError(w, http.StatusNotFound, "unknown circuit breaker: "+name)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"circuit": name, "state": "closed"})
}
