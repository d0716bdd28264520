package handlers

import (
	"net/http"

	"github.com/astropay/activityfeed/internal/health"
)

// HealthHandler serves the roll-up health report.
type HealthHandler struct {
	checker *health.Checker
}

func NewHealthHandler(checker *health.Checker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	report := h.checker.Check(r.Context())
	writeJSON(w, http.StatusOK, report)
}
