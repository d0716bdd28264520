// Package handlers implements the HTTP handlers for the activity
// feed's transaction, auth and health endpoints — the thin adapter
// layer spec.md §1 explicitly leaves to the surrounding service, wired
// here against the core components it names.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/astropay/activityfeed/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeAppErr translates the apperr.Kind vocabulary into the HTTP
// status codes the original routes raise directly (400/403/404/500).
func writeAppErr(w http.ResponseWriter, err error) {
	appErr, ok := apperr.As(err)
	if !ok {
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	switch appErr.Kind {
	case apperr.KindValidation:
		writeError(w, http.StatusBadRequest, appErr.Message)
	case apperr.KindForbidden:
		writeError(w, http.StatusForbidden, appErr.Message)
	case apperr.KindNotFound:
		writeError(w, http.StatusNotFound, appErr.Message)
	case apperr.KindUnavailable:
		writeError(w, http.StatusServiceUnavailable, appErr.Message)
	default:
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
