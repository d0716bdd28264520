package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/astropay/activityfeed/internal/auth"
	"github.com/astropay/activityfeed/internal/httpapi/middleware"
)

// AuthHandler issues and introspects bearer tokens. There is no
// credential check here by design — the original's /auth/token is
// explicitly a development/testing shortcut that mints a token for any
// user_id given, and this port keeps that contract rather than
// inventing one.
type AuthHandler struct {
	issuer *auth.Issuer
}

func NewAuthHandler(issuer *auth.Issuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

type tokenRequest struct {
	UserID string `json:"user_id"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// CreateToken handles POST /auth/token.
func (h *AuthHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	token, expiresIn, err := h.issuer.Issue(req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to issue token")
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   expiresIn,
	})
}

// Me handles GET /auth/me. It sits behind RequireAuth, so a missing or
// invalid token never reaches here.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]string{"user_id": userID})
}
