package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/velvethub/backend/internal/logging"
)

// SessionHandler records anonymous client sessions for rough usage counts.
type SessionHandler struct {
	Sessions ClientSessionStore
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

// Register handles POST /api/v1/sessions. Registering the same session id
// twice succeeds; the endpoint only cares that the row exists.
func (h SessionHandler) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if h.Sessions == nil {
		respondError(ctx, w, http.StatusInternalServerError, "session services unavailable")
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.SessionID = strings.TrimSpace(req.SessionID)
	if req.SessionID == "" {
		respondError(ctx, w, http.StatusBadRequest, "sessionId is required")
		return
	}

	if err := h.Sessions.Register(ctx, req.SessionID); err != nil {
		logging.FromContext(ctx).Error("session registration failed", "sessionId", req.SessionID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to register session")
		return
	}

	respondJSON(ctx, w, http.StatusCreated, map[string]any{"registered": true})
}
