package handlers

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/velvethub/backend/internal/chat"
	"github.com/velvethub/backend/internal/logging"
	"github.com/velvethub/backend/internal/repositories"
)

// ChatHandler proxies conversation turns to the completion provider after
// replacing any client-supplied system turns with the server-built persona
// prompt.
type ChatHandler struct {
	Personas  PersonaStore
	Completer chat.Completer
	Limiter   RateLimiter
}

type chatRequest struct {
	PersonaID string      `json:"personaId"`
	Messages  []chat.Turn `json:"messages"`
	Scenario  string      `json:"scenario"`
	SessionID string      `json:"sessionId"`
}

type chatResponse struct {
	Message string     `json:"message"`
	Model   string     `json:"model"`
	Usage   chat.Usage `json:"usage"`
}

// Handle processes POST /api/v1/chat.
func (h ChatHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := logging.FromContext(ctx)

	if h.Limiter != nil && !h.Limiter.Allow(clientIP(r)) {
		respondError(ctx, w, http.StatusTooManyRequests, "too many chat requests, slow down")
		return
	}

	if h.Personas == nil || h.Completer == nil {
		respondError(ctx, w, http.StatusInternalServerError, "chat services unavailable")
		return
	}

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(ctx, w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	req.PersonaID = strings.TrimSpace(req.PersonaID)
	if req.PersonaID == "" {
		respondError(ctx, w, http.StatusBadRequest, "personaId is required")
		return
	}
	if len(req.Messages) == 0 {
		respondError(ctx, w, http.StatusBadRequest, "messages must not be empty")
		return
	}

	persona, err := h.Personas.GetByID(ctx, req.PersonaID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			respondError(ctx, w, http.StatusNotFound, "persona not found")
			return
		}
		logger.Error("fetch persona failed", "personaId", req.PersonaID, "error", err)
		respondError(ctx, w, http.StatusInternalServerError, "failed to fetch persona")
		return
	}

	// Client-sent system turns are never trusted.
	turns := make([]chat.Turn, 0, len(req.Messages)+1)
	turns = append(turns, chat.Turn{
		Role:    chat.RoleSystem,
		Content: chat.BuildSystemPrompt(persona, req.Scenario),
	})
	for _, t := range req.Messages {
		if t.Role == chat.RoleSystem {
			continue
		}
		turns = append(turns, t)
	}

	spanCtx, span := logging.StartSpan(ctx, "chat_completion")
	completion, err := h.Completer.Complete(spanCtx, chat.ResolveModelConfig(persona), turns)
	span.End()
	if err != nil {
		var upstream *chat.UpstreamError
		switch {
		case errors.As(err, &upstream):
			logger.Warn("completion provider rejected request", "status", upstream.StatusCode, "message", upstream.Message)
			respondError(ctx, w, http.StatusBadGateway, "completion provider error: "+upstream.Message)
		case errors.Is(err, chat.ErrNoResponse):
			respondError(ctx, w, http.StatusBadGateway, "completion provider returned no content")
		case errors.Is(err, chat.ErrNotConfigured):
			respondError(ctx, w, http.StatusInternalServerError, "completion provider credentials not configured")
		default:
			logger.Error("completion request failed", "personaId", req.PersonaID, "error", err)
			respondError(ctx, w, http.StatusBadGateway, "failed to reach completion provider")
		}
		return
	}

	logger.Info("chat turn completed",
		"personaId", req.PersonaID,
		"sessionId", req.SessionID,
		"model", completion.Model,
		"totalTokens", completion.Usage.TotalTokens)

	respondJSON(ctx, w, http.StatusOK, chatResponse{
		Message: completion.Message,
		Model:   completion.Model,
		Usage:   completion.Usage,
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if first, _, ok := strings.Cut(fwd, ","); ok {
			return strings.TrimSpace(first)
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
