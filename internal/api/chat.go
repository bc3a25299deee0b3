package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/talkdb/talkdb/internal/chat"
	"github.com/talkdb/talkdb/internal/config"
)

// statusClientClosedRequest follows the nginx convention for requests the
// client abandoned before an answer was ready.
const statusClientClosedRequest = 499

type chatRequest struct {
	SessionID    string `json:"session_id"`
	Message      string `json:"message"`
	IncludeSteps *bool  `json:"include_steps,omitempty"`
}

func handleCreateSession(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat gateway is not configured", false, nil)
		return
	}
	session := deps.Gateway.NewSession()
	writeJSON(w, http.StatusCreated, map[string]any{
		"session_id": session.ID,
		"created_at": session.CreatedAt,
	})
}

func handleTranscript(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat gateway is not configured", false, nil)
		return
	}
	sessionID := r.PathValue("id")
	turns, err := deps.Gateway.Transcript(sessionID)
	if err != nil {
		writeSessionError(w, r, sessionID, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sessionID,
		"turns":      turns,
	})
}

func handleChat(cfg config.Config, deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Gateway == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "CHAT_NOT_CONFIGURED", "chat gateway is not configured", false, nil)
		return
	}

	var req chatRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid chat request body", false, map[string]any{"details": err.Error()})
		return
	}

	outcome, err := deps.Gateway.HandleTurn(r.Context(), req.SessionID, req.Message)
	if err != nil {
		writeSessionError(w, r, req.SessionID, err)
		return
	}
	if !outcome.OK() {
		writeError(r.Context(), w, failureStatus(outcome.Failure.Kind), string(outcome.Failure.Kind), outcome.Failure.Message, true, map[string]any{
			"session_id": outcome.SessionID,
		})
		return
	}

	response := map[string]any{
		"session_id": outcome.SessionID,
		"answer":     outcome.Answer,
	}
	includeSteps := cfg.Chat.IncludeSteps
	if req.IncludeSteps != nil {
		includeSteps = *req.IncludeSteps
	}
	if includeSteps {
		response["steps"] = outcome.Steps
	}
	writeJSON(w, http.StatusOK, response)
}

func writeSessionError(w http.ResponseWriter, r *http.Request, sessionID string, err error) {
	if errors.Is(err, chat.ErrSessionNotFound) {
		writeError(r.Context(), w, http.StatusNotFound, "SESSION_NOT_FOUND", "session not found", false, map[string]any{"session_id": sessionID})
		return
	}
	writeError(r.Context(), w, http.StatusInternalServerError, "SESSION_LOOKUP_FAILED", "failed to load session", true, nil)
}

func failureStatus(kind chat.FailureKind) int {
	switch kind {
	case chat.FailureAgentTimeout:
		return http.StatusGatewayTimeout
	case chat.FailureCanceled:
		return statusClientClosedRequest
	default:
		return http.StatusBadGateway
	}
}
