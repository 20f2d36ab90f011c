package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/chat"
	"github.com/relohub/platform/internal/models"
)

// ChatHandler exposes the polling chat.
type ChatHandler struct {
	chat   *chat.Service
	logger *slog.Logger
}

// NewChatHandler creates a new chat handler.
func NewChatHandler(chatSvc *chat.Service, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{chat: chatSvc, logger: logger}
}

type sendMessageRequest struct {
	Body string `json:"body"`
}

// Send posts a message to the client's conversation.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	msg, err := h.chat.Send(r.Context(), caller, clientID, req.Body)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, msg)
}

// Poll returns messages after the given cursor. Clients poll with the
// cursor from the previous response.
func (h *ChatHandler) Poll(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	var after int64
	if v := r.URL.Query().Get("after"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil || parsed < 0 {
			WriteBadRequest(w, "after must be a non-negative integer")
			return
		}
		after = parsed
	}

	messages, next, err := h.chat.Poll(r.Context(), caller, clientID, after)
	if err != nil {
		h.writeChatError(w, err)
		return
	}
	if messages == nil {
		messages = []*models.Message{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"messages": messages,
		"cursor":   next,
	})
}

func (h *ChatHandler) writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrClientNotFound):
		WriteNotFound(w, "Client not found")
	case errors.Is(err, chat.ErrNotParticipant):
		WriteForbidden(w, "You are not a participant in this conversation")
	case errors.Is(err, chat.ErrNoAgentAssigned):
		WriteConflict(w, "No agent assigned yet; redeem an invitation first")
	case errors.Is(err, models.ErrMessageBodyRequired), errors.Is(err, models.ErrMessageBodyTooLong):
		WriteBadRequest(w, err.Error())
	default:
		h.logger.Error("chat operation failed", "error", err)
		WriteInternalError(w, "Chat operation failed")
	}
}
