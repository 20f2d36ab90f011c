package handlers

import (
	"log/slog"
	"net/http"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// AgentsHandler serves the calling agent's own record and client roster.
type AgentsHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewAgentsHandler creates a new agents handler.
func NewAgentsHandler(st store.Store, logger *slog.Logger) *AgentsHandler {
	return &AgentsHandler{store: st, logger: logger}
}

// GetMe returns the calling agent's profile.
func (h *AgentsHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	agent, err := h.store.Agents().Get(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Error("failed to fetch agent", "error", err)
		WriteInternalError(w, "Failed to fetch profile")
		return
	}
	if agent == nil {
		WriteNotFound(w, "Agent record not found")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"agent": agent})
}

// ListClients returns the clients assigned to the calling agent.
func (h *AgentsHandler) ListClients(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	clients, err := h.store.Clients().ListByAgent(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Error("failed to list clients", "error", err)
		WriteInternalError(w, "Failed to list clients")
		return
	}
	if clients == nil {
		clients = []*models.Client{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"clients": clients})
}
