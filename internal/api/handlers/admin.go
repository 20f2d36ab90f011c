package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/relohub/platform/internal/identity"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// AdminHandler serves platform administration: agent approval and the
// reconciled statistics overview.
type AdminHandler struct {
	store    store.Store
	identity identity.Provider
	logger   *slog.Logger
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(st store.Store, provider identity.Provider, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{store: st, identity: provider, logger: logger}
}

// ListAgents returns every agent record, approved or not.
func (h *AdminHandler) ListAgents(w http.ResponseWriter, r *http.Request) {
	agents, err := h.store.Agents().List(r.Context())
	if err != nil {
		h.logger.Error("failed to list agents", "error", err)
		WriteInternalError(w, "Failed to list agents")
		return
	}
	if agents == nil {
		agents = []*models.Agent{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"agents": agents})
}

// ApproveAgent flips an agent's approval status on. Approving an
// already-approved agent is a no-op that still returns the record.
func (h *AdminHandler) ApproveAgent(w http.ResponseWriter, r *http.Request) {
	agentID := chi.URLParam(r, "agentID")

	matched, err := h.store.Agents().Approve(r.Context(), agentID, time.Now())
	if err != nil {
		h.logger.Error("failed to approve agent", "error", err, "agent_id", agentID)
		WriteInternalError(w, "Failed to approve agent")
		return
	}
	if !matched {
		WriteNotFound(w, "Agent not found")
		return
	}

	agent, err := h.store.Agents().Get(r.Context(), agentID)
	if err != nil || agent == nil {
		h.logger.Error("failed to fetch agent after approval", "error", err, "agent_id", agentID)
		WriteInternalError(w, "Failed to approve agent")
		return
	}

	h.logger.Info("agent approved", "agent_id", agentID)
	WriteJSON(w, http.StatusOK, map[string]any{"agent": agent})
}

// Stats returns the reconciled platform overview. Identity-provider users
// and local agent records are cross-checked; the provider is
// authoritative for who exists, the database for who is approved.
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context())
	if err != nil {
		if errors.Is(err, identity.ErrUnavailable) {
			WriteError(w, http.StatusBadGateway, ErrCodeUpstreamFailure, "Identity provider is unavailable")
			return
		}
		h.logger.Error("failed to list identity users", "error", err)
		WriteInternalError(w, "Failed to compute statistics")
		return
	}

	agents, err := h.store.Agents().List(r.Context())
	if err != nil {
		h.logger.Error("failed to list agents", "error", err)
		WriteInternalError(w, "Failed to compute statistics")
		return
	}

	rec := identity.Reconcile(users, agents)
	stats := rec.Stats()

	total, assigned, err := h.store.Clients().Count(r.Context())
	if err != nil {
		h.logger.Error("failed to count clients", "error", err)
		WriteInternalError(w, "Failed to compute statistics")
		return
	}
	stats.Clients = total
	stats.AssignedClients = assigned

	WriteJSON(w, http.StatusOK, stats)
}
