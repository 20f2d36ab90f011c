package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/invite"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// InvitationsHandler exposes the invitation lifecycle over HTTP.
type InvitationsHandler struct {
	store   store.Store
	invites *invite.Service
	logger  *slog.Logger
}

// NewInvitationsHandler creates a new invitations handler.
func NewInvitationsHandler(st store.Store, invites *invite.Service, logger *slog.Logger) *InvitationsHandler {
	return &InvitationsHandler{
		store:   st,
		invites: invites,
		logger:  logger,
	}
}

type createInvitationRequest struct {
	TargetEmail  string `json:"target_email,omitempty"`
	ValidityDays int    `json:"validity_days,omitempty"`
}

// Create issues a new invitation for the calling agent.
func (h *InvitationsHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	var req createInvitationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	inv, err := h.invites.Create(r.Context(), caller.UserID, req.TargetEmail, req.ValidityDays)
	if err != nil {
		switch {
		case errors.Is(err, invite.ErrInvalidValidity):
			WriteBadRequest(w, "validity_days must be between 1 and 90")
		case errors.Is(err, invite.ErrAgentNotFound):
			WriteNotFound(w, "Agent not found")
		case errors.Is(err, invite.ErrCodeGenerationExhausted):
			h.logger.Error("invitation code generation exhausted", "agent_id", caller.UserID)
			WriteInternalError(w, "Could not generate an invitation code")
		default:
			h.logger.Error("failed to create invitation", "error", err)
			WriteInternalError(w, "Failed to create invitation")
		}
		return
	}

	WriteJSON(w, http.StatusCreated, inv)
}

// List returns the calling agent's invitations.
func (h *InvitationsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	invitations, err := h.store.Invitations().ListByAgent(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Error("failed to list invitations", "error", err)
		WriteInternalError(w, "Failed to list invitations")
		return
	}
	if invitations == nil {
		invitations = []*models.Invitation{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"invitations": invitations})
}

// Revoke deletes one of the calling agent's unused invitations.
func (h *InvitationsHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	invitationID := chi.URLParam(r, "invitationID")

	err := h.invites.Revoke(r.Context(), caller.UserID, invitationID)
	if err != nil {
		switch {
		case errors.Is(err, invite.ErrInvitationNotFound):
			WriteNotFound(w, "Invitation not found")
		case errors.Is(err, invite.ErrNotInvitationOwner):
			WriteForbidden(w, "Invitation belongs to another agent")
		case errors.Is(err, invite.ErrInvitationAlreadyUsed):
			WriteConflict(w, "Invitation has already been used")
		default:
			h.logger.Error("failed to revoke invitation", "error", err)
			WriteInternalError(w, "Failed to revoke invitation")
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "revoked"})
}

// Check is the public code-preview endpoint: it classifies a code and,
// when valid, names the inviting agent so the prospect knows who asked.
func (h *InvitationsHandler) Check(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	status, inv, err := h.invites.Check(r.Context(), code)
	if err != nil {
		h.logger.Error("failed to check invitation", "error", err)
		WriteInternalError(w, "Failed to check invitation")
		return
	}

	resp := map[string]any{"status": status}
	if status == invite.StatusValid {
		agent, err := h.store.Agents().Get(r.Context(), inv.AgentID)
		if err == nil && agent != nil {
			resp["agent"] = agent.Summary()
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

type redeemRequest struct {
	Code string `json:"code"`
}

// Redeem consumes an invitation code for the calling client, linking them
// to the inviting agent. Every failure kind maps to a distinct code and
// message; expired and already-used are never collapsed together.
func (h *InvitationsHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	var req redeemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Code == "" {
		WriteBadRequest(w, "code is required")
		return
	}

	result, err := h.invites.Redeem(r.Context(), caller.UserID, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, invite.ErrClientNotFound):
			WriteNotFound(w, "Client record not found for caller")
		case errors.Is(err, invite.ErrAlreadyAssigned):
			WriteConflict(w, "You already have an assigned agent")
		case errors.Is(err, invite.ErrInvitationNotFound):
			WriteError(w, http.StatusNotFound, ErrCodeNotFound, "Invalid invitation code")
		case errors.Is(err, invite.ErrInvitationExpired):
			WriteError(w, http.StatusGone, ErrCodeGone, "Invitation has expired; ask your agent for a new code")
		case errors.Is(err, invite.ErrInvitationAlreadyUsed):
			WriteConflict(w, "Invitation has already been used")
		case errors.Is(err, invite.ErrAgentNotApproved):
			WriteForbidden(w, "The inviting agent is not approved yet")
		default:
			h.logger.Error("failed to redeem invitation", "error", err)
			WriteInternalError(w, "Failed to redeem invitation")
		}
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{
		"client": result.Client.Summary(),
		"agent":  result.Agent.Summary(),
	})
}
