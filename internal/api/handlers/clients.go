package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/store"
)

// ClientsHandler serves the calling client's own record.
type ClientsHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewClientsHandler creates a new clients handler.
func NewClientsHandler(st store.Store, logger *slog.Logger) *ClientsHandler {
	return &ClientsHandler{store: st, logger: logger}
}

// GetMe returns the calling client's profile, including their assigned
// agent when one exists.
func (h *ClientsHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	client, err := h.store.Clients().Get(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Error("failed to fetch client", "error", err)
		WriteInternalError(w, "Failed to fetch profile")
		return
	}
	if client == nil {
		WriteNotFound(w, "Client record not found")
		return
	}

	resp := map[string]any{"client": client}
	if client.Assigned() {
		agent, err := h.store.Agents().Get(r.Context(), *client.AgentID)
		if err == nil && agent != nil {
			resp["agent"] = agent.Summary()
		}
	}
	WriteJSON(w, http.StatusOK, resp)
}

type updateClientRequest struct {
	Name          *string `json:"name,omitempty"`
	Phone         *string `json:"phone,omitempty"`
	OriginCountry *string `json:"origin_country,omitempty"`
	TargetCity    *string `json:"target_city,omitempty"`
	MoveDate      *string `json:"move_date,omitempty"` // RFC 3339 date
}

// UpdateMe patches the calling client's profile fields. Assignment fields
// are never writable here; they change only through invitation
// redemption.
func (h *ClientsHandler) UpdateMe(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())

	var req updateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	client, err := h.store.Clients().Get(r.Context(), caller.UserID)
	if err != nil {
		h.logger.Error("failed to fetch client", "error", err)
		WriteInternalError(w, "Failed to update profile")
		return
	}
	if client == nil {
		WriteNotFound(w, "Client record not found")
		return
	}

	if req.Name != nil {
		client.Name = *req.Name
	}
	if req.Phone != nil {
		client.Phone = *req.Phone
	}
	if req.OriginCountry != nil {
		client.OriginCountry = *req.OriginCountry
	}
	if req.TargetCity != nil {
		client.TargetCity = *req.TargetCity
	}
	if req.MoveDate != nil {
		if *req.MoveDate == "" {
			client.MoveDate = nil
		} else {
			moveDate, err := time.Parse("2006-01-02", *req.MoveDate)
			if err != nil {
				WriteBadRequest(w, "move_date must be a YYYY-MM-DD date")
				return
			}
			client.MoveDate = &moveDate
		}
	}

	if err := h.store.Clients().Update(r.Context(), client); err != nil {
		h.logger.Error("failed to update client", "error", err)
		WriteInternalError(w, "Failed to update profile")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"client": client})
}
