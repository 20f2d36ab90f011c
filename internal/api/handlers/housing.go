package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// HousingHandler serves the per-client housing preference form.
type HousingHandler struct {
	store  store.Store
	logger *slog.Logger
}

// NewHousingHandler creates a new housing handler.
func NewHousingHandler(st store.Store, logger *slog.Logger) *HousingHandler {
	return &HousingHandler{store: st, logger: logger}
}

// Get returns the client's housing preference, or an empty form when the
// client has not filled it in.
func (h *HousingHandler) Get(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, clientID); err != nil {
		writeAccessError(w, err)
		return
	}

	pref, err := h.store.Housing().Get(r.Context(), clientID)
	if err != nil {
		h.logger.Error("failed to fetch housing preference", "error", err)
		WriteInternalError(w, "Failed to fetch housing preference")
		return
	}
	if pref == nil {
		pref = &models.HousingPreference{ClientID: clientID}
	}

	WriteJSON(w, http.StatusOK, pref)
}

// Put creates or replaces the client's housing preference.
func (h *HousingHandler) Put(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	if _, err := fetchAuthorizedClient(r.Context(), h.store, caller, clientID); err != nil {
		writeAccessError(w, err)
		return
	}

	var pref models.HousingPreference
	if err := json.NewDecoder(r.Body).Decode(&pref); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	pref.ClientID = clientID

	if err := pref.Validate(); err != nil {
		WriteBadRequest(w, err.Error())
		return
	}

	if err := h.store.Housing().Upsert(r.Context(), &pref); err != nil {
		h.logger.Error("failed to upsert housing preference", "error", err)
		WriteInternalError(w, "Failed to save housing preference")
		return
	}

	WriteJSON(w, http.StatusOK, &pref)
}
