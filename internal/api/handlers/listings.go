package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/relohub/platform/internal/api/middleware"
	"github.com/relohub/platform/internal/listings"
	"github.com/relohub/platform/internal/models"
)

// ListingsHandler exposes listing search and the per-client saved list.
type ListingsHandler struct {
	listings *listings.Service
	logger   *slog.Logger
}

// NewListingsHandler creates a new listings handler.
func NewListingsHandler(svc *listings.Service, logger *slog.Logger) *ListingsHandler {
	return &ListingsHandler{listings: svc, logger: logger}
}

type searchRequest struct {
	City      string `json:"city"`
	MaxBudget int    `json:"max_budget,omitempty"`
	Bedrooms  int    `json:"bedrooms,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

// Search runs a listing search against the external service. Results are
// not stored; callers save the ones they want.
func (h *ListingsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	results, err := h.listings.Search(r.Context(), listings.Query{
		City:      req.City,
		MaxBudget: req.MaxBudget,
		Bedrooms:  req.Bedrooms,
		Notes:     req.Notes,
	})
	if err != nil {
		switch {
		case errors.Is(err, listings.ErrEmptyQuery):
			WriteBadRequest(w, "city is required")
		case errors.Is(err, listings.ErrSearchUnavailable):
			WriteError(w, http.StatusBadGateway, ErrCodeUpstreamFailure, "Listing search is temporarily unavailable")
		default:
			h.logger.Error("listing search failed", "error", err)
			WriteInternalError(w, "Listing search failed")
		}
		return
	}
	if results == nil {
		results = []models.ListingResult{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"results": results})
}

type saveListingRequest struct {
	Listing    models.ListingResult `json:"listing"`
	Annotation string               `json:"annotation,omitempty"`
}

// Save persists a search result against the client.
func (h *ListingsHandler) Save(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	var req saveListingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}
	if req.Listing.Title == "" || req.Listing.Address == "" {
		WriteBadRequest(w, "listing title and address are required")
		return
	}

	saved, err := h.listings.Save(r.Context(), caller, clientID, req.Listing, req.Annotation)
	if err != nil {
		h.writeListingError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, saved)
}

// List returns the listings saved for a client.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	clientID := chi.URLParam(r, "clientID")

	saved, err := h.listings.List(r.Context(), caller, clientID)
	if err != nil {
		h.writeListingError(w, err)
		return
	}
	if saved == nil {
		saved = []*models.SavedListing{}
	}

	WriteJSON(w, http.StatusOK, map[string]any{"listings": saved})
}

type annotateRequest struct {
	Annotation string `json:"annotation"`
}

// Annotate replaces the annotation on a saved listing.
func (h *ListingsHandler) Annotate(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	listingID := chi.URLParam(r, "listingID")

	var req annotateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteBadRequest(w, "Invalid request body")
		return
	}

	listing, err := h.listings.Annotate(r.Context(), caller, listingID, req.Annotation)
	if err != nil {
		h.writeListingError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, listing)
}

// Delete removes a saved listing.
func (h *ListingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller := middleware.GetCaller(r.Context())
	listingID := chi.URLParam(r, "listingID")

	if err := h.listings.Delete(r.Context(), caller, listingID); err != nil {
		h.writeListingError(w, err)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *ListingsHandler) writeListingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, listings.ErrListingNotFound):
		WriteNotFound(w, "Listing not found")
	case errors.Is(err, listings.ErrNotAuthorized):
		WriteForbidden(w, "You do not have access to this client's listings")
	default:
		h.logger.Error("listing operation failed", "error", err)
		WriteInternalError(w, "Listing operation failed")
	}
}
