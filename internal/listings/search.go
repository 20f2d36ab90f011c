// Package listings provides real-estate listing search through an
// external LLM API and annotation of listings saved against a client.
package listings

import (
	"context"
	"errors"

	"github.com/relohub/platform/internal/models"
)

// Errors returned by the listings subsystem.
var (
	ErrSearchUnavailable = errors.New("listing search unavailable")
	ErrEmptyQuery        = errors.New("search query is required")
	ErrListingNotFound   = errors.New("listing not found")
	ErrNotAuthorized     = errors.New("caller may not access this client's listings")
)

// Query describes a listing search.
type Query struct {
	City      string `json:"city"`
	MaxBudget int    `json:"max_budget,omitempty"` // monthly USD
	Bedrooms  int    `json:"bedrooms,omitempty"`
	Notes     string `json:"notes,omitempty"` // free-form constraints
}

// Searcher finds listings matching a query. The production implementation
// asks an LLM API with web search; tests substitute a fake.
type Searcher interface {
	Search(ctx context.Context, q Query) ([]models.ListingResult, error)
}
