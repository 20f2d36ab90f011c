package models

import (
	"time"
)

// ListingResult is a single real-estate listing returned by the external
// search service. Results are ephemeral until saved against a client.
type ListingResult struct {
	Title     string `json:"title"`
	Address   string `json:"address"`
	City      string `json:"city,omitempty"`
	PriceUSD  int    `json:"price_usd,omitempty"` // monthly rent
	Bedrooms  int    `json:"bedrooms,omitempty"`
	Bathrooms int    `json:"bathrooms,omitempty"`
	URL       string `json:"url,omitempty"`
	Summary   string `json:"summary,omitempty"`
}

// SavedListing is a listing persisted against a client, with a free-form
// annotation editable by the client or their agent.
type SavedListing struct {
	ID         string    `json:"id"`
	ClientID   string    `json:"client_id"`
	AddedBy    string    `json:"added_by"` // principal id of whoever saved it
	Title      string    `json:"title"`
	Address    string    `json:"address"`
	City       string    `json:"city,omitempty"`
	PriceUSD   int       `json:"price_usd,omitempty"`
	Bedrooms   int       `json:"bedrooms,omitempty"`
	Bathrooms  int       `json:"bathrooms,omitempty"`
	URL        string    `json:"url,omitempty"`
	Annotation string    `json:"annotation,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
