package models

import (
	"errors"
	"time"
)

// Validation errors for housing preferences.
var (
	ErrHousingBudgetRange   = errors.New("budget_min must not exceed budget_max")
	ErrHousingBedroomsRange = errors.New("bedrooms must be between 0 and 10")
	ErrHousingTooManyCities = errors.New("at most 10 preferred cities")
)

// HousingPreference is the housing form a client fills in, one row per
// client with upsert semantics.
type HousingPreference struct {
	ClientID   string     `json:"client_id"`
	Bedrooms   int        `json:"bedrooms"`
	Bathrooms  int        `json:"bathrooms"`
	BudgetMin  int        `json:"budget_min"` // monthly rent, USD
	BudgetMax  int        `json:"budget_max"`
	Cities     []string   `json:"cities,omitempty"` // preferred cities, ordered
	Pets       bool       `json:"pets"`
	MoveInDate *time.Time `json:"move_in_date,omitempty"`
	Notes      string     `json:"notes,omitempty"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Validate checks the preference fields.
func (h *HousingPreference) Validate() error {
	if h.BudgetMin > h.BudgetMax && h.BudgetMax != 0 {
		return ErrHousingBudgetRange
	}
	if h.Bedrooms < 0 || h.Bedrooms > 10 {
		return ErrHousingBedroomsRange
	}
	if len(h.Cities) > 10 {
		return ErrHousingTooManyCities
	}
	return nil
}
