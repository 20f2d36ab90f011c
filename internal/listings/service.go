package listings

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// Service searches listings and manages those saved against a client.
type Service struct {
	store    store.Store
	searcher Searcher
	logger   *slog.Logger
}

// NewService creates a listings service.
func NewService(st store.Store, searcher Searcher, logger *slog.Logger) *Service {
	return &Service{
		store:    st,
		searcher: searcher,
		logger:   logger.With("component", "listings"),
	}
}

// Search runs a listing search. Results are ephemeral; nothing is stored.
func (s *Service) Search(ctx context.Context, q Query) ([]models.ListingResult, error) {
	return s.searcher.Search(ctx, q)
}

// Save persists a search result against a client.
func (s *Service) Save(ctx context.Context, caller auth.CallerIdentity, clientID string, result models.ListingResult, annotation string) (*models.SavedListing, error) {
	if err := s.authorize(ctx, caller, clientID); err != nil {
		return nil, err
	}

	listing := &models.SavedListing{
		ClientID:   clientID,
		AddedBy:    caller.UserID,
		Title:      result.Title,
		Address:    result.Address,
		City:       result.City,
		PriceUSD:   result.PriceUSD,
		Bedrooms:   result.Bedrooms,
		Bathrooms:  result.Bathrooms,
		URL:        result.URL,
		Annotation: annotation,
	}
	if err := s.store.Listings().Create(ctx, listing); err != nil {
		return nil, fmt.Errorf("saving listing: %w", err)
	}
	return listing, nil
}

// List returns the listings saved for a client.
func (s *Service) List(ctx context.Context, caller auth.CallerIdentity, clientID string) ([]*models.SavedListing, error) {
	if err := s.authorize(ctx, caller, clientID); err != nil {
		return nil, err
	}
	return s.store.Listings().ListByClient(ctx, clientID)
}

// Annotate replaces the annotation on a saved listing.
func (s *Service) Annotate(ctx context.Context, caller auth.CallerIdentity, listingID, annotation string) (*models.SavedListing, error) {
	listing, err := s.store.Listings().Get(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("fetching listing: %w", err)
	}
	if listing == nil {
		return nil, ErrListingNotFound
	}
	if err := s.authorize(ctx, caller, listing.ClientID); err != nil {
		return nil, err
	}

	if err := s.store.Listings().UpdateAnnotation(ctx, listingID, annotation); err != nil {
		return nil, fmt.Errorf("updating annotation: %w", err)
	}
	listing.Annotation = annotation
	return listing, nil
}

// Delete removes a saved listing.
func (s *Service) Delete(ctx context.Context, caller auth.CallerIdentity, listingID string) error {
	listing, err := s.store.Listings().Get(ctx, listingID)
	if err != nil {
		return fmt.Errorf("fetching listing: %w", err)
	}
	if listing == nil {
		return ErrListingNotFound
	}
	if err := s.authorize(ctx, caller, listing.ClientID); err != nil {
		return err
	}
	return s.store.Listings().Delete(ctx, listingID)
}

// authorize admits the client themselves or their assigned agent.
func (s *Service) authorize(ctx context.Context, caller auth.CallerIdentity, clientID string) error {
	client, err := s.store.Clients().Get(ctx, clientID)
	if err != nil {
		return fmt.Errorf("fetching client: %w", err)
	}
	if client == nil {
		return ErrNotAuthorized
	}

	switch caller.Role {
	case models.RoleClient:
		if caller.UserID != client.ID {
			return ErrNotAuthorized
		}
	case models.RoleAgent:
		if !client.Assigned() || *client.AgentID != caller.UserID {
			return ErrNotAuthorized
		}
	default:
		return ErrNotAuthorized
	}
	return nil
}
