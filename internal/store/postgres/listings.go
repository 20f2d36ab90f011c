package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relohub/platform/internal/models"
)

// ListingStore implements store.ListingStore using PostgreSQL.
type ListingStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *ListingStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists a saved listing.
func (s *ListingStore) Create(ctx context.Context, listing *models.SavedListing) error {
	if listing.ID == "" {
		listing.ID = uuid.New().String()
	}
	now := time.Now()
	if listing.CreatedAt.IsZero() {
		listing.CreatedAt = now
	}
	listing.UpdatedAt = now

	query := `
		INSERT INTO saved_listings
			(id, client_id, added_by, title, address, city, price_usd, bedrooms, bathrooms, url, annotation, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.conn().ExecContext(ctx, query,
		listing.ID,
		listing.ClientID,
		listing.AddedBy,
		listing.Title,
		listing.Address,
		listing.City,
		listing.PriceUSD,
		listing.Bedrooms,
		listing.Bathrooms,
		listing.URL,
		listing.Annotation,
		listing.CreatedAt,
		listing.UpdatedAt,
	)
	return err
}

const listingColumns = `id, client_id, added_by, title, address, city, price_usd, bedrooms, bathrooms, url, annotation, created_at, updated_at`

func scanListing(row interface{ Scan(...any) error }) (*models.SavedListing, error) {
	var listing models.SavedListing
	var city, url, annotation sql.NullString

	err := row.Scan(
		&listing.ID, &listing.ClientID, &listing.AddedBy, &listing.Title, &listing.Address,
		&city, &listing.PriceUSD, &listing.Bedrooms, &listing.Bathrooms,
		&url, &annotation, &listing.CreatedAt, &listing.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	listing.City = city.String
	listing.URL = url.String
	listing.Annotation = annotation.String
	return &listing, nil
}

// Get retrieves a saved listing by ID.
func (s *ListingStore) Get(ctx context.Context, id string) (*models.SavedListing, error) {
	query := `SELECT ` + listingColumns + ` FROM saved_listings WHERE id = $1`

	listing, err := scanListing(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return listing, nil
}

// ListByClient retrieves all listings saved for a client.
func (s *ListingStore) ListByClient(ctx context.Context, clientID string) ([]*models.SavedListing, error) {
	query := `SELECT ` + listingColumns + ` FROM saved_listings WHERE client_id = $1 ORDER BY created_at DESC`

	rows, err := s.conn().QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var listings []*models.SavedListing
	for rows.Next() {
		listing, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, listing)
	}

	return listings, rows.Err()
}

// UpdateAnnotation replaces the listing's annotation.
func (s *ListingStore) UpdateAnnotation(ctx context.Context, id, annotation string) error {
	query := `UPDATE saved_listings SET annotation = $1, updated_at = NOW() WHERE id = $2`
	_, err := s.conn().ExecContext(ctx, query, annotation, id)
	return err
}

// Delete removes a saved listing.
func (s *ListingStore) Delete(ctx context.Context, id string) error {
	_, err := s.conn().ExecContext(ctx, `DELETE FROM saved_listings WHERE id = $1`, id)
	return err
}
