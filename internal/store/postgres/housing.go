package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/lib/pq"
	"github.com/relohub/platform/internal/models"
)

// HousingStore implements store.HousingStore using PostgreSQL. Preferred
// cities are stored as a text[] column via pq.Array.
type HousingStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *HousingStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Get retrieves a client's housing preference.
func (s *HousingStore) Get(ctx context.Context, clientID string) (*models.HousingPreference, error) {
	query := `
		SELECT client_id, bedrooms, bathrooms, budget_min, budget_max, cities, pets,
			move_in_date, notes, updated_at
		FROM housing_preferences WHERE client_id = $1
	`

	var pref models.HousingPreference
	var notes sql.NullString
	var moveIn sql.NullTime

	err := s.conn().QueryRowContext(ctx, query, clientID).Scan(
		&pref.ClientID, &pref.Bedrooms, &pref.Bathrooms, &pref.BudgetMin, &pref.BudgetMax,
		pq.Array(&pref.Cities), &pref.Pets, &moveIn, &notes, &pref.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	pref.Notes = notes.String
	if moveIn.Valid {
		pref.MoveInDate = &moveIn.Time
	}
	return &pref, nil
}

// Upsert creates or replaces the client's housing preference.
func (s *HousingStore) Upsert(ctx context.Context, pref *models.HousingPreference) error {
	pref.UpdatedAt = time.Now()

	query := `
		INSERT INTO housing_preferences
			(client_id, bedrooms, bathrooms, budget_min, budget_max, cities, pets, move_in_date, notes, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (client_id) DO UPDATE SET
			bedrooms = EXCLUDED.bedrooms,
			bathrooms = EXCLUDED.bathrooms,
			budget_min = EXCLUDED.budget_min,
			budget_max = EXCLUDED.budget_max,
			cities = EXCLUDED.cities,
			pets = EXCLUDED.pets,
			move_in_date = EXCLUDED.move_in_date,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`

	_, err := s.conn().ExecContext(ctx, query,
		pref.ClientID,
		pref.Bedrooms,
		pref.Bathrooms,
		pref.BudgetMin,
		pref.BudgetMax,
		pq.Array(pref.Cities),
		pref.Pets,
		pref.MoveInDate,
		pref.Notes,
		pref.UpdatedAt,
	)
	return err
}
