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

// ClientStore implements store.ClientStore using PostgreSQL.
type ClientStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *ClientStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create creates a new client record.
func (s *ClientStore) Create(ctx context.Context, client *models.Client) error {
	if client.ID == "" {
		client.ID = uuid.New().String()
	}
	now := time.Now()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	query := `
		INSERT INTO clients (id, identity_ref, name, email, phone, agent_id, invitation_token,
			origin_country, target_city, move_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.conn().ExecContext(ctx, query,
		client.ID,
		client.IdentityRef,
		client.Name,
		client.Email,
		client.Phone,
		client.AgentID,
		client.InvitationToken,
		client.OriginCountry,
		client.TargetCity,
		client.MoveDate,
		client.CreatedAt,
		client.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

const clientColumns = `id, identity_ref, name, email, phone, agent_id, invitation_token,
	origin_country, target_city, move_date, created_at, updated_at`

func scanClient(row interface{ Scan(...any) error }) (*models.Client, error) {
	var client models.Client
	var phone, agentID, invitationToken, originCountry, targetCity sql.NullString
	var moveDate sql.NullTime

	err := row.Scan(
		&client.ID, &client.IdentityRef, &client.Name, &client.Email,
		&phone, &agentID, &invitationToken,
		&originCountry, &targetCity, &moveDate, &client.CreatedAt, &client.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	client.Phone = phone.String
	client.OriginCountry = originCountry.String
	client.TargetCity = targetCity.String
	if agentID.Valid {
		client.AgentID = &agentID.String
	}
	if invitationToken.Valid {
		client.InvitationToken = &invitationToken.String
	}
	if moveDate.Valid {
		client.MoveDate = &moveDate.Time
	}
	return &client, nil
}

// Get retrieves a client by ID.
func (s *ClientStore) Get(ctx context.Context, id string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = $1`

	client, err := scanClient(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// GetByIdentityRef retrieves a client by its identity-provider reference.
func (s *ClientStore) GetByIdentityRef(ctx context.Context, ref string) (*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE identity_ref = $1`

	client, err := scanClient(s.conn().QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return client, nil
}

// ListByAgent retrieves all clients assigned to an agent.
func (s *ClientStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE agent_id = $1 ORDER BY created_at`

	rows, err := s.conn().QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var clients []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}

	return clients, rows.Err()
}

// Update updates a client's profile fields. Assignment fields are only
// written through Assign.
func (s *ClientStore) Update(ctx context.Context, client *models.Client) error {
	query := `
		UPDATE clients
		SET name = $1, email = $2, phone = $3, origin_country = $4, target_city = $5,
			move_date = $6, updated_at = NOW()
		WHERE id = $7
	`
	_, err := s.conn().ExecContext(ctx, query,
		client.Name, client.Email, client.Phone,
		client.OriginCountry, client.TargetCity, client.MoveDate, client.ID,
	)
	return err
}

// Assign links the client to an agent. The write is conditional on the
// client being unassigned so two concurrent redemptions cannot both win.
func (s *ClientStore) Assign(ctx context.Context, clientID, agentID, invitationToken string) (bool, error) {
	query := `
		UPDATE clients
		SET agent_id = $1, invitation_token = $2, updated_at = NOW()
		WHERE id = $3 AND agent_id IS NULL
	`
	result, err := s.conn().ExecContext(ctx, query, agentID, invitationToken, clientID)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Count returns total and assigned client counts.
func (s *ClientStore) Count(ctx context.Context) (int, int, error) {
	var total, assigned int
	err := s.conn().QueryRowContext(ctx,
		`SELECT COUNT(*), COUNT(agent_id) FROM clients`,
	).Scan(&total, &assigned)
	return total, assigned, err
}
