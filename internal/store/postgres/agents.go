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

// AgentStore implements store.AgentStore using PostgreSQL.
type AgentStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *AgentStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create creates a new agent record.
func (s *AgentStore) Create(ctx context.Context, agent *models.Agent) error {
	if agent.ID == "" {
		agent.ID = uuid.New().String()
	}
	now := time.Now()
	if agent.CreatedAt.IsZero() {
		agent.CreatedAt = now
	}
	agent.UpdatedAt = now

	query := `
		INSERT INTO agents (id, identity_ref, name, email, company, approved, approved_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := s.conn().ExecContext(ctx, query,
		agent.ID,
		agent.IdentityRef,
		agent.Name,
		agent.Email,
		agent.Company,
		agent.Approved,
		agent.ApprovedAt,
		agent.CreatedAt,
		agent.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

const agentColumns = `id, identity_ref, name, email, company, approved, approved_at, created_at, updated_at`

func scanAgent(row interface{ Scan(...any) error }) (*models.Agent, error) {
	var agent models.Agent
	var company sql.NullString
	var approvedAt sql.NullTime

	err := row.Scan(
		&agent.ID, &agent.IdentityRef, &agent.Name, &agent.Email,
		&company, &agent.Approved, &approvedAt, &agent.CreatedAt, &agent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	agent.Company = company.String
	if approvedAt.Valid {
		agent.ApprovedAt = &approvedAt.Time
	}
	return &agent, nil
}

// Get retrieves an agent by ID.
func (s *AgentStore) Get(ctx context.Context, id string) (*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE id = $1`

	agent, err := scanAgent(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// GetByIdentityRef retrieves an agent by its identity-provider reference.
func (s *AgentStore) GetByIdentityRef(ctx context.Context, ref string) (*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents WHERE identity_ref = $1`

	agent, err := scanAgent(s.conn().QueryRowContext(ctx, query, ref))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return agent, nil
}

// List retrieves all agents.
func (s *AgentStore) List(ctx context.Context) ([]*models.Agent, error) {
	query := `SELECT ` + agentColumns + ` FROM agents ORDER BY created_at`

	rows, err := s.conn().QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var agents []*models.Agent
	for rows.Next() {
		agent, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, agent)
	}

	return agents, rows.Err()
}

// Update updates an agent's profile fields.
func (s *AgentStore) Update(ctx context.Context, agent *models.Agent) error {
	query := `
		UPDATE agents
		SET name = $1, email = $2, company = $3, updated_at = NOW()
		WHERE id = $4
	`
	_, err := s.conn().ExecContext(ctx, query, agent.Name, agent.Email, agent.Company, agent.ID)
	return err
}

// Approve sets approval_status to true. Approving an already-approved agent
// leaves approved_at untouched.
func (s *AgentStore) Approve(ctx context.Context, id string, approvedAt time.Time) (bool, error) {
	query := `
		UPDATE agents
		SET approved = TRUE, approved_at = $1, updated_at = NOW()
		WHERE id = $2 AND approved = FALSE
	`
	result, err := s.conn().ExecContext(ctx, query, approvedAt, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}

	// Distinguish "already approved" from "no such agent".
	var exists bool
	err = s.conn().QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM agents WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

// CountByApproval returns the number of agents with the given status.
func (s *AgentStore) CountByApproval(ctx context.Context, approved bool) (int, error) {
	var count int
	err := s.conn().QueryRowContext(ctx, `SELECT COUNT(*) FROM agents WHERE approved = $1`, approved).Scan(&count)
	return count, err
}
