package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/relohub/platform/internal/models"
)

// InvitationStore implements store.InvitationStore using PostgreSQL.
// Codes are stored uppercase; lookups canonicalize before querying.
type InvitationStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *InvitationStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists a new invitation.
func (s *InvitationStore) Create(ctx context.Context, invitation *models.Invitation) error {
	if invitation.ID == "" {
		invitation.ID = uuid.New().String()
	}
	if invitation.CreatedAt.IsZero() {
		invitation.CreatedAt = time.Now()
	}
	invitation.Code = strings.ToUpper(invitation.Code)

	query := `
		INSERT INTO invitations (id, code, token, agent_id, target_email, created_at, expires_at, used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.conn().ExecContext(ctx, query,
		invitation.ID,
		invitation.Code,
		invitation.Token,
		invitation.AgentID,
		invitation.TargetEmail,
		invitation.CreatedAt,
		invitation.ExpiresAt,
		invitation.UsedAt,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	return err
}

const invitationColumns = `id, code, token, agent_id, target_email, created_at, expires_at, used_at`

func scanInvitation(row interface{ Scan(...any) error }) (*models.Invitation, error) {
	var inv models.Invitation
	var targetEmail sql.NullString
	var usedAt sql.NullTime

	err := row.Scan(
		&inv.ID, &inv.Code, &inv.Token, &inv.AgentID,
		&targetEmail, &inv.CreatedAt, &inv.ExpiresAt, &usedAt,
	)
	if err != nil {
		return nil, err
	}

	inv.TargetEmail = targetEmail.String
	if usedAt.Valid {
		inv.UsedAt = &usedAt.Time
	}
	return &inv, nil
}

// Get retrieves an invitation by ID.
func (s *InvitationStore) Get(ctx context.Context, id string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE id = $1`

	inv, err := scanInvitation(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByCode retrieves an invitation by its code, case-insensitively.
func (s *InvitationStore) GetByCode(ctx context.Context, code string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE code = $1`

	inv, err := scanInvitation(s.conn().QueryRowContext(ctx, query, strings.ToUpper(code)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// GetByToken retrieves an invitation by its token.
func (s *InvitationStore) GetByToken(ctx context.Context, token string) (*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE token = $1`

	inv, err := scanInvitation(s.conn().QueryRowContext(ctx, query, token))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inv, nil
}

// CodeExists reports whether any invitation has the given code.
func (s *InvitationStore) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.conn().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM invitations WHERE code = $1)`,
		strings.ToUpper(code),
	).Scan(&exists)
	return exists, err
}

// ListByAgent retrieves all invitations created by an agent.
func (s *InvitationStore) ListByAgent(ctx context.Context, agentID string) ([]*models.Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM invitations WHERE agent_id = $1 ORDER BY created_at DESC`

	rows, err := s.conn().QueryContext(ctx, query, agentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invitations []*models.Invitation
	for rows.Next() {
		inv, err := scanInvitation(rows)
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	return invitations, rows.Err()
}

// MarkUsed sets used_at. The write is conditional on used_at IS NULL so two
// concurrent redemptions of the same code cannot both consume it.
func (s *InvitationStore) MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error) {
	query := `UPDATE invitations SET used_at = $1 WHERE id = $2 AND used_at IS NULL`

	result, err := s.conn().ExecContext(ctx, query, usedAt, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// Delete removes an unused invitation.
func (s *InvitationStore) Delete(ctx context.Context, id string) (bool, error) {
	result, err := s.conn().ExecContext(ctx,
		`DELETE FROM invitations WHERE id = $1 AND used_at IS NULL`, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}
