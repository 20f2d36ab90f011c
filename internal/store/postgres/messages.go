package postgres

import (
	"context"
	"database/sql"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relohub/platform/internal/models"
)

// MessageStore implements store.MessageStore using PostgreSQL. The seq
// column is a BIGSERIAL, which gives the polling endpoint its cursor.
type MessageStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *MessageStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists a message and fills in its Seq.
func (s *MessageStore) Create(ctx context.Context, msg *models.Message) error {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO messages (id, client_id, sender_id, sender_role, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING seq
	`

	return s.conn().QueryRowContext(ctx, query,
		msg.ID,
		msg.ClientID,
		msg.SenderID,
		string(msg.SenderRole),
		msg.Body,
		msg.CreatedAt,
	).Scan(&msg.Seq)
}

// ListAfter retrieves up to limit messages with Seq greater than after,
// in ascending Seq order.
func (s *MessageStore) ListAfter(ctx context.Context, clientID string, after int64, limit int) ([]*models.Message, error) {
	query := `
		SELECT seq, id, client_id, sender_id, sender_role, body, created_at
		FROM messages
		WHERE client_id = $1 AND seq > $2
		ORDER BY seq
		LIMIT $3
	`

	rows, err := s.conn().QueryContext(ctx, query, clientID, after, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var messages []*models.Message
	for rows.Next() {
		var msg models.Message
		var role string
		if err := rows.Scan(&msg.Seq, &msg.ID, &msg.ClientID, &msg.SenderID, &role, &msg.Body, &msg.CreatedAt); err != nil {
			return nil, err
		}
		msg.SenderRole = models.Role(role)
		messages = append(messages, &msg)
	}

	return messages, rows.Err()
}
