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

// DocumentStore implements store.DocumentStore using PostgreSQL.
type DocumentStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *DocumentStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create persists document metadata.
func (s *DocumentStore) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO documents (id, client_id, uploaded_by, filename, content_type, size_bytes, blob_key, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := s.conn().ExecContext(ctx, query,
		doc.ID,
		doc.ClientID,
		doc.UploadedBy,
		doc.Filename,
		doc.ContentType,
		doc.SizeBytes,
		doc.BlobKey,
		doc.CreatedAt,
	)
	return err
}

// Get retrieves document metadata by ID.
func (s *DocumentStore) Get(ctx context.Context, id string) (*models.Document, error) {
	query := `
		SELECT id, client_id, uploaded_by, filename, content_type, size_bytes, blob_key, created_at
		FROM documents WHERE id = $1
	`

	var doc models.Document
	var contentType sql.NullString
	err := s.conn().QueryRowContext(ctx, query, id).Scan(
		&doc.ID, &doc.ClientID, &doc.UploadedBy, &doc.Filename,
		&contentType, &doc.SizeBytes, &doc.BlobKey, &doc.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	doc.ContentType = contentType.String
	return &doc, nil
}

// ListByClient retrieves all documents for a client.
func (s *DocumentStore) ListByClient(ctx context.Context, clientID string) ([]*models.Document, error) {
	query := `
		SELECT id, client_id, uploaded_by, filename, content_type, size_bytes, blob_key, created_at
		FROM documents WHERE client_id = $1 ORDER BY created_at DESC
	`

	rows, err := s.conn().QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		var doc models.Document
		var contentType sql.NullString
		if err := rows.Scan(
			&doc.ID, &doc.ClientID, &doc.UploadedBy, &doc.Filename,
			&contentType, &doc.SizeBytes, &doc.BlobKey, &doc.CreatedAt,
		); err != nil {
			return nil, err
		}
		doc.ContentType = contentType.String
		docs = append(docs, &doc)
	}

	return docs, rows.Err()
}
