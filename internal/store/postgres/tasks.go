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

// TaskStore implements store.TaskStore using PostgreSQL.
type TaskStore struct {
	db     *sql.DB
	tx     *sql.Tx
	logger *slog.Logger
}

func (s *TaskStore) conn() queryable {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

// Create creates a new task at the end of the client's checklist.
func (s *TaskStore) Create(ctx context.Context, task *models.Task) error {
	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	now := time.Now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	query := `
		INSERT INTO tasks (id, client_id, title, notes, due_date, position, completed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5,
			(SELECT COALESCE(MAX(position), 0) + 1 FROM tasks WHERE client_id = $2),
			$6, $7, $8)
		RETURNING position
	`

	return s.conn().QueryRowContext(ctx, query,
		task.ID,
		task.ClientID,
		task.Title,
		task.Notes,
		task.DueDate,
		task.CompletedAt,
		task.CreatedAt,
		task.UpdatedAt,
	).Scan(&task.Position)
}

const taskColumns = `id, client_id, title, notes, due_date, position, completed_at, created_at, updated_at`

func scanTask(row interface{ Scan(...any) error }) (*models.Task, error) {
	var task models.Task
	var notes sql.NullString
	var dueDate, completedAt sql.NullTime

	err := row.Scan(
		&task.ID, &task.ClientID, &task.Title, &notes,
		&dueDate, &task.Position, &completedAt, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Notes = notes.String
	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return &task, nil
}

// Get retrieves a task by ID.
func (s *TaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.conn().QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return task, nil
}

// ListByClient retrieves a client's tasks ordered by position.
func (s *TaskStore) ListByClient(ctx context.Context, clientID string) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE client_id = $1 ORDER BY position`

	rows, err := s.conn().QueryContext(ctx, query, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}

	return tasks, rows.Err()
}

// Update updates a task's fields.
func (s *TaskStore) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $1, notes = $2, due_date = $3, position = $4, updated_at = NOW()
		WHERE id = $5
	`
	_, err := s.conn().ExecContext(ctx, query,
		task.Title, task.Notes, task.DueDate, task.Position, task.ID)
	return err
}

// SetCompleted sets or clears completed_at.
func (s *TaskStore) SetCompleted(ctx context.Context, id string, completedAt *time.Time) error {
	query := `UPDATE tasks SET completed_at = $1, updated_at = NOW() WHERE id = $2`
	_, err := s.conn().ExecContext(ctx, query, completedAt, id)
	return err
}

// Delete removes a task.
func (s *TaskStore) Delete(ctx context.Context, id string) error {
	_, err := s.conn().ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	return err
}
