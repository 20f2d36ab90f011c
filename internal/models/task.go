package models

import (
	"errors"
	"strings"
	"time"
)

// Validation errors for checklist tasks.
var (
	ErrTaskTitleRequired = errors.New("task title is required")
	ErrTaskTitleTooLong  = errors.New("task title must be 255 characters or less")
)

// Task is a single item on a client's relocation checklist.
type Task struct {
	ID          string     `json:"id"`
	ClientID    string     `json:"client_id"`
	Title       string     `json:"title"`
	Notes       string     `json:"notes,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	Position    int        `json:"position"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Completed reports whether the task has been marked done.
func (t *Task) Completed() bool {
	return t.CompletedAt != nil
}

// Validate checks the task fields.
func (t *Task) Validate() error {
	title := strings.TrimSpace(t.Title)
	if title == "" {
		return ErrTaskTitleRequired
	}
	if len(title) > 255 {
		return ErrTaskTitleTooLong
	}
	return nil
}
