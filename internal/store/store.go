// Package store provides database access interfaces and implementations.
package store

import (
	"context"
	"time"

	"github.com/relohub/platform/internal/models"
)

// AgentStore defines operations for agent account management.
type AgentStore interface {
	// Create creates a new agent record.
	Create(ctx context.Context, agent *models.Agent) error
	// Get retrieves an agent by ID. Returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*models.Agent, error)
	// GetByIdentityRef retrieves an agent by its identity-provider reference.
	GetByIdentityRef(ctx context.Context, ref string) (*models.Agent, error)
	// List retrieves all agents.
	List(ctx context.Context) ([]*models.Agent, error)
	// Update updates an agent's profile fields.
	Update(ctx context.Context, agent *models.Agent) error
	// Approve sets approval_status to true. The write is conditional on the
	// agent being unapproved; approving an already-approved agent is a no-op.
	// Returns false if no agent row matched the id.
	Approve(ctx context.Context, id string, approvedAt time.Time) (bool, error)
	// CountByApproval returns the number of agents with the given status.
	CountByApproval(ctx context.Context, approved bool) (int, error)
}

// ClientStore defines operations for client account management.
type ClientStore interface {
	// Create creates a new client record.
	Create(ctx context.Context, client *models.Client) error
	// Get retrieves a client by ID. Returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*models.Client, error)
	// GetByIdentityRef retrieves a client by its identity-provider reference.
	GetByIdentityRef(ctx context.Context, ref string) (*models.Client, error)
	// ListByAgent retrieves all clients assigned to an agent.
	ListByAgent(ctx context.Context, agentID string) ([]*models.Client, error)
	// Update updates a client's profile fields.
	Update(ctx context.Context, client *models.Client) error
	// Assign links the client to an agent and records the invitation token,
	// conditional on the client being unassigned (agent_id IS NULL).
	// Returns false when the conditional write touched no rows, meaning the
	// client was already assigned.
	Assign(ctx context.Context, clientID, agentID, invitationToken string) (bool, error)
	// Count returns total and assigned client counts.
	Count(ctx context.Context) (total int, assigned int, err error)
}

// InvitationStore defines operations for invitation management.
type InvitationStore interface {
	// Create persists a new invitation.
	Create(ctx context.Context, invitation *models.Invitation) error
	// Get retrieves an invitation by ID. Returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*models.Invitation, error)
	// GetByCode retrieves an invitation by its code. Lookup is
	// case-insensitive: the code is canonicalized to uppercase.
	GetByCode(ctx context.Context, code string) (*models.Invitation, error)
	// GetByToken retrieves an invitation by its token.
	GetByToken(ctx context.Context, token string) (*models.Invitation, error)
	// CodeExists reports whether any invitation has the given code.
	CodeExists(ctx context.Context, code string) (bool, error)
	// ListByAgent retrieves all invitations created by an agent.
	ListByAgent(ctx context.Context, agentID string) ([]*models.Invitation, error)
	// MarkUsed sets used_at, conditional on used_at IS NULL. Returns false
	// when the invitation was already consumed.
	MarkUsed(ctx context.Context, id string, usedAt time.Time) (bool, error)
	// Delete removes an unused invitation. Returns false if no unused
	// invitation matched.
	Delete(ctx context.Context, id string) (bool, error)
}

// TaskStore defines operations for the per-client checklist.
type TaskStore interface {
	// Create creates a new task at the end of the client's checklist.
	Create(ctx context.Context, task *models.Task) error
	// Get retrieves a task by ID. Returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*models.Task, error)
	// ListByClient retrieves a client's tasks ordered by position.
	ListByClient(ctx context.Context, clientID string) ([]*models.Task, error)
	// Update updates a task's fields.
	Update(ctx context.Context, task *models.Task) error
	// SetCompleted sets or clears completed_at.
	SetCompleted(ctx context.Context, id string, completedAt *time.Time) error
	// Delete removes a task.
	Delete(ctx context.Context, id string) error
}

// HousingStore defines operations for housing-preference forms.
type HousingStore interface {
	// Get retrieves a client's housing preference. Returns (nil, nil) if the
	// client has not filled in the form.
	Get(ctx context.Context, clientID string) (*models.HousingPreference, error)
	// Upsert creates or replaces the client's housing preference.
	Upsert(ctx context.Context, pref *models.HousingPreference) error
}

// MessageStore defines operations for the polling chat.
type MessageStore interface {
	// Create persists a message and fills in its Seq.
	Create(ctx context.Context, msg *models.Message) error
	// ListAfter retrieves up to limit messages for a client with Seq greater
	// than after, in ascending Seq order.
	ListAfter(ctx context.Context, clientID string, after int64, limit int) ([]*models.Message, error)
}

// ListingStore defines operations for saved listings.
type ListingStore interface {
	// Create persists a saved listing.
	Create(ctx context.Context, listing *models.SavedListing) error
	// Get retrieves a saved listing by ID. Returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*models.SavedListing, error)
	// ListByClient retrieves all listings saved for a client.
	ListByClient(ctx context.Context, clientID string) ([]*models.SavedListing, error)
	// UpdateAnnotation replaces the listing's annotation.
	UpdateAnnotation(ctx context.Context, id, annotation string) error
	// Delete removes a saved listing.
	Delete(ctx context.Context, id string) error
}

// DocumentStore defines operations for uploaded-document metadata.
type DocumentStore interface {
	// Create persists document metadata.
	Create(ctx context.Context, doc *models.Document) error
	// Get retrieves document metadata by ID. Returns (nil, nil) if absent.
	Get(ctx context.Context, id string) (*models.Document, error)
	// ListByClient retrieves all documents for a client.
	ListByClient(ctx context.Context, clientID string) ([]*models.Document, error)
}

// Store is the main interface for database operations.
type Store interface {
	// Agents returns the AgentStore for agent operations.
	Agents() AgentStore
	// Clients returns the ClientStore for client operations.
	Clients() ClientStore
	// Invitations returns the InvitationStore for invitation operations.
	Invitations() InvitationStore
	// Tasks returns the TaskStore for checklist operations.
	Tasks() TaskStore
	// Housing returns the HousingStore for housing-preference operations.
	Housing() HousingStore
	// Messages returns the MessageStore for chat operations.
	Messages() MessageStore
	// Listings returns the ListingStore for saved-listing operations.
	Listings() ListingStore
	// Documents returns the DocumentStore for document metadata.
	Documents() DocumentStore

	// WithTx executes the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	// Otherwise, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Close closes the database connection.
	Close() error
}
