// Package identity integrates the external identity provider that owns
// sign-up and password verification. Local agent and client records link
// to provider users through an opaque reference.
package identity

import (
	"context"
	"errors"
)

// Common errors returned by identity providers.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnavailable        = errors.New("identity provider unavailable")
)

// Principal is an authenticated provider user.
type Principal struct {
	Ref   string `json:"ref"` // provider's opaque user id
	Email string `json:"email"`
	Name  string `json:"name"`
}

// User is a provider directory entry, as returned by ListUsers.
type User struct {
	Ref   string `json:"ref"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Provider is the identity-provider contract. Implementations verify
// credentials and expose the user directory; they never see local agent
// or client records.
type Provider interface {
	// Authenticate verifies credentials and returns the matching principal.
	Authenticate(ctx context.Context, email, password string) (*Principal, error)
	// Register creates a new provider user.
	Register(ctx context.Context, email, password, name string) (*Principal, error)
	// ListUsers returns the full user directory, for reconciliation.
	ListUsers(ctx context.Context) ([]User, error)
}
