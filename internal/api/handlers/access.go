// Package handlers implements the HTTP handlers for the API server.
package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// Access-control errors shared by the per-resource handlers.
var (
	errClientNotFound = errors.New("client not found")
	errAccessDenied   = errors.New("access denied")
)

// fetchAuthorizedClient loads the client and verifies the caller may act
// on its resources: the client themselves, their assigned agent, or an
// admin.
func fetchAuthorizedClient(ctx context.Context, st store.Store, caller auth.CallerIdentity, clientID string) (*models.Client, error) {
	client, err := st.Clients().Get(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("fetching client: %w", err)
	}
	if client == nil {
		return nil, errClientNotFound
	}

	switch caller.Role {
	case models.RoleClient:
		if caller.UserID != client.ID {
			return nil, errAccessDenied
		}
	case models.RoleAgent:
		if !client.Assigned() || *client.AgentID != caller.UserID {
			return nil, errAccessDenied
		}
	case models.RoleAdmin:
		// Admins may inspect any client.
	default:
		return nil, errAccessDenied
	}
	return client, nil
}

// writeAccessError maps the shared access-control errors onto responses.
// Returns false if err was nil.
func writeAccessError(w http.ResponseWriter, err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, errClientNotFound):
		WriteNotFound(w, "Client not found")
	case errors.Is(err, errAccessDenied):
		WriteForbidden(w, "Access denied")
	default:
		WriteInternalError(w, "Failed to check access")
	}
	return true
}
