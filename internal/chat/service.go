// Package chat implements the polling-based conversation between a client
// and their assigned agent.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/relohub/platform/internal/auth"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// Errors returned by the chat service.
var (
	ErrClientNotFound  = errors.New("client not found")
	ErrNotParticipant  = errors.New("caller is not a participant in this conversation")
	ErrNoAgentAssigned = errors.New("client has no assigned agent")
)

// DefaultPageSize caps how many messages one poll returns.
const DefaultPageSize = 100

// Service mediates the conversation between a client and their agent.
// Only the two participants can read or write; the conversation exists
// once the client has an assigned agent.
type Service struct {
	store    store.Store
	logger   *slog.Logger
	pageSize int
}

// NewService creates a chat service. pageSize <= 0 selects the default.
func NewService(st store.Store, pageSize int, logger *slog.Logger) *Service {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Service{
		store:    st,
		logger:   logger.With("component", "chat"),
		pageSize: pageSize,
	}
}

// Send posts a message to the client's conversation on behalf of caller.
func (s *Service) Send(ctx context.Context, caller auth.CallerIdentity, clientID, body string) (*models.Message, error) {
	if err := s.authorize(ctx, caller, clientID); err != nil {
		return nil, err
	}

	msg := &models.Message{
		ClientID:   clientID,
		SenderID:   caller.UserID,
		SenderRole: caller.Role,
		Body:       body,
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}

	if err := s.store.Messages().Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("storing message: %w", err)
	}
	return msg, nil
}

// Poll returns messages with Seq greater than after, in order, plus the
// cursor for the next poll. With no new messages the cursor is unchanged.
func (s *Service) Poll(ctx context.Context, caller auth.CallerIdentity, clientID string, after int64) ([]*models.Message, int64, error) {
	if err := s.authorize(ctx, caller, clientID); err != nil {
		return nil, 0, err
	}

	messages, err := s.store.Messages().ListAfter(ctx, clientID, after, s.pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("listing messages: %w", err)
	}

	next := after
	if len(messages) > 0 {
		next = messages[len(messages)-1].Seq
	}
	return messages, next, nil
}

// authorize checks that the caller is one of the two conversation
// participants: the client themselves or their assigned agent.
func (s *Service) authorize(ctx context.Context, caller auth.CallerIdentity, clientID string) error {
	client, err := s.store.Clients().Get(ctx, clientID)
	if err != nil {
		return fmt.Errorf("fetching client: %w", err)
	}
	if client == nil {
		return ErrClientNotFound
	}

	switch caller.Role {
	case models.RoleClient:
		if caller.UserID != client.ID {
			return ErrNotParticipant
		}
		if !client.Assigned() {
			return ErrNoAgentAssigned
		}
	case models.RoleAgent:
		if !client.Assigned() || *client.AgentID != caller.UserID {
			return ErrNotParticipant
		}
	default:
		return ErrNotParticipant
	}
	return nil
}
