package invite

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/relohub/platform/internal/models"
	"github.com/relohub/platform/internal/store"
)

// Validity window bounds for new invitations, in days.
const (
	DefaultValidityDays = 30
	MinValidityDays     = 1
	MaxValidityDays     = 90
)

// Sentinel errors for invitation creation and redemption. Handlers map
// these onto HTTP status codes.
var (
	ErrInvalidValidity       = errors.New("validity days out of range")
	ErrAgentNotFound         = errors.New("agent not found")
	ErrAgentNotApproved      = errors.New("agent not approved")
	ErrClientNotFound        = errors.New("client not found")
	ErrAlreadyAssigned       = errors.New("client already assigned to an agent")
	ErrInvitationNotFound    = errors.New("invitation not found")
	ErrInvitationExpired     = errors.New("invitation expired")
	ErrInvitationAlreadyUsed = errors.New("invitation already used")
	ErrNotInvitationOwner    = errors.New("invitation belongs to another agent")
)

// Service owns the invitation lifecycle: issuing codes, classifying them,
// and running the redemption transaction that links a client to an agent.
type Service struct {
	store  store.Store
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates an invitation service.
func NewService(st store.Store, logger *slog.Logger) *Service {
	return &Service{
		store:  st,
		logger: logger.With("component", "invite"),
		now:    time.Now,
	}
}

// Create issues a new invitation for an agent. Approval is not required
// to mint a code; the gate is enforced at redemption. A zero validityDays
// selects the default window; values outside
// [MinValidityDays, MaxValidityDays] are rejected.
func (s *Service) Create(ctx context.Context, agentID, targetEmail string, validityDays int) (*models.Invitation, error) {
	if validityDays == 0 {
		validityDays = DefaultValidityDays
	}
	if validityDays < MinValidityDays || validityDays > MaxValidityDays {
		return nil, ErrInvalidValidity
	}

	agent, err := s.store.Agents().Get(ctx, agentID)
	if err != nil {
		return nil, fmt.Errorf("fetching agent: %w", err)
	}
	if agent == nil {
		return nil, ErrAgentNotFound
	}

	code, err := GenerateCode(ctx, s.store.Invitations())
	if err != nil {
		return nil, err
	}

	now := s.now()
	inv := &models.Invitation{
		Code:        code,
		Token:       uuid.New().String(),
		AgentID:     agentID,
		TargetEmail: targetEmail,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, validityDays),
	}

	if err := s.store.Invitations().Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("creating invitation: %w", err)
	}

	s.logger.Info("invitation created",
		"invitation_id", inv.ID,
		"agent_id", agentID,
		"expires_at", inv.ExpiresAt,
	)
	return inv, nil
}

// Check looks up a code and classifies it without consuming it. The
// invitation is returned for StatusValid so callers can show the inviting
// agent; it is nil for every other status.
func (s *Service) Check(ctx context.Context, code string) (Status, *models.Invitation, error) {
	inv, err := s.store.Invitations().GetByCode(ctx, code)
	if err != nil {
		return "", nil, fmt.Errorf("fetching invitation: %w", err)
	}

	status := Classify(inv, s.now())
	if status != StatusValid {
		return status, nil, nil
	}
	return status, inv, nil
}

// Revoke deletes an unused invitation owned by agentID. Used invitations
// are kept as the permanent record of how a client reached their agent.
func (s *Service) Revoke(ctx context.Context, agentID, invitationID string) error {
	inv, err := s.store.Invitations().Get(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("fetching invitation: %w", err)
	}
	if inv == nil {
		return ErrInvitationNotFound
	}
	if inv.AgentID != agentID {
		return ErrNotInvitationOwner
	}
	if inv.Used() {
		return ErrInvitationAlreadyUsed
	}

	deleted, err := s.store.Invitations().Delete(ctx, invitationID)
	if err != nil {
		return fmt.Errorf("deleting invitation: %w", err)
	}
	if !deleted {
		// Lost the race with a concurrent redemption.
		return ErrInvitationAlreadyUsed
	}
	return nil
}

// Redemption is the outcome of a successful Redeem call.
type Redemption struct {
	Client *models.Client `json:"client"`
	Agent  *models.Agent  `json:"agent"`
}

// Redeem consumes an invitation code on behalf of a client, linking the
// client to the inviting agent. The whole exchange runs in one
// transaction; both the client link and the invitation consumption are
// conditional writes, so two racing redemptions cannot both succeed.
//
// Checks run in a fixed order so the caller always gets the most specific
// failure: client existence, prior assignment, invitation existence,
// used, expired, then the agent approval gate.
func (s *Service) Redeem(ctx context.Context, clientID, code string) (*Redemption, error) {
	var result Redemption

	err := s.store.WithTx(ctx, func(st store.Store) error {
		client, err := st.Clients().Get(ctx, clientID)
		if err != nil {
			return fmt.Errorf("fetching client: %w", err)
		}
		if client == nil {
			return ErrClientNotFound
		}
		if client.Assigned() {
			return ErrAlreadyAssigned
		}

		inv, err := st.Invitations().GetByCode(ctx, code)
		if err != nil {
			return fmt.Errorf("fetching invitation: %w", err)
		}

		now := s.now()
		switch Classify(inv, now) {
		case StatusNotFound:
			return ErrInvitationNotFound
		case StatusAlreadyUsed:
			return ErrInvitationAlreadyUsed
		case StatusExpired:
			return ErrInvitationExpired
		}

		// Fail closed: an agent that vanished or lost approval since the
		// invitation was issued blocks redemption.
		agent, err := st.Agents().Get(ctx, inv.AgentID)
		if err != nil {
			return fmt.Errorf("fetching agent: %w", err)
		}
		if agent == nil || !agent.Approved {
			return ErrAgentNotApproved
		}

		assigned, err := st.Clients().Assign(ctx, clientID, inv.AgentID, inv.Token)
		if err != nil {
			return fmt.Errorf("assigning client: %w", err)
		}
		if !assigned {
			return ErrAlreadyAssigned
		}

		used, err := st.Invitations().MarkUsed(ctx, inv.ID, now)
		if err != nil {
			return fmt.Errorf("consuming invitation: %w", err)
		}
		if !used {
			return ErrInvitationAlreadyUsed
		}

		client.AgentID = &inv.AgentID
		token := inv.Token
		client.InvitationToken = &token

		result.Client = client
		result.Agent = agent
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("invitation redeemed",
		"client_id", result.Client.ID,
		"agent_id", result.Agent.ID,
	)
	return &result, nil
}
