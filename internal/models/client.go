package models

import (
	"time"
)

// Client represents a person being relocated. A client has at most one
// owning agent, assigned exactly once through invitation redemption.
type Client struct {
	ID          string     `json:"id"`
	IdentityRef string     `json:"identity_ref"`
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Phone       string     `json:"phone,omitempty"`
	AgentID     *string    `json:"agent_id,omitempty"` // nil means unassigned
	// InvitationToken records which invitation linked this client to its
	// agent. Audit/reference only, never re-validated.
	InvitationToken *string    `json:"invitation_token,omitempty"`
	OriginCountry   string     `json:"origin_country,omitempty"`
	TargetCity      string     `json:"target_city,omitempty"`
	MoveDate        *time.Time `json:"move_date,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ClientSummary is the reduced client shape included in API responses.
type ClientSummary struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Email   string  `json:"email"`
	AgentID *string `json:"agent_id,omitempty"`
}

// Summary returns the reduced view of the client.
func (c *Client) Summary() ClientSummary {
	return ClientSummary{ID: c.ID, Name: c.Name, Email: c.Email, AgentID: c.AgentID}
}

// Assigned reports whether the client already has an owning agent.
func (c *Client) Assigned() bool {
	return c.AgentID != nil && *c.AgentID != ""
}
