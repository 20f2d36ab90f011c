// Package models provides data structures for the relocation platform.
package models

import (
	"time"
)

// Role identifies the kind of principal behind an authenticated request.
type Role string

const (
	// RoleClient is a person being relocated.
	RoleClient Role = "client"
	// RoleAgent is a relocation consultant.
	RoleAgent Role = "agent"
	// RoleAdmin is a platform administrator.
	RoleAdmin Role = "admin"
)

// Valid reports whether the role is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleAgent, RoleAdmin:
		return true
	}
	return false
}

// Agent represents a relocation-service provider account. Agents are created
// on first sign-in and must be approved by an administrator before their
// invitations can be redeemed.
type Agent struct {
	ID          string     `json:"id"`
	IdentityRef string     `json:"identity_ref"` // link to the external identity provider
	Name        string     `json:"name"`
	Email       string     `json:"email"`
	Company     string     `json:"company,omitempty"`
	Approved    bool       `json:"approved"`
	ApprovedAt  *time.Time `json:"approved_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// AgentSummary is the public shape of an agent returned to clients,
// for example in a successful invitation redemption.
type AgentSummary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Summary returns the public view of the agent.
func (a *Agent) Summary() AgentSummary {
	return AgentSummary{ID: a.ID, Name: a.Name, Email: a.Email}
}
