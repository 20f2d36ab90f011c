package models

import (
	"time"
)

// Invitation represents a one-time offer from an agent to a prospective
// client. The code is a short human-typeable string; the token is a UUID
// usable as an alternative lookup key for link-based flows.
type Invitation struct {
	ID          string     `json:"id"`
	Code        string     `json:"code"`  // 6 characters, uppercase, unique
	Token       string     `json:"token"` // UUID lookup key for invite links
	AgentID     string     `json:"agent_id"`
	TargetEmail string     `json:"target_email,omitempty"` // informational, never enforced
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   time.Time  `json:"expires_at"`
	UsedAt      *time.Time `json:"used_at,omitempty"` // nil until consumed, then permanent
}

// Used reports whether the invitation has been consumed.
func (i *Invitation) Used() bool {
	return i.UsedAt != nil
}

// Expired reports whether the invitation is past its expiry at the given time.
func (i *Invitation) Expired(now time.Time) bool {
	return now.After(i.ExpiresAt)
}
