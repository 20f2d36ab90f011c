package models

// AdminStats is the reconciled platform overview returned by the admin
// statistics endpoint. Identity-provider counts and database counts are
// reconciled by identity.Reconcile; see that package for the precedence
// rule.
type AdminStats struct {
	IdentityUsers         int `json:"identity_users"`
	Agents                int `json:"agents"`
	ApprovedAgents        int `json:"approved_agents"`
	PendingAgents         int `json:"pending_agents"`
	UnlinkedIdentityUsers int `json:"unlinked_identity_users"`
	OrphanedAgents        int `json:"orphaned_agents"`
	Clients               int `json:"clients"`
	AssignedClients       int `json:"assigned_clients"`
}
