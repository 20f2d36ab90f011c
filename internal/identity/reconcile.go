package identity

import (
	"strings"

	"github.com/relohub/platform/internal/models"
)

// Reconciliation is the outcome of comparing the provider's user
// directory against local agent records.
type Reconciliation struct {
	IdentityUsers  int
	Agents         int
	ApprovedAgents int
	PendingAgents  int
	// UnlinkedUsers are provider users with no local agent record. A client
	// record may exist for them, so this is informational, not an error.
	UnlinkedUsers []User
	// OrphanedAgents are local agent records whose provider user no longer
	// exists. They cannot sign in and should be reviewed.
	OrphanedAgents []*models.Agent
}

// Reconcile compares the provider's user directory against local agent
// records in one pass. Precedence rule: the provider is authoritative for
// user existence and email; the local database is authoritative for
// approval status. Matching is by identity reference first, then by
// case-insensitive email for records that predate reference linking.
func Reconcile(users []User, agents []*models.Agent) Reconciliation {
	rec := Reconciliation{
		IdentityUsers: len(users),
		Agents:        len(agents),
	}

	byRef := make(map[string]User, len(users))
	byEmail := make(map[string]User, len(users))
	for _, u := range users {
		if u.Ref != "" {
			byRef[u.Ref] = u
		}
		if u.Email != "" {
			byEmail[strings.ToLower(u.Email)] = u
		}
	}

	matched := make(map[string]bool, len(agents)) // provider refs claimed by agents
	for _, agent := range agents {
		if agent.Approved {
			rec.ApprovedAgents++
		} else {
			rec.PendingAgents++
		}

		user, ok := byRef[agent.IdentityRef]
		if !ok {
			user, ok = byEmail[strings.ToLower(agent.Email)]
		}
		if !ok {
			rec.OrphanedAgents = append(rec.OrphanedAgents, agent)
			continue
		}
		matched[user.Ref] = true
	}

	for _, u := range users {
		if !matched[u.Ref] {
			rec.UnlinkedUsers = append(rec.UnlinkedUsers, u)
		}
	}

	return rec
}

// Stats folds the reconciliation into the admin statistics shape. Client
// counts come from the store and are filled in by the caller.
func (r Reconciliation) Stats() models.AdminStats {
	return models.AdminStats{
		IdentityUsers:         r.IdentityUsers,
		Agents:                r.Agents,
		ApprovedAgents:        r.ApprovedAgents,
		PendingAgents:         r.PendingAgents,
		UnlinkedIdentityUsers: len(r.UnlinkedUsers),
		OrphanedAgents:        len(r.OrphanedAgents),
	}
}
