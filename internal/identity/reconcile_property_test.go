package identity

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"

	"github.com/relohub/platform/internal/models"
)

// Reconciliation counts must stay consistent for any interleaving of
// linked, unlinked, and orphaned records.
func TestReconcileCounts(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())

	properties := gopter.NewProperties(parameters)

	properties.Property("every record lands in exactly one bucket", prop.ForAll(
		func(numLinked, numUnlinked, numOrphaned, numApproved int) bool {
			var users []User
			var agents []*models.Agent

			for i := 0; i < numLinked; i++ {
				ref := fmt.Sprintf("linked-%d", i)
				users = append(users, User{Ref: ref, Email: fmt.Sprintf("linked-%d@example.com", i)})
				agents = append(agents, &models.Agent{
					ID:          fmt.Sprintf("agent-%d", i),
					IdentityRef: ref,
					Email:       fmt.Sprintf("linked-%d@example.com", i),
					Approved:    i < numApproved,
				})
			}
			for i := 0; i < numUnlinked; i++ {
				users = append(users, User{
					Ref:   fmt.Sprintf("unlinked-%d", i),
					Email: fmt.Sprintf("unlinked-%d@example.com", i),
				})
			}
			for i := 0; i < numOrphaned; i++ {
				agents = append(agents, &models.Agent{
					ID:          fmt.Sprintf("orphan-%d", i),
					IdentityRef: fmt.Sprintf("gone-%d", i),
					Email:       fmt.Sprintf("gone-%d@example.com", i),
				})
			}

			rec := Reconcile(users, agents)

			if rec.IdentityUsers != numLinked+numUnlinked {
				return false
			}
			if rec.Agents != numLinked+numOrphaned {
				return false
			}
			if rec.ApprovedAgents+rec.PendingAgents != rec.Agents {
				return false
			}
			if len(rec.UnlinkedUsers) != numUnlinked {
				return false
			}
			return len(rec.OrphanedAgents) == numOrphaned
		},
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
		gen.IntRange(0, 50),
	))

	properties.TestingRun(t)
}

func TestReconcilePrecedence(t *testing.T) {
	t.Run("email fallback links agents without a reference", func(t *testing.T) {
		users := []User{{Ref: "u1", Email: "Agent@Example.com"}}
		agents := []*models.Agent{{ID: "a1", Email: "agent@example.com"}}

		rec := Reconcile(users, agents)
		assert.Empty(t, rec.OrphanedAgents)
		assert.Empty(t, rec.UnlinkedUsers)
	})

	t.Run("reference match wins over differing email", func(t *testing.T) {
		users := []User{{Ref: "u1", Email: "new@example.com"}}
		agents := []*models.Agent{{ID: "a1", IdentityRef: "u1", Email: "old@example.com"}}

		rec := Reconcile(users, agents)
		assert.Empty(t, rec.OrphanedAgents)
		assert.Empty(t, rec.UnlinkedUsers)
	})

	t.Run("approval comes from the local record only", func(t *testing.T) {
		users := []User{{Ref: "u1", Email: "a@example.com"}}
		agents := []*models.Agent{{ID: "a1", IdentityRef: "u1", Approved: true}}

		rec := Reconcile(users, agents)
		assert.Equal(t, 1, rec.ApprovedAgents)
		assert.Equal(t, 0, rec.PendingAgents)
	})

	t.Run("stats shape", func(t *testing.T) {
		users := []User{{Ref: "u1"}, {Ref: "u2"}}
		agents := []*models.Agent{{ID: "a1", IdentityRef: "u1", Approved: true}, {ID: "a2", IdentityRef: "missing"}}

		stats := Reconcile(users, agents).Stats()
		assert.Equal(t, 2, stats.IdentityUsers)
		assert.Equal(t, 2, stats.Agents)
		assert.Equal(t, 1, stats.ApprovedAgents)
		assert.Equal(t, 1, stats.PendingAgents)
		assert.Equal(t, 1, stats.UnlinkedIdentityUsers)
		assert.Equal(t, 1, stats.OrphanedAgents)
	})
}
