package invite

import (
	"time"

	"github.com/relohub/platform/internal/models"
)

// Status classifies an invitation at a point in time.
type Status string

const (
	// StatusNotFound means no invitation matched the lookup.
	StatusNotFound Status = "not_found"
	// StatusAlreadyUsed means the invitation was consumed. Permanent: an
	// invitation used before it expired is never later reported as expired.
	StatusAlreadyUsed Status = "already_used"
	// StatusExpired means the invitation is past its expiry and unconsumed.
	StatusExpired Status = "expired"
	// StatusValid means the invitation can be redeemed.
	StatusValid Status = "valid"
)

// Classify is a pure decision function over a fetched invitation and the
// current time. The used check deliberately precedes the expiry check so
// the caller gets the more specific answer.
func Classify(inv *models.Invitation, now time.Time) Status {
	if inv == nil {
		return StatusNotFound
	}
	if inv.Used() {
		return StatusAlreadyUsed
	}
	if inv.Expired(now) {
		return StatusExpired
	}
	return StatusValid
}
