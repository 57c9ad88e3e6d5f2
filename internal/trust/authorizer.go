package trust

import (
	"time"

	"github.com/packdim/trust-cli/internal/model"
)

// DefaultGracePeriod is how long the product's original creator holds
// the exclusive right to fix a disputed product once it enters review.
// After it lapses, authority shifts to the dispute's creator.
const DefaultGracePeriod = 7 * 24 * time.Hour

// DenyReason explains why an edit was refused, so the UI can tell the
// user whether they are the wrong person or simply too late.
type DenyReason string

const (
	DenyWindowNotOpen     DenyReason = "no provisional edit window is open"
	DenyWindowConsumed    DenyReason = "the provisional edit window was already consumed"
	DenyCreatorWindow     DenyReason = "only the product creator may edit during the grace period"
	DenyDisputerWindow    DenyReason = "only the dispute creator may edit after the grace period"
	DenyDisputeClosed     DenyReason = "the dispute is already closed"
	DenyInvalidTransition DenyReason = "transition not permitted from the current status"
	DenyNotAdmin          DenyReason = "admin capability required"
)

// EditDecision is the outcome of a provisional-edit authorization check.
type EditDecision struct {
	Allowed bool       `json:"allowed"`
	Reason  DenyReason `json:"reason,omitempty"`
}

// Authorizer decides who may provisionally edit a disputed product. The
// window is pessimistic and single-writer: exactly one user is
// authorized at any moment, and the first successful edit consumes it.
type Authorizer struct {
	grace time.Duration
}

// NewAuthorizer creates an Authorizer. A non-positive grace period
// falls back to DefaultGracePeriod.
func NewAuthorizer(grace time.Duration) *Authorizer {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	return &Authorizer{grace: grace}
}

// GracePeriod returns the configured creator grace period.
func (a *Authorizer) GracePeriod() time.Duration {
	return a.grace
}

// CanEdit decides whether actingUserID may edit the product right now.
//
// The window opens when the dispute enters review. Any product edit
// after that point consumes the window for everyone. Within the grace
// period only the product creator is authorized; after it, only the
// dispute creator — first right of correction for one week, then the
// dispute raiser takes over so stale disputes cannot lock a product
// forever.
func (a *Authorizer) CanEdit(d *model.Dispute, p *model.Product, actingUserID string, now time.Time) EditDecision {
	if d.Status != model.DisputeStatusInReview || d.ResolutionPendingAt == nil {
		return EditDecision{Reason: DenyWindowNotOpen}
	}
	if p.LastModified.After(*d.ResolutionPendingAt) {
		return EditDecision{Reason: DenyWindowConsumed}
	}

	elapsed := now.Sub(*d.ResolutionPendingAt)
	if elapsed < a.grace {
		if actingUserID == p.CreatedBy {
			return EditDecision{Allowed: true}
		}
		return EditDecision{Reason: DenyCreatorWindow}
	}
	if actingUserID == d.CreatedBy {
		return EditDecision{Allowed: true}
	}
	return EditDecision{Reason: DenyDisputerWindow}
}
