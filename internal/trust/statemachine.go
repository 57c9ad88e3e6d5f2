package trust

import (
	"time"

	"go.uber.org/zap"

	"github.com/packdim/trust-cli/internal/model"
)

// EditResolvedAction is recorded as the resolution action when a
// provisional edit resolves a dispute.
const EditResolvedAction = "Product edited by provisional editor"

// DefaultReviewThreshold is the net upvote count (upvotes minus
// downvotes) at which an open dispute enters review.
const DefaultReviewThreshold = 5

// StateMachine decides dispute status transitions. Community votes can
// only push a dispute from open into review; terminal transitions come
// from admin action or a successful provisional edit. Admins bypass all
// guards.
type StateMachine struct {
	reviewThreshold int
}

// NewStateMachine creates a StateMachine. A non-positive threshold
// falls back to DefaultReviewThreshold.
func NewStateMachine(reviewThreshold int) *StateMachine {
	if reviewThreshold <= 0 {
		reviewThreshold = DefaultReviewThreshold
	}
	return &StateMachine{reviewThreshold: reviewThreshold}
}

// ReviewThreshold returns the configured net-vote threshold.
func (m *StateMachine) ReviewThreshold() int {
	return m.reviewThreshold
}

// ShouldEnterReview reports whether the dispute's current tally moves it
// from open into review.
func (m *StateMachine) ShouldEnterReview(d *model.Dispute) bool {
	return d.Status == model.DisputeStatusOpen && d.NetVotes() >= m.reviewThreshold
}

// EnterReview transitions an open dispute into review, stamping
// resolutionPendingAt. Calling it on a non-open dispute is a no-op.
func (m *StateMachine) EnterReview(d *model.Dispute, now time.Time) bool {
	if d.Status != model.DisputeStatusOpen {
		return false
	}
	d.Status = model.DisputeStatusInReview
	t := now
	d.ResolutionPendingAt = &t

	zap.L().Info("trust: dispute entered review",
		zap.String("dispute_id", d.ID),
		zap.String("product_id", d.ProductID),
		zap.Int("net_votes", d.NetVotes()),
		zap.Int("threshold", m.reviewThreshold),
	)
	return true
}

// GuardTransition checks a non-admin transition request. Terminal states
// accept no further transitions; the failure is an authorization
// problem, not a fatal one.
func (m *StateMachine) GuardTransition(d *model.Dispute, to model.DisputeStatus) error {
	if d.Status.Terminal() {
		return &AuthorizationError{Reason: DenyDisputeClosed}
	}
	switch {
	case d.Status == model.DisputeStatusOpen && to == model.DisputeStatusInReview:
		return nil
	case d.Status == model.DisputeStatusInReview && to.Terminal():
		return nil
	}
	return &AuthorizationError{Reason: DenyInvalidTransition}
}

// AdminTransition moves a dispute to any status, bypassing guards. This
// is the moderation escape hatch: entering review stamps
// resolutionPendingAt, terminal states record the resolution and clear
// the pending marker, reopening clears both.
func (m *StateMachine) AdminTransition(d *model.Dispute, to model.DisputeStatus, adminID, reason string, now time.Time) {
	from := d.Status
	d.Status = to

	switch {
	case to == model.DisputeStatusInReview:
		t := now
		d.ResolutionPendingAt = &t
		d.Resolution = nil
	case to.Terminal():
		d.ResolutionPendingAt = nil
		d.Resolution = &model.Resolution{
			Action:     "Status set by admin",
			Reason:     reason,
			ResolvedBy: adminID,
			ResolvedAt: now,
		}
	default:
		d.ResolutionPendingAt = nil
		d.Resolution = nil
	}

	zap.L().Info("trust: admin status change",
		zap.String("dispute_id", d.ID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("admin", adminID),
	)
}

// ResolveByEdit returns the terminal state recorded when a provisional
// edit resolves an in-review dispute. The store writes it together with
// the product change in the claim transaction.
func (m *StateMachine) ResolveByEdit(editorID string, now time.Time) model.Resolution {
	return model.Resolution{
		Action:     EditResolvedAction,
		ResolvedBy: editorID,
		ResolvedAt: now,
	}
}
