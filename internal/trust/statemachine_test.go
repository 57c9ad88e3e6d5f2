package trust

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packdim/trust-cli/internal/model"
)

func openDispute(net int) *model.Dispute {
	d := &model.Dispute{
		ID:        "d1",
		ProductID: "p1",
		Status:    model.DisputeStatusOpen,
		CreatedBy: "carol",
	}
	if net >= 0 {
		d.Votes.Upvotes = net
	} else {
		d.Votes.Downvotes = -net
	}
	return d
}

func TestShouldEnterReview(t *testing.T) {
	m := NewStateMachine(5)

	assert.False(t, m.ShouldEnterReview(openDispute(4)))
	assert.True(t, m.ShouldEnterReview(openDispute(5)))
	assert.True(t, m.ShouldEnterReview(openDispute(9)))

	// Only open disputes are evaluated.
	d := openDispute(9)
	d.Status = model.DisputeStatusInReview
	assert.False(t, m.ShouldEnterReview(d))
}

func TestEnterReviewStampsPendingAt(t *testing.T) {
	m := NewStateMachine(0)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := openDispute(5)

	require.True(t, m.EnterReview(d, now))

	assert.Equal(t, model.DisputeStatusInReview, d.Status)
	require.NotNil(t, d.ResolutionPendingAt)
	assert.Equal(t, now, *d.ResolutionPendingAt)

	// Repeating is a no-op.
	assert.False(t, m.EnterReview(d, now.Add(time.Hour)))
	assert.Equal(t, now, *d.ResolutionPendingAt)
}

func TestGuardTransition(t *testing.T) {
	m := NewStateMachine(0)

	tests := []struct {
		name    string
		from    model.DisputeStatus
		to      model.DisputeStatus
		wantErr DenyReason
	}{
		{"open to in_review", model.DisputeStatusOpen, model.DisputeStatusInReview, ""},
		{"in_review to resolved", model.DisputeStatusInReview, model.DisputeStatusResolved, ""},
		{"in_review to rejected", model.DisputeStatusInReview, model.DisputeStatusRejected, ""},
		{"open to resolved skips review", model.DisputeStatusOpen, model.DisputeStatusResolved, DenyInvalidTransition},
		{"in_review back to open", model.DisputeStatusInReview, model.DisputeStatusOpen, DenyInvalidTransition},
		{"resolved is terminal", model.DisputeStatusResolved, model.DisputeStatusInReview, DenyDisputeClosed},
		{"rejected is terminal", model.DisputeStatusRejected, model.DisputeStatusOpen, DenyDisputeClosed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &model.Dispute{Status: tt.from}
			err := m.GuardTransition(d, tt.to)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			var authErr *AuthorizationError
			require.ErrorAs(t, err, &authErr)
			assert.Equal(t, tt.wantErr, authErr.Reason)
		})
	}
}

func TestAdminTransitionTerminalRecordsResolution(t *testing.T) {
	m := NewStateMachine(0)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := openDispute(0)
	pending := now.Add(-time.Hour)
	d.Status = model.DisputeStatusInReview
	d.ResolutionPendingAt = &pending

	m.AdminTransition(d, model.DisputeStatusRejected, "admin-1", "duplicate report", now)

	assert.Equal(t, model.DisputeStatusRejected, d.Status)
	assert.Nil(t, d.ResolutionPendingAt)
	require.NotNil(t, d.Resolution)
	assert.Equal(t, "Status set by admin", d.Resolution.Action)
	assert.Equal(t, "duplicate report", d.Resolution.Reason)
	assert.Equal(t, "admin-1", d.Resolution.ResolvedBy)
}

func TestAdminTransitionReopenClearsState(t *testing.T) {
	m := NewStateMachine(0)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := openDispute(0)
	d.Status = model.DisputeStatusResolved
	d.Resolution = &model.Resolution{Action: "Status set by admin"}

	m.AdminTransition(d, model.DisputeStatusOpen, "admin-1", "", now)

	assert.Equal(t, model.DisputeStatusOpen, d.Status)
	assert.Nil(t, d.ResolutionPendingAt)
	assert.Nil(t, d.Resolution)
}

func TestAdminTransitionIntoReviewStampsPending(t *testing.T) {
	m := NewStateMachine(0)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)
	d := openDispute(0)

	m.AdminTransition(d, model.DisputeStatusInReview, "admin-1", "", now)

	assert.Equal(t, model.DisputeStatusInReview, d.Status)
	require.NotNil(t, d.ResolutionPendingAt)
	assert.Equal(t, now, *d.ResolutionPendingAt)
}

func TestResolveByEdit(t *testing.T) {
	m := NewStateMachine(0)
	now := time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

	res := m.ResolveByEdit("alice", now)

	assert.Equal(t, EditResolvedAction, res.Action)
	assert.Equal(t, "alice", res.ResolvedBy)
	assert.Equal(t, now, res.ResolvedAt)
	assert.Empty(t, res.Reason)
}

func TestNewStateMachineDefaultThreshold(t *testing.T) {
	assert.Equal(t, DefaultReviewThreshold, NewStateMachine(0).ReviewThreshold())
	assert.Equal(t, 3, NewStateMachine(3).ReviewThreshold())
}
