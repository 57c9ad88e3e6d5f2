package trust

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/packdim/trust-cli/internal/model"
	"github.com/packdim/trust-cli/internal/resilience"
	"github.com/packdim/trust-cli/internal/store"
)

// VoteAggregator applies user votes to dispute tallies and triggers the
// state machine when a tally crosses the review threshold. The per-user
// delta is merged inside a store transaction; the aggregator never
// rewrites the whole tally.
type VoteAggregator struct {
	store   store.Store
	machine *StateMachine
	now     func() time.Time
}

// NewVoteAggregator creates a VoteAggregator. If now is nil, time.Now
// (UTC) is used.
func NewVoteAggregator(st store.Store, machine *StateMachine, now func() time.Time) *VoteAggregator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &VoteAggregator{store: st, machine: machine, now: now}
}

// Submit applies one user's vote with toggle semantics, then evaluates
// the review threshold synchronously. The transition into review is a
// conditional write: if another vote already moved the dispute, the
// transition quietly yields to the winner.
func (va *VoteAggregator) Submit(ctx context.Context, disputeID, userID string, vote model.VoteValue) (*model.Dispute, error) {
	if disputeID == "" || userID == "" {
		return nil, &ValidationError{Msg: "dispute id and user id are required"}
	}
	if !model.ValidVote(vote) {
		return nil, &ValidationError{Msg: "vote must be \"up\" or \"down\""}
	}

	// Vote tallies are the hottest rows in the schema; deadlocks and
	// lock timeouts under concurrent voting are retried with backoff.
	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("apply_vote")
	d, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*model.Dispute, error) {
		return va.store.ApplyVote(ctx, disputeID, userID, vote)
	})
	if err != nil {
		return nil, mapStoreErr(err, "dispute", disputeID)
	}

	zap.L().Debug("trust: vote applied",
		zap.String("dispute_id", disputeID),
		zap.String("user_id", userID),
		zap.String("vote", string(vote)),
		zap.Int("net", d.NetVotes()),
	)

	if !va.machine.ShouldEnterReview(d) {
		return d, nil
	}
	va.machine.EnterReview(d, va.now())

	updated, err := va.store.TransitionDispute(ctx, disputeID,
		[]model.DisputeStatus{model.DisputeStatusOpen},
		d.Status, d.ResolutionPendingAt, nil,
	)
	switch {
	case err == nil:
		return updated, nil
	case errors.Is(err, store.ErrConflict):
		// Another caller transitioned it first; the vote still counted,
		// so yield to the winner's state.
		fresh, gerr := va.store.GetDispute(ctx, disputeID)
		if gerr != nil {
			return nil, mapStoreErr(gerr, "dispute", disputeID)
		}
		return fresh, nil
	default:
		return nil, mapStoreErr(err, "dispute", disputeID)
	}
}

// mapStoreErr converts store sentinels into the typed trust taxonomy.
func mapStoreErr(err error, kind, id string) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &NotFoundError{Kind: kind, ID: id}
	case errors.Is(err, store.ErrConflict):
		return &ConflictError{Msg: kind + " " + id + " changed concurrently"}
	default:
		return &StoreError{Err: eris.Wrap(err, "trust")}
	}
}
