package trust

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/packdim/trust-cli/internal/identity"
	"github.com/packdim/trust-cli/internal/model"
	"github.com/packdim/trust-cli/internal/store"
)

const maxDescriptionLen = 2000

// Options tunes the trust service. Zero values fall back to defaults.
type Options struct {
	ReviewThreshold int
	GracePeriod     time.Duration
	Now             func() time.Time
}

// Service composes the confidence calculator, dispute state machine,
// vote aggregator and provisional edit authorizer behind the operations
// external callers invoke. Each operation is scoped to a single product
// or dispute; correctness under concurrent callers comes from the
// store's per-entity transactions, not in-process locking.
type Service struct {
	store   store.Store
	machine *StateMachine
	auth    *Authorizer
	votes   *VoteAggregator
	now     func() time.Time
}

// NewService creates a Service over the given store.
func NewService(st store.Store, opts Options) *Service {
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	machine := NewStateMachine(opts.ReviewThreshold)
	return &Service{
		store:   st,
		machine: machine,
		auth:    NewAuthorizer(opts.GracePeriod),
		votes:   NewVoteAggregator(st, machine, now),
		now:     now,
	}
}

// RecomputeConfidence reads the product and its dispute summary,
// computes fresh confidence factors and persists them.
func (s *Service) RecomputeConfidence(ctx context.Context, productID string) (ConfidenceFactors, error) {
	if productID == "" {
		return ConfidenceFactors{}, &ValidationError{Msg: "product id is required"}
	}

	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return ConfidenceFactors{}, mapStoreErr(err, "product", productID)
	}
	summary, err := s.store.DisputeSummary(ctx, productID)
	if err != nil {
		return ConfidenceFactors{}, mapStoreErr(err, "product", productID)
	}

	factors := ComputeConfidence(*p, summary, s.now())

	factorsJSON, err := json.Marshal(factors)
	if err != nil {
		return ConfidenceFactors{}, &StoreError{Err: eris.Wrap(err, "trust: marshal factors")}
	}
	if err := s.store.SetConfidence(ctx, productID, factors.TotalScore, factorsJSON); err != nil {
		return ConfidenceFactors{}, mapStoreErr(err, "product", productID)
	}

	zap.L().Debug("trust: confidence recomputed",
		zap.String("product_id", productID),
		zap.Int("score", factors.TotalScore),
	)
	return factors, nil
}

// RecomputeAll recomputes confidence for every product with bounded
// concurrency and a store-side rate cap. Returns the number of products
// recomputed.
func (s *Service) RecomputeAll(ctx context.Context, workers int, perSecond float64) (int, error) {
	if workers <= 0 {
		workers = 4
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if perSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}

	ids, err := s.store.ListProductIDs(ctx)
	if err != nil {
		return 0, mapStoreErr(err, "product", "")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, id := range ids {
		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return err
			}
			_, err := s.RecomputeConfidence(gctx, id)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	zap.L().Info("trust: batch recompute complete", zap.Int("products", len(ids)))
	return len(ids), nil
}

// SubmitVote applies one user's up/down vote to a dispute. See
// VoteAggregator for the toggle semantics.
func (s *Service) SubmitVote(ctx context.Context, disputeID, userID string, vote model.VoteValue) (*model.Dispute, error) {
	return s.votes.Submit(ctx, disputeID, userID, vote)
}

// AdminSetStatus moves a dispute to any status, bypassing the state
// machine's guards. Requires the admin capability; transitions that
// change the product's dispute summary trigger a confidence recompute.
func (s *Service) AdminSetStatus(ctx context.Context, disputeID string, newStatus model.DisputeStatus, admin identity.User, reason string) (*model.Dispute, error) {
	if disputeID == "" {
		return nil, &ValidationError{Msg: "dispute id is required"}
	}
	if !model.ValidDisputeStatus(newStatus) {
		return nil, &ValidationError{Msg: "unknown status: " + string(newStatus)}
	}
	if !admin.IsAdmin() {
		return nil, &AuthorizationError{Reason: DenyNotAdmin}
	}

	d, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, mapStoreErr(err, "dispute", disputeID)
	}
	prev := d.Status

	s.machine.AdminTransition(d, newStatus, admin.ID, reason, s.now())

	updated, err := s.store.TransitionDispute(ctx, disputeID, nil, d.Status, d.ResolutionPendingAt, d.Resolution)
	if err != nil {
		return nil, mapStoreErr(err, "dispute", disputeID)
	}

	if summaryBucketChanged(prev, newStatus) {
		if _, err := s.RecomputeConfidence(ctx, updated.ProductID); err != nil {
			zap.L().Warn("trust: recompute after admin transition failed",
				zap.String("product_id", updated.ProductID),
				zap.Error(err),
			)
		}
	}
	return updated, nil
}

// summaryBucketChanged reports whether moving a dispute between the two
// statuses changes its dispute-summary bucket, and with it the product's
// confidence inputs. Open and in_review share the unresolved bucket.
func summaryBucketChanged(from, to model.DisputeStatus) bool {
	if from == to {
		return false
	}
	unresolved := func(st model.DisputeStatus) bool {
		return st == model.DisputeStatusOpen || st == model.DisputeStatusInReview
	}
	return !unresolved(from) || !unresolved(to)
}

// CanUserEdit is the read-only authorization check used before showing
// an edit UI. It never mutates state.
func (s *Service) CanUserEdit(ctx context.Context, disputeID, productID, userID string) (EditDecision, error) {
	if disputeID == "" || productID == "" || userID == "" {
		return EditDecision{}, &ValidationError{Msg: "dispute id, product id and user id are required"}
	}

	d, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		return EditDecision{}, mapStoreErr(err, "dispute", disputeID)
	}
	if d.ProductID != productID {
		return EditDecision{}, &ValidationError{Msg: "dispute does not reference the given product"}
	}
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return EditDecision{}, mapStoreErr(err, "product", productID)
	}

	return s.auth.CanEdit(d, p, userID, s.now()), nil
}

// RecordEdit performs the provisional edit: authorization is re-checked
// inside the claim transaction, the field changes land, the dispute
// resolves, and the product's confidence is recomputed. A caller who
// passed CanUserEdit but lost the race gets a ConflictError and should
// re-fetch.
func (s *Service) RecordEdit(ctx context.Context, disputeID, productID, userID string, changes map[string]any) (*model.Product, *model.Dispute, error) {
	if disputeID == "" || productID == "" || userID == "" {
		return nil, nil, &ValidationError{Msg: "dispute id, product id and user id are required"}
	}
	if len(changes) == 0 {
		return nil, nil, &ValidationError{Msg: "no field changes given"}
	}
	for key := range changes {
		if !model.EditableField(key) {
			return nil, nil, &ValidationError{Msg: "field not editable: " + key}
		}
	}

	now := s.now()
	authorize := func(d *model.Dispute, p *model.Product) error {
		if d.ProductID != p.ID {
			return &ValidationError{Msg: "dispute does not reference the given product"}
		}
		// The edit is a non-admin in_review -> resolved transition. A
		// dispute already terminal under the claim lock means another
		// editor or an admin consumed the window after this caller's
		// check: a lost race, recoverable by re-fetching, not a
		// permissions problem.
		if err := s.machine.GuardTransition(d, model.DisputeStatusResolved); err != nil {
			if d.Status.Terminal() {
				return &ConflictError{Msg: "dispute already " + string(d.Status)}
			}
			return &AuthorizationError{Reason: DenyWindowNotOpen}
		}
		decision := s.auth.CanEdit(d, p, userID, now)
		if decision.Allowed {
			return nil
		}
		// Same reasoning for a window consumed by a product write.
		if decision.Reason == DenyWindowConsumed {
			return &ConflictError{Msg: string(decision.Reason)}
		}
		return &AuthorizationError{Reason: decision.Reason}
	}

	res := s.machine.ResolveByEdit(userID, now)

	p, d, err := s.store.ClaimProvisionalEdit(ctx, disputeID, productID, userID, changes, now, authorize, res)
	if err != nil {
		var fe *model.FieldError
		switch {
		case errors.As(err, &fe):
			return nil, nil, &ValidationError{Msg: fe.Error()}
		case IsAuthorization(err), IsConflict(err), IsValidation(err):
			return nil, nil, err
		default:
			return nil, nil, mapStoreErr(err, "dispute", disputeID)
		}
	}

	zap.L().Info("trust: provisional edit recorded",
		zap.String("dispute_id", disputeID),
		zap.String("product_id", productID),
		zap.String("editor", userID),
	)

	if factors, rerr := s.RecomputeConfidence(ctx, productID); rerr == nil {
		p.Confidence = factors.TotalScore
	} else {
		zap.L().Warn("trust: recompute after edit failed",
			zap.String("product_id", productID),
			zap.Error(rerr),
		)
	}
	return p, d, nil
}

// OpenDispute creates a new open dispute against a product. A user may
// hold only one non-terminal dispute of a given type per product.
func (s *Service) OpenDispute(ctx context.Context, productID, userID string, t model.DisputeType, description string) (*model.Dispute, error) {
	if productID == "" || userID == "" {
		return nil, &ValidationError{Msg: "product id and user id are required"}
	}
	if !model.ValidDisputeType(t) {
		return nil, &ValidationError{Msg: "unknown dispute type: " + string(t)}
	}
	description = norm.NFC.String(strings.TrimSpace(description))
	if len(description) > maxDescriptionLen {
		return nil, &ValidationError{Msg: "description too long"}
	}

	if _, err := s.store.GetProduct(ctx, productID); err != nil {
		return nil, mapStoreErr(err, "product", productID)
	}
	exists, err := s.store.HasOpenDispute(ctx, productID, userID, t)
	if err != nil {
		return nil, mapStoreErr(err, "product", productID)
	}
	if exists {
		return nil, &ValidationError{Msg: "an open dispute of this type already exists for this user"}
	}

	d := &model.Dispute{
		ID:          uuid.New().String(),
		ProductID:   productID,
		Type:        t,
		Status:      model.DisputeStatusOpen,
		Description: description,
		CreatedBy:   userID,
		CreatedAt:   s.now(),
		Votes:       model.VoteTally{UserVotes: map[string]model.VoteValue{}},
	}
	if err := s.store.CreateDispute(ctx, d); err != nil {
		return nil, mapStoreErr(err, "dispute", d.ID)
	}

	zap.L().Info("trust: dispute opened",
		zap.String("dispute_id", d.ID),
		zap.String("product_id", productID),
		zap.String("type", string(t)),
	)

	// New disputes change the penalty immediately. Recompute on write.
	if _, err := s.RecomputeConfidence(ctx, productID); err != nil {
		zap.L().Warn("trust: recompute after dispute open failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
	return d, nil
}

// GetDispute fetches a single dispute.
func (s *Service) GetDispute(ctx context.Context, disputeID string) (*model.Dispute, error) {
	if disputeID == "" {
		return nil, &ValidationError{Msg: "dispute id is required"}
	}
	d, err := s.store.GetDispute(ctx, disputeID)
	if err != nil {
		return nil, mapStoreErr(err, "dispute", disputeID)
	}
	return d, nil
}

// ListDisputes lists disputes matching the filter.
func (s *Service) ListDisputes(ctx context.Context, filter store.DisputeFilter) ([]model.Dispute, error) {
	if filter.Status != "" && !model.ValidDisputeStatus(filter.Status) {
		return nil, &ValidationError{Msg: "unknown status: " + string(filter.Status)}
	}
	ds, err := s.store.ListDisputes(ctx, filter)
	if err != nil {
		return nil, mapStoreErr(err, "dispute", "")
	}
	return ds, nil
}

// GetProduct fetches a single product.
func (s *Service) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	if productID == "" {
		return nil, &ValidationError{Msg: "product id is required"}
	}
	p, err := s.store.GetProduct(ctx, productID)
	if err != nil {
		return nil, mapStoreErr(err, "product", productID)
	}
	return p, nil
}

// RecordLike toggles the user's like on a product and recomputes
// confidence, since likes feed the score.
func (s *Service) RecordLike(ctx context.Context, productID, userID string) (bool, error) {
	if productID == "" || userID == "" {
		return false, &ValidationError{Msg: "product id and user id are required"}
	}
	liked, _, err := s.store.ToggleLike(ctx, productID, userID)
	if err != nil {
		return false, mapStoreErr(err, "product", productID)
	}
	if _, err := s.RecomputeConfidence(ctx, productID); err != nil {
		zap.L().Warn("trust: recompute after like failed",
			zap.String("product_id", productID),
			zap.Error(err),
		)
	}
	return liked, nil
}

// RecordView bumps the view counter. Views are a read signal, so no
// synchronous recompute: the next write picks the new count up.
func (s *Service) RecordView(ctx context.Context, productID string) (int, error) {
	if productID == "" {
		return 0, &ValidationError{Msg: "product id is required"}
	}
	views, err := s.store.IncrementViews(ctx, productID)
	if err != nil {
		return 0, mapStoreErr(err, "product", productID)
	}
	return views, nil
}
