// Package store defines the persistence port for the trust subsystem
// and its PostgreSQL and SQLite implementations. The transactional
// methods (ApplyVote, TransitionDispute, ClaimProvisionalEdit) carry the
// per-entity atomicity guarantees the trust service depends on.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/packdim/trust-cli/internal/model"
)

// Sentinel errors the trust service maps onto its typed taxonomy.
var (
	// ErrNotFound means the referenced product or dispute does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrConflict means a conditional write found the entity in a
	// different state than required (a lost race).
	ErrConflict = eris.New("store: conflict")
)

// DisputeFilter specifies criteria for listing disputes.
type DisputeFilter struct {
	ProductID string              `json:"product_id,omitempty"`
	Status    model.DisputeStatus `json:"status,omitempty"`
	Limit     int                 `json:"limit,omitempty"`
	Offset    int                 `json:"offset,omitempty"`
}

// Stats is a point-in-time aggregate over the whole catalog, consumed
// by the monitoring collector.
type Stats struct {
	ProductsTotal    int
	AvgConfidence    float64
	DisputesByStatus map[model.DisputeStatus]int
	VotesSince       int
}

// AuthorizeFunc is evaluated inside the claim transaction, against the
// locked dispute and product rows. Returning an error aborts the claim
// with no partial effect.
type AuthorizeFunc func(d *model.Dispute, p *model.Product) error

// Store is the persistence interface for products, disputes and votes.
type Store interface {
	// Products
	CreateProduct(ctx context.Context, p *model.Product) error
	GetProduct(ctx context.Context, id string) (*model.Product, error)
	ListProductIDs(ctx context.Context) ([]string, error)
	// IncrementViews bumps the view counter atomically and returns the
	// new count.
	IncrementViews(ctx context.Context, id string) (int, error)
	// ToggleLike adds the user to the liked-by set (or removes them if
	// already present) and adjusts the counter in the same transaction.
	ToggleLike(ctx context.Context, id, userID string) (liked bool, likes int, err error)
	// SetConfidence persists the derived score and its factor breakdown.
	SetConfidence(ctx context.Context, id string, confidence int, factors []byte) error

	// Disputes
	CreateDispute(ctx context.Context, d *model.Dispute) error
	GetDispute(ctx context.Context, id string) (*model.Dispute, error)
	ListDisputes(ctx context.Context, filter DisputeFilter) ([]model.Dispute, error)
	DisputeSummary(ctx context.Context, productID string) (model.DisputeSummary, error)
	// HasOpenDispute reports whether the user already has a non-terminal
	// dispute of the given type against the product.
	HasOpenDispute(ctx context.Context, productID, userID string, t model.DisputeType) (bool, error)

	// ApplyVote applies one user's vote to the dispute tally as a single
	// read-modify-write transaction: only the per-user delta is merged,
	// so concurrent votes from different users never lose updates. The
	// updated dispute is returned.
	ApplyVote(ctx context.Context, disputeID, userID string, vote model.VoteValue) (*model.Dispute, error)

	// TransitionDispute conditionally moves a dispute from one of the
	// given statuses to the target status. ErrConflict is returned when
	// the dispute is no longer in an accepted source status.
	TransitionDispute(ctx context.Context, disputeID string, from []model.DisputeStatus, to model.DisputeStatus, pendingAt *time.Time, res *model.Resolution) (*model.Dispute, error)

	// ClaimProvisionalEdit re-checks authorization against the locked
	// rows, applies the field changes, resolves the dispute and records
	// the resolution — all in one transaction. Two users racing for the
	// window cannot both succeed.
	ClaimProvisionalEdit(ctx context.Context, disputeID, productID, userID string, changes map[string]any, now time.Time, authorize AuthorizeFunc, res model.Resolution) (*model.Product, *model.Dispute, error)

	// Metrics
	Stats(ctx context.Context, votesSince time.Time) (*Stats, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
