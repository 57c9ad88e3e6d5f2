// Package monitoring aggregates catalog health metrics from the store.
package monitoring

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/packdim/trust-cli/internal/model"
	"github.com/packdim/trust-cli/internal/store"
)

// MetricsSnapshot holds a point-in-time view of catalog trust health.
type MetricsSnapshot struct {
	ProductsTotal    int     `json:"products_total"`
	AvgConfidence    float64 `json:"avg_confidence"`
	DisputesOpen     int     `json:"disputes_open"`
	DisputesInReview int     `json:"disputes_in_review"`
	DisputesResolved int     `json:"disputes_resolved"`
	DisputesRejected int     `json:"disputes_rejected"`
	VotesInWindow    int     `json:"votes_in_window"`

	LookbackHours int       `json:"lookback_hours"`
	CollectedAt   time.Time `json:"collected_at"`
}

// Collector gathers metrics from the store.
type Collector struct {
	store store.Store
}

// NewCollector creates a new metrics collector.
func NewCollector(st store.Store) *Collector {
	return &Collector{store: st}
}

// Collect gathers a snapshot of catalog metrics. Vote volume is counted
// over the given lookback window; dispute counts are totals.
func (c *Collector) Collect(ctx context.Context, lookbackHours int) (*MetricsSnapshot, error) {
	if lookbackHours <= 0 {
		lookbackHours = 24
	}
	now := time.Now().UTC()
	cutoff := now.Add(-time.Duration(lookbackHours) * time.Hour)

	stats, err := c.store.Stats(ctx, cutoff)
	if err != nil {
		return nil, eris.Wrap(err, "monitoring: collect stats")
	}

	return &MetricsSnapshot{
		ProductsTotal:    stats.ProductsTotal,
		AvgConfidence:    stats.AvgConfidence,
		DisputesOpen:     stats.DisputesByStatus[model.DisputeStatusOpen],
		DisputesInReview: stats.DisputesByStatus[model.DisputeStatusInReview],
		DisputesResolved: stats.DisputesByStatus[model.DisputeStatusResolved],
		DisputesRejected: stats.DisputesByStatus[model.DisputeStatusRejected],
		VotesInWindow:    stats.VotesSince,
		LookbackHours:    lookbackHours,
		CollectedAt:      now,
	}, nil
}
