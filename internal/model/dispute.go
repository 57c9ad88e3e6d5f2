package model

import "time"

// DisputeStatus represents the lifecycle state of a dispute.
type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusInReview DisputeStatus = "in_review"
	DisputeStatusResolved DisputeStatus = "resolved"
	DisputeStatusRejected DisputeStatus = "rejected"
)

// Terminal reports whether no further non-admin transitions are possible.
func (s DisputeStatus) Terminal() bool {
	return s == DisputeStatusResolved || s == DisputeStatusRejected
}

// ValidDisputeStatus reports whether s is a known status value.
func ValidDisputeStatus(s DisputeStatus) bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusInReview, DisputeStatusResolved, DisputeStatusRejected:
		return true
	}
	return false
}

// DisputeType categorizes what part of a product record is contested.
type DisputeType string

const (
	DisputeTypeMeasurement DisputeType = "measurement"
	DisputeTypeWeight      DisputeType = "weight"
	DisputeTypeDescription DisputeType = "description"
	DisputeTypeCategory    DisputeType = "category"
	DisputeTypeImage       DisputeType = "image"
	DisputeTypeOther       DisputeType = "other"
)

// ValidDisputeType reports whether t is a known dispute type.
func ValidDisputeType(t DisputeType) bool {
	switch t {
	case DisputeTypeMeasurement, DisputeTypeWeight, DisputeTypeDescription,
		DisputeTypeCategory, DisputeTypeImage, DisputeTypeOther:
		return true
	}
	return false
}

// VoteValue is a single user's vote on a dispute.
type VoteValue string

const (
	VoteUp   VoteValue = "up"
	VoteDown VoteValue = "down"
)

// ValidVote reports whether v is a known vote value.
func ValidVote(v VoteValue) bool {
	return v == VoteUp || v == VoteDown
}

// Resolution records how a dispute reached a terminal state.
type Resolution struct {
	Action     string    `json:"action"`
	Reason     string    `json:"reason,omitempty"`
	ResolvedBy string    `json:"resolved_by"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// Dispute is a community-raised claim that a product field is incorrect.
// Records are append-only: only status and votes mutate.
type Dispute struct {
	ID                  string        `json:"id"`
	ProductID           string        `json:"product_id"`
	Type                DisputeType   `json:"dispute_type"`
	Status              DisputeStatus `json:"status"`
	Description         string        `json:"description,omitempty"`
	CreatedBy           string        `json:"created_by"`
	CreatedAt           time.Time     `json:"created_at"`
	Votes               VoteTally     `json:"votes"`
	ResolutionPendingAt *time.Time    `json:"resolution_pending_at,omitempty"`
	Resolution          *Resolution   `json:"resolution,omitempty"`
}

// NetVotes returns upvotes minus downvotes.
func (d *Dispute) NetVotes() int {
	return d.Votes.Upvotes - d.Votes.Downvotes
}

// DisputeSummary aggregates dispute counts for one product. Open counts
// every dispute that has not reached a terminal state, so in-review
// disputes weigh the same as open ones.
type DisputeSummary struct {
	Total    int `json:"total_disputes"`
	Open     int `json:"open_disputes"`
	Resolved int `json:"resolved_disputes"`
	Rejected int `json:"rejected_disputes"`
}
