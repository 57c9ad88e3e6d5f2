package trust

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packdim/trust-cli/internal/identity"
	"github.com/packdim/trust-cli/internal/model"
	"github.com/packdim/trust-cli/internal/store"
)

var testNow = time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	st := newFakeStore()
	svc := NewService(st, Options{
		ReviewThreshold: 3,
		GracePeriod:     7 * 24 * time.Hour,
		Now:             func() time.Time { return testNow },
	})
	return svc, st
}

func seedProduct(t *testing.T, st *fakeStore, id string) *model.Product {
	t.Helper()
	p := &model.Product{
		ID:           id,
		Name:         "Cereal Box",
		Category:     "food",
		CreatedBy:    "creator",
		CreatedAt:    testNow.Add(-200 * 24 * time.Hour),
		LastModified: testNow.Add(-60 * 24 * time.Hour),
		Dimensions:   model.Dimensions{LengthMM: 300, WidthMM: 200, HeightMM: 80, WeightG: 450},
	}
	require.NoError(t, st.CreateProduct(context.Background(), p))
	return p
}

func seedInReviewDispute(t *testing.T, st *fakeStore, id, productID string, pendingAt time.Time) *model.Dispute {
	t.Helper()
	d := &model.Dispute{
		ID:                  id,
		ProductID:           productID,
		Type:                model.DisputeTypeMeasurement,
		Status:              model.DisputeStatusInReview,
		CreatedBy:           "disputer",
		CreatedAt:           pendingAt.Add(-24 * time.Hour),
		ResolutionPendingAt: &pendingAt,
	}
	require.NoError(t, st.CreateDispute(context.Background(), d))
	return d
}

func TestOpenDispute(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")

	d, err := svc.OpenDispute(context.Background(), "p1", "disputer", model.DisputeTypeWeight, "  café box weight looks off  ")
	require.NoError(t, err)

	assert.NotEmpty(t, d.ID)
	assert.Equal(t, model.DisputeStatusOpen, d.Status)
	// Trimmed and NFC-normalized: the combining accent is composed.
	assert.Equal(t, "café box weight looks off", d.Description)

	// Opening a dispute recomputes the product's confidence with the
	// new open-dispute penalty applied.
	p, err := st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotZero(t, p.Confidence)
	withoutDisputes := ComputeConfidence(*p, model.DisputeSummary{}, testNow)
	assert.Equal(t, withoutDisputes.TotalScore-3, p.Confidence)
}

func TestOpenDisputeDuplicateRejected(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")

	_, err := svc.OpenDispute(context.Background(), "p1", "disputer", model.DisputeTypeWeight, "first")
	require.NoError(t, err)

	_, err = svc.OpenDispute(context.Background(), "p1", "disputer", model.DisputeTypeWeight, "second")
	assert.True(t, IsValidation(err))

	// A different type from the same user is fine.
	_, err = svc.OpenDispute(context.Background(), "p1", "disputer", model.DisputeTypeCategory, "also wrong")
	assert.NoError(t, err)
}

func TestOpenDisputeValidation(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")

	_, err := svc.OpenDispute(context.Background(), "p1", "u1", "bogus", "x")
	assert.True(t, IsValidation(err))

	_, err = svc.OpenDispute(context.Background(), "missing", "u1", model.DisputeTypeOther, "x")
	assert.True(t, IsNotFound(err))
}

func TestSubmitVoteCrossesThreshold(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	d := &model.Dispute{
		ID: "d1", ProductID: "p1", Type: model.DisputeTypeMeasurement,
		Status: model.DisputeStatusOpen, CreatedBy: "disputer", CreatedAt: testNow,
	}
	require.NoError(t, st.CreateDispute(context.Background(), d))

	for _, user := range []string{"u1", "u2"} {
		got, err := svc.SubmitVote(context.Background(), "d1", user, model.VoteUp)
		require.NoError(t, err)
		assert.Equal(t, model.DisputeStatusOpen, got.Status)
	}

	// Third net upvote crosses the threshold of 3.
	got, err := svc.SubmitVote(context.Background(), "d1", "u3", model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, model.DisputeStatusInReview, got.Status)
	require.NotNil(t, got.ResolutionPendingAt)
	assert.Equal(t, testNow, *got.ResolutionPendingAt)
}

func TestSubmitVoteToggleRetracts(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	d := &model.Dispute{
		ID: "d1", ProductID: "p1", Type: model.DisputeTypeMeasurement,
		Status: model.DisputeStatusOpen, CreatedBy: "disputer", CreatedAt: testNow,
	}
	require.NoError(t, st.CreateDispute(context.Background(), d))

	got, err := svc.SubmitVote(context.Background(), "d1", "u1", model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, got.NetVotes())

	got, err = svc.SubmitVote(context.Background(), "d1", "u1", model.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 0, got.NetVotes())
	assert.Empty(t, got.Votes.UserVotes)
}

func TestSubmitVoteValidation(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.SubmitVote(context.Background(), "d1", "u1", "sideways")
	assert.True(t, IsValidation(err))

	_, err = svc.SubmitVote(context.Background(), "", "u1", model.VoteUp)
	assert.True(t, IsValidation(err))

	_, err = svc.SubmitVote(context.Background(), "missing", "u1", model.VoteUp)
	assert.True(t, IsNotFound(err))
}

func TestRecomputeConfidencePersists(t *testing.T) {
	svc, st := newTestService(t)
	p := seedProduct(t, st, "p1")

	factors, err := svc.RecomputeConfidence(context.Background(), "p1")
	require.NoError(t, err)

	want := ComputeConfidence(*p, model.DisputeSummary{}, testNow)
	assert.Equal(t, want, factors)

	stored, err := st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, want.TotalScore, stored.Confidence)
	assert.NotEmpty(t, st.factors["p1"])
}

func TestRecomputeConfidenceNotFound(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.RecomputeConfidence(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
}

func TestRecomputeAll(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedProduct(t, st, "p2")
	seedProduct(t, st, "p3")

	n, err := svc.RecomputeAll(context.Background(), 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, id := range []string{"p1", "p2", "p3"} {
		p, err := st.GetProduct(context.Background(), id)
		require.NoError(t, err)
		assert.NotZero(t, p.Confidence, id)
	}
}

func TestAdminSetStatusRequiresAdmin(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	_, err := svc.AdminSetStatus(context.Background(), "d1", model.DisputeStatusResolved,
		identity.User{ID: "mallory", Role: identity.RoleUser}, "")
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))
}

func TestAdminSetStatusResolves(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	admin := identity.User{ID: "admin-1", Role: identity.RoleAdmin}
	d, err := svc.AdminSetStatus(context.Background(), "d1", model.DisputeStatusRejected, admin, "bad report")
	require.NoError(t, err)

	assert.Equal(t, model.DisputeStatusRejected, d.Status)
	assert.Nil(t, d.ResolutionPendingAt)
	require.NotNil(t, d.Resolution)
	assert.Equal(t, "admin-1", d.Resolution.ResolvedBy)

	// Terminal transition triggers a recompute.
	p, err := st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.NotZero(t, p.Confidence)
}

func TestAdminSetStatusCanReopen(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))
	st.disputes["d1"].Status = model.DisputeStatusResolved
	st.disputes["d1"].ResolutionPendingAt = nil

	admin := identity.User{ID: "admin-1", Role: identity.RoleAdmin}
	got, err := svc.AdminSetStatus(context.Background(), "d1", model.DisputeStatusOpen, admin, "reopening")
	require.NoError(t, err)
	assert.Equal(t, model.DisputeStatusOpen, got.Status)
	assert.Nil(t, got.ResolutionPendingAt)
	assert.Nil(t, got.Resolution)

	// Reopening moves the dispute back into the unresolved bucket, so
	// the stored confidence carries the open-dispute penalty again.
	p, err := st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	want := ComputeConfidence(*p, model.DisputeSummary{Total: 1, Open: 1}, testNow)
	assert.Equal(t, want.TotalScore, p.Confidence)
}

func TestCanUserEdit(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	decision, err := svc.CanUserEdit(context.Background(), "d1", "p1", "creator")
	require.NoError(t, err)
	assert.True(t, decision.Allowed)

	decision, err = svc.CanUserEdit(context.Background(), "d1", "p1", "disputer")
	require.NoError(t, err)
	assert.False(t, decision.Allowed)
	assert.Equal(t, DenyCreatorWindow, decision.Reason)
}

func TestCanUserEditProductMismatch(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedProduct(t, st, "p2")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	_, err := svc.CanUserEdit(context.Background(), "d1", "p2", "creator")
	assert.True(t, IsValidation(err))
}

func TestRecordEditByCreator(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	p, d, err := svc.RecordEdit(context.Background(), "d1", "p1", "creator", map[string]any{
		"weight_g": 475.0,
	})
	require.NoError(t, err)

	assert.Equal(t, 475.0, p.Dimensions.WeightG)
	assert.Equal(t, testNow, p.LastModified)
	assert.Equal(t, "creator", p.LastModifiedBy)

	assert.Equal(t, model.DisputeStatusResolved, d.Status)
	require.NotNil(t, d.Resolution)
	assert.Equal(t, EditResolvedAction, d.Resolution.Action)
	assert.Equal(t, "creator", d.Resolution.ResolvedBy)

	// Confidence is recomputed afterwards and reflected on the
	// returned product.
	stored, err := st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, stored.Confidence, p.Confidence)
	assert.NotZero(t, p.Confidence)
}

func TestRecordEditDeniedForWrongUser(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	_, _, err := svc.RecordEdit(context.Background(), "d1", "p1", "disputer", map[string]any{
		"weight_g": 475.0,
	})
	require.Error(t, err)
	assert.True(t, IsAuthorization(err))

	// The dispute is untouched.
	d, err := st.GetDispute(context.Background(), "d1")
	require.NoError(t, err)
	assert.Equal(t, model.DisputeStatusInReview, d.Status)
}

func TestRecordEditConsumedWindowIsConflict(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	// Someone already edited after the window opened.
	st.products["p1"].LastModified = testNow.Add(-time.Minute)

	_, _, err := svc.RecordEdit(context.Background(), "d1", "p1", "creator", map[string]any{
		"weight_g": 475.0,
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestRecordEditLostRaceIsConflict(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	_, _, err := svc.RecordEdit(context.Background(), "d1", "p1", "creator", map[string]any{
		"weight_g": 475.0,
	})
	require.NoError(t, err)

	// The first edit resolved the dispute; a second editor arriving
	// after the window closed lost a race and should re-fetch, so the
	// answer is a conflict, not a permissions failure.
	_, _, err = svc.RecordEdit(context.Background(), "d1", "p1", "creator", map[string]any{
		"weight_g": 500.0,
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
	assert.False(t, IsAuthorization(err))
}

func TestRecordEditAfterAdminCloseIsConflict(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	// An admin rejected the dispute between the caller's check and the
	// claim.
	st.disputes["d1"].Status = model.DisputeStatusRejected
	st.disputes["d1"].ResolutionPendingAt = nil

	_, _, err := svc.RecordEdit(context.Background(), "d1", "p1", "creator", map[string]any{
		"weight_g": 475.0,
	})
	require.Error(t, err)
	assert.True(t, IsConflict(err))
}

func TestRecordEditValidation(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")
	seedInReviewDispute(t, st, "d1", "p1", testNow.Add(-time.Hour))

	_, _, err := svc.RecordEdit(context.Background(), "d1", "p1", "creator", nil)
	assert.True(t, IsValidation(err))

	_, _, err = svc.RecordEdit(context.Background(), "d1", "p1", "creator", map[string]any{
		"confidence": 100,
	})
	assert.True(t, IsValidation(err))

	_, _, err = svc.RecordEdit(context.Background(), "d1", "p1", "creator", map[string]any{
		"weight_g": "heavy",
	})
	assert.True(t, IsValidation(err))
}

func TestRecordLikeTogglesAndRecomputes(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")

	liked, err := svc.RecordLike(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.True(t, liked)

	p, err := st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Likes)
	assert.NotZero(t, p.Confidence)

	liked, err = svc.RecordLike(context.Background(), "p1", "u1")
	require.NoError(t, err)
	assert.False(t, liked)

	p, err = st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, p.Likes)
}

func TestRecordViewIncrementsWithoutRecompute(t *testing.T) {
	svc, st := newTestService(t)
	seedProduct(t, st, "p1")

	views, err := svc.RecordView(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, views)

	p, err := st.GetProduct(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, p.Views)
	// Views never trigger a synchronous recompute.
	assert.Zero(t, p.Confidence)
}

func TestListDisputesFilterValidation(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.ListDisputes(context.Background(), store.DisputeFilter{Status: "nonsense"})
	assert.True(t, IsValidation(err))
}
