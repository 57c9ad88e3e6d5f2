package trust

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/packdim/trust-cli/internal/model"
	"github.com/packdim/trust-cli/internal/store"
)

// fakeStore is an in-memory Store with the same transactional semantics
// as the real backends: conditional transitions, per-user vote deltas
// and authorize-under-lock for provisional edits.
type fakeStore struct {
	mu       sync.Mutex
	products map[string]*model.Product
	disputes map[string]*model.Dispute
	likedBy  map[string]map[string]bool
	factors  map[string][]byte

	failSetConfidence error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		products: map[string]*model.Product{},
		disputes: map[string]*model.Dispute{},
		likedBy:  map[string]map[string]bool{},
		factors:  map[string][]byte{},
	}
}

func copyProduct(p *model.Product) *model.Product {
	cp := *p
	return &cp
}

func copyDispute(d *model.Dispute) *model.Dispute {
	cd := *d
	cd.Votes.UserVotes = make(map[string]model.VoteValue, len(d.Votes.UserVotes))
	for k, v := range d.Votes.UserVotes {
		cd.Votes.UserVotes[k] = v
	}
	if d.ResolutionPendingAt != nil {
		t := *d.ResolutionPendingAt
		cd.ResolutionPendingAt = &t
	}
	if d.Resolution != nil {
		r := *d.Resolution
		cd.Resolution = &r
	}
	return &cd
}

func (f *fakeStore) CreateProduct(_ context.Context, p *model.Product) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.products[p.ID]; ok {
		return store.ErrConflict
	}
	f.products[p.ID] = copyProduct(p)
	return nil
}

func (f *fakeStore) GetProduct(_ context.Context, id string) (*model.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyProduct(p), nil
}

func (f *fakeStore) ListProductIDs(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.products))
	for id := range f.products {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

func (f *fakeStore) IncrementViews(_ context.Context, id string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return 0, store.ErrNotFound
	}
	p.Views++
	return p.Views, nil
}

func (f *fakeStore) ToggleLike(_ context.Context, id, userID string) (bool, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return false, 0, store.ErrNotFound
	}
	if f.likedBy[id] == nil {
		f.likedBy[id] = map[string]bool{}
	}
	if f.likedBy[id][userID] {
		delete(f.likedBy[id], userID)
		p.Likes--
		return false, p.Likes, nil
	}
	f.likedBy[id][userID] = true
	p.Likes++
	return true, p.Likes, nil
}

func (f *fakeStore) SetConfidence(_ context.Context, id string, confidence int, factors []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSetConfidence != nil {
		return f.failSetConfidence
	}
	p, ok := f.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.Confidence = confidence
	f.factors[id] = factors
	return nil
}

func (f *fakeStore) CreateDispute(_ context.Context, d *model.Dispute) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.disputes[d.ID]; ok {
		return store.ErrConflict
	}
	f.disputes[d.ID] = copyDispute(d)
	return nil
}

func (f *fakeStore) GetDispute(_ context.Context, id string) (*model.Dispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disputes[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return copyDispute(d), nil
}

func (f *fakeStore) ListDisputes(_ context.Context, filter store.DisputeFilter) ([]model.Dispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Dispute
	for _, d := range f.disputes {
		if filter.ProductID != "" && d.ProductID != filter.ProductID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, *copyDispute(d))
	}
	slices.SortFunc(out, func(a, b model.Dispute) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	if filter.Offset > 0 && filter.Offset < len(out) {
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (f *fakeStore) DisputeSummary(_ context.Context, productID string) (model.DisputeSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var s model.DisputeSummary
	for _, d := range f.disputes {
		if d.ProductID != productID {
			continue
		}
		s.Total++
		switch d.Status {
		case model.DisputeStatusResolved:
			s.Resolved++
		case model.DisputeStatusRejected:
			s.Rejected++
		default:
			s.Open++
		}
	}
	return s, nil
}

func (f *fakeStore) HasOpenDispute(_ context.Context, productID, userID string, t model.DisputeType) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, d := range f.disputes {
		if d.ProductID == productID && d.CreatedBy == userID && d.Type == t && !d.Status.Terminal() {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) ApplyVote(_ context.Context, disputeID, userID string, vote model.VoteValue) (*model.Dispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disputes[disputeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	d.Votes.Apply(userID, vote)
	return copyDispute(d), nil
}

func (f *fakeStore) TransitionDispute(_ context.Context, disputeID string, from []model.DisputeStatus, to model.DisputeStatus, pendingAt *time.Time, res *model.Resolution) (*model.Dispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disputes[disputeID]
	if !ok {
		return nil, store.ErrNotFound
	}
	if len(from) > 0 && !slices.Contains(from, d.Status) {
		return nil, store.ErrConflict
	}
	d.Status = to
	d.ResolutionPendingAt = pendingAt
	d.Resolution = res
	return copyDispute(d), nil
}

func (f *fakeStore) ClaimProvisionalEdit(_ context.Context, disputeID, productID, userID string, changes map[string]any, now time.Time, authorize store.AuthorizeFunc, res model.Resolution) (*model.Product, *model.Dispute, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.disputes[disputeID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}
	p, ok := f.products[productID]
	if !ok {
		return nil, nil, store.ErrNotFound
	}

	if err := authorize(copyDispute(d), copyProduct(p)); err != nil {
		return nil, nil, err
	}
	if err := p.ApplyFieldChanges(changes); err != nil {
		return nil, nil, err
	}
	p.LastModified = now
	p.LastModifiedBy = userID

	d.Status = model.DisputeStatusResolved
	d.ResolutionPendingAt = nil
	r := res
	d.Resolution = &r

	return copyProduct(p), copyDispute(d), nil
}

func (f *fakeStore) Stats(_ context.Context, _ time.Time) (*store.Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := &store.Stats{DisputesByStatus: map[model.DisputeStatus]int{}}
	for _, p := range f.products {
		s.ProductsTotal++
		s.AvgConfidence += float64(p.Confidence)
	}
	if s.ProductsTotal > 0 {
		s.AvgConfidence /= float64(s.ProductsTotal)
	}
	for _, d := range f.disputes {
		s.DisputesByStatus[d.Status]++
	}
	return s, nil
}

func (f *fakeStore) Migrate(context.Context) error { return nil }
func (f *fakeStore) Ping(context.Context) error    { return nil }
func (f *fakeStore) Close() error                  { return nil }
