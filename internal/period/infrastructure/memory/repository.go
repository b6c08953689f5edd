package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"community-ledger/internal/audit"
	period "community-ledger/internal/period/domain"
)

// Repository is an in-memory period store for tests.
type Repository struct {
	mu     sync.RWMutex
	nextID int64
	data   map[int64]*period.ServicePeriod
	trail  *audit.Trail
}

// NewRepository constructs a repository recording audit entries to trail.
func NewRepository(trail *audit.Trail) *Repository {
	if trail == nil {
		trail = audit.NewTrail()
	}
	return &Repository{nextID: 1, data: make(map[int64]*period.ServicePeriod), trail: trail}
}

// GetByID loads a period.
func (r *Repository) GetByID(_ context.Context, id int64) (*period.ServicePeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.data[id]
	if !ok {
		return nil, period.ErrPeriodNotFound
	}
	c := *p
	return &c, nil
}

// ListOpen returns open periods, newest start date first.
func (r *Repository) ListOpen(_ context.Context) ([]period.ServicePeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []period.ServicePeriod
	for _, p := range r.data {
		if p.Status == period.StatusOpen {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	return out, nil
}

// List returns the newest periods by start date.
func (r *Repository) List(_ context.Context, limit int) ([]period.ServicePeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]period.ServicePeriod, 0, len(r.data))
	for _, p := range r.data {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartDate.After(out[j].StartDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Latest returns the period with the most recent end date, or nil.
func (r *Repository) Latest(_ context.Context) (*period.ServicePeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *period.ServicePeriod
	for _, p := range r.data {
		if latest == nil || p.EndDate.After(latest.EndDate) {
			latest = p
		}
	}
	if latest == nil {
		return nil, nil
	}
	c := *latest
	return &c, nil
}

// FindByEndDate returns the period ending on the given date.
func (r *Repository) FindByEndDate(_ context.Context, endDate time.Time) (*period.ServicePeriod, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.data {
		if p.EndDate.Equal(endDate) {
			c := *p
			return &c, nil
		}
	}
	return nil, period.ErrPeriodNotFound
}

// Create stores a new period and its audit entry.
func (r *Repository) Create(ctx context.Context, p *period.ServicePeriod, entry audit.Entry) error {
	r.mu.Lock()
	p.ID = r.nextID
	r.nextID++
	c := *p
	r.data[c.ID] = &c
	r.mu.Unlock()

	entry.EntityID = p.ID
	return r.trail.Log(ctx, entry)
}

// Update overwrites a period and records its audit entry.
func (r *Repository) Update(ctx context.Context, p *period.ServicePeriod, entry audit.Entry) error {
	r.mu.Lock()
	if _, ok := r.data[p.ID]; !ok {
		r.mu.Unlock()
		return period.ErrPeriodNotFound
	}
	c := *p
	r.data[c.ID] = &c
	r.mu.Unlock()

	return r.trail.Log(ctx, entry)
}
