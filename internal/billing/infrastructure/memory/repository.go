package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"community-ledger/internal/audit"
	billing "community-ledger/internal/billing/domain"
)

// Repository is an in-memory bill store for tests. It enforces the same
// (period, account, type) uniqueness the postgres schema does.
type Repository struct {
	mu     sync.RWMutex
	nextID int64
	bills  []billing.Bill
	seen   map[string]bool
	trail  *audit.Trail
}

// NewRepository constructs a repository recording audit entries to trail.
func NewRepository(trail *audit.Trail) *Repository {
	if trail == nil {
		trail = audit.NewTrail()
	}
	return &Repository{nextID: 1, seen: make(map[string]bool), trail: trail}
}

// CreateBatch stores bills and their audit entries, skipping duplicates of an
// already-billed (period, account, type) key.
func (r *Repository) CreateBatch(ctx context.Context, bills []billing.Bill, entryFor func(billing.Bill) audit.Entry) (int, error) {
	created := 0
	for _, bill := range bills {
		r.mu.Lock()
		key := ""
		if bill.Target.Kind == billing.TargetAccount {
			key = fmt.Sprintf("%d|%d|%s", bill.ServicePeriodID, bill.Target.ID, bill.Type)
			if r.seen[key] {
				r.mu.Unlock()
				continue
			}
		}
		bill.ID = r.nextID
		r.nextID++
		if bill.CreatedAt.IsZero() {
			bill.CreatedAt = time.Now().UTC()
		}
		r.bills = append(r.bills, bill)
		if key != "" {
			r.seen[key] = true
		}
		r.mu.Unlock()

		if entryFor != nil {
			if err := r.trail.Log(ctx, entryFor(bill)); err != nil {
				return created, err
			}
		}
		created++
	}
	return created, nil
}

// SumByPeriodAndType sums bill amounts for one period and type.
func (r *Repository) SumByPeriodAndType(_ context.Context, periodID int64, billType billing.BillType) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, bill := range r.bills {
		if bill.ServicePeriodID == periodID && bill.Type == billType {
			sum = sum.Add(bill.Amount)
		}
	}
	return sum, nil
}

// SumByAccount sums all bill amounts charged to an account.
func (r *Repository) SumByAccount(_ context.Context, accountID int64) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, bill := range r.bills {
		if bill.Target.Kind == billing.TargetAccount && bill.Target.ID == accountID {
			sum = sum.Add(bill.Amount)
		}
	}
	return sum, nil
}

// ListByPeriod returns bills of a period in creation order.
func (r *Repository) ListByPeriod(_ context.Context, periodID int64) ([]billing.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []billing.Bill
	for _, bill := range r.bills {
		if bill.ServicePeriodID == periodID {
			out = append(out, bill)
		}
	}
	return out, nil
}

// ListByAccount returns newest bills charged to an account.
func (r *Repository) ListByAccount(_ context.Context, accountID int64, limit int) ([]billing.Bill, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []billing.Bill
	for i := len(r.bills) - 1; i >= 0; i-- {
		bill := r.bills[i]
		if bill.Target.Kind == billing.TargetAccount && bill.Target.ID == accountID {
			out = append(out, bill)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
