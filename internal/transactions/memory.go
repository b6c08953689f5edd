package transactions

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
)

// MemoryReader is an in-memory transaction ledger for tests.
type MemoryReader struct {
	mu  sync.RWMutex
	txs []Transaction
}

// NewMemoryReader constructs an empty ledger.
func NewMemoryReader() *MemoryReader {
	return &MemoryReader{}
}

// Add seeds a transaction.
func (r *MemoryReader) Add(tx Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txs = append(r.txs, tx)
}

// SumIncoming sums transfers into an account.
func (r *MemoryReader) SumIncoming(_ context.Context, accountID int64) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, tx := range r.txs {
		if tx.ToAccountID == accountID {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}

// SumOutgoing sums transfers out of an account.
func (r *MemoryReader) SumOutgoing(_ context.Context, accountID int64) (decimal.Decimal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sum := decimal.Zero
	for _, tx := range r.txs {
		if tx.FromAccountID == accountID {
			sum = sum.Add(tx.Amount)
		}
	}
	return sum, nil
}
