// Package transactions reads the external payment ledger. The ledger is a
// read-only collaborator: this service never writes transactions.
package transactions

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one transfer between two accounts in the external ledger.
type Transaction struct {
	ID            int64
	FromAccountID int64
	ToAccountID   int64
	Amount        decimal.Decimal
	Date          time.Time
}

// Reader answers per-account sum queries against the ledger.
type Reader interface {
	SumIncoming(ctx context.Context, accountID int64) (decimal.Decimal, error)
	SumOutgoing(ctx context.Context, accountID int64) (decimal.Decimal, error)
}
