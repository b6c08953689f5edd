package transactions

import (
	"context"
	"database/sql"
	"errors"

	"github.com/shopspring/decimal"
)

// PostgresReader reads transaction sums from postgres.
type PostgresReader struct {
	db *sql.DB
}

// NewPostgresReader constructs a reader.
func NewPostgresReader(db *sql.DB) *PostgresReader {
	return &PostgresReader{db: db}
}

// SumIncoming sums transfers into an account, 0 when none exist.
func (r *PostgresReader) SumIncoming(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT SUM(amount) FROM transactions WHERE to_account_id = $1`, accountID)
}

// SumOutgoing sums transfers out of an account, 0 when none exist.
func (r *PostgresReader) SumOutgoing(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	return r.sum(ctx, `SELECT SUM(amount) FROM transactions WHERE from_account_id = $1`, accountID)
}

func (r *PostgresReader) sum(ctx context.Context, query string, accountID int64) (decimal.Decimal, error) {
	if r == nil || r.db == nil {
		return decimal.Zero, errors.New("transaction reader: nil db")
	}
	var sum sql.NullString
	if err := r.db.QueryRowContext(ctx, query, accountID).Scan(&sum); err != nil {
		return decimal.Zero, err
	}
	if !sum.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(sum.String)
}
