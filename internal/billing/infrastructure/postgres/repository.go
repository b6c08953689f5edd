package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"community-ledger/internal/audit"
	billing "community-ledger/internal/billing/domain"
)

// Repository persists bills. The bills table carries a partial unique index on
// (service_period_id, account_id, bill_type); CreateBatch leans on it to make
// re-running an allocation for the same period and type a no-op.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// CreateBatch inserts bills with their audit entries in one transaction.
// Conflicting (period, account, type) rows are skipped silently; the returned
// count is the number of rows actually inserted.
func (r *Repository) CreateBatch(ctx context.Context, bills []billing.Bill, entryFor func(billing.Bill) audit.Entry) (int, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("bill repo: nil db")
	}
	if len(bills) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, bill := range bills {
		if bill.CreatedAt.IsZero() {
			bill.CreatedAt = time.Now().UTC()
		}
		accountID, propertyID := splitTarget(bill.Target)
		err := tx.QueryRowContext(ctx, `
INSERT INTO bills (service_period_id, account_id, property_id, bill_type, bill_amount, comment, created_at)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (service_period_id, account_id, bill_type) WHERE account_id IS NOT NULL
DO NOTHING
RETURNING id`,
			bill.ServicePeriodID, accountID, propertyID, bill.Type, bill.Amount.StringFixed(2), nullString(bill.Comment), bill.CreatedAt,
		).Scan(&bill.ID)
		if errors.Is(err, sql.ErrNoRows) {
			continue // already billed
		}
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
		if entryFor != nil {
			if err := audit.InsertTx(ctx, tx, entryFor(bill)); err != nil {
				_ = tx.Rollback()
				return 0, err
			}
		}
		created++
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return created, nil
}

// SumByPeriodAndType sums bill amounts for a period and type, 0 when none exist.
func (r *Repository) SumByPeriodAndType(ctx context.Context, periodID int64, billType billing.BillType) (decimal.Decimal, error) {
	if r == nil || r.db == nil {
		return decimal.Zero, errors.New("bill repo: nil db")
	}
	var sum sql.NullString
	err := r.db.QueryRowContext(ctx, `
SELECT SUM(bill_amount)
FROM bills
WHERE service_period_id = $1 AND bill_type = $2`, periodID, billType).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return parseNullDecimal(sum)
}

// SumByAccount sums all bill amounts charged to an account, 0 when none exist.
func (r *Repository) SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	if r == nil || r.db == nil {
		return decimal.Zero, errors.New("bill repo: nil db")
	}
	var sum sql.NullString
	err := r.db.QueryRowContext(ctx, `
SELECT SUM(bill_amount)
FROM bills
WHERE account_id = $1`, accountID).Scan(&sum)
	if err != nil {
		return decimal.Zero, err
	}
	return parseNullDecimal(sum)
}

// ListByPeriod returns all bills of a period in insertion order.
func (r *Repository) ListByPeriod(ctx context.Context, periodID int64) ([]billing.Bill, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("bill repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, service_period_id, account_id, property_id, bill_type, bill_amount, comment, created_at
FROM bills
WHERE service_period_id = $1
ORDER BY id ASC`, periodID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

// ListByAccount returns the newest bills charged to an account.
func (r *Repository) ListByAccount(ctx context.Context, accountID int64, limit int) ([]billing.Bill, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("bill repo: nil db")
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, service_period_id, account_id, property_id, bill_type, bill_amount, comment, created_at
FROM bills
WHERE account_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBills(rows)
}

func scanBills(rows *sql.Rows) ([]billing.Bill, error) {
	var bills []billing.Bill
	for rows.Next() {
		var bill billing.Bill
		var accountID, propertyID sql.NullInt64
		var amount string
		var comment sql.NullString
		if err := rows.Scan(&bill.ID, &bill.ServicePeriodID, &accountID, &propertyID, &bill.Type, &amount, &comment, &bill.CreatedAt); err != nil {
			return nil, err
		}
		switch {
		case accountID.Valid:
			bill.Target = billing.AccountTarget(accountID.Int64)
		case propertyID.Valid:
			bill.Target = billing.PropertyTarget(propertyID.Int64)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return nil, err
		}
		bill.Amount = d
		bill.Comment = comment.String
		bills = append(bills, bill)
	}
	return bills, rows.Err()
}

func splitTarget(target billing.BillTarget) (accountID, propertyID any) {
	switch target.Kind {
	case billing.TargetAccount:
		return target.ID, nil
	case billing.TargetProperty:
		return nil, target.ID
	}
	return nil, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func parseNullDecimal(value sql.NullString) (decimal.Decimal, error) {
	if !value.Valid {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(value.String)
}
