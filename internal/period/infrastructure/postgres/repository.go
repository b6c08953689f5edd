package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"community-ledger/internal/audit"
	period "community-ledger/internal/period/domain"
)

// Repository persists service periods.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const periodColumns = `
id, name, start_date, end_date, status, period_months,
electricity_start, electricity_end, electricity_multiplier, electricity_rate, electricity_losses,
year_budget, conservation_year_budget, created_at, updated_at`

// GetByID fetches a period.
func (r *Repository) GetByID(ctx context.Context, id int64) (*period.ServicePeriod, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+periodColumns+`
FROM service_periods
WHERE id = $1`, id)
	return scanPeriod(row)
}

// ListOpen returns open periods ordered by start date descending.
func (r *Repository) ListOpen(ctx context.Context) ([]period.ServicePeriod, error) {
	return r.list(ctx, `
SELECT `+periodColumns+`
FROM service_periods
WHERE status = 'open'
ORDER BY start_date DESC`)
}

// List returns the newest periods.
func (r *Repository) List(ctx context.Context, limit int) ([]period.ServicePeriod, error) {
	if limit <= 0 {
		limit = 10
	}
	return r.list(ctx, `
SELECT `+periodColumns+`
FROM service_periods
ORDER BY start_date DESC
LIMIT $1`, limit)
}

// Latest returns the period with the most recent end date, or nil.
func (r *Repository) Latest(ctx context.Context) (*period.ServicePeriod, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+periodColumns+`
FROM service_periods
ORDER BY end_date DESC
LIMIT 1`)
	p, err := scanPeriod(row)
	if errors.Is(err, period.ErrPeriodNotFound) {
		return nil, nil
	}
	return p, err
}

// FindByEndDate returns the period whose end date equals the given date.
func (r *Repository) FindByEndDate(ctx context.Context, endDate time.Time) (*period.ServicePeriod, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+periodColumns+`
FROM service_periods
WHERE end_date = $1
LIMIT 1`, endDate)
	return scanPeriod(row)
}

// Create inserts a period and its audit entry in one transaction. The period
// id is assigned from the database.
func (r *Repository) Create(ctx context.Context, p *period.ServicePeriod, entry audit.Entry) error {
	if r == nil || r.db == nil {
		return errors.New("period repo: nil db")
	}
	if p == nil {
		return errors.New("period repo: nil period")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO service_periods (
	name, start_date, end_date, status, period_months,
	electricity_start, electricity_end, electricity_multiplier, electricity_rate, electricity_losses,
	year_budget, conservation_year_budget, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
RETURNING id`,
		p.Name, p.StartDate, p.EndDate, p.Status, p.PeriodMonths,
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.Start }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.End }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.Multiplier }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.Rate }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.LossRatio }),
		decimalValue(p.YearBudget), decimalValue(p.ConservationYearBudget),
		p.CreatedAt, p.UpdatedAt,
	).Scan(&p.ID)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	entry.EntityID = p.ID
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Update overwrites a period and appends its audit entry in one transaction.
func (r *Repository) Update(ctx context.Context, p *period.ServicePeriod, entry audit.Entry) error {
	if r == nil || r.db == nil {
		return errors.New("period repo: nil db")
	}
	if p == nil {
		return errors.New("period repo: nil period")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	result, err := tx.ExecContext(ctx, `
UPDATE service_periods SET
	name = $2, status = $3,
	electricity_start = $4, electricity_end = $5, electricity_multiplier = $6,
	electricity_rate = $7, electricity_losses = $8,
	year_budget = $9, conservation_year_budget = $10,
	updated_at = $11
WHERE id = $1`,
		p.ID, p.Name, p.Status,
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.Start }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.End }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.Multiplier }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.Rate }),
		electricityValue(p, func(e *period.ElectricityReadings) decimal.Decimal { return e.LossRatio }),
		decimalValue(p.YearBudget), decimalValue(p.ConservationYearBudget),
		p.UpdatedAt,
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return period.ErrPeriodNotFound
	}
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repository) list(ctx context.Context, query string, args ...any) ([]period.ServicePeriod, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("period repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var periods []period.ServicePeriod
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		periods = append(periods, *p)
	}
	return periods, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (*period.ServicePeriod, error) {
	var p period.ServicePeriod
	var eStart, eEnd, eMult, eRate, eLoss sql.NullString
	var yearBudget, conservationBudget sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.StartDate, &p.EndDate, &p.Status, &p.PeriodMonths,
		&eStart, &eEnd, &eMult, &eRate, &eLoss,
		&yearBudget, &conservationBudget, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, period.ErrPeriodNotFound
	}
	if err != nil {
		return nil, err
	}

	if eStart.Valid && eEnd.Valid && eMult.Valid && eRate.Valid && eLoss.Valid {
		readings := period.ElectricityReadings{}
		for _, field := range []struct {
			src string
			dst *decimal.Decimal
		}{
			{eStart.String, &readings.Start},
			{eEnd.String, &readings.End},
			{eMult.String, &readings.Multiplier},
			{eRate.String, &readings.Rate},
			{eLoss.String, &readings.LossRatio},
		} {
			d, err := decimal.NewFromString(field.src)
			if err != nil {
				return nil, err
			}
			*field.dst = d
		}
		p.Electricity = &readings
	}
	if yearBudget.Valid {
		d, err := decimal.NewFromString(yearBudget.String)
		if err != nil {
			return nil, err
		}
		p.YearBudget = &d
	}
	if conservationBudget.Valid {
		d, err := decimal.NewFromString(conservationBudget.String)
		if err != nil {
			return nil, err
		}
		p.ConservationYearBudget = &d
	}
	return &p, nil
}

func electricityValue(p *period.ServicePeriod, pick func(*period.ElectricityReadings) decimal.Decimal) any {
	if p.Electricity == nil {
		return nil
	}
	return pick(p.Electricity).String()
}

func decimalValue(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}
