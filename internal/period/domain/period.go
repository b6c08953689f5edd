package period

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusOpen   = "open"
	StatusClosed = "closed"
)

// ElectricityReadings are the captured meter parameters of a period.
type ElectricityReadings struct {
	Start      decimal.Decimal
	End        decimal.Decimal
	Multiplier decimal.Decimal
	Rate       decimal.Decimal
	LossRatio  decimal.Decimal
}

// ServicePeriod is a bounded billing window with its own budgets and readings.
// It is mutable only while open; closing is terminal.
type ServicePeriod struct {
	ID           int64
	Name         string
	StartDate    time.Time
	EndDate      time.Time
	Status       string
	PeriodMonths int

	Electricity *ElectricityReadings

	YearBudget             *decimal.Decimal
	ConservationYearBudget *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewServicePeriod validates inputs and builds an open period. The start date
// must be the first day of a month; the end date is the first day of the month
// periodMonths later. The name defaults to "DD.MM.YYYY - DD.MM.YYYY".
func NewServicePeriod(startDate time.Time, periodMonths int, name string) (*ServicePeriod, error) {
	if startDate.Day() != 1 {
		return nil, ErrStartNotFirstOfMonth
	}
	if periodMonths < 1 || periodMonths > 12 {
		return nil, ErrMonthsOutOfRange
	}
	endDate := startDate.AddDate(0, periodMonths, 0)
	if name == "" {
		name = startDate.Format("02.01.2006") + " - " + endDate.Format("02.01.2006")
	}
	now := time.Now().UTC()
	return &ServicePeriod{
		Name:         name,
		StartDate:    startDate,
		EndDate:      endDate,
		Status:       StatusOpen,
		PeriodMonths: periodMonths,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsOpen reports whether the period still accepts mutations.
func (p *ServicePeriod) IsOpen() bool {
	return p != nil && p.Status == StatusOpen
}

// IsActiveOn reports whether the given day falls inside the period window.
func (p *ServicePeriod) IsActiveOn(day time.Time) bool {
	if p == nil {
		return false
	}
	return !day.Before(p.StartDate) && !day.After(p.EndDate)
}

// SetElectricity captures meter parameters. Fails on a closed period.
func (p *ServicePeriod) SetElectricity(readings ElectricityReadings) error {
	if !p.IsOpen() {
		return ErrPeriodClosed
	}
	r := readings
	p.Electricity = &r
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// SetBudgets captures annual main and conservation budgets. Fails on a closed period.
func (p *ServicePeriod) SetBudgets(yearBudget, conservationYearBudget decimal.Decimal) error {
	if !p.IsOpen() {
		return ErrPeriodClosed
	}
	p.YearBudget = &yearBudget
	p.ConservationYearBudget = &conservationYearBudget
	p.UpdatedAt = time.Now().UTC()
	return nil
}

// Close flips the period to closed. Closing twice fails; the transition is terminal.
func (p *ServicePeriod) Close() error {
	if !p.IsOpen() {
		return ErrPeriodClosed
	}
	p.Status = StatusClosed
	p.UpdatedAt = time.Now().UTC()
	return nil
}
