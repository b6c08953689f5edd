package application

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"community-ledger/internal/audit"
	period "community-ledger/internal/period/domain"
)

// Repository persists service periods. Create and Update commit the period
// mutation and the audit entry as one transaction.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*period.ServicePeriod, error)
	ListOpen(ctx context.Context) ([]period.ServicePeriod, error)
	List(ctx context.Context, limit int) ([]period.ServicePeriod, error)
	Latest(ctx context.Context) (*period.ServicePeriod, error)
	FindByEndDate(ctx context.Context, endDate time.Time) (*period.ServicePeriod, error)
	Create(ctx context.Context, p *period.ServicePeriod, entry audit.Entry) error
	Update(ctx context.Context, p *period.ServicePeriod, entry audit.Entry) error
}

// PeriodDefaults carries the previous period's electricity parameters, used to
// prefill the next period's readings form.
type PeriodDefaults struct {
	ElectricityEnd        *decimal.Decimal
	ElectricityMultiplier *decimal.Decimal
	ElectricityRate       *decimal.Decimal
	ElectricityLossRatio  *decimal.Decimal
}

// PeriodInfo is a read-model row for listings.
type PeriodInfo struct {
	PeriodID  int64  `json:"period_id"`
	Name      string `json:"name"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	IsActive  bool   `json:"is_active"`
	Status    string `json:"status"`
}

// Service manages the service period lifecycle.
type Service struct {
	repo   Repository
	logger *log.Logger
}

// NewService constructs the service.
func NewService(repo Repository, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("period service: nil repository")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, logger: logger}, nil
}

// Create opens a new service period and audits its creation.
func (s *Service) Create(ctx context.Context, startDate time.Time, periodMonths int, name string, actorID *int64) (*period.ServicePeriod, error) {
	p, err := period.NewServicePeriod(startDate, periodMonths, name)
	if err != nil {
		return nil, err
	}

	entry := audit.NewEntry("service_period", 0, "create", actorID, map[string]any{
		"name":          p.Name,
		"start_date":    p.StartDate.Format("2006-01-02"),
		"end_date":      p.EndDate.Format("2006-01-02"),
		"period_months": p.PeriodMonths,
		"status":        p.Status,
	})
	if err := s.repo.Create(ctx, p, entry); err != nil {
		return nil, err
	}

	s.logger.Printf("period: created id=%d name=%q months=%d", p.ID, p.Name, p.PeriodMonths)
	return p, nil
}

// UpdateElectricity captures meter parameters on an open period.
func (s *Service) UpdateElectricity(ctx context.Context, periodID int64, readings period.ElectricityReadings, actorID *int64) error {
	p, err := s.repo.GetByID(ctx, periodID)
	if err != nil {
		return err
	}
	if err := p.SetElectricity(readings); err != nil {
		return err
	}

	entry := audit.NewEntry("service_period", p.ID, "update", actorID, map[string]any{
		"electricity_start":      readings.Start.String(),
		"electricity_end":        readings.End.String(),
		"electricity_multiplier": readings.Multiplier.String(),
		"electricity_rate":       readings.Rate.String(),
		"electricity_losses":     readings.LossRatio.String(),
	})
	if err := s.repo.Update(ctx, p, entry); err != nil {
		return err
	}

	s.logger.Printf("period: updated electricity id=%d start=%s end=%s", p.ID, readings.Start, readings.End)
	return nil
}

// UpdateBudgets captures annual budgets on an open period.
func (s *Service) UpdateBudgets(ctx context.Context, periodID int64, yearBudget, conservationYearBudget decimal.Decimal, actorID *int64) error {
	p, err := s.repo.GetByID(ctx, periodID)
	if err != nil {
		return err
	}
	if err := p.SetBudgets(yearBudget, conservationYearBudget); err != nil {
		return err
	}

	entry := audit.NewEntry("service_period", p.ID, "update", actorID, map[string]any{
		"year_budget":              yearBudget.String(),
		"conservation_year_budget": conservationYearBudget.String(),
	})
	if err := s.repo.Update(ctx, p, entry); err != nil {
		return err
	}

	s.logger.Printf("period: updated budgets id=%d main=%s conservation=%s", p.ID, yearBudget, conservationYearBudget)
	return nil
}

// Close terminally closes a period. No further mutation or bill generation
// is possible against it.
func (s *Service) Close(ctx context.Context, periodID int64, actorID *int64) error {
	p, err := s.repo.GetByID(ctx, periodID)
	if err != nil {
		return err
	}
	if err := p.Close(); err != nil {
		return err
	}

	entry := audit.NewEntry("service_period", p.ID, "close", actorID, map[string]any{
		"status":      period.StatusClosed,
		"period_name": p.Name,
	})
	if err := s.repo.Update(ctx, p, entry); err != nil {
		return err
	}

	s.logger.Printf("period: closed id=%d name=%q", p.ID, p.Name)
	return nil
}

// GetByID fetches a period.
func (s *Service) GetByID(ctx context.Context, periodID int64) (*period.ServicePeriod, error) {
	return s.repo.GetByID(ctx, periodID)
}

// ListOpen returns open periods, newest first.
func (s *Service) ListOpen(ctx context.Context) ([]period.ServicePeriod, error) {
	return s.repo.ListOpen(ctx)
}

// ListInfo returns the newest periods as listing rows.
func (s *Service) ListInfo(ctx context.Context, limit int) ([]PeriodInfo, error) {
	periods, err := s.repo.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	today := time.Now().UTC()
	infos := make([]PeriodInfo, 0, len(periods))
	for i := range periods {
		p := &periods[i]
		infos = append(infos, PeriodInfo{
			PeriodID:  p.ID,
			Name:      p.Name,
			StartDate: p.StartDate.Format("2006-01-02"),
			EndDate:   p.EndDate.Format("2006-01-02"),
			IsActive:  p.IsActiveOn(today),
			Status:    p.Status,
		})
	}
	return infos, nil
}

// PreviousPeriodDefaults returns the electricity parameters of the period that
// ends exactly where the new one starts, to prefill its readings.
func (s *Service) PreviousPeriodDefaults(ctx context.Context, startDate time.Time) (PeriodDefaults, error) {
	previous, err := s.repo.FindByEndDate(ctx, startDate)
	if err != nil && !errors.Is(err, period.ErrPeriodNotFound) {
		return PeriodDefaults{}, err
	}
	if previous == nil || previous.Electricity == nil {
		return PeriodDefaults{}, nil
	}
	e := previous.Electricity
	return PeriodDefaults{
		ElectricityEnd:        &e.End,
		ElectricityMultiplier: &e.Multiplier,
		ElectricityRate:       &e.Rate,
		ElectricityLossRatio:  &e.LossRatio,
	}, nil
}
