package application

import (
	"context"
	"errors"
	"log"

	"github.com/shopspring/decimal"

	"community-ledger/internal/allocation"
	"community-ledger/internal/audit"
	billing "community-ledger/internal/billing/domain"
	masterdata "community-ledger/internal/masterdata/domain"
	period "community-ledger/internal/period/domain"
)

// Repository persists bills. CreateBatch commits all bills and their audit
// entries as one transaction; entryFor is called with each bill after it has
// been assigned an identity. Bills already present for the same
// (period, account, type) are skipped, which makes re-runs idempotent.
type Repository interface {
	CreateBatch(ctx context.Context, bills []billing.Bill, entryFor func(billing.Bill) audit.Entry) (int, error)
	SumByPeriodAndType(ctx context.Context, periodID int64, billType billing.BillType) (decimal.Decimal, error)
	ListByPeriod(ctx context.Context, periodID int64) ([]billing.Bill, error)
}

// AccountResolver finds the owner account a bill should be charged to.
type AccountResolver interface {
	FindOwnerAccount(ctx context.Context, userID int64) (*masterdata.Account, error)
}

// PropertyLister provides the allocation snapshot of properties.
type PropertyLister interface {
	ListActive(ctx context.Context) ([]masterdata.Property, error)
}

// PeriodReader loads service periods.
type PeriodReader interface {
	GetByID(ctx context.Context, id int64) (*period.ServicePeriod, error)
}

// RunResult summarizes one full billing run over a period.
type RunResult struct {
	MainBills              int             `json:"main_bills"`
	ConservationBills      int             `json:"conservation_bills"`
	SharedElectricityBills int             `json:"shared_electricity_bills"`
	SharedElectricityTotal decimal.Decimal `json:"shared_electricity_total"`
}

// Service records allocation results as bills.
type Service struct {
	repo       Repository
	accounts   AccountResolver
	properties PropertyLister
	periods    PeriodReader
	logger     *log.Logger
}

// NewService constructs the service.
func NewService(repo Repository, accounts AccountResolver, properties PropertyLister, periods PeriodReader, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("billing service: nil repository")
	}
	if accounts == nil {
		return nil, errors.New("billing service: nil account resolver")
	}
	if properties == nil {
		return nil, errors.New("billing service: nil property lister")
	}
	if periods == nil {
		return nil, errors.New("billing service: nil period reader")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, accounts: accounts, properties: properties, periods: periods, logger: logger}, nil
}

// Record persists one bill per owner share against the owners' accounts.
// Owners without an owner-typed account are skipped and logged; the rest of
// the batch still commits (partial success, degraded but observable).
// Returns the number of bills created.
func (s *Service) Record(ctx context.Context, periodID int64, shares []allocation.OwnerShare, billType billing.BillType, actorID *int64) (int, error) {
	p, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		return 0, err
	}
	if !p.IsOpen() {
		return 0, period.ErrPeriodClosed
	}

	bills := make([]billing.Bill, 0, len(shares))
	names := make(map[int64]string)
	for _, share := range shares {
		account, err := s.accounts.FindOwnerAccount(ctx, share.OwnerID)
		if err != nil {
			return 0, err
		}
		if account == nil {
			s.logger.Printf("billing: no owner account for user %d, skipping %s bill of %s", share.OwnerID, billType, share.Amount)
			continue
		}
		names[account.ID] = account.Name
		bills = append(bills, billing.Bill{
			ServicePeriodID: periodID,
			Target:          billing.AccountTarget(account.ID),
			Type:            billType,
			Amount:          share.Amount.Round(2),
		})
	}

	created, err := s.repo.CreateBatch(ctx, bills, func(b billing.Bill) audit.Entry {
		amount, _ := b.Amount.Float64()
		return audit.NewEntry("bill", b.ID, "create", actorID, map[string]any{
			"bill_type":    string(b.Type),
			"account_id":   b.Target.ID,
			"account_name": names[b.Target.ID],
			"period_id":    b.ServicePeriodID,
			"amount":       amount,
		})
	})
	if err != nil {
		return 0, err
	}

	s.logger.Printf("billing: created %d %s bills for period %d", created, billType, periodID)
	return created, nil
}

// SumElectricityBills returns the sum of individual electricity bills already
// recorded against a period, 0 when none exist.
func (s *Service) SumElectricityBills(ctx context.Context, periodID int64) (decimal.Decimal, error) {
	return s.repo.SumByPeriodAndType(ctx, periodID, billing.TypeElectricity)
}

// RunPeriodBilling runs every allocation the period's captured data allows:
// main budget bills, conservation bills, and the shared electricity split
// (total metered cost minus individual electricity bills, distributed by
// owner weight). Categories without data are skipped, not errors.
func (s *Service) RunPeriodBilling(ctx context.Context, periodID int64, actorID *int64) (RunResult, error) {
	var result RunResult

	p, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		return result, err
	}
	if !p.IsOpen() {
		return result, period.ErrPeriodClosed
	}

	properties, err := s.properties.ListActive(ctx)
	if err != nil {
		return result, err
	}
	snapshot := make([]allocation.WeightedProperty, 0, len(properties))
	for _, prop := range properties {
		if !prop.Allocatable() {
			continue
		}
		snapshot = append(snapshot, allocation.WeightedProperty{
			OwnerID:      prop.OwnerID,
			Weight:       *prop.ShareWeight,
			Conservation: prop.IsConservation,
		})
	}

	if p.YearBudget != nil {
		shares := allocation.MainShares(snapshot, *p.YearBudget, p.PeriodMonths)
		created, err := s.Record(ctx, periodID, shares, billing.TypeMain, actorID)
		if err != nil {
			return result, err
		}
		result.MainBills = created
	}

	if p.ConservationYearBudget != nil {
		shares := allocation.ConservationShares(snapshot, *p.ConservationYearBudget, p.PeriodMonths)
		created, err := s.Record(ctx, periodID, shares, billing.TypeConservation, actorID)
		if err != nil {
			return result, err
		}
		result.ConservationBills = created
	}

	if p.Electricity != nil {
		created, shared, err := s.distributeSharedElectricity(ctx, p, snapshot, actorID)
		if err != nil {
			return result, err
		}
		result.SharedElectricityBills = created
		result.SharedElectricityTotal = shared
	}

	return result, nil
}

// RunSharedElectricity runs only the shared electricity split for a period.
// Unlike the composite run, a period without captured meter parameters is an
// error here, not a skip.
func (s *Service) RunSharedElectricity(ctx context.Context, periodID int64, actorID *int64) (RunResult, error) {
	var result RunResult

	p, err := s.periods.GetByID(ctx, periodID)
	if err != nil {
		return result, err
	}
	if !p.IsOpen() {
		return result, period.ErrPeriodClosed
	}
	if p.Electricity == nil {
		return result, billing.ErrNoElectricityData
	}

	properties, err := s.properties.ListActive(ctx)
	if err != nil {
		return result, err
	}
	snapshot := make([]allocation.WeightedProperty, 0, len(properties))
	for _, prop := range properties {
		if !prop.Allocatable() {
			continue
		}
		snapshot = append(snapshot, allocation.WeightedProperty{
			OwnerID:      prop.OwnerID,
			Weight:       *prop.ShareWeight,
			Conservation: prop.IsConservation,
		})
	}

	created, shared, err := s.distributeSharedElectricity(ctx, p, snapshot, actorID)
	if err != nil {
		return result, err
	}
	result.SharedElectricityBills = created
	result.SharedElectricityTotal = shared
	return result, nil
}

func (s *Service) distributeSharedElectricity(ctx context.Context, p *period.ServicePeriod, snapshot []allocation.WeightedProperty, actorID *int64) (int, decimal.Decimal, error) {
	e := p.Electricity
	total, err := allocation.ElectricityTotal(e.Start, e.End, e.Multiplier, e.Rate, e.LossRatio)
	if err != nil {
		return 0, decimal.Zero, err
	}
	individual, err := s.SumElectricityBills(ctx, p.ID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	shared := total.Sub(individual)
	if shared.Sign() <= 0 {
		s.logger.Printf("billing: period %d individual electricity bills (%s) cover the metered total (%s), nothing to distribute", p.ID, individual, total)
		return 0, decimal.Zero, nil
	}
	shares, err := allocation.DistributeShared(shared, snapshot)
	if err != nil {
		return 0, decimal.Zero, err
	}
	created, err := s.Record(ctx, p.ID, shares, billing.TypeSharedElectricity, actorID)
	if err != nil {
		return 0, decimal.Zero, err
	}
	return created, shared, nil
}

// ListByPeriod returns all bills recorded against a period.
func (s *Service) ListByPeriod(ctx context.Context, periodID int64) ([]billing.Bill, error) {
	return s.repo.ListByPeriod(ctx, periodID)
}
