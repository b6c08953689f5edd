package application

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"community-ledger/internal/allocation"
	"community-ledger/internal/audit"
	billing "community-ledger/internal/billing/domain"
	billmem "community-ledger/internal/billing/infrastructure/memory"
	masterdata "community-ledger/internal/masterdata/domain"
	mdmem "community-ledger/internal/masterdata/infrastructure/memory"
	period "community-ledger/internal/period/domain"
	periodmem "community-ledger/internal/period/infrastructure/memory"
)

type fixture struct {
	svc     *Service
	bills   *billmem.Repository
	store   *mdmem.Store
	periods *periodmem.Repository
	trail   *audit.Trail
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func ptr(d decimal.Decimal) *decimal.Decimal { return &d }

func newFixture(t *testing.T) *fixture {
	t.Helper()
	trail := audit.NewTrail()
	bills := billmem.NewRepository(trail)
	store := mdmem.NewStore()
	periods := periodmem.NewRepository(trail)
	svc, err := NewService(bills, store, store, periods, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{svc: svc, bills: bills, store: store, periods: periods, trail: trail}
}

func (f *fixture) openPeriod(t *testing.T, months int) *period.ServicePeriod {
	t.Helper()
	p, err := period.NewServicePeriod(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), months, "")
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	if err := f.periods.Create(context.Background(), p, audit.NewEntry("service_period", 0, "create", nil, nil)); err != nil {
		t.Fatalf("create period: %v", err)
	}
	return p
}

func (f *fixture) seedOwner(userID, accountID int64, weight string, conservation bool) {
	f.store.AddUser(masterdata.User{ID: userID, Name: masterdata.PlaceholderName(userID), IsActive: true})
	f.store.AddAccount(masterdata.Account{ID: accountID, Name: "owner", Type: masterdata.AccountOwner, UserID: &userID})
	w := dec(weight)
	f.store.AddProperty(masterdata.Property{ID: accountID * 10, OwnerID: userID, ShareWeight: &w, IsActive: true, IsConservation: conservation})
}

func TestRecordSkipsOwnersWithoutAccount(t *testing.T) {
	f := newFixture(t)
	p := f.openPeriod(t, 6)
	f.seedOwner(1, 11, "1.0", false)
	// user 2 has a property but no owner account
	f.store.AddUser(masterdata.User{ID: 2, Name: "no account", IsActive: true})

	shares := []allocation.OwnerShare{
		{OwnerID: 1, Amount: dec("90.00")},
		{OwnerID: 2, Amount: dec("45.00")},
	}
	created, err := f.svc.Record(context.Background(), p.ID, shares, billing.TypeMain, nil)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if created != 1 {
		t.Fatalf("created = %d, want 1 (missing account skipped)", created)
	}

	var billEntries int
	for _, e := range f.trail.Entries() {
		if e.EntityType == "bill" {
			billEntries++
			if e.Action != "create" {
				t.Errorf("bill audit action = %q", e.Action)
			}
			if e.Changes["bill_type"] != "main" {
				t.Errorf("bill audit changes = %v", e.Changes)
			}
		}
	}
	if billEntries != 1 {
		t.Fatalf("bill audit entries = %d, want 1", billEntries)
	}
}

func TestRecordIdempotentPerPeriodAndType(t *testing.T) {
	f := newFixture(t)
	p := f.openPeriod(t, 6)
	f.seedOwner(1, 11, "1.0", false)

	shares := []allocation.OwnerShare{{OwnerID: 1, Amount: dec("90.00")}}
	first, err := f.svc.Record(context.Background(), p.ID, shares, billing.TypeMain, nil)
	if err != nil {
		t.Fatalf("first record: %v", err)
	}
	second, err := f.svc.Record(context.Background(), p.ID, shares, billing.TypeMain, nil)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if first != 1 || second != 0 {
		t.Fatalf("created = %d then %d, want 1 then 0", first, second)
	}
}

func TestRecordClosedPeriod(t *testing.T) {
	f := newFixture(t)
	p := f.openPeriod(t, 6)
	f.seedOwner(1, 11, "1.0", false)
	if err := p.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := f.periods.Update(context.Background(), p, audit.NewEntry("service_period", p.ID, "close", nil, nil)); err != nil {
		t.Fatalf("update: %v", err)
	}

	_, err := f.svc.Record(context.Background(), p.ID, []allocation.OwnerShare{{OwnerID: 1, Amount: dec("1.00")}}, billing.TypeMain, nil)
	if !errors.Is(err, period.ErrPeriodClosed) {
		t.Fatalf("err = %v, want ErrPeriodClosed", err)
	}
}

func TestRunPeriodBilling(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.openPeriod(t, 6)
	f.seedOwner(1, 11, "1.0", true)
	f.seedOwner(2, 22, "0.5", true)
	f.seedOwner(3, 33, "2.0", false)

	p.YearBudget = ptr(dec("12000"))
	p.ConservationYearBudget = ptr(dec("3600"))
	p.Electricity = &period.ElectricityReadings{
		Start:      dec("100"),
		End:        dec("200"),
		Multiplier: dec("1.5"),
		Rate:       dec("10"),
		LossRatio:  dec("0.2"),
	}
	if err := f.periods.Update(ctx, p, audit.NewEntry("service_period", p.ID, "update", nil, nil)); err != nil {
		t.Fatalf("update: %v", err)
	}

	result, err := f.svc.RunPeriodBilling(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.MainBills != 3 {
		t.Errorf("main bills = %d, want 3", result.MainBills)
	}
	if result.ConservationBills != 2 {
		t.Errorf("conservation bills = %d, want 2 (conservation pool only)", result.ConservationBills)
	}
	if result.SharedElectricityBills != 3 {
		t.Errorf("shared electricity bills = %d, want 3", result.SharedElectricityBills)
	}
	if !result.SharedElectricityTotal.Equal(dec("1800.00")) {
		t.Errorf("shared total = %s, want 1800.00", result.SharedElectricityTotal)
	}

	// Shared electricity bills must sum exactly to the distributed total.
	sum, err := f.bills.SumByPeriodAndType(ctx, p.ID, billing.TypeSharedElectricity)
	if err != nil {
		t.Fatalf("sum: %v", err)
	}
	if !sum.Equal(dec("1800.00")) {
		t.Errorf("shared bills sum = %s, want 1800.00", sum)
	}

	// Re-running creates nothing new.
	again, err := f.svc.RunPeriodBilling(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("rerun: %v", err)
	}
	if again.MainBills != 0 || again.ConservationBills != 0 || again.SharedElectricityBills != 0 {
		t.Errorf("rerun created bills: %+v", again)
	}
}

func TestRunSharedElectricityRequiresReadings(t *testing.T) {
	f := newFixture(t)
	p := f.openPeriod(t, 6)
	f.seedOwner(1, 11, "1.0", false)

	_, err := f.svc.RunSharedElectricity(context.Background(), p.ID, nil)
	if !errors.Is(err, billing.ErrNoElectricityData) {
		t.Fatalf("err = %v, want ErrNoElectricityData", err)
	}
}

func TestRunSharedElectricityDistributes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.openPeriod(t, 6)
	f.seedOwner(1, 11, "1.0", false)
	f.seedOwner(2, 22, "1.0", false)

	p.Electricity = &period.ElectricityReadings{
		Start: dec("100"), End: dec("200"), Multiplier: dec("1.5"), Rate: dec("10"), LossRatio: dec("0.2"),
	}
	if err := f.periods.Update(ctx, p, audit.NewEntry("service_period", p.ID, "update", nil, nil)); err != nil {
		t.Fatalf("update: %v", err)
	}

	result, err := f.svc.RunSharedElectricity(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if result.SharedElectricityBills != 2 {
		t.Errorf("shared bills = %d, want 2", result.SharedElectricityBills)
	}
	if !result.SharedElectricityTotal.Equal(dec("1800.00")) {
		t.Errorf("shared total = %s, want 1800.00", result.SharedElectricityTotal)
	}
	if result.MainBills != 0 || result.ConservationBills != 0 {
		t.Errorf("budget bills created by electricity-only run: %+v", result)
	}
}

func TestRunPeriodBillingSubtractsIndividualElectricity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p := f.openPeriod(t, 6)
	f.seedOwner(1, 11, "1.0", false)

	// An individual metered bill already exists for the period.
	_, err := f.bills.CreateBatch(ctx, []billing.Bill{{
		ServicePeriodID: p.ID,
		Target:          billing.PropertyTarget(110),
		Type:            billing.TypeElectricity,
		Amount:          dec("300.00"),
	}}, nil)
	if err != nil {
		t.Fatalf("seed electricity bill: %v", err)
	}

	p.Electricity = &period.ElectricityReadings{
		Start: dec("100"), End: dec("200"), Multiplier: dec("1.5"), Rate: dec("10"), LossRatio: dec("0.2"),
	}
	if err := f.periods.Update(ctx, p, audit.NewEntry("service_period", p.ID, "update", nil, nil)); err != nil {
		t.Fatalf("update: %v", err)
	}

	result, err := f.svc.RunPeriodBilling(ctx, p.ID, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !result.SharedElectricityTotal.Equal(dec("1500.00")) {
		t.Errorf("shared total = %s, want 1500.00 (1800 - 300 individual)", result.SharedElectricityTotal)
	}
}
