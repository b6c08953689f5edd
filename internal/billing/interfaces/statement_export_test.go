package interfaces

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	billing "community-ledger/internal/billing/domain"
	period "community-ledger/internal/period/domain"
)

func statementFixture(t *testing.T) (*period.ServicePeriod, []billing.Bill) {
	t.Helper()
	p, err := period.NewServicePeriod(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC), 6, "")
	if err != nil {
		t.Fatalf("new period: %v", err)
	}
	p.ID = 1
	bills := []billing.Bill{
		{
			ID:              1,
			ServicePeriodID: 1,
			Target:          billing.AccountTarget(10),
			Type:            billing.TypeMain,
			Amount:          decimal.RequireFromString("90.00"),
			CreatedAt:       time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:              2,
			ServicePeriodID: 1,
			Target:          billing.AccountTarget(11),
			Type:            billing.TypeSharedElectricity,
			Amount:          decimal.RequireFromString("600.00"),
			CreatedAt:       time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC),
		},
	}
	return p, bills
}

func TestBuildPeriodStatementPDF(t *testing.T) {
	p, bills := statementFixture(t)
	data, err := BuildPeriodStatementPDF(p, bills, func(target billing.BillTarget) string {
		if target.ID == 10 {
			return "Alice"
		}
		return ""
	})
	if err != nil {
		t.Fatalf("build pdf: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty pdf output")
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected pdf header, got %q", data[:8])
	}
}

func TestBuildPeriodStatementXLSX(t *testing.T) {
	p, bills := statementFixture(t)
	data, err := BuildPeriodStatementXLSX(p, bills, nil)
	if err != nil {
		t.Fatalf("build xlsx: %v", err)
	}
	if len(data) == 0 {
		t.Fatal("expected non-empty xlsx output")
	}
	// xlsx is a zip container
	if !bytes.HasPrefix(data, []byte("PK")) {
		t.Fatalf("expected zip header, got %q", data[:4])
	}
}
