package application

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"community-ledger/internal/audit"
	billing "community-ledger/internal/billing/domain"
	billmem "community-ledger/internal/billing/infrastructure/memory"
	masterdata "community-ledger/internal/masterdata/domain"
	mdmem "community-ledger/internal/masterdata/infrastructure/memory"
	"community-ledger/internal/transactions"
)

// The store's account view, not the store itself, carries the account reader
// shape used here.
var _ AccountReader = mdmem.AccountView{}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func setup(t *testing.T) (*Service, *transactions.MemoryReader, *billmem.Repository, *mdmem.Store) {
	t.Helper()
	txs := transactions.NewMemoryReader()
	bills := billmem.NewRepository(audit.NewTrail())
	store := mdmem.NewStore()
	svc, err := NewService(txs, bills, store.Accounts())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, txs, bills, store
}

func TestAccountBalanceFormula(t *testing.T) {
	svc, txs, bills, store := setup(t)
	ctx := context.Background()
	userID := int64(1)
	store.AddAccount(masterdata.Account{ID: 10, Name: "owner", Type: masterdata.AccountOwner, UserID: &userID})

	// incoming=0, outgoing=300, bills=120 => -180.00
	txs.Add(transactions.Transaction{FromAccountID: 10, ToAccountID: 99, Amount: dec("300")})
	if _, err := bills.CreateBatch(ctx, []billing.Bill{{
		ServicePeriodID: 1, Target: billing.AccountTarget(10), Type: billing.TypeMain, Amount: dec("120.00"),
	}}, nil); err != nil {
		t.Fatalf("seed bill: %v", err)
	}

	result, err := svc.AccountBalanceWithDisplay(ctx, 10)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !result.Balance.Equal(dec("-180.00")) {
		t.Errorf("balance = %s, want -180.00", result.Balance)
	}
	if !result.InvertForDisplay {
		t.Error("owner account must be display-inverted")
	}
}

func TestDisplayInversionNeverChangesRawBalance(t *testing.T) {
	svc, txs, _, store := setup(t)
	ctx := context.Background()
	store.AddAccount(masterdata.Account{ID: 20, Name: "org", Type: masterdata.AccountOrganization})
	txs.Add(transactions.Transaction{FromAccountID: 5, ToAccountID: 20, Amount: dec("50")})

	result, err := svc.AccountBalanceWithDisplay(ctx, 20)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if result.InvertForDisplay {
		t.Error("organization account must not be display-inverted")
	}
	if !result.Balance.Equal(dec("50")) {
		t.Errorf("balance = %s, want 50", result.Balance)
	}

	raw, err := svc.AccountBalance(ctx, 20)
	if err != nil {
		t.Fatalf("raw balance: %v", err)
	}
	if !raw.Equal(result.Balance) {
		t.Errorf("raw %s != display-carrying %s", raw, result.Balance)
	}
}

func TestUnknownAccountBalancesToZero(t *testing.T) {
	svc, _, _, _ := setup(t)
	result, err := svc.AccountBalanceWithDisplay(context.Background(), 404)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !result.Balance.IsZero() || result.InvertForDisplay {
		t.Errorf("unknown account = %+v, want zero/uninverted", result)
	}
}

func TestUserBalance(t *testing.T) {
	svc, txs, _, store := setup(t)
	ctx := context.Background()
	userID := int64(7)
	store.AddAccount(masterdata.Account{ID: 70, Name: "owner", Type: masterdata.AccountOwner, UserID: &userID})
	txs.Add(transactions.Transaction{FromAccountID: 1, ToAccountID: 70, Amount: dec("25")})

	balance, err := svc.UserBalance(ctx, userID)
	if err != nil {
		t.Fatalf("user balance: %v", err)
	}
	if !balance.Equal(dec("25")) {
		t.Errorf("balance = %s, want 25", balance)
	}

	// User without an account balances to zero.
	none, err := svc.UserBalance(ctx, 999)
	if err != nil {
		t.Fatalf("user balance: %v", err)
	}
	if !none.IsZero() {
		t.Errorf("accountless user balance = %s, want 0", none)
	}
}

func TestUserBalancesBatch(t *testing.T) {
	svc, txs, _, store := setup(t)
	ctx := context.Background()
	for i := int64(1); i <= 2; i++ {
		userID := i
		store.AddAccount(masterdata.Account{ID: 100 + i, Type: masterdata.AccountOwner, UserID: &userID})
		txs.Add(transactions.Transaction{FromAccountID: 9, ToAccountID: 100 + i, Amount: decimal.NewFromInt(i * 10)})
	}

	balances, err := svc.UserBalances(ctx, []int64{1, 2, 3})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(balances) != 3 {
		t.Fatalf("len = %d, want 3", len(balances))
	}
	if !balances[1].Equal(dec("10")) || !balances[2].Equal(dec("20")) || !balances[3].IsZero() {
		t.Errorf("balances = %v", balances)
	}
}
