package application

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	billing "community-ledger/internal/billing/domain"
	masterdata "community-ledger/internal/masterdata/domain"
	"community-ledger/internal/transactions"
)

// BillReader reads recorded bills.
type BillReader interface {
	SumByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error)
	ListByAccount(ctx context.Context, accountID int64, limit int) ([]billing.Bill, error)
}

// AccountReader resolves accounts.
type AccountReader interface {
	GetByID(ctx context.Context, id int64) (*masterdata.Account, error)
	FindByUser(ctx context.Context, userID int64) (*masterdata.Account, error)
}

// BalanceResult is a balance with its display convention. InvertForDisplay is
// presentation only: the raw balance is never changed by it.
type BalanceResult struct {
	Balance          decimal.Decimal `json:"balance"`
	InvertForDisplay bool            `json:"invert_for_display"`
}

// BillInfo is a read-model row of one bill for balance views.
type BillInfo struct {
	BillID   int64           `json:"bill_id"`
	Amount   decimal.Decimal `json:"amount"`
	BillDate string          `json:"bill_date,omitempty"`
	BillType string          `json:"bill_type"`
}

// Service derives account positions from the external transaction ledger and
// the bill ledger. All reads are unsynchronized snapshot reads; balances are
// informational, not a ledger of record.
type Service struct {
	txs      transactions.Reader
	bills    BillReader
	accounts AccountReader
}

// NewService constructs the service.
func NewService(txs transactions.Reader, bills BillReader, accounts AccountReader) (*Service, error) {
	if txs == nil {
		return nil, errors.New("balance service: nil transaction reader")
	}
	if bills == nil {
		return nil, errors.New("balance service: nil bill reader")
	}
	if accounts == nil {
		return nil, errors.New("balance service: nil account reader")
	}
	return &Service{txs: txs, bills: bills, accounts: accounts}, nil
}

// AccountBalance computes incoming - outgoing + bills for an account. Every
// term defaults to 0 when no rows exist; an unknown account yields 0.
func (s *Service) AccountBalance(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	result, err := s.AccountBalanceWithDisplay(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return result.Balance, nil
}

// AccountBalanceWithDisplay computes the balance together with the account
// type's display convention: owner accounts are shown inverted, because from
// the community's perspective an owner's credit is a liability.
func (s *Service) AccountBalanceWithDisplay(ctx context.Context, accountID int64) (BalanceResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if errors.Is(err, masterdata.ErrAccountNotFound) {
		return BalanceResult{Balance: decimal.Zero}, nil
	}
	if err != nil {
		return BalanceResult{}, err
	}

	incoming, err := s.txs.SumIncoming(ctx, accountID)
	if err != nil {
		return BalanceResult{}, err
	}
	outgoing, err := s.txs.SumOutgoing(ctx, accountID)
	if err != nil {
		return BalanceResult{}, err
	}
	billed, err := s.bills.SumByAccount(ctx, accountID)
	if err != nil {
		return BalanceResult{}, err
	}

	return BalanceResult{
		Balance:          incoming.Sub(outgoing).Add(billed),
		InvertForDisplay: account.InvertForDisplay(),
	}, nil
}

// UserBalance resolves the user's account and returns its balance, 0 when the
// user has no account.
func (s *Service) UserBalance(ctx context.Context, userID int64) (decimal.Decimal, error) {
	account, err := s.accounts.FindByUser(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	if account == nil {
		return decimal.Zero, nil
	}
	return s.AccountBalance(ctx, account.ID)
}

// UserBalances computes balances for each given user id. No cross-account
// aggregation is performed.
func (s *Service) UserBalances(ctx context.Context, userIDs []int64) (map[int64]decimal.Decimal, error) {
	balances := make(map[int64]decimal.Decimal, len(userIDs))
	for _, userID := range userIDs {
		balance, err := s.UserBalance(ctx, userID)
		if err != nil {
			return nil, err
		}
		balances[userID] = balance
	}
	return balances, nil
}

// ListBillsForUser returns the user's newest bills, empty when the user has
// no account.
func (s *Service) ListBillsForUser(ctx context.Context, userID int64, limit int) ([]BillInfo, error) {
	account, err := s.accounts.FindByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, nil
	}
	bills, err := s.bills.ListByAccount(ctx, account.ID, limit)
	if err != nil {
		return nil, err
	}
	infos := make([]BillInfo, 0, len(bills))
	for _, bill := range bills {
		info := BillInfo{
			BillID:   bill.ID,
			Amount:   bill.Amount,
			BillType: string(bill.Type),
		}
		if !bill.CreatedAt.IsZero() {
			info.BillDate = bill.CreatedAt.Format("2006-01-02T15:04:05Z07:00")
		}
		infos = append(infos, info)
	}
	return infos, nil
}
