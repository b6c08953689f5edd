package postgres

import (
	"context"
	"database/sql"
	"errors"

	masterdata "community-ledger/internal/masterdata/domain"
)

// AccountRepository persists bookkeeping accounts.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository constructs a repository.
func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// GetByID fetches an account.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*masterdata.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("account repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, account_type, user_id
FROM accounts
WHERE id = $1`, id)
	return scanAccount(row)
}

// FindByUser fetches the account belonging to a user, or nil when none exists.
func (r *AccountRepository) FindByUser(ctx context.Context, userID int64) (*masterdata.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("account repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, account_type, user_id
FROM accounts
WHERE user_id = $1
LIMIT 1`, userID)
	account, err := scanAccount(row)
	if errors.Is(err, masterdata.ErrAccountNotFound) {
		return nil, nil
	}
	return account, err
}

// FindOwnerAccount fetches a user's account of type owner, or nil.
func (r *AccountRepository) FindOwnerAccount(ctx context.Context, userID int64) (*masterdata.Account, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("account repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT id, name, account_type, user_id
FROM accounts
WHERE user_id = $1 AND account_type = 'owner'
LIMIT 1`, userID)
	account, err := scanAccount(row)
	if errors.Is(err, masterdata.ErrAccountNotFound) {
		return nil, nil
	}
	return account, err
}

func scanAccount(row rowScanner) (*masterdata.Account, error) {
	var account masterdata.Account
	var userID sql.NullInt64
	err := row.Scan(&account.ID, &account.Name, &account.Type, &userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrAccountNotFound
	}
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		account.UserID = &userID.Int64
	}
	return &account, nil
}
