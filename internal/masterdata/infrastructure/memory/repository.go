package memory

import (
	"context"
	"sync"

	masterdata "community-ledger/internal/masterdata/domain"
)

// Store is an in-memory users/accounts/properties store for tests.
type Store struct {
	mu         sync.RWMutex
	nextUserID int64
	users      map[int64]*masterdata.User
	accounts   map[int64]*masterdata.Account
	properties []masterdata.Property
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		nextUserID: 1,
		users:      make(map[int64]*masterdata.User),
		accounts:   make(map[int64]*masterdata.Account),
	}
}

// AddUser seeds a user, assigning an id when missing.
func (s *Store) AddUser(user masterdata.User) masterdata.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == 0 {
		user.ID = s.nextUserID
	}
	if user.ID >= s.nextUserID {
		s.nextUserID = user.ID + 1
	}
	u := user
	s.users[u.ID] = &u
	return u
}

// AddAccount seeds an account.
func (s *Store) AddAccount(account masterdata.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a := account
	s.accounts[a.ID] = &a
}

// AddProperty seeds a property.
func (s *Store) AddProperty(property masterdata.Property) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.properties = append(s.properties, property)
}

// UpdateUser overwrites an existing user.
func (s *Store) UpdateUser(user masterdata.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[user.ID]; !ok {
		return masterdata.ErrUserNotFound
	}
	u := user
	s.users[u.ID] = &u
	return nil
}

// GetByID fetches a user.
func (s *Store) GetByID(_ context.Context, id int64) (*masterdata.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, masterdata.ErrUserNotFound
	}
	u := *user
	return &u, nil
}

// FindByTelegramID fetches the user linked to a Telegram identity, or nil.
func (s *Store) FindByTelegramID(_ context.Context, telegramID int64) (*masterdata.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.TelegramID != nil && *user.TelegramID == telegramID {
			u := *user
			return &u, nil
		}
	}
	return nil, nil
}

// GetAccount fetches an account by id.
func (s *Store) GetAccount(_ context.Context, id int64) (*masterdata.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	account, ok := s.accounts[id]
	if !ok {
		return nil, masterdata.ErrAccountNotFound
	}
	a := *account
	return &a, nil
}

// FindByUser fetches a user's account, or nil.
func (s *Store) FindByUser(_ context.Context, userID int64) (*masterdata.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.UserID != nil && *account.UserID == userID {
			a := *account
			return &a, nil
		}
	}
	return nil, nil
}

// FindOwnerAccount fetches a user's owner-typed account, or nil.
func (s *Store) FindOwnerAccount(_ context.Context, userID int64) (*masterdata.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, account := range s.accounts {
		if account.Type == masterdata.AccountOwner && account.UserID != nil && *account.UserID == userID {
			a := *account
			return &a, nil
		}
	}
	return nil, nil
}

// AccountView exposes the store's accounts under the reader shape whose
// GetByID resolves accounts. The store's own GetByID resolves users, so the
// two cannot share a receiver.
type AccountView struct {
	store *Store
}

// Accounts returns the account-focused view of the store.
func (s *Store) Accounts() AccountView {
	return AccountView{store: s}
}

// GetByID fetches an account by id.
func (v AccountView) GetByID(ctx context.Context, id int64) (*masterdata.Account, error) {
	return v.store.GetAccount(ctx, id)
}

// FindByUser fetches a user's account, or nil.
func (v AccountView) FindByUser(ctx context.Context, userID int64) (*masterdata.Account, error) {
	return v.store.FindByUser(ctx, userID)
}

// ListActive returns active properties with a known share weight.
func (s *Store) ListActive(_ context.Context) ([]masterdata.Property, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []masterdata.Property
	for _, p := range s.properties {
		if p.Allocatable() {
			out = append(out, p)
		}
	}
	return out, nil
}
