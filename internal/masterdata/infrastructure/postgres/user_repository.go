package postgres

import (
	"context"
	"database/sql"
	"errors"

	masterdata "community-ledger/internal/masterdata/domain"
)

// UserRepository persists community members.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository constructs a repository.
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = `id, name, telegram_id, username, is_active, created_at`

// GetByID fetches a user.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*masterdata.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE id = $1`, id)
	return scanUser(row)
}

// FindByTelegramID fetches the user linked to a Telegram identity, or nil.
func (r *UserRepository) FindByTelegramID(ctx context.Context, telegramID int64) (*masterdata.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+userColumns+`
FROM users
WHERE telegram_id = $1`, telegramID)
	user, err := scanUser(row)
	if errors.Is(err, masterdata.ErrUserNotFound) {
		return nil, nil
	}
	return user, err
}

// List returns users ordered by name.
func (r *UserRepository) List(ctx context.Context, limit int) ([]masterdata.User, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("user repo: nil db")
	}
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+userColumns+`
FROM users
ORDER BY name ASC
LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []masterdata.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *user)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*masterdata.User, error) {
	var user masterdata.User
	var telegramID sql.NullInt64
	var username sql.NullString
	err := row.Scan(&user.ID, &user.Name, &telegramID, &username, &user.IsActive, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, masterdata.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if telegramID.Valid {
		user.TelegramID = &telegramID.Int64
	}
	user.Username = username.String
	return &user, nil
}
