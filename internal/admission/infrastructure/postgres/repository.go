package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"community-ledger/internal/admission/application"
	admission "community-ledger/internal/admission/domain"
	"community-ledger/internal/audit"
)

// Repository persists access requests. A partial unique index on
// (telegram_id) WHERE status = 'pending' backs the at-most-one-pending
// invariant; Create maps the resulting violation to ErrPendingExists.
type Repository struct {
	db *sql.DB
}

// NewRepository constructs a repository.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const requestColumns = `
id, telegram_id, username, message, status, admin_telegram_id, admin_response, created_at, resolved_at`

// GetByID fetches a request.
func (r *Repository) GetByID(ctx context.Context, id int64) (*admission.AccessRequest, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("admission repo: nil db")
	}
	row := r.db.QueryRowContext(ctx, `
SELECT `+requestColumns+`
FROM access_requests
WHERE id = $1`, id)
	return scanRequest(row)
}

// ListPending returns pending requests, oldest first.
func (r *Repository) ListPending(ctx context.Context) ([]admission.AccessRequest, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("admission repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT `+requestColumns+`
FROM access_requests
WHERE status = 'pending'
ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pending []admission.AccessRequest
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		pending = append(pending, *request)
	}
	return pending, rows.Err()
}

// Create inserts a pending request and its audit entry in one transaction.
func (r *Repository) Create(ctx context.Context, request *admission.AccessRequest, entry audit.Entry) error {
	if r == nil || r.db == nil {
		return errors.New("admission repo: nil db")
	}
	if request == nil {
		return errors.New("admission repo: nil request")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	err = tx.QueryRowContext(ctx, `
INSERT INTO access_requests (telegram_id, username, message, status, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
		request.TelegramID, request.Username, request.Message, request.Status, request.CreatedAt,
	).Scan(&request.ID)
	if err != nil {
		_ = tx.Rollback()
		if isUniqueViolation(err) {
			return admission.ErrPendingExists
		}
		return err
	}
	entry.EntityID = request.ID
	if err := audit.InsertTx(ctx, tx, entry); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

// Resolve flips a pending request to a terminal status, applies the user
// change and appends the audit entry, all in one transaction. The status flip
// is conditional on status = 'pending'; a miss means another resolution won
// and yields ErrAlreadyResolved.
func (r *Repository) Resolve(ctx context.Context, params application.ResolveParams) (int64, error) {
	if r == nil || r.db == nil {
		return 0, errors.New("admission repo: nil db")
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	result, err := tx.ExecContext(ctx, `
UPDATE access_requests SET
	status = $2, admin_telegram_id = $3, admin_response = $4, resolved_at = $5
WHERE id = $1 AND status = 'pending'`,
		params.RequestID, params.Status, params.AdminTelegramID, params.Response, time.Now().UTC(),
	)
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if affected == 0 {
		_ = tx.Rollback()
		return 0, admission.ErrAlreadyResolved
	}

	var userID int64
	if params.User != nil {
		userID, err = applyUserChange(ctx, tx, *params.User)
		if err != nil {
			_ = tx.Rollback()
			return 0, err
		}
	}

	if err := audit.InsertTx(ctx, tx, params.Entry); err != nil {
		_ = tx.Rollback()
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return userID, nil
}

func applyUserChange(ctx context.Context, tx *sql.Tx, change application.UserChange) (int64, error) {
	if change.UserID == 0 {
		var id int64
		err := tx.QueryRowContext(ctx, `
INSERT INTO users (name, telegram_id, username, is_active, created_at)
VALUES ($1, $2, $3, $4, $5)
RETURNING id`,
			change.Name, change.TelegramID, change.Username, change.Activate, time.Now().UTC(),
		).Scan(&id)
		return id, err
	}
	_, err := tx.ExecContext(ctx, `
UPDATE users SET telegram_id = $2, username = $3, is_active = $4
WHERE id = $1`,
		change.UserID, change.TelegramID, change.Username, change.Activate,
	)
	return change.UserID, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*admission.AccessRequest, error) {
	var request admission.AccessRequest
	var adminTelegramID sql.NullInt64
	var resolvedAt sql.NullTime
	err := row.Scan(
		&request.ID, &request.TelegramID, &request.Username, &request.Message, &request.Status,
		&adminTelegramID, &request.AdminResponse, &request.CreatedAt, &resolvedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, admission.ErrRequestNotFound
	}
	if err != nil {
		return nil, err
	}
	if adminTelegramID.Valid {
		request.AdminTelegramID = &adminTelegramID.Int64
	}
	if resolvedAt.Valid {
		request.ResolvedAt = &resolvedAt.Time
	}
	return &request, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
