package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"community-ledger/internal/admission/application"
	admission "community-ledger/internal/admission/domain"
	"community-ledger/internal/audit"
)

func TestCreateMapsUniqueViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO access_requests`).
		WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	repo := NewRepository(db)
	request := admission.NewAccessRequest(42, "let me in", "newcomer")
	err = repo.Create(context.Background(), request, audit.NewEntry("access_request", 0, "create", nil, nil))
	if !errors.Is(err, admission.ErrPendingExists) {
		t.Fatalf("expected ErrPendingExists, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResolveConditionalUpdateMiss(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	// Another resolution already flipped the status: the guard matches no row.
	mock.ExpectExec(`UPDATE access_requests SET`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	repo := NewRepository(db)
	_, err = repo.Resolve(context.Background(), application.ResolveParams{
		RequestID: 7,
		Status:    admission.StatusRejected,
		Entry:     audit.NewEntry("access_request", 7, "reject", nil, nil),
	})
	if !errors.Is(err, admission.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResolveCreatesUserAndAudits(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE access_requests SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO users`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(3)))
	mock.ExpectExec(`INSERT INTO audit_logs`).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	repo := NewRepository(db)
	adminTID := int64(900)
	userID, err := repo.Resolve(context.Background(), application.ResolveParams{
		RequestID:       7,
		Status:          admission.StatusApproved,
		AdminTelegramID: &adminTID,
		Response:        "approved",
		User: &application.UserChange{
			Name:       "User 42",
			TelegramID: 42,
			Username:   "newcomer",
			Activate:   true,
		},
		Entry: audit.NewEntry("access_request", 7, "approve", &adminTID, nil),
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if userID != 3 {
		t.Fatalf("userID = %d, want 3", userID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
