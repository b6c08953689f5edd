package application

import (
	"context"
	"errors"
	"log"

	admission "community-ledger/internal/admission/domain"
	"community-ledger/internal/audit"
	masterdata "community-ledger/internal/masterdata/domain"
	"community-ledger/internal/notify"
)

const (
	responseApproved = "Your request has been approved."
	responseRejected = "Your request has not been approved at this time."
)

// UserChange describes the user mutation an approval carries: either an
// existing user (UserID set) gaining the requester's Telegram identity, or a
// fresh placeholder user (UserID zero).
type UserChange struct {
	UserID     int64
	Name       string
	TelegramID int64
	Username   string
	Activate   bool
}

// ResolveParams is one atomic resolution of a pending request: the status
// flip, the optional user mutation, and the audit entry commit together.
type ResolveParams struct {
	RequestID       int64
	Status          admission.RequestStatus
	AdminTelegramID *int64
	Response        string
	User            *UserChange
	Entry           audit.Entry
}

// Repository persists access requests. Create maps the store's pending-
// uniqueness violation to admission.ErrPendingExists. Resolve flips the
// status with a conditional update guarded on status = pending and returns
// admission.ErrAlreadyResolved when the guard misses, closing the
// read-then-write race between concurrent resolutions.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*admission.AccessRequest, error)
	ListPending(ctx context.Context) ([]admission.AccessRequest, error)
	Create(ctx context.Context, request *admission.AccessRequest, entry audit.Entry) error
	Resolve(ctx context.Context, params ResolveParams) (userID int64, err error)
}

// UserReader resolves users during approval.
type UserReader interface {
	GetByID(ctx context.Context, id int64) (*masterdata.User, error)
	FindByTelegramID(ctx context.Context, telegramID int64) (*masterdata.User, error)
}

// Notifier delivers outbound messages after a resolution has committed.
// Failures are logged, never propagated: a missed message must not roll back
// an already-committed decision.
type Notifier interface {
	Send(ctx context.Context, recipientTelegramID int64, kind notify.MessageKind) error
	NotifyAdmins(ctx context.Context, kind notify.MessageKind, requesterTelegramID int64) error
}

// Service runs the admission state machine: pending → approved | rejected.
type Service struct {
	repo     Repository
	users    UserReader
	notifier Notifier
	logger   *log.Logger
}

// NewService constructs the service. The notifier may be nil when outbound
// messaging is not wired.
func NewService(repo Repository, users UserReader, notifier Notifier, logger *log.Logger) (*Service, error) {
	if repo == nil {
		return nil, errors.New("admission service: nil repository")
	}
	if users == nil {
		return nil, errors.New("admission service: nil user reader")
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Service{repo: repo, users: users, notifier: notifier, logger: logger}, nil
}

// CreateRequest files a pending request for a Telegram identity. When the
// identity already has a pending request the call is a soft no-op returning
// (nil, nil); this is the at-most-one-pending invariant, enforced by the
// store so concurrent submissions cannot race past a read check.
func (s *Service) CreateRequest(ctx context.Context, telegramID int64, message, username string) (*admission.AccessRequest, error) {
	request := admission.NewAccessRequest(telegramID, message, username)
	entry := audit.NewEntry("access_request", 0, "create", nil, map[string]any{
		"telegram_id": telegramID,
		"username":    username,
		"status":      string(admission.StatusPending),
	})
	err := s.repo.Create(ctx, request, entry)
	if errors.Is(err, admission.ErrPendingExists) {
		s.logger.Printf("admission: duplicate pending request from telegram id %d ignored", telegramID)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.logger.Printf("admission: request %d filed by telegram id %d", request.ID, telegramID)
	s.send(ctx, telegramID, notify.KindRequestReceived)
	if s.notifier != nil {
		if err := s.notifier.NotifyAdmins(ctx, notify.KindAdminNewRequest, telegramID); err != nil {
			s.logger.Printf("admission: admin notify for request %d failed: %v", request.ID, err)
		}
	}
	return request, nil
}

// Approve resolves a pending request positively. When selectedUserID is given
// the requester's Telegram identity is linked onto that existing member;
// otherwise the user carrying the identity is activated, or a placeholder
// user is created. The status flip, user mutation and audit entry commit as
// one transaction; the welcome notification fires only after that commit.
func (s *Service) Approve(ctx context.Context, requestID int64, admin masterdata.User, selectedUserID *int64) (*admission.AccessRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Resolved() {
		return nil, admission.ErrAlreadyResolved
	}

	change := UserChange{
		TelegramID: request.TelegramID,
		Username:   request.Username,
		Activate:   true,
	}
	linkage := "activated"
	switch {
	case selectedUserID != nil:
		user, err := s.users.GetByID(ctx, *selectedUserID)
		if err != nil {
			return nil, err
		}
		change.UserID = user.ID
		change.Name = user.Name
		linkage = "linked_existing"
	default:
		existing, err := s.users.FindByTelegramID(ctx, request.TelegramID)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			change.UserID = existing.ID
			change.Name = existing.Name
		} else {
			change.Name = masterdata.PlaceholderName(request.TelegramID)
			linkage = "created"
		}
	}

	entry := audit.NewEntry("access_request", request.ID, "approve", actorID(admin), map[string]any{
		"status":  map[string]string{"old": string(admission.StatusPending), "new": string(admission.StatusApproved)},
		"linkage": linkage,
	})
	userID, err := s.repo.Resolve(ctx, ResolveParams{
		RequestID:       request.ID,
		Status:          admission.StatusApproved,
		AdminTelegramID: admin.TelegramID,
		Response:        responseApproved,
		User:            &change,
		Entry:           entry,
	})
	if err != nil {
		s.logger.Printf("admission: approve of request %d failed: %v", request.ID, err)
		return nil, err
	}

	request.Status = admission.StatusApproved
	request.AdminTelegramID = admin.TelegramID
	request.AdminResponse = responseApproved

	s.logger.Printf("admission: request %d approved by user %d (user %d %s)", request.ID, admin.ID, userID, linkage)
	s.send(ctx, request.TelegramID, notify.KindWelcome)
	return request, nil
}

// Reject resolves a pending request negatively. No user is created or
// mutated; only the status, admin identity and response are recorded.
func (s *Service) Reject(ctx context.Context, requestID int64, admin masterdata.User) (*admission.AccessRequest, error) {
	request, err := s.repo.GetByID(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request.Resolved() {
		return nil, admission.ErrAlreadyResolved
	}

	entry := audit.NewEntry("access_request", request.ID, "reject", actorID(admin), map[string]any{
		"status": map[string]string{"old": string(admission.StatusPending), "new": string(admission.StatusRejected)},
	})
	_, err = s.repo.Resolve(ctx, ResolveParams{
		RequestID:       request.ID,
		Status:          admission.StatusRejected,
		AdminTelegramID: admin.TelegramID,
		Response:        responseRejected,
		Entry:           entry,
	})
	if err != nil {
		s.logger.Printf("admission: reject of request %d failed: %v", request.ID, err)
		return nil, err
	}

	request.Status = admission.StatusRejected
	request.AdminTelegramID = admin.TelegramID
	request.AdminResponse = responseRejected

	s.logger.Printf("admission: request %d rejected by user %d", request.ID, admin.ID)
	s.send(ctx, request.TelegramID, notify.KindRejection)
	return request, nil
}

// ListPending returns pending requests, oldest first.
func (s *Service) ListPending(ctx context.Context) ([]admission.AccessRequest, error) {
	return s.repo.ListPending(ctx)
}

func (s *Service) send(ctx context.Context, telegramID int64, kind notify.MessageKind) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Send(ctx, telegramID, kind); err != nil {
		s.logger.Printf("admission: notify %s to %d failed: %v", kind, telegramID, err)
	}
}

// actorID is the admin's Telegram identity; audit actors are Telegram ids
// across the service.
func actorID(admin masterdata.User) *int64 {
	if admin.TelegramID == nil {
		return nil
	}
	id := *admin.TelegramID
	return &id
}
