package application_test

import (
	"context"
	"errors"
	"log"
	"sync"
	"testing"

	"community-ledger/internal/admission/application"
	admission "community-ledger/internal/admission/domain"
	admmem "community-ledger/internal/admission/infrastructure/memory"
	"community-ledger/internal/audit"
	masterdata "community-ledger/internal/masterdata/domain"
	mdmem "community-ledger/internal/masterdata/infrastructure/memory"
	"community-ledger/internal/notify"
)

type stubNotifier struct {
	mu     sync.Mutex
	sent   []notify.MessageKind
	admins []notify.MessageKind
	fail   bool
}

func (s *stubNotifier) Send(_ context.Context, _ int64, kind notify.MessageKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("stub notifier: send failed")
	}
	s.sent = append(s.sent, kind)
	return nil
}

func (s *stubNotifier) NotifyAdmins(_ context.Context, kind notify.MessageKind, _ int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("stub notifier: send failed")
	}
	s.admins = append(s.admins, kind)
	return nil
}

type fixture struct {
	service  *application.Service
	repo     *admmem.Repository
	users    *mdmem.Store
	trail    *audit.Trail
	notifier *stubNotifier
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	users := mdmem.NewStore()
	trail := audit.NewTrail()
	repo := admmem.NewRepository(users, trail)
	notifier := &stubNotifier{}
	service, err := application.NewService(repo, users, notifier, log.Default())
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{service: service, repo: repo, users: users, trail: trail, notifier: notifier}
}

func admin() masterdata.User {
	tid := int64(900)
	return masterdata.User{ID: 1, Name: "Admin", TelegramID: &tid, IsActive: true}
}

func TestCreateRequestDuplicatePendingIsNoOp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.service.CreateRequest(ctx, 42, "let me in", "newcomer")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if first == nil || first.ID == 0 {
		t.Fatalf("expected stored request, got %+v", first)
	}

	second, err := f.service.CreateRequest(ctx, 42, "again", "newcomer")
	if err != nil {
		t.Fatalf("duplicate create request: %v", err)
	}
	if second != nil {
		t.Fatalf("expected nil request for duplicate pending, got %+v", second)
	}

	pending, err := f.service.ListPending(ctx)
	if err != nil {
		t.Fatalf("list pending: %v", err)
	}
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending request, got %d", len(pending))
	}

	entries := f.trail.Entries()
	if len(entries) != 1 {
		t.Fatalf("expected 1 audit entry, got %d", len(entries))
	}
	if entries[0].ActorID != nil {
		t.Fatalf("expected nil actor for inbound request, got %v", *entries[0].ActorID)
	}
}

func TestApproveCreatesActiveUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request, err := f.service.CreateRequest(ctx, 42, "let me in", "newcomer")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	approved, err := f.service.Approve(ctx, request.ID, admin(), nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if approved.Status != admission.StatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}
	if approved.AdminTelegramID == nil || *approved.AdminTelegramID != 900 {
		t.Fatalf("expected admin telegram id 900, got %v", approved.AdminTelegramID)
	}

	user, err := f.users.FindByTelegramID(ctx, 42)
	if err != nil {
		t.Fatalf("find by telegram id: %v", err)
	}
	if user == nil {
		t.Fatal("expected a user linked to telegram id 42")
	}
	if !user.IsActive {
		t.Fatal("expected the created user to be active")
	}
	if user.Name != masterdata.PlaceholderName(42) {
		t.Fatalf("expected placeholder name, got %q", user.Name)
	}

	if len(f.notifier.sent) == 0 || f.notifier.sent[len(f.notifier.sent)-1] != notify.KindWelcome {
		t.Fatalf("expected welcome notification, got %v", f.notifier.sent)
	}
}

func TestApproveLinksSelectedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	member := f.users.AddUser(masterdata.User{Name: "Alice", IsActive: false})
	request, err := f.service.CreateRequest(ctx, 42, "it's me", "alice")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	if _, err := f.service.Approve(ctx, request.ID, admin(), &member.ID); err != nil {
		t.Fatalf("approve: %v", err)
	}

	linked, err := f.users.GetByID(ctx, member.ID)
	if err != nil {
		t.Fatalf("get user: %v", err)
	}
	if linked.TelegramID == nil || *linked.TelegramID != 42 {
		t.Fatalf("expected telegram id 42 linked, got %v", linked.TelegramID)
	}
	if !linked.IsActive {
		t.Fatal("expected linked user to be activated")
	}
}

func TestRejectAfterApproveFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request, err := f.service.CreateRequest(ctx, 42, "let me in", "newcomer")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	if _, err := f.service.Approve(ctx, request.ID, admin(), nil); err != nil {
		t.Fatalf("approve: %v", err)
	}

	_, err = f.service.Reject(ctx, request.ID, admin())
	if !errors.Is(err, admission.ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
}

func TestRejectRecordsResponse(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request, err := f.service.CreateRequest(ctx, 42, "let me in", "newcomer")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	rejected, err := f.service.Reject(ctx, request.ID, admin())
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if rejected.Status != admission.StatusRejected {
		t.Fatalf("expected rejected status, got %s", rejected.Status)
	}
	if rejected.AdminResponse == "" {
		t.Fatal("expected a recorded admin response")
	}

	if user, _ := f.users.FindByTelegramID(ctx, 42); user != nil {
		t.Fatalf("expected no user created on rejection, got %+v", user)
	}
}

func TestNotifierFailureDoesNotFailResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	request, err := f.service.CreateRequest(ctx, 42, "let me in", "newcomer")
	if err != nil {
		t.Fatalf("create request: %v", err)
	}

	f.notifier.fail = true
	approved, err := f.service.Approve(ctx, request.ID, admin(), nil)
	if err != nil {
		t.Fatalf("approve with failing notifier: %v", err)
	}
	if approved.Status != admission.StatusApproved {
		t.Fatalf("expected approved status, got %s", approved.Status)
	}
}
