package memory

import (
	"context"
	"sync"
	"time"

	"community-ledger/internal/admission/application"
	admission "community-ledger/internal/admission/domain"
	"community-ledger/internal/audit"
	masterdata "community-ledger/internal/masterdata/domain"
	mdmem "community-ledger/internal/masterdata/infrastructure/memory"
)

// Repository is an in-memory access request store for tests. User mutations
// carried by a resolution are applied to the wrapped masterdata store, and
// audit entries go to the shared trail, mirroring the transactional store.
type Repository struct {
	mu       sync.Mutex
	nextID   int64
	requests map[int64]*admission.AccessRequest
	users    *mdmem.Store
	trail    *audit.Trail
}

// NewRepository constructs an empty store.
func NewRepository(users *mdmem.Store, trail *audit.Trail) *Repository {
	return &Repository{
		nextID:   1,
		requests: make(map[int64]*admission.AccessRequest),
		users:    users,
		trail:    trail,
	}
}

// GetByID returns a request by id.
func (r *Repository) GetByID(_ context.Context, id int64) (*admission.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, admission.ErrRequestNotFound
	}
	copy := *request
	return &copy, nil
}

// ListPending returns pending requests ordered by id.
func (r *Repository) ListPending(_ context.Context) ([]admission.AccessRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var pending []admission.AccessRequest
	for id := int64(1); id < r.nextID; id++ {
		if request, ok := r.requests[id]; ok && request.Status == admission.StatusPending {
			pending = append(pending, *request)
		}
	}
	return pending, nil
}

// Create stores a pending request, rejecting a second pending request for
// the same Telegram identity.
func (r *Repository) Create(ctx context.Context, request *admission.AccessRequest, entry audit.Entry) error {
	r.mu.Lock()
	for _, existing := range r.requests {
		if existing.TelegramID == request.TelegramID && existing.Status == admission.StatusPending {
			r.mu.Unlock()
			return admission.ErrPendingExists
		}
	}
	request.ID = r.nextID
	r.nextID++
	stored := *request
	r.requests[stored.ID] = &stored
	r.mu.Unlock()

	if r.trail != nil {
		entry.EntityID = stored.ID
		return r.trail.Log(ctx, entry)
	}
	return nil
}

// Resolve flips a pending request to a terminal status and applies the
// user change, if any.
func (r *Repository) Resolve(ctx context.Context, params application.ResolveParams) (int64, error) {
	r.mu.Lock()
	request, ok := r.requests[params.RequestID]
	if !ok {
		r.mu.Unlock()
		return 0, admission.ErrRequestNotFound
	}
	if request.Status != admission.StatusPending {
		r.mu.Unlock()
		return 0, admission.ErrAlreadyResolved
	}
	now := time.Now().UTC()
	request.Status = params.Status
	request.AdminTelegramID = params.AdminTelegramID
	request.AdminResponse = params.Response
	request.ResolvedAt = &now
	r.mu.Unlock()

	var userID int64
	if params.User != nil && r.users != nil {
		change := *params.User
		tid := change.TelegramID
		user := masterdata.User{
			ID:         change.UserID,
			Name:       change.Name,
			TelegramID: &tid,
			Username:   change.Username,
			IsActive:   change.Activate,
		}
		if change.UserID == 0 {
			created := r.users.AddUser(user)
			userID = created.ID
		} else {
			if err := r.users.UpdateUser(user); err != nil {
				return 0, err
			}
			userID = change.UserID
		}
	}

	if r.trail != nil {
		if err := r.trail.Log(ctx, params.Entry); err != nil {
			return 0, err
		}
	}
	return userID, nil
}
