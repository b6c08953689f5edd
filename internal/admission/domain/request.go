package admission

import "time"

// RequestStatus is the state of an access request. pending is the only
// non-terminal state; approved and rejected admit no further transitions.
type RequestStatus string

const (
	StatusPending  RequestStatus = "pending"
	StatusApproved RequestStatus = "approved"
	StatusRejected RequestStatus = "rejected"
)

// AccessRequest is a pending claim by a Telegram identity seeking admission.
// At most one pending request may exist per identity at any time.
type AccessRequest struct {
	ID              int64
	TelegramID      int64
	Username        string
	Message         string
	Status          RequestStatus
	AdminTelegramID *int64
	AdminResponse   string
	CreatedAt       time.Time
	ResolvedAt      *time.Time
}

// NewAccessRequest builds a pending request for a requester identity.
func NewAccessRequest(telegramID int64, message, username string) *AccessRequest {
	return &AccessRequest{
		TelegramID: telegramID,
		Username:   username,
		Message:    message,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Resolved reports whether the request has reached a terminal state.
func (r *AccessRequest) Resolved() bool {
	return r != nil && r.Status != StatusPending
}
