package admission

import "errors"

var (
	// ErrRequestNotFound is returned when a request id resolves to nothing.
	ErrRequestNotFound = errors.New("admission: request not found")
	// ErrPendingExists is returned by the store when an identity already has
	// a pending request. The service treats it as a soft no-op.
	ErrPendingExists = errors.New("admission: pending request already exists")
	// ErrAlreadyResolved is returned when approving or rejecting a request
	// that has already left the pending state.
	ErrAlreadyResolved = errors.New("admission: request already resolved")
)
