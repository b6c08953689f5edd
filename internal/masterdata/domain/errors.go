package masterdata

import "errors"

var (
	// ErrUserNotFound is returned when a user id resolves to nothing.
	ErrUserNotFound = errors.New("masterdata: user not found")
	// ErrAccountNotFound is returned when an account id resolves to nothing.
	ErrAccountNotFound = errors.New("masterdata: account not found")
)
