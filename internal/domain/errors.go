package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidOrder       = errors.New("invalid order parameters")
	ErrUserRejected       = errors.New("transaction rejected by user")
	ErrReverted           = errors.New("transaction reverted on-chain")
	ErrNetwork            = errors.New("network failure")
	ErrSubmissionInFlight = errors.New("order submission already in flight")
	ErrLockHeld           = errors.New("lock already held")
	ErrDisclaimer         = errors.New("disclaimer not accepted")
)
