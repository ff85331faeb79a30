package twofactor

import "errors"

var (
	ErrNotEnrolled     = errors.New("two-factor not enrolled")
	ErrAlreadyEnabled  = errors.New("two-factor already enabled")
	ErrSetupNotStarted = errors.New("two-factor setup not started")
	ErrInvalidCode     = errors.New("invalid two-factor code")
)
