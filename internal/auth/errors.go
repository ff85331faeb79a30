package auth

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidCredentials covers bad username, bad password and bad 2FA
	// code alike. Callers are deliberately unable to tell which.
	ErrInvalidCredentials = errors.New("authentication failed")
	ErrPasswordReused     = errors.New("password was used recently")
)

type AccountLockedError struct {
	Until time.Time
}

func (e *AccountLockedError) Error() string {
	return "account temporarily locked"
}

func NewAccountLockedError(until time.Time) *AccountLockedError {
	return &AccountLockedError{Until: until}
}

type PasswordPolicyError struct {
	Reason string
}

func (e *PasswordPolicyError) Error() string {
	return fmt.Sprintf("password policy violation: %s", e.Reason)
}
