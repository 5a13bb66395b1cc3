package domain

import (
	"errors"
	"fmt"
	"time"
)

// Auth errors. Handlers map these to HTTP statuses; nothing below this
// package leaks store or crypto internals to a client.
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrAccountSuspended   = errors.New("account suspended")
	ErrAccountPending     = errors.New("account pending verification")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrTokenNotFound      = errors.New("token not found")
	ErrInvalidToken       = errors.New("invalid token")
	ErrWrongTokenType     = errors.New("wrong token type")
	ErrUnknownRole        = errors.New("unknown role")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrSessionNotFound    = errors.New("session not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
)

// CredentialsError is an invalid-credentials failure that carries how many
// attempts remain before the account locks. errors.Is reports
// ErrInvalidCredentials for it.
type CredentialsError struct {
	AttemptsRemaining int
}

func (e *CredentialsError) Error() string {
	return fmt.Sprintf("invalid credentials (%d attempts remaining)", e.AttemptsRemaining)
}

func (e *CredentialsError) Unwrap() error {
	return ErrInvalidCredentials
}

// LockedError is an account-locked failure carrying when the lock lifts.
// errors.Is reports ErrAccountLocked for it.
type LockedError struct {
	LockedUntil      time.Time
	MinutesRemaining int
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("account locked for %d more minutes", e.MinutesRemaining)
}

func (e *LockedError) Unwrap() error {
	return ErrAccountLocked
}
