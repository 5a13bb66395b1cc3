package services

import (
	"context"
	"log"
	"math"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
	"instanteats-auth/internal/adapters/persistence/repositories"
	"instanteats-auth/internal/core/domain"
)

const (
	// maxFailedAttempts is the consecutive-failure threshold that locks the account
	maxFailedAttempts = 5
	// lockDuration is how long a lock holds; it lifts by time alone
	lockDuration = 15 * time.Minute
	// failureUpdateRetries bounds the conditional-update retry loop
	failureUpdateRetries = 3
)

// LoginGuard tracks failed login attempts and drives the lockout state
// machine on the user record. Every attempt, success or failure, appends one
// login history entry.
type LoginGuard struct {
	users   repositories.UserRepository
	history repositories.LoginHistoryRepository
	now     func() time.Time
}

// NewLoginGuard creates a new login guard
func NewLoginGuard(users repositories.UserRepository, history repositories.LoginHistoryRepository) *LoginGuard {
	return &LoginGuard{
		users:   users,
		history: history,
		now:     time.Now,
	}
}

// WithClock overrides the time source (tests)
func (g *LoginGuard) WithClock(now func() time.Time) *LoginGuard {
	g.now = now
	return g
}

// AttemptInfo is request metadata recorded with every attempt
type AttemptInfo struct {
	IPAddress string
	UserAgent string
}

// CheckLocked rejects the attempt when the account lock window still covers
// now. A locked attempt does not bump the counter.
func (g *LoginGuard) CheckLocked(ctx context.Context, user *models.User, attempt AttemptInfo) error {
	now := g.now()
	if !user.IsLocked(now) {
		return nil
	}

	g.audit(ctx, user.Region, &user.ID, user.Email, false, models.FailureAccountLocked, attempt)

	minutes := int(math.Ceil(user.AccountLockedUntil.Sub(now).Minutes()))
	return &domain.LockedError{
		LockedUntil:      *user.AccountLockedUntil,
		MinutesRemaining: minutes,
	}
}

// RecordFailure registers one failed password attempt. The fifth consecutive
// failure locks the account for lockDuration. The counter update is
// conditional on the observed value and retried on conflict so concurrent
// failures cannot under-count.
func (g *LoginGuard) RecordFailure(ctx context.Context, user *models.User, attempt AttemptInfo) error {
	observed := user.FailedLoginAttempts
	attempts := observed + 1
	applied := false

	for i := 0; i < failureUpdateRetries; i++ {
		attempts = observed + 1

		var lockedUntil *time.Time
		if attempts >= maxFailedAttempts {
			until := g.now().Add(lockDuration)
			lockedUntil = &until
		}

		ok, err := g.users.RecordLoginFailure(ctx, user.Region, user.ID, observed, attempts, lockedUntil)
		if err != nil {
			return mapStoreError(err)
		}
		if ok {
			applied = true
			break
		}

		// Lost the race with a concurrent failure; re-read and try again
		fresh, err := g.users.GetByID(ctx, user.Region, user.ID)
		if err != nil {
			return mapStoreError(err)
		}
		observed = fresh.FailedLoginAttempts
	}

	if !applied {
		// Every retry lost to a concurrent writer whose increments are already
		// persisted; report remaining attempts against the freshest read
		log.Printf("❌ Failed-attempt update lost %d races for %s", failureUpdateRetries, user.Email)
		attempts = observed + 1
	}

	g.audit(ctx, user.Region, &user.ID, user.Email, false, models.FailureInvalidPassword, attempt)

	remaining := maxFailedAttempts - attempts
	if remaining < 0 {
		remaining = 0
	}
	return &domain.CredentialsError{AttemptsRemaining: remaining}
}

// RecordSuccess resets the counters, clears any lock and stamps last login
func (g *LoginGuard) RecordSuccess(ctx context.Context, user *models.User, attempt AttemptInfo) error {
	if err := g.users.RecordLoginSuccess(ctx, user.Region, user.ID, g.now(), attempt.IPAddress); err != nil {
		return mapStoreError(err)
	}
	g.audit(ctx, user.Region, &user.ID, user.Email, true, "", attempt)
	return nil
}

// RecordUnknownEmail audits an attempt against an email with no account
func (g *LoginGuard) RecordUnknownEmail(ctx context.Context, region, email string, attempt AttemptInfo) {
	g.audit(ctx, region, nil, email, false, models.FailureInvalidEmail, attempt)
}

// audit appends one history entry. Audit failures are logged, not surfaced;
// they must not turn a login verdict into an error.
func (g *LoginGuard) audit(ctx context.Context, region string, userID *string, email string, success bool, reason string, attempt AttemptInfo) {
	entry := &models.LoginHistory{
		UserID:        userID,
		Email:         email,
		Success:       success,
		FailureReason: reason,
		IPAddress:     attempt.IPAddress,
		UserAgent:     attempt.UserAgent,
		Timestamp:     g.now(),
	}
	if err := g.history.Create(ctx, region, entry); err != nil {
		log.Printf("❌ Failed to record login history for %s: %v", email, err)
	}
}
