package repositories

import (
	"context"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
)

// Every method takes the user's region so the call lands on the right
// partition. Time is passed in by callers; repositories never read the clock.

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, region string, user *models.User) error
	GetByID(ctx context.Context, region, id string) (*models.User, error)
	GetByEmail(ctx context.Context, region, email string) (*models.User, error)
	ExistsByEmail(ctx context.Context, region, email string) (bool, error)

	// RecordLoginFailure applies the failed-attempt counter and optional lock
	// as a conditional update: it only succeeds when the stored counter still
	// equals observedAttempts, so two concurrent failures cannot under-count.
	// Returns false when another writer got there first.
	RecordLoginFailure(ctx context.Context, region, id string, observedAttempts, newAttempts int, lockedUntil *time.Time) (bool, error)

	// RecordLoginSuccess resets the failed-attempt counter, clears any lock
	// and stamps the last login.
	RecordLoginSuccess(ctx context.Context, region, id string, at time.Time, ip string) error
}

// RefreshTokenRepository defines refresh token repository interface
type RefreshTokenRepository interface {
	Create(ctx context.Context, region string, token *models.RefreshToken) error

	// GetByTokenHash returns the record whatever its state; callers decide
	// between revoked, expired and live.
	GetByTokenHash(ctx context.Context, region, tokenHash string) (*models.RefreshToken, error)

	// GetByIDForUser scopes the lookup to the owning user so one user cannot
	// address another user's session.
	GetByIDForUser(ctx context.Context, region, id, userID string) (*models.RefreshToken, error)

	CountActiveByUserID(ctx context.Context, region, userID string, now time.Time) (int64, error)
	OldestActiveByUserID(ctx context.Context, region, userID string, now time.Time) (*models.RefreshToken, error)
	ListActiveByUserID(ctx context.Context, region, userID string, now time.Time) ([]*models.RefreshToken, error)

	Revoke(ctx context.Context, region, id string, at time.Time, reason string) error
	RevokeByTokenHash(ctx context.Context, region, tokenHash string, at time.Time, reason string) error
	RevokeAllByUserID(ctx context.Context, region, userID string, at time.Time, reason string) error

	Touch(ctx context.Context, region, id string, at time.Time) error
}

// LoginHistoryRepository defines the append-only audit log interface
type LoginHistoryRepository interface {
	Create(ctx context.Context, region string, entry *models.LoginHistory) error
	ListByUserID(ctx context.Context, region, userID string, offset, limit int) ([]*models.LoginHistory, int64, error)
	DeleteOlderThan(ctx context.Context, region string, cutoff time.Time) (int64, error)
}
