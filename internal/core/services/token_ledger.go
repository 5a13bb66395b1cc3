package services

import (
	"context"
	"errors"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
	"instanteats-auth/internal/adapters/persistence/repositories"
	"instanteats-auth/internal/core/domain"
	"instanteats-auth/internal/pkg/password"

	"gorm.io/gorm"
)

// DeviceInfo describes the device a session was opened from
type DeviceInfo struct {
	DeviceName string
	UserAgent  string
	IPAddress  string
}

// Label returns the free-text device label stored on the session record
func (d DeviceInfo) Label() string {
	if d.DeviceName != "" {
		return d.DeviceName
	}
	if d.UserAgent != "" {
		return d.UserAgent
	}
	return "Unknown Device"
}

// RefreshTokenLedger owns the lifecycle of refresh tokens: issuance with
// per-role session caps, verification with lazy expiry, and revocation. Only
// SHA-256 hashes of secrets are persisted; the plaintext leaves Issue exactly
// once and is never logged.
//
// Verification does not rotate the secret: the same opaque secret stays valid
// until its TTL or explicit revocation. A stolen secret therefore replays
// until then — a known gap, kept until the platform owner calls for rotation.
type RefreshTokenLedger struct {
	users  repositories.UserRepository
	tokens repositories.RefreshTokenRepository
	now    func() time.Time
}

// NewRefreshTokenLedger creates a new refresh token ledger
func NewRefreshTokenLedger(users repositories.UserRepository, tokens repositories.RefreshTokenRepository) *RefreshTokenLedger {
	return &RefreshTokenLedger{
		users:  users,
		tokens: tokens,
		now:    time.Now,
	}
}

// WithClock overrides the time source (tests)
func (l *RefreshTokenLedger) WithClock(now func() time.Time) *RefreshTokenLedger {
	l.now = now
	return l
}

// Issue creates a refresh token for one device session and returns the
// plaintext secret. When the user is already at their role's session cap, the
// oldest surviving session is revoked first (FIFO). Two concurrent issues can
// both pass the count check and overshoot the cap by one until the next
// issuance evicts again; that best-effort bound is accepted.
func (l *RefreshTokenLedger) Issue(ctx context.Context, payload TokenPayload, device DeviceInfo) (string, error) {
	policy, err := domain.PolicyFor(payload.Role)
	if err != nil {
		return "", err
	}

	secret, err := password.NewRefreshSecret()
	if err != nil {
		return "", err
	}

	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	now := l.now()

	count, err := l.tokens.CountActiveByUserID(ctx, payload.Region, payload.UserID, now)
	if err != nil {
		return "", mapStoreError(err)
	}

	if count >= int64(policy.MaxSessions) {
		oldest, err := l.tokens.OldestActiveByUserID(ctx, payload.Region, payload.UserID, now)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", mapStoreError(err)
		}
		if oldest != nil {
			if err := l.tokens.Revoke(ctx, payload.Region, oldest.ID, now, domain.ReasonMaxSessionsExceeded); err != nil {
				return "", mapStoreError(err)
			}
		}
	}

	record := &models.RefreshToken{
		UserID:     payload.UserID,
		TokenHash:  password.HashToken(secret),
		DeviceInfo: device.Label(),
		IPAddress:  device.IPAddress,
		UserAgent:  device.UserAgent,
		ExpiresAt:  now.Add(policy.RefreshTokenTTL),
	}
	if err := l.tokens.Create(ctx, payload.Region, record); err != nil {
		return "", mapStoreError(err)
	}

	return secret, nil
}

// Verify checks a presented secret and returns the owner's identity, read
// live from the user record so a role change takes effect on the next
// refresh. An expired record is revoked in passing (reason "expired") instead
// of waiting on a cleanup sweep.
func (l *RefreshTokenLedger) Verify(ctx context.Context, secret, region string) (TokenPayload, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	record, err := l.tokens.GetByTokenHash(ctx, region, password.HashToken(secret))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPayload{}, domain.ErrTokenNotFound
		}
		return TokenPayload{}, mapStoreError(err)
	}

	if record.IsRevoked {
		return TokenPayload{}, domain.ErrTokenRevoked
	}

	now := l.now()
	if record.IsExpired(now) {
		if err := l.tokens.Revoke(ctx, region, record.ID, now, domain.ReasonExpired); err != nil {
			return TokenPayload{}, mapStoreError(err)
		}
		return TokenPayload{}, domain.ErrTokenExpired
	}

	if err := l.tokens.Touch(ctx, region, record.ID, now); err != nil {
		return TokenPayload{}, mapStoreError(err)
	}

	user, err := l.users.GetByID(ctx, region, record.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return TokenPayload{}, domain.ErrUserNotFound
		}
		return TokenPayload{}, mapStoreError(err)
	}

	return TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   domain.Role(user.Role),
		Region: user.Region,
	}, nil
}

// RevokeOne revokes the session matching a presented secret. Idempotent:
// revoking an already-revoked or unknown secret is a no-op.
func (l *RefreshTokenLedger) RevokeOne(ctx context.Context, secret, region, reason string) error {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	err := l.tokens.RevokeByTokenHash(ctx, region, password.HashToken(secret), l.now(), reason)
	return mapStoreError(err)
}

// RevokeAll revokes every live session for a user
func (l *RefreshTokenLedger) RevokeAll(ctx context.Context, userID, region string) error {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	err := l.tokens.RevokeAllByUserID(ctx, region, userID, l.now(), domain.ReasonLogoutAllDevices)
	return mapStoreError(err)
}
