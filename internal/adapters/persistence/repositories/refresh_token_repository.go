package repositories

import (
	"context"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
)

// refreshTokenRepository implements RefreshTokenRepository interface
type refreshTokenRepository struct {
	resolver PartitionResolver
}

// NewRefreshTokenRepository creates a new refresh token repository
func NewRefreshTokenRepository(resolver PartitionResolver) RefreshTokenRepository {
	return &refreshTokenRepository{resolver: resolver}
}

// Create persists a new refresh token record
func (r *refreshTokenRepository) Create(ctx context.Context, region string, token *models.RefreshToken) error {
	return r.resolver.Resolve(region).WithContext(ctx).Create(token).Error
}

// GetByTokenHash gets a refresh token by its hash, revoked or not
func (r *refreshTokenRepository) GetByTokenHash(ctx context.Context, region, tokenHash string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.resolver.Resolve(region).WithContext(ctx).
		Where("token_hash = ?", tokenHash).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// GetByIDForUser gets a refresh token by ID scoped to its owner
func (r *refreshTokenRepository) GetByIDForUser(ctx context.Context, region, id, userID string) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.resolver.Resolve(region).WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// CountActiveByUserID counts non-revoked, non-expired sessions for a user
func (r *refreshTokenRepository) CountActiveByUserID(ctx context.Context, region, userID string, now time.Time) (int64, error) {
	var count int64
	err := r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Where("is_revoked = ?", false).
		Where("expires_at > ?", now).
		Count(&count).Error
	return count, err
}

// OldestActiveByUserID returns the session first in line for cap eviction
func (r *refreshTokenRepository) OldestActiveByUserID(ctx context.Context, region, userID string, now time.Time) (*models.RefreshToken, error) {
	var token models.RefreshToken
	err := r.resolver.Resolve(region).WithContext(ctx).
		Where("user_id = ?", userID).
		Where("is_revoked = ?", false).
		Where("expires_at > ?", now).
		Order("created_at ASC").
		First(&token).Error
	if err != nil {
		return nil, err
	}
	return &token, nil
}

// ListActiveByUserID lists live sessions, most recently used first
func (r *refreshTokenRepository) ListActiveByUserID(ctx context.Context, region, userID string, now time.Time) ([]*models.RefreshToken, error) {
	var tokens []*models.RefreshToken
	err := r.resolver.Resolve(region).WithContext(ctx).
		Where("user_id = ?", userID).
		Where("is_revoked = ?", false).
		Where("expires_at > ?", now).
		Order("last_used_at DESC, created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// Revoke revokes a refresh token by ID
func (r *refreshTokenRepository) Revoke(ctx context.Context, region, id string, at time.Time, reason string) error {
	return r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_revoked":     true,
			"revoked_at":     at,
			"revoked_reason": reason,
		}).Error
}

// RevokeByTokenHash revokes a refresh token by its hash. Matching zero rows is
// not an error, so revoking an already-revoked token is a no-op.
func (r *refreshTokenRepository) RevokeByTokenHash(ctx context.Context, region, tokenHash string, at time.Time, reason string) error {
	return r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("token_hash = ?", tokenHash).
		Where("is_revoked = ?", false).
		Updates(map[string]interface{}{
			"is_revoked":     true,
			"revoked_at":     at,
			"revoked_reason": reason,
		}).Error
}

// RevokeAllByUserID revokes all live refresh tokens for a user
func (r *refreshTokenRepository) RevokeAllByUserID(ctx context.Context, region, userID string, at time.Time, reason string) error {
	return r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Where("is_revoked = ?", false).
		Updates(map[string]interface{}{
			"is_revoked":     true,
			"revoked_at":     at,
			"revoked_reason": reason,
		}).Error
}

// Touch stamps the last-used time on a session
func (r *refreshTokenRepository) Touch(ctx context.Context, region, id string, at time.Time) error {
	return r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.RefreshToken{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
