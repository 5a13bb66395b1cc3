package repositories

import (
	"context"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
)

// userRepository implements UserRepository interface
type userRepository struct {
	resolver PartitionResolver
}

// NewUserRepository creates a new user repository
func NewUserRepository(resolver PartitionResolver) UserRepository {
	return &userRepository{resolver: resolver}
}

// Create creates a new user
func (r *userRepository) Create(ctx context.Context, region string, user *models.User) error {
	return r.resolver.Resolve(region).WithContext(ctx).Create(user).Error
}

// GetByID gets a user by ID
func (r *userRepository) GetByID(ctx context.Context, region, id string) (*models.User, error) {
	var user models.User
	err := r.resolver.Resolve(region).WithContext(ctx).Where("id = ?", id).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByEmail gets a user by email
func (r *userRepository) GetByEmail(ctx context.Context, region, email string) (*models.User, error) {
	var user models.User
	err := r.resolver.Resolve(region).WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByEmail checks if email exists
func (r *userRepository) ExistsByEmail(ctx context.Context, region, email string) (bool, error) {
	var count int64
	err := r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// RecordLoginFailure conditionally bumps the failed-attempt counter. The WHERE
// on the observed counter makes the read-modify-write safe without a row lock.
func (r *userRepository) RecordLoginFailure(ctx context.Context, region, id string, observedAttempts, newAttempts int, lockedUntil *time.Time) (bool, error) {
	updates := map[string]interface{}{
		"failed_login_attempts": newAttempts,
	}
	if lockedUntil != nil {
		updates["account_locked_until"] = lockedUntil
	}

	result := r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ? AND failed_login_attempts = ?", id, observedAttempts).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// RecordLoginSuccess resets counters and stamps the last login
func (r *userRepository) RecordLoginSuccess(ctx context.Context, region, id string, at time.Time, ip string) error {
	return r.resolver.Resolve(region).WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"account_locked_until":  nil,
			"last_login":            at,
			"last_login_ip":         ip,
		}).Error
}
