package repositories

import (
	"context"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
)

// loginHistoryRepository implements LoginHistoryRepository interface
type loginHistoryRepository struct {
	resolver PartitionResolver
}

// NewLoginHistoryRepository creates a new login history repository
func NewLoginHistoryRepository(resolver PartitionResolver) LoginHistoryRepository {
	return &loginHistoryRepository{resolver: resolver}
}

// Create appends one audit entry
func (r *loginHistoryRepository) Create(ctx context.Context, region string, entry *models.LoginHistory) error {
	return r.resolver.Resolve(region).WithContext(ctx).Create(entry).Error
}

// ListByUserID lists a user's login history, newest first, with pagination
func (r *loginHistoryRepository) ListByUserID(ctx context.Context, region, userID string, offset, limit int) ([]*models.LoginHistory, int64, error) {
	db := r.resolver.Resolve(region).WithContext(ctx)

	var total int64
	if err := db.Model(&models.LoginHistory{}).Where("user_id = ?", userID).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var entries []*models.LoginHistory
	err := db.
		Where("user_id = ?", userID).
		Order("timestamp DESC").
		Offset(offset).
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// DeleteOlderThan drops audit entries past the retention window
func (r *loginHistoryRepository) DeleteOlderThan(ctx context.Context, region string, cutoff time.Time) (int64, error) {
	result := r.resolver.Resolve(region).WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&models.LoginHistory{})
	return result.RowsAffected, result.Error
}
