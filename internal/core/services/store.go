package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"instanteats-auth/internal/core/domain"

	"gorm.io/gorm"
)

// storeTimeout bounds every persistence call. A slow shard surfaces as
// StoreUnavailable, never as a credential or token verdict.
const storeTimeout = 5 * time.Second

func withStoreTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, storeTimeout)
}

// mapStoreError translates store failures into the transient
// StoreUnavailable kind. Record-not-found passes through untouched so callers
// can turn it into the right auth error.
func mapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}
