package services

import (
	"context"
	"errors"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
	"instanteats-auth/internal/adapters/persistence/repositories"
	"instanteats-auth/internal/core/domain"

	"gorm.io/gorm"
)

// SessionService is the read/administrative view over the refresh ledger:
// listing a user's live sessions and revoking one by id. All operations are
// scoped to the calling user.
type SessionService struct {
	tokens  repositories.RefreshTokenRepository
	history repositories.LoginHistoryRepository
	now     func() time.Time
}

// NewSessionService creates a new session service
func NewSessionService(tokens repositories.RefreshTokenRepository, history repositories.LoginHistoryRepository) *SessionService {
	return &SessionService{
		tokens:  tokens,
		history: history,
		now:     time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *SessionService) WithClock(now func() time.Time) *SessionService {
	s.now = now
	return s
}

// ListActive lists a user's live sessions, most recently used first
func (s *SessionService) ListActive(ctx context.Context, userID, region string) ([]*models.SessionResponse, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	records, err := s.tokens.ListActiveByUserID(ctx, region, userID, s.now())
	if err != nil {
		return nil, mapStoreError(err)
	}

	sessions := make([]*models.SessionResponse, 0, len(records))
	for _, record := range records {
		sessions = append(sessions, record.ToSessionResponse())
	}
	return sessions, nil
}

// RevokeByID revokes one session by id. The lookup is scoped to the owner, so
// a session belonging to another user reads as not found.
func (s *SessionService) RevokeByID(ctx context.Context, sessionID, userID, region string) error {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	record, err := s.tokens.GetByIDForUser(ctx, region, sessionID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.ErrSessionNotFound
		}
		return mapStoreError(err)
	}

	if err := s.tokens.Revoke(ctx, region, record.ID, s.now(), domain.ReasonUserRevoked); err != nil {
		return mapStoreError(err)
	}
	return nil
}

// LoginHistory lists a user's login audit entries, newest first
func (s *SessionService) LoginHistory(ctx context.Context, userID, region string, offset, limit int) ([]*models.LoginHistory, int64, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	entries, total, err := s.history.ListByUserID(ctx, region, userID, offset, limit)
	if err != nil {
		return nil, 0, mapStoreError(err)
	}
	return entries, total, nil
}
