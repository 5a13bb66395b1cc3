package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
	"instanteats-auth/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func hashOf(secret string) string {
	return password.HashToken(secret)
}

// In-memory fakes implementing the repository interfaces, keyed by region so
// tests can verify cross-partition isolation. No wall clock: callers pass
// time in, same as the real repositories.

type fakeData struct {
	mu      sync.Mutex
	users   map[string]map[string]*models.User         // region -> id -> user
	tokens  map[string]map[string]*models.RefreshToken // region -> id -> token
	history map[string][]*models.LoginHistory          // region -> entries
	err     error                                      // when set, every call fails with it
}

func newFakeData() *fakeData {
	return &fakeData{
		users:   make(map[string]map[string]*models.User),
		tokens:  make(map[string]map[string]*models.RefreshToken),
		history: make(map[string][]*models.LoginHistory),
	}
}

func (d *fakeData) addUser(region string, user *models.User) *models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	user.Region = region
	if d.users[region] == nil {
		d.users[region] = make(map[string]*models.User)
	}
	stored := *user
	d.users[region][user.ID] = &stored
	return user
}

func (d *fakeData) tokenByHash(region, hash string) *models.RefreshToken {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, token := range d.tokens[region] {
		if token.TokenHash == hash {
			copied := *token
			return &copied
		}
	}
	return nil
}

func (d *fakeData) userByID(region, id string) *models.User {
	d.mu.Lock()
	defer d.mu.Unlock()
	if user, ok := d.users[region][id]; ok {
		copied := *user
		return &copied
	}
	return nil
}

func (d *fakeData) setUserRole(region, id, role string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if user, ok := d.users[region][id]; ok {
		user.Role = role
	}
}

func (d *fakeData) historyFor(region string) []*models.LoginHistory {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*models.LoginHistory, len(d.history[region]))
	copy(out, d.history[region])
	return out
}

// ---- user repository ----

// failureConflicts simulates losing the conditional failed-attempt update:
// while positive, each RecordLoginFailure call has a concurrent failure land
// first (the stored counter moves) and the caller's write is rejected.
type fakeUserRepo struct {
	d                *fakeData
	failureConflicts int
}

func (r *fakeUserRepo) Create(ctx context.Context, region string, user *models.User) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.addUser(region, user)
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, region, id string) (*models.User, error) {
	if r.d.err != nil {
		return nil, r.d.err
	}
	if user := r.d.userByID(region, id); user != nil {
		return user, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, region, email string) (*models.User, error) {
	if r.d.err != nil {
		return nil, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, user := range r.d.users[region] {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) ExistsByEmail(ctx context.Context, region, email string) (bool, error) {
	if r.d.err != nil {
		return false, r.d.err
	}
	_, err := r.GetByEmail(ctx, region, email)
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	return err == nil, err
}

func (r *fakeUserRepo) RecordLoginFailure(ctx context.Context, region, id string, observedAttempts, newAttempts int, lockedUntil *time.Time) (bool, error) {
	if r.d.err != nil {
		return false, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	user, ok := r.d.users[region][id]
	if !ok {
		return false, nil
	}
	if r.failureConflicts > 0 {
		r.failureConflicts--
		user.FailedLoginAttempts++
		return false, nil
	}
	if user.FailedLoginAttempts != observedAttempts {
		return false, nil
	}
	user.FailedLoginAttempts = newAttempts
	if lockedUntil != nil {
		user.AccountLockedUntil = lockedUntil
	}
	return true, nil
}

func (r *fakeUserRepo) RecordLoginSuccess(ctx context.Context, region, id string, at time.Time, ip string) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	user, ok := r.d.users[region][id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	user.FailedLoginAttempts = 0
	user.AccountLockedUntil = nil
	user.LastLogin = &at
	user.LastLoginIP = ip
	return nil
}

// ---- refresh token repository ----

type fakeTokenRepo struct {
	d   *fakeData
	seq int // monotonic creation order stand-in for autoCreateTime
}

func (r *fakeTokenRepo) Create(ctx context.Context, region string, token *models.RefreshToken) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	if token.CreatedAt.IsZero() {
		r.seq++
		token.CreatedAt = time.Unix(int64(r.seq), 0)
	}
	if r.d.tokens[region] == nil {
		r.d.tokens[region] = make(map[string]*models.RefreshToken)
	}
	stored := *token
	r.d.tokens[region][token.ID] = &stored
	return nil
}

func (r *fakeTokenRepo) GetByTokenHash(ctx context.Context, region, tokenHash string) (*models.RefreshToken, error) {
	if r.d.err != nil {
		return nil, r.d.err
	}
	if token := r.d.tokenByHash(region, tokenHash); token != nil {
		return token, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTokenRepo) GetByIDForUser(ctx context.Context, region, id, userID string) (*models.RefreshToken, error) {
	if r.d.err != nil {
		return nil, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if token, ok := r.d.tokens[region][id]; ok && token.UserID == userID {
		copied := *token
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeTokenRepo) activeLocked(region, userID string, now time.Time) []*models.RefreshToken {
	var out []*models.RefreshToken
	for _, token := range r.d.tokens[region] {
		if token.UserID == userID && token.IsActive(now) {
			out = append(out, token)
		}
	}
	return out
}

func (r *fakeTokenRepo) CountActiveByUserID(ctx context.Context, region, userID string, now time.Time) (int64, error) {
	if r.d.err != nil {
		return 0, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	return int64(len(r.activeLocked(region, userID, now))), nil
}

func (r *fakeTokenRepo) OldestActiveByUserID(ctx context.Context, region, userID string, now time.Time) (*models.RefreshToken, error) {
	if r.d.err != nil {
		return nil, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	active := r.activeLocked(region, userID, now)
	if len(active) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].CreatedAt.Before(active[j].CreatedAt)
	})
	copied := *active[0]
	return &copied, nil
}

func (r *fakeTokenRepo) ListActiveByUserID(ctx context.Context, region, userID string, now time.Time) ([]*models.RefreshToken, error) {
	if r.d.err != nil {
		return nil, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	active := r.activeLocked(region, userID, now)
	sort.Slice(active, func(i, j int) bool {
		iUsed, jUsed := active[i].LastUsedAt, active[j].LastUsedAt
		switch {
		case iUsed != nil && jUsed != nil && !iUsed.Equal(*jUsed):
			return iUsed.After(*jUsed)
		case iUsed != nil && jUsed == nil:
			return true
		case iUsed == nil && jUsed != nil:
			return false
		default:
			return active[i].CreatedAt.After(active[j].CreatedAt)
		}
	})
	out := make([]*models.RefreshToken, 0, len(active))
	for _, token := range active {
		copied := *token
		out = append(out, &copied)
	}
	return out, nil
}

func (r *fakeTokenRepo) Revoke(ctx context.Context, region, id string, at time.Time, reason string) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if token, ok := r.d.tokens[region][id]; ok {
		token.IsRevoked = true
		token.RevokedAt = &at
		token.RevokedReason = reason
	}
	return nil
}

func (r *fakeTokenRepo) RevokeByTokenHash(ctx context.Context, region, tokenHash string, at time.Time, reason string) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, token := range r.d.tokens[region] {
		if token.TokenHash == tokenHash && !token.IsRevoked {
			token.IsRevoked = true
			token.RevokedAt = &at
			token.RevokedReason = reason
		}
	}
	return nil
}

func (r *fakeTokenRepo) RevokeAllByUserID(ctx context.Context, region, userID string, at time.Time, reason string) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	for _, token := range r.d.tokens[region] {
		if token.UserID == userID && !token.IsRevoked {
			token.IsRevoked = true
			token.RevokedAt = &at
			token.RevokedReason = reason
		}
	}
	return nil
}

func (r *fakeTokenRepo) Touch(ctx context.Context, region, id string, at time.Time) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	if token, ok := r.d.tokens[region][id]; ok {
		token.LastUsedAt = &at
	}
	return nil
}

// ---- login history repository ----

type fakeHistoryRepo struct{ d *fakeData }

func (r *fakeHistoryRepo) Create(ctx context.Context, region string, entry *models.LoginHistory) error {
	if r.d.err != nil {
		return r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	copied := *entry
	r.d.history[region] = append(r.d.history[region], &copied)
	return nil
}

func (r *fakeHistoryRepo) ListByUserID(ctx context.Context, region, userID string, offset, limit int) ([]*models.LoginHistory, int64, error) {
	if r.d.err != nil {
		return nil, 0, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var matched []*models.LoginHistory
	for _, entry := range r.d.history[region] {
		if entry.UserID != nil && *entry.UserID == userID {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})
	total := int64(len(matched))
	if offset >= len(matched) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	out := make([]*models.LoginHistory, 0, end-offset)
	for _, entry := range matched[offset:end] {
		copied := *entry
		out = append(out, &copied)
	}
	return out, total, nil
}

func (r *fakeHistoryRepo) DeleteOlderThan(ctx context.Context, region string, cutoff time.Time) (int64, error) {
	if r.d.err != nil {
		return 0, r.d.err
	}
	r.d.mu.Lock()
	defer r.d.mu.Unlock()
	var kept []*models.LoginHistory
	var deleted int64
	for _, entry := range r.d.history[region] {
		if entry.Timestamp.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, entry)
	}
	r.d.history[region] = kept
	return deleted, nil
}

// ---- clock ----

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock(start time.Time) *testClock {
	return &testClock{t: start}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}
