package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
	"instanteats-auth/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerFixture struct {
	data   *fakeData
	clock  *testClock
	repo   *fakeTokenRepo
	ledger *RefreshTokenLedger
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	data := newFakeData()
	clock := newTestClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	repo := &fakeTokenRepo{d: data}
	ledger := NewRefreshTokenLedger(&fakeUserRepo{d: data}, repo).WithClock(clock.Now)

	return &ledgerFixture{data: data, clock: clock, repo: repo, ledger: ledger}
}

func (f *ledgerFixture) seedUser(t *testing.T, region string, role domain.Role) TokenPayload {
	t.Helper()

	user := f.data.addUser(region, &models.User{
		Email:         role.String() + "@example.com",
		Password:      "irrelevant",
		Role:          role.String(),
		AccountStatus: string(domain.StatusActive),
	})
	return TokenPayload{UserID: user.ID, Email: user.Email, Role: role, Region: region}
}

func (f *ledgerFixture) issue(t *testing.T, payload TokenPayload) string {
	t.Helper()

	secret, err := f.ledger.Issue(context.Background(), payload, DeviceInfo{DeviceName: "test-device"})
	require.NoError(t, err)
	return secret
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	f := newLedgerFixture(t)
	payload := f.seedUser(t, "california", domain.RoleCustomer)

	secret := f.issue(t, payload)
	assert.Len(t, secret, 128)

	got, err := f.ledger.Verify(context.Background(), secret, "california")
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Verify stamps last use
	record := f.data.tokenByHash("california", hashOf(secret))
	require.NotNil(t, record)
	require.NotNil(t, record.LastUsedAt)
	assert.Equal(t, f.clock.Now(), *record.LastUsedAt)
	assert.Equal(t, f.clock.Now().Add(7*24*time.Hour), record.ExpiresAt)
}

func TestVerifyUnknownSecret(t *testing.T) {
	f := newLedgerFixture(t)

	_, err := f.ledger.Verify(context.Background(), "never-issued", "california")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
}

func TestVerifyDoesNotRotateSecret(t *testing.T) {
	f := newLedgerFixture(t)
	payload := f.seedUser(t, "california", domain.RoleCustomer)

	secret := f.issue(t, payload)
	for i := 0; i < 3; i++ {
		f.clock.Advance(time.Hour)
		_, err := f.ledger.Verify(context.Background(), secret, "california")
		require.NoError(t, err)
	}
}

func TestSessionCapEvictsOldestFirst(t *testing.T) {
	for _, role := range domain.AllRoles {
		t.Run(role.String(), func(t *testing.T) {
			f := newLedgerFixture(t)
			payload := f.seedUser(t, "california", role)
			policy, err := domain.PolicyFor(role)
			require.NoError(t, err)

			secrets := make([]string, 0, policy.MaxSessions+1)
			for i := 0; i <= policy.MaxSessions; i++ {
				secrets = append(secrets, f.issue(t, payload))
			}

			count, err := f.repo.CountActiveByUserID(context.Background(), "california", payload.UserID, f.clock.Now())
			require.NoError(t, err)
			assert.Equal(t, int64(policy.MaxSessions), count)

			// The first session was evicted; every later one still verifies
			_, err = f.ledger.Verify(context.Background(), secrets[0], "california")
			assert.ErrorIs(t, err, domain.ErrTokenRevoked)

			evicted := f.data.tokenByHash("california", hashOf(secrets[0]))
			require.NotNil(t, evicted)
			assert.Equal(t, domain.ReasonMaxSessionsExceeded, evicted.RevokedReason)
			require.NotNil(t, evicted.RevokedAt)

			for _, secret := range secrets[1:] {
				_, err := f.ledger.Verify(context.Background(), secret, "california")
				assert.NoError(t, err)
			}
		})
	}
}

func TestRevokedSessionDoesNotCountTowardCap(t *testing.T) {
	f := newLedgerFixture(t)
	payload := f.seedUser(t, "california", domain.RoleDeliveryPartner)

	first := f.issue(t, payload)
	second := f.issue(t, payload)
	require.NoError(t, f.ledger.RevokeOne(context.Background(), first, "california", domain.ReasonUserLogout))

	// Cap is 2; the revoked slot is free so nothing gets evicted
	third := f.issue(t, payload)

	_, err := f.ledger.Verify(context.Background(), second, "california")
	assert.NoError(t, err)
	_, err = f.ledger.Verify(context.Background(), third, "california")
	assert.NoError(t, err)
}

func TestVerifyExpiredRevokesLazily(t *testing.T) {
	f := newLedgerFixture(t)
	payload := f.seedUser(t, "california", domain.RoleCustomer)

	secret := f.issue(t, payload)
	f.clock.Advance(7*24*time.Hour + time.Minute)

	_, err := f.ledger.Verify(context.Background(), secret, "california")
	assert.ErrorIs(t, err, domain.ErrTokenExpired)

	// The expired record was revoked in passing, not left for a sweep
	record := f.data.tokenByHash("california", hashOf(secret))
	require.NotNil(t, record)
	assert.True(t, record.IsRevoked)
	assert.Equal(t, domain.ReasonExpired, record.RevokedReason)
	require.NotNil(t, record.RevokedAt)
	assert.Equal(t, f.clock.Now(), *record.RevokedAt)

	// Subsequent verifies report revoked, same terminal state
	_, err = f.ledger.Verify(context.Background(), secret, "california")
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)
}

func TestVerifyReadsRoleLive(t *testing.T) {
	f := newLedgerFixture(t)
	payload := f.seedUser(t, "california", domain.RoleCustomer)

	secret := f.issue(t, payload)
	f.data.setUserRole("california", payload.UserID, domain.RoleAdmin.String())

	got, err := f.ledger.Verify(context.Background(), secret, "california")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, got.Role)
}

func TestVerifyIsPartitionScoped(t *testing.T) {
	f := newLedgerFixture(t)
	west := f.seedUser(t, "california", domain.RoleCustomer)
	east := f.seedUser(t, "new york", domain.RoleCustomer)

	westSecret := f.issue(t, west)
	eastSecret := f.issue(t, east)

	// Each secret only resolves in its home partition
	_, err := f.ledger.Verify(context.Background(), westSecret, "new york")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)
	_, err = f.ledger.Verify(context.Background(), eastSecret, "california")
	assert.ErrorIs(t, err, domain.ErrTokenNotFound)

	_, err = f.ledger.Verify(context.Background(), westSecret, "california")
	assert.NoError(t, err)
	_, err = f.ledger.Verify(context.Background(), eastSecret, "new york")
	assert.NoError(t, err)
}

func TestRevokeAllIsScopedToUser(t *testing.T) {
	f := newLedgerFixture(t)
	customer := f.seedUser(t, "california", domain.RoleCustomer)
	admin := f.seedUser(t, "california", domain.RoleAdmin)

	customerSecret := f.issue(t, customer)
	adminSecret := f.issue(t, admin)

	require.NoError(t, f.ledger.RevokeAll(context.Background(), customer.UserID, "california"))

	_, err := f.ledger.Verify(context.Background(), customerSecret, "california")
	assert.ErrorIs(t, err, domain.ErrTokenRevoked)

	record := f.data.tokenByHash("california", hashOf(customerSecret))
	assert.Equal(t, domain.ReasonLogoutAllDevices, record.RevokedReason)

	_, err = f.ledger.Verify(context.Background(), adminSecret, "california")
	assert.NoError(t, err)
}

func TestRevokeOnePreservesFirstReason(t *testing.T) {
	f := newLedgerFixture(t)
	payload := f.seedUser(t, "california", domain.RoleCustomer)

	secret := f.issue(t, payload)
	require.NoError(t, f.ledger.RevokeOne(context.Background(), secret, "california", domain.ReasonUserLogout))

	// Second revoke is a no-op; the original reason survives
	require.NoError(t, f.ledger.RevokeOne(context.Background(), secret, "california", domain.ReasonUserRevoked))

	record := f.data.tokenByHash("california", hashOf(secret))
	assert.Equal(t, domain.ReasonUserLogout, record.RevokedReason)

	// Unknown secrets are also a no-op
	assert.NoError(t, f.ledger.RevokeOne(context.Background(), "never-issued", "california", domain.ReasonUserLogout))
}

func TestIssueUnknownRole(t *testing.T) {
	f := newLedgerFixture(t)

	payload := TokenPayload{UserID: "user-1", Role: domain.Role("ghost"), Region: "california"}
	_, err := f.ledger.Issue(context.Background(), payload, DeviceInfo{})
	assert.ErrorIs(t, err, domain.ErrUnknownRole)
}

func TestLedgerStoreUnavailable(t *testing.T) {
	f := newLedgerFixture(t)
	payload := f.seedUser(t, "california", domain.RoleCustomer)
	secret := f.issue(t, payload)

	f.data.err = errors.New("driver: bad connection")

	_, err := f.ledger.Verify(context.Background(), secret, "california")
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)

	_, err = f.ledger.Issue(context.Background(), payload, DeviceInfo{})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}
