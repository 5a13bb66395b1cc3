package domain

import (
	"fmt"
	"time"
)

// Role is the closed set of user roles on the platform.
type Role string

const (
	RoleCustomer        Role = "customer"
	RoleRestaurantOwner Role = "restaurant_owner"
	RoleDeliveryPartner Role = "delivery_partner"
	RoleAdmin           Role = "admin"
)

// AllRoles lists every configured role.
var AllRoles = []Role{
	RoleCustomer,
	RoleRestaurantOwner,
	RoleDeliveryPartner,
	RoleAdmin,
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleCustomer, RoleRestaurantOwner, RoleDeliveryPartner, RoleAdmin:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}

// AccountStatus represents the lifecycle state of a user account.
type AccountStatus string

const (
	StatusPending   AccountStatus = "pending"
	StatusActive    AccountStatus = "active"
	StatusSuspended AccountStatus = "suspended"
)

// Revocation reasons recorded on refresh token records.
const (
	ReasonUserLogout          = "user_logout"
	ReasonLogoutAllDevices    = "logout_all_devices"
	ReasonMaxSessionsExceeded = "max_sessions_exceeded"
	ReasonExpired             = "expired"
	ReasonUserRevoked         = "user_revoked"
)

// RolePolicy holds per-role token lifetimes and the concurrent session cap.
type RolePolicy struct {
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	MaxSessions     int
}

// rolePolicies is immutable after process start. Customers get a short access
// window, delivery partners a long one (deliveries outlast dashboard sessions).
var rolePolicies = map[Role]RolePolicy{
	RoleCustomer: {
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		MaxSessions:     5,
	},
	RoleRestaurantOwner: {
		AccessTokenTTL:  30 * time.Minute,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		MaxSessions:     3,
	},
	RoleDeliveryPartner: {
		AccessTokenTTL:  2 * time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		MaxSessions:     2,
	},
	RoleAdmin: {
		AccessTokenTTL:  1 * time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
		MaxSessions:     3,
	},
}

// PolicyFor returns the token policy for a role.
// A missing policy is a configuration defect, not a user error.
func PolicyFor(role Role) (RolePolicy, error) {
	policy, ok := rolePolicies[role]
	if !ok {
		return RolePolicy{}, fmt.Errorf("%w: %q", ErrUnknownRole, role)
	}
	return policy, nil
}

// ValidatePolicies checks at startup that every role has a complete policy.
func ValidatePolicies() error {
	for _, role := range AllRoles {
		policy, ok := rolePolicies[role]
		if !ok {
			return fmt.Errorf("%w: no policy for %q", ErrUnknownRole, role)
		}
		if policy.AccessTokenTTL <= 0 || policy.RefreshTokenTTL <= 0 || policy.MaxSessions <= 0 {
			return fmt.Errorf("incomplete token policy for role %q", role)
		}
	}
	return nil
}
