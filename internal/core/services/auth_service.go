package services

import (
	"context"
	"errors"
	"log"
	"time"

	"instanteats-auth/internal/adapters/persistence/models"
	"instanteats-auth/internal/adapters/persistence/repositories"
	"instanteats-auth/internal/core/domain"
	"instanteats-auth/internal/pkg/password"

	"gorm.io/gorm"
)

// AuthService orchestrates login, registration, refresh and logout across the
// credential check, the login guard, the token issuer and the refresh ledger.
type AuthService struct {
	users  repositories.UserRepository
	guard  *LoginGuard
	tokens *TokenService
	ledger *RefreshTokenLedger
	now    func() time.Time
}

// NewAuthService creates a new auth service
func NewAuthService(
	users repositories.UserRepository,
	guard *LoginGuard,
	tokens *TokenService,
	ledger *RefreshTokenLedger,
) *AuthService {
	return &AuthService{
		users:  users,
		guard:  guard,
		tokens: tokens,
		ledger: ledger,
		now:    time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// LoginInput represents login input
type LoginInput struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	Region     string `json:"region"`
	DeviceName string `json:"device_name"`
}

// RegisterInput represents customer registration input
type RegisterInput struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Region    string `json:"region"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User          *models.UserResponse `json:"user"`
	AccessToken   string               `json:"access_token"`
	ExpiresIn     int64                `json:"expires_in"`
	RefreshSecret string               `json:"-"`
}

// Login authenticates a user and opens one device session.
//
// Order matters: unknown email and wrong password both surface as plain
// invalid-credentials so the API never confirms whether an email exists; the
// lockout gate runs before the password check so a locked account rejects
// even the correct password.
func (s *AuthService) Login(ctx context.Context, input *LoginInput, device DeviceInfo) (*AuthResponse, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	attempt := AttemptInfo{IPAddress: device.IPAddress, UserAgent: device.UserAgent}

	user, err := s.users.GetByEmail(ctx, input.Region, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.guard.RecordUnknownEmail(ctx, input.Region, input.Email, attempt)
			return nil, domain.ErrInvalidCredentials
		}
		return nil, mapStoreError(err)
	}

	if err := s.guard.CheckLocked(ctx, user, attempt); err != nil {
		return nil, err
	}

	if !password.Verify(input.Password, user.Password) {
		return nil, s.guard.RecordFailure(ctx, user, attempt)
	}

	switch domain.AccountStatus(user.AccountStatus) {
	case domain.StatusSuspended:
		return nil, domain.ErrAccountSuspended
	case domain.StatusPending:
		// Customers may use a pending account; partner roles wait for review
		if domain.Role(user.Role) != domain.RoleCustomer {
			return nil, domain.ErrAccountPending
		}
	}

	if err := s.guard.RecordSuccess(ctx, user, attempt); err != nil {
		return nil, err
	}

	return s.openSession(ctx, user, device)
}

// Register creates a customer account and logs it straight in. Partner
// onboarding (documents, review) lives in a separate flow.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput, device DeviceInfo) (*AuthResponse, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	exists, err := s.users.ExistsByEmail(ctx, input.Region, input.Email)
	if err != nil {
		return nil, mapStoreError(err)
	}
	if exists {
		return nil, domain.ErrUserAlreadyExists
	}

	hashed, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:         input.Email,
		Password:      hashed,
		FirstName:     input.FirstName,
		LastName:      input.LastName,
		Role:          domain.RoleCustomer.String(),
		Region:        input.Region,
		AccountStatus: string(domain.StatusActive),
	}
	if err := s.users.Create(ctx, input.Region, user); err != nil {
		return nil, mapStoreError(err)
	}

	log.Printf("✅ User registered: %s [%s]", user.Email, user.Region)

	return s.openSession(ctx, user, device)
}

// Refresh exchanges a refresh secret for a fresh access token. The refresh
// secret itself is left untouched.
func (s *AuthService) Refresh(ctx context.Context, secret, region string) (accessToken string, expiresIn int64, err error) {
	payload, err := s.ledger.Verify(ctx, secret, region)
	if err != nil {
		return "", 0, err
	}

	token, ttl, err := s.tokens.MintAccessToken(payload)
	if err != nil {
		return "", 0, err
	}
	return token, int64(ttl.Seconds()), nil
}

// Logout revokes exactly the session behind one refresh secret
func (s *AuthService) Logout(ctx context.Context, secret, region string) error {
	if err := s.ledger.RevokeOne(ctx, secret, region, domain.ReasonUserLogout); err != nil {
		return err
	}
	log.Printf("✅ User logged out")
	return nil
}

// LogoutAll revokes every session for a user
func (s *AuthService) LogoutAll(ctx context.Context, userID, region string) error {
	if err := s.ledger.RevokeAll(ctx, userID, region); err != nil {
		return err
	}
	log.Printf("✅ All sessions revoked for user %s", userID)
	return nil
}

// GetUserByID gets a user by ID within a region
func (s *AuthService) GetUserByID(ctx context.Context, userID, region string) (*models.User, error) {
	ctx, cancel := withStoreTimeout(ctx)
	defer cancel()

	user, err := s.users.GetByID(ctx, region, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, mapStoreError(err)
	}
	return user, nil
}

// openSession mints the access token and issues the refresh secret for an
// authenticated user.
func (s *AuthService) openSession(ctx context.Context, user *models.User, device DeviceInfo) (*AuthResponse, error) {
	payload := TokenPayload{
		UserID: user.ID,
		Email:  user.Email,
		Role:   domain.Role(user.Role),
		Region: user.Region,
	}

	accessToken, ttl, err := s.tokens.MintAccessToken(payload)
	if err != nil {
		return nil, err
	}

	refreshSecret, err := s.ledger.Issue(ctx, payload, device)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s [%s]", user.Email, user.Role)

	return &AuthResponse{
		User:          user.ToResponse(),
		AccessToken:   accessToken,
		ExpiresIn:     int64(ttl.Seconds()),
		RefreshSecret: refreshSecret,
	}, nil
}
