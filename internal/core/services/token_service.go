package services

import (
	"errors"
	"time"

	"instanteats-auth/internal/config"
	"instanteats-auth/internal/core/domain"
	"instanteats-auth/internal/pkg/jwt"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPayload is the identity carried by both token kinds
type TokenPayload struct {
	UserID string
	Email  string
	Role   domain.Role
	Region string
}

// TokenService mints and verifies the stateless access token family, plus the
// email-verification and password-reset families on their own secrets.
// Verification never touches the store: a compromised access token stays valid
// until its (short) natural expiry, which is the accepted trade for
// horizontal scalability.
type TokenService struct {
	jwtCfg config.JWTConfig
	now    func() time.Time
}

// NewTokenService creates a new token service
func NewTokenService(jwtCfg config.JWTConfig) *TokenService {
	return &TokenService{
		jwtCfg: jwtCfg,
		now:    time.Now,
	}
}

// WithClock overrides the time source (tests)
func (s *TokenService) WithClock(now func() time.Time) *TokenService {
	s.now = now
	return s
}

// MintAccessToken generates a signed access token for the payload's role.
// Returns the token and its lifetime.
func (s *TokenService) MintAccessToken(payload TokenPayload) (string, time.Duration, error) {
	policy, err := domain.PolicyFor(payload.Role)
	if err != nil {
		return "", 0, err
	}

	now := s.now()
	claims := jwt.AccessClaims{
		UserID:    payload.UserID,
		Email:     payload.Email,
		Role:      payload.Role.String(),
		Region:    payload.Region,
		TokenType: jwt.TypeAccess,
		TokenID:   uuid.NewString(),
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(now.Add(policy.AccessTokenTTL)),
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			Issuer:    s.jwtCfg.Issuer,
			Subject:   payload.UserID,
			Audience:  jwtlib.ClaimStrings{payload.Role.String()},
		},
	}

	token, err := jwt.Sign(claims, s.jwtCfg.AccessSecret)
	if err != nil {
		return "", 0, err
	}
	return token, policy.AccessTokenTTL, nil
}

// VerifyAccessToken validates an access token and returns its claims
func (s *TokenService) VerifyAccessToken(token string) (*jwt.AccessClaims, error) {
	claims, err := jwt.ParseAccess(token, s.jwtCfg.AccessSecret, s.now)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}

	// A refresh or reset token must never pass as an access token
	if claims.TokenType != jwt.TypeAccess {
		return nil, domain.ErrWrongTokenType
	}

	return claims, nil
}

// Email verification tokens are valid for 24 hours, password resets for 1.
const (
	emailVerificationTTL = 24 * time.Hour
	passwordResetTTL     = 1 * time.Hour
)

// MintEmailVerificationToken generates a signed email verification token
func (s *TokenService) MintEmailVerificationToken(userID, email string) (string, error) {
	return s.mintActionToken(userID, email, jwt.TypeEmailVerification, s.jwtCfg.EmailVerificationSecret, emailVerificationTTL)
}

// MintPasswordResetToken generates a signed password reset token
func (s *TokenService) MintPasswordResetToken(email string) (string, error) {
	return s.mintActionToken("", email, jwt.TypePasswordReset, s.jwtCfg.PasswordResetSecret, passwordResetTTL)
}

// VerifyEmailVerificationToken validates an email verification token
func (s *TokenService) VerifyEmailVerificationToken(token string) (*jwt.ActionClaims, error) {
	return s.verifyActionToken(token, jwt.TypeEmailVerification, s.jwtCfg.EmailVerificationSecret)
}

// VerifyPasswordResetToken validates a password reset token
func (s *TokenService) VerifyPasswordResetToken(token string) (*jwt.ActionClaims, error) {
	return s.verifyActionToken(token, jwt.TypePasswordReset, s.jwtCfg.PasswordResetSecret)
}

func (s *TokenService) mintActionToken(userID, email, tokenType, secret string, ttl time.Duration) (string, error) {
	now := s.now()
	claims := jwt.ActionClaims{
		UserID:    userID,
		Email:     email,
		TokenType: tokenType,
		RegisteredClaims: jwtlib.RegisteredClaims{
			ExpiresAt: jwtlib.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwtlib.NewNumericDate(now),
			NotBefore: jwtlib.NewNumericDate(now),
			Issuer:    s.jwtCfg.Issuer,
		},
	}
	return jwt.Sign(claims, secret)
}

func (s *TokenService) verifyActionToken(token, tokenType, secret string) (*jwt.ActionClaims, error) {
	claims, err := jwt.ParseAction(token, secret, s.now)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, domain.ErrInvalidToken
	}
	if claims.TokenType != tokenType {
		return nil, domain.ErrWrongTokenType
	}
	return claims, nil
}
