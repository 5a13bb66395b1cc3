package jwt

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("token is invalid")
)

// Token type claims. A token of one family must never be accepted by a
// verifier of another.
const (
	TypeAccess            = "access"
	TypeEmailVerification = "email_verification"
	TypePasswordReset     = "password_reset"
)

// AccessClaims represents the access token claims
type AccessClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Region    string `json:"region"`
	TokenType string `json:"type"`
	TokenID   string `json:"tokenId"`
	jwt.RegisteredClaims
}

// ActionClaims represents email verification and password reset token claims
type ActionClaims struct {
	UserID    string `json:"userId,omitempty"`
	Email     string `json:"email"`
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

// Sign signs claims with HS256
func Sign(claims jwt.Claims, secret string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAccess validates an access-family token and returns its claims.
// now is injectable so expiry can be tested without waiting on the wall clock.
func ParseAccess(tokenString, secret string, now func() time.Time) (*AccessClaims, error) {
	claims := &AccessClaims{}
	if err := parse(tokenString, secret, claims, now); err != nil {
		return nil, err
	}
	return claims, nil
}

// ParseAction validates an email-verification or password-reset token.
func ParseAction(tokenString, secret string, now func() time.Time) (*ActionClaims, error) {
	claims := &ActionClaims{}
	if err := parse(tokenString, secret, claims, now); err != nil {
		return nil, err
	}
	return claims, nil
}

func parse(tokenString, secret string, claims jwt.Claims, now func() time.Time) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return []byte(secret), nil
	}, jwt.WithTimeFunc(now))

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrTokenExpired
		}
		return ErrTokenInvalid
	}

	if !token.Valid {
		return ErrTokenInvalid
	}
	return nil
}
