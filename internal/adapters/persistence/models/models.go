package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ============================================================
// Identity & Session Tables (per shard)
// ============================================================

// User represents users table
type User struct {
	ID                  string     `gorm:"type:char(36);primaryKey" json:"id"`
	Email               string     `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password            string     `gorm:"size:255;not null" json:"-"`
	FirstName           string     `gorm:"size:50" json:"first_name"`
	LastName            string     `gorm:"size:50" json:"last_name"`
	Role                string     `gorm:"size:30;not null" json:"role"`
	Region              string     `gorm:"size:50;not null;index" json:"region"`
	AccountStatus       string     `gorm:"size:20;not null;default:'pending'" json:"account_status"`
	FailedLoginAttempts int        `gorm:"not null;default:0" json:"-"`
	AccountLockedUntil  *time.Time `json:"-"`
	LastLogin           *time.Time `json:"last_login"`
	LastLoginIP         string     `gorm:"size:50" json:"-"`
	CreatedAt           time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// IsLocked reports whether the account lock window covers now. The lock lifts
// by time alone; no unlock write happens.
func (u *User) IsLocked(now time.Time) bool {
	return u.AccountLockedUntil != nil && u.AccountLockedUntil.After(now)
}

// UserResponse DTO
type UserResponse struct {
	ID            string     `json:"id"`
	Email         string     `json:"email"`
	FirstName     string     `json:"first_name,omitempty"`
	LastName      string     `json:"last_name,omitempty"`
	Role          string     `json:"role"`
	Region        string     `json:"region"`
	AccountStatus string     `json:"account_status"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		Role:          u.Role,
		Region:        u.Region,
		AccountStatus: u.AccountStatus,
		LastLogin:     u.LastLogin,
		CreatedAt:     u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table. One row per device session.
// Rows are revoked, never deleted; the full history stays for audit.
type RefreshToken struct {
	ID            string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID        string     `gorm:"type:char(36);index;not null" json:"user_id"`
	TokenHash     string     `gorm:"size:64;uniqueIndex;not null" json:"-"`
	DeviceInfo    string     `gorm:"size:255" json:"device_info"`
	IPAddress     string     `gorm:"size:50" json:"ip_address"`
	UserAgent     string     `gorm:"size:255" json:"-"`
	ExpiresAt     time.Time  `gorm:"not null;index" json:"expires_at"`
	IsRevoked     bool       `gorm:"not null;default:false;index" json:"is_revoked"`
	RevokedAt     *time.Time `json:"revoked_at"`
	RevokedReason string     `gorm:"size:40" json:"revoked_reason"`
	LastUsedAt    *time.Time `json:"last_used_at"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	User          User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) BeforeCreate(tx *gorm.DB) error {
	if rt.ID == "" {
		rt.ID = uuid.NewString()
	}
	return nil
}

func (rt *RefreshToken) IsExpired(now time.Time) bool {
	return now.After(rt.ExpiresAt)
}

// IsActive reports whether this session still counts against the session cap
func (rt *RefreshToken) IsActive(now time.Time) bool {
	return !rt.IsRevoked && !rt.IsExpired(now)
}

// SessionResponse DTO for the sessions listing
type SessionResponse struct {
	ID         string     `json:"id"`
	DeviceInfo string     `json:"device_info"`
	IPAddress  string     `json:"ip_address"`
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
}

func (rt *RefreshToken) ToSessionResponse() *SessionResponse {
	return &SessionResponse{
		ID:         rt.ID,
		DeviceInfo: rt.DeviceInfo,
		IPAddress:  rt.IPAddress,
		CreatedAt:  rt.CreatedAt,
		LastUsedAt: rt.LastUsedAt,
	}
}

// LoginHistory represents login_history table. Append-only audit log; rows are
// written once and never updated. UserID is nil when the email was unknown.
type LoginHistory struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	UserID        *string   `gorm:"type:char(36);index" json:"user_id"`
	Email         string    `gorm:"size:100;index;not null" json:"email"`
	Success       bool      `gorm:"not null" json:"success"`
	FailureReason string    `gorm:"size:30" json:"failure_reason,omitempty"`
	IPAddress     string    `gorm:"size:50" json:"ip_address"`
	UserAgent     string    `gorm:"size:255" json:"user_agent"`
	Timestamp     time.Time `gorm:"not null;index" json:"timestamp"`
}

func (LoginHistory) TableName() string {
	return "login_history"
}

// Login failure reasons
const (
	FailureInvalidEmail    = "invalid_email"
	FailureInvalidPassword = "invalid_password"
	FailureAccountLocked   = "account_locked"
)

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration against one shard
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&LoginHistory{},
	)
}
