package entities

import (
	"time"

	"gorm.io/gorm"
)

// StoredSession keeps the encrypted auth tokens of one signed-in account.
type StoredSession struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	// Account is the sign-in identifier, usually an email
	Account string `gorm:"type:varchar(255);not null;uniqueIndex" json:"account"`

	// UserID is the backend user id ("sub" claim) captured at sign-in
	UserID string `gorm:"type:varchar(64)" json:"user_id"`

	// AccessToken and RefreshToken hold base64 AES-256-GCM ciphertext
	AccessToken  string `gorm:"type:text;not null" json:"-"`
	RefreshToken string `gorm:"type:text" json:"-"`

	TokenType string `gorm:"type:varchar(50);default:bearer" json:"token_type"`

	// ExpiresAt is nil for tokens without a known expiry
	ExpiresAt *time.Time `json:"expires_at,omitempty"`

	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
	LastRefreshedAt *time.Time `json:"last_refreshed_at,omitempty"`
}

func (StoredSession) TableName() string {
	return "sessions"
}

// IsExpiringSoon checks if the access token expires within the given duration
func (s *StoredSession) IsExpiringSoon(within time.Duration) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(within).After(*s.ExpiresAt)
}

// Session holds decrypted session tokens in memory. It is never persisted as is.
type Session struct {
	Account      string
	UserID       string
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresAt    *time.Time
}

// IsExpiringSoon checks if the access token expires within the given duration
func (s *Session) IsExpiringSoon(within time.Duration) bool {
	if s.ExpiresAt == nil {
		return false
	}
	return time.Now().Add(within).After(*s.ExpiresAt)
}
