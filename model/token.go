package model

import (
	"time"

	"gorm.io/gorm"
)

// RefreshToken is a long-lived opaque credential bound to one session.
// Rows are revoked on rotation, logout or expiry, never deleted.
type RefreshToken struct {
	ID        uint   `gorm:"primarykey,autoIncrement"`
	Token     string `gorm:"uniqueIndex;size:64;not null"`
	UserID    uint   `gorm:"index;not null"`
	IssuedIP  string `gorm:"size:45"`
	IssuedAt  time.Time
	ExpiresAt time.Time `gorm:"index;not null"`
	Active    bool      `gorm:"default:true;not null"`
	RevokedAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Usable reports whether the token can still mint access tokens at t.
func (t *RefreshToken) Usable(now time.Time) bool {
	return t.Active && t.ExpiresAt.After(now)
}

// BlacklistedToken shadows a revoked access token until the token's own
// expiry passes. Only the content hash is stored, never the raw token.
type BlacklistedToken struct {
	ID            uint   `gorm:"primarykey,autoIncrement"`
	TokenHash     string `gorm:"uniqueIndex;size:64;not null"`
	BlacklistedAt time.Time
	ExpiresAt     time.Time `gorm:"index;not null"`
}
