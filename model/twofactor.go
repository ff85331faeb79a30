package model

import (
	"time"

	"gorm.io/gorm"
)

// UserTwoFactorSettings holds per-user TOTP state. A row with a pending
// secret and Enabled=false means setup has started but possession of the
// secret has not been proven yet.
type UserTwoFactorSettings struct {
	ID            uint   `gorm:"primarykey,autoIncrement"`
	UserID        uint   `gorm:"uniqueIndex;not null"`
	Secret        string `gorm:"size:128"`
	PendingSecret string `gorm:"size:128"`
	Enabled       bool   `gorm:"default:false;not null"`
	EnabledAt     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeletedAt     gorm.DeletedAt `gorm:"index"`
}

// RecoveryCode is a single-use fallback credential for 2FA. The code is
// stored hashed; the row is deleted on first successful use.
type RecoveryCode struct {
	ID        uint   `gorm:"primarykey,autoIncrement"`
	UserID    uint   `gorm:"index;not null"`
	CodeHash  string `gorm:"size:64;not null;index"`
	CreatedAt time.Time
}
