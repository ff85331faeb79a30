package model

import (
	"time"

	"gorm.io/gorm"
)

// User stores a principal that can authenticate.
type User struct {
	ID                 uint           `gorm:"primarykey"`
	Username           string         `gorm:"uniqueIndex;size:32;not null"`
	FullName           string         `gorm:"size:64;not null"`
	Email              string         `gorm:"uniqueIndex;size:256;not null"`
	Password           string         `gorm:"size:256;not null"`
	Disabled           bool           `gorm:"default:false;not null"`
	FailedAttempts     int            `gorm:"default:0;not null"`
	LockedUntil        *time.Time
	TwoFactorEnabled   bool   `gorm:"default:false;not null"`
	MustChangePassword bool   `gorm:"default:false;not null"`
	Roles              []Role `gorm:"many2many:user_roles;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
	DeletedAt          gorm.DeletedAt `gorm:"index"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == 0 {
		u.ID = GenerateID()
	}
	return nil
}

// Locked reports whether the lockout window is still open at t.
func (u *User) Locked(t time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(t)
}

type Role struct {
	ID          uint         `gorm:"primarykey,autoIncrement"`
	Name        string       `gorm:"uniqueIndex;size:64;not null"`
	Permissions []Permission `gorm:"many2many:role_permissions;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Permission struct {
	ID        uint   `gorm:"primarykey,autoIncrement"`
	Name      string `gorm:"uniqueIndex;size:64;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// PasswordHistory keeps previous password hashes so a changed password
// cannot be reused within the configured history window.
type PasswordHistory struct {
	ID        uint   `gorm:"primarykey,autoIncrement"`
	UserID    uint   `gorm:"index;not null"`
	Password  string `gorm:"size:256;not null"`
	CreatedAt time.Time
}
