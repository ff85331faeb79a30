package model

import (
	"time"

	"gorm.io/gorm"
)

// SecurityThreat is a detected risk requiring attention. Unresolved
// threats persist until explicitly resolved; resolution never re-opens.
type SecurityThreat struct {
	ID          uint   `gorm:"primarykey"`
	Type        string `gorm:"size:64;not null;index"`
	Severity    string `gorm:"size:16;not null"`
	Description string `gorm:"size:512;not null"`
	SourceIP    string `gorm:"size:45;index"`
	UserID      uint   `gorm:"index"`
	Username    string `gorm:"size:64"`
	Evidence    string `gorm:"type:text"` // JSON object, rule-specific
	DetectedAt  time.Time
	Resolved    bool `gorm:"default:false;not null;index"`
	ResolvedAt  *time.Time
	Resolution  string `gorm:"size:512"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (t *SecurityThreat) BeforeCreate(tx *gorm.DB) error {
	if t.ID == 0 {
		t.ID = GenerateID()
	}
	return nil
}
