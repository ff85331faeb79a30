package model

import "time"

// SecurityAuditEvent is an append-only record of a security-relevant
// action. Threat detection reads these back in sliding windows.
type SecurityAuditEvent struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	EventType string    `gorm:"size:64;not null;index"` // login_failure, password_changed...
	Action    string    `gorm:"size:64;not null"`
	Resource  string    `gorm:"size:128"`
	UserID    uint      `gorm:"index"`                  // zero when the actor is unknown
	Username  string    `gorm:"size:64;index"`          // snapshot of username at event time
	IP        string    `gorm:"size:45;not null;index"` // IPv4/IPv6
	Success   bool      `gorm:"not null"`
	Severity  string    `gorm:"size:16;not null"`
	Reason    string    `gorm:"size:512"` // internal failure reason or context
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
}

func (SecurityAuditEvent) TableName() string {
	return "security_audit"
}
