package audit

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vhkhang/authcore/model"
)

const (
	EventTypeLoginSuccess             = "login_success"
	EventTypeLoginFailure             = "login_failure"
	EventTypeAccountLocked            = "account_locked"
	EventTypeLogout                   = "logout"
	EventTypeTokenRefreshed           = "token_refreshed"
	EventTypePasswordChanged          = "password_changed"
	EventTypePasswordReset            = "password_reset_requested"
	EventTypeTwoFactorEnabled         = "2fa_enabled"
	EventTypeTwoFactorDisabled        = "2fa_disabled"
	EventTypeTwoFactorFailure         = "2fa_attempt_failure"
	EventTypeRecoveryCodesRegenerated = "2fa_recovery_codes_regenerated"
	EventTypeThreatResolved           = "threat_resolved"
)

const (
	SeverityInfo     = "info"
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

type LoginRecord struct {
	UserID   uint
	Username string
	IP       string
	Success  bool
	Reason   string
}

// Recorder appends security events to the audit log. Writes are
// best-effort: a failure is logged and swallowed so that an audit outage
// never blocks authentication.
type Recorder struct {
	repo EventRepository
}

func (r *Recorder) record(ctx context.Context, event *model.SecurityAuditEvent) {
	if err := r.repo.RecordEvent(ctx, event); err != nil {
		slog.Error("Failed to record audit event", "type", event.EventType, "error", err)
	}
}

func (r *Recorder) RecordLogin(ctx context.Context, record LoginRecord) {
	eventType := EventTypeLoginFailure
	severity := SeverityLow
	if record.Success {
		eventType = EventTypeLoginSuccess
		severity = SeverityInfo
	}
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: eventType,
		Action:    "login",
		Resource:  "session",
		UserID:    record.UserID,
		Username:  record.Username,
		IP:        record.IP,
		Success:   record.Success,
		Severity:  severity,
		Reason:    record.Reason,
	})
}

func (r *Recorder) RecordAccountLocked(ctx context.Context, userID uint, username, ip string) {
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: EventTypeAccountLocked,
		Action:    "lockout",
		Resource:  "user",
		UserID:    userID,
		Username:  username,
		IP:        ip,
		Success:   true,
		Severity:  SeverityMedium,
	})
}

func (r *Recorder) RecordLogout(ctx context.Context, userID uint, username, ip string) {
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: EventTypeLogout,
		Action:    "logout",
		Resource:  "session",
		UserID:    userID,
		Username:  username,
		IP:        ip,
		Success:   true,
		Severity:  SeverityInfo,
	})
}

func (r *Recorder) RecordTokenRefresh(ctx context.Context, userID uint, username, ip string, success bool, reason string) {
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: EventTypeTokenRefreshed,
		Action:    "refresh",
		Resource:  "token",
		UserID:    userID,
		Username:  username,
		IP:        ip,
		Success:   success,
		Severity:  SeverityInfo,
		Reason:    reason,
	})
}

func (r *Recorder) RecordPasswordChange(ctx context.Context, userID uint, username, ip string, success bool, reason string) {
	severity := SeverityInfo
	if !success {
		severity = SeverityLow
	}
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: EventTypePasswordChanged,
		Action:    "change_password",
		Resource:  "user",
		UserID:    userID,
		Username:  username,
		IP:        ip,
		Success:   success,
		Severity:  severity,
		Reason:    reason,
	})
}

func (r *Recorder) RecordPasswordReset(ctx context.Context, email, ip string, matched bool) {
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: EventTypePasswordReset,
		Action:    "reset_password",
		Resource:  "user",
		Username:  email,
		IP:        ip,
		Success:   matched,
		Severity:  SeverityInfo,
	})
}

func (r *Recorder) RecordTwoFactor(ctx context.Context, eventType string, userID uint, username, ip string, success bool, reason string) {
	severity := SeverityInfo
	if !success {
		severity = SeverityLow
	}
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: eventType,
		Action:    "two_factor",
		Resource:  "user",
		UserID:    userID,
		Username:  username,
		IP:        ip,
		Success:   success,
		Severity:  severity,
		Reason:    reason,
	})
}

func (r *Recorder) RecordThreatResolved(ctx context.Context, userID uint, username, ip string, threatID uint) {
	r.record(ctx, &model.SecurityAuditEvent{
		EventType: EventTypeThreatResolved,
		Action:    "resolve_threat",
		Resource:  fmt.Sprintf("threat/%d", threatID),
		UserID:    userID,
		Username:  username,
		IP:        ip,
		Success:   true,
		Severity:  SeverityInfo,
	})
}

func NewRecorder(repo EventRepository) *Recorder {
	return &Recorder{repo: repo}
}
