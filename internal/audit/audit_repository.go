package audit

import (
	"context"
	"time"

	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

// IPCount is a count-by-IP aggregation row.
type IPCount struct {
	IP    string
	Count int64
}

// UserCount is a count-by-user aggregation row.
type UserCount struct {
	UserID   uint
	Username string
	Count    int64
}

type EventRepository interface {
	RecordEvent(ctx context.Context, event *model.SecurityAuditEvent) error
	// CountFailedLoginsByIP counts failed login events from one IP since
	// the given time. Cheap ad hoc check used inline during login.
	CountFailedLoginsByIP(ctx context.Context, ip string, since time.Time) (int64, error)
	// FailedLoginsByIP returns IPs with at least min failed logins since
	// the given time.
	FailedLoginsByIP(ctx context.Context, since time.Time, min int64) ([]IPCount, error)
	// DistinctUsernamesByIP returns IPs that attempted at least min
	// distinct usernames since the given time.
	DistinctUsernamesByIP(ctx context.Context, since time.Time, min int64) ([]IPCount, error)
	// ActionsByUser returns users with at least min audited actions since
	// the given time.
	ActionsByUser(ctx context.Context, since time.Time, min int64) ([]UserCount, error)
}

type eventRepository struct {
	db *gorm.DB
}

func (r *eventRepository) RecordEvent(ctx context.Context, event *model.SecurityAuditEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *eventRepository) CountFailedLoginsByIP(ctx context.Context, ip string, since time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.SecurityAuditEvent{}).
		Where("event_type = ? AND ip = ? AND created_at >= ?", EventTypeLoginFailure, ip, since).
		Count(&count).Error
	return count, err
}

func (r *eventRepository) FailedLoginsByIP(ctx context.Context, since time.Time, min int64) ([]IPCount, error) {
	var rows []IPCount
	err := r.db.WithContext(ctx).Model(&model.SecurityAuditEvent{}).
		Select("ip, COUNT(*) AS count").
		Where("event_type = ? AND created_at >= ?", EventTypeLoginFailure, since).
		Group("ip").
		Having("COUNT(*) >= ?", min).
		Scan(&rows).Error
	return rows, err
}

func (r *eventRepository) DistinctUsernamesByIP(ctx context.Context, since time.Time, min int64) ([]IPCount, error) {
	var rows []IPCount
	err := r.db.WithContext(ctx).Model(&model.SecurityAuditEvent{}).
		Select("ip, COUNT(DISTINCT username) AS count").
		Where("event_type = ? AND created_at >= ?", EventTypeLoginFailure, since).
		Group("ip").
		Having("COUNT(DISTINCT username) >= ?", min).
		Scan(&rows).Error
	return rows, err
}

func (r *eventRepository) ActionsByUser(ctx context.Context, since time.Time, min int64) ([]UserCount, error) {
	var rows []UserCount
	err := r.db.WithContext(ctx).Model(&model.SecurityAuditEvent{}).
		Select("user_id, username, COUNT(*) AS count").
		Where("user_id <> 0 AND created_at >= ?", since).
		Group("user_id, username").
		Having("COUNT(*) >= ?", min).
		Scan(&rows).Error
	return rows, err
}

func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}
