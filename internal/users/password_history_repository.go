package users

import (
	"context"

	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

type PasswordHistoryRepository interface {
	Append(ctx context.Context, entry *model.PasswordHistory) error
	Latest(ctx context.Context, userID uint, n int) ([]*model.PasswordHistory, error)
	// Trim deletes history entries beyond the newest keep rows.
	Trim(ctx context.Context, userID uint, keep int) error
}

type passwordHistoryRepository struct {
	db *gorm.DB
}

func (r *passwordHistoryRepository) Append(ctx context.Context, entry *model.PasswordHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *passwordHistoryRepository) Latest(ctx context.Context, userID uint, n int) ([]*model.PasswordHistory, error) {
	var entries []*model.PasswordHistory
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(n).
		Find(&entries).Error
	return entries, err
}

func (r *passwordHistoryRepository) Trim(ctx context.Context, userID uint, keep int) error {
	var keepIDs []uint
	err := r.db.WithContext(ctx).Model(&model.PasswordHistory{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(keep).
		Pluck("id", &keepIDs).Error
	if err != nil || len(keepIDs) == 0 {
		return err
	}
	return r.db.WithContext(ctx).
		Where("user_id = ? AND id NOT IN ?", userID, keepIDs).
		Delete(&model.PasswordHistory{}).Error
}

func NewPasswordHistoryRepository(db *gorm.DB) PasswordHistoryRepository {
	return &passwordHistoryRepository{db: db}
}
