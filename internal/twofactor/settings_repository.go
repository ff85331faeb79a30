package twofactor

import (
	"context"

	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	Get(ctx context.Context, userID uint) (*model.UserTwoFactorSettings, error)
	Upsert(ctx context.Context, settings *model.UserTwoFactorSettings) error
	Updates(ctx context.Context, userID uint, columns map[string]interface{}) (int64, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func (r *settingsRepository) Get(ctx context.Context, userID uint) (*model.UserTwoFactorSettings, error) {
	var settings model.UserTwoFactorSettings
	err := r.db.WithContext(ctx).First(&settings, "user_id = ?", userID).Error
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, settings *model.UserTwoFactorSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		UpdateAll: true,
	}).Create(settings).Error
}

func (r *settingsRepository) Updates(ctx context.Context, userID uint, columns map[string]interface{}) (int64, error) {
	ret := r.db.WithContext(ctx).Model(&model.UserTwoFactorSettings{}).
		Where("user_id = ?", userID).
		Updates(columns)
	return ret.RowsAffected, ret.Error
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}
