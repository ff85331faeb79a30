package tokens

import (
	"context"
	"time"

	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

type RefreshTokenRepository interface {
	Create(ctx context.Context, token *model.RefreshToken) error
	GetByToken(ctx context.Context, token string) (*model.RefreshToken, error)
	// Rotate revokes the old row and persists its replacement in one
	// transaction, so a crash cannot leave both values live.
	Rotate(ctx context.Context, oldID uint, replacement *model.RefreshToken) error
	RevokeAllForUser(ctx context.Context, userID uint) error
}

type refreshTokenRepository struct {
	db *gorm.DB
}

func (r *refreshTokenRepository) Create(ctx context.Context, token *model.RefreshToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *refreshTokenRepository) GetByToken(ctx context.Context, token string) (*model.RefreshToken, error) {
	var row model.RefreshToken
	err := r.db.WithContext(ctx).First(&row, "token = ?", token).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *refreshTokenRepository) Rotate(ctx context.Context, oldID uint, replacement *model.RefreshToken) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		ret := tx.Model(&model.RefreshToken{}).
			Where("id = ? AND active = ?", oldID, true).
			Updates(map[string]interface{}{"active": false, "revoked_at": now})
		if ret.Error != nil {
			return ret.Error
		}
		if ret.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(replacement).Error
	})
}

func (r *refreshTokenRepository) RevokeAllForUser(ctx context.Context, userID uint) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.RefreshToken{}).
		Where("user_id = ? AND active = ?", userID, true).
		Updates(map[string]interface{}{"active": false, "revoked_at": now}).Error
}

func NewRefreshTokenRepository(db *gorm.DB) RefreshTokenRepository {
	return &refreshTokenRepository{db: db}
}
