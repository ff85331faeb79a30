package tokens

import (
	"context"
	"errors"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

type BlacklistRepository interface {
	Add(ctx context.Context, entry *model.BlacklistedToken) error
	Exists(ctx context.Context, tokenHash string) (bool, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type blacklistRepository struct {
	db *gorm.DB
}

func (r *blacklistRepository) Add(ctx context.Context, entry *model.BlacklistedToken) error {
	err := r.db.WithContext(ctx).Create(entry).Error
	// revoking twice is a no-op
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
		return nil
	}
	return err
}

func (r *blacklistRepository) Exists(ctx context.Context, tokenHash string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.BlacklistedToken{}).
		Where("token_hash = ?", tokenHash).
		Count(&count).Error
	return count > 0, err
}

func (r *blacklistRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	ret := r.db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&model.BlacklistedToken{})
	return ret.RowsAffected, ret.Error
}

func NewBlacklistRepository(db *gorm.DB) BlacklistRepository {
	return &blacklistRepository{db: db}
}
