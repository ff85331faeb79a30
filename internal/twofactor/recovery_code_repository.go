package twofactor

import (
	"context"

	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

type RecoveryCodeRepository interface {
	// ReplaceAll atomically swaps the full recovery code set, so
	// regeneration invalidates every previous code.
	ReplaceAll(ctx context.Context, userID uint, codeHashes []string) error
	// Consume deletes a matching code and reports whether one existed.
	// Deletion makes each code usable exactly once.
	Consume(ctx context.Context, userID uint, codeHash string) (bool, error)
	DeleteAll(ctx context.Context, userID uint) error
}

type recoveryCodeRepository struct {
	db *gorm.DB
}

func (r *recoveryCodeRepository) ReplaceAll(ctx context.Context, userID uint, codeHashes []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&model.RecoveryCode{}).Error; err != nil {
			return err
		}
		codes := make([]model.RecoveryCode, 0, len(codeHashes))
		for _, hash := range codeHashes {
			codes = append(codes, model.RecoveryCode{UserID: userID, CodeHash: hash})
		}
		return tx.Create(&codes).Error
	})
}

func (r *recoveryCodeRepository) Consume(ctx context.Context, userID uint, codeHash string) (bool, error) {
	ret := r.db.WithContext(ctx).
		Where("user_id = ? AND code_hash = ?", userID, codeHash).
		Delete(&model.RecoveryCode{})
	return ret.RowsAffected > 0, ret.Error
}

func (r *recoveryCodeRepository) DeleteAll(ctx context.Context, userID uint) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.RecoveryCode{}).Error
}

func NewRecoveryCodeRepository(db *gorm.DB) RecoveryCodeRepository {
	return &recoveryCodeRepository{db: db}
}
