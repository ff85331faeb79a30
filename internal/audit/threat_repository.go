package audit

import (
	"context"
	"time"

	"github.com/vhkhang/authcore/model"
	"gorm.io/gorm"
)

type ThreatRepository interface {
	Create(ctx context.Context, threat *model.SecurityThreat) error
	Active(ctx context.Context) ([]*model.SecurityThreat, error)
	// HasUnresolved reports whether an unresolved threat of the given type
	// and source was already raised at or after the given time.
	HasUnresolved(ctx context.Context, threatType, sourceIP string, userID uint, since time.Time) (bool, error)
	// Resolve closes an unresolved threat. Rows affected is zero when the
	// threat is unknown or already resolved; resolution never re-opens.
	Resolve(ctx context.Context, threatID uint, resolution string) (int64, error)
}

type threatRepository struct {
	db *gorm.DB
}

func (r *threatRepository) Create(ctx context.Context, threat *model.SecurityThreat) error {
	return r.db.WithContext(ctx).Create(threat).Error
}

func (r *threatRepository) Active(ctx context.Context) ([]*model.SecurityThreat, error) {
	var threats []*model.SecurityThreat
	err := r.db.WithContext(ctx).
		Where("resolved = ?", false).
		Order("detected_at DESC").
		Find(&threats).Error
	return threats, err
}

func (r *threatRepository) HasUnresolved(ctx context.Context, threatType, sourceIP string, userID uint, since time.Time) (bool, error) {
	query := r.db.WithContext(ctx).Model(&model.SecurityThreat{}).
		Where("type = ? AND resolved = ? AND detected_at >= ?", threatType, false, since)
	if sourceIP != "" {
		query = query.Where("source_ip = ?", sourceIP)
	}
	if userID != 0 {
		query = query.Where("user_id = ?", userID)
	}
	var count int64
	err := query.Count(&count).Error
	return count > 0, err
}

func (r *threatRepository) Resolve(ctx context.Context, threatID uint, resolution string) (int64, error) {
	now := time.Now()
	ret := r.db.WithContext(ctx).Model(&model.SecurityThreat{}).
		Where("id = ? AND resolved = ?", threatID, false).
		Updates(map[string]interface{}{
			"resolved":    true,
			"resolved_at": now,
			"resolution":  resolution,
		})
	return ret.RowsAffected, ret.Error
}

func NewThreatRepository(db *gorm.DB) ThreatRepository {
	return &threatRepository{db: db}
}
