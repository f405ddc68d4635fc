package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/weiawesome/wes-cook-live/internal/domain"
	"github.com/weiawesome/wes-cook-live/internal/idgen"
)

// GormNotificationRepository implements NotificationRepository using GORM.
type GormNotificationRepository struct {
	db  *gorm.DB
	ids idgen.Generator
}

func NewGormNotificationRepository(db *gorm.DB, ids idgen.Generator) *GormNotificationRepository {
	return &GormNotificationRepository{db: db, ids: ids}
}

func (r *GormNotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	if err := stamp(r.ids, &n.ID, &n.CreatedAt); err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(domain.NotificationToModel(n)).Error
}

func (r *GormNotificationRepository) ListByUser(ctx context.Context, userID string, unreadOnly bool, offset, limit int) ([]*domain.Notification, int64, error) {
	query := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).Where("user_id = ?", userID)
	if unreadOnly {
		query = query.Where("is_read = ?", false)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []domain.NotificationModel
	if err := query.Order("created_at DESC").Order("id DESC").
		Offset(offset).Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, err
	}

	out := make([]*domain.Notification, 0, len(models))
	for i := range models {
		out = append(out, models[i].ToDomain())
	}
	return out, total, nil
}

func (r *GormNotificationRepository) MarkRead(ctx context.Context, userID, id string) error {
	result := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("is_read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	// Some drivers report zero rows when the flag was already set.
	var count int64
	if err := r.db.WithContext(ctx).Model(&domain.NotificationModel{}).
		Where("id = ? AND user_id = ?", id, userID).
		Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
