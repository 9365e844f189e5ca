package repository

import (
	"context"
	"fmt"

	"github.com/twitterlite/twitterlite/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ActivityRepository struct {
	db *gorm.DB
}

func NewActivityRepository(db *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Create 事件ID重复时忽略，消费者重放同一消息不会产生重复记录
func (r *ActivityRepository) Create(ctx context.Context, record *models.ActivityRecord) error {
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(record).Error; err != nil {
		return fmt.Errorf("failed to create activity record: %w", err)
	}
	return nil
}

func (r *ActivityRepository) GetByActor(ctx context.Context, uid int64, offset, limit int) ([]*models.ActivityRecord, error) {
	var records []*models.ActivityRecord
	if err := r.db.WithContext(ctx).
		Where("actor_uid = ?", uid).
		Order("occurred_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to get activity by actor: %w", err)
	}
	return records, nil
}

func (r *ActivityRepository) CountByType(ctx context.Context, eventType string) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.ActivityRecord{}).
		Where("event_type = ?", eventType).
		Count(&count).Error; err != nil {
		return 0, fmt.Errorf("failed to count activity: %w", err)
	}
	return count, nil
}
