package repositories

import (
	"context"
	"fmt"

	"momopay/internal/models"

	"gorm.io/gorm"
)

type WebhookLogRepository interface {
	Create(ctx context.Context, log *models.WebhookLog) error
	MarkProcessed(ctx context.Context, id uint) error
	List(ctx context.Context, provider string, limit, offset int) ([]models.WebhookLog, error)
}

type webhookLogRepository struct {
	db *gorm.DB
}

func NewWebhookLogRepository(db *gorm.DB) WebhookLogRepository {
	return &webhookLogRepository{db: db}
}

func (r *webhookLogRepository) Create(ctx context.Context, log *models.WebhookLog) error {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create webhook log: %w", err)
	}
	return nil
}

func (r *webhookLogRepository) MarkProcessed(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Model(&models.WebhookLog{}).
		Where("id = ?", id).
		Update("processed", true).Error
	if err != nil {
		return fmt.Errorf("failed to update webhook log: %w", err)
	}
	return nil
}

func (r *webhookLogRepository) List(ctx context.Context, provider string, limit, offset int) ([]models.WebhookLog, error) {
	var logs []models.WebhookLog
	q := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset)
	if provider != "" {
		q = q.Where("provider = ?", provider)
	}
	if err := q.Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list webhook logs: %w", err)
	}
	return logs, nil
}
