package repository

import (
	"content-storefront/internal/model"
	"context"

	"gorm.io/gorm"
)

type WebhookEventRepository interface {
	Record(ctx context.Context, event *model.WebhookEvent) error
	FindByPaymentID(ctx context.Context, paymentID string) ([]*model.WebhookEvent, error)
}

type webhookEventRepositoryIml struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) WebhookEventRepository {
	return &webhookEventRepositoryIml{db: db}
}

func (r *webhookEventRepositoryIml) Record(ctx context.Context, event *model.WebhookEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *webhookEventRepositoryIml) FindByPaymentID(ctx context.Context, paymentID string) ([]*model.WebhookEvent, error) {
	var events []*model.WebhookEvent
	err := r.db.WithContext(ctx).
		Where("payment_id = ?", paymentID).
		Order("id").
		Find(&events).Error

	if err != nil {
		return nil, err
	}

	return events, nil
}
