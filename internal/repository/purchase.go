package repository

import (
	"content-storefront/internal/model"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PurchaseRepository interface {
	// UpsertPending inserts a pending row for (user, product) or refreshes the
	// amount of an existing pending row. Rows in any other status are left
	// untouched. The current row is returned either way.
	UpsertPending(ctx context.Context, tx *gorm.DB, userID, productID string, amountCents int64, provider string) (*model.Purchase, error)

	// AttachPayment stores the provider payment id and payload on a pending row.
	AttachPayment(ctx context.Context, userID, productID, paymentID, providerData string) (bool, error)

	// Transition moves a pending row to the given status. It reports false
	// when no pending row matched, which makes replays a no-op. Expired and
	// refunded only apply when paymentID is the payment attached to the row;
	// paid applies for any payment of the pair and records it.
	Transition(ctx context.Context, userID, productID, paymentID string, to model.PurchaseStatus, providerData string, now time.Time) (bool, error)

	// UpsertPaid creates a paid row or promotes a pending one to paid. It
	// reports whether the row changed, and fails with ErrPurchaseNotPending
	// when the row is expired or refunded.
	UpsertPaid(ctx context.Context, tx *gorm.DB, userID, productID string, amountCents int64, provider string, now time.Time) (bool, error)

	FindByUserProduct(ctx context.Context, userID, productID string) (*model.Purchase, error)
	ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error)
	CountByUserProduct(ctx context.Context, userID, productID string) (int64, error)
}

type purchaseRepoImpl struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) PurchaseRepository {
	return &purchaseRepoImpl{
		db: db,
	}
}

var naturalKey = []clause.Column{{Name: "user_id"}, {Name: "product_id"}}

func (r *purchaseRepoImpl) UpsertPending(ctx context.Context, tx *gorm.DB, userID, productID string, amountCents int64, provider string) (*model.Purchase, error) {
	db := conn(r.db, tx).WithContext(ctx)

	purchase := &model.Purchase{
		ID:              uuid.NewString(),
		UserID:          userID,
		ProductID:       productID,
		Status:          model.PurchaseStatusPending,
		AmountCents:     amountCents,
		PaymentProvider: provider,
	}

	result := db.Clauses(clause.OnConflict{
		Columns:   naturalKey,
		DoNothing: true,
	}).Create(purchase)
	if result.Error != nil {
		return nil, result.Error
	}

	if result.RowsAffected == 0 {
		err := db.Model(&model.Purchase{}).
			Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, model.PurchaseStatusPending).
			Updates(map[string]interface{}{
				"amount_cents":     amountCents,
				"payment_provider": provider,
				"updated_at":       time.Now(),
			}).Error
		if err != nil {
			return nil, err
		}
	}

	var current model.Purchase
	err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&current).Error
	if err != nil {
		return nil, err
	}

	return &current, nil
}

func (r *purchaseRepoImpl) AttachPayment(ctx context.Context, userID, productID, paymentID, providerData string) (bool, error) {
	result := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, model.PurchaseStatusPending).
		Updates(map[string]interface{}{
			"payment_id":            paymentID,
			"payment_provider_data": providerData,
			"updated_at":            time.Now(),
		})

	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *purchaseRepoImpl) Transition(ctx context.Context, userID, productID, paymentID string, to model.PurchaseStatus, providerData string, now time.Time) (bool, error) {
	updates := map[string]interface{}{
		"status":                to,
		"payment_provider_data": providerData,
		"updated_at":            now,
	}

	query := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where(`
			user_id = ?
			AND product_id = ?
			AND status = ?
		`,
			userID,
			productID,
			model.PurchaseStatusPending,
		)

	if to == model.PurchaseStatusPaid {
		updates["paid_at"] = now
		if paymentID != "" {
			updates["payment_id"] = paymentID
		}
	} else {
		// a superseded checkout attempt must not close the row
		query = query.Where("payment_id = ?", paymentID)
	}

	result := query.Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}

	return result.RowsAffected > 0, nil
}

func (r *purchaseRepoImpl) UpsertPaid(ctx context.Context, tx *gorm.DB, userID, productID string, amountCents int64, provider string, now time.Time) (bool, error) {
	db := conn(r.db, tx).WithContext(ctx)

	result := db.Clauses(clause.OnConflict{
		Columns:   naturalKey,
		DoNothing: true,
	}).Create(&model.Purchase{
		ID:              uuid.NewString(),
		UserID:          userID,
		ProductID:       productID,
		Status:          model.PurchaseStatusPaid,
		AmountCents:     amountCents,
		PaymentProvider: provider,
		PaidAt:          &now,
	})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	result = db.Model(&model.Purchase{}).
		Where("user_id = ? AND product_id = ? AND status = ?", userID, productID, model.PurchaseStatusPending).
		Updates(map[string]interface{}{
			"status":           model.PurchaseStatusPaid,
			"payment_provider": provider,
			"paid_at":          now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected > 0 {
		return true, nil
	}

	var current model.Purchase
	if err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&current).Error; err != nil {
		return false, err
	}
	if current.Status != model.PurchaseStatusPaid {
		return false, fmt.Errorf("purchase is %s: %w", current.Status, model.ErrPurchaseNotPending)
	}

	return false, nil
}

func (r *purchaseRepoImpl) FindByUserProduct(ctx context.Context, userID, productID string) (*model.Purchase, error) {
	var purchase model.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		First(&purchase).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrPurchaseNotFound
		}
		return nil, err
	}

	return &purchase, nil
}

func (r *purchaseRepoImpl) ListByUser(ctx context.Context, userID string) ([]*model.Purchase, error) {
	var purchases []*model.Purchase
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&purchases).Error

	if err != nil {
		return nil, err
	}

	return purchases, nil
}

func (r *purchaseRepoImpl) CountByUserProduct(ctx context.Context, userID, productID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Purchase{}).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Count(&count).Error

	return count, err
}
