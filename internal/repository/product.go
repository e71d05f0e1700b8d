package repository

import (
	"content-storefront/internal/model"
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	Upsert(ctx context.Context, product *model.Product) error
	FindByID(ctx context.Context, tx *gorm.DB, productID string) (*model.Product, error)
	FindByModel(ctx context.Context, modelID string) ([]*model.Product, error)
	FindBaseMembership(ctx context.Context, tx *gorm.DB, modelID string) (*model.Product, error)
}

type productRepoImpl struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepoImpl{
		db: db,
	}
}

func (r *productRepoImpl) Upsert(ctx context.Context, product *model.Product) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"model_id":           product.ModelID,
			"name":               product.Name,
			"price_cents":        product.PriceCents,
			"is_base_membership": product.IsBaseMembership,
			"status":             product.Status,
			"updated_at":         time.Now(),
		}),
	}).Create(product).Error
}

func (r *productRepoImpl) FindByID(ctx context.Context, tx *gorm.DB, productID string) (*model.Product, error) {
	var product model.Product
	err := conn(r.db, tx).WithContext(ctx).
		Where("id = ?", productID).
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrProductNotFound
		}
		return nil, err
	}

	return &product, nil
}

func (r *productRepoImpl) FindByModel(ctx context.Context, modelID string) ([]*model.Product, error) {
	var products []*model.Product
	err := r.db.WithContext(ctx).
		Where("model_id = ?", modelID).
		Order("id").
		Find(&products).
		Error

	if err != nil {
		return nil, err
	}

	return products, nil
}

func (r *productRepoImpl) FindBaseMembership(ctx context.Context, tx *gorm.DB, modelID string) (*model.Product, error) {
	var product model.Product
	err := conn(r.db, tx).WithContext(ctx).
		Where("model_id = ? AND is_base_membership = ?", modelID, true).
		Order("created_at").
		First(&product).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, model.ErrNoBaseMembership
		}
		return nil, err
	}

	return &product, nil
}
